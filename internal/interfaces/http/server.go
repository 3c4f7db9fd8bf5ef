// Package http provides the HTTP server adapter for the application
// layer. It is a thin translation layer: requests in, service calls
// out, kind-mapped status codes back.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/docuflow/docuflow/internal/application/port"
	"github.com/docuflow/docuflow/internal/application/service"
)

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:         "0.0.0.0",
		Port:         8080,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// Server is the HTTP server adapter
type Server struct {
	config            ServerConfig
	httpServer        *http.Server
	router            *gin.Engine
	workflowService   service.WorkflowService
	taskService       service.TaskService
	definitionService service.DefinitionService
	userRepo          port.UserRepository
	logger            Logger
}

// NewServer creates a new HTTP server with the given services
func NewServer(
	config ServerConfig,
	workflowService service.WorkflowService,
	taskService service.TaskService,
	definitionService service.DefinitionService,
	userRepo port.UserRepository,
	logger Logger,
) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	server := &Server{
		config:            config,
		router:            router,
		workflowService:   workflowService,
		taskService:       taskService,
		definitionService: definitionService,
		userRepo:          userRepo,
		logger:            logger,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

// setupMiddleware configures middleware for the router
func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())
}

// loggingMiddleware creates a logging middleware
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		s.logger.Info("HTTP request",
			"method", method,
			"path", path,
			"status", status,
			"latency", latency.String(),
			"client_ip", c.ClientIP(),
		)
	}
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	handlers := NewHandlers(s.workflowService, s.taskService, s.definitionService, s.userRepo, s.logger)

	// Health check
	s.router.GET("/health", handlers.HealthCheck)

	api := s.router.Group("/api")
	{
		// Workflow execution
		api.POST("/workflows/start", handlers.StartWorkflow)
		api.GET("/workflow-instances", handlers.ListActiveInstances)
		api.GET("/workflow-instances/:id", handlers.GetInstance)
		api.POST("/workflow-instances/:id/transition", handlers.TransitionWorkflow)
		api.POST("/workflow-instances/:id/cancel", handlers.CancelWorkflow)

		// Definitions
		api.POST("/workflow-definitions", handlers.CreateDefinition)
		api.GET("/workflow-definitions", handlers.ListDefinitions)
		api.GET("/workflow-definitions/:id", handlers.GetDefinition)
		api.PUT("/workflow-definitions/:id", handlers.UpdateDefinition)
		api.DELETE("/workflow-definitions/:id", handlers.DeleteDefinition)

		// Tasks
		api.POST("/workflow-tasks", handlers.CreateTask)
		api.GET("/workflow-tasks", handlers.FindTasks)
		api.GET("/workflow-tasks/:id", handlers.GetTask)
		api.PATCH("/workflow-tasks/:id/assign", handlers.AssignTask)
		api.PATCH("/workflow-tasks/:id/complete", handlers.CompleteTask)
		api.PATCH("/workflow-tasks/:id/cancel", handlers.CancelTask)
	}
}

// Start starts the HTTP server
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", "address", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("HTTP server shutdown requested")
		return s.Stop()
	case err := <-errCh:
		s.logger.Error("HTTP server error", "error", err)
		return err
	}
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	s.logger.Info("Stopping HTTP server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the underlying gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Address returns the server address
func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}
