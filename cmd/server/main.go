package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/docuflow/docuflow/internal/application/dispatcher"
	"github.com/docuflow/docuflow/internal/application/service"
	"github.com/docuflow/docuflow/internal/config"
	"github.com/docuflow/docuflow/internal/infrastructure/notify"
	"github.com/docuflow/docuflow/internal/infrastructure/persistence/repository"
	"github.com/docuflow/docuflow/internal/infrastructure/persistence/sqlite"
	"github.com/docuflow/docuflow/internal/infrastructure/worker"
	httpserver "github.com/docuflow/docuflow/internal/interfaces/http"
	"github.com/docuflow/docuflow/pkg/database"
	"github.com/docuflow/docuflow/pkg/utils"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting document workflow engine",
		zap.String("version", "1.0.0"),
		zap.Int("port", cfg.Server.Port))

	// Initialize database
	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	// Run migrations
	migrator := database.NewMigrator(db, logger)
	if err := migrator.RunMigrations(cfg.Database.MigrationsDir); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	// Transaction manager
	txManager := sqlite.NewDB(db.DB, logger)

	// Repositories
	definitionRepo := repository.NewWorkflowDefinitionRepository(db.DB, logger)
	instanceRepo := repository.NewWorkflowInstanceRepository(db.DB, logger)
	taskRepo := repository.NewWorkflowTaskRepository(db.DB, logger)
	documentRepo := repository.NewDocumentRepository(db.DB, logger)
	userRepo := repository.NewUserRepository(db.DB, logger)
	statusRepo := repository.NewStatusRepository(db.DB, logger)
	configRepo := repository.NewConfigurationRepository(db.DB, logger)

	// Event dispatcher
	events := dispatcher.NewDispatcher(dispatcher.WithLogger(&zapLoggerAdapter{logger: logger}))
	defer events.Close()

	// Notification fan-out
	notifier := notify.NewLogNotifier(logger)
	strategy := service.NewNotificationStrategy(configRepo, userRepo, notifier, &zapLoggerAdapter{logger: logger})
	strategy.Register(events)

	// Services
	validator := service.NewValidationService(service.RoleMatchMode(cfg.Workflow.RoleMatchMode))
	workflowService := service.NewWorkflowService(
		definitionRepo, instanceRepo, taskRepo, documentRepo, statusRepo,
		validator, txManager, events, &zapLoggerAdapter{logger: logger},
	)
	taskService := service.NewTaskService(
		taskRepo, instanceRepo, definitionRepo, userRepo,
		validator, txManager, events, &zapLoggerAdapter{logger: logger},
	)
	definitionService := service.NewDefinitionService(
		definitionRepo, instanceRepo, validator, txManager, events,
		&zapLoggerAdapter{logger: logger},
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Due-task scanner
	scanner := worker.NewDueTaskScanner(taskRepo, userRepo, notifier, logger, cfg.Workflow.DueTaskScanSchedule)
	if err := scanner.Start(ctx); err != nil {
		logger.Fatal("Failed to start due task scanner", zap.Error(err))
	}
	defer scanner.Stop()

	// HTTP server
	server := httpserver.NewServer(httpserver.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, workflowService, taskService, definitionService, userRepo, &zapLoggerAdapter{logger: logger})

	// Shutdown on SIGINT/SIGTERM
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	}()

	if err := server.Start(ctx); err != nil {
		logger.Fatal("HTTP server failed", zap.Error(err))
	}

	logger.Info("Shutdown complete")
}

// zapLoggerAdapter adapts zap.Logger to the keysAndValues logger
// interfaces used across the application layer.
type zapLoggerAdapter struct {
	logger *zap.Logger
}

func (a *zapLoggerAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.logger.Info(msg, convertToZapFields(keysAndValues...)...)
}

func (a *zapLoggerAdapter) Warn(msg string, keysAndValues ...interface{}) {
	a.logger.Warn(msg, convertToZapFields(keysAndValues...)...)
}

func (a *zapLoggerAdapter) Error(msg string, keysAndValues ...interface{}) {
	a.logger.Error(msg, convertToZapFields(keysAndValues...)...)
}

// convertToZapFields converts key-value pairs to zap fields.
func convertToZapFields(keysAndValues ...interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}
	return fields
}
