package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/docuflow/docuflow/internal/apperr"
	"github.com/docuflow/docuflow/internal/application/port"
	"github.com/docuflow/docuflow/internal/application/service"
	"github.com/docuflow/docuflow/internal/domain/entity"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	workflowService   service.WorkflowService
	taskService       service.TaskService
	definitionService service.DefinitionService
	userRepo          port.UserRepository
	logger            Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	workflowService service.WorkflowService,
	taskService service.TaskService,
	definitionService service.DefinitionService,
	userRepo port.UserRepository,
	logger Logger,
) *Handlers {
	return &Handlers{
		workflowService:   workflowService,
		taskService:       taskService,
		definitionService: definitionService,
		userRepo:          userRepo,
		logger:            logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// StartWorkflowRequest represents the body of POST /api/workflows/start
type StartWorkflowRequest struct {
	DocumentID   int64                  `json:"document_id" binding:"required"`
	DefinitionID int64                  `json:"definition_id" binding:"required"`
	Metadata     map[string]interface{} `json:"metadata"`
}

// TransitionRequest represents the body of POST /api/workflow-instances/:id/transition
type TransitionRequest struct {
	TransitionID int64                  `json:"transition_id" binding:"required"`
	Comment      string                 `json:"comment"`
	Metadata     map[string]interface{} `json:"metadata"`
}

// CancelRequest represents the body of cancel endpoints
type CancelRequest struct {
	Reason string `json:"reason"`
}

// CreateDefinitionRequest represents the body of POST /api/workflow-definitions.
// Transition endpoints reference steps by index into the steps array.
type CreateDefinitionRequest struct {
	Code        string                 `json:"code" binding:"required"`
	Name        string                 `json:"name" binding:"required"`
	Description string                 `json:"description"`
	IsActive    *bool                  `json:"is_active"`
	Steps       []DefinitionStep       `json:"steps"`
	Transitions []DefinitionTransition `json:"transitions"`
}

// DefinitionStep is a step in a definition create request
type DefinitionStep struct {
	Name           string                 `json:"name" binding:"required"`
	StatusID       *int64                 `json:"status_id"`
	AssigneeRoleID *int64                 `json:"assignee_role_id"`
	Config         map[string]interface{} `json:"config"`
}

// DefinitionTransition is an edge in a definition create request
type DefinitionTransition struct {
	Name            string                 `json:"name"`
	FromStep        *int64                 `json:"from_step"`
	ToStep          int64                  `json:"to_step"`
	RequiredRoleID  *int64                 `json:"required_role_id"`
	RequiresComment bool                   `json:"requires_comment"`
	Conditions      map[string]interface{} `json:"conditions"`
	IsActive        *bool                  `json:"is_active"`
}

// UpdateDefinitionRequest represents the body of PUT /api/workflow-definitions/:id
type UpdateDefinitionRequest struct {
	Code        string `json:"code" binding:"required"`
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	IsActive    bool   `json:"is_active"`
}

// CreateTaskRequest represents the body of POST /api/workflow-tasks
type CreateTaskRequest struct {
	InstanceID     int64                  `json:"instance_id" binding:"required"`
	StepID         int64                  `json:"step_id" binding:"required"`
	AssigneeRoleID *int64                 `json:"assignee_role_id"`
	AssigneeID     *int64                 `json:"assignee_id"`
	DueDate        *time.Time             `json:"due_date"`
	Metadata       map[string]interface{} `json:"metadata"`
}

// AssignTaskRequest represents the body of PATCH /api/workflow-tasks/:id/assign
type AssignTaskRequest struct {
	AssigneeID int64 `json:"assignee_id" binding:"required"`
}

// CompleteTaskRequest represents the body of PATCH /api/workflow-tasks/:id/complete
type CompleteTaskRequest struct {
	Comment  string                 `json:"comment"`
	Metadata map[string]interface{} `json:"metadata"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   "1.0.0",
		},
	})
}

// StartWorkflow handles POST /api/workflows/start
func (h *Handlers) StartWorkflow(c *gin.Context) {
	user, ok := h.actingUser(c)
	if !ok {
		return
	}

	var req StartWorkflowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body")
		return
	}

	graph, err := h.workflowService.StartWorkflow(c.Request.Context(), req.DocumentID, req.DefinitionID, user, req.Metadata)
	if err != nil {
		h.serviceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: graph})
}

// GetInstance handles GET /api/workflow-instances/:id
func (h *Handlers) GetInstance(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	graph, err := h.workflowService.GetWorkflowInstance(c.Request.Context(), id)
	if err != nil {
		h.serviceError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: graph})
}

// ListActiveInstances handles GET /api/workflow-instances
func (h *Handlers) ListActiveInstances(c *gin.Context) {
	var filter port.InstanceFilter
	if v, ok := h.queryID(c, "document_id"); ok {
		filter.DocumentID = v
	}
	if v, ok := h.queryID(c, "definition_id"); ok {
		filter.DefinitionID = v
	}
	if v, ok := h.queryID(c, "current_step_id"); ok {
		filter.CurrentStepID = v
	}

	instances, err := h.workflowService.GetActiveWorkflowInstances(c.Request.Context(), filter)
	if err != nil {
		h.serviceError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: instances})
}

// TransitionWorkflow handles POST /api/workflow-instances/:id/transition
func (h *Handlers) TransitionWorkflow(c *gin.Context) {
	user, ok := h.actingUser(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	var req TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body")
		return
	}

	graph, err := h.workflowService.TransitionWorkflow(c.Request.Context(), id, req.TransitionID, user, service.TransitionOptions{
		Comment:  req.Comment,
		Metadata: req.Metadata,
	})
	if err != nil {
		h.serviceError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: graph})
}

// CancelWorkflow handles POST /api/workflow-instances/:id/cancel
func (h *Handlers) CancelWorkflow(c *gin.Context) {
	user, ok := h.actingUser(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	var req CancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body")
		return
	}

	graph, err := h.workflowService.CancelWorkflow(c.Request.Context(), id, user, req.Reason)
	if err != nil {
		h.serviceError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: graph})
}

// CreateDefinition handles POST /api/workflow-definitions
func (h *Handlers) CreateDefinition(c *gin.Context) {
	user, ok := h.actingUser(c)
	if !ok {
		return
	}

	var req CreateDefinitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body")
		return
	}

	def := &entity.WorkflowDefinition{
		Code:        req.Code,
		Name:        req.Name,
		Description: req.Description,
		IsActive:    req.IsActive == nil || *req.IsActive,
	}
	for _, s := range req.Steps {
		def.Steps = append(def.Steps, &entity.WorkflowStep{
			Name:           s.Name,
			StatusID:       s.StatusID,
			AssigneeRoleID: s.AssigneeRoleID,
			Config:         s.Config,
		})
	}
	for _, t := range req.Transitions {
		def.Transitions = append(def.Transitions, &entity.WorkflowTransition{
			Name:            t.Name,
			FromStepID:      t.FromStep,
			ToStepID:        t.ToStep,
			RequiredRoleID:  t.RequiredRoleID,
			RequiresComment: t.RequiresComment,
			Conditions:      t.Conditions,
			IsActive:        t.IsActive == nil || *t.IsActive,
		})
	}

	created, err := h.definitionService.CreateDefinition(c.Request.Context(), def, user)
	if err != nil {
		h.serviceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: created})
}

// ListDefinitions handles GET /api/workflow-definitions
func (h *Handlers) ListDefinitions(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	defs, err := h.definitionService.ListDefinitions(c.Request.Context(), limit, offset)
	if err != nil {
		h.serviceError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: defs})
}

// GetDefinition handles GET /api/workflow-definitions/:id
func (h *Handlers) GetDefinition(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	def, err := h.definitionService.GetDefinition(c.Request.Context(), id)
	if err != nil {
		h.serviceError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: def})
}

// UpdateDefinition handles PUT /api/workflow-definitions/:id
func (h *Handlers) UpdateDefinition(c *gin.Context) {
	user, ok := h.actingUser(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	var req UpdateDefinitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body")
		return
	}

	def := &entity.WorkflowDefinition{
		ID:          id,
		Code:        req.Code,
		Name:        req.Name,
		Description: req.Description,
		IsActive:    req.IsActive,
	}

	updated, err := h.definitionService.UpdateDefinition(c.Request.Context(), def, user)
	if err != nil {
		h.serviceError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: updated})
}

// DeleteDefinition handles DELETE /api/workflow-definitions/:id
func (h *Handlers) DeleteDefinition(c *gin.Context) {
	user, ok := h.actingUser(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	if err := h.definitionService.DeleteDefinition(c.Request.Context(), id, user); err != nil {
		h.serviceError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true})
}

// CreateTask handles POST /api/workflow-tasks
func (h *Handlers) CreateTask(c *gin.Context) {
	user, ok := h.actingUser(c)
	if !ok {
		return
	}

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body")
		return
	}

	task, err := h.taskService.CreateTask(c.Request.Context(), service.CreateTaskInput{
		InstanceID:     req.InstanceID,
		StepID:         req.StepID,
		AssigneeRoleID: req.AssigneeRoleID,
		AssigneeID:     req.AssigneeID,
		DueDate:        req.DueDate,
		Metadata:       req.Metadata,
	}, user)
	if err != nil {
		h.serviceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: task})
}

// FindTasks handles GET /api/workflow-tasks
func (h *Handlers) FindTasks(c *gin.Context) {
	var filter port.TaskFilter

	for _, status := range c.QueryArray("status") {
		filter.Statuses = append(filter.Statuses, entity.TaskStatus(status))
	}
	if v, ok := h.queryID(c, "assignee_id"); ok {
		filter.AssigneeID = v
	}
	if v, ok := h.queryID(c, "assignee_role_id"); ok {
		filter.AssigneeRoleID = v
	}
	if v, ok := h.queryID(c, "step_id"); ok {
		filter.StepID = v
	}
	if v, ok := h.queryID(c, "instance_id"); ok {
		filter.InstanceID = v
	}
	v, ok, err := h.queryTime(c, "due_before")
	if err != nil {
		return
	}
	if ok {
		filter.DueBefore = v
	}
	v, ok, err = h.queryTime(c, "due_after")
	if err != nil {
		return
	}
	if ok {
		filter.DueAfter = v
	}

	tasks, err := h.taskService.FindTasks(c.Request.Context(), filter)
	if err != nil {
		h.serviceError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: tasks})
}

// GetTask handles GET /api/workflow-tasks/:id
func (h *Handlers) GetTask(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	task, err := h.taskService.GetTask(c.Request.Context(), id)
	if err != nil {
		h.serviceError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: task})
}

// AssignTask handles PATCH /api/workflow-tasks/:id/assign
func (h *Handlers) AssignTask(c *gin.Context) {
	user, ok := h.actingUser(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	var req AssignTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body")
		return
	}

	task, err := h.taskService.AssignTask(c.Request.Context(), id, req.AssigneeID, user)
	if err != nil {
		h.serviceError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: task})
}

// CompleteTask handles PATCH /api/workflow-tasks/:id/complete. The
// completion operation is instance-addressed in the service, so the
// handler resolves the task to its instance first.
func (h *Handlers) CompleteTask(c *gin.Context) {
	user, ok := h.actingUser(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	var req CompleteTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body")
		return
	}

	task, err := h.taskService.GetTask(c.Request.Context(), id)
	if err != nil {
		h.serviceError(c, err)
		return
	}

	completed, err := h.taskService.CompleteCurrentTask(c.Request.Context(), task.InstanceID, user, service.CompleteTaskOptions{
		Comment:        req.Comment,
		Metadata:       req.Metadata,
		ExpectedTaskID: &id,
	})
	if err != nil {
		h.serviceError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: completed})
}

// CancelTask handles PATCH /api/workflow-tasks/:id/cancel
func (h *Handlers) CancelTask(c *gin.Context) {
	user, ok := h.actingUser(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	var req CancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body")
		return
	}

	task, err := h.taskService.CancelTask(c.Request.Context(), id, user, req.Reason)
	if err != nil {
		h.serviceError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: task})
}

// actingUser resolves the acting principal from the X-User-ID header.
// Authentication proper sits in front of this service; the header is
// trusted here.
func (h *Handlers) actingUser(c *gin.Context) (*entity.User, bool) {
	raw := c.GetHeader("X-User-ID")
	if raw == "" {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "missing X-User-ID header"})
		return nil, false
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid X-User-ID header"})
		return nil, false
	}

	user, err := h.userRepo.GetByID(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("Failed to resolve acting user", "user_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to resolve user"})
		return nil, false
	}
	if user == nil {
		c.JSON(http.StatusNotFound, Response{Success: false, Error: "user not found"})
		return nil, false
	}
	return user, true
}

func (h *Handlers) pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		h.badRequest(c, "invalid id")
		return 0, false
	}
	return id, true
}

func (h *Handlers) queryID(c *gin.Context, name string) (*int64, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, false
	}
	return &id, true
}

// queryTime parses an optional RFC3339 query parameter. A malformed
// value writes the 400 response and returns an error.
func (h *Handlers) queryTime(c *gin.Context, name string) (*time.Time, bool, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, false, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		h.badRequest(c, "invalid "+name+" timestamp, expected RFC3339")
		return nil, false, err
	}
	return &t, true, nil
}

func (h *Handlers) badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, Response{Success: false, Error: msg})
}

// serviceError maps an error kind to its HTTP status
func (h *Handlers) serviceError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch apperr.KindOf(err) {
	case apperr.KindNotFound:
		status = http.StatusNotFound
	case apperr.KindBadRequest:
		status = http.StatusBadRequest
	case apperr.KindConflict:
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed", "path", c.Request.URL.Path, "error", err)
		c.JSON(status, Response{Success: false, Error: "internal server error"})
		return
	}

	c.JSON(status, Response{Success: false, Error: err.Error()})
}
