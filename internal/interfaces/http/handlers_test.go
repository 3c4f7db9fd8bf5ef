package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docuflow/docuflow/internal/application/port"
	"github.com/docuflow/docuflow/internal/application/service"
	"github.com/docuflow/docuflow/internal/domain/entity"
)

type stubTaskService struct {
	findFunc     func(ctx context.Context, filter port.TaskFilter) ([]*entity.WorkflowTask, error)
	getFunc      func(ctx context.Context, taskID int64) (*entity.WorkflowTask, error)
	completeFunc func(ctx context.Context, instanceID int64, user *entity.User, opts service.CompleteTaskOptions) (*entity.WorkflowTask, error)
}

func (s *stubTaskService) CreateTask(context.Context, service.CreateTaskInput, *entity.User) (*entity.WorkflowTask, error) {
	return nil, nil
}

func (s *stubTaskService) AssignTask(context.Context, int64, int64, *entity.User) (*entity.WorkflowTask, error) {
	return nil, nil
}

func (s *stubTaskService) CompleteCurrentTask(ctx context.Context, instanceID int64, user *entity.User, opts service.CompleteTaskOptions) (*entity.WorkflowTask, error) {
	if s.completeFunc != nil {
		return s.completeFunc(ctx, instanceID, user, opts)
	}
	return nil, nil
}

func (s *stubTaskService) CancelTask(context.Context, int64, *entity.User, string) (*entity.WorkflowTask, error) {
	return nil, nil
}

func (s *stubTaskService) GetTask(ctx context.Context, taskID int64) (*entity.WorkflowTask, error) {
	if s.getFunc != nil {
		return s.getFunc(ctx, taskID)
	}
	return nil, nil
}

func (s *stubTaskService) FindTasks(ctx context.Context, filter port.TaskFilter) ([]*entity.WorkflowTask, error) {
	if s.findFunc != nil {
		return s.findFunc(ctx, filter)
	}
	return nil, nil
}

type stubUserRepo struct{}

func (stubUserRepo) GetByID(_ context.Context, id int64) (*entity.User, error) {
	return &entity.User{ID: id, Role: &entity.Role{ID: 7, Name: "reviewer"}}, nil
}

func (stubUserRepo) ListByRoleID(context.Context, int64) ([]*entity.User, error) { return nil, nil }

func (stubUserRepo) GetRoleByID(_ context.Context, roleID int64) (*entity.Role, error) {
	return &entity.Role{ID: roleID}, nil
}

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

func newTaskRouter(taskService service.TaskService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandlers(nil, taskService, nil, stubUserRepo{}, nopLogger{})

	r := gin.New()
	r.GET("/api/workflow-tasks", h.FindTasks)
	r.PATCH("/api/workflow-tasks/:id/complete", h.CompleteTask)
	return r
}

func TestFindTasksDueDateBounds(t *testing.T) {
	var captured port.TaskFilter
	tasks := &stubTaskService{findFunc: func(_ context.Context, filter port.TaskFilter) ([]*entity.WorkflowTask, error) {
		captured = filter
		return nil, nil
	}}
	r := newTaskRouter(tasks)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet,
		"/api/workflow-tasks?due_before=2026-09-01T00:00:00Z&due_after=2026-08-01T00:00:00Z&status=pending", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, captured.DueBefore)
	require.NotNil(t, captured.DueAfter)
	assert.Equal(t, time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC), captured.DueBefore.UTC())
	assert.Equal(t, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), captured.DueAfter.UTC())
	assert.Equal(t, []entity.TaskStatus{entity.TaskStatusPending}, captured.Statuses)
}

func TestFindTasksRejectsMalformedDueBound(t *testing.T) {
	var called bool
	tasks := &stubTaskService{findFunc: func(_ context.Context, _ port.TaskFilter) ([]*entity.WorkflowTask, error) {
		called = true
		return nil, nil
	}}
	r := newTaskRouter(tasks)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/workflow-tasks?due_before=tomorrow", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, called)
}

func TestCompleteTaskForwardsExpectedTaskID(t *testing.T) {
	var gotOpts service.CompleteTaskOptions
	var gotInstanceID int64
	tasks := &stubTaskService{
		getFunc: func(_ context.Context, taskID int64) (*entity.WorkflowTask, error) {
			return &entity.WorkflowTask{ID: taskID, InstanceID: 5, Status: entity.TaskStatusInProgress}, nil
		},
		completeFunc: func(_ context.Context, instanceID int64, _ *entity.User, opts service.CompleteTaskOptions) (*entity.WorkflowTask, error) {
			gotInstanceID = instanceID
			gotOpts = opts
			return &entity.WorkflowTask{ID: 77, InstanceID: 5, Status: entity.TaskStatusCompleted}, nil
		},
	}
	r := newTaskRouter(tasks)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPatch, "/api/workflow-tasks/77/complete",
		strings.NewReader(`{"comment":"done"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "42")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(5), gotInstanceID)
	assert.Equal(t, "done", gotOpts.Comment)
	require.NotNil(t, gotOpts.ExpectedTaskID)
	assert.Equal(t, int64(77), *gotOpts.ExpectedTaskID)
}
