package service

import (
	"context"
	"fmt"
	"time"

	"github.com/docuflow/docuflow/internal/apperr"
	"github.com/docuflow/docuflow/internal/application/port"
	"github.com/docuflow/docuflow/internal/domain/entity"
	"github.com/docuflow/docuflow/internal/domain/event"
)

// CreateTaskInput carries the inputs for creating a workflow task.
type CreateTaskInput struct {
	InstanceID     int64
	StepID         int64
	AssigneeRoleID *int64
	AssigneeID     *int64
	DueDate        *time.Time
	Metadata       map[string]interface{}
}

// CompleteTaskOptions carries the optional inputs for completing the
// current task of an instance. ExpectedTaskID lets callers that address
// a specific task assert it is still the instance's current one; a
// mismatch rejects the request before anything is written.
type CompleteTaskOptions struct {
	Comment        string
	Metadata       map[string]interface{}
	ExpectedTaskID *int64
}

// TaskService manages the human-task lifecycle bound to workflow
// instances. A freshly created task always becomes the instance's
// current gating task; the pointer is cleared when that task completes
// or is cancelled.
type TaskService interface {
	CreateTask(ctx context.Context, input CreateTaskInput, user *entity.User) (*entity.WorkflowTask, error)
	AssignTask(ctx context.Context, taskID, assigneeID int64, user *entity.User) (*entity.WorkflowTask, error)
	CompleteCurrentTask(ctx context.Context, instanceID int64, user *entity.User, opts CompleteTaskOptions) (*entity.WorkflowTask, error)
	CancelTask(ctx context.Context, taskID int64, user *entity.User, reason string) (*entity.WorkflowTask, error)
	GetTask(ctx context.Context, taskID int64) (*entity.WorkflowTask, error)
	FindTasks(ctx context.Context, filter port.TaskFilter) ([]*entity.WorkflowTask, error)
}

type taskServiceImpl struct {
	taskRepo       port.WorkflowTaskRepository
	instanceRepo   port.WorkflowInstanceRepository
	definitionRepo port.WorkflowDefinitionRepository
	userRepo       port.UserRepository
	validator      *ValidationService
	txManager      port.TransactionManager
	events         port.EventSink
	logger         Logger
}

// NewTaskService creates a new TaskService
func NewTaskService(
	taskRepo port.WorkflowTaskRepository,
	instanceRepo port.WorkflowInstanceRepository,
	definitionRepo port.WorkflowDefinitionRepository,
	userRepo port.UserRepository,
	validator *ValidationService,
	txManager port.TransactionManager,
	events port.EventSink,
	logger Logger,
) TaskService {
	return &taskServiceImpl{
		taskRepo:       taskRepo,
		instanceRepo:   instanceRepo,
		definitionRepo: definitionRepo,
		userRepo:       userRepo,
		validator:      validator,
		txManager:      txManager,
		events:         events,
		logger:         logger,
	}
}

// CreateTask inserts a pending task and makes it the instance's current
// gating task. There is no support for multiple concurrent open tasks
// per instance.
func (s *taskServiceImpl) CreateTask(ctx context.Context, input CreateTaskInput, user *entity.User) (*entity.WorkflowTask, error) {
	instance, err := s.instanceRepo.GetByID(ctx, input.InstanceID)
	if err != nil {
		return nil, fmt.Errorf("get instance: %w", err)
	}
	if instance == nil {
		return nil, apperr.NotFound("workflow instance %d not found", input.InstanceID)
	}

	step, err := s.definitionRepo.GetStepByID(ctx, input.StepID)
	if err != nil {
		return nil, fmt.Errorf("get step: %w", err)
	}
	if step == nil {
		return nil, apperr.NotFound("workflow step %d not found", input.StepID)
	}

	if input.AssigneeRoleID != nil {
		role, err := s.userRepo.GetRoleByID(ctx, *input.AssigneeRoleID)
		if err != nil {
			return nil, fmt.Errorf("get role: %w", err)
		}
		if role == nil {
			return nil, apperr.NotFound("role %d not found", *input.AssigneeRoleID)
		}
	}

	task := &entity.WorkflowTask{
		InstanceID:     instance.ID,
		StepID:         step.ID,
		Status:         entity.TaskStatusPending,
		AssigneeRoleID: input.AssigneeRoleID,
		AssigneeID:     input.AssigneeID,
		DueDate:        input.DueDate,
		Metadata:       input.Metadata,
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.taskRepo.Create(txCtx, task); err != nil {
			return fmt.Errorf("create task: %w", err)
		}
		instance.CurrentTaskID = &task.ID
		if err := s.instanceRepo.UpdateCAS(txCtx, instance); err != nil {
			return fmt.Errorf("set current task: %w", err)
		}
		return nil
	})
	if err != nil {
		s.events.Publish(ctx, event.NewError(instance.ID, user.ID, err))
		return nil, err
	}

	s.logger.Info("Task created",
		"task_id", task.ID,
		"instance_id", instance.ID,
		"step_id", step.ID)

	return task, nil
}

// AssignTask moves a pending task to in_progress, binding it to the
// assignee. When the task carries an assignee role, the target user
// must hold it.
func (s *taskServiceImpl) AssignTask(ctx context.Context, taskID, assigneeID int64, user *entity.User) (*entity.WorkflowTask, error) {
	task, err := s.taskRepo.GetByID(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	if task == nil {
		return nil, apperr.NotFound("workflow task %d not found", taskID)
	}
	if task.Status != entity.TaskStatusPending {
		return nil, apperr.BadRequest("only pending tasks can be assigned")
	}

	if task.AssigneeRoleID != nil {
		assignee, err := s.userRepo.GetByID(ctx, assigneeID)
		if err != nil {
			return nil, fmt.Errorf("get assignee: %w", err)
		}
		if assignee == nil {
			return nil, apperr.NotFound("user %d not found", assigneeID)
		}
		if !s.validator.RoleSatisfied(assignee, *task.AssigneeRoleID) {
			return nil, apperr.BadRequest("assignee does not hold the task's required role")
		}
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		task.Status = entity.TaskStatusInProgress
		task.AssigneeID = &assigneeID
		task.MergeMetadata(map[string]interface{}{
			"assignedAt": time.Now().UTC().Format(time.RFC3339),
			"assignedBy": user.ID,
		})
		if err := s.taskRepo.Update(txCtx, task); err != nil {
			return fmt.Errorf("update task: %w", err)
		}
		return nil
	})
	if err != nil {
		s.events.Publish(ctx, event.NewError(task.InstanceID, user.ID, err))
		return nil, err
	}

	s.logger.Info("Task assigned",
		"task_id", task.ID,
		"assignee_id", assigneeID,
		"assigned_by", user.ID)

	s.events.Publish(ctx, event.New(event.TypeTaskAssigned, task.InstanceID, user.ID, map[string]interface{}{
		"taskId":     task.ID,
		"assigneeId": assigneeID,
	}))

	return task, nil
}

// CompleteCurrentTask completes the task currently gating the instance
// and clears the instance's current-task pointer. The operation is
// instance-addressed: callers holding only a task id resolve the task
// first.
func (s *taskServiceImpl) CompleteCurrentTask(
	ctx context.Context,
	instanceID int64,
	user *entity.User,
	opts CompleteTaskOptions,
) (*entity.WorkflowTask, error) {
	instance, err := s.instanceRepo.GetByID(ctx, instanceID)
	if err != nil {
		return nil, fmt.Errorf("get instance: %w", err)
	}
	if instance == nil {
		return nil, apperr.NotFound("workflow instance %d not found", instanceID)
	}
	if instance.CurrentTaskID == nil {
		return nil, apperr.NotFound("workflow instance %d has no current task", instanceID)
	}

	if opts.ExpectedTaskID != nil && *opts.ExpectedTaskID != *instance.CurrentTaskID {
		return nil, apperr.BadRequest("task %d is not the instance's current task", *opts.ExpectedTaskID)
	}

	task, err := s.taskRepo.GetByID(ctx, *instance.CurrentTaskID)
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	if task == nil {
		return nil, apperr.NotFound("workflow task %d not found", *instance.CurrentTaskID)
	}

	if result := s.validator.ValidateTaskPermissions(task, user); !result.IsValid() {
		return nil, apperr.BadRequest("%s", result.Message())
	}
	if !task.Status.IsOpen() {
		return nil, apperr.BadRequest("task %d is not open", task.ID)
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		task.Status = entity.TaskStatusCompleted
		task.Comments = opts.Comment
		task.MergeMetadata(opts.Metadata)
		task.MergeMetadata(map[string]interface{}{
			"completedAt": time.Now().UTC().Format(time.RFC3339),
			"completedBy": user.ID,
		})
		if err := s.taskRepo.Update(txCtx, task); err != nil {
			return fmt.Errorf("update task: %w", err)
		}

		instance.CurrentTaskID = nil
		if err := s.instanceRepo.UpdateCAS(txCtx, instance); err != nil {
			return fmt.Errorf("clear current task: %w", err)
		}
		return nil
	})
	if err != nil {
		s.events.Publish(ctx, event.NewError(instance.ID, user.ID, err))
		return nil, err
	}

	s.logger.Info("Task completed",
		"task_id", task.ID,
		"instance_id", instance.ID,
		"completed_by", user.ID)

	return task, nil
}

// CancelTask cancels an open task. When the task is the instance's
// current gating task, the pointer is cleared; other tasks leave the
// pointer untouched.
func (s *taskServiceImpl) CancelTask(ctx context.Context, taskID int64, user *entity.User, reason string) (*entity.WorkflowTask, error) {
	task, err := s.taskRepo.GetByID(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	if task == nil {
		return nil, apperr.NotFound("workflow task %d not found", taskID)
	}

	if result := s.validator.ValidateTaskPermissions(task, user); !result.IsValid() {
		return nil, apperr.BadRequest("%s", result.Message())
	}
	if !task.Status.IsOpen() {
		return nil, apperr.BadRequest("only pending or in-progress tasks can be cancelled")
	}

	instance, err := s.instanceRepo.GetByID(ctx, task.InstanceID)
	if err != nil {
		return nil, fmt.Errorf("get instance: %w", err)
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		task.Status = entity.TaskStatusCancelled
		task.MergeMetadata(map[string]interface{}{
			"cancellationReason": reason,
			"cancelledBy":        user.ID,
			"cancelledAt":        time.Now().UTC().Format(time.RFC3339),
		})
		if err := s.taskRepo.Update(txCtx, task); err != nil {
			return fmt.Errorf("update task: %w", err)
		}

		if instance != nil && instance.CurrentTaskID != nil && *instance.CurrentTaskID == task.ID {
			instance.CurrentTaskID = nil
			if err := s.instanceRepo.UpdateCAS(txCtx, instance); err != nil {
				return fmt.Errorf("clear current task: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		s.events.Publish(ctx, event.NewError(task.InstanceID, user.ID, err))
		return nil, err
	}

	s.logger.Info("Task cancelled",
		"task_id", task.ID,
		"cancelled_by", user.ID)

	return task, nil
}

// GetTask retrieves a task by id.
func (s *taskServiceImpl) GetTask(ctx context.Context, taskID int64) (*entity.WorkflowTask, error) {
	task, err := s.taskRepo.GetByID(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	if task == nil {
		return nil, apperr.NotFound("workflow task %d not found", taskID)
	}
	return task, nil
}

// FindTasks lists tasks matching the conjunctive filter.
func (s *taskServiceImpl) FindTasks(ctx context.Context, filter port.TaskFilter) ([]*entity.WorkflowTask, error) {
	tasks, err := s.taskRepo.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("find tasks: %w", err)
	}
	return tasks, nil
}
