package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/docuflow/docuflow/internal/application/port"
	"github.com/docuflow/docuflow/internal/domain/entity"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DueTaskScanner periodically sweeps open tasks whose due date has
// passed and reminds the responsible parties. It is a best-effort
// background job: a failed sweep is logged and retried on the next
// schedule tick.
type DueTaskScanner struct {
	taskRepo port.WorkflowTaskRepository
	userRepo port.UserRepository
	notifier port.Notifier
	logger   *zap.Logger
	schedule string

	mu        sync.Mutex
	cron      *cron.Cron
	isRunning bool
}

// NewDueTaskScanner creates a new due task scanner
func NewDueTaskScanner(
	taskRepo port.WorkflowTaskRepository,
	userRepo port.UserRepository,
	notifier port.Notifier,
	logger *zap.Logger,
	schedule string,
) *DueTaskScanner {
	if schedule == "" {
		schedule = "@every 15m"
	}
	return &DueTaskScanner{
		taskRepo: taskRepo,
		userRepo: userRepo,
		notifier: notifier,
		logger:   logger,
		schedule: schedule,
	}
}

// Start begins the scan schedule
func (s *DueTaskScanner) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("due task scanner is already running")
	}

	s.cron = cron.New()
	_, err := s.cron.AddFunc(s.schedule, func() {
		if err := s.Scan(ctx); err != nil {
			s.logger.Error("Due task scan failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("invalid scan schedule %q: %w", s.schedule, err)
	}

	s.cron.Start()
	s.isRunning = true
	s.logger.Info("Due task scanner started", zap.String("schedule", s.schedule))
	return nil
}

// Stop halts the scan schedule and waits for a running sweep to finish
func (s *DueTaskScanner) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	<-s.cron.Stop().Done()
	s.isRunning = false
	s.logger.Info("Due task scanner stopped")
}

// Scan performs one sweep over open tasks past their due date.
func (s *DueTaskScanner) Scan(ctx context.Context) error {
	now := time.Now()
	tasks, err := s.taskRepo.Find(ctx, port.TaskFilter{
		Statuses:  []entity.TaskStatus{entity.TaskStatusPending, entity.TaskStatusInProgress},
		DueBefore: &now,
	})
	if err != nil {
		return fmt.Errorf("find overdue tasks: %w", err)
	}
	if len(tasks) == 0 {
		return nil
	}

	s.logger.Info("Overdue tasks found", zap.Int("count", len(tasks)))

	for _, task := range tasks {
		for _, recipientID := range s.recipients(ctx, task) {
			n := port.Notification{
				Channel:     port.ChannelInApp,
				RecipientID: recipientID,
				Subject:     "Task overdue",
				Message:     fmt.Sprintf("Task %d was due %s.", task.ID, task.DueDate.Format(time.RFC3339)),
				Data: map[string]interface{}{
					"taskId":     task.ID,
					"instanceId": task.InstanceID,
					"dueDate":    task.DueDate.Format(time.RFC3339),
				},
			}
			if err := s.notifier.Send(ctx, n); err != nil {
				s.logger.Warn("Overdue reminder failed",
					zap.Int64("task_id", task.ID),
					zap.Int64("recipient_id", recipientID),
					zap.Error(err))
			}
		}
	}
	return nil
}

// recipients resolves who gets the reminder: the assignee when bound,
// otherwise every member of the assignee role.
func (s *DueTaskScanner) recipients(ctx context.Context, task *entity.WorkflowTask) []int64 {
	if task.AssigneeID != nil {
		return []int64{*task.AssigneeID}
	}
	if task.AssigneeRoleID != nil {
		users, err := s.userRepo.ListByRoleID(ctx, *task.AssigneeRoleID)
		if err != nil {
			s.logger.Warn("Failed to resolve role members for reminder",
				zap.Int64("task_id", task.ID),
				zap.Int64("role_id", *task.AssigneeRoleID),
				zap.Error(err))
			return nil
		}
		ids := make([]int64, 0, len(users))
		for _, u := range users {
			ids = append(ids, u.ID)
		}
		return ids
	}
	return nil
}
