package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/docuflow/docuflow/internal/application/port"
	"github.com/docuflow/docuflow/internal/domain/entity"
	"go.uber.org/zap"
)

// WorkflowTaskRepository implements port.WorkflowTaskRepository
type WorkflowTaskRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewWorkflowTaskRepository creates a new task repository
func NewWorkflowTaskRepository(db *sql.DB, logger *zap.Logger) port.WorkflowTaskRepository {
	return &WorkflowTaskRepository{
		db:     db,
		logger: logger,
	}
}

const taskColumns = `id, instance_id, step_id, status, assignee_role_id, assignee_id,
	comments, due_date, metadata, created_at, updated_at`

// Create inserts a new workflow task
func (r *WorkflowTaskRepository) Create(ctx context.Context, task *entity.WorkflowTask) error {
	metadata, err := marshalMap(task.Metadata)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO workflow_tasks (
			instance_id, step_id, status, assignee_role_id, assignee_id,
			comments, due_date, metadata
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		task.InstanceID,
		task.StepID,
		string(task.Status),
		nullInt64(task.AssigneeRoleID),
		nullInt64(task.AssigneeID),
		task.Comments,
		task.DueDate,
		metadata,
	)
	if err != nil {
		r.logger.Error("Failed to create workflow task", zap.Error(err))
		return fmt.Errorf("failed to create workflow task: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	task.ID = id
	return nil
}

// GetByID retrieves a workflow task by ID
func (r *WorkflowTaskRepository) GetByID(ctx context.Context, id int64) (*entity.WorkflowTask, error) {
	query := `SELECT ` + taskColumns + ` FROM workflow_tasks WHERE id = ?`

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, id)
	if err != nil {
		r.logger.Error("Failed to get workflow task", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get workflow task: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	return scanTask(rows)
}

// GetByInstanceID retrieves all tasks of an instance, oldest first
func (r *WorkflowTaskRepository) GetByInstanceID(ctx context.Context, instanceID int64) ([]*entity.WorkflowTask, error) {
	query := `SELECT ` + taskColumns + ` FROM workflow_tasks WHERE instance_id = ? ORDER BY id`

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, instanceID)
	if err != nil {
		r.logger.Error("Failed to get tasks by instance",
			zap.Int64("instance_id", instanceID), zap.Error(err))
		return nil, fmt.Errorf("failed to get tasks by instance: %w", err)
	}
	defer rows.Close()

	return collectTasks(rows)
}

// Update persists the task's mutable fields
func (r *WorkflowTaskRepository) Update(ctx context.Context, task *entity.WorkflowTask) error {
	metadata, err := marshalMap(task.Metadata)
	if err != nil {
		return err
	}

	query := `
		UPDATE workflow_tasks
		SET status = ?, assignee_role_id = ?, assignee_id = ?, comments = ?,
			due_date = ?, metadata = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	_, err = getExecutor(ctx, r.db).ExecContext(ctx, query,
		string(task.Status),
		nullInt64(task.AssigneeRoleID),
		nullInt64(task.AssigneeID),
		task.Comments,
		task.DueDate,
		metadata,
		task.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update workflow task", zap.Int64("id", task.ID), zap.Error(err))
		return fmt.Errorf("failed to update workflow task: %w", err)
	}
	return nil
}

// Find returns tasks matching the conjunctive filter
func (r *WorkflowTaskRepository) Find(ctx context.Context, filter port.TaskFilter) ([]*entity.WorkflowTask, error) {
	conditions := []string{"1 = 1"}
	var args []interface{}

	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			placeholders[i] = "?"
			args = append(args, string(s))
		}
		conditions = append(conditions, "status IN ("+strings.Join(placeholders, ", ")+")")
	}
	if filter.AssigneeID != nil {
		conditions = append(conditions, "assignee_id = ?")
		args = append(args, *filter.AssigneeID)
	}
	if filter.AssigneeRoleID != nil {
		conditions = append(conditions, "assignee_role_id = ?")
		args = append(args, *filter.AssigneeRoleID)
	}
	if filter.StepID != nil {
		conditions = append(conditions, "step_id = ?")
		args = append(args, *filter.StepID)
	}
	if filter.InstanceID != nil {
		conditions = append(conditions, "instance_id = ?")
		args = append(args, *filter.InstanceID)
	}
	if filter.DueBefore != nil {
		conditions = append(conditions, "due_date IS NOT NULL AND due_date <= ?")
		args = append(args, *filter.DueBefore)
	}
	if filter.DueAfter != nil {
		conditions = append(conditions, "due_date IS NOT NULL AND due_date >= ?")
		args = append(args, *filter.DueAfter)
	}

	query := `SELECT ` + taskColumns + `
		FROM workflow_tasks
		WHERE ` + strings.Join(conditions, " AND ") + `
		ORDER BY id`

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to find workflow tasks", zap.Error(err))
		return nil, fmt.Errorf("failed to find workflow tasks: %w", err)
	}
	defer rows.Close()

	return collectTasks(rows)
}

func collectTasks(rows *sql.Rows) ([]*entity.WorkflowTask, error) {
	var tasks []*entity.WorkflowTask
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

func scanTask(rows *sql.Rows) (*entity.WorkflowTask, error) {
	var task entity.WorkflowTask
	var status string
	var assigneeRoleID, assigneeID sql.NullInt64
	var comments, metadata sql.NullString
	var dueDate sql.NullTime

	err := rows.Scan(
		&task.ID,
		&task.InstanceID,
		&task.StepID,
		&status,
		&assigneeRoleID,
		&assigneeID,
		&comments,
		&dueDate,
		&metadata,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan workflow task: %w", err)
	}

	task.Status = entity.TaskStatus(status)
	task.AssigneeRoleID = int64Ptr(assigneeRoleID)
	task.AssigneeID = int64Ptr(assigneeID)
	task.Comments = comments.String
	if dueDate.Valid {
		task.DueDate = &dueDate.Time
	}
	if task.Metadata, err = unmarshalMap(metadata); err != nil {
		return nil, err
	}
	return &task, nil
}

// Verify interface compliance
var _ port.WorkflowTaskRepository = (*WorkflowTaskRepository)(nil)
