package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/docuflow/docuflow/internal/apperr"
	"github.com/docuflow/docuflow/internal/application/port"
	"github.com/docuflow/docuflow/internal/domain/entity"
	"go.uber.org/zap"
)

// WorkflowInstanceRepository implements port.WorkflowInstanceRepository
type WorkflowInstanceRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewWorkflowInstanceRepository creates a new instance repository
func NewWorkflowInstanceRepository(db *sql.DB, logger *zap.Logger) port.WorkflowInstanceRepository {
	return &WorkflowInstanceRepository{
		db:     db,
		logger: logger,
	}
}

const instanceColumns = `id, definition_id, document_id, current_step_id, current_task_id,
	status, metadata, version, created_at, updated_at`

// Create inserts a new workflow instance
func (r *WorkflowInstanceRepository) Create(ctx context.Context, instance *entity.WorkflowInstance) error {
	metadata, err := marshalMap(instance.Metadata)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO workflow_instances (
			definition_id, document_id, current_step_id, current_task_id,
			status, metadata, version
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		instance.DefinitionID,
		instance.DocumentID,
		instance.CurrentStepID,
		nullInt64(instance.CurrentTaskID),
		string(instance.Status),
		metadata,
		instance.Version,
	)
	if err != nil {
		r.logger.Error("Failed to create workflow instance", zap.Error(err))
		return fmt.Errorf("failed to create workflow instance: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	instance.ID = id
	return nil
}

// GetByID retrieves a workflow instance by ID
func (r *WorkflowInstanceRepository) GetByID(ctx context.Context, id int64) (*entity.WorkflowInstance, error) {
	query := `SELECT ` + instanceColumns + ` FROM workflow_instances WHERE id = ?`

	instance, err := r.scanOne(getExecutor(ctx, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		r.logger.Error("Failed to get workflow instance", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}
	return instance, nil
}

// GetActiveByDocumentID returns the document's active instance, or nil
func (r *WorkflowInstanceRepository) GetActiveByDocumentID(ctx context.Context, documentID int64) (*entity.WorkflowInstance, error) {
	query := `SELECT ` + instanceColumns + `
		FROM workflow_instances
		WHERE document_id = ? AND status = ?
		ORDER BY id DESC
		LIMIT 1`

	instance, err := r.scanOne(getExecutor(ctx, r.db).QueryRowContext(ctx, query,
		documentID, string(entity.InstanceStatusActive)))
	if err != nil {
		r.logger.Error("Failed to get active instance by document",
			zap.Int64("document_id", documentID), zap.Error(err))
		return nil, err
	}
	return instance, nil
}

// UpdateCAS writes the instance iff the stored version still matches,
// then bumps both the row version and the in-memory version. A lost
// race surfaces as a Conflict-kind error.
func (r *WorkflowInstanceRepository) UpdateCAS(ctx context.Context, instance *entity.WorkflowInstance) error {
	metadata, err := marshalMap(instance.Metadata)
	if err != nil {
		return err
	}

	query := `
		UPDATE workflow_instances
		SET current_step_id = ?, current_task_id = ?, status = ?, metadata = ?,
			version = version + 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND version = ?
	`

	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		instance.CurrentStepID,
		nullInt64(instance.CurrentTaskID),
		string(instance.Status),
		metadata,
		instance.ID,
		instance.Version,
	)
	if err != nil {
		r.logger.Error("Failed to update workflow instance", zap.Int64("id", instance.ID), zap.Error(err))
		return fmt.Errorf("failed to update workflow instance: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return apperr.Conflict("workflow instance %d was modified concurrently", instance.ID)
	}

	instance.Version++
	return nil
}

// ListActive returns active instances matching the filter
func (r *WorkflowInstanceRepository) ListActive(ctx context.Context, filter port.InstanceFilter) ([]*entity.WorkflowInstance, error) {
	conditions := []string{"status = ?"}
	args := []interface{}{string(entity.InstanceStatusActive)}

	if filter.DocumentID != nil {
		conditions = append(conditions, "document_id = ?")
		args = append(args, *filter.DocumentID)
	}
	if filter.DefinitionID != nil {
		conditions = append(conditions, "definition_id = ?")
		args = append(args, *filter.DefinitionID)
	}
	if filter.CurrentStepID != nil {
		conditions = append(conditions, "current_step_id = ?")
		args = append(args, *filter.CurrentStepID)
	}

	query := `SELECT ` + instanceColumns + `
		FROM workflow_instances
		WHERE ` + strings.Join(conditions, " AND ") + `
		ORDER BY id`

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list active instances", zap.Error(err))
		return nil, fmt.Errorf("failed to list active instances: %w", err)
	}
	defer rows.Close()

	var instances []*entity.WorkflowInstance
	for rows.Next() {
		instance, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		instances = append(instances, instance)
	}
	return instances, rows.Err()
}

// CountActiveByDefinitionID counts active instances under a definition
func (r *WorkflowInstanceRepository) CountActiveByDefinitionID(ctx context.Context, definitionID int64) (int64, error) {
	query := `
		SELECT COUNT(*) FROM workflow_instances
		WHERE definition_id = ? AND status = ?
	`

	var count int64
	err := getExecutor(ctx, r.db).QueryRowContext(ctx, query,
		definitionID, string(entity.InstanceStatusActive)).Scan(&count)
	if err != nil {
		r.logger.Error("Failed to count active instances",
			zap.Int64("definition_id", definitionID), zap.Error(err))
		return 0, fmt.Errorf("failed to count active instances: %w", err)
	}
	return count, nil
}

func (r *WorkflowInstanceRepository) scanOne(row *sql.Row) (*entity.WorkflowInstance, error) {
	var instance entity.WorkflowInstance
	var currentTaskID sql.NullInt64
	var status string
	var metadata sql.NullString

	err := row.Scan(
		&instance.ID,
		&instance.DefinitionID,
		&instance.DocumentID,
		&instance.CurrentStepID,
		&currentTaskID,
		&status,
		&metadata,
		&instance.Version,
		&instance.CreatedAt,
		&instance.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get workflow instance: %w", err)
	}

	instance.CurrentTaskID = int64Ptr(currentTaskID)
	instance.Status = entity.InstanceStatus(status)
	if instance.Metadata, err = unmarshalMap(metadata); err != nil {
		return nil, err
	}
	return &instance, nil
}

func (r *WorkflowInstanceRepository) scanRow(rows *sql.Rows) (*entity.WorkflowInstance, error) {
	var instance entity.WorkflowInstance
	var currentTaskID sql.NullInt64
	var status string
	var metadata sql.NullString

	err := rows.Scan(
		&instance.ID,
		&instance.DefinitionID,
		&instance.DocumentID,
		&instance.CurrentStepID,
		&currentTaskID,
		&status,
		&metadata,
		&instance.Version,
		&instance.CreatedAt,
		&instance.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan workflow instance: %w", err)
	}

	instance.CurrentTaskID = int64Ptr(currentTaskID)
	instance.Status = entity.InstanceStatus(status)
	if instance.Metadata, err = unmarshalMap(metadata); err != nil {
		return nil, err
	}
	return &instance, nil
}

// Verify interface compliance
var _ port.WorkflowInstanceRepository = (*WorkflowInstanceRepository)(nil)
