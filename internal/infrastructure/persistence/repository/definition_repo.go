package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/docuflow/docuflow/internal/application/port"
	"github.com/docuflow/docuflow/internal/domain/entity"
	"go.uber.org/zap"
)

// WorkflowDefinitionRepository implements port.WorkflowDefinitionRepository
type WorkflowDefinitionRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewWorkflowDefinitionRepository creates a new definition repository
func NewWorkflowDefinitionRepository(db *sql.DB, logger *zap.Logger) port.WorkflowDefinitionRepository {
	return &WorkflowDefinitionRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts the definition, its steps, and its transitions. At
// this point transition endpoints reference steps by their position in
// def.Steps; the method rewrites them to the assigned row ids.
func (r *WorkflowDefinitionRepository) Create(ctx context.Context, def *entity.WorkflowDefinition) error {
	ex := getExecutor(ctx, r.db)

	result, err := ex.ExecContext(ctx, `
		INSERT INTO workflow_definitions (code, name, description, is_active)
		VALUES (?, ?, ?, ?)
	`, def.Code, def.Name, def.Description, def.IsActive)
	if err != nil {
		r.logger.Error("Failed to create workflow definition", zap.Error(err))
		return fmt.Errorf("failed to create workflow definition: %w", err)
	}
	defID, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	def.ID = defID

	stepIDs := make([]int64, len(def.Steps))
	for i, step := range def.Steps {
		config, err := marshalMap(step.Config)
		if err != nil {
			return err
		}
		result, err := ex.ExecContext(ctx, `
			INSERT INTO workflow_steps (definition_id, name, status_id, assignee_role_id, config)
			VALUES (?, ?, ?, ?, ?)
		`, defID, step.Name, nullInt64(step.StatusID), nullInt64(step.AssigneeRoleID), config)
		if err != nil {
			r.logger.Error("Failed to create workflow step", zap.Error(err))
			return fmt.Errorf("failed to create workflow step: %w", err)
		}
		stepID, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert id: %w", err)
		}
		step.ID = stepID
		step.DefinitionID = defID
		stepIDs[i] = stepID
	}

	for _, t := range def.Transitions {
		if t.FromStepID != nil {
			from := stepIDs[*t.FromStepID]
			t.FromStepID = &from
		}
		t.ToStepID = stepIDs[t.ToStepID]

		conditions, err := marshalMap(t.Conditions)
		if err != nil {
			return err
		}
		result, err := ex.ExecContext(ctx, `
			INSERT INTO workflow_transitions (
				definition_id, name, from_step_id, to_step_id,
				required_role_id, requires_comment, conditions, is_active
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, defID, t.Name, nullInt64(t.FromStepID), t.ToStepID,
			nullInt64(t.RequiredRoleID), t.RequiresComment, conditions, t.IsActive)
		if err != nil {
			r.logger.Error("Failed to create workflow transition", zap.Error(err))
			return fmt.Errorf("failed to create workflow transition: %w", err)
		}
		transitionID, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert id: %w", err)
		}
		t.ID = transitionID
		t.DefinitionID = defID
	}

	return nil
}

// GetByID retrieves a definition with its full graph
func (r *WorkflowDefinitionRepository) GetByID(ctx context.Context, id int64) (*entity.WorkflowDefinition, error) {
	return r.getOne(ctx, `WHERE id = ?`, id)
}

// GetByCode retrieves a definition with its full graph by code
func (r *WorkflowDefinitionRepository) GetByCode(ctx context.Context, code string) (*entity.WorkflowDefinition, error) {
	return r.getOne(ctx, `WHERE code = ?`, code)
}

func (r *WorkflowDefinitionRepository) getOne(ctx context.Context, where string, arg interface{}) (*entity.WorkflowDefinition, error) {
	query := `
		SELECT id, code, name, description, is_active, created_at, updated_at
		FROM workflow_definitions ` + where

	var def entity.WorkflowDefinition
	var description sql.NullString

	err := getExecutor(ctx, r.db).QueryRowContext(ctx, query, arg).Scan(
		&def.ID,
		&def.Code,
		&def.Name,
		&description,
		&def.IsActive,
		&def.CreatedAt,
		&def.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get workflow definition", zap.Error(err))
		return nil, fmt.Errorf("failed to get workflow definition: %w", err)
	}
	def.Description = description.String

	if err := r.loadGraph(ctx, &def); err != nil {
		return nil, err
	}
	return &def, nil
}

// loadGraph attaches the steps and transitions of a definition.
func (r *WorkflowDefinitionRepository) loadGraph(ctx context.Context, def *entity.WorkflowDefinition) error {
	ex := getExecutor(ctx, r.db)

	rows, err := ex.QueryContext(ctx, `
		SELECT id, definition_id, name, status_id, assignee_role_id, config, created_at, updated_at
		FROM workflow_steps
		WHERE definition_id = ?
		ORDER BY id
	`, def.ID)
	if err != nil {
		return fmt.Errorf("failed to load workflow steps: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var step entity.WorkflowStep
		var statusID, roleID sql.NullInt64
		var config sql.NullString

		if err := rows.Scan(
			&step.ID,
			&step.DefinitionID,
			&step.Name,
			&statusID,
			&roleID,
			&config,
			&step.CreatedAt,
			&step.UpdatedAt,
		); err != nil {
			return fmt.Errorf("failed to scan workflow step: %w", err)
		}
		step.StatusID = int64Ptr(statusID)
		step.AssigneeRoleID = int64Ptr(roleID)
		if step.Config, err = unmarshalMap(config); err != nil {
			return err
		}
		def.Steps = append(def.Steps, &step)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	trows, err := ex.QueryContext(ctx, `
		SELECT id, definition_id, name, from_step_id, to_step_id,
			required_role_id, requires_comment, conditions, is_active,
			created_at, updated_at
		FROM workflow_transitions
		WHERE definition_id = ?
		ORDER BY id
	`, def.ID)
	if err != nil {
		return fmt.Errorf("failed to load workflow transitions: %w", err)
	}
	defer trows.Close()

	for trows.Next() {
		t, err := scanTransition(trows)
		if err != nil {
			return err
		}
		def.Transitions = append(def.Transitions, t)
	}
	return trows.Err()
}

// Update persists the definition's header fields
func (r *WorkflowDefinitionRepository) Update(ctx context.Context, def *entity.WorkflowDefinition) error {
	query := `
		UPDATE workflow_definitions
		SET code = ?, name = ?, description = ?, is_active = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	_, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		def.Code, def.Name, def.Description, def.IsActive, def.ID)
	if err != nil {
		r.logger.Error("Failed to update workflow definition", zap.Int64("id", def.ID), zap.Error(err))
		return fmt.Errorf("failed to update workflow definition: %w", err)
	}
	return nil
}

// Delete removes a definition with its steps and transitions
func (r *WorkflowDefinitionRepository) Delete(ctx context.Context, id int64) error {
	ex := getExecutor(ctx, r.db)

	if _, err := ex.ExecContext(ctx, `DELETE FROM workflow_transitions WHERE definition_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete workflow transitions: %w", err)
	}
	if _, err := ex.ExecContext(ctx, `DELETE FROM workflow_steps WHERE definition_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete workflow steps: %w", err)
	}
	if _, err := ex.ExecContext(ctx, `DELETE FROM workflow_definitions WHERE id = ?`, id); err != nil {
		r.logger.Error("Failed to delete workflow definition", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to delete workflow definition: %w", err)
	}
	return nil
}

// List returns definition headers without graphs
func (r *WorkflowDefinitionRepository) List(ctx context.Context, limit, offset int) ([]*entity.WorkflowDefinition, error) {
	query := `
		SELECT id, code, name, description, is_active, created_at, updated_at
		FROM workflow_definitions
		ORDER BY id
		LIMIT ? OFFSET ?
	`

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list workflow definitions", zap.Error(err))
		return nil, fmt.Errorf("failed to list workflow definitions: %w", err)
	}
	defer rows.Close()

	var defs []*entity.WorkflowDefinition
	for rows.Next() {
		var def entity.WorkflowDefinition
		var description sql.NullString
		if err := rows.Scan(
			&def.ID,
			&def.Code,
			&def.Name,
			&description,
			&def.IsActive,
			&def.CreatedAt,
			&def.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan workflow definition: %w", err)
		}
		def.Description = description.String
		defs = append(defs, &def)
	}
	return defs, rows.Err()
}

// GetStepByID retrieves a single step
func (r *WorkflowDefinitionRepository) GetStepByID(ctx context.Context, id int64) (*entity.WorkflowStep, error) {
	query := `
		SELECT id, definition_id, name, status_id, assignee_role_id, config, created_at, updated_at
		FROM workflow_steps
		WHERE id = ?
	`

	var step entity.WorkflowStep
	var statusID, roleID sql.NullInt64
	var config sql.NullString

	err := getExecutor(ctx, r.db).QueryRowContext(ctx, query, id).Scan(
		&step.ID,
		&step.DefinitionID,
		&step.Name,
		&statusID,
		&roleID,
		&config,
		&step.CreatedAt,
		&step.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get workflow step", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get workflow step: %w", err)
	}
	step.StatusID = int64Ptr(statusID)
	step.AssigneeRoleID = int64Ptr(roleID)
	if step.Config, err = unmarshalMap(config); err != nil {
		return nil, err
	}
	return &step, nil
}

// GetTransitionByID retrieves a single transition
func (r *WorkflowDefinitionRepository) GetTransitionByID(ctx context.Context, id int64) (*entity.WorkflowTransition, error) {
	query := `
		SELECT id, definition_id, name, from_step_id, to_step_id,
			required_role_id, requires_comment, conditions, is_active,
			created_at, updated_at
		FROM workflow_transitions
		WHERE id = ?
	`

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, id)
	if err != nil {
		r.logger.Error("Failed to get workflow transition", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get workflow transition: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	return scanTransition(rows)
}

func scanTransition(rows *sql.Rows) (*entity.WorkflowTransition, error) {
	var t entity.WorkflowTransition
	var name, conditions sql.NullString
	var fromStepID, requiredRoleID sql.NullInt64

	if err := rows.Scan(
		&t.ID,
		&t.DefinitionID,
		&name,
		&fromStepID,
		&t.ToStepID,
		&requiredRoleID,
		&t.RequiresComment,
		&conditions,
		&t.IsActive,
		&t.CreatedAt,
		&t.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("failed to scan workflow transition: %w", err)
	}
	t.Name = name.String
	t.FromStepID = int64Ptr(fromStepID)
	t.RequiredRoleID = int64Ptr(requiredRoleID)

	var err error
	if t.Conditions, err = unmarshalMap(conditions); err != nil {
		return nil, err
	}
	return &t, nil
}

// Verify interface compliance
var _ port.WorkflowDefinitionRepository = (*WorkflowDefinitionRepository)(nil)
