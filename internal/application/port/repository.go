package port

import (
	"context"
	"time"

	"github.com/docuflow/docuflow/internal/domain/entity"
)

// WorkflowDefinitionRepository defines persistence operations for
// WorkflowDefinition and its owned steps and transitions.
type WorkflowDefinitionRepository interface {
	// Create inserts the definition together with its steps and
	// transitions. Step ids are assigned before transition rows are
	// written so edges can reference them.
	Create(ctx context.Context, def *entity.WorkflowDefinition) error

	// GetByID loads a definition with its full step and transition sets.
	GetByID(ctx context.Context, id int64) (*entity.WorkflowDefinition, error)

	// GetByCode loads a definition (with graph) by its unique code.
	GetByCode(ctx context.Context, code string) (*entity.WorkflowDefinition, error)

	// Update persists code, name, description and active flag.
	Update(ctx context.Context, def *entity.WorkflowDefinition) error

	// Delete removes the definition; steps and transitions cascade.
	Delete(ctx context.Context, id int64) error

	// List returns definitions without their graphs.
	List(ctx context.Context, limit, offset int) ([]*entity.WorkflowDefinition, error)

	// GetStepByID retrieves a single step.
	GetStepByID(ctx context.Context, id int64) (*entity.WorkflowStep, error)

	// GetTransitionByID retrieves a single transition.
	GetTransitionByID(ctx context.Context, id int64) (*entity.WorkflowTransition, error)
}

// InstanceFilter is an exact-match conjunction over instance fields.
type InstanceFilter struct {
	DocumentID    *int64
	DefinitionID  *int64
	CurrentStepID *int64
}

// WorkflowInstanceRepository defines persistence operations for
// WorkflowInstance.
type WorkflowInstanceRepository interface {
	Create(ctx context.Context, instance *entity.WorkflowInstance) error
	GetByID(ctx context.Context, id int64) (*entity.WorkflowInstance, error)

	// GetActiveByDocumentID returns the document's active instance, or
	// nil when none exists.
	GetActiveByDocumentID(ctx context.Context, documentID int64) (*entity.WorkflowInstance, error)

	// UpdateCAS writes the instance iff the stored version still equals
	// instance.Version, then bumps the version. A stale version yields a
	// Conflict-kind error.
	UpdateCAS(ctx context.Context, instance *entity.WorkflowInstance) error

	// ListActive returns active instances matching the filter.
	ListActive(ctx context.Context, filter InstanceFilter) ([]*entity.WorkflowInstance, error)

	// CountActiveByDefinitionID counts active instances under a
	// definition without loading them.
	CountActiveByDefinitionID(ctx context.Context, definitionID int64) (int64, error)
}

// TaskFilter is a conjunctive filter over task fields. Statuses is a
// set-membership test; the due-date bounds are inclusive.
type TaskFilter struct {
	Statuses       []entity.TaskStatus
	AssigneeID     *int64
	AssigneeRoleID *int64
	StepID         *int64
	InstanceID     *int64
	DueBefore      *time.Time
	DueAfter       *time.Time
}

// WorkflowTaskRepository defines persistence operations for WorkflowTask.
type WorkflowTaskRepository interface {
	Create(ctx context.Context, task *entity.WorkflowTask) error
	GetByID(ctx context.Context, id int64) (*entity.WorkflowTask, error)
	GetByInstanceID(ctx context.Context, instanceID int64) ([]*entity.WorkflowTask, error)
	Update(ctx context.Context, task *entity.WorkflowTask) error
	Find(ctx context.Context, filter TaskFilter) ([]*entity.WorkflowTask, error)
}

// DocumentRepository is the engine's narrow contract with the document
// store: read by id and mutate the status field inside the engine's
// transaction.
type DocumentRepository interface {
	GetByID(ctx context.Context, id int64) (*entity.Document, error)
	UpdateStatus(ctx context.Context, id int64, status string) error
}

// UserRepository reads acting principals with role and permissions
// eagerly loaded.
type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*entity.User, error)
	ListByRoleID(ctx context.Context, roleID int64) ([]*entity.User, error)
	GetRoleByID(ctx context.Context, roleID int64) (*entity.Role, error)
}

// StatusRepository reads the document status registry.
type StatusRepository interface {
	GetByID(ctx context.Context, id int64) (*entity.Status, error)
	GetByCode(ctx context.Context, code string) (*entity.Status, error)
}

// ConfigurationRepository reads typed configuration values.
type ConfigurationRepository interface {
	// GetBool returns the boolean value stored under key. Missing keys
	// and malformed values are errors; callers decide the fallback.
	GetBool(ctx context.Context, key string) (bool, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
