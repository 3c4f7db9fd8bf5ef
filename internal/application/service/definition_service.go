package service

import (
	"context"
	"fmt"

	"github.com/docuflow/docuflow/internal/apperr"
	"github.com/docuflow/docuflow/internal/application/port"
	"github.com/docuflow/docuflow/internal/domain/entity"
	"github.com/docuflow/docuflow/internal/domain/event"
)

// DefinitionService manages workflow definitions and their step and
// transition graphs. All mutations are gated on workflow-management
// permission.
type DefinitionService interface {
	CreateDefinition(ctx context.Context, def *entity.WorkflowDefinition, user *entity.User) (*entity.WorkflowDefinition, error)
	UpdateDefinition(ctx context.Context, def *entity.WorkflowDefinition, user *entity.User) (*entity.WorkflowDefinition, error)
	DeleteDefinition(ctx context.Context, id int64, user *entity.User) error
	GetDefinition(ctx context.Context, id int64) (*entity.WorkflowDefinition, error)
	GetDefinitionByCode(ctx context.Context, code string) (*entity.WorkflowDefinition, error)
	ListDefinitions(ctx context.Context, limit, offset int) ([]*entity.WorkflowDefinition, error)
}

type definitionServiceImpl struct {
	definitionRepo port.WorkflowDefinitionRepository
	instanceRepo   port.WorkflowInstanceRepository
	validator      *ValidationService
	txManager      port.TransactionManager
	events         port.EventSink
	logger         Logger
}

// NewDefinitionService creates a new DefinitionService
func NewDefinitionService(
	definitionRepo port.WorkflowDefinitionRepository,
	instanceRepo port.WorkflowInstanceRepository,
	validator *ValidationService,
	txManager port.TransactionManager,
	events port.EventSink,
	logger Logger,
) DefinitionService {
	return &definitionServiceImpl{
		definitionRepo: definitionRepo,
		instanceRepo:   instanceRepo,
		validator:      validator,
		txManager:      txManager,
		events:         events,
		logger:         logger,
	}
}

// CreateDefinition validates and inserts a definition with its full
// graph in one transaction, then announces it.
func (s *definitionServiceImpl) CreateDefinition(ctx context.Context, def *entity.WorkflowDefinition, user *entity.User) (*entity.WorkflowDefinition, error) {
	existing, err := s.definitionRepo.GetByCode(ctx, def.Code)
	if err != nil {
		return nil, fmt.Errorf("check code: %w", err)
	}

	if result := s.validator.ValidateWorkflowDefinition(def, existing != nil, user); !result.IsValid() {
		return nil, apperr.BadRequest("%s", result.Message())
	}
	if err := validateTransitionEdges(def); err != nil {
		return nil, err
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.definitionRepo.Create(txCtx, def); err != nil {
			return fmt.Errorf("create definition: %w", err)
		}
		return nil
	})
	if err != nil {
		s.events.Publish(ctx, event.NewError(0, user.ID, err))
		return nil, err
	}

	s.logger.Info("Workflow definition created",
		"definition_id", def.ID,
		"code", def.Code,
		"steps", len(def.Steps),
		"transitions", len(def.Transitions))

	s.events.Publish(ctx, event.New(event.TypeWorkflowCreated, 0, user.ID, map[string]interface{}{
		"definitionId": def.ID,
		"code":         def.Code,
	}))

	return def, nil
}

// UpdateDefinition persists the definition's header fields. The graph
// is immutable after creation; evolving a flow means publishing a new
// definition code and deactivating the old one.
func (s *definitionServiceImpl) UpdateDefinition(ctx context.Context, def *entity.WorkflowDefinition, user *entity.User) (*entity.WorkflowDefinition, error) {
	if !CanManageWorkflows(user) {
		return nil, apperr.BadRequest("user cannot manage workflow definitions")
	}

	current, err := s.definitionRepo.GetByID(ctx, def.ID)
	if err != nil {
		return nil, fmt.Errorf("get definition: %w", err)
	}
	if current == nil {
		return nil, apperr.NotFound("workflow definition %d not found", def.ID)
	}

	if def.Code != current.Code {
		other, err := s.definitionRepo.GetByCode(ctx, def.Code)
		if err != nil {
			return nil, fmt.Errorf("check code: %w", err)
		}
		if other != nil {
			return nil, apperr.BadRequest("workflow code %q is already in use", def.Code)
		}
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.definitionRepo.Update(txCtx, def); err != nil {
			return fmt.Errorf("update definition: %w", err)
		}
		return nil
	})
	if err != nil {
		s.events.Publish(ctx, event.NewError(0, user.ID, err))
		return nil, err
	}

	s.logger.Info("Workflow definition updated",
		"definition_id", def.ID,
		"code", def.Code)

	return s.definitionRepo.GetByID(ctx, def.ID)
}

// DeleteDefinition removes a definition and its graph. Definitions with
// active instances cannot be deleted.
func (s *definitionServiceImpl) DeleteDefinition(ctx context.Context, id int64, user *entity.User) error {
	if !CanManageWorkflows(user) {
		return apperr.BadRequest("user cannot manage workflow definitions")
	}

	def, err := s.definitionRepo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get definition: %w", err)
	}
	if def == nil {
		return apperr.NotFound("workflow definition %d not found", id)
	}

	active, err := s.instanceRepo.CountActiveByDefinitionID(ctx, id)
	if err != nil {
		return fmt.Errorf("count active instances: %w", err)
	}
	if active > 0 {
		return apperr.BadRequest("workflow definition %d has %d active instances", id, active)
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.definitionRepo.Delete(txCtx, id); err != nil {
			return fmt.Errorf("delete definition: %w", err)
		}
		return nil
	})
	if err != nil {
		s.events.Publish(ctx, event.NewError(0, user.ID, err))
		return err
	}

	s.logger.Info("Workflow definition deleted",
		"definition_id", id,
		"code", def.Code)

	return nil
}

// GetDefinition loads a definition with its graph.
func (s *definitionServiceImpl) GetDefinition(ctx context.Context, id int64) (*entity.WorkflowDefinition, error) {
	def, err := s.definitionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get definition: %w", err)
	}
	if def == nil {
		return nil, apperr.NotFound("workflow definition %d not found", id)
	}
	return def, nil
}

// GetDefinitionByCode loads a definition with its graph by code.
func (s *definitionServiceImpl) GetDefinitionByCode(ctx context.Context, code string) (*entity.WorkflowDefinition, error) {
	def, err := s.definitionRepo.GetByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("get definition: %w", err)
	}
	if def == nil {
		return nil, apperr.NotFound("workflow definition %q not found", code)
	}
	return def, nil
}

// ListDefinitions returns definition headers without graphs.
func (s *definitionServiceImpl) ListDefinitions(ctx context.Context, limit, offset int) ([]*entity.WorkflowDefinition, error) {
	defs, err := s.definitionRepo.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list definitions: %w", err)
	}
	return defs, nil
}

// validateTransitionEdges rejects duplicate (from, to) pairs and edges
// referencing steps outside the definition. Steps have no ids yet at
// create time, so references use the step's position in def.Steps.
func validateTransitionEdges(def *entity.WorkflowDefinition) error {
	type edge struct {
		from int64 // -1 encodes the wildcard
		to   int64
	}
	seen := make(map[edge]bool, len(def.Transitions))

	for _, t := range def.Transitions {
		from := int64(-1)
		if t.FromStepID != nil {
			from = *t.FromStepID
			if from < 0 || int(from) >= len(def.Steps) {
				return apperr.BadRequest("transition references unknown from-step index %d", from)
			}
		}
		if t.ToStepID < 0 || int(t.ToStepID) >= len(def.Steps) {
			return apperr.BadRequest("transition references unknown to-step index %d", t.ToStepID)
		}
		e := edge{from: from, to: t.ToStepID}
		if seen[e] {
			return apperr.BadRequest("duplicate transition from step %d to step %d", from, t.ToStepID)
		}
		seen[e] = true
	}
	return nil
}
