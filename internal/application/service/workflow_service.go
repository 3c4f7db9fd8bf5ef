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

// TransitionOptions carries the optional inputs of a transition request.
type TransitionOptions struct {
	Comment  string
	Metadata map[string]interface{}
}

// InstanceGraph is a workflow instance reloaded with its full relation
// graph, the shape every mutating operation returns.
type InstanceGraph struct {
	Instance      *entity.WorkflowInstance   `json:"instance"`
	Definition    *entity.WorkflowDefinition `json:"definition"`
	Document      *entity.Document           `json:"document"`
	CurrentStep   *entity.WorkflowStep       `json:"current_step"`
	CurrentStatus *entity.Status             `json:"current_status,omitempty"`
	CurrentTask   *entity.WorkflowTask       `json:"current_task,omitempty"`
}

// WorkflowService orchestrates workflow instances: starting, executing
// transitions, cancelling, and the read paths.
type WorkflowService interface {
	StartWorkflow(ctx context.Context, documentID, definitionID int64, user *entity.User, metadata map[string]interface{}) (*InstanceGraph, error)
	TransitionWorkflow(ctx context.Context, instanceID, transitionID int64, user *entity.User, opts TransitionOptions) (*InstanceGraph, error)
	CancelWorkflow(ctx context.Context, instanceID int64, user *entity.User, reason string) (*InstanceGraph, error)
	GetWorkflowInstance(ctx context.Context, instanceID int64) (*InstanceGraph, error)
	GetActiveWorkflowInstances(ctx context.Context, filter port.InstanceFilter) ([]*entity.WorkflowInstance, error)
}

type workflowServiceImpl struct {
	definitionRepo port.WorkflowDefinitionRepository
	instanceRepo   port.WorkflowInstanceRepository
	taskRepo       port.WorkflowTaskRepository
	documentRepo   port.DocumentRepository
	statusRepo     port.StatusRepository
	validator      *ValidationService
	txManager      port.TransactionManager
	events         port.EventSink
	logger         Logger
}

// NewWorkflowService creates a new WorkflowService
func NewWorkflowService(
	definitionRepo port.WorkflowDefinitionRepository,
	instanceRepo port.WorkflowInstanceRepository,
	taskRepo port.WorkflowTaskRepository,
	documentRepo port.DocumentRepository,
	statusRepo port.StatusRepository,
	validator *ValidationService,
	txManager port.TransactionManager,
	events port.EventSink,
	logger Logger,
) WorkflowService {
	return &workflowServiceImpl{
		definitionRepo: definitionRepo,
		instanceRepo:   instanceRepo,
		taskRepo:       taskRepo,
		documentRepo:   documentRepo,
		statusRepo:     statusRepo,
		validator:      validator,
		txManager:      txManager,
		events:         events,
		logger:         logger,
	}
}

// StartWorkflow creates an active instance for the document under the
// given definition, placing it on the definition's initial step and
// adopting that step's bound document status, all in one transaction.
func (s *workflowServiceImpl) StartWorkflow(
	ctx context.Context,
	documentID, definitionID int64,
	user *entity.User,
	metadata map[string]interface{},
) (*InstanceGraph, error) {
	graph, err := s.startWorkflow(ctx, documentID, definitionID, user, metadata)
	if err != nil {
		s.events.Publish(ctx, event.NewError(0, user.ID, err))
		return nil, err
	}
	return graph, nil
}

func (s *workflowServiceImpl) startWorkflow(
	ctx context.Context,
	documentID, definitionID int64,
	user *entity.User,
	metadata map[string]interface{},
) (*InstanceGraph, error) {
	doc, err := s.documentRepo.GetByID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	if doc == nil {
		return nil, apperr.NotFound("document %d not found", documentID)
	}

	def, err := s.definitionRepo.GetByID(ctx, definitionID)
	if err != nil {
		return nil, fmt.Errorf("get workflow definition: %w", err)
	}
	if def == nil {
		return nil, apperr.NotFound("workflow definition %d not found", definitionID)
	}
	if !def.IsActive {
		return nil, apperr.BadRequest("workflow definition %q is not active", def.Code)
	}

	existing, err := s.instanceRepo.GetActiveByDocumentID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("check active instance: %w", err)
	}
	if existing != nil {
		return nil, apperr.BadRequest("document %d already has an active workflow instance", documentID)
	}

	initials := def.InitialSteps()
	if len(initials) != 1 {
		return nil, apperr.BadRequest("workflow definition %q has no unambiguous initial step", def.Code)
	}
	initial := initials[0]

	instance := &entity.WorkflowInstance{
		DefinitionID:  def.ID,
		DocumentID:    doc.ID,
		CurrentStepID: initial.ID,
		Status:        entity.InstanceStatusActive,
		Metadata:      metadata,
		Version:       1,
	}

	var docStatus string
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.instanceRepo.Create(txCtx, instance); err != nil {
			return fmt.Errorf("create instance: %w", err)
		}
		if initial.StatusID != nil {
			status, err := s.statusRepo.GetByID(txCtx, *initial.StatusID)
			if err != nil {
				return fmt.Errorf("get status: %w", err)
			}
			if status == nil {
				return apperr.NotFound("status %d bound to step %d not found", *initial.StatusID, initial.ID)
			}
			if err := s.documentRepo.UpdateStatus(txCtx, doc.ID, status.Code); err != nil {
				return fmt.Errorf("update document status: %w", err)
			}
			docStatus = status.Code
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Workflow started",
		"instance_id", instance.ID,
		"document_id", doc.ID,
		"definition_code", def.Code,
		"initial_step_id", initial.ID)

	evt := event.New(event.TypeWorkflowStarted, instance.ID, user.ID, map[string]interface{}{
		"definitionId":  def.ID,
		"documentId":    doc.ID,
		"initialStepId": initial.ID,
	})
	if docStatus != "" {
		evt = evt.WithData("documentStatus", docStatus)
	}
	if initial.AssigneeRoleID != nil {
		evt = evt.WithData("assigneeRoleId", *initial.AssigneeRoleID)
	}
	s.events.Publish(ctx, evt)

	return s.loadGraph(ctx, instance.ID)
}

// TransitionWorkflow executes a transition against an instance. The
// transition graph is authoritative: a transition whose from-step does
// not match the instance's current step is rejected by validation.
func (s *workflowServiceImpl) TransitionWorkflow(
	ctx context.Context,
	instanceID, transitionID int64,
	user *entity.User,
	opts TransitionOptions,
) (*InstanceGraph, error) {
	graph, err := s.transitionWorkflow(ctx, instanceID, transitionID, user, opts)
	if err != nil {
		s.events.Publish(ctx, event.NewError(instanceID, user.ID, err))
		return nil, err
	}
	return graph, nil
}

func (s *workflowServiceImpl) transitionWorkflow(
	ctx context.Context,
	instanceID, transitionID int64,
	user *entity.User,
	opts TransitionOptions,
) (*InstanceGraph, error) {
	instance, err := s.instanceRepo.GetByID(ctx, instanceID)
	if err != nil {
		return nil, fmt.Errorf("get instance: %w", err)
	}
	if instance == nil {
		return nil, apperr.NotFound("workflow instance %d not found", instanceID)
	}

	transition, err := s.definitionRepo.GetTransitionByID(ctx, transitionID)
	if err != nil {
		return nil, fmt.Errorf("get transition: %w", err)
	}
	if transition == nil {
		return nil, apperr.NotFound("workflow transition %d not found", transitionID)
	}

	doc, err := s.documentRepo.GetByID(ctx, instance.DocumentID)
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	if doc == nil {
		return nil, apperr.NotFound("document %d not found", instance.DocumentID)
	}

	result := s.validator.ValidateWorkflowTransition(instance, transition, doc, user, opts.Comment)
	if !result.IsValid() {
		return nil, apperr.BadRequest("%s", result.Message())
	}

	def, err := s.definitionRepo.GetByID(ctx, instance.DefinitionID)
	if err != nil {
		return nil, fmt.Errorf("get definition: %w", err)
	}
	if def == nil {
		return nil, apperr.NotFound("workflow definition %d not found", instance.DefinitionID)
	}
	toStep := def.StepByID(transition.ToStepID)
	if toStep == nil {
		return nil, apperr.NotFound("workflow step %d not found in definition %q", transition.ToStepID, def.Code)
	}

	fromStepID := instance.CurrentStepID
	var docStatus string
	completed := false

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if toStep.StatusID != nil {
			status, err := s.statusRepo.GetByID(txCtx, *toStep.StatusID)
			if err != nil {
				return fmt.Errorf("get status: %w", err)
			}
			if status == nil {
				return apperr.NotFound("status %d bound to step %d not found", *toStep.StatusID, toStep.ID)
			}
			if err := s.documentRepo.UpdateStatus(txCtx, doc.ID, status.Code); err != nil {
				return fmt.Errorf("update document status: %w", err)
			}
			docStatus = status.Code
		}

		instance.CurrentStepID = toStep.ID
		instance.MergeMetadata(opts.Metadata)
		instance.MergeMetadata(map[string]interface{}{
			entity.MetaLastTransition: entity.LastTransition{
				FromStepID: fromStepID,
				ToStepID:   toStep.ID,
				At:         time.Now().UTC().Format(time.RFC3339),
				By:         user.ID,
				Comment:    opts.Comment,
			},
		})

		if !def.HasOutgoing(toStep.ID) {
			instance.Status = entity.InstanceStatusCompleted
			completed = true
		}

		if err := s.instanceRepo.UpdateCAS(txCtx, instance); err != nil {
			return fmt.Errorf("update instance: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Workflow transitioned",
		"instance_id", instance.ID,
		"transition_id", transition.ID,
		"from_step_id", fromStepID,
		"to_step_id", toStep.ID,
		"completed", completed)

	evt := event.New(event.TypeWorkflowStepChanged, instance.ID, user.ID, map[string]interface{}{
		"transitionId": transition.ID,
		"fromStepId":   fromStepID,
		"toStepId":     toStep.ID,
	})
	if opts.Comment != "" {
		evt = evt.WithData("comment", opts.Comment)
	}
	if docStatus != "" {
		evt = evt.WithData("documentStatus", docStatus)
	}
	if toStep.AssigneeRoleID != nil {
		evt = evt.WithData("assigneeRoleId", *toStep.AssigneeRoleID)
	}
	s.events.Publish(ctx, evt)

	if completed {
		s.events.Publish(ctx, event.New(event.TypeWorkflowCompleted, instance.ID, user.ID, map[string]interface{}{
			"finalStepId": toStep.ID,
		}))
	}

	return s.loadGraph(ctx, instance.ID)
}

// CancelWorkflow terminally cancels an active instance. The document's
// per-document uniqueness constraint is released: a new instance may be
// started for the same document afterwards.
func (s *workflowServiceImpl) CancelWorkflow(
	ctx context.Context,
	instanceID int64,
	user *entity.User,
	reason string,
) (*InstanceGraph, error) {
	graph, err := s.cancelWorkflow(ctx, instanceID, user, reason)
	if err != nil {
		s.events.Publish(ctx, event.NewError(instanceID, user.ID, err))
		return nil, err
	}
	return graph, nil
}

func (s *workflowServiceImpl) cancelWorkflow(
	ctx context.Context,
	instanceID int64,
	user *entity.User,
	reason string,
) (*InstanceGraph, error) {
	instance, err := s.instanceRepo.GetByID(ctx, instanceID)
	if err != nil {
		return nil, fmt.Errorf("get instance: %w", err)
	}
	if instance == nil {
		return nil, apperr.NotFound("workflow instance %d not found", instanceID)
	}
	if instance.Status != entity.InstanceStatusActive {
		return nil, apperr.BadRequest("only active workflows can be cancelled")
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		instance.Status = entity.InstanceStatusCancelled
		instance.MergeMetadata(map[string]interface{}{
			entity.MetaCancellationReason: reason,
			entity.MetaCancelledBy:        user.ID,
			entity.MetaCancelledAt:        time.Now().UTC().Format(time.RFC3339),
		})
		if err := s.instanceRepo.UpdateCAS(txCtx, instance); err != nil {
			return fmt.Errorf("update instance: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Workflow cancelled",
		"instance_id", instance.ID,
		"cancelled_by", user.ID)

	s.events.Publish(ctx, event.New(event.TypeWorkflowCancelled, instance.ID, user.ID, map[string]interface{}{
		"reason": reason,
	}))

	return s.loadGraph(ctx, instance.ID)
}

// GetWorkflowInstance loads an instance with its full relation graph.
func (s *workflowServiceImpl) GetWorkflowInstance(ctx context.Context, instanceID int64) (*InstanceGraph, error) {
	return s.loadGraph(ctx, instanceID)
}

// GetActiveWorkflowInstances lists active instances matching the filter.
func (s *workflowServiceImpl) GetActiveWorkflowInstances(
	ctx context.Context,
	filter port.InstanceFilter,
) ([]*entity.WorkflowInstance, error) {
	instances, err := s.instanceRepo.ListActive(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list active instances: %w", err)
	}
	return instances, nil
}

// loadGraph reloads the instance with definition, document, current
// step, bound status and current task resolved by id.
func (s *workflowServiceImpl) loadGraph(ctx context.Context, instanceID int64) (*InstanceGraph, error) {
	instance, err := s.instanceRepo.GetByID(ctx, instanceID)
	if err != nil {
		return nil, fmt.Errorf("get instance: %w", err)
	}
	if instance == nil {
		return nil, apperr.NotFound("workflow instance %d not found", instanceID)
	}

	def, err := s.definitionRepo.GetByID(ctx, instance.DefinitionID)
	if err != nil {
		return nil, fmt.Errorf("get definition: %w", err)
	}

	doc, err := s.documentRepo.GetByID(ctx, instance.DocumentID)
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}

	graph := &InstanceGraph{
		Instance:   instance,
		Definition: def,
		Document:   doc,
	}

	if def != nil {
		graph.CurrentStep = def.StepByID(instance.CurrentStepID)
	}
	if graph.CurrentStep != nil && graph.CurrentStep.StatusID != nil {
		status, err := s.statusRepo.GetByID(ctx, *graph.CurrentStep.StatusID)
		if err != nil {
			return nil, fmt.Errorf("get status: %w", err)
		}
		graph.CurrentStatus = status
	}
	if instance.CurrentTaskID != nil {
		task, err := s.taskRepo.GetByID(ctx, *instance.CurrentTaskID)
		if err != nil {
			return nil, fmt.Errorf("get current task: %w", err)
		}
		graph.CurrentTask = task
	}

	return graph, nil
}
