package entity

import "time"

// WorkflowDefinition is the static graph of steps and transitions a
// document moves through. Steps and transitions are owned by the
// definition and cascade with it.
type WorkflowDefinition struct {
	ID          int64                 `json:"id"`
	Code        string                `json:"code"`
	Name        string                `json:"name"`
	Description string                `json:"description,omitempty"`
	IsActive    bool                  `json:"is_active"`
	Steps       []*WorkflowStep       `json:"steps,omitempty"`
	Transitions []*WorkflowTransition `json:"transitions,omitempty"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

// WorkflowStep is a node in a definition. StatusID binds the document
// status the bound document adopts while an instance sits on this step.
type WorkflowStep struct {
	ID             int64                  `json:"id"`
	DefinitionID   int64                  `json:"definition_id"`
	Name           string                 `json:"name"`
	StatusID       *int64                 `json:"status_id,omitempty"`
	AssigneeRoleID *int64                 `json:"assignee_role_id,omitempty"`
	Config         map[string]interface{} `json:"config,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
}

// WorkflowTransition is an edge in a definition. A nil FromStepID is a
// wildcard: the transition may fire from any step. Matching must go
// through AppliesFrom, never a direct pointer comparison.
type WorkflowTransition struct {
	ID              int64                  `json:"id"`
	DefinitionID    int64                  `json:"definition_id"`
	Name            string                 `json:"name,omitempty"`
	FromStepID      *int64                 `json:"from_step_id,omitempty"`
	ToStepID        int64                  `json:"to_step_id"`
	RequiredRoleID  *int64                 `json:"required_role_id,omitempty"`
	RequiresComment bool                   `json:"requires_comment"`
	Conditions      map[string]interface{} `json:"conditions,omitempty"`
	IsActive        bool                   `json:"is_active"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
}

// AppliesFrom reports whether the transition may fire from the given
// step. Wildcard transitions apply from every step.
func (t *WorkflowTransition) AppliesFrom(stepID int64) bool {
	if t.FromStepID == nil {
		return true
	}
	return *t.FromStepID == stepID
}

// StepByID returns the step with the given id, or nil.
func (d *WorkflowDefinition) StepByID(stepID int64) *WorkflowStep {
	for _, s := range d.Steps {
		if s.ID == stepID {
			return s
		}
	}
	return nil
}

// TransitionByID returns the transition with the given id, or nil.
func (d *WorkflowDefinition) TransitionByID(transitionID int64) *WorkflowTransition {
	for _, t := range d.Transitions {
		if t.ID == transitionID {
			return t
		}
	}
	return nil
}

// InitialSteps returns the steps that are never the target of a
// concrete transition in the definition. Wildcard transitions do not
// count as incoming edges: a global reject edge pointing back at the
// start step must not leave the graph without an entry point. A
// well-formed definition has exactly one initial step.
func (d *WorkflowDefinition) InitialSteps() []*WorkflowStep {
	incoming := make(map[int64]bool, len(d.Transitions))
	for _, t := range d.Transitions {
		if t.FromStepID == nil {
			continue
		}
		incoming[t.ToStepID] = true
	}

	var initial []*WorkflowStep
	for _, s := range d.Steps {
		if !incoming[s.ID] {
			initial = append(initial, s)
		}
	}
	return initial
}

// HasOutgoing reports whether the given step has at least one active
// outgoing transition. Wildcard transitions count as outgoing for every
// step except when they point back at the step itself only.
func (d *WorkflowDefinition) HasOutgoing(stepID int64) bool {
	for _, t := range d.Transitions {
		if !t.IsActive {
			continue
		}
		if t.AppliesFrom(stepID) && t.ToStepID != stepID {
			return true
		}
	}
	return false
}
