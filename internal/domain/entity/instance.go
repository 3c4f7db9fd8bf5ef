package entity

import "time"

// InstanceStatus is the lifecycle state of a workflow instance.
type InstanceStatus string

const (
	InstanceStatusActive    InstanceStatus = "active"
	InstanceStatusCompleted InstanceStatus = "completed"
	InstanceStatusCancelled InstanceStatus = "cancelled"
)

// IsTerminal returns true once the instance can no longer transition.
func (s InstanceStatus) IsTerminal() bool {
	return s == InstanceStatusCompleted || s == InstanceStatusCancelled
}

// Metadata keys written by the engine itself.
const (
	MetaLastTransition     = "lastTransition"
	MetaCancellationReason = "cancellationReason"
	MetaCancelledBy        = "cancelledBy"
	MetaCancelledAt        = "cancelledAt"
)

// WorkflowInstance is the live execution token of a definition bound to
// one document. At most one active instance may exist per document.
// Version backs the compare-and-swap write in the instance repository.
type WorkflowInstance struct {
	ID            int64                  `json:"id"`
	DefinitionID  int64                  `json:"definition_id"`
	DocumentID    int64                  `json:"document_id"`
	CurrentStepID int64                  `json:"current_step_id"`
	CurrentTaskID *int64                 `json:"current_task_id,omitempty"`
	Status        InstanceStatus         `json:"status"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
	Version       int64                  `json:"version"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at"`
}

// MergeMetadata merges the given fields into the instance metadata,
// allocating the map on first use.
func (i *WorkflowInstance) MergeMetadata(fields map[string]interface{}) {
	if len(fields) == 0 {
		return
	}
	if i.Metadata == nil {
		i.Metadata = make(map[string]interface{}, len(fields))
	}
	for k, v := range fields {
		i.Metadata[k] = v
	}
}

// LastTransition is the audit record stamped into instance metadata on
// every executed transition.
type LastTransition struct {
	FromStepID int64  `json:"fromStepId"`
	ToStepID   int64  `json:"toStepId"`
	At         string `json:"at"`
	By         int64  `json:"by"`
	Comment    string `json:"comment,omitempty"`
}
