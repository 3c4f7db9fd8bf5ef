package event

// Type identifies the type of workflow event
type Type string

const (
	TypeWorkflowCreated     Type = "WORKFLOW_CREATED"
	TypeWorkflowStarted     Type = "WORKFLOW_STARTED"
	TypeWorkflowStepChanged Type = "WORKFLOW_STEP_CHANGED"
	TypeTaskAssigned        Type = "WORKFLOW_TASK_ASSIGNED"
	TypeWorkflowCompleted   Type = "WORKFLOW_COMPLETED"
	TypeWorkflowCancelled   Type = "WORKFLOW_CANCELLED"
	TypeWorkflowError       Type = "WORKFLOW_ERROR"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeWorkflowCreated,
		TypeWorkflowStarted,
		TypeWorkflowStepChanged,
		TypeTaskAssigned,
		TypeWorkflowCompleted,
		TypeWorkflowCancelled,
		TypeWorkflowError:
		return true
	default:
		return false
	}
}
