package entity

import "time"

// TaskStatus is the lifecycle state of a workflow task.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusCancelled  TaskStatus = "cancelled"
)

// IsOpen returns true while the task can still be acted on.
func (s TaskStatus) IsOpen() bool {
	return s == TaskStatusPending || s == TaskStatusInProgress
}

// WorkflowTask is a human task bound to an instance and the step it was
// raised on. The instance's current-task pointer gates progress; the
// engine clears it when the pointed-to task completes or is cancelled.
type WorkflowTask struct {
	ID             int64                  `json:"id"`
	InstanceID     int64                  `json:"instance_id"`
	StepID         int64                  `json:"step_id"`
	Status         TaskStatus             `json:"status"`
	AssigneeRoleID *int64                 `json:"assignee_role_id,omitempty"`
	AssigneeID     *int64                 `json:"assignee_id,omitempty"`
	Comments       string                 `json:"comments,omitempty"`
	DueDate        *time.Time             `json:"due_date,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
}

// MergeMetadata merges the given fields into the task metadata.
func (t *WorkflowTask) MergeMetadata(fields map[string]interface{}) {
	if len(fields) == 0 {
		return
	}
	if t.Metadata == nil {
		t.Metadata = make(map[string]interface{}, len(fields))
	}
	for k, v := range fields {
		t.Metadata[k] = v
	}
}
