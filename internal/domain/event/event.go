package event

import (
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
)

// Event is an ephemeral workflow event. Events are never persisted;
// they exist only for the duration of a dispatch.
type Event struct {
	ID                 string                 `json:"id"`
	Type               Type                   `json:"type"`
	WorkflowInstanceID int64                  `json:"workflow_instance_id"`
	UserID             int64                  `json:"user_id,omitempty"`
	Data               map[string]interface{} `json:"data,omitempty"`
	Timestamp          time.Time              `json:"timestamp"`
}

// New creates a workflow event with a fresh id and timestamp.
func New(eventType Type, instanceID, userID int64, data map[string]interface{}) *Event {
	return &Event{
		ID:                 uuid.NewString(),
		Type:               eventType,
		WorkflowInstanceID: instanceID,
		UserID:             userID,
		Data:               data,
		Timestamp:          time.Now(),
	}
}

// WithData returns a copy of the event with an added data field.
func (e *Event) WithData(key string, value interface{}) *Event {
	data := make(map[string]interface{}, len(e.Data)+1)
	for k, v := range e.Data {
		data[k] = v
	}
	data[key] = value

	clone := *e
	clone.Data = data
	return &clone
}

// GetDataString retrieves a string value from the event data.
func (e *Event) GetDataString(key string) string {
	if val, ok := e.Data[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}

// GetDataInt retrieves an int64 value from the event data.
func (e *Event) GetDataInt(key string) int64 {
	if val, ok := e.Data[key]; ok {
		switch v := val.(type) {
		case int64:
			return v
		case int:
			return int64(v)
		case float64:
			return int64(v)
		}
	}
	return 0
}

// ErrorShape is the normalized form every error carried in event data
// takes, regardless of what was originally thrown.
type ErrorShape struct {
	Name    string `json:"name"`
	Message string `json:"message"`
	Stack   string `json:"stack,omitempty"`
}

// NormalizeError converts an arbitrary value into an ErrorShape.
// Go errors keep their type name and message; error-shaped maps get a
// best-effort field extraction; everything else becomes UnknownError.
func NormalizeError(value interface{}) ErrorShape {
	switch v := value.(type) {
	case nil:
		return ErrorShape{Name: "UnknownError", Message: "<nil>"}
	case error:
		return ErrorShape{
			Name:    fmt.Sprintf("%T", v),
			Message: v.Error(),
			Stack:   string(debug.Stack()),
		}
	case map[string]interface{}:
		shape := ErrorShape{Name: "UnknownError"}
		if name, ok := v["name"].(string); ok && name != "" {
			shape.Name = name
		}
		if msg, ok := v["message"].(string); ok {
			shape.Message = msg
		} else {
			shape.Message = fmt.Sprint(v)
		}
		if stack, ok := v["stack"].(string); ok {
			shape.Stack = stack
		}
		return shape
	default:
		return ErrorShape{Name: "UnknownError", Message: fmt.Sprint(v)}
	}
}

// NewError creates a WORKFLOW_ERROR event carrying the normalized error.
func NewError(instanceID, userID int64, cause interface{}) *Event {
	shape := NormalizeError(cause)
	return New(TypeWorkflowError, instanceID, userID, map[string]interface{}{
		"error": shape,
	})
}
