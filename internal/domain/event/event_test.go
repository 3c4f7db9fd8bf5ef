package event

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAssignsIDAndTimestamp(t *testing.T) {
	evt := New(TypeWorkflowStarted, 5, 1, map[string]interface{}{"documentId": int64(9)})

	assert.NotEmpty(t, evt.ID)
	assert.False(t, evt.Timestamp.IsZero())
	assert.Equal(t, TypeWorkflowStarted, evt.Type)
	assert.Equal(t, int64(5), evt.WorkflowInstanceID)
	assert.Equal(t, int64(9), evt.GetDataInt("documentId"))
}

func TestWithDataDoesNotMutateOriginal(t *testing.T) {
	evt := New(TypeWorkflowStepChanged, 5, 1, map[string]interface{}{"stepId": int64(2)})

	enriched := evt.WithData("comment", "looks good")

	assert.Equal(t, "looks good", enriched.GetDataString("comment"))
	assert.Equal(t, int64(2), enriched.GetDataInt("stepId"))
	_, present := evt.Data["comment"]
	assert.False(t, present, "original event keeps its own data map")
}

func TestGetDataInt(t *testing.T) {
	evt := New(TypeTaskAssigned, 5, 1, map[string]interface{}{
		"asInt64":   int64(42),
		"asInt":     42,
		"asFloat":   float64(42),
		"notNumber": "42",
	})

	assert.Equal(t, int64(42), evt.GetDataInt("asInt64"))
	assert.Equal(t, int64(42), evt.GetDataInt("asInt"))
	assert.Equal(t, int64(42), evt.GetDataInt("asFloat"))
	assert.Zero(t, evt.GetDataInt("notNumber"))
	assert.Zero(t, evt.GetDataInt("missing"))
}

func TestNormalizeError(t *testing.T) {
	t.Run("go error", func(t *testing.T) {
		shape := NormalizeError(errors.New("disk full"))
		assert.Equal(t, "*errors.errorString", shape.Name)
		assert.Equal(t, "disk full", shape.Message)
		assert.NotEmpty(t, shape.Stack)
	})

	t.Run("error-shaped map", func(t *testing.T) {
		shape := NormalizeError(map[string]interface{}{
			"name":    "ValidationError",
			"message": "missing required role",
			"stack":   "trace",
		})
		assert.Equal(t, "ValidationError", shape.Name)
		assert.Equal(t, "missing required role", shape.Message)
		assert.Equal(t, "trace", shape.Stack)
	})

	t.Run("map without fields", func(t *testing.T) {
		shape := NormalizeError(map[string]interface{}{"code": 500})
		assert.Equal(t, "UnknownError", shape.Name)
		assert.NotEmpty(t, shape.Message)
	})

	t.Run("primitive", func(t *testing.T) {
		shape := NormalizeError("something broke")
		assert.Equal(t, "UnknownError", shape.Name)
		assert.Equal(t, "something broke", shape.Message)
	})

	t.Run("nil", func(t *testing.T) {
		shape := NormalizeError(nil)
		assert.Equal(t, "UnknownError", shape.Name)
		assert.Equal(t, "<nil>", shape.Message)
	})
}

func TestNewErrorCarriesNormalizedShape(t *testing.T) {
	evt := NewError(5, 42, errors.New("commit failed"))

	assert.Equal(t, TypeWorkflowError, evt.Type)
	assert.Equal(t, int64(5), evt.WorkflowInstanceID)
	assert.Equal(t, int64(42), evt.UserID)

	shape, ok := evt.Data["error"].(ErrorShape)
	require.True(t, ok)
	assert.Equal(t, "commit failed", shape.Message)
}
