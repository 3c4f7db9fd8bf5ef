package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docuflow/docuflow/internal/application/port"
	"github.com/docuflow/docuflow/internal/domain/entity"
	"github.com/docuflow/docuflow/internal/domain/event"
)

func allChannelsEnabled(_ context.Context, _ string) (bool, error) {
	return true, nil
}

func TestNotificationStrategyFansOutToAssignee(t *testing.T) {
	configRepo := &mockConfigRepo{getBoolFunc: allChannelsEnabled}
	notifier := &mockNotifier{}
	strategy := NewNotificationStrategy(configRepo, &mockUserRepo{}, notifier, nopLogger{})

	evt := event.New(event.TypeTaskAssigned, 5, 1, map[string]interface{}{
		"taskId":     int64(77),
		"assigneeId": int64(42),
	})
	require.NoError(t, strategy.Handle(context.Background(), evt))

	// One notification per enabled channel, all to the assignee.
	require.Len(t, notifier.sent, 3)
	channels := make(map[port.Channel]bool)
	for _, n := range notifier.sent {
		assert.Equal(t, int64(42), n.RecipientID)
		channels[n.Channel] = true
	}
	assert.True(t, channels[port.ChannelEmail])
	assert.True(t, channels[port.ChannelInApp])
	assert.True(t, channels[port.ChannelSMS])
}

func TestNotificationStrategyResolvesRoleMembers(t *testing.T) {
	configRepo := &mockConfigRepo{getBoolFunc: func(_ context.Context, key string) (bool, error) {
		return key == entity.ConfigWorkflowInAppNotifications, nil
	}}
	userRepo := &mockUserRepo{listByRoleIDFunc: func(_ context.Context, roleID int64) ([]*entity.User, error) {
		return []*entity.User{{ID: 11}, {ID: 12}}, nil
	}}
	notifier := &mockNotifier{}
	strategy := NewNotificationStrategy(configRepo, userRepo, notifier, nopLogger{})

	evt := event.New(event.TypeWorkflowStepChanged, 5, 1, map[string]interface{}{
		"assigneeRoleId": int64(7),
	})
	require.NoError(t, strategy.Handle(context.Background(), evt))

	require.Len(t, notifier.sent, 2)
	assert.Equal(t, int64(11), notifier.sent[0].RecipientID)
	assert.Equal(t, int64(12), notifier.sent[1].RecipientID)
	assert.Equal(t, port.ChannelInApp, notifier.sent[0].Channel)
}

func TestNotificationStrategyDegradesToInAppOnConfigError(t *testing.T) {
	configRepo := &mockConfigRepo{getBoolFunc: func(_ context.Context, _ string) (bool, error) {
		return false, errors.New("config store down")
	}}
	notifier := &mockNotifier{}
	strategy := NewNotificationStrategy(configRepo, &mockUserRepo{}, notifier, nopLogger{})

	evt := event.New(event.TypeTaskAssigned, 5, 1, map[string]interface{}{
		"assigneeId": int64(42),
	})
	require.NoError(t, strategy.Handle(context.Background(), evt))

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, port.ChannelInApp, notifier.sent[0].Channel)
}

func TestNotificationStrategySendFailureDoesNotFailHandler(t *testing.T) {
	configRepo := &mockConfigRepo{getBoolFunc: allChannelsEnabled}
	notifier := &mockNotifier{sendFunc: func(_ context.Context, _ port.Notification) error {
		return errors.New("smtp down")
	}}
	strategy := NewNotificationStrategy(configRepo, &mockUserRepo{}, notifier, nopLogger{})

	evt := event.New(event.TypeTaskAssigned, 5, 1, map[string]interface{}{
		"assigneeId": int64(42),
	})
	assert.NoError(t, strategy.Handle(context.Background(), evt))
}

func TestNotificationStrategyTerminalEventFallsBackToActor(t *testing.T) {
	configRepo := &mockConfigRepo{getBoolFunc: func(_ context.Context, key string) (bool, error) {
		return key == entity.ConfigWorkflowInAppNotifications, nil
	}}
	notifier := &mockNotifier{}
	strategy := NewNotificationStrategy(configRepo, &mockUserRepo{}, notifier, nopLogger{})

	evt := event.New(event.TypeWorkflowCompleted, 5, 42, map[string]interface{}{
		"finalStepId": int64(3),
	})
	require.NoError(t, strategy.Handle(context.Background(), evt))

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, int64(42), notifier.sent[0].RecipientID)
}

func TestNotificationStrategyNoRecipients(t *testing.T) {
	configRepo := &mockConfigRepo{getBoolFunc: allChannelsEnabled}
	notifier := &mockNotifier{}
	strategy := NewNotificationStrategy(configRepo, &mockUserRepo{}, notifier, nopLogger{})

	evt := event.New(event.TypeWorkflowStepChanged, 5, 1, nil)
	require.NoError(t, strategy.Handle(context.Background(), evt))
	assert.Empty(t, notifier.sent)
}
