package service

import (
	"context"
	"fmt"

	"github.com/docuflow/docuflow/internal/application/dispatcher"
	"github.com/docuflow/docuflow/internal/application/port"
	"github.com/docuflow/docuflow/internal/domain/entity"
	"github.com/docuflow/docuflow/internal/domain/event"
)

// NotificationStrategy listens for workflow events and fans them out to
// recipients over the channels enabled in configuration. Configuration
// reads happen per event so flag changes take effect without a restart;
// when the flags cannot be read the strategy degrades to in-app only
// rather than going silent.
type NotificationStrategy struct {
	configRepo port.ConfigurationRepository
	userRepo   port.UserRepository
	notifier   port.Notifier
	logger     Logger
}

// NewNotificationStrategy creates a new NotificationStrategy
func NewNotificationStrategy(
	configRepo port.ConfigurationRepository,
	userRepo port.UserRepository,
	notifier port.Notifier,
	logger Logger,
) *NotificationStrategy {
	return &NotificationStrategy{
		configRepo: configRepo,
		userRepo:   userRepo,
		notifier:   notifier,
		logger:     logger,
	}
}

// Register subscribes the strategy to the event types it reacts to.
func (s *NotificationStrategy) Register(d dispatcher.Dispatcher) {
	for _, t := range []event.Type{
		event.TypeWorkflowStarted,
		event.TypeWorkflowStepChanged,
		event.TypeTaskAssigned,
		event.TypeWorkflowCompleted,
		event.TypeWorkflowCancelled,
	} {
		d.SubscribeNamed(t, "notification-strategy", s.Handle)
	}
}

// Handle builds and sends the notifications for one event. Send
// failures are logged per recipient and never fail the handler chain.
func (s *NotificationStrategy) Handle(ctx context.Context, evt *event.Event) error {
	channels := s.enabledChannels(ctx)
	if len(channels) == 0 {
		return nil
	}

	recipients, err := s.resolveRecipients(ctx, evt)
	if err != nil {
		return fmt.Errorf("resolve recipients: %w", err)
	}
	if len(recipients) == 0 {
		return nil
	}

	subject, message := describeEvent(evt)

	for _, recipientID := range recipients {
		for _, ch := range channels {
			n := port.Notification{
				Channel:     ch,
				RecipientID: recipientID,
				Subject:     subject,
				Message:     message,
				Data:        evt.Data,
			}
			if err := s.notifier.Send(ctx, n); err != nil {
				s.logger.Warn("Notification send failed",
					"channel", string(ch),
					"recipient_id", recipientID,
					"event_type", evt.Type.String(),
					"error", err)
			}
		}
	}

	return nil
}

// enabledChannels reads the channel flags. Any read error forces the
// in-app-only fallback.
func (s *NotificationStrategy) enabledChannels(ctx context.Context) []port.Channel {
	flags := []struct {
		key     string
		channel port.Channel
	}{
		{entity.ConfigWorkflowEmailNotifications, port.ChannelEmail},
		{entity.ConfigWorkflowInAppNotifications, port.ChannelInApp},
		{entity.ConfigWorkflowSMSNotifications, port.ChannelSMS},
	}

	var channels []port.Channel
	for _, f := range flags {
		enabled, err := s.configRepo.GetBool(ctx, f.key)
		if err != nil {
			s.logger.Warn("Notification config unreadable, using in-app only",
				"key", f.key,
				"error", err)
			return []port.Channel{port.ChannelInApp}
		}
		if enabled {
			channels = append(channels, f.channel)
		}
	}
	return channels
}

// resolveRecipients decides who hears about the event. A concrete
// assignee wins; otherwise every member of the assignee role is
// notified so one of them can pick the task up.
func (s *NotificationStrategy) resolveRecipients(ctx context.Context, evt *event.Event) ([]int64, error) {
	if id := evt.GetDataInt("assigneeId"); id != 0 {
		return []int64{id}, nil
	}

	if roleID := evt.GetDataInt("assigneeRoleId"); roleID != 0 {
		users, err := s.userRepo.ListByRoleID(ctx, roleID)
		if err != nil {
			return nil, fmt.Errorf("list role members: %w", err)
		}
		ids := make([]int64, 0, len(users))
		for _, u := range users {
			ids = append(ids, u.ID)
		}
		return ids, nil
	}

	// Terminal events without an assignee go back to the actor.
	if (evt.Type == event.TypeWorkflowCompleted || evt.Type == event.TypeWorkflowCancelled) && evt.UserID != 0 {
		return []int64{evt.UserID}, nil
	}

	return nil, nil
}

func describeEvent(evt *event.Event) (subject, message string) {
	switch evt.Type {
	case event.TypeWorkflowStarted:
		return "Workflow started",
			fmt.Sprintf("A workflow was started for document %v.", evt.Data["documentId"])
	case event.TypeWorkflowStepChanged:
		return "Workflow step changed",
			fmt.Sprintf("Workflow instance %d moved to a new step.", evt.WorkflowInstanceID)
	case event.TypeTaskAssigned:
		return "Task assigned",
			fmt.Sprintf("Task %v has been assigned to you.", evt.Data["taskId"])
	case event.TypeWorkflowCompleted:
		return "Workflow completed",
			fmt.Sprintf("Workflow instance %d has completed.", evt.WorkflowInstanceID)
	case event.TypeWorkflowCancelled:
		return "Workflow cancelled",
			fmt.Sprintf("Workflow instance %d was cancelled.", evt.WorkflowInstanceID)
	default:
		return evt.Type.String(), fmt.Sprintf("Workflow event on instance %d.", evt.WorkflowInstanceID)
	}
}
