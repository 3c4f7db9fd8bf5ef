package port

import (
	"context"

	"github.com/docuflow/docuflow/internal/domain/event"
)

// Channel identifies a notification delivery channel.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelInApp Channel = "in_app"
	ChannelSMS   Channel = "sms"
)

// Notification is a single message for one recipient on one channel.
// Delivery mechanics live behind the Notifier implementation.
type Notification struct {
	Channel     Channel
	RecipientID int64
	Subject     string
	Message     string
	Data        map[string]interface{}
}

// Notifier dispatches notifications. Implementations must be safe for
// concurrent use.
type Notifier interface {
	Send(ctx context.Context, n Notification) error
}

// EventSink publishes workflow events. The orchestrating services
// depend on this narrow interface so tests can substitute a capturing
// sink for the process dispatcher.
type EventSink interface {
	Publish(ctx context.Context, evt *event.Event)
}
