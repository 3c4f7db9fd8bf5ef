package notify

import (
	"context"

	"github.com/docuflow/docuflow/internal/application/port"
	"go.uber.org/zap"
)

// LogNotifier writes notifications to the structured log. It stands in
// for real channel integrations (SMTP, push, SMS gateway) in
// deployments that have none configured; the log line carries
// everything a delivery integration would need.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a new LogNotifier
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Send logs the notification
func (n *LogNotifier) Send(_ context.Context, notification port.Notification) error {
	n.logger.Info("Notification",
		zap.String("channel", string(notification.Channel)),
		zap.Int64("recipient_id", notification.RecipientID),
		zap.String("subject", notification.Subject),
		zap.String("message", notification.Message),
		zap.Any("data", notification.Data),
	)
	return nil
}

// Verify interface compliance
var _ port.Notifier = (*LogNotifier)(nil)
