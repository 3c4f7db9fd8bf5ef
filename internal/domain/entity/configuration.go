package entity

// Configuration keys consumed by the notification strategy.
const (
	ConfigWorkflowEmailNotifications = "WORKFLOW_EMAIL_NOTIFICATIONS"
	ConfigWorkflowInAppNotifications = "WORKFLOW_INAPP_NOTIFICATIONS"
	ConfigWorkflowSMSNotifications   = "WORKFLOW_SMS_NOTIFICATIONS"
)

// ConfigurationEntry is a single key/value setting from the
// configuration store.
type ConfigurationEntry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
	Type  string `json:"type"`
}
