package domain

import "time"

// Webhook topics the app subscribes to or must answer.
const (
	TopicAppUninstalled         = "app/uninstalled"
	TopicShopRedact             = "shop/redact"
	TopicCustomersRedact        = "customers/redact"
	TopicCustomersDataRequest   = "customers/data_request"
	TopicAppSubscriptionsUpdate = "app_subscriptions/update"
)

// WebhookEvent represents a webhook delivery received from Shopify
type WebhookEvent struct {
	ID         string    `json:"id"`
	Topic      string    `json:"topic"`
	Shop       string    `json:"shop"`
	WebhookID  string    `json:"webhookId,omitempty"`
	Payload    []byte    `json:"payload"`
	Verified   bool      `json:"verified"`
	ReceivedAt time.Time `json:"receivedAt"`
}
