package webhook_handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"free-shipping-bar/internal/domain"

	"github.com/rs/zerolog"
)

// CustomerPrivacyHandler answers the mandatory customer privacy webhooks.
// The app stores no customer data, so both topics are acknowledged.
type CustomerPrivacyHandler struct {
	logger zerolog.Logger
}

// NewCustomerPrivacyHandler creates a new customer privacy webhook handler
func NewCustomerPrivacyHandler(logger zerolog.Logger) *CustomerPrivacyHandler {
	return &CustomerPrivacyHandler{
		logger: logger,
	}
}

// CanHandle returns true if this handler can process the given topic
func (h *CustomerPrivacyHandler) CanHandle(topic string) bool {
	return topic == domain.TopicCustomersRedact || topic == domain.TopicCustomersDataRequest
}

// Handle logs the request identifiers and acknowledges it
func (h *CustomerPrivacyHandler) Handle(ctx context.Context, event *domain.WebhookEvent) error {
	var request struct {
		ShopDomain string `json:"shop_domain"`
		Customer   struct {
			ID int64 `json:"id"`
		} `json:"customer"`
		OrdersRequested []int64 `json:"orders_requested"`
		OrdersToRedact  []int64 `json:"orders_to_redact"`
	}
	if err := json.Unmarshal(event.Payload, &request); err != nil {
		return fmt.Errorf("failed to parse customer privacy webhook payload: %w", err)
	}

	h.logger.Info().
		Str("topic", event.Topic).
		Str("shop", event.Shop).
		Int64("customerId", request.Customer.ID).
		Int("orders", len(request.OrdersRequested)+len(request.OrdersToRedact)).
		Msg("Customer privacy request acknowledged, no customer data stored")

	return nil
}
