package webhook_handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"free-shipping-bar/internal/application"
	"free-shipping-bar/internal/domain"

	"github.com/rs/zerolog"
)

// AppSubscriptionsUpdateHandler keeps the stored billing state in step with
// Shopify
type AppSubscriptionsUpdateHandler struct {
	logger        zerolog.Logger
	subscriptions *application.SubscriptionService
}

// NewAppSubscriptionsUpdateHandler creates a new subscription update webhook handler
func NewAppSubscriptionsUpdateHandler(logger zerolog.Logger, subscriptions *application.SubscriptionService) *AppSubscriptionsUpdateHandler {
	return &AppSubscriptionsUpdateHandler{
		logger:        logger,
		subscriptions: subscriptions,
	}
}

// CanHandle returns true if this handler can process the given topic
func (h *AppSubscriptionsUpdateHandler) CanHandle(topic string) bool {
	return topic == domain.TopicAppSubscriptionsUpdate
}

// Handle applies the pushed charge status
func (h *AppSubscriptionsUpdateHandler) Handle(ctx context.Context, event *domain.WebhookEvent) error {
	var payload struct {
		AppSubscription struct {
			AdminGraphqlAPIID string `json:"admin_graphql_api_id"`
			Name              string `json:"name"`
			Status            string `json:"status"`
		} `json:"app_subscription"`
	}
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		return fmt.Errorf("failed to parse app subscription payload: %w", err)
	}

	shop := eventShop(event)
	chargeID, err := ChargeIDFromGID(payload.AppSubscription.AdminGraphqlAPIID)
	if err != nil || shop == "" {
		h.logger.Warn().
			Err(err).
			Str("shop", shop).
			Str("gid", payload.AppSubscription.AdminGraphqlAPIID).
			Msg("Ignoring app subscription update without charge or shop")
		return nil
	}

	status := domain.ParseSubscriptionStatus(strings.ToLower(payload.AppSubscription.Status))
	if err := h.subscriptions.ApplyStatus(ctx, shop, chargeID, payload.AppSubscription.Name, status); err != nil {
		return err
	}

	h.logger.Info().
		Str("shop", shop).
		Uint64("chargeId", chargeID).
		Str("status", string(status)).
		Msg("Subscription status updated")
	return nil
}

// ChargeIDFromGID parses the numeric id out of gid://shopify/AppSubscription/123
func ChargeIDFromGID(gid string) (uint64, error) {
	idx := strings.LastIndex(gid, "/")
	id, err := strconv.ParseUint(gid[idx+1:], 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid subscription id %q", gid)
	}
	return id, nil
}
