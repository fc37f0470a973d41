package webhook_handlers

import (
	"context"
	"fmt"

	"free-shipping-bar/internal/application"
	"free-shipping-bar/internal/domain"
	"free-shipping-bar/internal/ports"

	"github.com/rs/zerolog"
	"go.uber.org/multierr"
)

// ShopRedactHandler erases everything stored for a shop, 48 hours after
// uninstall
type ShopRedactHandler struct {
	logger        zerolog.Logger
	shops         ports.ShopRepository
	sessions      ports.SessionStore
	settings      *application.SettingsService
	subscriptions *application.SubscriptionService
	webhookLog    ports.WebhookLogRepository
}

// NewShopRedactHandler creates a new shop redact webhook handler
func NewShopRedactHandler(
	logger zerolog.Logger,
	shops ports.ShopRepository,
	sessions ports.SessionStore,
	settings *application.SettingsService,
	subscriptions *application.SubscriptionService,
	webhookLog ports.WebhookLogRepository,
) *ShopRedactHandler {
	return &ShopRedactHandler{
		logger:        logger,
		shops:         shops,
		sessions:      sessions,
		settings:      settings,
		subscriptions: subscriptions,
		webhookLog:    webhookLog,
	}
}

// CanHandle returns true if this handler can process the given topic
func (h *ShopRedactHandler) CanHandle(topic string) bool {
	return topic == domain.TopicShopRedact
}

// Handle deletes the shop, its sessions, settings, subscriptions and
// webhook log. Every step runs even when an earlier one fails.
func (h *ShopRedactHandler) Handle(ctx context.Context, event *domain.WebhookEvent) error {
	shop := eventShop(event)
	if shop == "" {
		h.logger.Warn().Str("topic", event.Topic).Msg("Shop redact webhook without shop domain")
		return nil
	}

	var errs error
	if err := h.sessions.DeleteByShop(ctx, shop); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("delete sessions: %w", err))
	}
	if err := h.settings.Delete(ctx, shop); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("delete settings: %w", err))
	}
	if err := h.subscriptions.DeleteByShop(ctx, shop); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("delete subscriptions: %w", err))
	}
	if err := h.shops.Delete(ctx, shop); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("delete shop: %w", err))
	}
	if err := h.webhookLog.DeleteByShop(ctx, shop); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("delete webhook log: %w", err))
	}
	if errs != nil {
		return errs
	}

	h.logger.Info().Str("shop", shop).Msg("Shop data redacted")
	return nil
}
