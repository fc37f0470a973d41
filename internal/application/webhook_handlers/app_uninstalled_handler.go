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

// AppUninstalledHandler handles app uninstalled webhook events
type AppUninstalledHandler struct {
	logger   zerolog.Logger
	shops    ports.ShopRepository
	sessions ports.SessionStore
	settings *application.SettingsService
}

// NewAppUninstalledHandler creates a new app uninstalled webhook handler
func NewAppUninstalledHandler(
	logger zerolog.Logger,
	shops ports.ShopRepository,
	sessions ports.SessionStore,
	settings *application.SettingsService,
) *AppUninstalledHandler {
	return &AppUninstalledHandler{
		logger:   logger,
		shops:    shops,
		sessions: sessions,
		settings: settings,
	}
}

// CanHandle returns true if this handler can process the given topic
func (h *AppUninstalledHandler) CanHandle(topic string) bool {
	return topic == domain.TopicAppUninstalled
}

// Handle marks the shop uninstalled and drops its credentials and settings.
// The shop record is kept so a reinstall keeps its ScriptTag preference.
func (h *AppUninstalledHandler) Handle(ctx context.Context, event *domain.WebhookEvent) error {
	shop := eventShop(event)
	if shop == "" {
		h.logger.Warn().Str("topic", event.Topic).Msg("App uninstalled webhook without shop domain")
		return nil
	}

	h.logger.Info().Str("topic", event.Topic).Str("shop", shop).Msg("Processing app uninstalled webhook event")

	var errs error
	if err := h.shops.MarkUninstalled(ctx, shop); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("mark uninstalled: %w", err))
	}
	if err := h.sessions.DeleteByShop(ctx, shop); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("delete sessions: %w", err))
	}
	if err := h.settings.Delete(ctx, shop); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("delete settings: %w", err))
	}
	if errs != nil {
		return errs
	}

	h.logger.Info().Str("shop", shop).Msg("App uninstalled - cleanup completed")
	return nil
}

// eventShop prefers the shop resolved by the transport, then the payload
func eventShop(event *domain.WebhookEvent) string {
	if event.Shop != "" {
		return domain.NormalizeShopDomain(event.Shop)
	}
	return application.ShopFromWebhook(event.Payload, "")
}
