package application

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"free-shipping-bar/internal/domain"
	"free-shipping-bar/internal/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.uber.org/multierr"
)

// WebhookHandler processes the webhook topics it claims
type WebhookHandler interface {
	CanHandle(topic string) bool
	Handle(ctx context.Context, event *domain.WebhookEvent) error
}

// WebhookDispatcher routes webhook events to the registered handlers
type WebhookDispatcher struct {
	mu       sync.RWMutex
	handlers []WebhookHandler
	logger   zerolog.Logger
}

// NewWebhookDispatcher creates an empty dispatcher
func NewWebhookDispatcher(logger zerolog.Logger) *WebhookDispatcher {
	return &WebhookDispatcher{logger: logger}
}

// RegisterHandler adds a handler. Handlers run in registration order.
func (d *WebhookDispatcher) RegisterHandler(h WebhookHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers = append(d.handlers, h)
}

// Dispatch runs every handler that claims the topic. Topics nobody handles
// are acknowledged so Shopify does not retry them.
func (d *WebhookDispatcher) Dispatch(ctx context.Context, event *domain.WebhookEvent) error {
	d.mu.RLock()
	handlers := make([]WebhookHandler, 0, len(d.handlers))
	for _, h := range d.handlers {
		if h.CanHandle(event.Topic) {
			handlers = append(handlers, h)
		}
	}
	d.mu.RUnlock()

	if len(handlers) == 0 {
		d.logger.Debug().Str("topic", event.Topic).Str("shop", event.Shop).Msg("No handler for webhook topic")
		return nil
	}

	var errs error
	for _, h := range handlers {
		if err := h.Handle(ctx, event); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", event.Topic, err))
		}
	}
	return errs
}

// WebhookService records verified deliveries and fans them out to
// in-process subscribers
type WebhookService struct {
	log       ports.WebhookLogRepository
	publisher ports.WebhookPublisher
	logger    zerolog.Logger
	now       func() time.Time
}

// NewWebhookService creates a new webhook service. publisher may be nil.
func NewWebhookService(log ports.WebhookLogRepository, publisher ports.WebhookPublisher, logger zerolog.Logger) *WebhookService {
	return &WebhookService{
		log:       log,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// ProcessWebhook builds the event for a delivery, logs it and publishes it.
// A logging failure is reported but the event is still returned.
func (s *WebhookService) ProcessWebhook(ctx context.Context, topic string, shop string, webhookID string, payload []byte, verified bool) (*domain.WebhookEvent, error) {
	event := &domain.WebhookEvent{
		ID:         uuid.NewString(),
		Topic:      topic,
		Shop:       shop,
		WebhookID:  webhookID,
		Payload:    payload,
		Verified:   verified,
		ReceivedAt: s.now().UTC(),
	}

	var err error
	if logErr := s.log.LogWebhook(ctx, event); logErr != nil {
		s.logger.Error().Err(logErr).Str("topic", topic).Str("shop", shop).Msg("Failed to log webhook")
		err = fmt.Errorf("failed to log webhook: %w", logErr)
	}

	if s.publisher != nil {
		s.publisher.Publish(event)
	}

	s.logger.Info().Str("topic", topic).Str("shop", shop).Bool("verified", verified).Msg("Webhook processed")
	return event, err
}

// ShopFromWebhook extracts the shop domain from a payload, falling back to
// the X-Shopify-Shop-Domain header value.
func ShopFromWebhook(payload []byte, header string) string {
	var body struct {
		Domain          string `json:"domain"`
		MyshopifyDomain string `json:"myshopify_domain"`
		ShopDomain      string `json:"shop_domain"`
	}
	if err := json.Unmarshal(payload, &body); err == nil {
		for _, candidate := range []string{body.MyshopifyDomain, body.ShopDomain, body.Domain} {
			if shop := domain.NormalizeShopDomain(candidate); domain.ValidShopDomain(shop) {
				return shop
			}
		}
	}
	return domain.NormalizeShopDomain(header)
}
