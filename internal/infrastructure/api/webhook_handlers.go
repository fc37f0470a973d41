package api

import (
	"io"
	"net/http"

	"free-shipping-bar/internal/application"
	"free-shipping-bar/internal/infrastructure/metrics"
	"free-shipping-bar/internal/ports"

	"github.com/rs/zerolog"
)

// webhookHandler verifies and dispatches a Shopify webhook. defaultTopic is
// used when the topic header is absent.
func webhookHandler(
	webhooks *application.WebhookService,
	dispatcher *application.WebhookDispatcher,
	verifier ports.RequestVerifier,
	defaultTopic string,
	m *metrics.Metrics,
	logger zerolog.Logger,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		topic := r.Header.Get("X-Shopify-Topic")
		if topic == "" {
			topic = defaultTopic
		}
		if topic == "" {
			logger.Warn().Msg("Missing X-Shopify-Topic header")
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing X-Shopify-Topic header"})
			return
		}

		payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
		if err != nil {
			logger.Error().Err(err).Str("topic", topic).Msg("Failed to read webhook payload")
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "failed to read request body"})
			return
		}
		defer r.Body.Close()

		if err := verifier.VerifyWebhook(payload, r.Header.Get("X-Shopify-Hmac-Sha256")); err != nil {
			logger.Warn().Err(err).Str("topic", topic).Msg("Webhook signature verification failed")
			m.IncWebhook(topic, "rejected")
			writeError(w, r, err)
			return
		}

		shop := application.ShopFromWebhook(payload, r.Header.Get("X-Shopify-Shop-Domain"))

		event, err := webhooks.ProcessWebhook(ctx, topic, shop, r.Header.Get("X-Shopify-Webhook-Id"), payload, true)
		if err != nil {
			logger.Error().Err(err).Str("topic", topic).Msg("Failed to log webhook event")
		}

		if err := dispatcher.Dispatch(ctx, event); err != nil {
			logger.Error().
				Err(err).
				Str("topic", topic).
				Str("shop", shop).
				Msg("Failed to dispatch webhook event")
			m.IncWebhook(topic, "error")
			// a 5xx makes Shopify retry the delivery
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to process webhook event"})
			return
		}

		m.IncWebhook(topic, "ok")
		writeJSON(w, http.StatusOK, map[string]string{"received": "true"})
	}
}
