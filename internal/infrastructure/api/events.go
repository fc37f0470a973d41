package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"free-shipping-bar/internal/domain"
	"free-shipping-bar/internal/infrastructure/pubsub"

	"github.com/rs/zerolog"
)

// heartbeatInterval keeps idle proxies from closing the stream.
var heartbeatInterval = 25 * time.Second

// eventsHandler streams the webhook notices of the authenticated shop as
// server-sent events.
func eventsHandler(events *pubsub.WebhookPubSub, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "streaming unsupported"})
			return
		}

		shop := domain.ShopFromContext(r.Context())
		sub := events.Subscribe(r.Context(), pubsub.Filter{Shop: shop})
		defer sub.Close()

		h := w.Header()
		h.Set("Content-Type", "text/event-stream")
		h.Set("Cache-Control", "no-cache")
		h.Set("Connection", "keep-alive")
		h.Set("X-Accel-Buffering", "no")
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprint(w, ": connected\n\n")
		flusher.Flush()

		ticker := time.NewTicker(heartbeatInterval)
		defer ticker.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case <-ticker.C:
				if _, err := fmt.Fprint(w, ": heartbeat\n\n"); err != nil {
					return
				}
				flusher.Flush()
			case notice, ok := <-sub.Events:
				if !ok {
					return
				}
				data, err := json.Marshal(notice)
				if err != nil {
					logger.Error().Err(err).Msg("Failed to encode webhook notice")
					continue
				}
				if _, err := fmt.Fprintf(w, "id: %s\nevent: webhook\ndata: %s\n\n", notice.ID, data); err != nil {
					return
				}
				flusher.Flush()
			}
		}
	}
}
