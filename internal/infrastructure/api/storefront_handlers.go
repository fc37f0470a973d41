package api

import (
	"net/http"

	"free-shipping-bar/internal/application"
	"free-shipping-bar/internal/domain"
	"free-shipping-bar/internal/infrastructure/metrics"

	"github.com/rs/zerolog"
)

func scriptHandler(scripts *application.ScriptService, m *metrics.Metrics, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/javascript; charset=utf-8")

		script, err := scripts.Render(r.Context(), r.URL.Query().Get("shop"))
		if err != nil {
			logger.Error().Err(err).Str("shop", r.URL.Query().Get("shop")).Msg("Failed to render banner script")
			m.IncScriptRender("error")
			w.Header().Set("Cache-Control", "no-store")
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte("// Error: failed to load free shipping bar\n"))
			return
		}
		m.IncScriptRender(string(script.Outcome))

		if script.Outcome == application.ScriptMissingShop {
			w.Header().Set("Cache-Control", "no-store")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(script.Body))
			return
		}
		w.Header().Set("Cache-Control", "public, max-age=60")
		_, _ = w.Write([]byte(script.Body))
	}
}

// proxySettingsHandler serves the theme extension. Storefront rendering
// never fails on a storage error, it falls back to defaults.
func proxySettingsHandler(settings *application.SettingsService, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		shop := domain.ShopFromContext(r.Context())
		current, _, err := settings.Snapshot(r.Context(), shop)
		if err != nil {
			logger.Error().Err(err).Str("shop", shop).Msg("Failed to load settings for app proxy, serving defaults")
			current = domain.DefaultSettings()
		}
		current.Normalize()
		w.Header().Set("Cache-Control", "public, max-age=60")
		writeJSON(w, http.StatusOK, current)
	}
}
