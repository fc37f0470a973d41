package api

import (
	"net/http"
	"time"

	"free-shipping-bar/internal/application"
	"free-shipping-bar/internal/infrastructure/metrics"

	"github.com/rs/zerolog"
)

const stateCookie = "shopify_oauth_state"

func oauthBeginHandler(oauth *application.OAuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := oauth.Begin(r.Context(), r.URL.Query().Get("shop"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		http.SetCookie(w, &http.Cookie{
			Name:     stateCookie,
			Value:    res.State,
			Path:     "/",
			Expires:  res.ExpiresAt,
			MaxAge:   int(time.Until(res.ExpiresAt).Seconds()),
			HttpOnly: true,
			Secure:   true,
			SameSite: http.SameSiteLaxMode,
		})
		http.Redirect(w, r, res.RedirectURL, http.StatusFound)
	}
}

func oauthCallbackHandler(oauth *application.OAuthService, m *metrics.Metrics, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var cookieState string
		if c, err := r.Cookie(stateCookie); err == nil {
			cookieState = c.Value
		}

		res, err := oauth.Callback(r.Context(), r.URL.Query(), cookieState)
		if err != nil {
			result := "error"
			if application.IsCallbackClientError(err) {
				result = "rejected"
			}
			m.IncOAuth(result)
			logger.Warn().Err(err).Str("shop", r.URL.Query().Get("shop")).Msg("OAuth callback failed")
			writeError(w, r, err)
			return
		}
		m.IncOAuth("success")

		http.SetCookie(w, &http.Cookie{
			Name:     stateCookie,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   true,
			SameSite: http.SameSiteLaxMode,
		})
		http.Redirect(w, r, res.RedirectURL, http.StatusFound)
	}
}
