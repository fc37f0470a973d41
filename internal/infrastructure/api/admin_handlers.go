package api

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"free-shipping-bar/internal/application"
	"free-shipping-bar/internal/domain"

	"github.com/rs/zerolog"
)

// maxSettingsBody caps the settings document accepted from the admin.
const maxSettingsBody = 64 << 10

func requireSubscription(subs *application.SubscriptionService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := subs.RequireActive(r.Context(), domain.ShopFromContext(r.Context())); err != nil {
				writeError(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func getSettingsHandler(settings *application.SettingsService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		current, err := settings.Get(r.Context(), domain.ShopFromContext(r.Context()))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, current)
	}
}

func updateSettingsHandler(settings *application.SettingsService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxSettingsBody))
		if err != nil {
			verr := &domain.ValidationError{}
			verr.Add("body", "request body too large or unreadable")
			writeError(w, r, verr)
			return
		}

		saved, err := settings.ApplyJSON(r.Context(), domain.ShopFromContext(r.Context()), body)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success":  true,
			"settings": saved,
		})
	}
}

func previewHandler(settings *application.SettingsService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := r.URL.Query().Get("subtotal")
		subtotal, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || subtotal < 0 {
			verr := &domain.ValidationError{}
			verr.Add("subtotal", "must be a non-negative integer amount in minor units")
			writeError(w, r, verr)
			return
		}
		display, err := settings.Preview(r.Context(), domain.ShopFromContext(r.Context()), subtotal)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, display)
	}
}

func scriptTagHandler(scriptTags *application.ScriptTagService, enable bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		shop := domain.ShopFromContext(r.Context())
		var err error
		if enable {
			err = scriptTags.Enable(r.Context(), shop)
		} else {
			err = scriptTags.Disable(r.Context(), shop)
		}
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success":      true,
			"useScriptTag": enable,
		})
	}
}

func subscriptionStatusHandler(subs *application.SubscriptionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, err := subs.Status(r.Context(), domain.ShopFromContext(r.Context()))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, status)
	}
}

func subscribeHandler(subs *application.SubscriptionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		confirmationURL, err := subs.Subscribe(r.Context(), domain.ShopFromContext(r.Context()))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"confirmationUrl": confirmationURL})
	}
}

// subscriptionConfirmHandler is the charge return URL. The merchant lands
// here from Shopify's approval page, so it answers with a redirect back
// into the embedded admin.
func subscriptionConfirmHandler(subs *application.SubscriptionService, apiKey string, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		shop := domain.NormalizeShopDomain(q.Get("shop"))
		chargeID, err := strconv.ParseUint(q.Get("charge_id"), 10, 64)
		if shop == "" || err != nil || chargeID == 0 {
			writeError(w, r, domain.ErrMissingParams)
			return
		}
		if !domain.ValidShopDomain(shop) {
			writeError(w, r, domain.ErrInvalidShop)
			return
		}

		sub, err := subs.Confirm(r.Context(), shop, chargeID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		logger.Info().Str("shop", shop).Uint64("chargeId", chargeID).Str("status", string(sub.Status)).Msg("Charge return handled")

		target := fmt.Sprintf("https://%s/admin/apps/%s", shop, url.PathEscape(apiKey))
		http.Redirect(w, r, target, http.StatusFound)
	}
}
