package api

import (
	"encoding/json"
	"net/http"

	"free-shipping-bar/internal/application"
	"free-shipping-bar/internal/infrastructure/metrics"
	"free-shipping-bar/internal/infrastructure/middleware"
	"free-shipping-bar/internal/infrastructure/pubsub"
	"free-shipping-bar/internal/ports"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger"
)

// maxWebhookBody caps the webhook payload read into memory.
const maxWebhookBody = 1 << 20

// RouterConfig holds the HTTP level settings
type RouterConfig struct {
	APIKey         string
	APISecret      string
	DevMode        bool
	AllowedOrigins []string
	SwaggerPath    string
}

// Services bundles the application services the handlers call
type Services struct {
	OAuth         *application.OAuthService
	Settings      *application.SettingsService
	Scripts       *application.ScriptService
	ScriptTags    *application.ScriptTagService
	Subscriptions *application.SubscriptionService
	Webhooks      *application.WebhookService
	Dispatcher    *application.WebhookDispatcher
}

// NewRouter wires every route of the app
func NewRouter(
	cfg RouterConfig,
	svc Services,
	verifier ports.RequestVerifier,
	events *pubsub.WebhookPubSub,
	m *metrics.Metrics,
	logger zerolog.Logger,
) http.Handler {
	if cfg.SwaggerPath == "" {
		cfg.SwaggerPath = "./docs/swagger.json"
	}
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"https://*.myshopify.com", "https://admin.shopify.com"}
	}

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Metrics(m))
	r.Use(middleware.SecurityHeadersMiddleware())
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", m.Handler())

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	r.Get("/swagger/doc.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		http.ServeFile(w, r, cfg.SwaggerPath)
	})

	// OAuth
	r.Get("/auth", oauthBeginHandler(svc.OAuth))
	r.Get("/auth/shopify", oauthBeginHandler(svc.OAuth))
	r.Get(application.CallbackPath, oauthCallbackHandler(svc.OAuth, m, logger))

	// Webhooks
	r.Post(application.WebhookPath, webhookHandler(svc.Webhooks, svc.Dispatcher, verifier, "", m, logger))
	r.Post("/webhooks/app-uninstalled", webhookHandler(svc.Webhooks, svc.Dispatcher, verifier, "app/uninstalled", m, logger))

	// Storefront
	r.Get(application.ScriptPath, scriptHandler(svc.Scripts, m, logger))
	r.With(middleware.AppProxyVerification(verifier, logger)).
		Get("/free-delivery/settings", proxySettingsHandler(svc.Settings, logger))

	// Billing return URL, reached by a top-level redirect from Shopify
	r.Get(application.ConfirmPath, subscriptionConfirmHandler(svc.Subscriptions, cfg.APIKey, logger))

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.SessionTokenAuth(cfg.APIKey, cfg.APISecret, cfg.DevMode, logger))

		r.With(requireSubscription(svc.Subscriptions)).Get("/settings", getSettingsHandler(svc.Settings))
		r.Put("/settings", updateSettingsHandler(svc.Settings))
		r.Post("/settings/update", updateSettingsHandler(svc.Settings))
		r.Get("/banner/preview", previewHandler(svc.Settings))

		r.Post("/scripttag/enable", scriptTagHandler(svc.ScriptTags, true))
		r.Post("/scripttag/disable", scriptTagHandler(svc.ScriptTags, false))

		r.Get("/subscription", subscriptionStatusHandler(svc.Subscriptions))
		r.Post("/subscription", subscribeHandler(svc.Subscriptions))

		r.Get("/events", eventsHandler(events, logger))
	})

	return r
}
