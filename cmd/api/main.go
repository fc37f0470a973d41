package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"free-shipping-bar/internal/application"
	"free-shipping-bar/internal/application/webhook_handlers"
	"free-shipping-bar/internal/config"
	"free-shipping-bar/internal/infrastructure/api"
	"free-shipping-bar/internal/infrastructure/database"
	"free-shipping-bar/internal/infrastructure/encryption"
	"free-shipping-bar/internal/infrastructure/metrics"
	"free-shipping-bar/internal/infrastructure/pubsub"
	"free-shipping-bar/internal/infrastructure/repository"
	shopifyinfra "free-shipping-bar/internal/infrastructure/shopify"
	"free-shipping-bar/internal/logger"
	"free-shipping-bar/internal/ports"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// stores groups the persistence adapters chosen by configuration
type stores struct {
	settings      ports.SettingsStore
	sessions      ports.SessionStore
	shops         ports.ShopRepository
	subscriptions ports.SubscriptionRepository
	states        ports.OAuthStateStore
	webhookLog    ports.WebhookLogRepository

	closers []func(context.Context) error
}

func (s *stores) close(ctx context.Context) error {
	var errs error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = multierr.Append(errs, s.closers[i](ctx))
	}
	return errs
}

func main() {
	bootLogger := logger.New(logger.Options{ServiceName: "free-shipping-bar"})
	if err := godotenv.Load(); err != nil {
		bootLogger.Warn().Msg(".env file not found, using process environment")
	}

	cfg, err := config.Load()
	if err != nil {
		bootLogger.Fatal().Err(err).Msg("Invalid configuration")
	}

	log := logger.New(logger.Options{
		ServiceName: "free-shipping-bar",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
	})

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("Server stopped with error")
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	encryptionService, err := encryption.NewService(cfg.Security.EncryptionKey)
	if err != nil {
		return fmt.Errorf("initializing encryption: %w", err)
	}
	tokenManager := shopifyinfra.NewTokenManager(encryptionService, log)

	shopifyClient := shopifyinfra.NewClientWithOptions(cfg.Shopify.APIKey, cfg.Shopify.APISecret, shopifyinfra.Options{
		APIVersion: cfg.Shopify.APIVersion,
		Retries:    cfg.Shopify.Retries,
	}, log)
	verifier := shopifyinfra.NewVerifier(cfg.Shopify.APIKey, cfg.Shopify.APISecret)

	st, err := openStores(ctx, cfg, shopifyClient, tokenManager, log)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
		defer cancel()
		if err := st.close(closeCtx); err != nil {
			log.Error().Err(err).Msg("Failed to close stores")
		}
	}()

	price, err := cfg.Billing.PriceDecimal()
	if err != nil {
		return err
	}
	appURL := cfg.App.BaseURL()

	settingsService := application.NewSettingsService(st.settings, log)
	scriptTagService := application.NewScriptTagService(shopifyClient, st.shops, st.sessions, appURL, log)
	subscriptionService := application.NewSubscriptionService(shopifyClient, st.subscriptions, st.sessions, application.BillingConfig{
		Required:  cfg.Billing.Required,
		PlanName:  cfg.Billing.PlanName,
		Price:     price,
		TrialDays: cfg.Billing.TrialDays,
		Test:      !cfg.App.IsProd(),
		AppURL:    appURL,
	}, log)
	oauthService := application.NewOAuthService(
		shopifyClient,
		verifier,
		st.states,
		st.sessions,
		st.shops,
		settingsService,
		scriptTagService,
		application.OAuthConfig{
			APIKey:       cfg.Shopify.APIKey,
			Scopes:       cfg.Shopify.Scopes,
			AppURL:       appURL,
			StateTTL:     cfg.Storage.StateTTL,
			OnlineTokens: cfg.Shopify.OnlineTokens,
			UseScriptTag: cfg.Shopify.UseScriptTag,
		},
		log,
	)

	webhookPubSub := pubsub.NewWebhookPubSub(log)
	webhookService := application.NewWebhookService(st.webhookLog, webhookPubSub, log)

	dispatcher := application.NewWebhookDispatcher(log)
	dispatcher.RegisterHandler(webhook_handlers.NewAppUninstalledHandler(log, st.shops, st.sessions, settingsService))
	dispatcher.RegisterHandler(webhook_handlers.NewShopRedactHandler(log, st.shops, st.sessions, settingsService, subscriptionService, st.webhookLog))
	dispatcher.RegisterHandler(webhook_handlers.NewCustomerPrivacyHandler(log))
	dispatcher.RegisterHandler(webhook_handlers.NewAppSubscriptionsUpdateHandler(log, subscriptionService))

	router := api.NewRouter(
		api.RouterConfig{
			APIKey:         cfg.Shopify.APIKey,
			APISecret:      cfg.Shopify.APISecret,
			DevMode:        cfg.App.IsDev(),
			AllowedOrigins: cfg.Security.AllowedOrigins,
		},
		api.Services{
			OAuth:         oauthService,
			Settings:      settingsService,
			Scripts:       application.NewScriptService(st.shops, settingsService, log),
			ScriptTags:    scriptTagService,
			Subscriptions: subscriptionService,
			Webhooks:      webhookService,
			Dispatcher:    dispatcher,
		},
		verifier,
		webhookPubSub,
		metrics.New(prometheus.NewRegistry()),
		log,
	)

	srv := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().
			Str("port", cfg.App.Port).
			Str("env", cfg.App.Env).
			Str("appUrl", appURL).
			Msg("Starting API server")
		log.Info().Msg("Swagger documentation available at " + appURL + "/swagger/index.html")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down API server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func openStores(
	ctx context.Context,
	cfg *config.Config,
	client ports.ShopifyClient,
	sealer repository.TokenSealer,
	log zerolog.Logger,
) (*stores, error) {
	st := &stores{}

	if cfg.NeedsSQL() {
		db, err := database.Open(ctx, cfg.DB, log)
		if err != nil {
			return nil, err
		}
		st.closers = append(st.closers, func(context.Context) error { return db.Close() })
		if cfg.DB.AutoMigrate {
			if err := db.Migrate(ctx, "up"); err != nil {
				return nil, multierr.Append(fmt.Errorf("running migrations: %w", err), st.close(ctx))
			}
			log.Info().Str("driver", db.Driver()).Msg("Database migrations applied")
		}
		st.shops = repository.NewGormShopRepository(db.DB())
		st.subscriptions = repository.NewGormSubscriptionRepository(db.DB())
		if cfg.Storage.Sessions == config.BackendSQL {
			st.sessions = repository.NewGormSessionStore(db.DB(), sealer)
		}
		if cfg.Storage.Settings == config.BackendSQL {
			st.settings = repository.NewGormSettingsStore(db.DB())
		}
		if cfg.Storage.WebhookLog == config.BackendSQL {
			st.webhookLog = repository.NewGormWebhookLog(db.DB())
		}
	} else {
		log.Warn().Msg("No SQL backend configured, shops and subscriptions are kept in memory")
		st.shops = repository.NewMemoryShopRepository()
		st.subscriptions = repository.NewMemorySubscriptionRepository()
	}

	if st.sessions == nil {
		st.sessions = repository.NewMemorySessionStore()
	}

	switch cfg.Storage.Settings {
	case config.BackendMemory:
		st.settings = repository.NewMemorySettingsStore()
	case config.BackendMetafield:
		st.settings = repository.NewMetafieldSettingsStore(client, st.sessions, log)
	}

	switch cfg.Storage.OAuthState {
	case config.BackendRedis:
		rdb, err := repository.NewRedisClient(ctx, cfg.Redis.URL)
		if err != nil {
			return nil, multierr.Append(err, st.close(ctx))
		}
		st.closers = append(st.closers, func(context.Context) error { return rdb.Close() })
		st.states = repository.NewRedisStateStore(rdb)
	default:
		st.states = repository.NewMemoryStateStore()
	}

	switch cfg.Storage.WebhookLog {
	case config.BackendMongo:
		mc, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
		if err != nil {
			return nil, multierr.Append(fmt.Errorf("connecting to MongoDB: %w", err), st.close(ctx))
		}
		st.closers = append(st.closers, mc.Disconnect)
		webhookLog := repository.NewMongoWebhookLog(mc.Database(cfg.Mongo.Database))
		if indexed, ok := webhookLog.(interface{ EnsureIndexes(context.Context) error }); ok {
			if err := indexed.EnsureIndexes(ctx); err != nil {
				log.Warn().Err(err).Msg("Failed to ensure webhook log indexes")
			}
		}
		st.webhookLog = webhookLog
	case config.BackendNone:
		st.webhookLog = repository.NopWebhookLog{}
	}

	log.Info().
		Str("settings", cfg.Storage.Settings).
		Str("sessions", cfg.Storage.Sessions).
		Str("oauthState", cfg.Storage.OAuthState).
		Str("webhookLog", cfg.Storage.WebhookLog).
		Msg("Storage backends ready")

	return st, nil
}
