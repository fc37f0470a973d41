package application

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"free-shipping-bar/internal/domain"
	"free-shipping-bar/internal/ports"

	"github.com/rs/zerolog"
)

// CallbackPath is the OAuth redirect route registered with Shopify.
const CallbackPath = "/auth/callback"

// WebhookPath is the single webhook endpoint registered for every topic.
const WebhookPath = "/webhooks/shopify"

// OAuthConfig holds the app-level install settings
type OAuthConfig struct {
	APIKey       string
	Scopes       []string
	AppURL       string
	StateTTL     time.Duration
	OnlineTokens bool
	UseScriptTag bool
}

// BeginResult carries what the init handler needs to redirect
type BeginResult struct {
	RedirectURL string
	State       string
	ExpiresAt   time.Time
}

// CallbackResult carries the outcome of a completed install
type CallbackResult struct {
	Shop        string
	RedirectURL string
}

// OAuthService runs the Shopify install handshake
type OAuthService struct {
	client     ports.ShopifyClient
	verifier   ports.RequestVerifier
	states     ports.OAuthStateStore
	sessions   ports.SessionStore
	shops      ports.ShopRepository
	settings   *SettingsService
	scriptTags *ScriptTagService
	cfg        OAuthConfig
	logger     zerolog.Logger
	now        func() time.Time
}

// NewOAuthService creates a new OAuth service
func NewOAuthService(
	client ports.ShopifyClient,
	verifier ports.RequestVerifier,
	states ports.OAuthStateStore,
	sessions ports.SessionStore,
	shops ports.ShopRepository,
	settings *SettingsService,
	scriptTags *ScriptTagService,
	cfg OAuthConfig,
	logger zerolog.Logger,
) *OAuthService {
	if cfg.StateTTL <= 0 {
		cfg.StateTTL = 10 * time.Minute
	}
	cfg.AppURL = strings.TrimRight(cfg.AppURL, "/")
	return &OAuthService{
		client:     client,
		verifier:   verifier,
		states:     states,
		sessions:   sessions,
		shops:      shops,
		settings:   settings,
		scriptTags: scriptTags,
		cfg:        cfg,
		logger:     logger,
		now:        time.Now,
	}
}

func (s *OAuthService) redirectURI() string {
	return s.cfg.AppURL + CallbackPath
}

// Begin validates the shop and issues a single-use state nonce
func (s *OAuthService) Begin(ctx context.Context, shop string) (*BeginResult, error) {
	shop = domain.NormalizeShopDomain(shop)
	if shop == "" {
		return nil, fmt.Errorf("shop: %w", domain.ErrMissingParams)
	}
	if !domain.ValidShopDomain(shop) {
		return nil, fmt.Errorf("%q: %w", shop, domain.ErrInvalidShop)
	}

	nonceBytes := make([]byte, 16)
	if _, err := rand.Read(nonceBytes); err != nil {
		return nil, fmt.Errorf("failed to generate state: %w", err)
	}
	nonce := hex.EncodeToString(nonceBytes)
	expires := s.now().Add(s.cfg.StateTTL)

	if err := s.states.Save(ctx, domain.OAuthState{
		Nonce:     nonce,
		Shop:      shop,
		IsOnline:  s.cfg.OnlineTokens,
		ExpiresAt: expires,
	}); err != nil {
		return nil, fmt.Errorf("failed to save state: %w", err)
	}

	s.logger.Info().Str("shop", shop).Msg("Starting OAuth")

	return &BeginResult{
		RedirectURL: s.client.GenerateAuthURL(shop, s.cfg.Scopes, s.redirectURI(), nonce, s.cfg.OnlineTokens),
		State:       nonce,
		ExpiresAt:   expires,
	}, nil
}

// Callback completes the install. cookieState is the nonce echoed by the
// browser cookie; an empty value skips that check.
func (s *OAuthService) Callback(ctx context.Context, query url.Values, cookieState string) (*CallbackResult, error) {
	shop := domain.NormalizeShopDomain(query.Get("shop"))
	code := query.Get("code")
	nonce := query.Get("state")
	if shop == "" || code == "" || nonce == "" || query.Get("hmac") == "" {
		return nil, domain.ErrMissingParams
	}
	if !domain.ValidShopDomain(shop) {
		return nil, fmt.Errorf("%q: %w", shop, domain.ErrInvalidShop)
	}

	if err := s.verifier.VerifyOAuthCallback(query); err != nil {
		s.logger.Warn().Err(err).Str("shop", shop).Msg("OAuth callback HMAC verification failed")
		return nil, err
	}

	state, err := s.states.Consume(ctx, nonce)
	if err != nil {
		return nil, fmt.Errorf("failed to consume state: %w", err)
	}
	if state == nil || state.Shop != shop {
		return nil, domain.ErrInvalidState
	}
	if cookieState != "" && subtle.ConstantTimeCompare([]byte(cookieState), []byte(nonce)) != 1 {
		return nil, domain.ErrInvalidState
	}

	token, err := s.client.ExchangeToken(ctx, shop, code, s.redirectURI())
	if err != nil {
		s.logger.Error().Err(err).Str("shop", shop).Msg("Failed to exchange token")
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstream, err)
	}

	now := s.now()
	session := sessionFromToken(shop, token, state.IsOnline, now)
	session.State = nonce
	if err := s.sessions.Store(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}

	record := &domain.Shop{Domain: shop, UseScriptTag: s.cfg.UseScriptTag}
	info, err := s.client.GetShop(ctx, shop, token.Token)
	if err != nil {
		s.logger.Warn().Err(err).Str("shop", shop).Msg("Failed to fetch shop info")
	} else {
		record.Name = info.Name
		record.Email = info.Email
		record.Currency = info.Currency
		record.PrimaryLocale = info.PrimaryLocale
	}
	if err := s.shops.Upsert(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to save shop: %w", err)
	}

	if err := s.settings.EnsureDefaults(ctx, shop, record.Currency); err != nil {
		// the settings API recreates defaults on first read
		s.logger.Error().Err(err).Str("shop", shop).Msg("Failed to create default settings")
	}

	if err := s.client.CreateWebhook(ctx, shop, token.Token, domain.TopicAppUninstalled, s.cfg.AppURL+WebhookPath); err != nil {
		s.logger.Warn().Err(err).Str("shop", shop).Msg("Failed to register app/uninstalled webhook")
	}

	if s.cfg.UseScriptTag && !state.IsOnline {
		existing, err := s.shops.Get(ctx, shop)
		if err == nil && existing != nil && existing.UseScriptTag && existing.ScriptTagID == 0 {
			if _, err := s.scriptTags.Install(ctx, shop, token.Token); err != nil {
				s.logger.Warn().Err(err).Str("shop", shop).Msg("Failed to install ScriptTag")
			}
		}
	}

	s.logger.Info().
		Str("shop", shop).
		Str("scope", token.Scope).
		Bool("online", state.IsOnline).
		Msg("OAuth completed")

	return &CallbackResult{
		Shop:        shop,
		RedirectURL: fmt.Sprintf("https://%s/admin/apps/%s", shop, url.PathEscape(s.cfg.APIKey)),
	}, nil
}

// IsCallbackClientError reports whether err is caused by the request rather
// than by the server.
func IsCallbackClientError(err error) bool {
	return errors.Is(err, domain.ErrMissingParams) ||
		errors.Is(err, domain.ErrInvalidShop) ||
		errors.Is(err, domain.ErrInvalidSignature) ||
		errors.Is(err, domain.ErrInvalidState)
}
