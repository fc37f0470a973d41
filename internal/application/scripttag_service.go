package application

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"free-shipping-bar/internal/domain"
	"free-shipping-bar/internal/ports"

	"github.com/rs/zerolog"
)

// ScriptPath is the route serving the storefront banner script.
const ScriptPath = "/free-shipping-bar.js"

// ScriptTagService installs and removes the storefront ScriptTag
type ScriptTagService struct {
	client   ports.ShopifyClient
	shops    ports.ShopRepository
	sessions ports.SessionStore
	appURL   string
	logger   zerolog.Logger
	now      func() time.Time
}

// NewScriptTagService creates a new ScriptTag service
func NewScriptTagService(
	client ports.ShopifyClient,
	shops ports.ShopRepository,
	sessions ports.SessionStore,
	appURL string,
	logger zerolog.Logger,
) *ScriptTagService {
	return &ScriptTagService{
		client:   client,
		shops:    shops,
		sessions: sessions,
		appURL:   strings.TrimRight(appURL, "/"),
		logger:   logger,
		now:      time.Now,
	}
}

// ScriptURL is the src registered for a shop's ScriptTag
func (s *ScriptTagService) ScriptURL(shop string) string {
	return s.appURL + ScriptPath + "?shop=" + url.QueryEscape(shop)
}

// Install registers the ScriptTag with an explicit token (used during OAuth
// before the session is readable) and records its id.
func (s *ScriptTagService) Install(ctx context.Context, shop string, accessToken string) (uint64, error) {
	id, err := s.client.CreateScriptTag(ctx, shop, accessToken, s.ScriptURL(shop))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrUpstream, err)
	}
	if err := s.shops.SetScriptTag(ctx, shop, true, id); err != nil {
		return id, fmt.Errorf("failed to record script tag: %w", err)
	}
	s.logger.Info().Str("shop", shop).Uint64("scriptTagId", id).Msg("ScriptTag installed")
	return id, nil
}

// Enable turns ScriptTag delivery back on for a shop
func (s *ScriptTagService) Enable(ctx context.Context, shop string) error {
	existing, err := s.shops.Get(ctx, shop)
	if err != nil {
		return err
	}
	if existing == nil {
		return domain.ErrNotFound
	}
	if existing.UseScriptTag && existing.ScriptTagID != 0 {
		return nil
	}
	token, err := offlineToken(ctx, s.sessions, shop, s.now())
	if err != nil {
		return err
	}
	_, err = s.Install(ctx, shop, token)
	return err
}

// Disable removes the ScriptTag so the theme extension can take over. The
// delivery flag is cleared even when the remote delete fails so the script
// endpoint stops rendering the bar.
func (s *ScriptTagService) Disable(ctx context.Context, shop string) error {
	existing, err := s.shops.Get(ctx, shop)
	if err != nil {
		return err
	}
	if existing == nil {
		return domain.ErrNotFound
	}
	if existing.ScriptTagID != 0 {
		token, err := offlineToken(ctx, s.sessions, shop, s.now())
		switch {
		case err == nil:
			if err := s.client.DeleteScriptTag(ctx, shop, token, existing.ScriptTagID); err != nil {
				s.logger.Warn().Err(err).Str("shop", shop).Uint64("scriptTagId", existing.ScriptTagID).Msg("Failed to delete ScriptTag")
			}
		case errors.Is(err, domain.ErrNoSession):
			s.logger.Warn().Str("shop", shop).Msg("No session to delete ScriptTag")
		default:
			return err
		}
	}
	if err := s.shops.SetScriptTag(ctx, shop, false, 0); err != nil {
		return err
	}
	s.logger.Info().Str("shop", shop).Msg("ScriptTag disabled")
	return nil
}
