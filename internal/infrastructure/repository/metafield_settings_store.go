package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"free-shipping-bar/internal/domain"
	"free-shipping-bar/internal/ports"

	"github.com/rs/zerolog"
)

// Metafield coordinates of the settings record.
const (
	SettingsMetafieldNamespace = "free_shipping_bar"
	SettingsMetafieldKey       = "settings"
)

// MetafieldSettingsStore keeps the settings record in a shop-owned metafield,
// authenticated with the shop's offline session.
type MetafieldSettingsStore struct {
	client   ports.ShopifyClient
	sessions ports.SessionStore
	logger   zerolog.Logger
}

// NewMetafieldSettingsStore creates a settings store backed by Shopify metafields
func NewMetafieldSettingsStore(client ports.ShopifyClient, sessions ports.SessionStore, logger zerolog.Logger) ports.SettingsStore {
	return &MetafieldSettingsStore{client: client, sessions: sessions, logger: logger}
}

func (s *MetafieldSettingsStore) token(ctx context.Context, shop string) (string, error) {
	session, err := s.sessions.Load(ctx, domain.OfflineSessionID(shop))
	if err != nil {
		return "", err
	}
	if session == nil || session.AccessToken == "" {
		return "", fmt.Errorf("%s: %w", shop, domain.ErrNoSession)
	}
	return session.AccessToken, nil
}

// Get reads the metafield, nil when it does not exist
func (s *MetafieldSettingsStore) Get(ctx context.Context, shop string) (*domain.ShopSettings, error) {
	token, err := s.token(ctx, shop)
	if err != nil {
		return nil, err
	}
	raw, ok, err := s.client.GetMetafield(ctx, shop, token, SettingsMetafieldNamespace, SettingsMetafieldKey)
	if err != nil {
		return nil, fmt.Errorf("failed to get settings metafield: %w", err)
	}
	if !ok {
		return nil, nil
	}

	settings := domain.DefaultSettings()
	if err := json.Unmarshal([]byte(raw), &settings); err != nil {
		s.logger.Warn().Err(err).Str("shop", shop).Msg("Malformed settings metafield, using defaults")
		settings = domain.DefaultSettings()
	}
	settings.Normalize()
	return &settings, nil
}

// Put writes the settings as a JSON metafield
func (s *MetafieldSettingsStore) Put(ctx context.Context, shop string, settings domain.ShopSettings) error {
	token, err := s.token(ctx, shop)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	if err := s.client.PutMetafield(ctx, shop, token, SettingsMetafieldNamespace, SettingsMetafieldKey, string(payload)); err != nil {
		return fmt.Errorf("failed to save settings metafield: %w", err)
	}
	return nil
}

// Delete removes the metafield. Without a session there is nothing left to
// reach, which happens after uninstall.
func (s *MetafieldSettingsStore) Delete(ctx context.Context, shop string) error {
	token, err := s.token(ctx, shop)
	if err != nil {
		s.logger.Debug().Err(err).Str("shop", shop).Msg("Skipping metafield delete")
		return nil
	}
	if err := s.client.DeleteMetafield(ctx, shop, token, SettingsMetafieldNamespace, SettingsMetafieldKey); err != nil {
		return fmt.Errorf("failed to delete settings metafield: %w", err)
	}
	return nil
}
