package ports

import (
	"context"

	"free-shipping-bar/internal/domain"
)

// SettingsStore persists one settings record per shop. Get returns nil, nil
// when the shop has no record. Put is last-write-wins.
type SettingsStore interface {
	Get(ctx context.Context, shop string) (*domain.ShopSettings, error)
	Put(ctx context.Context, shop string, settings domain.ShopSettings) error
	Delete(ctx context.Context, shop string) error
}

// SessionStore persists OAuth sessions keyed by session id
type SessionStore interface {
	Store(ctx context.Context, session *domain.ShopSession) error
	Load(ctx context.Context, id string) (*domain.ShopSession, error)
	Delete(ctx context.Context, id string) error
	FindByShop(ctx context.Context, shop string) ([]*domain.ShopSession, error)
	DeleteByShop(ctx context.Context, shop string) error
}

// OAuthStateStore holds install nonces. Consume returns the state and
// removes it atomically, so a nonce can complete at most one callback.
type OAuthStateStore interface {
	Save(ctx context.Context, state domain.OAuthState) error
	Consume(ctx context.Context, nonce string) (*domain.OAuthState, error)
}

// ShopRepository defines the interface for shop persistence
type ShopRepository interface {
	Upsert(ctx context.Context, shop *domain.Shop) error
	Get(ctx context.Context, domain string) (*domain.Shop, error)
	MarkUninstalled(ctx context.Context, domain string) error
	SetScriptTag(ctx context.Context, domain string, useScriptTag bool, scriptTagID uint64) error
	Delete(ctx context.Context, domain string) error
}

// SubscriptionRepository defines the interface for billing state persistence
type SubscriptionRepository interface {
	Save(ctx context.Context, sub *domain.Subscription) error
	Latest(ctx context.Context, shop string) (*domain.Subscription, error)
	UpdateStatus(ctx context.Context, shop string, chargeID uint64, status domain.SubscriptionStatus) error
	DeleteByShop(ctx context.Context, shop string) error
}

// WebhookLogRepository records every verified webhook delivery
type WebhookLogRepository interface {
	LogWebhook(ctx context.Context, event *domain.WebhookEvent) error
	DeleteByShop(ctx context.Context, shop string) error
}

// EncryptionService protects secrets stored at rest
type EncryptionService interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// WebhookPublisher fans verified webhook events out to live subscribers
type WebhookPublisher interface {
	Publish(event *domain.WebhookEvent)
}
