package ports

import (
	"context"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
)

// AccessToken is the result of an authorization code exchange
type AccessToken struct {
	Token            string
	Scope            string
	ExpiresIn        int
	AssociatedUserID int64
}

// ShopInfo is the subset of the Shopify shop resource the app keeps
type ShopInfo struct {
	Domain        string
	Name          string
	Email         string
	Currency      string
	PrimaryLocale string
}

// RecurringCharge is a recurring application charge
type RecurringCharge struct {
	ID              uint64
	Name            string
	Price           decimal.Decimal
	Status          string
	ReturnURL       string
	ConfirmationURL string
	Test            bool
	TrialDays       int
	TrialEndsOn     *time.Time
	BillingOn       *time.Time
}

// ShopifyClient defines the interface for Shopify API operations
type ShopifyClient interface {
	// Authentication
	GenerateAuthURL(shop string, scopes []string, redirectURI string, state string, online bool) string
	ExchangeToken(ctx context.Context, shop string, code string, redirectURI string) (*AccessToken, error)

	// Shop API
	GetShop(ctx context.Context, shop string, accessToken string) (*ShopInfo, error)

	// Webhook API
	CreateWebhook(ctx context.Context, shop string, accessToken string, topic string, address string) error

	// ScriptTag API
	CreateScriptTag(ctx context.Context, shop string, accessToken string, src string) (uint64, error)
	DeleteScriptTag(ctx context.Context, shop string, accessToken string, scriptTagID uint64) error

	// Billing API
	CreateRecurringCharge(ctx context.Context, shop string, accessToken string, charge RecurringCharge) (*RecurringCharge, error)
	GetRecurringCharge(ctx context.Context, shop string, accessToken string, chargeID uint64) (*RecurringCharge, error)

	// Metafield API (shop owned)
	GetMetafield(ctx context.Context, shop string, accessToken string, namespace string, key string) (string, bool, error)
	PutMetafield(ctx context.Context, shop string, accessToken string, namespace string, key string, jsonValue string) error
	DeleteMetafield(ctx context.Context, shop string, accessToken string, namespace string, key string) error
}

// RequestVerifier checks the signatures Shopify attaches to inbound requests
type RequestVerifier interface {
	VerifyOAuthCallback(query url.Values) error
	VerifyWebhook(payload []byte, hmacHeader string) error
	VerifyAppProxy(query url.Values) error
}
