package application

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"free-shipping-bar/internal/domain"
	"free-shipping-bar/internal/infrastructure/repository"
	"free-shipping-bar/internal/ports"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	testShop   = "demo.myshopify.com"
	testAPIKey = "api-key"
	testAppURL = "https://app.example.com"
)

var errBoom = errors.New("boom")

type fakeShopifyClient struct {
	mu sync.Mutex

	exchangeErr  error
	token        ports.AccessToken
	shopInfo     *ports.ShopInfo
	shopErr      error
	webhookErr   error
	scriptTagID  uint64
	scriptTagErr error
	deleteErr    error
	chargeErr    error
	charge       ports.RecurringCharge

	webhooks       []string
	scriptTagSrcs  []string
	deletedTags    []uint64
	createdCharges []ports.RecurringCharge
}

func newFakeShopifyClient() *fakeShopifyClient {
	return &fakeShopifyClient{
		token:       ports.AccessToken{Token: "shpat_secret", Scope: "write_script_tags,read_script_tags"},
		shopInfo:    &ports.ShopInfo{Domain: testShop, Name: "Demo", Email: "owner@example.com", Currency: "PLN", PrimaryLocale: "pl"},
		scriptTagID: 77,
		charge: ports.RecurringCharge{
			ID:              901,
			Name:            "Free Delivery Bar",
			Price:           decimal.RequireFromString("4.99"),
			Status:          "pending",
			ConfirmationURL: "https://demo.myshopify.com/admin/charges/901/confirm",
		},
	}
}

func (f *fakeShopifyClient) GenerateAuthURL(shop string, scopes []string, redirectURI string, state string, online bool) string {
	q := url.Values{}
	q.Set("redirect_uri", redirectURI)
	q.Set("state", state)
	return fmt.Sprintf("https://%s/admin/oauth/authorize?%s", shop, q.Encode())
}

func (f *fakeShopifyClient) ExchangeToken(_ context.Context, _ string, _ string, _ string) (*ports.AccessToken, error) {
	if f.exchangeErr != nil {
		return nil, f.exchangeErr
	}
	token := f.token
	return &token, nil
}

func (f *fakeShopifyClient) GetShop(_ context.Context, _ string, _ string) (*ports.ShopInfo, error) {
	if f.shopErr != nil {
		return nil, f.shopErr
	}
	info := *f.shopInfo
	return &info, nil
}

func (f *fakeShopifyClient) CreateWebhook(_ context.Context, _ string, _ string, topic string, address string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.webhookErr != nil {
		return f.webhookErr
	}
	f.webhooks = append(f.webhooks, topic+" "+address)
	return nil
}

func (f *fakeShopifyClient) CreateScriptTag(_ context.Context, _ string, _ string, src string) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.scriptTagErr != nil {
		return 0, f.scriptTagErr
	}
	f.scriptTagSrcs = append(f.scriptTagSrcs, src)
	return f.scriptTagID, nil
}

func (f *fakeShopifyClient) DeleteScriptTag(_ context.Context, _ string, _ string, id uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletedTags = append(f.deletedTags, id)
	return f.deleteErr
}

func (f *fakeShopifyClient) CreateRecurringCharge(_ context.Context, _ string, _ string, charge ports.RecurringCharge) (*ports.RecurringCharge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.chargeErr != nil {
		return nil, f.chargeErr
	}
	f.createdCharges = append(f.createdCharges, charge)
	created := f.charge
	created.ReturnURL = charge.ReturnURL
	created.Test = charge.Test
	return &created, nil
}

func (f *fakeShopifyClient) GetRecurringCharge(_ context.Context, _ string, _ string, id uint64) (*ports.RecurringCharge, error) {
	if f.chargeErr != nil {
		return nil, f.chargeErr
	}
	charge := f.charge
	charge.ID = id
	return &charge, nil
}

func (f *fakeShopifyClient) GetMetafield(context.Context, string, string, string, string) (string, bool, error) {
	return "", false, nil
}

func (f *fakeShopifyClient) PutMetafield(context.Context, string, string, string, string, string) error {
	return nil
}

func (f *fakeShopifyClient) DeleteMetafield(context.Context, string, string, string, string) error {
	return nil
}

type stubVerifier struct {
	err error
}

func (v stubVerifier) VerifyOAuthCallback(url.Values) error { return v.err }
func (v stubVerifier) VerifyWebhook([]byte, string) error { return v.err }
func (v stubVerifier) VerifyAppProxy(url.Values) error { return v.err }

type recordingWebhookLog struct {
	mu      sync.Mutex
	events  []*domain.WebhookEvent
	deleted []string
	err     error
}

func (r *recordingWebhookLog) LogWebhook(_ context.Context, event *domain.WebhookEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, event)
	return nil
}

func (r *recordingWebhookLog) DeleteByShop(_ context.Context, shop string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted = append(r.deleted, shop)
	return nil
}

type recordingPublisher struct {
	events []*domain.WebhookEvent
}

func (p *recordingPublisher) Publish(event *domain.WebhookEvent) {
	p.events = append(p.events, event)
}

// fixture wires the application services over in-memory stores
type fixture struct {
	client        *fakeShopifyClient
	settingsStore *repository.MemorySettingsStore
	sessions      *repository.MemorySessionStore
	shops         *repository.MemoryShopRepository
	subs          *repository.MemorySubscriptionRepository
	states        *repository.MemoryStateStore

	settings      *SettingsService
	scriptTags    *ScriptTagService
	subscriptions *SubscriptionService
}

func newFixture() *fixture {
	f := &fixture{
		client:        newFakeShopifyClient(),
		settingsStore: repository.NewMemorySettingsStore(),
		sessions:      repository.NewMemorySessionStore(),
		shops:         repository.NewMemoryShopRepository(),
		subs:          repository.NewMemorySubscriptionRepository(),
		states:        repository.NewMemoryStateStore(),
	}
	logger := zerolog.Nop()
	f.settings = NewSettingsService(f.settingsStore, logger)
	f.scriptTags = NewScriptTagService(f.client, f.shops, f.sessions, testAppURL, logger)
	f.subscriptions = NewSubscriptionService(f.client, f.subs, f.sessions, BillingConfig{
		Required:  true,
		PlanName:  "Free Delivery Bar",
		Price:     decimal.RequireFromString("4.99"),
		TrialDays: 7,
		Test:      true,
		AppURL:    testAppURL,
	}, logger)
	return f
}

// install stores an installed shop with an offline session
func (f *fixture) install(ctx context.Context, useScriptTag bool, scriptTagID uint64) {
	now := time.Now()
	_ = f.shops.Upsert(ctx, &domain.Shop{Domain: testShop, Name: "Demo", UseScriptTag: useScriptTag, ScriptTagID: scriptTagID})
	_ = f.sessions.Store(ctx, &domain.ShopSession{
		ID:          domain.OfflineSessionID(testShop),
		ShopDomain:  testShop,
		AccessToken: "shpat_secret",
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}
