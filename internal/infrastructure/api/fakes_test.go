package api

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"testing"
	"time"

	"free-shipping-bar/internal/application"
	"free-shipping-bar/internal/application/webhook_handlers"
	"free-shipping-bar/internal/domain"
	"free-shipping-bar/internal/infrastructure/metrics"
	"free-shipping-bar/internal/infrastructure/pubsub"
	"free-shipping-bar/internal/infrastructure/repository"
	"free-shipping-bar/internal/infrastructure/shopify"
	"free-shipping-bar/internal/ports"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const (
	testShop   = "demo.myshopify.com"
	testKey    = "api-key"
	testSecret = "api-secret"
	testAppURL = "https://app.example.com"
)

type fakeShopify struct {
	scriptTagID uint64
}

func (f *fakeShopify) GenerateAuthURL(shop string, _ []string, redirectURI string, state string, _ bool) string {
	q := url.Values{}
	q.Set("client_id", testKey)
	q.Set("redirect_uri", redirectURI)
	q.Set("state", state)
	return fmt.Sprintf("https://%s/admin/oauth/authorize?%s", shop, q.Encode())
}

func (f *fakeShopify) ExchangeToken(context.Context, string, string, string) (*ports.AccessToken, error) {
	return &ports.AccessToken{Token: "shpat_secret", Scope: "write_script_tags"}, nil
}

func (f *fakeShopify) GetShop(_ context.Context, shop string, _ string) (*ports.ShopInfo, error) {
	return &ports.ShopInfo{Domain: shop, Name: "Demo", Currency: "PLN"}, nil
}

func (f *fakeShopify) CreateWebhook(context.Context, string, string, string, string) error {
	return nil
}

func (f *fakeShopify) CreateScriptTag(context.Context, string, string, string) (uint64, error) {
	return f.scriptTagID, nil
}

func (f *fakeShopify) DeleteScriptTag(context.Context, string, string, uint64) error {
	return nil
}

func (f *fakeShopify) CreateRecurringCharge(_ context.Context, _ string, _ string, charge ports.RecurringCharge) (*ports.RecurringCharge, error) {
	charge.ID = 901
	charge.Status = "pending"
	charge.ConfirmationURL = "https://" + testShop + "/admin/charges/901/confirm"
	return &charge, nil
}

func (f *fakeShopify) GetRecurringCharge(_ context.Context, _ string, _ string, id uint64) (*ports.RecurringCharge, error) {
	return &ports.RecurringCharge{ID: id, Name: "Free Delivery Bar", Status: "active", Price: decimal.RequireFromString("4.99")}, nil
}

func (f *fakeShopify) GetMetafield(context.Context, string, string, string, string) (string, bool, error) {
	return "", false, nil
}

func (f *fakeShopify) PutMetafield(context.Context, string, string, string, string, string) error {
	return nil
}

func (f *fakeShopify) DeleteMetafield(context.Context, string, string, string, string) error {
	return nil
}

type testEnv struct {
	handler  http.Handler
	shops    *repository.MemoryShopRepository
	sessions *repository.MemorySessionStore
	settings *repository.MemorySettingsStore
	subs     *repository.MemorySubscriptionRepository
	events   *pubsub.WebhookPubSub
}

func newTestEnv(t *testing.T, billingRequired bool) *testEnv {
	t.Helper()
	logger := zerolog.Nop()
	client := &fakeShopify{scriptTagID: 77}

	env := &testEnv{
		shops:    repository.NewMemoryShopRepository(),
		sessions: repository.NewMemorySessionStore(),
		settings: repository.NewMemorySettingsStore(),
		subs:     repository.NewMemorySubscriptionRepository(),
		events:   pubsub.NewWebhookPubSub(logger),
	}
	verifier := shopify.NewVerifier(testKey, testSecret)

	settings := application.NewSettingsService(env.settings, logger)
	scriptTags := application.NewScriptTagService(client, env.shops, env.sessions, testAppURL, logger)
	subscriptions := application.NewSubscriptionService(client, env.subs, env.sessions, application.BillingConfig{
		Required:  billingRequired,
		PlanName:  "Free Delivery Bar",
		Price:     decimal.RequireFromString("4.99"),
		TrialDays: 7,
		Test:      true,
		AppURL:    testAppURL,
	}, logger)
	oauth := application.NewOAuthService(client, verifier, repository.NewMemoryStateStore(), env.sessions, env.shops, settings, scriptTags, application.OAuthConfig{
		APIKey:       testKey,
		Scopes:       []string{"write_script_tags", "read_script_tags"},
		AppURL:       testAppURL,
		UseScriptTag: true,
	}, logger)

	dispatcher := application.NewWebhookDispatcher(logger)
	dispatcher.RegisterHandler(webhook_handlers.NewAppUninstalledHandler(logger, env.shops, env.sessions, settings))

	env.handler = NewRouter(
		RouterConfig{APIKey: testKey, APISecret: testSecret},
		Services{
			OAuth:         oauth,
			Settings:      settings,
			Scripts:       application.NewScriptService(env.shops, settings, logger),
			ScriptTags:    scriptTags,
			Subscriptions: subscriptions,
			Webhooks:      application.NewWebhookService(repository.NopWebhookLog{}, env.events, logger),
			Dispatcher:    dispatcher,
		},
		verifier,
		env.events,
		metrics.New(nil),
		logger,
	)
	return env
}

func (e *testEnv) install(t *testing.T, useScriptTag bool) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, e.shops.Upsert(ctx, &domain.Shop{Domain: testShop, Name: "Demo", UseScriptTag: useScriptTag, ScriptTagID: 77}))
	require.NoError(t, e.sessions.Store(ctx, &domain.ShopSession{
		ID:          domain.OfflineSessionID(testShop),
		ShopDomain:  testShop,
		AccessToken: "shpat_secret",
	}))
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func sessionToken(t *testing.T) string {
	t.Helper()
	now := time.Now()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss":  "https://" + testShop + "/admin",
		"dest": "https://" + testShop,
		"aud":  testKey,
		"sub":  "42",
		"exp":  now.Add(time.Minute).Unix(),
		"nbf":  now.Add(-time.Second).Unix(),
		"iat":  now.Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func authed(t *testing.T, method, target string, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+sessionToken(t))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

func hmacSHA256(message string) []byte {
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write([]byte(message))
	return mac.Sum(nil)
}

func webhookRequest(target, topic, body string, sign bool) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	if topic != "" {
		req.Header.Set("X-Shopify-Topic", topic)
	}
	req.Header.Set("X-Shopify-Shop-Domain", testShop)
	sig := "invalid"
	if sign {
		sig = base64.StdEncoding.EncodeToString(hmacSHA256(body))
	}
	req.Header.Set("X-Shopify-Hmac-Sha256", sig)
	return req
}

func signedProxyQuery(shop string) url.Values {
	q := url.Values{}
	q.Set("shop", shop)
	q.Set("path_prefix", "/apps/free-delivery")
	q.Set("timestamp", "1317327555")

	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k + "=" + strings.Join(q[k], ","))
	}
	q.Set("signature", hex.EncodeToString(hmacSHA256(b.String())))
	return q
}

func pubsubFilter(shop string) pubsub.Filter {
	return pubsub.Filter{Shop: shop}
}
