package application

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"free-shipping-bar/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOAuthService(f *fixture, verifier stubVerifier, useScriptTag bool) *OAuthService {
	return NewOAuthService(f.client, verifier, f.states, f.sessions, f.shops, f.settings, f.scriptTags, OAuthConfig{
		APIKey:       testAPIKey,
		Scopes:       []string{"write_script_tags", "read_script_tags"},
		AppURL:       testAppURL + "/",
		StateTTL:     10 * time.Minute,
		UseScriptTag: useScriptTag,
	}, zerolog.Nop())
}

func callbackQuery(shop, state string) url.Values {
	q := url.Values{}
	q.Set("shop", shop)
	q.Set("code", "auth-code")
	q.Set("state", state)
	q.Set("timestamp", "1700000000")
	q.Set("hmac", "signed")
	return q
}

func TestOAuthBeginRejectsBadShop(t *testing.T) {
	svc := newOAuthService(newFixture(), stubVerifier{}, true)

	_, err := svc.Begin(context.Background(), "")
	assert.True(t, errors.Is(err, domain.ErrMissingParams))

	_, err = svc.Begin(context.Background(), "evil.example.com")
	assert.True(t, errors.Is(err, domain.ErrInvalidShop))
}

func TestOAuthBeginIssuesState(t *testing.T) {
	f := newFixture()
	svc := newOAuthService(f, stubVerifier{}, true)

	res, err := svc.Begin(context.Background(), "https://Demo.myshopify.com/")
	require.NoError(t, err)
	assert.Len(t, res.State, 32)
	assert.Contains(t, res.RedirectURL, "https://demo.myshopify.com/admin/oauth/authorize?")
	assert.Contains(t, res.RedirectURL, url.QueryEscape(testAppURL+CallbackPath))
	assert.WithinDuration(t, time.Now().Add(10*time.Minute), res.ExpiresAt, 5*time.Second)

	other, err := svc.Begin(context.Background(), testShop)
	require.NoError(t, err)
	assert.NotEqual(t, res.State, other.State)
}

func TestOAuthCallbackCompletesInstall(t *testing.T) {
	f := newFixture()
	svc := newOAuthService(f, stubVerifier{}, true)
	ctx := context.Background()

	begin, err := svc.Begin(ctx, testShop)
	require.NoError(t, err)

	res, err := svc.Callback(ctx, callbackQuery(testShop, begin.State), begin.State)
	require.NoError(t, err)
	assert.Equal(t, testShop, res.Shop)
	assert.Equal(t, "https://demo.myshopify.com/admin/apps/api-key", res.RedirectURL)

	session, err := f.sessions.Load(ctx, domain.OfflineSessionID(testShop))
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, "shpat_secret", session.AccessToken)

	shop, err := f.shops.Get(ctx, testShop)
	require.NoError(t, err)
	require.NotNil(t, shop)
	assert.True(t, shop.IsInstalled())
	assert.Equal(t, "Demo", shop.Name)
	assert.True(t, shop.UseScriptTag)
	assert.Equal(t, uint64(77), shop.ScriptTagID)

	settings, found, err := f.settings.Snapshot(ctx, testShop)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "PLN", settings.CurrencyCode)

	assert.Equal(t, []string{"app/uninstalled https://app.example.com/webhooks/shopify"}, f.client.webhooks)
	assert.Equal(t, []string{"https://app.example.com/free-shipping-bar.js?shop=demo.myshopify.com"}, f.client.scriptTagSrcs)
}

func TestOAuthCallbackStateIsSingleUse(t *testing.T) {
	f := newFixture()
	svc := newOAuthService(f, stubVerifier{}, false)
	ctx := context.Background()

	begin, err := svc.Begin(ctx, testShop)
	require.NoError(t, err)

	_, err = svc.Callback(ctx, callbackQuery(testShop, begin.State), "")
	require.NoError(t, err)

	_, err = svc.Callback(ctx, callbackQuery(testShop, begin.State), "")
	assert.True(t, errors.Is(err, domain.ErrInvalidState))
	assert.True(t, IsCallbackClientError(err))
}

func TestOAuthCallbackRejections(t *testing.T) {
	ctx := context.Background()

	t.Run("missing params", func(t *testing.T) {
		svc := newOAuthService(newFixture(), stubVerifier{}, true)
		q := callbackQuery(testShop, "abc")
		q.Del("code")
		_, err := svc.Callback(ctx, q, "")
		assert.True(t, errors.Is(err, domain.ErrMissingParams))
	})

	t.Run("bad signature", func(t *testing.T) {
		f := newFixture()
		svc := newOAuthService(f, stubVerifier{err: domain.ErrInvalidSignature}, true)
		begin, err := svc.Begin(ctx, testShop)
		require.NoError(t, err)
		_, err = svc.Callback(ctx, callbackQuery(testShop, begin.State), begin.State)
		assert.True(t, errors.Is(err, domain.ErrInvalidSignature))

		// the nonce was not burned by the forged request
		state, err := f.states.Consume(ctx, begin.State)
		require.NoError(t, err)
		assert.NotNil(t, state)
	})

	t.Run("unknown state", func(t *testing.T) {
		svc := newOAuthService(newFixture(), stubVerifier{}, true)
		_, err := svc.Callback(ctx, callbackQuery(testShop, "never-issued"), "")
		assert.True(t, errors.Is(err, domain.ErrInvalidState))
	})

	t.Run("state for another shop", func(t *testing.T) {
		svc := newOAuthService(newFixture(), stubVerifier{}, true)
		begin, err := svc.Begin(ctx, "other.myshopify.com")
		require.NoError(t, err)
		_, err = svc.Callback(ctx, callbackQuery(testShop, begin.State), "")
		assert.True(t, errors.Is(err, domain.ErrInvalidState))
	})

	t.Run("cookie mismatch", func(t *testing.T) {
		svc := newOAuthService(newFixture(), stubVerifier{}, true)
		begin, err := svc.Begin(ctx, testShop)
		require.NoError(t, err)
		_, err = svc.Callback(ctx, callbackQuery(testShop, begin.State), "forged")
		assert.True(t, errors.Is(err, domain.ErrInvalidState))
	})

	t.Run("exchange failure", func(t *testing.T) {
		f := newFixture()
		f.client.exchangeErr = errBoom
		svc := newOAuthService(f, stubVerifier{}, true)
		begin, err := svc.Begin(ctx, testShop)
		require.NoError(t, err)
		_, err = svc.Callback(ctx, callbackQuery(testShop, begin.State), begin.State)
		assert.True(t, errors.Is(err, domain.ErrUpstream))
		assert.False(t, IsCallbackClientError(err))

		session, err := f.sessions.Load(ctx, domain.OfflineSessionID(testShop))
		require.NoError(t, err)
		assert.Nil(t, session)
	})
}

func TestOAuthCallbackToleratesSideEffectFailures(t *testing.T) {
	f := newFixture()
	f.client.shopErr = errBoom
	f.client.webhookErr = errBoom
	f.client.scriptTagErr = errBoom
	svc := newOAuthService(f, stubVerifier{}, true)
	ctx := context.Background()

	begin, err := svc.Begin(ctx, testShop)
	require.NoError(t, err)
	_, err = svc.Callback(ctx, callbackQuery(testShop, begin.State), begin.State)
	require.NoError(t, err)

	shop, err := f.shops.Get(ctx, testShop)
	require.NoError(t, err)
	require.NotNil(t, shop)
	assert.Zero(t, shop.ScriptTagID)
}

func TestOAuthReinstallClearsUninstalled(t *testing.T) {
	f := newFixture()
	svc := newOAuthService(f, stubVerifier{}, true)
	ctx := context.Background()

	begin, err := svc.Begin(ctx, testShop)
	require.NoError(t, err)
	_, err = svc.Callback(ctx, callbackQuery(testShop, begin.State), "")
	require.NoError(t, err)

	require.NoError(t, f.shops.MarkUninstalled(ctx, testShop))

	begin, err = svc.Begin(ctx, testShop)
	require.NoError(t, err)
	_, err = svc.Callback(ctx, callbackQuery(testShop, begin.State), "")
	require.NoError(t, err)

	shop, err := f.shops.Get(ctx, testShop)
	require.NoError(t, err)
	assert.True(t, shop.IsInstalled())
	assert.Equal(t, uint64(77), shop.ScriptTagID)
	assert.Len(t, f.client.scriptTagSrcs, 2)
}
