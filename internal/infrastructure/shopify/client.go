package shopify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"free-shipping-bar/internal/ports"

	goshopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/rs/zerolog"
)

// DefaultAPIVersion is the Admin REST version the app is built against.
const DefaultAPIVersion = "2024-10"

type client struct {
	apiKey     string
	apiSecret  string
	app        goshopify.App
	apiVersion string
	retries    int
	httpClient *http.Client
	// tokenURL builds the access token endpoint; overridden in tests
	tokenURL func(shop string) string
	logger   zerolog.Logger
}

// Options tune the adapter.
type Options struct {
	APIVersion string
	Retries    int
	HTTPClient *http.Client
}

// NewClient creates a new Shopify client adapter
func NewClient(apiKey, apiSecret string, logger zerolog.Logger) ports.ShopifyClient {
	return NewClientWithOptions(apiKey, apiSecret, Options{}, logger)
}

// NewClientWithOptions creates a client with an explicit API version and retry budget
func NewClientWithOptions(apiKey, apiSecret string, opts Options, logger zerolog.Logger) ports.ShopifyClient {
	return newClient(apiKey, apiSecret, opts, logger)
}

func newClient(apiKey, apiSecret string, opts Options, logger zerolog.Logger) *client {
	if opts.APIVersion == "" {
		opts.APIVersion = DefaultAPIVersion
	}
	if opts.Retries <= 0 {
		opts.Retries = 3
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &client{
		apiKey:     apiKey,
		apiSecret:  apiSecret,
		app:        goshopify.App{ApiKey: apiKey, ApiSecret: apiSecret},
		apiVersion: opts.APIVersion,
		retries:    opts.Retries,
		httpClient: opts.HTTPClient,
		tokenURL: func(shop string) string {
			return fmt.Sprintf("https://%s/admin/oauth/access_token", shop)
		},
		logger: logger,
	}
}

// createClient is a helper to create a goshopify client
func (c *client) createClient(shopDomain string, accessToken string) (*goshopify.Client, error) {
	client, err := goshopify.NewClient(c.app, shopDomain, accessToken,
		goshopify.WithVersion(c.apiVersion),
		goshopify.WithRetry(c.retries),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return client, nil
}

// Authentication methods

func (c *client) GenerateAuthURL(shop string, scopes []string, redirectURI string, state string, online bool) string {
	// Shopify expects scopes to be comma-separated (no spaces)
	scopesStr := strings.Join(scopes, ",")

	q := url.Values{}
	q.Set("client_id", c.apiKey)
	q.Set("scope", scopesStr)
	q.Set("redirect_uri", redirectURI)
	q.Set("state", state)
	if online {
		q.Set("grant_options[]", "per-user")
	}

	c.logger.Debug().
		Str("shop", shop).
		Str("scopes", scopesStr).
		Bool("online", online).
		Msg("Generated OAuth authorization URL")

	return fmt.Sprintf("https://%s/admin/oauth/authorize?%s", shop, q.Encode())
}

// ExchangeToken posts the authorization code to the token endpoint. The
// request is made directly because Shopify requires redirect_uri to match the
// authorization request and the online-token fields are needed as well.
func (c *client) ExchangeToken(ctx context.Context, shop string, code string, redirectURI string) (*ports.AccessToken, error) {
	values := url.Values{}
	values.Set("client_id", c.apiKey)
	values.Set("client_secret", c.apiSecret)
	values.Set("code", code)
	if redirectURI != "" {
		values.Set("redirect_uri", redirectURI)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL(shop), strings.NewReader(values.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("failed to exchange token: status %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	var tokenResponse struct {
		AccessToken    string `json:"access_token"`
		Scope          string `json:"scope"`
		ExpiresIn      int    `json:"expires_in"`
		AssociatedUser *struct {
			ID int64 `json:"id"`
		} `json:"associated_user"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResponse); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}
	if tokenResponse.AccessToken == "" {
		return nil, fmt.Errorf("failed to exchange token: empty access token")
	}

	token := &ports.AccessToken{
		Token:     tokenResponse.AccessToken,
		Scope:     tokenResponse.Scope,
		ExpiresIn: tokenResponse.ExpiresIn,
	}
	if tokenResponse.AssociatedUser != nil {
		token.AssociatedUserID = tokenResponse.AssociatedUser.ID
	}
	return token, nil
}

// Shop API

func (c *client) GetShop(ctx context.Context, shopDomain string, accessToken string) (*ports.ShopInfo, error) {
	client, err := c.createClient(shopDomain, accessToken)
	if err != nil {
		return nil, err
	}
	shop, err := client.Shop.Get(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get shop: %w", err)
	}
	domain := shop.MyshopifyDomain
	if domain == "" {
		domain = shopDomain
	}
	return &ports.ShopInfo{
		Domain:        domain,
		Name:          shop.Name,
		Email:         shop.Email,
		Currency:      shop.Currency,
		PrimaryLocale: shop.PrimaryLocale,
	}, nil
}

// Webhook API

func (c *client) CreateWebhook(ctx context.Context, shopDomain string, accessToken string, topic string, address string) error {
	client, err := c.createClient(shopDomain, accessToken)
	if err != nil {
		return err
	}
	webhook := goshopify.Webhook{
		Topic:   topic,
		Address: address,
		Format:  "json",
	}
	if _, err := client.Webhook.Create(ctx, webhook); err != nil {
		return fmt.Errorf("failed to create webhook %s: %w", topic, err)
	}
	return nil
}

// ScriptTag API

func (c *client) CreateScriptTag(ctx context.Context, shopDomain string, accessToken string, src string) (uint64, error) {
	client, err := c.createClient(shopDomain, accessToken)
	if err != nil {
		return 0, err
	}
	tag := goshopify.ScriptTag{
		Event: "onload",
		Src:   src,
	}
	created, err := client.ScriptTag.Create(ctx, tag)
	if err != nil {
		return 0, fmt.Errorf("failed to create script tag: %w", err)
	}
	return created.Id, nil
}

func (c *client) DeleteScriptTag(ctx context.Context, shopDomain string, accessToken string, scriptTagID uint64) error {
	client, err := c.createClient(shopDomain, accessToken)
	if err != nil {
		return err
	}
	if err := client.ScriptTag.Delete(ctx, scriptTagID); err != nil {
		return fmt.Errorf("failed to delete script tag: %w", err)
	}
	return nil
}

// Billing API

func (c *client) CreateRecurringCharge(ctx context.Context, shopDomain string, accessToken string, charge ports.RecurringCharge) (*ports.RecurringCharge, error) {
	client, err := c.createClient(shopDomain, accessToken)
	if err != nil {
		return nil, err
	}
	price := charge.Price
	test := charge.Test
	created, err := client.RecurringApplicationCharge.Create(ctx, goshopify.RecurringApplicationCharge{
		Name:      charge.Name,
		Price:     &price,
		ReturnURL: charge.ReturnURL,
		TrialDays: charge.TrialDays,
		Test:      &test,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create recurring charge: %w", err)
	}
	return chargeFromShopify(created), nil
}

func (c *client) GetRecurringCharge(ctx context.Context, shopDomain string, accessToken string, chargeID uint64) (*ports.RecurringCharge, error) {
	client, err := c.createClient(shopDomain, accessToken)
	if err != nil {
		return nil, err
	}
	charge, err := client.RecurringApplicationCharge.Get(ctx, chargeID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get recurring charge: %w", err)
	}
	return chargeFromShopify(charge), nil
}

func chargeFromShopify(ch *goshopify.RecurringApplicationCharge) *ports.RecurringCharge {
	out := &ports.RecurringCharge{
		ID:              ch.Id,
		Name:            ch.Name,
		Status:          string(ch.Status),
		ReturnURL:       ch.ReturnURL,
		ConfirmationURL: ch.ConfirmationURL,
		TrialDays:       ch.TrialDays,
		TrialEndsOn:     ch.TrialEndsOn,
		BillingOn:       ch.BillingOn,
	}
	if ch.Price != nil {
		out.Price = *ch.Price
	}
	if ch.Test != nil {
		out.Test = *ch.Test
	}
	return out
}

// Metafield API

type metafieldListOptions struct {
	Namespace string `url:"namespace,omitempty"`
	Key       string `url:"key,omitempty"`
}

func (c *client) findMetafield(ctx context.Context, api *goshopify.Client, namespace, key string) (*goshopify.Metafield, error) {
	fields, err := api.Metafield.List(ctx, metafieldListOptions{Namespace: namespace, Key: key})
	if err != nil {
		return nil, fmt.Errorf("failed to list metafields: %w", err)
	}
	for i := range fields {
		if fields[i].Namespace == namespace && fields[i].Key == key {
			return &fields[i], nil
		}
	}
	return nil, nil
}

func (c *client) GetMetafield(ctx context.Context, shopDomain string, accessToken string, namespace string, key string) (string, bool, error) {
	api, err := c.createClient(shopDomain, accessToken)
	if err != nil {
		return "", false, err
	}
	field, err := c.findMetafield(ctx, api, namespace, key)
	if err != nil || field == nil {
		return "", false, err
	}
	switch v := field.Value.(type) {
	case string:
		return v, true, nil
	case nil:
		return "", false, nil
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return "", false, fmt.Errorf("failed to encode metafield value: %w", err)
		}
		return string(raw), true, nil
	}
}

func (c *client) PutMetafield(ctx context.Context, shopDomain string, accessToken string, namespace string, key string, jsonValue string) error {
	api, err := c.createClient(shopDomain, accessToken)
	if err != nil {
		return err
	}
	existing, err := c.findMetafield(ctx, api, namespace, key)
	if err != nil {
		return err
	}
	field := goshopify.Metafield{
		Namespace: namespace,
		Key:       key,
		Value:     jsonValue,
		Type:      "json",
	}
	if existing != nil {
		field.Id = existing.Id
		if _, err := api.Metafield.Update(ctx, field); err != nil {
			return fmt.Errorf("failed to update metafield: %w", err)
		}
		return nil
	}
	if _, err := api.Metafield.Create(ctx, field); err != nil {
		return fmt.Errorf("failed to create metafield: %w", err)
	}
	return nil
}

func (c *client) DeleteMetafield(ctx context.Context, shopDomain string, accessToken string, namespace string, key string) error {
	api, err := c.createClient(shopDomain, accessToken)
	if err != nil {
		return err
	}
	existing, err := c.findMetafield(ctx, api, namespace, key)
	if err != nil || existing == nil {
		return err
	}
	if err := api.Metafield.Delete(ctx, existing.Id); err != nil {
		return fmt.Errorf("failed to delete metafield: %w", err)
	}
	return nil
}
