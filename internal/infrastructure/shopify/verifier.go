package shopify

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"free-shipping-bar/internal/domain"
	"free-shipping-bar/internal/ports"

	goshopify "github.com/bold-commerce/go-shopify/v4"
)

// Verifier checks Shopify request signatures with the app secret
type Verifier struct {
	app goshopify.App
}

// NewVerifier creates a verifier for the given app credentials
func NewVerifier(apiKey, apiSecret string) ports.RequestVerifier {
	return &Verifier{app: goshopify.App{ApiKey: apiKey, ApiSecret: apiSecret}}
}

// VerifyOAuthCallback checks the hex hmac over the sorted callback query
func (v *Verifier) VerifyOAuthCallback(query url.Values) error {
	if query.Get("hmac") == "" {
		return fmt.Errorf("missing hmac: %w", domain.ErrInvalidSignature)
	}
	u := &url.URL{RawQuery: query.Encode()}
	ok, err := v.app.VerifyAuthorizationURL(u)
	if err != nil {
		return fmt.Errorf("failed to verify callback: %w", err)
	}
	if !ok {
		return domain.ErrInvalidSignature
	}
	return nil
}

// VerifyWebhook checks the base64 hmac of the raw webhook body
func (v *Verifier) VerifyWebhook(payload []byte, hmacHeader string) error {
	if hmacHeader == "" {
		return fmt.Errorf("missing X-Shopify-Hmac-Sha256: %w", domain.ErrInvalidSignature)
	}
	req := &http.Request{
		Header: http.Header{},
		Body:   io.NopCloser(bytes.NewReader(payload)),
	}
	req.Header.Set("X-Shopify-Hmac-Sha256", hmacHeader)
	if !v.app.VerifyWebhookRequest(req) {
		return domain.ErrInvalidSignature
	}
	return nil
}

// VerifyAppProxy checks the signature parameter of an app proxy request
func (v *Verifier) VerifyAppProxy(query url.Values) error {
	if query.Get("signature") == "" {
		return fmt.Errorf("missing signature: %w", domain.ErrInvalidSignature)
	}
	if !v.app.VerifySignature(&url.URL{RawQuery: query.Encode()}) {
		return domain.ErrInvalidSignature
	}
	return nil
}
