package banner

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// HTTPCartReader reads the storefront /cart.js endpoint.
type HTTPCartReader struct {
	baseURL string
	cookie  string
	client  *http.Client
	now     func() time.Time
}

// NewHTTPCartReader creates a reader for a storefront. cookie is sent as is
// so the reader sees the visitor's cart; client may be nil.
func NewHTTPCartReader(baseURL string, cookie string, client *http.Client) *HTTPCartReader {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPCartReader{
		baseURL: strings.TrimRight(baseURL, "/"),
		cookie:  cookie,
		client:  client,
		now:     time.Now,
	}
}

type cartResponse struct {
	ItemsSubtotalPrice *int64 `json:"items_subtotal_price"`
	TotalPrice         *int64 `json:"total_price"`
	ItemCount          int    `json:"item_count"`
}

// ReadSubtotal fetches the cart bypassing caches and returns the items
// subtotal, falling back to the total price.
func (r *HTTPCartReader) ReadSubtotal(ctx context.Context) (int64, error) {
	url := r.baseURL + "/cart.js?_=" + strconv.FormatInt(r.now().UnixNano(), 10)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("creating cart request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache")
	if r.cookie != "" {
		req.Header.Set("Cookie", r.cookie)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("reading cart: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("reading cart: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var cart cartResponse
	if err := json.NewDecoder(resp.Body).Decode(&cart); err != nil {
		return 0, fmt.Errorf("decoding cart: %w", err)
	}
	switch {
	case cart.ItemsSubtotalPrice != nil:
		return *cart.ItemsSubtotalPrice, nil
	case cart.TotalPrice != nil:
		return *cart.TotalPrice, nil
	}
	return 0, fmt.Errorf("decoding cart: no subtotal in response")
}
