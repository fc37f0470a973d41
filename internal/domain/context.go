package domain

import "context"

type contextKey string

const shopContextKey contextKey = "shop"

// WithShop stores the authenticated shop domain in the context
func WithShop(ctx context.Context, shop string) context.Context {
	return context.WithValue(ctx, shopContextKey, shop)
}

// ShopFromContext returns the authenticated shop domain, or empty string
func ShopFromContext(ctx context.Context) string {
	if shop, ok := ctx.Value(shopContextKey).(string); ok {
		return shop
	}
	return ""
}
