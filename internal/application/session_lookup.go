package application

import (
	"context"
	"fmt"
	"time"

	"free-shipping-bar/internal/domain"
	"free-shipping-bar/internal/ports"
)

// offlineToken returns the usable offline access token of a shop
func offlineToken(ctx context.Context, sessions ports.SessionStore, shop string, now time.Time) (string, error) {
	session, err := sessions.Load(ctx, domain.OfflineSessionID(shop))
	if err != nil {
		return "", fmt.Errorf("failed to load session: %w", err)
	}
	if !session.IsActive(now) {
		return "", fmt.Errorf("%s: %w", shop, domain.ErrNoSession)
	}
	return session.AccessToken, nil
}

// sessionFromToken builds the session for an exchanged token. Online tokens
// are keyed per user and expire; offline tokens are keyed per shop.
func sessionFromToken(shop string, token *ports.AccessToken, online bool, now time.Time) *domain.ShopSession {
	session := &domain.ShopSession{
		ID:          domain.OfflineSessionID(shop),
		ShopDomain:  shop,
		AccessToken: token.Token,
		Scope:       token.Scope,
		IsOnline:    online,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if online {
		session.ID = domain.OnlineSessionID(shop, token.AssociatedUserID)
		session.OnlineUserID = token.AssociatedUserID
		if token.ExpiresIn > 0 {
			expires := now.Add(time.Duration(token.ExpiresIn) * time.Second)
			session.ExpiresAt = &expires
		}
	}
	return session
}
