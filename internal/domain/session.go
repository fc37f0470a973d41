package domain

import (
	"strconv"
	"time"
)

// ShopSession is an OAuth credential for a shop. AccessToken holds the
// plaintext token in memory only; stores encrypt it at rest.
type ShopSession struct {
	ID           string     `json:"id"`
	ShopDomain   string     `json:"shop"`
	AccessToken  string     `json:"-"`
	Scope        string     `json:"scope"`
	State        string     `json:"-"`
	IsOnline     bool       `json:"isOnline"`
	OnlineUserID int64      `json:"onlineUserId,omitempty"`
	ExpiresAt    *time.Time `json:"expiresAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// OfflineSessionID is the id of the shop-wide session.
func OfflineSessionID(shop string) string {
	return "offline_" + shop
}

// OnlineSessionID is the id of a per-user session.
func OnlineSessionID(shop string, userID int64) string {
	return shop + "_" + strconv.FormatInt(userID, 10)
}

// IsActive reports whether the session carries a usable token at now.
func (s *ShopSession) IsActive(now time.Time) bool {
	if s == nil || s.AccessToken == "" {
		return false
	}
	return s.ExpiresAt == nil || now.Before(*s.ExpiresAt)
}

// OAuthState is the anti-forgery nonce issued when an install starts.
type OAuthState struct {
	Nonce     string    `json:"nonce"`
	Shop      string    `json:"shop"`
	IsOnline  bool      `json:"isOnline"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Expired reports whether the state can no longer complete a callback.
func (s *OAuthState) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}
