package entity

import (
	"time"

	"free-shipping-bar/internal/domain"
)

// SessionRow is the shopify_sessions table. AccessToken holds ciphertext.
type SessionRow struct {
	ID           string     `gorm:"column:id;primaryKey"`
	Shop         string     `gorm:"column:shop"`
	State        string     `gorm:"column:state"`
	IsOnline     bool       `gorm:"column:is_online"`
	Scope        string     `gorm:"column:scope"`
	AccessToken  string     `gorm:"column:access_token"`
	OnlineUserID int64      `gorm:"column:online_user_id"`
	ExpiresAt    *time.Time `gorm:"column:expires_at"`
	CreatedAt    *time.Time `gorm:"column:created_at"`
	UpdatedAt    *time.Time `gorm:"column:updated_at"`
}

func (SessionRow) TableName() string { return "shopify_sessions" }

// ToDomain converts the row using an already decrypted token
func (r *SessionRow) ToDomain(accessToken string) *domain.ShopSession {
	session := &domain.ShopSession{
		ID:           r.ID,
		ShopDomain:   r.Shop,
		AccessToken:  accessToken,
		Scope:        r.Scope,
		State:        r.State,
		IsOnline:     r.IsOnline,
		OnlineUserID: r.OnlineUserID,
		ExpiresAt:    r.ExpiresAt,
	}
	if r.CreatedAt != nil {
		session.CreatedAt = *r.CreatedAt
	}
	if r.UpdatedAt != nil {
		session.UpdatedAt = *r.UpdatedAt
	}
	return session
}

// SessionRowFromDomain converts a session to a row carrying the encrypted token
func SessionRowFromDomain(session *domain.ShopSession, encryptedToken string) *SessionRow {
	row := &SessionRow{
		ID:           session.ID,
		Shop:         session.ShopDomain,
		State:        session.State,
		IsOnline:     session.IsOnline,
		Scope:        session.Scope,
		AccessToken:  encryptedToken,
		OnlineUserID: session.OnlineUserID,
		ExpiresAt:    session.ExpiresAt,
	}
	if !session.CreatedAt.IsZero() {
		created := session.CreatedAt
		row.CreatedAt = &created
	}
	if !session.UpdatedAt.IsZero() {
		updated := session.UpdatedAt
		row.UpdatedAt = &updated
	}
	return row
}
