package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"free-shipping-bar/internal/domain"
	"free-shipping-bar/internal/infrastructure/repository/entity"
	"free-shipping-bar/internal/ports"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TokenSealer encrypts access tokens before they reach the database
type TokenSealer interface {
	EncryptToken(token string) (string, error)
	DecryptToken(encryptedToken string) (string, error)
}

// GormSessionStore implements SessionStore on the shopify_sessions table
type GormSessionStore struct {
	db     *gorm.DB
	sealer TokenSealer
	now    func() time.Time
}

// NewGormSessionStore creates a new SQL session store
func NewGormSessionStore(db *gorm.DB, sealer TokenSealer) ports.SessionStore {
	return &GormSessionStore{db: db, sealer: sealer, now: time.Now}
}

// Store saves the session, overwriting one with the same id
func (s *GormSessionStore) Store(ctx context.Context, session *domain.ShopSession) error {
	encrypted, err := s.sealer.EncryptToken(session.AccessToken)
	if err != nil {
		return fmt.Errorf("failed to encrypt access token: %w", err)
	}
	now := s.now().UTC()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now

	row := entity.SessionRowFromDomain(session, encrypted)
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"shop", "state", "is_online", "scope", "access_token", "online_user_id", "expires_at", "updated_at",
		}),
	}).Create(row).Error
	if err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

// Load retrieves a session by id, nil when unknown
func (s *GormSessionStore) Load(ctx context.Context, id string) (*domain.ShopSession, error) {
	var row entity.SessionRow
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return s.toDomain(&row)
}

// Delete removes a session by id
func (s *GormSessionStore) Delete(ctx context.Context, id string) error {
	if err := s.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.SessionRow{}).Error; err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// FindByShop lists every session of a shop
func (s *GormSessionStore) FindByShop(ctx context.Context, shop string) ([]*domain.ShopSession, error) {
	var rows []entity.SessionRow
	if err := s.db.WithContext(ctx).Where("shop = ?", shop).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to find sessions: %w", err)
	}
	sessions := make([]*domain.ShopSession, 0, len(rows))
	for i := range rows {
		session, err := s.toDomain(&rows[i])
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, nil
}

// DeleteByShop removes every session of a shop
func (s *GormSessionStore) DeleteByShop(ctx context.Context, shop string) error {
	if err := s.db.WithContext(ctx).Where("shop = ?", shop).Delete(&entity.SessionRow{}).Error; err != nil {
		return fmt.Errorf("failed to delete sessions: %w", err)
	}
	return nil
}

func (s *GormSessionStore) toDomain(row *entity.SessionRow) (*domain.ShopSession, error) {
	token, err := s.sealer.DecryptToken(row.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt access token for %s: %w", row.ID, err)
	}
	return row.ToDomain(token), nil
}
