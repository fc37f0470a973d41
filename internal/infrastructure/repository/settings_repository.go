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

// GormSettingsStore implements SettingsStore on the shop_settings table
type GormSettingsStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormSettingsStore creates a new SQL settings store
func NewGormSettingsStore(db *gorm.DB) ports.SettingsStore {
	return &GormSettingsStore{db: db, now: time.Now}
}

// Get retrieves the settings of a shop, nil when none were stored
func (s *GormSettingsStore) Get(ctx context.Context, shop string) (*domain.ShopSettings, error) {
	var row entity.SettingsRow
	err := s.db.WithContext(ctx).Where("shop_domain = ?", shop).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	return row.ToDomain()
}

// Put saves the settings, replacing any previous record
func (s *GormSettingsStore) Put(ctx context.Context, shop string, settings domain.ShopSettings) error {
	row, err := entity.SettingsRowFromDomain(shop, settings, s.now().UTC())
	if err != nil {
		return err
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "shop_domain"}},
		DoUpdates: clause.AssignmentColumns([]string{"enabled", "threshold_minor", "calculate_difference", "payload", "updated_at"}),
	}).Create(row).Error
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

// Delete removes the settings of a shop
func (s *GormSettingsStore) Delete(ctx context.Context, shop string) error {
	if err := s.db.WithContext(ctx).Where("shop_domain = ?", shop).Delete(&entity.SettingsRow{}).Error; err != nil {
		return fmt.Errorf("failed to delete settings: %w", err)
	}
	return nil
}
