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

// GormShopRepository implements ShopRepository on the shops table
type GormShopRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormShopRepository creates a new SQL shop repository
func NewGormShopRepository(db *gorm.DB) ports.ShopRepository {
	return &GormShopRepository{db: db, now: time.Now}
}

// Upsert saves or updates a shop. A reinstall clears uninstalled_at.
func (r *GormShopRepository) Upsert(ctx context.Context, shop *domain.Shop) error {
	now := r.now().UTC()
	if shop.InstalledAt.IsZero() {
		shop.InstalledAt = now
	}
	shop.UpdatedAt = now

	row := entity.ShopRowFromDomain(shop)
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "domain"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "email", "currency", "primary_locale", "uninstalled_at", "updated_at",
		}),
	}).Create(row).Error
	if err != nil {
		return fmt.Errorf("failed to save shop: %w", err)
	}
	return nil
}

// Get retrieves a shop by domain
func (r *GormShopRepository) Get(ctx context.Context, shopDomain string) (*domain.Shop, error) {
	var row entity.ShopRow
	err := r.db.WithContext(ctx).Where("domain = ?", shopDomain).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get shop: %w", err)
	}
	return row.ToDomain(), nil
}

// MarkUninstalled flags the shop as uninstalled and forgets its ScriptTag
func (r *GormShopRepository) MarkUninstalled(ctx context.Context, shopDomain string) error {
	now := r.now().UTC()
	res := r.db.WithContext(ctx).Model(&entity.ShopRow{}).
		Where("domain = ?", shopDomain).
		Updates(map[string]any{
			"uninstalled_at": now,
			"script_tag_id":  0,
			"updated_at":     now,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to mark shop uninstalled: %w", res.Error)
	}
	return nil
}

// SetScriptTag records the ScriptTag delivery state of a shop
func (r *GormShopRepository) SetScriptTag(ctx context.Context, shopDomain string, useScriptTag bool, scriptTagID uint64) error {
	res := r.db.WithContext(ctx).Model(&entity.ShopRow{}).
		Where("domain = ?", shopDomain).
		Updates(map[string]any{
			"use_script_tag": useScriptTag,
			"script_tag_id":  scriptTagID,
			"updated_at":     r.now().UTC(),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update script tag: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes the shop record
func (r *GormShopRepository) Delete(ctx context.Context, shopDomain string) error {
	if err := r.db.WithContext(ctx).Where("domain = ?", shopDomain).Delete(&entity.ShopRow{}).Error; err != nil {
		return fmt.Errorf("failed to delete shop: %w", err)
	}
	return nil
}
