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

// GormSubscriptionRepository implements SubscriptionRepository on the subscriptions table
type GormSubscriptionRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormSubscriptionRepository creates a new SQL subscription repository
func NewGormSubscriptionRepository(db *gorm.DB) ports.SubscriptionRepository {
	return &GormSubscriptionRepository{db: db, now: time.Now}
}

// Save upserts a subscription keyed by shop and charge id
func (r *GormSubscriptionRepository) Save(ctx context.Context, sub *domain.Subscription) error {
	now := r.now().UTC()
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = now
	}
	sub.UpdatedAt = now
	sub.ID = sub.ChargeID

	row := entity.SubscriptionRowFromDomain(sub)
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "shop_domain"}, {Name: "charge_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"plan_name", "price", "status", "test", "trial_ends_at", "billing_on", "updated_at",
		}),
	}).Create(row).Error
	if err != nil {
		return fmt.Errorf("failed to save subscription: %w", err)
	}
	return nil
}

// Latest returns the most recently created subscription of a shop
func (r *GormSubscriptionRepository) Latest(ctx context.Context, shop string) (*domain.Subscription, error) {
	var row entity.SubscriptionRow
	err := r.db.WithContext(ctx).
		Where("shop_domain = ?", shop).
		Order("created_at DESC").
		Order("charge_id DESC").
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	return row.ToDomain(), nil
}

// UpdateStatus changes the status of a known charge
func (r *GormSubscriptionRepository) UpdateStatus(ctx context.Context, shop string, chargeID uint64, status domain.SubscriptionStatus) error {
	res := r.db.WithContext(ctx).Model(&entity.SubscriptionRow{}).
		Where("shop_domain = ? AND charge_id = ?", shop, chargeID).
		Updates(map[string]any{
			"status":     string(status),
			"updated_at": r.now().UTC(),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update subscription: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DeleteByShop removes every subscription of a shop
func (r *GormSubscriptionRepository) DeleteByShop(ctx context.Context, shop string) error {
	if err := r.db.WithContext(ctx).Where("shop_domain = ?", shop).Delete(&entity.SubscriptionRow{}).Error; err != nil {
		return fmt.Errorf("failed to delete subscriptions: %w", err)
	}
	return nil
}
