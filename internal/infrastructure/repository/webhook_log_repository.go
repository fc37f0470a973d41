package repository

import (
	"context"
	"fmt"
	"time"

	"free-shipping-bar/internal/domain"
	"free-shipping-bar/internal/infrastructure/repository/entity"
	"free-shipping-bar/internal/ports"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormWebhookLog implements WebhookLogRepository on the webhook_events table
type GormWebhookLog struct {
	db *gorm.DB
}

// NewGormWebhookLog creates a new SQL webhook log
func NewGormWebhookLog(db *gorm.DB) ports.WebhookLogRepository {
	return &GormWebhookLog{db: db}
}

// LogWebhook logs a webhook event
func (r *GormWebhookLog) LogWebhook(ctx context.Context, event *domain.WebhookEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.ReceivedAt.IsZero() {
		event.ReceivedAt = time.Now().UTC()
	}
	if err := r.db.WithContext(ctx).Create(entity.WebhookEventRowFromDomain(event)).Error; err != nil {
		return fmt.Errorf("failed to log webhook: %w", err)
	}
	return nil
}

// DeleteByShop removes the logged events of a shop
func (r *GormWebhookLog) DeleteByShop(ctx context.Context, shop string) error {
	if err := r.db.WithContext(ctx).Where("shop = ?", shop).Delete(&entity.WebhookEventRow{}).Error; err != nil {
		return fmt.Errorf("failed to delete webhooks: %w", err)
	}
	return nil
}

// NopWebhookLog discards webhook events
type NopWebhookLog struct{}

// LogWebhook does nothing
func (NopWebhookLog) LogWebhook(context.Context, *domain.WebhookEvent) error {
	return nil
}

// DeleteByShop does nothing
func (NopWebhookLog) DeleteByShop(context.Context, string) error {
	return nil
}
