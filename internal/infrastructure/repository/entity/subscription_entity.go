package entity

import (
	"time"

	"free-shipping-bar/internal/domain"

	"github.com/shopspring/decimal"
)

// SubscriptionRow is the subscriptions table
type SubscriptionRow struct {
	ShopDomain  string          `gorm:"column:shop_domain;primaryKey"`
	ChargeID    uint64          `gorm:"column:charge_id;primaryKey;autoIncrement:false"`
	PlanName    string          `gorm:"column:plan_name"`
	Price       decimal.Decimal `gorm:"column:price;type:decimal(10,2)"`
	Status      string          `gorm:"column:status"`
	Test        bool            `gorm:"column:test"`
	TrialEndsAt *time.Time      `gorm:"column:trial_ends_at"`
	BillingOn   *time.Time      `gorm:"column:billing_on"`
	CreatedAt   *time.Time      `gorm:"column:created_at"`
	UpdatedAt   *time.Time      `gorm:"column:updated_at"`
}

func (SubscriptionRow) TableName() string { return "subscriptions" }

// ToDomain converts the row to a domain entity
func (r *SubscriptionRow) ToDomain() *domain.Subscription {
	sub := &domain.Subscription{
		ID:          r.ChargeID,
		ShopDomain:  r.ShopDomain,
		PlanName:    r.PlanName,
		ChargeID:    r.ChargeID,
		Price:       r.Price,
		Status:      domain.ParseSubscriptionStatus(r.Status),
		Test:        r.Test,
		TrialEndsAt: r.TrialEndsAt,
		BillingOn:   r.BillingOn,
	}
	if r.CreatedAt != nil {
		sub.CreatedAt = *r.CreatedAt
	}
	if r.UpdatedAt != nil {
		sub.UpdatedAt = *r.UpdatedAt
	}
	return sub
}

// SubscriptionRowFromDomain converts a domain entity to a row
func SubscriptionRowFromDomain(sub *domain.Subscription) *SubscriptionRow {
	row := &SubscriptionRow{
		ShopDomain:  sub.ShopDomain,
		ChargeID:    sub.ChargeID,
		PlanName:    sub.PlanName,
		Price:       sub.Price,
		Status:      string(sub.Status),
		Test:        sub.Test,
		TrialEndsAt: sub.TrialEndsAt,
		BillingOn:   sub.BillingOn,
	}
	if !sub.CreatedAt.IsZero() {
		created := sub.CreatedAt
		row.CreatedAt = &created
	}
	if !sub.UpdatedAt.IsZero() {
		updated := sub.UpdatedAt
		row.UpdatedAt = &updated
	}
	return row
}
