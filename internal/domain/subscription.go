package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// SubscriptionStatus mirrors the recurring application charge status.
type SubscriptionStatus string

const (
	SubscriptionPending   SubscriptionStatus = "pending"
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionDeclined  SubscriptionStatus = "declined"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
	SubscriptionFrozen    SubscriptionStatus = "frozen"
	SubscriptionExpired   SubscriptionStatus = "expired"
)

// Subscription is the billing state of a shop.
type Subscription struct {
	ID          uint64             `json:"id"`
	ShopDomain  string             `json:"shop"`
	PlanName    string             `json:"planName"`
	ChargeID    uint64             `json:"chargeId"`
	Price       decimal.Decimal    `json:"price"`
	Status      SubscriptionStatus `json:"status"`
	Test        bool               `json:"test"`
	TrialEndsAt *time.Time         `json:"trialEndsAt,omitempty"`
	BillingOn   *time.Time         `json:"billingOn,omitempty"`
	CreatedAt   time.Time          `json:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt"`
}

// IsActive reports whether the subscription grants access at now. An active
// charge without known dates is trusted.
func (s *Subscription) IsActive(now time.Time) bool {
	if s == nil || s.Status != SubscriptionActive {
		return false
	}
	if s.BillingOn == nil && s.TrialEndsAt == nil {
		return true
	}
	if s.BillingOn != nil && s.BillingOn.After(now) {
		return true
	}
	return s.TrialEndsAt != nil && s.TrialEndsAt.After(now)
}

// ParseSubscriptionStatus maps a Shopify status string onto the known values.
func ParseSubscriptionStatus(status string) SubscriptionStatus {
	switch SubscriptionStatus(status) {
	case SubscriptionActive, SubscriptionDeclined, SubscriptionCancelled, SubscriptionFrozen, SubscriptionExpired:
		return SubscriptionStatus(status)
	case "accepted":
		return SubscriptionActive
	}
	return SubscriptionPending
}
