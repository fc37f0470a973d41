package application

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"free-shipping-bar/internal/domain"
	"free-shipping-bar/internal/ports"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// ConfirmPath is the return URL of the recurring charge.
const ConfirmPath = "/api/subscription/confirm"

// BillingConfig describes the single recurring plan
type BillingConfig struct {
	Required  bool
	PlanName  string
	Price     decimal.Decimal
	TrialDays int
	Test      bool
	AppURL    string
}

// SubscriptionStatus is the billing view returned to the admin
type SubscriptionStatus struct {
	Active       bool                 `json:"active"`
	Required     bool                 `json:"required"`
	Subscription *domain.Subscription `json:"subscription,omitempty"`
}

// SubscriptionService manages the recurring application charge and the
// access gate built on it
type SubscriptionService struct {
	client   ports.ShopifyClient
	repo     ports.SubscriptionRepository
	sessions ports.SessionStore
	cfg      BillingConfig
	logger   zerolog.Logger
	now      func() time.Time
}

// NewSubscriptionService creates a new subscription service
func NewSubscriptionService(
	client ports.ShopifyClient,
	repo ports.SubscriptionRepository,
	sessions ports.SessionStore,
	cfg BillingConfig,
	logger zerolog.Logger,
) *SubscriptionService {
	cfg.AppURL = strings.TrimRight(cfg.AppURL, "/")
	return &SubscriptionService{
		client:   client,
		repo:     repo,
		sessions: sessions,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// Status reports the subscription state of a shop
func (s *SubscriptionService) Status(ctx context.Context, shop string) (*SubscriptionStatus, error) {
	sub, err := s.repo.Latest(ctx, shop)
	if err != nil {
		return nil, fmt.Errorf("failed to load subscription: %w", err)
	}
	return &SubscriptionStatus{
		Active:       sub.IsActive(s.now()),
		Required:     s.cfg.Required,
		Subscription: sub,
	}, nil
}

// RequireActive returns ErrSubscriptionRequired when billing is enforced and
// the shop has no active subscription
func (s *SubscriptionService) RequireActive(ctx context.Context, shop string) error {
	if !s.cfg.Required {
		return nil
	}
	status, err := s.Status(ctx, shop)
	if err != nil {
		return err
	}
	if !status.Active {
		return domain.ErrSubscriptionRequired
	}
	return nil
}

// Subscribe creates a recurring charge and returns the URL the merchant
// must visit to approve it
func (s *SubscriptionService) Subscribe(ctx context.Context, shop string) (string, error) {
	token, err := offlineToken(ctx, s.sessions, shop, s.now())
	if err != nil {
		return "", err
	}

	charge, err := s.client.CreateRecurringCharge(ctx, shop, token, ports.RecurringCharge{
		Name:      s.cfg.PlanName,
		Price:     s.cfg.Price,
		ReturnURL: s.cfg.AppURL + ConfirmPath + "?shop=" + url.QueryEscape(shop),
		TrialDays: s.cfg.TrialDays,
		Test:      s.cfg.Test,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrUpstream, err)
	}

	if err := s.repo.Save(ctx, subscriptionFromCharge(shop, charge)); err != nil {
		return "", err
	}

	s.logger.Info().
		Str("shop", shop).
		Uint64("chargeId", charge.ID).
		Str("price", charge.Price.StringFixed(2)).
		Msg("Recurring charge created")

	return charge.ConfirmationURL, nil
}

// Confirm refreshes a charge from Shopify after the merchant returns from
// the approval page
func (s *SubscriptionService) Confirm(ctx context.Context, shop string, chargeID uint64) (*domain.Subscription, error) {
	token, err := offlineToken(ctx, s.sessions, shop, s.now())
	if err != nil {
		return nil, err
	}
	charge, err := s.client.GetRecurringCharge(ctx, shop, token, chargeID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstream, err)
	}
	sub := subscriptionFromCharge(shop, charge)
	if err := s.repo.Save(ctx, sub); err != nil {
		return nil, err
	}
	s.logger.Info().Str("shop", shop).Uint64("chargeId", chargeID).Str("status", string(sub.Status)).Msg("Subscription confirmed")
	return sub, nil
}

// ApplyStatus stores a status pushed by the app_subscriptions/update webhook.
// Unknown charges are recorded so a later Latest sees them.
func (s *SubscriptionService) ApplyStatus(ctx context.Context, shop string, chargeID uint64, planName string, status domain.SubscriptionStatus) error {
	err := s.repo.UpdateStatus(ctx, shop, chargeID, status)
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	return s.repo.Save(ctx, &domain.Subscription{
		ShopDomain: shop,
		PlanName:   planName,
		ChargeID:   chargeID,
		Price:      s.cfg.Price,
		Status:     status,
		Test:       s.cfg.Test,
	})
}

// DeleteByShop forgets the billing state of a shop
func (s *SubscriptionService) DeleteByShop(ctx context.Context, shop string) error {
	return s.repo.DeleteByShop(ctx, shop)
}

func subscriptionFromCharge(shop string, charge *ports.RecurringCharge) *domain.Subscription {
	sub := &domain.Subscription{
		ShopDomain: shop,
		PlanName:   charge.Name,
		ChargeID:   charge.ID,
		Price:      charge.Price,
		Status:     domain.ParseSubscriptionStatus(strings.ToLower(charge.Status)),
		Test:       charge.Test,
		BillingOn:  charge.BillingOn,
	}
	if charge.TrialEndsOn != nil {
		ends := *charge.TrialEndsOn
		sub.TrialEndsAt = &ends
	}
	return sub
}
