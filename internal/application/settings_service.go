package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"free-shipping-bar/internal/domain"
	"free-shipping-bar/internal/ports"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// SettingsService owns the per-shop banner configuration
type SettingsService struct {
	store    ports.SettingsStore
	validate *validator.Validate
	logger   zerolog.Logger
}

// NewSettingsService creates a new settings service
func NewSettingsService(store ports.SettingsStore, logger zerolog.Logger) *SettingsService {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &SettingsService{
		store:    store,
		validate: v,
		logger:   logger,
	}
}

// Get returns the settings of a shop, creating and persisting the defaults
// on first access.
func (s *SettingsService) Get(ctx context.Context, shop string) (domain.ShopSettings, error) {
	settings, err := s.store.Get(ctx, shop)
	if err != nil {
		return domain.ShopSettings{}, fmt.Errorf("failed to load settings: %w", err)
	}
	if settings != nil {
		return *settings, nil
	}

	defaults := domain.DefaultSettings()
	if err := s.store.Put(ctx, shop, defaults); err != nil {
		return domain.ShopSettings{}, fmt.Errorf("failed to create default settings: %w", err)
	}
	s.logger.Info().Str("shop", shop).Msg("Created default settings")
	return defaults, nil
}

// Snapshot reads the settings without creating them. The boolean is false
// when the shop has no record.
func (s *SettingsService) Snapshot(ctx context.Context, shop string) (domain.ShopSettings, bool, error) {
	settings, err := s.store.Get(ctx, shop)
	if err != nil {
		return domain.ShopSettings{}, false, fmt.Errorf("failed to load settings: %w", err)
	}
	if settings == nil {
		return domain.DefaultSettings(), false, nil
	}
	return *settings, true, nil
}

// EnsureDefaults stores defaults for a shop that has no record yet, seeding
// the currency from the shop when known.
func (s *SettingsService) EnsureDefaults(ctx context.Context, shop string, currency string) error {
	existing, err := s.store.Get(ctx, shop)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	if existing != nil {
		return nil
	}
	defaults := domain.DefaultSettings()
	if len(currency) == 3 {
		defaults.CurrencyCode = strings.ToUpper(currency)
	}
	if err := s.store.Put(ctx, shop, defaults); err != nil {
		return fmt.Errorf("failed to create default settings: %w", err)
	}
	return nil
}

// Update validates and persists a full settings record. Last write wins.
func (s *SettingsService) Update(ctx context.Context, shop string, settings domain.ShopSettings) (domain.ShopSettings, error) {
	if err := s.Validate(settings); err != nil {
		return domain.ShopSettings{}, err
	}
	if err := s.store.Put(ctx, shop, settings); err != nil {
		return domain.ShopSettings{}, fmt.Errorf("failed to save settings: %w", err)
	}
	s.logger.Info().
		Str("shop", shop).
		Bool("enabled", settings.Enabled).
		Int64("thresholdMinor", settings.ThresholdMinor).
		Bool("calculateDifference", settings.CalculateDifference).
		Msg("Settings updated")
	return settings, nil
}

// ApplyJSON decodes a partial or full JSON document onto the current
// settings and saves the result. Fields absent from the body keep their
// stored values.
func (s *SettingsService) ApplyJSON(ctx context.Context, shop string, body []byte) (domain.ShopSettings, error) {
	current, err := s.Get(ctx, shop)
	if err != nil {
		return domain.ShopSettings{}, err
	}
	if err := json.Unmarshal(body, &current); err != nil {
		verr := &domain.ValidationError{}
		verr.Add("body", "invalid JSON: "+err.Error())
		return domain.ShopSettings{}, verr
	}
	return s.Update(ctx, shop, current)
}

// Validate runs the struct tag rules and the record invariants.
func (s *SettingsService) Validate(settings domain.ShopSettings) error {
	verr := &domain.ValidationError{}
	if err := s.validate.Struct(settings); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return fmt.Errorf("failed to validate settings: %w", err)
		}
		for _, fe := range fieldErrs {
			verr.Add(fieldPath(fe), describe(fe))
		}
	}
	if err := settings.Validate(); err != nil {
		var domainErr *domain.ValidationError
		if errors.As(err, &domainErr) {
			for field, msg := range domainErr.Fields {
				verr.Add(field, msg)
			}
		}
	}
	if verr.Empty() {
		return nil
	}
	return verr
}

// Delete forgets the settings of a shop
func (s *SettingsService) Delete(ctx context.Context, shop string) error {
	return s.store.Delete(ctx, shop)
}

// Preview returns what the banner would display for a cart subtotal
func (s *SettingsService) Preview(ctx context.Context, shop string, subtotalMinor int64) (domain.DisplayState, error) {
	settings, err := s.Get(ctx, shop)
	if err != nil {
		return domain.DisplayState{}, err
	}
	return domain.DisplayForSubtotal(subtotalMinor, settings), nil
}

// fieldPath strips the struct name from the namespace: ShopSettings.border.widthPx -> border.widthPx
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "lte":
		return "must be less than or equal to " + fe.Param()
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "len":
		return "must be exactly " + fe.Param() + " characters"
	case "oneof":
		return "must be one of " + fe.Param()
	case "bcp47_language_tag":
		return "must be a BCP-47 language tag"
	}
	return "failed " + fe.Tag() + " validation"
}
