package entity

import (
	"encoding/json"
	"fmt"
	"time"

	"free-shipping-bar/internal/domain"
)

// SettingsRow is the shop_settings table. The full record lives in Payload;
// the hot fields are duplicated into columns for querying.
type SettingsRow struct {
	ShopDomain          string     `gorm:"column:shop_domain;primaryKey"`
	Enabled             bool       `gorm:"column:enabled"`
	ThresholdMinor      int64      `gorm:"column:threshold_minor"`
	CalculateDifference bool       `gorm:"column:calculate_difference"`
	Payload             string     `gorm:"column:payload"`
	UpdatedAt           *time.Time `gorm:"column:updated_at"`
}

func (SettingsRow) TableName() string { return "shop_settings" }

// ToDomain decodes the payload, normalising anything malformed
func (r *SettingsRow) ToDomain() (*domain.ShopSettings, error) {
	settings := domain.DefaultSettings()
	if r.Payload != "" {
		if err := json.Unmarshal([]byte(r.Payload), &settings); err != nil {
			return nil, fmt.Errorf("failed to decode settings for %s: %w", r.ShopDomain, err)
		}
	}
	settings.Enabled = r.Enabled
	settings.ThresholdMinor = r.ThresholdMinor
	settings.CalculateDifference = r.CalculateDifference
	settings.Normalize()
	return &settings, nil
}

// SettingsRowFromDomain converts a domain entity to a row
func SettingsRowFromDomain(shop string, settings domain.ShopSettings, now time.Time) (*SettingsRow, error) {
	payload, err := json.Marshal(settings)
	if err != nil {
		return nil, fmt.Errorf("failed to encode settings: %w", err)
	}
	return &SettingsRow{
		ShopDomain:          shop,
		Enabled:             settings.Enabled,
		ThresholdMinor:      settings.ThresholdMinor,
		CalculateDifference: settings.CalculateDifference,
		Payload:             string(payload),
		UpdatedAt:           &now,
	}, nil
}
