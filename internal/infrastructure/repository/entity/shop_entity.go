package entity

import (
	"time"

	"free-shipping-bar/internal/domain"
)

// ShopRow is the shops table
type ShopRow struct {
	Domain        string     `gorm:"column:domain;primaryKey"`
	Name          string     `gorm:"column:name"`
	Email         string     `gorm:"column:email"`
	Currency      string     `gorm:"column:currency"`
	PrimaryLocale string     `gorm:"column:primary_locale"`
	UseScriptTag  bool       `gorm:"column:use_script_tag"`
	ScriptTagID   uint64     `gorm:"column:script_tag_id"`
	InstalledAt   *time.Time `gorm:"column:installed_at"`
	UninstalledAt *time.Time `gorm:"column:uninstalled_at"`
	UpdatedAt     *time.Time `gorm:"column:updated_at"`
}

func (ShopRow) TableName() string { return "shops" }

// ToDomain converts the row to a domain entity
func (r *ShopRow) ToDomain() *domain.Shop {
	shop := &domain.Shop{
		Domain:        r.Domain,
		Name:          r.Name,
		Email:         r.Email,
		Currency:      r.Currency,
		PrimaryLocale: r.PrimaryLocale,
		UseScriptTag:  r.UseScriptTag,
		ScriptTagID:   r.ScriptTagID,
		UninstalledAt: r.UninstalledAt,
	}
	if r.InstalledAt != nil {
		shop.InstalledAt = *r.InstalledAt
	}
	if r.UpdatedAt != nil {
		shop.UpdatedAt = *r.UpdatedAt
	}
	return shop
}

// ShopRowFromDomain converts a domain entity to a row
func ShopRowFromDomain(shop *domain.Shop) *ShopRow {
	row := &ShopRow{
		Domain:        shop.Domain,
		Name:          shop.Name,
		Email:         shop.Email,
		Currency:      shop.Currency,
		PrimaryLocale: shop.PrimaryLocale,
		UseScriptTag:  shop.UseScriptTag,
		ScriptTagID:   shop.ScriptTagID,
		UninstalledAt: shop.UninstalledAt,
	}
	if !shop.InstalledAt.IsZero() {
		installed := shop.InstalledAt
		row.InstalledAt = &installed
	}
	if !shop.UpdatedAt.IsZero() {
		updated := shop.UpdatedAt
		row.UpdatedAt = &updated
	}
	return row
}
