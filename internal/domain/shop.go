package domain

import (
	"regexp"
	"strings"
	"time"
)

// Shop represents an installed (or previously installed) merchant store.
type Shop struct {
	Domain        string     `json:"domain"`
	Name          string     `json:"name"`
	Email         string     `json:"email,omitempty"`
	Currency      string     `json:"currency"`
	PrimaryLocale string     `json:"primaryLocale"`
	UseScriptTag  bool       `json:"useScriptTag"`
	ScriptTagID   uint64     `json:"scriptTagId,omitempty"`
	InstalledAt   time.Time  `json:"installedAt"`
	UninstalledAt *time.Time `json:"uninstalledAt,omitempty"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// IsInstalled reports whether the app is currently installed on the shop.
func (s *Shop) IsInstalled() bool {
	return s != nil && s.UninstalledAt == nil
}

var shopDomainPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9\-]*\.myshopify\.com$`)

// NormalizeShopDomain lowercases and trims a shop parameter.
func NormalizeShopDomain(shop string) string {
	shop = strings.ToLower(strings.TrimSpace(shop))
	shop = strings.TrimPrefix(shop, "https://")
	shop = strings.TrimPrefix(shop, "http://")
	return strings.TrimSuffix(shop, "/")
}

// ValidShopDomain reports whether shop is a *.myshopify.com hostname.
func ValidShopDomain(shop string) bool {
	return shopDomainPattern.MatchString(shop)
}
