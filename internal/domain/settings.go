package domain

import (
	"strings"
	"time"
)

// Placeholders recognised in message templates.
const (
	PricePlaceholder     = "{price}"
	ThresholdPlaceholder = "{threshold}"
)

// BarPosition is the CSS positioning mode of the banner container.
type BarPosition string

const (
	BarPositionTop      BarPosition = "top"
	BarPositionBottom   BarPosition = "bottom"
	BarPositionFixed    BarPosition = "fixed"
	BarPositionAbsolute BarPosition = "absolute"
)

// Valid reports whether p is one of the known positions.
func (p BarPosition) Valid() bool {
	switch p {
	case BarPositionTop, BarPositionBottom, BarPositionFixed, BarPositionAbsolute:
		return true
	}
	return false
}

// BorderStyle describes the optional banner border.
type BorderStyle struct {
	Show     bool   `json:"show"`
	WidthPx  int    `json:"widthPx" validate:"gte=0,lte=20"`
	Color    string `json:"color"`
	RadiusPx int    `json:"radiusPx" validate:"gte=0,lte=100"`
}

// ShadowStyle describes the optional banner drop shadow.
type ShadowStyle struct {
	Show      bool   `json:"show"`
	Color     string `json:"color"`
	BlurPx    int    `json:"blurPx" validate:"gte=0,lte=100"`
	OffsetYPx int    `json:"offsetYPx" validate:"gte=-100,lte=100"`
}

// ShopSettings is the per-shop banner configuration. The storefront script
// receives a copy of it once per page load.
type ShopSettings struct {
	Enabled             bool   `json:"enabled"`
	ThresholdMinor      int64  `json:"thresholdMinor" validate:"gte=0"`
	CalculateDifference bool   `json:"calculateDifference"`
	MessageTemplate     string `json:"messageTemplate" validate:"required,max=500"`
	LoadingMessage      string `json:"loadingMessage" validate:"max=500"`
	SuccessMessage      string `json:"successMessage" validate:"max=500"`
	ShowSuccessMessage  bool   `json:"showSuccessMessage"`
	FallbackMessage     string `json:"fallbackMessage" validate:"max=500"`
	Locale              string `json:"locale" validate:"omitempty,bcp47_language_tag"`
	CurrencyCode        string `json:"currency" validate:"omitempty,len=3"`

	BarColor              string      `json:"barColor" validate:"required"`
	TextColor             string      `json:"textColor" validate:"required"`
	FontSizePx            int         `json:"fontSizePx" validate:"gte=8,lte=72"`
	BarHeightPx           int         `json:"barHeightPx" validate:"gte=10,lte=300"`
	BarTopOffsetPx        int         `json:"barTopOffsetPx" validate:"gte=0,lte=1000"`
	BarPosition           BarPosition `json:"barPosition" validate:"oneof=top bottom fixed absolute"`
	BoldText              bool        `json:"boldText"`
	Border                BorderStyle `json:"border"`
	Shadow                ShadowStyle `json:"shadow"`
	TransparentBackground bool        `json:"transparentBackground"`
	BarWidthPercent       int         `json:"barWidthPercent" validate:"gte=0,lte=100"`

	CacheTTLSeconds int `json:"cacheTtlSeconds" validate:"gte=0,lte=604800"`
	DebounceMs      int `json:"debounceMs" validate:"gte=0,lte=5000"`
	PollIntervalMs  int `json:"pollIntervalMs" validate:"gte=0,lte=600000"`
	ReadTimeoutMs   int `json:"readTimeoutMs" validate:"gte=0,lte=60000"`
}

const (
	DefaultLocale         = "pl"
	DefaultCurrency       = "PLN"
	DefaultThresholdMinor = 20000
	DefaultCacheTTL       = 24 * time.Hour
	DefaultDebounce       = 200 * time.Millisecond
	DefaultPollInterval   = 10 * time.Second
	DefaultReadTimeout    = 5 * time.Second
)

// DefaultSettings returns the settings a shop starts with after install.
func DefaultSettings() ShopSettings {
	return ShopSettings{
		Enabled:             true,
		ThresholdMinor:      DefaultThresholdMinor,
		CalculateDifference: false,
		MessageTemplate:     "Darmowa dostawa od {threshold} zł",
		LoadingMessage:      "Sprawdzam koszyk...",
		SuccessMessage:      "Gratulacje! Masz darmową dostawę :)",
		ShowSuccessMessage:  true,
		FallbackMessage:     "Darmowa dostawa od {threshold} zł",
		Locale:              DefaultLocale,
		CurrencyCode:        DefaultCurrency,

		BarColor:       "#4CAF50",
		TextColor:      "#FFFFFF",
		FontSizePx:     16,
		BarHeightPx:    50,
		BarTopOffsetPx: 70,
		BarPosition:    BarPositionTop,
		Border: BorderStyle{
			WidthPx: 1,
			Color:   "#000000",
		},
		Shadow: ShadowStyle{
			Color:     "rgba(0, 0, 0, 0.3)",
			BlurPx:    5,
			OffsetYPx: 2,
		},
		BarWidthPercent: 100,

		CacheTTLSeconds: int(DefaultCacheTTL / time.Second),
		DebounceMs:      int(DefaultDebounce / time.Millisecond),
		PollIntervalMs:  int(DefaultPollInterval / time.Millisecond),
		ReadTimeoutMs:   int(DefaultReadTimeout / time.Millisecond),
	}
}

// Normalize repairs malformed or missing fields with their defaults so a
// stored record can always be rendered. Flags are left as they are.
func (s *ShopSettings) Normalize() {
	def := DefaultSettings()

	if s.ThresholdMinor < 0 {
		s.ThresholdMinor = 0
	}
	if strings.TrimSpace(s.MessageTemplate) == "" {
		s.MessageTemplate = def.MessageTemplate
	}
	if strings.TrimSpace(s.LoadingMessage) == "" {
		s.LoadingMessage = def.LoadingMessage
	}
	if strings.TrimSpace(s.SuccessMessage) == "" {
		s.SuccessMessage = def.SuccessMessage
	}
	if strings.TrimSpace(s.FallbackMessage) == "" {
		s.FallbackMessage = def.FallbackMessage
	}
	if s.Locale == "" {
		s.Locale = def.Locale
	}
	if s.CurrencyCode == "" {
		s.CurrencyCode = def.CurrencyCode
	}
	if s.BarColor == "" {
		s.BarColor = def.BarColor
	}
	if s.TextColor == "" {
		s.TextColor = def.TextColor
	}
	if s.FontSizePx <= 0 {
		s.FontSizePx = def.FontSizePx
	}
	if s.BarHeightPx <= 0 {
		s.BarHeightPx = def.BarHeightPx
	}
	if s.BarTopOffsetPx < 0 {
		s.BarTopOffsetPx = 0
	}
	if !s.BarPosition.Valid() {
		s.BarPosition = def.BarPosition
	}
	if s.Border.Color == "" {
		s.Border.Color = def.Border.Color
	}
	if s.Shadow.Color == "" {
		s.Shadow.Color = def.Shadow.Color
	}
	switch {
	case s.BarWidthPercent < 0:
		s.BarWidthPercent = 0
	case s.BarWidthPercent > 100:
		s.BarWidthPercent = 100
	}
	if s.CacheTTLSeconds < 0 {
		s.CacheTTLSeconds = def.CacheTTLSeconds
	}
	if s.DebounceMs <= 0 {
		s.DebounceMs = def.DebounceMs
	}
	if s.PollIntervalMs < 0 {
		s.PollIntervalMs = def.PollIntervalMs
	}
	if s.ReadTimeoutMs <= 0 {
		s.ReadTimeoutMs = def.ReadTimeoutMs
	}
}

// Validate checks the record invariants that the settings API enforces on
// every write.
func (s ShopSettings) Validate() error {
	verr := &ValidationError{}
	if s.ThresholdMinor < 0 {
		verr.Add("thresholdMinor", "must be greater than or equal to 0")
	}
	if s.BarWidthPercent < 0 || s.BarWidthPercent > 100 {
		verr.Add("barWidthPercent", "must be between 0 and 100")
	}
	if s.CalculateDifference && !strings.Contains(s.MessageTemplate, PricePlaceholder) {
		verr.Add("messageTemplate", "must contain "+PricePlaceholder+" when calculateDifference is enabled")
	}
	if !s.BarPosition.Valid() {
		verr.Add("barPosition", "must be one of top, bottom, fixed, absolute")
	}
	if verr.Empty() {
		return nil
	}
	return verr
}

// CacheTTL is how long a cached cart snapshot may seed the first render.
func (s ShopSettings) CacheTTL() time.Duration {
	return time.Duration(s.CacheTTLSeconds) * time.Second
}

// Debounce is the quiet window applied to cart-change triggers.
func (s ShopSettings) Debounce() time.Duration {
	if s.DebounceMs <= 0 {
		return DefaultDebounce
	}
	return time.Duration(s.DebounceMs) * time.Millisecond
}

// PollInterval is the periodic cart read interval; zero disables polling.
func (s ShopSettings) PollInterval() time.Duration {
	return time.Duration(s.PollIntervalMs) * time.Millisecond
}

// ReadTimeout bounds a single cart read.
func (s ShopSettings) ReadTimeout() time.Duration {
	if s.ReadTimeoutMs <= 0 {
		return DefaultReadTimeout
	}
	return time.Duration(s.ReadTimeoutMs) * time.Millisecond
}
