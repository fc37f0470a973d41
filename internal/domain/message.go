package domain

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// DeriveMessage computes the banner text for a cart subtotal. The boolean is
// false when the banner should be hidden. A negative subtotal is treated as
// an empty cart so a malformed read never reports success.
func DeriveMessage(subtotalMinor int64, s ShopSettings) (string, bool) {
	if subtotalMinor < 0 {
		subtotalMinor = 0
	}
	remaining := s.ThresholdMinor - subtotalMinor
	if remaining <= 0 {
		if s.ShowSuccessMessage {
			return s.SuccessMessage, true
		}
		return "", false
	}
	text := strings.ReplaceAll(s.MessageTemplate, PricePlaceholder, FormatMoney(remaining, s.Locale))
	text = strings.ReplaceAll(text, ThresholdPlaceholder, FormatMoney(s.ThresholdMinor, s.Locale))
	return text, true
}

// StaticMessage is the text shown when the difference is not calculated.
func StaticMessage(s ShopSettings) string {
	return strings.ReplaceAll(s.MessageTemplate, ThresholdPlaceholder, FormatMoney(s.ThresholdMinor, s.Locale))
}

// FallbackText is shown when the cart cannot be read. It only mentions the
// threshold, never a remaining amount.
func FallbackText(s ShopSettings) string {
	tmpl := s.FallbackMessage
	if strings.TrimSpace(tmpl) == "" {
		tmpl = DefaultSettings().FallbackMessage
	}
	return strings.ReplaceAll(tmpl, ThresholdPlaceholder, FormatMoney(s.ThresholdMinor, s.Locale))
}

// FormatMoney renders an amount in minor units with two decimals using the
// separators of the given locale.
func FormatMoney(minor int64, locale string) string {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	value := decimal.New(minor, -2).InexactFloat64()
	p := message.NewPrinter(tag)
	return p.Sprint(number.Decimal(value, number.Scale(2)))
}
