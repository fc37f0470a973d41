package application

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"text/template"

	"free-shipping-bar/internal/domain"
	"free-shipping-bar/internal/ports"

	"github.com/rs/zerolog"
)

// ElementID is the DOM id of the rendered banner.
const ElementID = "free-shipping-bar"

//go:embed assets/free-shipping-bar.js.tmpl
var barScriptSource string

var barScriptTemplate = template.Must(template.New("free-shipping-bar.js").Parse(barScriptSource))

// ScriptOutcome tells which body the script endpoint produced.
type ScriptOutcome string

const (
	ScriptMissingShop ScriptOutcome = "missing_shop"
	ScriptNoop        ScriptOutcome = "noop"
	ScriptExtension   ScriptOutcome = "extension"
	ScriptFull        ScriptOutcome = "full"
)

const (
	missingShopScript = "// Error: Missing shop parameter\n"
	noopScript        = "/* free shipping bar: inactive for this shop */\n"
	extensionScript   = "console.log('Free shipping bar is delivered by the theme app extension');\n"
)

// Script is a rendered storefront script
type Script struct {
	Outcome ScriptOutcome
	Body    string
}

// ScriptService generates the storefront banner script for a shop
type ScriptService struct {
	shops    ports.ShopRepository
	settings *SettingsService
	logger   zerolog.Logger
}

// NewScriptService creates a new script service
func NewScriptService(shops ports.ShopRepository, settings *SettingsService, logger zerolog.Logger) *ScriptService {
	return &ScriptService{
		shops:    shops,
		settings: settings,
		logger:   logger,
	}
}

// Render returns the script body for a shop. Unknown, uninstalled and
// disabled shops get a no-op body so the storefront never breaks.
func (s *ScriptService) Render(ctx context.Context, shop string) (*Script, error) {
	shop = domain.NormalizeShopDomain(shop)
	if shop == "" {
		return &Script{Outcome: ScriptMissingShop, Body: missingShopScript}, nil
	}

	record, err := s.shops.Get(ctx, shop)
	if err != nil {
		return nil, fmt.Errorf("failed to load shop: %w", err)
	}
	if !record.IsInstalled() {
		return &Script{Outcome: ScriptNoop, Body: noopScript}, nil
	}
	if !record.UseScriptTag {
		s.logger.Debug().Str("shop", shop).Msg("ScriptTag delivery disabled, theme extension renders the bar")
		return &Script{Outcome: ScriptExtension, Body: extensionScript}, nil
	}

	settings, _, err := s.settings.Snapshot(ctx, shop)
	if err != nil {
		return nil, err
	}
	if !settings.Enabled {
		return &Script{Outcome: ScriptNoop, Body: noopScript}, nil
	}

	body, err := RenderBarScript(shop, settings)
	if err != nil {
		return nil, err
	}
	return &Script{Outcome: ScriptFull, Body: body}, nil
}

// RenderBarScript embeds the settings into the banner runtime. The values
// are JSON encoded, which escapes <, > and & so the output is safe inside a
// script element.
func RenderBarScript(shop string, settings domain.ShopSettings) (string, error) {
	settings.Normalize()
	settingsJSON, err := json.Marshal(settings)
	if err != nil {
		return "", fmt.Errorf("failed to encode settings: %w", err)
	}
	elementJSON, err := json.Marshal(ElementID)
	if err != nil {
		return "", fmt.Errorf("failed to encode element id: %w", err)
	}

	var buf bytes.Buffer
	if err := barScriptTemplate.Execute(&buf, struct {
		Shop          string
		SettingsJSON  string
		ElementIDJSON string
	}{
		Shop:          sanitizeComment(shop),
		SettingsJSON:  string(settingsJSON),
		ElementIDJSON: string(elementJSON),
	}); err != nil {
		return "", fmt.Errorf("failed to render script: %w", err)
	}
	return buf.String(), nil
}

// sanitizeComment keeps a value from closing the surrounding block comment
func sanitizeComment(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == '*' || r == '/' || r == '<' || r == '>' || r < 0x20 {
			continue
		}
		out = append(out, r)
	}
	return string(out)
}
