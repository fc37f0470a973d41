package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"free-shipping-bar/internal/domain"
)

const maxSettingsResponse = 1 << 20

type settingsSource struct {
	URL  string
	File string
}

// loadSettings reads the banner settings from the app proxy URL or a file,
// layered over the defaults. With neither source the defaults are used.
func loadSettings(ctx context.Context, client *http.Client, src settingsSource) (domain.ShopSettings, error) {
	settings := domain.DefaultSettings()

	var raw []byte
	switch {
	case src.URL != "":
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
		if err != nil {
			return settings, fmt.Errorf("building settings request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		resp, err := client.Do(req)
		if err != nil {
			return settings, fmt.Errorf("fetching settings: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return settings, fmt.Errorf("fetching settings: unexpected status %d", resp.StatusCode)
		}
		raw, err = io.ReadAll(io.LimitReader(resp.Body, maxSettingsResponse))
		if err != nil {
			return settings, fmt.Errorf("reading settings: %w", err)
		}
	case src.File != "":
		var err error
		raw, err = os.ReadFile(src.File)
		if err != nil {
			return settings, fmt.Errorf("reading settings file: %w", err)
		}
	default:
		return settings, nil
	}

	if err := json.Unmarshal(raw, &settings); err != nil {
		return settings, fmt.Errorf("decoding settings: %w", err)
	}
	return settings, nil
}
