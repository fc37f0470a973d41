package repository

import (
	"context"
	"testing"

	"free-shipping-bar/internal/domain"
	"free-shipping-bar/internal/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testShop = "demo.myshopify.com"

func exerciseSettingsStore(t *testing.T, store ports.SettingsStore) {
	t.Helper()
	ctx := context.Background()

	got, err := store.Get(ctx, testShop)
	require.NoError(t, err)
	assert.Nil(t, got)

	settings := domain.DefaultSettings()
	settings.ThresholdMinor = 15000
	settings.CalculateDifference = true
	settings.MessageTemplate = "Still {price} to go"
	settings.BarColor = "#123456"
	require.NoError(t, store.Put(ctx, testShop, settings))

	got, err = store.Get(ctx, testShop)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, settings, *got)

	// last write wins
	settings.Enabled = false
	settings.ThresholdMinor = 30000
	require.NoError(t, store.Put(ctx, testShop, settings))
	got, err = store.Get(ctx, testShop)
	require.NoError(t, err)
	assert.False(t, got.Enabled)
	assert.Equal(t, int64(30000), got.ThresholdMinor)

	require.NoError(t, store.Delete(ctx, testShop))
	got, err = store.Get(ctx, testShop)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestGormSettingsStore(t *testing.T) {
	exerciseSettingsStore(t, NewGormSettingsStore(newTestDB(t)))
}

func TestMemorySettingsStore(t *testing.T) {
	exerciseSettingsStore(t, NewMemorySettingsStore())
}

func TestGormSettingsStoreNormalizesMalformedPayload(t *testing.T) {
	db := newTestDB(t)
	store := NewGormSettingsStore(db)
	ctx := context.Background()

	require.NoError(t, db.Exec(
		"INSERT INTO shop_settings (shop_domain, enabled, threshold_minor, calculate_difference, payload) VALUES (?, ?, ?, ?, ?)",
		testShop, true, -10, false, `{"barWidthPercent": 400, "messageTemplate": ""}`,
	).Error)

	got, err := store.Get(ctx, testShop)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(0), got.ThresholdMinor)
	assert.Equal(t, 100, got.BarWidthPercent)
	assert.Equal(t, domain.DefaultSettings().MessageTemplate, got.MessageTemplate)
}
