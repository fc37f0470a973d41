package logger

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestNewWritesServiceField(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "free-shipping-bar", Level: ParseLevel("debug"), Output: buf})

	log.Debug().Str("shop", "demo.myshopify.com").Msg("hello")

	assert.Contains(t, buf.String(), `"service":"free-shipping-bar"`)
	assert.Contains(t, buf.String(), `"shop":"demo.myshopify.com"`)
}

func TestNewRespectsLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Level: ParseLevel("warn"), Output: buf})

	log.Info().Msg("dropped")
	assert.Empty(t, buf.String())

	log.Warn().Msg("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestParseLevelDefaults(t *testing.T) {
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("invalid"))
	assert.Equal(t, zerolog.DebugLevel, ParseLevel(" DEBUG "))
}

func TestWithShopAttachesLogger(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Output: buf})

	ctx := WithShop(context.Background(), log, "demo.myshopify.com")
	zerolog.Ctx(ctx).Info().Msg("from context")

	assert.Contains(t, buf.String(), `"shop":"demo.myshopify.com"`)
}
