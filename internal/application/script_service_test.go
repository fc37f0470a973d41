package application

import (
	"context"
	"strings"
	"testing"

	"free-shipping-bar/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScriptRenderOutcomes(t *testing.T) {
	ctx := context.Background()

	t.Run("missing shop", func(t *testing.T) {
		f := newFixture()
		svc := NewScriptService(f.shops, f.settings, zerolog.Nop())
		script, err := svc.Render(ctx, "  ")
		require.NoError(t, err)
		assert.Equal(t, ScriptMissingShop, script.Outcome)
		assert.True(t, strings.HasPrefix(script.Body, "//"))
	})

	t.Run("unknown shop", func(t *testing.T) {
		f := newFixture()
		svc := NewScriptService(f.shops, f.settings, zerolog.Nop())
		script, err := svc.Render(ctx, testShop)
		require.NoError(t, err)
		assert.Equal(t, ScriptNoop, script.Outcome)
	})

	t.Run("uninstalled shop", func(t *testing.T) {
		f := newFixture()
		f.install(ctx, true, 77)
		require.NoError(t, f.shops.MarkUninstalled(ctx, testShop))
		svc := NewScriptService(f.shops, f.settings, zerolog.Nop())
		script, err := svc.Render(ctx, testShop)
		require.NoError(t, err)
		assert.Equal(t, ScriptNoop, script.Outcome)
	})

	t.Run("theme extension", func(t *testing.T) {
		f := newFixture()
		f.install(ctx, false, 0)
		svc := NewScriptService(f.shops, f.settings, zerolog.Nop())
		script, err := svc.Render(ctx, testShop)
		require.NoError(t, err)
		assert.Equal(t, ScriptExtension, script.Outcome)
		assert.Contains(t, script.Body, "console.log")
	})

	t.Run("disabled bar", func(t *testing.T) {
		f := newFixture()
		f.install(ctx, true, 77)
		s := domain.DefaultSettings()
		s.Enabled = false
		_, err := f.settings.Update(ctx, testShop, s)
		require.NoError(t, err)
		svc := NewScriptService(f.shops, f.settings, zerolog.Nop())
		script, err := svc.Render(ctx, testShop)
		require.NoError(t, err)
		assert.Equal(t, ScriptNoop, script.Outcome)
	})

	t.Run("full runtime", func(t *testing.T) {
		f := newFixture()
		f.install(ctx, true, 77)
		svc := NewScriptService(f.shops, f.settings, zerolog.Nop())
		script, err := svc.Render(ctx, "Demo.myshopify.com")
		require.NoError(t, err)
		assert.Equal(t, ScriptFull, script.Outcome)
		assert.Contains(t, script.Body, `"thresholdMinor":20000`)
		assert.Contains(t, script.Body, `var ELEMENT_ID = "free-shipping-bar";`)
		assert.Contains(t, script.Body, "freeShipping_lastCartState_")

		// rendering does not persist settings
		_, found, err := f.settings.Snapshot(ctx, testShop)
		require.NoError(t, err)
		assert.False(t, found)
	})
}

func TestRenderBarScriptEscapesSettings(t *testing.T) {
	s := domain.DefaultSettings()
	s.MessageTemplate = "</script><script>alert(1)</script> {threshold}"

	body, err := RenderBarScript("demo.myshopify.com*/alert(1)/*", s)
	require.NoError(t, err)
	assert.NotContains(t, body, "</script>")
	assert.Contains(t, body, `\u003c/script\u003e`)

	firstLine := strings.SplitN(body, "\n", 2)[0]
	assert.Equal(t, "/* free shipping bar for demo.myshopify.comalert(1) */", firstLine)
}

func TestRenderBarScriptNormalizesSettings(t *testing.T) {
	s := domain.ShopSettings{Enabled: true, ThresholdMinor: 5000}

	body, err := RenderBarScript(testShop, s)
	require.NoError(t, err)
	assert.Contains(t, body, `"debounceMs":200`)
	assert.Contains(t, body, `"readTimeoutMs":5000`)
}
