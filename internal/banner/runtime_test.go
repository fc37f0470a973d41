package banner

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"free-shipping-bar/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const waitFor = 2 * time.Second

type fakeReader struct {
	mu       sync.Mutex
	calls    int
	subtotal int64
	err      error
	gate     chan struct{}
}

func (f *fakeReader) ReadSubtotal(ctx context.Context) (int64, error) {
	f.mu.Lock()
	f.calls++
	gate, subtotal, err := f.gate, f.subtotal, f.err
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	return subtotal, err
}

func (f *fakeReader) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type countingMetrics struct {
	mu     sync.Mutex
	ok     int
	failed int
}

func (m *countingMetrics) ObserveCartRead(err error, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.failed++
	} else {
		m.ok++
	}
}

func (m *countingMetrics) counts() (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ok, m.failed
}

func dynamicSettings() domain.ShopSettings {
	s := domain.DefaultSettings()
	s.CalculateDifference = true
	s.MessageTemplate = "{price} to go"
	s.Locale = "en"
	s.DebounceMs = 10
	s.ReadTimeoutMs = 1000
	s.PollIntervalMs = 0
	return s
}

func startRuntime(t *testing.T, settings domain.ShopSettings, deps Deps) (*Runtime, *ElementRenderer) {
	t.Helper()
	renderer := NewElementRenderer("free-shipping-bar", nil)
	deps.Renderer = renderer
	deps.Logger = zerolog.Nop()
	r := Start(context.Background(), settings, deps)
	t.Cleanup(r.Stop)
	return r, renderer
}

func TestRuntimeDynamicRead(t *testing.T) {
	reader := &fakeReader{subtotal: 15000}
	r, renderer := startRuntime(t, dynamicSettings(), Deps{Reader: reader})

	require.Eventually(t, func() bool { return r.State() == StateShowingDynamic }, waitFor, time.Millisecond)
	assert.Equal(t, "50.00 to go", r.Display().Text)

	el, ok := renderer.Element()
	require.True(t, ok)
	assert.True(t, el.Visible)
	assert.Equal(t, "free-shipping-bar", el.ID)
	assert.Equal(t, "50.00 to go", el.Text)
}

func TestRuntimeTriggerBurstCoalesces(t *testing.T) {
	reader := &fakeReader{subtotal: 15000}
	settings := dynamicSettings()
	settings.DebounceMs = 20
	r, _ := startRuntime(t, settings, Deps{Reader: reader})

	require.Eventually(t, func() bool { return r.State() == StateShowingDynamic }, waitFor, time.Millisecond)
	require.Equal(t, 1, reader.Calls())

	for i := 0; i < 10; i++ {
		r.Trigger("event:cart:updated")
		time.Sleep(5 * time.Millisecond)
	}

	require.Eventually(t, func() bool { return reader.Calls() >= 2 }, waitFor, time.Millisecond)
	time.Sleep(100 * time.Millisecond)

	triggered := reader.Calls() - 1
	assert.GreaterOrEqual(t, triggered, 1)
	assert.LessOrEqual(t, triggered, 2, "a burst yields one read plus at most one coalesced read")
}

func TestRuntimeSingleInFlightRead(t *testing.T) {
	reader := &fakeReader{subtotal: 5000, gate: make(chan struct{})}
	r, _ := startRuntime(t, dynamicSettings(), Deps{Reader: reader})

	require.Eventually(t, func() bool { return reader.Calls() == 1 }, waitFor, time.Millisecond)
	assert.Equal(t, StateShowingLoading, r.State())

	for i := 0; i < 5; i++ {
		r.requestRead()
	}
	assert.Equal(t, 1, reader.Calls())
	assert.Equal(t, 1, r.Reads())

	close(reader.gate)

	require.Eventually(t, func() bool { return reader.Calls() == 2 }, waitFor, time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 2, reader.Calls(), "requests during a read coalesce into exactly one follow-up")
	assert.Equal(t, StateShowingDynamic, r.State())
}

func TestRuntimeStaticNeverReads(t *testing.T) {
	reader := &fakeReader{subtotal: 15000}
	settings := dynamicSettings()
	settings.CalculateDifference = false
	settings.MessageTemplate = "Free shipping from {threshold}"

	r, _ := startRuntime(t, settings, Deps{Reader: reader})

	require.Eventually(t, func() bool { return r.State() == StateShowingStatic }, waitFor, time.Millisecond)
	assert.Equal(t, "Free shipping from 200.00", r.Display().Text)

	r.Trigger("event:cart:updated")
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, reader.Calls())
	assert.Equal(t, StateShowingStatic, r.State())
}

func TestRuntimeDisabledRendersNothing(t *testing.T) {
	reader := &fakeReader{subtotal: 15000}
	settings := dynamicSettings()
	settings.Enabled = false

	r, renderer := startRuntime(t, settings, Deps{Reader: reader})
	r.Trigger("event:cart:updated")
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, StateUninitialized, r.State())
	assert.Zero(t, reader.Calls())
	_, mounted := renderer.Element()
	assert.False(t, mounted)
}

func TestRuntimeReadFailureShowsFallback(t *testing.T) {
	reader := &fakeReader{err: errors.New("cart unavailable")}
	metrics := &countingMetrics{}
	settings := dynamicSettings()
	settings.FallbackMessage = "Free shipping from {threshold}"

	r, renderer := startRuntime(t, settings, Deps{Reader: reader, Metrics: metrics})

	require.Eventually(t, func() bool { return r.State() == StateShowingStatic }, waitFor, time.Millisecond)
	assert.Equal(t, "Free shipping from 200.00", r.Display().Text)
	el, ok := renderer.Element()
	require.True(t, ok)
	assert.True(t, el.Visible)

	_, failed := metrics.counts()
	assert.Equal(t, 1, failed)

	// a later successful read recovers
	reader.mu.Lock()
	reader.err = nil
	reader.subtotal = 19000
	reader.mu.Unlock()
	r.Trigger("poll")
	require.Eventually(t, func() bool { return r.State() == StateShowingDynamic }, waitFor, time.Millisecond)
	assert.Equal(t, "10.00 to go", r.Display().Text)
}

func TestRuntimeReadTimeout(t *testing.T) {
	reader := &fakeReader{gate: make(chan struct{})}
	settings := dynamicSettings()
	settings.ReadTimeoutMs = 20

	r, _ := startRuntime(t, settings, Deps{Reader: reader})

	require.Eventually(t, func() bool { return r.State() == StateShowingStatic }, waitFor, time.Millisecond)
	assert.Equal(t, domain.FallbackText(r.settings), r.Display().Text)
}

func TestRuntimeSeedsFromFreshSnapshot(t *testing.T) {
	now := time.Now()
	cache := NewMemorySnapshotCache()
	require.NoError(t, cache.Store(domain.CartSnapshot{SubtotalMinor: 15000, FetchedAt: now.Add(-time.Hour)}))
	reader := &fakeReader{subtotal: 18000, gate: make(chan struct{})}

	r, _ := startRuntime(t, dynamicSettings(), Deps{Reader: reader, Cache: cache})

	require.Eventually(t, func() bool { return reader.Calls() == 1 }, waitFor, time.Millisecond)
	assert.Equal(t, StateShowingDynamic, r.State())
	assert.Equal(t, "50.00 to go", r.Display().Text)

	close(reader.gate)
	require.Eventually(t, func() bool { return r.Display().Text == "20.00 to go" }, waitFor, time.Millisecond)

	snap, ok, err := cache.Load()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(18000), snap.SubtotalMinor)
}

func TestRuntimeIgnoresStaleSnapshot(t *testing.T) {
	cache := NewMemorySnapshotCache()
	require.NoError(t, cache.Store(domain.CartSnapshot{SubtotalMinor: 15000, FetchedAt: time.Now().Add(-48 * time.Hour)}))
	reader := &fakeReader{gate: make(chan struct{})}

	r, _ := startRuntime(t, dynamicSettings(), Deps{Reader: reader, Cache: cache})

	require.Eventually(t, func() bool { return reader.Calls() == 1 }, waitFor, time.Millisecond)
	assert.Equal(t, StateShowingLoading, r.State())
	assert.Equal(t, domain.DefaultSettings().LoadingMessage, r.Display().Text)
}

func TestRuntimeHidesAtThresholdWithoutSuccessMessage(t *testing.T) {
	settings := dynamicSettings()
	settings.ShowSuccessMessage = false
	reader := &fakeReader{subtotal: 20000}

	r, renderer := startRuntime(t, settings, Deps{Reader: reader})

	require.Eventually(t, func() bool { return r.State() == StateHidden }, waitFor, time.Millisecond)
	el, ok := renderer.Element()
	require.True(t, ok, "the container stays mounted while hidden")
	assert.False(t, el.Visible)
}

func TestRuntimeWaitsForReadySignal(t *testing.T) {
	ready := make(chan struct{})
	reader := &fakeReader{subtotal: 100}

	r, renderer := startRuntime(t, dynamicSettings(), Deps{Reader: reader, Ready: ready})

	// triggers before the page is ready are absorbed by the initial read
	r.Trigger("event:cart:updated")
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, StateUninitialized, r.State())
	assert.Zero(t, reader.Calls())
	_, mounted := renderer.Element()
	assert.False(t, mounted)

	close(ready)
	require.Eventually(t, func() bool { return r.State() == StateShowingDynamic }, waitFor, time.Millisecond)
	assert.Equal(t, 1, reader.Calls())
}

func TestRuntimeRunsObservers(t *testing.T) {
	events := make(chan string)
	reader := &fakeReader{subtotal: 100}

	r, _ := startRuntime(t, dynamicSettings(), Deps{
		Reader:    reader,
		Observers: []Observer{EventObserver{Events: events}},
	})
	require.Eventually(t, func() bool { return reader.Calls() == 1 }, waitFor, time.Millisecond)

	events <- "cart:updated"
	require.Eventually(t, func() bool { return reader.Calls() == 2 }, waitFor, time.Millisecond)
	assert.Equal(t, StateShowingDynamic, r.State())
}

func TestRuntimeStopHaltsReads(t *testing.T) {
	reader := &fakeReader{subtotal: 100}
	settings := dynamicSettings()
	r := Start(context.Background(), settings, Deps{
		Reader:    reader,
		Renderer:  NewElementRenderer("free-shipping-bar", nil),
		Observers: []Observer{PollingObserver{Interval: 30 * time.Millisecond}},
		Logger:    zerolog.Nop(),
	})
	require.Eventually(t, func() bool { return reader.Calls() >= 2 }, waitFor, time.Millisecond)

	r.Stop()
	calls := reader.Calls()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, calls, reader.Calls())
}
