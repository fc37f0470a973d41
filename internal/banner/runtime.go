// Package banner runs the free shipping banner state machine outside the
// browser. It mirrors the storefront script: one debounced trigger path, at
// most one cart read in flight and a single coalesced follow-up read.
package banner

import (
	"context"
	"sync"
	"time"

	"free-shipping-bar/internal/domain"

	"github.com/rs/zerolog"
)

// State is the lifecycle state of a Runtime.
type State string

const (
	StateUninitialized  State = "uninitialized"
	StateShowingStatic  State = "showing_static"
	StateShowingLoading State = "showing_loading"
	StateShowingDynamic State = "showing_dynamic"
	StateHidden         State = "hidden"
)

// CartReader returns the current cart subtotal in minor units.
type CartReader interface {
	ReadSubtotal(ctx context.Context) (int64, error)
}

// Renderer shows a display state in the single banner element.
type Renderer interface {
	Render(state domain.DisplayState)
}

// SnapshotCache keeps the last completed cart read between page loads.
type SnapshotCache interface {
	Load() (domain.CartSnapshot, bool, error)
	Store(snapshot domain.CartSnapshot) error
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// ReadySignal is closed once the page can be rendered into. A nil signal
// means ready.
type ReadySignal <-chan struct{}

// ReadMetrics observes completed cart reads.
type ReadMetrics interface {
	ObserveCartRead(err error, d time.Duration)
}

// Deps are the collaborators of a Runtime. Reader and Renderer are required.
type Deps struct {
	Reader    CartReader
	Renderer  Renderer
	Cache     SnapshotCache
	Clock     Clock
	Ready     ReadySignal
	Observers []Observer
	Metrics   ReadMetrics
	Logger    zerolog.Logger
}

// Runtime is a started banner.
type Runtime struct {
	settings domain.ShopSettings
	deps     Deps

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	state    State
	display  domain.DisplayState
	inFlight bool
	pending  bool
	debounce *time.Timer
	reads    int
	stopped  bool
}

// Start is the single entry point. It returns immediately; rendering waits
// for the ready signal. A disabled banner renders nothing and never reads.
func Start(ctx context.Context, settings domain.ShopSettings, deps Deps) *Runtime {
	settings.Normalize()
	if deps.Clock == nil {
		deps.Clock = SystemClock{}
	}
	if deps.Cache == nil {
		deps.Cache = NewMemorySnapshotCache()
	}

	runCtx, cancel := context.WithCancel(ctx)
	r := &Runtime{
		settings: settings,
		deps:     deps,
		ctx:      runCtx,
		cancel:   cancel,
		state:    StateUninitialized,
	}
	if !settings.Enabled {
		deps.Logger.Debug().Msg("Banner disabled")
		return r
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if deps.Ready != nil {
			select {
			case <-deps.Ready:
			case <-runCtx.Done():
				return
			}
		}
		r.init()
	}()
	return r
}

func (r *Runtime) init() {
	if !r.settings.CalculateDifference {
		r.mu.Lock()
		r.setLocked(StateShowingStatic, domain.DisplayState{Kind: domain.DisplayStatic, Text: domain.StaticMessage(r.settings)})
		r.mu.Unlock()
		return
	}

	r.mu.Lock()
	snap, ok, err := r.deps.Cache.Load()
	if err != nil {
		r.deps.Logger.Warn().Err(err).Msg("Failed to load cart snapshot")
	}
	if ok && err == nil && !snap.IsStale(r.deps.Clock.Now(), r.settings.CacheTTL()) {
		r.applySubtotalLocked(snap.SubtotalMinor)
	} else {
		r.setLocked(StateShowingLoading, domain.DisplayState{Kind: domain.DisplayLoading, Text: r.settings.LoadingMessage})
	}
	r.mu.Unlock()

	r.requestRead()

	for _, o := range r.deps.Observers {
		o := o
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			o.Observe(r.ctx, r.Trigger)
		}()
	}
}

// Trigger reports a possible cart change. Triggers inside the debounce
// window collapse into one read request.
func (r *Runtime) Trigger(source string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped || !r.reading() {
		return
	}
	r.deps.Logger.Debug().Str("source", source).Msg("Cart change trigger")
	if r.debounce != nil {
		r.debounce.Stop()
	}
	r.debounce = time.AfterFunc(r.settings.Debounce(), r.requestRead)
}

// reading reports whether the runtime reacts to cart changes
func (r *Runtime) reading() bool {
	switch r.state {
	case StateShowingLoading, StateShowingDynamic, StateHidden:
		return true
	}
	// a failed first read leaves the fallback shown as static text
	return r.state == StateShowingStatic && r.settings.CalculateDifference
}

func (r *Runtime) requestRead() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return
	}
	if r.inFlight {
		r.pending = true
		return
	}
	r.inFlight = true
	r.reads++
	r.wg.Add(1)
	go r.read()
}

func (r *Runtime) read() {
	defer r.wg.Done()

	ctx, cancel := context.WithTimeout(r.ctx, r.settings.ReadTimeout())
	start := r.deps.Clock.Now()
	subtotal, err := r.deps.Reader.ReadSubtotal(ctx)
	cancel()
	if r.deps.Metrics != nil {
		r.deps.Metrics.ObserveCartRead(err, r.deps.Clock.Now().Sub(start))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		r.inFlight = false
		return
	}

	if err != nil {
		r.deps.Logger.Warn().Err(err).Msg("Cart read failed")
		r.setLocked(StateShowingStatic, domain.DisplayState{Kind: domain.DisplayStatic, Text: domain.FallbackText(r.settings)})
	} else {
		r.applySubtotalLocked(subtotal)
		snap := domain.CartSnapshot{SubtotalMinor: subtotal, FetchedAt: r.deps.Clock.Now()}
		if err := r.deps.Cache.Store(snap); err != nil {
			r.deps.Logger.Warn().Err(err).Msg("Failed to store cart snapshot")
		}
	}

	if r.pending {
		r.pending = false
		r.reads++
		r.wg.Add(1)
		go r.read()
		return
	}
	r.inFlight = false
}

func (r *Runtime) applySubtotalLocked(subtotal int64) {
	display := domain.DisplayForSubtotal(subtotal, r.settings)
	state := StateShowingDynamic
	if !display.Visible() {
		state = StateHidden
	}
	r.setLocked(state, display)
}

func (r *Runtime) setLocked(state State, display domain.DisplayState) {
	if r.state != state {
		r.deps.Logger.Debug().Str("from", string(r.state)).Str("to", string(state)).Msg("Banner state changed")
	}
	r.state = state
	r.display = display
	r.deps.Renderer.Render(display)
}

// State returns the current lifecycle state.
func (r *Runtime) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Display returns what the banner currently shows.
func (r *Runtime) Display() domain.DisplayState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.display
}

// Reads returns the number of cart reads started so far.
func (r *Runtime) Reads() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reads
}

// Stop cancels observers and in-flight reads and waits for them to exit.
func (r *Runtime) Stop() {
	r.mu.Lock()
	r.stopped = true
	if r.debounce != nil {
		r.debounce.Stop()
	}
	r.mu.Unlock()
	r.cancel()
	r.wg.Wait()
}
