package domain

import "time"

// DisplayKind tags the banner display state.
type DisplayKind string

const (
	DisplayHidden  DisplayKind = "hidden"
	DisplayLoading DisplayKind = "loading"
	DisplayStatic  DisplayKind = "static"
	DisplayDynamic DisplayKind = "dynamic"
)

// DisplayState is what the banner currently shows. Text is empty when hidden.
type DisplayState struct {
	Kind DisplayKind `json:"kind"`
	Text string      `json:"text,omitempty"`
}

// Visible reports whether the banner container is shown.
func (d DisplayState) Visible() bool {
	return d.Kind != DisplayHidden && d.Kind != ""
}

// DisplayForSubtotal derives the display state for a completed cart read.
func DisplayForSubtotal(subtotalMinor int64, s ShopSettings) DisplayState {
	if !s.Enabled {
		return DisplayState{Kind: DisplayHidden}
	}
	if !s.CalculateDifference {
		return DisplayState{Kind: DisplayStatic, Text: StaticMessage(s)}
	}
	text, ok := DeriveMessage(subtotalMinor, s)
	if !ok {
		return DisplayState{Kind: DisplayHidden}
	}
	return DisplayState{Kind: DisplayDynamic, Text: text}
}

// CartSnapshot is the last successfully read cart subtotal.
type CartSnapshot struct {
	SubtotalMinor int64     `json:"subtotalMinor"`
	FetchedAt     time.Time `json:"fetchedAt"`
}

// IsStale reports whether the snapshot is too old to seed the initial render.
// A zero ttl means cached snapshots are never used.
func (c CartSnapshot) IsStale(now time.Time, ttl time.Duration) bool {
	if ttl <= 0 || c.FetchedAt.IsZero() {
		return true
	}
	return now.Sub(c.FetchedAt) > ttl
}
