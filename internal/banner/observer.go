package banner

import (
	"context"
	"strings"
	"time"
)

// Observer watches one source of cart changes and calls trigger for each.
// Observe blocks until ctx is done.
type Observer interface {
	Observe(ctx context.Context, trigger func(source string))
}

// PollingObserver triggers on a fixed interval while the page is visible.
type PollingObserver struct {
	Interval time.Duration
	// Visible reports page visibility; nil means always visible.
	Visible func() bool
}

func (o PollingObserver) Observe(ctx context.Context, trigger func(string)) {
	if o.Interval <= 0 {
		return
	}
	ticker := time.NewTicker(o.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if o.Visible == nil || o.Visible() {
				trigger("poll")
			}
		}
	}
}

// EventObserver triggers for every named cart event received, such as the
// cart:updated events themes dispatch.
type EventObserver struct {
	Events <-chan string
}

func (o EventObserver) Observe(ctx context.Context, trigger func(string)) {
	for {
		select {
		case <-ctx.Done():
			return
		case name, ok := <-o.Events:
			if !ok {
				return
			}
			trigger("event:" + name)
		}
	}
}

// cartFormActions are the form targets that change the cart.
var cartFormActions = []string{"/cart/add", "/cart/change", "/cart/update"}

// FormSubmitObserver triggers after a cart form submit, once the store had
// time to apply it.
type FormSubmitObserver struct {
	// Submits carries the action attribute of each submitted form.
	Submits <-chan string
	Delay   time.Duration
}

func (o FormSubmitObserver) Observe(ctx context.Context, trigger func(string)) {
	for {
		select {
		case <-ctx.Done():
			return
		case action, ok := <-o.Submits:
			if !ok {
				return
			}
			if !IsCartFormAction(action) {
				continue
			}
			if o.Delay > 0 {
				timer := time.NewTimer(o.Delay)
				select {
				case <-ctx.Done():
					timer.Stop()
					return
				case <-timer.C:
				}
			}
			trigger("submit")
		}
	}
}

// IsCartFormAction reports whether a form action targets the cart.
func IsCartFormAction(action string) bool {
	for _, target := range cartFormActions {
		if strings.Contains(action, target) {
			return true
		}
	}
	return false
}

// VisibilityObserver triggers when the page becomes visible again.
type VisibilityObserver struct {
	Changes <-chan bool
}

func (o VisibilityObserver) Observe(ctx context.Context, trigger func(string)) {
	for {
		select {
		case <-ctx.Done():
			return
		case visible, ok := <-o.Changes:
			if !ok {
				return
			}
			if visible {
				trigger("visibility")
			}
		}
	}
}
