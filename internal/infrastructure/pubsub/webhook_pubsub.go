package pubsub

import (
	"context"
	"slices"
	"sync"
	"time"

	"free-shipping-bar/internal/domain"
	"free-shipping-bar/internal/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// subscriptionBuffer is how many notices a slow subscriber may lag behind
// before notices are dropped for it.
const subscriptionBuffer = 16

// Notice is the payload-free view of a webhook delivery that is fanned out
// to admin sessions.
type Notice struct {
	ID         string    `json:"id"`
	Topic      string    `json:"topic"`
	Shop       string    `json:"shop"`
	Verified   bool      `json:"verified"`
	ReceivedAt time.Time `json:"receivedAt"`
}

// Filter narrows a subscription. Empty fields match everything.
type Filter struct {
	Topics []string
	Shop   string
}

func (f Filter) matches(event *domain.WebhookEvent) bool {
	if len(f.Topics) > 0 && !slices.Contains(f.Topics, event.Topic) {
		return false
	}
	return f.Shop == "" || f.Shop == event.Shop
}

// Subscription receives notices until its context ends or it is cancelled.
type Subscription struct {
	ID     string
	Filter Filter
	Events <-chan Notice

	events chan Notice
	cancel context.CancelFunc
}

// Close ends the subscription.
func (s *Subscription) Close() {
	s.cancel()
}

// WebhookPubSub fans processed webhook deliveries out to live subscribers.
type WebhookPubSub struct {
	mu     sync.RWMutex
	subs   map[string]*Subscription
	logger zerolog.Logger
}

var _ ports.WebhookPublisher = (*WebhookPubSub)(nil)

// NewWebhookPubSub creates an empty hub
func NewWebhookPubSub(logger zerolog.Logger) *WebhookPubSub {
	return &WebhookPubSub{
		subs:   make(map[string]*Subscription),
		logger: logger,
	}
}

// Subscribe registers a subscriber. The Events channel is closed once ctx is
// done or Close is called.
func (ps *WebhookPubSub) Subscribe(ctx context.Context, filter Filter) *Subscription {
	subCtx, cancel := context.WithCancel(ctx)
	events := make(chan Notice, subscriptionBuffer)
	sub := &Subscription{
		ID:     uuid.NewString(),
		Filter: filter,
		Events: events,
		events: events,
		cancel: cancel,
	}

	ps.mu.Lock()
	ps.subs[sub.ID] = sub
	ps.mu.Unlock()

	ps.logger.Debug().
		Str("subscriptionId", sub.ID).
		Str("shop", filter.Shop).
		Strs("topics", filter.Topics).
		Msg("Webhook subscription created")

	go func() {
		<-subCtx.Done()
		ps.unsubscribe(sub.ID)
	}()

	return sub
}

func (ps *WebhookPubSub) unsubscribe(id string) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	sub, ok := ps.subs[id]
	if !ok {
		return
	}
	close(sub.events)
	delete(ps.subs, id)

	ps.logger.Debug().Str("subscriptionId", id).Msg("Webhook subscription removed")
}

// Publish delivers a notice to every matching subscriber without blocking.
func (ps *WebhookPubSub) Publish(event *domain.WebhookEvent) {
	if event == nil {
		return
	}
	notice := Notice{
		ID:         event.ID,
		Topic:      event.Topic,
		Shop:       event.Shop,
		Verified:   event.Verified,
		ReceivedAt: event.ReceivedAt,
	}

	ps.mu.RLock()
	defer ps.mu.RUnlock()

	delivered := 0
	for _, sub := range ps.subs {
		if !sub.Filter.matches(event) {
			continue
		}
		select {
		case sub.events <- notice:
			delivered++
		default:
			ps.logger.Warn().
				Str("subscriptionId", sub.ID).
				Str("topic", event.Topic).
				Msg("Subscriber buffer full, dropping notice")
		}
	}

	if delivered > 0 {
		ps.logger.Debug().
			Str("topic", event.Topic).
			Str("shop", event.Shop).
			Int("subscribers", delivered).
			Msg("Published webhook notice")
	}
}

// Subscribers returns the number of live subscriptions.
func (ps *WebhookPubSub) Subscribers() int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return len(ps.subs)
}
