package application

import (
	"context"
	"errors"
	"testing"

	"free-shipping-bar/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type topicHandler struct {
	topic string
	err   error
	seen  []*domain.WebhookEvent
}

func (h *topicHandler) CanHandle(topic string) bool { return topic == h.topic }

func (h *topicHandler) Handle(_ context.Context, event *domain.WebhookEvent) error {
	h.seen = append(h.seen, event)
	return h.err
}

func TestWebhookDispatcherRoutesByTopic(t *testing.T) {
	d := NewWebhookDispatcher(zerolog.Nop())
	uninstall := &topicHandler{topic: domain.TopicAppUninstalled}
	redact := &topicHandler{topic: domain.TopicShopRedact}
	d.RegisterHandler(uninstall)
	d.RegisterHandler(redact)

	require.NoError(t, d.Dispatch(context.Background(), &domain.WebhookEvent{Topic: domain.TopicShopRedact}))
	assert.Empty(t, uninstall.seen)
	assert.Len(t, redact.seen, 1)
}

func TestWebhookDispatcherAcknowledgesUnknownTopics(t *testing.T) {
	d := NewWebhookDispatcher(zerolog.Nop())
	d.RegisterHandler(&topicHandler{topic: domain.TopicAppUninstalled})

	assert.NoError(t, d.Dispatch(context.Background(), &domain.WebhookEvent{Topic: "orders/create"}))
}

func TestWebhookDispatcherRunsEveryHandler(t *testing.T) {
	d := NewWebhookDispatcher(zerolog.Nop())
	failing := &topicHandler{topic: domain.TopicAppUninstalled, err: errBoom}
	after := &topicHandler{topic: domain.TopicAppUninstalled}
	d.RegisterHandler(failing)
	d.RegisterHandler(after)

	err := d.Dispatch(context.Background(), &domain.WebhookEvent{Topic: domain.TopicAppUninstalled})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errBoom))
	assert.Len(t, after.seen, 1)
}

func TestProcessWebhookLogsAndPublishes(t *testing.T) {
	log := &recordingWebhookLog{}
	pub := &recordingPublisher{}
	svc := NewWebhookService(log, pub, zerolog.Nop())

	event, err := svc.ProcessWebhook(context.Background(), domain.TopicAppUninstalled, testShop, "wh-1", []byte(`{}`), true)
	require.NoError(t, err)
	assert.NotEmpty(t, event.ID)
	assert.False(t, event.ReceivedAt.IsZero())
	assert.Equal(t, "wh-1", event.WebhookID)

	require.Len(t, log.events, 1)
	assert.Same(t, event, log.events[0])
	require.Len(t, pub.events, 1)
	assert.Same(t, event, pub.events[0])
}

func TestProcessWebhookLogFailureStillReturnsEvent(t *testing.T) {
	log := &recordingWebhookLog{err: errBoom}
	svc := NewWebhookService(log, nil, zerolog.Nop())

	event, err := svc.ProcessWebhook(context.Background(), domain.TopicShopRedact, testShop, "", []byte(`{}`), true)
	require.Error(t, err)
	require.NotNil(t, event)
	assert.Equal(t, domain.TopicShopRedact, event.Topic)
}

func TestShopFromWebhook(t *testing.T) {
	assert.Equal(t, testShop, ShopFromWebhook([]byte(`{"domain":"shop.example.com","myshopify_domain":"demo.myshopify.com"}`), ""))
	assert.Equal(t, testShop, ShopFromWebhook([]byte(`{"shop_domain":"Demo.myshopify.com"}`), ""))
	assert.Equal(t, testShop, ShopFromWebhook([]byte(`{"domain":"shop.example.com"}`), "demo.myshopify.com"))
	assert.Equal(t, testShop, ShopFromWebhook([]byte(`not json`), "demo.myshopify.com"))
	assert.Empty(t, ShopFromWebhook([]byte(`{}`), ""))
}
