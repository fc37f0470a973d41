package repository

import (
	"context"
	"testing"

	"free-shipping-bar/internal/domain"
	"free-shipping-bar/internal/infrastructure/repository/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormWebhookLog(t *testing.T) {
	db := newTestDB(t)
	log := NewGormWebhookLog(db)
	ctx := context.Background()

	event := &domain.WebhookEvent{
		Topic:    domain.TopicAppUninstalled,
		Shop:     testShop,
		Payload:  []byte(`{"domain":"demo.myshopify.com"}`),
		Verified: true,
	}
	require.NoError(t, log.LogWebhook(ctx, event))
	assert.NotEmpty(t, event.ID)
	assert.False(t, event.ReceivedAt.IsZero())

	var rows []entity.WebhookEventRow
	require.NoError(t, db.Where("shop = ?", testShop).Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, domain.TopicAppUninstalled, rows[0].ToDomain().Topic)
	assert.JSONEq(t, `{"domain":"demo.myshopify.com"}`, string(rows[0].ToDomain().Payload))

	require.NoError(t, log.DeleteByShop(ctx, testShop))
	require.NoError(t, db.Where("shop = ?", testShop).Find(&rows).Error)
	assert.Empty(t, rows)
}

func TestMongoWebhookDocRoundTrip(t *testing.T) {
	event := &domain.WebhookEvent{ID: "evt-1", Topic: domain.TopicShopRedact, Shop: testShop, Payload: []byte(`{}`), Verified: true}
	doc := entity.MongoWebhookDocFromDomain(event)
	assert.Equal(t, "evt-1", doc.EventID)
	assert.Equal(t, event, doc.ToDomain())
}

func TestNopWebhookLog(t *testing.T) {
	var log NopWebhookLog
	assert.NoError(t, log.LogWebhook(context.Background(), &domain.WebhookEvent{}))
	assert.NoError(t, log.DeleteByShop(context.Background(), testShop))
}
