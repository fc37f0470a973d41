package repository

import (
	"context"
	"fmt"
	"time"

	"free-shipping-bar/internal/domain"
	"free-shipping-bar/internal/infrastructure/repository/entity"
	"free-shipping-bar/internal/ports"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoWebhookLog implements WebhookLogRepository using MongoDB
type MongoWebhookLog struct {
	webhooksCollection *mongo.Collection
}

// NewMongoWebhookLog creates a new MongoDB webhook log
func NewMongoWebhookLog(db *mongo.Database) ports.WebhookLogRepository {
	return &MongoWebhookLog{
		webhooksCollection: db.Collection("webhook_events"),
	}
}

// EnsureIndexes creates the shop/topic lookup index
func (r *MongoWebhookLog) EnsureIndexes(ctx context.Context) error {
	_, err := r.webhooksCollection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "shop", Value: 1}, {Key: "topic", Value: 1}, {Key: "receivedAt", Value: -1}},
		Options: options.Index().SetName("shop_topic_received"),
	})
	if err != nil {
		return fmt.Errorf("failed to create webhook indexes: %w", err)
	}
	return nil
}

// LogWebhook logs a webhook event
func (r *MongoWebhookLog) LogWebhook(ctx context.Context, event *domain.WebhookEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.ReceivedAt.IsZero() {
		event.ReceivedAt = time.Now().UTC()
	}

	doc := entity.MongoWebhookDocFromDomain(event)
	if doc.ID.IsZero() {
		doc.ID = primitive.NewObjectID()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}

	_, err := r.webhooksCollection.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("failed to log webhook: %w", err)
	}

	return nil
}

// DeleteByShop removes the logged events of a shop
func (r *MongoWebhookLog) DeleteByShop(ctx context.Context, shop string) error {
	if _, err := r.webhooksCollection.DeleteMany(ctx, bson.M{"shop": shop}); err != nil {
		return fmt.Errorf("failed to delete webhooks: %w", err)
	}
	return nil
}
