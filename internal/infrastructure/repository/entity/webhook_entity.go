package entity

import (
	"time"

	"free-shipping-bar/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MongoWebhookDoc represents a logged webhook delivery in MongoDB
type MongoWebhookDoc struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	EventID    string             `bson:"eventId"`
	Topic      string             `bson:"topic"`
	Shop       string             `bson:"shop"`
	WebhookID  string             `bson:"webhookId,omitempty"`
	Payload    string             `bson:"payload"`
	Verified   bool               `bson:"verified"`
	ReceivedAt time.Time          `bson:"receivedAt"`
	CreatedAt  time.Time          `bson:"createdAt"`
}

// ToDomain converts the MongoDB document to a domain entity
func (d *MongoWebhookDoc) ToDomain() *domain.WebhookEvent {
	return &domain.WebhookEvent{
		ID:         d.EventID,
		Topic:      d.Topic,
		Shop:       d.Shop,
		WebhookID:  d.WebhookID,
		Payload:    []byte(d.Payload),
		Verified:   d.Verified,
		ReceivedAt: d.ReceivedAt,
	}
}

// MongoWebhookDocFromDomain converts a domain entity to a MongoDB document
func MongoWebhookDocFromDomain(event *domain.WebhookEvent) *MongoWebhookDoc {
	return &MongoWebhookDoc{
		EventID:    event.ID,
		Topic:      event.Topic,
		Shop:       event.Shop,
		WebhookID:  event.WebhookID,
		Payload:    string(event.Payload),
		Verified:   event.Verified,
		ReceivedAt: event.ReceivedAt,
	}
}

// WebhookEventRow is the webhook_events table
type WebhookEventRow struct {
	ID         string     `gorm:"column:id;primaryKey"`
	Topic      string     `gorm:"column:topic"`
	Shop       string     `gorm:"column:shop"`
	WebhookID  string     `gorm:"column:webhook_id"`
	Payload    string     `gorm:"column:payload"`
	Verified   bool       `gorm:"column:verified"`
	ReceivedAt *time.Time `gorm:"column:received_at"`
}

func (WebhookEventRow) TableName() string { return "webhook_events" }

// ToDomain converts the row to a domain entity
func (r *WebhookEventRow) ToDomain() *domain.WebhookEvent {
	event := &domain.WebhookEvent{
		ID:        r.ID,
		Topic:     r.Topic,
		Shop:      r.Shop,
		WebhookID: r.WebhookID,
		Payload:   []byte(r.Payload),
		Verified:  r.Verified,
	}
	if r.ReceivedAt != nil {
		event.ReceivedAt = *r.ReceivedAt
	}
	return event
}

// WebhookEventRowFromDomain converts a domain entity to a row
func WebhookEventRowFromDomain(event *domain.WebhookEvent) *WebhookEventRow {
	received := event.ReceivedAt
	return &WebhookEventRow{
		ID:         event.ID,
		Topic:      event.Topic,
		Shop:       event.Shop,
		WebhookID:  event.WebhookID,
		Payload:    string(event.Payload),
		Verified:   event.Verified,
		ReceivedAt: &received,
	}
}
