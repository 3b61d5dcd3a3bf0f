package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/shrimpsizemoose/gradebook/internal/metrics"
)

// Envelope is what subscribers of a gradebook topic receive.
type Envelope struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Timestamp int64       `json:"ts"`
	Payload   interface{} `json:"payload"`
}

// Publisher is the part of a redis client the bus needs.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisBus publishes gradebook changes on redis pub/sub channels.
type RedisBus struct {
	client Publisher
	now    func() time.Time
}

func NewRedisBus(client Publisher) *RedisBus {
	return &RedisBus{client: client, now: time.Now}
}

// Publish sends one event. Failures are logged and counted, never returned:
// a live gradebook that misses an update catches up on its next full load.
func (b *RedisBus) Publish(ctx context.Context, topic, eventType string, payload interface{}) {
	msg, err := json.Marshal(Envelope{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: b.now().UnixMilli(),
		Payload:   payload,
	})
	if err != nil {
		logger.Error.Printf("Failed to encode %s event for %s: %v", eventType, topic, err)
		metrics.NotifyPublished.WithLabelValues(eventType, "error").Inc()
		return
	}

	receivers, err := b.client.Publish(ctx, topic, msg).Result()
	if err != nil {
		logger.Error.Printf("Failed to publish %s event to %s: %v", eventType, topic, err)
		metrics.NotifyPublished.WithLabelValues(eventType, "error").Inc()
		return
	}
	logger.Debug.Printf("Published %s event to %s (%d receivers)", eventType, topic, receivers)
	metrics.NotifyPublished.WithLabelValues(eventType, "ok").Inc()
}

// LogBus only logs events. It is used when no redis is configured.
type LogBus struct{}

func (LogBus) Publish(ctx context.Context, topic, eventType string, payload interface{}) {
	logger.Debug.Printf("Dropping %s event for %s: notifications are disabled", eventType, topic)
	metrics.NotifyPublished.WithLabelValues(eventType, "dropped").Inc()
}
