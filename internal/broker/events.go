package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"bookcourier/internal/cache"
	"bookcourier/internal/models"
	"bookcourier/internal/util"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// InvalidationPublisher broadcasts cache invalidations to other replicas.
type InvalidationPublisher struct {
	producer *Producer
	origin   string
}

// NewInvalidationPublisher creates a publisher that stamps events with origin,
// the id of this replica.
func NewInvalidationPublisher(producer *Producer, origin string) *InvalidationPublisher {
	return &InvalidationPublisher{producer: producer, origin: origin}
}

// PublishInvalidation publishes a CacheInvalidated event keyed by mutation name.
func (ip *InvalidationPublisher) PublishInvalidation(ctx context.Context, mutation string, matchers []cache.Matcher) error {
	ctx, span := util.StartSpan(ctx, "InvalidationPublisher.Publish")
	defer span.End()

	wire := make([]models.KeyMatcher, len(matchers))
	for i, m := range matchers {
		wire[i] = m.Wire()
	}

	event := &models.CacheInvalidatedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeCacheInvalidated,
			Timestamp: time.Now(),
		},
		Origin:   ip.origin,
		Mutation: mutation,
		Matchers: wire,
	}
	return ip.producer.PublishEvent(ctx, mutation, event)
}

// EventHandler handles incoming events
type EventHandler struct {
	onCacheInvalidated func(context.Context, *models.CacheInvalidatedEvent) error
	logger             *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{logger: util.GetLogger()}
}

// OnCacheInvalidated registers a handler for CacheInvalidated events
func (eh *EventHandler) OnCacheInvalidated(handler func(context.Context, *models.CacheInvalidatedEvent) error) {
	eh.onCacheInvalidated = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	switch baseEvent.EventType {
	case models.EventTypeCacheInvalidated:
		if eh.onCacheInvalidated != nil {
			var event models.CacheInvalidatedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal CacheInvalidated event: %w", err)
			}
			return eh.onCacheInvalidated(ctx, &event)
		}

	default:
		eh.logger.Debug("Unhandled event type", zap.String("event_type", baseEvent.EventType))
	}

	return nil
}
