package broker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"bookcourier/internal/cache"
	"bookcourier/internal/models"
	"bookcourier/internal/util"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *recordingWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func TestPublishInvalidation(t *testing.T) {
	w := &recordingWriter{}
	pub := NewInvalidationPublisher(&Producer{writer: w, logger: util.GetLogger()}, "replica-a")

	matchers := []cache.Matcher{
		cache.Exact(cache.NewKey("orders", "customer", "c@x.io")),
		cache.Prefix("books"),
	}
	require.NoError(t, pub.PublishInvalidation(context.Background(), "order.cancel", matchers))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "order.cancel", string(w.msgs[0].Key))

	var event models.CacheInvalidatedEvent
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &event))
	assert.Equal(t, models.EventTypeCacheInvalidated, event.EventType)
	assert.NotEmpty(t, event.EventID)
	assert.Equal(t, "replica-a", event.Origin)
	require.Len(t, event.Matchers, 2)
	assert.Equal(t, []string{"orders", "customer", "c@x.io"}, event.Matchers[0].Parts)
	assert.True(t, event.Matchers[1].Prefix)
}

func TestPublishInvalidationWriteError(t *testing.T) {
	w := &recordingWriter{err: errors.New("broker down")}
	pub := NewInvalidationPublisher(&Producer{writer: w, logger: util.GetLogger()}, "replica-a")

	err := pub.PublishInvalidation(context.Background(), "x", nil)
	assert.ErrorContains(t, err, "broker down")
}

func TestHandleMessageRoutesInvalidations(t *testing.T) {
	h := NewEventHandler()
	var got *models.CacheInvalidatedEvent
	h.OnCacheInvalidated(func(ctx context.Context, e *models.CacheInvalidatedEvent) error {
		got = e
		return nil
	})

	value, _ := json.Marshal(models.CacheInvalidatedEvent{
		BaseEvent: models.BaseEvent{EventID: "e1", EventType: models.EventTypeCacheInvalidated},
		Origin:    "replica-b",
		Mutation:  "wishlist.add",
		Matchers:  []models.KeyMatcher{{Parts: []string{"wishlist", "c@x.io"}}},
	})
	require.NoError(t, h.HandleMessage(context.Background(), kafka.Message{Value: value}))
	require.NotNil(t, got)
	assert.Equal(t, "replica-b", got.Origin)
	assert.Equal(t, "wishlist.add", got.Mutation)

	other, _ := json.Marshal(models.BaseEvent{EventID: "e2", EventType: "SOMETHING_ELSE"})
	assert.NoError(t, h.HandleMessage(context.Background(), kafka.Message{Value: other}))

	assert.Error(t, h.HandleMessage(context.Background(), kafka.Message{Value: []byte("{")}))
}
