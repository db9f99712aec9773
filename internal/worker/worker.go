package worker

import (
	"context"
	"time"

	"bookcourier/internal/broker"
	"bookcourier/internal/cache"
	"bookcourier/internal/models"
	"bookcourier/internal/util"

	"go.uber.org/zap"
)

// InvalidationWorker applies invalidations published by other replicas to the
// local cache.
type InvalidationWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	cache        *cache.Cache
	origin       string
	logger       *zap.Logger
}

// NewInvalidationWorker creates a worker for this replica. Events stamped with
// origin are skipped; they were applied locally when the mutation ran.
func NewInvalidationWorker(consumer *broker.Consumer, c *cache.Cache, origin string) *InvalidationWorker {
	w := &InvalidationWorker{
		consumer:     consumer,
		eventHandler: broker.NewEventHandler(),
		cache:        c,
		origin:       origin,
		logger:       util.GetLogger(),
	}
	w.eventHandler.OnCacheInvalidated(w.apply)
	return w
}

// Start starts the worker
func (w *InvalidationWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting invalidation worker", zap.String("origin", w.origin))
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *InvalidationWorker) Stop() error {
	w.logger.Info("Stopping invalidation worker")
	return w.consumer.Close()
}

func (w *InvalidationWorker) apply(ctx context.Context, event *models.CacheInvalidatedEvent) error {
	if event.Origin == w.origin {
		return nil
	}

	matchers := make([]cache.Matcher, len(event.Matchers))
	for i, m := range event.Matchers {
		matchers[i] = cache.FromWire(m)
	}
	n := w.cache.Invalidate(matchers...)
	util.CacheInvalidationsTotal.WithLabelValues("remote").Add(float64(n))

	w.logger.Debug("Applied remote invalidation",
		zap.String("event_id", event.EventID),
		zap.String("mutation", event.Mutation),
		zap.String("origin", event.Origin),
		zap.Int("entries", n))
	return nil
}

// Sweeper is the session registry the janitor prunes.
type Sweeper interface {
	Sweep(ctx context.Context) (int64, error)
}

// SessionJanitor periodically drops expired sessions.
type SessionJanitor struct {
	sessions Sweeper
	interval time.Duration
	logger   *zap.Logger
}

func NewSessionJanitor(sessions Sweeper, interval time.Duration) *SessionJanitor {
	return &SessionJanitor{sessions: sessions, interval: interval, logger: util.GetLogger()}
}

// Start sweeps every interval until ctx ends.
func (j *SessionJanitor) Start(ctx context.Context) error {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			j.sweep(ctx)
		}
	}
}

func (j *SessionJanitor) sweep(ctx context.Context) {
	purged, err := j.sessions.Sweep(ctx)
	if err != nil {
		j.logger.Warn("Session sweep failed", zap.Error(err))
		return
	}
	if purged > 0 {
		j.logger.Info("Purged expired sessions", zap.Int64("count", purged))
	}
}
