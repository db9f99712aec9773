package mutation

import (
	"context"
	"time"

	"bookcourier/internal/redisclient"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RedisGuard holds a Redis lock per action for the duration of a run.
type RedisGuard struct {
	client *redisclient.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisGuard creates a guard whose locks expire after ttl.
func NewRedisGuard(client *redisclient.Client, ttl time.Duration, logger *zap.Logger) *RedisGuard {
	return &RedisGuard{client: client, ttl: ttl, logger: logger}
}

func (g *RedisGuard) Acquire(ctx context.Context, action string) (func(), bool, error) {
	lockKey := "mutation:" + action
	owner := uuid.New().String()

	ok, err := g.client.AcquireLock(ctx, lockKey, owner, g.ttl)
	if err != nil || !ok {
		return nil, ok, err
	}

	release := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := g.client.ReleaseLock(ctx, lockKey, owner); err != nil {
			g.logger.Error("Failed to release mutation lock",
				zap.String("action", action),
				zap.Error(err))
		}
	}
	return release, true, nil
}
