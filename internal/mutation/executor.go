// Package mutation runs pessimistic writes against the backend and invalidates
// the cache entries each write declares as affected.
package mutation

import (
	"context"
	"sync"
	"time"

	"bookcourier/internal/apperr"
	"bookcourier/internal/cache"
	"bookcourier/internal/util"

	"go.uber.org/zap"
)

// Status is the lifecycle of one logical action.
type Status int

const (
	StatusIdle Status = iota
	StatusPending
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	}
	return "idle"
}

// Guard serializes one action across processes.
type Guard interface {
	Acquire(ctx context.Context, action string) (release func(), ok bool, err error)
}

// Publisher forwards invalidations to other replicas.
type Publisher interface {
	PublishInvalidation(ctx context.Context, mutation string, matchers []cache.Matcher) error
}

// Operation is one write. Invalidates is declared by the author of the
// mutation; nothing is inferred from the response.
type Operation[T any] struct {
	Name        string
	Action      string
	Invalidates []cache.Matcher
	Do          func(ctx context.Context) (T, error)
}

func (op Operation[T]) action() string {
	if op.Action != "" {
		return op.Action
	}
	return op.Name
}

type state struct {
	status    Status
	err       error
	updatedAt time.Time
}

// Executor tracks per-action status and rejects a second concurrent run of the
// same action.
type Executor struct {
	cache     *cache.Cache
	guard     Guard
	publisher Publisher
	logger    *zap.Logger

	mu     sync.Mutex
	states map[string]state
}

// Option configures an Executor.
type Option func(*Executor)

// WithGuard adds a cross-process guard on top of the in-process one.
func WithGuard(g Guard) Option {
	return func(e *Executor) { e.guard = g }
}

// WithPublisher broadcasts successful invalidations.
func WithPublisher(p Publisher) Option {
	return func(e *Executor) { e.publisher = p }
}

// NewExecutor creates a new executor bound to c.
func NewExecutor(c *cache.Cache, opts ...Option) *Executor {
	e := &Executor{
		cache:  c,
		logger: util.GetLogger(),
		states: make(map[string]state),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Status returns the last known status of action.
func (e *Executor) Status(action string) Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.states[action].status
}

// LastError returns the error of the last failed run of action.
func (e *Executor) LastError(action string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.states[action].err
}

func (e *Executor) begin(action string) (state, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	prev := e.states[action]
	if prev.status == StatusPending {
		return prev, false
	}
	e.states[action] = state{status: StatusPending, updatedAt: time.Now()}
	return prev, true
}

func (e *Executor) set(action string, st state) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if st.status == StatusSuccess || st.status == StatusIdle {
		st.err = nil
	}
	st.updatedAt = time.Now()
	e.states[action] = st
}

// Run executes op. On success the declared matchers are invalidated; on error
// nothing is invalidated and the error is returned unchanged. The write runs on
// a context detached from ctx's cancellation so a departing caller cannot
// abort it half way.
func Run[T any](ctx context.Context, e *Executor, op Operation[T]) (T, error) {
	var zero T
	action := op.action()

	ctx, span := util.StartSpan(ctx, "Mutation."+op.Name)
	defer span.End()

	prev, ok := e.begin(action)
	if !ok {
		util.MutationsRejectedTotal.WithLabelValues(op.Name).Inc()
		return zero, apperr.ErrInFlight
	}

	if e.guard != nil {
		release, acquired, err := e.guard.Acquire(ctx, action)
		switch {
		case err != nil:
			e.logger.Warn("Mutation guard unavailable, continuing with local guard",
				zap.String("action", action),
				zap.Error(err))
		case !acquired:
			e.set(action, prev)
			util.MutationsRejectedTotal.WithLabelValues(op.Name).Inc()
			return zero, apperr.ErrInFlight
		default:
			defer release()
		}
	}

	v, err := op.Do(context.WithoutCancel(ctx))
	if err != nil {
		e.set(action, state{status: StatusError, err: err})
		util.MutationsTotal.WithLabelValues(op.Name, "error").Inc()
		e.logger.Info("Mutation failed",
			zap.String("mutation", op.Name),
			zap.String("action", action),
			zap.Error(err))
		return zero, err
	}

	if len(op.Invalidates) > 0 {
		n := e.cache.Invalidate(op.Invalidates...)
		util.CacheInvalidationsTotal.WithLabelValues("local").Add(float64(n))

		if e.publisher != nil {
			if err := e.publisher.PublishInvalidation(context.WithoutCancel(ctx), op.Name, op.Invalidates); err != nil {
				e.logger.Error("Failed to publish invalidation",
					zap.String("mutation", op.Name),
					zap.Error(err))
			}
		}
	}

	e.set(action, state{status: StatusSuccess})
	util.MutationsTotal.WithLabelValues(op.Name, "success").Inc()
	return v, nil
}
