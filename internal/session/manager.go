package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"bookcourier/internal/auth"
	"bookcourier/internal/backend"
	"bookcourier/internal/cache"
	"bookcourier/internal/store"
	"bookcourier/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Manager maps session ids to resolvers, restoring them from the store on
// first use.
type Manager struct {
	ttl     time.Duration
	auth    auth.Provider
	public  *backend.Client
	cache   *cache.Cache
	store   store.SessionStore
	logger  *zap.Logger
	restore singleflight.Group

	mu        sync.RWMutex
	resolvers map[string]*Resolver
}

func NewManager(ttl time.Duration, provider auth.Provider, public *backend.Client, c *cache.Cache, st store.SessionStore) *Manager {
	return &Manager{
		ttl:       ttl,
		auth:      provider,
		public:    public,
		cache:     c,
		store:     st,
		logger:    util.GetLogger(),
		resolvers: make(map[string]*Resolver),
	}
}

// New starts an anonymous session. It is not tracked until it signs in; the
// next request restores it from the store.
func (m *Manager) New() *Resolver {
	return newResolver(uuid.New().String(), m.ttl, m.auth, m.public, m.cache, m.store)
}

// Get returns the resolver for id. Unknown or expired ids yield a fresh
// anonymous session; concurrent lookups of one id share a single restore.
func (m *Manager) Get(ctx context.Context, id string) (*Resolver, error) {
	if id == "" {
		return m.New(), nil
	}

	m.mu.RLock()
	r, ok := m.resolvers[id]
	m.mu.RUnlock()
	if ok {
		return r, nil
	}

	v, err, _ := m.restore.Do(id, func() (any, error) {
		m.mu.RLock()
		cur, ok := m.resolvers[id]
		m.mu.RUnlock()
		if ok {
			return cur, nil
		}
		r := newResolver(id, m.ttl, m.auth, m.public, m.cache, m.store)
		if err := r.restore(ctx); err != nil {
			return nil, err
		}
		m.put(r)
		return r, nil
	})
	if errors.Is(err, store.ErrSessionNotFound) {
		return m.New(), nil
	}
	if err != nil {
		return nil, err
	}
	return v.(*Resolver), nil
}

func (m *Manager) put(r *Resolver) {
	m.mu.Lock()
	m.resolvers[r.id] = r
	n := len(m.resolvers)
	m.mu.Unlock()
	util.SessionsActive.Set(float64(n))
}

// Drop forgets the resolver for id without touching the store.
func (m *Manager) Drop(id string) {
	m.mu.Lock()
	delete(m.resolvers, id)
	n := len(m.resolvers)
	m.mu.Unlock()
	util.SessionsActive.Set(float64(n))
}

// Sweep drops expired and signed-out resolvers and purges expired rows.
func (m *Manager) Sweep(ctx context.Context) (int64, error) {
	now := time.Now()

	m.mu.Lock()
	for id, r := range m.resolvers {
		r.mu.RLock()
		st := r.state
		r.mu.RUnlock()
		if st == SignedOut || r.expired(now) {
			delete(m.resolvers, id)
		}
	}
	n := len(m.resolvers)
	m.mu.Unlock()
	util.SessionsActive.Set(float64(n))

	return m.store.DeleteExpiredSessions(ctx, now)
}

// Retire signs prev out and forgets it. Sign-in runs on a fresh resolver from
// New, and the session the request arrived with is retired once it succeeds,
// so an id planted in a browser never ends up carrying the new identity.
func (m *Manager) Retire(ctx context.Context, prev *Resolver) error {
	err := prev.SignOut(ctx)
	m.Drop(prev.ID())
	if err != nil {
		return fmt.Errorf("failed to retire session: %w", err)
	}
	return nil
}

// Len returns the number of live resolvers.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.resolvers)
}
