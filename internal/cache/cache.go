// Package cache holds fetched server resources keyed by (resource type, params...).
// Entries are served until invalidated; there is no time-based expiry.
package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"bookcourier/internal/util"

	"go.uber.org/zap"
)

// ErrClosed is returned by reads after Dispose.
var ErrClosed = errors.New("resource cache disposed")

// Status is the lifecycle of one entry.
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

// Fetcher loads the value for a key.
type Fetcher func(ctx context.Context) (any, error)

// Result is a snapshot of an entry as seen by one reader. After an error Data
// still holds the last successful value, if there was one.
type Result struct {
	Data      any
	Status    Status
	Err       error
	Stale     bool
	UpdatedAt time.Time
	// HasData is false when Data is a placeholder or nothing has been fetched.
	HasData bool
}

// Loading reports whether the reader should show a loading indicator.
func (r Result) Loading() bool {
	return r.Status == StatusPending
}

type options struct {
	enabled     bool
	placeholder any
}

// Option configures a single read.
type Option func(*options)

// Enabled gates the fetch on a precondition. A disabled read is idle and
// returns the placeholder.
func Enabled(ok bool) Option {
	return func(o *options) { o.enabled = ok }
}

// Placeholder is returned as Data when nothing has been fetched yet.
func Placeholder(v any) Option {
	return func(o *options) { o.placeholder = v }
}

type flight struct {
	done    chan struct{}
	res     Result
	waiters int
}

type entry struct {
	key       Key
	data      any
	hasData   bool
	status    Status
	err       error
	stale     bool
	gen       uint64
	fetch     Fetcher
	updatedAt time.Time
	flight    *flight
}

func (e *entry) result() Result {
	return Result{
		Data:      e.data,
		Status:    e.status,
		Err:       e.err,
		Stale:     e.stale,
		UpdatedAt: e.updatedAt,
		HasData:   e.hasData,
	}
}

func (e *entry) fresh() bool {
	return e.status == StatusSuccess && !e.stale
}

// Cache is the process-wide resource store. Create it at start-up with New and
// pass it to the components that read or invalidate it.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry
	closed  bool
	logger  *zap.Logger
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{
		entries: make(map[string]*entry),
		logger:  util.GetLogger(),
	}
}

// Get returns the cached value for key, fetching it if the entry is missing,
// stale or errored. Concurrent reads of one key share a single fetch.
//
// If ctx ends before the fetch settles, the fetch keeps running and its outcome
// still lands in the cache; this reader gets ctx.Err().
func (c *Cache) Get(ctx context.Context, key Key, fetch Fetcher, opts ...Option) Result {
	o := options{enabled: true}
	for _, opt := range opts {
		opt(&o)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return Result{Data: o.placeholder, Status: StatusError, Err: ErrClosed}
	}
	if !o.enabled {
		c.mu.Unlock()
		return Result{Data: o.placeholder, Status: StatusIdle}
	}

	ks := key.String()
	e, ok := c.entries[ks]
	if !ok {
		e = &entry{key: key}
		c.entries[ks] = e
	}
	e.fetch = fetch

	if e.fresh() {
		res := e.result()
		c.mu.Unlock()
		util.CacheHitsTotal.WithLabelValues(key.Resource()).Inc()
		return res
	}

	f := e.flight
	if f == nil {
		f = &flight{done: make(chan struct{})}
		e.flight = f
		e.status = StatusPending
		go c.run(context.WithoutCancel(ctx), e, f, e.gen, fetch)
		util.CacheMissesTotal.WithLabelValues(key.Resource()).Inc()
	} else {
		util.CacheDedupTotal.WithLabelValues(key.Resource()).Inc()
	}
	f.waiters++
	prev, hasPrev := e.data, e.hasData
	c.mu.Unlock()

	select {
	case <-f.done:
		res := f.res
		if res.Data == nil {
			res.Data = o.placeholder
		}
		return res
	case <-ctx.Done():
		if !hasPrev {
			prev = o.placeholder
		}
		return Result{Data: prev, Status: StatusPending, Err: ctx.Err(), HasData: hasPrev}
	}
}

func (c *Cache) run(ctx context.Context, e *entry, f *flight, gen uint64, fetch Fetcher) {
	ctx, span := util.StartSpan(ctx, "Cache.fetch")
	defer span.End()

	start := time.Now()
	data, err := fetch(ctx)
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	util.CacheFetchLatency.WithLabelValues(e.key.Resource(), outcome).Observe(time.Since(start).Seconds())

	c.mu.Lock()
	if err != nil {
		e.status = StatusError
		e.err = err
		c.logger.Warn("Resource fetch failed",
			zap.String("key", e.key.String()),
			zap.Error(err))
	} else {
		e.data = data
		e.hasData = true
		e.status = StatusSuccess
		e.err = nil
		e.updatedAt = time.Now()
		e.stale = e.gen != gen
	}
	f.res = e.result()
	e.flight = nil
	c.mu.Unlock()

	close(f.done)
}

// Peek returns the entry's current state without fetching.
func (c *Cache) Peek(key Key) Result {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key.String()]
	if !ok {
		return Result{Status: StatusIdle}
	}
	return e.result()
}

// Invalidate marks every matching entry stale so the next Get re-fetches. A
// fetch already in flight for a matching key settles as stale.
func (c *Cache) Invalidate(matchers ...Matcher) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, e := range c.entries {
		if !matchAny(matchers, e.key) {
			continue
		}
		e.stale = true
		e.gen++
		n++
	}
	return n
}

// Remove drops the data of matching entries. Settled entries are deleted. An
// entry with a fetch in flight keeps its flight so later readers still join it,
// and the fetch settles as stale.
func (c *Cache) Remove(matchers ...Matcher) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for ks, e := range c.entries {
		if !matchAny(matchers, e.key) {
			continue
		}
		n++
		if e.flight == nil {
			delete(c.entries, ks)
			continue
		}
		e.data = nil
		e.hasData = false
		e.err = nil
		e.stale = true
		e.gen++
	}
	return n
}

// Refresh re-runs the last fetcher registered for key. It is idle if the key
// was never read.
func (c *Cache) Refresh(ctx context.Context, key Key) Result {
	c.mu.Lock()
	e, ok := c.entries[key.String()]
	var fetch Fetcher
	if ok {
		fetch = e.fetch
		e.stale = true
		e.gen++
	}
	c.mu.Unlock()

	if fetch == nil {
		return Result{Status: StatusIdle}
	}
	return c.Get(ctx, key, fetch)
}

// Len returns the number of entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Dispose drops all entries; later reads fail with ErrClosed.
func (c *Cache) Dispose() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.entries = make(map[string]*entry)
}

func (c *Cache) waiters(key Key) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key.String()]
	if !ok || e.flight == nil {
		return 0
	}
	return e.flight.waiters
}

func matchAny(matchers []Matcher, k Key) bool {
	for _, m := range matchers {
		if m.Match(k) {
			return true
		}
	}
	return false
}
