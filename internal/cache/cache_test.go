package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetDedupsConcurrentFetches(t *testing.T) {
	c := New()
	key := NewKey("books", "B1")

	var calls int32
	release := make(chan struct{})
	fetch := func(ctx context.Context) (any, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return "book", nil
	}

	const readers = 8
	results := make([]Result, readers)
	var wg sync.WaitGroup
	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = c.Get(context.Background(), key, fetch)
		}(i)
	}

	require.Eventually(t, func() bool { return c.waiters(key) == readers }, time.Second, time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	for _, r := range results {
		assert.Equal(t, StatusSuccess, r.Status)
		assert.Equal(t, "book", r.Data)
	}
}

func TestGetServesFromCacheUntilInvalidated(t *testing.T) {
	c := New()
	key := NewKey("orders", "customer", "a@x.io")

	var calls int32
	fetch := func(ctx context.Context) (any, error) {
		n := atomic.AddInt32(&calls, 1)
		return n, nil
	}

	first := c.Get(context.Background(), key, fetch)
	second := c.Get(context.Background(), key, fetch)
	assert.Equal(t, int32(1), first.Data)
	assert.Equal(t, int32(1), second.Data)

	assert.Equal(t, 1, c.Invalidate(Exact(key)))
	assert.True(t, c.Peek(key).Stale)

	third := c.Get(context.Background(), key, fetch)
	assert.Equal(t, int32(2), third.Data)
	assert.False(t, third.Stale)
}

func TestDisabledReadIsIdle(t *testing.T) {
	c := New()
	called := false

	res := c.Get(context.Background(), NewKey("role", ""), func(ctx context.Context) (any, error) {
		called = true
		return "admin", nil
	}, Enabled(false), Placeholder("none"))

	assert.False(t, called)
	assert.Equal(t, StatusIdle, res.Status)
	assert.Equal(t, "none", res.Data)
	assert.Equal(t, 0, c.Len())
}

func TestErrorKeepsPreviousData(t *testing.T) {
	c := New()
	key := NewKey("wishlist", "a@x.io")
	boom := errors.New("boom")

	ok := c.Get(context.Background(), key, func(ctx context.Context) (any, error) { return []string{"B1"}, nil })
	require.Equal(t, StatusSuccess, ok.Status)

	c.Invalidate(Exact(key))
	failed := c.Get(context.Background(), key, func(ctx context.Context) (any, error) { return nil, boom })

	assert.Equal(t, StatusError, failed.Status)
	assert.ErrorIs(t, failed.Err, boom)
	assert.Equal(t, []string{"B1"}, failed.Data)
}

func TestErroredEntryRefetches(t *testing.T) {
	c := New()
	key := NewKey("books")

	var calls int32
	fetch := func(ctx context.Context) (any, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return nil, errors.New("down")
		}
		return "ok", nil
	}

	assert.Equal(t, StatusError, c.Get(context.Background(), key, fetch).Status)
	assert.Equal(t, StatusSuccess, c.Get(context.Background(), key, fetch).Status)
}

func TestInvalidateScoping(t *testing.T) {
	c := New()
	load := func(v string) Fetcher {
		return func(ctx context.Context) (any, error) { return v, nil }
	}
	customer := NewKey("orders", "customer", "c@x.io")
	seller := NewKey("orders", "seller", "s@x.io")
	book := NewKey("books", "B1")

	c.Get(context.Background(), customer, load("c"))
	c.Get(context.Background(), seller, load("s"))
	c.Get(context.Background(), book, load("b"))

	n := c.Invalidate(Exact(customer), Exact(seller))
	assert.Equal(t, 2, n)
	assert.True(t, c.Peek(customer).Stale)
	assert.True(t, c.Peek(seller).Stale)
	assert.False(t, c.Peek(book).Stale)

	assert.Equal(t, 2, c.Invalidate(Prefix("orders")))
}

func TestInvalidateDuringFetchSettlesStale(t *testing.T) {
	c := New()
	key := NewKey("my-books", "s@x.io")
	release := make(chan struct{})

	done := make(chan Result)
	go func() {
		done <- c.Get(context.Background(), key, func(ctx context.Context) (any, error) {
			<-release
			return "old", nil
		})
	}()

	require.Eventually(t, func() bool { return c.waiters(key) == 1 }, time.Second, time.Millisecond)
	c.Invalidate(Prefix("my-books"))
	close(release)

	res := <-done
	assert.True(t, res.Stale)

	next := c.Get(context.Background(), key, func(ctx context.Context) (any, error) { return "new", nil })
	assert.Equal(t, "new", next.Data)
}

func TestRemoveDuringFetchKeepsFlight(t *testing.T) {
	c := New()
	key := NewKey("invoices", "a@x.io")
	release := make(chan struct{})
	var calls int32
	fetch := func(ctx context.Context) (any, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return "invoices", nil
	}

	done := make(chan Result, 2)
	go func() { done <- c.Get(context.Background(), key, fetch) }()
	require.Eventually(t, func() bool { return c.waiters(key) == 1 }, time.Second, time.Millisecond)

	assert.Equal(t, 1, c.Remove(Prefix("invoices", "a@x.io")))
	go func() { done <- c.Get(context.Background(), key, fetch) }()
	require.Eventually(t, func() bool { return c.waiters(key) == 2 }, time.Second, time.Millisecond)

	close(release)
	for i := 0; i < 2; i++ {
		res := <-done
		assert.True(t, res.Stale)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestCancelledReaderDiscardsButCacheSettles(t *testing.T) {
	c := New()
	key := NewKey("reviews", "B1")
	release := make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan Result)
	go func() {
		done <- c.Get(ctx, key, func(ctx context.Context) (any, error) {
			<-release
			return "reviews", ctx.Err()
		})
	}()

	require.Eventually(t, func() bool { return c.waiters(key) == 1 }, time.Second, time.Millisecond)
	cancel()
	res := <-done
	assert.ErrorIs(t, res.Err, context.Canceled)

	close(release)
	require.Eventually(t, func() bool { return c.Peek(key).Status == StatusSuccess }, time.Second, time.Millisecond)
	assert.Equal(t, "reviews", c.Peek(key).Data)
}

func TestRemoveAndRefresh(t *testing.T) {
	c := New()
	key := NewKey("invoices", "a@x.io")

	var calls int32
	fetch := func(ctx context.Context) (any, error) {
		return atomic.AddInt32(&calls, 1), nil
	}

	assert.Equal(t, StatusIdle, c.Refresh(context.Background(), key).Status)

	c.Get(context.Background(), key, fetch)
	refreshed := c.Refresh(context.Background(), key)
	assert.Equal(t, int32(2), refreshed.Data)

	assert.Equal(t, 1, c.Remove(Prefix("invoices", "a@x.io")))
	assert.Equal(t, StatusIdle, c.Peek(key).Status)
}

func TestDispose(t *testing.T) {
	c := New()
	c.Get(context.Background(), NewKey("books"), func(ctx context.Context) (any, error) { return 1, nil })
	c.Dispose()

	res := c.Get(context.Background(), NewKey("books"), func(ctx context.Context) (any, error) { return 1, nil })
	assert.ErrorIs(t, res.Err, ErrClosed)
	assert.Equal(t, 0, c.Len())
}

func TestQueryTyped(t *testing.T) {
	c := New()
	res := Query(context.Background(), c, NewKey("books"), func(ctx context.Context) ([]string, error) {
		return []string{"a", "b"}, nil
	})
	assert.Equal(t, []string{"a", "b"}, res.Data)
	assert.True(t, res.HasData)

	idle := Query(context.Background(), c, NewKey("wishlist", ""), func(ctx context.Context) ([]string, error) {
		return nil, nil
	}, Enabled(false), Placeholder([]string{}))
	assert.Equal(t, StatusIdle, idle.Status)
	assert.Equal(t, []string{}, idle.Data)
	assert.False(t, idle.HasData)

	failed := Query(context.Background(), c, NewKey("reviews", "B1"), func(ctx context.Context) ([]string, error) {
		return nil, errors.New("boom")
	}, Placeholder([]string{}))
	assert.Equal(t, StatusError, failed.Status)
	assert.Equal(t, []string{}, failed.Data)
	assert.False(t, failed.HasData)
}

func TestKeyNormalization(t *testing.T) {
	assert.NotEqual(t, NewKey("a/b").String(), NewKey("a", "b").String())
	assert.True(t, Prefix("orders", "customer").Match(NewKey("orders", "customer", "x")))
	assert.False(t, Exact(NewKey("orders")).Match(NewKey("orders", "customer")))

	m := FromWire(Prefix("orders", "seller").Wire())
	assert.True(t, m.Match(NewKey("orders", "seller", "s@x.io")))
}
