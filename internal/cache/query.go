package cache

import "context"

// TypedResult is Result with Data asserted to T.
type TypedResult[T any] struct {
	Data    T
	Status  Status
	Err     error
	Stale   bool
	HasData bool
}

// Loading reports whether the fetch is still outstanding.
func (r TypedResult[T]) Loading() bool {
	return r.Status == StatusPending
}

// Query is Get for a typed fetcher. A Placeholder option must hold a T.
func Query[T any](ctx context.Context, c *Cache, key Key, fetch func(ctx context.Context) (T, error), opts ...Option) TypedResult[T] {
	res := c.Get(ctx, key, func(ctx context.Context) (any, error) {
		v, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		return v, nil
	}, opts...)

	out := TypedResult[T]{
		Status:  res.Status,
		Err:     res.Err,
		Stale:   res.Stale,
		HasData: res.HasData,
	}
	if v, ok := res.Data.(T); ok {
		out.Data = v
	}
	return out
}
