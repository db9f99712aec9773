package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"bookcourier/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerRestoresSignedInSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	r := f.manager.New()
	_, err := r.SignIn(ctx, "lib@x.io", "secret")
	require.NoError(t, err)

	var wg sync.WaitGroup
	got := make([]*Resolver, 5)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := f.manager.Get(ctx, r.ID())
			assert.NoError(t, err)
			got[i] = res
		}(i)
	}
	wg.Wait()

	for _, res := range got {
		assert.Same(t, got[0], res)
	}
	snap := got[0].Snapshot(ctx)
	assert.Equal(t, IdentityReady, snap.State)
	assert.Equal(t, models.RoleLibrarian, snap.Role)
	assert.Equal(t, 1, f.manager.Len())
}

func TestManagerUnknownSessionIsAnonymous(t *testing.T) {
	f := newFixture(t)

	r, err := f.manager.Get(context.Background(), "missing")
	require.NoError(t, err)

	assert.NotEqual(t, "missing", r.ID())
	assert.Equal(t, NoIdentity, r.Snapshot(context.Background()).State)
	assert.Zero(t, f.manager.Len())
}

func TestManagerSweepDropsSignedOut(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	r := f.manager.New()
	_, err := r.SignIn(ctx, "cust@x.io", "secret")
	require.NoError(t, err)

	restored, err := f.manager.Get(ctx, r.ID())
	require.NoError(t, err)
	require.Equal(t, 1, f.manager.Len())

	require.NoError(t, restored.SignOut(ctx))
	_, err = f.manager.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, f.manager.Len())
}

func TestManagerSweepPurgesExpiredRows(t *testing.T) {
	f := newFixture(t)
	f.manager.ttl = -time.Minute
	ctx := context.Background()

	r := f.manager.New()
	_, err := r.SignIn(ctx, "cust@x.io", "secret")
	require.NoError(t, err)

	n, err := f.manager.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestManagerRetireRevokesPreviousID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	planted := f.manager.New()
	_, err := planted.SignIn(ctx, "cust@x.io", "secret")
	require.NoError(t, err)
	_, err = f.manager.Get(ctx, planted.ID())
	require.NoError(t, err)

	fresh := f.manager.New()
	_, err = fresh.SignIn(ctx, "lib@x.io", "secret")
	require.NoError(t, err)
	require.NoError(t, f.manager.Retire(ctx, planted))

	assert.NotEqual(t, planted.ID(), fresh.ID())
	assert.Zero(t, f.manager.Len())

	old, err := f.manager.Get(ctx, planted.ID())
	require.NoError(t, err)
	assert.NotEqual(t, planted.ID(), old.ID())
	assert.Equal(t, NoIdentity, old.Snapshot(ctx).State)

	cur, err := f.manager.Get(ctx, fresh.ID())
	require.NoError(t, err)
	assert.Equal(t, fresh.ID(), cur.ID())
	assert.Equal(t, models.RoleLibrarian, cur.Snapshot(ctx).Role)
}
