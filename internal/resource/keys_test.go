package resource

import (
	"testing"

	"bookcourier/internal/cache"

	"github.com/stretchr/testify/assert"
)

func matchesAny(ms []cache.Matcher, k cache.Key) bool {
	for _, m := range ms {
		if m.Match(k) {
			return true
		}
	}
	return false
}

func TestEmailIsNormalized(t *testing.T) {
	assert.Equal(t, CustomerOrders("a@x.io").String(), CustomerOrders(" A@X.io ").String())
}

func TestUserScopedCoversPerUserKeys(t *testing.T) {
	ms := UserScoped("a@x.io")
	for _, k := range []cache.Key{
		Role("a@x.io"), CustomerOrders("a@x.io"), SellerOrders("a@x.io"),
		Wishlist("a@x.io"), Invoices("a@x.io"), SellerBooks("a@x.io"),
	} {
		assert.True(t, matchesAny(ms, k), k.String())
	}

	assert.False(t, matchesAny(ms, CustomerOrders("b@x.io")))
	assert.False(t, matchesAny(ms, Book("B1")))
	assert.False(t, matchesAny(ms, Books()))
}

func TestAllBookViews(t *testing.T) {
	ms := AllBookViews()

	assert.True(t, matchesAny(ms, Book("B1")))
	assert.True(t, matchesAny(ms, LatestBooks()))
	assert.True(t, matchesAny(ms, SellerBooks("s@x.io")))
	assert.False(t, matchesAny(ms, Reviews("B1")))
	assert.False(t, matchesAny(ms, SellerOrders("s@x.io")))
}
