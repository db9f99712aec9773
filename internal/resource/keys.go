// Package resource names the cache keys for every backend read, so readers and
// the mutations that invalidate them agree on one spelling.
package resource

import (
	"strings"

	"bookcourier/internal/cache"
)

// Resource types
const (
	TypeBooks    = "books"
	TypeMyBooks  = "my-books"
	TypeOrders   = "orders"
	TypeWishlist = "wishlist"
	TypeReviews  = "reviews"
	TypeInvoices = "invoices"
	TypeUsers    = "users"
	TypeRole     = "role"
)

func email(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}

// Books is the full published catalog.
func Books() cache.Key { return cache.NewKey(TypeBooks, "all") }

// LatestBooks is the home-page list of recent additions.
func LatestBooks() cache.Key { return cache.NewKey(TypeBooks, "latest") }

// Book is one book by id.
func Book(id string) cache.Key {
	return cache.NewKey(TypeBooks, "id", id)
}

// SellerBooks lists the books a librarian has added.
func SellerBooks(seller string) cache.Key {
	return cache.NewKey(TypeMyBooks, email(seller))
}

// CustomerOrders lists the orders a customer has placed.
func CustomerOrders(customer string) cache.Key {
	return cache.NewKey(TypeOrders, "customer", email(customer))
}

// SellerOrders lists the orders for a librarian's books.
func SellerOrders(seller string) cache.Key {
	return cache.NewKey(TypeOrders, "seller", email(seller))
}

// Wishlist is a user's wishlist.
func Wishlist(user string) cache.Key {
	return cache.NewKey(TypeWishlist, email(user))
}

// Reviews lists the reviews of one book.
func Reviews(bookID string) cache.Key {
	return cache.NewKey(TypeReviews, bookID)
}

// Invoices lists a customer's paid orders.
func Invoices(user string) cache.Key {
	return cache.NewKey(TypeInvoices, email(user))
}

// Users is the admin user list.
func Users() cache.Key { return cache.NewKey(TypeUsers) }

// Role is the role the backend assigns to a user.
func Role(user string) cache.Key {
	return cache.NewKey(TypeRole, email(user))
}

// UserScoped selects every entry parameterized by the given email.
func UserScoped(user string) []cache.Matcher {
	u := email(user)
	return []cache.Matcher{
		cache.Exact(Role(u)),
		cache.Exact(CustomerOrders(u)),
		cache.Exact(SellerOrders(u)),
		cache.Exact(Wishlist(u)),
		cache.Exact(Invoices(u)),
		cache.Exact(SellerBooks(u)),
	}
}

// AllBookViews selects the catalog lists and every single-book entry.
func AllBookViews() []cache.Matcher {
	return []cache.Matcher{
		cache.Prefix(TypeBooks),
		cache.Prefix(TypeMyBooks),
	}
}
