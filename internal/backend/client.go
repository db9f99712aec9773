// Package backend is a typed client for the bookstore REST API.
package backend

import (
	"context"
	"fmt"
	"net/url"

	"bookcourier/internal/httpclient"
	"bookcourier/internal/models"
)

// WriteResult is the acknowledgement returned by write endpoints.
type WriteResult struct {
	InsertedID    string `json:"insertedId,omitempty"`
	ModifiedCount int    `json:"modifiedCount,omitempty"`
	DeletedCount  int    `json:"deletedCount,omitempty"`
}

// UserUpsert is the body of POST /user.
type UserUpsert struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Image string `json:"image"`
}

// Client calls the REST API through an httpclient.Client.
type Client struct {
	http *httpclient.Client
}

// NewClient wraps an adapter.
func NewClient(http *httpclient.Client) *Client {
	return &Client{http: http}
}

// WithCredentials returns a client whose calls carry creds.
func (c *Client) WithCredentials(creds httpclient.Credentials) *Client {
	return &Client{http: c.http.WithCredentials(creds)}
}

func p(format string, args ...string) string {
	escaped := make([]any, len(args))
	for i, a := range args {
		escaped[i] = url.PathEscape(a)
	}
	return fmt.Sprintf(format, escaped...)
}

// Books

func (c *Client) ListBooks(ctx context.Context) ([]models.Book, error) {
	var books []models.Book
	err := c.http.Get(ctx, "/books", &books)
	return books, err
}

func (c *Client) LatestBooks(ctx context.Context) ([]models.Book, error) {
	var books []models.Book
	err := c.http.Get(ctx, "/books/latest", &books)
	return books, err
}

func (c *Client) GetBook(ctx context.Context, id string) (models.Book, error) {
	var book models.Book
	err := c.http.Get(ctx, p("/books/%s", id), &book)
	return book, err
}

func (c *Client) CreateBook(ctx context.Context, book models.Book) (WriteResult, error) {
	var res WriteResult
	err := c.http.Post(ctx, "/books", book, &res)
	return res, err
}

func (c *Client) UpdateBook(ctx context.Context, id string, book models.Book) (WriteResult, error) {
	var res WriteResult
	err := c.http.Put(ctx, p("/books/%s", id), book, &res)
	return res, err
}

func (c *Client) SetBookStatus(ctx context.Context, id, status string) (WriteResult, error) {
	var res WriteResult
	err := c.http.Patch(ctx, p("/books/status/%s", id), map[string]string{"status": status}, &res)
	return res, err
}

func (c *Client) DeleteBook(ctx context.Context, id string) (WriteResult, error) {
	var res WriteResult
	err := c.http.Delete(ctx, p("/books/%s", id), &res)
	return res, err
}

func (c *Client) SellerBooks(ctx context.Context, email string) ([]models.Book, error) {
	var books []models.Book
	err := c.http.Get(ctx, p("/my-books/%s", email), &books)
	return books, err
}

// Orders

func (c *Client) CreateOrder(ctx context.Context, order models.Order) (WriteResult, error) {
	var res WriteResult
	err := c.http.Post(ctx, "/orders", order, &res)
	return res, err
}

func (c *Client) CustomerOrders(ctx context.Context, email string) ([]models.Order, error) {
	var orders []models.Order
	err := c.http.Get(ctx, p("/my-orders/%s", email), &orders)
	return orders, err
}

func (c *Client) SellerOrders(ctx context.Context, email string) ([]models.Order, error) {
	var orders []models.Order
	err := c.http.Get(ctx, p("/my-books-orders/%s", email), &orders)
	return orders, err
}

func (c *Client) SetOrderStatus(ctx context.Context, id, status string) (WriteResult, error) {
	var res WriteResult
	err := c.http.Patch(ctx, p("/orders/%s", id), map[string]string{"status": status}, &res)
	return res, err
}

// CancelOrder is the customer cancel path.
func (c *Client) CancelOrder(ctx context.Context, id string) (WriteResult, error) {
	var res WriteResult
	err := c.http.Patch(ctx, p("/cancel-order/%s", id), nil, &res)
	return res, err
}

// DeleteOrder is the librarian cancel path.
func (c *Client) DeleteOrder(ctx context.Context, id string) (WriteResult, error) {
	var res WriteResult
	err := c.http.Delete(ctx, p("/orders/%s", id), &res)
	return res, err
}

// Wishlist

func (c *Client) Wishlist(ctx context.Context, email string) ([]models.WishlistEntry, error) {
	var entries []models.WishlistEntry
	err := c.http.Get(ctx, p("/wishlist/user/%s", email), &entries)
	return entries, err
}

func (c *Client) AddWishlist(ctx context.Context, entry models.WishlistEntry) (WriteResult, error) {
	var res WriteResult
	err := c.http.Post(ctx, "/wishlist", entry, &res)
	return res, err
}

func (c *Client) RemoveWishlist(ctx context.Context, id string) (WriteResult, error) {
	var res WriteResult
	err := c.http.Delete(ctx, p("/wishlist/%s", id), &res)
	return res, err
}

// Reviews

func (c *Client) Reviews(ctx context.Context, bookID string) ([]models.Review, error) {
	var reviews []models.Review
	err := c.http.Get(ctx, p("/reviews/book/%s", bookID), &reviews)
	return reviews, err
}

func (c *Client) CreateReview(ctx context.Context, review models.Review) (WriteResult, error) {
	var res WriteResult
	err := c.http.Post(ctx, "/reviews", review, &res)
	return res, err
}

// Invoices

func (c *Client) Invoices(ctx context.Context, email string) ([]models.Invoice, error) {
	var invoices []models.Invoice
	err := c.http.Get(ctx, p("/invoices/%s", email), &invoices)
	return invoices, err
}

// Users and roles

func (c *Client) Users(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := c.http.Get(ctx, "/user", &users)
	return users, err
}

func (c *Client) Role(ctx context.Context, email string) (models.Role, error) {
	var resp struct {
		Role models.Role `json:"role"`
	}
	if err := c.http.Get(ctx, p("/user/role/%s", email), &resp); err != nil {
		return models.RoleUnknown, err
	}
	return resp.Role, nil
}

func (c *Client) SaveUser(ctx context.Context, user UserUpsert) (WriteResult, error) {
	var res WriteResult
	err := c.http.Post(ctx, "/user", user, &res)
	return res, err
}

func (c *Client) SetUserRole(ctx context.Context, id string, role models.Role) (WriteResult, error) {
	var res WriteResult
	err := c.http.Patch(ctx, p("/users/role/%s", id), map[string]models.Role{"role": role}, &res)
	return res, err
}

// Payments

func (c *Client) CreateCheckoutSession(ctx context.Context, req models.CheckoutRequest) (models.CheckoutSession, error) {
	var session models.CheckoutSession
	err := c.http.Post(ctx, "/create-checkout-session", req, &session)
	return session, err
}
