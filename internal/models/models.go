package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// The REST API stores prices as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// Identity is the signed-in user as reported by the auth provider.
type Identity struct {
	ID          string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoURL"`
}

// Seller is the librarian who listed a book.
type Seller struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Image string `json:"image"`
}

// Book statuses
const (
	BookStatusPublished   = "published"
	BookStatusUnpublished = "unpublished"
)

// Book is a catalog entry.
type Book struct {
	ID          string          `json:"_id,omitempty"`
	Name        string          `json:"name"`
	Author      string          `json:"author"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	Category    string          `json:"category"`
	Status      string          `json:"status"`
	Image       string          `json:"image"`
	Description string          `json:"description"`
	Seller      Seller          `json:"seller"`
	CreatedAt   Timestamp       `json:"createdAt"`
}

// Order statuses
const (
	OrderStatusPending   = "pending"
	OrderStatusShipped   = "shipped"
	OrderStatusDelivered = "delivered"
	OrderStatusCancelled = "cancelled"
)

// Payment statuses
const (
	PaymentStatusUnpaid = "unpaid"
	PaymentStatusPaid   = "paid"
)

// Order is a customer's purchase of one book.
type Order struct {
	ID            string          `json:"_id,omitempty"`
	BookID        string          `json:"bookId"`
	BookName      string          `json:"bookName"`
	Image         string          `json:"image"`
	Price         decimal.Decimal `json:"price"`
	CustomerName  string          `json:"customerName"`
	CustomerEmail string          `json:"customerEmail"`
	Phone         string          `json:"phone"`
	Address       string          `json:"address"`
	Status        string          `json:"status"`
	PaymentStatus string          `json:"paymentStatus"`
	SellerEmail   string          `json:"sellerEmail"`
	CreatedAt     Timestamp       `json:"createdAt"`
}

// Cancellable reports whether the order may still be cancelled.
func (o Order) Cancellable() bool {
	return o.Status == OrderStatusPending
}

// Payable reports whether the order may be sent to checkout.
func (o Order) Payable() bool {
	return o.Status == OrderStatusPending && o.PaymentStatus != PaymentStatusPaid
}

// NextStatus returns the status a librarian may advance the order to.
func (o Order) NextStatus() (string, bool) {
	switch o.Status {
	case OrderStatusPending:
		return OrderStatusShipped, true
	case OrderStatusShipped:
		return OrderStatusDelivered, true
	}
	return "", false
}

// WishlistBook is the book snapshot embedded in a wishlist entry.
type WishlistBook struct {
	Name   string          `json:"name"`
	Author string          `json:"author"`
	Price  decimal.Decimal `json:"price"`
	Image  string          `json:"image"`
}

// WishlistEntry is unique per (UserEmail, BookID); the server rejects duplicates.
type WishlistEntry struct {
	ID        string       `json:"_id,omitempty"`
	UserEmail string       `json:"userEmail"`
	BookID    string       `json:"bookId"`
	Book      WishlistBook `json:"book"`
	CreatedAt Timestamp    `json:"createdAt"`
}

// Review is written once per delivered order.
type Review struct {
	ID        string    `json:"_id,omitempty"`
	BookID    string    `json:"bookId"`
	BookName  string    `json:"bookName"`
	UserName  string    `json:"userName"`
	UserEmail string    `json:"userEmail"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt Timestamp `json:"createdAt"`
}

// Invoice is the server's projection of a paid order.
type Invoice struct {
	ID            string          `json:"_id,omitempty"`
	TransactionID string          `json:"transactionId"`
	Price         decimal.Decimal `json:"price"`
	BookName      string          `json:"bookName"`
	Image         string          `json:"image"`
	CreatedAt     Timestamp       `json:"createdAt"`
}

// User is a row of the admin user table.
type User struct {
	ID        string    `json:"_id,omitempty"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Image     string    `json:"image"`
	Role      Role      `json:"role"`
	CreatedAt Timestamp `json:"createdAt"`
}

// CheckoutRequest is the body of POST /create-checkout-session.
type CheckoutRequest struct {
	Price         decimal.Decimal `json:"price"`
	OrderID       string          `json:"orderId"`
	CustomerEmail string          `json:"customer_email"`
	BookName      string          `json:"bookName"`
}

// CheckoutSession carries the processor's hosted checkout URL.
type CheckoutSession struct {
	URL string `json:"url"`
}

// Timestamp accepts epoch milliseconds or RFC 3339 strings and writes epoch milliseconds.
type Timestamp struct {
	time.Time
}

// Now returns the current time as a Timestamp.
func Now() Timestamp {
	return Timestamp{Time: time.Now()}
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatInt(t.UnixMilli(), 10)), nil
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			t.Time = time.Time{}
			return nil
		}
		parsed, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return fmt.Errorf("invalid timestamp %q: %w", s, err)
		}
		t.Time = parsed
		return nil
	}
	ms, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("invalid timestamp %s: %w", data, err)
	}
	t.Time = time.UnixMilli(int64(ms))
	return nil
}
