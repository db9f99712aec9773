package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"bookcourier/internal/backend"
	"bookcourier/internal/cache"
	"bookcourier/internal/httpclient"
	"bookcourier/internal/models"
	"bookcourier/internal/mutation"

	"github.com/shopspring/decimal"
)

// fakeAPI is an in-memory stand-in for the bookstore REST API.
type fakeAPI struct {
	mu       sync.Mutex
	books    map[string]models.Book
	orders   []models.Order
	wishlist []models.WishlistEntry
	reviews  []models.Review
	users    []models.User
	hits     map[string]int
	posted   []models.Order
	nextID   int

	wishlistStatus int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		books: map[string]models.Book{
			"B1": {
				ID: "B1", Name: "Dune", Author: "Frank Herbert", Price: decimal.NewFromInt(500),
				Quantity: 3, Category: "Sci-Fi", Status: models.BookStatusPublished,
				Seller: models.Seller{Name: "Lib", Email: "lib@x.io"},
			},
		},
		hits: make(map[string]int),
	}
}

func (f *fakeAPI) hit(route string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[route]
}

func (f *fakeAPI) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.hits {
		n += c
	}
	return n
}

func (f *fakeAPI) id() string {
	f.nextID++
	return fmt.Sprintf("N%d", f.nextID)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := r.URL.Path
	segs := strings.Split(strings.Trim(path, "/"), "/")
	route := r.Method + " /" + segs[0]
	f.hits[route]++

	body, _ := io.ReadAll(r.Body)

	switch {
	case r.Method == http.MethodGet && segs[0] == "books" && len(segs) == 1:
		out := []models.Book{}
		for _, b := range f.books {
			out = append(out, b)
		}
		writeJSON(w, 200, out)
	case r.Method == http.MethodGet && segs[0] == "books" && len(segs) == 2:
		b, ok := f.books[segs[1]]
		if !ok {
			writeJSON(w, 404, map[string]string{"message": "not found"})
			return
		}
		writeJSON(w, 200, b)
	case r.Method == http.MethodPost && segs[0] == "books":
		var b models.Book
		_ = json.Unmarshal(body, &b)
		b.ID = f.id()
		f.books[b.ID] = b
		writeJSON(w, 200, backend.WriteResult{InsertedID: b.ID})
	case r.Method == http.MethodGet && segs[0] == "reviews":
		out := []models.Review{}
		for _, rv := range f.reviews {
			if rv.BookID == segs[2] {
				out = append(out, rv)
			}
		}
		writeJSON(w, 200, out)
	case r.Method == http.MethodPost && segs[0] == "reviews":
		var rv models.Review
		_ = json.Unmarshal(body, &rv)
		f.reviews = append(f.reviews, rv)
		writeJSON(w, 200, backend.WriteResult{InsertedID: f.id()})
	case r.Method == http.MethodGet && segs[0] == "wishlist":
		out := []models.WishlistEntry{}
		for _, e := range f.wishlist {
			if e.UserEmail == segs[2] {
				out = append(out, e)
			}
		}
		writeJSON(w, 200, out)
	case r.Method == http.MethodPost && segs[0] == "wishlist" && f.wishlistStatus != 0:
		writeJSON(w, f.wishlistStatus, map[string]string{"message": http.StatusText(f.wishlistStatus)})
	case r.Method == http.MethodPost && segs[0] == "wishlist":
		var e models.WishlistEntry
		_ = json.Unmarshal(body, &e)
		for _, cur := range f.wishlist {
			if cur.UserEmail == e.UserEmail && cur.BookID == e.BookID {
				writeJSON(w, 400, map[string]string{"message": "duplicate"})
				return
			}
		}
		e.ID = f.id()
		f.wishlist = append(f.wishlist, e)
		writeJSON(w, 200, backend.WriteResult{InsertedID: e.ID})
	case r.Method == http.MethodPost && segs[0] == "orders":
		var o models.Order
		_ = json.Unmarshal(body, &o)
		f.posted = append(f.posted, o)
		o.ID = f.id()
		f.orders = append(f.orders, o)
		writeJSON(w, 200, backend.WriteResult{InsertedID: o.ID})
	case r.Method == http.MethodGet && segs[0] == "my-orders":
		writeJSON(w, 200, f.filterOrders(func(o models.Order) bool { return o.CustomerEmail == segs[1] }))
	case r.Method == http.MethodGet && segs[0] == "my-books-orders":
		writeJSON(w, 200, f.filterOrders(func(o models.Order) bool { return o.SellerEmail == segs[1] }))
	case r.Method == http.MethodPatch && segs[0] == "cancel-order":
		f.setStatus(segs[1], models.OrderStatusCancelled)
		writeJSON(w, 200, backend.WriteResult{ModifiedCount: 1})
	case r.Method == http.MethodPatch && segs[0] == "orders":
		var req struct {
			Status string `json:"status"`
		}
		_ = json.Unmarshal(body, &req)
		f.setStatus(segs[1], req.Status)
		writeJSON(w, 200, backend.WriteResult{ModifiedCount: 1})
	case r.Method == http.MethodPost && segs[0] == "create-checkout-session":
		var req models.CheckoutRequest
		_ = json.Unmarshal(body, &req)
		writeJSON(w, 200, models.CheckoutSession{URL: "https://checkout.test/" + req.OrderID})
	case r.Method == http.MethodGet && segs[0] == "user":
		writeJSON(w, 200, f.users)
	case r.Method == http.MethodPatch && segs[0] == "users":
		writeJSON(w, 200, backend.WriteResult{ModifiedCount: 1})
	default:
		writeJSON(w, 404, map[string]string{"message": "no route " + route})
	}
}

func (f *fakeAPI) filterOrders(keep func(models.Order) bool) []models.Order {
	out := []models.Order{}
	for _, o := range f.orders {
		if keep(o) {
			out = append(out, o)
		}
	}
	return out
}

func (f *fakeAPI) setStatus(id, status string) {
	for i := range f.orders {
		if f.orders[i].ID == id {
			f.orders[i].Status = status
		}
	}
}

func (f *fakeAPI) failWishlist(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.wishlistStatus = status
}

// markPaid records a payment the way the processor's webhook would.
func (f *fakeAPI) markPaid(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.orders {
		if f.orders[i].ID == id {
			f.orders[i].PaymentStatus = models.PaymentStatusPaid
		}
	}
}

func (f *fakeAPI) addOrder(o models.Order) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders = append(f.orders, o)
}

type staticCreds struct{}

func (staticCreds) Token(ctx context.Context) (string, error) { return "test-token", nil }
func (staticCreds) CredentialRejected(status int)             {}

// viewer is a signed-in (or anonymous, when ident is nil) test session.
type viewer struct {
	ident *models.Identity
	api   *backend.Client
}

func (v *viewer) Identity() *models.Identity { return v.ident }
func (v *viewer) API() *backend.Client       { return v.api }

type env struct {
	api    *fakeAPI
	public *backend.Client
	cache  *cache.Cache
	exec   *mutation.Executor
}

func newEnv(t *testing.T) *env {
	t.Helper()
	api := newFakeAPI()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	c := cache.New()
	return &env{
		api:    api,
		public: backend.NewClient(httpclient.New(srv.URL, 0)),
		cache:  c,
		exec:   mutation.NewExecutor(c),
	}
}

func (e *env) as(email, name string) *viewer {
	return &viewer{
		ident: &models.Identity{ID: "uid-" + email, Email: email, DisplayName: name},
		api:   e.public.WithCredentials(staticCreds{}),
	}
}

func (e *env) anonymous() *viewer {
	return &viewer{api: e.public}
}
