package service

import (
	"context"
	"errors"
	"net/http"

	"bookcourier/internal/apperr"
	"bookcourier/internal/backend"
	"bookcourier/internal/cache"
	"bookcourier/internal/models"
	"bookcourier/internal/mutation"
	"bookcourier/internal/resource"
	"bookcourier/internal/util"

	"go.uber.org/zap"
)

// CustomerService serves the customer dashboard: orders, payment, invoices
// and wishlist.
type CustomerService struct {
	cache  *cache.Cache
	exec   *mutation.Executor
	logger *zap.Logger
}

// NewCustomerService creates a new customer service
func NewCustomerService(c *cache.Cache, exec *mutation.Executor) *CustomerService {
	return &CustomerService{
		cache:  c,
		exec:   exec,
		logger: util.GetLogger(),
	}
}

func customerOrders(ctx context.Context, c *cache.Cache, v Viewer) cache.TypedResult[[]models.Order] {
	ident, ok := identityOf(v)
	email := ""
	if ok {
		email = ident.Email
	}
	return cache.Query(ctx, c, resource.CustomerOrders(email), func(ctx context.Context) ([]models.Order, error) {
		return v.API().CustomerOrders(ctx, email)
	}, cache.Enabled(ok), cache.Placeholder([]models.Order{}))
}

func findOrder(orders []models.Order, id string) (models.Order, bool) {
	for _, o := range orders {
		if o.ID == id {
			return o, true
		}
	}
	return models.Order{}, false
}

// orderInvalidations is what any order write touches: the customer's and the
// seller's order lists.
func orderInvalidations(o models.Order) []cache.Matcher {
	return []cache.Matcher{
		cache.Exact(resource.CustomerOrders(o.CustomerEmail)),
		cache.Exact(resource.SellerOrders(o.SellerEmail)),
	}
}

var errOrderNotFound = apperr.Status(http.StatusNotFound, "Order not found")

// MyOrders lists the viewer's orders.
func (s *CustomerService) MyOrders(ctx context.Context, v Viewer) View[[]models.Order] {
	return viewOf(customerOrders(ctx, s.cache, v), "Error loading orders.")
}

func (s *CustomerService) ownOrder(ctx context.Context, v Viewer, id string) (models.Order, error) {
	if _, ok := identityOf(v); !ok {
		return models.Order{}, apperr.ErrNotSignedIn
	}
	res := customerOrders(ctx, s.cache, v)
	if o, ok := findOrder(res.Data, id); ok {
		return o, nil
	}
	if res.Err != nil {
		return models.Order{}, res.Err
	}
	return models.Order{}, errOrderNotFound
}

// Cancel cancels one of the viewer's pending orders.
func (s *CustomerService) Cancel(ctx context.Context, v Viewer, orderID string) (Notice, error) {
	ctx, span := util.StartSpan(ctx, "CustomerService.Cancel")
	defer span.End()

	order, err := s.ownOrder(ctx, v, orderID)
	if err != nil {
		return failed(err, "Failed to cancel order"), err
	}
	if !order.Cancellable() {
		err := apperr.Validation("Only pending orders can be cancelled", nil)
		return failed(err, ""), err
	}

	_, err = mutation.Run(ctx, s.exec, mutation.Operation[backend.WriteResult]{
		Name:        "order.cancel",
		Action:      "order:" + order.ID,
		Invalidates: orderInvalidations(order),
		Do: func(ctx context.Context) (backend.WriteResult, error) {
			return v.API().CancelOrder(ctx, order.ID)
		},
	})
	if err != nil {
		return failed(err, "Failed to cancel order"), err
	}
	return succeeded("Order cancelled"), nil
}

// Pay opens a checkout session for an unpaid pending order and returns the
// processor URL the browser must be redirected to.
func (s *CustomerService) Pay(ctx context.Context, v Viewer, orderID string) (string, Notice, error) {
	ctx, span := util.StartSpan(ctx, "CustomerService.Pay")
	defer span.End()

	order, err := s.ownOrder(ctx, v, orderID)
	if err != nil {
		return "", failed(err, "Failed to start payment"), err
	}
	if !order.Payable() {
		err := apperr.Validation("This order cannot be paid", nil)
		return "", failed(err, ""), err
	}

	session, err := mutation.Run(ctx, s.exec, mutation.Operation[models.CheckoutSession]{
		Name:   "order.pay",
		Action: "order.pay:" + order.ID,
		Invalidates: []cache.Matcher{
			cache.Exact(resource.CustomerOrders(order.CustomerEmail)),
			cache.Exact(resource.Invoices(order.CustomerEmail)),
		},
		Do: func(ctx context.Context) (models.CheckoutSession, error) {
			return v.API().CreateCheckoutSession(ctx, models.CheckoutRequest{
				Price:         order.Price,
				OrderID:       order.ID,
				CustomerEmail: order.CustomerEmail,
				BookName:      order.BookName,
			})
		},
	})
	if err != nil {
		return "", failed(err, "Failed to start payment"), err
	}
	if session.URL == "" {
		err := apperr.Decode(http.StatusOK, errors.New("checkout session has no url"))
		return "", failed(err, "Failed to start payment"), err
	}
	return session.URL, succeeded("Redirecting to payment"), nil
}

// Invoices lists the viewer's paid orders.
func (s *CustomerService) Invoices(ctx context.Context, v Viewer) View[[]models.Invoice] {
	ident, ok := identityOf(v)
	email := ""
	if ok {
		email = ident.Email
	}
	res := cache.Query(ctx, s.cache, resource.Invoices(email), func(ctx context.Context) ([]models.Invoice, error) {
		return v.API().Invoices(ctx, email)
	}, cache.Enabled(ok), cache.Placeholder([]models.Invoice{}))
	return viewOf(res, "Error loading invoices.")
}

// Wishlist lists the viewer's saved books.
func (s *CustomerService) Wishlist(ctx context.Context, v Viewer) View[[]models.WishlistEntry] {
	return viewOf(wishlist(ctx, s.cache, v), "Error loading wishlist.")
}

// RemoveFromWishlist deletes one of the viewer's wishlist entries.
func (s *CustomerService) RemoveFromWishlist(ctx context.Context, v Viewer, entryID string) (Notice, error) {
	ctx, span := util.StartSpan(ctx, "CustomerService.RemoveFromWishlist")
	defer span.End()

	ident, ok := identityOf(v)
	if !ok {
		return failed(apperr.ErrNotSignedIn, ""), apperr.ErrNotSignedIn
	}

	_, err := mutation.Run(ctx, s.exec, mutation.Operation[backend.WriteResult]{
		Name:        "wishlist.remove",
		Action:      "wishlist.remove:" + entryID,
		Invalidates: []cache.Matcher{cache.Exact(resource.Wishlist(ident.Email))},
		Do: func(ctx context.Context) (backend.WriteResult, error) {
			return v.API().RemoveWishlist(ctx, entryID)
		},
	})
	if err != nil {
		return failed(err, "Failed to remove from wishlist"), err
	}
	return succeeded("Removed from wishlist"), nil
}
