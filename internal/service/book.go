package service

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"bookcourier/internal/apperr"
	"bookcourier/internal/backend"
	"bookcourier/internal/cache"
	"bookcourier/internal/models"
	"bookcourier/internal/mutation"
	"bookcourier/internal/resource"
	"bookcourier/internal/util"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// BookDetail is the book page: the book, its reviews and whether the viewer
// has it wishlisted. Each region loads on its own.
type BookDetail struct {
	Book          View[models.Book]     `json:"book"`
	Reviews       View[[]models.Review] `json:"reviews"`
	AverageRating string                `json:"averageRating"`
	Wishlisted    bool                  `json:"wishlisted"`
}

// BookService serves the book page and its actions.
type BookService struct {
	public *backend.Client
	cache  *cache.Cache
	exec   *mutation.Executor
	logger *zap.Logger
}

// NewBookService creates a new book service
func NewBookService(public *backend.Client, c *cache.Cache, exec *mutation.Executor) *BookService {
	return &BookService{
		public: public,
		cache:  c,
		exec:   exec,
		logger: util.GetLogger(),
	}
}

func (s *BookService) book(ctx context.Context, id string) cache.TypedResult[models.Book] {
	return cache.Query(ctx, s.cache, resource.Book(id), func(ctx context.Context) (models.Book, error) {
		return s.public.GetBook(ctx, id)
	})
}

func (s *BookService) reviews(ctx context.Context, id string) cache.TypedResult[[]models.Review] {
	return cache.Query(ctx, s.cache, resource.Reviews(id), func(ctx context.Context) ([]models.Review, error) {
		return s.public.Reviews(ctx, id)
	}, cache.Placeholder([]models.Review{}))
}

func wishlist(ctx context.Context, c *cache.Cache, v Viewer) cache.TypedResult[[]models.WishlistEntry] {
	ident, ok := identityOf(v)
	email := ""
	if ok {
		email = ident.Email
	}
	return cache.Query(ctx, c, resource.Wishlist(email), func(ctx context.Context) ([]models.WishlistEntry, error) {
		return v.API().Wishlist(ctx, email)
	}, cache.Enabled(ok), cache.Placeholder([]models.WishlistEntry{}))
}

// Detail loads the book, its reviews and the viewer's wishlist concurrently.
func (s *BookService) Detail(ctx context.Context, v Viewer, id string) BookDetail {
	ctx, span := util.StartSpan(ctx, "BookService.Detail")
	defer span.End()

	var (
		detail BookDetail
		wished cache.TypedResult[[]models.WishlistEntry]
		g      errgroup.Group
	)
	g.Go(func() error {
		detail.Book = viewOf(s.book(ctx, id), "Error loading book.")
		return nil
	})
	g.Go(func() error {
		detail.Reviews = viewOf(s.reviews(ctx, id), "Error loading reviews.")
		return nil
	})
	g.Go(func() error {
		wished = wishlist(ctx, s.cache, v)
		return nil
	})
	_ = g.Wait()

	detail.AverageRating = AverageRating(detail.Reviews.Data)
	for _, w := range wished.Data {
		if w.BookID == id {
			detail.Wishlisted = true
			break
		}
	}
	return detail
}

// AverageRating formats the mean rating with one decimal, "0" with no reviews.
func AverageRating(reviews []models.Review) string {
	if len(reviews) == 0 {
		return "0"
	}
	total := 0
	for _, r := range reviews {
		total += r.Rating
	}
	return fmt.Sprintf("%.1f", float64(total)/float64(len(reviews)))
}

func (s *BookService) loadBook(ctx context.Context, id string) (models.Book, error) {
	res := s.book(ctx, id)
	if !res.HasData {
		if res.Err != nil {
			return models.Book{}, res.Err
		}
		return models.Book{}, fmt.Errorf("book %s not loaded", id)
	}
	return res.Data, nil
}

// AddToWishlist saves the book for the signed-in viewer. The backend rejects a
// second entry for the same book; that surfaces as "Already in wishlist".
func (s *BookService) AddToWishlist(ctx context.Context, v Viewer, bookID string) (Notice, error) {
	ctx, span := util.StartSpan(ctx, "BookService.AddToWishlist")
	defer span.End()

	ident, ok := identityOf(v)
	if !ok {
		return failed(apperr.ErrNotSignedIn, ""), apperr.ErrNotSignedIn
	}
	book, err := s.loadBook(ctx, bookID)
	if err != nil {
		return failed(err, "Failed to add to wishlist"), err
	}

	entry := models.WishlistEntry{
		UserEmail: ident.Email,
		BookID:    book.ID,
		Book: models.WishlistBook{
			Name:   book.Name,
			Author: book.Author,
			Price:  book.Price,
			Image:  book.Image,
		},
		CreatedAt: models.Now(),
	}

	_, err = mutation.Run(ctx, s.exec, mutation.Operation[backend.WriteResult]{
		Name:        "wishlist.add",
		Action:      "wishlist.add:" + strings.ToLower(ident.Email) + ":" + book.ID,
		Invalidates: []cache.Matcher{cache.Exact(resource.Wishlist(ident.Email))},
		Do: func(ctx context.Context) (backend.WriteResult, error) {
			res, err := v.API().AddWishlist(ctx, entry)
			if duplicate(err) {
				return res, apperr.Conflict("Already in wishlist", err)
			}
			return res, err
		},
	})
	if err != nil {
		return failed(err, "Failed to add to wishlist"), err
	}
	return succeeded("Added to wishlist ❤️"), nil
}

// duplicate reports the backend's rejection of an existing wishlist entry.
// Credential rejections are not duplicates.
func duplicate(err error) bool {
	switch apperr.StatusOf(err) {
	case http.StatusBadRequest, http.StatusConflict:
		return apperr.IsStatus(err)
	}
	return false
}

// PlaceOrder creates a pending, unpaid order for the book.
func (s *BookService) PlaceOrder(ctx context.Context, v Viewer, bookID string, form OrderForm) (models.Order, Notice, error) {
	ctx, span := util.StartSpan(ctx, "BookService.PlaceOrder")
	defer span.End()

	if err := check(form); err != nil {
		return models.Order{}, failed(err, ""), err
	}
	ident, ok := identityOf(v)
	if !ok {
		return models.Order{}, failed(apperr.ErrNotSignedIn, ""), apperr.ErrNotSignedIn
	}
	book, err := s.loadBook(ctx, bookID)
	if err != nil {
		return models.Order{}, failed(err, "Failed to place order."), err
	}

	order := models.Order{
		BookID:        book.ID,
		BookName:      book.Name,
		Image:         book.Image,
		Price:         book.Price,
		CustomerName:  ident.DisplayName,
		CustomerEmail: ident.Email,
		Phone:         strings.TrimSpace(form.Phone),
		Address:       strings.TrimSpace(form.Address),
		Status:        models.OrderStatusPending,
		PaymentStatus: models.PaymentStatusUnpaid,
		SellerEmail:   book.Seller.Email,
		CreatedAt:     models.Now(),
	}

	placed, err := mutation.Run(ctx, s.exec, mutation.Operation[models.Order]{
		Name:   "order.place",
		Action: "order.place:" + strings.ToLower(ident.Email) + ":" + book.ID,
		Invalidates: []cache.Matcher{
			cache.Exact(resource.CustomerOrders(ident.Email)),
			cache.Exact(resource.SellerOrders(book.Seller.Email)),
		},
		Do: func(ctx context.Context) (models.Order, error) {
			res, err := v.API().CreateOrder(ctx, order)
			if err != nil {
				return models.Order{}, err
			}
			o := order
			o.ID = res.InsertedID
			return o, nil
		},
	})
	if err != nil {
		return models.Order{}, failed(err, "Failed to place order."), err
	}

	s.logger.Info("Order placed",
		zap.String("order_id", placed.ID),
		zap.String("book_id", book.ID),
		zap.String("customer", ident.Email))
	return placed, succeeded("Order placed successfully!"), nil
}

var errNotReviewable = apperr.Validation("You can review a book once its order is delivered", nil)

// SubmitReview posts a review for a book the viewer received.
func (s *BookService) SubmitReview(ctx context.Context, v Viewer, bookID string, form ReviewForm) (Notice, error) {
	ctx, span := util.StartSpan(ctx, "BookService.SubmitReview")
	defer span.End()

	if err := check(form); err != nil {
		return failed(err, ""), err
	}
	ident, ok := identityOf(v)
	if !ok {
		return failed(apperr.ErrNotSignedIn, ""), apperr.ErrNotSignedIn
	}

	orders := customerOrders(ctx, s.cache, v)
	order, found := findOrder(orders.Data, form.OrderID)
	if !found {
		if orders.Err != nil {
			return failed(orders.Err, "Failed to submit review"), orders.Err
		}
		return failed(errNotReviewable, ""), errNotReviewable
	}
	if order.BookID != bookID || order.Status != models.OrderStatusDelivered {
		return failed(errNotReviewable, ""), errNotReviewable
	}

	bookName := order.BookName
	if book, err := s.loadBook(ctx, bookID); err == nil {
		bookName = book.Name
	}

	review := models.Review{
		BookID:    bookID,
		BookName:  bookName,
		UserName:  ident.DisplayName,
		UserEmail: ident.Email,
		Rating:    form.Rating,
		Comment:   strings.TrimSpace(form.Comment),
		CreatedAt: models.Now(),
	}
	_, err := mutation.Run(ctx, s.exec, mutation.Operation[backend.WriteResult]{
		Name:        "review.create",
		Action:      "review:" + order.ID,
		Invalidates: []cache.Matcher{cache.Exact(resource.Reviews(bookID))},
		Do: func(ctx context.Context) (backend.WriteResult, error) {
			return v.API().CreateReview(ctx, review)
		},
	})
	if err != nil {
		return failed(err, "Failed to submit review"), err
	}
	return succeeded("Review submitted ❤️"), nil
}
