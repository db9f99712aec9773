package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"bookcourier/internal/apperr"
	"bookcourier/internal/backend"
	"bookcourier/internal/cache"
	"bookcourier/internal/imagehost"
	"bookcourier/internal/models"
	"bookcourier/internal/mutation"
	"bookcourier/internal/resource"
	"bookcourier/internal/util"

	"go.uber.org/zap"
)

// Upload is an image received from the browser.
type Upload struct {
	Filename string
	Body     io.Reader
}

// LibrarianService serves the seller dashboard.
type LibrarianService struct {
	cache  *cache.Cache
	exec   *mutation.Executor
	images imagehost.Uploader
	logger *zap.Logger
}

// NewLibrarianService creates a new librarian service
func NewLibrarianService(c *cache.Cache, exec *mutation.Executor, images imagehost.Uploader) *LibrarianService {
	return &LibrarianService{
		cache:  c,
		exec:   exec,
		images: images,
		logger: util.GetLogger(),
	}
}

// bookInvalidations covers every list a book appears in plus the seller's own.
func bookInvalidations(seller string) []cache.Matcher {
	return []cache.Matcher{
		cache.Prefix(resource.TypeBooks),
		cache.Exact(resource.SellerBooks(seller)),
	}
}

func (s *LibrarianService) upload(ctx context.Context, img *Upload) (string, error) {
	if img == nil || img.Body == nil {
		return "", nil
	}
	link, err := s.images.Upload(ctx, img.Filename, img.Body)
	if err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}
	return link, nil
}

// AddBook uploads the cover, if given, then lists the book under the viewer.
func (s *LibrarianService) AddBook(ctx context.Context, v Viewer, form BookForm, img *Upload) (Notice, error) {
	ctx, span := util.StartSpan(ctx, "LibrarianService.AddBook")
	defer span.End()

	ident, ok := identityOf(v)
	if !ok {
		return failed(apperr.ErrNotSignedIn, ""), apperr.ErrNotSignedIn
	}
	if err := check(form); err != nil {
		return failed(err, ""), err
	}
	if img == nil && form.Image == "" {
		err := apperr.Validation("Book image is required", map[string]string{"image": "is required"})
		return failed(err, ""), err
	}

	link, err := s.upload(ctx, img)
	if err != nil {
		return failed(err, "Image upload failed"), err
	}
	if link == "" {
		link = form.Image
	}

	book := bookFromForm(form, link)
	book.Seller = models.Seller{Name: ident.DisplayName, Email: ident.Email, Image: ident.PhotoURL}
	book.CreatedAt = models.Now()

	_, err = mutation.Run(ctx, s.exec, mutation.Operation[backend.WriteResult]{
		Name:        "book.create",
		Action:      "book.create:" + strings.ToLower(ident.Email) + ":" + strings.ToLower(book.Name),
		Invalidates: bookInvalidations(ident.Email),
		Do: func(ctx context.Context) (backend.WriteResult, error) {
			return v.API().CreateBook(ctx, book)
		},
	})
	if err != nil {
		return failed(err, "Failed to add book"), err
	}
	return succeeded("Book added successfully!"), nil
}

func bookFromForm(form BookForm, image string) models.Book {
	return models.Book{
		Name:        strings.TrimSpace(form.Name),
		Author:      strings.TrimSpace(form.Author),
		Price:       form.Price,
		Quantity:    form.Quantity,
		Category:    strings.TrimSpace(form.Category),
		Status:      form.Status,
		Image:       image,
		Description: strings.TrimSpace(form.Description),
	}
}

// MyBooks lists the books the viewer sells, published or not.
func (s *LibrarianService) MyBooks(ctx context.Context, v Viewer) View[[]models.Book] {
	ident, ok := identityOf(v)
	email := ""
	if ok {
		email = ident.Email
	}
	res := cache.Query(ctx, s.cache, resource.SellerBooks(email), func(ctx context.Context) ([]models.Book, error) {
		return v.API().SellerBooks(ctx, email)
	}, cache.Enabled(ok), cache.Placeholder([]models.Book{}))
	return viewOf(res, "Error loading your books.")
}

func (s *LibrarianService) ownBook(ctx context.Context, v Viewer, id string) (cache.TypedResult[models.Book], error) {
	ident, ok := identityOf(v)
	if !ok {
		return cache.TypedResult[models.Book]{}, apperr.ErrNotSignedIn
	}
	res := cache.Query(ctx, s.cache, resource.Book(id), func(ctx context.Context) (models.Book, error) {
		return v.API().GetBook(ctx, id)
	})
	if res.HasData && !strings.EqualFold(res.Data.Seller.Email, ident.Email) {
		return res, apperr.ErrForbidden
	}
	return res, nil
}

// EditBook loads one of the viewer's books for the edit form.
func (s *LibrarianService) EditBook(ctx context.Context, v Viewer, id string) (View[models.Book], error) {
	res, err := s.ownBook(ctx, v, id)
	if err != nil {
		return View[models.Book]{}, err
	}
	return viewOf(res, "Error loading book."), nil
}

// UpdateBook saves the edit form. A new cover replaces the old one; without
// one the current image is kept.
func (s *LibrarianService) UpdateBook(ctx context.Context, v Viewer, id string, form BookForm, img *Upload) (Notice, error) {
	ctx, span := util.StartSpan(ctx, "LibrarianService.UpdateBook")
	defer span.End()

	if err := check(form); err != nil {
		return failed(err, ""), err
	}
	current, err := s.ownBook(ctx, v, id)
	if err != nil {
		return failed(err, "Update failed!"), err
	}
	if !current.HasData {
		err := current.Err
		if err == nil {
			err = apperr.Status(http.StatusNotFound, "Book not found")
		}
		return failed(err, "Update failed!"), err
	}

	link, err := s.upload(ctx, img)
	if err != nil {
		return failed(err, "Image upload failed"), err
	}
	if link == "" {
		link = form.Image
	}
	if link == "" {
		link = current.Data.Image
	}

	book := bookFromForm(form, link)
	book.Seller = current.Data.Seller
	book.CreatedAt = current.Data.CreatedAt

	_, err = mutation.Run(ctx, s.exec, mutation.Operation[backend.WriteResult]{
		Name:        "book.update",
		Action:      "book:" + id,
		Invalidates: bookInvalidations(book.Seller.Email),
		Do: func(ctx context.Context) (backend.WriteResult, error) {
			return v.API().UpdateBook(ctx, id, book)
		},
	})
	if err != nil {
		return failed(err, "Update failed!"), err
	}
	return succeeded("Book updated successfully!"), nil
}

func sellerOrders(ctx context.Context, c *cache.Cache, v Viewer) cache.TypedResult[[]models.Order] {
	ident, ok := identityOf(v)
	email := ""
	if ok {
		email = ident.Email
	}
	return cache.Query(ctx, c, resource.SellerOrders(email), func(ctx context.Context) ([]models.Order, error) {
		return v.API().SellerOrders(ctx, email)
	}, cache.Enabled(ok), cache.Placeholder([]models.Order{}))
}

// Orders lists orders placed for the viewer's books.
func (s *LibrarianService) Orders(ctx context.Context, v Viewer) View[[]models.Order] {
	return viewOf(sellerOrders(ctx, s.cache, v), "Error loading orders.")
}

func (s *LibrarianService) sellerOrder(ctx context.Context, v Viewer, id string) (models.Order, error) {
	if _, ok := identityOf(v); !ok {
		return models.Order{}, apperr.ErrNotSignedIn
	}
	res := sellerOrders(ctx, s.cache, v)
	if o, ok := findOrder(res.Data, id); ok {
		return o, nil
	}
	if res.Err != nil {
		return models.Order{}, res.Err
	}
	return models.Order{}, errOrderNotFound
}

// AdvanceOrder moves an order one step along pending, shipped, delivered.
func (s *LibrarianService) AdvanceOrder(ctx context.Context, v Viewer, orderID string) (Notice, error) {
	ctx, span := util.StartSpan(ctx, "LibrarianService.AdvanceOrder")
	defer span.End()

	order, err := s.sellerOrder(ctx, v, orderID)
	if err != nil {
		return failed(err, "Failed to update status"), err
	}
	next, ok := order.NextStatus()
	if !ok {
		err := apperr.Validation(fmt.Sprintf("A %s order cannot change status", order.Status), nil)
		return failed(err, ""), err
	}

	_, err = mutation.Run(ctx, s.exec, mutation.Operation[backend.WriteResult]{
		Name:        "order.status",
		Action:      "order:" + order.ID,
		Invalidates: orderInvalidations(order),
		Do: func(ctx context.Context) (backend.WriteResult, error) {
			return v.API().SetOrderStatus(ctx, order.ID, next)
		},
	})
	if err != nil {
		return failed(err, "Failed to update status"), err
	}
	s.logger.Info("Order status advanced",
		zap.String("order_id", order.ID),
		zap.String("from", order.Status),
		zap.String("to", next))
	return succeeded("Order status updated!"), nil
}

// CancelOrder removes a pending order placed for one of the viewer's books.
func (s *LibrarianService) CancelOrder(ctx context.Context, v Viewer, orderID string) (Notice, error) {
	ctx, span := util.StartSpan(ctx, "LibrarianService.CancelOrder")
	defer span.End()

	order, err := s.sellerOrder(ctx, v, orderID)
	if err != nil {
		return failed(err, "Failed to cancel order"), err
	}
	if !order.Cancellable() {
		err := apperr.Validation("Only pending orders can be cancelled", nil)
		return failed(err, ""), err
	}

	_, err = mutation.Run(ctx, s.exec, mutation.Operation[backend.WriteResult]{
		Name:        "order.delete",
		Action:      "order:" + order.ID,
		Invalidates: orderInvalidations(order),
		Do: func(ctx context.Context) (backend.WriteResult, error) {
			return v.API().DeleteOrder(ctx, order.ID)
		},
	})
	if err != nil {
		return failed(err, "Failed to cancel order"), err
	}
	return succeeded("Order cancelled!"), nil
}
