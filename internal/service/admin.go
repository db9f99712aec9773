package service

import (
	"context"
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

// AdminService serves the admin dashboard.
type AdminService struct {
	cache  *cache.Cache
	exec   *mutation.Executor
	logger *zap.Logger
}

// NewAdminService creates a new admin service
func NewAdminService(c *cache.Cache, exec *mutation.Executor) *AdminService {
	return &AdminService{
		cache:  c,
		exec:   exec,
		logger: util.GetLogger(),
	}
}

func (s *AdminService) users(ctx context.Context, v Viewer) cache.TypedResult[[]models.User] {
	_, ok := identityOf(v)
	return cache.Query(ctx, s.cache, resource.Users(), func(ctx context.Context) ([]models.User, error) {
		return v.API().Users(ctx)
	}, cache.Enabled(ok), cache.Placeholder([]models.User{}))
}

// Users lists every registered user.
func (s *AdminService) Users(ctx context.Context, v Viewer) View[[]models.User] {
	return viewOf(s.users(ctx, v), "Error loading users.")
}

// SetRole changes a user's role. The user's cached role is dropped along with
// the user table so their next request sees the new menus.
func (s *AdminService) SetRole(ctx context.Context, v Viewer, userID string, form RoleForm) (Notice, error) {
	ctx, span := util.StartSpan(ctx, "AdminService.SetRole")
	defer span.End()

	if err := check(form); err != nil {
		return failed(err, ""), err
	}
	if _, ok := identityOf(v); !ok {
		return failed(apperr.ErrNotSignedIn, ""), apperr.ErrNotSignedIn
	}

	role := models.ParseRole(form.Role)
	invalidates := []cache.Matcher{cache.Exact(resource.Users())}
	for _, u := range s.users(ctx, v).Data {
		if u.ID == userID {
			invalidates = append(invalidates, cache.Exact(resource.Role(u.Email)))
			break
		}
	}
	if len(invalidates) == 1 {
		invalidates = append(invalidates, cache.Prefix(resource.TypeRole))
	}

	_, err := mutation.Run(ctx, s.exec, mutation.Operation[backend.WriteResult]{
		Name:        "user.role",
		Action:      "user.role:" + userID,
		Invalidates: invalidates,
		Do: func(ctx context.Context) (backend.WriteResult, error) {
			return v.API().SetUserRole(ctx, userID, role)
		},
	})
	if err != nil {
		return failed(err, "Failed to update role"), err
	}
	s.logger.Info("User role changed", zap.String("user_id", userID), zap.String("role", role.String()))
	return succeeded("User role updated"), nil
}

// Books lists every book regardless of status.
func (s *AdminService) Books(ctx context.Context, v Viewer) View[[]models.Book] {
	_, ok := identityOf(v)
	res := cache.Query(ctx, s.cache, resource.Books(), func(ctx context.Context) ([]models.Book, error) {
		return v.API().ListBooks(ctx)
	}, cache.Enabled(ok), cache.Placeholder([]models.Book{}))
	return viewOf(res, "Error loading books.")
}

// SetBookStatus publishes or unpublishes a book.
func (s *AdminService) SetBookStatus(ctx context.Context, v Viewer, bookID string, form BookStatusForm) (Notice, error) {
	ctx, span := util.StartSpan(ctx, "AdminService.SetBookStatus")
	defer span.End()

	if err := check(form); err != nil {
		return failed(err, ""), err
	}
	if _, ok := identityOf(v); !ok {
		return failed(apperr.ErrNotSignedIn, ""), apperr.ErrNotSignedIn
	}

	_, err := mutation.Run(ctx, s.exec, mutation.Operation[backend.WriteResult]{
		Name:        "book.status",
		Action:      "book:" + bookID,
		Invalidates: resource.AllBookViews(),
		Do: func(ctx context.Context) (backend.WriteResult, error) {
			return v.API().SetBookStatus(ctx, bookID, form.Status)
		},
	})
	if err != nil {
		return failed(err, "Failed to update status"), err
	}
	return succeeded("Book status updated"), nil
}

// DeleteBook removes a book; the backend deletes its orders with it.
func (s *AdminService) DeleteBook(ctx context.Context, v Viewer, bookID string) (Notice, error) {
	ctx, span := util.StartSpan(ctx, "AdminService.DeleteBook")
	defer span.End()

	if bookID == "" {
		err := apperr.Status(http.StatusBadRequest, "book id is required")
		return failed(err, "Delete failed"), err
	}
	if _, ok := identityOf(v); !ok {
		return failed(apperr.ErrNotSignedIn, ""), apperr.ErrNotSignedIn
	}

	invalidates := append(resource.AllBookViews(),
		cache.Prefix(resource.TypeOrders),
		cache.Prefix(resource.TypeWishlist),
		cache.Exact(resource.Reviews(bookID)),
	)
	_, err := mutation.Run(ctx, s.exec, mutation.Operation[backend.WriteResult]{
		Name:        "book.delete",
		Action:      "book:" + bookID,
		Invalidates: invalidates,
		Do: func(ctx context.Context) (backend.WriteResult, error) {
			return v.API().DeleteBook(ctx, bookID)
		},
	})
	if err != nil {
		return failed(err, "Delete failed"), err
	}
	return succeeded("Book and related orders deleted"), nil
}
