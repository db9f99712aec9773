package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"bookcourier/internal/apperr"
	"bookcourier/internal/nav"
	"bookcourier/internal/resource"
	"bookcourier/internal/service"
	"bookcourier/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

func (h *Handler) setupDashboard(dash *gin.RouterGroup) {
	dash.GET("", h.profile)
	dash.GET("/menus", h.menus)
	dash.GET("/"+nav.SegmentProfile, h.profile)
	dash.PUT("/"+nav.SegmentProfile, h.updateProfile)
	dash.GET("/"+nav.SegmentPaymentSuccess, h.paymentSuccess)
	dash.GET("/"+nav.SegmentPaymentCancelled, h.paymentCancelled)

	section := func(segment string) *gin.RouterGroup {
		return dash.Group("/"+segment, roleGate())
	}

	myOrders := section(nav.SegmentMyOrders)
	myOrders.GET("", h.refreshable(perUser(resource.CustomerOrders)), h.myOrders)
	myOrders.POST("/:id/cancel", h.cancelMyOrder)
	myOrders.POST("/:id/pay", h.payOrder)

	section(nav.SegmentInvoices).GET("", h.refreshable(perUser(resource.Invoices)), h.invoices)

	wishlist := section(nav.SegmentWishlist)
	wishlist.GET("", h.refreshable(perUser(resource.Wishlist)), h.wishlist)
	wishlist.DELETE("/:id", h.removeFromWishlist)

	section(nav.SegmentAddBook).POST("", h.addBook)
	section(nav.SegmentMyBooks).GET("", h.refreshable(perUser(resource.SellerBooks)), h.myBooks)

	edit := section(nav.SegmentEditBook)
	edit.GET("/:id", h.editBook)
	edit.PUT("/:id", h.updateBook)

	orders := section(nav.SegmentOrders)
	orders.GET("", h.refreshable(perUser(resource.SellerOrders)), h.sellerOrders)
	orders.POST("/:id/advance", h.advanceOrder)
	orders.DELETE("/:id", h.cancelSellerOrder)

	users := section(nav.SegmentAllUsers)
	users.GET("", h.refreshable(static(resource.Users())), h.allUsers)
	users.PATCH("/:id/role", h.setRole)

	manage := section(nav.SegmentManageBook)
	manage.GET("", h.refreshable(static(resource.Books())), h.manageBooks)
	manage.PATCH("/:id/status", h.setBookStatus)
	manage.DELETE("/:id", h.deleteBook)
}

func (h *Handler) menus(c *gin.Context) {
	snap := c.MustGet(snapshotKey).(session.Snapshot)
	c.JSON(http.StatusOK, gin.H{
		"role":      snap.Role,
		"resolving": snap.Resolving,
		"menus":     nav.MenusFor(snap.Role),
	})
}

func (h *Handler) profile(c *gin.Context) {
	ident, err := h.svc.Profile.Profile(resolverOf(c))
	if err != nil {
		h.fail(c, err, service.Notice{Level: service.NoticeError, Message: "Please login first"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"identity": ident})
}

func (h *Handler) updateProfile(c *gin.Context) {
	form := service.ProfileForm{Name: c.PostForm("name")}
	photo, done, err := formUpload(c, "photo")
	if err != nil {
		h.fail(c, err, service.Notice{Level: service.NoticeError, Message: "Invalid upload"})
		return
	}
	defer done()

	ident, n, err := h.svc.Profile.Update(c.Request.Context(), resolverOf(c), form, photo)
	if err != nil {
		h.fail(c, err, n)
		return
	}
	c.JSON(http.StatusOK, gin.H{"identity": ident, "notice": n})
}

func (h *Handler) paymentSuccess(c *gin.Context) {
	c.JSON(http.StatusOK, service.PaymentSucceeded(c.Query("session_id")))
}

func (h *Handler) paymentCancelled(c *gin.Context) {
	c.JSON(http.StatusOK, service.PaymentCancelled())
}

// Customer

func (h *Handler) myOrders(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Customer.MyOrders(c.Request.Context(), resolverOf(c)))
}

func (h *Handler) cancelMyOrder(c *gin.Context) {
	h.respond(c, http.StatusOK)(h.svc.Customer.Cancel(c.Request.Context(), resolverOf(c), c.Param("id")))
}

func (h *Handler) payOrder(c *gin.Context) {
	url, n, err := h.svc.Customer.Pay(c.Request.Context(), resolverOf(c), c.Param("id"))
	if err != nil {
		h.fail(c, err, n)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url, "notice": n})
}

func (h *Handler) invoices(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Customer.Invoices(c.Request.Context(), resolverOf(c)))
}

func (h *Handler) wishlist(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Customer.Wishlist(c.Request.Context(), resolverOf(c)))
}

func (h *Handler) removeFromWishlist(c *gin.Context) {
	h.respond(c, http.StatusOK)(h.svc.Customer.RemoveFromWishlist(c.Request.Context(), resolverOf(c), c.Param("id")))
}

// Librarian

// bookForm reads a book from a multipart form.
func bookForm(c *gin.Context) (service.BookForm, error) {
	form := service.BookForm{
		Name:        c.PostForm("name"),
		Author:      c.PostForm("author"),
		Category:    c.PostForm("category"),
		Status:      c.PostForm("status"),
		Description: c.PostForm("description"),
		Image:       c.PostForm("image"),
	}
	fields := map[string]string{}
	if raw := strings.TrimSpace(c.PostForm("price")); raw != "" {
		price, err := decimal.NewFromString(raw)
		if err != nil {
			fields["price"] = "must be a number"
		}
		form.Price = price
	}
	if raw := strings.TrimSpace(c.PostForm("quantity")); raw != "" {
		qty, err := strconv.Atoi(raw)
		if err != nil {
			fields["quantity"] = "must be a whole number"
		}
		form.Quantity = qty
	}
	if len(fields) > 0 {
		return form, apperr.Validation("Please correct the highlighted fields", fields)
	}
	return form, nil
}

func (h *Handler) addBook(c *gin.Context) {
	h.saveBook(c, http.StatusCreated, func(form service.BookForm, img *service.Upload) (service.Notice, error) {
		return h.svc.Librarian.AddBook(c.Request.Context(), resolverOf(c), form, img)
	})
}

func (h *Handler) updateBook(c *gin.Context) {
	h.saveBook(c, http.StatusOK, func(form service.BookForm, img *service.Upload) (service.Notice, error) {
		return h.svc.Librarian.UpdateBook(c.Request.Context(), resolverOf(c), c.Param("id"), form, img)
	})
}

func (h *Handler) saveBook(c *gin.Context, status int, save func(service.BookForm, *service.Upload) (service.Notice, error)) {
	form, err := bookForm(c)
	if err != nil {
		h.fail(c, err, service.Notice{Level: service.NoticeError, Message: apperr.Message(err)})
		return
	}
	img, done, err := formUpload(c, "image")
	if err != nil {
		h.fail(c, err, service.Notice{Level: service.NoticeError, Message: "Invalid upload"})
		return
	}
	defer done()

	h.respond(c, status)(save(form, img))
}

func (h *Handler) myBooks(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Librarian.MyBooks(c.Request.Context(), resolverOf(c)))
}

func (h *Handler) editBook(c *gin.Context) {
	view, err := h.svc.Librarian.EditBook(c.Request.Context(), resolverOf(c), c.Param("id"))
	if err != nil {
		msg := "Failed to load book"
		if errors.Is(err, apperr.ErrForbidden) {
			msg = "You can only edit your own books"
		}
		h.fail(c, err, service.Notice{Level: service.NoticeError, Message: msg})
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) sellerOrders(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Librarian.Orders(c.Request.Context(), resolverOf(c)))
}

func (h *Handler) advanceOrder(c *gin.Context) {
	h.respond(c, http.StatusOK)(h.svc.Librarian.AdvanceOrder(c.Request.Context(), resolverOf(c), c.Param("id")))
}

func (h *Handler) cancelSellerOrder(c *gin.Context) {
	h.respond(c, http.StatusOK)(h.svc.Librarian.CancelOrder(c.Request.Context(), resolverOf(c), c.Param("id")))
}

// Admin

func (h *Handler) allUsers(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Admin.Users(c.Request.Context(), resolverOf(c)))
}

func (h *Handler) setRole(c *gin.Context) {
	var form service.RoleForm
	if err := c.ShouldBindJSON(&form); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	h.respond(c, http.StatusOK)(h.svc.Admin.SetRole(c.Request.Context(), resolverOf(c), c.Param("id"), form))
}

func (h *Handler) manageBooks(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Admin.Books(c.Request.Context(), resolverOf(c)))
}

func (h *Handler) setBookStatus(c *gin.Context) {
	var form service.BookStatusForm
	if err := c.ShouldBindJSON(&form); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	h.respond(c, http.StatusOK)(h.svc.Admin.SetBookStatus(c.Request.Context(), resolverOf(c), c.Param("id"), form))
}

func (h *Handler) deleteBook(c *gin.Context) {
	h.respond(c, http.StatusOK)(h.svc.Admin.DeleteBook(c.Request.Context(), resolverOf(c), c.Param("id")))
}

// respond writes the notice of an action that returns nothing else.
func (h *Handler) respond(c *gin.Context, status int) func(service.Notice, error) {
	return func(n service.Notice, err error) {
		if err != nil {
			h.fail(c, err, n)
			return
		}
		c.JSON(status, gin.H{"notice": n})
	}
}
