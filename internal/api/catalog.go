package api

import (
	"net/http"

	"bookcourier/internal/service"

	"github.com/gin-gonic/gin"
)

func (h *Handler) listBooks(c *gin.Context) {
	var q service.CatalogQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, "Invalid query")
		return
	}
	c.JSON(http.StatusOK, h.svc.Catalog.Books(c.Request.Context(), q))
}

func (h *Handler) latestBooks(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Catalog.Latest(c.Request.Context()))
}

func (h *Handler) categories(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Catalog.Categories(c.Request.Context()))
}

// bookDetail serves the book page. A missing book is a 404; other regions
// report their own errors in the body.
func (h *Handler) bookDetail(c *gin.Context) {
	detail := h.svc.Books.Detail(c.Request.Context(), resolverOf(c), c.Param("id"))
	if detail.Book.Err != nil && statusFor(detail.Book.Err) == http.StatusNotFound {
		c.JSON(http.StatusNotFound, detail)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *Handler) addToWishlist(c *gin.Context) {
	n, err := h.svc.Books.AddToWishlist(c.Request.Context(), resolverOf(c), c.Param("id"))
	if err != nil {
		h.fail(c, err, n)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"notice": n})
}

func (h *Handler) placeOrder(c *gin.Context) {
	var form service.OrderForm
	if err := c.ShouldBindJSON(&form); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	order, n, err := h.svc.Books.PlaceOrder(c.Request.Context(), resolverOf(c), c.Param("id"), form)
	if err != nil {
		h.fail(c, err, n)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"order": order, "notice": n})
}

func (h *Handler) submitReview(c *gin.Context) {
	var form service.ReviewForm
	if err := c.ShouldBindJSON(&form); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	n, err := h.svc.Books.SubmitReview(c.Request.Context(), resolverOf(c), c.Param("id"), form)
	if err != nil {
		h.fail(c, err, n)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"notice": n})
}
