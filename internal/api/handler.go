package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"bookcourier/internal/cache"
	"bookcourier/internal/resource"
	"bookcourier/internal/service"
	"bookcourier/internal/session"
	"bookcourier/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Services groups the screen controllers the handler serves.
type Services struct {
	Accounts  *service.AccountService
	Catalog   *service.CatalogService
	Books     *service.BookService
	Customer  *service.CustomerService
	Librarian *service.LibrarianService
	Admin     *service.AdminService
	Profile   *service.ProfileService
}

// CookieConfig controls the session cookie.
type CookieConfig struct {
	Name   string
	MaxAge time.Duration
	Secure bool
}

type readinessCheck struct {
	name  string
	check func(ctx context.Context) error
}

// Handler contains HTTP handlers
type Handler struct {
	sessions *session.Manager
	cache    *cache.Cache
	svc      Services
	cookie   CookieConfig
	checks   []readinessCheck
	logger   *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(sessions *session.Manager, c *cache.Cache, svc Services, cookie CookieConfig) *Handler {
	return &Handler{
		sessions: sessions,
		cache:    c,
		svc:      svc,
		cookie:   cookie,
		logger:   util.GetLogger(),
	}
}

// AddReadinessCheck registers a dependency checked by /ready.
func (h *Handler) AddReadinessCheck(name string, check func(ctx context.Context) error) {
	h.checks = append(h.checks, readinessCheck{name: name, check: check})
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(requestLogger(h.logger))

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1", h.sessionMiddleware())
	{
		authRoutes := v1.Group("/auth")
		authRoutes.POST("/login", h.login)
		authRoutes.POST("/google", h.loginWithGoogle)
		authRoutes.POST("/signup", h.signUp)
		authRoutes.POST("/logout", h.logout)
		authRoutes.GET("/session", h.currentSession)

		v1.GET("/books", h.refreshable(static(resource.Books())), h.listBooks)
		v1.GET("/books/latest", h.refreshable(static(resource.LatestBooks())), h.latestBooks)
		v1.GET("/books/categories", h.categories)
		v1.GET("/books/:id", h.refreshable(bookKeys), h.bookDetail)
		v1.POST("/books/:id/wishlist", h.addToWishlist)
		v1.POST("/books/:id/orders", h.placeOrder)
		v1.POST("/books/:id/reviews", h.submitReview)
	}

	h.setupDashboard(router.Group("/dashboard", h.sessionMiddleware(), h.requireIdentity()))
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck reports ready only when every registered dependency answers.
func (h *Handler) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	failing := gin.H{}
	for _, rc := range h.checks {
		if err := rc.check(ctx); err != nil {
			failing[rc.name] = err.Error()
		}
	}
	if len(failing) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "not ready",
			"failing": failing,
			"time":    time.Now().Unix(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}
