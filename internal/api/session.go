package api

import (
	"net/http"

	"bookcourier/internal/nav"
	"bookcourier/internal/service"
	"bookcourier/internal/session"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	resolverKey = "session.resolver"
	snapshotKey = "session.snapshot"
)

// sessionMiddleware attaches the caller's resolver. Requests without a known
// session id get an anonymous one; the cookie is only issued on sign-in.
func (h *Handler) sessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := c.Cookie(h.cookie.Name)
		r, err := h.sessions.Get(c.Request.Context(), id)
		if err != nil {
			h.logger.Error("Failed to load session", zap.String("session_id", id), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"notice": service.Notice{Level: service.NoticeError, Message: "Session unavailable, please retry"},
			})
			return
		}
		c.Set(resolverKey, r)
		c.Next()
	}
}

func resolverOf(c *gin.Context) *session.Resolver {
	return c.MustGet(resolverKey).(*session.Resolver)
}

func (h *Handler) setSessionCookie(c *gin.Context, r *session.Resolver) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, r.ID(), int(h.cookie.MaxAge.Seconds()), "/", "", h.cookie.Secure, true)
}

func (h *Handler) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, "", -1, "/", "", h.cookie.Secure, true)
}

// requireIdentity sends callers without an identity to the login screen,
// carrying the requested path so sign-in can return there.
func (h *Handler) requireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		snap := resolverOf(c).Snapshot(c.Request.Context())
		if !snap.SignedIn() || snap.NeedsReauth {
			c.Redirect(http.StatusFound, nav.LoginRedirect(c.Request.URL.RequestURI()))
			c.Abort()
			return
		}
		c.Set(snapshotKey, snap)
		c.Next()
	}
}

// roleGate admits the request only if the resolved role may open segment.
func roleGate() gin.HandlerFunc {
	return func(c *gin.Context) {
		segment, ok := nav.Segment(c.FullPath())
		if !ok {
			c.AbortWithStatus(http.StatusNotFound)
			return
		}
		snap := c.MustGet(snapshotKey).(session.Snapshot)
		if !snap.RoleResolved && snap.Resolving {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"loading": true})
			return
		}
		if !nav.CanEnter(segment, snap.Role) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"notice": service.Notice{Level: service.NoticeError, Message: "You do not have access to this page"},
			})
			return
		}
		c.Next()
	}
}
