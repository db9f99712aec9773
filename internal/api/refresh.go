package api

import (
	"strconv"

	"bookcourier/internal/cache"
	"bookcourier/internal/resource"

	"github.com/gin-gonic/gin"
)

// keysFunc names the cache entries behind a screen for the signed-in email,
// which is empty for anonymous callers.
type keysFunc func(c *gin.Context, email string) []cache.Key

// refreshable re-runs the fetches behind a screen before it is rendered when
// the request carries ?refresh=true.
func (h *Handler) refreshable(keys keysFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if ok, _ := strconv.ParseBool(c.Query("refresh")); ok {
			email := ""
			if ident := resolverOf(c).Identity(); ident != nil {
				email = ident.Email
			}
			for _, k := range keys(c, email) {
				h.cache.Refresh(c.Request.Context(), k)
			}
		}
		c.Next()
	}
}

func static(keys ...cache.Key) keysFunc {
	return func(*gin.Context, string) []cache.Key { return keys }
}

func perUser(key func(email string) cache.Key) keysFunc {
	return func(_ *gin.Context, email string) []cache.Key {
		if email == "" {
			return nil
		}
		return []cache.Key{key(email)}
	}
}

func bookKeys(c *gin.Context, _ string) []cache.Key {
	id := c.Param("id")
	return []cache.Key{resource.Book(id), resource.Reviews(id)}
}
