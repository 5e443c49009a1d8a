// Package tenant resolves the studio a request operates on.
package tenant

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	Header     = "X-Studio-Id"
	QueryParam = "studio_id"
	contextKey = "tenant_id"
)

// Middleware reads the studio from the X-Studio-Id header, falling back to
// the studio_id query parameter, and rejects requests without a valid one.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(Header)
		if raw == "" {
			raw = c.Query(QueryParam)
		}
		if raw == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "studio is required"})
			c.Abort()
			return
		}

		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid studio id"})
			c.Abort()
			return
		}

		c.Set(contextKey, id)
		c.Next()
	}
}

func FromContext(c *gin.Context) (uuid.UUID, bool) {
	v, exists := c.Get(contextKey)
	if !exists {
		return uuid.Nil, false
	}

	id, ok := v.(uuid.UUID)
	return id, ok
}

// Set is used by tests and internal callers that already know the tenant.
func Set(c *gin.Context, id uuid.UUID) {
	c.Set(contextKey, id)
}
