package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"fitstudio/internal/auth"
	"fitstudio/internal/tenant"
)

// Scope returns the studio and caller set by the tenant and auth middleware.
// It writes the error response itself when either is missing.
func Scope(c *gin.Context) (tenantID, userID uuid.UUID, ok bool) {
	tenantID, ok = tenant.FromContext(c)
	if !ok {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "studio is required"})
		return uuid.Nil, uuid.Nil, false
	}

	userID, ok = auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return uuid.Nil, uuid.Nil, false
	}

	return tenantID, userID, true
}

// PathID parses a uuid path parameter, answering 400 when it is malformed.
func PathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}

// BindOptionalJSON binds a JSON body when one was sent. It answers 400 and
// returns false on a malformed body.
func BindOptionalJSON(c *gin.Context, obj interface{}) bool {
	if c.Request.Body == nil || c.Request.Body == http.NoBody {
		return true
	}
	if err := c.ShouldBindJSON(obj); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return false
	}
	return true
}
