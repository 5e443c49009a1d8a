package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fitstudio/internal/apperr"
	"fitstudio/internal/logger"
)

type ErrorResponse struct {
	Error string `json:"error" example:"something went wrong"`
}

type HealthResponse struct {
	Status string `json:"status" example:"ok"`
}

// RespondError writes err with the status of its kind. Server-side failures
// are logged and answered with a generic message.
func RespondError(c *gin.Context, err error) {
	status := apperr.Status(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", status,
			"error", err,
		)
	}
	c.JSON(status, ErrorResponse{Error: apperr.PublicMessage(err)})
}
