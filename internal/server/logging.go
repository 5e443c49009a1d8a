package server

import (
	"time"

	"github.com/gin-gonic/gin"

	"fitstudio/internal/logger"
	"fitstudio/internal/tenant"
)

// RequestLoggingMiddleware logs one structured line per request. The query
// string is left out because webhook URLs carry payment ids.
func RequestLoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		fields := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		}
		if id, ok := tenant.FromContext(c); ok {
			fields = append(fields, "studio_id", id)
		}
		if len(c.Errors) > 0 {
			fields = append(fields, "errors", c.Errors.String())
		}

		if c.Writer.Status() >= 500 {
			logger.Error("HTTP request", fields...)
			return
		}
		logger.Info("HTTP request", fields...)
	}
}
