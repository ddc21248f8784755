package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"helpdesk_chat/pkg/logger"
)

// RequestLogger пишет access-лог через общий логгер. Query не логируется:
// в нем может быть токен рукопожатия.
func RequestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		statusCode := c.Writer.Status()
		fields := []any{
			"client_ip", c.ClientIP(),
			"method", c.Request.Method,
			"path", path,
			"status", statusCode,
			"latency", time.Since(start).String(),
		}

		if statusCode >= 500 {
			log.Error("HTTP request", fields...)
			return
		}
		log.Info("HTTP request", fields...)
	}
}
