package middleware

import (
	"github.com/gin-gonic/gin"
	"helpdesk_chat/pkg/errors"
	"helpdesk_chat/pkg/logger"
)

// ErrorHandler отвечает JSON-ошибкой, если обработчик положил ее в c.Error
// и сам ничего не записал
func ErrorHandler(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Проверяем есть ли ошибки
		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last()
		statusCode := errors.HTTPStatusFromError(err.Err)

		message := err.Error()
		if statusCode >= 500 {
			log.Error("Request failed", "error", err.Err, "path", c.FullPath())
			// причину сбоя хранилища наружу не отдаем
			message = "Internal server error"
		}

		c.JSON(statusCode, gin.H{
			"error": message,
		})
	}
}
