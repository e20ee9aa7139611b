package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/taskbridge/backend/internal/logger"
	"github.com/taskbridge/backend/internal/pkg/apperror"
)

// ErrorHandler обрабатывает ошибки централизованно. Сервисы кладут
// *apperror.AppError в c.Error, хендлерам остаётся только вернуть данные.
// Внутренние ошибки маскируются, клиент видит общее сообщение.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() || len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err

		statusCode := http.StatusInternalServerError
		message := "внутренняя ошибка сервера"

		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			statusCode = appErr.HTTPStatus
			message = appErr.Message
		}

		entry := logger.Log.WithFields(logrus.Fields{
			"error":  err.Error(),
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
			"status": statusCode,
		})
		if statusCode >= http.StatusInternalServerError {
			entry.Error("Request error")
		} else {
			entry.Debug("Request error")
		}

		c.JSON(statusCode, gin.H{"error": message})
	}
}
