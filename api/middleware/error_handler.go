// api/middleware/error_handler.go
package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10" // Import validator for binding errors

	"github.com/shiftline/lineboard/internal/core"
	"github.com/shiftline/lineboard/internal/logger"
	"github.com/shiftline/lineboard/internal/storage"
)

var (
	customLog = logger.NewLogger()
)

// ErrorHandler creates a Gin middleware for centralized error handling.
// Handlers attach errors with c.Error; this maps the last one to an HTTP
// status and a safe user message. Internals are only ever logged.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		customLog.Printf("[ErrorHandler] Detected error: %v | Type: %T", err, err)

		var statusCode int
		var userMessage string

		switch {
		case errors.Is(err, core.ErrInvalidIdentifier),
			errors.Is(err, storage.ErrMissingTable),
			errors.Is(err, storage.ErrInvalidID),
			errors.Is(err, storage.ErrMissingUpdates),
			errors.Is(err, storage.ErrInvalidComment),
			errors.Is(err, storage.ErrInvalidFlag),
			errors.Is(err, storage.ErrNoFieldsProvided):
			statusCode = http.StatusBadRequest
			userMessage = err.Error()

		case errors.Is(err, storage.ErrRecordNotFound),
			errors.Is(err, storage.ErrTableNotFound),
			errors.Is(err, storage.ErrLineNotFound):
			statusCode = http.StatusNotFound
			userMessage = err.Error()

		default:
			if validationErrs, ok := err.(validator.ValidationErrors); ok {
				statusCode = http.StatusBadRequest
				userMessage = "Validation failed. Please check your input."
				for _, fe := range validationErrs {
					customLog.Printf("Validation Error: Field %s failed on %s", fe.Field(), fe.Tag())
				}
				break
			}
			statusCode = http.StatusInternalServerError
			userMessage = "An unexpected internal server error occurred."
			customLog.Warnf("Unhandled error type: %T, Error: %v", err, err)
		}

		if !c.Writer.Written() {
			c.AbortWithStatusJSON(statusCode, gin.H{"error": userMessage})
		} else {
			customLog.Warnf("[ErrorHandler] Warning: Response already written before handling error.")
		}
	}
}
