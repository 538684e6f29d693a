package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const RequestIDHeader = "X-Request-ID"

// RequestID tags every request with an ID, taken from the incoming header when
// present, and stores a request-scoped logger under "logger".
func RequestID(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if _, err := uuid.Parse(requestID); err != nil {
			requestID = uuid.NewString()
		}

		c.Set("request_id", requestID)
		c.Set("logger", logger.With(zap.String("request_id", requestID)))
		c.Header(RequestIDHeader, requestID)
		c.Next()
	}
}

// Logger returns the request-scoped logger, or fallback when none is set.
func Logger(c *gin.Context, fallback *zap.Logger) *zap.Logger {
	if value, ok := c.Get("logger"); ok {
		if logger, ok := value.(*zap.Logger); ok && logger != nil {
			return logger
		}
	}
	return fallback
}
