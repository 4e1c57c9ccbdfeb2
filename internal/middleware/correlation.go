package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	CorrelationHeader = "x-correlation-id"
	CorrelationIDKey  = "correlation_id"
	UserIDKey         = "user_id"
)

// Correlation assigns every request a correlation id, taken from the
// x-correlation-id header when present, echoes it in the response and
// stores a request logger carrying it in the request context.
func Correlation(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(CorrelationHeader))
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(CorrelationIDKey, id)
		c.Header(CorrelationHeader, id)

		reqLogger := logger.With().Str("correlationId", id).Logger()
		c.Request = c.Request.WithContext(reqLogger.WithContext(c.Request.Context()))

		c.Next()
	}
}

// RequestLogger writes one line per request once the handler chain is done.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		l := zerolog.Ctx(c.Request.Context())
		evt := l.Info()
		if c.Writer.Status() >= 500 {
			evt = l.Error()
		}
		evt.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Int64("elapsedMs", time.Since(start).Milliseconds()).
			Msg("HTTP_REQUEST")
	}
}

func CorrelationID(c *gin.Context) string {
	return c.GetString(CorrelationIDKey)
}

func UserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}
