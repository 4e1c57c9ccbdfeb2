package middleware

import (
	defError "errors"
	"net/http"
	"strconv"

	"scenario-writing-lab/internal/errors"
	"scenario-writing-lab/internal/redact"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// ErrorBody is the envelope of every non-2xx response.
type ErrorBody struct {
	Error         string `json:"error"`
	CorrelationID string `json:"correlationId"`
	RetryAfterMs  int64  `json:"retryAfterMs,omitempty"`
}

// ErrorHandler renders the last error attached with c.Error. Internal causes
// are logged through redactor and never reach the response body.
func ErrorHandler(redactor *redact.Redactor) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next() // Execute the handler first

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err

		var apiErr *errors.APIError
		if !defError.As(err, &apiErr) {
			// a raw error we didn't wrap is treated as internal
			apiErr = errors.Internal("", err)
		}

		l := zerolog.Ctx(c.Request.Context())
		evt := l.Info()
		if apiErr.Status >= 500 {
			evt = l.Error()
		}
		if apiErr.Internal != nil {
			evt = evt.Str("cause", redactor.Error(apiErr.Internal))
		}
		evt.Int("status", apiErr.Status).Str("code", apiErr.Code).Msg("REQUEST_FAILED")

		if apiErr.Status == http.StatusTooManyRequests && apiErr.RetryAfterMs > 0 {
			c.Header("Retry-After", strconv.FormatInt((apiErr.RetryAfterMs+999)/1000, 10))
		}
		c.AbortWithStatusJSON(apiErr.Status, ErrorBody{
			Error:         apiErr.Code,
			CorrelationID: CorrelationID(c),
			RetryAfterMs:  apiErr.RetryAfterMs,
		})
	}
}

// Recovery turns a panic into a 500 INTERNAL_ERROR envelope.
func Recovery(redactor *redact.Redactor) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		l := zerolog.Ctx(c.Request.Context())
		msg := "panic"
		if err, ok := recovered.(error); ok {
			msg = redactor.Error(err)
		} else if s, ok := recovered.(string); ok {
			msg = redactor.Message(s)
		}
		l.Error().Str("panic", msg).Msg("REQUEST_PANIC")

		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorBody{
			Error:         errors.CodeInternal,
			CorrelationID: CorrelationID(c),
		})
	})
}

// NotFound is the catch-all for unknown routes.
func NotFound() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Error(errors.NotFound(errors.CodeNotFound, nil))
	}
}
