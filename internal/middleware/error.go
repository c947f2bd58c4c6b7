package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/patient-api/internal/handler"
	apperrors "github.com/jwalitptl/patient-api/pkg/errors"
)

const (
	MessageTimeout     = "Request timeout"
	MessageTooLarge    = "Request entity too large"
	MessageRateLimited = "Too many requests"
)

// ErrorHandler renders the last error a handler attached with c.Error.
// Server-side failures are logged and answered with a generic message so
// no internal detail reaches the client.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		status, body := renderError(err)

		event := log.Debug()
		if status >= http.StatusInternalServerError {
			event = log.Error()
		}
		event.
			Err(err).
			Str("request_id", c.GetString(ContextRequestID)).
			Str("method", c.Request.Method).
			Str("route", route(c)).
			Int("status", status).
			Msg("Request error")

		if c.Writer.Written() {
			return
		}
		c.JSON(status, body)
	}
}

func renderError(err error) (int, *handler.Response) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge, handler.NewErrorResponse(MessageTooLarge, nil)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout, handler.NewErrorResponse(MessageTimeout, nil)
	}

	appErr, ok := apperrors.As(err)
	if !ok || appErr.StatusCode() >= http.StatusInternalServerError {
		return http.StatusInternalServerError, handler.NewErrorResponse(apperrors.MessageInternal, nil)
	}
	return appErr.StatusCode(), handler.NewErrorResponse(appErr.Message, appErr.Fields)
}

// NotFound answers unknown routes with the same envelope as unknown ids.
func NotFound() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusNotFound, handler.NewErrorResponse(apperrors.MessageNotFound, nil))
	}
}
