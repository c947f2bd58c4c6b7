package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/patient-api/internal/handler"
)

// Timeout puts a deadline on the request context. Handlers run on the
// request goroutine; the database driver observes the deadline and the
// error surfaces through ErrorHandler. If a handler ignores the deadline
// and has written nothing, a 504 is sent once it returns.
func Timeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if d <= 0 {
			c.Next()
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		if errors.Is(ctx.Err(), context.DeadlineExceeded) && !c.Writer.Written() && len(c.Errors) == 0 {
			c.AbortWithStatusJSON(http.StatusGatewayTimeout,
				handler.NewErrorResponse(MessageTimeout, nil))
		}
	}
}
