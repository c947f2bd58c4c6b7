package middleware

import (
	"github.com/gin-gonic/gin"
)

// apiSecurityHeaders suit a JSON-only API: nothing it returns should ever
// be framed, sniffed or executed by a browser.
var apiSecurityHeaders = map[string]string{
	"X-Frame-Options":         "DENY",
	"X-Content-Type-Options":  "nosniff",
	"Referrer-Policy":         "no-referrer",
	"Content-Security-Policy": "default-src 'none'; frame-ancestors 'none'",
	"Cache-Control":           "no-store",
}

func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		for name, value := range apiSecurityHeaders {
			c.Header(name, value)
		}
		c.Next()
	}
}
