// Package middleware provides the gin middleware chain of the HTTP server.
package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/kart-io/medrag/pkg/infra/middleware/common"
	mwopts "github.com/kart-io/medrag/pkg/options/middleware"
)

// RequestID returns a middleware that tags every request with an ID.
// An incoming header value is reused, otherwise a new ID is generated.
// The ID is echoed in the response header and stored in the request context.
func RequestID(opts mwopts.RequestIDOptions) gin.HandlerFunc {
	header := opts.Header
	if header == "" {
		header = common.HeaderXRequestID
	}

	return func(c *gin.Context) {
		id := c.GetHeader(header)
		if id == "" {
			id = common.GenerateRequestID()
		}
		c.Header(header, id)
		c.Request = c.Request.WithContext(common.WithRequestID(c.Request.Context(), id))
		c.Next()
	}
}
