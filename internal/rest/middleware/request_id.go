package middleware

import (
	"github.com/flexprice/invoicer/internal/types"
	"github.com/gin-gonic/gin"
)

// RequestIDMiddleware reuses an incoming X-Request-ID or generates one
func RequestIDMiddleware(c *gin.Context) {
	requestID := c.GetHeader(types.HeaderRequestID)
	if requestID == "" {
		requestID = types.GenerateUUIDWithPrefix(types.UUID_PREFIX_REQUEST)
	}

	ctx := types.SetRequestID(c.Request.Context(), requestID)
	c.Request = c.Request.WithContext(ctx)
	c.Header(types.HeaderRequestID, requestID)
	c.Next()
}
