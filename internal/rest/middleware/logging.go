package middleware

import (
	"time"

	"github.com/flexprice/invoicer/internal/logger"
	"github.com/flexprice/invoicer/internal/types"
	"github.com/gin-gonic/gin"
)

// quietRoutes log successful requests at debug only
var quietRoutes = map[string]bool{
	"/health": true,
}

// LoggingMiddleware writes one structured line per request once the handler
// chain has finished, so tenant and request id set downstream are included.
func LoggingMiddleware(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()

		ctx := c.Request.Context()
		fields := []interface{}{
			"method", c.Request.Method,
			"route", route,
			"path", c.Request.URL.Path,
			"status", status,
			"latency_ms", time.Since(start).Milliseconds(),
			"bytes_in", c.Request.ContentLength,
			"bytes_out", c.Writer.Size(),
			"client_ip", c.ClientIP(),
		}
		if q := c.Request.URL.RawQuery; q != "" {
			fields = append(fields, "query", q)
		}
		if id := types.GetRequestID(ctx); id != "" {
			fields = append(fields, "request_id", id)
		}
		if tenant := types.GetTenantID(ctx); tenant != "" {
			fields = append(fields, "tenant_id", tenant)
		}
		if errs := c.Errors.ByType(gin.ErrorTypeAny); len(errs) > 0 {
			fields = append(fields, "errors", errs.String())
		}

		switch {
		case status >= 500:
			log.Errorw("request failed", fields...)
		case status >= 400:
			log.Warnw("request rejected", fields...)
		case quietRoutes[route]:
			log.Debugw("request", fields...)
		default:
			log.Infow("request", fields...)
		}
	}
}
