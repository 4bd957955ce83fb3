package middleware

import (
	"time"

	"github.com/flexprice/invoicer/internal/config"
	"github.com/flexprice/invoicer/internal/types"
	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
)

// SentryMiddleware attaches a hub to every request when reporting is enabled
// and is a pass-through otherwise.
func SentryMiddleware(cfg *config.Configuration) gin.HandlerFunc {
	if !cfg.Sentry.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return sentrygin.New(sentrygin.Options{
		Repanic: true,
		Timeout: 2 * time.Second,
	})
}

// SentryScopeMiddleware copies the authenticated user, matched route and
// request id onto the request hub. It must run after AuthenticateMiddleware.
func SentryScopeMiddleware(c *gin.Context) {
	if hub := sentrygin.GetHubFromContext(c); hub != nil {
		ctx := c.Request.Context()
		hub.ConfigureScope(func(scope *sentry.Scope) {
			if userID := types.GetUserID(ctx); userID != "" {
				scope.SetUser(sentry.User{
					ID:    userID,
					Email: types.GetUserEmail(ctx),
				})
				scope.SetTag("tenant_id", types.GetTenantID(ctx))
			}
			if id := types.GetRequestID(ctx); id != "" {
				scope.SetTag("request_id", id)
			}
			scope.SetTag("route", c.FullPath())
		})
	}
	c.Next()
}
