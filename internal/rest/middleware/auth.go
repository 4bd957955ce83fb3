package middleware

import (
	"context"
	"strings"

	"github.com/flexprice/invoicer/internal/auth"
	ierr "github.com/flexprice/invoicer/internal/errors"
	"github.com/flexprice/invoicer/internal/logger"
	"github.com/flexprice/invoicer/internal/types"
	"github.com/gin-gonic/gin"
)

// AuthenticateMiddleware validates the bearer token and scopes the request
// context to the user it names
func AuthenticateMiddleware(provider auth.Provider, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader(types.HeaderAuthorization)
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || strings.TrimSpace(token) == "" {
			c.Error(ierr.NewError("missing bearer token").
				WithHint("Authorization header with a bearer token is required").
				Mark(ierr.ErrUnauthenticated))
			c.Abort()
			return
		}

		claims, err := provider.ValidateToken(c.Request.Context(), strings.TrimSpace(token))
		if err != nil {
			log.Debugw("rejected bearer token", "error", err)
			c.Error(err)
			c.Abort()
			return
		}

		ctx := types.SetTenantID(c.Request.Context(), claims.UserID)
		ctx = context.WithValue(ctx, types.CtxUserEmail, claims.Email)
		ctx = context.WithValue(ctx, types.CtxUserName, claims.Name)
		ctx = context.WithValue(ctx, types.CtxJWT, token)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
