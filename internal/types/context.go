package types

import "context"

// ContextKey is the type used for values stored on request contexts
type ContextKey string

const (
	CtxRequestID ContextKey = "ctx_request_id"
	CtxTenantID  ContextKey = "ctx_tenant_id"
	CtxUserID    ContextKey = "ctx_user_id"
	CtxJWT       ContextKey = "ctx_jwt"
	CtxUserEmail ContextKey = "ctx_user_email"
	CtxUserName  ContextKey = "ctx_user_name"
)

// GetRequestID returns the request ID from the context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(CtxRequestID).(string); ok {
		return requestID
	}
	return ""
}

// GetTenantID returns the tenant ID from the context. A tenant is the user
// owning the data, so every scoped query filters on this value.
func GetTenantID(ctx context.Context) string {
	if tenantID, ok := ctx.Value(CtxTenantID).(string); ok {
		return tenantID
	}
	return ""
}

// GetUserID returns the authenticated user ID from the context
func GetUserID(ctx context.Context) string {
	if userID, ok := ctx.Value(CtxUserID).(string); ok {
		return userID
	}
	return ""
}

// SetTenantID returns a copy of ctx scoped to the given tenant and user
func SetTenantID(ctx context.Context, tenantID string) context.Context {
	ctx = context.WithValue(ctx, CtxTenantID, tenantID)
	return context.WithValue(ctx, CtxUserID, tenantID)
}

// SetRequestID returns a copy of ctx carrying the request ID
func SetRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, CtxRequestID, requestID)
}

// GetUserEmail returns the authenticated user's email from the token claims
func GetUserEmail(ctx context.Context) string {
	if email, ok := ctx.Value(CtxUserEmail).(string); ok {
		return email
	}
	return ""
}

func GetUserName(ctx context.Context) string {
	if name, ok := ctx.Value(CtxUserName).(string); ok {
		return name
	}
	return ""
}
