package cache

import (
	"context"
	"strings"
	"time"
)

// Cache is a best effort key value store. Misses and backend failures look
// the same to callers; the database stays the source of truth.
type Cache interface {
	Get(ctx context.Context, key string) (interface{}, bool)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration)
	Delete(ctx context.Context, key string)
	Flush(ctx context.Context)
}

const (
	PrefixCustomer = "customer"

	// DefaultTTL applies when neither the caller nor the config sets one
	DefaultTTL = 5 * time.Minute
)

// GenerateKey joins the prefix and parts with ':'
func GenerateKey(prefix string, parts ...string) string {
	return prefix + ":" + strings.Join(parts, ":")
}
