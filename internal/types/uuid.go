package types

import (
	"crypto/rand"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"
)

const (
	UUID_PREFIX_INVOICE   = "inv"
	UUID_PREFIX_LINE_ITEM = "li"
	UUID_PREFIX_CUSTOMER  = "cust"
	UUID_PREFIX_PAYMENT   = "pay"
	UUID_PREFIX_REQUEST   = "req"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// GenerateUUID returns a lowercase, time sortable ULID
func GenerateUUID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return strings.ToLower(ulid.MustNew(ulid.Now(), entropy).String())
}

// GenerateUUIDWithPrefix returns a ULID prefixed with the entity prefix, e.g. inv_01h...
func GenerateUUIDWithPrefix(prefix string) string {
	if prefix == "" {
		return GenerateUUID()
	}
	return prefix + "_" + GenerateUUID()
}
