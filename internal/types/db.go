package types

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

// LockScope represents the scope of a database advisory lock
type LockScope string

const (
	// LockScopeInvoicePayment serializes payment reconciliation per invoice
	LockScopeInvoicePayment LockScope = "invoice_payment"
)

const DefaultLockTimeout = 30 * time.Second

// LockRequest describes an advisory lock to take inside a transaction.
// A nil Timeout waits DefaultLockTimeout; zero or negative fails fast.
type LockRequest struct {
	Key     string
	Timeout *time.Duration
}

func (r LockRequest) GetTimeout() time.Duration {
	if r.Timeout == nil {
		return DefaultLockTimeout
	}
	return *r.Timeout
}

// GenerateLockKey builds a deterministic key of the form
// scope:k1=v1:k2=v2 with keys sorted. The tenant on ctx is included when
// set; params override it. Postgres hashes the key with hashtext().
func GenerateLockKey(ctx context.Context, scope LockScope, params map[string]interface{}) string {
	merged := make(map[string]interface{}, len(params)+1)
	if tenantID := GetTenantID(ctx); tenantID != "" {
		merged["tenant_id"] = tenantID
	}
	for k, v := range params {
		merged[k] = v
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(string(scope))
	for _, k := range keys {
		b.WriteString(fmt.Sprintf(":%s=%v", k, merged[k]))
	}
	return b.String()
}

// TableName represents a database table name
type TableName string

const (
	TableNameCustomers        TableName = "customers"
	TableNameInvoices         TableName = "invoices"
	TableNameInvoiceLineItems TableName = "invoice_line_items"
	TableNamePayments         TableName = "payments"
	TableNameInvoiceSequences TableName = "invoice_sequences"
)

func (t TableName) String() string {
	return string(t)
}
