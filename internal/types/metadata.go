package types

// Metadata is a free form string map passed through to external systems
type Metadata map[string]string

const (
	MetadataKeyInvoiceID     = "invoice_id"
	MetadataKeyInvoiceNumber = "invoice_number"
	MetadataKeyUserID        = "user_id"
)
