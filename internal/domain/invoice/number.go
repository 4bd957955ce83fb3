package invoice

import (
	"fmt"
	"time"
)

// NumberFormat describes how invoice numbers are rendered, e.g.
// INV-202610-00001 for prefix INV, separator "-" and suffix length 5.
type NumberFormat struct {
	Prefix       string
	Separator    string
	SuffixLength int
}

// YearMonth is the sequence bucket an invoice issued at t belongs to
func YearMonth(t time.Time) string {
	return t.UTC().Format("200601")
}

// Format renders the number for the seq-th invoice of the issuer in the
// month of t. seq starts at 1.
func (f NumberFormat) Format(t time.Time, seq int64) string {
	return fmt.Sprintf("%s%s%s%s%0*d", f.Prefix, f.Separator, YearMonth(t), f.Separator, f.SuffixLength, seq)
}
