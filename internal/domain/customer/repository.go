package customer

import (
	"context"

	"github.com/flexprice/invoicer/internal/types"
)

// Repository defines customer persistence. Every method is scoped to the
// tenant on ctx; ids owned by another tenant behave as missing.
type Repository interface {
	Create(ctx context.Context, c *Customer) error
	Get(ctx context.Context, id string) (*Customer, error)
	List(ctx context.Context, filter *types.CustomerFilter) ([]*Customer, error)
	Count(ctx context.Context, filter *types.CustomerFilter) (int, error)
	Update(ctx context.Context, c *Customer) error
	Delete(ctx context.Context, id string) error

	// HasInvoices reports whether any invoice references the customer
	HasInvoices(ctx context.Context, id string) (bool, error)
}
