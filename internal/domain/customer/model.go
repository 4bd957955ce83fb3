package customer

import (
	"time"

	ierr "github.com/flexprice/invoicer/internal/errors"
)

// Customer is a billing contact owned by one user. Invoices reference
// customers but do not own them.
type Customer struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Company   string    `json:"company,omitempty"`
	Address   string    `json:"address,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Patch holds the optional fields of a customer update. Nil leaves the
// stored value in place.
type Patch struct {
	Name    *string
	Email   *string
	Company *string
	Address *string
	Phone   *string
}

func (c *Customer) ApplyPatch(p Patch) {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Email != nil {
		c.Email = *p.Email
	}
	if p.Company != nil {
		c.Company = *p.Company
	}
	if p.Address != nil {
		c.Address = *p.Address
	}
	if p.Phone != nil {
		c.Phone = *p.Phone
	}
}

func (c *Customer) Validate() error {
	if c.Name == "" {
		return ierr.NewError("customer name is required").
			WithHint("Customer name is required").
			Mark(ierr.ErrValidation)
	}
	if c.Email == "" {
		return ierr.NewError("customer email is required").
			WithHint("Customer email is required").
			Mark(ierr.ErrValidation)
	}
	return nil
}
