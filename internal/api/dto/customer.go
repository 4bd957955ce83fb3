package dto

import (
	"context"
	"strings"
	"time"

	"github.com/flexprice/invoicer/internal/domain/customer"
	"github.com/flexprice/invoicer/internal/types"
	"github.com/flexprice/invoicer/internal/validator"
)

type CreateCustomerRequest struct {
	Name    string `json:"name" validate:"required,max=255"`
	Email   string `json:"email" validate:"required,email"`
	Company string `json:"company,omitempty" validate:"max=255"`
	Address string `json:"address,omitempty"`
	Phone   string `json:"phone,omitempty" validate:"max=50"`
}

func (r *CreateCustomerRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
	return validator.ValidateRequest(r)
}

func (r *CreateCustomerRequest) ToCustomer(ctx context.Context) *customer.Customer {
	now := time.Now().UTC()
	return &customer.Customer{
		ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_CUSTOMER),
		UserID:    types.GetTenantID(ctx),
		Name:      r.Name,
		Email:     r.Email,
		Company:   r.Company,
		Address:   r.Address,
		Phone:     r.Phone,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// UpdateCustomerRequest only changes the fields that are present
type UpdateCustomerRequest struct {
	Name    *string `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	Email   *string `json:"email,omitempty" validate:"omitempty,email"`
	Company *string `json:"company,omitempty" validate:"omitempty,max=255"`
	Address *string `json:"address,omitempty"`
	Phone   *string `json:"phone,omitempty" validate:"omitempty,max=50"`
}

func (r *UpdateCustomerRequest) Validate() error {
	return validator.ValidateRequest(r)
}

func (r *UpdateCustomerRequest) ToPatch() customer.Patch {
	return customer.Patch{
		Name:    r.Name,
		Email:   r.Email,
		Company: r.Company,
		Address: r.Address,
		Phone:   r.Phone,
	}
}

type CustomerResponse struct {
	*customer.Customer
}

type ListCustomersResponse struct {
	Items      []*CustomerResponse      `json:"items"`
	Pagination types.PaginationResponse `json:"pagination"`
}
