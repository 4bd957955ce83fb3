package gorm

import (
	"time"

	"github.com/flexprice/invoicer/internal/domain/customer"
	"github.com/flexprice/invoicer/internal/domain/invoice"
	"github.com/flexprice/invoicer/internal/domain/payment"
	"github.com/flexprice/invoicer/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CustomerModel struct {
	ID        string `gorm:"primaryKey;size:50"`
	UserID    string `gorm:"size:50;not null;index"`
	Name      string `gorm:"size:255;not null"`
	Email     string `gorm:"size:255;not null;index"`
	Company   string `gorm:"size:255"`
	Address   string `gorm:"type:text"`
	Phone     string `gorm:"size:50"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (CustomerModel) TableName() string { return types.TableNameCustomers.String() }

type InvoiceModel struct {
	ID                      string              `gorm:"primaryKey;size:50"`
	UserID                  string              `gorm:"size:50;not null;index;uniqueIndex:idx_invoices_user_number,priority:1"`
	CustomerID              string              `gorm:"size:50;not null;index"`
	InvoiceNumber           string              `gorm:"size:64;not null;uniqueIndex:idx_invoices_user_number,priority:2"`
	IssueDate               time.Time           `gorm:"not null"`
	DueDate                 time.Time           `gorm:"not null;index"`
	Currency                string              `gorm:"size:3;not null"`
	TaxRate                 decimal.Decimal     `gorm:"type:numeric(5,2);not null"`
	Discount                decimal.Decimal     `gorm:"type:numeric(20,8);not null"`
	Subtotal                decimal.Decimal     `gorm:"type:numeric(20,8);not null"`
	TaxAmount               decimal.Decimal     `gorm:"type:numeric(20,8);not null"`
	Total                   decimal.Decimal     `gorm:"type:numeric(20,8);not null"`
	Status                  types.InvoiceStatus `gorm:"size:20;not null;index"`
	Notes                   string              `gorm:"type:text"`
	StripePaymentIntentID   *string             `gorm:"size:255;index"`
	StripeCheckoutSessionID *string             `gorm:"size:255"`
	CreatedAt               time.Time
	UpdatedAt               time.Time

	LineItems []LineItemModel `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE"`
	Payments  []PaymentModel  `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE"`
	Customer  *CustomerModel  `gorm:"foreignKey:CustomerID;references:ID;constraint:OnDelete:RESTRICT"`
}

func (InvoiceModel) TableName() string { return types.TableNameInvoices.String() }

type LineItemModel struct {
	ID          string          `gorm:"primaryKey;size:50"`
	InvoiceID   string          `gorm:"size:50;not null;index"`
	Description string          `gorm:"type:text;not null"`
	Quantity    decimal.Decimal `gorm:"type:numeric(20,8);not null"`
	UnitPrice   decimal.Decimal `gorm:"type:numeric(20,8);not null"`
	Amount      decimal.Decimal `gorm:"type:numeric(20,8);not null"`
	Position    int             `gorm:"not null"`
	CreatedAt   time.Time
}

func (LineItemModel) TableName() string { return types.TableNameInvoiceLineItems.String() }

type PaymentModel struct {
	ID                    string              `gorm:"primaryKey;size:50"`
	InvoiceID             string              `gorm:"size:50;not null;index"`
	StripePaymentIntentID string              `gorm:"size:255;index"`
	StripeChargeID        string              `gorm:"size:255"`
	StripeEventID         string              `gorm:"size:255;index"`
	Amount                decimal.Decimal     `gorm:"type:numeric(20,8);not null"`
	Currency              string              `gorm:"size:3;not null"`
	Status                types.PaymentStatus `gorm:"size:20;not null"`
	PaymentMethod         string              `gorm:"size:50"`
	PaidAt                *time.Time
	CreatedAt             time.Time
}

func (PaymentModel) TableName() string { return types.TableNamePayments.String() }

// InvoiceSequenceModel holds the last issued invoice number per tenant and month
type InvoiceSequenceModel struct {
	UserID    string `gorm:"primaryKey;size:50"`
	YearMonth string `gorm:"primaryKey;size:6"`
	LastValue int64  `gorm:"not null"`
	UpdatedAt time.Time
}

func (InvoiceSequenceModel) TableName() string { return types.TableNameInvoiceSequences.String() }

// Migrate creates or updates every table
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&CustomerModel{},
		&InvoiceModel{},
		&LineItemModel{},
		&PaymentModel{},
		&InvoiceSequenceModel{},
	)
}

func customerToModel(c *customer.Customer) *CustomerModel {
	return &CustomerModel{
		ID:        c.ID,
		UserID:    c.UserID,
		Name:      c.Name,
		Email:     c.Email,
		Company:   c.Company,
		Address:   c.Address,
		Phone:     c.Phone,
		CreatedAt: c.CreatedAt.UTC(),
		UpdatedAt: c.UpdatedAt.UTC(),
	}
}

func customerFromModel(m *CustomerModel) *customer.Customer {
	if m == nil {
		return nil
	}
	return &customer.Customer{
		ID:        m.ID,
		UserID:    m.UserID,
		Name:      m.Name,
		Email:     m.Email,
		Company:   m.Company,
		Address:   m.Address,
		Phone:     m.Phone,
		CreatedAt: m.CreatedAt.UTC(),
		UpdatedAt: m.UpdatedAt.UTC(),
	}
}

func lineItemToModel(i *invoice.LineItem) LineItemModel {
	return LineItemModel{
		ID:          i.ID,
		InvoiceID:   i.InvoiceID,
		Description: i.Description,
		Quantity:    i.Quantity,
		UnitPrice:   i.UnitPrice,
		Amount:      i.Amount,
		Position:    i.Position,
		CreatedAt:   i.CreatedAt.UTC(),
	}
}

func lineItemFromModel(m LineItemModel) *invoice.LineItem {
	return &invoice.LineItem{
		ID:          m.ID,
		InvoiceID:   m.InvoiceID,
		Description: m.Description,
		Quantity:    m.Quantity,
		UnitPrice:   m.UnitPrice,
		Amount:      m.Amount,
		Position:    m.Position,
		CreatedAt:   m.CreatedAt.UTC(),
	}
}

func invoiceToModel(inv *invoice.Invoice) *InvoiceModel {
	return &InvoiceModel{
		ID:                      inv.ID,
		UserID:                  inv.UserID,
		CustomerID:              inv.CustomerID,
		InvoiceNumber:           inv.InvoiceNumber,
		IssueDate:               inv.IssueDate.UTC(),
		DueDate:                 inv.DueDate.UTC(),
		Currency:                inv.Currency,
		TaxRate:                 inv.TaxRate,
		Discount:                inv.Discount,
		Subtotal:                inv.Subtotal,
		TaxAmount:               inv.TaxAmount,
		Total:                   inv.Total,
		Status:                  inv.Status,
		Notes:                   inv.Notes,
		StripePaymentIntentID:   inv.StripePaymentIntentID,
		StripeCheckoutSessionID: inv.StripeCheckoutSessionID,
		CreatedAt:               inv.CreatedAt.UTC(),
		UpdatedAt:               inv.UpdatedAt.UTC(),
		LineItems: lo.Map(inv.LineItems, func(i *invoice.LineItem, _ int) LineItemModel {
			return lineItemToModel(i)
		}),
	}
}

func invoiceFromModel(m *InvoiceModel) *invoice.Invoice {
	return &invoice.Invoice{
		ID:                      m.ID,
		UserID:                  m.UserID,
		CustomerID:              m.CustomerID,
		InvoiceNumber:           m.InvoiceNumber,
		IssueDate:               m.IssueDate.UTC(),
		DueDate:                 m.DueDate.UTC(),
		Currency:                m.Currency,
		TaxRate:                 m.TaxRate,
		Discount:                m.Discount,
		Subtotal:                m.Subtotal,
		TaxAmount:               m.TaxAmount,
		Total:                   m.Total,
		Status:                  m.Status,
		Notes:                   m.Notes,
		StripePaymentIntentID:   m.StripePaymentIntentID,
		StripeCheckoutSessionID: m.StripeCheckoutSessionID,
		CreatedAt:               m.CreatedAt.UTC(),
		UpdatedAt:               m.UpdatedAt.UTC(),
		LineItems:               lo.Map(m.LineItems, func(i LineItemModel, _ int) *invoice.LineItem { return lineItemFromModel(i) }),
		Customer:                customerFromModel(m.Customer),
	}
}

func paymentToModel(p *payment.Payment) *PaymentModel {
	var paidAt *time.Time
	if p.PaidAt != nil {
		paidAt = lo.ToPtr(p.PaidAt.UTC())
	}
	return &PaymentModel{
		ID:                    p.ID,
		InvoiceID:             p.InvoiceID,
		StripePaymentIntentID: p.StripePaymentIntentID,
		StripeChargeID:        p.StripeChargeID,
		StripeEventID:         p.StripeEventID,
		Amount:                p.Amount,
		Currency:              p.Currency,
		Status:                p.Status,
		PaymentMethod:         p.PaymentMethod,
		PaidAt:                paidAt,
		CreatedAt:             p.CreatedAt.UTC(),
	}
}

func paymentFromModel(m *PaymentModel) *payment.Payment {
	var paidAt *time.Time
	if m.PaidAt != nil {
		paidAt = lo.ToPtr(m.PaidAt.UTC())
	}
	return &payment.Payment{
		ID:                    m.ID,
		InvoiceID:             m.InvoiceID,
		StripePaymentIntentID: m.StripePaymentIntentID,
		StripeChargeID:        m.StripeChargeID,
		StripeEventID:         m.StripeEventID,
		Amount:                m.Amount,
		Currency:              m.Currency,
		Status:                m.Status,
		PaymentMethod:         m.PaymentMethod,
		PaidAt:                paidAt,
		CreatedAt:             m.CreatedAt.UTC(),
	}
}
