// Package accounting is the local view the collection domains keep of the
// external accounting system. Invoices and payments are owned elsewhere;
// this package exposes read models and a service port, shielding treasury
// and dispatch from the accounting system's internal representation.
package accounting

import (
	"time"

	"github.com/almi/backend/internal/domain/shared"
	"github.com/almi/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// PaymentState reflects how much of an invoice has been paid
type PaymentState string

const (
	PaymentStateNotPaid PaymentState = "not_paid"
	PaymentStatePartial PaymentState = "partial"
	PaymentStatePaid    PaymentState = "paid"
)

// IsValid checks if the payment state is valid
func (s PaymentState) IsValid() bool {
	switch s {
	case PaymentStateNotPaid, PaymentStatePartial, PaymentStatePaid:
		return true
	}
	return false
}

// String returns the string representation
func (s PaymentState) String() string {
	return string(s)
}

// InvoiceStatus is the posting status of an invoice in accounting
type InvoiceStatus string

const (
	InvoiceStatusPosted    InvoiceStatus = "posted"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

// String returns the string representation
func (s InvoiceStatus) String() string {
	return string(s)
}

// CashSaleTermDays is the payment-term threshold that classifies an
// invoice as a cash sale. Terms at or below this many days are collected
// on delivery; longer terms are credit sales.
const CashSaleTermDays = 0

// InvoiceRef is a denormalized snapshot of an accounting invoice as seen
// by the collection domains. It is read-only here; residual and payment
// state are maintained by the accounting system.
type InvoiceRef struct {
	ID              uuid.UUID          `json:"id" gorm:"type:uuid;primaryKey"`
	TenantID        uuid.UUID          `json:"tenant_id" gorm:"type:uuid;not null;index"`
	Number          string             `json:"number" gorm:"type:varchar(64);not null"`
	PartnerID       uuid.UUID          `json:"partner_id" gorm:"type:uuid;not null;index"`
	PartnerName     string             `json:"partner_name" gorm:"type:varchar(255)"`
	AmountTotal     valueobject.Money  `json:"amount_total" gorm:"type:decimal(18,2)"`
	AmountResidual  valueobject.Money  `json:"amount_residual" gorm:"type:decimal(18,2)"`
	PaymentState    PaymentState       `json:"payment_state" gorm:"type:varchar(16);not null"`
	Status          InvoiceStatus      `json:"status" gorm:"type:varchar(16);not null"`
	PaymentTermDays int                `json:"payment_term_days" gorm:"not null;default:0"`
	InvoiceDate     time.Time          `json:"invoice_date"`
	SyncedAt        time.Time          `json:"synced_at"`
}

// TableName specifies the table name for GORM
func (InvoiceRef) TableName() string {
	return "accounting_invoice_refs"
}

// IsCashSale reports whether the invoice's payment term classifies it as
// a cash sale (collected on delivery) rather than a credit sale.
func (i *InvoiceRef) IsCashSale() bool {
	return i.PaymentTermDays <= CashSaleTermDays
}

// IsPosted reports whether the invoice is posted in accounting
func (i *InvoiceRef) IsPosted() bool {
	return i.Status == InvoiceStatusPosted
}

// IsFullyPaid reports whether nothing remains to collect on the invoice
func (i *InvoiceRef) IsFullyPaid() bool {
	return i.PaymentState == PaymentStatePaid || i.AmountResidual.IsZero()
}

// AmountPaid returns the portion of the total already settled in accounting
func (i *InvoiceRef) AmountPaid() valueobject.Money {
	paid, err := i.AmountTotal.Subtract(i.AmountResidual)
	if err != nil {
		return valueobject.Zero(i.AmountTotal.Currency())
	}
	return paid
}

// Validate checks the snapshot is usable by the collection domains
func (i *InvoiceRef) Validate() error {
	if i.ID == uuid.Nil {
		return shared.NewDomainError("INVALID_INVOICE", "Invoice ID cannot be empty")
	}
	if i.Number == "" {
		return shared.NewDomainError("INVALID_INVOICE", "Invoice number cannot be empty")
	}
	if !i.PaymentState.IsValid() {
		return shared.NewDomainError("INVALID_INVOICE", "Invoice payment state is not valid")
	}
	if i.AmountResidual.IsNegative() {
		return shared.NewDomainError("INVALID_INVOICE", "Invoice residual cannot be negative")
	}
	if gt, _ := i.AmountResidual.GreaterThan(i.AmountTotal); gt {
		return shared.NewDomainError("INVALID_INVOICE", "Invoice residual cannot exceed the total")
	}
	return nil
}
