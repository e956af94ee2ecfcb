package accounting

import (
	"context"
	"time"

	"github.com/almi/backend/internal/domain/shared"
	"github.com/almi/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// PaymentMethod identifies how a collection was paid
type PaymentMethod string

const (
	PaymentMethodCash     PaymentMethod = "cash"
	PaymentMethodTransfer PaymentMethod = "transfer"
	PaymentMethodDeposit  PaymentMethod = "deposit"
	PaymentMethodCheck    PaymentMethod = "check"
	PaymentMethodCard     PaymentMethod = "card"
)

// IsValid checks if the payment method is valid
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodTransfer, PaymentMethodDeposit, PaymentMethodCheck, PaymentMethodCard:
		return true
	}
	return false
}

// String returns the string representation
func (m PaymentMethod) String() string {
	return string(m)
}

// PaymentStatus is the lifecycle status of a payment in accounting
type PaymentStatus string

const (
	PaymentStatusDraft     PaymentStatus = "draft"
	PaymentStatusPosted    PaymentStatus = "posted"
	PaymentStatusCancelled PaymentStatus = "cancelled"
)

// Payment is the collection domains' view of a payment registered against
// an invoice in the accounting system.
type Payment struct {
	ID        uuid.UUID         `json:"id"`
	TenantID  uuid.UUID         `json:"tenant_id"`
	InvoiceID uuid.UUID         `json:"invoice_id"`
	Amount    valueobject.Money `json:"amount"`
	Method    PaymentMethod     `json:"method"`
	Status    PaymentStatus     `json:"status"`
	Reference string            `json:"reference"`
	PaidAt    time.Time         `json:"paid_at"`
}

// CreatePaymentRequest carries what accounting needs to register a payment
type CreatePaymentRequest struct {
	TenantID  uuid.UUID
	InvoiceID uuid.UUID
	Amount    valueobject.Money
	Method    PaymentMethod
	Reference string
	PaidAt    time.Time
}

// Validate checks the request before it crosses the boundary
func (r CreatePaymentRequest) Validate() error {
	if r.InvoiceID == uuid.Nil {
		return shared.NewDomainError("MISSING_INVOICE", "Payment must reference an invoice")
	}
	if !r.Amount.IsPositive() {
		return shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
	}
	if !r.Method.IsValid() {
		return shared.NewDomainError("INVALID_PAYMENT_METHOD", "Payment method is not valid")
	}
	return nil
}

// Service is the port to the external accounting system. Implementations
// translate errors into ErrAccountingUnavailable when the collaborator
// cannot be reached, so callers can distinguish outages from rejections.
type Service interface {
	// GetInvoice fetches the current snapshot of an invoice
	GetInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) (*InvoiceRef, error)
	// CreatePayment registers a draft payment against an invoice
	CreatePayment(ctx context.Context, req CreatePaymentRequest) (*Payment, error)
	// PostPayment posts a draft payment, reducing the invoice residual
	PostPayment(ctx context.Context, tenantID, paymentID uuid.UUID) (*Payment, error)
	// CancelPayment cancels a payment, restoring the invoice residual
	CancelPayment(ctx context.Context, tenantID, paymentID uuid.UUID) error
}

// ErrAccountingUnavailable signals the accounting collaborator failed for
// reasons unrelated to the request itself.
var ErrAccountingUnavailable = shared.NewDomainError("ACCOUNTING_UNAVAILABLE", "Accounting system is unavailable")
