package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/almi/backend/internal/domain/accounting"
	"github.com/almi/backend/internal/domain/shared"
	"github.com/almi/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PaymentRecord is the persistence model for payments registered against
// invoices. Residual and payment state on the invoice ref are maintained
// here when a payment posts or cancels.
type PaymentRecord struct {
	ID        uuid.UUID                `gorm:"type:uuid;primaryKey"`
	TenantID  uuid.UUID                `gorm:"type:uuid;not null;index"`
	InvoiceID uuid.UUID                `gorm:"type:uuid;not null;index"`
	Amount    valueobject.Money        `gorm:"type:decimal(18,2)"`
	Method    accounting.PaymentMethod `gorm:"type:varchar(16);not null"`
	Status    accounting.PaymentStatus `gorm:"type:varchar(16);not null;index"`
	Reference string                   `gorm:"type:varchar(128)"`
	PaidAt    time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName specifies the table name for GORM
func (PaymentRecord) TableName() string {
	return "accounting_payments"
}

func (p *PaymentRecord) toDomain() *accounting.Payment {
	return &accounting.Payment{
		ID:        p.ID,
		TenantID:  p.TenantID,
		InvoiceID: p.InvoiceID,
		Amount:    p.Amount,
		Method:    p.Method,
		Status:    p.Status,
		Reference: p.Reference,
		PaidAt:    p.PaidAt,
	}
}

// GormAccountingService implements accounting.Service against the local
// mirror tables kept in sync with the accounting system
type GormAccountingService struct {
	db *gorm.DB
}

// NewGormAccountingService creates a new GormAccountingService
func NewGormAccountingService(db *gorm.DB) *GormAccountingService {
	return &GormAccountingService{db: db}
}

// GetInvoice loads an invoice snapshot for a tenant
func (s *GormAccountingService) GetInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) (*accounting.InvoiceRef, error) {
	var invoice accounting.InvoiceRef
	if err := dbFromContext(ctx, s.db).
		Where("tenant_id = ? AND id = ?", tenantID, invoiceID).
		First(&invoice).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", accounting.ErrAccountingUnavailable, err)
	}
	return &invoice, nil
}

// CreatePayment registers a draft payment against an invoice
func (s *GormAccountingService) CreatePayment(ctx context.Context, req accounting.CreatePaymentRequest) (*accounting.Payment, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	invoice, err := s.GetInvoice(ctx, req.TenantID, req.InvoiceID)
	if err != nil {
		return nil, err
	}
	if !invoice.IsPosted() {
		return nil, shared.NewDomainError("INVOICE_NOT_POSTED", "Cannot register a payment against a non-posted invoice")
	}

	paidAt := req.PaidAt
	if paidAt.IsZero() {
		paidAt = time.Now()
	}
	record := PaymentRecord{
		ID:        uuid.New(),
		TenantID:  req.TenantID,
		InvoiceID: req.InvoiceID,
		Amount:    req.Amount,
		Method:    req.Method,
		Status:    accounting.PaymentStatusDraft,
		Reference: req.Reference,
		PaidAt:    paidAt,
	}
	if err := dbFromContext(ctx, s.db).Create(&record).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", accounting.ErrAccountingUnavailable, err)
	}
	return record.toDomain(), nil
}

// PostPayment posts a draft payment, reducing the invoice residual
func (s *GormAccountingService) PostPayment(ctx context.Context, tenantID, paymentID uuid.UUID) (*accounting.Payment, error) {
	var record PaymentRecord

	err := dbFromContext(ctx, s.db).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("tenant_id = ? AND id = ?", tenantID, paymentID).
			First(&record).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return shared.ErrNotFound
			}
			return err
		}
		if record.Status != accounting.PaymentStatusDraft {
			return shared.NewDomainError("INVALID_STATE",
				fmt.Sprintf("Cannot post a payment in %s status", record.Status))
		}

		var invoice accounting.InvoiceRef
		if err := tx.Where("tenant_id = ? AND id = ?", tenantID, record.InvoiceID).
			First(&invoice).Error; err != nil {
			return err
		}

		residual := invoice.AmountResidual.Amount().Sub(record.Amount.Amount())
		if residual.IsNegative() {
			return shared.NewDomainError("EXCEEDS_RESIDUAL", "Payment exceeds the invoice residual")
		}
		state := accounting.PaymentStatePartial
		if residual.IsZero() {
			state = accounting.PaymentStatePaid
		}

		if err := tx.Model(&accounting.InvoiceRef{}).
			Where("tenant_id = ? AND id = ?", tenantID, invoice.ID).
			Updates(map[string]any{
				"amount_residual": residual,
				"payment_state":   state,
			}).Error; err != nil {
			return err
		}

		record.Status = accounting.PaymentStatusPosted
		record.UpdatedAt = time.Now()
		return tx.Model(&PaymentRecord{}).
			Where("id = ?", record.ID).
			Updates(map[string]any{
				"status":     record.Status,
				"updated_at": record.UpdatedAt,
			}).Error
	})
	if err != nil {
		return nil, err
	}
	return record.toDomain(), nil
}

// CancelPayment cancels a payment, restoring the invoice residual when the
// payment had been posted
func (s *GormAccountingService) CancelPayment(ctx context.Context, tenantID, paymentID uuid.UUID) error {
	return dbFromContext(ctx, s.db).Transaction(func(tx *gorm.DB) error {
		var record PaymentRecord
		if err := tx.Where("tenant_id = ? AND id = ?", tenantID, paymentID).
			First(&record).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return shared.ErrNotFound
			}
			return err
		}
		if record.Status == accounting.PaymentStatusCancelled {
			return nil
		}

		if record.Status == accounting.PaymentStatusPosted {
			var invoice accounting.InvoiceRef
			if err := tx.Where("tenant_id = ? AND id = ?", tenantID, record.InvoiceID).
				First(&invoice).Error; err != nil {
				return err
			}

			residual := invoice.AmountResidual.Amount().Add(record.Amount.Amount())
			state := accounting.PaymentStatePartial
			if residual.GreaterThanOrEqual(invoice.AmountTotal.Amount()) {
				residual = invoice.AmountTotal.Amount()
				state = accounting.PaymentStateNotPaid
			}

			if err := tx.Model(&accounting.InvoiceRef{}).
				Where("tenant_id = ? AND id = ?", tenantID, invoice.ID).
				Updates(map[string]any{
					"amount_residual": residual,
					"payment_state":   state,
				}).Error; err != nil {
				return err
			}
		}

		return tx.Model(&PaymentRecord{}).
			Where("id = ?", record.ID).
			Updates(map[string]any{
				"status":     accounting.PaymentStatusCancelled,
				"updated_at": time.Now(),
			}).Error
	})
}
