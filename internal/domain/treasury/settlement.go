package treasury

import (
	"fmt"
	"time"

	"github.com/almi/backend/internal/domain/accounting"
	"github.com/almi/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SettlementStatus represents the status of a settlement review workflow
type SettlementStatus string

const (
	SettlementStatusDraft     SettlementStatus = "DRAFT"
	SettlementStatusSubmitted SettlementStatus = "SUBMITTED"
	SettlementStatusApproved  SettlementStatus = "APPROVED"
	SettlementStatusRejected  SettlementStatus = "REJECTED"
)

// IsValid checks if the status is a valid SettlementStatus
func (s SettlementStatus) IsValid() bool {
	switch s {
	case SettlementStatusDraft, SettlementStatusSubmitted, SettlementStatusApproved, SettlementStatusRejected:
		return true
	}
	return false
}

// String returns the string representation of SettlementStatus
func (s SettlementStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status
func (s SettlementStatus) CanTransitionTo(target SettlementStatus) bool {
	switch s {
	case SettlementStatusDraft:
		return target == SettlementStatusSubmitted
	case SettlementStatusSubmitted:
		return target == SettlementStatusApproved || target == SettlementStatusRejected || target == SettlementStatusDraft
	case SettlementStatusApproved:
		return false // Terminal state
	case SettlementStatusRejected:
		return target == SettlementStatusDraft
	}
	return false
}

// Actor identifies who performs a workflow transition
type Actor struct {
	ID       uuid.UUID
	Name     string
	Reviewer bool
}

// Validate checks the actor identity is usable
func (a Actor) Validate() error {
	if a.ID == uuid.Nil {
		return shared.NewDomainError("INVALID_ACTOR", "Actor ID cannot be empty")
	}
	return nil
}

// SettlementLine is one invoice's reconciliation record within a settlement:
// the amount expected against the amount actually collected. Lines are a
// snapshot of the parent sheet's lines at settlement creation; they feed back
// onto the sheet only when the settlement is approved.
type SettlementLine struct {
	ID               uuid.UUID                `json:"id" gorm:"type:uuid;primaryKey"`
	SettlementID     uuid.UUID                `json:"settlement_id" gorm:"type:uuid;not null;index"`
	SheetLineID      uuid.UUID                `json:"sheet_line_id" gorm:"type:uuid;not null"`
	InvoiceID        uuid.UUID                `json:"invoice_id" gorm:"type:uuid;not null;index"`
	InvoiceNumber    string                   `json:"invoice_number" gorm:"type:varchar(64);not null"`
	PartnerName      string                   `json:"partner_name" gorm:"type:varchar(255)"`
	AmountInvoice    decimal.Decimal          `json:"amount_invoice" gorm:"type:decimal(18,2)"`
	AmountCollected  decimal.Decimal          `json:"amount_collected" gorm:"type:decimal(18,2)"`
	DeliveryStatus   DeliveryStatus           `json:"delivery_status" gorm:"type:varchar(16);not null"`
	PaymentMethod    accounting.PaymentMethod `json:"payment_method" gorm:"type:varchar(16)"`
	PaymentReference string                   `json:"payment_reference" gorm:"type:varchar(128)"`
	Notes            string                   `json:"notes" gorm:"type:text"`
	CreatedAt        time.Time                `json:"created_at"`
	UpdatedAt        time.Time                `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (SettlementLine) TableName() string {
	return "treasury_settlement_lines"
}

// RecordResult records the reconciliation result for this invoice.
// Invariants are checked before any field is written; on failure the line
// keeps its prior values.
func (l *SettlementLine) RecordResult(amount decimal.Decimal, status DeliveryStatus, method accounting.PaymentMethod, reference string) error {
	if err := validateCollection(l.AmountInvoice, amount, status); err != nil {
		return err
	}
	if method != "" && !method.IsValid() {
		return shared.NewDomainError("INVALID_PAYMENT_METHOD", "Payment method is not valid")
	}

	l.AmountCollected = amount
	l.DeliveryStatus = status
	l.PaymentMethod = method
	l.PaymentReference = reference
	l.UpdatedAt = time.Now()

	return nil
}

// Difference returns expected minus collected for this line
func (l *SettlementLine) Difference() decimal.Decimal {
	return l.AmountInvoice.Sub(l.AmountCollected)
}

// UnderCollectionFlagged reports the soft-warning case: delivered but
// nothing collected. Permitted, but worth surfacing.
func (l *SettlementLine) UnderCollectionFlagged() bool {
	return l.DeliveryStatus == DeliveryStatusDelivered && l.AmountCollected.IsZero()
}

// Settlement is the approval workflow wrapping a settlement sheet: the driver
// submits the collected amounts, a reviewer approves (writing the results
// back onto the sheet) or rejects with a reason.
type Settlement struct {
	shared.TenantAggregateRoot
	SettlementNumber  string           `json:"settlement_number" gorm:"type:varchar(64);not null;uniqueIndex:idx_settlement_tenant_number,composite:tenant_id"`
	SheetID           uuid.UUID        `json:"sheet_id" gorm:"type:uuid;not null;index"`
	SheetNumber       string           `json:"sheet_number" gorm:"type:varchar(64)"`
	RouteNumber       string           `json:"route_number" gorm:"type:varchar(64)"`
	DriverName        string           `json:"driver_name" gorm:"type:varchar(255)"`
	Status            SettlementStatus `json:"status" gorm:"type:varchar(16);not null;index"`
	Lines             []SettlementLine `json:"lines" gorm:"foreignKey:SettlementID;constraint:OnDelete:CASCADE"`
	TotalToCollect    decimal.Decimal  `json:"total_to_collect" gorm:"type:decimal(18,2)"`
	TotalCollected    decimal.Decimal  `json:"total_collected" gorm:"type:decimal(18,2)"`
	Difference        decimal.Decimal  `json:"difference" gorm:"type:decimal(18,2)"`
	CollectionRate    decimal.Decimal  `json:"collection_rate" gorm:"type:decimal(5,2)"`
	DeliveredCount    int              `json:"delivered_count" gorm:"not null;default:0"`
	NotDeliveredCount int              `json:"not_delivered_count" gorm:"not null;default:0"`
	DeliveryRate      decimal.Decimal  `json:"delivery_rate" gorm:"type:decimal(5,2)"`
	Notes             string           `json:"notes" gorm:"type:text"`
	SubmittedAt       *time.Time       `json:"submitted_at"`
	SubmittedByID     *uuid.UUID       `json:"submitted_by_id" gorm:"type:uuid"`
	SubmittedByName   string           `json:"submitted_by_name" gorm:"type:varchar(255)"`
	ReviewedAt        *time.Time       `json:"reviewed_at"`
	ReviewedByID      *uuid.UUID       `json:"reviewed_by_id" gorm:"type:uuid"`
	ReviewedByName    string           `json:"reviewed_by_name" gorm:"type:varchar(255)"`
	RejectionReason   string           `json:"rejection_reason" gorm:"type:text"`
}

// TableName specifies the table name for GORM
func (Settlement) TableName() string {
	return "treasury_settlements"
}

// NewSettlementFromSheet creates a settlement by snapshotting the sheet's
// lines. The sheet must be in route or already settled; mutations to the
// settlement's lines do not touch the sheet until approval writes them back.
func NewSettlementFromSheet(tenantID uuid.UUID, settlementNumber string, sheet *SettlementSheet) (*Settlement, error) {
	if settlementNumber == "" {
		return nil, shared.NewDomainError("INVALID_SETTLEMENT_NUMBER", "Settlement number cannot be empty")
	}
	if sheet == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Settlement requires a sheet")
	}
	if !sheet.CanCreateSettlement() {
		return nil, shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot create a settlement from a sheet in %s status", sheet.Status))
	}
	if len(sheet.Lines) == 0 {
		return nil, shared.NewDomainError("NO_LINES", "Cannot create a settlement from a sheet without invoices")
	}

	settlement := &Settlement{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		SettlementNumber:    settlementNumber,
		SheetID:             sheet.ID,
		SheetNumber:         sheet.SheetNumber,
		RouteNumber:         sheet.RouteNumber,
		DriverName:          sheet.DriverName,
		Status:              SettlementStatusDraft,
		Lines:               make([]SettlementLine, 0, len(sheet.Lines)),
	}

	now := time.Now()
	for _, sl := range sheet.Lines {
		settlement.Lines = append(settlement.Lines, SettlementLine{
			ID:               uuid.New(),
			SettlementID:     settlement.ID,
			SheetLineID:      sl.ID,
			InvoiceID:        sl.InvoiceID,
			InvoiceNumber:    sl.InvoiceNumber,
			PartnerName:      sl.PartnerName,
			AmountInvoice:    sl.AmountTotal,
			AmountCollected:  sl.AmountCollected,
			DeliveryStatus:   sl.DeliveryStatus,
			PaymentMethod:    sl.PaymentMethod,
			PaymentReference: sl.PaymentReference,
			CreatedAt:        now,
			UpdatedAt:        now,
		})
	}

	settlement.recalculateTotals()
	settlement.AddDomainEvent(NewSettlementCreatedEvent(settlement))

	return settlement, nil
}

// RecordLineResult records the reconciliation result for one invoice.
// Only allowed in DRAFT status.
func (s *Settlement) RecordLineResult(lineID uuid.UUID, amount decimal.Decimal, status DeliveryStatus, method accounting.PaymentMethod, reference string) error {
	if s.Status != SettlementStatusDraft {
		return shared.NewDomainError("INVALID_STATE", "Cannot modify lines of a non-draft settlement")
	}

	for idx := range s.Lines {
		if s.Lines[idx].ID == lineID {
			if err := s.Lines[idx].RecordResult(amount, status, method, reference); err != nil {
				return err
			}
			s.recalculateTotals()
			s.UpdatedAt = time.Now()
			return nil
		}
	}

	return shared.NewDomainError("NOT_FOUND", "Settlement line not found")
}

// Submit submits the settlement for review.
// Requires at least one line; records the submitter and timestamp.
func (s *Settlement) Submit(actor Actor) error {
	if !s.Status.CanTransitionTo(SettlementStatusSubmitted) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot submit settlement in %s status", s.Status))
	}
	if len(s.Lines) == 0 {
		return shared.NewDomainError("NO_LINES", "Cannot submit a settlement without lines")
	}
	if err := actor.Validate(); err != nil {
		return err
	}

	now := time.Now()
	s.Status = SettlementStatusSubmitted
	s.SubmittedAt = &now
	s.SubmittedByID = &actor.ID
	s.SubmittedByName = actor.Name
	s.UpdatedAt = now

	s.AddDomainEvent(NewSettlementSubmittedEvent(s))

	return nil
}

// Approve approves a submitted settlement, recording the reviewer.
// The caller propagates each line's result back onto the sheet; the
// transition itself touches no sheet state.
func (s *Settlement) Approve(actor Actor) error {
	if !s.Status.CanTransitionTo(SettlementStatusApproved) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot approve settlement in %s status", s.Status))
	}
	if err := actor.Validate(); err != nil {
		return err
	}

	now := time.Now()
	s.Status = SettlementStatusApproved
	s.ReviewedAt = &now
	s.ReviewedByID = &actor.ID
	s.ReviewedByName = actor.Name
	s.UpdatedAt = now

	s.AddDomainEvent(NewSettlementApprovedEvent(s))

	return nil
}

// Reject rejects a submitted settlement. A non-empty reason is mandatory;
// the driver can rework the lines after a reset to draft.
func (s *Settlement) Reject(actor Actor, reason string) error {
	if !s.Status.CanTransitionTo(SettlementStatusRejected) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot reject settlement in %s status", s.Status))
	}
	if reason == "" {
		return shared.NewDomainError("INVALID_REASON", "Rejection requires a reason")
	}
	if err := actor.Validate(); err != nil {
		return err
	}

	now := time.Now()
	s.Status = SettlementStatusRejected
	s.ReviewedAt = &now
	s.ReviewedByID = &actor.ID
	s.ReviewedByName = actor.Name
	s.RejectionReason = reason
	s.UpdatedAt = now

	s.AddDomainEvent(NewSettlementRejectedEvent(s))

	return nil
}

// ResetToDraft returns the settlement to DRAFT, clearing review state.
// Pulling back a submitted settlement is reserved for reviewers; a rejected
// settlement can be reset by anyone.
func (s *Settlement) ResetToDraft(actor Actor) error {
	if !s.Status.CanTransitionTo(SettlementStatusDraft) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot reset settlement in %s status", s.Status))
	}
	if s.Status == SettlementStatusSubmitted && !actor.Reviewer {
		return shared.NewDomainError("FORBIDDEN", "Only a reviewer can pull back a submitted settlement")
	}
	if err := actor.Validate(); err != nil {
		return err
	}

	s.Status = SettlementStatusDraft
	s.SubmittedAt = nil
	s.SubmittedByID = nil
	s.SubmittedByName = ""
	s.ReviewedAt = nil
	s.ReviewedByID = nil
	s.ReviewedByName = ""
	s.RejectionReason = ""
	s.UpdatedAt = time.Now()

	return nil
}

// FindLine returns the line with the given ID, if present
func (s *Settlement) FindLine(lineID uuid.UUID) *SettlementLine {
	for idx := range s.Lines {
		if s.Lines[idx].ID == lineID {
			return &s.Lines[idx]
		}
	}
	return nil
}

// UnderCollectedLines returns the lines flagged delivered-with-zero-collected
func (s *Settlement) UnderCollectedLines() []SettlementLine {
	var flagged []SettlementLine
	for _, line := range s.Lines {
		if line.UnderCollectionFlagged() {
			flagged = append(flagged, line)
		}
	}
	return flagged
}

// recalculateTotals folds the line collection into the settlement totals.
// Rates are zero when the denominator is zero, never an error.
func (s *Settlement) recalculateTotals() {
	toCollect := decimal.Zero
	collected := decimal.Zero
	delivered, notDelivered := 0, 0

	for _, line := range s.Lines {
		toCollect = toCollect.Add(line.AmountInvoice)
		collected = collected.Add(line.AmountCollected)
		switch line.DeliveryStatus {
		case DeliveryStatusDelivered:
			delivered++
		case DeliveryStatusNotDelivered:
			notDelivered++
		}
	}

	s.TotalToCollect = toCollect
	s.TotalCollected = collected
	s.Difference = toCollect.Sub(collected)

	if toCollect.IsZero() {
		s.CollectionRate = decimal.Zero
	} else {
		s.CollectionRate = collected.Div(toCollect).Mul(decimal.NewFromInt(100)).Round(2)
	}

	s.DeliveredCount = delivered
	s.NotDeliveredCount = notDelivered
	if len(s.Lines) == 0 {
		s.DeliveryRate = decimal.Zero
	} else {
		s.DeliveryRate = decimal.NewFromInt(int64(delivered)).
			Div(decimal.NewFromInt(int64(len(s.Lines)))).
			Mul(decimal.NewFromInt(100)).Round(2)
	}
}

// RecalculateTotals re-runs the totals fold. Needed after loading the
// aggregate from persistence.
func (s *Settlement) RecalculateTotals() {
	s.recalculateTotals()
}
