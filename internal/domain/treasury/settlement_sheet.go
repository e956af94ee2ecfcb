// Package treasury implements the settlement reconciliation core: settlement
// sheets grouping invoices for a collection cycle, and settlements wrapping
// the review workflow for the amounts a driver collected on a route.
package treasury

import (
	"fmt"
	"time"

	"github.com/almi/backend/internal/domain/accounting"
	"github.com/almi/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SheetStatus represents the status of a settlement sheet
type SheetStatus string

const (
	SheetStatusDraft     SheetStatus = "DRAFT"
	SheetStatusConfirmed SheetStatus = "CONFIRMED"
	SheetStatusInRoute   SheetStatus = "IN_ROUTE"
	SheetStatusSettled   SheetStatus = "SETTLED"
	SheetStatusClosed    SheetStatus = "CLOSED"
	SheetStatusCancelled SheetStatus = "CANCELLED"
)

// IsValid checks if the status is a valid SheetStatus
func (s SheetStatus) IsValid() bool {
	switch s {
	case SheetStatusDraft, SheetStatusConfirmed, SheetStatusInRoute,
		SheetStatusSettled, SheetStatusClosed, SheetStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of SheetStatus
func (s SheetStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status
func (s SheetStatus) CanTransitionTo(target SheetStatus) bool {
	switch s {
	case SheetStatusDraft:
		return target == SheetStatusConfirmed || target == SheetStatusCancelled
	case SheetStatusConfirmed:
		return target == SheetStatusInRoute || target == SheetStatusCancelled || target == SheetStatusDraft
	case SheetStatusInRoute:
		return target == SheetStatusSettled || target == SheetStatusCancelled
	case SheetStatusSettled:
		return target == SheetStatusClosed || target == SheetStatusCancelled
	case SheetStatusClosed:
		return false // Terminal state
	case SheetStatusCancelled:
		return target == SheetStatusDraft
	}
	return false
}

// IsActive reports whether the sheet still holds its invoices for the cycle.
// An invoice may appear in at most one active sheet at a time.
func (s SheetStatus) IsActive() bool {
	return s != SheetStatusClosed && s != SheetStatusCancelled
}

// DeliveryStatus represents the delivery outcome for one invoice
type DeliveryStatus string

const (
	DeliveryStatusPending      DeliveryStatus = "PENDING"
	DeliveryStatusDelivered    DeliveryStatus = "DELIVERED"
	DeliveryStatusNotDelivered DeliveryStatus = "NOT_DELIVERED"
)

// IsValid checks if the status is a valid DeliveryStatus
func (s DeliveryStatus) IsValid() bool {
	switch s {
	case DeliveryStatusPending, DeliveryStatusDelivered, DeliveryStatusNotDelivered:
		return true
	}
	return false
}

// String returns the string representation of DeliveryStatus
func (s DeliveryStatus) String() string {
	return string(s)
}

// CollectionStatus is derived from the collected amount against the invoice total
type CollectionStatus string

const (
	CollectionStatusNotCollected CollectionStatus = "NOT_COLLECTED"
	CollectionStatusPartial      CollectionStatus = "PARTIAL"
	CollectionStatusCollected    CollectionStatus = "COLLECTED"
)

// String returns the string representation of CollectionStatus
func (s CollectionStatus) String() string {
	return string(s)
}

// SheetLine represents one invoice inside a settlement sheet. The invoice
// total is read-only; the collected amount, delivery status and payment
// method are what the driver reports for the cycle.
type SheetLine struct {
	ID               uuid.UUID                `json:"id" gorm:"type:uuid;primaryKey"`
	SheetID          uuid.UUID                `json:"sheet_id" gorm:"type:uuid;not null;index"`
	InvoiceID        uuid.UUID                `json:"invoice_id" gorm:"type:uuid;not null;index"`
	InvoiceNumber    string                   `json:"invoice_number" gorm:"type:varchar(64);not null"`
	PartnerName      string                   `json:"partner_name" gorm:"type:varchar(255)"`
	AmountTotal      decimal.Decimal          `json:"amount_total" gorm:"type:decimal(18,2)"`
	AmountCollected  decimal.Decimal          `json:"amount_collected" gorm:"type:decimal(18,2)"`
	DeliveryStatus   DeliveryStatus           `json:"delivery_status" gorm:"type:varchar(16);not null"`
	CollectionStatus CollectionStatus         `json:"collection_status" gorm:"type:varchar(16);not null"`
	PaymentMethod    accounting.PaymentMethod `json:"payment_method" gorm:"type:varchar(16)"`
	PaymentReference string                   `json:"payment_reference" gorm:"type:varchar(128)"`
	DeliveryNotes    string                   `json:"delivery_notes" gorm:"type:text"`
	CreatedAt        time.Time                `json:"created_at"`
	UpdatedAt        time.Time                `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (SheetLine) TableName() string {
	return "treasury_sheet_lines"
}

// NewSheetLine creates a sheet line from an invoice snapshot.
// The invoice must be posted with an outstanding balance.
func NewSheetLine(sheetID uuid.UUID, invoice *accounting.InvoiceRef) (*SheetLine, error) {
	if invoice == nil {
		return nil, shared.NewDomainError("MISSING_INVOICE", "Sheet line requires an invoice")
	}
	if err := invoice.Validate(); err != nil {
		return nil, err
	}
	if !invoice.IsPosted() {
		return nil, shared.NewDomainError("INVALID_INVOICE", "Only posted invoices can be collected")
	}
	if invoice.IsFullyPaid() {
		return nil, shared.NewDomainError("ALREADY_SETTLED", "Invoice has no outstanding balance")
	}

	now := time.Now()
	return &SheetLine{
		ID:               uuid.New(),
		SheetID:          sheetID,
		InvoiceID:        invoice.ID,
		InvoiceNumber:    invoice.Number,
		PartnerName:      invoice.PartnerName,
		AmountTotal:      invoice.AmountResidual.Amount(),
		AmountCollected:  decimal.Zero,
		DeliveryStatus:   DeliveryStatusPending,
		CollectionStatus: CollectionStatusNotCollected,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// validateCollection enforces the per-line invariants that guard every write
func validateCollection(amountTotal, amountCollected decimal.Decimal, status DeliveryStatus) error {
	if !status.IsValid() {
		return shared.NewDomainError("INVALID_STATE", "Delivery status is not valid")
	}
	if amountCollected.IsNegative() {
		return shared.NewDomainError("INVALID_AMOUNT", "Collected amount cannot be negative")
	}
	if status == DeliveryStatusNotDelivered && !amountCollected.IsZero() {
		return shared.NewDomainError("NOT_DELIVERED_WITH_COLLECTION", "A not-delivered invoice cannot have a collected amount")
	}
	if amountCollected.GreaterThan(amountTotal) {
		return shared.NewDomainError("EXCEEDS_INVOICE_TOTAL", "Collected amount cannot exceed the invoice total")
	}
	return nil
}

// RecordCollection records the driver's result for this invoice.
// Invariants are checked before any field is written; on failure the line
// keeps its prior values.
func (l *SheetLine) RecordCollection(amount decimal.Decimal, status DeliveryStatus, method accounting.PaymentMethod, reference string) error {
	if err := validateCollection(l.AmountTotal, amount, status); err != nil {
		return err
	}
	if method != "" && !method.IsValid() {
		return shared.NewDomainError("INVALID_PAYMENT_METHOD", "Payment method is not valid")
	}

	l.AmountCollected = amount
	l.DeliveryStatus = status
	l.PaymentMethod = method
	l.PaymentReference = reference
	l.refreshCollectionStatus()
	l.UpdatedAt = time.Now()

	return nil
}

// SetDeliveryNotes sets free-form delivery notes on the line
func (l *SheetLine) SetDeliveryNotes(notes string) {
	l.DeliveryNotes = notes
	l.UpdatedAt = time.Now()
}

// UnderCollectionFlagged reports the soft-warning case: the invoice was
// delivered but nothing was collected. Permitted, but worth surfacing.
func (l *SheetLine) UnderCollectionFlagged() bool {
	return l.DeliveryStatus == DeliveryStatusDelivered && l.AmountCollected.IsZero()
}

// AmountPending returns what remains to collect on this line
func (l *SheetLine) AmountPending() decimal.Decimal {
	return l.AmountTotal.Sub(l.AmountCollected)
}

func (l *SheetLine) refreshCollectionStatus() {
	switch {
	case l.AmountCollected.IsZero():
		l.CollectionStatus = CollectionStatusNotCollected
	case l.AmountCollected.GreaterThanOrEqual(l.AmountTotal):
		l.CollectionStatus = CollectionStatusCollected
	default:
		l.CollectionStatus = CollectionStatusPartial
	}
}

// SettlementSheet is the aggregate root grouping invoices for one collection
// cycle. It owns its lines; lines never outlive the sheet or move between
// sheets.
type SettlementSheet struct {
	shared.TenantAggregateRoot
	SheetNumber       string          `json:"sheet_number" gorm:"type:varchar(64);not null;uniqueIndex:idx_sheet_tenant_number,composite:tenant_id"`
	Status            SheetStatus     `json:"status" gorm:"type:varchar(16);not null;index"`
	RouteID           *uuid.UUID      `json:"route_id" gorm:"type:uuid;index"`
	RouteNumber       string          `json:"route_number" gorm:"type:varchar(64)"`
	DriverName        string          `json:"driver_name" gorm:"type:varchar(255)"`
	SheetDate         time.Time       `json:"sheet_date"`
	Lines             []SheetLine     `json:"lines" gorm:"foreignKey:SheetID;constraint:OnDelete:CASCADE"`
	TotalAmount       decimal.Decimal `json:"total_amount" gorm:"type:decimal(18,2)"`
	TotalCollected    decimal.Decimal `json:"total_collected" gorm:"type:decimal(18,2)"`
	TotalPending      decimal.Decimal `json:"total_pending" gorm:"type:decimal(18,2)"`
	DeliveredCount    int             `json:"delivered_count" gorm:"not null;default:0"`
	NotDeliveredCount int             `json:"not_delivered_count" gorm:"not null;default:0"`
	PendingCount      int             `json:"pending_count" gorm:"not null;default:0"`
	Notes             string          `json:"notes" gorm:"type:text"`
	ConfirmedAt       *time.Time      `json:"confirmed_at"`
	SettledAt         *time.Time      `json:"settled_at"`
	ClosedAt          *time.Time      `json:"closed_at"`
	CancelledAt       *time.Time      `json:"cancelled_at"`
	CancelReason      string          `json:"cancel_reason" gorm:"type:varchar(255)"`
}

// TableName specifies the table name for GORM
func (SettlementSheet) TableName() string {
	return "treasury_settlement_sheets"
}

// NewSettlementSheet creates a settlement sheet in DRAFT
func NewSettlementSheet(tenantID uuid.UUID, sheetNumber string, sheetDate time.Time) (*SettlementSheet, error) {
	if sheetNumber == "" {
		return nil, shared.NewDomainError("INVALID_SHEET_NUMBER", "Sheet number cannot be empty")
	}
	if sheetDate.IsZero() {
		sheetDate = time.Now()
	}

	sheet := &SettlementSheet{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		SheetNumber:         sheetNumber,
		Status:              SheetStatusDraft,
		SheetDate:           sheetDate,
		Lines:               make([]SheetLine, 0),
		TotalAmount:         decimal.Zero,
		TotalCollected:      decimal.Zero,
		TotalPending:        decimal.Zero,
	}

	sheet.AddDomainEvent(NewSheetCreatedEvent(sheet))

	return sheet, nil
}

// AddLine adds an invoice to the sheet. Only allowed in DRAFT status.
// The caller is responsible for checking the invoice is not already part of
// another active sheet; within this sheet duplicates are rejected here.
func (s *SettlementSheet) AddLine(invoice *accounting.InvoiceRef) (*SheetLine, error) {
	if s.Status != SheetStatusDraft {
		return nil, shared.NewDomainError("INVALID_STATE", "Cannot add invoices to a non-draft sheet")
	}
	if invoice != nil {
		for _, line := range s.Lines {
			if line.InvoiceID == invoice.ID {
				return nil, shared.NewDomainError("DUPLICATE_INVOICE", "Invoice already belongs to this sheet")
			}
		}
	}

	line, err := NewSheetLine(s.ID, invoice)
	if err != nil {
		return nil, err
	}

	s.Lines = append(s.Lines, *line)
	s.recalculateTotals()
	s.UpdatedAt = time.Now()

	return line, nil
}

// RemoveLine removes an invoice from the sheet. Only allowed in DRAFT status.
func (s *SettlementSheet) RemoveLine(lineID uuid.UUID) error {
	if s.Status != SheetStatusDraft {
		return shared.NewDomainError("INVALID_STATE", "Cannot remove invoices from a non-draft sheet")
	}

	for idx, line := range s.Lines {
		if line.ID == lineID {
			s.Lines = append(s.Lines[:idx], s.Lines[idx+1:]...)
			s.recalculateTotals()
			s.UpdatedAt = time.Now()
			return nil
		}
	}

	return shared.NewDomainError("NOT_FOUND", "Sheet line not found")
}

// RecordLineCollection records the driver's result for one invoice.
// Allowed while the sheet is IN_ROUTE or SETTLED.
func (s *SettlementSheet) RecordLineCollection(lineID uuid.UUID, amount decimal.Decimal, status DeliveryStatus, method accounting.PaymentMethod, reference string) error {
	if s.Status != SheetStatusInRoute && s.Status != SheetStatusSettled {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot record collections on a sheet in %s status", s.Status))
	}

	for idx := range s.Lines {
		if s.Lines[idx].ID == lineID {
			if err := s.Lines[idx].RecordCollection(amount, status, method, reference); err != nil {
				return err
			}
			s.recalculateTotals()
			s.UpdatedAt = time.Now()
			return nil
		}
	}

	return shared.NewDomainError("NOT_FOUND", "Sheet line not found")
}

// Confirm confirms the sheet, transitioning from DRAFT to CONFIRMED.
// Requires at least one line.
func (s *SettlementSheet) Confirm() error {
	if !s.Status.CanTransitionTo(SheetStatusConfirmed) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot confirm sheet in %s status", s.Status))
	}
	if len(s.Lines) == 0 {
		return shared.NewDomainError("NO_LINES", "Cannot confirm a sheet without invoices")
	}

	now := time.Now()
	s.Status = SheetStatusConfirmed
	s.ConfirmedAt = &now
	s.UpdatedAt = now

	s.AddDomainEvent(NewSheetConfirmedEvent(s))

	return nil
}

// AssignRoute binds the sheet to a dispatch route.
// Allowed in CONFIRMED status, before the route starts.
func (s *SettlementSheet) AssignRoute(routeID uuid.UUID, routeNumber, driverName string) error {
	if s.Status != SheetStatusConfirmed {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot assign a route to a sheet in %s status", s.Status))
	}
	if routeID == uuid.Nil {
		return shared.NewDomainError("INVALID_ROUTE", "Route ID cannot be empty")
	}

	s.RouteID = &routeID
	s.RouteNumber = routeNumber
	s.DriverName = driverName
	s.UpdatedAt = time.Now()

	return nil
}

// MarkInRoute marks the sheet as out on its route.
// Requires a route assignment.
func (s *SettlementSheet) MarkInRoute() error {
	if !s.Status.CanTransitionTo(SheetStatusInRoute) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot start route for sheet in %s status", s.Status))
	}
	if s.RouteID == nil {
		return shared.NewDomainError("NO_ROUTE", "Sheet must be assigned to a route first")
	}

	s.Status = SheetStatusInRoute
	s.UpdatedAt = time.Now()

	s.AddDomainEvent(NewSheetInRouteEvent(s))

	return nil
}

// MarkSettled marks the sheet as settled. Triggered when a settlement built
// from this sheet is submitted for review.
func (s *SettlementSheet) MarkSettled() error {
	if !s.Status.CanTransitionTo(SheetStatusSettled) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot settle sheet in %s status", s.Status))
	}

	now := time.Now()
	s.Status = SheetStatusSettled
	s.SettledAt = &now
	s.UpdatedAt = now

	s.AddDomainEvent(NewSheetSettledEvent(s))

	return nil
}

// ApplySettlementResult writes an approved settlement line's result back onto
// the originating sheet line. Allowed while the sheet is SETTLED.
func (s *SettlementSheet) ApplySettlementResult(invoiceID uuid.UUID, amount decimal.Decimal, status DeliveryStatus, method accounting.PaymentMethod, reference string) error {
	if s.Status != SheetStatusSettled {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot apply settlement results to a sheet in %s status", s.Status))
	}

	for idx := range s.Lines {
		if s.Lines[idx].InvoiceID == invoiceID {
			if err := s.Lines[idx].RecordCollection(amount, status, method, reference); err != nil {
				return err
			}
			s.recalculateTotals()
			s.UpdatedAt = time.Now()
			return nil
		}
	}

	return shared.NewDomainError("NOT_FOUND", "No sheet line for the settled invoice")
}

// Close closes the sheet after its settlement cycle finishes.
// Requires at least one approved settlement.
func (s *SettlementSheet) Close(hasApprovedSettlement bool) error {
	if !s.Status.CanTransitionTo(SheetStatusClosed) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot close sheet in %s status", s.Status))
	}
	if !hasApprovedSettlement {
		return shared.NewDomainError("NO_APPROVED_SETTLEMENT", "Cannot close a sheet without an approved settlement")
	}

	now := time.Now()
	s.Status = SheetStatusClosed
	s.ClosedAt = &now
	s.UpdatedAt = now

	s.AddDomainEvent(NewSheetClosedEvent(s))

	return nil
}

// Cancel cancels the sheet, releasing its invoices for another cycle.
// Blocked once an approved settlement exists.
func (s *SettlementSheet) Cancel(reason string, hasApprovedSettlement bool) error {
	if !s.Status.CanTransitionTo(SheetStatusCancelled) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot cancel sheet in %s status", s.Status))
	}
	if hasApprovedSettlement {
		return shared.NewDomainError("INVALID_STATE", "Cannot cancel a sheet with an approved settlement")
	}

	now := time.Now()
	s.Status = SheetStatusCancelled
	s.CancelledAt = &now
	s.CancelReason = reason
	s.UpdatedAt = now

	s.AddDomainEvent(NewSheetCancelledEvent(s))

	return nil
}

// ResetToDraft returns a confirmed or cancelled sheet to DRAFT so its
// invoice set can be reworked. Blocked once any settlement exists.
func (s *SettlementSheet) ResetToDraft(hasSettlements bool) error {
	if !s.Status.CanTransitionTo(SheetStatusDraft) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot reset sheet in %s status", s.Status))
	}
	if hasSettlements {
		return shared.NewDomainError("INVALID_STATE", "Cannot reset a sheet that already has settlements")
	}

	s.Status = SheetStatusDraft
	s.ConfirmedAt = nil
	s.CancelledAt = nil
	s.CancelReason = ""
	s.UpdatedAt = time.Now()

	return nil
}

// CanCreateSettlement reports whether the sheet is in a status from which a
// settlement snapshot may be taken.
func (s *SettlementSheet) CanCreateSettlement() bool {
	return s.Status == SheetStatusInRoute || s.Status == SheetStatusSettled
}

// FindLineByInvoice returns the line for the given invoice, if present
func (s *SettlementSheet) FindLineByInvoice(invoiceID uuid.UUID) *SheetLine {
	for idx := range s.Lines {
		if s.Lines[idx].InvoiceID == invoiceID {
			return &s.Lines[idx]
		}
	}
	return nil
}

// recalculateTotals folds the line collection into the sheet totals.
// The fold is a commutative sum/count, so it is idempotent for a fixed set
// of line values.
func (s *SettlementSheet) recalculateTotals() {
	totalAmount := decimal.Zero
	totalCollected := decimal.Zero
	delivered, notDelivered, pending := 0, 0, 0

	for _, line := range s.Lines {
		totalAmount = totalAmount.Add(line.AmountTotal)
		totalCollected = totalCollected.Add(line.AmountCollected)
		switch line.DeliveryStatus {
		case DeliveryStatusDelivered:
			delivered++
		case DeliveryStatusNotDelivered:
			notDelivered++
		default:
			pending++
		}
	}

	s.TotalAmount = totalAmount
	s.TotalCollected = totalCollected
	s.TotalPending = totalAmount.Sub(totalCollected)
	s.DeliveredCount = delivered
	s.NotDeliveredCount = notDelivered
	s.PendingCount = pending
}

// RecalculateTotals re-runs the totals fold. Needed after loading the
// aggregate from persistence or mutating lines outside the aggregate methods.
func (s *SettlementSheet) RecalculateTotals() {
	s.recalculateTotals()
}
