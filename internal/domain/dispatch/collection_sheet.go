package dispatch

import (
	"fmt"
	"time"

	"github.com/almi/backend/internal/domain/accounting"
	"github.com/almi/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CollectionSheetStatus represents the status of a collection sheet
type CollectionSheetStatus string

const (
	CollectionSheetStatusDraft     CollectionSheetStatus = "DRAFT"
	CollectionSheetStatusValidated CollectionSheetStatus = "VALIDATED"
	CollectionSheetStatusCancelled CollectionSheetStatus = "CANCELLED"
)

// IsValid checks if the status is a valid CollectionSheetStatus
func (s CollectionSheetStatus) IsValid() bool {
	switch s {
	case CollectionSheetStatusDraft, CollectionSheetStatusValidated, CollectionSheetStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of CollectionSheetStatus
func (s CollectionSheetStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status
func (s CollectionSheetStatus) CanTransitionTo(target CollectionSheetStatus) bool {
	switch s {
	case CollectionSheetStatusDraft:
		return target == CollectionSheetStatusValidated || target == CollectionSheetStatusCancelled
	case CollectionSheetStatusValidated, CollectionSheetStatusCancelled:
		return target == CollectionSheetStatusDraft
	}
	return false
}

// CollectionType classifies how the money was collected
type CollectionType string

const (
	CollectionTypeCash    CollectionType = "CASH"
	CollectionTypeCredit  CollectionType = "CREDIT"
	CollectionTypeDeposit CollectionType = "DEPOSIT"
)

// IsValid checks if the collection type is valid
func (t CollectionType) IsValid() bool {
	switch t {
	case CollectionTypeCash, CollectionTypeCredit, CollectionTypeDeposit:
		return true
	}
	return false
}

// String returns the string representation of CollectionType
func (t CollectionType) String() string {
	return string(t)
}

// CollectionLineStatus represents the status of a collection line
type CollectionLineStatus string

const (
	CollectionLineStatusPending   CollectionLineStatus = "PENDING"
	CollectionLineStatusAssigned  CollectionLineStatus = "ASSIGNED"
	CollectionLineStatusPaid      CollectionLineStatus = "PAID"
	CollectionLineStatusCancelled CollectionLineStatus = "CANCELLED"
)

// IsValid checks if the status is a valid CollectionLineStatus
func (s CollectionLineStatus) IsValid() bool {
	switch s {
	case CollectionLineStatusPending, CollectionLineStatusAssigned, CollectionLineStatusPaid, CollectionLineStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of CollectionLineStatus
func (s CollectionLineStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status
func (s CollectionLineStatus) CanTransitionTo(target CollectionLineStatus) bool {
	switch s {
	case CollectionLineStatusPending:
		return target == CollectionLineStatusAssigned || target == CollectionLineStatusCancelled
	case CollectionLineStatusAssigned:
		return target == CollectionLineStatusPaid || target == CollectionLineStatusPending
	case CollectionLineStatusPaid:
		return false // Release requires reversing the posted payment first
	case CollectionLineStatusCancelled:
		return target == CollectionLineStatusPending
	}
	return false
}

// CollectionLine is a single payment a driver reported, initially unlinked to
// any invoice. Assignment binds it to one invoice of the settlement, creating
// a payment in accounting.
type CollectionLine struct {
	ID               uuid.UUID                `json:"id" gorm:"type:uuid;primaryKey"`
	SheetID          uuid.UUID                `json:"sheet_id" gorm:"type:uuid;not null;index"`
	Amount           decimal.Decimal          `json:"amount" gorm:"type:decimal(18,2)"`
	CollectionType   CollectionType           `json:"collection_type" gorm:"type:varchar(16);not null"`
	PaymentMethod    accounting.PaymentMethod `json:"payment_method" gorm:"type:varchar(16);not null"`
	Status           CollectionLineStatus     `json:"status" gorm:"type:varchar(16);not null;index"`
	InvoiceID        *uuid.UUID               `json:"invoice_id" gorm:"type:uuid;index"`
	InvoiceNumber    string                   `json:"invoice_number" gorm:"type:varchar(64)"`
	PaymentID        *uuid.UUID               `json:"payment_id" gorm:"type:uuid"`
	BankName         string                   `json:"bank_name" gorm:"type:varchar(128)"`
	BankReference    string                   `json:"bank_reference" gorm:"type:varchar(128)"`
	Notes            string                   `json:"notes" gorm:"type:text"`
	RegisteredAt     time.Time                `json:"registered_at"`
	AssignedAt       *time.Time               `json:"assigned_at"`
	CreatedAt        time.Time                `json:"created_at"`
	UpdatedAt        time.Time                `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (CollectionLine) TableName() string {
	return "dispatch_collection_lines"
}

// NewCollectionLine creates a pending line for a reported payment
func NewCollectionLine(sheetID uuid.UUID, amount decimal.Decimal, collectionType CollectionType, method accounting.PaymentMethod, bankName, bankReference string) (*CollectionLine, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Collection amount must be positive")
	}
	if !collectionType.IsValid() {
		return nil, shared.NewDomainError("INVALID_COLLECTION_TYPE", "Collection type is not valid")
	}
	if !method.IsValid() {
		return nil, shared.NewDomainError("INVALID_PAYMENT_METHOD", "Payment method is not valid")
	}
	if collectionType == CollectionTypeDeposit && bankReference == "" {
		return nil, shared.NewDomainError("INVALID_REFERENCE", "Bank deposits require a bank reference")
	}

	now := time.Now()
	return &CollectionLine{
		ID:             uuid.New(),
		SheetID:        sheetID,
		Amount:         amount,
		CollectionType: collectionType,
		PaymentMethod:  method,
		Status:         CollectionLineStatusPending,
		BankName:       bankName,
		BankReference:  bankReference,
		RegisteredAt:   now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// ValidateAssignment checks the guard chain for binding this line to an
// invoice. The line and invoice are left untouched.
func (l *CollectionLine) ValidateAssignment(invoice *accounting.InvoiceRef) error {
	if l.Status != CollectionLineStatusPending {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot assign a collection line in %s status", l.Status))
	}
	if invoice == nil {
		return shared.NewDomainError("MISSING_INVOICE", "Assignment requires an invoice")
	}
	if l.Amount.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_AMOUNT", "Collection amount must be positive")
	}
	if invoice.IsFullyPaid() {
		return shared.NewDomainError("ALREADY_SETTLED", "Invoice is already fully paid")
	}
	if l.Amount.GreaterThan(invoice.AmountResidual.Amount()) {
		return shared.NewDomainError("EXCEEDS_RESIDUAL", "Collection amount exceeds the invoice residual")
	}
	return nil
}

// Assign binds the line to an invoice and its payment record. The caller has
// already created the payment in accounting; when the payment settles the
// whole residual, the line advances straight to PAID.
func (l *CollectionLine) Assign(invoice *accounting.InvoiceRef, paymentID uuid.UUID) error {
	if err := l.ValidateAssignment(invoice); err != nil {
		return err
	}
	if paymentID == uuid.Nil {
		return shared.NewDomainError("MISSING_PAYMENT", "Assignment requires a payment record")
	}

	now := time.Now()
	l.InvoiceID = &invoice.ID
	l.InvoiceNumber = invoice.Number
	l.PaymentID = &paymentID
	l.Status = CollectionLineStatusAssigned
	l.AssignedAt = &now
	l.UpdatedAt = now

	if invoice.AmountResidual.Amount().Equal(l.Amount) {
		l.Status = CollectionLineStatusPaid
	}

	return nil
}

// MarkPaid advances an assigned line once its payment covered the residual
func (l *CollectionLine) MarkPaid() error {
	if !l.Status.CanTransitionTo(CollectionLineStatusPaid) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot mark a collection line paid in %s status", l.Status))
	}
	l.Status = CollectionLineStatusPaid
	l.UpdatedAt = time.Now()
	return nil
}

// CancelAssignment undoes the invoice binding, returning the line to
// PENDING. Refused for paid lines; the posted payment must be reversed in
// accounting first.
func (l *CollectionLine) CancelAssignment() error {
	if l.Status == CollectionLineStatusPaid {
		return shared.NewDomainError("INVALID_STATE", "Cannot unassign a paid collection line; reverse the payment first")
	}
	if l.Status != CollectionLineStatusAssigned {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot unassign a collection line in %s status", l.Status))
	}

	l.InvoiceID = nil
	l.InvoiceNumber = ""
	l.PaymentID = nil
	l.AssignedAt = nil
	l.Status = CollectionLineStatusPending
	l.UpdatedAt = time.Now()

	return nil
}

// Cancel discards a pending line
func (l *CollectionLine) Cancel() error {
	if !l.Status.CanTransitionTo(CollectionLineStatusCancelled) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot cancel a collection line in %s status", l.Status))
	}
	l.Status = CollectionLineStatusCancelled
	l.UpdatedAt = time.Now()
	return nil
}

// Reset returns a cancelled line to PENDING
func (l *CollectionLine) Reset() error {
	if l.Status != CollectionLineStatusCancelled {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot reset a collection line in %s status", l.Status))
	}
	l.Status = CollectionLineStatusPending
	l.UpdatedAt = time.Now()
	return nil
}

// CollectionSheet aggregates a driver's reported payments for one settlement.
// It owns its lines; lines never outlive the sheet.
type CollectionSheet struct {
	shared.TenantAggregateRoot
	SheetNumber      string                `json:"sheet_number" gorm:"type:varchar(64);not null;uniqueIndex:idx_coll_sheet_tenant_number,composite:tenant_id"`
	SettlementID     uuid.UUID             `json:"settlement_id" gorm:"type:uuid;not null;uniqueIndex:idx_coll_sheet_settlement"`
	SettlementNumber string                `json:"settlement_number" gorm:"type:varchar(64)"`
	DriverName       string                `json:"driver_name" gorm:"type:varchar(255)"`
	Status           CollectionSheetStatus `json:"status" gorm:"type:varchar(16);not null;index"`
	Lines            []CollectionLine      `json:"lines" gorm:"foreignKey:SheetID;constraint:OnDelete:CASCADE"`
	TotalCollected   decimal.Decimal       `json:"total_collected" gorm:"type:decimal(18,2)"`
	TotalPending     decimal.Decimal       `json:"total_pending" gorm:"type:decimal(18,2)"`
	TotalAssigned    decimal.Decimal       `json:"total_assigned" gorm:"type:decimal(18,2)"`
	TotalPaid        decimal.Decimal       `json:"total_paid" gorm:"type:decimal(18,2)"`
	TotalDeposited   decimal.Decimal       `json:"total_deposited" gorm:"type:decimal(18,2)"`
	TotalMissing     decimal.Decimal       `json:"total_missing" gorm:"type:decimal(18,2)"`
	PendingCount     int                   `json:"pending_count" gorm:"not null;default:0"`
	AssignedCount    int                   `json:"assigned_count" gorm:"not null;default:0"`
	PaidCount        int                   `json:"paid_count" gorm:"not null;default:0"`
	CancelledCount   int                   `json:"cancelled_count" gorm:"not null;default:0"`
	Notes            string                `json:"notes" gorm:"type:text"`
	ValidatedAt      *time.Time            `json:"validated_at"`
	CancelledAt      *time.Time            `json:"cancelled_at"`
}

// TableName specifies the table name for GORM
func (CollectionSheet) TableName() string {
	return "dispatch_collection_sheets"
}

// NewCollectionSheet creates a collection sheet for a settlement
func NewCollectionSheet(tenantID uuid.UUID, sheetNumber string, settlementID uuid.UUID, settlementNumber, driverName string) (*CollectionSheet, error) {
	if sheetNumber == "" {
		return nil, shared.NewDomainError("INVALID_SHEET_NUMBER", "Collection sheet number cannot be empty")
	}
	if settlementID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_SETTLEMENT", "Collection sheet requires a settlement")
	}

	return &CollectionSheet{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		SheetNumber:         sheetNumber,
		SettlementID:        settlementID,
		SettlementNumber:    settlementNumber,
		DriverName:          driverName,
		Status:              CollectionSheetStatusDraft,
		Lines:               make([]CollectionLine, 0),
		TotalCollected:      decimal.Zero,
		TotalPending:        decimal.Zero,
		TotalAssigned:       decimal.Zero,
		TotalPaid:           decimal.Zero,
		TotalDeposited:      decimal.Zero,
		TotalMissing:        decimal.Zero,
	}, nil
}

// AddLine registers a reported payment. Only allowed in DRAFT status.
func (s *CollectionSheet) AddLine(amount decimal.Decimal, collectionType CollectionType, method accounting.PaymentMethod, bankName, bankReference string) (*CollectionLine, error) {
	if s.Status != CollectionSheetStatusDraft {
		return nil, shared.NewDomainError("INVALID_STATE", "Cannot add lines to a non-draft collection sheet")
	}

	line, err := NewCollectionLine(s.ID, amount, collectionType, method, bankName, bankReference)
	if err != nil {
		return nil, err
	}

	s.Lines = append(s.Lines, *line)
	s.recalculateTotals()
	s.UpdatedAt = time.Now()

	return line, nil
}

// RemoveLine removes a still-pending line. Only allowed in DRAFT status.
func (s *CollectionSheet) RemoveLine(lineID uuid.UUID) error {
	if s.Status != CollectionSheetStatusDraft {
		return shared.NewDomainError("INVALID_STATE", "Cannot remove lines from a non-draft collection sheet")
	}

	for idx, line := range s.Lines {
		if line.ID == lineID {
			if line.Status != CollectionLineStatusPending && line.Status != CollectionLineStatusCancelled {
				return shared.NewDomainError("INVALID_STATE", "Only pending or cancelled lines can be removed")
			}
			s.Lines = append(s.Lines[:idx], s.Lines[idx+1:]...)
			s.recalculateTotals()
			s.UpdatedAt = time.Now()
			return nil
		}
	}

	return shared.NewDomainError("NOT_FOUND", "Collection line not found")
}

// FindLine returns the line with the given ID, if present
func (s *CollectionSheet) FindLine(lineID uuid.UUID) *CollectionLine {
	for idx := range s.Lines {
		if s.Lines[idx].ID == lineID {
			return &s.Lines[idx]
		}
	}
	return nil
}

// AssignLine binds a pending line to an invoice and its payment record
func (s *CollectionSheet) AssignLine(lineID uuid.UUID, invoice *accounting.InvoiceRef, paymentID uuid.UUID) error {
	if s.Status != CollectionSheetStatusDraft {
		return shared.NewDomainError("INVALID_STATE", "Cannot assign lines on a non-draft collection sheet")
	}

	line := s.FindLine(lineID)
	if line == nil {
		return shared.NewDomainError("NOT_FOUND", "Collection line not found")
	}
	if err := line.Assign(invoice, paymentID); err != nil {
		return err
	}

	s.recalculateTotals()
	s.UpdatedAt = time.Now()

	return nil
}

// CancelLineAssignment undoes a line's invoice binding. Only allowed in
// DRAFT status so a validated sheet cannot silently regrow pending lines.
func (s *CollectionSheet) CancelLineAssignment(lineID uuid.UUID) error {
	if s.Status != CollectionSheetStatusDraft {
		return shared.NewDomainError("INVALID_STATE", "Cannot unassign lines on a non-draft collection sheet")
	}

	line := s.FindLine(lineID)
	if line == nil {
		return shared.NewDomainError("NOT_FOUND", "Collection line not found")
	}
	if err := line.CancelAssignment(); err != nil {
		return err
	}

	s.recalculateTotals()
	s.UpdatedAt = time.Now()

	return nil
}

// CancelLine discards a pending line
func (s *CollectionSheet) CancelLine(lineID uuid.UUID) error {
	line := s.FindLine(lineID)
	if line == nil {
		return shared.NewDomainError("NOT_FOUND", "Collection line not found")
	}
	if err := line.Cancel(); err != nil {
		return err
	}

	s.recalculateTotals()
	s.UpdatedAt = time.Now()

	return nil
}

// ResetLine returns a cancelled line to PENDING
func (s *CollectionSheet) ResetLine(lineID uuid.UUID) error {
	line := s.FindLine(lineID)
	if line == nil {
		return shared.NewDomainError("NOT_FOUND", "Collection line not found")
	}
	if err := line.Reset(); err != nil {
		return err
	}

	s.recalculateTotals()
	s.UpdatedAt = time.Now()

	return nil
}

// Validate closes the reconciliation: every reported payment must be bound
// to an invoice (or cancelled) before the sheet is validated.
func (s *CollectionSheet) Validate() error {
	if !s.Status.CanTransitionTo(CollectionSheetStatusValidated) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot validate collection sheet in %s status", s.Status))
	}
	if len(s.Lines) == 0 {
		return shared.NewDomainError("NO_LINES", "Cannot validate a collection sheet without lines")
	}
	if s.PendingCount > 0 {
		return shared.NewDomainError("PENDING_LINES", "Cannot validate while unassigned collection lines remain")
	}

	now := time.Now()
	s.Status = CollectionSheetStatusValidated
	s.ValidatedAt = &now
	s.UpdatedAt = now

	return nil
}

// Cancel cancels the sheet. Blocked once any line holds a posted payment.
func (s *CollectionSheet) Cancel() error {
	if !s.Status.CanTransitionTo(CollectionSheetStatusCancelled) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot cancel collection sheet in %s status", s.Status))
	}
	if s.AssignedCount > 0 || s.PaidCount > 0 {
		return shared.NewDomainError("INVALID_STATE", "Cannot cancel a collection sheet with lines holding posted payments")
	}

	now := time.Now()
	s.Status = CollectionSheetStatusCancelled
	s.CancelledAt = &now
	s.UpdatedAt = now

	return nil
}

// ResetToDraft reopens a validated or cancelled sheet. Blocked once any
// line holds a posted payment.
func (s *CollectionSheet) ResetToDraft() error {
	if !s.Status.CanTransitionTo(CollectionSheetStatusDraft) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot reset collection sheet in %s status", s.Status))
	}
	if s.PaidCount > 0 {
		return shared.NewDomainError("INVALID_STATE", "Cannot reset a collection sheet with paid lines")
	}

	s.Status = CollectionSheetStatusDraft
	s.ValidatedAt = nil
	s.CancelledAt = nil
	s.UpdatedAt = time.Now()

	return nil
}

// recalculateTotals folds the line collection into the sheet totals.
// TotalMissing is the cash-box check: what was collected but never reached
// a bank deposit.
func (s *CollectionSheet) recalculateTotals() {
	collected := decimal.Zero
	pending := decimal.Zero
	assigned := decimal.Zero
	paid := decimal.Zero
	deposited := decimal.Zero
	pendingCount, assignedCount, paidCount, cancelledCount := 0, 0, 0, 0

	for _, line := range s.Lines {
		switch line.Status {
		case CollectionLineStatusCancelled:
			cancelledCount++
			continue
		case CollectionLineStatusPending:
			pending = pending.Add(line.Amount)
			pendingCount++
		case CollectionLineStatusAssigned:
			assigned = assigned.Add(line.Amount)
			assignedCount++
		case CollectionLineStatusPaid:
			paid = paid.Add(line.Amount)
			paidCount++
		}
		collected = collected.Add(line.Amount)
		if line.CollectionType == CollectionTypeDeposit {
			deposited = deposited.Add(line.Amount)
		}
	}

	s.TotalCollected = collected
	s.TotalPending = pending
	s.TotalAssigned = assigned
	s.TotalPaid = paid
	s.TotalDeposited = deposited
	s.TotalMissing = collected.Sub(deposited)
	s.PendingCount = pendingCount
	s.AssignedCount = assignedCount
	s.PaidCount = paidCount
	s.CancelledCount = cancelledCount
}

// RecalculateTotals re-runs the totals fold. Needed after loading the
// aggregate from persistence.
func (s *CollectionSheet) RecalculateTotals() {
	s.recalculateTotals()
}
