package treasury

import (
	"github.com/almi/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Aggregate type constant
const AggregateTypeSettlement = "Settlement"

// Event type constants
const (
	EventTypeSettlementCreated   = "SettlementCreated"
	EventTypeSettlementSubmitted = "SettlementSubmitted"
	EventTypeSettlementApproved  = "SettlementApproved"
	EventTypeSettlementRejected  = "SettlementRejected"
)

// SettlementCreatedEvent is raised when a settlement snapshot is taken from a sheet
type SettlementCreatedEvent struct {
	shared.BaseDomainEvent
	SettlementID     uuid.UUID `json:"settlement_id"`
	SettlementNumber string    `json:"settlement_number"`
	SheetID          uuid.UUID `json:"sheet_id"`
	SheetNumber      string    `json:"sheet_number"`
	LineCount        int       `json:"line_count"`
}

// NewSettlementCreatedEvent creates a new SettlementCreatedEvent
func NewSettlementCreatedEvent(s *Settlement) *SettlementCreatedEvent {
	return &SettlementCreatedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeSettlementCreated, AggregateTypeSettlement, s.ID, s.TenantID),
		SettlementID:     s.ID,
		SettlementNumber: s.SettlementNumber,
		SheetID:          s.SheetID,
		SheetNumber:      s.SheetNumber,
		LineCount:        len(s.Lines),
	}
}

// EventType returns the event type name
func (e *SettlementCreatedEvent) EventType() string {
	return EventTypeSettlementCreated
}

// SettlementSubmittedEvent is raised when the driver submits for review
type SettlementSubmittedEvent struct {
	shared.BaseDomainEvent
	SettlementID     uuid.UUID       `json:"settlement_id"`
	SettlementNumber string          `json:"settlement_number"`
	SubmittedBy      string          `json:"submitted_by"`
	TotalToCollect   decimal.Decimal `json:"total_to_collect"`
	TotalCollected   decimal.Decimal `json:"total_collected"`
}

// NewSettlementSubmittedEvent creates a new SettlementSubmittedEvent
func NewSettlementSubmittedEvent(s *Settlement) *SettlementSubmittedEvent {
	return &SettlementSubmittedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeSettlementSubmitted, AggregateTypeSettlement, s.ID, s.TenantID),
		SettlementID:     s.ID,
		SettlementNumber: s.SettlementNumber,
		SubmittedBy:      s.SubmittedByName,
		TotalToCollect:   s.TotalToCollect,
		TotalCollected:   s.TotalCollected,
	}
}

// EventType returns the event type name
func (e *SettlementSubmittedEvent) EventType() string {
	return EventTypeSettlementSubmitted
}

// SettlementApprovedEvent is raised when a reviewer approves the settlement
type SettlementApprovedEvent struct {
	shared.BaseDomainEvent
	SettlementID     uuid.UUID       `json:"settlement_id"`
	SettlementNumber string          `json:"settlement_number"`
	SheetID          uuid.UUID       `json:"sheet_id"`
	ApprovedBy       string          `json:"approved_by"`
	TotalCollected   decimal.Decimal `json:"total_collected"`
	Difference       decimal.Decimal `json:"difference"`
	CollectionRate   decimal.Decimal `json:"collection_rate"`
}

// NewSettlementApprovedEvent creates a new SettlementApprovedEvent
func NewSettlementApprovedEvent(s *Settlement) *SettlementApprovedEvent {
	return &SettlementApprovedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeSettlementApproved, AggregateTypeSettlement, s.ID, s.TenantID),
		SettlementID:     s.ID,
		SettlementNumber: s.SettlementNumber,
		SheetID:          s.SheetID,
		ApprovedBy:       s.ReviewedByName,
		TotalCollected:   s.TotalCollected,
		Difference:       s.Difference,
		CollectionRate:   s.CollectionRate,
	}
}

// EventType returns the event type name
func (e *SettlementApprovedEvent) EventType() string {
	return EventTypeSettlementApproved
}

// SettlementRejectedEvent is raised when a reviewer rejects the settlement
type SettlementRejectedEvent struct {
	shared.BaseDomainEvent
	SettlementID     uuid.UUID `json:"settlement_id"`
	SettlementNumber string    `json:"settlement_number"`
	RejectedBy       string    `json:"rejected_by"`
	Reason           string    `json:"reason"`
}

// NewSettlementRejectedEvent creates a new SettlementRejectedEvent
func NewSettlementRejectedEvent(s *Settlement) *SettlementRejectedEvent {
	return &SettlementRejectedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeSettlementRejected, AggregateTypeSettlement, s.ID, s.TenantID),
		SettlementID:     s.ID,
		SettlementNumber: s.SettlementNumber,
		RejectedBy:       s.ReviewedByName,
		Reason:           s.RejectionReason,
	}
}

// EventType returns the event type name
func (e *SettlementRejectedEvent) EventType() string {
	return EventTypeSettlementRejected
}
