package treasury

import (
	"github.com/almi/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Aggregate type constant
const AggregateTypeSettlementSheet = "SettlementSheet"

// Event type constants
const (
	EventTypeSheetCreated   = "SettlementSheetCreated"
	EventTypeSheetConfirmed = "SettlementSheetConfirmed"
	EventTypeSheetInRoute   = "SettlementSheetInRoute"
	EventTypeSheetSettled   = "SettlementSheetSettled"
	EventTypeSheetClosed    = "SettlementSheetClosed"
	EventTypeSheetCancelled = "SettlementSheetCancelled"
)

// SheetCreatedEvent is raised when a new settlement sheet is created
type SheetCreatedEvent struct {
	shared.BaseDomainEvent
	SheetID     uuid.UUID `json:"sheet_id"`
	SheetNumber string    `json:"sheet_number"`
}

// NewSheetCreatedEvent creates a new SheetCreatedEvent
func NewSheetCreatedEvent(sheet *SettlementSheet) *SheetCreatedEvent {
	return &SheetCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSheetCreated, AggregateTypeSettlementSheet, sheet.ID, sheet.TenantID),
		SheetID:         sheet.ID,
		SheetNumber:     sheet.SheetNumber,
	}
}

// EventType returns the event type name
func (e *SheetCreatedEvent) EventType() string {
	return EventTypeSheetCreated
}

// SheetConfirmedEvent is raised when a sheet is confirmed with its invoice set
type SheetConfirmedEvent struct {
	shared.BaseDomainEvent
	SheetID     uuid.UUID       `json:"sheet_id"`
	SheetNumber string          `json:"sheet_number"`
	LineCount   int             `json:"line_count"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// NewSheetConfirmedEvent creates a new SheetConfirmedEvent
func NewSheetConfirmedEvent(sheet *SettlementSheet) *SheetConfirmedEvent {
	return &SheetConfirmedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSheetConfirmed, AggregateTypeSettlementSheet, sheet.ID, sheet.TenantID),
		SheetID:         sheet.ID,
		SheetNumber:     sheet.SheetNumber,
		LineCount:       len(sheet.Lines),
		TotalAmount:     sheet.TotalAmount,
	}
}

// EventType returns the event type name
func (e *SheetConfirmedEvent) EventType() string {
	return EventTypeSheetConfirmed
}

// SheetInRouteEvent is raised when a sheet goes out on its route
type SheetInRouteEvent struct {
	shared.BaseDomainEvent
	SheetID     uuid.UUID  `json:"sheet_id"`
	SheetNumber string     `json:"sheet_number"`
	RouteID     *uuid.UUID `json:"route_id,omitempty"`
	RouteNumber string     `json:"route_number"`
	DriverName  string     `json:"driver_name"`
}

// NewSheetInRouteEvent creates a new SheetInRouteEvent
func NewSheetInRouteEvent(sheet *SettlementSheet) *SheetInRouteEvent {
	return &SheetInRouteEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSheetInRoute, AggregateTypeSettlementSheet, sheet.ID, sheet.TenantID),
		SheetID:         sheet.ID,
		SheetNumber:     sheet.SheetNumber,
		RouteID:         sheet.RouteID,
		RouteNumber:     sheet.RouteNumber,
		DriverName:      sheet.DriverName,
	}
}

// EventType returns the event type name
func (e *SheetInRouteEvent) EventType() string {
	return EventTypeSheetInRoute
}

// SheetSettledEvent is raised when the sheet enters settlement review
type SheetSettledEvent struct {
	shared.BaseDomainEvent
	SheetID        uuid.UUID       `json:"sheet_id"`
	SheetNumber    string          `json:"sheet_number"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	TotalCollected decimal.Decimal `json:"total_collected"`
}

// NewSheetSettledEvent creates a new SheetSettledEvent
func NewSheetSettledEvent(sheet *SettlementSheet) *SheetSettledEvent {
	return &SheetSettledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSheetSettled, AggregateTypeSettlementSheet, sheet.ID, sheet.TenantID),
		SheetID:         sheet.ID,
		SheetNumber:     sheet.SheetNumber,
		TotalAmount:     sheet.TotalAmount,
		TotalCollected:  sheet.TotalCollected,
	}
}

// EventType returns the event type name
func (e *SheetSettledEvent) EventType() string {
	return EventTypeSheetSettled
}

// SheetClosedEvent is raised when a sheet finishes its cycle
type SheetClosedEvent struct {
	shared.BaseDomainEvent
	SheetID        uuid.UUID       `json:"sheet_id"`
	SheetNumber    string          `json:"sheet_number"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	TotalCollected decimal.Decimal `json:"total_collected"`
	TotalPending   decimal.Decimal `json:"total_pending"`
}

// NewSheetClosedEvent creates a new SheetClosedEvent
func NewSheetClosedEvent(sheet *SettlementSheet) *SheetClosedEvent {
	return &SheetClosedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSheetClosed, AggregateTypeSettlementSheet, sheet.ID, sheet.TenantID),
		SheetID:         sheet.ID,
		SheetNumber:     sheet.SheetNumber,
		TotalAmount:     sheet.TotalAmount,
		TotalCollected:  sheet.TotalCollected,
		TotalPending:    sheet.TotalPending,
	}
}

// EventType returns the event type name
func (e *SheetClosedEvent) EventType() string {
	return EventTypeSheetClosed
}

// SheetCancelledEvent is raised when a sheet is cancelled, releasing its invoices
type SheetCancelledEvent struct {
	shared.BaseDomainEvent
	SheetID     uuid.UUID `json:"sheet_id"`
	SheetNumber string    `json:"sheet_number"`
	Reason      string    `json:"reason"`
}

// NewSheetCancelledEvent creates a new SheetCancelledEvent
func NewSheetCancelledEvent(sheet *SettlementSheet) *SheetCancelledEvent {
	return &SheetCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSheetCancelled, AggregateTypeSettlementSheet, sheet.ID, sheet.TenantID),
		SheetID:         sheet.ID,
		SheetNumber:     sheet.SheetNumber,
		Reason:          sheet.CancelReason,
	}
}

// EventType returns the event type name
func (e *SheetCancelledEvent) EventType() string {
	return EventTypeSheetCancelled
}
