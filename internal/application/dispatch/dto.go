package dispatch

import (
	"time"

	"github.com/almi/backend/internal/domain/accounting"
	"github.com/almi/backend/internal/domain/dispatch"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateRouteRequest is the payload for planning a new delivery route
type CreateRouteRequest struct {
	DriverID     uuid.UUID  `json:"driver_id" binding:"required"`
	DriverName   string     `json:"driver_name" binding:"required"`
	VehiclePlate string     `json:"vehicle_plate"`
	RouteDate    *time.Time `json:"route_date"`
	Notes        string     `json:"notes"`
}

// CancelRouteRequest carries the reason for cancelling a route
type CancelRouteRequest struct {
	Reason string `json:"reason" binding:"required,min=1,max=500"`
}

// RouteListFilter defines query parameters for listing routes
type RouteListFilter struct {
	Page     int                   `form:"page"`
	PageSize int                   `form:"page_size"`
	Search   string                `form:"search"`
	Status   *dispatch.RouteStatus `form:"status"`
	DriverID *uuid.UUID            `form:"driver_id"`
	FromDate *time.Time            `form:"from_date" time_format:"2006-01-02"`
	ToDate   *time.Time            `form:"to_date" time_format:"2006-01-02"`
}

// RouteResponse represents a route in API responses
type RouteResponse struct {
	ID           uuid.UUID            `json:"id"`
	RouteNumber  string               `json:"route_number"`
	DriverID     uuid.UUID            `json:"driver_id"`
	DriverName   string               `json:"driver_name"`
	VehiclePlate string               `json:"vehicle_plate,omitempty"`
	RouteDate    time.Time            `json:"route_date"`
	Status       dispatch.RouteStatus `json:"status"`
	Notes        string               `json:"notes,omitempty"`
	StartedAt    *time.Time           `json:"started_at,omitempty"`
	CompletedAt  *time.Time           `json:"completed_at,omitempty"`
	CancelledAt  *time.Time           `json:"cancelled_at,omitempty"`
	CancelReason string               `json:"cancel_reason,omitempty"`
	CreatedAt    time.Time            `json:"created_at"`
	UpdatedAt    time.Time            `json:"updated_at"`
}

// ToRouteResponse converts a route aggregate to its API representation
func ToRouteResponse(route *dispatch.Route) RouteResponse {
	return RouteResponse{
		ID:           route.ID,
		RouteNumber:  route.RouteNumber,
		DriverID:     route.DriverID,
		DriverName:   route.DriverName,
		VehiclePlate: route.VehiclePlate,
		RouteDate:    route.RouteDate,
		Status:       route.Status,
		Notes:        route.Notes,
		StartedAt:    route.StartedAt,
		CompletedAt:  route.CompletedAt,
		CancelledAt:  route.CancelledAt,
		CancelReason: route.CancelReason,
		CreatedAt:    route.CreatedAt,
		UpdatedAt:    route.UpdatedAt,
	}
}

// CreateCollectionSheetRequest opens a collection sheet for a settlement
type CreateCollectionSheetRequest struct {
	SettlementID uuid.UUID `json:"settlement_id" binding:"required"`
	Notes        string    `json:"notes"`
}

// AddCollectionLineRequest registers a collected amount on a sheet
type AddCollectionLineRequest struct {
	Amount         decimal.Decimal          `json:"amount" binding:"required"`
	CollectionType dispatch.CollectionType  `json:"collection_type" binding:"required"`
	PaymentMethod  accounting.PaymentMethod `json:"payment_method" binding:"required"`
	BankName       string                   `json:"bank_name"`
	BankReference  string                   `json:"bank_reference"`
}

// AssignLineRequest links a collection line to an invoice
type AssignLineRequest struct {
	InvoiceID uuid.UUID `json:"invoice_id" binding:"required"`
}

// CollectionSheetListFilter defines query parameters for listing collection sheets
type CollectionSheetListFilter struct {
	Page         int                             `form:"page"`
	PageSize     int                             `form:"page_size"`
	Search       string                          `form:"search"`
	Status       *dispatch.CollectionSheetStatus `form:"status"`
	SettlementID *uuid.UUID                      `form:"settlement_id"`
}

// CollectionLineResponse represents a collection line in API responses
type CollectionLineResponse struct {
	ID             uuid.UUID                    `json:"id"`
	Amount         decimal.Decimal              `json:"amount"`
	CollectionType dispatch.CollectionType      `json:"collection_type"`
	PaymentMethod  accounting.PaymentMethod     `json:"payment_method"`
	Status         dispatch.CollectionLineStatus `json:"status"`
	InvoiceID      *uuid.UUID                   `json:"invoice_id,omitempty"`
	InvoiceNumber  string                       `json:"invoice_number,omitempty"`
	PaymentID      *uuid.UUID                   `json:"payment_id,omitempty"`
	BankName       string                       `json:"bank_name,omitempty"`
	BankReference  string                       `json:"bank_reference,omitempty"`
	RegisteredAt   time.Time                    `json:"registered_at"`
	AssignedAt     *time.Time                   `json:"assigned_at,omitempty"`
}

// CollectionSheetResponse represents a collection sheet in API responses
type CollectionSheetResponse struct {
	ID               uuid.UUID                      `json:"id"`
	SheetNumber      string                         `json:"sheet_number"`
	SettlementID     uuid.UUID                      `json:"settlement_id"`
	SettlementNumber string                         `json:"settlement_number"`
	DriverName       string                         `json:"driver_name,omitempty"`
	Status           dispatch.CollectionSheetStatus `json:"status"`
	Lines            []CollectionLineResponse       `json:"lines"`
	TotalCollected   decimal.Decimal                `json:"total_collected"`
	TotalPending     decimal.Decimal                `json:"total_pending"`
	TotalAssigned    decimal.Decimal                `json:"total_assigned"`
	TotalPaid        decimal.Decimal                `json:"total_paid"`
	TotalDeposited   decimal.Decimal                `json:"total_deposited"`
	TotalMissing     decimal.Decimal                `json:"total_missing"`
	PendingCount     int                            `json:"pending_count"`
	AssignedCount    int                            `json:"assigned_count"`
	PaidCount        int                            `json:"paid_count"`
	CancelledCount   int                            `json:"cancelled_count"`
	Notes            string                         `json:"notes,omitempty"`
	ValidatedAt      *time.Time                     `json:"validated_at,omitempty"`
	CancelledAt      *time.Time                     `json:"cancelled_at,omitempty"`
	CreatedAt        time.Time                      `json:"created_at"`
	UpdatedAt        time.Time                      `json:"updated_at"`
}

// ToCollectionSheetResponse converts a collection sheet aggregate to its API representation
func ToCollectionSheetResponse(sheet *dispatch.CollectionSheet) CollectionSheetResponse {
	lines := make([]CollectionLineResponse, len(sheet.Lines))
	for i, line := range sheet.Lines {
		lines[i] = CollectionLineResponse{
			ID:             line.ID,
			Amount:         line.Amount,
			CollectionType: line.CollectionType,
			PaymentMethod:  line.PaymentMethod,
			Status:         line.Status,
			InvoiceID:      line.InvoiceID,
			InvoiceNumber:  line.InvoiceNumber,
			PaymentID:      line.PaymentID,
			BankName:       line.BankName,
			BankReference:  line.BankReference,
			RegisteredAt:   line.RegisteredAt,
			AssignedAt:     line.AssignedAt,
		}
	}
	return CollectionSheetResponse{
		ID:               sheet.ID,
		SheetNumber:      sheet.SheetNumber,
		SettlementID:     sheet.SettlementID,
		SettlementNumber: sheet.SettlementNumber,
		DriverName:       sheet.DriverName,
		Status:           sheet.Status,
		Lines:            lines,
		TotalCollected:   sheet.TotalCollected,
		TotalPending:     sheet.TotalPending,
		TotalAssigned:    sheet.TotalAssigned,
		TotalPaid:        sheet.TotalPaid,
		TotalDeposited:   sheet.TotalDeposited,
		TotalMissing:     sheet.TotalMissing,
		PendingCount:     sheet.PendingCount,
		AssignedCount:    sheet.AssignedCount,
		PaidCount:        sheet.PaidCount,
		CancelledCount:   sheet.CancelledCount,
		Notes:            sheet.Notes,
		ValidatedAt:      sheet.ValidatedAt,
		CancelledAt:      sheet.CancelledAt,
		CreatedAt:        sheet.CreatedAt,
		UpdatedAt:        sheet.UpdatedAt,
	}
}
