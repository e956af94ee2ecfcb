package treasury

import (
	"time"

	"github.com/almi/backend/internal/domain/accounting"
	"github.com/almi/backend/internal/domain/treasury"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ==================== Settlement Sheet DTOs ====================

// CreateSheetRequest represents a request to create a settlement sheet
type CreateSheetRequest struct {
	SheetDate *time.Time  `json:"sheet_date"`
	Notes     string      `json:"notes"`
	Invoices  []uuid.UUID `json:"invoices"`
}

// AddSheetLineRequest represents a request to add an invoice to a sheet
type AddSheetLineRequest struct {
	InvoiceID uuid.UUID `json:"invoice_id" binding:"required"`
}

// AssignRouteRequest represents a request to bind a sheet to a route
type AssignRouteRequest struct {
	RouteID uuid.UUID `json:"route_id" binding:"required"`
}

// RecordCollectionRequest represents a driver's per-invoice collection result
type RecordCollectionRequest struct {
	AmountCollected  decimal.Decimal          `json:"amount_collected"`
	DeliveryStatus   treasury.DeliveryStatus  `json:"delivery_status" binding:"required"`
	PaymentMethod    accounting.PaymentMethod `json:"payment_method"`
	PaymentReference string                   `json:"payment_reference"`
}

// CancelRequest carries the reason for cancelling a sheet
type CancelRequest struct {
	Reason string `json:"reason" binding:"required,min=1,max=255"`
}

// SheetListFilter represents filter options for the sheet list
type SheetListFilter struct {
	Status   *treasury.SheetStatus `form:"status"`
	RouteID  *uuid.UUID            `form:"route_id"`
	FromDate *time.Time            `form:"from_date" time_format:"2006-01-02"`
	ToDate   *time.Time            `form:"to_date" time_format:"2006-01-02"`
	Search   string                `form:"search"`
	Page     int                   `form:"page"`
	PageSize int                   `form:"page_size"`
}

// SheetLineResponse represents a sheet line in API responses
type SheetLineResponse struct {
	ID               uuid.UUID                 `json:"id"`
	InvoiceID        uuid.UUID                 `json:"invoice_id"`
	InvoiceNumber    string                    `json:"invoice_number"`
	PartnerName      string                    `json:"partner_name"`
	AmountTotal      decimal.Decimal           `json:"amount_total"`
	AmountCollected  decimal.Decimal           `json:"amount_collected"`
	AmountPending    decimal.Decimal           `json:"amount_pending"`
	DeliveryStatus   treasury.DeliveryStatus   `json:"delivery_status"`
	CollectionStatus treasury.CollectionStatus `json:"collection_status"`
	PaymentMethod    accounting.PaymentMethod  `json:"payment_method,omitempty"`
	PaymentReference string                    `json:"payment_reference,omitempty"`
	DeliveryNotes    string                    `json:"delivery_notes,omitempty"`
}

// SheetResponse represents a settlement sheet in API responses
type SheetResponse struct {
	ID                uuid.UUID            `json:"id"`
	SheetNumber       string               `json:"sheet_number"`
	Status            treasury.SheetStatus `json:"status"`
	RouteID           *uuid.UUID           `json:"route_id,omitempty"`
	RouteNumber       string               `json:"route_number,omitempty"`
	DriverName        string               `json:"driver_name,omitempty"`
	SheetDate         time.Time            `json:"sheet_date"`
	Lines             []SheetLineResponse  `json:"lines"`
	TotalAmount       decimal.Decimal      `json:"total_amount"`
	TotalCollected    decimal.Decimal      `json:"total_collected"`
	TotalPending      decimal.Decimal      `json:"total_pending"`
	DeliveredCount    int                  `json:"delivered_count"`
	NotDeliveredCount int                  `json:"not_delivered_count"`
	PendingCount      int                  `json:"pending_count"`
	Notes             string               `json:"notes,omitempty"`
	ConfirmedAt       *time.Time           `json:"confirmed_at,omitempty"`
	SettledAt         *time.Time           `json:"settled_at,omitempty"`
	ClosedAt          *time.Time           `json:"closed_at,omitempty"`
	CancelledAt       *time.Time           `json:"cancelled_at,omitempty"`
	CancelReason      string               `json:"cancel_reason,omitempty"`
	CreatedAt         time.Time            `json:"created_at"`
	UpdatedAt         time.Time            `json:"updated_at"`
}

// ToSheetResponse converts a sheet aggregate to its API representation
func ToSheetResponse(sheet *treasury.SettlementSheet) SheetResponse {
	lines := make([]SheetLineResponse, len(sheet.Lines))
	for i, line := range sheet.Lines {
		lines[i] = SheetLineResponse{
			ID:               line.ID,
			InvoiceID:        line.InvoiceID,
			InvoiceNumber:    line.InvoiceNumber,
			PartnerName:      line.PartnerName,
			AmountTotal:      line.AmountTotal,
			AmountCollected:  line.AmountCollected,
			AmountPending:    line.AmountPending(),
			DeliveryStatus:   line.DeliveryStatus,
			CollectionStatus: line.CollectionStatus,
			PaymentMethod:    line.PaymentMethod,
			PaymentReference: line.PaymentReference,
			DeliveryNotes:    line.DeliveryNotes,
		}
	}

	return SheetResponse{
		ID:                sheet.ID,
		SheetNumber:       sheet.SheetNumber,
		Status:            sheet.Status,
		RouteID:           sheet.RouteID,
		RouteNumber:       sheet.RouteNumber,
		DriverName:        sheet.DriverName,
		SheetDate:         sheet.SheetDate,
		Lines:             lines,
		TotalAmount:       sheet.TotalAmount,
		TotalCollected:    sheet.TotalCollected,
		TotalPending:      sheet.TotalPending,
		DeliveredCount:    sheet.DeliveredCount,
		NotDeliveredCount: sheet.NotDeliveredCount,
		PendingCount:      sheet.PendingCount,
		Notes:             sheet.Notes,
		ConfirmedAt:       sheet.ConfirmedAt,
		SettledAt:         sheet.SettledAt,
		ClosedAt:          sheet.ClosedAt,
		CancelledAt:       sheet.CancelledAt,
		CancelReason:      sheet.CancelReason,
		CreatedAt:         sheet.CreatedAt,
		UpdatedAt:         sheet.UpdatedAt,
	}
}

// ==================== Settlement DTOs ====================

// RecordLineResultRequest represents the reconciliation result for one invoice
type RecordLineResultRequest struct {
	AmountCollected  decimal.Decimal          `json:"amount_collected"`
	DeliveryStatus   treasury.DeliveryStatus  `json:"delivery_status" binding:"required"`
	PaymentMethod    accounting.PaymentMethod `json:"payment_method"`
	PaymentReference string                   `json:"payment_reference"`
}

// RejectSettlementRequest carries the mandatory rejection reason
type RejectSettlementRequest struct {
	Reason string `json:"reason" binding:"required,min=1,max=500"`
}

// SettlementListFilter represents filter options for the settlement list
type SettlementListFilter struct {
	Status   *treasury.SettlementStatus `form:"status"`
	SheetID  *uuid.UUID                 `form:"sheet_id"`
	FromDate *time.Time                 `form:"from_date" time_format:"2006-01-02"`
	ToDate   *time.Time                 `form:"to_date" time_format:"2006-01-02"`
	Search   string                     `form:"search"`
	Page     int                        `form:"page"`
	PageSize int                        `form:"page_size"`
}

// SettlementLineResponse represents a settlement line in API responses
type SettlementLineResponse struct {
	ID               uuid.UUID                `json:"id"`
	SheetLineID      uuid.UUID                `json:"sheet_line_id"`
	InvoiceID        uuid.UUID                `json:"invoice_id"`
	InvoiceNumber    string                   `json:"invoice_number"`
	PartnerName      string                   `json:"partner_name"`
	AmountInvoice    decimal.Decimal          `json:"amount_invoice"`
	AmountCollected  decimal.Decimal          `json:"amount_collected"`
	Difference       decimal.Decimal          `json:"difference"`
	DeliveryStatus   treasury.DeliveryStatus  `json:"delivery_status"`
	PaymentMethod    accounting.PaymentMethod `json:"payment_method,omitempty"`
	PaymentReference string                   `json:"payment_reference,omitempty"`
	UnderCollected   bool                     `json:"under_collected"`
}

// SettlementResponse represents a settlement in API responses
type SettlementResponse struct {
	ID                uuid.UUID                 `json:"id"`
	SettlementNumber  string                    `json:"settlement_number"`
	SheetID           uuid.UUID                 `json:"sheet_id"`
	SheetNumber       string                    `json:"sheet_number"`
	RouteNumber       string                    `json:"route_number,omitempty"`
	DriverName        string                    `json:"driver_name,omitempty"`
	Status            treasury.SettlementStatus `json:"status"`
	Lines             []SettlementLineResponse  `json:"lines"`
	TotalToCollect    decimal.Decimal           `json:"total_to_collect"`
	TotalCollected    decimal.Decimal           `json:"total_collected"`
	Difference        decimal.Decimal           `json:"difference"`
	CollectionRate    decimal.Decimal           `json:"collection_rate"`
	DeliveredCount    int                       `json:"delivered_count"`
	NotDeliveredCount int                       `json:"not_delivered_count"`
	DeliveryRate      decimal.Decimal           `json:"delivery_rate"`
	Notes             string                    `json:"notes,omitempty"`
	SubmittedAt       *time.Time                `json:"submitted_at,omitempty"`
	SubmittedByName   string                    `json:"submitted_by_name,omitempty"`
	ReviewedAt        *time.Time                `json:"reviewed_at,omitempty"`
	ReviewedByName    string                    `json:"reviewed_by_name,omitempty"`
	RejectionReason   string                    `json:"rejection_reason,omitempty"`
	CreatedAt         time.Time                 `json:"created_at"`
	UpdatedAt         time.Time                 `json:"updated_at"`
}

// ToSettlementResponse converts a settlement aggregate to its API representation
func ToSettlementResponse(s *treasury.Settlement) SettlementResponse {
	lines := make([]SettlementLineResponse, len(s.Lines))
	for i, line := range s.Lines {
		lines[i] = SettlementLineResponse{
			ID:               line.ID,
			SheetLineID:      line.SheetLineID,
			InvoiceID:        line.InvoiceID,
			InvoiceNumber:    line.InvoiceNumber,
			PartnerName:      line.PartnerName,
			AmountInvoice:    line.AmountInvoice,
			AmountCollected:  line.AmountCollected,
			Difference:       line.Difference(),
			DeliveryStatus:   line.DeliveryStatus,
			PaymentMethod:    line.PaymentMethod,
			PaymentReference: line.PaymentReference,
			UnderCollected:   line.UnderCollectionFlagged(),
		}
	}

	return SettlementResponse{
		ID:                s.ID,
		SettlementNumber:  s.SettlementNumber,
		SheetID:           s.SheetID,
		SheetNumber:       s.SheetNumber,
		RouteNumber:       s.RouteNumber,
		DriverName:        s.DriverName,
		Status:            s.Status,
		Lines:             lines,
		TotalToCollect:    s.TotalToCollect,
		TotalCollected:    s.TotalCollected,
		Difference:        s.Difference,
		CollectionRate:    s.CollectionRate,
		DeliveredCount:    s.DeliveredCount,
		NotDeliveredCount: s.NotDeliveredCount,
		DeliveryRate:      s.DeliveryRate,
		Notes:             s.Notes,
		SubmittedAt:       s.SubmittedAt,
		SubmittedByName:   s.SubmittedByName,
		ReviewedAt:        s.ReviewedAt,
		ReviewedByName:    s.ReviewedByName,
		RejectionReason:   s.RejectionReason,
		CreatedAt:         s.CreatedAt,
		UpdatedAt:         s.UpdatedAt,
	}
}
