// Package treasury orchestrates the settlement workflow: sheet lifecycle,
// settlement snapshots, submission and review, and the approval write-back.
package treasury

import (
	"context"
	"time"

	"github.com/almi/backend/internal/domain/accounting"
	"github.com/almi/backend/internal/domain/dispatch"
	"github.com/almi/backend/internal/domain/shared"
	"github.com/almi/backend/internal/domain/treasury"
	"github.com/google/uuid"
)

// SheetService handles settlement sheet operations
type SheetService struct {
	sheetRepo      treasury.SettlementSheetRepository
	settlementRepo treasury.SettlementRepository
	routeRepo      dispatch.RouteRepository
	accountingSvc  accounting.Service
	eventPublisher shared.EventPublisher
}

// NewSheetService creates a new SheetService
func NewSheetService(
	sheetRepo treasury.SettlementSheetRepository,
	settlementRepo treasury.SettlementRepository,
	routeRepo dispatch.RouteRepository,
	accountingSvc accounting.Service,
) *SheetService {
	return &SheetService{
		sheetRepo:      sheetRepo,
		settlementRepo: settlementRepo,
		routeRepo:      routeRepo,
		accountingSvc:  accountingSvc,
	}
}

// SetEventPublisher sets the event publisher for cross-context integration
func (s *SheetService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Create creates a new settlement sheet, optionally pre-loading invoices
func (s *SheetService) Create(ctx context.Context, tenantID uuid.UUID, req CreateSheetRequest) (*SheetResponse, error) {
	sheetNumber, err := s.sheetRepo.GenerateNumber(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	var sheetDate time.Time
	if req.SheetDate != nil {
		sheetDate = *req.SheetDate
	}
	sheet, err := treasury.NewSettlementSheet(tenantID, sheetNumber, sheetDate)
	if err != nil {
		return nil, err
	}
	sheet.Notes = req.Notes

	for _, invoiceID := range req.Invoices {
		if err := s.addInvoice(ctx, tenantID, sheet, invoiceID); err != nil {
			return nil, err
		}
	}

	if err := s.sheetRepo.Save(ctx, sheet); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, sheet)

	response := ToSheetResponse(sheet)
	return &response, nil
}

// GetByID retrieves a settlement sheet by ID
func (s *SheetService) GetByID(ctx context.Context, tenantID, sheetID uuid.UUID) (*SheetResponse, error) {
	sheet, err := s.sheetRepo.FindByIDForTenant(ctx, tenantID, sheetID)
	if err != nil {
		return nil, err
	}
	response := ToSheetResponse(sheet)
	return &response, nil
}

// List retrieves settlement sheets with filtering and pagination
func (s *SheetService) List(ctx context.Context, tenantID uuid.UUID, filter SheetListFilter) ([]SheetResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	repoFilter := treasury.SheetFilter{
		Filter:   shared.DefaultFilter(),
		Status:   filter.Status,
		RouteID:  filter.RouteID,
		FromDate: filter.FromDate,
		ToDate:   filter.ToDate,
	}
	repoFilter.Page = filter.Page
	repoFilter.PageSize = filter.PageSize
	repoFilter.Search = filter.Search

	sheets, err := s.sheetRepo.FindAllForTenant(ctx, tenantID, repoFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.sheetRepo.CountForTenant(ctx, tenantID, repoFilter)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]SheetResponse, len(sheets))
	for i := range sheets {
		responses[i] = ToSheetResponse(&sheets[i])
	}
	return responses, total, nil
}

// AddLine adds an invoice to a draft sheet
func (s *SheetService) AddLine(ctx context.Context, tenantID, sheetID uuid.UUID, req AddSheetLineRequest) (*SheetResponse, error) {
	sheet, err := s.sheetRepo.FindByIDForTenant(ctx, tenantID, sheetID)
	if err != nil {
		return nil, err
	}

	if err := s.addInvoice(ctx, tenantID, sheet, req.InvoiceID); err != nil {
		return nil, err
	}

	if err := s.sheetRepo.SaveWithLock(ctx, sheet); err != nil {
		return nil, err
	}

	response := ToSheetResponse(sheet)
	return &response, nil
}

// addInvoice resolves the invoice through accounting and enforces the
// one-active-sheet-per-invoice rule before handing it to the aggregate.
func (s *SheetService) addInvoice(ctx context.Context, tenantID uuid.UUID, sheet *treasury.SettlementSheet, invoiceID uuid.UUID) error {
	invoice, err := s.accountingSvc.GetInvoice(ctx, tenantID, invoiceID)
	if err != nil {
		return err
	}

	holder, err := s.sheetRepo.FindActiveByInvoice(ctx, tenantID, invoiceID)
	if err != nil && !shared.IsNotFound(err) {
		return err
	}
	if holder != nil && holder.ID != sheet.ID {
		return shared.NewDomainError("INVOICE_IN_ACTIVE_SHEET", "Invoice already belongs to sheet "+holder.SheetNumber)
	}

	_, err = sheet.AddLine(invoice)
	return err
}

// RemoveLine removes an invoice from a draft sheet
func (s *SheetService) RemoveLine(ctx context.Context, tenantID, sheetID, lineID uuid.UUID) (*SheetResponse, error) {
	return s.mutate(ctx, tenantID, sheetID, func(sheet *treasury.SettlementSheet) error {
		return sheet.RemoveLine(lineID)
	})
}

// Confirm confirms a draft sheet
func (s *SheetService) Confirm(ctx context.Context, tenantID, sheetID uuid.UUID) (*SheetResponse, error) {
	return s.mutate(ctx, tenantID, sheetID, func(sheet *treasury.SettlementSheet) error {
		return sheet.Confirm()
	})
}

// AssignRoute binds a confirmed sheet to a dispatch route
func (s *SheetService) AssignRoute(ctx context.Context, tenantID, sheetID uuid.UUID, req AssignRouteRequest) (*SheetResponse, error) {
	route, err := s.routeRepo.FindByIDForTenant(ctx, tenantID, req.RouteID)
	if err != nil {
		return nil, err
	}
	if route.Status == dispatch.RouteStatusCompleted || route.Status == dispatch.RouteStatusCancelled {
		return nil, shared.NewDomainError("INVALID_STATE", "Cannot assign a sheet to a finished route")
	}

	return s.mutate(ctx, tenantID, sheetID, func(sheet *treasury.SettlementSheet) error {
		return sheet.AssignRoute(route.ID, route.RouteNumber, route.DriverName)
	})
}

// MarkInRoute marks a sheet as out on its route
func (s *SheetService) MarkInRoute(ctx context.Context, tenantID, sheetID uuid.UUID) (*SheetResponse, error) {
	return s.mutate(ctx, tenantID, sheetID, func(sheet *treasury.SettlementSheet) error {
		return sheet.MarkInRoute()
	})
}

// RecordLineCollection records a driver's collection result on a sheet line
func (s *SheetService) RecordLineCollection(ctx context.Context, tenantID, sheetID, lineID uuid.UUID, req RecordCollectionRequest) (*SheetResponse, error) {
	return s.mutate(ctx, tenantID, sheetID, func(sheet *treasury.SettlementSheet) error {
		return sheet.RecordLineCollection(lineID, req.AmountCollected, req.DeliveryStatus, req.PaymentMethod, req.PaymentReference)
	})
}

// Close closes a settled sheet. Requires an approved settlement.
func (s *SheetService) Close(ctx context.Context, tenantID, sheetID uuid.UUID) (*SheetResponse, error) {
	approved, err := s.settlementRepo.CountBySheetAndStatus(ctx, tenantID, sheetID, treasury.SettlementStatusApproved)
	if err != nil {
		return nil, err
	}

	return s.mutate(ctx, tenantID, sheetID, func(sheet *treasury.SettlementSheet) error {
		return sheet.Close(approved > 0)
	})
}

// Cancel cancels a sheet unless an approved settlement exists
func (s *SheetService) Cancel(ctx context.Context, tenantID, sheetID uuid.UUID, req CancelRequest) (*SheetResponse, error) {
	approved, err := s.settlementRepo.CountBySheetAndStatus(ctx, tenantID, sheetID, treasury.SettlementStatusApproved)
	if err != nil {
		return nil, err
	}

	return s.mutate(ctx, tenantID, sheetID, func(sheet *treasury.SettlementSheet) error {
		return sheet.Cancel(req.Reason, approved > 0)
	})
}

// ResetToDraft reopens a confirmed or cancelled sheet with no settlements yet
func (s *SheetService) ResetToDraft(ctx context.Context, tenantID, sheetID uuid.UUID) (*SheetResponse, error) {
	settlements, err := s.settlementRepo.FindBySheet(ctx, tenantID, sheetID)
	if err != nil {
		return nil, err
	}

	return s.mutate(ctx, tenantID, sheetID, func(sheet *treasury.SettlementSheet) error {
		return sheet.ResetToDraft(len(settlements) > 0)
	})
}

// mutate loads the sheet, applies the mutation and saves with optimistic locking
func (s *SheetService) mutate(ctx context.Context, tenantID, sheetID uuid.UUID, fn func(*treasury.SettlementSheet) error) (*SheetResponse, error) {
	sheet, err := s.sheetRepo.FindByIDForTenant(ctx, tenantID, sheetID)
	if err != nil {
		return nil, err
	}

	if err := fn(sheet); err != nil {
		return nil, err
	}

	if err := s.sheetRepo.SaveWithLock(ctx, sheet); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, sheet)

	response := ToSheetResponse(sheet)
	return &response, nil
}

func (s *SheetService) publishEvents(ctx context.Context, sheet *treasury.SettlementSheet) {
	if s.eventPublisher == nil {
		return
	}
	events := sheet.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	// Event delivery is best effort; the state change already committed
	_ = s.eventPublisher.Publish(ctx, events...)
	sheet.ClearDomainEvents()
}
