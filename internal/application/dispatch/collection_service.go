package dispatch

import (
	"context"
	"time"

	"github.com/almi/backend/internal/domain/accounting"
	"github.com/almi/backend/internal/domain/dispatch"
	"github.com/almi/backend/internal/domain/shared"
	"github.com/almi/backend/internal/domain/shared/valueobject"
	"github.com/almi/backend/internal/domain/treasury"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CollectionService handles driver collection sheets: registering collected
// money, linking it to settled invoices and pushing payments into accounting
type CollectionService struct {
	collectionRepo dispatch.CollectionSheetRepository
	settlementRepo treasury.SettlementRepository
	accountingSvc  accounting.Service
	txManager      shared.TransactionManager
	logger         *zap.Logger
}

// NewCollectionService creates a new CollectionService
func NewCollectionService(
	collectionRepo dispatch.CollectionSheetRepository,
	settlementRepo treasury.SettlementRepository,
	accountingSvc accounting.Service,
	txManager shared.TransactionManager,
	logger *zap.Logger,
) *CollectionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CollectionService{
		collectionRepo: collectionRepo,
		settlementRepo: settlementRepo,
		accountingSvc:  accountingSvc,
		txManager:      txManager,
		logger:         logger,
	}
}

// CreateSheet opens a collection sheet for a settlement. A settlement holds
// at most one collection sheet.
func (s *CollectionService) CreateSheet(ctx context.Context, tenantID uuid.UUID, req CreateCollectionSheetRequest) (*CollectionSheetResponse, error) {
	settlement, err := s.settlementRepo.FindByIDForTenant(ctx, tenantID, req.SettlementID)
	if err != nil {
		return nil, err
	}

	existing, err := s.collectionRepo.FindBySettlement(ctx, tenantID, settlement.ID)
	if err != nil && !shared.IsNotFound(err) {
		return nil, err
	}
	if existing != nil {
		return nil, shared.NewDomainError("COLLECTION_SHEET_EXISTS",
			"Settlement "+settlement.SettlementNumber+" already has a collection sheet")
	}

	sheetNumber, err := s.collectionRepo.GenerateNumber(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	sheet, err := dispatch.NewCollectionSheet(tenantID, sheetNumber, settlement.ID, settlement.SettlementNumber, settlement.DriverName)
	if err != nil {
		return nil, err
	}
	sheet.Notes = req.Notes

	if err := s.collectionRepo.Save(ctx, sheet); err != nil {
		return nil, err
	}

	response := ToCollectionSheetResponse(sheet)
	return &response, nil
}

// GetByID retrieves a collection sheet by ID
func (s *CollectionService) GetByID(ctx context.Context, tenantID, sheetID uuid.UUID) (*CollectionSheetResponse, error) {
	sheet, err := s.collectionRepo.FindByIDForTenant(ctx, tenantID, sheetID)
	if err != nil {
		return nil, err
	}
	response := ToCollectionSheetResponse(sheet)
	return &response, nil
}

// List retrieves collection sheets with filtering and pagination
func (s *CollectionService) List(ctx context.Context, tenantID uuid.UUID, filter CollectionSheetListFilter) ([]CollectionSheetResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	repoFilter := dispatch.CollectionSheetFilter{
		Filter:       shared.DefaultFilter(),
		Status:       filter.Status,
		SettlementID: filter.SettlementID,
	}
	repoFilter.Page = filter.Page
	repoFilter.PageSize = filter.PageSize
	repoFilter.Search = filter.Search

	sheets, err := s.collectionRepo.FindAllForTenant(ctx, tenantID, repoFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.collectionRepo.CountForTenant(ctx, tenantID, repoFilter)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]CollectionSheetResponse, len(sheets))
	for i := range sheets {
		responses[i] = ToCollectionSheetResponse(&sheets[i])
	}
	return responses, total, nil
}

// AddLine registers a collected amount on a draft sheet
func (s *CollectionService) AddLine(ctx context.Context, tenantID, sheetID uuid.UUID, req AddCollectionLineRequest) (*CollectionSheetResponse, error) {
	return s.mutate(ctx, tenantID, sheetID, func(sheet *dispatch.CollectionSheet) error {
		_, err := sheet.AddLine(req.Amount, req.CollectionType, req.PaymentMethod, req.BankName, req.BankReference)
		return err
	})
}

// RemoveLine removes an unassigned line from a draft sheet
func (s *CollectionService) RemoveLine(ctx context.Context, tenantID, sheetID, lineID uuid.UUID) (*CollectionSheetResponse, error) {
	return s.mutate(ctx, tenantID, sheetID, func(sheet *dispatch.CollectionSheet) error {
		return sheet.RemoveLine(lineID)
	})
}

// AssignLine links a pending line to an invoice of the sheet's settlement
// and registers the payment in accounting. The invoice must belong to the
// settlement, and the line amount must fit the invoice's residual. Payment
// creation and the line transition commit as one unit.
func (s *CollectionService) AssignLine(ctx context.Context, tenantID, lineID uuid.UUID, req AssignLineRequest) (*CollectionSheetResponse, error) {
	var sheet *dispatch.CollectionSheet

	err := s.txManager.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		sheet, err = s.collectionRepo.FindByLine(ctx, tenantID, lineID)
		if err != nil {
			return err
		}
		line := sheet.FindLine(lineID)
		if line == nil {
			return shared.ErrNotFound
		}

		settlement, err := s.settlementRepo.FindByIDForTenant(ctx, tenantID, sheet.SettlementID)
		if err != nil {
			return err
		}
		if !settlementCoversInvoice(settlement, req.InvoiceID) {
			return shared.NewDomainError("INVOICE_NOT_IN_SETTLEMENT",
				"Invoice does not belong to settlement "+settlement.SettlementNumber)
		}

		invoice, err := s.accountingSvc.GetInvoice(ctx, tenantID, req.InvoiceID)
		if err != nil {
			return err
		}
		if err := line.ValidateAssignment(invoice); err != nil {
			return err
		}

		payment, err := s.accountingSvc.CreatePayment(ctx, accounting.CreatePaymentRequest{
			TenantID:  tenantID,
			InvoiceID: invoice.ID,
			Amount:    valueobject.NewMoneyPEN(line.Amount),
			Method:    line.PaymentMethod,
			Reference: line.BankReference,
			PaidAt:    time.Now(),
		})
		if err != nil {
			return err
		}
		if _, err := s.accountingSvc.PostPayment(ctx, tenantID, payment.ID); err != nil {
			return err
		}

		if err := sheet.AssignLine(lineID, invoice, payment.ID); err != nil {
			return err
		}
		return s.collectionRepo.SaveWithLock(ctx, sheet)
	})
	if err != nil {
		return nil, err
	}

	response := ToCollectionSheetResponse(sheet)
	return &response, nil
}

// CancelAssignment unlinks a line from its invoice and cancels the payment
// in accounting. Paid lines stay linked.
func (s *CollectionService) CancelAssignment(ctx context.Context, tenantID, lineID uuid.UUID) (*CollectionSheetResponse, error) {
	var sheet *dispatch.CollectionSheet

	err := s.txManager.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		sheet, err = s.collectionRepo.FindByLine(ctx, tenantID, lineID)
		if err != nil {
			return err
		}
		line := sheet.FindLine(lineID)
		if line == nil {
			return shared.ErrNotFound
		}
		paymentID := line.PaymentID

		if err := sheet.CancelLineAssignment(lineID); err != nil {
			return err
		}

		if paymentID != nil {
			if err := s.accountingSvc.CancelPayment(ctx, tenantID, *paymentID); err != nil {
				return err
			}
		}
		return s.collectionRepo.SaveWithLock(ctx, sheet)
	})
	if err != nil {
		return nil, err
	}

	response := ToCollectionSheetResponse(sheet)
	return &response, nil
}

// CancelLine voids a pending line
func (s *CollectionService) CancelLine(ctx context.Context, tenantID, sheetID, lineID uuid.UUID) (*CollectionSheetResponse, error) {
	return s.mutate(ctx, tenantID, sheetID, func(sheet *dispatch.CollectionSheet) error {
		return sheet.CancelLine(lineID)
	})
}

// ResetLine returns a cancelled line to pending
func (s *CollectionService) ResetLine(ctx context.Context, tenantID, sheetID, lineID uuid.UUID) (*CollectionSheetResponse, error) {
	return s.mutate(ctx, tenantID, sheetID, func(sheet *dispatch.CollectionSheet) error {
		return sheet.ResetLine(lineID)
	})
}

// Validate closes a collection sheet once every line is resolved
func (s *CollectionService) Validate(ctx context.Context, tenantID, sheetID uuid.UUID) (*CollectionSheetResponse, error) {
	resp, err := s.mutate(ctx, tenantID, sheetID, func(sheet *dispatch.CollectionSheet) error {
		return sheet.Validate()
	})
	if err != nil {
		return nil, err
	}
	if resp.TotalMissing.IsPositive() {
		s.logger.Warn("validated collection sheet with undeposited cash",
			zap.String("sheet_number", resp.SheetNumber),
			zap.String("total_missing", resp.TotalMissing.String()))
	}
	return resp, nil
}

// CancelSheet cancels a collection sheet with no paid lines
func (s *CollectionService) CancelSheet(ctx context.Context, tenantID, sheetID uuid.UUID) (*CollectionSheetResponse, error) {
	return s.mutate(ctx, tenantID, sheetID, func(sheet *dispatch.CollectionSheet) error {
		return sheet.Cancel()
	})
}

// ResetSheet returns a validated or cancelled sheet to draft
func (s *CollectionService) ResetSheet(ctx context.Context, tenantID, sheetID uuid.UUID) (*CollectionSheetResponse, error) {
	return s.mutate(ctx, tenantID, sheetID, func(sheet *dispatch.CollectionSheet) error {
		return sheet.ResetToDraft()
	})
}

func (s *CollectionService) mutate(ctx context.Context, tenantID, sheetID uuid.UUID, fn func(*dispatch.CollectionSheet) error) (*CollectionSheetResponse, error) {
	sheet, err := s.collectionRepo.FindByIDForTenant(ctx, tenantID, sheetID)
	if err != nil {
		return nil, err
	}
	if err := fn(sheet); err != nil {
		return nil, err
	}
	if err := s.collectionRepo.SaveWithLock(ctx, sheet); err != nil {
		return nil, err
	}
	response := ToCollectionSheetResponse(sheet)
	return &response, nil
}

func settlementCoversInvoice(settlement *treasury.Settlement, invoiceID uuid.UUID) bool {
	for _, line := range settlement.Lines {
		if line.InvoiceID == invoiceID {
			return true
		}
	}
	return false
}
