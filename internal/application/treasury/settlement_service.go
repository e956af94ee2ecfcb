package treasury

import (
	"context"

	"github.com/almi/backend/internal/domain/shared"
	"github.com/almi/backend/internal/domain/treasury"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SettlementService handles the settlement review workflow
type SettlementService struct {
	settlementRepo treasury.SettlementRepository
	sheetRepo      treasury.SettlementSheetRepository
	txManager      shared.TransactionManager
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewSettlementService creates a new SettlementService
func NewSettlementService(
	settlementRepo treasury.SettlementRepository,
	sheetRepo treasury.SettlementSheetRepository,
	txManager shared.TransactionManager,
	logger *zap.Logger,
) *SettlementService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettlementService{
		settlementRepo: settlementRepo,
		sheetRepo:      sheetRepo,
		txManager:      txManager,
		logger:         logger,
	}
}

// SetEventPublisher sets the event publisher for cross-context integration
func (s *SettlementService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// CreateFromSheet snapshots an in-route sheet into a new settlement
func (s *SettlementService) CreateFromSheet(ctx context.Context, tenantID, sheetID uuid.UUID) (*SettlementResponse, error) {
	sheet, err := s.sheetRepo.FindByIDForTenant(ctx, tenantID, sheetID)
	if err != nil {
		return nil, err
	}

	settlementNumber, err := s.settlementRepo.GenerateNumber(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	settlement, err := treasury.NewSettlementFromSheet(tenantID, settlementNumber, sheet)
	if err != nil {
		return nil, err
	}

	if err := s.settlementRepo.Save(ctx, settlement); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, settlement)

	response := ToSettlementResponse(settlement)
	return &response, nil
}

// GetByID retrieves a settlement by ID
func (s *SettlementService) GetByID(ctx context.Context, tenantID, settlementID uuid.UUID) (*SettlementResponse, error) {
	settlement, err := s.settlementRepo.FindByIDForTenant(ctx, tenantID, settlementID)
	if err != nil {
		return nil, err
	}
	response := ToSettlementResponse(settlement)
	return &response, nil
}

// List retrieves settlements with filtering and pagination
func (s *SettlementService) List(ctx context.Context, tenantID uuid.UUID, filter SettlementListFilter) ([]SettlementResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	repoFilter := treasury.SettlementFilter{
		Filter:   shared.DefaultFilter(),
		Status:   filter.Status,
		SheetID:  filter.SheetID,
		FromDate: filter.FromDate,
		ToDate:   filter.ToDate,
	}
	repoFilter.Page = filter.Page
	repoFilter.PageSize = filter.PageSize
	repoFilter.Search = filter.Search

	settlements, err := s.settlementRepo.FindAllForTenant(ctx, tenantID, repoFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.settlementRepo.CountForTenant(ctx, tenantID, repoFilter)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]SettlementResponse, len(settlements))
	for i := range settlements {
		responses[i] = ToSettlementResponse(&settlements[i])
	}
	return responses, total, nil
}

// RecordLineResult records the reconciliation result for one invoice of a
// draft settlement
func (s *SettlementService) RecordLineResult(ctx context.Context, tenantID, settlementID, lineID uuid.UUID, req RecordLineResultRequest) (*SettlementResponse, error) {
	settlement, err := s.settlementRepo.FindByIDForTenant(ctx, tenantID, settlementID)
	if err != nil {
		return nil, err
	}

	if err := settlement.RecordLineResult(lineID, req.AmountCollected, req.DeliveryStatus, req.PaymentMethod, req.PaymentReference); err != nil {
		return nil, err
	}

	if line := settlement.FindLine(lineID); line != nil && line.UnderCollectionFlagged() {
		s.logger.Warn("invoice delivered with nothing collected",
			zap.String("settlement_number", settlement.SettlementNumber),
			zap.String("invoice_number", line.InvoiceNumber))
	}

	if err := s.settlementRepo.SaveWithLock(ctx, settlement); err != nil {
		return nil, err
	}

	response := ToSettlementResponse(settlement)
	return &response, nil
}

// Submit submits a settlement for review. The parent sheet leaves its route
// in the same transaction.
func (s *SettlementService) Submit(ctx context.Context, tenantID, settlementID uuid.UUID, actor treasury.Actor) (*SettlementResponse, error) {
	var settlement *treasury.Settlement

	err := s.txManager.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		settlement, err = s.settlementRepo.FindByIDForTenant(ctx, tenantID, settlementID)
		if err != nil {
			return err
		}

		if err := settlement.Submit(actor); err != nil {
			return err
		}

		sheet, err := s.sheetRepo.FindByIDForTenant(ctx, tenantID, settlement.SheetID)
		if err != nil {
			return err
		}
		if sheet.Status == treasury.SheetStatusInRoute {
			if err := sheet.MarkSettled(); err != nil {
				return err
			}
			if err := s.sheetRepo.SaveWithLock(ctx, sheet); err != nil {
				return err
			}
		}

		return s.settlementRepo.SaveWithLock(ctx, settlement)
	})
	if err != nil {
		return nil, err
	}
	s.publishEvents(ctx, settlement)

	response := ToSettlementResponse(settlement)
	return &response, nil
}

// Approve approves a submitted settlement and writes every line's result
// back onto the originating sheet. Transition and propagation commit as one
// unit; any failure leaves both aggregates untouched.
func (s *SettlementService) Approve(ctx context.Context, tenantID, settlementID uuid.UUID, actor treasury.Actor) (*SettlementResponse, error) {
	var settlement *treasury.Settlement

	err := s.txManager.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		settlement, err = s.settlementRepo.FindByIDForTenant(ctx, tenantID, settlementID)
		if err != nil {
			return err
		}

		if err := settlement.Approve(actor); err != nil {
			return err
		}

		sheet, err := s.sheetRepo.FindByIDForTenant(ctx, tenantID, settlement.SheetID)
		if err != nil {
			return err
		}
		for _, line := range settlement.Lines {
			if err := sheet.ApplySettlementResult(line.InvoiceID, line.AmountCollected, line.DeliveryStatus, line.PaymentMethod, line.PaymentReference); err != nil {
				return err
			}
		}

		if err := s.sheetRepo.SaveWithLock(ctx, sheet); err != nil {
			return err
		}
		return s.settlementRepo.SaveWithLock(ctx, settlement)
	})
	if err != nil {
		return nil, err
	}

	for _, line := range settlement.UnderCollectedLines() {
		s.logger.Warn("approved settlement carries delivered invoice with nothing collected",
			zap.String("settlement_number", settlement.SettlementNumber),
			zap.String("invoice_number", line.InvoiceNumber))
	}
	s.publishEvents(ctx, settlement)

	response := ToSettlementResponse(settlement)
	return &response, nil
}

// Reject rejects a submitted settlement with a mandatory reason
func (s *SettlementService) Reject(ctx context.Context, tenantID, settlementID uuid.UUID, actor treasury.Actor, req RejectSettlementRequest) (*SettlementResponse, error) {
	settlement, err := s.settlementRepo.FindByIDForTenant(ctx, tenantID, settlementID)
	if err != nil {
		return nil, err
	}

	if err := settlement.Reject(actor, req.Reason); err != nil {
		return nil, err
	}

	if err := s.settlementRepo.SaveWithLock(ctx, settlement); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, settlement)

	response := ToSettlementResponse(settlement)
	return &response, nil
}

// ResetToDraft returns a rejected settlement to draft, or pulls back a
// submitted one when the actor holds the reviewer role
func (s *SettlementService) ResetToDraft(ctx context.Context, tenantID, settlementID uuid.UUID, actor treasury.Actor) (*SettlementResponse, error) {
	settlement, err := s.settlementRepo.FindByIDForTenant(ctx, tenantID, settlementID)
	if err != nil {
		return nil, err
	}

	if err := settlement.ResetToDraft(actor); err != nil {
		return nil, err
	}

	if err := s.settlementRepo.SaveWithLock(ctx, settlement); err != nil {
		return nil, err
	}

	response := ToSettlementResponse(settlement)
	return &response, nil
}

func (s *SettlementService) publishEvents(ctx context.Context, settlement *treasury.Settlement) {
	if s.eventPublisher == nil {
		return
	}
	events := settlement.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	// Event delivery is best effort; the state change already committed
	_ = s.eventPublisher.Publish(ctx, events...)
	settlement.ClearDomainEvents()
}
