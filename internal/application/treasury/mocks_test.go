package treasury

import (
	"context"

	"github.com/almi/backend/internal/domain/accounting"
	"github.com/almi/backend/internal/domain/dispatch"
	"github.com/almi/backend/internal/domain/treasury"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockSheetRepository is a mock implementation of SettlementSheetRepository
type MockSheetRepository struct {
	mock.Mock
}

func (m *MockSheetRepository) FindByID(ctx context.Context, id uuid.UUID) (*treasury.SettlementSheet, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*treasury.SettlementSheet), args.Error(1)
}

func (m *MockSheetRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*treasury.SettlementSheet, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*treasury.SettlementSheet), args.Error(1)
}

func (m *MockSheetRepository) FindByNumber(ctx context.Context, tenantID uuid.UUID, sheetNumber string) (*treasury.SettlementSheet, error) {
	args := m.Called(ctx, tenantID, sheetNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*treasury.SettlementSheet), args.Error(1)
}

func (m *MockSheetRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter treasury.SheetFilter) ([]treasury.SettlementSheet, error) {
	args := m.Called(ctx, tenantID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]treasury.SettlementSheet), args.Error(1)
}

func (m *MockSheetRepository) FindActiveByInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) (*treasury.SettlementSheet, error) {
	args := m.Called(ctx, tenantID, invoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*treasury.SettlementSheet), args.Error(1)
}

func (m *MockSheetRepository) Save(ctx context.Context, sheet *treasury.SettlementSheet) error {
	args := m.Called(ctx, sheet)
	return args.Error(0)
}

func (m *MockSheetRepository) SaveWithLock(ctx context.Context, sheet *treasury.SettlementSheet) error {
	args := m.Called(ctx, sheet)
	return args.Error(0)
}

func (m *MockSheetRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	args := m.Called(ctx, tenantID, id)
	return args.Error(0)
}

func (m *MockSheetRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter treasury.SheetFilter) (int64, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSheetRepository) GenerateNumber(ctx context.Context, tenantID uuid.UUID) (string, error) {
	args := m.Called(ctx, tenantID)
	return args.String(0), args.Error(1)
}

// MockSettlementRepository is a mock implementation of SettlementRepository
type MockSettlementRepository struct {
	mock.Mock
}

func (m *MockSettlementRepository) FindByID(ctx context.Context, id uuid.UUID) (*treasury.Settlement, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*treasury.Settlement), args.Error(1)
}

func (m *MockSettlementRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*treasury.Settlement, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*treasury.Settlement), args.Error(1)
}

func (m *MockSettlementRepository) FindByNumber(ctx context.Context, tenantID uuid.UUID, settlementNumber string) (*treasury.Settlement, error) {
	args := m.Called(ctx, tenantID, settlementNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*treasury.Settlement), args.Error(1)
}

func (m *MockSettlementRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter treasury.SettlementFilter) ([]treasury.Settlement, error) {
	args := m.Called(ctx, tenantID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]treasury.Settlement), args.Error(1)
}

func (m *MockSettlementRepository) FindBySheet(ctx context.Context, tenantID, sheetID uuid.UUID) ([]treasury.Settlement, error) {
	args := m.Called(ctx, tenantID, sheetID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]treasury.Settlement), args.Error(1)
}

func (m *MockSettlementRepository) Save(ctx context.Context, settlement *treasury.Settlement) error {
	args := m.Called(ctx, settlement)
	return args.Error(0)
}

func (m *MockSettlementRepository) SaveWithLock(ctx context.Context, settlement *treasury.Settlement) error {
	args := m.Called(ctx, settlement)
	return args.Error(0)
}

func (m *MockSettlementRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	args := m.Called(ctx, tenantID, id)
	return args.Error(0)
}

func (m *MockSettlementRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter treasury.SettlementFilter) (int64, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSettlementRepository) CountBySheetAndStatus(ctx context.Context, tenantID, sheetID uuid.UUID, status treasury.SettlementStatus) (int64, error) {
	args := m.Called(ctx, tenantID, sheetID, status)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSettlementRepository) GenerateNumber(ctx context.Context, tenantID uuid.UUID) (string, error) {
	args := m.Called(ctx, tenantID)
	return args.String(0), args.Error(1)
}

// MockRouteRepository is a mock implementation of RouteRepository
type MockRouteRepository struct {
	mock.Mock
}

func (m *MockRouteRepository) FindByID(ctx context.Context, id uuid.UUID) (*dispatch.Route, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dispatch.Route), args.Error(1)
}

func (m *MockRouteRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*dispatch.Route, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dispatch.Route), args.Error(1)
}

func (m *MockRouteRepository) FindByNumber(ctx context.Context, tenantID uuid.UUID, routeNumber string) (*dispatch.Route, error) {
	args := m.Called(ctx, tenantID, routeNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dispatch.Route), args.Error(1)
}

func (m *MockRouteRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter dispatch.RouteFilter) ([]dispatch.Route, error) {
	args := m.Called(ctx, tenantID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]dispatch.Route), args.Error(1)
}

func (m *MockRouteRepository) Save(ctx context.Context, route *dispatch.Route) error {
	args := m.Called(ctx, route)
	return args.Error(0)
}

func (m *MockRouteRepository) SaveWithLock(ctx context.Context, route *dispatch.Route) error {
	args := m.Called(ctx, route)
	return args.Error(0)
}

func (m *MockRouteRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	args := m.Called(ctx, tenantID, id)
	return args.Error(0)
}

func (m *MockRouteRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter dispatch.RouteFilter) (int64, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRouteRepository) GenerateNumber(ctx context.Context, tenantID uuid.UUID) (string, error) {
	args := m.Called(ctx, tenantID)
	return args.String(0), args.Error(1)
}

// MockAccountingService is a mock implementation of the accounting port
type MockAccountingService struct {
	mock.Mock
}

func (m *MockAccountingService) GetInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) (*accounting.InvoiceRef, error) {
	args := m.Called(ctx, tenantID, invoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*accounting.InvoiceRef), args.Error(1)
}

func (m *MockAccountingService) CreatePayment(ctx context.Context, req accounting.CreatePaymentRequest) (*accounting.Payment, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*accounting.Payment), args.Error(1)
}

func (m *MockAccountingService) PostPayment(ctx context.Context, tenantID, paymentID uuid.UUID) (*accounting.Payment, error) {
	args := m.Called(ctx, tenantID, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*accounting.Payment), args.Error(1)
}

func (m *MockAccountingService) CancelPayment(ctx context.Context, tenantID, paymentID uuid.UUID) error {
	args := m.Called(ctx, tenantID, paymentID)
	return args.Error(0)
}

// passthroughTxManager runs the callback directly, without a database
type passthroughTxManager struct{}

func (passthroughTxManager) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
