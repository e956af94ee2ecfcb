package treasury

import (
	"context"
	"time"

	"github.com/almi/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// SheetFilter defines filtering options for settlement sheet queries
type SheetFilter struct {
	shared.Filter
	Status   *SheetStatus // Filter by status
	RouteID  *uuid.UUID   // Filter by assigned route
	FromDate *time.Time   // Filter by sheet date range start
	ToDate   *time.Time   // Filter by sheet date range end
}

// SettlementSheetRepository defines the interface for settlement sheet persistence
type SettlementSheetRepository interface {
	// FindByID finds a sheet by ID, loading its lines
	FindByID(ctx context.Context, id uuid.UUID) (*SettlementSheet, error)

	// FindByIDForTenant finds a sheet by ID for a specific tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*SettlementSheet, error)

	// FindByNumber finds by sheet number for a tenant
	FindByNumber(ctx context.Context, tenantID uuid.UUID, sheetNumber string) (*SettlementSheet, error)

	// FindAllForTenant finds sheets for a tenant with filtering
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter SheetFilter) ([]SettlementSheet, error)

	// FindActiveByInvoice finds the active (non-closed, non-cancelled) sheet
	// holding the given invoice, if any. Enforces the one-active-sheet-per-
	// invoice rule at add time.
	FindActiveByInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) (*SettlementSheet, error)

	// Save creates or updates a sheet together with its lines
	Save(ctx context.Context, sheet *SettlementSheet) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, sheet *SettlementSheet) error

	// Delete removes a draft sheet and its lines
	Delete(ctx context.Context, tenantID, id uuid.UUID) error

	// CountForTenant counts sheets for a tenant with optional filters
	CountForTenant(ctx context.Context, tenantID uuid.UUID, filter SheetFilter) (int64, error)

	// GenerateNumber generates the next sheet number for a tenant
	GenerateNumber(ctx context.Context, tenantID uuid.UUID) (string, error)
}

// SettlementFilter defines filtering options for settlement queries
type SettlementFilter struct {
	shared.Filter
	Status   *SettlementStatus // Filter by status
	SheetID  *uuid.UUID        // Filter by originating sheet
	FromDate *time.Time        // Filter by submission date range start
	ToDate   *time.Time        // Filter by submission date range end
}

// SettlementRepository defines the interface for settlement persistence
type SettlementRepository interface {
	// FindByID finds a settlement by ID, loading its lines
	FindByID(ctx context.Context, id uuid.UUID) (*Settlement, error)

	// FindByIDForTenant finds a settlement by ID for a specific tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Settlement, error)

	// FindByNumber finds by settlement number for a tenant
	FindByNumber(ctx context.Context, tenantID uuid.UUID, settlementNumber string) (*Settlement, error)

	// FindAllForTenant finds settlements for a tenant with filtering
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter SettlementFilter) ([]Settlement, error)

	// FindBySheet finds all settlements created from a sheet
	FindBySheet(ctx context.Context, tenantID, sheetID uuid.UUID) ([]Settlement, error)

	// Save creates or updates a settlement together with its lines
	Save(ctx context.Context, settlement *Settlement) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, settlement *Settlement) error

	// Delete removes a draft settlement and its lines
	Delete(ctx context.Context, tenantID, id uuid.UUID) error

	// CountForTenant counts settlements for a tenant with optional filters
	CountForTenant(ctx context.Context, tenantID uuid.UUID, filter SettlementFilter) (int64, error)

	// CountBySheetAndStatus counts a sheet's settlements in a given status.
	// Used for the close/cancel guards on the parent sheet.
	CountBySheetAndStatus(ctx context.Context, tenantID, sheetID uuid.UUID, status SettlementStatus) (int64, error)

	// GenerateNumber generates the next settlement number for a tenant
	GenerateNumber(ctx context.Context, tenantID uuid.UUID) (string, error)
}
