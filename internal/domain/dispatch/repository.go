package dispatch

import (
	"context"
	"time"

	"github.com/almi/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// RouteFilter defines filtering options for route queries
type RouteFilter struct {
	shared.Filter
	Status   *RouteStatus
	DriverID *uuid.UUID
	FromDate *time.Time
	ToDate   *time.Time
}

// RouteRepository defines the interface for route persistence
type RouteRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Route, error)
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Route, error)
	FindByNumber(ctx context.Context, tenantID uuid.UUID, routeNumber string) (*Route, error)
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter RouteFilter) ([]Route, error)
	Save(ctx context.Context, route *Route) error
	SaveWithLock(ctx context.Context, route *Route) error
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
	CountForTenant(ctx context.Context, tenantID uuid.UUID, filter RouteFilter) (int64, error)
	GenerateNumber(ctx context.Context, tenantID uuid.UUID) (string, error)
}

// CollectionSheetFilter defines filtering options for collection sheet queries
type CollectionSheetFilter struct {
	shared.Filter
	Status       *CollectionSheetStatus
	SettlementID *uuid.UUID
}

// CollectionSheetRepository defines the interface for collection sheet persistence
type CollectionSheetRepository interface {
	// FindByID finds a collection sheet by ID, loading its lines
	FindByID(ctx context.Context, id uuid.UUID) (*CollectionSheet, error)

	// FindByIDForTenant finds a collection sheet by ID for a specific tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*CollectionSheet, error)

	// FindBySettlement finds the collection sheet of a settlement, if any.
	// A settlement has at most one collection sheet.
	FindBySettlement(ctx context.Context, tenantID, settlementID uuid.UUID) (*CollectionSheet, error)

	// FindByLine finds the collection sheet owning the given line
	FindByLine(ctx context.Context, tenantID, lineID uuid.UUID) (*CollectionSheet, error)

	// FindAllForTenant finds collection sheets for a tenant with filtering
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter CollectionSheetFilter) ([]CollectionSheet, error)

	// Save creates or updates a collection sheet together with its lines
	Save(ctx context.Context, sheet *CollectionSheet) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, sheet *CollectionSheet) error

	// Delete removes a draft collection sheet and its lines
	Delete(ctx context.Context, tenantID, id uuid.UUID) error

	// CountForTenant counts collection sheets for a tenant with optional filters
	CountForTenant(ctx context.Context, tenantID uuid.UUID, filter CollectionSheetFilter) (int64, error)

	// GenerateNumber generates the next collection sheet number for a tenant
	GenerateNumber(ctx context.Context, tenantID uuid.UUID) (string, error)
}
