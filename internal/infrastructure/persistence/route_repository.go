package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/almi/backend/internal/domain/dispatch"
	"github.com/almi/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormRouteRepository implements dispatch.RouteRepository using GORM
type GormRouteRepository struct {
	db *gorm.DB
}

// NewGormRouteRepository creates a new GormRouteRepository
func NewGormRouteRepository(db *gorm.DB) *GormRouteRepository {
	return &GormRouteRepository{db: db}
}

// FindByID finds a route by ID
func (r *GormRouteRepository) FindByID(ctx context.Context, id uuid.UUID) (*dispatch.Route, error) {
	var route dispatch.Route
	if err := dbFromContext(ctx, r.db).First(&route, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &route, nil
}

// FindByIDForTenant finds a route by ID within a tenant
func (r *GormRouteRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*dispatch.Route, error) {
	var route dispatch.Route
	if err := dbFromContext(ctx, r.db).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&route).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &route, nil
}

// FindByNumber finds a route by its number within a tenant
func (r *GormRouteRepository) FindByNumber(ctx context.Context, tenantID uuid.UUID, routeNumber string) (*dispatch.Route, error) {
	var route dispatch.Route
	if err := dbFromContext(ctx, r.db).
		Where("tenant_id = ? AND route_number = ?", tenantID, routeNumber).
		First(&route).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &route, nil
}

// FindAllForTenant finds routes for a tenant with filtering
func (r *GormRouteRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter dispatch.RouteFilter) ([]dispatch.Route, error) {
	var routes []dispatch.Route
	query := r.applyConditions(dbFromContext(ctx, r.db).
		Model(&dispatch.Route{}).
		Where("tenant_id = ?", tenantID), filter)

	query = query.Order(orderClause(filter.OrderBy, filter.OrderDir, RouteSortFields, "route_date"))
	if filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	if err := query.Find(&routes).Error; err != nil {
		return nil, err
	}
	return routes, nil
}

// Save creates a route
func (r *GormRouteRepository) Save(ctx context.Context, route *dispatch.Route) error {
	return dbFromContext(ctx, r.db).Create(route).Error
}

// SaveWithLock updates a route with optimistic locking
func (r *GormRouteRepository) SaveWithLock(ctx context.Context, route *dispatch.Route) error {
	currentVersion := route.Version
	route.IncrementVersion()
	route.UpdatedAt = time.Now()

	result := dbFromContext(ctx, r.db).
		Model(&dispatch.Route{}).
		Where("id = ? AND version = ?", route.ID, currentVersion).
		Updates(map[string]any{
			"status":        route.Status,
			"driver_id":     route.DriverID,
			"driver_name":   route.DriverName,
			"vehicle_plate": route.VehiclePlate,
			"route_date":    route.RouteDate,
			"notes":         route.Notes,
			"started_at":    route.StartedAt,
			"completed_at":  route.CompletedAt,
			"cancelled_at":  route.CancelledAt,
			"cancel_reason": route.CancelReason,
			"version":       route.Version,
			"updated_at":    route.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var count int64
		dbFromContext(ctx, r.db).Model(&dispatch.Route{}).Where("id = ?", route.ID).Count(&count)
		if count == 0 {
			return shared.ErrNotFound
		}
		return shared.NewDomainError("OPTIMISTIC_LOCK_FAILED", "Route was modified by another transaction")
	}
	return nil
}

// Delete removes a route
func (r *GormRouteRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	result := dbFromContext(ctx, r.db).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Delete(&dispatch.Route{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// CountForTenant counts routes for a tenant with optional filters
func (r *GormRouteRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter dispatch.RouteFilter) (int64, error) {
	var count int64
	query := r.applyConditions(dbFromContext(ctx, r.db).
		Model(&dispatch.Route{}).
		Where("tenant_id = ?", tenantID), filter)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// GenerateNumber generates the next route number for a tenant (RT-<year>-NNNN)
func (r *GormRouteRepository) GenerateNumber(ctx context.Context, tenantID uuid.UUID) (string, error) {
	prefix := fmt.Sprintf("RT-%d-", time.Now().Year())

	var maxNumber string
	if err := dbFromContext(ctx, r.db).
		Model(&dispatch.Route{}).
		Where("tenant_id = ? AND route_number LIKE ?", tenantID, prefix+"%").
		Order("route_number DESC").
		Limit(1).
		Pluck("route_number", &maxNumber).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	nextSeq := 1
	if maxNumber != "" {
		var seq int
		if _, err := fmt.Sscanf(maxNumber, prefix+"%d", &seq); err == nil {
			nextSeq = seq + 1
		}
	}

	return fmt.Sprintf("%s%04d", prefix, nextSeq), nil
}

func (r *GormRouteRepository) applyConditions(query *gorm.DB, filter dispatch.RouteFilter) *gorm.DB {
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.DriverID != nil {
		query = query.Where("driver_id = ?", *filter.DriverID)
	}
	if filter.FromDate != nil {
		query = query.Where("route_date >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		query = query.Where("route_date <= ?", *filter.ToDate)
	}
	if filter.Search != "" {
		query = query.Where("route_number ILIKE ? OR driver_name ILIKE ?",
			"%"+filter.Search+"%", "%"+filter.Search+"%")
	}
	return query
}
