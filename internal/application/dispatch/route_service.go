package dispatch

import (
	"context"
	"time"

	"github.com/almi/backend/internal/domain/dispatch"
	"github.com/almi/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// RouteService handles the delivery route lifecycle
type RouteService struct {
	routeRepo      dispatch.RouteRepository
	eventPublisher shared.EventPublisher
}

// NewRouteService creates a new RouteService
func NewRouteService(routeRepo dispatch.RouteRepository) *RouteService {
	return &RouteService{routeRepo: routeRepo}
}

// SetEventPublisher sets the event publisher for cross-context integration
func (s *RouteService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Create plans a new route
func (s *RouteService) Create(ctx context.Context, tenantID uuid.UUID, req CreateRouteRequest) (*RouteResponse, error) {
	routeNumber, err := s.routeRepo.GenerateNumber(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	var routeDate time.Time
	if req.RouteDate != nil {
		routeDate = *req.RouteDate
	}
	route, err := dispatch.NewRoute(tenantID, routeNumber, req.DriverID, req.DriverName, req.VehiclePlate, routeDate)
	if err != nil {
		return nil, err
	}
	route.Notes = req.Notes

	if err := s.routeRepo.Save(ctx, route); err != nil {
		return nil, err
	}

	response := ToRouteResponse(route)
	return &response, nil
}

// GetByID retrieves a route by ID
func (s *RouteService) GetByID(ctx context.Context, tenantID, routeID uuid.UUID) (*RouteResponse, error) {
	route, err := s.routeRepo.FindByIDForTenant(ctx, tenantID, routeID)
	if err != nil {
		return nil, err
	}
	response := ToRouteResponse(route)
	return &response, nil
}

// List retrieves routes with filtering and pagination
func (s *RouteService) List(ctx context.Context, tenantID uuid.UUID, filter RouteListFilter) ([]RouteResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	repoFilter := dispatch.RouteFilter{
		Filter:   shared.DefaultFilter(),
		Status:   filter.Status,
		DriverID: filter.DriverID,
		FromDate: filter.FromDate,
		ToDate:   filter.ToDate,
	}
	repoFilter.Page = filter.Page
	repoFilter.PageSize = filter.PageSize
	repoFilter.Search = filter.Search

	routes, err := s.routeRepo.FindAllForTenant(ctx, tenantID, repoFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.routeRepo.CountForTenant(ctx, tenantID, repoFilter)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]RouteResponse, len(routes))
	for i := range routes {
		responses[i] = ToRouteResponse(&routes[i])
	}
	return responses, total, nil
}

// Start marks a planned route as underway
func (s *RouteService) Start(ctx context.Context, tenantID, routeID uuid.UUID) (*RouteResponse, error) {
	return s.mutate(ctx, tenantID, routeID, func(route *dispatch.Route) error {
		return route.Start()
	})
}

// Complete marks a route as finished
func (s *RouteService) Complete(ctx context.Context, tenantID, routeID uuid.UUID) (*RouteResponse, error) {
	return s.mutate(ctx, tenantID, routeID, func(route *dispatch.Route) error {
		return route.Complete()
	})
}

// Cancel cancels a route with a reason
func (s *RouteService) Cancel(ctx context.Context, tenantID, routeID uuid.UUID, req CancelRouteRequest) (*RouteResponse, error) {
	return s.mutate(ctx, tenantID, routeID, func(route *dispatch.Route) error {
		return route.Cancel(req.Reason)
	})
}

func (s *RouteService) mutate(ctx context.Context, tenantID, routeID uuid.UUID, fn func(*dispatch.Route) error) (*RouteResponse, error) {
	route, err := s.routeRepo.FindByIDForTenant(ctx, tenantID, routeID)
	if err != nil {
		return nil, err
	}
	if err := fn(route); err != nil {
		return nil, err
	}
	if err := s.routeRepo.SaveWithLock(ctx, route); err != nil {
		return nil, err
	}
	response := ToRouteResponse(route)
	return &response, nil
}
