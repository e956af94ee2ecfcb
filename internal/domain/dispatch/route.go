// Package dispatch covers the delivery side of collection: routes driven to
// deliver invoiced goods, and collection sheets reconciling the payments a
// driver reports against the invoices of their settlement.
package dispatch

import (
	"fmt"
	"time"

	"github.com/almi/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// RouteStatus represents the status of a dispatch route
type RouteStatus string

const (
	RouteStatusPlanned    RouteStatus = "PLANNED"
	RouteStatusInProgress RouteStatus = "IN_PROGRESS"
	RouteStatusCompleted  RouteStatus = "COMPLETED"
	RouteStatusCancelled  RouteStatus = "CANCELLED"
)

// IsValid checks if the status is a valid RouteStatus
func (s RouteStatus) IsValid() bool {
	switch s {
	case RouteStatusPlanned, RouteStatusInProgress, RouteStatusCompleted, RouteStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of RouteStatus
func (s RouteStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status
func (s RouteStatus) CanTransitionTo(target RouteStatus) bool {
	switch s {
	case RouteStatusPlanned:
		return target == RouteStatusInProgress || target == RouteStatusCancelled
	case RouteStatusInProgress:
		return target == RouteStatusCompleted || target == RouteStatusCancelled
	case RouteStatusCompleted, RouteStatusCancelled:
		return false // Terminal states
	}
	return false
}

// Route represents a delivery route driven for one day's dispatch
type Route struct {
	shared.TenantAggregateRoot
	RouteNumber  string      `json:"route_number" gorm:"type:varchar(64);not null;uniqueIndex:idx_route_tenant_number,composite:tenant_id"`
	DriverID     uuid.UUID   `json:"driver_id" gorm:"type:uuid;not null;index"`
	DriverName   string      `json:"driver_name" gorm:"type:varchar(255);not null"`
	VehiclePlate string      `json:"vehicle_plate" gorm:"type:varchar(16)"`
	RouteDate    time.Time   `json:"route_date"`
	Status       RouteStatus `json:"status" gorm:"type:varchar(16);not null;index"`
	Notes        string      `json:"notes" gorm:"type:text"`
	StartedAt    *time.Time  `json:"started_at"`
	CompletedAt  *time.Time  `json:"completed_at"`
	CancelledAt  *time.Time  `json:"cancelled_at"`
	CancelReason string      `json:"cancel_reason" gorm:"type:varchar(255)"`
}

// TableName specifies the table name for GORM
func (Route) TableName() string {
	return "dispatch_routes"
}

// NewRoute creates a planned route
func NewRoute(tenantID uuid.UUID, routeNumber string, driverID uuid.UUID, driverName, vehiclePlate string, routeDate time.Time) (*Route, error) {
	if routeNumber == "" {
		return nil, shared.NewDomainError("INVALID_ROUTE_NUMBER", "Route number cannot be empty")
	}
	if driverID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_DRIVER", "Driver ID cannot be empty")
	}
	if driverName == "" {
		return nil, shared.NewDomainError("INVALID_DRIVER", "Driver name cannot be empty")
	}
	if routeDate.IsZero() {
		routeDate = time.Now()
	}

	return &Route{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		RouteNumber:         routeNumber,
		DriverID:            driverID,
		DriverName:          driverName,
		VehiclePlate:        vehiclePlate,
		RouteDate:           routeDate,
		Status:              RouteStatusPlanned,
	}, nil
}

// Start marks the route as in progress
func (r *Route) Start() error {
	if !r.Status.CanTransitionTo(RouteStatusInProgress) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot start route in %s status", r.Status))
	}

	now := time.Now()
	r.Status = RouteStatusInProgress
	r.StartedAt = &now
	r.UpdatedAt = now

	return nil
}

// Complete marks the route as finished
func (r *Route) Complete() error {
	if !r.Status.CanTransitionTo(RouteStatusCompleted) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot complete route in %s status", r.Status))
	}

	now := time.Now()
	r.Status = RouteStatusCompleted
	r.CompletedAt = &now
	r.UpdatedAt = now

	return nil
}

// Cancel cancels the route
func (r *Route) Cancel(reason string) error {
	if !r.Status.CanTransitionTo(RouteStatusCancelled) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot cancel route in %s status", r.Status))
	}

	now := time.Now()
	r.Status = RouteStatusCancelled
	r.CancelledAt = &now
	r.CancelReason = reason
	r.UpdatedAt = now

	return nil
}
