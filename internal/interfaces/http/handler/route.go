package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	appdispatch "github.com/almi/backend/internal/application/dispatch"
	"github.com/almi/backend/internal/interfaces/http/dto"
)

// RouteHandler exposes delivery route management over HTTP
type RouteHandler struct {
	BaseHandler
	service *appdispatch.RouteService
}

// NewRouteHandler creates a route handler
func NewRouteHandler(service *appdispatch.RouteService, logger *zap.Logger) *RouteHandler {
	return &RouteHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

// RegisterRoutes registers delivery route endpoints on the API group
func (h *RouteHandler) RegisterRoutes(rg *gin.RouterGroup) {
	routes := rg.Group("/routes")
	{
		routes.POST("", h.Create)
		routes.GET("", h.List)
		routes.GET("/:id", h.Get)
		routes.POST("/:id/start", h.Start)
		routes.POST("/:id/complete", h.Complete)
		routes.POST("/:id/cancel", h.Cancel)
	}
}

// Create plans a new delivery route
func (h *RouteHandler) Create(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	var req appdispatch.CreateRouteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err)
		return
	}
	route, err := h.service.Create(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, route)
}

// List returns routes for the tenant with filtering and pagination
func (h *RouteHandler) List(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	var filter appdispatch.RouteListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BadRequest(c, err)
		return
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	routes, total, err := h.service.List(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, routes, dto.NewMeta(total, filter.Page, filter.PageSize))
}

// Get returns a single route by ID
func (h *RouteHandler) Get(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	routeID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	route, err := h.service.GetByID(c.Request.Context(), tenantID, routeID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, route)
}

// Start marks the route as in progress
func (h *RouteHandler) Start(c *gin.Context) {
	h.transition(c, h.service.Start)
}

// Complete marks the route as finished
func (h *RouteHandler) Complete(c *gin.Context) {
	h.transition(c, h.service.Complete)
}

// Cancel cancels the route with a reason
func (h *RouteHandler) Cancel(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	routeID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req appdispatch.CancelRouteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err)
		return
	}
	route, err := h.service.Cancel(c.Request.Context(), tenantID, routeID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, route)
}

func (h *RouteHandler) transition(c *gin.Context, fn func(ctx context.Context, tenantID, routeID uuid.UUID) (*appdispatch.RouteResponse, error)) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	routeID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	route, err := fn(c.Request.Context(), tenantID, routeID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, route)
}
