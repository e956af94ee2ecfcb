package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	apptreasury "github.com/almi/backend/internal/application/treasury"
	"github.com/almi/backend/internal/interfaces/http/dto"
)

// SheetHandler exposes the settlement sheet lifecycle over HTTP
type SheetHandler struct {
	BaseHandler
	service *apptreasury.SheetService
}

// NewSheetHandler creates a sheet handler
func NewSheetHandler(service *apptreasury.SheetService, logger *zap.Logger) *SheetHandler {
	return &SheetHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

// RegisterRoutes registers sheet routes on the API group
func (h *SheetHandler) RegisterRoutes(rg *gin.RouterGroup) {
	sheets := rg.Group("/settlement-sheets")
	{
		sheets.POST("", h.Create)
		sheets.GET("", h.List)
		sheets.GET("/:id", h.Get)
		sheets.POST("/:id/lines", h.AddLine)
		sheets.DELETE("/:id/lines/:lineId", h.RemoveLine)
		sheets.POST("/:id/confirm", h.Confirm)
		sheets.POST("/:id/assign-route", h.AssignRoute)
		sheets.POST("/:id/mark-in-route", h.MarkInRoute)
		sheets.POST("/:id/lines/:lineId/collection", h.RecordCollection)
		sheets.POST("/:id/close", h.Close)
		sheets.POST("/:id/cancel", h.Cancel)
		sheets.POST("/:id/reset", h.ResetToDraft)
	}
}

// Create opens a new draft settlement sheet
func (h *SheetHandler) Create(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	var req apptreasury.CreateSheetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err)
		return
	}
	sheet, err := h.service.Create(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, sheet)
}

// List returns sheets for the tenant with filtering and pagination
func (h *SheetHandler) List(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	var filter apptreasury.SheetListFilter
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
	sheets, total, err := h.service.List(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, sheets, dto.NewMeta(total, filter.Page, filter.PageSize))
}

// Get returns a single sheet by ID
func (h *SheetHandler) Get(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	sheetID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	sheet, err := h.service.GetByID(c.Request.Context(), tenantID, sheetID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, sheet)
}

// AddLine adds an invoice to a draft sheet
func (h *SheetHandler) AddLine(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	sheetID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req apptreasury.AddSheetLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err)
		return
	}
	sheet, err := h.service.AddLine(c.Request.Context(), tenantID, sheetID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, sheet)
}

// RemoveLine removes an invoice from a draft sheet
func (h *SheetHandler) RemoveLine(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	sheetID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	lineID, ok := h.pathUUID(c, "lineId")
	if !ok {
		return
	}
	sheet, err := h.service.RemoveLine(c.Request.Context(), tenantID, sheetID, lineID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, sheet)
}

// Confirm freezes the sheet's invoice list
func (h *SheetHandler) Confirm(c *gin.Context) {
	h.transition(c, h.service.Confirm)
}

// AssignRoute binds the sheet to a delivery route
func (h *SheetHandler) AssignRoute(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	sheetID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req apptreasury.AssignRouteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err)
		return
	}
	sheet, err := h.service.AssignRoute(c.Request.Context(), tenantID, sheetID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, sheet)
}

// MarkInRoute marks the sheet as out for delivery
func (h *SheetHandler) MarkInRoute(c *gin.Context) {
	h.transition(c, h.service.MarkInRoute)
}

// RecordCollection records a driver's per-invoice delivery and collection result
func (h *SheetHandler) RecordCollection(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	sheetID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	lineID, ok := h.pathUUID(c, "lineId")
	if !ok {
		return
	}
	var req apptreasury.RecordCollectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err)
		return
	}
	sheet, err := h.service.RecordLineCollection(c.Request.Context(), tenantID, sheetID, lineID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, sheet)
}

// Close closes a settled sheet
func (h *SheetHandler) Close(c *gin.Context) {
	h.transition(c, h.service.Close)
}

// Cancel cancels the sheet with a reason
func (h *SheetHandler) Cancel(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	sheetID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req apptreasury.CancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err)
		return
	}
	sheet, err := h.service.Cancel(c.Request.Context(), tenantID, sheetID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, sheet)
}

// ResetToDraft returns a cancelled sheet to draft
func (h *SheetHandler) ResetToDraft(c *gin.Context) {
	h.transition(c, h.service.ResetToDraft)
}

func (h *SheetHandler) transition(c *gin.Context, fn func(ctx context.Context, tenantID, sheetID uuid.UUID) (*apptreasury.SheetResponse, error)) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	sheetID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	sheet, err := fn(c.Request.Context(), tenantID, sheetID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, sheet)
}
