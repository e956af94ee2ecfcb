package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	appdispatch "github.com/almi/backend/internal/application/dispatch"
	"github.com/almi/backend/internal/interfaces/http/dto"
)

// CollectionHandler exposes collection sheet management over HTTP
type CollectionHandler struct {
	BaseHandler
	service *appdispatch.CollectionService
}

// NewCollectionHandler creates a collection sheet handler
func NewCollectionHandler(service *appdispatch.CollectionService, logger *zap.Logger) *CollectionHandler {
	return &CollectionHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

// RegisterRoutes registers collection sheet endpoints on the API group
func (h *CollectionHandler) RegisterRoutes(rg *gin.RouterGroup) {
	sheets := rg.Group("/collection-sheets")
	{
		sheets.POST("", h.Create)
		sheets.GET("", h.List)
		sheets.GET("/:id", h.Get)
		sheets.POST("/:id/lines", h.AddLine)
		sheets.DELETE("/:id/lines/:lineId", h.RemoveLine)
		sheets.POST("/:id/lines/:lineId/cancel", h.CancelLine)
		sheets.POST("/:id/lines/:lineId/reset", h.ResetLine)
		sheets.POST("/:id/validate", h.Validate)
		sheets.POST("/:id/cancel", h.CancelSheet)
		sheets.POST("/:id/reset", h.ResetSheet)
	}

	lines := rg.Group("/collection-lines")
	{
		lines.POST("/:lineId/assign", h.AssignLine)
		lines.POST("/:lineId/cancel-assignment", h.CancelAssignment)
	}
}

// Create opens a collection sheet for an approved settlement
func (h *CollectionHandler) Create(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	var req appdispatch.CreateCollectionSheetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err)
		return
	}
	sheet, err := h.service.CreateSheet(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, sheet)
}

// List returns collection sheets for the tenant with filtering and pagination
func (h *CollectionHandler) List(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	var filter appdispatch.CollectionSheetListFilter
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

// Get returns a single collection sheet by ID
func (h *CollectionHandler) Get(c *gin.Context) {
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

// AddLine registers a collected amount on the sheet
func (h *CollectionHandler) AddLine(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	sheetID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req appdispatch.AddCollectionLineRequest
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

// RemoveLine removes a pending line from a draft sheet
func (h *CollectionHandler) RemoveLine(c *gin.Context) {
	h.lineAction(c, h.service.RemoveLine)
}

// CancelLine cancels a pending line
func (h *CollectionHandler) CancelLine(c *gin.Context) {
	h.lineAction(c, h.service.CancelLine)
}

// ResetLine returns a cancelled line to pending
func (h *CollectionHandler) ResetLine(c *gin.Context) {
	h.lineAction(c, h.service.ResetLine)
}

// AssignLine applies a collected amount to an invoice, creating a payment
func (h *CollectionHandler) AssignLine(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	lineID, ok := h.pathUUID(c, "lineId")
	if !ok {
		return
	}
	var req appdispatch.AssignLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err)
		return
	}
	sheet, err := h.service.AssignLine(c.Request.Context(), tenantID, lineID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, sheet)
}

// CancelAssignment unwinds a line's payment and returns it to pending
func (h *CollectionHandler) CancelAssignment(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	lineID, ok := h.pathUUID(c, "lineId")
	if !ok {
		return
	}
	sheet, err := h.service.CancelAssignment(c.Request.Context(), tenantID, lineID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, sheet)
}

// Validate closes the sheet once every line is resolved
func (h *CollectionHandler) Validate(c *gin.Context) {
	h.sheetAction(c, h.service.Validate)
}

// CancelSheet cancels a draft sheet
func (h *CollectionHandler) CancelSheet(c *gin.Context) {
	h.sheetAction(c, h.service.CancelSheet)
}

// ResetSheet returns a cancelled sheet to draft
func (h *CollectionHandler) ResetSheet(c *gin.Context) {
	h.sheetAction(c, h.service.ResetSheet)
}

func (h *CollectionHandler) sheetAction(c *gin.Context, fn func(ctx context.Context, tenantID, sheetID uuid.UUID) (*appdispatch.CollectionSheetResponse, error)) {
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

func (h *CollectionHandler) lineAction(c *gin.Context, fn func(ctx context.Context, tenantID, sheetID, lineID uuid.UUID) (*appdispatch.CollectionSheetResponse, error)) {
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
	sheet, err := fn(c.Request.Context(), tenantID, sheetID, lineID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, sheet)
}
