package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	apptreasury "github.com/almi/backend/internal/application/treasury"
	"github.com/almi/backend/internal/domain/treasury"
	"github.com/almi/backend/internal/interfaces/http/dto"
)

// SettlementHandler exposes the settlement approval workflow over HTTP
type SettlementHandler struct {
	BaseHandler
	service *apptreasury.SettlementService
}

// NewSettlementHandler creates a settlement handler
func NewSettlementHandler(service *apptreasury.SettlementService, logger *zap.Logger) *SettlementHandler {
	return &SettlementHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

// RegisterRoutes registers settlement routes on the API group
func (h *SettlementHandler) RegisterRoutes(rg *gin.RouterGroup) {
	settlements := rg.Group("/settlements")
	{
		settlements.POST("", h.CreateFromSheet)
		settlements.GET("", h.List)
		settlements.GET("/:id", h.Get)
		settlements.PUT("/:id/lines/:lineId", h.RecordLineResult)
		settlements.POST("/:id/submit", h.Submit)
		settlements.POST("/:id/approve", h.Approve)
		settlements.POST("/:id/reject", h.Reject)
		settlements.POST("/:id/reset", h.ResetToDraft)
	}
}

type createSettlementRequest struct {
	SheetID uuid.UUID `json:"sheet_id" binding:"required"`
}

// CreateFromSheet opens a settlement for an in-route sheet
func (h *SettlementHandler) CreateFromSheet(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	var req createSettlementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err)
		return
	}
	settlement, err := h.service.CreateFromSheet(c.Request.Context(), tenantID, req.SheetID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, settlement)
}

// List returns settlements for the tenant with filtering and pagination
func (h *SettlementHandler) List(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	var filter apptreasury.SettlementListFilter
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
	settlements, total, err := h.service.List(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, settlements, dto.NewMeta(total, filter.Page, filter.PageSize))
}

// Get returns a single settlement by ID
func (h *SettlementHandler) Get(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	settlementID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	settlement, err := h.service.GetByID(c.Request.Context(), tenantID, settlementID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, settlement)
}

// RecordLineResult records the reconciliation outcome for one invoice
func (h *SettlementHandler) RecordLineResult(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	settlementID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	lineID, ok := h.pathUUID(c, "lineId")
	if !ok {
		return
	}
	var req apptreasury.RecordLineResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err)
		return
	}
	settlement, err := h.service.RecordLineResult(c.Request.Context(), tenantID, settlementID, lineID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, settlement)
}

// Submit sends the settlement for treasury review
func (h *SettlementHandler) Submit(c *gin.Context) {
	h.review(c, h.service.Submit)
}

// Approve accepts the settlement, posting collected payments
func (h *SettlementHandler) Approve(c *gin.Context) {
	h.review(c, h.service.Approve)
}

// Reject sends the settlement back with a mandatory reason
func (h *SettlementHandler) Reject(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	settlementID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req apptreasury.RejectSettlementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err)
		return
	}
	settlement, err := h.service.Reject(c.Request.Context(), tenantID, settlementID, actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, settlement)
}

// ResetToDraft returns a rejected settlement to draft
func (h *SettlementHandler) ResetToDraft(c *gin.Context) {
	h.review(c, h.service.ResetToDraft)
}

func (h *SettlementHandler) review(c *gin.Context, fn func(ctx context.Context, tenantID, settlementID uuid.UUID, actor treasury.Actor) (*apptreasury.SettlementResponse, error)) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	settlementID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	settlement, err := fn(c.Request.Context(), tenantID, settlementID, actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, settlement)
}
