package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	apptreasury "github.com/almi/backend/internal/application/treasury"
	"github.com/almi/backend/internal/domain/shared"
	"github.com/almi/backend/internal/domain/treasury"
	"github.com/almi/backend/internal/infrastructure/auth"
)

func setupSheetTestRouter() (*gin.Engine, *MockSheetRepository, *MockSettlementRepository, *MockAccountingService) {
	engine := newTestEngine(auth.RoleDriver)

	sheetRepo := new(MockSheetRepository)
	settlementRepo := new(MockSettlementRepository)
	routeRepo := new(MockRouteRepository)
	accountingSvc := new(MockAccountingService)

	service := apptreasury.NewSheetService(sheetRepo, settlementRepo, routeRepo, accountingSvc)
	handler := NewSheetHandler(service, zap.NewNop())
	handler.RegisterRoutes(engine.Group(""))

	return engine, sheetRepo, settlementRepo, accountingSvc
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	return response
}

func TestSheetHandler_Create(t *testing.T) {
	t.Run("creates an empty draft sheet", func(t *testing.T) {
		engine, sheetRepo, _, _ := setupSheetTestRouter()

		sheetRepo.On("GenerateNumber", mock.Anything, testTenantID).
			Return("HL-2026-0007", nil)
		sheetRepo.On("Save", mock.Anything, mock.AnythingOfType("*treasury.SettlementSheet")).
			Return(nil)

		body, _ := json.Marshal(map[string]interface{}{"notes": "ruta sur"})
		req, _ := http.NewRequest(http.MethodPost, "/settlement-sheets", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		response := decodeResponse(t, w)
		assert.True(t, response["success"].(bool))
		data := response["data"].(map[string]interface{})
		assert.Equal(t, "HL-2026-0007", data["sheet_number"])
		assert.Equal(t, "DRAFT", data["status"])
		sheetRepo.AssertExpectations(t)
	})

	t.Run("rejects malformed body", func(t *testing.T) {
		engine, _, _, _ := setupSheetTestRouter()

		req, _ := http.NewRequest(http.MethodPost, "/settlement-sheets", bytes.NewBufferString("{not json"))
		req.Header.Set("Content-Type", "application/json")

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestSheetHandler_Get(t *testing.T) {
	t.Run("returns the sheet with its lines", func(t *testing.T) {
		engine, sheetRepo, _, _ := setupSheetTestRouter()

		sheet := testSheet(t, testInvoice(t, 180.50))
		sheetRepo.On("FindByIDForTenant", mock.Anything, testTenantID, sheet.ID).
			Return(sheet, nil)

		req, _ := http.NewRequest(http.MethodGet, "/settlement-sheets/"+sheet.ID.String(), nil)
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		response := decodeResponse(t, w)
		data := response["data"].(map[string]interface{})
		assert.Len(t, data["lines"], 1)
	})

	t.Run("maps missing sheet to 404", func(t *testing.T) {
		engine, sheetRepo, _, _ := setupSheetTestRouter()

		sheetID := uuid.New()
		sheetRepo.On("FindByIDForTenant", mock.Anything, testTenantID, sheetID).
			Return(nil, shared.ErrNotFound)

		req, _ := http.NewRequest(http.MethodGet, "/settlement-sheets/"+sheetID.String(), nil)
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
		response := decodeResponse(t, w)
		assert.False(t, response["success"].(bool))
	})

	t.Run("rejects a non-uuid path parameter", func(t *testing.T) {
		engine, _, _, _ := setupSheetTestRouter()

		req, _ := http.NewRequest(http.MethodGet, "/settlement-sheets/not-a-uuid", nil)
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestSheetHandler_List(t *testing.T) {
	t.Run("returns paginated sheets", func(t *testing.T) {
		engine, sheetRepo, _, _ := setupSheetTestRouter()

		sheets := []treasury.SettlementSheet{*testSheet(t)}
		sheetRepo.On("FindAllForTenant", mock.Anything, testTenantID, mock.AnythingOfType("treasury.SheetFilter")).
			Return(sheets, nil)
		sheetRepo.On("CountForTenant", mock.Anything, testTenantID, mock.AnythingOfType("treasury.SheetFilter")).
			Return(int64(1), nil)

		req, _ := http.NewRequest(http.MethodGet, "/settlement-sheets?page=1&page_size=10", nil)
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		response := decodeResponse(t, w)
		meta := response["meta"].(map[string]interface{})
		assert.Equal(t, float64(1), meta["total"])
		assert.Equal(t, float64(10), meta["page_size"])
	})
}

func TestSheetHandler_AddLine(t *testing.T) {
	t.Run("adds an invoice to a draft sheet", func(t *testing.T) {
		engine, sheetRepo, _, accountingSvc := setupSheetTestRouter()

		sheet := testSheet(t)
		invoice := testInvoice(t, 320)

		sheetRepo.On("FindByIDForTenant", mock.Anything, testTenantID, sheet.ID).
			Return(sheet, nil)
		accountingSvc.On("GetInvoice", mock.Anything, testTenantID, invoice.ID).
			Return(invoice, nil)
		sheetRepo.On("FindActiveByInvoice", mock.Anything, testTenantID, invoice.ID).
			Return(nil, shared.ErrNotFound)
		sheetRepo.On("SaveWithLock", mock.Anything, sheet).
			Return(nil)

		body, _ := json.Marshal(map[string]string{"invoice_id": invoice.ID.String()})
		req, _ := http.NewRequest(http.MethodPost, "/settlement-sheets/"+sheet.ID.String()+"/lines", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		response := decodeResponse(t, w)
		data := response["data"].(map[string]interface{})
		assert.Len(t, data["lines"], 1)
		sheetRepo.AssertExpectations(t)
	})

	t.Run("maps the one-active-sheet rule to 409", func(t *testing.T) {
		engine, sheetRepo, _, accountingSvc := setupSheetTestRouter()

		sheet := testSheet(t)
		invoice := testInvoice(t, 90)
		holder := testSheet(t)

		sheetRepo.On("FindByIDForTenant", mock.Anything, testTenantID, sheet.ID).
			Return(sheet, nil)
		accountingSvc.On("GetInvoice", mock.Anything, testTenantID, invoice.ID).
			Return(invoice, nil)
		sheetRepo.On("FindActiveByInvoice", mock.Anything, testTenantID, invoice.ID).
			Return(holder, nil)

		body, _ := json.Marshal(map[string]string{"invoice_id": invoice.ID.String()})
		req, _ := http.NewRequest(http.MethodPost, "/settlement-sheets/"+sheet.ID.String()+"/lines", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
		response := decodeResponse(t, w)
		errorInfo := response["error"].(map[string]interface{})
		assert.Equal(t, "INVOICE_IN_ACTIVE_SHEET", errorInfo["code"])
	})
}

func TestSheetHandler_Confirm(t *testing.T) {
	t.Run("confirms a sheet with lines", func(t *testing.T) {
		engine, sheetRepo, _, _ := setupSheetTestRouter()

		sheet := testSheet(t, testInvoice(t, 150))
		sheetRepo.On("FindByIDForTenant", mock.Anything, testTenantID, sheet.ID).
			Return(sheet, nil)
		sheetRepo.On("SaveWithLock", mock.Anything, sheet).
			Return(nil)

		req, _ := http.NewRequest(http.MethodPost, "/settlement-sheets/"+sheet.ID.String()+"/confirm", nil)
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		response := decodeResponse(t, w)
		data := response["data"].(map[string]interface{})
		assert.Equal(t, "CONFIRMED", data["status"])
	})

	t.Run("maps an empty sheet to 422", func(t *testing.T) {
		engine, sheetRepo, _, _ := setupSheetTestRouter()

		sheet := testSheet(t)
		sheetRepo.On("FindByIDForTenant", mock.Anything, testTenantID, sheet.ID).
			Return(sheet, nil)

		req, _ := http.NewRequest(http.MethodPost, "/settlement-sheets/"+sheet.ID.String()+"/confirm", nil)
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		response := decodeResponse(t, w)
		errorInfo := response["error"].(map[string]interface{})
		assert.Equal(t, "NO_LINES", errorInfo["code"])
	})
}

func TestSheetHandler_Cancel(t *testing.T) {
	t.Run("requires a reason", func(t *testing.T) {
		engine, _, _, _ := setupSheetTestRouter()

		body, _ := json.Marshal(map[string]string{})
		req, _ := http.NewRequest(http.MethodPost, "/settlement-sheets/"+uuid.NewString()+"/cancel", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("refuses to cancel once a settlement is approved", func(t *testing.T) {
		engine, sheetRepo, settlementRepo, _ := setupSheetTestRouter()

		sheet := testInRouteSheet(t, testInvoice(t, 200))
		settlementRepo.On("CountBySheetAndStatus", mock.Anything, testTenantID, sheet.ID, treasury.SettlementStatusApproved).
			Return(int64(1), nil)
		sheetRepo.On("FindByIDForTenant", mock.Anything, testTenantID, sheet.ID).
			Return(sheet, nil)

		body, _ := json.Marshal(map[string]string{"reason": "duplicado"})
		req, _ := http.NewRequest(http.MethodPost, "/settlement-sheets/"+sheet.ID.String()+"/cancel", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}

func TestSheetHandler_OptimisticLockConflict(t *testing.T) {
	engine, sheetRepo, _, _ := setupSheetTestRouter()

	sheet := testSheet(t, testInvoice(t, 75))
	sheetRepo.On("FindByIDForTenant", mock.Anything, testTenantID, sheet.ID).
		Return(sheet, nil)
	sheetRepo.On("SaveWithLock", mock.Anything, sheet).
		Return(shared.NewDomainError("OPTIMISTIC_LOCK_FAILED", "Sheet was modified concurrently"))

	req, _ := http.NewRequest(http.MethodPost, "/settlement-sheets/"+sheet.ID.String()+"/confirm", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
}
