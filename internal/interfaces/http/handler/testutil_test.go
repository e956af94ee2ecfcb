package handler

import (
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/almi/backend/internal/domain/accounting"
	"github.com/almi/backend/internal/domain/shared/valueobject"
	"github.com/almi/backend/internal/domain/treasury"
	"github.com/almi/backend/internal/infrastructure/auth"
	"github.com/almi/backend/internal/interfaces/http/middleware"
)

var (
	testTenantID = uuid.MustParse("00000000-0000-0000-0000-000000000001")
	testUserID   = uuid.MustParse("00000000-0000-0000-0000-000000000002")
)

// testAuth injects validated claims the way the JWT middleware would
func testAuth(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := &auth.Claims{
			TenantID:  testTenantID.String(),
			UserID:    testUserID.String(),
			Username:  "maria.reyes",
			Roles:     roles,
			TokenType: auth.TokenTypeAccess,
		}
		c.Set(middleware.ContextKeyClaims, claims)
		c.Set(middleware.ContextKeyTenantID, claims.TenantID)
		c.Set(middleware.ContextKeyUserID, claims.UserID)
		c.Set(middleware.ContextKeyUsername, claims.Username)
		c.Next()
	}
}

func newTestEngine(roles ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(testAuth(roles...))
	return engine
}

func testInvoice(t *testing.T, total float64) *accounting.InvoiceRef {
	t.Helper()
	amount := valueobject.NewMoneyPEN(decimal.NewFromFloat(total))
	return &accounting.InvoiceRef{
		ID:             uuid.New(),
		TenantID:       testTenantID,
		Number:         "F001-00001234",
		PartnerID:      uuid.New(),
		PartnerName:    "Botica San Martin",
		AmountTotal:    amount,
		AmountResidual: amount,
		Status:         accounting.InvoiceStatusPosted,
		PaymentState:   accounting.PaymentStateNotPaid,
		InvoiceDate:    time.Now(),
	}
}

func testSheet(t *testing.T, invoices ...*accounting.InvoiceRef) *treasury.SettlementSheet {
	t.Helper()
	sheet, err := treasury.NewSettlementSheet(testTenantID, "HL-2026-0001", time.Now())
	require.NoError(t, err)
	for _, invoice := range invoices {
		_, err = sheet.AddLine(invoice)
		require.NoError(t, err)
	}
	sheet.ClearDomainEvents()
	return sheet
}

func testInRouteSheet(t *testing.T, invoices ...*accounting.InvoiceRef) *treasury.SettlementSheet {
	t.Helper()
	sheet := testSheet(t, invoices...)
	require.NoError(t, sheet.Confirm())
	require.NoError(t, sheet.AssignRoute(uuid.New(), "RT-2026-0001", "Carlos Quispe"))
	require.NoError(t, sheet.MarkInRoute())
	sheet.ClearDomainEvents()
	return sheet
}

func testActor(reviewer bool) treasury.Actor {
	return treasury.Actor{ID: testUserID, Name: "maria.reyes", Reviewer: reviewer}
}

func testSettlement(t *testing.T) *treasury.Settlement {
	t.Helper()
	sheet := testInRouteSheet(t, testInvoice(t, 250))
	settlement, err := treasury.NewSettlementFromSheet(testTenantID, "LQ-2026-0001", sheet)
	require.NoError(t, err)
	settlement.ClearDomainEvents()
	return settlement
}
