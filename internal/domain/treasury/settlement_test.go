package treasury

import (
	"testing"

	"github.com/almi/backend/internal/domain/accounting"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helpers

func driverActor() Actor {
	return Actor{ID: uuid.New(), Name: "Carlos Quispe"}
}

func reviewerActor() Actor {
	return Actor{ID: uuid.New(), Name: "Maria Torres", Reviewer: true}
}

func createTestSettlement(t *testing.T, lineTotals ...float64) *Settlement {
	t.Helper()
	sheet := inRouteSheet(t, lineTotals...)
	settlement, err := NewSettlementFromSheet(sheet.TenantID, "LQ-2026-0001", sheet)
	require.NoError(t, err)
	return settlement
}

func recordResult(t *testing.T, s *Settlement, idx int, amount float64, status DeliveryStatus) {
	t.Helper()
	err := s.RecordLineResult(s.Lines[idx].ID, decimal.NewFromFloat(amount), status, accounting.PaymentMethodCash, "")
	require.NoError(t, err)
}

// ============================================
// SettlementStatus Tests
// ============================================

func TestSettlementStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from     SettlementStatus
		to       SettlementStatus
		canTrans bool
	}{
		// From DRAFT only submission is reachable
		{SettlementStatusDraft, SettlementStatusSubmitted, true},
		{SettlementStatusDraft, SettlementStatusApproved, false},
		{SettlementStatusDraft, SettlementStatusRejected, false},
		// From SUBMITTED
		{SettlementStatusSubmitted, SettlementStatusApproved, true},
		{SettlementStatusSubmitted, SettlementStatusRejected, true},
		{SettlementStatusSubmitted, SettlementStatusDraft, true},
		// APPROVED is a sink
		{SettlementStatusApproved, SettlementStatusDraft, false},
		{SettlementStatusApproved, SettlementStatusSubmitted, false},
		{SettlementStatusApproved, SettlementStatusRejected, false},
		// REJECTED can only return to draft
		{SettlementStatusRejected, SettlementStatusDraft, true},
		{SettlementStatusRejected, SettlementStatusSubmitted, false},
		{SettlementStatusRejected, SettlementStatusApproved, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.canTrans, tt.from.CanTransitionTo(tt.to))
		})
	}
}

// ============================================
// Snapshot Creation Tests
// ============================================

func TestNewSettlementFromSheet(t *testing.T) {
	t.Run("copies every sheet line", func(t *testing.T) {
		sheet := inRouteSheet(t, 100, 50)
		require.NoError(t, sheet.RecordLineCollection(sheet.Lines[0].ID, decimal.NewFromInt(60), DeliveryStatusDelivered, accounting.PaymentMethodCash, "REC-9"))

		settlement, err := NewSettlementFromSheet(sheet.TenantID, "LQ-2026-0001", sheet)
		require.NoError(t, err)

		require.Len(t, settlement.Lines, 2)
		for i, sl := range settlement.Lines {
			assert.Equal(t, sheet.Lines[i].ID, sl.SheetLineID)
			assert.Equal(t, sheet.Lines[i].InvoiceID, sl.InvoiceID)
			assert.True(t, sl.AmountInvoice.Equal(sheet.Lines[i].AmountTotal))
			assert.True(t, sl.AmountCollected.Equal(sheet.Lines[i].AmountCollected))
			assert.Equal(t, sheet.Lines[i].DeliveryStatus, sl.DeliveryStatus)
			assert.Equal(t, sheet.Lines[i].PaymentMethod, sl.PaymentMethod)
		}
		assert.True(t, settlement.TotalToCollect.Equal(decimal.NewFromInt(150)))
		assert.True(t, settlement.TotalCollected.Equal(decimal.NewFromInt(60)))
	})

	t.Run("snapshot is independent of the sheet", func(t *testing.T) {
		sheet := inRouteSheet(t, 100)
		settlement, err := NewSettlementFromSheet(sheet.TenantID, "LQ-2026-0002", sheet)
		require.NoError(t, err)

		recordResult(t, settlement, 0, 100, DeliveryStatusDelivered)

		// Sheet line untouched until approval writes it back
		assert.True(t, sheet.Lines[0].AmountCollected.IsZero())
	})

	t.Run("requires sheet in route or settled", func(t *testing.T) {
		sheet := createTestSheet(t)
		addTestLine(t, sheet, "F001-0001", 100)
		_, err := NewSettlementFromSheet(sheet.TenantID, "LQ-2026-0003", sheet)
		assertDomainCode(t, err, "INVALID_STATE")
	})

	t.Run("requires a number", func(t *testing.T) {
		sheet := inRouteSheet(t, 100)
		_, err := NewSettlementFromSheet(sheet.TenantID, "", sheet)
		assertDomainCode(t, err, "INVALID_SETTLEMENT_NUMBER")
	})
}

// ============================================
// Workflow Tests
// ============================================

func TestSettlement_Submit(t *testing.T) {
	t.Run("success records submitter", func(t *testing.T) {
		settlement := createTestSettlement(t, 100)
		actor := driverActor()
		require.NoError(t, settlement.Submit(actor))
		assert.Equal(t, SettlementStatusSubmitted, settlement.Status)
		require.NotNil(t, settlement.SubmittedAt)
		assert.Equal(t, actor.ID, *settlement.SubmittedByID)
		assert.Equal(t, actor.Name, settlement.SubmittedByName)
	})

	t.Run("zero lines rejected, state unchanged", func(t *testing.T) {
		settlement := createTestSettlement(t, 100)
		settlement.Lines = nil
		assertDomainCode(t, settlement.Submit(driverActor()), "NO_LINES")
		assert.Equal(t, SettlementStatusDraft, settlement.Status)
		assert.Nil(t, settlement.SubmittedAt)
	})

	t.Run("double submit rejected", func(t *testing.T) {
		settlement := createTestSettlement(t, 100)
		require.NoError(t, settlement.Submit(driverActor()))
		assertDomainCode(t, settlement.Submit(driverActor()), "INVALID_STATE")
	})
}

func TestSettlement_Approve(t *testing.T) {
	t.Run("only from submitted", func(t *testing.T) {
		settlement := createTestSettlement(t, 100)
		assertDomainCode(t, settlement.Approve(reviewerActor()), "INVALID_STATE")
	})

	t.Run("success records reviewer", func(t *testing.T) {
		settlement := createTestSettlement(t, 100)
		require.NoError(t, settlement.Submit(driverActor()))
		reviewer := reviewerActor()
		require.NoError(t, settlement.Approve(reviewer))
		assert.Equal(t, SettlementStatusApproved, settlement.Status)
		require.NotNil(t, settlement.ReviewedAt)
		assert.Equal(t, reviewer.Name, settlement.ReviewedByName)
	})

	t.Run("approved is terminal", func(t *testing.T) {
		settlement := createTestSettlement(t, 100)
		require.NoError(t, settlement.Submit(driverActor()))
		require.NoError(t, settlement.Approve(reviewerActor()))
		assertDomainCode(t, settlement.Reject(reviewerActor(), "x"), "INVALID_STATE")
		assertDomainCode(t, settlement.ResetToDraft(reviewerActor()), "INVALID_STATE")
		assertDomainCode(t, settlement.Submit(driverActor()), "INVALID_STATE")
	})
}

func TestSettlement_Reject(t *testing.T) {
	settlement := createTestSettlement(t, 100)
	require.NoError(t, settlement.Submit(driverActor()))

	t.Run("without reason", func(t *testing.T) {
		assertDomainCode(t, settlement.Reject(reviewerActor(), ""), "INVALID_REASON")
		assert.Equal(t, SettlementStatusSubmitted, settlement.Status)
	})

	t.Run("with reason then reset clears it", func(t *testing.T) {
		require.NoError(t, settlement.Reject(reviewerActor(), "missing signature"))
		assert.Equal(t, SettlementStatusRejected, settlement.Status)
		assert.Equal(t, "missing signature", settlement.RejectionReason)

		require.NoError(t, settlement.ResetToDraft(reviewerActor()))
		assert.Equal(t, SettlementStatusDraft, settlement.Status)
		assert.Empty(t, settlement.RejectionReason)
		assert.Nil(t, settlement.SubmittedAt)
		assert.Nil(t, settlement.ReviewedAt)
	})
}

func TestSettlement_ResetToDraft_ReviewerGate(t *testing.T) {
	t.Run("submitted pull-back requires reviewer", func(t *testing.T) {
		settlement := createTestSettlement(t, 100)
		require.NoError(t, settlement.Submit(driverActor()))

		assertDomainCode(t, settlement.ResetToDraft(driverActor()), "FORBIDDEN")
		assert.Equal(t, SettlementStatusSubmitted, settlement.Status)

		require.NoError(t, settlement.ResetToDraft(reviewerActor()))
		assert.Equal(t, SettlementStatusDraft, settlement.Status)
	})

	t.Run("rejected reset allowed for the driver", func(t *testing.T) {
		settlement := createTestSettlement(t, 100)
		require.NoError(t, settlement.Submit(driverActor()))
		require.NoError(t, settlement.Reject(reviewerActor(), "cash short"))
		require.NoError(t, settlement.ResetToDraft(driverActor()))
		assert.Equal(t, SettlementStatusDraft, settlement.Status)
	})
}

// ============================================
// Line Mutation Tests
// ============================================

func TestSettlement_RecordLineResult(t *testing.T) {
	t.Run("only in draft", func(t *testing.T) {
		settlement := createTestSettlement(t, 100)
		require.NoError(t, settlement.Submit(driverActor()))
		err := settlement.RecordLineResult(settlement.Lines[0].ID, decimal.NewFromInt(100), DeliveryStatusDelivered, accounting.PaymentMethodCash, "")
		assertDomainCode(t, err, "INVALID_STATE")
	})

	t.Run("not delivered with amount keeps prior values", func(t *testing.T) {
		settlement := createTestSettlement(t, 100)
		recordResult(t, settlement, 0, 40, DeliveryStatusDelivered)

		err := settlement.RecordLineResult(settlement.Lines[0].ID, decimal.NewFromInt(20), DeliveryStatusNotDelivered, accounting.PaymentMethodCash, "")
		assertDomainCode(t, err, "NOT_DELIVERED_WITH_COLLECTION")
		assert.True(t, settlement.Lines[0].AmountCollected.Equal(decimal.NewFromInt(40)))
		assert.Equal(t, DeliveryStatusDelivered, settlement.Lines[0].DeliveryStatus)
	})

	t.Run("unknown line", func(t *testing.T) {
		settlement := createTestSettlement(t, 100)
		err := settlement.RecordLineResult(uuid.New(), decimal.NewFromInt(10), DeliveryStatusDelivered, accounting.PaymentMethodCash, "")
		assertDomainCode(t, err, "NOT_FOUND")
	})
}

// ============================================
// Totals and Rates Tests
// ============================================

func TestSettlement_Totals(t *testing.T) {
	// Invoice A expected 100 collected 100 delivered; invoice B expected 50
	// collected 0 not delivered.
	settlement := createTestSettlement(t, 100, 50)
	recordResult(t, settlement, 0, 100, DeliveryStatusDelivered)
	recordResult(t, settlement, 1, 0, DeliveryStatusNotDelivered)

	require.NoError(t, settlement.Submit(driverActor()))
	require.NoError(t, settlement.Approve(reviewerActor()))

	assert.True(t, settlement.TotalToCollect.Equal(decimal.NewFromInt(150)))
	assert.True(t, settlement.TotalCollected.Equal(decimal.NewFromInt(100)))
	assert.True(t, settlement.Difference.Equal(decimal.NewFromInt(50)))
	assert.Equal(t, "66.67", settlement.CollectionRate.StringFixed(2))
	assert.Equal(t, 1, settlement.DeliveredCount)
	assert.Equal(t, 1, settlement.NotDeliveredCount)
	assert.Equal(t, "50.00", settlement.DeliveryRate.StringFixed(2))
}

func TestSettlement_RateBounds(t *testing.T) {
	hundred := decimal.NewFromInt(100)

	t.Run("zero denominator yields zero rate", func(t *testing.T) {
		settlement := createTestSettlement(t, 100)
		settlement.Lines = nil
		settlement.RecalculateTotals()
		assert.True(t, settlement.CollectionRate.IsZero())
		assert.True(t, settlement.DeliveryRate.IsZero())
	})

	t.Run("rates stay within bounds", func(t *testing.T) {
		cases := [][2]float64{{100, 0}, {100, 50}, {100, 100}, {0.01, 0.01}}
		for _, c := range cases {
			settlement := createTestSettlement(t, c[0])
			status := DeliveryStatusDelivered
			recordResult(t, settlement, 0, c[1], status)
			assert.True(t, settlement.CollectionRate.GreaterThanOrEqual(decimal.Zero))
			assert.True(t, settlement.CollectionRate.LessThanOrEqual(hundred))
			assert.True(t, settlement.DeliveryRate.GreaterThanOrEqual(decimal.Zero))
			assert.True(t, settlement.DeliveryRate.LessThanOrEqual(hundred))
		}
	})
}

func TestSettlement_RecalculateTotalsIdempotent(t *testing.T) {
	settlement := createTestSettlement(t, 100, 50, 25)
	recordResult(t, settlement, 0, 100, DeliveryStatusDelivered)
	recordResult(t, settlement, 1, 30, DeliveryStatusDelivered)

	first := *settlement
	settlement.RecalculateTotals()
	settlement.RecalculateTotals()

	assert.True(t, first.TotalToCollect.Equal(settlement.TotalToCollect))
	assert.True(t, first.TotalCollected.Equal(settlement.TotalCollected))
	assert.True(t, first.Difference.Equal(settlement.Difference))
	assert.True(t, first.CollectionRate.Equal(settlement.CollectionRate))
	assert.True(t, first.DeliveryRate.Equal(settlement.DeliveryRate))
}

// ============================================
// Approval Write-Back Round Trip
// ============================================

func TestSettlement_ApprovalWriteBackRoundTrip(t *testing.T) {
	sheet := inRouteSheet(t, 100, 50)
	settlement, err := NewSettlementFromSheet(sheet.TenantID, "LQ-2026-0009", sheet)
	require.NoError(t, err)

	recordResult(t, settlement, 0, 100, DeliveryStatusDelivered)
	recordResult(t, settlement, 1, 0, DeliveryStatusNotDelivered)

	require.NoError(t, settlement.Submit(driverActor()))
	require.NoError(t, sheet.MarkSettled())
	require.NoError(t, settlement.Approve(reviewerActor()))

	for _, sl := range settlement.Lines {
		require.NoError(t, sheet.ApplySettlementResult(sl.InvoiceID, sl.AmountCollected, sl.DeliveryStatus, sl.PaymentMethod, sl.PaymentReference))
	}

	for _, sl := range settlement.Lines {
		line := sheet.FindLineByInvoice(sl.InvoiceID)
		require.NotNil(t, line)
		assert.True(t, line.AmountCollected.Equal(sl.AmountCollected))
		assert.Equal(t, sl.DeliveryStatus, line.DeliveryStatus)
		assert.Equal(t, sl.PaymentMethod, line.PaymentMethod)
	}
	assert.True(t, sheet.TotalCollected.Equal(settlement.TotalCollected))
}

func TestSettlement_UnderCollectedLines(t *testing.T) {
	settlement := createTestSettlement(t, 100, 50)
	recordResult(t, settlement, 0, 0, DeliveryStatusDelivered)
	recordResult(t, settlement, 1, 50, DeliveryStatusDelivered)

	flagged := settlement.UnderCollectedLines()
	require.Len(t, flagged, 1)
	assert.Equal(t, settlement.Lines[0].InvoiceID, flagged[0].InvoiceID)
}
