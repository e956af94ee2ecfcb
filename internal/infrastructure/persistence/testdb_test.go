package persistence

import (
	"testing"

	"github.com/almi/backend/internal/domain/accounting"
	"github.com/almi/backend/internal/domain/dispatch"
	"github.com/almi/backend/internal/domain/treasury"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupTestDB opens an in-memory SQLite database with the full schema.
// Search filters use ILIKE and stay out of these tests; everything else
// behaves the same as on PostgreSQL.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&treasury.SettlementSheet{},
		&treasury.SheetLine{},
		&treasury.Settlement{},
		&treasury.SettlementLine{},
		&dispatch.Route{},
		&dispatch.CollectionSheet{},
		&dispatch.CollectionLine{},
		&accounting.InvoiceRef{},
		&PaymentRecord{},
	)
	require.NoError(t, err)

	return db
}
