package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/almi/backend/internal/domain/shared"
	"github.com/almi/backend/internal/domain/treasury"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// activeSheetStatuses are the statuses that keep an invoice bound to a sheet
var activeSheetStatuses = []treasury.SheetStatus{
	treasury.SheetStatusDraft,
	treasury.SheetStatusConfirmed,
	treasury.SheetStatusInRoute,
	treasury.SheetStatusSettled,
}

// GormSettlementSheetRepository implements treasury.SettlementSheetRepository using GORM
type GormSettlementSheetRepository struct {
	db *gorm.DB
}

// NewGormSettlementSheetRepository creates a new GormSettlementSheetRepository
func NewGormSettlementSheetRepository(db *gorm.DB) *GormSettlementSheetRepository {
	return &GormSettlementSheetRepository{db: db}
}

// FindByID finds a sheet by ID, loading its lines
func (r *GormSettlementSheetRepository) FindByID(ctx context.Context, id uuid.UUID) (*treasury.SettlementSheet, error) {
	var sheet treasury.SettlementSheet
	if err := dbFromContext(ctx, r.db).
		Preload("Lines").
		First(&sheet, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &sheet, nil
}

// FindByIDForTenant finds a sheet by ID within a tenant
func (r *GormSettlementSheetRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*treasury.SettlementSheet, error) {
	var sheet treasury.SettlementSheet
	if err := dbFromContext(ctx, r.db).
		Preload("Lines").
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&sheet).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &sheet, nil
}

// FindByNumber finds a sheet by its number within a tenant
func (r *GormSettlementSheetRepository) FindByNumber(ctx context.Context, tenantID uuid.UUID, sheetNumber string) (*treasury.SettlementSheet, error) {
	var sheet treasury.SettlementSheet
	if err := dbFromContext(ctx, r.db).
		Preload("Lines").
		Where("tenant_id = ? AND sheet_number = ?", tenantID, sheetNumber).
		First(&sheet).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &sheet, nil
}

// FindAllForTenant finds sheets for a tenant with filtering
func (r *GormSettlementSheetRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter treasury.SheetFilter) ([]treasury.SettlementSheet, error) {
	var sheets []treasury.SettlementSheet
	query := r.applyFilter(dbFromContext(ctx, r.db).
		Model(&treasury.SettlementSheet{}).
		Where("tenant_id = ?", tenantID), filter)

	if err := query.Preload("Lines").Find(&sheets).Error; err != nil {
		return nil, err
	}
	return sheets, nil
}

// FindActiveByInvoice finds the active sheet currently holding the invoice
func (r *GormSettlementSheetRepository) FindActiveByInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) (*treasury.SettlementSheet, error) {
	var sheet treasury.SettlementSheet
	if err := dbFromContext(ctx, r.db).
		Joins("JOIN treasury_sheet_lines ON treasury_sheet_lines.sheet_id = treasury_settlement_sheets.id").
		Where("treasury_settlement_sheets.tenant_id = ?", tenantID).
		Where("treasury_sheet_lines.invoice_id = ?", invoiceID).
		Where("treasury_settlement_sheets.status IN ?", activeSheetStatuses).
		Preload("Lines").
		First(&sheet).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &sheet, nil
}

// Save creates a sheet together with its lines
func (r *GormSettlementSheetRepository) Save(ctx context.Context, sheet *treasury.SettlementSheet) error {
	return dbFromContext(ctx, r.db).Create(sheet).Error
}

// SaveWithLock updates a sheet with optimistic locking and syncs its lines
func (r *GormSettlementSheetRepository) SaveWithLock(ctx context.Context, sheet *treasury.SettlementSheet) error {
	return dbFromContext(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		currentVersion := sheet.Version
		sheet.IncrementVersion()
		sheet.UpdatedAt = time.Now()

		result := tx.Model(&treasury.SettlementSheet{}).
			Where("id = ? AND version = ?", sheet.ID, currentVersion).
			Updates(map[string]any{
				"status":              sheet.Status,
				"route_id":            sheet.RouteID,
				"route_number":        sheet.RouteNumber,
				"driver_name":         sheet.DriverName,
				"sheet_date":          sheet.SheetDate,
				"total_amount":        sheet.TotalAmount,
				"total_collected":     sheet.TotalCollected,
				"total_pending":       sheet.TotalPending,
				"delivered_count":     sheet.DeliveredCount,
				"not_delivered_count": sheet.NotDeliveredCount,
				"pending_count":       sheet.PendingCount,
				"notes":               sheet.Notes,
				"confirmed_at":        sheet.ConfirmedAt,
				"settled_at":          sheet.SettledAt,
				"closed_at":           sheet.ClosedAt,
				"cancelled_at":        sheet.CancelledAt,
				"cancel_reason":       sheet.CancelReason,
				"version":             sheet.Version,
				"updated_at":          sheet.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			var count int64
			tx.Model(&treasury.SettlementSheet{}).Where("id = ?", sheet.ID).Count(&count)
			if count == 0 {
				return shared.ErrNotFound
			}
			return shared.NewDomainError("OPTIMISTIC_LOCK_FAILED", "Settlement sheet was modified by another transaction")
		}

		return r.syncLines(tx, sheet)
	})
}

// syncLines upserts the sheet's lines and drops rows removed from the aggregate
func (r *GormSettlementSheetRepository) syncLines(tx *gorm.DB, sheet *treasury.SettlementSheet) error {
	keep := make([]uuid.UUID, 0, len(sheet.Lines))
	for i := range sheet.Lines {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).Create(&sheet.Lines[i]).Error; err != nil {
			return err
		}
		keep = append(keep, sheet.Lines[i].ID)
	}

	query := tx.Where("sheet_id = ?", sheet.ID)
	if len(keep) > 0 {
		query = query.Where("id NOT IN ?", keep)
	}
	return query.Delete(&treasury.SheetLine{}).Error
}

// Delete removes a sheet and its lines
func (r *GormSettlementSheetRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	result := dbFromContext(ctx, r.db).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Delete(&treasury.SettlementSheet{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// CountForTenant counts sheets for a tenant with optional filters
func (r *GormSettlementSheetRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter treasury.SheetFilter) (int64, error) {
	var count int64
	query := r.applyConditions(dbFromContext(ctx, r.db).
		Model(&treasury.SettlementSheet{}).
		Where("tenant_id = ?", tenantID), filter)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// GenerateNumber generates the next sheet number for a tenant (HL-<year>-NNNN)
func (r *GormSettlementSheetRepository) GenerateNumber(ctx context.Context, tenantID uuid.UUID) (string, error) {
	prefix := fmt.Sprintf("HL-%d-", time.Now().Year())

	var maxNumber string
	if err := dbFromContext(ctx, r.db).
		Model(&treasury.SettlementSheet{}).
		Where("tenant_id = ? AND sheet_number LIKE ?", tenantID, prefix+"%").
		Order("sheet_number DESC").
		Limit(1).
		Pluck("sheet_number", &maxNumber).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	nextSeq := 1
	if maxNumber != "" {
		var seq int
		if _, err := fmt.Sscanf(maxNumber, prefix+"%d", &seq); err == nil {
			nextSeq = seq + 1
		}
	}

	return fmt.Sprintf("%s%04d", prefix, nextSeq), nil
}

func (r *GormSettlementSheetRepository) applyConditions(query *gorm.DB, filter treasury.SheetFilter) *gorm.DB {
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.RouteID != nil {
		query = query.Where("route_id = ?", *filter.RouteID)
	}
	if filter.FromDate != nil {
		query = query.Where("sheet_date >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		query = query.Where("sheet_date <= ?", *filter.ToDate)
	}
	if filter.Search != "" {
		query = query.Where("sheet_number ILIKE ?", "%"+filter.Search+"%")
	}
	return query
}

func (r *GormSettlementSheetRepository) applyFilter(query *gorm.DB, filter treasury.SheetFilter) *gorm.DB {
	query = r.applyConditions(query, filter)
	query = query.Order(orderClause(filter.OrderBy, filter.OrderDir, SheetSortFields, "created_at"))
	if filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}
	return query
}
