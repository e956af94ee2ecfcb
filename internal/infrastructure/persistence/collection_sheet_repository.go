package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/almi/backend/internal/domain/dispatch"
	"github.com/almi/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormCollectionSheetRepository implements dispatch.CollectionSheetRepository using GORM
type GormCollectionSheetRepository struct {
	db *gorm.DB
}

// NewGormCollectionSheetRepository creates a new GormCollectionSheetRepository
func NewGormCollectionSheetRepository(db *gorm.DB) *GormCollectionSheetRepository {
	return &GormCollectionSheetRepository{db: db}
}

// FindByID finds a collection sheet by ID, loading its lines
func (r *GormCollectionSheetRepository) FindByID(ctx context.Context, id uuid.UUID) (*dispatch.CollectionSheet, error) {
	var sheet dispatch.CollectionSheet
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

// FindByIDForTenant finds a collection sheet by ID within a tenant
func (r *GormCollectionSheetRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*dispatch.CollectionSheet, error) {
	var sheet dispatch.CollectionSheet
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

// FindBySettlement finds the collection sheet of a settlement, if any
func (r *GormCollectionSheetRepository) FindBySettlement(ctx context.Context, tenantID, settlementID uuid.UUID) (*dispatch.CollectionSheet, error) {
	var sheet dispatch.CollectionSheet
	if err := dbFromContext(ctx, r.db).
		Preload("Lines").
		Where("tenant_id = ? AND settlement_id = ?", tenantID, settlementID).
		First(&sheet).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &sheet, nil
}

// FindByLine finds the collection sheet owning the given line
func (r *GormCollectionSheetRepository) FindByLine(ctx context.Context, tenantID, lineID uuid.UUID) (*dispatch.CollectionSheet, error) {
	var line dispatch.CollectionLine
	if err := dbFromContext(ctx, r.db).
		First(&line, "id = ?", lineID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return r.FindByIDForTenant(ctx, tenantID, line.SheetID)
}

// FindAllForTenant finds collection sheets for a tenant with filtering
func (r *GormCollectionSheetRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter dispatch.CollectionSheetFilter) ([]dispatch.CollectionSheet, error) {
	var sheets []dispatch.CollectionSheet
	query := r.applyConditions(dbFromContext(ctx, r.db).
		Model(&dispatch.CollectionSheet{}).
		Where("tenant_id = ?", tenantID), filter)

	query = query.Order(orderClause(filter.OrderBy, filter.OrderDir, CollectionSheetSortFields, "created_at"))
	if filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	if err := query.Preload("Lines").Find(&sheets).Error; err != nil {
		return nil, err
	}
	return sheets, nil
}

// Save creates a collection sheet together with its lines
func (r *GormCollectionSheetRepository) Save(ctx context.Context, sheet *dispatch.CollectionSheet) error {
	return dbFromContext(ctx, r.db).Create(sheet).Error
}

// SaveWithLock updates a collection sheet with optimistic locking and syncs its lines
func (r *GormCollectionSheetRepository) SaveWithLock(ctx context.Context, sheet *dispatch.CollectionSheet) error {
	return dbFromContext(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		currentVersion := sheet.Version
		sheet.IncrementVersion()
		sheet.UpdatedAt = time.Now()

		result := tx.Model(&dispatch.CollectionSheet{}).
			Where("id = ? AND version = ?", sheet.ID, currentVersion).
			Updates(map[string]any{
				"status":          sheet.Status,
				"driver_name":     sheet.DriverName,
				"total_collected": sheet.TotalCollected,
				"total_pending":   sheet.TotalPending,
				"total_assigned":  sheet.TotalAssigned,
				"total_paid":      sheet.TotalPaid,
				"total_deposited": sheet.TotalDeposited,
				"total_missing":   sheet.TotalMissing,
				"pending_count":   sheet.PendingCount,
				"assigned_count":  sheet.AssignedCount,
				"paid_count":      sheet.PaidCount,
				"cancelled_count": sheet.CancelledCount,
				"notes":           sheet.Notes,
				"validated_at":    sheet.ValidatedAt,
				"cancelled_at":    sheet.CancelledAt,
				"version":         sheet.Version,
				"updated_at":      sheet.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			var count int64
			tx.Model(&dispatch.CollectionSheet{}).Where("id = ?", sheet.ID).Count(&count)
			if count == 0 {
				return shared.ErrNotFound
			}
			return shared.NewDomainError("OPTIMISTIC_LOCK_FAILED", "Collection sheet was modified by another transaction")
		}

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
		return query.Delete(&dispatch.CollectionLine{}).Error
	})
}

// Delete removes a collection sheet and its lines
func (r *GormCollectionSheetRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	result := dbFromContext(ctx, r.db).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Delete(&dispatch.CollectionSheet{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// CountForTenant counts collection sheets for a tenant with optional filters
func (r *GormCollectionSheetRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter dispatch.CollectionSheetFilter) (int64, error) {
	var count int64
	query := r.applyConditions(dbFromContext(ctx, r.db).
		Model(&dispatch.CollectionSheet{}).
		Where("tenant_id = ?", tenantID), filter)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// GenerateNumber generates the next collection sheet number for a tenant (PC-<year>-NNNN)
func (r *GormCollectionSheetRepository) GenerateNumber(ctx context.Context, tenantID uuid.UUID) (string, error) {
	prefix := fmt.Sprintf("PC-%d-", time.Now().Year())

	var maxNumber string
	if err := dbFromContext(ctx, r.db).
		Model(&dispatch.CollectionSheet{}).
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

func (r *GormCollectionSheetRepository) applyConditions(query *gorm.DB, filter dispatch.CollectionSheetFilter) *gorm.DB {
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.SettlementID != nil {
		query = query.Where("settlement_id = ?", *filter.SettlementID)
	}
	if filter.Search != "" {
		query = query.Where("sheet_number ILIKE ? OR settlement_number ILIKE ?",
			"%"+filter.Search+"%", "%"+filter.Search+"%")
	}
	return query
}
