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

// GormSettlementRepository implements treasury.SettlementRepository using GORM
type GormSettlementRepository struct {
	db *gorm.DB
}

// NewGormSettlementRepository creates a new GormSettlementRepository
func NewGormSettlementRepository(db *gorm.DB) *GormSettlementRepository {
	return &GormSettlementRepository{db: db}
}

// FindByID finds a settlement by ID, loading its lines
func (r *GormSettlementRepository) FindByID(ctx context.Context, id uuid.UUID) (*treasury.Settlement, error) {
	var settlement treasury.Settlement
	if err := dbFromContext(ctx, r.db).
		Preload("Lines").
		First(&settlement, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &settlement, nil
}

// FindByIDForTenant finds a settlement by ID within a tenant
func (r *GormSettlementRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*treasury.Settlement, error) {
	var settlement treasury.Settlement
	if err := dbFromContext(ctx, r.db).
		Preload("Lines").
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&settlement).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &settlement, nil
}

// FindByNumber finds a settlement by its number within a tenant
func (r *GormSettlementRepository) FindByNumber(ctx context.Context, tenantID uuid.UUID, settlementNumber string) (*treasury.Settlement, error) {
	var settlement treasury.Settlement
	if err := dbFromContext(ctx, r.db).
		Preload("Lines").
		Where("tenant_id = ? AND settlement_number = ?", tenantID, settlementNumber).
		First(&settlement).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &settlement, nil
}

// FindAllForTenant finds settlements for a tenant with filtering
func (r *GormSettlementRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter treasury.SettlementFilter) ([]treasury.Settlement, error) {
	var settlements []treasury.Settlement
	query := r.applyFilter(dbFromContext(ctx, r.db).
		Model(&treasury.Settlement{}).
		Where("tenant_id = ?", tenantID), filter)

	if err := query.Preload("Lines").Find(&settlements).Error; err != nil {
		return nil, err
	}
	return settlements, nil
}

// FindBySheet finds all settlements created from a sheet
func (r *GormSettlementRepository) FindBySheet(ctx context.Context, tenantID, sheetID uuid.UUID) ([]treasury.Settlement, error) {
	var settlements []treasury.Settlement
	if err := dbFromContext(ctx, r.db).
		Preload("Lines").
		Where("tenant_id = ? AND sheet_id = ?", tenantID, sheetID).
		Order("created_at DESC").
		Find(&settlements).Error; err != nil {
		return nil, err
	}
	return settlements, nil
}

// Save creates a settlement together with its lines
func (r *GormSettlementRepository) Save(ctx context.Context, settlement *treasury.Settlement) error {
	return dbFromContext(ctx, r.db).Create(settlement).Error
}

// SaveWithLock updates a settlement with optimistic locking and syncs its lines
func (r *GormSettlementRepository) SaveWithLock(ctx context.Context, settlement *treasury.Settlement) error {
	return dbFromContext(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		currentVersion := settlement.Version
		settlement.IncrementVersion()
		settlement.UpdatedAt = time.Now()

		result := tx.Model(&treasury.Settlement{}).
			Where("id = ? AND version = ?", settlement.ID, currentVersion).
			Updates(map[string]any{
				"status":              settlement.Status,
				"total_to_collect":    settlement.TotalToCollect,
				"total_collected":     settlement.TotalCollected,
				"difference":          settlement.Difference,
				"collection_rate":     settlement.CollectionRate,
				"delivered_count":     settlement.DeliveredCount,
				"not_delivered_count": settlement.NotDeliveredCount,
				"delivery_rate":       settlement.DeliveryRate,
				"notes":               settlement.Notes,
				"submitted_at":        settlement.SubmittedAt,
				"submitted_by_id":     settlement.SubmittedByID,
				"submitted_by_name":   settlement.SubmittedByName,
				"reviewed_at":         settlement.ReviewedAt,
				"reviewed_by_id":      settlement.ReviewedByID,
				"reviewed_by_name":    settlement.ReviewedByName,
				"rejection_reason":    settlement.RejectionReason,
				"version":             settlement.Version,
				"updated_at":          settlement.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			var count int64
			tx.Model(&treasury.Settlement{}).Where("id = ?", settlement.ID).Count(&count)
			if count == 0 {
				return shared.ErrNotFound
			}
			return shared.NewDomainError("OPTIMISTIC_LOCK_FAILED", "Settlement was modified by another transaction")
		}

		for i := range settlement.Lines {
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				UpdateAll: true,
			}).Create(&settlement.Lines[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete removes a settlement and its lines
func (r *GormSettlementRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	result := dbFromContext(ctx, r.db).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Delete(&treasury.Settlement{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// CountForTenant counts settlements for a tenant with optional filters
func (r *GormSettlementRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter treasury.SettlementFilter) (int64, error) {
	var count int64
	query := r.applyConditions(dbFromContext(ctx, r.db).
		Model(&treasury.Settlement{}).
		Where("tenant_id = ?", tenantID), filter)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountBySheetAndStatus counts a sheet's settlements in a given status
func (r *GormSettlementRepository) CountBySheetAndStatus(ctx context.Context, tenantID, sheetID uuid.UUID, status treasury.SettlementStatus) (int64, error) {
	var count int64
	if err := dbFromContext(ctx, r.db).
		Model(&treasury.Settlement{}).
		Where("tenant_id = ? AND sheet_id = ? AND status = ?", tenantID, sheetID, status).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// GenerateNumber generates the next settlement number for a tenant (LQ-<year>-NNNN)
func (r *GormSettlementRepository) GenerateNumber(ctx context.Context, tenantID uuid.UUID) (string, error) {
	prefix := fmt.Sprintf("LQ-%d-", time.Now().Year())

	var maxNumber string
	if err := dbFromContext(ctx, r.db).
		Model(&treasury.Settlement{}).
		Where("tenant_id = ? AND settlement_number LIKE ?", tenantID, prefix+"%").
		Order("settlement_number DESC").
		Limit(1).
		Pluck("settlement_number", &maxNumber).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
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

func (r *GormSettlementRepository) applyConditions(query *gorm.DB, filter treasury.SettlementFilter) *gorm.DB {
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.SheetID != nil {
		query = query.Where("sheet_id = ?", *filter.SheetID)
	}
	if filter.FromDate != nil {
		query = query.Where("submitted_at >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		query = query.Where("submitted_at <= ?", *filter.ToDate)
	}
	if filter.Search != "" {
		query = query.Where("settlement_number ILIKE ?", "%"+filter.Search+"%")
	}
	return query
}

func (r *GormSettlementRepository) applyFilter(query *gorm.DB, filter treasury.SettlementFilter) *gorm.DB {
	query = r.applyConditions(query, filter)
	query = query.Order(orderClause(filter.OrderBy, filter.OrderDir, SettlementSortFields, "created_at"))
	if filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}
	return query
}
