package vendors

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/printmitra/printmitra-backend/pkg/db/models"
	"github.com/printmitra/printmitra-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a gorm-backed vendor repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, vendor *models.Vendor) (*models.Vendor, error) {
	if err := r.db.WithContext(ctx).Create(vendor).Error; err != nil {
		return nil, err
	}
	return vendor, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Vendor, error) {
	var vendor models.Vendor
	if err := r.db.WithContext(ctx).First(&vendor, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &vendor, nil
}

func (r *repository) ListOnline(ctx context.Context) ([]models.Vendor, error) {
	var results []models.Vendor
	err := r.db.WithContext(ctx).
		Where("online = ?", true).
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (r *repository) List(ctx context.Context, params ListParams) ([]models.Vendor, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).Model(&models.Vendor{})
	if params.OnlineOnly {
		query = query.Where("online = ?", true)
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var results []models.Vendor
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&results).Error; err != nil {
		return nil, nil, err
	}

	if len(results) > normalized {
		next := results[normalized]
		results = results[:normalized]
		return results, &pagination.Cursor{CreatedAt: next.CreatedAt, ID: next.ID}, nil
	}
	return results, nil, nil
}

func (r *repository) Update(ctx context.Context, vendorID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Vendor{}).
		Where("id = ?", vendorID).
		Updates(updates).Error
}

func (r *repository) AddCompletion(ctx context.Context, vendorID uuid.UUID, netPayout decimal.Decimal) error {
	return r.db.WithContext(ctx).
		Model(&models.Vendor{}).
		Where("id = ?", vendorID).
		Updates(map[string]any{
			"total_sales":    gorm.Expr("total_sales + 1"),
			"total_earnings": gorm.Expr("total_earnings + ?", netPayout),
			"workload_count": gorm.Expr("CASE WHEN workload_count > 0 THEN workload_count - 1 ELSE 0 END"),
		}).Error
}

func (r *repository) AdjustWorkload(ctx context.Context, vendorID uuid.UUID, delta int) error {
	if delta >= 0 {
		return r.db.WithContext(ctx).
			Model(&models.Vendor{}).
			Where("id = ?", vendorID).
			Update("workload_count", gorm.Expr("workload_count + ?", delta)).Error
	}
	return r.db.WithContext(ctx).
		Model(&models.Vendor{}).
		Where("id = ?", vendorID).
		Update("workload_count", gorm.Expr("CASE WHEN workload_count + ? > 0 THEN workload_count + ? ELSE 0 END", delta, delta)).Error
}
