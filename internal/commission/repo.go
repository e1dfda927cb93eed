package commission

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/printmitra/printmitra-backend/pkg/db/models"
	"github.com/printmitra/printmitra-backend/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a gorm-backed commission repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateSetting(ctx context.Context, setting *models.CommissionSetting) (*models.CommissionSetting, error) {
	if err := r.db.WithContext(ctx).Create(setting).Error; err != nil {
		return nil, err
	}
	return setting, nil
}

func (r *repository) LatestSettingAt(ctx context.Context, at time.Time) (*models.CommissionSetting, error) {
	var setting models.CommissionSetting
	err := r.db.WithContext(ctx).
		Where("effective_from <= ?", at).
		Order("effective_from DESC, created_at DESC").
		First(&setting).Error
	if err != nil {
		return nil, err
	}
	return &setting, nil
}

func (r *repository) ListSettings(ctx context.Context, limit int) ([]models.CommissionSetting, error) {
	if limit <= 0 {
		limit = 50
	}
	var settings []models.CommissionSetting
	err := r.db.WithContext(ctx).
		Order("effective_from DESC").
		Limit(limit).
		Find(&settings).Error
	if err != nil {
		return nil, err
	}
	return settings, nil
}

func (r *repository) CreatePayout(ctx context.Context, payout *models.Payout) (*models.Payout, error) {
	if err := r.db.WithContext(ctx).Create(payout).Error; err != nil {
		return nil, err
	}
	return payout, nil
}

func (r *repository) ListPayouts(ctx context.Context, vendorID uuid.UUID, limit int) ([]models.Payout, error) {
	if limit <= 0 {
		limit = 50
	}
	query := r.db.WithContext(ctx).Model(&models.Payout{})
	if vendorID != uuid.Nil {
		query = query.Where("vendor_id = ?", vendorID)
	}
	var payouts []models.Payout
	if err := query.Order("period_end DESC").Limit(limit).Find(&payouts).Error; err != nil {
		return nil, err
	}
	return payouts, nil
}

func (r *repository) FindUnsettledCompleted(ctx context.Context, periodStart, periodEnd time.Time) ([]models.Order, error) {
	var results []models.Order
	err := r.db.WithContext(ctx).
		Where("status = ? AND payout_id IS NULL", enums.OrderStatusCompleted).
		Where("completed_at >= ? AND completed_at < ?", periodStart, periodEnd).
		Order("assigned_vendor_id, completed_at").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (r *repository) MarkOrdersSettled(ctx context.Context, orderIDs []uuid.UUID, payoutID uuid.UUID) error {
	if len(orderIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id IN ? AND payout_id IS NULL", orderIDs).
		Update("payout_id", payoutID).Error
}
