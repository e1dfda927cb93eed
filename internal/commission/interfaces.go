package commission

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/printmitra/printmitra-backend/pkg/db/models"
)

// Repository defines persistence for commission settings and payouts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateSetting(ctx context.Context, setting *models.CommissionSetting) (*models.CommissionSetting, error)
	// LatestSettingAt returns the newest setting whose effective_from is at
	// or before the given time.
	LatestSettingAt(ctx context.Context, at time.Time) (*models.CommissionSetting, error)
	ListSettings(ctx context.Context, limit int) ([]models.CommissionSetting, error)
	CreatePayout(ctx context.Context, payout *models.Payout) (*models.Payout, error)
	ListPayouts(ctx context.Context, vendorID uuid.UUID, limit int) ([]models.Payout, error)
	// FindUnsettledCompleted returns completed orders with no payout whose
	// completion falls inside [periodStart, periodEnd).
	FindUnsettledCompleted(ctx context.Context, periodStart, periodEnd time.Time) ([]models.Order, error)
	MarkOrdersSettled(ctx context.Context, orderIDs []uuid.UUID, payoutID uuid.UUID) error
}
