package badges

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/printmitra/printmitra-backend/pkg/db/models"
	"github.com/printmitra/printmitra-backend/pkg/enums"
)

// Repository defines persistence for the badge threshold table.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ListConfigs(ctx context.Context) ([]models.BadgeConfig, error)
	SaveConfigs(ctx context.Context, configs []models.BadgeConfig) error
}

// VendorStore is the slice of the vendor repository the badge service needs.
type VendorStore interface {
	FindVendor(ctx context.Context, tx *gorm.DB, vendorID uuid.UUID) (*models.Vendor, error)
	SetBadge(ctx context.Context, tx *gorm.DB, vendorID uuid.UUID, badge enums.VendorBadge) error
}
