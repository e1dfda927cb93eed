package vendors

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/printmitra/printmitra-backend/pkg/db/models"
	"github.com/printmitra/printmitra-backend/pkg/pagination"
	"github.com/printmitra/printmitra-backend/pkg/types"
)

// Repository defines persistence operations for vendors.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, vendor *models.Vendor) (*models.Vendor, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Vendor, error)
	ListOnline(ctx context.Context) ([]models.Vendor, error)
	List(ctx context.Context, params ListParams) ([]models.Vendor, *pagination.Cursor, error)
	Update(ctx context.Context, vendorID uuid.UUID, updates map[string]any) error
	// AddCompletion credits one sale and its net earnings and frees the
	// workload slot in a single statement.
	AddCompletion(ctx context.Context, vendorID uuid.UUID, netPayout decimal.Decimal) error
	AdjustWorkload(ctx context.Context, vendorID uuid.UUID, delta int) error
}

// ListParams filters the vendor listing.
type ListParams struct {
	Limit      int
	Cursor     *pagination.Cursor
	OnlineOnly bool
}

// RegisterInput creates a new vendor record.
type RegisterInput struct {
	Name               string
	ShopName           string
	Phone              string
	Email              string
	Location           types.GeographyPoint
	AutoAcceptRadiusKm float64
}
