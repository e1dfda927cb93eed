package matching

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/printmitra/printmitra-backend/pkg/db/models"
	"github.com/printmitra/printmitra-backend/pkg/enums"
)

// Repository defines persistence operations for vendor offers.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOffer(ctx context.Context, offer *models.VendorOffer) (*models.VendorOffer, error)
	FindOffer(ctx context.Context, id uuid.UUID) (*models.VendorOffer, error)
	// ClaimOffer is the compare-and-set decision: it moves the offer out of
	// the offered state only when it is still open for the given vendor.
	ClaimOffer(ctx context.Context, offerID, vendorID uuid.UUID, to enums.OfferStatus, decidedAt time.Time) (bool, error)
	ListDueOffers(ctx context.Context, cutoff time.Time, limit int) ([]models.VendorOffer, error)
	ListOffersByOrder(ctx context.Context, orderID uuid.UUID) ([]models.VendorOffer, error)
	CountAttempts(ctx context.Context, orderID uuid.UUID) (int, error)
	// VoidOpen closes the open offer for an order without blaming a vendor,
	// used when the order is cancelled or manually assigned.
	VoidOpen(ctx context.Context, orderID uuid.UUID, decidedAt time.Time) (int64, error)
}
