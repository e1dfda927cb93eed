package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/printmitra/printmitra-backend/pkg/enums"
)

// VendorOffer is one attempt to hand an order to a vendor. A partial unique
// index on (order_id) WHERE status = 'offered' guarantees at most one open
// offer per order.
type VendorOffer struct {
	ID         uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID    uuid.UUID         `gorm:"column:order_id;type:uuid;not null"`
	VendorID   uuid.UUID         `gorm:"column:vendor_id;type:uuid;not null"`
	Status     enums.OfferStatus `gorm:"column:status;type:offer_status;not null;default:'offered'"`
	Attempt    int               `gorm:"column:attempt;not null"`
	DistanceKm float64           `gorm:"column:distance_km;not null;default:0"`
	ExpiresAt  time.Time         `gorm:"column:expires_at;not null"`
	DecidedAt  *time.Time        `gorm:"column:decided_at"`
	CreatedAt  time.Time         `gorm:"column:created_at;autoCreateTime"`
}
