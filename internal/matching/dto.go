package matching

import (
	"github.com/google/uuid"

	"github.com/printmitra/printmitra-backend/internal/orders"
)

// DecisionInput carries a vendor's answer to an open offer.
type DecisionInput struct {
	OfferID  uuid.UUID
	VendorID uuid.UUID
	Actor    orders.Actor
}

// ManualAssignInput is the admin escape hatch for orders the cascade could
// not place.
type ManualAssignInput struct {
	OrderID  uuid.UUID
	VendorID uuid.UUID
	Actor    orders.Actor
}

// candidate pairs a vendor with its distance to the order for ranking.
type candidate struct {
	vendorID   uuid.UUID
	distanceKm float64
	badgeRank  int
}
