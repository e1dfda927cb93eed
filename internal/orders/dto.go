package orders

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/printmitra/printmitra-backend/internal/pricing"
	"github.com/printmitra/printmitra-backend/pkg/enums"
	"github.com/printmitra/printmitra-backend/pkg/types"
)

// CreateEstimateInput captures everything needed to price and persist a new
// order in the estimated state.
type CreateEstimateInput struct {
	CustomerName    string
	CustomerEmail   string
	CustomerPhone   string
	FulfillmentType enums.FulfillmentType
	DeliveryAddress *types.Address
	Location        *types.GeographyPoint
	DistanceKm      float64
	// CatalogID pins the estimate to the catalog version the client priced
	// against. Zero means "whatever is currently active".
	CatalogID uuid.UUID
	// VendorID scopes catalog resolution, so a quote made at a vendor's
	// override rates survives into the order. Nil means global pricing.
	VendorID *uuid.UUID
	Items    []pricing.LineItemInput
	Actor    Actor
}

// ConfirmPaymentInput carries the payment gateway callback data. PaymentRef
// is the gateway's transaction id and doubles as the idempotency handle.
type ConfirmPaymentInput struct {
	OrderID    uuid.UUID
	Amount     decimal.Decimal
	Currency   enums.Currency
	PaymentRef string
	Actor      Actor
}

// VendorActionInput scopes a production-side transition to the assigned
// vendor.
type VendorActionInput struct {
	OrderID  uuid.UUID
	VendorID uuid.UUID
	Actor    Actor
}

// CancelInput cancels an order with an optional reason recorded in history.
type CancelInput struct {
	OrderID uuid.UUID
	Note    *string
	Actor   Actor
}

// Actor identifies who drove a transition, carried into outbox envelopes.
type Actor struct {
	UserID   uuid.UUID
	VendorID *uuid.UUID
	Role     string
}
