package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/printmitra/printmitra-backend/pkg/enums"
)

// OrderStatusChangedEvent is emitted on every order lifecycle transition.
type OrderStatusChangedEvent struct {
	OrderID     uuid.UUID         `json:"order_id"`
	OrderNumber string            `json:"order_number"`
	FromStatus  enums.OrderStatus `json:"from_status"`
	ToStatus    enums.OrderStatus `json:"to_status"`
	VendorID    *uuid.UUID        `json:"vendor_id,omitempty"`
	ChangedAt   time.Time         `json:"changed_at"`
	Note        string            `json:"note,omitempty"`
}

// OfferCreatedEvent signals a new offer in the dispatch cascade.
type OfferCreatedEvent struct {
	OfferID    uuid.UUID `json:"offer_id"`
	OrderID    uuid.UUID `json:"order_id"`
	VendorID   uuid.UUID `json:"vendor_id"`
	Attempt    int       `json:"attempt"`
	DistanceKm float64   `json:"distance_km"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// OfferAcceptedEvent is emitted when a vendor wins an open offer.
type OfferAcceptedEvent struct {
	OfferID    uuid.UUID `json:"offer_id"`
	OrderID    uuid.UUID `json:"order_id"`
	VendorID   uuid.UUID `json:"vendor_id"`
	AcceptedAt time.Time `json:"accepted_at"`
}

// OfferDeclinedEvent is emitted when a vendor turns an offer down.
type OfferDeclinedEvent struct {
	OfferID    uuid.UUID `json:"offer_id"`
	OrderID    uuid.UUID `json:"order_id"`
	VendorID   uuid.UUID `json:"vendor_id"`
	Attempt    int       `json:"attempt"`
	DeclinedAt time.Time `json:"declined_at"`
}

// OfferExpiredEvent is emitted when the acceptance window lapses unanswered.
type OfferExpiredEvent struct {
	OfferID   uuid.UUID `json:"offer_id"`
	OrderID   uuid.UUID `json:"order_id"`
	VendorID  uuid.UUID `json:"vendor_id"`
	Attempt   int       `json:"attempt"`
	ExpiredAt time.Time `json:"expired_at"`
}

// PayoutRecordedEvent carries the settled totals for one vendor period.
type PayoutRecordedEvent struct {
	PayoutID         uuid.UUID       `json:"payout_id"`
	VendorID         uuid.UUID       `json:"vendor_id"`
	PeriodStart      time.Time       `json:"period_start"`
	PeriodEnd        time.Time       `json:"period_end"`
	OrderCount       int             `json:"order_count"`
	GrossEarnings    decimal.Decimal `json:"gross_earnings"`
	CommissionAmount decimal.Decimal `json:"commission_amount"`
	NetPayout        decimal.Decimal `json:"net_payout"`
	Currency         enums.Currency  `json:"currency"`
}

// BadgeUpgradedEvent reports a vendor crossing a sales threshold.
type BadgeUpgradedEvent struct {
	VendorID   uuid.UUID         `json:"vendor_id"`
	FromBadge  enums.VendorBadge `json:"from_badge"`
	ToBadge    enums.VendorBadge `json:"to_badge"`
	TotalSales int               `json:"total_sales"`
	UpgradedAt time.Time         `json:"upgraded_at"`
}
