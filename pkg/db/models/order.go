package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/printmitra/printmitra-backend/pkg/enums"
	"github.com/printmitra/printmitra-backend/pkg/types"
)

// Order is the customer print order aggregate. Status is mutated only by the
// lifecycle service through compare-and-set updates; money fields are set at
// estimation and frozen once the order is paid.
type Order struct {
	ID               uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber      string                `gorm:"column:order_number;not null;uniqueIndex"`
	CustomerName     string                `gorm:"column:customer_name;not null"`
	CustomerEmail    string                `gorm:"column:customer_email;not null"`
	CustomerPhone    string                `gorm:"column:customer_phone;not null"`
	FulfillmentType  enums.FulfillmentType `gorm:"column:fulfillment_type;type:fulfillment_type;not null"`
	DeliveryAddress  *types.Address        `gorm:"column:delivery_address;type:jsonb;serializer:json"`
	Location         *types.GeographyPoint `gorm:"column:location;type:jsonb;serializer:json"`
	Status           enums.OrderStatus     `gorm:"column:status;type:order_status;not null;default:'estimated'"`
	Currency         enums.Currency        `gorm:"column:currency;type:text;not null;default:'INR'"`
	CatalogID        uuid.UUID             `gorm:"column:catalog_id;type:uuid;not null"`
	ItemsSubtotal    decimal.Decimal       `gorm:"column:items_subtotal;type:numeric(12,2);not null"`
	DeliveryCharge   decimal.Decimal       `gorm:"column:delivery_charge;type:numeric(12,2);not null"`
	Total            decimal.Decimal       `gorm:"column:total;type:numeric(12,2);not null"`
	AssignedVendorID *uuid.UUID            `gorm:"column:assigned_vendor_id;type:uuid"`
	NeedsManualAssign bool                 `gorm:"column:needs_manual_assign;not null;default:false"`

	// Commission snapshot, written once when the order completes.
	CommissionPct    *decimal.Decimal `gorm:"column:commission_pct;type:numeric(5,2)"`
	CommissionAmount *decimal.Decimal `gorm:"column:commission_amount;type:numeric(12,2)"`
	NetPayout        *decimal.Decimal `gorm:"column:net_payout;type:numeric(12,2)"`
	PayoutID         *uuid.UUID       `gorm:"column:payout_id;type:uuid"`

	PaidAt      *time.Time `gorm:"column:paid_at"`
	AssignedAt  *time.Time `gorm:"column:assigned_at"`
	CompletedAt *time.Time `gorm:"column:completed_at"`
	CancelledAt *time.Time `gorm:"column:cancelled_at"`

	Items   []OrderLineItem      `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	History []OrderStatusHistory `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
