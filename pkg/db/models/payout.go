package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/printmitra/printmitra-backend/pkg/enums"
)

// Payout is one settled batch of completed orders for a vendor. The
// idempotency key (vendor + period) carries a unique index so a retried
// batch run cannot record the same period twice.
type Payout struct {
	ID               uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VendorID         uuid.UUID          `gorm:"column:vendor_id;type:uuid;not null"`
	PeriodStart      time.Time          `gorm:"column:period_start;not null"`
	PeriodEnd        time.Time          `gorm:"column:period_end;not null"`
	OrderCount       int                `gorm:"column:order_count;not null"`
	GrossEarnings    decimal.Decimal    `gorm:"column:gross_earnings;type:numeric(14,2);not null"`
	CommissionAmount decimal.Decimal    `gorm:"column:commission_amount;type:numeric(14,2);not null"`
	NetPayout        decimal.Decimal    `gorm:"column:net_payout;type:numeric(14,2);not null"`
	Status           enums.PayoutStatus `gorm:"column:status;type:payout_status;not null;default:'recorded'"`
	IdempotencyKey   string             `gorm:"column:idempotency_key;not null;uniqueIndex"`
	CreatedAt        time.Time          `gorm:"column:created_at;autoCreateTime"`
}
