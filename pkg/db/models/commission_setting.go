package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CommissionSetting is one version of the global platform fee percentage.
// Rows are append-only; the version in effect at time T is the newest row
// with effective_from <= T. Settled payouts keep the percentage they were
// computed with.
type CommissionSetting struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Percentage    decimal.Decimal `gorm:"column:percentage;type:numeric(5,2);not null"`
	EffectiveFrom time.Time       `gorm:"column:effective_from;not null"`
	UpdatedBy     *uuid.UUID      `gorm:"column:updated_by;type:uuid"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
}
