package models

import (
	"time"

	"github.com/printmitra/printmitra-backend/pkg/enums"
)

// BadgeConfig maps one badge tier to its minimum cumulative sale count.
// Admin-editable; the badges service validates the table stays strictly
// increasing across tiers.
type BadgeConfig struct {
	Badge     enums.VendorBadge `gorm:"column:badge;type:vendor_badge;primaryKey"`
	MinSales  int               `gorm:"column:min_sales;not null"`
	Color     string            `gorm:"column:color;not null;default:''"`
	UpdatedAt time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
