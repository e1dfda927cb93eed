package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/printmitra/printmitra-backend/pkg/enums"
	"github.com/printmitra/printmitra-backend/pkg/types"
)

// Vendor is a print shop that fulfills orders. Sales counters and earnings
// are cumulative over the vendor's lifetime; the badge derives from the sale
// count and only moves forward without an admin override.
type Vendor struct {
	ID                    uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name                  string               `gorm:"column:name;not null"`
	ShopName              string               `gorm:"column:shop_name;not null"`
	RegistrationNumber    string               `gorm:"column:registration_number;not null"`
	Phone                 string               `gorm:"column:phone;not null"`
	Email                 string               `gorm:"column:email;not null"`
	Online                bool                 `gorm:"column:online;not null;default:false"`
	Location              types.GeographyPoint `gorm:"column:location;type:jsonb;serializer:json"`
	AutoAcceptRadiusKm    float64              `gorm:"column:auto_accept_radius_km;not null;default:5"`
	Badge                 enums.VendorBadge    `gorm:"column:badge;type:vendor_badge;not null;default:'none'"`
	TotalSales            int                  `gorm:"column:total_sales;not null;default:0"`
	TotalEarnings         decimal.Decimal      `gorm:"column:total_earnings;type:numeric(14,2);not null;default:0"`
	WorkloadCount         int                  `gorm:"column:workload_count;not null;default:0"`
	OverrideCatalogID     *uuid.UUID           `gorm:"column:override_catalog_id;type:uuid"`
	CommissionOverridePct *decimal.Decimal     `gorm:"column:commission_override_pct;type:numeric(5,2)"`
	CreatedAt             time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
