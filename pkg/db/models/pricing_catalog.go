package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/printmitra/printmitra-backend/pkg/types"
)

// PricingCatalog is one immutable version of the platform price list. Exactly
// one global catalog (vendor_id IS NULL) is active at a time; a vendor row
// overrides the global catalog for that vendor's orders only.
type PricingCatalog struct {
	ID            uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Version       int                      `gorm:"column:version;not null"`
	Name          string                   `gorm:"column:name;not null"`
	VendorID      *uuid.UUID               `gorm:"column:vendor_id;type:uuid"`
	Active        bool                     `gorm:"column:active;not null;default:false"`
	EffectiveFrom time.Time                `gorm:"column:effective_from;not null"`
	PaperRates    []types.PaperRate        `gorm:"column:paper_rates;type:jsonb;serializer:json"`
	ColorTiers    []types.ColorTier        `gorm:"column:color_tiers;type:jsonb;serializer:json"`
	Binding       []types.BindingCharge    `gorm:"column:binding;type:jsonb;serializer:json"`
	Lamination    []types.LaminationRate   `gorm:"column:lamination;type:jsonb;serializer:json"`
	Delivery      types.DeliveryChargeRule `gorm:"column:delivery;type:jsonb;serializer:json"`
	CreatedAt     time.Time                `gorm:"column:created_at;autoCreateTime"`
}
