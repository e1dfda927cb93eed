package types

import (
	"github.com/printmitra/printmitra-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

// PaperRate is the flat monochrome per-sheet pricing for one paper size.
type PaperRate struct {
	Size       enums.PaperSize `json:"size"`
	MonoSingle decimal.Decimal `json:"mono_single"`
	MonoDouble decimal.Decimal `json:"mono_double"`
}

// ColorTier is one band of the tiered color price table. Bands are keyed by
// the total page count across copies; MaxPages nil means unbounded.
type ColorTier struct {
	Size        enums.PaperSize `json:"size"`
	MinPages    int             `json:"min_pages"`
	MaxPages    *int            `json:"max_pages,omitempty"`
	SingleSided decimal.Decimal `json:"single_sided"`
	DoubleSided decimal.Decimal `json:"double_sided"`
}

// Contains reports whether the band covers the given total page count.
func (t ColorTier) Contains(totalPages int) bool {
	if totalPages < t.MinPages {
		return false
	}
	return t.MaxPages == nil || totalPages <= *t.MaxPages
}

// BindingScope says whether a binding fee applies once per line item or once
// per order.
type BindingScope string

const (
	BindingScopePerItem  BindingScope = "per_item"
	BindingScopePerOrder BindingScope = "per_order"
)

// BindingCharge prices one binding kind. Spiral binding carries a per-block
// step on top of the base fee (PerBlock added for every started block of
// BlockPages pages); flat kinds leave the step fields zero.
type BindingCharge struct {
	Kind       enums.BindingKind `json:"kind"`
	Scope      BindingScope      `json:"scope"`
	Base       decimal.Decimal   `json:"base"`
	BlockPages int               `json:"block_pages,omitempty"`
	PerBlock   decimal.Decimal   `json:"per_block,omitempty"`
}

// DeliveryChargeRule prices door delivery. FreeAbove nil disables the waiver.
type DeliveryChargeRule struct {
	BaseRate  decimal.Decimal  `json:"base_rate"`
	PerKmRate decimal.Decimal  `json:"per_km_rate"`
	FreeAbove *decimal.Decimal `json:"free_above,omitempty"`
}

// LaminationRate prices lamination per sheet for one paper size.
type LaminationRate struct {
	Size     enums.PaperSize `json:"size"`
	PerSheet decimal.Decimal `json:"per_sheet"`
}
