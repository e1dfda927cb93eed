package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/printmitra/printmitra-backend/pkg/db/models"
	"github.com/printmitra/printmitra-backend/pkg/enums"
	pkgerrors "github.com/printmitra/printmitra-backend/pkg/errors"
	"github.com/printmitra/printmitra-backend/pkg/types"
)

// LineItemInput is one document plus its print configuration, priced as a
// unit. Pages arrive pre-extracted from the upload collaborator.
type LineItemInput struct {
	FileRef          string            `json:"file_ref"`
	FileName         string            `json:"file_name"`
	Pages            int               `json:"pages"`
	Copies           int               `json:"copies"`
	PaperSize        enums.PaperSize   `json:"paper_size"`
	ColorMode        enums.ColorMode   `json:"color_mode"`
	Sides            enums.PrintSides  `json:"sides"`
	LaminationSheets int               `json:"lamination_sheets"`
	BindingKind      enums.BindingKind `json:"binding_kind"`
}

// ItemEstimate is the priced result for one line item.
type ItemEstimate struct {
	Input        LineItemInput   `json:"input"`
	PerSheetRate decimal.Decimal `json:"per_sheet_rate"`
	Sheets       int             `json:"sheets"`
	PrintCost    decimal.Decimal `json:"print_cost"`
	Lamination   decimal.Decimal `json:"lamination"`
	Binding      decimal.Decimal `json:"binding"`
	Subtotal     decimal.Decimal `json:"subtotal"`
}

// Estimate is the full priced quote for an order. Immutable once attached to
// an order; re-pricing produces a new Estimate.
type Estimate struct {
	Items          []ItemEstimate  `json:"items"`
	OrderBinding   decimal.Decimal `json:"order_binding"`
	ItemsSubtotal  decimal.Decimal `json:"items_subtotal"`
	DeliveryCharge decimal.Decimal `json:"delivery_charge"`
	Total          decimal.Decimal `json:"total"`
	Currency       enums.Currency  `json:"currency"`
}

// Calculate prices the given items against one catalog version. Pure and
// deterministic: identical inputs always produce identical estimates.
func Calculate(catalog *models.PricingCatalog, items []LineItemInput, fulfillment enums.FulfillmentType, distanceKm float64) (*Estimate, error) {
	if catalog == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pricing catalog required")
	}
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one line item required")
	}
	if !fulfillment.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid fulfillment type %q", fulfillment))
	}

	estimate := &Estimate{Currency: enums.CurrencyINR}
	itemsSubtotal := decimal.Zero

	// Per-order binding kinds are charged once, over the total pages of the
	// items that carry them.
	orderBindingPages := map[enums.BindingKind]int{}

	for i, item := range items {
		if err := validateItem(i, item); err != nil {
			return nil, err
		}

		rate, err := perSheetRate(catalog, item)
		if err != nil {
			return nil, err
		}

		sheets := sheetsPerCopy(item)
		printCost := rate.Mul(decimal.NewFromInt(int64(sheets * item.Copies)))

		lamination := decimal.Zero
		if item.LaminationSheets > 0 {
			perSheet, err := laminationRate(catalog, item.PaperSize)
			if err != nil {
				return nil, err
			}
			lamination = perSheet.Mul(decimal.NewFromInt(int64(item.LaminationSheets)))
		}

		binding := decimal.Zero
		if item.BindingKind != enums.BindingKindNone {
			charge, err := bindingCharge(catalog, item.BindingKind)
			if err != nil {
				return nil, err
			}
			switch charge.Scope {
			case types.BindingScopePerOrder:
				orderBindingPages[item.BindingKind] += item.Pages
			default:
				binding = bindingFee(charge, item.Pages)
			}
		}

		subtotal := printCost.Add(lamination).Add(binding)
		estimate.Items = append(estimate.Items, ItemEstimate{
			Input:        item,
			PerSheetRate: rate,
			Sheets:       sheets,
			PrintCost:    printCost,
			Lamination:   lamination,
			Binding:      binding,
			Subtotal:     subtotal,
		})
		itemsSubtotal = itemsSubtotal.Add(subtotal)
	}

	orderBinding := decimal.Zero
	for kind, pages := range orderBindingPages {
		charge, err := bindingCharge(catalog, kind)
		if err != nil {
			return nil, err
		}
		orderBinding = orderBinding.Add(bindingFee(charge, pages))
	}
	estimate.OrderBinding = orderBinding
	estimate.ItemsSubtotal = itemsSubtotal.Add(orderBinding)

	estimate.DeliveryCharge = deliveryCharge(catalog.Delivery, fulfillment, estimate.ItemsSubtotal, distanceKm)
	estimate.Total = estimate.ItemsSubtotal.Add(estimate.DeliveryCharge)
	return estimate, nil
}

func validateItem(idx int, item LineItemInput) error {
	if item.Pages <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("item %d: page count must be positive", idx))
	}
	if item.Copies <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("item %d: copy count must be positive", idx))
	}
	if item.LaminationSheets < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("item %d: lamination sheets must be non-negative", idx))
	}
	if !item.PaperSize.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("item %d: invalid paper size %q", idx, item.PaperSize))
	}
	if !item.ColorMode.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("item %d: invalid color mode %q", idx, item.ColorMode))
	}
	if !item.Sides.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("item %d: invalid sides %q", idx, item.Sides))
	}
	if !item.BindingKind.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("item %d: invalid binding kind %q", idx, item.BindingKind))
	}
	return nil
}

// perSheetRate selects the price per printed sheet. Monochrome uses the flat
// paper rate; color uses the tier keyed by total pages across copies, which
// is pages times copies, never pages alone.
func perSheetRate(catalog *models.PricingCatalog, item LineItemInput) (decimal.Decimal, error) {
	if item.ColorMode == enums.ColorModeMonochrome {
		for _, rate := range catalog.PaperRates {
			if rate.Size != item.PaperSize {
				continue
			}
			if item.Sides == enums.PrintSidesDouble {
				return rate.MonoDouble, nil
			}
			return rate.MonoSingle, nil
		}
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("no paper rate for size %q", item.PaperSize))
	}

	totalPages := item.Pages * item.Copies
	for _, tier := range catalog.ColorTiers {
		if tier.Size != item.PaperSize || !tier.Contains(totalPages) {
			continue
		}
		if item.Sides == enums.PrintSidesDouble {
			return tier.DoubleSided, nil
		}
		return tier.SingleSided, nil
	}
	return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("no color tier covers %d pages for size %q", totalPages, item.PaperSize))
}

func sheetsPerCopy(item LineItemInput) int {
	if item.Sides == enums.PrintSidesDouble {
		return (item.Pages + 1) / 2
	}
	return item.Pages
}

func laminationRate(catalog *models.PricingCatalog, size enums.PaperSize) (decimal.Decimal, error) {
	for _, rate := range catalog.Lamination {
		if rate.Size == size {
			return rate.PerSheet, nil
		}
	}
	return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("no lamination rate for size %q", size))
}

func bindingCharge(catalog *models.PricingCatalog, kind enums.BindingKind) (types.BindingCharge, error) {
	for _, charge := range catalog.Binding {
		if charge.Kind == kind {
			return charge, nil
		}
	}
	return types.BindingCharge{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("no binding charge for kind %q", kind))
}

// bindingFee is the flat base plus the started-block step for kinds that
// carry one (spiral).
func bindingFee(charge types.BindingCharge, pages int) decimal.Decimal {
	fee := charge.Base
	if charge.BlockPages > 0 && charge.PerBlock.IsPositive() {
		blocks := (pages + charge.BlockPages - 1) / charge.BlockPages
		fee = fee.Add(charge.PerBlock.Mul(decimal.NewFromInt(int64(blocks))))
	}
	return fee
}

func deliveryCharge(rule types.DeliveryChargeRule, fulfillment enums.FulfillmentType, subtotal decimal.Decimal, distanceKm float64) decimal.Decimal {
	if fulfillment != enums.FulfillmentTypeDelivery {
		return decimal.Zero
	}
	if rule.FreeAbove != nil && subtotal.Cmp(*rule.FreeAbove) >= 0 {
		return decimal.Zero
	}
	if distanceKm < 0 {
		distanceKm = 0
	}
	return rule.BaseRate.Add(rule.PerKmRate.Mul(decimal.NewFromFloat(distanceKm)))
}
