package estimates

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/printmitra/printmitra-backend/api/responses"
	"github.com/printmitra/printmitra-backend/api/validators"
	"github.com/printmitra/printmitra-backend/internal/catalog"
	"github.com/printmitra/printmitra-backend/internal/pricing"
	"github.com/printmitra/printmitra-backend/pkg/enums"
	pkgerrors "github.com/printmitra/printmitra-backend/pkg/errors"
	"github.com/printmitra/printmitra-backend/pkg/logger"
)

// LineItemRequest is the wire shape of one document to price. The order
// create endpoint reuses it so estimates and orders accept identical items.
type LineItemRequest struct {
	FileRef          string `json:"file_ref" validate:"required"`
	FileName         string `json:"file_name"`
	Pages            int    `json:"pages" validate:"required,min=1"`
	Copies           int    `json:"copies" validate:"required,min=1"`
	PaperSize        string `json:"paper_size" validate:"required"`
	ColorMode        string `json:"color_mode" validate:"required"`
	Sides            string `json:"sides" validate:"required"`
	LaminationSheets int    `json:"lamination_sheets" validate:"omitempty,min=0"`
	BindingKind      string `json:"binding_kind"`
}

type quoteRequest struct {
	FulfillmentType string            `json:"fulfillment_type" validate:"required"`
	DistanceKm      float64           `json:"distance_km" validate:"omitempty,min=0"`
	VendorID        *string           `json:"vendor_id"`
	Items           []LineItemRequest `json:"items" validate:"required,min=1,dive"`
}

type quoteResponse struct {
	CatalogID      uuid.UUID         `json:"catalog_id"`
	CatalogVersion int               `json:"catalog_version"`
	Estimate       *pricing.Estimate `json:"estimate"`
}

// ParseItems converts wire line items into calculator inputs, validating
// every enum field.
func ParseItems(items []LineItemRequest) ([]pricing.LineItemInput, error) {
	parsed := make([]pricing.LineItemInput, 0, len(items))
	for i, item := range items {
		size, err := enums.ParsePaperSize(item.PaperSize)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid paper size").WithDetails(map[string]any{"item": i})
		}
		mode, err := enums.ParseColorMode(item.ColorMode)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid color mode").WithDetails(map[string]any{"item": i})
		}
		sides, err := enums.ParsePrintSides(item.Sides)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid sides").WithDetails(map[string]any{"item": i})
		}
		binding := enums.BindingKindNone
		if item.BindingKind != "" {
			binding, err = enums.ParseBindingKind(item.BindingKind)
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid binding kind").WithDetails(map[string]any{"item": i})
			}
		}
		parsed = append(parsed, pricing.LineItemInput{
			FileRef:          validators.SanitizeString(item.FileRef, 512),
			FileName:         validators.SanitizeString(item.FileName, 255),
			Pages:            item.Pages,
			Copies:           item.Copies,
			PaperSize:        size,
			ColorMode:        mode,
			Sides:            sides,
			LaminationSheets: item.LaminationSheets,
			BindingKind:      binding,
		})
	}
	return parsed, nil
}

// Quote prices a prospective order against the active catalog without
// persisting anything. The response carries the catalog id so the client can
// pin its eventual order to the version it was quoted against.
func Quote(catalogs catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if catalogs == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		var req quoteRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		fulfillment, err := enums.ParseFulfillmentType(req.FulfillmentType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid fulfillment type"))
			return
		}

		items, err := ParseItems(req.Items)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var vendorID *uuid.UUID
		if req.VendorID != nil && *req.VendorID != "" {
			id, err := uuid.Parse(*req.VendorID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid vendor id"))
				return
			}
			vendorID = &id
		}

		cat, err := catalogs.ResolveActive(r.Context(), vendorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		estimate, err := pricing.Calculate(cat, items, fulfillment, req.DistanceKm)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, quoteResponse{
			CatalogID:      cat.ID,
			CatalogVersion: cat.Version,
			Estimate:       estimate,
		})
	}
}
