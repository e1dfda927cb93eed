package vendors

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/printmitra/printmitra-backend/api/responses"
	"github.com/printmitra/printmitra-backend/api/validators"
	"github.com/printmitra/printmitra-backend/internal/badges"
	internalvendors "github.com/printmitra/printmitra-backend/internal/vendors"
	"github.com/printmitra/printmitra-backend/pkg/db/models"
	pkgerrors "github.com/printmitra/printmitra-backend/pkg/errors"
	"github.com/printmitra/printmitra-backend/pkg/logger"
	"github.com/printmitra/printmitra-backend/pkg/pagination"
	"github.com/printmitra/printmitra-backend/pkg/types"
)

type registerRequest struct {
	Name               string               `json:"name" validate:"required"`
	ShopName           string               `json:"shop_name" validate:"required"`
	Phone              string               `json:"phone" validate:"required"`
	Email              string               `json:"email" validate:"omitempty,email"`
	Location           types.GeographyPoint `json:"location"`
	AutoAcceptRadiusKm float64              `json:"auto_accept_radius_km" validate:"omitempty,min=0"`
}

type onlineRequest struct {
	Online bool `json:"online"`
}

type locationRequest struct {
	Location           types.GeographyPoint `json:"location"`
	AutoAcceptRadiusKm float64              `json:"auto_accept_radius_km" validate:"required,min=0"`
}

type listResponse struct {
	Vendors    []models.Vendor `json:"vendors"`
	NextCursor *string         `json:"next_cursor,omitempty"`
}

// Register creates a vendor profile. New vendors start offline with no badge
// and must flip themselves online before they receive offers.
func Register(svc internalvendors.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "vendors service unavailable"))
			return
		}

		var req registerRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		vendor, err := svc.Register(r.Context(), internalvendors.RegisterInput{
			Name:               validators.SanitizeString(req.Name, 255),
			ShopName:           validators.SanitizeString(req.ShopName, 255),
			Phone:              validators.SanitizeString(req.Phone, 32),
			Email:              validators.SanitizeString(req.Email, 255),
			Location:           req.Location,
			AutoAcceptRadiusKm: req.AutoAcceptRadiusKm,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, vendor)
	}
}

// Detail returns one vendor profile.
func Detail(svc internalvendors.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "vendors service unavailable"))
			return
		}

		vendorID, err := parseVendorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		vendor, err := svc.Get(r.Context(), vendorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, vendor)
	}
}

// List pages vendors newest first. online=true narrows to vendors currently
// accepting work.
func List(svc internalvendors.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "vendors service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cursor, err := pagination.ParseCursor(strings.TrimSpace(r.URL.Query().Get("cursor")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor"))
			return
		}

		vendors, next, err := svc.List(r.Context(), internalvendors.ListParams{
			Limit:      limit,
			Cursor:     cursor,
			OnlineOnly: r.URL.Query().Get("online") == "true",
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := listResponse{Vendors: vendors}
		if next != nil {
			encoded := pagination.EncodeCursor(*next)
			resp.NextCursor = &encoded
		}
		responses.WriteSuccess(w, resp)
	}
}

// SetOnline flips a vendor's availability for dispatch.
func SetOnline(svc internalvendors.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "vendors service unavailable"))
			return
		}

		vendorID, err := parseVendorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req onlineRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.SetOnline(r.Context(), vendorID, req.Online); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"vendor_id": vendorID, "online": req.Online})
	}
}

// UpdateLocation moves a vendor's shop pin and auto-accept radius.
func UpdateLocation(svc internalvendors.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "vendors service unavailable"))
			return
		}

		vendorID, err := parseVendorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req locationRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.UpdateLocation(r.Context(), vendorID, req.Location, req.AutoAcceptRadiusKm); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"vendor_id": vendorID})
	}
}

// Progress reports a vendor's badge, sales count and distance to the next
// tier.
func Progress(svc badges.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "badges service unavailable"))
			return
		}

		vendorID, err := parseVendorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		progress, err := svc.VendorProgress(r.Context(), vendorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, progress)
	}
}

func parseVendorID(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "vendorId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id is required")
	}
	vendorID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid vendor id")
	}
	return vendorID, nil
}
