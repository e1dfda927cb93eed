package admin

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/printmitra/printmitra-backend/api/middleware"
	"github.com/printmitra/printmitra-backend/api/responses"
	"github.com/printmitra/printmitra-backend/api/validators"
	"github.com/printmitra/printmitra-backend/internal/badges"
	"github.com/printmitra/printmitra-backend/internal/catalog"
	"github.com/printmitra/printmitra-backend/internal/commission"
	"github.com/printmitra/printmitra-backend/internal/matching"
	internalorders "github.com/printmitra/printmitra-backend/internal/orders"
	internalvendors "github.com/printmitra/printmitra-backend/internal/vendors"
	"github.com/printmitra/printmitra-backend/pkg/db/models"
	"github.com/printmitra/printmitra-backend/pkg/enums"
	pkgerrors "github.com/printmitra/printmitra-backend/pkg/errors"
	"github.com/printmitra/printmitra-backend/pkg/logger"
	"github.com/printmitra/printmitra-backend/pkg/types"
)

type commissionUpdateRequest struct {
	Percentage    decimal.Decimal `json:"percentage"`
	EffectiveFrom *time.Time      `json:"effective_from"`
}

type catalogCreateRequest struct {
	Name          string                   `json:"name" validate:"required"`
	VendorID      *string                  `json:"vendor_id"`
	EffectiveFrom *time.Time               `json:"effective_from"`
	PaperRates    []types.PaperRate        `json:"paper_rates" validate:"required,min=1"`
	ColorTiers    []types.ColorTier        `json:"color_tiers" validate:"required,min=1"`
	Binding       []types.BindingCharge    `json:"binding"`
	Lamination    []types.LaminationRate   `json:"lamination"`
	Delivery      types.DeliveryChargeRule `json:"delivery"`
}

type badgeThresholdRequest struct {
	Badge    string `json:"badge" validate:"required"`
	MinSales int    `json:"min_sales" validate:"min=0"`
	Color    string `json:"color"`
}

type badgeLadderRequest struct {
	Thresholds []badgeThresholdRequest `json:"thresholds" validate:"required,min=1,dive"`
}

type badgeOverrideRequest struct {
	Badge string `json:"badge" validate:"required"`
}

type commissionOverrideRequest struct {
	Percentage *decimal.Decimal `json:"percentage"`
}

type catalogOverrideRequest struct {
	CatalogID *string `json:"catalog_id"`
}

type manualAssignRequest struct {
	VendorID string `json:"vendor_id" validate:"required"`
}

// CurrentCommission returns the commission setting currently in force.
func CurrentCommission(svc commission.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "commission service unavailable"))
			return
		}

		setting, err := svc.CurrentSetting(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, setting)
	}
}

// UpdateCommission appends a new commission setting. Existing completed
// orders keep the percentage snapshotted at their completion time.
func UpdateCommission(svc commission.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "commission service unavailable"))
			return
		}

		var req commissionUpdateRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		effectiveFrom := time.Now().UTC()
		if req.EffectiveFrom != nil {
			effectiveFrom = req.EffectiveFrom.UTC()
		}

		setting, err := svc.UpdateSetting(r.Context(), commission.UpdateSettingInput{
			Percentage:    req.Percentage,
			EffectiveFrom: effectiveFrom,
			UpdatedBy:     adminUserID(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, setting)
	}
}

// CreateCatalog stores a new immutable catalog version in the inactive
// state.
func CreateCatalog(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		var req catalogCreateRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
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

		effectiveFrom := time.Now().UTC()
		if req.EffectiveFrom != nil {
			effectiveFrom = req.EffectiveFrom.UTC()
		}

		created, err := svc.Create(r.Context(), catalog.CreateCatalogInput{
			Name:          validators.SanitizeString(req.Name, 255),
			VendorID:      vendorID,
			EffectiveFrom: effectiveFrom,
			PaperRates:    req.PaperRates,
			ColorTiers:    req.ColorTiers,
			Binding:       req.Binding,
			Lamination:    req.Lamination,
			Delivery:      req.Delivery,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

// ActivateCatalog switches the active catalog version. In-flight estimates
// pinned to the previous version are rejected at payment time.
func ActivateCatalog(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		catalogID, err := parsePathID(r, "catalogId", "catalog id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Activate(r.Context(), catalogID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"catalog_id": catalogID, "active": true})
	}
}

// ListCatalogs returns recent catalog versions, newest first.
func ListCatalogs(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 25, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		catalogs, err := svc.List(r.Context(), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, catalogs)
	}
}

// BadgeLadder returns the badge threshold table.
func BadgeLadder(svc badges.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "badges service unavailable"))
			return
		}

		ladder, err := svc.Ladder(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, ladder.Rungs())
	}
}

// UpdateBadgeLadder replaces the badge threshold table. The new table must
// cover every tier with strictly increasing thresholds.
func UpdateBadgeLadder(svc badges.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "badges service unavailable"))
			return
		}

		var req badgeLadderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		configs := make([]models.BadgeConfig, 0, len(req.Thresholds))
		for _, threshold := range req.Thresholds {
			badge, err := enums.ParseVendorBadge(threshold.Badge)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid badge"))
				return
			}
			configs = append(configs, models.BadgeConfig{
				Badge:    badge,
				MinSales: threshold.MinSales,
				Color:    validators.SanitizeString(threshold.Color, 32),
			})
		}

		if err := svc.UpdateThresholds(r.Context(), configs); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, configs)
	}
}

// OverrideBadge sets a vendor's badge directly, bypassing progression. This
// is the only path that can move a badge down.
func OverrideBadge(svc badges.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "badges service unavailable"))
			return
		}

		vendorID, err := parsePathID(r, "vendorId", "vendor id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req badgeOverrideRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		badge, err := enums.ParseVendorBadge(req.Badge)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid badge"))
			return
		}

		if err := svc.Override(r.Context(), vendorID, badge); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"vendor_id": vendorID, "badge": badge})
	}
}

// SetCommissionOverride pins a vendor to a commission percentage that
// differs from the platform setting. A null percentage clears the override.
func SetCommissionOverride(svc internalvendors.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "vendors service unavailable"))
			return
		}

		vendorID, err := parsePathID(r, "vendorId", "vendor id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req commissionOverrideRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.SetCommissionOverride(r.Context(), vendorID, req.Percentage); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"vendor_id": vendorID})
	}
}

// SetCatalogOverride pins a vendor to a specific catalog version. A null
// catalog id clears the override.
func SetCatalogOverride(svc internalvendors.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "vendors service unavailable"))
			return
		}

		vendorID, err := parsePathID(r, "vendorId", "vendor id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req catalogOverrideRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var catalogID *uuid.UUID
		if req.CatalogID != nil && *req.CatalogID != "" {
			id, err := uuid.Parse(*req.CatalogID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid catalog id"))
				return
			}
			catalogID = &id
		}

		if err := svc.SetCatalogOverride(r.Context(), vendorID, catalogID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"vendor_id": vendorID})
	}
}

// ManualAssign places an order flagged for manual assignment with the chosen
// vendor, skipping the offer cascade.
func ManualAssign(svc matching.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "matching service unavailable"))
			return
		}

		orderID, err := parsePathID(r, "orderId", "order id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req manualAssignRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		vendorID, err := uuid.Parse(req.VendorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid vendor id"))
			return
		}

		actor := internalorders.Actor{Role: middleware.RoleFromContext(r.Context())}
		if id := adminUserID(r.Context()); id != nil {
			actor.UserID = *id
		}

		if err := svc.ManualAssign(r.Context(), matching.ManualAssignInput{
			OrderID:  orderID,
			VendorID: vendorID,
			Actor:    actor,
		}); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"order_id": orderID, "vendor_id": vendorID})
	}
}

// ListPayouts returns recent payout batches for one vendor.
func ListPayouts(svc commission.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "commission service unavailable"))
			return
		}

		raw := strings.TrimSpace(r.URL.Query().Get("vendor_id"))
		if raw == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "vendor_id is required"))
			return
		}
		vendorID, err := uuid.Parse(raw)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid vendor id"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 25, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payouts, err := svc.ListPayouts(r.Context(), vendorID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, payouts)
	}
}

func parsePathID(r *http.Request, param, label string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, param))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, label+" is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+label)
	}
	return id, nil
}

func adminUserID(ctx context.Context) *uuid.UUID {
	raw := middleware.UserIDFromContext(ctx)
	if raw == "" {
		return nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil
	}
	return &id
}
