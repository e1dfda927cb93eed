package orders

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/printmitra/printmitra-backend/api/controllers/estimates"
	"github.com/printmitra/printmitra-backend/api/middleware"
	"github.com/printmitra/printmitra-backend/api/responses"
	"github.com/printmitra/printmitra-backend/api/validators"
	internalorders "github.com/printmitra/printmitra-backend/internal/orders"
	"github.com/printmitra/printmitra-backend/pkg/db/models"
	"github.com/printmitra/printmitra-backend/pkg/enums"
	pkgerrors "github.com/printmitra/printmitra-backend/pkg/errors"
	"github.com/printmitra/printmitra-backend/pkg/logger"
	"github.com/printmitra/printmitra-backend/pkg/pagination"
	"github.com/printmitra/printmitra-backend/pkg/types"
)

type createOrderRequest struct {
	CustomerName    string                      `json:"customer_name" validate:"required"`
	CustomerEmail   string                      `json:"customer_email" validate:"required,email"`
	CustomerPhone   string                      `json:"customer_phone" validate:"required"`
	FulfillmentType string                      `json:"fulfillment_type" validate:"required"`
	DeliveryAddress *types.Address              `json:"delivery_address"`
	Location        *types.GeographyPoint       `json:"location"`
	DistanceKm      float64                     `json:"distance_km" validate:"omitempty,min=0"`
	CatalogID       string                      `json:"catalog_id"`
	VendorID        *string                     `json:"vendor_id"`
	Items           []estimates.LineItemRequest `json:"items" validate:"required,min=1,dive"`
}

type cancelRequest struct {
	Note *string `json:"note"`
}

type transitionRequest struct {
	Action string `json:"action" validate:"required"`
}

type listResponse struct {
	Orders     []models.Order `json:"orders"`
	NextCursor *string        `json:"next_cursor,omitempty"`
}

// Create prices the submitted items and persists a new order in the
// estimated state.
func Create(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		var req createOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		fulfillment, err := enums.ParseFulfillmentType(req.FulfillmentType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid fulfillment type"))
			return
		}

		items, err := estimates.ParseItems(req.Items)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var catalogID uuid.UUID
		if req.CatalogID != "" {
			catalogID, err = uuid.Parse(req.CatalogID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid catalog id"))
				return
			}
		}

		// The same vendor scope the client quoted with, so the catalog the
		// quote pinned is the one the order is checked against.
		var vendorID *uuid.UUID
		if req.VendorID != nil && *req.VendorID != "" {
			parsed, err := uuid.Parse(*req.VendorID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid vendor id"))
				return
			}
			vendorID = &parsed
		}

		order, err := svc.CreateEstimate(r.Context(), internalorders.CreateEstimateInput{
			CustomerName:    validators.SanitizeString(req.CustomerName, 255),
			CustomerEmail:   validators.SanitizeString(req.CustomerEmail, 255),
			CustomerPhone:   validators.SanitizeString(req.CustomerPhone, 32),
			FulfillmentType: fulfillment,
			DeliveryAddress: req.DeliveryAddress,
			Location:        req.Location,
			DistanceKm:      req.DistanceKm,
			CatalogID:       catalogID,
			VendorID:        vendorID,
			Items:           items,
			Actor:           actorFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// Detail returns one order with its line items and status history.
func Detail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Get(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, order)
	}
}

// List pages orders newest first, optionally filtered by status or assigned
// vendor.
func List(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
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

		params := internalorders.ListParams{
			Limit:  limit,
			Cursor: cursor,
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseOrderStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			params.Status = &status
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("vendor_id")); raw != "" {
			vendorID, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid vendor id filter"))
				return
			}
			params.VendorID = &vendorID
		}

		orders, next, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := listResponse{Orders: orders}
		if next != nil {
			encoded := pagination.EncodeCursor(*next)
			resp.NextCursor = &encoded
		}
		responses.WriteSuccess(w, resp)
	}
}

// Cancel cancels an order, recording the optional note in its history.
func Cancel(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req cancelRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if req.Note != nil {
			trimmed := validators.SanitizeString(*req.Note, 500)
			req.Note = &trimmed
		}

		if err := svc.Cancel(r.Context(), internalorders.CancelInput{
			OrderID: orderID,
			Note:    req.Note,
			Actor:   actorFromContext(r.Context()),
		}); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Get(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// Transition drives a production-side status change on behalf of the
// assigned vendor. The vendor identity comes from the request context, never
// from the body.
func Transition(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req transitionRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actor := actorFromContext(r.Context())
		if actor.VendorID == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "vendor identity required"))
			return
		}
		input := internalorders.VendorActionInput{
			OrderID:  orderID,
			VendorID: *actor.VendorID,
			Actor:    actor,
		}

		switch req.Action {
		case "start_production":
			err = svc.StartProduction(r.Context(), input)
		case "mark_ready":
			err = svc.MarkReady(r.Context(), input)
		case "complete":
			err = svc.Complete(r.Context(), input)
		default:
			err = pkgerrors.New(pkgerrors.CodeValidation, "unknown transition action").WithDetails(map[string]any{"action": req.Action})
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Get(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func parseOrderID(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "orderId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	orderID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id")
	}
	return orderID, nil
}

func actorFromContext(ctx context.Context) internalorders.Actor {
	actor := internalorders.Actor{Role: middleware.RoleFromContext(ctx)}
	if raw := middleware.UserIDFromContext(ctx); raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			actor.UserID = id
		}
	}
	if raw := middleware.VendorIDFromContext(ctx); raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			actor.VendorID = &id
		}
	}
	return actor
}
