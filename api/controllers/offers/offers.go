package offers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/printmitra/printmitra-backend/api/middleware"
	"github.com/printmitra/printmitra-backend/api/responses"
	"github.com/printmitra/printmitra-backend/internal/matching"
	internalorders "github.com/printmitra/printmitra-backend/internal/orders"
	pkgerrors "github.com/printmitra/printmitra-backend/pkg/errors"
	"github.com/printmitra/printmitra-backend/pkg/logger"
)

// Accept claims an open offer for the vendor in the request context. First
// accept wins; a lost race or an expired offer comes back as OFFER_CLAIMED.
func Accept(svc matching.Service, logg *logger.Logger) http.HandlerFunc {
	return decision(svc, logg, matching.Service.Accept)
}

// Decline turns an open offer down so dispatch can move to the next vendor.
func Decline(svc matching.Service, logg *logger.Logger) http.HandlerFunc {
	return decision(svc, logg, matching.Service.Decline)
}

func decision(svc matching.Service, logg *logger.Logger, act func(matching.Service, context.Context, matching.DecisionInput) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "matching service unavailable"))
			return
		}

		offerID, err := parseOfferID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actor := actorFromContext(r.Context())
		if actor.VendorID == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "vendor identity required"))
			return
		}

		if err := act(svc, r.Context(), matching.DecisionInput{
			OfferID:  offerID,
			VendorID: *actor.VendorID,
			Actor:    actor,
		}); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"offer_id": offerID})
	}
}

// ListForOrder returns every offer raised for one order, newest first.
func ListForOrder(svc matching.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "matching service unavailable"))
			return
		}

		raw := strings.TrimSpace(chi.URLParam(r, "orderId"))
		orderID, err := uuid.Parse(raw)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id"))
			return
		}

		offers, err := svc.ListOrderOffers(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, offers)
	}
}

func parseOfferID(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "offerId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "offer id is required")
	}
	offerID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid offer id")
	}
	return offerID, nil
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
