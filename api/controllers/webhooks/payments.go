package webhooks

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/printmitra/printmitra-backend/api/responses"
	"github.com/printmitra/printmitra-backend/api/validators"
	internalorders "github.com/printmitra/printmitra-backend/internal/orders"
	"github.com/printmitra/printmitra-backend/pkg/enums"
	pkgerrors "github.com/printmitra/printmitra-backend/pkg/errors"
	"github.com/printmitra/printmitra-backend/pkg/logger"
)

type paymentEventRequest struct {
	OrderID    string          `json:"order_id" validate:"required"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
	PaymentRef string          `json:"payment_ref" validate:"required"`
}

// Payments handles the payment gateway callback. A confirmed payment moves
// the order from estimated to paid; replays of the same payment_ref are
// acknowledged without effect.
func Payments(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		var req paymentEventRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := uuid.Parse(req.OrderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id"))
			return
		}

		currency := enums.CurrencyINR
		if req.Currency != "" {
			currency, err = enums.ParseCurrency(req.Currency)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid currency"))
				return
			}
		}

		order, err := svc.ConfirmPayment(r.Context(), internalorders.ConfirmPaymentInput{
			OrderID:    orderID,
			Amount:     req.Amount,
			Currency:   currency,
			PaymentRef: validators.SanitizeString(req.PaymentRef, 255),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"order_id": order.ID,
			"status":   order.Status,
		})
	}
}
