package offers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/printmitra/printmitra-backend/api/middleware"
	"github.com/printmitra/printmitra-backend/internal/matching"
	"github.com/printmitra/printmitra-backend/pkg/db/models"
	pkgerrors "github.com/printmitra/printmitra-backend/pkg/errors"
)

type stubMatchingService struct {
	acceptFn  func(ctx context.Context, input matching.DecisionInput) error
	declineFn func(ctx context.Context, input matching.DecisionInput) error
	listFn    func(ctx context.Context, orderID uuid.UUID) ([]models.VendorOffer, error)
}

func (s stubMatchingService) Dispatch(ctx context.Context, orderID uuid.UUID) (*models.VendorOffer, error) {
	return nil, nil
}

func (s stubMatchingService) Accept(ctx context.Context, input matching.DecisionInput) error {
	return s.acceptFn(ctx, input)
}

func (s stubMatchingService) Decline(ctx context.Context, input matching.DecisionInput) error {
	return s.declineFn(ctx, input)
}

func (s stubMatchingService) ExpireDue(ctx context.Context, limit int) (int, error) { return 0, nil }

func (s stubMatchingService) ManualAssign(ctx context.Context, input matching.ManualAssignInput) error {
	return nil
}

func (s stubMatchingService) ListOrderOffers(ctx context.Context, orderID uuid.UUID) ([]models.VendorOffer, error) {
	return s.listFn(ctx, orderID)
}

func (s stubMatchingService) VoidOpenOffers(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error {
	return nil
}

func TestAcceptRequiresVendorIdentity(t *testing.T) {
	svc := stubMatchingService{
		acceptFn: func(ctx context.Context, input matching.DecisionInput) error {
			t.Fatal("service should not be called")
			return nil
		},
	}

	router := chi.NewRouter()
	router.Post("/api/offers/{offerId}/accept", Accept(svc, nil))

	req := httptest.NewRequest(http.MethodPost, "/api/offers/"+uuid.NewString()+"/accept", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestAcceptForwardsVendorFromContext(t *testing.T) {
	offerID := uuid.New()
	vendorID := uuid.New()
	var captured matching.DecisionInput
	svc := stubMatchingService{
		acceptFn: func(ctx context.Context, input matching.DecisionInput) error {
			captured = input
			return nil
		},
	}

	router := chi.NewRouter()
	router.Post("/api/offers/{offerId}/accept", Accept(svc, nil))

	req := httptest.NewRequest(http.MethodPost, "/api/offers/"+offerID.String()+"/accept", nil)
	req = req.WithContext(middleware.WithVendorID(req.Context(), vendorID.String()))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if captured.OfferID != offerID || captured.VendorID != vendorID {
		t.Fatalf("unexpected input %+v", captured)
	}
}

func TestAcceptSurfacesClaimedOffer(t *testing.T) {
	svc := stubMatchingService{
		acceptFn: func(ctx context.Context, input matching.DecisionInput) error {
			return pkgerrors.New(pkgerrors.CodeOfferClaimed, "offer already resolved")
		},
	}

	router := chi.NewRouter()
	router.Post("/api/offers/{offerId}/accept", Accept(svc, nil))

	req := httptest.NewRequest(http.MethodPost, "/api/offers/"+uuid.NewString()+"/accept", nil)
	req = req.WithContext(middleware.WithVendorID(req.Context(), uuid.NewString()))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
}

func TestDeclineForwardsVendorFromContext(t *testing.T) {
	offerID := uuid.New()
	vendorID := uuid.New()
	var captured matching.DecisionInput
	svc := stubMatchingService{
		declineFn: func(ctx context.Context, input matching.DecisionInput) error {
			captured = input
			return nil
		},
	}

	router := chi.NewRouter()
	router.Post("/api/offers/{offerId}/decline", Decline(svc, nil))

	req := httptest.NewRequest(http.MethodPost, "/api/offers/"+offerID.String()+"/decline", nil)
	req = req.WithContext(middleware.WithVendorID(req.Context(), vendorID.String()))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if captured.OfferID != offerID || captured.VendorID != vendorID {
		t.Fatalf("unexpected input %+v", captured)
	}
}

func TestListForOrderReturnsOffers(t *testing.T) {
	orderID := uuid.New()
	svc := stubMatchingService{
		listFn: func(ctx context.Context, id uuid.UUID) ([]models.VendorOffer, error) {
			if id != orderID {
				t.Fatalf("unexpected order id %s", id)
			}
			return []models.VendorOffer{{ID: uuid.New(), OrderID: orderID}}, nil
		},
	}

	router := chi.NewRouter()
	router.Get("/api/orders/{orderId}/offers", ListForOrder(svc, nil))

	req := httptest.NewRequest(http.MethodGet, "/api/orders/"+orderID.String()+"/offers", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}
