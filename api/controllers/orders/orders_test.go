package orders

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/printmitra/printmitra-backend/api/middleware"
	internalorders "github.com/printmitra/printmitra-backend/internal/orders"
	"github.com/printmitra/printmitra-backend/pkg/db/models"
	"github.com/printmitra/printmitra-backend/pkg/enums"
	"github.com/printmitra/printmitra-backend/pkg/pagination"
)

type stubOrdersService struct {
	createFn     func(ctx context.Context, input internalorders.CreateEstimateInput) (*models.Order, error)
	getFn        func(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	listFn       func(ctx context.Context, params internalorders.ListParams) ([]models.Order, *pagination.Cursor, error)
	cancelFn     func(ctx context.Context, input internalorders.CancelInput) error
	transitionFn func(action string, input internalorders.VendorActionInput) error
}

func (s stubOrdersService) CreateEstimate(ctx context.Context, input internalorders.CreateEstimateInput) (*models.Order, error) {
	return s.createFn(ctx, input)
}

func (s stubOrdersService) ConfirmPayment(ctx context.Context, input internalorders.ConfirmPaymentInput) (*models.Order, error) {
	return nil, nil
}

func (s stubOrdersService) StartProduction(ctx context.Context, input internalorders.VendorActionInput) error {
	return s.transitionFn("start_production", input)
}

func (s stubOrdersService) MarkReady(ctx context.Context, input internalorders.VendorActionInput) error {
	return s.transitionFn("mark_ready", input)
}

func (s stubOrdersService) Complete(ctx context.Context, input internalorders.VendorActionInput) error {
	return s.transitionFn("complete", input)
}

func (s stubOrdersService) Cancel(ctx context.Context, input internalorders.CancelInput) error {
	return s.cancelFn(ctx, input)
}

func (s stubOrdersService) Assign(ctx context.Context, tx *gorm.DB, orderID, vendorID uuid.UUID, actor internalorders.Actor) error {
	return nil
}

func (s stubOrdersService) Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	return s.getFn(ctx, orderID)
}

func (s stubOrdersService) GetByNumber(ctx context.Context, number string) (*models.Order, error) {
	return nil, nil
}

func (s stubOrdersService) List(ctx context.Context, params internalorders.ListParams) ([]models.Order, *pagination.Cursor, error) {
	return s.listFn(ctx, params)
}

func createBody(t *testing.T, overrides map[string]any) string {
	t.Helper()
	body := map[string]any{
		"customer_name":    "Asha Rao",
		"customer_email":   "asha@example.com",
		"customer_phone":   "+919876543210",
		"fulfillment_type": "pickup",
		"items": []map[string]any{{
			"file_ref":   "uploads/notes.pdf",
			"pages":      12,
			"copies":     2,
			"paper_size": "a4",
			"color_mode": "monochrome",
			"sides":      "double",
		}},
	}
	for k, v := range overrides {
		body[k] = v
	}
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	return string(raw)
}

func TestCreatePassesParsedInputToService(t *testing.T) {
	var captured internalorders.CreateEstimateInput
	svc := stubOrdersService{
		createFn: func(ctx context.Context, input internalorders.CreateEstimateInput) (*models.Order, error) {
			captured = input
			return &models.Order{ID: uuid.New(), Status: enums.OrderStatusEstimated}, nil
		},
	}

	handler := Create(svc, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(createBody(t, nil)))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if captured.FulfillmentType != enums.FulfillmentTypePickup {
		t.Fatalf("unexpected fulfillment %q", captured.FulfillmentType)
	}
	if len(captured.Items) != 1 || captured.Items[0].PaperSize != enums.PaperSizeA4 {
		t.Fatalf("unexpected items %+v", captured.Items)
	}
	if captured.Items[0].BindingKind != enums.BindingKindNone {
		t.Fatalf("expected binding to default to none, got %q", captured.Items[0].BindingKind)
	}
}

func TestCreateForwardsVendorScope(t *testing.T) {
	vendorID := uuid.New()
	var captured internalorders.CreateEstimateInput
	svc := stubOrdersService{
		createFn: func(ctx context.Context, input internalorders.CreateEstimateInput) (*models.Order, error) {
			captured = input
			return &models.Order{ID: uuid.New()}, nil
		},
	}

	body := createBody(t, map[string]any{"vendor_id": vendorID.String()})
	req := httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(body))
	resp := httptest.NewRecorder()
	Create(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if captured.VendorID == nil || *captured.VendorID != vendorID {
		t.Fatalf("expected vendor scope %s, got %+v", vendorID, captured.VendorID)
	}
}

func TestCreateRejectsMalformedVendorID(t *testing.T) {
	called := false
	svc := stubOrdersService{
		createFn: func(ctx context.Context, input internalorders.CreateEstimateInput) (*models.Order, error) {
			called = true
			return nil, nil
		},
	}

	body := createBody(t, map[string]any{"vendor_id": "not-a-uuid"})
	req := httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(body))
	resp := httptest.NewRecorder()
	Create(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if called {
		t.Fatal("service should not be called")
	}
}

func TestCreateRejectsUnknownFulfillment(t *testing.T) {
	svc := stubOrdersService{
		createFn: func(ctx context.Context, input internalorders.CreateEstimateInput) (*models.Order, error) {
			t.Fatal("service should not be called")
			return nil, nil
		},
	}

	handler := Create(svc, nil)
	body := createBody(t, map[string]any{"fulfillment_type": "teleport"})
	req := httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(body))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestDetailRejectsMalformedID(t *testing.T) {
	handler := Detail(stubOrdersService{}, nil)

	router := chi.NewRouter()
	router.Get("/api/orders/{orderId}", handler)

	req := httptest.NewRequest(http.MethodGet, "/api/orders/not-a-uuid", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestListForwardsFilters(t *testing.T) {
	vendorID := uuid.New()
	var captured internalorders.ListParams
	svc := stubOrdersService{
		listFn: func(ctx context.Context, params internalorders.ListParams) ([]models.Order, *pagination.Cursor, error) {
			captured = params
			return []models.Order{{ID: uuid.New()}}, nil, nil
		},
	}

	handler := List(svc, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/orders?limit=10&status=paid&vendor_id="+vendorID.String(), nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if captured.Limit != 10 {
		t.Fatalf("unexpected limit %d", captured.Limit)
	}
	if captured.Status == nil || *captured.Status != enums.OrderStatusPaid {
		t.Fatalf("unexpected status filter %v", captured.Status)
	}
	if captured.VendorID == nil || *captured.VendorID != vendorID {
		t.Fatalf("unexpected vendor filter %v", captured.VendorID)
	}
}

func TestTransitionRequiresVendorIdentity(t *testing.T) {
	svc := stubOrdersService{
		transitionFn: func(action string, input internalorders.VendorActionInput) error {
			t.Fatal("service should not be called")
			return nil
		},
	}

	handler := Transition(svc, nil)
	router := chi.NewRouter()
	router.Post("/api/orders/{orderId}/transition", handler)

	req := httptest.NewRequest(http.MethodPost, "/api/orders/"+uuid.NewString()+"/transition", strings.NewReader(`{"action":"complete"}`))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestTransitionRoutesActionToService(t *testing.T) {
	orderID := uuid.New()
	vendorID := uuid.New()
	var gotAction string
	var gotInput internalorders.VendorActionInput
	svc := stubOrdersService{
		transitionFn: func(action string, input internalorders.VendorActionInput) error {
			gotAction = action
			gotInput = input
			return nil
		},
		getFn: func(ctx context.Context, id uuid.UUID) (*models.Order, error) {
			return &models.Order{ID: id, Status: enums.OrderStatusInProduction}, nil
		},
	}

	handler := Transition(svc, nil)
	router := chi.NewRouter()
	router.Post("/api/orders/{orderId}/transition", handler)

	req := httptest.NewRequest(http.MethodPost, "/api/orders/"+orderID.String()+"/transition", strings.NewReader(`{"action":"start_production"}`))
	req = req.WithContext(middleware.WithVendorID(req.Context(), vendorID.String()))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if gotAction != "start_production" {
		t.Fatalf("unexpected action %q", gotAction)
	}
	if gotInput.OrderID != orderID || gotInput.VendorID != vendorID {
		t.Fatalf("unexpected input %+v", gotInput)
	}
}

func TestCancelForwardsNote(t *testing.T) {
	orderID := uuid.New()
	var captured internalorders.CancelInput
	svc := stubOrdersService{
		cancelFn: func(ctx context.Context, input internalorders.CancelInput) error {
			captured = input
			return nil
		},
		getFn: func(ctx context.Context, id uuid.UUID) (*models.Order, error) {
			return &models.Order{ID: id, Status: enums.OrderStatusCancelled}, nil
		},
	}

	handler := Cancel(svc, nil)
	router := chi.NewRouter()
	router.Post("/api/orders/{orderId}/cancel", handler)

	req := httptest.NewRequest(http.MethodPost, "/api/orders/"+orderID.String()+"/cancel", strings.NewReader(`{"note":"customer changed mind"}`))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if captured.OrderID != orderID {
		t.Fatalf("unexpected order id %s", captured.OrderID)
	}
	if captured.Note == nil || *captured.Note != "customer changed mind" {
		t.Fatalf("unexpected note %v", captured.Note)
	}
}
