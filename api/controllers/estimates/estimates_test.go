package estimates

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/printmitra/printmitra-backend/internal/catalog"
	"github.com/printmitra/printmitra-backend/pkg/db/models"
	"github.com/printmitra/printmitra-backend/pkg/enums"
	"github.com/printmitra/printmitra-backend/pkg/types"
)

type stubCatalogService struct {
	resolveFn func(ctx context.Context, vendorID *uuid.UUID) (*models.PricingCatalog, error)
}

func (s stubCatalogService) Create(ctx context.Context, input catalog.CreateCatalogInput) (*models.PricingCatalog, error) {
	return nil, nil
}

func (s stubCatalogService) Activate(ctx context.Context, catalogID uuid.UUID) error { return nil }

func (s stubCatalogService) Get(ctx context.Context, catalogID uuid.UUID) (*models.PricingCatalog, error) {
	return nil, nil
}

func (s stubCatalogService) List(ctx context.Context, limit int) ([]models.PricingCatalog, error) {
	return nil, nil
}

func (s stubCatalogService) ResolveActive(ctx context.Context, vendorID *uuid.UUID) (*models.PricingCatalog, error) {
	return s.resolveFn(ctx, vendorID)
}

func (s stubCatalogService) EnsureCurrent(ctx context.Context, catalogID uuid.UUID, vendorID *uuid.UUID) (*models.PricingCatalog, error) {
	return nil, nil
}

func testCatalog() *models.PricingCatalog {
	return &models.PricingCatalog{
		ID:      uuid.New(),
		Version: 3,
		Active:  true,
		PaperRates: []types.PaperRate{{
			Size:       enums.PaperSizeA4,
			MonoSingle: decimal.NewFromFloat(2),
			MonoDouble: decimal.NewFromFloat(1.5),
		}},
		ColorTiers: []types.ColorTier{{
			Size:        enums.PaperSizeA4,
			MinPages:    0,
			SingleSided: decimal.NewFromFloat(10),
			DoubleSided: decimal.NewFromFloat(8),
		}},
		Delivery: types.DeliveryChargeRule{
			BaseRate:  decimal.NewFromFloat(20),
			PerKmRate: decimal.NewFromFloat(5),
		},
	}
}

func TestQuotePricesAgainstActiveCatalog(t *testing.T) {
	cat := testCatalog()
	svc := stubCatalogService{
		resolveFn: func(ctx context.Context, vendorID *uuid.UUID) (*models.PricingCatalog, error) {
			if vendorID != nil {
				t.Fatalf("expected nil vendor id, got %s", vendorID)
			}
			return cat, nil
		},
	}

	body := `{
		"fulfillment_type": "pickup",
		"items": [{
			"file_ref": "uploads/notes.pdf",
			"pages": 10,
			"copies": 2,
			"paper_size": "a4",
			"color_mode": "monochrome",
			"sides": "single"
		}]
	}`

	handler := Quote(svc, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/estimates", strings.NewReader(body))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}

	var envelope struct {
		Data quoteResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.CatalogID != cat.ID {
		t.Fatalf("expected catalog id %s, got %s", cat.ID, envelope.Data.CatalogID)
	}
	if envelope.Data.CatalogVersion != 3 {
		t.Fatalf("expected catalog version 3, got %d", envelope.Data.CatalogVersion)
	}
	// 10 pages x 2 copies at 2.00 per sheet, picked up in person.
	if !envelope.Data.Estimate.Total.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("expected total 40, got %s", envelope.Data.Estimate.Total)
	}
}

func TestQuoteRejectsUnknownPaperSize(t *testing.T) {
	svc := stubCatalogService{
		resolveFn: func(ctx context.Context, vendorID *uuid.UUID) (*models.PricingCatalog, error) {
			t.Fatal("catalog should not be resolved")
			return nil, nil
		},
	}

	body := `{
		"fulfillment_type": "pickup",
		"items": [{
			"file_ref": "uploads/notes.pdf",
			"pages": 10,
			"copies": 1,
			"paper_size": "a7",
			"color_mode": "monochrome",
			"sides": "single"
		}]
	}`

	handler := Quote(svc, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/estimates", strings.NewReader(body))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestQuoteRequiresItems(t *testing.T) {
	handler := Quote(stubCatalogService{}, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/estimates", strings.NewReader(`{"fulfillment_type":"pickup","items":[]}`))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
