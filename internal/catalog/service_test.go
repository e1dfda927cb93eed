package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/printmitra/printmitra-backend/pkg/db/models"
	"github.com/printmitra/printmitra-backend/pkg/enums"
	pkgerrors "github.com/printmitra/printmitra-backend/pkg/errors"
	"github.com/printmitra/printmitra-backend/pkg/types"
)

type stubCatalogRepo struct {
	catalogs       map[uuid.UUID]*models.PricingCatalog
	activeGlobal   *models.PricingCatalog
	activeByVendor map[uuid.UUID]*models.PricingCatalog
	maxVersion     int
	deactivated    []*uuid.UUID
	activated      []uuid.UUID
}

func newStubCatalogRepo() *stubCatalogRepo {
	return &stubCatalogRepo{
		catalogs:       make(map[uuid.UUID]*models.PricingCatalog),
		activeByVendor: make(map[uuid.UUID]*models.PricingCatalog),
	}
}

func (s *stubCatalogRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubCatalogRepo) Create(ctx context.Context, catalog *models.PricingCatalog) (*models.PricingCatalog, error) {
	if catalog.ID == uuid.Nil {
		catalog.ID = uuid.New()
	}
	s.catalogs[catalog.ID] = catalog
	return catalog, nil
}

func (s *stubCatalogRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.PricingCatalog, error) {
	catalog, ok := s.catalogs[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return catalog, nil
}

func (s *stubCatalogRepo) FindActiveGlobal(ctx context.Context) (*models.PricingCatalog, error) {
	if s.activeGlobal == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return s.activeGlobal, nil
}

func (s *stubCatalogRepo) FindActiveOverride(ctx context.Context, vendorID uuid.UUID) (*models.PricingCatalog, error) {
	if catalog, ok := s.activeByVendor[vendorID]; ok {
		return catalog, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubCatalogRepo) MaxGlobalVersion(ctx context.Context) (int, error) {
	return s.maxVersion, nil
}

func (s *stubCatalogRepo) DeactivateActive(ctx context.Context, vendorID *uuid.UUID) error {
	s.deactivated = append(s.deactivated, vendorID)
	return nil
}

func (s *stubCatalogRepo) Activate(ctx context.Context, id uuid.UUID) error {
	s.activated = append(s.activated, id)
	if catalog, ok := s.catalogs[id]; ok {
		catalog.Active = true
	}
	return nil
}

func (s *stubCatalogRepo) List(ctx context.Context, limit int) ([]models.PricingCatalog, error) {
	out := make([]models.PricingCatalog, 0, len(s.catalogs))
	for _, catalog := range s.catalogs {
		out = append(out, *catalog)
	}
	return out, nil
}

type stubOverrides struct {
	pins map[uuid.UUID]*uuid.UUID
}

func (s stubOverrides) CatalogOverride(ctx context.Context, vendorID uuid.UUID) (*uuid.UUID, error) {
	if s.pins == nil {
		return nil, nil
	}
	return s.pins[vendorID], nil
}

type passthroughTx struct{}

func (passthroughTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

func intPtr(v int) *int { return &v }

func validCreateInput() CreateCatalogInput {
	return CreateCatalogInput{
		Name: "launch pricing",
		PaperRates: []types.PaperRate{
			{Size: enums.PaperSizeA4, MonoSingle: decimal.NewFromInt(2), MonoDouble: decimal.NewFromFloat(1.5)},
		},
		ColorTiers: []types.ColorTier{
			{Size: enums.PaperSizeA4, MinPages: 1, MaxPages: intPtr(4), SingleSided: decimal.NewFromInt(10), DoubleSided: decimal.NewFromInt(8)},
			{Size: enums.PaperSizeA4, MinPages: 5, MaxPages: intPtr(10), SingleSided: decimal.NewFromInt(8), DoubleSided: decimal.NewFromInt(6)},
			{Size: enums.PaperSizeA4, MinPages: 11, SingleSided: decimal.NewFromInt(6), DoubleSided: decimal.NewFromInt(5)},
		},
		Binding: []types.BindingCharge{
			{Kind: enums.BindingKindStaple, Scope: types.BindingScopePerItem, Base: decimal.NewFromInt(5)},
			{Kind: enums.BindingKindSpiral, Scope: types.BindingScopePerItem, Base: decimal.NewFromInt(30), BlockPages: 50, PerBlock: decimal.NewFromInt(10)},
		},
		Lamination: []types.LaminationRate{
			{Size: enums.PaperSizeA4, PerSheet: decimal.NewFromInt(15)},
		},
		Delivery: types.DeliveryChargeRule{
			BaseRate:  decimal.NewFromInt(20),
			PerKmRate: decimal.NewFromInt(5),
		},
	}
}

func TestCreateAssignsNextVersion(t *testing.T) {
	repo := newStubCatalogRepo()
	repo.maxVersion = 3
	svc, err := NewService(repo, stubOverrides{}, passthroughTx{})
	require.NoError(t, err)

	created, err := svc.Create(context.Background(), validCreateInput())
	require.NoError(t, err)
	assert.Equal(t, 4, created.Version)
	assert.False(t, created.Active)
	assert.False(t, created.EffectiveFrom.IsZero())
}

func TestCreateRejectsNegativeRates(t *testing.T) {
	repo := newStubCatalogRepo()
	svc, err := NewService(repo, stubOverrides{}, passthroughTx{})
	require.NoError(t, err)

	input := validCreateInput()
	input.PaperRates[0].MonoSingle = decimal.NewFromInt(-1)

	_, err = svc.Create(context.Background(), input)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestCreateRejectsTierGap(t *testing.T) {
	repo := newStubCatalogRepo()
	svc, err := NewService(repo, stubOverrides{}, passthroughTx{})
	require.NoError(t, err)

	input := validCreateInput()
	// Band 5..10 followed by 12.. leaves page 11 unpriced.
	input.ColorTiers[2].MinPages = 12

	_, err = svc.Create(context.Background(), input)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestCreateRejectsBoundedLastTier(t *testing.T) {
	repo := newStubCatalogRepo()
	svc, err := NewService(repo, stubOverrides{}, passthroughTx{})
	require.NoError(t, err)

	input := validCreateInput()
	input.ColorTiers[2].MaxPages = intPtr(100)

	_, err = svc.Create(context.Background(), input)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestActivateSwapsActiveCatalog(t *testing.T) {
	repo := newStubCatalogRepo()
	svc, err := NewService(repo, stubOverrides{}, passthroughTx{})
	require.NoError(t, err)

	next := &models.PricingCatalog{ID: uuid.New(), Version: 2, EffectiveFrom: time.Now()}
	repo.catalogs[next.ID] = next

	require.NoError(t, svc.Activate(context.Background(), next.ID))
	require.Len(t, repo.deactivated, 1)
	assert.Nil(t, repo.deactivated[0])
	require.Len(t, repo.activated, 1)
	assert.Equal(t, next.ID, repo.activated[0])
}

func TestActivateAlreadyActiveIsNoop(t *testing.T) {
	repo := newStubCatalogRepo()
	svc, err := NewService(repo, stubOverrides{}, passthroughTx{})
	require.NoError(t, err)

	active := &models.PricingCatalog{ID: uuid.New(), Version: 1, Active: true}
	repo.catalogs[active.ID] = active

	require.NoError(t, svc.Activate(context.Background(), active.ID))
	assert.Empty(t, repo.deactivated)
	assert.Empty(t, repo.activated)
}

func TestResolveActivePrefersVendorOverride(t *testing.T) {
	repo := newStubCatalogRepo()
	svc, err := NewService(repo, stubOverrides{}, passthroughTx{})
	require.NoError(t, err)

	vendorID := uuid.New()
	global := &models.PricingCatalog{ID: uuid.New(), Version: 1, Active: true}
	override := &models.PricingCatalog{ID: uuid.New(), Version: 1, VendorID: &vendorID, Active: true}
	repo.activeGlobal = global
	repo.activeByVendor[vendorID] = override

	got, err := svc.ResolveActive(context.Background(), &vendorID)
	require.NoError(t, err)
	assert.Equal(t, override.ID, got.ID)

	other := uuid.New()
	got, err = svc.ResolveActive(context.Background(), &other)
	require.NoError(t, err)
	assert.Equal(t, global.ID, got.ID)
}

func TestResolveActiveMergesPartialOverride(t *testing.T) {
	repo := newStubCatalogRepo()
	svc, err := NewService(repo, stubOverrides{}, passthroughTx{})
	require.NoError(t, err)

	full := validCreateInput()
	vendorID := uuid.New()
	global := &models.PricingCatalog{
		ID:         uuid.New(),
		Version:    1,
		Active:     true,
		PaperRates: full.PaperRates,
		ColorTiers: full.ColorTiers,
		Binding:    full.Binding,
		Lamination: full.Lamination,
		Delivery:   full.Delivery,
	}
	override := &models.PricingCatalog{
		ID:       uuid.New(),
		Version:  2,
		VendorID: &vendorID,
		Active:   true,
		PaperRates: []types.PaperRate{
			{Size: enums.PaperSizeA4, MonoSingle: decimal.NewFromInt(3), MonoDouble: decimal.NewFromInt(2)},
		},
	}
	repo.activeGlobal = global
	repo.activeByVendor[vendorID] = override

	got, err := svc.ResolveActive(context.Background(), &vendorID)
	require.NoError(t, err)
	assert.Equal(t, override.ID, got.ID)
	// The override's own paper rates win.
	require.Len(t, got.PaperRates, 1)
	assert.True(t, got.PaperRates[0].MonoSingle.Equal(decimal.NewFromInt(3)))
	// Sections the override leaves empty price at global rates, not zero.
	assert.Equal(t, global.ColorTiers, got.ColorTiers)
	assert.Equal(t, global.Binding, got.Binding)
	assert.Equal(t, global.Lamination, got.Lamination)
	assert.True(t, got.Delivery.BaseRate.Equal(global.Delivery.BaseRate))
	// Global catalog stays untouched.
	require.Len(t, global.PaperRates, 1)
	assert.True(t, global.PaperRates[0].MonoSingle.Equal(decimal.NewFromInt(2)))
}

func TestResolveActiveHonorsPinnedCatalog(t *testing.T) {
	repo := newStubCatalogRepo()
	vendorID := uuid.New()

	full := validCreateInput()
	global := &models.PricingCatalog{
		ID:         uuid.New(),
		Version:    1,
		Active:     true,
		PaperRates: full.PaperRates,
		ColorTiers: full.ColorTiers,
	}
	pinned := &models.PricingCatalog{
		ID: uuid.New(),
		PaperRates: []types.PaperRate{
			{Size: enums.PaperSizeA4, MonoSingle: decimal.NewFromInt(4), MonoDouble: decimal.NewFromInt(3)},
		},
	}
	repo.activeGlobal = global
	repo.catalogs[pinned.ID] = pinned

	svc, err := NewService(repo, stubOverrides{pins: map[uuid.UUID]*uuid.UUID{vendorID: &pinned.ID}}, passthroughTx{})
	require.NoError(t, err)

	got, err := svc.ResolveActive(context.Background(), &vendorID)
	require.NoError(t, err)
	assert.Equal(t, pinned.ID, got.ID)
	assert.True(t, got.PaperRates[0].MonoSingle.Equal(decimal.NewFromInt(4)))
	assert.Equal(t, global.ColorTiers, got.ColorTiers)
}

func TestCreateAllowsPartialVendorOverride(t *testing.T) {
	repo := newStubCatalogRepo()
	svc, err := NewService(repo, stubOverrides{}, passthroughTx{})
	require.NoError(t, err)

	vendorID := uuid.New()
	input := validCreateInput()
	input.VendorID = &vendorID
	input.PaperRates = nil
	input.Lamination = nil

	created, err := svc.Create(context.Background(), input)
	require.NoError(t, err)
	assert.Empty(t, created.PaperRates)

	empty := CreateCatalogInput{Name: "empty override", VendorID: &vendorID}
	_, err = svc.Create(context.Background(), empty)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestEnsureCurrentReportsStaleCatalog(t *testing.T) {
	repo := newStubCatalogRepo()
	svc, err := NewService(repo, stubOverrides{}, passthroughTx{})
	require.NoError(t, err)

	current := &models.PricingCatalog{ID: uuid.New(), Version: 5, Active: true}
	repo.activeGlobal = current

	got, err := svc.EnsureCurrent(context.Background(), current.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, current.ID, got.ID)

	_, err = svc.EnsureCurrent(context.Background(), uuid.New(), nil)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStaleCatalog))
}
