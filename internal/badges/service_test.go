package badges

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/printmitra/printmitra-backend/pkg/db/models"
	"github.com/printmitra/printmitra-backend/pkg/enums"
	pkgerrors "github.com/printmitra/printmitra-backend/pkg/errors"
	"github.com/printmitra/printmitra-backend/pkg/outbox"
	"github.com/printmitra/printmitra-backend/pkg/outbox/payloads"
)

type passthroughTx struct{}

func (passthroughTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type capturingOutbox struct {
	events []outbox.DomainEvent
}

func (c *capturingOutbox) Emit(_ context.Context, _ *gorm.DB, event outbox.DomainEvent) error {
	c.events = append(c.events, event)
	return nil
}

type stubBadgeRepo struct {
	configs []models.BadgeConfig
	saved   []models.BadgeConfig
}

func (r *stubBadgeRepo) WithTx(*gorm.DB) Repository { return r }

func (r *stubBadgeRepo) ListConfigs(context.Context) ([]models.BadgeConfig, error) {
	return r.configs, nil
}

func (r *stubBadgeRepo) SaveConfigs(_ context.Context, configs []models.BadgeConfig) error {
	r.saved = configs
	return nil
}

type stubVendorStore struct {
	vendors map[uuid.UUID]*models.Vendor
}

func (s *stubVendorStore) FindVendor(_ context.Context, _ *gorm.DB, vendorID uuid.UUID) (*models.Vendor, error) {
	vendor, ok := s.vendors[vendorID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *vendor
	return &clone, nil
}

func (s *stubVendorStore) SetBadge(_ context.Context, _ *gorm.DB, vendorID uuid.UUID, badge enums.VendorBadge) error {
	s.vendors[vendorID].Badge = badge
	return nil
}

type badgeFixture struct {
	svc    Service
	repo   *stubBadgeRepo
	store  *stubVendorStore
	outbox *capturingOutbox
}

func newBadgeFixture(t *testing.T) *badgeFixture {
	t.Helper()
	f := &badgeFixture{
		repo:   &stubBadgeRepo{configs: defaultConfigs()},
		store:  &stubVendorStore{vendors: map[uuid.UUID]*models.Vendor{}},
		outbox: &capturingOutbox{},
	}
	svc, err := NewService(f.repo, f.store, passthroughTx{}, f.outbox)
	require.NoError(t, err)
	f.svc = svc
	return f
}

func (f *badgeFixture) seedVendor(badge enums.VendorBadge, totalSales int) *models.Vendor {
	vendor := &models.Vendor{ID: uuid.New(), Badge: badge, TotalSales: totalSales}
	f.store.vendors[vendor.ID] = vendor
	return vendor
}

func TestApplySaleUpgradesAndEmits(t *testing.T) {
	f := newBadgeFixture(t)
	vendor := f.seedVendor(enums.VendorBadgeNone, 10)

	require.NoError(t, f.svc.ApplySale(context.Background(), &gorm.DB{}, vendor.ID))

	assert.Equal(t, enums.VendorBadgeBronze, f.store.vendors[vendor.ID].Badge)
	require.Len(t, f.outbox.events, 1)
	payload, ok := f.outbox.events[0].Data.(payloads.BadgeUpgradedEvent)
	require.True(t, ok)
	assert.Equal(t, enums.VendorBadgeNone, payload.FromBadge)
	assert.Equal(t, enums.VendorBadgeBronze, payload.ToBadge)
}

func TestApplySaleNeverDowngrades(t *testing.T) {
	f := newBadgeFixture(t)
	// Thresholds could have been raised after the badge was earned.
	vendor := f.seedVendor(enums.VendorBadgeGold, 60)

	require.NoError(t, f.svc.ApplySale(context.Background(), &gorm.DB{}, vendor.ID))

	assert.Equal(t, enums.VendorBadgeGold, f.store.vendors[vendor.ID].Badge)
	assert.Empty(t, f.outbox.events)
}

func TestApplySaleNoopBelowNextThreshold(t *testing.T) {
	f := newBadgeFixture(t)
	vendor := f.seedVendor(enums.VendorBadgeBronze, 30)

	require.NoError(t, f.svc.ApplySale(context.Background(), &gorm.DB{}, vendor.ID))
	assert.Empty(t, f.outbox.events)
}

func TestOverrideCanMoveBadgeDown(t *testing.T) {
	f := newBadgeFixture(t)
	vendor := f.seedVendor(enums.VendorBadgeGold, 300)

	require.NoError(t, f.svc.Override(context.Background(), vendor.ID, enums.VendorBadgeSilver))
	assert.Equal(t, enums.VendorBadgeSilver, f.store.vendors[vendor.ID].Badge)
	assert.Empty(t, f.outbox.events)
}

func TestUpdateThresholdsValidatesLadder(t *testing.T) {
	f := newBadgeFixture(t)

	bad := defaultConfigs()
	bad[3].MinSales = 40 // gold below silver
	err := f.svc.UpdateThresholds(context.Background(), bad)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
	assert.Nil(t, f.repo.saved)

	good := defaultConfigs()
	good[1].MinSales = 20
	require.NoError(t, f.svc.UpdateThresholds(context.Background(), good))
	assert.Equal(t, good, f.repo.saved)
}

func TestVendorProgressReportsNextTier(t *testing.T) {
	f := newBadgeFixture(t)
	vendor := f.seedVendor(enums.VendorBadgeBronze, 30)

	info, err := f.svc.VendorProgress(context.Background(), vendor.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.VendorBadgeBronze, info.Badge)
	require.NotNil(t, info.NextBadge)
	assert.Equal(t, enums.VendorBadgeSilver, *info.NextBadge)
	assert.InDelta(t, 50.0, info.ProgressPct, 0.001)
}
