package commission

import (
	"context"
	"errors"
	"io"
	"sort"
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
	"github.com/printmitra/printmitra-backend/pkg/logger"
	"github.com/printmitra/printmitra-backend/pkg/outbox"
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

type stubCommissionRepo struct {
	settings []models.CommissionSetting
	payouts  map[string]*models.Payout
	orders   map[uuid.UUID]*models.Order
	settled  map[uuid.UUID]uuid.UUID
}

func newStubCommissionRepo() *stubCommissionRepo {
	return &stubCommissionRepo{
		payouts: map[string]*models.Payout{},
		orders:  map[uuid.UUID]*models.Order{},
		settled: map[uuid.UUID]uuid.UUID{},
	}
}

func (r *stubCommissionRepo) WithTx(*gorm.DB) Repository { return r }

func (r *stubCommissionRepo) CreateSetting(_ context.Context, setting *models.CommissionSetting) (*models.CommissionSetting, error) {
	if setting.ID == uuid.Nil {
		setting.ID = uuid.New()
	}
	r.settings = append(r.settings, *setting)
	return setting, nil
}

func (r *stubCommissionRepo) LatestSettingAt(_ context.Context, at time.Time) (*models.CommissionSetting, error) {
	var best *models.CommissionSetting
	for i := range r.settings {
		setting := &r.settings[i]
		if setting.EffectiveFrom.After(at) {
			continue
		}
		if best == nil || setting.EffectiveFrom.After(best.EffectiveFrom) {
			best = setting
		}
	}
	if best == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return best, nil
}

func (r *stubCommissionRepo) ListSettings(_ context.Context, _ int) ([]models.CommissionSetting, error) {
	out := append([]models.CommissionSetting(nil), r.settings...)
	sort.Slice(out, func(i, j int) bool { return out[i].EffectiveFrom.After(out[j].EffectiveFrom) })
	return out, nil
}

func (r *stubCommissionRepo) CreatePayout(_ context.Context, payout *models.Payout) (*models.Payout, error) {
	if _, exists := r.payouts[payout.IdempotencyKey]; exists {
		return nil, errors.New(`duplicate key value violates unique constraint "ux_payouts_idempotency_key"`)
	}
	if payout.ID == uuid.Nil {
		payout.ID = uuid.New()
	}
	r.payouts[payout.IdempotencyKey] = payout
	return payout, nil
}

func (r *stubCommissionRepo) ListPayouts(_ context.Context, _ uuid.UUID, _ int) ([]models.Payout, error) {
	var out []models.Payout
	for _, payout := range r.payouts {
		out = append(out, *payout)
	}
	return out, nil
}

func (r *stubCommissionRepo) FindUnsettledCompleted(_ context.Context, periodStart, periodEnd time.Time) ([]models.Order, error) {
	var out []models.Order
	for _, order := range r.orders {
		if order.Status != enums.OrderStatusCompleted || order.PayoutID != nil {
			continue
		}
		if order.CompletedAt == nil || order.CompletedAt.Before(periodStart) || !order.CompletedAt.Before(periodEnd) {
			continue
		}
		out = append(out, *order)
	}
	return out, nil
}

func (r *stubCommissionRepo) MarkOrdersSettled(_ context.Context, orderIDs []uuid.UUID, payoutID uuid.UUID) error {
	for _, id := range orderIDs {
		r.settled[id] = payoutID
		if order := r.orders[id]; order != nil {
			order.PayoutID = &payoutID
		}
	}
	return nil
}

type stubOverrides struct {
	byVendor map[uuid.UUID]decimal.Decimal
}

func (s *stubOverrides) CommissionOverride(_ context.Context, _ *gorm.DB, vendorID uuid.UUID) (*decimal.Decimal, error) {
	if pct, ok := s.byVendor[vendorID]; ok {
		return &pct, nil
	}
	return nil, nil
}

type commissionFixture struct {
	svc       Service
	repo      *stubCommissionRepo
	overrides *stubOverrides
	outbox    *capturingOutbox
}

func newCommissionFixture(t *testing.T) *commissionFixture {
	t.Helper()
	f := &commissionFixture{
		repo:      newStubCommissionRepo(),
		overrides: &stubOverrides{byVendor: map[uuid.UUID]decimal.Decimal{}},
		outbox:    &capturingOutbox{},
	}
	logg := logger.New(logger.Options{ServiceName: "commission-test", Output: io.Discard})
	svc, err := NewService(f.repo, f.overrides, passthroughTx{}, f.outbox, logg)
	require.NoError(t, err)
	f.svc = svc
	return f
}

func (f *commissionFixture) seedSetting(pct string, effectiveFrom time.Time) {
	f.repo.settings = append(f.repo.settings, models.CommissionSetting{
		ID:            uuid.New(),
		Percentage:    decimal.RequireFromString(pct),
		EffectiveFrom: effectiveFrom,
	})
}

func (f *commissionFixture) seedCompletedOrder(vendorID uuid.UUID, total, commissionAmount, net string, completedAt time.Time) *models.Order {
	commission := decimal.RequireFromString(commissionAmount)
	netPayout := decimal.RequireFromString(net)
	order := &models.Order{
		ID:               uuid.New(),
		Status:           enums.OrderStatusCompleted,
		AssignedVendorID: &vendorID,
		Total:            decimal.RequireFromString(total),
		CommissionAmount: &commission,
		NetPayout:        &netPayout,
		CompletedAt:      &completedAt,
	}
	f.repo.orders[order.ID] = order
	return order
}

func TestEffectivePctUsesNewestSettingAtTime(t *testing.T) {
	f := newCommissionFixture(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	f.seedSetting("10", base)
	f.seedSetting("12.5", base.AddDate(0, 1, 0))

	pct, err := f.svc.EffectivePct(context.Background(), nil, uuid.New(), base.AddDate(0, 0, 15))
	require.NoError(t, err)
	assert.True(t, pct.Equal(decimal.RequireFromString("10")))

	pct, err = f.svc.EffectivePct(context.Background(), nil, uuid.New(), base.AddDate(0, 2, 0))
	require.NoError(t, err)
	assert.True(t, pct.Equal(decimal.RequireFromString("12.5")))
}

func TestEffectivePctPrefersVendorOverride(t *testing.T) {
	f := newCommissionFixture(t)
	f.seedSetting("10", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	vendorID := uuid.New()
	f.overrides.byVendor[vendorID] = decimal.RequireFromString("7.5")

	pct, err := f.svc.EffectivePct(context.Background(), nil, vendorID, time.Now())
	require.NoError(t, err)
	assert.True(t, pct.Equal(decimal.RequireFromString("7.5")))
}

func TestUpdateSettingValidatesBounds(t *testing.T) {
	f := newCommissionFixture(t)

	_, err := f.svc.UpdateSetting(context.Background(), UpdateSettingInput{Percentage: decimal.RequireFromString("51")})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.UpdateSetting(context.Background(), UpdateSettingInput{Percentage: decimal.RequireFromString("-1")})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	created, err := f.svc.UpdateSetting(context.Background(), UpdateSettingInput{Percentage: decimal.RequireFromString("15")})
	require.NoError(t, err)
	assert.True(t, created.Percentage.Equal(decimal.RequireFromString("15")))
}

func TestUpdateSettingIsAppendOnly(t *testing.T) {
	f := newCommissionFixture(t)
	f.seedSetting("10", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	_, err := f.svc.UpdateSetting(context.Background(), UpdateSettingInput{Percentage: decimal.RequireFromString("12")})
	require.NoError(t, err)

	settings, err := f.svc.ListSettings(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, settings, 2)
}

func TestRunBatchSettlesPerVendor(t *testing.T) {
	f := newCommissionFixture(t)
	start := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 7)

	vendorA := uuid.New()
	vendorB := uuid.New()
	f.seedCompletedOrder(vendorA, "100", "10", "90", start.Add(24*time.Hour))
	f.seedCompletedOrder(vendorA, "200", "20", "180", start.Add(48*time.Hour))
	f.seedCompletedOrder(vendorB, "50", "5", "45", start.Add(24*time.Hour))
	// Outside the period: must not settle.
	f.seedCompletedOrder(vendorA, "999", "99", "900", end.Add(time.Hour))

	result, err := f.svc.RunBatch(context.Background(), start, end)
	require.NoError(t, err)
	assert.Equal(t, 2, result.VendorsSettled)
	assert.Equal(t, 3, result.OrdersSettled)

	payoutA := f.repo.payouts[PayoutKey(vendorA, start, end)]
	require.NotNil(t, payoutA)
	assert.Equal(t, 2, payoutA.OrderCount)
	assert.True(t, payoutA.GrossEarnings.Equal(decimal.RequireFromString("300")))
	assert.True(t, payoutA.CommissionAmount.Equal(decimal.RequireFromString("30")))
	assert.True(t, payoutA.NetPayout.Equal(decimal.RequireFromString("270")))

	require.Len(t, f.outbox.events, 2)
	assert.Equal(t, enums.EventPayoutRecorded, f.outbox.events[0].EventType)
}

func TestRunBatchRerunSkipsSettledPeriods(t *testing.T) {
	f := newCommissionFixture(t)
	start := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 7)

	vendorID := uuid.New()
	f.seedCompletedOrder(vendorID, "100", "10", "90", start.Add(24*time.Hour))

	first, err := f.svc.RunBatch(context.Background(), start, end)
	require.NoError(t, err)
	assert.Equal(t, 1, first.VendorsSettled)

	// Orders are marked settled, so the rerun finds nothing to do.
	second, err := f.svc.RunBatch(context.Background(), start, end)
	require.NoError(t, err)
	assert.Equal(t, 0, second.VendorsSettled)
	assert.Equal(t, 0, second.Skipped)
	assert.Len(t, f.outbox.events, 1)
}

func TestRunBatchIdempotencyKeyBlocksDoubleRecord(t *testing.T) {
	f := newCommissionFixture(t)
	start := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 7)

	vendorID := uuid.New()
	order := f.seedCompletedOrder(vendorID, "100", "10", "90", start.Add(24*time.Hour))

	_, err := f.svc.RunBatch(context.Background(), start, end)
	require.NoError(t, err)

	// Simulate a crash after payout insert but before settling the order:
	// the rerun hits the unique key and skips without a second payout.
	order.PayoutID = nil

	result, err := f.svc.RunBatch(context.Background(), start, end)
	require.NoError(t, err)
	assert.Equal(t, 0, result.VendorsSettled)
	assert.Equal(t, 1, result.Skipped)
	assert.Len(t, f.repo.payouts, 1)
}

func TestRunBatchRejectsInvertedPeriod(t *testing.T) {
	f := newCommissionFixture(t)
	now := time.Now()
	_, err := f.svc.RunBatch(context.Background(), now, now)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}
