package commission

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	dbpkg "github.com/printmitra/printmitra-backend/pkg/db"
	"github.com/printmitra/printmitra-backend/pkg/db/models"
	"github.com/printmitra/printmitra-backend/pkg/enums"
	pkgerrors "github.com/printmitra/printmitra-backend/pkg/errors"
	"github.com/printmitra/printmitra-backend/pkg/logger"
	"github.com/printmitra/printmitra-backend/pkg/outbox"
	"github.com/printmitra/printmitra-backend/pkg/outbox/payloads"
)

var (
	minPct = decimal.Zero
	maxPct = decimal.NewFromInt(50)
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// VendorOverrides exposes the per-vendor commission override, which takes
// precedence over the global setting.
type VendorOverrides interface {
	CommissionOverride(ctx context.Context, tx *gorm.DB, vendorID uuid.UUID) (*decimal.Decimal, error)
}

// UpdateSettingInput appends a new commission setting version.
type UpdateSettingInput struct {
	Percentage    decimal.Decimal
	EffectiveFrom time.Time
	UpdatedBy     *uuid.UUID
}

// BatchResult summarizes one payout batch run.
type BatchResult struct {
	PeriodStart    time.Time
	PeriodEnd      time.Time
	VendorsSettled int
	OrdersSettled  int
	Skipped        int
}

// Service manages the platform fee and the periodic payout settlement.
type Service interface {
	// EffectivePct resolves the commission percentage for a vendor at a
	// point in time, vendor override first.
	EffectivePct(ctx context.Context, tx *gorm.DB, vendorID uuid.UUID, at time.Time) (decimal.Decimal, error)
	UpdateSetting(ctx context.Context, input UpdateSettingInput) (*models.CommissionSetting, error)
	CurrentSetting(ctx context.Context) (*models.CommissionSetting, error)
	ListSettings(ctx context.Context, limit int) ([]models.CommissionSetting, error)
	ListPayouts(ctx context.Context, vendorID uuid.UUID, limit int) ([]models.Payout, error)
	// RunBatch settles all completed unsettled orders in the period, one
	// payout per vendor. Safe to re-run: settled periods are skipped via
	// the payout idempotency key.
	RunBatch(ctx context.Context, periodStart, periodEnd time.Time) (*BatchResult, error)
}

type service struct {
	repo      Repository
	overrides VendorOverrides
	tx        txRunner
	outbox    outboxPublisher
	logg      *logger.Logger
	now       func() time.Time
}

// NewService builds the commission service.
func NewService(repo Repository, overrides VendorOverrides, tx txRunner, outboxSvc outboxPublisher, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("commission repository required")
	}
	if overrides == nil {
		return nil, fmt.Errorf("vendor overrides required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:      repo,
		overrides: overrides,
		tx:        tx,
		outbox:    outboxSvc,
		logg:      logg,
		now:       time.Now,
	}, nil
}

func (s *service) EffectivePct(ctx context.Context, tx *gorm.DB, vendorID uuid.UUID, at time.Time) (decimal.Decimal, error) {
	override, err := s.overrides.CommissionOverride(ctx, tx, vendorID)
	if err != nil {
		return decimal.Zero, err
	}
	if override != nil {
		return *override, nil
	}

	setting, err := s.repo.WithTx(tx).LatestSettingAt(ctx, at)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, pkgerrors.New(pkgerrors.CodeInternal, "no commission setting in effect")
		}
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load commission setting")
	}
	return setting.Percentage, nil
}

func (s *service) UpdateSetting(ctx context.Context, input UpdateSettingInput) (*models.CommissionSetting, error) {
	if err := ValidatePct(input.Percentage); err != nil {
		return nil, err
	}

	effectiveFrom := input.EffectiveFrom
	if effectiveFrom.IsZero() {
		effectiveFrom = s.now()
	}

	setting := &models.CommissionSetting{
		Percentage:    input.Percentage,
		EffectiveFrom: effectiveFrom,
		UpdatedBy:     input.UpdatedBy,
	}
	created, err := s.repo.CreateSetting(ctx, setting)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create commission setting")
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"percentage":     created.Percentage.String(),
		"effective_from": created.EffectiveFrom,
	})
	s.logg.Info(logCtx, "commission setting updated")
	return created, nil
}

func (s *service) CurrentSetting(ctx context.Context) (*models.CommissionSetting, error) {
	setting, err := s.repo.LatestSettingAt(ctx, s.now())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no commission setting in effect")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load commission setting")
	}
	return setting, nil
}

func (s *service) ListSettings(ctx context.Context, limit int) ([]models.CommissionSetting, error) {
	settings, err := s.repo.ListSettings(ctx, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list commission settings")
	}
	return settings, nil
}

func (s *service) ListPayouts(ctx context.Context, vendorID uuid.UUID, limit int) ([]models.Payout, error) {
	payouts, err := s.repo.ListPayouts(ctx, vendorID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payouts")
	}
	return payouts, nil
}

func (s *service) RunBatch(ctx context.Context, periodStart, periodEnd time.Time) (*BatchResult, error) {
	if !periodEnd.After(periodStart) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "period end must be after period start")
	}

	unsettled, err := s.repo.FindUnsettledCompleted(ctx, periodStart, periodEnd)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find unsettled orders")
	}

	byVendor := map[uuid.UUID][]models.Order{}
	for _, order := range unsettled {
		if order.AssignedVendorID == nil || order.NetPayout == nil {
			s.logg.Warn(s.logg.WithOrderID(ctx, order.ID.String()), "completed order missing settlement data")
			continue
		}
		byVendor[*order.AssignedVendorID] = append(byVendor[*order.AssignedVendorID], order)
	}

	result := &BatchResult{PeriodStart: periodStart, PeriodEnd: periodEnd}
	var errs error
	for vendorID, vendorOrders := range byVendor {
		if err := s.settleVendor(ctx, vendorID, vendorOrders, periodStart, periodEnd, result); err != nil {
			// One vendor failing must not block the rest of the batch.
			errs = multierr.Append(errs, fmt.Errorf("vendor %s: %w", vendorID, err))
		}
	}
	return result, errs
}

func (s *service) settleVendor(ctx context.Context, vendorID uuid.UUID, vendorOrders []models.Order, periodStart, periodEnd time.Time, result *BatchResult) error {
	gross := decimal.Zero
	commissionTotal := decimal.Zero
	net := decimal.Zero
	orderIDs := make([]uuid.UUID, 0, len(vendorOrders))
	for _, order := range vendorOrders {
		gross = gross.Add(order.Total)
		if order.CommissionAmount != nil {
			commissionTotal = commissionTotal.Add(*order.CommissionAmount)
		}
		net = net.Add(*order.NetPayout)
		orderIDs = append(orderIDs, order.ID)
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		payout := &models.Payout{
			VendorID:         vendorID,
			PeriodStart:      periodStart,
			PeriodEnd:        periodEnd,
			OrderCount:       len(orderIDs),
			GrossEarnings:    gross,
			CommissionAmount: commissionTotal,
			NetPayout:        net,
			Status:           enums.PayoutStatusRecorded,
			IdempotencyKey:   PayoutKey(vendorID, periodStart, periodEnd),
		}
		created, err := repo.CreatePayout(ctx, payout)
		if err != nil {
			if dbpkg.IsUniqueViolation(err, "ux_payouts_idempotency_key") {
				// Period already settled for this vendor on a prior run.
				result.Skipped++
				return nil
			}
			return err
		}

		if err := repo.MarkOrdersSettled(ctx, orderIDs, created.ID); err != nil {
			return err
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPayoutRecorded,
			AggregateType: enums.AggregatePayout,
			AggregateID:   created.ID,
			Version:       1,
			Data: payloads.PayoutRecordedEvent{
				PayoutID:         created.ID,
				VendorID:         vendorID,
				PeriodStart:      periodStart,
				PeriodEnd:        periodEnd,
				OrderCount:       created.OrderCount,
				GrossEarnings:    gross,
				CommissionAmount: commissionTotal,
				NetPayout:        net,
				Currency:         enums.CurrencyINR,
			},
		}); err != nil {
			return err
		}

		result.VendorsSettled++
		result.OrdersSettled += len(orderIDs)
		return nil
	})
}

// ValidatePct bounds the platform fee.
func ValidatePct(pct decimal.Decimal) error {
	if pct.LessThan(minPct) || pct.GreaterThan(maxPct) {
		return pkgerrors.New(pkgerrors.CodeValidation, "commission percentage must be between 0 and 50")
	}
	return nil
}

// PayoutKey is the idempotency key for one vendor settlement period.
func PayoutKey(vendorID uuid.UUID, periodStart, periodEnd time.Time) string {
	return fmt.Sprintf("payout:%s:%s:%s", vendorID,
		periodStart.UTC().Format("2006-01-02"), periodEnd.UTC().Format("2006-01-02"))
}
