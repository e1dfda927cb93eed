package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/printmitra/printmitra-backend/internal/commission"
	"github.com/printmitra/printmitra-backend/pkg/logger"
	"github.com/printmitra/printmitra-backend/pkg/metrics"
)

const defaultPayoutPeriodDays = 1

type payoutRunner interface {
	RunBatch(ctx context.Context, periodStart, periodEnd time.Time) (*commission.BatchResult, error)
}

// PayoutBatchJobParams configure the settlement batch.
type PayoutBatchJobParams struct {
	Logger     *logger.Logger
	Commission payoutRunner
	Metrics    *metrics.CronJobMetrics
	PeriodDays int
}

// NewPayoutBatchJob settles completed orders from the trailing period into
// vendor payouts. The period always ends at today's UTC midnight, so reruns
// within the same day target the same window and the idempotency keys hold.
func NewPayoutBatchJob(params PayoutBatchJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Commission == nil {
		return nil, fmt.Errorf("commission service required")
	}
	days := params.PeriodDays
	if days <= 0 {
		days = defaultPayoutPeriodDays
	}
	return &payoutBatchJob{
		logg:       params.Logger,
		commission: params.Commission,
		metrics:    params.Metrics,
		periodDays: days,
		now:        time.Now,
	}, nil
}

type payoutBatchJob struct {
	logg       *logger.Logger
	commission payoutRunner
	metrics    *metrics.CronJobMetrics
	periodDays int
	now        func() time.Time
}

func (j *payoutBatchJob) Name() string { return "payout-batch" }

func (j *payoutBatchJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	periodEnd := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	periodStart := periodEnd.AddDate(0, 0, -j.periodDays)

	result, err := j.commission.RunBatch(ctx, periodStart, periodEnd)
	if err != nil {
		return fmt.Errorf("payout batch: %w", err)
	}
	if j.metrics != nil {
		j.metrics.AddProcessed(j.Name(), result.OrdersSettled)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"period_start":    periodStart,
		"period_end":      periodEnd,
		"vendors_settled": result.VendorsSettled,
		"orders_settled":  result.OrdersSettled,
		"skipped":         result.Skipped,
	})
	j.logg.Info(logCtx, "payout batch complete")
	return nil
}
