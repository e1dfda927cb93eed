package cron

import (
	"context"
	"fmt"

	"github.com/printmitra/printmitra-backend/pkg/logger"
	"github.com/printmitra/printmitra-backend/pkg/metrics"
)

const offerExpiryBatchLimit = 100

type offerExpirer interface {
	ExpireDue(ctx context.Context, limit int) (int, error)
}

// OfferExpiryJobParams configure the offer expiry sweep.
type OfferExpiryJobParams struct {
	Logger     *logger.Logger
	Matching   offerExpirer
	Metrics    *metrics.CronJobMetrics
	BatchLimit int
}

// NewOfferExpiryJob sweeps vendor offers whose acceptance window has lapsed
// and cascades each order to the next candidate.
func NewOfferExpiryJob(params OfferExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Matching == nil {
		return nil, fmt.Errorf("matching service required")
	}
	limit := params.BatchLimit
	if limit <= 0 {
		limit = offerExpiryBatchLimit
	}
	return &offerExpiryJob{
		logg:     params.Logger,
		matching: params.Matching,
		metrics:  params.Metrics,
		limit:    limit,
	}, nil
}

type offerExpiryJob struct {
	logg     *logger.Logger
	matching offerExpirer
	metrics  *metrics.CronJobMetrics
	limit    int
}

func (j *offerExpiryJob) Name() string { return "offer-expiry" }

func (j *offerExpiryJob) Run(ctx context.Context) error {
	total := 0
	for {
		processed, err := j.matching.ExpireDue(ctx, j.limit)
		total += processed
		if err != nil {
			return fmt.Errorf("offer expiry: %w", err)
		}
		// A short page means the backlog is drained.
		if processed < j.limit {
			break
		}
	}
	if j.metrics != nil {
		j.metrics.AddProcessed(j.Name(), total)
	}
	if total > 0 {
		logCtx := j.logg.WithField(ctx, "offers_expired", total)
		j.logg.Info(logCtx, "offer expiry sweep complete")
	}
	return nil
}
