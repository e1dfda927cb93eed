package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/printmitra/printmitra-backend/internal/commission"
	"github.com/printmitra/printmitra-backend/pkg/logger"
)

type fakePayoutRunner struct {
	start  time.Time
	end    time.Time
	called int
	err    error
}

func (f *fakePayoutRunner) RunBatch(ctx context.Context, periodStart, periodEnd time.Time) (*commission.BatchResult, error) {
	f.called++
	f.start = periodStart
	f.end = periodEnd
	if f.err != nil {
		return nil, f.err
	}
	return &commission.BatchResult{
		PeriodStart:    periodStart,
		PeriodEnd:      periodEnd,
		VendorsSettled: 2,
		OrdersSettled:  5,
	}, nil
}

func newPayoutBatchJob(t *testing.T, runner *fakePayoutRunner, days int) *payoutBatchJob {
	t.Helper()
	jobIface, err := NewPayoutBatchJob(PayoutBatchJobParams{
		Logger:     logger.New(logger.Options{ServiceName: "test"}),
		Commission: runner,
		PeriodDays: days,
	})
	if err != nil {
		t.Fatalf("NewPayoutBatchJob: %v", err)
	}
	job, ok := jobIface.(*payoutBatchJob)
	if !ok {
		t.Fatalf("expected payoutBatchJob, got %T", jobIface)
	}
	return job
}

func TestPayoutBatchJobTargetsTrailingUTCDay(t *testing.T) {
	runner := &fakePayoutRunner{}
	job := newPayoutBatchJob(t, runner, 0)
	job.now = func() time.Time {
		return time.Date(2026, 8, 15, 9, 30, 0, 0, time.FixedZone("IST", 5*3600+1800))
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	wantEnd := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)
	wantStart := wantEnd.AddDate(0, 0, -1)
	if !runner.start.Equal(wantStart) || !runner.end.Equal(wantEnd) {
		t.Fatalf("expected period [%s, %s), got [%s, %s)", wantStart, wantEnd, runner.start, runner.end)
	}
}

func TestPayoutBatchJobRerunsTargetSameWindow(t *testing.T) {
	runner := &fakePayoutRunner{}
	job := newPayoutBatchJob(t, runner, 1)
	job.now = func() time.Time { return time.Date(2026, 8, 15, 1, 0, 0, 0, time.UTC) }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	firstStart, firstEnd := runner.start, runner.end

	job.now = func() time.Time { return time.Date(2026, 8, 15, 23, 0, 0, 0, time.UTC) }
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if !runner.start.Equal(firstStart) || !runner.end.Equal(firstEnd) {
		t.Fatal("reruns on the same day must target the same settlement window")
	}
}

func TestPayoutBatchJobPropagatesError(t *testing.T) {
	runner := &fakePayoutRunner{err: errors.New("boom")}
	job := newPayoutBatchJob(t, runner, 1)

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
