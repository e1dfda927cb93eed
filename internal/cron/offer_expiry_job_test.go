package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/printmitra/printmitra-backend/pkg/logger"
)

type fakeOfferExpirer struct {
	pages []int
	calls int
	err   error
}

func (f *fakeOfferExpirer) ExpireDue(ctx context.Context, limit int) (int, error) {
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	if len(f.pages) == 0 {
		return 0, nil
	}
	page := f.pages[0]
	f.pages = f.pages[1:]
	return page, nil
}

func newOfferExpiryJob(t *testing.T, expirer *fakeOfferExpirer, limit int) Job {
	t.Helper()
	job, err := NewOfferExpiryJob(OfferExpiryJobParams{
		Logger:     logger.New(logger.Options{ServiceName: "test"}),
		Matching:   expirer,
		BatchLimit: limit,
	})
	if err != nil {
		t.Fatalf("NewOfferExpiryJob: %v", err)
	}
	return job
}

func TestOfferExpiryJobDrainsBacklogAcrossPages(t *testing.T) {
	expirer := &fakeOfferExpirer{pages: []int{10, 10, 3}}
	job := newOfferExpiryJob(t, expirer, 10)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if expirer.calls != 3 {
		t.Fatalf("expected 3 sweeps, got %d", expirer.calls)
	}
}

func TestOfferExpiryJobStopsOnShortPage(t *testing.T) {
	expirer := &fakeOfferExpirer{pages: []int{4}}
	job := newOfferExpiryJob(t, expirer, 10)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if expirer.calls != 1 {
		t.Fatalf("expected 1 sweep, got %d", expirer.calls)
	}
}

func TestOfferExpiryJobPropagatesError(t *testing.T) {
	expirer := &fakeOfferExpirer{err: errors.New("boom")}
	job := newOfferExpiryJob(t, expirer, 10)

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
