package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"github.com/printmitra/printmitra-backend/internal/badges"
	"github.com/printmitra/printmitra-backend/internal/catalog"
	"github.com/printmitra/printmitra-backend/internal/commission"
	"github.com/printmitra/printmitra-backend/internal/cron"
	"github.com/printmitra/printmitra-backend/internal/matching"
	"github.com/printmitra/printmitra-backend/internal/orders"
	"github.com/printmitra/printmitra-backend/internal/vendors"
	"github.com/printmitra/printmitra-backend/pkg/config"
	"github.com/printmitra/printmitra-backend/pkg/db"
	"github.com/printmitra/printmitra-backend/pkg/logger"
	"github.com/printmitra/printmitra-backend/pkg/metrics"
	"github.com/printmitra/printmitra-backend/pkg/migrate"
	"github.com/printmitra/printmitra-backend/pkg/outbox"
	"github.com/printmitra/printmitra-backend/pkg/redis"
)

const lockKeyFormat = "pm:cron-worker:lock:%s:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	outboxRepo := outbox.NewRepository(dbClient.DB())
	outboxSvc := outbox.NewService(outboxRepo, logg)

	var badgesSvc badges.Service
	vendorsSvc, err := vendors.NewService(vendors.NewRepository(dbClient.DB()), vendors.BadgeApplierFunc(func(ctx context.Context, tx *gorm.DB, vendorID uuid.UUID) error {
		return badgesSvc.ApplySale(ctx, tx, vendorID)
	}))
	requireService(logg, "vendors service", err)
	badgesSvc, err = badges.NewService(badges.NewRepository(dbClient.DB()), vendorsSvc, dbClient, outboxSvc)
	requireService(logg, "badges service", err)

	catalogSvc, err := catalog.NewService(catalog.NewRepository(dbClient.DB()), vendorsSvc, dbClient)
	requireService(logg, "catalog service", err)

	commissionSvc, err := commission.NewService(commission.NewRepository(dbClient.DB()), vendorsSvc, dbClient, outboxSvc, logg)
	requireService(logg, "commission service", err)

	ordersRepo := orders.NewRepository(dbClient.DB())
	var matchingSvc matching.Service
	ordersSvc, err := orders.NewService(ordersRepo, dbClient, outboxSvc, catalogSvc, commissionSvc, vendorsSvc, orders.OfferVoiderFunc(func(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error {
		return matchingSvc.VoidOpenOffers(ctx, tx, orderID)
	}))
	requireService(logg, "orders service", err)
	matchingSvc, err = matching.NewService(matching.NewRepository(dbClient.DB()), ordersRepo, ordersSvc, vendorsSvc, dbClient, outboxSvc, cfg.Offer)
	requireService(logg, "matching service", err)

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)

	offerExpiryJob, err := cron.NewOfferExpiryJob(cron.OfferExpiryJobParams{
		Logger:   logg,
		Matching: matchingSvc,
		Metrics:  metricsCollector,
	})
	requireService(logg, "offer expiry job", err)

	payoutJob, err := cron.NewPayoutBatchJob(cron.PayoutBatchJobParams{
		Logger:     logg,
		Commission: commissionSvc,
		Metrics:    metricsCollector,
		PeriodDays: payoutPeriodDays(cfg.Payout.Period),
	})
	requireService(logg, "payout batch job", err)

	retentionJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: outboxRepo,
	})
	requireService(logg, "outbox retention job", err)

	// Offers expire on a minutes scale while payouts settle daily at most,
	// so the two cadences run as separate loops with separate locks.
	sweepLock, err := cron.NewRedisLock(redisClient, lockKey("sweep", cfg.App.Env), cfg.Offer.SweepEvery)
	requireService(logg, "sweep lock", err)
	sweepService, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(offerExpiryJob),
		Lock:     sweepLock,
		Metrics:  metricsCollector,
		Interval: cfg.Offer.SweepEvery,
	})
	requireService(logg, "sweep cron service", err)

	settleLock, err := cron.NewRedisLock(redisClient, lockKey("settle", cfg.App.Env), 0)
	requireService(logg, "settle lock", err)
	settleService, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(payoutJob, retentionJob),
		Lock:     settleLock,
		Metrics:  metricsCollector,
		Interval: cfg.Payout.BatchInterval,
	})
	requireService(logg, "settle cron service", err)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithField(ctx, "env", cfg.App.Env)
	logg.Info(ctx, "starting cron worker")

	errCh := make(chan error, 2)
	go func() { errCh <- sweepService.Run(ctx) }()
	go func() { errCh <- settleService.Run(ctx) }()

	for i := 0; i < 2; i++ {
		if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
			logg.Error(ctx, "cron worker stopped unexpectedly", err)
			os.Exit(1)
		}
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func requireService(logg *logger.Logger, service string, err error) {
	if err == nil {
		return
	}
	logg.Error(context.Background(), fmt.Sprintf("failed to build %s", service), err)
	os.Exit(1)
}

func payoutPeriodDays(period string) int {
	switch period {
	case "daily":
		return 1
	case "weekly":
		return 7
	default:
		return 0
	}
}

func lockKey(loop, env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, loop, env)
}
