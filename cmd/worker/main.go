package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"github.com/printmitra/printmitra-backend/internal/badges"
	"github.com/printmitra/printmitra-backend/internal/catalog"
	"github.com/printmitra/printmitra-backend/internal/commission"
	"github.com/printmitra/printmitra-backend/internal/consumers/dispatch"
	"github.com/printmitra/printmitra-backend/internal/matching"
	"github.com/printmitra/printmitra-backend/internal/orders"
	"github.com/printmitra/printmitra-backend/internal/vendors"
	"github.com/printmitra/printmitra-backend/pkg/config"
	"github.com/printmitra/printmitra-backend/pkg/db"
	"github.com/printmitra/printmitra-backend/pkg/logger"
	"github.com/printmitra/printmitra-backend/pkg/outbox"
	"github.com/printmitra/printmitra-backend/pkg/outbox/idempotency"
	"github.com/printmitra/printmitra-backend/pkg/pubsub"
	"github.com/printmitra/printmitra-backend/pkg/redis"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "dispatch-worker"})

	_ = godotenv.Load()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "dispatch-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer dbClient.Close()

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer redisClient.Close()

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	requireResource(ctx, logg, "pubsub", err)
	defer pubsubClient.Close()

	outboxSvc := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	var badgesSvc badges.Service
	vendorsSvc, err := vendors.NewService(vendors.NewRepository(dbClient.DB()), vendors.BadgeApplierFunc(func(ctx context.Context, tx *gorm.DB, vendorID uuid.UUID) error {
		return badgesSvc.ApplySale(ctx, tx, vendorID)
	}))
	requireResource(ctx, logg, "vendors service", err)
	badgesSvc, err = badges.NewService(badges.NewRepository(dbClient.DB()), vendorsSvc, dbClient, outboxSvc)
	requireResource(ctx, logg, "badges service", err)

	catalogSvc, err := catalog.NewService(catalog.NewRepository(dbClient.DB()), vendorsSvc, dbClient)
	requireResource(ctx, logg, "catalog service", err)

	commissionSvc, err := commission.NewService(commission.NewRepository(dbClient.DB()), vendorsSvc, dbClient, outboxSvc, logg)
	requireResource(ctx, logg, "commission service", err)

	ordersRepo := orders.NewRepository(dbClient.DB())
	var matchingSvc matching.Service
	ordersSvc, err := orders.NewService(ordersRepo, dbClient, outboxSvc, catalogSvc, commissionSvc, vendorsSvc, orders.OfferVoiderFunc(func(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error {
		return matchingSvc.VoidOpenOffers(ctx, tx, orderID)
	}))
	requireResource(ctx, logg, "orders service", err)
	matchingSvc, err = matching.NewService(matching.NewRepository(dbClient.DB()), ordersRepo, ordersSvc, vendorsSvc, dbClient, outboxSvc, cfg.Offer)
	requireResource(ctx, logg, "matching service", err)

	manager, err := idempotency.NewManager(redisClient, cfg.Eventing.OutboxIdempotencyTTL)
	requireResource(ctx, logg, "idempotency manager", err)

	dispatchConsumer, err := dispatch.NewConsumer(matchingSvc, pubsubClient.OrdersSubscription(), manager, logg)
	requireResource(ctx, logg, "dispatch consumer", err)

	service, err := NewService(ServiceParams{
		Config:           cfg,
		Logger:           logg,
		DB:               dbClient,
		Redis:            redisClient,
		PubSub:           pubsubClient,
		DispatchConsumer: dispatchConsumer,
	})
	requireResource(ctx, logg, "worker service", err)

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"env": cfg.App.Env,
	})
	logg.Info(runCtx, "dispatch worker ready")

	if err := service.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "dispatch worker stopped unexpectedly", err)
		os.Exit(1)
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
