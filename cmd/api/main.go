package main

import (
	"context"
	"net/http"
	"os"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"github.com/printmitra/printmitra-backend/api/routes"
	"github.com/printmitra/printmitra-backend/internal/badges"
	"github.com/printmitra/printmitra-backend/internal/catalog"
	"github.com/printmitra/printmitra-backend/internal/commission"
	"github.com/printmitra/printmitra-backend/internal/matching"
	"github.com/printmitra/printmitra-backend/internal/orders"
	"github.com/printmitra/printmitra-backend/internal/vendors"
	"github.com/printmitra/printmitra-backend/pkg/config"
	"github.com/printmitra/printmitra-backend/pkg/db"
	"github.com/printmitra/printmitra-backend/pkg/logger"
	"github.com/printmitra/printmitra-backend/pkg/migrate"
	"github.com/printmitra/printmitra-backend/pkg/outbox"
	"github.com/printmitra/printmitra-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	outboxSvc := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	// The badge service evaluates progression inside vendor transactions and
	// the vendor service applies the resulting badge, so each needs the
	// other. The func adapter defers the badge lookup until both exist.
	var badgesSvc badges.Service
	vendorsSvc, err := vendors.NewService(vendors.NewRepository(dbClient.DB()), vendors.BadgeApplierFunc(func(ctx context.Context, tx *gorm.DB, vendorID uuid.UUID) error {
		return badgesSvc.ApplySale(ctx, tx, vendorID)
	}))
	if err != nil {
		logg.Error(context.Background(), "failed to create vendors service", err)
		os.Exit(1)
	}
	badgesSvc, err = badges.NewService(badges.NewRepository(dbClient.DB()), vendorsSvc, dbClient, outboxSvc)
	if err != nil {
		logg.Error(context.Background(), "failed to create badges service", err)
		os.Exit(1)
	}

	catalogSvc, err := catalog.NewService(catalog.NewRepository(dbClient.DB()), vendorsSvc, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	commissionSvc, err := commission.NewService(commission.NewRepository(dbClient.DB()), vendorsSvc, dbClient, outboxSvc, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create commission service", err)
		os.Exit(1)
	}

	// Same shape for orders and matching: cancelling an order voids its open
	// offer, and accepting an offer assigns the order.
	ordersRepo := orders.NewRepository(dbClient.DB())
	var matchingSvc matching.Service
	ordersSvc, err := orders.NewService(ordersRepo, dbClient, outboxSvc, catalogSvc, commissionSvc, vendorsSvc, orders.OfferVoiderFunc(func(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error {
		return matchingSvc.VoidOpenOffers(ctx, tx, orderID)
	}))
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}
	matchingSvc, err = matching.NewService(matching.NewRepository(dbClient.DB()), ordersRepo, ordersSvc, vendorsSvc, dbClient, outboxSvc, cfg.Offer)
	if err != nil {
		logg.Error(context.Background(), "failed to create matching service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, catalogSvc, ordersSvc, matchingSvc, vendorsSvc, badgesSvc, commissionSvc),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
