package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/printmitra/printmitra-backend/api/controllers"
	admincontrollers "github.com/printmitra/printmitra-backend/api/controllers/admin"
	estimatecontrollers "github.com/printmitra/printmitra-backend/api/controllers/estimates"
	offercontrollers "github.com/printmitra/printmitra-backend/api/controllers/offers"
	ordercontrollers "github.com/printmitra/printmitra-backend/api/controllers/orders"
	vendorcontrollers "github.com/printmitra/printmitra-backend/api/controllers/vendors"
	webhookcontrollers "github.com/printmitra/printmitra-backend/api/controllers/webhooks"
	"github.com/printmitra/printmitra-backend/api/middleware"
	"github.com/printmitra/printmitra-backend/internal/badges"
	"github.com/printmitra/printmitra-backend/internal/catalog"
	"github.com/printmitra/printmitra-backend/internal/commission"
	"github.com/printmitra/printmitra-backend/internal/matching"
	"github.com/printmitra/printmitra-backend/internal/orders"
	"github.com/printmitra/printmitra-backend/internal/vendors"
	"github.com/printmitra/printmitra-backend/pkg/config"
	"github.com/printmitra/printmitra-backend/pkg/logger"
	"github.com/printmitra/printmitra-backend/pkg/redis"
)

// NewRouter assembles the HTTP surface: public pricing and ordering, vendor
// offer decisions, payment webhooks and the admin plane.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	database controllers.Pinger,
	redisClient *redis.Client,
	catalogService catalog.Service,
	ordersService orders.Service,
	matchingService matching.Service,
	vendorsService vendors.Service,
	badgesService badges.Service,
	commissionService commission.Service,
) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
		middleware.ActorContext(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, database, redisClient, logg))
	})
	r.Get("/healthz", controllers.HealthReady(cfg, database, redisClient, logg))

	r.Route("/webhooks", func(r chi.Router) {
		r.Use(middleware.Idempotency(redisClient, logg))
		r.Post("/payments", webhookcontrollers.Payments(ordersService, logg))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Post("/estimates", estimatecontrollers.Quote(catalogService, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", ordercontrollers.Create(ordersService, logg))
			r.Get("/", ordercontrollers.List(ordersService, logg))
			r.Get("/{orderId}", ordercontrollers.Detail(ordersService, logg))
			r.Post("/{orderId}/cancel", ordercontrollers.Cancel(ordersService, logg))
			r.Post("/{orderId}/transition", ordercontrollers.Transition(ordersService, logg))
			r.Get("/{orderId}/offers", offercontrollers.ListForOrder(matchingService, logg))
		})

		r.Route("/offers", func(r chi.Router) {
			r.Post("/{offerId}/accept", offercontrollers.Accept(matchingService, logg))
			r.Post("/{offerId}/decline", offercontrollers.Decline(matchingService, logg))
		})

		r.Route("/vendors", func(r chi.Router) {
			r.Post("/", vendorcontrollers.Register(vendorsService, logg))
			r.Get("/", vendorcontrollers.List(vendorsService, logg))
			r.Get("/{vendorId}", vendorcontrollers.Detail(vendorsService, logg))
			r.Patch("/{vendorId}/online", vendorcontrollers.SetOnline(vendorsService, logg))
			r.Patch("/{vendorId}/location", vendorcontrollers.UpdateLocation(vendorsService, logg))
			r.Get("/{vendorId}/progress", vendorcontrollers.Progress(badgesService, logg))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Get("/commission-settings", admincontrollers.CurrentCommission(commissionService, logg))
			r.Put("/commission-settings", admincontrollers.UpdateCommission(commissionService, logg))

			r.Route("/catalogs", func(r chi.Router) {
				r.Post("/", admincontrollers.CreateCatalog(catalogService, logg))
				r.Get("/", admincontrollers.ListCatalogs(catalogService, logg))
				r.Post("/{catalogId}/activate", admincontrollers.ActivateCatalog(catalogService, logg))
			})

			r.Route("/badges", func(r chi.Router) {
				r.Get("/thresholds", admincontrollers.BadgeLadder(badgesService, logg))
				r.Put("/thresholds", admincontrollers.UpdateBadgeLadder(badgesService, logg))
			})

			r.Route("/vendors/{vendorId}", func(r chi.Router) {
				r.Put("/badge", admincontrollers.OverrideBadge(badgesService, logg))
				r.Put("/commission-override", admincontrollers.SetCommissionOverride(vendorsService, logg))
				r.Put("/catalog-override", admincontrollers.SetCatalogOverride(vendorsService, logg))
			})

			r.Post("/orders/{orderId}/assign", admincontrollers.ManualAssign(matchingService, logg))
			r.Get("/payouts", admincontrollers.ListPayouts(commissionService, logg))
		})
	})

	return r
}
