package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/outre-records/inventory-core/api/controllers"
	catalogcontrollers "github.com/outre-records/inventory-core/api/controllers/catalog"
	inventorycontrollers "github.com/outre-records/inventory-core/api/controllers/inventory"
	ordercontrollers "github.com/outre-records/inventory-core/api/controllers/orders"
	settlementcontrollers "github.com/outre-records/inventory-core/api/controllers/settlements"
	"github.com/outre-records/inventory-core/api/middleware"
	"github.com/outre-records/inventory-core/internal/catalog"
	"github.com/outre-records/inventory-core/internal/inventory"
	"github.com/outre-records/inventory-core/internal/orders"
	"github.com/outre-records/inventory-core/internal/settlements"
	"github.com/outre-records/inventory-core/pkg/config"
	"github.com/outre-records/inventory-core/pkg/logger"
	"github.com/outre-records/inventory-core/pkg/metrics"
	"github.com/outre-records/inventory-core/pkg/redis"
)

// Params carries everything the router mounts. A nil Redis store disables
// idempotency replay; nil services answer 500 on their routes.
type Params struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       controllers.Pinger
	Redis    *redis.Client
	Gatherer prometheus.Gatherer

	Inventory   inventory.Service
	Catalog     catalog.Service
	Orders      orders.Service
	Settlements settlements.Service
}

func NewRouter(p Params) http.Handler {
	cfg, logg := p.Config, p.Logger

	var store redis.IdempotencyStore
	readiness := map[string]controllers.Pinger{"db": p.DB}
	if p.Redis != nil {
		store = p.Redis
		readiness["redis"] = p.Redis
	} else {
		readiness["redis"] = nil
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSAllowedOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})
	r.Handle("/metrics", metrics.Handler(p.Gatherer))

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Actor(logg))

		r.Get("/public/ping", controllers.PublicPing())

		r.Route("/v1", func(r chi.Router) {
			if store != nil {
				r.Use(middleware.Idempotency(store, cfg.Idempotency, logg))
			}

			r.Route("/suppliers", func(r chi.Router) {
				r.Post("/", catalogcontrollers.CreateSupplier(p.Catalog, logg))
				r.Get("/", catalogcontrollers.ListSuppliers(p.Catalog, logg))
				r.Get("/{supplierId}", catalogcontrollers.GetSupplier(p.Catalog, logg))
				r.Get("/{supplierId}/settlement", settlementcontrollers.SupplierSettlement(p.Settlements, logg))
			})

			r.Route("/products", func(r chi.Router) {
				r.Post("/", catalogcontrollers.CreateProduct(p.Catalog, logg))
				r.Get("/", catalogcontrollers.ListProducts(p.Catalog, logg))
				r.Get("/{productId}", catalogcontrollers.GetProduct(p.Catalog, logg))
				r.Patch("/{productId}", catalogcontrollers.UpdateProduct(p.Catalog, logg))
			})

			r.Route("/inventory/products/{productId}", func(r chi.Router) {
				r.Post("/movements", inventorycontrollers.RecordMovement(p.Inventory, logg))
				r.Get("/movements", inventorycontrollers.ListMovements(p.Inventory, logg))
				r.Get("/reconciliation", inventorycontrollers.Reconcile(p.Inventory, logg))
			})

			r.Route("/orders", func(r chi.Router) {
				r.Post("/", ordercontrollers.PlaceOrder(p.Orders, logg))
				r.Get("/", ordercontrollers.List(p.Orders, logg))
				r.Route("/{orderId}", func(r chi.Router) {
					r.Get("/", ordercontrollers.Detail(p.Orders, logg))
					r.Post("/status", ordercontrollers.SetStatus(p.Orders, logg))
					r.Post("/ship", ordercontrollers.Ship(p.Orders, logg))
					r.Post("/refund", ordercontrollers.Refund(p.Orders, logg))
					r.Post("/refund-request", ordercontrollers.RequestRefund(p.Orders, logg))
					r.Post("/cancel", ordercontrollers.Cancel(p.Orders, logg))
					r.Post("/payment-status", ordercontrollers.SetPaymentStatus(p.Orders, logg))
				})
			})

			r.Route("/order-items/{itemId}", func(r chi.Router) {
				r.Post("/cancel", ordercontrollers.CancelItem(p.Orders, logg))
				r.Post("/return", ordercontrollers.ReturnItem(p.Orders, logg))
				r.Patch("/quantity", ordercontrollers.UpdateQuantity(p.Orders, logg))
			})

			r.Route("/settlements", func(r chi.Router) {
				r.Get("/", settlementcontrollers.AllSettlements(p.Settlements, logg))
				r.Get("/report", settlementcontrollers.Report(p.Settlements, logg))
			})

			r.Route("/payouts", func(r chi.Router) {
				r.Post("/", settlementcontrollers.CreatePayout(p.Settlements, logg))
				r.Get("/", settlementcontrollers.ListPayouts(p.Settlements, logg))
				r.Get("/{payoutId}", settlementcontrollers.GetPayout(p.Settlements, logg))
				r.Post("/{payoutId}/mark-paid", settlementcontrollers.MarkPaid(p.Settlements, logg))
				r.Delete("/{payoutId}", settlementcontrollers.DeletePayout(p.Settlements, logg))
			})
		})
	})

	return r
}
