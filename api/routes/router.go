package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/silkroute/storefront-backend/api/controllers"
	webhookcontrollers "github.com/silkroute/storefront-backend/api/controllers/webhooks"
	"github.com/silkroute/storefront-backend/api/middleware"
	"github.com/silkroute/storefront-backend/internal/inventory"
	"github.com/silkroute/storefront-backend/internal/orders"
	"github.com/silkroute/storefront-backend/internal/payments"
	"github.com/silkroute/storefront-backend/pkg/config"
	"github.com/silkroute/storefront-backend/pkg/db"
	"github.com/silkroute/storefront-backend/pkg/logger"
	"github.com/silkroute/storefront-backend/pkg/redis"
)

// RouterParams carries everything the HTTP surface depends on.
type RouterParams struct {
	Config    *config.Config
	Logger    *logger.Logger
	DBPinger  db.Pinger
	Redis     redis.Pinger
	Orders    orders.Service
	Payments  payments.Service
	Inventory inventory.Service
	Guard     *payments.IdempotencyGuard
	Registry  *prometheus.Registry
}

func NewRouter(p RouterParams) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(p.Logger),
		middleware.RequestID(p.Logger),
		middleware.Logging(p.Logger),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(p.Config))
		r.Get("/ready", controllers.HealthReady(p.Config, p.Logger, p.DBPinger, p.Redis))
	})

	if p.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/orders", func(r chi.Router) {
			r.Post("/", controllers.CreateOrder(p.Orders, p.Logger))
			r.Get("/lookup", controllers.LookupGuestOrder(p.Orders, p.Logger))
		})

		r.Route("/payments", func(r chi.Router) {
			r.Post("/verify", controllers.VerifyPayment(p.Payments, p.Logger))
		})

		r.Route("/webhooks", func(r chi.Router) {
			r.Post("/razorpay", webhookcontrollers.RazorpayWebhook(p.Payments, guardOrNil(p.Guard), p.Logger))
		})

		r.Route("/inventory", func(r chi.Router) {
			r.Post("/scan", controllers.ScanStock(p.Inventory, p.Logger))
			r.Get("/logs", controllers.ListStockLogs(p.Inventory, p.Logger))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Post("/orders/{orderId}/status", controllers.OverrideOrderStatus(p.Orders, p.Logger))
		})
	})

	return r
}

// guardOrNil keeps a typed-nil *IdempotencyGuard from reaching the handler
// as a non-nil interface.
func guardOrNil(g *payments.IdempotencyGuard) webhookcontrollers.RazorpayWebhookGuard {
	if g == nil {
		return nil
	}
	return g
}
