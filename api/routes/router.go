package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/feirahub/marketplace-backend/api/controllers"
	"github.com/feirahub/marketplace-backend/api/middleware"
	"github.com/feirahub/marketplace-backend/internal/cart"
	"github.com/feirahub/marketplace-backend/internal/orders"
	"github.com/feirahub/marketplace-backend/internal/pricing"
	"github.com/feirahub/marketplace-backend/pkg/config"
	"github.com/feirahub/marketplace-backend/pkg/db"
	"github.com/feirahub/marketplace-backend/pkg/enums"
	"github.com/feirahub/marketplace-backend/pkg/logger"
	"github.com/feirahub/marketplace-backend/pkg/metrics"
	"github.com/feirahub/marketplace-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	pricingService pricing.Service,
	cartService cart.Service,
	ordersService orders.Service,
) http.Handler {
	// Each router carries its own registry so repeated construction never
	// double-registers collectors.
	promRegistry := prometheus.NewRegistry()
	httpMetrics := metrics.NewHTTPMetrics(promRegistry)

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(httpMetrics),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{}))

	// A typed nil *redis.Client must not reach the middleware as a non-nil
	// interface.
	var idemStore redis.IdempotencyStore
	if redisClient != nil {
		idemStore = redisClient
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(idemStore, logg))

		r.Get("/api/v1/products/{productId}/price", controllers.ResolveProductPrice(pricingService, logg))
		r.Post("/api/v1/cart/calculate", controllers.CalculateCart(cartService, logg))

		r.Post("/api/v1/orders", controllers.CreateOrder(ordersService, logg))
		r.Get("/api/v1/orders", controllers.ListOrders(ordersService, logg))
		r.Get("/api/v1/orders/{orderId}", controllers.GetOrder(ordersService, logg))
		r.Post("/api/v1/orders/{orderId}/cancel", controllers.CancelOrder(ordersService, logg))
		r.With(middleware.RequireRole(logg, enums.ActorRoleSupplier, enums.ActorRoleAdmin)).
			Patch("/api/v1/orders/{orderId}/status", controllers.UpdateOrderStatus(ordersService, logg))
	})

	return r
}
