package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/crosscartapp/crosscart-backend/api/controllers"
	"github.com/crosscartapp/crosscart-backend/api/middleware"
	checkoutsvc "github.com/crosscartapp/crosscart-backend/internal/checkout"
	"github.com/crosscartapp/crosscart-backend/internal/remediation"
	"github.com/crosscartapp/crosscart-backend/pkg/config"
	"github.com/crosscartapp/crosscart-backend/pkg/enums"
	"github.com/crosscartapp/crosscart-backend/pkg/logger"
	"github.com/crosscartapp/crosscart-backend/pkg/redis"
)

// NewRouter wires the HTTP surface: shopper checkout routes, the admin
// remediation routes, and the operational endpoints.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	redisClient *redis.Client,
	promRegistry *prometheus.Registry,
	checkoutService checkoutsvc.Service,
	remediationService remediation.Service,
	healthDeps ...controllers.HealthDependency,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, healthDeps...))
	})

	if promRegistry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{}))
	}

	checkoutPolicy := middleware.RateLimitPolicy{
		Name:   "checkout",
		Limit:  cfg.RateLimit.CheckoutLimit,
		Window: cfg.RateLimit.CheckoutWindow,
	}

	r.Route("/api/v1/checkout", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		if redisClient != nil {
			r.Use(middleware.RateLimit(checkoutPolicy, redisClient, logg))
			r.Use(middleware.Idempotency(redisClient, logg))
		}

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", controllers.CheckoutSessionCreate(checkoutService, logg))
			r.Route("/{token}", func(r chi.Router) {
				r.Get("/", controllers.CheckoutSessionFetch(checkoutService, logg))
				r.Put("/shipping", controllers.CheckoutSessionShipping(checkoutService, logg))
				r.Put("/payment", controllers.CheckoutSessionPayment(checkoutService, logg))
				r.Post("/place", controllers.CheckoutSessionPlace(checkoutService, logg))
				r.Get("/orders", controllers.CheckoutSessionOrders(checkoutService, logg))
			})
		})
	})

	r.Route("/api/admin/v1/manual-orders", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(string(enums.RoleAdmin), logg))
		if redisClient != nil {
			r.Use(middleware.Idempotency(redisClient, logg))
		}

		r.Get("/", controllers.ManualOrderList(remediationService, logg))
		r.Get("/stats", controllers.ManualOrderStats(remediationService, logg))
		r.Route("/{orderNumber}", func(r chi.Router) {
			r.Get("/", controllers.ManualOrderFetch(remediationService, logg))
			r.Get("/instructions", controllers.ManualOrderInstructions(remediationService, logg))
			r.Post("/place", controllers.ManualOrderPlace(remediationService, logg))
			r.Post("/fail", controllers.ManualOrderFail(remediationService, logg))
		})
	})

	return r
}
