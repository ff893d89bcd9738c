package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/crosscartapp/crosscart-backend/api/controllers"
	"github.com/crosscartapp/crosscart-backend/api/routes"
	"github.com/crosscartapp/crosscart-backend/internal/automation"
	"github.com/crosscartapp/crosscart-backend/internal/cart"
	"github.com/crosscartapp/crosscart-backend/internal/checkout"
	"github.com/crosscartapp/crosscart-backend/internal/orders"
	"github.com/crosscartapp/crosscart-backend/internal/payments"
	"github.com/crosscartapp/crosscart-backend/internal/placement"
	"github.com/crosscartapp/crosscart-backend/internal/remediation"
	"github.com/crosscartapp/crosscart-backend/internal/retailers"
	"github.com/crosscartapp/crosscart-backend/pkg/config"
	"github.com/crosscartapp/crosscart-backend/pkg/db"
	pkgerrors "github.com/crosscartapp/crosscart-backend/pkg/errors"
	"github.com/crosscartapp/crosscart-backend/pkg/logger"
	"github.com/crosscartapp/crosscart-backend/pkg/metrics"
	"github.com/crosscartapp/crosscart-backend/pkg/migrate"
	"github.com/crosscartapp/crosscart-backend/pkg/outbox"
	"github.com/crosscartapp/crosscart-backend/pkg/redis"
	pkgstripe "github.com/crosscartapp/crosscart-backend/pkg/stripe"
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

	stripeClient, err := pkgstripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap stripe", err)
		os.Exit(1)
	}

	gateway, err := payments.NewStripeGateway(payments.NewStripeIntentClient(stripeClient))
	if err != nil {
		logg.Error(context.Background(), "failed to create payment gateway", err)
		os.Exit(1)
	}
	coordinator, err := payments.NewCoordinator(gateway, payments.NewRepository(dbClient.DB()), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create payment coordinator", err)
		os.Exit(1)
	}

	promRegistry := prometheus.NewRegistry()
	checkoutMetrics := metrics.NewCheckoutMetrics(promRegistry)

	registry := retailers.NewRegistry()
	for retailerID := range cfg.Placement.Tiers {
		// Connectors start without an API client; retailers gain one when
		// their integration package is linked in. Until then the api tier
		// falls through to the manual queue.
		if err := registry.Register(retailers.Connector{ID: retailerID}); err != nil {
			logg.Error(context.Background(), "failed to register retailer", err)
			os.Exit(1)
		}
	}

	var refresher retailers.TokenRefresher
	if cfg.Retailers.BrokerURL != "" {
		broker, err := retailers.NewHTTPBroker(cfg.Retailers.BrokerURL, cfg.Retailers.BrokerToken)
		if err != nil {
			logg.Error(context.Background(), "failed to create credential broker", err)
			os.Exit(1)
		}
		refresher = broker
	} else {
		refresher = retailers.RefresherFunc(func(context.Context, string, string) (string, time.Duration, error) {
			return "", 0, pkgerrors.New(pkgerrors.CodeDependency, "credential broker not configured")
		})
	}

	tokens, err := retailers.NewTokenSource(refresher, redisClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create token source", err)
		os.Exit(1)
	}

	var runner automation.Runner
	if cfg.Automation.WorkerURL != "" {
		httpRunner, err := automation.NewHTTPRunner(cfg.Automation.WorkerURL, cfg.Automation.APIToken)
		if err != nil {
			logg.Error(context.Background(), "failed to create automation runner", err)
			os.Exit(1)
		}
		runner = httpRunner
	}

	tiers, err := placement.NewTierConfig(cfg.Placement)
	if err != nil {
		logg.Error(context.Background(), "failed to load placement tiers", err)
		os.Exit(1)
	}
	router, err := placement.NewRouter(registry, tokens, runner, checkoutMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create placement router", err)
		os.Exit(1)
	}

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	ordersRepo := orders.NewRepository(dbClient.DB())
	dispatcher, err := orders.NewDispatcher(dbClient, ordersRepo, router, outboxService, checkoutMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create order dispatcher", err)
		os.Exit(1)
	}

	checkoutService, err := checkout.NewService(
		dbClient,
		checkout.NewRepository(dbClient.DB()),
		cart.NewRepository(dbClient.DB()),
		ordersRepo,
		coordinator,
		dispatcher,
		tiers,
		outboxService,
		checkoutMetrics,
		logg,
		cfg.Checkout,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	remediationService, err := remediation.NewService(dbClient, ordersRepo, registry, outboxService, checkoutMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create remediation service", err)
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

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx := logg.WithFields(runCtx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			redisClient,
			promRegistry,
			checkoutService,
			remediationService,
			controllers.HealthDependency{Name: "postgres", Pinger: dbClient},
			controllers.HealthDependency{Name: "redis", Pinger: redisClient},
		),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "api server shut down gracefully")
}
