package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/silkroute/storefront-backend/api/routes"
	"github.com/silkroute/storefront-backend/internal/catalog"
	"github.com/silkroute/storefront-backend/internal/hooks"
	"github.com/silkroute/storefront-backend/internal/inventory"
	"github.com/silkroute/storefront-backend/internal/orders"
	"github.com/silkroute/storefront-backend/internal/payments"
	"github.com/silkroute/storefront-backend/pkg/config"
	"github.com/silkroute/storefront-backend/pkg/db"
	"github.com/silkroute/storefront-backend/pkg/logger"
	"github.com/silkroute/storefront-backend/pkg/metrics"
	"github.com/silkroute/storefront-backend/pkg/migrate"
	"github.com/silkroute/storefront-backend/pkg/redis"
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

	registry := prometheus.NewRegistry()
	coreMetrics := metrics.NewCoreMetrics(registry)
	hookRegistry := hooks.NewRegistry(logg)

	catalogReader := catalog.NewReader(dbClient.DB())

	ordersService, err := orders.NewService(orders.ServiceParams{
		Repo:         orders.NewRepository(dbClient.DB()),
		Catalog:      catalogReader,
		Tx:           dbClient,
		Hooks:        hookRegistry,
		Metrics:      coreMetrics,
		Logger:       logg,
		NumberPrefix: cfg.Orders.NumberPrefix,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	paymentsService, err := payments.NewService(payments.ServiceParams{
		Repo:          payments.NewRepository(dbClient.DB()),
		Tx:            dbClient,
		KeySecret:     cfg.Razorpay.KeySecret,
		WebhookSecret: cfg.Razorpay.WebhookSecret,
		Hooks:         hookRegistry,
		Metrics:       coreMetrics,
		Logger:        logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

	webhookGuard, err := payments.NewIdempotencyGuard(redisClient, cfg.Razorpay.WebhookIdempotencyTTL, "razorpay")
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook idempotency guard", err)
		os.Exit(1)
	}

	inventoryService, err := inventory.NewService(inventory.ServiceParams{
		Repo:    inventory.NewRepository(dbClient.DB()),
		Catalog: catalogReader,
		Tx:      dbClient,
		Hooks:   hookRegistry,
		Metrics: coreMetrics,
		Logger:  logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create inventory service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:    cfg,
			Logger:    logg,
			DBPinger:  dbClient,
			Redis:     redisClient,
			Orders:    ordersService,
			Payments:  paymentsService,
			Inventory: inventoryService,
			Guard:     webhookGuard,
			Registry:  registry,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
