package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/pharmadesk/pharmadesk-backend/api/routes"
	authsvc "github.com/pharmadesk/pharmadesk-backend/internal/auth"
	"github.com/pharmadesk/pharmadesk-backend/internal/billing"
	customersvc "github.com/pharmadesk/pharmadesk-backend/internal/customers"
	"github.com/pharmadesk/pharmadesk-backend/internal/inventory"
	productsvc "github.com/pharmadesk/pharmadesk-backend/internal/products"
	"github.com/pharmadesk/pharmadesk-backend/internal/quota"
	reportsvc "github.com/pharmadesk/pharmadesk-backend/internal/reports"
	storesvc "github.com/pharmadesk/pharmadesk-backend/internal/stores"
	"github.com/pharmadesk/pharmadesk-backend/pkg/config"
	"github.com/pharmadesk/pharmadesk-backend/pkg/db"
	"github.com/pharmadesk/pharmadesk-backend/pkg/logger"
	"github.com/pharmadesk/pharmadesk-backend/pkg/metrics"
	"github.com/pharmadesk/pharmadesk-backend/pkg/migrate"
	"github.com/pharmadesk/pharmadesk-backend/pkg/outbox"
	"github.com/pharmadesk/pharmadesk-backend/pkg/redis"
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

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	checkoutMetrics := metrics.NewCheckoutMetrics(prometheus.DefaultRegisterer)
	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	ledger := inventory.NewLedger()

	storesRepo := storesvc.NewRepository(dbClient.DB())
	customerService := customersvc.NewService(customersvc.NewRepository(dbClient.DB()))

	engine := billing.NewEngine(
		dbClient,
		billing.NewRepository(dbClient.DB()),
		ledger,
		billing.NewSequenceGenerator(),
		customerService,
		outboxService,
		checkoutMetrics,
		logg,
	)

	gate := quota.NewGate(redisClient, storesRepo, cfg.Quota, logg)

	authService := authsvc.NewService(dbClient, authsvc.NewRepository(dbClient.DB()), cfg, logg)
	productService := productsvc.NewService(dbClient, productsvc.NewRepository(dbClient.DB()), ledger)
	storeService := storesvc.NewService(storesRepo)
	reportService := reportsvc.NewService(dbClient.DB())

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
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			authService,
			engine,
			gate,
			productService,
			customerService,
			storeService,
			reportService,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
