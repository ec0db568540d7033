package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/stitchfield/stitchfield-backend/api/routes"
	"github.com/stitchfield/stitchfield-backend/internal/coupons"
	"github.com/stitchfield/stitchfield-backend/internal/inventory"
	"github.com/stitchfield/stitchfield-backend/internal/loyalty"
	"github.com/stitchfield/stitchfield-backend/internal/orders"
	"github.com/stitchfield/stitchfield-backend/internal/refunds"
	"github.com/stitchfield/stitchfield-backend/internal/returns"
	paymentwebhook "github.com/stitchfield/stitchfield-backend/internal/webhooks/payments"
	"github.com/stitchfield/stitchfield-backend/pkg/config"
	"github.com/stitchfield/stitchfield-backend/pkg/db"
	"github.com/stitchfield/stitchfield-backend/pkg/logger"
	"github.com/stitchfield/stitchfield-backend/pkg/metrics"
	"github.com/stitchfield/stitchfield-backend/pkg/migrate"
	"github.com/stitchfield/stitchfield-backend/pkg/redis"
	"github.com/stitchfield/stitchfield-backend/pkg/square"
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

	squareClient, err := square.NewClient(context.Background(), cfg.Square, logg)
	exitOn(logg, "square client", err)

	registry := prometheus.NewRegistry()
	webhookMetrics := metrics.NewWebhookMetrics(registry)

	gormDB := dbClient.DB()

	stockLedger, err := inventory.NewLedger(gormDB, logg)
	exitOn(logg, "inventory ledger", err)

	spendAccumulator, err := loyalty.NewAccumulator(gormDB)
	exitOn(logg, "loyalty accumulator", err)

	couponCounter, err := coupons.NewCounter(gormDB)
	exitOn(logg, "coupon counter", err)

	ordersRepo := orders.NewRepository(gormDB)
	ordersService, err := orders.NewService(dbClient, ordersRepo, stockLedger, spendAccumulator, couponCounter, logg)
	exitOn(logg, "orders service", err)

	returnsRepo := returns.NewRepository(gormDB)

	refundOrchestrator, err := refunds.NewOrchestrator(
		dbClient, returnsRepo, ordersRepo, stockLedger, spendAccumulator, squareClient, logg)
	exitOn(logg, "refund orchestrator", err)

	returnsService, err := returns.NewService(
		dbClient, returnsRepo, ordersRepo, refundOrchestrator, cfg.Returns.Window(), logg)
	exitOn(logg, "returns service", err)

	webhookService, err := paymentwebhook.NewService(paymentwebhook.ServiceParams{
		TransactionRunner: dbClient,
		EventRepo:         paymentwebhook.NewProcessedEventRepository(gormDB),
		Orders:            ordersService,
		OrdersRepo:        ordersRepo,
		Metrics:           webhookMetrics,
		Logger:            logg,
	})
	exitOn(logg, "payment webhook service", err)

	webhookGuard, err := paymentwebhook.NewIdempotencyGuard(redisClient, cfg.Webhooks.ReplayGuardTTL, "payments")
	exitOn(logg, "webhook idempotency guard", err)

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
			cfg, logg, dbClient, redisClient, squareClient,
			webhookService, webhookGuard, ordersService, returnsService, registry),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func exitOn(logg *logger.Logger, what string, err error) {
	if err == nil {
		return
	}
	logg.Error(context.Background(), "failed to create "+what, err)
	os.Exit(1)
}
