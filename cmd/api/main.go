package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/aaronbui99/storefront-backend/api/routes"
	"github.com/aaronbui99/storefront-backend/internal/cart"
	"github.com/aaronbui99/storefront-backend/internal/catalog"
	"github.com/aaronbui99/storefront-backend/internal/checkout"
	"github.com/aaronbui99/storefront-backend/internal/orders"
	"github.com/aaronbui99/storefront-backend/internal/paymentmethods"
	"github.com/aaronbui99/storefront-backend/internal/payments"
	stripewebhook "github.com/aaronbui99/storefront-backend/internal/webhooks/stripe"
	"github.com/aaronbui99/storefront-backend/pkg/config"
	"github.com/aaronbui99/storefront-backend/pkg/db"
	"github.com/aaronbui99/storefront-backend/pkg/logger"
	"github.com/aaronbui99/storefront-backend/pkg/metrics"
	"github.com/aaronbui99/storefront-backend/pkg/migrate"
	"github.com/aaronbui99/storefront-backend/pkg/redis"
	"github.com/aaronbui99/storefront-backend/pkg/stripe"
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

	stripeClient, err := stripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap stripe", err)
		os.Exit(1)
	}

	gormDB := dbClient.DB()
	catalogRepo := catalog.NewRepository(gormDB)
	cartRepo := cart.NewRepository(gormDB)
	checkoutRepo := checkout.NewRepository(gormDB)
	ordersRepo := orders.NewRepository(gormDB)
	paymentsRepo := payments.NewRepository(gormDB)
	paymentMethodsRepo := paymentmethods.NewRepository(gormDB)
	webhookRepo := stripewebhook.NewRepository(gormDB)

	catalogSvc, err := catalog.NewService(catalogRepo)
	requireService(logg, "catalog", err)

	cartSvc, err := cart.NewService(cartRepo, catalogRepo)
	requireService(logg, "cart", err)

	checkoutSvc, err := checkout.NewService(checkoutRepo, cartRepo, ordersRepo, dbClient, cfg.Checkout)
	requireService(logg, "checkout", err)

	ordersSvc, err := orders.NewService(ordersRepo, dbClient)
	requireService(logg, "orders", err)

	paymentsSvc, err := payments.NewService(
		paymentsRepo,
		ordersRepo,
		ordersSvc,
		payments.NewStripeClient(stripeClient),
		dbClient,
	)
	requireService(logg, "payments", err)

	paymentMethodsSvc, err := paymentmethods.NewService(
		paymentMethodsRepo,
		paymentmethods.NewStripeClient(stripeClient),
	)
	requireService(logg, "payment methods", err)

	webhookSvc, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		Repo:     webhookRepo,
		Payments: paymentsSvc,
	})
	requireService(logg, "stripe webhook", err)

	webhookGuard, err := stripewebhook.NewEventGuard(redisClient, cfg.Checkout.WebhookDedupeTTL, "stripe-webhook")
	requireService(logg, "webhook guard", err)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	httpMetrics := metrics.NewHTTPMetrics(registry)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":        cfg.App.Env,
		"addr":       addr,
		"stripe_env": stripeClient.Environment(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:         cfg,
			Logger:         logg,
			DB:             dbClient,
			Redis:          redisClient,
			Catalog:        catalogSvc,
			Cart:           cartSvc,
			Checkout:       checkoutSvc,
			Orders:         ordersSvc,
			Payments:       paymentsSvc,
			PaymentMethods: paymentMethodsSvc,
			StripeClient:   stripeClient,
			StripeWebhook:  webhookSvc,
			WebhookGuard:   webhookGuard,
			HTTPMetrics:    httpMetrics,
			Registry:       registry,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func requireService(logg *logger.Logger, name string, err error) {
	if err == nil {
		return
	}
	logg.Error(context.Background(), "failed to create "+name+" service", err)
	os.Exit(1)
}
