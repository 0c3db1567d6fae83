package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Abdallah-AbouHamdan/SHOP-4U/api/routes"
	"github.com/Abdallah-AbouHamdan/SHOP-4U/internal/cart"
	"github.com/Abdallah-AbouHamdan/SHOP-4U/internal/checkout"
	"github.com/Abdallah-AbouHamdan/SHOP-4U/internal/inventory"
	"github.com/Abdallah-AbouHamdan/SHOP-4U/internal/orders"
	products "github.com/Abdallah-AbouHamdan/SHOP-4U/internal/products"
	"github.com/Abdallah-AbouHamdan/SHOP-4U/internal/reviews"
	"github.com/Abdallah-AbouHamdan/SHOP-4U/pkg/config"
	"github.com/Abdallah-AbouHamdan/SHOP-4U/pkg/db"
	"github.com/Abdallah-AbouHamdan/SHOP-4U/pkg/logger"
	"github.com/Abdallah-AbouHamdan/SHOP-4U/pkg/metrics"
	"github.com/Abdallah-AbouHamdan/SHOP-4U/pkg/migrate"
	"github.com/Abdallah-AbouHamdan/SHOP-4U/pkg/outbox"
	"github.com/Abdallah-AbouHamdan/SHOP-4U/pkg/redis"
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

	gdb := dbClient.DB()
	registry := prometheus.NewRegistry()
	publisher := outbox.NewService(outbox.NewRepository(gdb), logg)
	tx := dbClient

	productRepo := products.NewRepository(gdb)
	productSvc, err := products.NewService(productRepo, tx)
	if err != nil {
		logg.Error(context.Background(), "failed to create product service", err)
		os.Exit(1)
	}

	cartRepo := cart.NewRepository(gdb)
	cartSvc, err := cart.NewService(cartRepo, tx, productRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	ledger := inventory.NewLedger(gdb)
	inventorySvc, err := inventory.NewService(ledger, tx, publisher)
	if err != nil {
		logg.Error(context.Background(), "failed to create inventory service", err)
		os.Exit(1)
	}

	ordersRepo := orders.NewRepository(gdb)
	ordersSvc, err := orders.NewService(ordersRepo, tx, ledger, publisher)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	checkoutSvc, err := checkout.NewService(
		cfg.Checkout,
		tx,
		cartSvc,
		checkout.NewCartConverter(cartRepo),
		ledger,
		ordersRepo,
		publisher,
		metrics.NewCheckoutMetrics(registry),
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	reviewsSvc, err := reviews.NewService(cfg.Reviews, reviews.NewRepository(gdb), tx, ordersRepo, publisher)
	if err != nil {
		logg.Error(context.Background(), "failed to create reviews service", err)
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
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, registry, routes.Services{
			Cart:      cartSvc,
			Checkout:  checkoutSvc,
			Orders:    ordersSvc,
			Products:  productSvc,
			Reviews:   reviewsSvc,
			Inventory: inventorySvc,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
