package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"variantcart/internal/cart"
	"variantcart/internal/config"
	"variantcart/internal/db"
	"variantcart/internal/domain"
	"variantcart/internal/httpserver"
	"variantcart/internal/logging"
	"variantcart/internal/payment"
	"variantcart/internal/pricing"
	"variantcart/internal/repository/kv"
	productrepo "variantcart/internal/repository/product"
	cartsvc "variantcart/internal/service/cart"
	"variantcart/internal/service/checkout"
	"variantcart/internal/service/stocksync"
	"variantcart/internal/tracing"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		logrus.WithError(err).Fatal("config")
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	ctx := context.Background()
	shutdownTracing, err := tracing.Init(ctx, "variantcart-api", cfg.OTelEndpoint, logger)
	if err != nil {
		logger.WithError(err).Fatal("init tracing")
	}

	dbpool, err := db.Connect(ctx, cfg.DBConnString, logger)
	if err != nil {
		logger.WithError(err).Fatal("connect to db")
	}
	defer dbpool.Close()

	readyChecks := map[string]httpserver.ReadyCheck{"db": dbpool.Ping}
	cartKV, closeKV := cartBackend(cfg, dbpool, logger, readyChecks)
	defer closeKV()

	defaultCurrency, err := domain.ParseCurrency(cfg.DefaultCurrency)
	if err != nil {
		logger.WithError(err).Fatal("DEFAULT_CURRENCY")
	}

	prices := pricing.New(cfg.MWKPerGBP)
	productRepo := productrepo.NewPostgres(dbpool, logger)
	carts := cart.NewRegistry(cartKV, cfg.CartCacheSize, logger)
	cartService := cartsvc.New(carts, productRepo, prices, logger)
	syncer := stocksync.New(productRepo, prices, stocksync.Options{
		Concurrency: cfg.SyncConcurrency,
		Timeout:     cfg.SyncTimeout,
	}, logger)
	payments := payment.NewClient(cfg.PaymentURL, cfg.PaymentTimeout, logger)
	checkoutService := checkout.New(carts, syncer, payments, map[domain.Currency]checkout.Fees{
		domain.MWK: {Delivery: cfg.DeliveryFeeMWK, Subscription: cfg.SubscriptionFeeMWK},
		domain.GBP: {Delivery: cfg.DeliveryFeeGBP, Subscription: cfg.SubscriptionFeeGBP},
	}, logger)

	srv, err := httpserver.New(cfg.HTTPAddr, logger, httpserver.Deps{
		Products:        productRepo,
		Prices:          prices,
		CartSvc:         cartService,
		CheckoutSvc:     checkoutService,
		DefaultCurrency: defaultCurrency,
		CORSOrigins:     cfg.CORSOrigins,
		ReadyChecks:     readyChecks,
	})
	if err != nil {
		logger.WithError(err).Fatal("init server")
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.WithField("addr", cfg.HTTPAddr).Info("starting http server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		logger.WithField("signal", sig.String()).Info("shutting down")
	case err := <-serverErr:
		logger.WithError(err).Error("server error")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("graceful shutdown failed")
	} else {
		logger.Info("server stopped")
	}
	if err := shutdownTracing(ctx); err != nil {
		logger.WithError(err).Warn("flush traces")
	}
}

// cartBackend opens the key-value store carts persist to and registers its
// readiness check.
func cartBackend(cfg config.Config, pool *pgxpool.Pool, logger *logrus.Logger, checks map[string]httpserver.ReadyCheck) (kv.Store, func()) {
	switch cfg.CartBackend {
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
		logger.WithField("addr", cfg.RedisAddr).Info("carts persisted to redis")
		return kv.NewRedis(client, "variantcart:"), func() { _ = client.Close() }
	case "memory":
		logger.Warn("carts kept in memory; they do not survive a restart")
		return kv.NewMemory(), func() {}
	default:
		return kv.NewPostgres(pool, logger), func() {}
	}
}
