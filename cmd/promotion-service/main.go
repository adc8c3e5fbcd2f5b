package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Cheertaboi/food-promotion-service/internal/api"
	"github.com/Cheertaboi/food-promotion-service/internal/cache"
	"github.com/Cheertaboi/food-promotion-service/internal/config"
	"github.com/Cheertaboi/food-promotion-service/internal/payment"
	"github.com/Cheertaboi/food-promotion-service/internal/pricing"
	"github.com/Cheertaboi/food-promotion-service/internal/repository"
	"github.com/Cheertaboi/food-promotion-service/internal/service"
	"github.com/Cheertaboi/food-promotion-service/pkg/db"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("load config", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := db.NewPostgresConnection(ctx, cfg.DB)
	if err != nil {
		logger.Error("db connect", "err", err)
		os.Exit(1)
	}
	defer conn.Close()

	// Redis is optional; without it the catalog is cached per process.
	var catalogCache cache.CatalogCache = cache.NewMemoryCatalogCache(cfg.CatalogTTL)
	if cfg.RedisAddr != "" {
		rdb, err := cache.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			logger.Error("redis connect", "err", err)
			os.Exit(1)
		}
		defer rdb.Close()
		catalogCache = cache.NewRedisCatalogCache(rdb, cfg.CatalogTTL)
	}

	gateway, err := payment.NewStripeGateway(cfg.StripeSecretKey)
	if err != nil {
		logger.Error("stripe init", "err", err)
		os.Exit(1)
	}

	promotions := service.NewPromotionService(repository.NewPromotionRepo(conn), catalogCache, cfg.Channel, logger)
	evaluator := pricing.NewEvaluator(cfg.Channel)
	checkout := service.NewCheckoutService(
		conn,
		promotions,
		evaluator,
		repository.NewUsageRepo(conn),
		repository.NewPaymentRepo(conn),
		gateway,
		service.CheckoutConfig{TaxRate: cfg.TaxRate, Currency: cfg.Currency, MinChargeMinor: cfg.MinChargeMinor},
		logger,
	)

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: api.NewRouter(api.Deps{
			Promotions: promotions,
			Checkout:   checkout,
			Evaluator:  evaluator,
			TaxRate:    cfg.TaxRate,
			Logger:     logger,
		}),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// graceful shutdown
	idleConnsClosed := make(chan struct{})
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown", "err", err)
		}
		close(idleConnsClosed)
	}()

	logger.Info("starting promotion-service", "addr", srv.Addr, "channel", int(cfg.Channel), "tax_rate", cfg.TaxRate)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("listen", "err", err)
		os.Exit(1)
	}

	<-idleConnsClosed
	logger.Info("server stopped")
}
