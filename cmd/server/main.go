// Package main is the entry point for the ledger service.
// It initializes all dependencies, sets up the HTTP server,
// and starts the application.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tourneypay/internal/config"
	"tourneypay/internal/handlers"
	"tourneypay/internal/logger"
	"tourneypay/internal/middleware"
	"tourneypay/internal/repositories"
	"tourneypay/internal/repositories/cache"
	"tourneypay/internal/routes"
	"tourneypay/internal/services/history"
	"tourneypay/internal/services/notification"
	"tourneypay/internal/services/reconcile"
	"tourneypay/internal/services/wallet"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

func main() {
	config.LoadEnv()

	log, err := logger.New()
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	if err := run(log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	limits, err := config.LoadLedgerLimits()
	if err != nil {
		return err
	}
	secret := config.GetEnv("JWT_SECRET", "")
	if secret == "" {
		return errors.New("JWT_SECRET must be set")
	}

	db, err := repositories.InitDB(log)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer func() {
		if err := sqlDB.Close(); err != nil {
			log.Warn("failed to close database", zap.Error(err))
		}
	}()

	// Redis backs the wallet cache and the event stream; the ledger runs
	// without it.
	var (
		cacheService *cache.CacheService
		events       *notification.Service
	)
	rdb := cache.NewRedisClient(cache.LoadRedisConfig())
	cacheService = cache.NewCacheService(rdb, config.GetDurationEnv("CACHE_TTL", 5*time.Minute))
	if err := cacheService.HealthCheck(ctx); err != nil {
		log.Warn("redis unavailable, running without cache and events", zap.Error(err))
		_ = rdb.Close()
		cacheService = nil
		events = notification.NewService(nil, log)
	} else {
		events = notification.NewService(rdb, log)
		defer func() { _ = cacheService.Close() }()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	walletRepo := repositories.NewWalletRepository(db)
	txRepo := repositories.NewTransactionRepository(db)
	users := repositories.NewUserRepository(db, cacheService, log)

	deps := wallet.Dependencies{
		Repo:          walletRepo,
		Directory:     users,
		Beneficiaries: repositories.NewBeneficiaryRepository(db),
		Events:        events,
		Metrics:       wallet.NewPrometheusMetrics(reg),
		Logger:        log,
	}
	if cacheService != nil {
		deps.Cache = cacheService
	}
	wallets := wallet.NewService(deps, wallet.WalletConfig{
		Limits:            limits,
		MaxRetries:        config.GetIntEnv("LEDGER_MAX_RETRIES", wallet.DefaultMaxRetries),
		ProcessingTimeout: config.GetDurationEnv("LEDGER_TIMEOUT", wallet.DefaultTimeout),
	})
	reader := history.NewReader(txRepo, walletRepo, log)

	rcfg := reconcile.LoadConfig()
	reconciler := reconcile.NewReconciler(walletRepo, txRepo, rcfg, log)
	worker := reconcile.NewWorker(reconciler, rcfg.Interval, log)
	go worker.Start(ctx)
	defer worker.Stop()

	app := fiber.New(fiber.Config{AppName: "tourneypay"})
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use("/api/wallet", limiter.New(limiter.Config{
		Max:        config.GetIntEnv("RATE_LIMIT_PER_MINUTE", 60),
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests. Please try again later.",
			})
		},
	}))

	routes.SetupRoutes(app, routes.Handlers{
		Auth:    middleware.NewAuthMiddleware(secret, users, log),
		Wallet:  handlers.NewWalletHandler(wallets, users, limits.CurrencyDecimals, log),
		History: handlers.NewHistoryHandler(reader, limits.CurrencyDecimals),
		Admin:   handlers.NewAdminHandler(reader, wallets, reconciler, limits.CurrencyDecimals, log),
		Health:  handlers.NewHealthHandler(db, cacheService),
		Metrics: reg,
	})

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			log.Error("shutdown failed", zap.Error(err))
		}
	}()

	addr := ":" + config.GetEnv("PORT", "3000")
	log.Info("listening", zap.String("addr", addr))
	return app.Listen(addr)
}
