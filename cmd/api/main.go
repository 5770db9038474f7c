package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"storefront/internal/audit"
	"storefront/internal/cache"
	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/handler"
	"storefront/internal/metrics"
	"storefront/internal/middleware"
	"storefront/internal/repository"
	"storefront/internal/router"
	"storefront/internal/service"
	"storefront/internal/session"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() (err error) {
	envFileErr := godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Logger, "api")
	if envFileErr != nil {
		logger.Debug().Msg(".env file not found, relying on environment")
	}
	logger.Info().Str("env", cfg.Env).Msg("starting storefront API server")

	// Create context for application lifecycle
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool
	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, pool, logger); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	// Rate limiting is optional. An unreachable Redis at startup disables it
	// rather than blocking checkout.
	var limiter middleware.Limiter
	if cfg.Redis.Enabled() {
		redisClient, redisErr := cache.New(ctx, cfg.Redis, logger)
		if redisErr != nil {
			logger.Warn().Err(redisErr).Msg("redis unavailable, rate limiting disabled")
		} else {
			limiter = redisClient
			defer func() {
				err = multierr.Append(err, redisClient.Close())
			}()
		}
	} else {
		logger.Info().Msg("redis not configured, rate limiting disabled")
	}

	tokens, err := session.NewManager(cfg.Auth)
	if err != nil {
		return fmt.Errorf("failed to initialize session manager: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	checkoutMetrics := metrics.NewCheckoutMetrics(registry)

	// Initialize repositories
	catalogRepo := repository.NewCatalogRepository(pool, logger)
	productRepo := repository.NewProductRepository(pool, logger)
	promotionRepo := repository.NewPromotionRepository(pool, logger)
	orderRepo := repository.NewOrderRepository(pool, logger)
	auditLogger := audit.NewPostgresLogger(pool, logger)

	// Initialize services
	checkoutService, err := service.NewCheckoutService(service.CheckoutDeps{
		Catalog:    catalogRepo,
		Promotions: promotionRepo,
		Orders:     orderRepo,
		Audit:      auditLogger,
		Metrics:    checkoutMetrics,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize checkout service: %w", err)
	}
	productService := service.NewProductService(productRepo, logger)
	orderService := service.NewOrderService(orderRepo, catalogRepo, promotionRepo, auditLogger, logger)
	promotionService := service.NewPromotionService(catalogRepo, promotionRepo, logger)

	// Initialize HTTP handlers and router
	exposeInternal := cfg.IsDevelopment()
	mux := router.New(router.Deps{
		Products:   handler.NewProductHandler(productService, exposeInternal, logger),
		Checkout:   handler.NewCheckoutHandler(checkoutService, exposeInternal, logger),
		Orders:     handler.NewOrderHandler(orderService, exposeInternal, logger),
		Promotions: handler.NewPromotionHandler(promotionService, exposeInternal, logger),
		DB:         pool,
		Verifier:   tokens,
		Limiter:    limiter,
		Gatherer:   registry,
		RateLimit:  cfg.RateLimit,
		Logger:     logger,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Channel to listen for errors from the server
	serverErrors := make(chan error, 1)

	// Start HTTP server in a goroutine
	go func() {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Msg("HTTP server started")
		serverErrors <- server.ListenAndServe()
	}()

	// Channel to listen for interrupt signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a signal or an error
	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info().
			Str("signal", sig.String()).
			Msg("shutdown signal received, starting graceful shutdown")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server gracefully")
			return multierr.Combine(
				fmt.Errorf("server shutdown failed: %w", err),
				server.Close(),
			)
		}

		logger.Info().Msg("server shutdown completed")
	}

	return nil
}
