package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/prepline/prepline-backend/internal/stock/cache"
	"github.com/prepline/prepline-backend/internal/stock/events"
	"github.com/prepline/prepline-backend/internal/stock/handler"
	"github.com/prepline/prepline-backend/internal/stock/repository"
	"github.com/prepline/prepline-backend/internal/stock/service"
	"github.com/prepline/prepline-backend/pkg/config"
	"github.com/prepline/prepline-backend/pkg/database"
	"github.com/prepline/prepline-backend/pkg/httputil"
	"github.com/prepline/prepline-backend/pkg/logger"
	"github.com/prepline/prepline-backend/pkg/messaging"
)

const serviceName = "stock-service"

func main() {
	// Load configuration with validation (fails fast in production if required config is missing)
	cfg, err := config.LoadWithValidation(serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(serviceName, cfg.Server.Environment)
	log.Info().Msg("starting Stock Service")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to database
	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ledgerRepo := repository.NewLedgerRepository(db)
	if cfg.Database.AutoMigrate {
		if err := ledgerRepo.Migrate(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to migrate stock schema")
		}
	}

	// Events are best effort in development: without a broker the ledger
	// still works. Staging and production require one.
	var publisher *events.StockEventPublisher
	rmq, err := messaging.New(&cfg.RabbitMQ, log)
	if err != nil {
		if cfg.Server.IsProductionLike() {
			log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
		}
		log.Warn().Err(err).Msg("RabbitMQ unavailable, stock events disabled")
	} else {
		defer rmq.Close()
		publisher, err = events.NewStockEventPublisher(rmq, cfg.RabbitMQ.Exchange, log)
		if err != nil {
			log.Warn().Err(err).Msg("failed to create event publisher, stock events disabled")
		}
	}

	// Reconstruction memo: Redis when configured, otherwise in-process.
	var memo cache.Memo = cache.NewLocalMemo(cache.DefaultLocalEntries)
	var redisMemo *cache.RedisMemo
	if cfg.Redis.Addr != "" {
		client, err := cache.NewRedisClient(ctx, &cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("Redis unavailable, using in-process memo")
		} else {
			defer client.Close()
			redisMemo = cache.NewRedisMemo(client, cfg.Redis.TTL)
			memo = redisMemo
		}
	}

	opts, err := service.OptionsFromConfig(&cfg.Stock)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid stock configuration")
	}
	stockService := service.NewStockService(ledgerRepo, memo, publisher, opts, log)
	if err := stockService.Refresh(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to load stock ledger")
	}

	scheduler := service.NewAlertScheduler(stockService, publisher, cfg.Stock.AlertScanInterval, log)
	scheduler.Start(ctx)

	stockHandler := handler.NewStockHandler(stockService, log)

	// Create router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "If-Match", "X-Request-ID", "X-Staff-Name"},
		ExposedHeaders:   []string{"ETag", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(httputil.RequestID)
	r.Use(httputil.Staff)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		status := map[string]any{
			"status":   "healthy",
			"service":  serviceName,
			"database": db.Health(r.Context()),
		}
		if rmq != nil {
			status["rabbitmq"] = rmq.Health()
		}
		if redisMemo != nil {
			status["redis"] = redisMemo.Health(r.Context())
		}
		httputil.JSON(w, http.StatusOK, status)
	})

	// API routes
	r.Route("/api/v1/stock", stockHandler.Routes)

	// Create server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	scheduler.Stop()
	cancel()

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
