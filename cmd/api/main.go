package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"ton-dice-backend/config"
	httpHandler "ton-dice-backend/internal/adapter/http/handler"
	pgStorage "ton-dice-backend/internal/adapter/storage/postgres"
	redisStorage "ton-dice-backend/internal/adapter/storage/redis"
	"ton-dice-backend/internal/core/ports"
	"ton-dice-backend/internal/reconciler"
	"ton-dice-backend/internal/service"
	"ton-dice-backend/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting TON Dice Backend")

	ctx := context.Background()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize repositories
	accountRepo := pgStorage.NewAccountRepo(pool)
	pendingRepo := pgStorage.NewPendingBetRepo(pool)
	betRepo := pgStorage.NewBetRepo(pool)
	ledgerRepo := pgStorage.NewLedgerRepo(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Initialize Redis stores
	depositCache := redisStorage.NewDepositCache(rdb)
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)

	// Initialize core services
	encSvc, err := service.NewAESEncryptionService(cfg.AES.Key)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize encryption service")
	}
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)
	fairness := service.NewFairnessEngine(cfg.Game.SeedSecret)
	payout := service.NewPayoutPolicy(cfg.Game.HouseEdgeBps, cfg.Game.ExtraEdgeMaxBps)

	// Initialize business services
	ledgerSvc := service.NewLedgerService(accountRepo, ledgerRepo, depositCache, transactor, log)
	gameSvc := service.NewGameService(
		accountRepo,
		pendingRepo,
		betRepo,
		ledgerSvc,
		encSvc,
		fairness,
		payout,
		transactor,
		cfg.Game,
		log,
	)

	// Initialize health checkers
	pgHealth := pgStorage.NewHealthChecker(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		GameSvc:        gameSvc,
		LedgerSvc:      ledgerSvc,
		TokenSvc:       tokenSvc,
		Fairness:       fairness,
		RateLimitStore: rateLimitStore,
		HealthCheckers: []ports.HealthChecker{pgHealth, redisHealth},
		Logger:         log,
	})

	// Deposit reconciler
	reconcilerCtx, stopReconciler := context.WithCancel(ctx)
	var wg sync.WaitGroup
	if cfg.Reconciler.Enabled {
		feed := reconciler.NewExplorerFeed(cfg.Reconciler.ExplorerBaseURL, cfg.Reconciler.ExplorerAPIKey, log)
		rec := reconciler.New(feed, gameSvc, ledgerSvc, cfg.Reconciler, log)
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec.Run(reconcilerCtx)
		}()
	} else {
		log.Warn().Msg("Deposit reconciler disabled")
	}

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	stopReconciler()
	wg.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
