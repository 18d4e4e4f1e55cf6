package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"rentpay-gateway/config"
	"rentpay-gateway/internal/adapter/http/handler"
	"rentpay-gateway/internal/adapter/storage/postgres"
	redisstore "rentpay-gateway/internal/adapter/storage/redis"
	"rentpay-gateway/internal/core/ports"
	"rentpay-gateway/internal/service"
	"rentpay-gateway/internal/worker"
	"rentpay-gateway/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)
	log.Info().Msg("starting rentpay gateway")

	if cfg.Webhook.Secret == "" {
		log.Fatal().Msg("webhook secret is required (RPG_WEBHOOK_SECRET)")
	}
	if cfg.JWT.Secret == "" {
		log.Fatal().Msg("jwt secret is required (RPG_JWT_SECRET)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Storage
	pool, err := postgres.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("connecting to postgres")
	}
	defer pool.Close()

	redisClient, err := redisstore.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("connecting to redis")
	}
	defer redisClient.Close()

	// Repositories
	paymentRepo := postgres.NewPaymentRepo(pool)
	invoiceRepo := postgres.NewInvoiceRepo(pool)
	idempotencyRepo := postgres.NewIdempotencyRepo(pool)
	failureRepo := postgres.NewWebhookFailureRepo(pool)
	transactor := postgres.NewTransactor(pool)

	// Caches and counters
	idempotencyCache := redisstore.NewIdempotencyCache(redisClient)
	rateLimitStore := redisstore.NewRateLimitStore(redisClient)

	// Services
	signatureService := service.NewHMACSignatureService()
	webhookService := service.NewWebhookService(
		cfg.Webhook, log, signatureService,
		paymentRepo, invoiceRepo, failureRepo, transactor,
	)
	invoiceService := service.NewInvoiceService(log, invoiceRepo, paymentRepo, transactor)
	tokenService := service.NewJWTTokenService(cfg.JWT)

	// Background workers
	reconciler := worker.NewReconciler(cfg.Reconciler, log, failureRepo, webhookService)
	sweeper := worker.NewSweeper(cfg.Idempotency, log, idempotencyRepo)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		reconciler.Start(ctx)
	}()
	go func() {
		defer wg.Done()
		sweeper.Start(ctx)
	}()

	// HTTP surface
	router := handler.SetupRouter(handler.RouterDeps{
		Config:           cfg,
		Log:              log,
		Processor:        webhookService,
		Invoices:         invoiceService,
		Failures:         failureRepo,
		Tokens:           tokenService,
		IdempotencyRepo:  idempotencyRepo,
		IdempotencyCache: idempotencyCache,
		RateLimits:       rateLimitStore,
		Health: []ports.HealthChecker{
			postgres.NewHealthCheck(pool),
			redisstore.NewHealthCheck(redisClient),
		},
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http server failed")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown")
	}

	wg.Wait()
	log.Info().Msg("rentpay gateway stopped")
}
