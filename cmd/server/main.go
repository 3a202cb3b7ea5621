package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"flashsale/internal/config"
	httphandler "flashsale/internal/handler/http"
	"flashsale/internal/platform/logger"
	"flashsale/internal/queue"
	"flashsale/internal/queue/queuefactory"
	"flashsale/internal/repository/postgres"
	redisrepo "flashsale/internal/repository/redis"
	"flashsale/internal/service/admission"
	"flashsale/internal/service/auth"
	"flashsale/internal/service/saleadmin"
	"flashsale/internal/service/saleprojection"
	"flashsale/internal/service/stats"
	"flashsale/internal/service/worker"
	"flashsale/pkg/database"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log := logger.New(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
	ctx = logger.WithContext(ctx, log)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		log.Info().Msg("received shutdown signal")
		cancel()
	}()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	dbPool, err := database.NewPostgresPool(ctx, cfg.DatabaseURL, database.PoolOptions{
		MaxConns:        cfg.Tunables.PgMaxConns,
		MinConns:        cfg.Tunables.PgMinConns,
		MaxConnLifetime: cfg.Tunables.PgConnMaxLifetime,
		MaxConnIdleTime: cfg.Tunables.PgConnMaxIdleTime,
		PingTimeout:     cfg.Tunables.DBPingTimeout,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("database connection error")
	}
	defer dbPool.Close()

	redisClient, err := database.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Tunables.DBPingTimeout)
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection error")
	}

	if err := postgres.InitSchema(ctx, dbPool); err != nil {
		log.Fatal().Err(err).Msg("schema init error")
	}

	// Repositories
	users := postgres.NewUserRepository(dbPool)
	products := postgres.NewProductRepository(dbPool)
	stockRepo := postgres.NewStockRepository(dbPool)
	orders := postgres.NewOrderRepository(dbPool)
	sales := postgres.NewFlashSaleRepository(dbPool)

	statusCache := redisrepo.NewStatusCache(redisClient, cfg.Tunables.StatusCacheTTL)
	saleCache := redisrepo.NewSaleCache(redisClient, cfg.Tunables.SaleCacheTTL)
	rateLimiter := redisrepo.NewRateLimiter(redisClient, cfg.Tunables.PurchaseRateLimit, cfg.Tunables.PurchaseRateWindow)

	// Queue
	retryPolicy := queue.RetryPolicy{
		MaxRetries: cfg.Tunables.JobMaxRetries,
		BaseDelay:  cfg.Tunables.JobRetryBaseDelay,
		MaxDelay:   30 * cfg.Tunables.JobRetryBaseDelay,
	}
	q, err := queuefactory.New(cfg.Tunables.QueueBackend, redisClient, cfg.Tunables.WorkerConcurrency, retryPolicy)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build purchase queue")
	}
	defer q.Close()

	// Services
	projection := saleprojection.New(saleCache, sales, products, stockRepo)
	admissionSvc := admission.New(q, statusCache, rateLimiter, projection, orders)
	authSvc := auth.New(users, cfg.JWTKey, cfg.Tunables.JWTTTL)
	statsSvc := stats.New(orders)
	saleAdminSvc := saleadmin.New(sales, stockRepo, saleCache)
	w := worker.New(dbPool, sales, stockRepo, orders, statusCache, saleCache, cfg.Tunables.JobTimeout)

	// Start the worker pool consuming from the queue.
	go func() {
		if err := q.Process(ctx, w.Handle); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("queue processing stopped unexpectedly")
		}
	}()

	addr := fmt.Sprintf(":%s", cfg.Port)
	server := httphandler.NewServer(addr, authSvc, admissionSvc, projection, statsSvc, saleAdminSvc, orders)

	log.Info().Str("addr", addr).Msg("starting http server")
	if err := server.Start(ctx); err != nil {
		log.Error().Err(err).Msg("server error")
	}

	log.Info().Msg("server stopped gracefully")
}
