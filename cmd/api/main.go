package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/lumapay/lumapay/internal/archive"
	"github.com/lumapay/lumapay/internal/config"
	"github.com/lumapay/lumapay/internal/events"
	"github.com/lumapay/lumapay/internal/events/kafka"
	"github.com/lumapay/lumapay/internal/infra"
	"github.com/lumapay/lumapay/internal/ledger"
	"github.com/lumapay/lumapay/internal/logging"
	"github.com/lumapay/lumapay/internal/metrics"
	"github.com/lumapay/lumapay/internal/server"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel)

	ctx := context.Background()

	pool, err := connectPostgres(ctx, cfg)
	if err != nil {
		logger.Error("connect postgres", "error", err)
		os.Exit(1)
	}
	if pool != nil {
		defer pool.Close()
	}

	cache, err := connectRedis(ctx, cfg)
	if err != nil {
		logger.Error("connect redis", "error", err)
		os.Exit(1)
	}
	if cache != nil {
		defer func() {
			if err := cache.Close(); err != nil {
				logger.Warn("close redis", "error", err)
			}
		}()
	}

	var publisher events.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher := kafka.NewPublisher(cfg.KafkaBrokers)
		defer func() {
			if err := kafkaPublisher.Close(); err != nil {
				logger.Warn("close kafka writer", "error", err)
			}
		}()
		publisher = kafkaPublisher
	} else {
		publisher = events.NewLogPublisher(logger)
	}

	var recorder archive.Recorder
	if pool != nil {
		recorder = archive.NewPostgresRecorder(pool)
	} else {
		recorder = archive.NewMemoryRecorder()
	}

	collector := metrics.NewCollector()
	metricsSrv := &http.Server{Addr: cfg.MetricsAddress(), Handler: collector.Handler()}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server error", "error", err)
		}
	}()

	gateway := events.NewGateway(ledger.NewProjection(), publisher, recorder, collector)

	srv, err := server.New(cfg, gateway, pool, cache, logger)
	if err != nil {
		logger.Error("build server", "error", err)
		os.Exit(1)
	}

	srvErrCh := make(chan error, 1)
	go func() {
		srvErrCh <- srv.Listen()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-srvErrCh:
		if err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownPeriod)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("metrics shutdown error", "error", err)
	}

	logger.Info("server exited cleanly")
}

// connectPostgres opens the pool when DATABASE_URL is configured; in dev the
// application runs without durable movement archiving.
func connectPostgres(ctx context.Context, cfg config.Config) (*pgxpool.Pool, error) {
	if cfg.DatabaseURL == "" {
		return nil, nil
	}
	return infra.NewPostgresPool(ctx, cfg.DatabaseURL)
}

// connectRedis opens the client when REDIS_URL is configured; without it the
// idempotency middleware is not installed.
func connectRedis(ctx context.Context, cfg config.Config) (*redis.Client, error) {
	if cfg.RedisURL == "" {
		return nil, nil
	}
	return infra.NewRedisClient(ctx, cfg.RedisURL)
}
