package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Johnkennabii/velvena-pricing/internal/pricing/repo/postgres"
	"github.com/Johnkennabii/velvena-pricing/internal/pricing/transport"
	"github.com/Johnkennabii/velvena-pricing/internal/pricing/usecase"
	"github.com/Johnkennabii/velvena-pricing/internal/shared/cache"
	"github.com/Johnkennabii/velvena-pricing/internal/shared/config"
	"github.com/Johnkennabii/velvena-pricing/internal/shared/db"
	"github.com/Johnkennabii/velvena-pricing/internal/shared/events"
	sharedlog "github.com/Johnkennabii/velvena-pricing/internal/shared/log"
	"github.com/Johnkennabii/velvena-pricing/internal/shared/metrics"
	"github.com/Johnkennabii/velvena-pricing/internal/shared/tracing"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := sharedlog.Init(cfg.Log.Level); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	logger := sharedlog.L(context.Background())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Tracing.Enabled {
		tracingCfg := tracing.DefaultConfig()
		tracingCfg.ServiceName = cfg.AppName
		tracingCfg.JaegerEndpoint = cfg.Tracing.JaegerEndpoint
		tracingCfg.SamplingRatio = cfg.Tracing.SamplingRatio
		shutdown, err := tracing.Init(tracingCfg, logger)
		if err != nil {
			logger.Warn("Failed to initialize tracing, continuing without", zap.Error(err))
		} else {
			defer shutdown()
		}
	}

	dbConfig := db.DefaultConfig()
	dbConfig.DSN = cfg.Postgres.DSN
	if cfg.Postgres.MaxConns > 0 {
		dbConfig.MaxConns = cfg.Postgres.MaxConns
	}
	pool, err := db.NewPool(ctx, dbConfig)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	store, err := postgres.NewStoreWithPool(pool.Pool)
	if err != nil {
		logger.Fatal("Failed to create store", zap.Error(err))
	}

	var ruleCache *cache.Cache
	if cfg.Redis.Addr != "" {
		ruleCache, err = cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Warn("Failed to connect to Redis, continuing without cache", zap.Error(err))
			ruleCache = nil
		} else {
			defer ruleCache.Close()
		}
	}

	var publisher events.QuotePublisher = events.NopPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaPublisher, err := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			logger.Warn("Failed to connect to Kafka, continuing without events", zap.Error(err))
		} else {
			publisher = kafkaPublisher
			defer kafkaPublisher.Close()
		}
	}

	handler := transport.NewHandler(
		usecase.NewQuoteUseCase(store, ruleCache, publisher),
		usecase.NewRuleUseCase(store, ruleCache),
	)

	metricsServer := metrics.NewServer(cfg.Metrics.Address, logger)
	go func() {
		if err := metricsServer.Start(ctx); err != nil && err != http.ErrServerClosed {
			logger.Error("Metrics server failed", zap.Error(err))
		}
	}()

	server := &http.Server{
		Addr:              cfg.HTTP.Address,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening", zap.String("address", cfg.HTTP.Address))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", zap.Error(err))
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Metrics server shutdown failed", zap.Error(err))
	}
	logger.Info("Shutdown complete")
}
