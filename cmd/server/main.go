// Package main provides the API server entry point for the portfolio tracker.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/portfolio-tracker/internal/adapter"
	"github.com/portfolio-tracker/internal/api"
	"github.com/portfolio-tracker/internal/config"
	"github.com/portfolio-tracker/internal/holdings"
	"github.com/portfolio-tracker/internal/logging"
	"github.com/portfolio-tracker/internal/service"
	"github.com/portfolio-tracker/internal/storage"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize structured logging
	logLevel := logging.ParseLogLevel(cfg.Logging.Level)
	logFormat := logging.ParseLogFormat(cfg.Logging.Format)
	logging.InitGlobalLogger(logLevel, logFormat)

	logger := logging.GetGlobalLogger()
	defer func() { _ = logger.Sync() }()
	logger.WithFields(map[string]interface{}{
		"level":  cfg.Logging.Level,
		"format": cfg.Logging.Format,
	}).Info("Structured logging initialized")

	// Fail fast on a broken holdings file instead of on the first request
	holdingsSource := holdings.NewFileSource(cfg.Data.HoldingsFile)
	initial, err := holdingsSource.Holdings(context.Background())
	if err != nil {
		logger.WithError(err).Fatal("Failed to load holdings")
	}
	logger.WithFields(map[string]interface{}{
		"file":     holdingsSource.Path(),
		"holdings": len(initial),
	}).Info("Holdings loaded")

	// Price providers
	coinGecko := adapter.NewCoinGeckoClient(cfg.Prices.CoinGeckoBaseURL, cfg.Prices.CoinGeckoAPIKey, cfg.Prices.HTTPTimeout)
	dexScreener := adapter.NewDexScreenerClient(cfg.Prices.DexScreenerBaseURL, cfg.Prices.HTTPTimeout, cfg.Prices.DexScreenerRPS)

	valuation := service.NewValuationService(coinGecko, dexScreener, cfg.Prices.FetchConcurrency)

	// Report cache
	var reportCache service.ReportCache
	switch cfg.Cache.Backend {
	case config.CacheBackendRedis:
		redis, err := storage.NewRedisCache(&cfg.Redis)
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to Redis")
		}
		defer redis.Close()
		rc := storage.NewRedisReportCache(redis, cfg.Cache.TTL)
		logger.WithFields(map[string]interface{}{
			"addr": cfg.RedisAddr(),
			"key":  rc.Key(),
		}).Info("Using Redis report cache")
		reportCache = rc
	default:
		logger.Info("Using in-memory report cache")
		reportCache = storage.NewMemoryReportCache(cfg.Cache.TTL)
	}

	portfolioService := service.NewPortfolioService(holdingsSource, valuation, reportCache)

	serverConfig := &api.ServerConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    valuationWriteTimeout(&cfg.Prices, service.Classify(initial).ContractLookups()),
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		RateLimitRPS:    cfg.RateLimit.RequestsPerSecond,
		RateLimitBurst:  cfg.RateLimit.Burst,
		CacheMaxAge:     cfg.Cache.TTL,
	}

	server := api.NewServer(serverConfig, portfolioService, logger, coinGecko, dexScreener)

	// Start server in a goroutine
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	logger.WithFields(map[string]interface{}{
		"host": cfg.Server.Host,
		"port": cfg.Server.Port,
	}).Info("Server started successfully")

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), serverConfig.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Server exited")
}

// writeTimeoutSlack covers holdings loading, aggregation and encoding
const writeTimeoutSlack = 10 * time.Second

// valuationWriteTimeout bounds a cold /api/portfolio request: one batch
// request, then the contract lookups in waves of FetchConcurrency, each
// wave allowed a full HTTP timeout, plus the DexScreener pacing delay.
// It is sized from the holdings loaded at startup; a later edit that adds
// contract holdings needs a restart to widen it.
func valuationWriteTimeout(prices *config.PricesConfig, lookups int) time.Duration {
	concurrency := prices.FetchConcurrency
	if concurrency < 1 {
		concurrency = 1
	}
	waves := (lookups + concurrency - 1) / concurrency

	timeout := time.Duration(1+waves)*prices.HTTPTimeout + writeTimeoutSlack
	if prices.DexScreenerRPS > 0 && lookups > 0 {
		timeout += time.Duration(float64(lookups) / prices.DexScreenerRPS * float64(time.Second))
	}
	return timeout
}
