package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/breatheasy/aqi-service/internal/cache"
	"github.com/breatheasy/aqi-service/internal/client"
	"github.com/breatheasy/aqi-service/internal/config"
	httphandler "github.com/breatheasy/aqi-service/internal/http"
	"github.com/breatheasy/aqi-service/internal/lifecycle"
	"github.com/breatheasy/aqi-service/internal/observability"
	"github.com/breatheasy/aqi-service/internal/service"
)

func main() {
	// Optional .env for local development; real deployments set env directly.
	_ = godotenv.Load()

	logger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	aqClient, err := client.NewOpenMeteoClient(cfg.AirQualityAPIURL, cfg.UpstreamTimeout, cfg.UpstreamMinInterval)
	if err != nil {
		logger.Fatal("air quality client", zap.Error(err))
	}
	geocoder := client.NewGeocodingClient(cfg.GeocodingAPIURL, cfg.UpstreamTimeout)

	var cacheSvc cache.Cache
	var cachePing func() error
	var cacheCloser func() error
	switch cfg.CacheBackend {
	case "memcached":
		mc, err := cache.NewMemcachedCache(cfg.MemcachedAddrs, cfg.MemcachedTimeout, cfg.MemcachedMaxIdleConns)
		if err != nil {
			logger.Fatal("memcached cache", zap.Error(err))
		}
		cacheSvc = mc
		cachePing = mc.Ping
		cacheCloser = mc.Close
		logger.Info("cache backend: memcached", zap.String("addrs", cfg.MemcachedAddrs))
	case "redis":
		rc := cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		cacheSvc = rc
		cachePing = func() error {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			return rc.Ping(ctx)
		}
		cacheCloser = rc.Close
		logger.Info("cache backend: redis", zap.String("addr", cfg.RedisAddr))
	default:
		cacheSvc = cache.NewInMemoryCache()
		logger.Info("cache backend: in_memory")
	}

	aqiService := service.NewAQIService(aqClient, cacheSvc, cfg.CacheTTL, cfg.CoalesceRequests, logger)

	healthConfig := &httphandler.HealthConfig{
		StartTime: time.Now(),
		CachePing: cachePing,
	}

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	}
	handler := httphandler.NewHandler(aqiService, geocoder, healthConfig, logger,
		cfg.MaxBatchLocations, cfg.BatchWorkers)

	var warmer *cache.Warmer
	if len(cfg.WarmLocations) > 0 {
		warmer = cache.NewWarmer(aqiService, logger)
		if err := warmer.Schedule(cfg.WarmLocations, cfg.WarmInterval); err != nil {
			logger.Warn("cache warming scheduling failed", zap.Error(err))
		}
	}

	router := mux.NewRouter()
	router.Use(httphandler.CorrelationIDMiddleware(logger))
	router.Use(httphandler.MetricsMiddleware)
	router.HandleFunc("/health", handler.GetHealth).Methods("GET")
	router.Handle("/metrics", observability.MetricsHandler())
	aqiRouter := router.PathPrefix("/aqi").Subrouter()
	aqiRouter.Use(httphandler.RateLimitMiddleware(limiter))
	aqiRouter.Use(httphandler.TimeoutMiddleware(cfg.RequestTimeout))
	aqiRouter.HandleFunc("", handler.GetAQI).Methods("GET")
	aqiRouter.HandleFunc("/batch", handler.PostBatch).Methods("POST")
	aqiRouter.HandleFunc("/geocode", handler.GetGeocode).Methods("GET")

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", ":"+cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	<-ctx.Done()
	stop()

	logger.Info("graceful shutdown triggered")
	lifecycle.SetShuttingDown(true)
	if warmer != nil {
		warmer.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	inFlight := httphandler.InFlightCount()
	logger.Info("waiting for in-flight requests", zap.Int64("count", inFlight))
	waitCtx, waitCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer waitCancel()
	if err := httphandler.WaitForInFlight(waitCtx, 100*time.Millisecond); err != nil {
		logger.Warn("in-flight requests not completed", zap.Error(err),
			zap.Int64("remaining", httphandler.InFlightCount()))
	}

	if err := observability.FlushTelemetry(context.Background(), logger); err != nil {
		logger.Error("telemetry flush", zap.Error(err))
	}

	if cacheCloser != nil {
		if err := cacheCloser(); err != nil {
			logger.Error("cache close", zap.Error(err))
		}
	}
	logger.Info("shutdown complete")
}
