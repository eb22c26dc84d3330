package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gilby125/cs509-reservation-client/api"
	"github.com/gilby125/cs509-reservation-client/app"
	"github.com/gilby125/cs509-reservation-client/config"
	"github.com/gilby125/cs509-reservation-client/pkg/buildinfo"
	"github.com/gilby125/cs509-reservation-client/pkg/health"
	"github.com/gilby125/cs509-reservation-client/pkg/logger"
	"github.com/gilby125/cs509-reservation-client/pkg/metrics"
	"github.com/gilby125/cs509-reservation-client/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal(err, "Failed to load configuration")
	}
	logger.Init(logger.Config{Level: cfg.LoggingConfig.Level, Format: cfg.LoggingConfig.Format})
	logger.Info("Starting reservation API", "version", buildinfo.Version, "environment", cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	services, err := app.New(ctx, cfg)
	if err != nil {
		logger.Fatal(err, "Failed to initialize services")
	}
	defer services.Close()

	m := metrics.New(prometheus.DefaultRegisterer, "cs509")

	refreshOpts := []worker.RefresherOption{
		worker.WithSchedule(cfg.TimeZoneConfig.RefreshSchedule),
		worker.WithMetrics(m),
	}
	if services.Redis != nil {
		refreshOpts = append(refreshOpts, worker.WithLease(
			worker.NewLease(services.Redis, cfg.RedisConfig.Prefix+":zone_refresh", 2*time.Hour),
		))
	}
	refresher := worker.NewRefresher(services.Client, services.Resolver, refreshOpts...)
	if err := refresher.Start(); err != nil {
		logger.Fatal(err, "Failed to start zone refresher")
	}
	defer refresher.Stop()

	checker := health.NewHealthChecker(buildinfo.Info())
	checker.AddChecker(&health.ZoneCacheChecker{Zones: services.Zones, Name: "zone_cache"})
	if services.Redis != nil {
		checker.AddChecker(&health.RedisChecker{Client: services.Redis, Name: "redis"})
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	api.RegisterRoutes(router, api.Dependencies{
		Converter:      services.Converter,
		Airports:       services.Client,
		Flights:        services.Client,
		Refresher:      refresher,
		ResponseCache:  services.Listings,
		Health:         checker,
		Metrics:        m,
		MetricsHandler: promhttp.Handler(),
	}, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(err, "Server failed")
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error(err, "Server forced to shutdown")
	}
	logger.Info("Server exited")
}
