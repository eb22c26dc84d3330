package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gilby125/cs509-reservation-client/config"
	"github.com/gilby125/cs509-reservation-client/pkg/cache"
	"github.com/gilby125/cs509-reservation-client/pkg/health"
	"github.com/gilby125/cs509-reservation-client/pkg/metrics"
	"github.com/gilby125/cs509-reservation-client/pkg/middleware"
	"github.com/gilby125/cs509-reservation-client/reservation"
	"github.com/gilby125/cs509-reservation-client/timezone"
)

// Dependencies are the services the routes are served from. ResponseCache,
// Health and the metrics fields may be nil.
type Dependencies struct {
	Converter      *timezone.Converter
	Airports       AirportLister
	Flights        reservation.FlightLister
	Refresher      Refresher
	ResponseCache  cache.Cache
	Health         *health.HealthChecker
	Metrics        *metrics.Metrics
	MetricsHandler http.Handler
}

// RegisterRoutes registers all API routes
func RegisterRoutes(router *gin.Engine, deps Dependencies, cfg *config.Config) {
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.Recovery())
	router.Use(middleware.Metrics(deps.Metrics))

	if deps.MetricsHandler != nil {
		router.GET("/metrics", gin.WrapH(deps.MetricsHandler))
	}

	router.GET("/health", func(c *gin.Context) {
		if deps.Health == nil {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
			return
		}
		report := deps.Health.CheckHealth(c.Request.Context())
		status := http.StatusOK
		if report.Status == health.StatusDown {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, report)
	})

	// Airport responses embed cached zones, so the zone cache revision is part of the key.
	cached := middleware.ResponseCache(deps.ResponseCache, cfg.RedisConfig.TTL, deps.Converter.Cache().Revision)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/convert/local", convertToLocal(deps.Converter))
		v1.GET("/convert/gmt", convertToGMT(deps.Converter))
		v1.GET("/window", dayWindow(deps.Converter))
		v1.GET("/zones/:code", getZone(deps.Converter))
		v1.GET("/airports", cached, listAirports(deps.Airports, deps.Converter))
		v1.GET("/flights", listFlights(deps.Flights, deps.Converter))

		admin := v1.Group("/admin", middleware.AdminAuth(cfg.AdminAuth))
		{
			admin.GET("/zones", listZones(deps.Converter))
			admin.GET("/refresh", refreshStatus(deps.Refresher))
			admin.POST("/refresh", triggerRefresh(deps.Refresher))
		}
	}
}
