// Package app builds the services shared by the commands from configuration.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gilby125/cs509-reservation-client/config"
	"github.com/gilby125/cs509-reservation-client/pkg/cache"
	"github.com/gilby125/cs509-reservation-client/pkg/logger"
	"github.com/gilby125/cs509-reservation-client/reservation"
	"github.com/gilby125/cs509-reservation-client/timezone"
)

// App holds the wired services.
type App struct {
	Config    *config.Config
	Zones     *timezone.OffsetCache
	Converter *timezone.Converter
	Resolver  *timezone.Resolver
	Client    *reservation.Client
	Redis     *redis.Client // nil unless Redis is enabled
	Listings  cache.Cache   // nil unless Redis is enabled
}

// New opens the offset cache and builds the clients described by cfg. When
// Redis is enabled but unreachable the app runs without the listing cache.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	if cfg.ServerConfig.Team == "" {
		return nil, fmt.Errorf("RESERVATION_TEAM is required")
	}

	zones, err := timezone.OpenOffsetCache(cfg.TimeZoneConfig.CacheFile)
	if err != nil {
		return nil, err
	}

	resolverOpts := []timezone.ResolverOption{
		timezone.WithLookupURL(cfg.TimeZoneConfig.APIURL),
		timezone.WithAPIKey(cfg.TimeZoneConfig.APIKey),
		timezone.WithMinInterval(cfg.TimeZoneConfig.MinInterval),
	}
	if cfg.TimeZoneConfig.OfflineFallback {
		offline, err := timezone.NewOfflineLookup()
		if err != nil {
			logger.Warn("Offline zone fallback unavailable", "error", err)
		} else {
			resolverOpts = append(resolverOpts, timezone.WithFallback(offline))
		}
	}

	a := &App{
		Config:    cfg,
		Zones:     zones,
		Converter: timezone.NewConverter(zones),
		Resolver:  timezone.NewResolver(zones, resolverOpts...),
	}

	if cfg.RedisConfig.Enabled {
		a.connectRedis(ctx)
	}

	clientOpts := []reservation.ClientOption{
		reservation.WithHTTPClient(reservation.NewHTTPClient(cfg.ServerConfig.Timeout, cfg.ServerConfig.RetryMax)),
	}
	if a.Listings != nil {
		clientOpts = append(clientOpts, reservation.WithCache(a.Listings, cfg.RedisConfig.TTL))
	}
	a.Client = reservation.NewClient(cfg.ServerConfig.BaseURL, cfg.ServerConfig.Team, clientOpts...)

	logger.Info("Services ready",
		"team", cfg.ServerConfig.Team,
		"server", cfg.ServerConfig.BaseURL,
		"zones_cached", zones.Len(),
		"listing_cache", a.Listings != nil,
	)
	return a, nil
}

func (a *App) connectRedis(ctx context.Context) {
	rc := a.Config.RedisConfig
	client := redis.NewClient(&redis.Options{
		Addr:     rc.Addr(),
		Password: rc.Password,
		DB:       rc.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("Redis unavailable, listing cache disabled", "addr", rc.Addr(), "error", err)
		_ = client.Close()
		return
	}

	a.Redis = client
	a.Listings = cache.NewRedisCache(client, rc.Prefix)
}

// Close releases the Redis connection.
func (a *App) Close() {
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
}
