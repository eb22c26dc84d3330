package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Port           string
	Environment    string
	LoggingConfig  LoggingConfig
	ServerConfig   ServerConfig
	TimeZoneConfig TimeZoneConfig
	RedisConfig    RedisConfig
	AdminAuth      AdminAuthConfig
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// ServerConfig holds the reservation server connection settings
type ServerConfig struct {
	BaseURL  string
	Team     string
	Timeout  time.Duration
	RetryMax int
}

// TimeZoneConfig holds the zone lookup and offset cache settings
type TimeZoneConfig struct {
	APIURL          string
	APIKey          string `json:"-"`
	CacheFile       string
	MinInterval     time.Duration // minimum spacing between lookups
	RefreshSchedule string        // cron expression, empty disables refresh
	OfflineFallback bool          // resolve from embedded zone boundaries when lookups fail
}

// RedisConfig holds Redis connection configuration for the listing cache
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
	Prefix   string
	TTL      time.Duration
}

// AdminAuthConfig holds credentials for the admin endpoints
type AdminAuthConfig struct {
	Enabled  bool
	Username string
	Password string `json:"-"`
	Token    string `json:"-"`
}

// Addr returns the host:port address of the Redis server
func (r RedisConfig) Addr() string {
	return r.Host + ":" + r.Port
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load(".env")

	loggingConfig := LoggingConfig{
		Level:  getEnv("LOG_LEVEL", "info"),
		Format: getEnv("LOG_FORMAT", "json"),
	}

	serverTimeout := getDuration("RESERVATION_TIMEOUT", 30*time.Second)
	retryMax, err := strconv.Atoi(getEnv("RESERVATION_RETRY_MAX", "3"))
	if err != nil || retryMax < 0 {
		retryMax = 3
	}
	serverConfig := ServerConfig{
		BaseURL:  getEnv("RESERVATION_BASE_URL", "http://cs509.cs.wpi.edu:8181/CS509.server/ReservationSystem"),
		Team:     getEnv("RESERVATION_TEAM", ""),
		Timeout:  serverTimeout,
		RetryMax: retryMax,
	}

	minInterval := getDuration("TIMEZONE_MIN_INTERVAL", 2*time.Second)
	if minInterval < 2*time.Second {
		// The lookup service allows one request every two seconds.
		minInterval = 2 * time.Second
	}
	offlineFallback, err := strconv.ParseBool(getEnv("TIMEZONE_OFFLINE_FALLBACK", "true"))
	if err != nil {
		offlineFallback = true
	}
	timeZoneConfig := TimeZoneConfig{
		APIURL:          getEnv("TIMEZONE_API_URL", "http://api.timezonedb.com/v2.1/get-time-zone"),
		APIKey:          getEnv("TIMEZONE_API_KEY", ""),
		CacheFile:       getEnv("TIMEZONE_CACHE_FILE", "timezone.csv"),
		MinInterval:     minInterval,
		RefreshSchedule: getEnvAllowEmpty("TIMEZONE_REFRESH_SCHEDULE", "@weekly"),
		OfflineFallback: offlineFallback,
	}

	redisEnabled, _ := strconv.ParseBool(getEnv("REDIS_ENABLED", "false"))
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	redisConfig := RedisConfig{
		Enabled:  redisEnabled,
		Host:     getEnv("REDIS_HOST", "redis"),
		Port:     getEnv("REDIS_PORT", "6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       redisDB,
		Prefix:   getEnv("REDIS_PREFIX", "cs509"),
		TTL:      getDuration("REDIS_TTL", time.Hour),
	}

	adminAuthEnabled, _ := strconv.ParseBool(getEnv("ADMIN_AUTH_ENABLED", "false"))
	adminAuth := AdminAuthConfig{
		Enabled:  adminAuthEnabled,
		Username: getEnv("ADMIN_USERNAME", ""),
		Password: getEnv("ADMIN_PASSWORD", ""),
		Token:    getEnv("ADMIN_TOKEN", ""),
	}

	return &Config{
		Port:           getEnv("PORT", "8080"),
		Environment:    getEnv("ENVIRONMENT", "development"),
		LoggingConfig:  loggingConfig,
		ServerConfig:   serverConfig,
		TimeZoneConfig: timeZoneConfig,
		RedisConfig:    redisConfig,
		AdminAuth:      adminAuth,
	}, nil
}

// LoadTestConfig loads test configuration
func LoadTestConfig() *Config {
	return &Config{
		Port:        "0",
		Environment: "test",
		LoggingConfig: LoggingConfig{
			Level:  "debug",
			Format: "text",
		},
		ServerConfig: ServerConfig{
			BaseURL:  getEnv("RESERVATION_BASE_URL", "http://localhost:8181/CS509.server/ReservationSystem"),
			Team:     getEnv("RESERVATION_TEAM", "test-team"),
			Timeout:  5 * time.Second,
			RetryMax: 0,
		},
		TimeZoneConfig: TimeZoneConfig{
			APIURL:      getEnv("TIMEZONE_API_URL", "http://localhost:8090/v2.1/get-time-zone"),
			CacheFile:   "",
			MinInterval: 2 * time.Second,
		},
		RedisConfig: RedisConfig{
			Host:   getEnv("REDIS_HOST", "localhost"),
			Port:   getEnv("REDIS_PORT", "6379"),
			Prefix: "cs509_test",
			TTL:    time.Minute,
		},
	}
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if len(strings.TrimSpace(value)) == 0 {
		return defaultValue
	}
	return strings.TrimSpace(value)
}

// getEnvAllowEmpty is getEnv, except that a variable set to an empty string
// yields the empty string rather than the default.
func getEnvAllowEmpty(key, defaultValue string) string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return defaultValue
	}
	return strings.TrimSpace(value)
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(getEnv(key, defaultValue.String()))
	if err != nil {
		return defaultValue
	}
	return d
}
