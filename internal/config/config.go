package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/roadwatch/backend/internal/domain"
)

type Config struct {
	// HTTP
	Port string
	Env  string

	// Hazard data sources, first configured wins: file, database, HTTP API, built-in demo data
	HazardAPIURL           string
	HazardFile             string
	DatabaseURL            string
	ProviderTimeout        time.Duration
	CatalogRefreshInterval time.Duration

	// Routing
	OSRMURL        string
	RoutingTimeout time.Duration

	// Alert fan-out
	RedisURL        string
	KafkaBrokers    []string
	KafkaAlertTopic string

	// Engine tuning
	DefaultPosition      domain.Coordinate
	AlertRadiusMeters    float64
	AlertCooldown        time.Duration
	RouteRefreshInterval time.Duration
	RouteMoveEpsilon     float64
	ReplayStepInterval   time.Duration
	EventBufferSize      int

	LogLevel string
}

func Load() *Config {
	return &Config{
		Port:                   getEnv("PORT", "8080"),
		Env:                    getEnv("GO_ENV", "development"),
		HazardAPIURL:           getEnv("HAZARD_API_URL", ""),
		HazardFile:             getEnv("HAZARD_FILE", ""),
		DatabaseURL:            getEnv("DATABASE_URL", ""),
		ProviderTimeout:        getEnvDuration("PROVIDER_TIMEOUT", 10*time.Second),
		CatalogRefreshInterval: getEnvDuration("CATALOG_REFRESH_INTERVAL", 0),
		OSRMURL:                getEnv("OSRM_URL", "https://router.project-osrm.org"),
		RoutingTimeout:         getEnvDuration("ROUTING_TIMEOUT", 10*time.Second),
		RedisURL:               getEnv("REDIS_URL", ""),
		KafkaBrokers:           getEnvList("KAFKA_BROKERS"),
		KafkaAlertTopic:        getEnv("KAFKA_ALERT_TOPIC", "hazard_alerts"),
		DefaultPosition: domain.Coordinate{
			Lat: getEnvFloat("DEFAULT_LAT", domain.DefaultLat),
			Lng: getEnvFloat("DEFAULT_LNG", domain.DefaultLng),
		},
		AlertRadiusMeters:    getEnvFloat("ALERT_RADIUS_M", 1000),
		AlertCooldown:        getEnvDuration("ALERT_COOLDOWN", 30*time.Second),
		RouteRefreshInterval: getEnvDuration("ROUTE_REFRESH_INTERVAL", 2*time.Second),
		RouteMoveEpsilon:     getEnvFloat("ROUTE_MOVE_EPSILON_M", 10),
		ReplayStepInterval:   getEnvDuration("REPLAY_STEP_INTERVAL", time.Second),
		EventBufferSize:      getEnvInt("EVENT_BUFFER_SIZE", 64),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
	}
}

// IsProduction reports whether GO_ENV is "production".
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

// getEnvDuration accepts Go durations ("2s", "500ms") or a bare number of seconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	return fallback
}

func getEnvList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
