package ratelimit

import (
	"os"
	"strconv"
	"time"
)

// EndpointConfig represents rate limiting configuration for a specific route.
type EndpointConfig struct {
	Path   string        // Path pattern; a trailing "/" matches any path below it
	Method string        // HTTP method (GET, POST, etc.)
	Limit  int           // Maximum requests per window; zero means unlimited
	Window time.Duration // Time window
	Burst  int           // Burst capacity (defaults to Limit if 0)
}

// Config holds rate limiting configuration.
type Config struct {
	Enabled         bool
	DefaultLimit    int
	DefaultWindow   time.Duration
	CleanupInterval time.Duration
	EndpointConfigs []EndpointConfig
}

// LoadConfig loads rate limiting configuration from RESUME_BUILDER_RATE_LIMIT_*
// environment variables.
func LoadConfig() *Config {
	enabled := getEnvBool("RESUME_BUILDER_RATE_LIMIT_ENABLED", true)
	if !enabled {
		return &Config{Enabled: false}
	}

	return &Config{
		Enabled:         true,
		DefaultLimit:    getEnvInt("RESUME_BUILDER_RATE_LIMIT_DEFAULT_LIMIT", 600),
		DefaultWindow:   getEnvDuration("RESUME_BUILDER_RATE_LIMIT_DEFAULT_WINDOW", time.Minute),
		CleanupInterval: getEnvDuration("RESUME_BUILDER_RATE_LIMIT_CLEANUP_INTERVAL", 5*time.Minute),
		EndpointConfigs: DefaultEndpointConfigs(),
	}
}

// DefaultEndpointConfigs returns the per-route limits of the preview server.
func DefaultEndpointConfigs() []EndpointConfig {
	return []EndpointConfig{
		// Each export launches a browser and rasterizes every page.
		{Path: "/export", Method: "POST", Limit: 6, Window: time.Minute, Burst: 2},

		// Edits re-render and re-measure after the debounce delay.
		{Path: "/sections/", Method: "POST", Limit: 240, Window: time.Minute, Burst: 40},
		{Path: "/sections/", Method: "PUT", Limit: 240, Window: time.Minute, Burst: 40},
		{Path: "/sections/", Method: "DELETE", Limit: 240, Window: time.Minute, Burst: 40},
		{Path: "/form", Method: "PUT", Limit: 240, Window: time.Minute, Burst: 40},

		// Event streams and health checks are unlimited.
		{Path: "/events", Method: "GET", Limit: 0},
		{Path: "/health", Method: "GET", Limit: 0},
	}
}

// getEnvInt gets an environment variable as an integer with a default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvBool gets an environment variable as a boolean with a default value.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvDuration gets an environment variable as a duration with a default value.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
