package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Storage backend selectors.
const (
	StorageFile  = "file"
	StorageRedis = "redis"
)

// Config holds all application settings, populated from environment variables.
type Config struct {
	HTTPPort string
	LogLevel string

	// Incident storage. The whole collection lives under a single key,
	// either in a JSON file or in one Redis entry.
	StorageBackend string
	StoragePath    string
	StorageKey     string

	// Redis config (only used when StorageBackend == "redis").
	RedisAddr string
	RedisPass string
	RedisDB   int

	// Geocoder config.
	GeocoderBaseURL    string
	GeocoderTimeout    time.Duration
	GeocoderMaxRetries int
	GeocoderBaseDelay  time.Duration
	GeocoderCacheSize  int
	GeocoderMaxResults int

	// Staff gate. Base64-encoded MD5 of the staff password. This is a UI
	// deterrent carried over from the original dashboard, not access control.
	AdminPasswordHash string

	// Initial map view.
	DefaultLat float64
	DefaultLng float64
}

// LoadConfig loads configuration from environment variables and an optional .env file.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := &Config{
		HTTPPort: getEnv("HTTP_PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		StorageBackend: getEnv("STORAGE_BACKEND", StorageFile),
		StoragePath:    getEnv("STORAGE_PATH", "incidents.json"),
		StorageKey:     getEnv("STORAGE_KEY", "incidents"),

		RedisAddr: getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPass: os.Getenv("REDIS_PASSWORD"),
		RedisDB:   getEnvAsInt("REDIS_DB", 0),

		GeocoderBaseURL:    getEnv("GEOCODER_BASE_URL", "https://nominatim.openstreetmap.org"),
		GeocoderTimeout:    getEnvAsDuration("GEOCODER_TIMEOUT", 5*time.Second),
		GeocoderMaxRetries: getEnvAsInt("GEOCODER_MAX_RETRIES", 3),
		GeocoderBaseDelay:  getEnvAsDuration("GEOCODER_BASE_DELAY", 500*time.Millisecond),
		GeocoderCacheSize:  getEnvAsInt("GEOCODER_CACHE_SIZE", 256),
		GeocoderMaxResults: getEnvAsInt("GEOCODER_MAX_RESULTS", 5),

		AdminPasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),

		DefaultLat: getEnvAsFloat("DEFAULT_LAT", 49.250025),
		DefaultLng: getEnvAsFloat("DEFAULT_LNG", -122.989051),
	}

	if cfg.StorageBackend != StorageFile && cfg.StorageBackend != StorageRedis {
		return nil, fmt.Errorf("unknown STORAGE_BACKEND %q", cfg.StorageBackend)
	}

	return cfg, nil
}

// getEnv returns the environment variable value or a default.
func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsInt returns the environment variable value as an int or a default.
func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsFloat returns the environment variable value as a float64 or a default.
func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvAsDuration returns the environment variable value as a time.Duration or a default.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if durationValue, err := time.ParseDuration(value); err == nil {
			return durationValue
		}
	}
	return defaultValue
}
