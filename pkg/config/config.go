package config

import (
	"os"
	"strconv"
	"time"
)

// Application settings
type Config struct {
	Server      ServerConfig
	Logging     LoggingConfig
	Attribution AttributionConfig
	Platforms   PlatformConfig
	Webhook     WebhookConfig
	Cache       CacheConfig
	Storage     StorageConfig
}

// Server settings
type ServerConfig struct {
	Port               string
	RequestTimeout     time.Duration
	RateLimitPerMinute int
}

// Attribution engine settings
type AttributionConfig struct {
	IdentitySalt   string
	Window         time.Duration
	ExtendedWindow time.Duration
	DefaultModel   string
	RecoveryRate   float64
	PurgeInterval  time.Duration
}

// External platform settings. Empty tokens trigger fallback data without a
// network call.
type PlatformConfig struct {
	FetchTimeout       time.Duration
	RateLimitPerSecond int

	FacebookAPIURL string
	GoogleAPIURL   string
	SquareAPIURL   string
	StripeAPIURL   string

	FacebookToken string
	GoogleToken   string
	SquareToken   string
	StripeToken   string

	GoogleDeveloperToken string
}

type WebhookConfig struct {
	Secret string
}

type CacheConfig struct {
	ReportTTL time.Duration
}

// Storage settings. An empty SQLitePath keeps everything in memory.
type StorageConfig struct {
	SQLitePath string
}

// Logging settings
type LoggingConfig struct {
	Level string
}

func Load() (*Config, error) {
	config := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			RequestTimeout:     getDurationEnv("REQUEST_TIMEOUT", "30s"),
			RateLimitPerMinute: getIntEnv("RATE_LIMIT_PER_MINUTE", 60),
		},
		Attribution: AttributionConfig{
			IdentitySalt:   getEnv("IDENTITY_SALT", "trackattr-dev-salt"),
			Window:         getDurationEnv("ATTRIBUTION_WINDOW", "168h"),
			ExtendedWindow: getDurationEnv("ATTRIBUTION_WINDOW_EXTENDED", "720h"),
			DefaultModel:   getEnv("ATTRIBUTION_MODEL", "ml_enhanced"),
			RecoveryRate:   getFloatEnv("RECOVERY_RATE", 0.28),
			PurgeInterval:  getDurationEnv("TOUCHPOINT_PURGE_INTERVAL", "1h"),
		},
		Platforms: PlatformConfig{
			FetchTimeout:         getDurationEnv("PLATFORM_FETCH_TIMEOUT", "10s"),
			RateLimitPerSecond:   getIntEnv("PLATFORM_RATE_LIMIT_PER_SECOND", 100),
			FacebookAPIURL:       getEnv("FACEBOOK_API_URL", "https://graph.facebook.com/v18.0"),
			GoogleAPIURL:         getEnv("GOOGLE_ADS_API_URL", "https://googleads.googleapis.com/v15"),
			SquareAPIURL:         getEnv("SQUARE_API_URL", "https://connect.squareup.com/v2"),
			StripeAPIURL:         getEnv("STRIPE_API_URL", "https://api.stripe.com/v1"),
			FacebookToken:        getEnv("FACEBOOK_ACCESS_TOKEN", ""),
			GoogleToken:          getEnv("GOOGLE_ACCESS_TOKEN", ""),
			SquareToken:          getEnv("SQUARE_ACCESS_TOKEN", ""),
			StripeToken:          getEnv("STRIPE_ACCESS_TOKEN", ""),
			GoogleDeveloperToken: getEnv("GOOGLE_ADS_DEVELOPER_TOKEN", ""),
		},
		Webhook: WebhookConfig{
			Secret: getEnv("WEBHOOK_SECRET", ""),
		},
		Cache: CacheConfig{
			ReportTTL: getDurationEnv("REPORT_CACHE_TTL", "30s"),
		},
		Storage: StorageConfig{
			SQLitePath: getEnv("SQLITE_PATH", ""),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	return config, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue string) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
