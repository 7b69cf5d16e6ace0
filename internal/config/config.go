package config

import (
	"os"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Stream   StreamConfig
	WebPush  WebPushConfig
	Cleanup  CleanupConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type DatabaseConfig struct {
	// URL is the Postgres connection string. Empty means the service runs
	// on the in-memory profile store.
	URL string
}

// StreamConfig is the key/secret pair for the hosted chat backend. The
// secret signs user tokens and verifies webhook signatures.
type StreamConfig struct {
	Key    string
	Secret string
}

// WebPushConfig is the VAPID key pair plus the contact address advertised
// to push services.
type WebPushConfig struct {
	PublicKey  string
	PrivateKey string
	Subject    string
}

// CleanupConfig controls the subscription expiry worker.
type CleanupConfig struct {
	Interval        time.Duration
	SubscriptionTTL time.Duration
}

type LogConfig struct {
	Level string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	interval, err := time.ParseDuration(getEnv("CLEANUP_INTERVAL", "1h"))
	if err != nil {
		interval = time.Hour
	}

	ttl, err := time.ParseDuration(getEnv("SUBSCRIPTION_TTL", "2160h"))
	if err != nil {
		ttl = 90 * 24 * time.Hour
	}

	return &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "5000"),
			Env:  getEnv("ENV", "development"),
		},
		Database: DatabaseConfig{
			URL: getEnv("DATABASE_URL", ""),
		},
		Stream: StreamConfig{
			Key:    getEnv("STREAM_KEY", ""),
			Secret: getEnv("STREAM_SECRET", ""),
		},
		WebPush: WebPushConfig{
			PublicKey:  getEnv("WEB_PUSH_PUBLIC_KEY", ""),
			PrivateKey: getEnv("WEB_PUSH_PRIVATE_KEY", ""),
			Subject:    getEnv("WEB_PUSH_SUBJECT", "admin@chatpush.dev"),
		},
		Cleanup: CleanupConfig{
			Interval:        interval,
			SubscriptionTTL: ttl,
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "debug"),
		},
	}, nil
}

// getEnv gets an environment variable with a fallback default
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// IsProduction returns true if running in production
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}
