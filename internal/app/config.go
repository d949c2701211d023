package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	ClientID       string // Required: provider client id
	PrivateKeyFile string // Required: path to the RSA private key PEM used for client assertions
	RedirectURI    string // Required: where the provider sends the user back

	AuthorizeURL string        // Optional: provider authorize endpoint (default: hosted provider)
	TokenURL     string        // Optional: provider token endpoint (default: hosted provider)
	APIURL       string        // Optional: provider GraphQL endpoint (default: hosted provider)
	Scopes       []string      // Optional: requested scopes (default: openid accounts offline_access)
	RefreshSkew  time.Duration // Optional: refresh tokens this long before expiry (default: 60s)

	StoreDriver  string // Store driver (memory, sqlite, redis) (default: sqlite)
	DatabaseFile string // Optional: path to SQLite database file (default: ./stitchlink.db)
	RedisURL     string // Required for the redis driver
	TokenSealKey string // Optional: key material for sealing tokens at rest (sqlite only)

	Env                 string        // Environment (dev, staging, prod) (default: dev)
	LogLevel            string        // Log level (debug, info, warn, error) (default: info)
	LogFormat           string        // Log format (json, text) (default: json)
	Port                int           // HTTP server port (default: 8080)
	ShutdownGracePeriod time.Duration // Graceful shutdown timeout (default: 10s)
}

func LoadConfig() Config {
	return Config{
		ClientID:       os.Getenv("STITCH_CLIENT_ID"),
		PrivateKeyFile: getEnvOrDefault("STITCH_PRIVATE_KEY_FILE", "client.pem"),
		RedirectURI:    os.Getenv("STITCH_REDIRECT_URI"),

		AuthorizeURL: os.Getenv("STITCH_AUTHORIZE_URL"), // empty means hosted default
		TokenURL:     os.Getenv("STITCH_TOKEN_URL"),
		APIURL:       os.Getenv("STITCH_API_URL"),
		Scopes: strings.Fields(getEnvOrDefault(
			"STITCH_SCOPES",
			"openid accounts offline_access",
		)),
		RefreshSkew: getEnvDurationOrDefault("STITCH_REFRESH_SKEW", 60*time.Second),

		StoreDriver:  getEnvOrDefault("STORE_DRIVER", "sqlite"),
		DatabaseFile: getEnvOrDefault("DATABASE_FILE", "stitchlink.db"),
		RedisURL:     os.Getenv("REDIS_URL"),
		TokenSealKey: os.Getenv("TOKEN_SEAL_KEY"),

		Env:                 getEnvOrDefault("ENV", "dev"),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:           getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are taken as seconds.
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}

	return defaultValue
}
