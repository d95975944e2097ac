package config

import (
	"fmt"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port        string
	Environment string
	GinMode     string
	LogLevel    string
	CORSOrigins []string

	// Backend selection
	DataBackend string

	// MongoDB
	MongoURI                    string
	MongoDatabase               string
	MongoConnectTimeout         time.Duration
	MongoSocketTimeout          time.Duration
	MongoServerSelectionTimeout time.Duration

	// PostgreSQL
	DatabaseURL string

	// Connection retry, shared by both database backends
	DBConnectRetries int
	DBRetryDelay     time.Duration

	// Auth
	JWTSecret         string
	JWTExpire         time.Duration
	DataEncryptionKey string
	TOTPIssuer        string

	// Rate limiting
	RateLimit       int
	RateLimitWindow time.Duration

	// AMQP (optional)
	AMQPURL      string
	AMQPExchange string
}

const (
	BackendMongo    = "mongo"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

var validBackends = []string{BackendMongo, BackendPostgres, BackendMemory}

func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "5000"),
		Environment: getEnv("ENVIRONMENT", getEnv("ENV", "development")),
		GinMode:     getEnv("GIN_MODE", ""),
		LogLevel:    getEnv("LOG_LEVEL", "INFO"),
		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "*")),

		DataBackend: strings.ToLower(getEnv("DATA_BACKEND", BackendMongo)),

		MongoURI:                    getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:               getEnv("MONGO_DATABASE", "finance"),
		MongoConnectTimeout:         getEnvDuration("MONGO_CONNECT_TIMEOUT", 30*time.Second),
		MongoSocketTimeout:          getEnvDuration("MONGO_SOCKET_TIMEOUT", 45*time.Second),
		MongoServerSelectionTimeout: getEnvDuration("MONGO_SERVER_SELECTION_TIMEOUT", 30*time.Second),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		DBConnectRetries: getEnvInt("DB_CONNECT_RETRIES", 5),
		DBRetryDelay:     getEnvDuration("DB_RETRY_DELAY", 5*time.Second),

		JWTSecret:         getEnv("JWT_SECRET", ""),
		JWTExpire:         getEnvExpire("JWT_EXPIRE", 30*24*time.Hour),
		DataEncryptionKey: getEnv("DATA_ENCRYPTION_KEY", ""),
		TOTPIssuer:        getEnv("TOTP_ISSUER", "Finance Tracker"),

		RateLimit:       getEnvInt("RATE_LIMIT", 100),
		RateLimitWindow: getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "finance.events"),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	switch c.DataBackend {
	case BackendMongo:
		if c.MongoURI == "" {
			errors = append(errors, "MONGO_URI is required when using mongo backend")
		}
		if c.MongoDatabase == "" {
			errors = append(errors, "MONGO_DATABASE cannot be empty when using mongo backend")
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			errors = append(errors, "DATABASE_URL is required when using postgres backend")
		}
	}

	if c.DBConnectRetries < 1 {
		errors = append(errors, fmt.Sprintf("invalid connect retries %d: must be at least 1", c.DBConnectRetries))
	}
	if c.DBRetryDelay < 0 {
		errors = append(errors, fmt.Sprintf("invalid retry delay %v: must not be negative", c.DBRetryDelay))
	}

	if c.JWTSecret == "" {
		errors = append(errors, "JWT_SECRET is required")
	}
	if c.JWTExpire <= 0 {
		errors = append(errors, fmt.Sprintf("invalid JWT expiry %v: must be positive", c.JWTExpire))
	}

	if c.DataEncryptionKey != "" && len(c.DataEncryptionKey) != 32 {
		errors = append(errors, fmt.Sprintf("DATA_ENCRYPTION_KEY must be exactly 32 characters, got %d", len(c.DataEncryptionKey)))
	}

	if c.RateLimit < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1", c.RateLimit))
	}
	if c.RateLimitWindow < time.Second {
		errors = append(errors, fmt.Sprintf("invalid rate limit window %v: must be at least 1 second", c.RateLimitWindow))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// JWTConfigured and JWTExpireConfigured back the debug endpoints, which
// report presence only.
func (c *Config) JWTConfigured() bool {
	return c.JWTSecret != ""
}

func (c *Config) JWTExpireConfigured() bool {
	return os.Getenv("JWT_EXPIRE") != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvExpire(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := ParseExpire(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// ParseExpire accepts Go durations ("720h") and day counts ("30d").
func ParseExpire(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if days, ok := strings.CutSuffix(value, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("invalid expiry %q", value)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid expiry %q: %w", value, err)
	}
	return d, nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
