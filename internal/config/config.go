package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const minJWTSecretLength = 16

type Config struct {
	// HTTP Server
	Port            string
	CORSOrigin      string
	ShutdownTimeout time.Duration
	// TrustedProxies is a comma-separated list of CIDRs allowed to set
	// X-Forwarded-For, on top of loopback and private networks.
	TrustedProxies string

	// Backend selection: memory, sqlite or postgres
	DataBackend  string
	SQLiteDBPath string
	DatabaseURL  string

	// Auth
	JWTSecret string

	// AMQP change fan-out, optional
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Summary cache
	CacheSize int
	CacheTTL  time.Duration

	RateLimitPerMinute int
	LogLevel           string

	// Google Sheets summary export
	GoogleSpreadsheetID    string
	GoogleSummarySheetName string
	GoogleCredentialsFile  string
	GoogleCredentialsJSON  string
}

func Load() *Config {
	return &Config{
		Port:            getEnv("PORT", "8081"),
		CORSOrigin:      getEnv("CORS_ORIGIN", "*"),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		TrustedProxies:  getEnv("TRUSTED_PROXIES", ""),

		DataBackend:  getEnv("DATA_BACKEND", "sqlite"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/spendwise.db"),
		DatabaseURL:  getEnv("DATABASE_URL", ""),

		JWTSecret: getEnv("JWT_SECRET", ""),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "spendwise.changes"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "spendwise.cache"),

		CacheSize: getEnvInt("CACHE_SIZE", 256),
		CacheTTL:  getEnvDuration("CACHE_TTL", 5*time.Minute),

		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		LogLevel:           getEnv("LOG_LEVEL", "info"),

		GoogleSpreadsheetID:    getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSummarySheetName: getEnv("GOOGLE_SUMMARY_SHEET_NAME", "Summary"),
		GoogleCredentialsFile:  getEnv("GOOGLE_CREDENTIALS_FILE", ""),
		GoogleCredentialsJSON:  getEnv("GOOGLE_CREDENTIALS_JSON", ""),
	}
}

// Validate checks the settings the HTTP server needs.
func (c *Config) Validate() error {
	errors := c.validateStore()

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	for _, cidr := range c.TrustedProxyList() {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			errors = append(errors, fmt.Sprintf("invalid trusted proxy CIDR '%s'", cidr))
		}
	}

	errors = append(errors, c.validateSecret()...)

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.CacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid cache size %d: must be at least 1", c.CacheSize))
	}
	if c.CacheTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must be at least 1 second", c.CacheTTL))
	}
	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1", c.RateLimitPerMinute))
	}

	return combine(errors)
}

// ValidateExport checks the settings of the summary export command.
func (c *Config) ValidateExport() error {
	errors := c.validateStore()

	if c.GoogleSpreadsheetID == "" {
		errors = append(errors, "GOOGLE_SPREADSHEET_ID is required for the summary export")
	}
	if c.GoogleSummarySheetName == "" {
		errors = append(errors, "GOOGLE_SUMMARY_SHEET_NAME cannot be empty")
	}
	hasFile := c.GoogleCredentialsFile != ""
	if !hasFile && c.GoogleCredentialsJSON == "" {
		errors = append(errors, "either GOOGLE_CREDENTIALS_FILE or GOOGLE_CREDENTIALS_JSON must be provided")
	}
	if hasFile {
		if _, err := os.Stat(c.GoogleCredentialsFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("Google credentials file does not exist: %s", c.GoogleCredentialsFile))
		}
	}

	return combine(errors)
}

// ValidateStore checks the record store settings alone.
func (c *Config) ValidateStore() error {
	return combine(c.validateStore())
}

// ValidateSecret checks the JWT signing secret alone.
func (c *Config) ValidateSecret() error {
	return combine(c.validateSecret())
}

func (c *Config) validateSecret() []string {
	if len(c.JWTSecret) < minJWTSecretLength {
		return []string{fmt.Sprintf("JWT_SECRET must be at least %d characters", minJWTSecretLength)}
	}
	return nil
}

func (c *Config) validateStore() []string {
	var errors []string

	switch c.DataBackend {
	case "memory":
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
			break
		}
		dir := filepath.Dir(c.SQLiteDBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	case "postgres":
		if c.DatabaseURL == "" {
			errors = append(errors, "DATABASE_URL is required when using postgres backend")
		} else if u, err := url.Parse(c.DatabaseURL); err != nil || (u.Scheme != "postgres" && u.Scheme != "postgresql") {
			errors = append(errors, "invalid DATABASE_URL: must be a postgres:// or postgresql:// URL")
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of [memory sqlite postgres]", c.DataBackend))
	}

	return errors
}

// TrustedProxyList splits TrustedProxies, skipping blanks.
func (c *Config) TrustedProxyList() []string {
	var out []string
	for _, part := range strings.Split(c.TrustedProxies, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func combine(errors []string) error {
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
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
