package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type Config struct {
	// Telegram
	TelegramToken string

	// Database
	SQLiteDBPath string

	// AMQP (optional: empty URL disables event publishing)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets journal (worker only; optional)
	GoogleSpreadsheetID string
	GoogleSheetName     string

	// Exchange rate source
	RateURL      string
	RateTimeout  time.Duration
	RateCacheTTL time.Duration

	// Conversation sessions
	SessionTTL time.Duration
}

func Load() *Config {
	return &Config{
		TelegramToken: getEnv("TELEGRAM_TOKEN", ""),
		SQLiteDBPath:  getEnv("SQLITE_DB_PATH", "./data/vytraty.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "vytraty"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "expense_events"),

		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:     getEnv("GOOGLE_SHEET_NAME", "Journal"),

		RateURL:      getEnv("RATE_URL", "https://minfin.com.ua/ua/currency/usd/"),
		RateTimeout:  getEnvDuration("RATE_TIMEOUT", 15*time.Second),
		RateCacheTTL: getEnvDuration("RATE_CACHE_TTL", 10*time.Minute),

		SessionTTL: getEnvDuration("SESSION_TTL", 30*time.Minute),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if c.TelegramToken == "" {
		errors = append(errors, "TELEGRAM_TOKEN is required")
	}

	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
	} else {
		dir := filepath.Dir(c.SQLiteDBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
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
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.RateURL == "" {
		errors = append(errors, "rate source URL cannot be empty")
	} else if parsedURL, err := url.Parse(c.RateURL); err != nil || parsedURL.Scheme == "" {
		errors = append(errors, fmt.Sprintf("invalid rate source URL '%s'", c.RateURL))
	}

	if c.RateTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid rate timeout %v: must be at least 1 second", c.RateTimeout))
	} else if c.RateTimeout > 2*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid rate timeout %v: must be at most 2 minutes", c.RateTimeout))
	}

	if c.RateCacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid rate cache TTL %v: must not be negative", c.RateCacheTTL))
	}

	if c.SessionTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid session TTL %v: must be at least 1 minute", c.SessionTTL))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// ValidateWorker checks the subset of settings the sync worker needs.
// The worker has no Telegram surface, so the bot token is not required.
func (c *Config) ValidateWorker() error {
	var errors []string

	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
	}
	if c.AMQPURL == "" {
		errors = append(errors, "AMQP_URL is required for the worker")
	}
	if c.GoogleSpreadsheetID != "" && c.GoogleSheetName == "" {
		errors = append(errors, "GOOGLE_SHEET_NAME cannot be empty when a spreadsheet is configured")
	}

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

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
