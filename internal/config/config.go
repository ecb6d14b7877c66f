package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

type Config struct {
	// HTTP Server
	Port string

	// Storage
	SQLiteDBPath  string
	MarkersPath   string
	RetentionDays int

	// Price feed
	PriceFeedURL         string
	PriceRefreshInterval time.Duration
	PriceFetchTimeout    time.Duration

	// Calendar
	WeekStart string
	Timezone  string

	// AMQP (optional)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets import (optional)
	GoogleSpreadsheetID      string
	GoogleImportRange        string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
	GoogleOAuthClientFile    string
	GoogleOAuthTokenFile     string

	// Worker
	DailySchedule string
	PriceSchedule string

	LogLevel string
}

func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8081"),
		SQLiteDBPath:  getEnv("SQLITE_DB_PATH", "./data/walletwatcher.db"),
		MarkersPath:   getEnv("MARKERS_PATH", "./data/markers.json"),
		RetentionDays: getEnvInt("RETENTION_DAYS", 365),

		PriceFeedURL:         getEnv("PRICE_FEED_URL", "https://gold-silver-api.vercel.app/api/all"),
		PriceRefreshInterval: getEnvDuration("PRICE_REFRESH_INTERVAL", time.Hour),
		PriceFetchTimeout:    getEnvDuration("PRICE_FETCH_TIMEOUT", 10*time.Second),

		WeekStart: getEnv("WEEK_START", "sunday"),
		Timezone:  getEnv("TIMEZONE", "Local"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "walletwatcher"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "wallet_events"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleImportRange:        getEnv("GOOGLE_IMPORT_RANGE", "Transactions!A:E"),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		GoogleOAuthClientFile:    getEnv("GOOGLE_OAUTH_CLIENT_FILE", ""),
		GoogleOAuthTokenFile:     getEnv("GOOGLE_OAUTH_TOKEN_FILE", ""),

		DailySchedule: getEnv("DAILY_SCHEDULE", "@every 1h"),
		PriceSchedule: getEnv("PRICE_SCHEDULE", "@every 15m"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// SheetsEnabled reports whether the Google Sheets importer should be wired.
func (c *Config) SheetsEnabled() bool {
	return c.GoogleSpreadsheetID != ""
}

// Location resolves Timezone; "Local" and "" mean the host zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// FirstWeekday parses WeekStart as an English weekday name.
func (c *Config) FirstWeekday() (time.Weekday, error) {
	name := strings.ToLower(strings.TrimSpace(c.WeekStart))
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.ToLower(d.String()) == name {
			return d, nil
		}
	}
	return time.Sunday, fmt.Errorf("unknown weekday %q", c.WeekStart)
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
	} else if msg := ensureDir(c.SQLiteDBPath); msg != "" {
		errors = append(errors, msg)
	}
	if c.MarkersPath == "" {
		errors = append(errors, "markers path cannot be empty")
	} else if msg := ensureDir(c.MarkersPath); msg != "" {
		errors = append(errors, msg)
	}

	if c.RetentionDays < 1 {
		errors = append(errors, fmt.Sprintf("invalid retention %d days: must be at least 1", c.RetentionDays))
	}

	if parsed, err := url.Parse(c.PriceFeedURL); err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		errors = append(errors, fmt.Sprintf("invalid price feed URL '%s': must be an absolute http(s) URL", c.PriceFeedURL))
	}
	if c.PriceRefreshInterval < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid price refresh interval %v: must be at least 1 minute", c.PriceRefreshInterval))
	}
	if c.PriceFetchTimeout < time.Second || c.PriceFetchTimeout > time.Minute {
		errors = append(errors, fmt.Sprintf("invalid price fetch timeout %v: must be between 1s and 1m", c.PriceFetchTimeout))
	}

	if _, err := c.FirstWeekday(); err != nil {
		errors = append(errors, fmt.Sprintf("invalid week start: %v", err))
	}
	if _, err := c.Location(); err != nil {
		errors = append(errors, fmt.Sprintf("invalid timezone '%s': %v", c.Timezone, err))
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

	if c.SheetsEnabled() {
		errors = append(errors, c.validateSheets()...)
	}

	for name, spec := range map[string]string{"DAILY_SCHEDULE": c.DailySchedule, "PRICE_SCHEDULE": c.PriceSchedule} {
		if _, err := cron.ParseStandard(spec); err != nil {
			errors = append(errors, fmt.Sprintf("invalid %s '%s': %v", name, spec, err))
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func (c *Config) validateSheets() []string {
	var errors []string
	if c.GoogleImportRange == "" {
		errors = append(errors, "Google import range is required when a spreadsheet ID is set")
	}

	hasServiceAccount := c.GoogleServiceAccountJSON != "" || c.GoogleServiceAccountFile != "" ||
		os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") != ""
	hasOAuth := c.GoogleOAuthClientFile != "" && c.GoogleOAuthTokenFile != ""
	if !hasServiceAccount && !hasOAuth {
		errors = append(errors, "Google Sheets import needs service account credentials or both GOOGLE_OAUTH_CLIENT_FILE and GOOGLE_OAUTH_TOKEN_FILE")
	}

	for label, path := range map[string]string{
		"service account file": c.GoogleServiceAccountFile,
		"OAuth client file":    c.GoogleOAuthClientFile,
		"OAuth token file":     c.GoogleOAuthTokenFile,
	} {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("Google %s does not exist: %s", label, path))
		}
	}
	return errors
}

// ensureDir creates the parent directory of path when missing and returns a
// message describing any failure.
func ensureDir(path string) string {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return ""
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Sprintf("cannot create directory '%s': %v", dir, err)
		}
	}
	return ""
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
