// Package config loads coinwatch settings from the environment and an optional .env file.
package config

import (
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // Cron locations must resolve on hosts without zoneinfo

	"github.com/Rhymond/go-money"
	"github.com/joho/godotenv"
)

// Default values for optional settings
const (
	DefaultAlertDelta        = 100.0
	DefaultPort              = 3000
	DefaultReferenceCurrency = "EUR"
	DefaultTimezone          = "Europe/Amsterdam"
	DefaultRateTimeout       = 10 * time.Second
	DefaultCoinbaseBaseURL   = "https://api.coinbase.com/v2"
	DefaultStoreURL          = "data/coinwatch.db"
	DefaultRateOverrides     = "BCH=400" // Coinbase does not quote BCH
	DefaultDescription       = "Coinwatch portfolio valuation"
)

// Config holds application configuration
type Config struct {
	AlertDelta        float64            // Portfolio move (reference currency) that triggers an alert
	CronSchedule      string             // Empty = run once at startup, then only on HTTP requests
	Timezone          string             // Location the cron schedule is evaluated in
	LiveMode          bool               // Deliver notifications instead of logging them
	Port              int                // Status endpoint port
	ReferenceCurrency string             // ISO code all valuations are expressed in
	RateOverrides     map[string]float64 // Static prices for assets the live source cannot quote
	RateTimeout       time.Duration      // Upper bound for a single rate fetch
	CoinbaseBaseURL   string
	TelegramToken     string
	TelegramChatID    string
	StoreURL          string // SQLite path, or postgres:// URL
	LedgerPath        string // Empty = embedded default ledger
	Description       string // Title of the status page
	LogLevel          string
	LogPretty         bool
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	overrides, err := ParseRateOverrides(getEnv("RATE_OVERRIDES", DefaultRateOverrides))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_OVERRIDES: %w", err)
	}

	alertDelta, err := getEnvAsFloat("ALERT_DELTA", DefaultAlertDelta)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		AlertDelta: alertDelta,
		// CRON_TIME is the historical name of the schedule variable
		CronSchedule: getEnv("CRON_SCHEDULE", getEnv("CRON_TIME", "")),
		Timezone:     getEnv("TIMEZONE", DefaultTimezone),
		// PRODUCTION is the historical name of the live switch
		LiveMode:          getEnvAsBool("LIVE_MODE", getEnvAsBool("PRODUCTION", false)),
		Port:              getEnvAsInt("LISTEN_PORT", getEnvAsInt("PORT", DefaultPort)),
		ReferenceCurrency: strings.ToUpper(getEnv("REFERENCE_CURRENCY", DefaultReferenceCurrency)),
		RateOverrides:     overrides,
		RateTimeout:       getEnvAsDuration("RATE_TIMEOUT", DefaultRateTimeout),
		CoinbaseBaseURL:   strings.TrimRight(getEnv("COINBASE_BASE_URL", DefaultCoinbaseBaseURL), "/"),
		TelegramToken:     getEnv("TELEGRAM_TOKEN", ""),
		TelegramChatID:    getEnv("TELEGRAM_CHAT_ID", getEnv("TELEGRAM_GROUP", "")),
		StoreURL:          getEnv("STORE_URL", getEnv("DATABASE_URL", DefaultStoreURL)),
		LedgerPath:        getEnv("LEDGER_PATH", ""),
		Description:       getEnv("DESCRIPTION", DefaultDescription),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogPretty:         getEnvAsBool("LOG_PRETTY", true),
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present and consistent
func (c *Config) Validate() error {
	if c.AlertDelta < 0 {
		return fmt.Errorf("ALERT_DELTA must be non-negative, got %v", c.AlertDelta)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("LISTEN_PORT out of range: %d", c.Port)
	}
	if money.GetCurrency(c.ReferenceCurrency) == nil {
		return fmt.Errorf("unknown REFERENCE_CURRENCY %q", c.ReferenceCurrency)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	if c.RateTimeout <= 0 {
		return fmt.Errorf("RATE_TIMEOUT must be positive, got %s", c.RateTimeout)
	}
	if c.StoreURL == "" {
		return fmt.Errorf("STORE_URL is required")
	}

	// Notifications can only be delivered with bot credentials
	if c.LiveMode && (c.TelegramToken == "" || c.TelegramChatID == "") {
		return fmt.Errorf("LIVE_MODE requires TELEGRAM_TOKEN and TELEGRAM_CHAT_ID")
	}

	return nil
}

// Location returns the cron location, falling back to UTC
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ParseRateOverrides parses "SYM=price,SYM=price" into a symbol → price table.
// Symbols are upper-cased; prices must be non-negative numbers.
func ParseRateOverrides(raw string) (map[string]float64, error) {
	overrides := make(map[string]float64)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}

		symbol, price, ok := strings.Cut(pair, "=")
		symbol = strings.ToUpper(strings.TrimSpace(symbol))
		if !ok || symbol == "" {
			return nil, fmt.Errorf("expected SYMBOL=price, got %q", pair)
		}

		value, err := strconv.ParseFloat(strings.TrimSpace(price), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid price for %s: %w", symbol, err)
		}
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return nil, fmt.Errorf("non-finite price for %s", symbol)
		}
		if value < 0 {
			return nil, fmt.Errorf("negative price for %s", symbol)
		}
		overrides[symbol] = value
	}
	return overrides, nil
}

// FormatRateOverrides renders an override table back to its env form, sorted by symbol
func FormatRateOverrides(overrides map[string]float64) string {
	symbols := make([]string, 0, len(overrides))
	for symbol := range overrides {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	pairs := make([]string, 0, len(symbols))
	for _, symbol := range symbols {
		pairs = append(pairs, symbol+"="+strconv.FormatFloat(overrides[symbol], 'f', -1, 64))
	}
	return strings.Join(pairs, ",")
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

// getEnvAsFloat reports malformed values instead of falling back to the default
func getEnvAsFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	floatVal, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return floatVal, nil
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
