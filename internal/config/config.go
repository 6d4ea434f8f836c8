// Package config loads application configuration from environment variables.
// A .env file next to the binary is honored when present; real environment
// variables win.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Venue identifiers accepted by VENUE.
const (
	VenueSpot    = "spot"
	VenueFutures = "futures"
)

// Config holds all application configuration. Load it once at startup.
type Config struct {
	// DatabaseURL is the Postgres connection string for the call store.
	DatabaseURL string

	// LogLevel is a logrus level name ("debug", "info", ...).
	LogLevel string

	// Venue selects the trading venue adapter: "spot" or "futures".
	Venue string

	Binance BinanceConfig
	Trading TradingConfig
	FCM     FCMConfig
}

// BinanceConfig holds exchange API credentials and endpoint.
type BinanceConfig struct {
	APIKey    string
	SecretKey string
	// BaseURL overrides the venue default; used to point at the testnet.
	BaseURL string
}

// TradingConfig holds the engine's tunables.
type TradingConfig struct {
	// OrderSize is the quote-currency notional of one entry order.
	OrderSize float64

	// QuoteAsset is the balance asset entries are funded from.
	QuoteAsset string

	// StepInterval is the delay between engine steps.
	StepInterval time.Duration

	// OrderExpiry retires resting orders that stay NEW longer than this.
	OrderExpiry time.Duration

	// Lookback bounds how stale an unseen call may be and still be entered.
	Lookback time.Duration

	// TargetIndex selects the active take-profit level in a call's targets.
	TargetIndex int

	// LatestFirst orders new-entry selection by call id descending.
	LatestFirst bool

	// FuturesFeeRate is the flat execution fee applied when computing net
	// fill quantity on the futures venue.
	FuturesFeeRate float64

	// FuturesLeverage is set per symbol before a futures entry.
	FuturesLeverage int
}

// FCMConfig holds optional push-notification settings.
type FCMConfig struct {
	// CredentialsPath points at a Firebase service-account JSON file.
	// Empty disables notifications.
	CredentialsPath string

	// DeviceTokens receives call-closed notifications (comma-separated).
	DeviceTokens []string
}

// Load reads configuration from the environment, falling back to defaults
// that mirror the production constants.
func Load() (*Config, error) {
	// Best effort: absent .env just means everything comes from the real env.
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		LogLevel:    envString("LOG_LEVEL", "info"),
		Venue:       envString("VENUE", VenueSpot),
		Binance: BinanceConfig{
			APIKey:    os.Getenv("BINANCE_API_KEY"),
			SecretKey: os.Getenv("BINANCE_API_SECRET"),
			BaseURL:   os.Getenv("BINANCE_API_URL"),
		},
		Trading: TradingConfig{
			OrderSize:       envFloat("ORDER_SIZE_USDT", 100),
			QuoteAsset:      envString("QUOTE_ASSET", "USDT"),
			StepInterval:    envDuration("STEP_INTERVAL", 10*time.Second),
			OrderExpiry:     envDuration("ORDER_EXPIRY", 24*time.Hour),
			Lookback:        envDuration("CALL_LOOKBACK", 12*time.Hour),
			TargetIndex:     envInt("TARGET_INDEX", 3),
			LatestFirst:     envBool("LATEST_FIRST", true),
			FuturesFeeRate:  envFloat("FUTURES_FEE_RATE", 0.001),
			FuturesLeverage: envInt("FUTURES_LEVERAGE", 1),
		},
		FCM: FCMConfig{
			CredentialsPath: os.Getenv("FIREBASE_CREDENTIALS_PATH"),
			DeviceTokens:    envList("FCM_DEVICE_TOKENS"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Venue != VenueSpot && c.Venue != VenueFutures {
		return fmt.Errorf("VENUE must be %q or %q, got %q", VenueSpot, VenueFutures, c.Venue)
	}
	if c.Binance.APIKey == "" || c.Binance.SecretKey == "" {
		return fmt.Errorf("BINANCE_API_KEY and BINANCE_API_SECRET are required")
	}
	if c.Trading.OrderSize <= 0 {
		return fmt.Errorf("ORDER_SIZE_USDT must be positive, got %v", c.Trading.OrderSize)
	}
	if c.Trading.StepInterval <= 0 {
		return fmt.Errorf("STEP_INTERVAL must be positive, got %v", c.Trading.StepInterval)
	}
	if c.Trading.FuturesLeverage < 1 {
		c.Trading.FuturesLeverage = 1
	}
	if c.Trading.FuturesLeverage > 20 {
		c.Trading.FuturesLeverage = 20
	}
	return nil
}

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func envList(key string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
