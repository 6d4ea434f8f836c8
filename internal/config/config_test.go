package config

import (
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://bot:pw@localhost:5432/callbot")
	t.Setenv("BINANCE_API_KEY", "key")
	t.Setenv("BINANCE_API_SECRET", "secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Venue != VenueSpot {
		t.Errorf("Venue = %q, want spot", cfg.Venue)
	}
	if cfg.Trading.OrderSize != 100 {
		t.Errorf("OrderSize = %v, want 100", cfg.Trading.OrderSize)
	}
	if cfg.Trading.OrderExpiry != 24*time.Hour {
		t.Errorf("OrderExpiry = %v, want 24h", cfg.Trading.OrderExpiry)
	}
	if cfg.Trading.StepInterval != 10*time.Second {
		t.Errorf("StepInterval = %v, want 10s", cfg.Trading.StepInterval)
	}
	if cfg.Trading.Lookback != 12*time.Hour {
		t.Errorf("Lookback = %v, want 12h", cfg.Trading.Lookback)
	}
	if cfg.Trading.TargetIndex != 3 {
		t.Errorf("TargetIndex = %d, want 3", cfg.Trading.TargetIndex)
	}
	if !cfg.Trading.LatestFirst {
		t.Error("LatestFirst = false, want true")
	}
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("VENUE", "futures")
	t.Setenv("ORDER_SIZE_USDT", "250")
	t.Setenv("ORDER_EXPIRY", "6h")
	t.Setenv("LATEST_FIRST", "false")
	t.Setenv("FCM_DEVICE_TOKENS", "tok-a, tok-b,")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Venue != VenueFutures {
		t.Errorf("Venue = %q, want futures", cfg.Venue)
	}
	if cfg.Trading.OrderSize != 250 {
		t.Errorf("OrderSize = %v, want 250", cfg.Trading.OrderSize)
	}
	if cfg.Trading.OrderExpiry != 6*time.Hour {
		t.Errorf("OrderExpiry = %v, want 6h", cfg.Trading.OrderExpiry)
	}
	if cfg.Trading.LatestFirst {
		t.Error("LatestFirst = true, want false")
	}
	if len(cfg.FCM.DeviceTokens) != 2 || cfg.FCM.DeviceTokens[0] != "tok-a" || cfg.FCM.DeviceTokens[1] != "tok-b" {
		t.Errorf("DeviceTokens = %v, want [tok-a tok-b]", cfg.FCM.DeviceTokens)
	}
}

func TestLoadRejectsMissingDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("BINANCE_API_KEY", "key")
	t.Setenv("BINANCE_API_SECRET", "secret")

	if _, err := Load(); err == nil {
		t.Fatal("Load() accepted empty DATABASE_URL")
	}
}

func TestLoadRejectsUnknownVenue(t *testing.T) {
	setRequired(t)
	t.Setenv("VENUE", "margin")

	if _, err := Load(); err == nil {
		t.Fatal("Load() accepted unknown venue")
	}
}
