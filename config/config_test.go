package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var envKeys = []string{
	"SECRET_API_KEY", "URL", "OPEN_INTEREST_URL", "MARKETS_URL", "INTERVAL",
	"SYMBOL_PREFIX", "TEMP_AUDIO_DIR", "SPEECH_MODE", "LOG_LEVEL", "SYMBOLS",
	"N_MINUTES_TIMEDELTA", "MINIMAL_LIQUIDATION", "MINIMAL_OPEN_INTEREST",
	"ROUNDING_EXPONENT", "SLEEP_INTERVAL", "LIQUIDATION_ENABLED",
	"OPEN_INTEREST_ENABLED", "DASHBOARD_ENABLED", "DASHBOARD_ADDR", "APP_ENV",
}

// clearEnv blanks every variable LoadConfig reads so the host environment
// cannot leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

// writeTempConfig writes content to a yaml file in a temp dir and returns its path.
func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("SECRET_API_KEY", "secret")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yml"))
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.API.Key != "secret" {
		t.Fatalf("api key = %q", cfg.API.Key)
	}
	if cfg.Poll.LookbackMinutes != 6 || cfg.Poll.Interval != "5min" {
		t.Fatalf("unexpected poll defaults: %+v", cfg.Poll)
	}
	if cfg.Detector.Liquidation.Minimal != 10000 || cfg.Detector.OpenInterest.Minimal != 1000000 {
		t.Fatalf("unexpected thresholds: %+v", cfg.Detector)
	}
	if cfg.Detector.OpenInterest.RoundingExponent != -6 {
		t.Fatalf("rounding exponent = %d", cfg.Detector.OpenInterest.RoundingExponent)
	}
	if len(cfg.Symbols.List) != 1 || cfg.Symbols.List[0] != DefaultSymbol {
		t.Fatalf("symbols = %v", cfg.Symbols.List)
	}
	if cfg.Poll.LiquidationSleep != 2*time.Second {
		t.Fatalf("sleep = %s", cfg.Poll.LiquidationSleep)
	}
}

func TestLoadConfigRequiresKey(t *testing.T) {
	clearEnv(t)
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yml"))
	if err == nil || !strings.Contains(err.Error(), "SECRET_API_KEY") {
		t.Fatalf("expected missing key error, got %v", err)
	}
}

func TestLoadConfigFile(t *testing.T) {
	clearEnv(t)
	path := writeTempConfig(t, `
api:
  key: from-file
poll:
  lookback_minutes: 10
  interval: 1min
  liquidation_sleep: 5s
symbols:
  list: ["ETHUSD.6", " BTCUSD.6 "]
detector:
  open_interest:
    enabled: true
    minimal: 500000
speech:
  mode: TONE
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.API.Key != "from-file" {
		t.Fatalf("api key = %q", cfg.API.Key)
	}
	if cfg.Poll.Lookback() != 10*time.Minute || cfg.Poll.LiquidationSleep != 5*time.Second {
		t.Fatalf("unexpected poll config: %+v", cfg.Poll)
	}
	if got := strings.Join(cfg.Symbols.List, ","); got != "ETHUSD.6,BTCUSD.6" {
		t.Fatalf("symbols = %q", got)
	}
	if !cfg.Detector.OpenInterest.Enabled || cfg.Detector.OpenInterest.Minimal != 500000 {
		t.Fatalf("open interest = %+v", cfg.Detector.OpenInterest)
	}
	// untouched fields keep their defaults
	if !cfg.Detector.Liquidation.Enabled || cfg.Detector.OpenInterest.RoundingExponent != -6 {
		t.Fatalf("defaults lost: %+v", cfg.Detector)
	}
	if cfg.Speech.Mode != SpeechModeTone {
		t.Fatalf("speech mode = %q", cfg.Speech.Mode)
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	clearEnv(t)
	path := writeTempConfig(t, "api:\n  key: from-file\n")
	t.Setenv("SECRET_API_KEY", "from-env")
	t.Setenv("MINIMAL_LIQUIDATION", "25000")
	t.Setenv("SLEEP_INTERVAL", "0.5")
	t.Setenv("SYMBOLS", "BTCUSD.6,ETHUSD.6")
	t.Setenv("SPEECH_MODE", "off")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.API.Key != "from-env" {
		t.Fatalf("api key = %q", cfg.API.Key)
	}
	if cfg.Detector.Liquidation.Minimal != 25000 {
		t.Fatalf("minimal liquidation = %d", cfg.Detector.Liquidation.Minimal)
	}
	if cfg.Poll.OpenInterestSleep != 500*time.Millisecond {
		t.Fatalf("sleep = %s", cfg.Poll.OpenInterestSleep)
	}
	if len(cfg.Symbols.List) != 2 {
		t.Fatalf("symbols = %v", cfg.Symbols.List)
	}
	if cfg.Speech.Mode != SpeechModeOff {
		t.Fatalf("speech mode = %q", cfg.Speech.Mode)
	}
}

func TestLoadConfigMalformedEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("SECRET_API_KEY", "secret")
	t.Setenv("MINIMAL_OPEN_INTEREST", "lots")

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yml")); err == nil {
		t.Fatalf("expected error for malformed integer")
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad interval", func(c *Config) { c.Poll.Interval = "7min" }},
		{"zero lookback", func(c *Config) { c.Poll.LookbackMinutes = 0 }},
		{"zero sleep", func(c *Config) { c.Poll.LiquidationSleep = 0 }},
		{"short retention", func(c *Config) { c.Detector.SeenRetention = 10 * time.Minute }},
		{"no symbols", func(c *Config) { c.Symbols.List = nil }},
		{"bad speech mode", func(c *Config) { c.Speech.Mode = "shout" }},
		{"zero queue", func(c *Config) { c.Speech.QueueSize = 0 }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
		{"nothing enabled", func(c *Config) { c.Detector.Liquidation.Enabled = false }},
		{"discovery without url", func(c *Config) {
			c.Symbols.DiscoveryPrefix = "BTC"
			c.API.MarketsURL = ""
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.API.Key = "secret"
			tt.mutate(&cfg)
			if err := validateConfig(&cfg); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestValidateConfigRetention(t *testing.T) {
	cfg := Default()
	cfg.API.Key = "secret"

	// 2 * (6min + 5min)
	cfg.Detector.SeenRetention = 22 * time.Minute
	if err := validateConfig(&cfg); err != nil {
		t.Fatalf("22m retention rejected: %v", err)
	}
	cfg.Detector.SeenRetention = 0
	if err := validateConfig(&cfg); err != nil {
		t.Fatalf("disabled retention rejected: %v", err)
	}
}

func TestResolvePath(t *testing.T) {
	if got := ResolvePath("custom.yml"); got != "custom.yml" {
		t.Fatalf("explicit path changed: %s", got)
	}

	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })

	t.Setenv("APP_ENV", "prod")
	if got := ResolvePath(""); got != DefaultPath {
		t.Fatalf("expected default path without env file, got %s", got)
	}

	if err := os.MkdirAll("config", 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile("config/config.production.yml", []byte("{}"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := ResolvePath(""); got != "config/config.production.yml" {
		t.Fatalf("expected production path, got %s", got)
	}
}
