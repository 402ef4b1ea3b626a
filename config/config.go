package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"liqwatch/internal/model"
)

// DefaultPath is the configuration file read when -config is not given.
const DefaultPath = "config/config.yml"

const (
	DefaultLiquidationURL  = "https://api.coinalyze.net/v1/liquidation-history"
	DefaultOpenInterestURL = "https://api.coinalyze.net/v1/open-interest-history"
	DefaultMarketsURL      = "https://api.coinalyze.net/v1/future-markets"
	DefaultTTSURL          = "https://translate.google.com/translate_tts"
	DefaultSymbol          = "BTCUSD.6"
)

// Speech modes.
const (
	SpeechModeSpeech = "speech"
	SpeechModeTone   = "tone"
	SpeechModeOff    = "off"
)

type Config struct {
	App       AppConfig       `yaml:"app"`
	API       APIConfig       `yaml:"api"`
	Poll      PollConfig      `yaml:"poll"`
	Symbols   SymbolsConfig   `yaml:"symbols"`
	Detector  DetectorConfig  `yaml:"detector"`
	Speech    SpeechConfig    `yaml:"speech"`
	Console   ConsoleConfig   `yaml:"console"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Dashboard DashboardConfig `yaml:"dashboard"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type AppConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

type APIConfig struct {
	Key             string          `yaml:"key"`
	LiquidationURL  string          `yaml:"liquidation_url"`
	OpenInterestURL string          `yaml:"open_interest_url"`
	MarketsURL      string          `yaml:"markets_url"`
	Timeout         time.Duration   `yaml:"timeout"`
	UserAgent       string          `yaml:"user_agent"`
	RateLimit       RateLimitConfig `yaml:"rate_limit"`
}

type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute"`
	BurstSize         int `yaml:"burst_size"`
}

type PollConfig struct {
	LookbackMinutes   int           `yaml:"lookback_minutes"`
	Interval          string        `yaml:"interval"`
	LiquidationSleep  time.Duration `yaml:"liquidation_sleep"`
	OpenInterestSleep time.Duration `yaml:"open_interest_sleep"`
	ReportInterval    time.Duration `yaml:"report_interval"`
}

// Lookback returns the request window length.
func (p PollConfig) Lookback() time.Duration {
	return time.Duration(p.LookbackMinutes) * time.Minute
}

type SymbolsConfig struct {
	List            []string `yaml:"list"`
	DiscoveryPrefix string   `yaml:"discovery_prefix"`
}

type DetectorConfig struct {
	Liquidation   LiquidationRuleConfig  `yaml:"liquidation"`
	OpenInterest  OpenInterestRuleConfig `yaml:"open_interest"`
	SeenRetention time.Duration          `yaml:"seen_retention"`
}

type LiquidationRuleConfig struct {
	Enabled bool `yaml:"enabled"`
	Minimal int  `yaml:"minimal"`
}

type OpenInterestRuleConfig struct {
	Enabled          bool `yaml:"enabled"`
	Minimal          int  `yaml:"minimal"`
	RoundingExponent int  `yaml:"rounding_exponent"`
}

type SpeechConfig struct {
	Mode       string        `yaml:"mode"`
	TTSURL     string        `yaml:"tts_url"`
	Language   string        `yaml:"language"`
	Player     string        `yaml:"player"`
	PlayerArgs []string      `yaml:"player_args"`
	TempDir    string        `yaml:"temp_dir"`
	QueueSize  int           `yaml:"queue_size"`
	Timeout    time.Duration `yaml:"timeout"`
}

type ConsoleConfig struct {
	StatusLine bool `yaml:"status_line"`
	StatusRow  int  `yaml:"status_row"`
	StatusCol  int  `yaml:"status_col"`
}

type MetricsConfig struct {
	CloudWatch CloudWatchConfig `yaml:"cloudwatch"`
}

type CloudWatchConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Region    string `yaml:"region"`
	Namespace string `yaml:"namespace"`
}

// DashboardConfig controls the optional JSON status server.
type DashboardConfig struct {
	Enabled        bool   `yaml:"enabled"`
	Address        string `yaml:"address"`
	MetricsHistory int    `yaml:"metrics_history"`
	LogHistory     int    `yaml:"log_history"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
	MaxAge int    `yaml:"max_age"`
}

// Default returns the configuration used when neither the file nor the
// environment set a value.
func Default() Config {
	return Config{
		App: AppConfig{Name: "liqwatch", Version: "dev"},
		API: APIConfig{
			LiquidationURL:  DefaultLiquidationURL,
			OpenInterestURL: DefaultOpenInterestURL,
			MarketsURL:      DefaultMarketsURL,
			Timeout:         30 * time.Second,
			UserAgent:       "liqwatch",
			RateLimit:       RateLimitConfig{RequestsPerMinute: 40, BurstSize: 1},
		},
		Poll: PollConfig{
			LookbackMinutes:   6,
			Interval:          "5min",
			LiquidationSleep:  2 * time.Second,
			OpenInterestSleep: 2 * time.Second,
			ReportInterval:    5 * time.Minute,
		},
		Symbols: SymbolsConfig{List: []string{DefaultSymbol}},
		Detector: DetectorConfig{
			Liquidation:   LiquidationRuleConfig{Enabled: true, Minimal: 10_000},
			OpenInterest:  OpenInterestRuleConfig{Enabled: false, Minimal: 1_000_000, RoundingExponent: -6},
			SeenRetention: time.Hour,
		},
		Speech: SpeechConfig{
			Mode:       SpeechModeSpeech,
			TTSURL:     DefaultTTSURL,
			Language:   "en",
			Player:     "mpg123",
			PlayerArgs: []string{"-q"},
			TempDir:    os.TempDir(),
			QueueSize:  16,
			Timeout:    15 * time.Second,
		},
		Console: ConsoleConfig{StatusLine: true, StatusRow: 100, StatusCol: 0},
		Metrics: MetricsConfig{CloudWatch: CloudWatchConfig{Namespace: "Liqwatch"}},
		Dashboard: DashboardConfig{
			Address:        "127.0.0.1:8080",
			MetricsHistory: 200,
			LogHistory:     200,
		},
		Logging: LoggingConfig{Level: "info", Format: "text", Output: "stderr"},
	}
}

// LoadConfig reads the YAML file at path over the defaults, applies
// environment overrides and validates the result. A missing file is not an
// error.
func LoadConfig(path string) (*Config, error) {
	config := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := applyEnv(&config); err != nil {
		return nil, fmt.Errorf("invalid environment override: %w", err)
	}

	normalize(&config)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

func normalize(cfg *Config) {
	cfg.API.Key = strings.TrimSpace(cfg.API.Key)
	cfg.Symbols.DiscoveryPrefix = strings.TrimSpace(cfg.Symbols.DiscoveryPrefix)
	cfg.Speech.Mode = strings.ToLower(strings.TrimSpace(cfg.Speech.Mode))

	symbols := make([]string, 0, len(cfg.Symbols.List))
	for _, s := range cfg.Symbols.List {
		if s = strings.TrimSpace(s); s != "" {
			symbols = append(symbols, s)
		}
	}
	cfg.Symbols.List = symbols
}

func validateConfig(cfg *Config) error {
	if cfg.API.Key == "" {
		return fmt.Errorf("api.key (SECRET_API_KEY) is required")
	}

	if !cfg.Detector.Liquidation.Enabled && !cfg.Detector.OpenInterest.Enabled {
		return fmt.Errorf("at least one of detector.liquidation and detector.open_interest must be enabled")
	}
	if cfg.Detector.Liquidation.Enabled && cfg.API.LiquidationURL == "" {
		return fmt.Errorf("api.liquidation_url is required when liquidations are enabled")
	}
	if cfg.Detector.OpenInterest.Enabled && cfg.API.OpenInterestURL == "" {
		return fmt.Errorf("api.open_interest_url is required when open interest is enabled")
	}
	if cfg.Detector.Liquidation.Minimal < 0 || cfg.Detector.OpenInterest.Minimal < 0 {
		return fmt.Errorf("detector thresholds must not be negative")
	}
	if e := cfg.Detector.OpenInterest.RoundingExponent; e < -18 || e > 18 {
		return fmt.Errorf("detector.open_interest.rounding_exponent must be between -18 and 18, got %d", e)
	}

	if cfg.API.RateLimit.RequestsPerMinute < 0 {
		return fmt.Errorf("api.rate_limit.requests_per_minute must not be negative")
	}

	if cfg.Poll.LookbackMinutes <= 0 {
		return fmt.Errorf("poll.lookback_minutes must be greater than 0")
	}
	interval, err := model.ParseInterval(cfg.Poll.Interval)
	if err != nil {
		return fmt.Errorf("poll.interval: %w", err)
	}
	if cfg.Poll.LiquidationSleep <= 0 || cfg.Poll.OpenInterestSleep <= 0 {
		return fmt.Errorf("poll sleep intervals must be greater than 0")
	}

	if r := cfg.Detector.SeenRetention; r != 0 {
		minRetention := 2 * (cfg.Poll.Lookback() + interval)
		if r < minRetention {
			return fmt.Errorf("detector.seen_retention must be 0 or at least %s, got %s", minRetention, r)
		}
	}

	if len(cfg.Symbols.List) == 0 && cfg.Symbols.DiscoveryPrefix == "" {
		return fmt.Errorf("symbols.list or symbols.discovery_prefix is required")
	}
	if cfg.Symbols.DiscoveryPrefix != "" && cfg.API.MarketsURL == "" {
		return fmt.Errorf("api.markets_url is required for symbol discovery")
	}

	switch cfg.Speech.Mode {
	case SpeechModeSpeech:
		if cfg.Speech.TTSURL == "" || cfg.Speech.Player == "" {
			return fmt.Errorf("speech.tts_url and speech.player are required in speech mode")
		}
	case SpeechModeTone, SpeechModeOff:
	default:
		return fmt.Errorf("speech.mode '%s' is invalid", cfg.Speech.Mode)
	}
	if cfg.Speech.QueueSize <= 0 {
		return fmt.Errorf("speech.queue_size must be greater than 0")
	}

	if cfg.Dashboard.Enabled && (cfg.Dashboard.MetricsHistory <= 0 || cfg.Dashboard.LogHistory <= 0) {
		return fmt.Errorf("dashboard history sizes must be greater than 0")
	}

	switch cfg.Logging.Format {
	case "json", "text", "":
	default:
		return fmt.Errorf("logging.format '%s' is invalid", cfg.Logging.Format)
	}

	return nil
}
