package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// applyEnv overlays the process environment on cfg. Unset variables leave the
// file or default value in place; malformed values are errors.
func applyEnv(cfg *Config) error {
	envString("SECRET_API_KEY", &cfg.API.Key)
	envString("URL", &cfg.API.LiquidationURL)
	envString("OPEN_INTEREST_URL", &cfg.API.OpenInterestURL)
	envString("MARKETS_URL", &cfg.API.MarketsURL)
	envString("INTERVAL", &cfg.Poll.Interval)
	envString("SYMBOL_PREFIX", &cfg.Symbols.DiscoveryPrefix)
	envString("TEMP_AUDIO_DIR", &cfg.Speech.TempDir)
	envString("SPEECH_MODE", &cfg.Speech.Mode)
	envString("LOG_LEVEL", &cfg.Logging.Level)
	envString("DASHBOARD_ADDR", &cfg.Dashboard.Address)

	if v, ok := lookup("SYMBOLS"); ok {
		cfg.Symbols.List = strings.Split(v, ",")
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"N_MINUTES_TIMEDELTA", &cfg.Poll.LookbackMinutes},
		{"MINIMAL_LIQUIDATION", &cfg.Detector.Liquidation.Minimal},
		{"MINIMAL_OPEN_INTEREST", &cfg.Detector.OpenInterest.Minimal},
		{"ROUNDING_EXPONENT", &cfg.Detector.OpenInterest.RoundingExponent},
	}
	for _, e := range ints {
		if err := envInt(e.key, e.dst); err != nil {
			return err
		}
	}

	if v, ok := lookup("SLEEP_INTERVAL"); ok {
		secs, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("SLEEP_INTERVAL: %q is not a number of seconds", v)
		}
		d := time.Duration(secs * float64(time.Second))
		cfg.Poll.LiquidationSleep = d
		cfg.Poll.OpenInterestSleep = d
	}

	bools := []struct {
		key string
		dst *bool
	}{
		{"LIQUIDATION_ENABLED", &cfg.Detector.Liquidation.Enabled},
		{"OPEN_INTEREST_ENABLED", &cfg.Detector.OpenInterest.Enabled},
		{"DASHBOARD_ENABLED", &cfg.Dashboard.Enabled},
	}
	for _, e := range bools {
		if err := envBool(e.key, e.dst); err != nil {
			return err
		}
	}
	return nil
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func envString(key string, dst *string) {
	if v, ok := lookup(key); ok {
		*dst = v
	}
}

func envInt(key string, dst *int) error {
	v, ok := lookup(key)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %q is not an integer", key, v)
	}
	*dst = n
	return nil
}

func envBool(key string, dst *bool) error {
	v, ok := lookup(key)
	if !ok {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s: %q is not a boolean", key, v)
	}
	*dst = b
	return nil
}
