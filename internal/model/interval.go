package model

import (
	"fmt"
	"time"
)

var intervals = map[string]time.Duration{
	"1min":   time.Minute,
	"5min":   5 * time.Minute,
	"15min":  15 * time.Minute,
	"30min":  30 * time.Minute,
	"1hour":  time.Hour,
	"2hour":  2 * time.Hour,
	"4hour":  4 * time.Hour,
	"6hour":  6 * time.Hour,
	"12hour": 12 * time.Hour,
	"daily":  24 * time.Hour,
}

// ParseInterval converts a candle granularity such as "5min" into its duration.
func ParseInterval(s string) (time.Duration, error) {
	d, ok := intervals[s]
	if !ok {
		return 0, fmt.Errorf("unknown interval %q", s)
	}
	return d, nil
}
