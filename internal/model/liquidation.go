package model

import "time"

// LiquidationCandle is one bucket of the liquidation history. Amounts are
// the liquidated notional on each side for the bucket.
type LiquidationCandle struct {
	Time  int64   `json:"t"`
	Long  float64 `json:"l"`
	Short float64 `json:"s"`
}

// Timestamp returns the bucket start as a time.Time.
func (c LiquidationCandle) Timestamp() time.Time {
	return time.Unix(c.Time, 0)
}
