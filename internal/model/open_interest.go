package model

import "time"

// OpenInterestCandle is one bucket of the open-interest history. Note that
// "l" is the low here, while in LiquidationCandle it is the long amount.
type OpenInterestCandle struct {
	Time  int64   `json:"t"`
	Open  float64 `json:"o"`
	High  float64 `json:"h"`
	Low   float64 `json:"l"`
	Close float64 `json:"c"`
}

func (c OpenInterestCandle) Timestamp() time.Time {
	return time.Unix(c.Time, 0)
}
