package model

import "time"

// Key identifies an announced event. Two observations are the same event
// only when every field is equal.
type Key struct {
	Time      int64
	Kind      Kind
	Direction Direction
	Amount    float64
}

// EventTime returns the candle time the key belongs to.
func (k Key) EventTime() time.Time {
	return time.Unix(k.Time, 0)
}

// Event is a new, above-threshold observation that has been announced.
type Event struct {
	ID        string
	Kind      Kind
	Direction Direction
	Symbol    string
	Time      time.Time
	// Amount is the raw liquidated amount, or the raw high-low difference
	// for open interest.
	Amount float64
	// Rounded is the coalesced open-interest difference. Zero for liquidations.
	Rounded int64
	Key     Key
}
