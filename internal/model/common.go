// internal/model/common.go
package model

import "time"

// Kind identifies which feed produced an event.
type Kind string

const (
	KindLiquidation  Kind = "liquidation"
	KindOpenInterest Kind = "open_interest"
)

// Direction is the liquidated side. Open-interest events carry no direction.
type Direction string

const (
	DirectionLong  Direction = "long"
	DirectionShort Direction = "short"
	DirectionNone  Direction = ""
)

// Window is the [From, To] range requested from a history endpoint.
type Window struct {
	From time.Time
	To   time.Time
}

// NewWindow returns the window ending at now and reaching back lookback.
func NewWindow(now time.Time, lookback time.Duration) Window {
	return Window{From: now.Add(-lookback), To: now}
}
