// Package processor turns polled candle batches into announced events.
//
// Every candle is checked against a threshold. Candles that pass produce a
// model.Key; the key is announced only when the seen store does not hold it,
// and it is added to the store right after the announcement. A key is in the
// store if and only if it was announced.
package processor

import (
	"context"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"liqwatch/internal/model"
	"liqwatch/logger"
)

const component = "detector"

// SeenStore remembers announced keys.
type SeenStore interface {
	Contains(key model.Key) bool
	Add(key model.Key)
	Len() int
}

// Announcer publishes a newly detected event. Implementations must not
// block on slow output such as audio playback.
type Announcer interface {
	Announce(ctx context.Context, ev model.Event)
}

// Thresholds holds the significance rules.
type Thresholds struct {
	// MinimalLiquidation is exclusive: an amount must exceed it.
	MinimalLiquidation int
	// MinimalOpenInterest is inclusive.
	MinimalOpenInterest int
	// RoundingExponent coalesces open-interest differences to multiples
	// of 10^-RoundingExponent, ties to even.
	RoundingExponent int
}

// Stats are cumulative detector counters.
type Stats struct {
	Candles        int64
	Announced      int64
	Duplicates     int64
	BelowThreshold int64
	SeenKeys       int
}

type Detector struct {
	thresholds Thresholds
	store      SeenStore
	announcer  Announcer
	log        *logger.Log

	candles        atomic.Int64
	announced      atomic.Int64
	duplicates     atomic.Int64
	belowThreshold atomic.Int64
}

func NewDetector(thresholds Thresholds, store SeenStore, announcer Announcer) *Detector {
	return &Detector{
		thresholds: thresholds,
		store:      store,
		announcer:  announcer,
		log:        logger.GetLogger(),
	}
}

// ProcessLiquidations checks the long and short side of every candle and
// returns the events announced for this batch.
func (d *Detector) ProcessLiquidations(ctx context.Context, symbol string, candles []model.LiquidationCandle) []model.Event {
	minimal := float64(d.thresholds.MinimalLiquidation)
	var events []model.Event

	for _, c := range candles {
		d.candles.Add(1)
		sides := []struct {
			direction model.Direction
			amount    float64
		}{
			{model.DirectionLong, c.Long},
			{model.DirectionShort, c.Short},
		}
		for _, side := range sides {
			if !(side.amount > minimal) {
				d.belowThreshold.Add(1)
				continue
			}
			key := model.Key{
				Time:      c.Time,
				Kind:      model.KindLiquidation,
				Direction: side.direction,
				Amount:    side.amount,
			}
			if ev, ok := d.consider(ctx, symbol, key, side.amount, 0); ok {
				events = append(events, ev)
			}
		}
	}

	d.logFlow(symbol, model.KindLiquidation, len(candles), len(events))
	return events
}

// ProcessOpenInterest checks the high-low spread of every candle and returns
// the events announced for this batch.
func (d *Detector) ProcessOpenInterest(ctx context.Context, symbol string, candles []model.OpenInterestCandle) []model.Event {
	minimal := int64(d.thresholds.MinimalOpenInterest)
	var events []model.Event

	for _, c := range candles {
		d.candles.Add(1)
		diff := decimal.NewFromFloat(c.High).Sub(decimal.NewFromFloat(c.Low)).Abs().IntPart()
		if diff < minimal {
			d.belowThreshold.Add(1)
			continue
		}
		rounded := RoundAmount(diff, d.thresholds.RoundingExponent)
		key := model.Key{
			Time:      c.Time,
			Kind:      model.KindOpenInterest,
			Direction: model.DirectionNone,
			Amount:    float64(rounded),
		}
		if ev, ok := d.consider(ctx, symbol, key, float64(diff), rounded); ok {
			events = append(events, ev)
		}
	}

	d.logFlow(symbol, model.KindOpenInterest, len(candles), len(events))
	return events
}

// RoundAmount rounds v to the nearest multiple of 10^-exponent with ties to
// even, so RoundAmount(2500000, -6) is 2000000.
func RoundAmount(v int64, exponent int) int64 {
	return decimal.NewFromInt(v).RoundBank(int32(exponent)).IntPart()
}

func (d *Detector) consider(ctx context.Context, symbol string, key model.Key, amount float64, rounded int64) (model.Event, bool) {
	if d.store.Contains(key) {
		d.duplicates.Add(1)
		return model.Event{}, false
	}

	ev := model.Event{
		ID:        uuid.New().String(),
		Kind:      key.Kind,
		Direction: key.Direction,
		Symbol:    symbol,
		Time:      key.EventTime(),
		Amount:    amount,
		Rounded:   rounded,
		Key:       key,
	}
	d.announcer.Announce(ctx, ev)
	d.store.Add(key)
	d.announced.Add(1)

	d.log.WithComponent(component).WithFields(logger.Fields{
		"event_id":  ev.ID,
		"kind":      ev.Kind,
		"direction": ev.Direction,
		"symbol":    symbol,
		"amount":    amount,
		"candle_ts": key.Time,
	}).Debug("event announced")

	return ev, true
}

func (d *Detector) logFlow(symbol string, kind model.Kind, candles, announced int) {
	if candles == 0 {
		return
	}
	logger.LogDataFlowEntry(d.log.WithComponent(component).WithFields(logger.Fields{
		"symbol":  symbol,
		"candles": candles,
	}), "coinalyze", "notifier", announced, string(kind))
}

// Stats returns a snapshot of the counters.
func (d *Detector) Stats() Stats {
	return Stats{
		Candles:        d.candles.Load(),
		Announced:      d.announced.Load(),
		Duplicates:     d.duplicates.Load(),
		BelowThreshold: d.belowThreshold.Load(),
		SeenKeys:       d.store.Len(),
	}
}
