package processor

import (
	"context"
	"testing"

	"liqwatch/internal/dedup"
	"liqwatch/internal/model"
)

type recordingAnnouncer struct {
	events []model.Event
}

func (r *recordingAnnouncer) Announce(_ context.Context, ev model.Event) {
	r.events = append(r.events, ev)
}

func defaultThresholds() Thresholds {
	return Thresholds{MinimalLiquidation: 10000, MinimalOpenInterest: 1000000, RoundingExponent: -6}
}

func newTestDetector() (*Detector, *recordingAnnouncer, *dedup.Store) {
	ann := &recordingAnnouncer{}
	store := dedup.NewStore(0)
	return NewDetector(defaultThresholds(), store, ann), ann, store
}

func TestProcessLiquidationsAnnouncesLongOnly(t *testing.T) {
	d, ann, store := newTestDetector()
	candles := []model.LiquidationCandle{{Time: 1000, Long: 15000, Short: 500}}

	events := d.ProcessLiquidations(context.Background(), "BTCUSD.6", candles)
	if len(events) != 1 || len(ann.events) != 1 {
		t.Fatalf("expected one announcement, got %d events / %d announced", len(events), len(ann.events))
	}
	ev := events[0]
	if ev.Direction != model.DirectionLong || ev.Amount != 15000 || ev.Symbol != "BTCUSD.6" {
		t.Fatalf("unexpected event: %+v", ev)
	}
	want := model.Key{Time: 1000, Kind: model.KindLiquidation, Direction: model.DirectionLong, Amount: 15000}
	if ev.Key != want || !store.Contains(want) {
		t.Fatalf("key %+v not stored", want)
	}
	if store.Len() != 1 {
		t.Fatalf("below-threshold side touched the store: len=%d", store.Len())
	}
	if ev.ID == "" {
		t.Fatal("event id not set")
	}
}

func TestProcessLiquidationsRepollIsSilent(t *testing.T) {
	d, ann, _ := newTestDetector()
	candles := []model.LiquidationCandle{{Time: 1000, Long: 15000, Short: 500}}

	d.ProcessLiquidations(context.Background(), "BTCUSD.6", candles)
	if events := d.ProcessLiquidations(context.Background(), "BTCUSD.6", candles); len(events) != 0 {
		t.Fatalf("re-poll announced %d events", len(events))
	}
	if len(ann.events) != 1 {
		t.Fatalf("expected one announcement in total, got %d", len(ann.events))
	}
	if st := d.Stats(); st.Duplicates != 1 || st.Announced != 1 || st.Candles != 2 {
		t.Fatalf("unexpected stats: %+v", st)
	}
}

func TestProcessLiquidationsThresholdIsStrict(t *testing.T) {
	d, ann, store := newTestDetector()
	d.ProcessLiquidations(context.Background(), "BTCUSD.6", []model.LiquidationCandle{{Time: 1, Long: 10000, Short: 10000}})
	if len(ann.events) != 0 || store.Len() != 0 {
		t.Fatalf("amount equal to threshold announced")
	}
	if st := d.Stats(); st.BelowThreshold != 2 {
		t.Fatalf("below threshold = %d", st.BelowThreshold)
	}
}

func TestProcessLiquidationsBothSides(t *testing.T) {
	d, ann, _ := newTestDetector()
	d.ProcessLiquidations(context.Background(), "BTCUSD.6", []model.LiquidationCandle{{Time: 1, Long: 20000, Short: 30000}})
	if len(ann.events) != 2 {
		t.Fatalf("expected long and short announcements, got %d", len(ann.events))
	}
	if ann.events[0].Direction != model.DirectionLong || ann.events[1].Direction != model.DirectionShort {
		t.Fatalf("unexpected order: %+v", ann.events)
	}
}

func TestProcessLiquidationsChangedAmountIsNew(t *testing.T) {
	d, ann, _ := newTestDetector()
	ctx := context.Background()
	d.ProcessLiquidations(ctx, "BTCUSD.6", []model.LiquidationCandle{{Time: 1000, Long: 15000}})
	// the bucket is still filling: the same candle with a larger amount is a new key
	d.ProcessLiquidations(ctx, "BTCUSD.6", []model.LiquidationCandle{{Time: 1000, Long: 15500}})
	if len(ann.events) != 2 {
		t.Fatalf("expected two announcements, got %d", len(ann.events))
	}
}

func TestProcessLiquidationsEmptyBatch(t *testing.T) {
	d, ann, store := newTestDetector()
	if events := d.ProcessLiquidations(context.Background(), "BTCUSD.6", nil); len(events) != 0 {
		t.Fatalf("empty batch produced events")
	}
	if len(ann.events) != 0 || store.Len() != 0 {
		t.Fatal("empty batch touched announcer or store")
	}
}

func TestProcessOpenInterest(t *testing.T) {
	d, ann, store := newTestDetector()
	candles := []model.OpenInterestCandle{{Time: 2000, Open: 5, High: 3000000, Low: 1900000}}

	events := d.ProcessOpenInterest(context.Background(), "BTCUSD.6", candles)
	if len(events) != 1 || len(ann.events) != 1 {
		t.Fatalf("expected one announcement, got %d", len(events))
	}
	want := model.Key{Time: 2000, Kind: model.KindOpenInterest, Direction: model.DirectionNone, Amount: 1000000}
	if events[0].Key != want || !store.Contains(want) {
		t.Fatalf("key = %+v, want %+v", events[0].Key, want)
	}
	if events[0].Amount != 1100000 || events[0].Rounded != 1000000 {
		t.Fatalf("unexpected amounts: raw %v rounded %d", events[0].Amount, events[0].Rounded)
	}

	if again := d.ProcessOpenInterest(context.Background(), "BTCUSD.6", candles); len(again) != 0 {
		t.Fatal("re-poll announced again")
	}
}

func TestProcessOpenInterestThresholdIsInclusive(t *testing.T) {
	d, ann, _ := newTestDetector()
	d.ProcessOpenInterest(context.Background(), "BTCUSD.6", []model.OpenInterestCandle{
		{Time: 1, High: 2000000, Low: 1000000},
		{Time: 2, High: 1999999.9, Low: 1000000},
	})
	if len(ann.events) != 1 || ann.events[0].Key.Time != 1 {
		t.Fatalf("expected only the exact-threshold candle, got %+v", ann.events)
	}
}

func TestProcessOpenInterestCoalescesNearbyDifferences(t *testing.T) {
	d, ann, _ := newTestDetector()
	ctx := context.Background()
	d.ProcessOpenInterest(ctx, "BTCUSD.6", []model.OpenInterestCandle{{Time: 5, High: 3100000, Low: 2000000}})
	d.ProcessOpenInterest(ctx, "BTCUSD.6", []model.OpenInterestCandle{{Time: 5, High: 3200000, Low: 2000000}})
	if len(ann.events) != 1 {
		t.Fatalf("differences rounding to the same value announced %d times", len(ann.events))
	}
}

func TestProcessOpenInterestLowAboveHigh(t *testing.T) {
	d, ann, _ := newTestDetector()
	d.ProcessOpenInterest(context.Background(), "BTCUSD.6", []model.OpenInterestCandle{{Time: 1, High: 1000000, Low: 3000000}})
	if len(ann.events) != 1 || ann.events[0].Rounded != 2000000 {
		t.Fatalf("absolute difference not used: %+v", ann.events)
	}
}

func TestRoundAmount(t *testing.T) {
	tests := []struct {
		v        int64
		exponent int
		want     int64
	}{
		{1100000, -6, 1000000},
		{1500000, -6, 2000000},
		{2500000, -6, 2000000},
		{3500000, -6, 4000000},
		{1234567, -3, 1235000},
		{1234567, 0, 1234567},
	}
	for _, tt := range tests {
		if got := RoundAmount(tt.v, tt.exponent); got != tt.want {
			t.Errorf("RoundAmount(%d, %d) = %d, want %d", tt.v, tt.exponent, got, tt.want)
		}
	}
}
