package dedup

import (
	"testing"
	"time"

	"liqwatch/internal/model"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func liqKey(t int64, amount float64) model.Key {
	return model.Key{Time: t, Kind: model.KindLiquidation, Direction: model.DirectionLong, Amount: amount}
}

func TestStoreContainsAfterAdd(t *testing.T) {
	s := NewStore(0)
	k := liqKey(1000, 15000)
	if s.Contains(k) {
		t.Fatal("empty store reported key as present")
	}
	s.Add(k)
	if !s.Contains(k) {
		t.Fatal("key missing after Add")
	}
	if s.Contains(liqKey(1000, 15000.5)) {
		t.Fatal("different amount must be a different key")
	}
	if s.Len() != 1 {
		t.Fatalf("Len = %d, want 1", s.Len())
	}
}

func TestStoreWithoutRetentionNeverEvicts(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_000_000, 0)}
	s := NewStore(0, WithClock(clock.Now), WithSweepInterval(0))
	s.Add(liqKey(1, 20000))
	clock.now = clock.now.Add(24 * time.Hour)
	s.Add(liqKey(2, 20000))
	if !s.Contains(liqKey(1, 20000)) {
		t.Fatal("key evicted with retention disabled")
	}
}

func TestStoreEvictsKeysOlderThanRetention(t *testing.T) {
	clock := &fakeClock{now: time.Unix(10_000, 0)}
	s := NewStore(time.Hour, WithClock(clock.Now), WithSweepInterval(time.Minute))

	old := liqKey(10_000-2*3600, 20000)
	recent := liqKey(10_000-600, 20000)
	s.Add(old)
	s.Add(recent)

	clock.now = clock.now.Add(2 * time.Minute)
	fresh := liqKey(clock.now.Unix(), 30000)
	s.Add(fresh)

	if s.Contains(old) {
		t.Fatal("expired key still present")
	}
	if !s.Contains(recent) || !s.Contains(fresh) {
		t.Fatal("key inside retention window was evicted")
	}
	if s.Evicted() != 1 {
		t.Fatalf("Evicted = %d, want 1", s.Evicted())
	}
}

func TestStoreSweepIsRateLimited(t *testing.T) {
	clock := &fakeClock{now: time.Unix(10_000, 0)}
	s := NewStore(time.Hour, WithClock(clock.Now), WithSweepInterval(time.Minute))

	old := liqKey(1, 20000)
	s.Add(old)
	clock.now = clock.now.Add(30 * time.Second)
	s.Add(liqKey(clock.now.Unix(), 20000))

	if !s.Contains(old) {
		t.Fatal("sweep ran before the sweep interval elapsed")
	}
}
