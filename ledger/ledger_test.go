package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"ytinsight/storage"
)

// clock is a settable time source.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// brokenStore fails every operation.
type brokenStore struct{}

var errBroken = errors.New("store offline")

func (brokenStore) Get(context.Context, string) ([]byte, error) { return nil, errBroken }
func (brokenStore) Set(context.Context, string, []byte) error   { return errBroken }
func (brokenStore) Delete(context.Context, string) error        { return errBroken }
func (brokenStore) Close() error                                { return nil }

func TestChargeAccumulates(t *testing.T) {
	ctx := context.Background()
	clk := &clock{t: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}
	l := New(storage.NewMemoryStore(), Options{Location: time.UTC, Now: clk.Now})

	l.Charge(ctx, 100)
	u := l.Charge(ctx, 1)

	if u.UnitsUsed != 101 {
		t.Errorf("UnitsUsed = %d, want 101", u.UnitsUsed)
	}
	if u.Date != "2026-03-10" {
		t.Errorf("Date = %q, want 2026-03-10", u.Date)
	}
	if u.Remaining() != DefaultDailyLimit-101 {
		t.Errorf("Remaining() = %d", u.Remaining())
	}
}

func TestCurrentUsageResetsOnNewDay(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	raw, _ := json.Marshal(entry{Date: "2026-03-09", UnitsUsed: 9000})
	store.Set(ctx, quotaKey, raw)

	clk := &clock{t: time.Date(2026, 3, 10, 0, 5, 0, 0, time.UTC)}
	l := New(store, Options{Location: time.UTC, Now: clk.Now})

	u := l.CurrentUsage(ctx)
	if u.UnitsUsed != 0 || u.Date != "2026-03-10" {
		t.Fatalf("CurrentUsage() = %+v, want 0 units on 2026-03-10", u)
	}

	stored, err := store.Get(ctx, quotaKey)
	if err != nil {
		t.Fatalf("reset not persisted: %v", err)
	}
	var e entry
	json.Unmarshal(stored, &e)
	if e.Date != "2026-03-10" || e.UnitsUsed != 0 {
		t.Errorf("persisted entry = %+v", e)
	}
}

func TestChargeRollsOverAtMidnight(t *testing.T) {
	ctx := context.Background()
	clk := &clock{t: time.Date(2026, 3, 10, 23, 59, 0, 0, time.UTC)}
	l := New(storage.NewMemoryStore(), Options{Location: time.UTC, Now: clk.Now})

	l.Charge(ctx, 500)
	clk.Advance(2 * time.Minute)
	u := l.Charge(ctx, 1)

	if u.UnitsUsed != 1 || u.Date != "2026-03-11" {
		t.Errorf("after midnight Charge() = %+v, want 1 unit on 2026-03-11", u)
	}
}

func TestLedgerLocationDecidesDate(t *testing.T) {
	ctx := context.Background()
	tokyo := time.FixedZone("JST", 9*3600)
	clk := &clock{t: time.Date(2026, 3, 10, 20, 0, 0, 0, time.UTC)}
	l := New(storage.NewMemoryStore(), Options{Location: tokyo, Now: clk.Now})

	if got := l.CurrentUsage(ctx).Date; got != "2026-03-11" {
		t.Errorf("Date = %q, want 2026-03-11 in JST", got)
	}
}

func TestChargeNotifiesObservers(t *testing.T) {
	ctx := context.Background()
	l := New(storage.NewMemoryStore(), Options{DailyLimit: 150})

	var seen []Usage
	l.Subscribe(func(u Usage) { seen = append(seen, u) })

	l.Charge(ctx, 100)
	l.Charge(ctx, 100)

	if len(seen) != 2 {
		t.Fatalf("observer called %d times, want 2", len(seen))
	}
	if seen[1].UnitsUsed != 200 || !seen[1].OverBudget() {
		t.Errorf("second notification = %+v, want 200 units over budget", seen[1])
	}
	if seen[0].OverBudget() {
		t.Errorf("first notification over budget at %d/150", seen[0].UnitsUsed)
	}
}

func TestChargeIsAdvisoryWhenOverBudget(t *testing.T) {
	ctx := context.Background()
	l := New(storage.NewMemoryStore(), Options{DailyLimit: 10})

	for i := 0; i < 5; i++ {
		l.Charge(ctx, 100)
	}
	if u := l.CurrentUsage(ctx); u.UnitsUsed != 500 || u.Remaining() != 0 {
		t.Errorf("CurrentUsage() = %+v, want 500 units and 0 remaining", u)
	}
}

func TestChargeConcurrent(t *testing.T) {
	ctx := context.Background()
	l := New(storage.NewMemoryStore(), Options{})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Charge(ctx, 2)
		}()
	}
	wg.Wait()

	if got := l.CurrentUsage(ctx).UnitsUsed; got != 100 {
		t.Errorf("UnitsUsed = %d, want 100", got)
	}
}

func TestLedgerSurvivesStoreFailure(t *testing.T) {
	ctx := context.Background()
	l := New(brokenStore{}, Options{})

	l.Charge(ctx, 100)
	u := l.Charge(ctx, 5)
	if u.UnitsUsed != 105 {
		t.Errorf("UnitsUsed = %d, want 105 from in-memory fallback", u.UnitsUsed)
	}
}

func TestLedgerPersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()

	New(store, Options{}).Charge(ctx, 42)
	if got := New(store, Options{}).CurrentUsage(ctx).UnitsUsed; got != 42 {
		t.Errorf("second ledger sees %d units, want 42", got)
	}
}
