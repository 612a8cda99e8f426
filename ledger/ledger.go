// Package ledger tracks the daily upstream quota budget and memoizes fetch results.
//
// Both live on top of a storage.Store. A Ledger and a Cache are constructed once per
// process and injected into the fetch pipeline; tests substitute a memory store.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"ytinsight/storage"
)

// DefaultDailyLimit is the upstream platform's default daily quota allowance.
const DefaultDailyLimit = 10000

// quotaKey is the store key of the persisted quota entry.
const quotaKey = "quota:ledger"

const dateLayout = "2006-01-02"

// Usage is a snapshot of the quota counter for one day.
type Usage struct {
	Date       string `json:"date"`
	UnitsUsed  int    `json:"units_used"`
	DailyLimit int    `json:"daily_limit"`
}

// Remaining returns the units left in today's budget (never negative).
func (u Usage) Remaining() int {
	if r := u.DailyLimit - u.UnitsUsed; r > 0 {
		return r
	}
	return 0
}

// OverBudget reports whether today's usage exceeds the daily budget. The ledger
// never blocks a call because of this; it is advisory.
func (u Usage) OverBudget() bool {
	return u.DailyLimit > 0 && u.UnitsUsed > u.DailyLimit
}

// Observer is notified after every change to the counter.
type Observer func(Usage)

// Options configures a Ledger.
type Options struct {
	// DailyLimit is the advisory daily budget (default DefaultDailyLimit).
	DailyLimit int
	// Location decides when the date rolls over (default time.Local).
	Location *time.Location
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// entry is the persisted form of the counter.
type entry struct {
	Date      string `json:"date"`
	UnitsUsed int    `json:"units_used"`
}

// Ledger counts quota units charged today. Charges are serialized by a mutex so
// concurrent runs in one process never lose updates.
type Ledger struct {
	store storage.Store
	limit int
	loc   *time.Location
	now   func() time.Time

	mu        sync.Mutex
	cached    entry // last known state, used when the store is unavailable
	warnedFor string
	observers []Observer
}

// New creates a Ledger persisting its counter in store.
func New(store storage.Store, opts Options) *Ledger {
	l := &Ledger{
		store: store,
		limit: opts.DailyLimit,
		loc:   opts.Location,
		now:   opts.Now,
	}
	if l.limit <= 0 {
		l.limit = DefaultDailyLimit
	}
	if l.loc == nil {
		l.loc = time.Local
	}
	if l.now == nil {
		l.now = time.Now
	}
	return l
}

// Subscribe registers fn to receive every change notification.
func (l *Ledger) Subscribe(fn Observer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.observers = append(l.observers, fn)
}

// CurrentUsage returns today's counter. If the stored entry belongs to an
// earlier date the counter is reset to zero and persisted.
func (l *Ledger) CurrentUsage(ctx context.Context) Usage {
	l.mu.Lock()
	e, rolled := l.loadLocked(ctx)
	if rolled {
		l.saveLocked(ctx, e)
	}
	u := l.usage(e)
	observers := l.observersIfLocked(rolled)
	l.mu.Unlock()

	notify(observers, u)
	return u
}

// Charge adds cost units to today's counter, persists it and notifies observers.
func (l *Ledger) Charge(ctx context.Context, cost int) Usage {
	if cost < 0 {
		cost = 0
	}

	l.mu.Lock()
	e, _ := l.loadLocked(ctx)
	e.UnitsUsed += cost
	l.saveLocked(ctx, e)
	u := l.usage(e)

	if u.OverBudget() && l.warnedFor != u.Date {
		l.warnedFor = u.Date
		log.Warn().Str("component", "ledger").
			Int("units_used", u.UnitsUsed).
			Int("daily_limit", u.DailyLimit).
			Msg("daily quota budget exceeded")
	}
	observers := l.observersIfLocked(true)
	l.mu.Unlock()

	notify(observers, u)
	return u
}

func (l *Ledger) today() string {
	return l.now().In(l.loc).Format(dateLayout)
}

func (l *Ledger) usage(e entry) Usage {
	return Usage{Date: e.Date, UnitsUsed: e.UnitsUsed, DailyLimit: l.limit}
}

// loadLocked reads the persisted entry, falling back to the last known state when
// the store cannot be read. rolled is true when the date changed.
func (l *Ledger) loadLocked(ctx context.Context) (e entry, rolled bool) {
	e = l.cached
	raw, err := l.store.Get(ctx, quotaKey)
	switch {
	case err == nil:
		var stored entry
		if jerr := json.Unmarshal(raw, &stored); jerr != nil {
			log.Warn().Str("component", "ledger").Err(jerr).Msg("discarding unreadable quota entry")
		} else {
			e = stored
		}
	case errors.Is(err, storage.ErrNotFound):
	default:
		log.Warn().Str("component", "ledger").Err(err).Msg("quota store read failed, using in-memory counter")
	}

	if today := l.today(); e.Date != today {
		if e.Date != "" {
			log.Info().Str("component", "ledger").Str("from", e.Date).Str("to", today).Msg("quota counter reset for new day")
		}
		e = entry{Date: today}
		rolled = true
	}
	return e, rolled
}

func (l *Ledger) saveLocked(ctx context.Context, e entry) {
	l.cached = e
	raw, err := json.Marshal(e)
	if err != nil {
		return
	}
	if err := l.store.Set(ctx, quotaKey, raw); err != nil {
		log.Warn().Str("component", "ledger").Err(err).Msg("quota store write failed")
	}
}

func (l *Ledger) observersIfLocked(changed bool) []Observer {
	if !changed || len(l.observers) == 0 {
		return nil
	}
	out := make([]Observer, len(l.observers))
	copy(out, l.observers)
	return out
}

func notify(observers []Observer, u Usage) {
	for _, fn := range observers {
		fn(u)
	}
}
