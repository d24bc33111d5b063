// Package engine contains the city loop and simulation logic.
//
// ARCHITECTURAL RULE: timers never touch city state directly.
// They call the Store, which owns every mutation and emits activity events.
package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MRamiBalles/DefiCity/server/internal/platform/logger"
)

// Ticker is the Simulation Clock. Each firing harvests yield into the treasury.
// It does NOT know about prices or events - the Store applies them.
type Ticker struct {
	store      *Store
	logger     *logger.Logger
	interval   time.Duration
	tickNumber atomic.Int64
	stopChan   chan struct{}
	stopOnce   sync.Once
	onTick     func(TickReport)
}

// NewTicker creates a clock firing at the store's tick interval.
func NewTicker(store *Store, log *logger.Logger) *Ticker {
	return &Ticker{
		store:    store,
		logger:   log,
		interval: store.Settings().TickInterval,
		stopChan: make(chan struct{}),
	}
}

// OnTick registers a callback run after every firing. Set it before Start.
func (t *Ticker) OnTick(fn func(TickReport)) {
	t.onTick = fn
}

// Start begins the clock. Call in a goroutine.
func (t *Ticker) Start(ctx context.Context) {
	t.logger.Info("Simulation clock started", "interval", t.interval)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("Simulation clock stopped by context.")
			return
		case <-t.stopChan:
			t.logger.Info("Simulation clock stopped manually.")
			return
		case now := <-ticker.C:
			t.tick(now)
		}
	}
}

// Stop gracefully stops the clock. Safe to call more than once.
func (t *Ticker) Stop() {
	t.stopOnce.Do(func() { close(t.stopChan) })
}

// TickNumber returns how many times the clock has fired.
func (t *Ticker) TickNumber() int64 {
	return t.tickNumber.Load()
}

// tick processes a single firing.
func (t *Ticker) tick(now time.Time) {
	n := t.tickNumber.Add(1)
	report := t.store.Tick(now)

	if report.Harvested > 0 {
		t.logger.Debug("tick",
			"number", n,
			"harvested", report.Harvested,
			"net", report.Net,
			"tokens", report.Tokens,
		)
	}
	if report.EventEnded != "" {
		t.logger.Info("Market event expired", "event", report.EventEnded, "tick", n)
	}
	if t.onTick != nil {
		t.onTick(report)
	}
}
