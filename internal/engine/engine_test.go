package engine

import (
	"context"
	"testing"
	"time"

	"github.com/MRamiBalles/DefiCity/server/internal/domain/catalog"
	"github.com/MRamiBalles/DefiCity/server/internal/events"
	"github.com/MRamiBalles/DefiCity/server/internal/platform/logger"
	"github.com/MRamiBalles/DefiCity/server/internal/platform/metrics"
)

func fastSettings() Settings {
	s := DefaultSettings()
	s.TickInterval = 5 * time.Millisecond
	s.EventInterval = 5 * time.Millisecond
	return s
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestEngineRunsBothTimers(t *testing.T) {
	el := events.NewEventLog(nil)
	store := NewStore(catalog.Default(), fastSettings(), WithEventLog(el), WithMetrics(metrics.New()), WithSeed(7))
	if _, err := store.PlaceBuilding(0, 0, "stablecoin"); err != nil {
		t.Fatalf("PlaceBuilding: %v", err)
	}

	eng := NewEngine(store, logger.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	eng.Start(ctx)

	waitFor(t, "a harvest", func() bool { return len(el.GetByType(events.EventTypeYieldTick)) > 0 })
	waitFor(t, "a market event", func() bool { return len(el.GetByType(events.EventTypeMarketEventStarted)) > 0 })

	eng.Stop()
	eng.Stop()
	eng.Wait()

	if eng.Ticker().TickNumber() == 0 {
		t.Errorf("clock never fired")
	}
	if store.State().Tokens <= 920 {
		t.Errorf("tokens = %d, want growth past 920", store.State().Tokens)
	}
}

func TestEngineStopsOnContextCancel(t *testing.T) {
	store := NewStore(catalog.Default(), fastSettings(), WithMetrics(metrics.New()))
	eng := NewEngine(store, logger.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		eng.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("engine did not stop after cancel")
	}
}

func TestTickerOnTickCallback(t *testing.T) {
	store := NewStore(catalog.Default(), fastSettings(), WithMetrics(metrics.New()))
	ticker := NewTicker(store, logger.Discard())

	reports := make(chan TickReport, 16)
	ticker.OnTick(func(r TickReport) {
		select {
		case reports <- r:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ticker.Start(ctx)
	defer ticker.Stop()

	select {
	case r := <-reports:
		if r.At.IsZero() {
			t.Errorf("report without timestamp")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no tick report")
	}
}

func TestSchedulerFireIsNoOpWhileActive(t *testing.T) {
	store, _ := newTestStore(t, nil, DefaultSettings())
	sched := NewScheduler(store, logger.Discard())

	sched.fire()
	first := store.ActiveEvent()
	if first == nil {
		t.Fatal("scheduler should activate an event")
	}
	sched.fire()
	second := store.ActiveEvent()
	if second.Event != first.Event || second.Remaining != first.Remaining {
		t.Errorf("second firing replaced the active event: %+v -> %+v", first, second)
	}
}
