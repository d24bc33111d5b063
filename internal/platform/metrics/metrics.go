// Package metrics provides observability for the city server.
package metrics

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Collector gathers performance and economy metrics.
type Collector struct {
	// Tick metrics
	TickCount      int64
	TickLatencySum int64 // nanoseconds
	TickLatencyMax int64
	LastTickTime   time.Time

	// Economy
	YieldTotal       int64
	MaintenanceTotal int64
	ActionsAccepted  int64
	ActionsRejected  int64
	MarketEvents     int64

	// Ledger metrics
	LedgerWrites      int64
	LedgerWriteLatSum int64
	LedgerWriteLatMax int64
	LedgerWriteErrors int64

	// WebSocket metrics
	WSConnectionsActive int64
	WSMessagesIn        int64
	WSMessagesOut       int64
	WSErrors            int64

	// System
	StartTime time.Time
	mu        sync.RWMutex
}

// Global collector instance
var collector = New()

// New creates a standalone collector. Tests use this instead of the global one.
func New() *Collector {
	return &Collector{StartTime: time.Now()}
}

// Get returns the global collector.
func Get() *Collector {
	return collector
}

func storeMax(addr *int64, v int64) {
	for {
		cur := atomic.LoadInt64(addr)
		if v <= cur || atomic.CompareAndSwapInt64(addr, cur, v) {
			return
		}
	}
}

// RecordTick records a Simulation Clock firing and its treasury effect.
func (c *Collector) RecordTick(latency time.Duration, yield, maintenance int) {
	atomic.AddInt64(&c.TickCount, 1)
	atomic.AddInt64(&c.TickLatencySum, int64(latency))
	storeMax(&c.TickLatencyMax, int64(latency))
	atomic.AddInt64(&c.YieldTotal, int64(yield))
	atomic.AddInt64(&c.MaintenanceTotal, int64(maintenance))

	c.mu.Lock()
	c.LastTickTime = time.Now()
	c.mu.Unlock()
}

// RecordAction records a place/upgrade/sell attempt.
func (c *Collector) RecordAction(err error) {
	if err != nil {
		atomic.AddInt64(&c.ActionsRejected, 1)
		return
	}
	atomic.AddInt64(&c.ActionsAccepted, 1)
}

// RecordMarketEvent records an economic event activation.
func (c *Collector) RecordMarketEvent() {
	atomic.AddInt64(&c.MarketEvents, 1)
}

// RecordLedgerWrite records a journal write to the database.
func (c *Collector) RecordLedgerWrite(latency time.Duration, err error) {
	atomic.AddInt64(&c.LedgerWrites, 1)
	atomic.AddInt64(&c.LedgerWriteLatSum, int64(latency))
	storeMax(&c.LedgerWriteLatMax, int64(latency))

	if err != nil {
		atomic.AddInt64(&c.LedgerWriteErrors, 1)
	}
}

// RecordWSConnection records WebSocket connection changes.
func (c *Collector) RecordWSConnection(delta int64) {
	atomic.AddInt64(&c.WSConnectionsActive, delta)
}

// RecordWSMessage records WebSocket messages.
func (c *Collector) RecordWSMessage(incoming bool) {
	if incoming {
		atomic.AddInt64(&c.WSMessagesIn, 1)
	} else {
		atomic.AddInt64(&c.WSMessagesOut, 1)
	}
}

// RecordWSError records a WebSocket error.
func (c *Collector) RecordWSError() {
	atomic.AddInt64(&c.WSErrors, 1)
}

// Snapshot returns current metrics as a map.
func (c *Collector) Snapshot() map[string]interface{} {
	c.mu.RLock()
	lastTick := c.LastTickTime
	c.mu.RUnlock()

	tickCount := atomic.LoadInt64(&c.TickCount)
	ledgerWrites := atomic.LoadInt64(&c.LedgerWrites)

	var tickAvg, ledgerAvg float64
	if tickCount > 0 {
		tickAvg = float64(atomic.LoadInt64(&c.TickLatencySum)) / float64(tickCount) / 1e6 // ms
	}
	if ledgerWrites > 0 {
		ledgerAvg = float64(atomic.LoadInt64(&c.LedgerWriteLatSum)) / float64(ledgerWrites) / 1e6
	}

	return map[string]interface{}{
		"uptime_seconds": time.Since(c.StartTime).Seconds(),

		"tick": map[string]interface{}{
			"count":          tickCount,
			"avg_latency_ms": tickAvg,
			"max_latency_ms": float64(atomic.LoadInt64(&c.TickLatencyMax)) / 1e6,
			"last_tick":      lastTick.Format(time.RFC3339),
		},

		"economy": map[string]interface{}{
			"yield_total":       atomic.LoadInt64(&c.YieldTotal),
			"maintenance_total": atomic.LoadInt64(&c.MaintenanceTotal),
			"actions_accepted":  atomic.LoadInt64(&c.ActionsAccepted),
			"actions_rejected":  atomic.LoadInt64(&c.ActionsRejected),
			"market_events":     atomic.LoadInt64(&c.MarketEvents),
		},

		"ledger": map[string]interface{}{
			"written":          ledgerWrites,
			"avg_write_lat_ms": ledgerAvg,
			"max_write_lat_ms": float64(atomic.LoadInt64(&c.LedgerWriteLatMax)) / 1e6,
			"errors":           atomic.LoadInt64(&c.LedgerWriteErrors),
		},

		"websocket": map[string]interface{}{
			"active_connections": atomic.LoadInt64(&c.WSConnectionsActive),
			"messages_in":        atomic.LoadInt64(&c.WSMessagesIn),
			"messages_out":       atomic.LoadInt64(&c.WSMessagesOut),
			"errors":             atomic.LoadInt64(&c.WSErrors),
		},
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.HandlerFunc {
	return collector.Handler()
}

// PrometheusHandler returns the global metrics in Prometheus format.
func PrometheusHandler() http.HandlerFunc {
	return collector.PrometheusHandler()
}

// Handler serves the collector snapshot as JSON.
func (c *Collector) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache")
		json.NewEncoder(w).Encode(c.Snapshot())
	}
}

// PrometheusHandler serves the collector in Prometheus text format.
func (c *Collector) PrometheusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")

		// Tick metrics
		fmt.Fprintf(w, "# HELP deficity_tick_count Total Simulation Clock firings\n")
		fmt.Fprintf(w, "# TYPE deficity_tick_count counter\n")
		fmt.Fprintf(w, "deficity_tick_count %d\n\n", atomic.LoadInt64(&c.TickCount))

		fmt.Fprintf(w, "# HELP deficity_tick_latency_max_ms Maximum tick latency\n")
		fmt.Fprintf(w, "# TYPE deficity_tick_latency_max_ms gauge\n")
		fmt.Fprintf(w, "deficity_tick_latency_max_ms %.2f\n\n", float64(atomic.LoadInt64(&c.TickLatencyMax))/1e6)

		// Economy
		fmt.Fprintf(w, "# HELP deficity_tokens_total Tokens harvested and spent on upkeep\n")
		fmt.Fprintf(w, "# TYPE deficity_tokens_total counter\n")
		fmt.Fprintf(w, "deficity_tokens_total{flow=\"yield\"} %d\n", atomic.LoadInt64(&c.YieldTotal))
		fmt.Fprintf(w, "deficity_tokens_total{flow=\"maintenance\"} %d\n\n", atomic.LoadInt64(&c.MaintenanceTotal))

		fmt.Fprintf(w, "# HELP deficity_actions_total Player actions by outcome\n")
		fmt.Fprintf(w, "# TYPE deficity_actions_total counter\n")
		fmt.Fprintf(w, "deficity_actions_total{outcome=\"accepted\"} %d\n", atomic.LoadInt64(&c.ActionsAccepted))
		fmt.Fprintf(w, "deficity_actions_total{outcome=\"rejected\"} %d\n\n", atomic.LoadInt64(&c.ActionsRejected))

		fmt.Fprintf(w, "# HELP deficity_market_events_total Economic events activated\n")
		fmt.Fprintf(w, "# TYPE deficity_market_events_total counter\n")
		fmt.Fprintf(w, "deficity_market_events_total %d\n\n", atomic.LoadInt64(&c.MarketEvents))

		// Ledger
		fmt.Fprintf(w, "# HELP deficity_ledger_writes Total ledger rows written\n")
		fmt.Fprintf(w, "# TYPE deficity_ledger_writes counter\n")
		fmt.Fprintf(w, "deficity_ledger_writes %d\n\n", atomic.LoadInt64(&c.LedgerWrites))

		fmt.Fprintf(w, "# HELP deficity_ledger_write_errors Total ledger write errors\n")
		fmt.Fprintf(w, "# TYPE deficity_ledger_write_errors counter\n")
		fmt.Fprintf(w, "deficity_ledger_write_errors %d\n\n", atomic.LoadInt64(&c.LedgerWriteErrors))

		// WebSocket metrics
		fmt.Fprintf(w, "# HELP deficity_ws_connections Active WebSocket connections\n")
		fmt.Fprintf(w, "# TYPE deficity_ws_connections gauge\n")
		fmt.Fprintf(w, "deficity_ws_connections %d\n\n", atomic.LoadInt64(&c.WSConnectionsActive))

		fmt.Fprintf(w, "# HELP deficity_ws_messages_total Total WebSocket messages\n")
		fmt.Fprintf(w, "# TYPE deficity_ws_messages_total counter\n")
		fmt.Fprintf(w, "deficity_ws_messages_total{direction=\"in\"} %d\n", atomic.LoadInt64(&c.WSMessagesIn))
		fmt.Fprintf(w, "deficity_ws_messages_total{direction=\"out\"} %d\n", atomic.LoadInt64(&c.WSMessagesOut))
	}
}
