package engine

import (
	"context"
	"sync"

	"github.com/MRamiBalles/DefiCity/server/internal/platform/logger"
)

// Engine is the central orchestrator that owns the store and drives both timers.
type Engine struct {
	store     *Store
	logger    *logger.Logger
	ticker    *Ticker
	scheduler *Scheduler
	wg        sync.WaitGroup
}

// NewEngine wires the Simulation Clock and Event Scheduler to a store.
func NewEngine(store *Store, log *logger.Logger) *Engine {
	return &Engine{
		store:     store,
		logger:    log,
		ticker:    NewTicker(store, log.With("component", "clock")),
		scheduler: NewScheduler(store, log.With("component", "scheduler")),
	}
}

// Start spawns the clock and scheduler loops.
func (e *Engine) Start(ctx context.Context) {
	e.logger.Info("Starting city engine...")

	e.wg.Add(2)
	go func() {
		defer e.wg.Done()
		e.ticker.Start(ctx)
	}()
	go func() {
		defer e.wg.Done()
		e.scheduler.Start(ctx)
	}()
}

// Run starts the engine and blocks until ctx is cancelled or Stop is called.
func (e *Engine) Run(ctx context.Context) error {
	e.Start(ctx)
	e.Wait()
	return nil
}

// Stop halts both timers. The store stays readable.
func (e *Engine) Stop() {
	e.ticker.Stop()
	e.scheduler.Stop()
}

// Wait blocks until both loops have returned.
func (e *Engine) Wait() {
	e.wg.Wait()
}

// Store exposes the game state for the API and WebSocket layers.
func (e *Engine) Store() *Store {
	return e.store
}

// Ticker exposes the Simulation Clock.
func (e *Engine) Ticker() *Ticker {
	return e.ticker
}
