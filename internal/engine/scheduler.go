package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/MRamiBalles/DefiCity/server/internal/platform/logger"
)

// Scheduler is the Event Scheduler: on each firing it activates a random
// economic event, unless one is already in force.
type Scheduler struct {
	store    *Store
	logger   *logger.Logger
	interval time.Duration
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewScheduler creates a scheduler firing at the store's event interval.
func NewScheduler(store *Store, log *logger.Logger) *Scheduler {
	return &Scheduler{
		store:    store,
		logger:   log,
		interval: store.Settings().EventInterval,
		stopChan: make(chan struct{}),
	}
}

// Start begins the scheduler loop. Call in a goroutine.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("Event scheduler started", "interval", s.interval)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Event scheduler stopped by context.")
			return
		case <-s.stopChan:
			s.logger.Info("Event scheduler stopped manually.")
			return
		case <-ticker.C:
			s.fire()
		}
	}
}

// Stop gracefully stops the scheduler. Safe to call more than once.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
}

func (s *Scheduler) fire() {
	ev, err := s.store.GenerateRandomEvent()
	switch {
	case errors.Is(err, ErrEventActive):
		// Events never stack.
	case err != nil:
		s.logger.Warn("Event scheduler could not activate an event", "error", err)
	default:
		s.logger.Info("Market event activated", "event", ev.ID, "duration", ev.Duration)
	}
}
