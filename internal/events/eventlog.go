// Package events provides the activity log of the city: an ordered,
// sequence-numbered record of every treasury-affecting action.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType defines the category of a game event.
type EventType string

const (
	EventTypeBuildingPlaced     EventType = "BUILDING_PLACED"
	EventTypeBuildingUpgraded   EventType = "BUILDING_UPGRADED"
	EventTypeBuildingSold       EventType = "BUILDING_SOLD"
	EventTypeYieldTick          EventType = "YIELD_TICK"
	EventTypeMarketEventStarted EventType = "MARKET_EVENT_STARTED"
	EventTypeMarketEventEnded   EventType = "MARKET_EVENT_ENDED"
	EventTypeWalletConnected    EventType = "WALLET_CONNECTED"
)

// Well-known actors.
const (
	ActorPlayer    = "PLAYER"
	ActorClock     = "SYSTEM_CLOCK"
	ActorScheduler = "SYSTEM_SCHEDULER"
)

// DefaultRetention is how many events the in-memory log keeps.
const DefaultRetention = 1024

// BuildingPayload describes a placement, upgrade or sale.
type BuildingPayload struct {
	BuildingID string `json:"building_id"`
	TypeID     string `json:"type_id"`
	X          int    `json:"x"`
	Y          int    `json:"y"`
	Level      int    `json:"level"`
	Amount     int    `json:"amount"` // tokens spent, or refunded on sale
	Tokens     int    `json:"tokens"` // treasury after the action
}

// YieldPayload summarises one Simulation Clock firing.
type YieldPayload struct {
	Harvested   int `json:"harvested"`
	Yield       int `json:"yield"`
	Maintenance int `json:"maintenance"`
	Net         int `json:"net"`
	Tokens      int `json:"tokens"`
}

// MarketEventPayload describes an economic event starting or ending.
type MarketEventPayload struct {
	EventID  string `json:"event_id"`
	Title    string `json:"title"`
	Kind     string `json:"kind"`
	Duration int    `json:"duration"`
}

// WalletPayload records a wallet handshake.
type WalletPayload struct {
	Address string `json:"address"`
}

// GameEvent represents an immutable record of an action in the city.
type GameEvent struct {
	ID        string    `json:"id"`
	Seq       uint64    `json:"seq"`
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	ActorID   string    `json:"actor_id"`
	TargetID  string    `json:"target_id,omitempty"`
	Payload   any       `json:"payload"`
}

// EventPersister defines how an event is durably stored.
type EventPersister interface {
	Append(event GameEvent) error
}

// EventLog is the in-memory append-only log of game events.
// Only the most recent events are retained; Seq keeps growing regardless.
type EventLog struct {
	mu        sync.RWMutex
	events    []GameEvent
	retention int
	lastSeq   uint64
	persister EventPersister
	onError   func(GameEvent, error)
}

// NewEventLog creates a new event log with an optional persister.
func NewEventLog(persister EventPersister) *EventLog {
	return NewEventLogWithRetention(persister, DefaultRetention)
}

// NewEventLogWithRetention creates a log that keeps at most retention events in memory.
func NewEventLogWithRetention(persister EventPersister, retention int) *EventLog {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &EventLog{
		events:    make([]GameEvent, 0, retention),
		retention: retention,
		persister: persister,
	}
}

// OnPersistError registers a callback for persister failures.
func (el *EventLog) OnPersistError(fn func(GameEvent, error)) {
	el.mu.Lock()
	el.onError = fn
	el.mu.Unlock()
}

// Append records the event and hands it to the persister.
// The stamped event is returned.
func (el *EventLog) Append(event GameEvent) GameEvent {
	event = el.Record(event)
	el.Persist(event)
	return event
}

// Record stamps the event with an ID, sequence number and timestamp (when
// missing) and adds it to the log without persisting it. Callers holding
// their own lock record under it and Persist after releasing it.
func (el *EventLog) Record(event GameEvent) GameEvent {
	el.mu.Lock()
	defer el.mu.Unlock()
	el.lastSeq++
	event.Seq = el.lastSeq
	if event.ID == "" {
		event.ID = GenerateEventID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if len(el.events) == el.retention {
		copy(el.events, el.events[1:])
		el.events = el.events[:len(el.events)-1]
	}
	el.events = append(el.events, event)
	return event
}

// Persist writes recorded events to the persister, in the order given.
// Failures go to the OnPersistError callback.
func (el *EventLog) Persist(evs ...GameEvent) {
	el.mu.RLock()
	persister, onError := el.persister, el.onError
	el.mu.RUnlock()
	if persister == nil {
		return
	}
	for _, event := range evs {
		if err := persister.Append(event); err != nil && onError != nil {
			onError(event, err)
		}
	}
}

// Since returns retained events with Seq greater than seq, oldest first.
func (el *EventLog) Since(seq uint64) []GameEvent {
	el.mu.RLock()
	defer el.mu.RUnlock()

	var result []GameEvent
	for _, e := range el.events {
		if e.Seq > seq {
			result = append(result, e)
		}
	}
	return result
}

// LastSeq returns the sequence number of the most recent event (0 if none).
func (el *EventLog) LastSeq() uint64 {
	el.mu.RLock()
	defer el.mu.RUnlock()
	return el.lastSeq
}

// GetByType returns retained events of the given type.
func (el *EventLog) GetByType(t EventType) []GameEvent {
	el.mu.RLock()
	defer el.mu.RUnlock()

	var result []GameEvent
	for _, e := range el.events {
		if e.Type == t {
			result = append(result, e)
		}
	}
	return result
}

// Recent returns up to n of the newest events, oldest first.
func (el *EventLog) Recent(n int) []GameEvent {
	el.mu.RLock()
	defer el.mu.RUnlock()

	if n <= 0 || n > len(el.events) {
		n = len(el.events)
	}
	out := make([]GameEvent, n)
	copy(out, el.events[len(el.events)-n:])
	return out
}

// Replay returns a copy of every retained event.
func (el *EventLog) Replay() []GameEvent {
	return el.Recent(0)
}

// GenerateEventID creates a unique event identifier.
func GenerateEventID() string {
	return uuid.NewString()
}
