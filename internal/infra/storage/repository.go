// Package storage provides the audit ledger of the city server.
// The ledger is write-only from the game's point of view: it is never read
// back to restore a city, only to report on past sessions.
package storage

import (
	"context"
	"time"
)

// Session is one run of the server.
type Session struct {
	ID             string    `json:"session_id"`
	StartedAt      time.Time `json:"started_at"`
	Profile        string    `json:"profile"`
	StartingTokens int       `json:"starting_tokens"`
}

// LedgerEntry mirrors an activity event for persistence.
// The domain packages should NOT import this; use interfaces instead.
type LedgerEntry struct {
	ID        string                 `json:"id"`
	SessionID string                 `json:"session_id"`
	Seq       uint64                 `json:"seq"`
	Timestamp time.Time              `json:"timestamp"`
	EventType string                 `json:"event_type"`
	ActorID   string                 `json:"actor_id"`
	TargetID  string                 `json:"target_id"`
	Payload   map[string]interface{} `json:"payload"`
	Tokens    *int                   `json:"tokens,omitempty"` // treasury after the event, when known
}

// LedgerRepository defines how ledger entries are stored and queried.
type LedgerRepository interface {
	// StartSession registers a new server run.
	StartSession(ctx context.Context, s Session) error

	// Append adds an entry to the ledger.
	Append(ctx context.Context, e LedgerEntry) error

	// Sessions lists runs, newest first.
	Sessions(ctx context.Context, limit int) ([]Session, error)

	// Recent returns the newest entries of a session, oldest first.
	Recent(ctx context.Context, sessionID string, limit int) ([]LedgerEntry, error)

	// ByType returns all entries of a session with the given event type.
	ByType(ctx context.Context, sessionID, eventType string) ([]LedgerEntry, error)

	// All returns every entry of a session in log order.
	All(ctx context.Context, sessionID string) ([]LedgerEntry, error)
}
