package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// SQLiteLedgerRepository implements LedgerRepository for SQLite.
type SQLiteLedgerRepository struct {
	db *sql.DB
}

func NewSQLiteLedgerRepository(db *sql.DB) *SQLiteLedgerRepository {
	return &SQLiteLedgerRepository{db: db}
}

func (r *SQLiteLedgerRepository) StartSession(ctx context.Context, s Session) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (session_id, started_at, profile, starting_tokens) VALUES (?, ?, ?, ?)`,
		s.ID, s.StartedAt.UnixMilli(), s.Profile, s.StartingTokens,
	)
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	return nil
}

func (r *SQLiteLedgerRepository) Append(ctx context.Context, e LedgerEntry) error {
	payloadBytes, err := json.Marshal(e.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	var tokens sql.NullInt64
	if e.Tokens != nil {
		tokens = sql.NullInt64{Int64: int64(*e.Tokens), Valid: true}
	}

	query := `
		INSERT INTO ledger_entries (id, session_id, seq, timestamp, event_type, actor_id, target_id, payload, tokens)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, query,
		e.ID, e.SessionID, int64(e.Seq), e.Timestamp.UnixMilli(), e.EventType, e.ActorID,
		e.TargetID, string(payloadBytes), tokens,
	)
	if err != nil {
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}
	return nil
}

func (r *SQLiteLedgerRepository) Sessions(ctx context.Context, limit int) ([]Session, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT session_id, started_at, profile, starting_tokens FROM sessions ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var s Session
		var startedAt int64
		if err := rows.Scan(&s.ID, &startedAt, &s.Profile, &s.StartingTokens); err != nil {
			return nil, err
		}
		s.StartedAt = time.UnixMilli(startedAt)
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

func (r *SQLiteLedgerRepository) getMany(ctx context.Context, query string, args ...interface{}) ([]LedgerEntry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []LedgerEntry
	for rows.Next() {
		var e LedgerEntry
		var seq, ts int64
		var payloadStr string
		var tokens sql.NullInt64
		err := rows.Scan(
			&e.ID, &e.SessionID, &seq, &ts, &e.EventType, &e.ActorID,
			&e.TargetID, &payloadStr, &tokens,
		)
		if err != nil {
			return nil, err
		}
		e.Seq = uint64(seq)
		e.Timestamp = time.UnixMilli(ts)
		if tokens.Valid {
			v := int(tokens.Int64)
			e.Tokens = &v
		}
		if err := json.Unmarshal([]byte(payloadStr), &e.Payload); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

const selectEntries = `SELECT id, session_id, seq, timestamp, event_type, actor_id, target_id, payload, tokens FROM ledger_entries`

func (r *SQLiteLedgerRepository) Recent(ctx context.Context, sessionID string, limit int) ([]LedgerEntry, error) {
	query := `SELECT * FROM (` + selectEntries + ` WHERE session_id = ? ORDER BY seq DESC LIMIT ?) ORDER BY seq ASC`
	return r.getMany(ctx, query, sessionID, limit)
}

func (r *SQLiteLedgerRepository) ByType(ctx context.Context, sessionID, eventType string) ([]LedgerEntry, error) {
	query := selectEntries + ` WHERE session_id = ? AND event_type = ? ORDER BY seq ASC`
	return r.getMany(ctx, query, sessionID, eventType)
}

func (r *SQLiteLedgerRepository) All(ctx context.Context, sessionID string) ([]LedgerEntry, error) {
	query := selectEntries + ` WHERE session_id = ? ORDER BY seq ASC`
	return r.getMany(ctx, query, sessionID)
}
