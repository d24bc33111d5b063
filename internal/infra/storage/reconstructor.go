package storage

import (
	"context"
	"fmt"
	"time"
)

// Reconstructor folds ledger entries into session reports.
// It summarises past runs; it never rebuilds a live city.
type Reconstructor struct {
	repo LedgerRepository
}

// NewReconstructor creates a new ledger reconstructor.
func NewReconstructor(repo LedgerRepository) *Reconstructor {
	return &Reconstructor{repo: repo}
}

// SessionSummary aggregates one run.
type SessionSummary struct {
	SessionID    string    `json:"session_id"`
	Entries      int       `json:"entries"`
	Placed       int       `json:"placed"`
	Upgraded     int       `json:"upgraded"`
	Sold         int       `json:"sold"`
	Spent        int       `json:"spent"`
	Refunded     int       `json:"refunded"`
	Yield        int       `json:"yield"`
	Maintenance  int       `json:"maintenance"`
	MarketEvents int       `json:"market_events"`
	FinalTokens  *int      `json:"final_tokens,omitempty"`
	LastActivity time.Time `json:"last_activity"`
}

// RecapEvent is a simplified entry for human-readable reports.
type RecapEvent struct {
	Timestamp string `json:"timestamp"`
	EventType string `json:"event_type"`
	Summary   string `json:"summary"`
	Impact    string `json:"impact"` // "POSITIVE", "NEGATIVE", "NEUTRAL"
}

// Summarize folds every entry of a session.
func (r *Reconstructor) Summarize(ctx context.Context, sessionID string) (*SessionSummary, error) {
	entries, err := r.repo.All(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", sessionID, err)
	}

	s := &SessionSummary{SessionID: sessionID, Entries: len(entries)}
	for _, e := range entries {
		r.apply(s, e)
	}
	return s, nil
}

// GenerateRecap describes the newest limit entries of a session.
func (r *Reconstructor) GenerateRecap(ctx context.Context, sessionID string, limit int) ([]RecapEvent, error) {
	entries, err := r.repo.Recent(ctx, sessionID, limit)
	if err != nil {
		return nil, err
	}

	recap := make([]RecapEvent, 0, len(entries))
	for _, e := range entries {
		recap = append(recap, RecapEvent{
			Timestamp: e.Timestamp.Format("2006-01-02 15:04:05"),
			EventType: e.EventType,
			Summary:   r.summarizeEntry(e),
			Impact:    r.determineImpact(e),
		})
	}
	return recap, nil
}

func (r *Reconstructor) apply(s *SessionSummary, e LedgerEntry) {
	switch e.EventType {
	case "BUILDING_PLACED":
		s.Placed++
		s.Spent += intField(e.Payload, "amount")
	case "BUILDING_UPGRADED":
		s.Upgraded++
		s.Spent += intField(e.Payload, "amount")
	case "BUILDING_SOLD":
		s.Sold++
		s.Refunded += intField(e.Payload, "amount")
	case "YIELD_TICK":
		s.Yield += intField(e.Payload, "yield")
		s.Maintenance += intField(e.Payload, "maintenance")
	case "MARKET_EVENT_STARTED":
		s.MarketEvents++
	}
	if e.Tokens != nil {
		v := *e.Tokens
		s.FinalTokens = &v
	}
	if e.Timestamp.After(s.LastActivity) {
		s.LastActivity = e.Timestamp
	}
}

func (r *Reconstructor) summarizeEntry(e LedgerEntry) string {
	p := e.Payload
	switch e.EventType {
	case "BUILDING_PLACED":
		return fmt.Sprintf("Built %s at (%d,%d) for %d", strField(p, "type_id"), intField(p, "x"), intField(p, "y"), intField(p, "amount"))
	case "BUILDING_UPGRADED":
		return fmt.Sprintf("Upgraded %s to level %d for %d", strField(p, "type_id"), intField(p, "level"), intField(p, "amount"))
	case "BUILDING_SOLD":
		return fmt.Sprintf("Sold %s at (%d,%d) for %d", strField(p, "type_id"), intField(p, "x"), intField(p, "y"), intField(p, "amount"))
	case "YIELD_TICK":
		return fmt.Sprintf("Harvested %d buildings: +%d -%d", intField(p, "harvested"), intField(p, "yield"), intField(p, "maintenance"))
	case "MARKET_EVENT_STARTED":
		return fmt.Sprintf("%s began (%d ticks)", strField(p, "title"), intField(p, "duration"))
	case "MARKET_EVENT_ENDED":
		return fmt.Sprintf("%s ended", strField(p, "title"))
	case "WALLET_CONNECTED":
		return "Wallet " + strField(p, "address") + " connected"
	}
	return e.EventType
}

func (r *Reconstructor) determineImpact(e LedgerEntry) string {
	switch e.EventType {
	case "YIELD_TICK":
		if n := intField(e.Payload, "net"); n > 0 {
			return "POSITIVE"
		} else if n < 0 {
			return "NEGATIVE"
		}
	case "MARKET_EVENT_STARTED":
		switch strField(e.Payload, "kind") {
		case "positive":
			return "POSITIVE"
		case "negative":
			return "NEGATIVE"
		}
	case "BUILDING_SOLD":
		return "NEGATIVE"
	}
	return "NEUTRAL"
}

// JSON numbers decode as float64.
func intField(p map[string]interface{}, key string) int {
	if v, ok := p[key].(float64); ok {
		return int(v)
	}
	return 0
}

func strField(p map[string]interface{}, key string) string {
	s, _ := p[key].(string)
	return s
}
