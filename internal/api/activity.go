package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/MRamiBalles/DefiCity/server/internal/events"
)

const defaultActivityLimit = 50

// ActivityEvent is an activity log entry formatted for the feed panel.
type ActivityEvent struct {
	ID        string      `json:"id"`
	Seq       uint64      `json:"seq"`
	Timestamp string      `json:"timestamp"`
	Type      string      `json:"type"`
	Actor     string      `json:"actor"`
	Target    string      `json:"target,omitempty"`
	Summary   string      `json:"summary"`
	Impact    string      `json:"impact"` // "POSITIVE", "NEGATIVE", "NEUTRAL"
	Details   interface{} `json:"details,omitempty"`
}

// ActivityResponse is the API response for the activity feed.
type ActivityResponse struct {
	TotalEvents int             `json:"total_events"`
	LastSeq     uint64          `json:"last_seq"`
	FilteredBy  string          `json:"filtered_by,omitempty"`
	GeneratedAt string          `json:"generated_at"`
	Events      []ActivityEvent `json:"events"`
}

// GET /api/activity?type=YIELD_TICK&since=42&limit=20
// Clients poll with since set to the last_seq they saw.
func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	if s.eventLog == nil {
		writeJSON(w, http.StatusOK, ActivityResponse{GeneratedAt: time.Now().Format(time.RFC3339), Events: []ActivityEvent{}})
		return
	}

	q := r.URL.Query()
	var since uint64
	if v := q.Get("since"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			jsonError(w, "BAD_REQUEST", "since must be a sequence number", http.StatusBadRequest)
			return
		}
		since = n
	}
	limit := defaultActivityLimit
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			jsonError(w, "BAD_REQUEST", "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}
	eventType := q.Get("type")

	out := []ActivityEvent{}
	for _, e := range s.eventLog.Since(since) {
		if eventType != "" && string(e.Type) != eventType {
			continue
		}
		out = append(out, toActivity(e))
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}

	writeJSON(w, http.StatusOK, ActivityResponse{
		TotalEvents: len(out),
		LastSeq:     s.eventLog.LastSeq(),
		FilteredBy:  eventType,
		GeneratedAt: time.Now().Format(time.RFC3339),
		Events:      out,
	})
}

func toActivity(e events.GameEvent) ActivityEvent {
	return ActivityEvent{
		ID:        e.ID,
		Seq:       e.Seq,
		Timestamp: e.Timestamp.Format("15:04:05"),
		Type:      string(e.Type),
		Actor:     e.ActorID,
		Target:    e.TargetID,
		Summary:   summarizeEvent(e),
		Impact:    determineImpact(e),
		Details:   e.Payload,
	}
}

// summarizeEvent creates a human-readable summary.
func summarizeEvent(e events.GameEvent) string {
	switch p := e.Payload.(type) {
	case events.BuildingPayload:
		switch e.Type {
		case events.EventTypeBuildingPlaced:
			return fmt.Sprintf("Built %s at (%d,%d) for %d tokens", p.TypeID, p.X, p.Y, p.Amount)
		case events.EventTypeBuildingUpgraded:
			return fmt.Sprintf("Upgraded %s at (%d,%d) to level %d for %d tokens", p.TypeID, p.X, p.Y, p.Level, p.Amount)
		case events.EventTypeBuildingSold:
			return fmt.Sprintf("Sold %s at (%d,%d) for %d tokens", p.TypeID, p.X, p.Y, p.Amount)
		}
	case events.YieldPayload:
		return fmt.Sprintf("Harvested %d buildings: %+d tokens", p.Harvested, p.Net)
	case events.MarketEventPayload:
		if e.Type == events.EventTypeMarketEventEnded {
			return p.Title + " is over"
		}
		return fmt.Sprintf("%s for %d ticks", p.Title, p.Duration)
	case events.WalletPayload:
		return "Wallet " + p.Address + " connected"
	}
	return string(e.Type)
}

// determineImpact classifies the event impact.
func determineImpact(e events.GameEvent) string {
	switch p := e.Payload.(type) {
	case events.YieldPayload:
		if p.Net > 0 {
			return "POSITIVE"
		}
		if p.Net < 0 {
			return "NEGATIVE"
		}
	case events.MarketEventPayload:
		if e.Type == events.EventTypeMarketEventStarted {
			switch p.Kind {
			case "positive":
				return "POSITIVE"
			case "negative":
				return "NEGATIVE"
			}
		}
	}
	return "NEUTRAL"
}
