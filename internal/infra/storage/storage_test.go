package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTestLedger(t *testing.T) *SQLiteLedgerRepository {
	t.Helper()
	db, err := InitSQLite(filepath.Join(t.TempDir(), "nested", "ledger.db"))
	if err != nil {
		t.Fatalf("InitSQLite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewSQLiteLedgerRepository(db)
}

func intPtr(v int) *int { return &v }

func seedSession(t *testing.T, repo *SQLiteLedgerRepository, id string, started time.Time) {
	t.Helper()
	if err := repo.StartSession(context.Background(), Session{ID: id, StartedAt: started, Profile: "default", StartingTokens: 1000}); err != nil {
		t.Fatalf("StartSession: %v", err)
	}
}

func TestInitSQLiteIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	for i := 0; i < 2; i++ {
		db, err := InitSQLite(path)
		if err != nil {
			t.Fatalf("InitSQLite #%d: %v", i+1, err)
		}
		db.Close()
	}
}

func TestAppendAndQuery(t *testing.T) {
	ctx := context.Background()
	repo := openTestLedger(t)
	base := time.UnixMilli(1700000000000)
	seedSession(t, repo, "s1", base)

	entries := []LedgerEntry{
		{ID: "e1", Seq: 1, EventType: "BUILDING_PLACED", ActorID: "PLAYER", TargetID: "stablecoin-1-0-0",
			Payload: map[string]interface{}{"type_id": "stablecoin", "x": 0, "y": 0, "amount": 80}, Tokens: intPtr(920)},
		{ID: "e2", Seq: 2, EventType: "YIELD_TICK", ActorID: "SYSTEM_CLOCK",
			Payload: map[string]interface{}{"harvested": 1, "yield": 8, "maintenance": 3, "net": 5}, Tokens: intPtr(925)},
		{ID: "e3", Seq: 3, EventType: "MARKET_EVENT_STARTED", ActorID: "SYSTEM_SCHEDULER", TargetID: "bull-market",
			Payload: map[string]interface{}{"title": "Bull Market Rally", "kind": "positive", "duration": 10}},
		{ID: "e4", Seq: 4, EventType: "YIELD_TICK", ActorID: "SYSTEM_CLOCK",
			Payload: map[string]interface{}{"harvested": 1, "yield": 12, "maintenance": 3, "net": 9}, Tokens: intPtr(934)},
	}
	for i, e := range entries {
		e.SessionID = "s1"
		e.Timestamp = base.Add(time.Duration(i) * time.Second)
		if err := repo.Append(ctx, e); err != nil {
			t.Fatalf("Append %s: %v", e.ID, err)
		}
	}

	all, err := repo.All(ctx, "s1")
	if err != nil || len(all) != 4 {
		t.Fatalf("All = %d entries, err %v", len(all), err)
	}
	if !all[1].Timestamp.Equal(base.Add(time.Second)) {
		t.Errorf("timestamp = %v, want %v", all[1].Timestamp, base.Add(time.Second))
	}
	if all[2].Tokens != nil || all[3].Tokens == nil || *all[3].Tokens != 934 {
		t.Errorf("tokens column not round-tripped: %v %v", all[2].Tokens, all[3].Tokens)
	}

	recent, err := repo.Recent(ctx, "s1", 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 2 || recent[0].ID != "e3" || recent[1].ID != "e4" {
		t.Errorf("Recent(2) = %+v, want e3,e4", recent)
	}

	ticks, err := repo.ByType(ctx, "s1", "YIELD_TICK")
	if err != nil || len(ticks) != 2 {
		t.Fatalf("ByType = %d entries, err %v", len(ticks), err)
	}
	if ticks[1].Payload["yield"].(float64) != 12 {
		t.Errorf("payload = %v", ticks[1].Payload)
	}

	if other, _ := repo.All(ctx, "s2"); len(other) != 0 {
		t.Errorf("entries leaked across sessions")
	}
}

func TestDuplicateIDRejected(t *testing.T) {
	ctx := context.Background()
	repo := openTestLedger(t)
	seedSession(t, repo, "s1", time.Now())

	e := LedgerEntry{ID: "dup", SessionID: "s1", Seq: 1, Timestamp: time.Now(), EventType: "YIELD_TICK", ActorID: "SYSTEM_CLOCK"}
	if err := repo.Append(ctx, e); err != nil {
		t.Fatalf("first append: %v", err)
	}
	if err := repo.Append(ctx, e); err == nil {
		t.Errorf("second append with the same id should fail")
	}
}

func TestSessionsNewestFirst(t *testing.T) {
	repo := openTestLedger(t)
	base := time.UnixMilli(1700000000000)
	seedSession(t, repo, "old", base)
	seedSession(t, repo, "new", base.Add(time.Hour))

	sessions, err := repo.Sessions(context.Background(), 10)
	if err != nil {
		t.Fatalf("Sessions: %v", err)
	}
	if len(sessions) != 2 || sessions[0].ID != "new" || sessions[1].ID != "old" {
		t.Errorf("sessions = %+v", sessions)
	}
	if !sessions[1].StartedAt.Equal(base) || sessions[1].StartingTokens != 1000 {
		t.Errorf("session row = %+v", sessions[1])
	}
}

func TestReconstructorSummarize(t *testing.T) {
	ctx := context.Background()
	repo := openTestLedger(t)
	base := time.UnixMilli(1700000000000)
	seedSession(t, repo, "s1", base)

	add := func(seq uint64, typ string, payload map[string]interface{}, tokens *int) {
		t.Helper()
		err := repo.Append(ctx, LedgerEntry{
			ID: typ + string(rune('a'+seq)), SessionID: "s1", Seq: seq, Timestamp: base.Add(time.Duration(seq) * time.Second),
			EventType: typ, ActorID: "PLAYER", Payload: payload, Tokens: tokens,
		})
		if err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	add(1, "BUILDING_PLACED", map[string]interface{}{"type_id": "dex", "amount": 100}, intPtr(900))
	add(2, "BUILDING_UPGRADED", map[string]interface{}{"type_id": "dex", "level": 2, "amount": 150}, intPtr(750))
	add(3, "YIELD_TICK", map[string]interface{}{"yield": 60, "maintenance": 10, "net": 50}, intPtr(800))
	add(4, "MARKET_EVENT_STARTED", map[string]interface{}{"title": "Gas Spike", "kind": "negative"}, nil)
	add(5, "BUILDING_SOLD", map[string]interface{}{"type_id": "dex", "amount": 105}, intPtr(905))

	r := NewReconstructor(repo)
	s, err := r.Summarize(ctx, "s1")
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if s.Entries != 5 || s.Placed != 1 || s.Upgraded != 1 || s.Sold != 1 || s.MarketEvents != 1 {
		t.Errorf("counts = %+v", s)
	}
	if s.Spent != 250 || s.Refunded != 105 || s.Yield != 60 || s.Maintenance != 10 {
		t.Errorf("amounts = %+v", s)
	}
	if s.FinalTokens == nil || *s.FinalTokens != 905 {
		t.Errorf("FinalTokens = %v, want 905", s.FinalTokens)
	}

	recap, err := r.GenerateRecap(ctx, "s1", 3)
	if err != nil {
		t.Fatalf("GenerateRecap: %v", err)
	}
	if len(recap) != 3 {
		t.Fatalf("recap has %d lines, want 3", len(recap))
	}
	if recap[0].Impact != "POSITIVE" || recap[1].Impact != "NEGATIVE" || recap[2].Summary != "Sold dex at (0,0) for 105" {
		t.Errorf("recap = %+v", recap)
	}
}
