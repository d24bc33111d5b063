package city

import (
	"testing"
	"time"

	"github.com/MRamiBalles/DefiCity/server/internal/domain/catalog"
)

func TestNewBuilding(t *testing.T) {
	bt := &catalog.BuildingType{ID: "dex", BaseYield: 15, BaseCost: 100}
	now := time.UnixMilli(1700000000123)

	b := NewBuilding(bt, 3, 4, 100, now)

	if b.ID != "dex-1700000000123-3-4" {
		t.Errorf("ID = %q, want dex-1700000000123-3-4", b.ID)
	}
	if b.Level != 1 || b.YieldRate != 15 || b.Cost != 100 {
		t.Errorf("building = level %d yield %d cost %d, want 1/15/100", b.Level, b.YieldRate, b.Cost)
	}
	if !b.IsActive {
		t.Errorf("new building should be active")
	}
	if !b.LastHarvest.Equal(now) {
		t.Errorf("LastHarvest = %v, want %v", b.LastHarvest, now)
	}
	if b.Type != bt {
		t.Errorf("building should share its type pointer")
	}
	if !b.At(3, 4) || b.At(4, 3) {
		t.Errorf("At reported wrong occupancy")
	}
}

func TestRevenueHistoryEvictsOldestFirst(t *testing.T) {
	h := NewRevenueHistory(24)
	base := time.Unix(0, 0)

	for i := 0; i < 25; i++ {
		h.Append(RevenueSample{Timestamp: base.Add(time.Duration(i) * time.Second), Revenue: i})
	}

	if h.Len() != 24 {
		t.Fatalf("Len = %d, want 24", h.Len())
	}
	samples := h.Samples()
	if samples[0].Revenue != 1 {
		t.Errorf("oldest sample revenue = %d, want 1 (sample 0 evicted)", samples[0].Revenue)
	}
	if samples[23].Revenue != 24 {
		t.Errorf("newest sample revenue = %d, want 24", samples[23].Revenue)
	}
	for i := 1; i < len(samples); i++ {
		if !samples[i].Timestamp.After(samples[i-1].Timestamp) {
			t.Fatalf("samples out of order at %d", i)
		}
	}
}

func TestRevenueHistoryPartial(t *testing.T) {
	h := NewRevenueHistory(0)
	if h.Cap() != DefaultHistorySize {
		t.Errorf("Cap = %d, want %d", h.Cap(), DefaultHistorySize)
	}

	h.Append(RevenueSample{Revenue: 7})
	h.Append(RevenueSample{Revenue: -2})

	got := h.Samples()
	if len(got) != 2 || got[0].Revenue != 7 || got[1].Revenue != -2 {
		t.Errorf("Samples = %+v, want [7 -2]", got)
	}
}

func TestNewGameState(t *testing.T) {
	s := NewGameState(1000, time.Unix(10, 0))
	if s.Tokens != 1000 || s.CityLevel != 1 || s.WeekNumber != 1 || s.Reputation != 100 {
		t.Errorf("opening state = %+v", s)
	}
	if s.TotalBuildings != 0 || s.WeeklyRevenue != 0 {
		t.Errorf("opening counters should be zero: %+v", s)
	}
}
