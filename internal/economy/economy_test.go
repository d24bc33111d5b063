package economy

import (
	"testing"
	"time"

	"github.com/MRamiBalles/DefiCity/server/internal/domain/catalog"
	"github.com/MRamiBalles/DefiCity/server/internal/domain/city"
)

func TestBuildingCost(t *testing.T) {
	bt := &catalog.BuildingType{ID: "dex", BaseCost: 100}

	tests := []struct {
		level int
		want  int
	}{
		{1, 100},
		{2, 150},
		{3, 225},
		{4, 337},
		{5, 506},
		{0, 100},
	}
	for _, tt := range tests {
		if got := BuildingCost(bt, tt.level); got != tt.want {
			t.Errorf("BuildingCost(level %d) = %d, want %d", tt.level, got, tt.want)
		}
	}

	stable := &catalog.BuildingType{ID: "stablecoin", BaseCost: 80}
	if got := BuildingCost(stable, 2); got != 120 {
		t.Errorf("stablecoin upgrade cost = %d, want 120", got)
	}
}

func building(bt *catalog.BuildingType, level int) *city.Building {
	b := city.NewBuilding(bt, 0, 0, BuildingCost(bt, 1), time.Unix(0, 0))
	b.Level = level
	b.YieldRate = bt.BaseYield * level
	b.Cost = BuildingCost(bt, level)
	return b
}

func TestYieldWithoutEvent(t *testing.T) {
	bt := &catalog.BuildingType{ID: "stablecoin", BaseYield: 8, Category: catalog.CategoryDeFi}

	if got := Yield(building(bt, 1), nil); got != 8 {
		t.Errorf("level 1 yield = %d, want 8", got)
	}
	// yieldRate already scales with level, so output grows with level squared.
	if got := Yield(building(bt, 2), nil); got != 32 {
		t.Errorf("level 2 yield = %d, want 32", got)
	}
}

func TestYieldCategoryEffect(t *testing.T) {
	dex := &catalog.BuildingType{ID: "dex", BaseYield: 15, Category: catalog.CategoryDeFi}
	validator := &catalog.BuildingType{ID: "validator", BaseYield: 18, Category: catalog.CategoryInfrastructure}
	bull := &catalog.EconomicEvent{
		ID:      "bull-market",
		Effects: []catalog.EventEffect{{Target: catalog.InCategory(catalog.CategoryDeFi), Modifier: 1.5}},
	}

	if got := Yield(building(dex, 1), bull); got != 22 {
		t.Errorf("dex under bull = %d, want floor(15*1.5)=22", got)
	}
	if got := Yield(building(validator, 1), bull); got != 18 {
		t.Errorf("validator under bull = %d, want unmodified 18", got)
	}
}

func TestYieldCompoundsMatchingEffects(t *testing.T) {
	dex := &catalog.BuildingType{ID: "dex", BaseYield: 15, Category: catalog.CategoryDeFi}
	ev := &catalog.EconomicEvent{
		ID: "stacked",
		Effects: []catalog.EventEffect{
			{Target: catalog.AllBuildings(), Modifier: 2},
			{Target: catalog.Specific("dex"), Modifier: 0.5},
			{Target: catalog.InCategory(catalog.CategoryDeFi), Modifier: 1.5},
			{Target: catalog.Specific("lending"), Modifier: 10},
		},
	}

	// 15 * 2 * 0.5 * 1.5 = 22.5
	if got := Yield(building(dex, 1), ev); got != 22 {
		t.Errorf("compounded yield = %d, want 22", got)
	}
	if m := Modifier(dex, ev); m != 1.5 {
		t.Errorf("Modifier = %v, want 1.5", m)
	}
}

func TestYieldFloorsOnlyAtTheEnd(t *testing.T) {
	dex := &catalog.BuildingType{ID: "dex", BaseYield: 15, Category: catalog.CategoryDeFi}
	gas := &catalog.EconomicEvent{
		ID:      "gas-spike",
		Effects: []catalog.EventEffect{{Target: catalog.Specific("dex"), Modifier: 0.7}},
	}
	if got := Yield(building(dex, 1), gas); got != 10 {
		t.Errorf("dex under gas spike = %d, want 10", got)
	}
}

func TestSellValueAndMaintenance(t *testing.T) {
	bt := &catalog.BuildingType{ID: "dex", BaseYield: 15, BaseCost: 100, MaintenanceCost: 5}

	b := building(bt, 1)
	if got := SellValue(b); got != 70 {
		t.Errorf("SellValue level 1 = %d, want 70", got)
	}
	if got := Maintenance(b); got != 5 {
		t.Errorf("Maintenance level 1 = %d, want 5", got)
	}

	b = building(bt, 3)
	if got := SellValue(b); got != 157 {
		t.Errorf("SellValue level 3 = %d, want floor(225*0.7)=157", got)
	}
	if got := Maintenance(b); got != 15 {
		t.Errorf("Maintenance level 3 = %d, want 15", got)
	}
	if got := UpgradeCost(b); got != 337 {
		t.Errorf("UpgradeCost level 3 = %d, want 337", got)
	}
}
