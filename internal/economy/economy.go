// Package economy holds the pricing and yield rules of the city.
// Every function here is pure: it reads catalog entries and buildings and never mutates them.
package economy

import (
	"math"

	"github.com/MRamiBalles/DefiCity/server/internal/domain/catalog"
	"github.com/MRamiBalles/DefiCity/server/internal/domain/city"
)

const (
	// CostGrowth is the per-level price multiplier.
	CostGrowth = 1.5
	// SellRefundRate is the share of the last price paid returned on sale.
	SellRefundRate = 0.7
)

// BuildingCost is the price of owning bt at the given level:
// floor(baseCost * 1.5^(level-1)). Placement uses level 1, upgrades use current+1.
func BuildingCost(bt *catalog.BuildingType, level int) int {
	if level < 1 {
		level = 1
	}
	return int(math.Floor(float64(bt.BaseCost) * math.Pow(CostGrowth, float64(level-1))))
}

// UpgradeCost is the price of taking b to its next level.
func UpgradeCost(b *city.Building) int {
	return BuildingCost(b.Type, b.Level+1)
}

// SellValue is the refund for selling b: 70% of the last price paid, floored.
func SellValue(b *city.Building) int {
	return int(math.Floor(float64(b.Cost) * SellRefundRate))
}

// Maintenance is the per-harvest upkeep of b.
func Maintenance(b *city.Building) int {
	return b.Type.MaintenanceCost * b.Level
}

// EffectApplies reports whether effect targets the building's type.
func EffectApplies(effect catalog.EventEffect, b *city.Building) bool {
	return effect.Target.Matches(b.Type)
}

// Yield is the per-tick output of b: yieldRate * level, multiplied by every
// matching effect of the active event in declaration order, then floored.
// A nil event applies no modifiers.
func Yield(b *city.Building, active *catalog.EconomicEvent) int {
	base := float64(b.YieldRate * b.Level)
	if active != nil {
		for _, effect := range active.Effects {
			if EffectApplies(effect, b) {
				base *= effect.Modifier
			}
		}
	}
	return int(math.Floor(base))
}

// Modifier is the combined multiplier the event applies to buildings of type bt.
func Modifier(bt *catalog.BuildingType, active *catalog.EconomicEvent) float64 {
	m := 1.0
	if active == nil {
		return m
	}
	for _, effect := range active.Effects {
		if effect.Target.Matches(bt) {
			m *= effect.Modifier
		}
	}
	return m
}
