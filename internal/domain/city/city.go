// Package city defines the mutable entities of a running city: placed buildings,
// the treasury state and the revenue history.
// This package is PURE and must NOT import any infrastructure packages.
package city

import (
	"fmt"
	"time"

	"github.com/MRamiBalles/DefiCity/server/internal/domain/catalog"
)

// Building is a placed instance of a BuildingType.
type Building struct {
	ID          string                `json:"id"`
	Type        *catalog.BuildingType `json:"type"`
	Level       int                   `json:"level"`
	X           int                   `json:"x"`
	Y           int                   `json:"y"`
	YieldRate   int                   `json:"yield_rate"` // BaseYield * Level
	Cost        int                   `json:"cost"`       // price paid for the current level
	LastHarvest time.Time             `json:"last_harvest"`
	IsActive    bool                  `json:"is_active"`
}

// NewBuilding creates a level 1 building placed at (x, y) at time now.
func NewBuilding(bt *catalog.BuildingType, x, y, cost int, now time.Time) *Building {
	return &Building{
		ID:          BuildingID(bt.ID, x, y, now),
		Type:        bt,
		Level:       1,
		X:           x,
		Y:           y,
		YieldRate:   bt.BaseYield,
		Cost:        cost,
		LastHarvest: now,
		IsActive:    true,
	}
}

// BuildingID derives the instance id from type, placement time and coordinates.
func BuildingID(typeID string, x, y int, placedAt time.Time) string {
	return fmt.Sprintf("%s-%d-%d-%d", typeID, placedAt.UnixMilli(), x, y)
}

// At reports whether the building occupies (x, y).
func (b *Building) At(x, y int) bool {
	return b.X == x && b.Y == y
}

// GameState is the treasury and progression counters.
type GameState struct {
	Tokens         int       `json:"tokens"`
	WeeklyRevenue  int       `json:"weekly_revenue"`
	TotalBuildings int       `json:"total_buildings"`
	CityLevel      int       `json:"city_level"`
	WeekNumber     int       `json:"week_number"`
	Reputation     int       `json:"reputation"` // 0-100
	LastUpdate     time.Time `json:"last_update"`
}

// NewGameState returns the opening state for a fresh city.
func NewGameState(startingTokens int, now time.Time) GameState {
	return GameState{
		Tokens:     startingTokens,
		CityLevel:  1,
		WeekNumber: 1,
		Reputation: 100,
		LastUpdate: now,
	}
}
