// Package catalog defines the static reference data of the city: building types
// and the economic events that can hit the market.
// Entries are created once at startup and shared by pointer; nothing mutates them.
package catalog

import (
	"fmt"
)

// Category groups building types for event targeting.
type Category string

const (
	CategoryDeFi           Category = "defi"
	CategoryInfrastructure Category = "infrastructure"
	CategorySpecial        Category = "special"
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryDeFi, CategoryInfrastructure, CategorySpecial:
		return true
	}
	return false
}

// EventKind is informational only; it never changes how effects are applied.
type EventKind string

const (
	EventPositive EventKind = "positive"
	EventNegative EventKind = "negative"
	EventNeutral  EventKind = "neutral"
)

// BuildingType is a placeable building definition.
type BuildingType struct {
	ID              string   `json:"id" yaml:"id"`
	Name            string   `json:"name" yaml:"name"`
	Description     string   `json:"description" yaml:"description"`
	BaseYield       int      `json:"base_yield" yaml:"base_yield"`
	BaseCost        int      `json:"base_cost" yaml:"base_cost"`
	MaintenanceCost int      `json:"maintenance_cost" yaml:"maintenance_cost"`
	Category        Category `json:"category" yaml:"category"`
	RiskLevel       int      `json:"risk_level" yaml:"risk_level"` // 1-5
	Icon            string   `json:"icon,omitempty" yaml:"icon,omitempty"`
	Color           string   `json:"color,omitempty" yaml:"color,omitempty"`
}

// EventEffect multiplies the yield of every building its Target matches.
// Its wire form is flat: target_type, target, modifier, description.
type EventEffect struct {
	Target      Target
	Modifier    float64
	Description string
}

// EconomicEvent is a market condition that stays active for Duration ticks.
type EconomicEvent struct {
	ID          string        `json:"id" yaml:"id"`
	Title       string        `json:"title" yaml:"title"`
	Description string        `json:"description" yaml:"description"`
	Kind        EventKind     `json:"type" yaml:"type"`
	Duration    int           `json:"duration" yaml:"duration"`
	Effects     []EventEffect `json:"effects" yaml:"effects"`
	Probability float64       `json:"probability" yaml:"probability"`
}

// Catalog holds the building and event tables in declaration order.
type Catalog struct {
	Buildings []*BuildingType  `json:"buildings" yaml:"buildings"`
	Events    []*EconomicEvent `json:"events" yaml:"events"`

	byID map[string]*BuildingType
}

// New builds a catalog and indexes building types by id.
// It returns an error if the tables fail Validate.
func New(buildings []*BuildingType, events []*EconomicEvent) (*Catalog, error) {
	c := &Catalog{Buildings: buildings, Events: events}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	c.index()
	return c, nil
}

func (c *Catalog) index() {
	c.byID = make(map[string]*BuildingType, len(c.Buildings))
	for _, bt := range c.Buildings {
		c.byID[bt.ID] = bt
	}
}

// Building looks up a building type by id.
func (c *Catalog) Building(id string) (*BuildingType, bool) {
	bt, ok := c.byID[id]
	return bt, ok
}

// Event looks up an economic event by id.
func (c *Catalog) Event(id string) (*EconomicEvent, bool) {
	for _, ev := range c.Events {
		if ev.ID == id {
			return ev, true
		}
	}
	return nil, false
}

// Validate checks the numeric ranges and cross references of both tables.
func (c *Catalog) Validate() error {
	seen := make(map[string]bool, len(c.Buildings))
	for _, bt := range c.Buildings {
		if bt == nil || bt.ID == "" {
			return fmt.Errorf("building type with empty id")
		}
		if seen[bt.ID] {
			return fmt.Errorf("duplicate building type %q", bt.ID)
		}
		seen[bt.ID] = true

		if bt.BaseYield < 0 || bt.BaseCost < 0 || bt.MaintenanceCost < 0 {
			return fmt.Errorf("building type %q: yield, cost and maintenance must be >= 0", bt.ID)
		}
		if !bt.Category.Valid() {
			return fmt.Errorf("building type %q: unknown category %q", bt.ID, bt.Category)
		}
		if bt.RiskLevel < 1 || bt.RiskLevel > 5 {
			return fmt.Errorf("building type %q: risk level %d outside 1-5", bt.ID, bt.RiskLevel)
		}
	}

	events := make(map[string]bool, len(c.Events))
	for _, ev := range c.Events {
		if ev == nil || ev.ID == "" {
			return fmt.Errorf("economic event with empty id")
		}
		if events[ev.ID] {
			return fmt.Errorf("duplicate economic event %q", ev.ID)
		}
		events[ev.ID] = true

		if ev.Duration < 0 {
			return fmt.Errorf("event %q: negative duration", ev.ID)
		}
		if ev.Probability < 0 {
			return fmt.Errorf("event %q: negative probability", ev.ID)
		}
		for i, eff := range ev.Effects {
			if eff.Modifier < 0 {
				return fmt.Errorf("event %q effect %d: negative modifier", ev.ID, i)
			}
			switch eff.Target.Kind {
			case TargetSpecific:
				if !seen[eff.Target.Value] {
					return fmt.Errorf("event %q effect %d: unknown building type %q", ev.ID, i, eff.Target.Value)
				}
			case TargetCategory:
				if !Category(eff.Target.Value).Valid() {
					return fmt.Errorf("event %q effect %d: unknown category %q", ev.ID, i, eff.Target.Value)
				}
			}
		}
	}
	return nil
}
