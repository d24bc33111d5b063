package engine

import (
	"github.com/MRamiBalles/DefiCity/server/internal/domain/catalog"
	"github.com/MRamiBalles/DefiCity/server/internal/economy"
)

// TypeCount is one slice of the building distribution.
type TypeCount struct {
	TypeID   string  `json:"type_id"`
	Name     string  `json:"name"`
	Count    int     `json:"count"`
	Modifier float64 `json:"modifier"` // combined multiplier of the active event
}

// Stats is the dashboard summary of a city.
type Stats struct {
	Tokens               int         `json:"tokens"`
	TotalBuildings       int         `json:"total_buildings"`
	Distribution         []TypeCount `json:"distribution"`
	TotalBaseYield       int         `json:"total_base_yield"` // sum of yieldRate over active buildings
	ProjectedYield       int         `json:"projected_yield"`  // next harvest of every active building
	ProjectedMaintenance int         `json:"projected_maintenance"`
	ActiveEventID        string      `json:"active_event_id,omitempty"`
	RemainingTicks       int         `json:"remaining_ticks,omitempty"`
}

// Stats computes the dashboard summary. Distribution follows catalog order
// and omits types with no buildings.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Stats{
		Tokens:         s.state.Tokens,
		TotalBuildings: s.state.TotalBuildings,
	}

	counts := make(map[string]int)
	for _, b := range s.buildings {
		counts[b.Type.ID]++
		if !b.IsActive {
			continue
		}
		st.TotalBaseYield += b.YieldRate
		if s.active != nil {
			st.ProjectedYield += economy.Yield(b, s.active.Event)
		} else {
			st.ProjectedYield += economy.Yield(b, nil)
		}
		st.ProjectedMaintenance += economy.Maintenance(b)
	}
	var ev *catalog.EconomicEvent
	if s.active != nil {
		ev = s.active.Event
		st.ActiveEventID = ev.ID
		st.RemainingTicks = s.active.Remaining
	}
	for _, bt := range s.catalog.Buildings {
		if n := counts[bt.ID]; n > 0 {
			st.Distribution = append(st.Distribution, TypeCount{
				TypeID:   bt.ID,
				Name:     bt.Name,
				Count:    n,
				Modifier: economy.Modifier(bt, ev),
			})
		}
	}
	return st
}
