package engine

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/MRamiBalles/DefiCity/server/internal/domain/catalog"
	"github.com/MRamiBalles/DefiCity/server/internal/domain/city"
	"github.com/MRamiBalles/DefiCity/server/internal/economy"
	"github.com/MRamiBalles/DefiCity/server/internal/events"
	"github.com/MRamiBalles/DefiCity/server/internal/platform/logger"
	"github.com/MRamiBalles/DefiCity/server/internal/platform/metrics"
)

// Settings are the tunable constants of a city.
type Settings struct {
	GridSize       int
	StartingTokens int
	TickInterval   time.Duration
	EventInterval  time.Duration
	HistorySize    int
	WeightedEvents bool // honour EconomicEvent.Probability instead of uniform selection
}

// DefaultSettings mirrors the live game: 20x20 grid, 1000 tokens, 3s ticks.
func DefaultSettings() Settings {
	return Settings{
		GridSize:       20,
		StartingTokens: 1000,
		TickInterval:   3 * time.Second,
		EventInterval:  45 * time.Second,
		HistorySize:    city.DefaultHistorySize,
	}
}

// ActiveEvent is the economic event currently in force.
type ActiveEvent struct {
	Event     *catalog.EconomicEvent `json:"event"`
	Remaining int                    `json:"remaining"`
}

// Snapshot is a consistent copy of the whole city.
type Snapshot struct {
	State       city.GameState       `json:"state"`
	Buildings   []city.Building      `json:"buildings"`
	ActiveEvent *ActiveEvent         `json:"active_event"`
	History     []city.RevenueSample `json:"revenue_history"`
	GridSize    int                  `json:"grid_size"`
}

// TickReport summarises one Simulation Clock firing.
type TickReport struct {
	At          time.Time `json:"at"`
	Harvested   int       `json:"harvested"`
	Yield       int       `json:"yield"`
	Maintenance int       `json:"maintenance"`
	Net         int       `json:"net"`
	Tokens      int       `json:"tokens"`
	EventEnded  string    `json:"event_ended,omitempty"`
}

// Store owns the treasury, the buildings, the active event and the revenue history.
// Every mutation goes through its mutex, so timers and players are serialised.
type Store struct {
	mu        sync.Mutex
	catalog   *catalog.Catalog
	settings  Settings
	state     city.GameState
	buildings []*city.Building
	active    *ActiveEvent
	history   *city.RevenueHistory

	eventLog *events.EventLog
	pending  []events.GameEvent
	logger   *logger.Logger
	metrics  *metrics.Collector
	now      func() time.Time
	rng      *rand.Rand
}

// StoreOption customises a Store.
type StoreOption func(*Store)

// WithClock replaces time.Now. Tests use a fixed clock.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// WithRand sets the source used for event selection.
func WithRand(rng *rand.Rand) StoreOption {
	return func(s *Store) { s.rng = rng }
}

// WithSeed makes event selection reproducible.
func WithSeed(seed uint64) StoreOption {
	return WithRand(rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)))
}

// WithEventLog records every action in the activity log.
func WithEventLog(el *events.EventLog) StoreOption {
	return func(s *Store) { s.eventLog = el }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) StoreOption {
	return func(s *Store) { s.logger = l }
}

// WithMetrics sets the collector. The global collector is used otherwise.
func WithMetrics(c *metrics.Collector) StoreOption {
	return func(s *Store) { s.metrics = c }
}

// NewStore creates a fresh city.
func NewStore(cat *catalog.Catalog, settings Settings, opts ...StoreOption) *Store {
	s := &Store{
		catalog:  cat,
		settings: settings,
		logger:   logger.Discard(),
		metrics:  metrics.Get(),
		now:      time.Now,
		rng:      rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.state = city.NewGameState(settings.StartingTokens, s.now())
	s.history = city.NewRevenueHistory(settings.HistorySize)
	return s
}

// Catalog returns the building and event definitions.
func (s *Store) Catalog() *catalog.Catalog {
	return s.catalog
}

// Settings returns the city constants.
func (s *Store) Settings() Settings {
	return s.settings
}

// State returns a copy of the treasury counters.
func (s *Store) State() city.GameState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Snapshot returns a consistent copy of the whole city.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		State:     s.state,
		Buildings: make([]city.Building, len(s.buildings)),
		History:   s.history.Samples(),
		GridSize:  s.settings.GridSize,
	}
	for i, b := range s.buildings {
		snap.Buildings[i] = *b
	}
	if s.active != nil {
		ae := *s.active
		snap.ActiveEvent = &ae
	}
	return snap
}

// ActiveEvent returns the event in force, or nil.
func (s *Store) ActiveEvent() *ActiveEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return nil
	}
	ae := *s.active
	return &ae
}

// RevenueHistory returns the retained samples, oldest first.
func (s *Store) RevenueHistory() []city.RevenueSample {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Samples()
}

// BuildingAt returns a copy of the building at (x, y).
func (s *Store) BuildingAt(x, y int) (city.Building, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, b := s.find(x, y); b != nil {
		return *b, true
	}
	return city.Building{}, false
}

// CanAfford reports whether the treasury covers a level 1 building of typeID.
func (s *Store) CanAfford(typeID string) bool {
	bt, ok := s.catalog.Building(typeID)
	if !ok {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Tokens >= economy.BuildingCost(bt, 1)
}

func (s *Store) find(x, y int) (int, *city.Building) {
	for i, b := range s.buildings {
		if b.At(x, y) {
			return i, b
		}
	}
	return -1, nil
}

func (s *Store) inGrid(x, y int) bool {
	return x >= 0 && y >= 0 && x < s.settings.GridSize && y < s.settings.GridSize
}

// PlaceBuilding buys a level 1 building of typeID at (x, y).
func (s *Store) PlaceBuilding(x, y int, typeID string) (city.Building, error) {
	s.mu.Lock()
	defer s.unlock()

	b, err := s.place(x, y, typeID)
	s.metrics.RecordAction(err)
	if err != nil {
		return city.Building{}, fmt.Errorf("place %s at (%d,%d): %w", typeID, x, y, err)
	}
	return *b, nil
}

func (s *Store) place(x, y int, typeID string) (*city.Building, error) {
	bt, ok := s.catalog.Building(typeID)
	if !ok {
		return nil, ErrUnknownBuildingType
	}
	if !s.inGrid(x, y) {
		return nil, ErrInvalidTarget
	}
	cost := economy.BuildingCost(bt, 1)
	if s.state.Tokens < cost {
		return nil, ErrInsufficientFunds
	}
	if _, occupied := s.find(x, y); occupied != nil {
		return nil, ErrOccupiedCell
	}

	now := s.now()
	b := city.NewBuilding(bt, x, y, cost, now)
	s.buildings = append(s.buildings, b)
	s.state.Tokens -= cost
	s.state.TotalBuildings++

	s.emitBuilding(events.EventTypeBuildingPlaced, b, cost, now)
	s.logger.Event(string(events.EventTypeBuildingPlaced), events.ActorPlayer,
		fmt.Sprintf("%s at (%d,%d) for %d", bt.ID, x, y, cost))
	return b, nil
}

// UpgradeBuilding raises the building at (x, y) by one level.
func (s *Store) UpgradeBuilding(x, y int) (city.Building, error) {
	s.mu.Lock()
	defer s.unlock()

	b, err := s.upgrade(x, y)
	s.metrics.RecordAction(err)
	if err != nil {
		return city.Building{}, fmt.Errorf("upgrade at (%d,%d): %w", x, y, err)
	}
	return *b, nil
}

func (s *Store) upgrade(x, y int) (*city.Building, error) {
	_, b := s.find(x, y)
	if b == nil {
		return nil, ErrNoBuildingAtCell
	}
	price := economy.UpgradeCost(b)
	if s.state.Tokens < price {
		return nil, ErrInsufficientFunds
	}

	b.Level++
	b.YieldRate = b.Type.BaseYield * b.Level
	b.Cost = price
	s.state.Tokens -= price

	s.emitBuilding(events.EventTypeBuildingUpgraded, b, price, s.now())
	s.logger.Event(string(events.EventTypeBuildingUpgraded), events.ActorPlayer,
		fmt.Sprintf("%s to level %d for %d", b.ID, b.Level, price))
	return b, nil
}

// SellBuilding demolishes the building at (x, y) and returns it with the refund.
func (s *Store) SellBuilding(x, y int) (city.Building, int, error) {
	s.mu.Lock()
	defer s.unlock()

	i, b := s.find(x, y)
	if b == nil {
		s.metrics.RecordAction(ErrNoBuildingAtCell)
		return city.Building{}, 0, fmt.Errorf("sell at (%d,%d): %w", x, y, ErrNoBuildingAtCell)
	}

	s.buildings = append(s.buildings[:i], s.buildings[i+1:]...)
	refund := economy.SellValue(b)
	s.state.Tokens += refund
	s.state.TotalBuildings--
	s.metrics.RecordAction(nil)

	s.emitBuilding(events.EventTypeBuildingSold, b, refund, s.now())
	s.logger.Event(string(events.EventTypeBuildingSold), events.ActorPlayer,
		fmt.Sprintf("%s for %d", b.ID, refund))
	return *b, refund, nil
}

// GenerateRandomEvent activates a catalog event unless one is already in force.
func (s *Store) GenerateRandomEvent() (*catalog.EconomicEvent, error) {
	s.mu.Lock()
	defer s.unlock()

	if s.active != nil {
		return nil, ErrEventActive
	}
	if len(s.catalog.Events) == 0 {
		return nil, ErrNoEvents
	}

	ev := s.pickEvent()
	s.active = &ActiveEvent{Event: ev, Remaining: ev.Duration}
	s.metrics.RecordMarketEvent()

	s.emitMarket(events.EventTypeMarketEventStarted, ev, s.now())
	s.logger.Event(string(events.EventTypeMarketEventStarted), events.ActorScheduler,
		fmt.Sprintf("%s for %d ticks", ev.Title, ev.Duration))
	return ev, nil
}

// pickEvent selects uniformly unless weighted selection is enabled.
func (s *Store) pickEvent() *catalog.EconomicEvent {
	evs := s.catalog.Events
	if s.settings.WeightedEvents {
		var total float64
		for _, ev := range evs {
			total += ev.Probability
		}
		if total > 0 {
			r := s.rng.Float64() * total
			for _, ev := range evs {
				r -= ev.Probability
				if r < 0 {
					return ev
				}
			}
			// Float rounding can leave r at exactly zero.
			for i := len(evs) - 1; i >= 0; i-- {
				if evs[i].Probability > 0 {
					return evs[i]
				}
			}
		}
	}
	return evs[s.rng.IntN(len(evs))]
}

// Tick runs one Simulation Clock firing at time now. Buildings harvest only
// once a full tick interval has elapsed since their own last harvest.
func (s *Store) Tick(now time.Time) TickReport {
	start := time.Now()
	s.mu.Lock()
	defer s.unlock()

	var ev *catalog.EconomicEvent
	if s.active != nil {
		ev = s.active.Event
	}

	report := TickReport{At: now}
	for _, b := range s.buildings {
		if !b.IsActive || now.Sub(b.LastHarvest) < s.settings.TickInterval {
			continue
		}
		report.Yield += economy.Yield(b, ev)
		report.Maintenance += economy.Maintenance(b)
		b.LastHarvest = now
		report.Harvested++
	}
	report.Net = report.Yield - report.Maintenance

	s.history.Append(city.RevenueSample{Timestamp: now, Revenue: report.Net})

	if report.Yield != 0 || report.Maintenance != 0 {
		s.state.Tokens += report.Net
		if s.state.Tokens < 0 {
			s.state.Tokens = 0
		}
		s.state.WeeklyRevenue += report.Net
		s.state.LastUpdate = now
	}
	report.Tokens = s.state.Tokens

	if report.Yield != 0 || report.Maintenance != 0 {
		s.emit(events.GameEvent{
			Timestamp: now,
			Type:      events.EventTypeYieldTick,
			ActorID:   events.ActorClock,
			Payload: events.YieldPayload{
				Harvested:   report.Harvested,
				Yield:       report.Yield,
				Maintenance: report.Maintenance,
				Net:         report.Net,
				Tokens:      report.Tokens,
			},
		})
	}

	// The counter hitting zero does not clear the event; the following tick does.
	if s.active != nil {
		if s.active.Remaining > 0 {
			s.active.Remaining--
		} else {
			report.EventEnded = s.active.Event.ID
			s.emitMarket(events.EventTypeMarketEventEnded, s.active.Event, now)
			s.logger.Event(string(events.EventTypeMarketEventEnded), events.ActorClock, s.active.Event.Title)
			s.active = nil
		}
	}

	s.metrics.RecordTick(time.Since(start), report.Yield, report.Maintenance)
	return report
}

// emit records e in the activity log while the store is locked. Persisting it
// waits for unlock, so a slow ledger never holds up the clock or readers.
func (s *Store) emit(e events.GameEvent) {
	if s.eventLog == nil {
		return
	}
	s.pending = append(s.pending, s.eventLog.Record(e))
}

// unlock releases the store, then persists the events recorded while it was held.
func (s *Store) unlock() {
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()
	if len(pending) > 0 {
		s.eventLog.Persist(pending...)
	}
}

func (s *Store) emitBuilding(t events.EventType, b *city.Building, amount int, now time.Time) {
	s.emit(events.GameEvent{
		Timestamp: now,
		Type:      t,
		ActorID:   events.ActorPlayer,
		TargetID:  b.ID,
		Payload: events.BuildingPayload{
			BuildingID: b.ID,
			TypeID:     b.Type.ID,
			X:          b.X,
			Y:          b.Y,
			Level:      b.Level,
			Amount:     amount,
			Tokens:     s.state.Tokens,
		},
	})
}

func (s *Store) emitMarket(t events.EventType, ev *catalog.EconomicEvent, now time.Time) {
	actor := events.ActorScheduler
	if t == events.EventTypeMarketEventEnded {
		actor = events.ActorClock
	}
	s.emit(events.GameEvent{
		Timestamp: now,
		Type:      t,
		ActorID:   actor,
		TargetID:  ev.ID,
		Payload: events.MarketEventPayload{
			EventID:  ev.ID,
			Title:    ev.Title,
			Kind:     string(ev.Kind),
			Duration: ev.Duration,
		},
	})
}
