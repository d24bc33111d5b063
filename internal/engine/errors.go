package engine

import "errors"

// Failure reasons for store operations. A failed operation never changes state.
var (
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrInvalidTarget       = errors.New("coordinates outside the grid")
	ErrOccupiedCell        = errors.New("cell already occupied")
	ErrNoBuildingAtCell    = errors.New("no building at cell")
	ErrUnknownBuildingType = errors.New("unknown building type")
	ErrEventActive         = errors.New("an economic event is already active")
	ErrNoEvents            = errors.New("catalog defines no economic events")
)

// ErrorCode is the stable wire name of a store failure, or "INTERNAL" for anything else.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInsufficientFunds):
		return "INSUFFICIENT_FUNDS"
	case errors.Is(err, ErrInvalidTarget):
		return "INVALID_TARGET"
	case errors.Is(err, ErrOccupiedCell):
		return "OCCUPIED_CELL"
	case errors.Is(err, ErrNoBuildingAtCell):
		return "NO_BUILDING_AT_CELL"
	case errors.Is(err, ErrUnknownBuildingType):
		return "UNKNOWN_BUILDING_TYPE"
	case errors.Is(err, ErrEventActive):
		return "EVENT_ACTIVE"
	case errors.Is(err, ErrNoEvents):
		return "NO_EVENTS"
	}
	return "INTERNAL"
}
