package world

import (
	"errors"
	"fmt"
)

// Errors reachable through normal agent behavior. The scheduler absorbs
// these into NoOp at the apply boundary; they never surface to callers.
var (
	ErrOutOfBounds       = errors.New("position out of bounds")
	ErrCellOccupied      = errors.New("cell occupied")
	ErrEmptyCell         = errors.New("no waste at cell")
	ErrAlreadyClaimed    = errors.New("waste already claimed")
	ErrIncompatibleItems = errors.New("incompatible waste items")
	ErrAlreadyCompleted  = errors.New("waste already completed")
	ErrUnknownWaste      = errors.New("unknown waste id")
)

// ErrStopped is returned for operations on a stopped world. Stopped is
// terminal.
var ErrStopped = errors.New("simulation stopped")

// InvariantError marks a state that no well-formed agent can reach
// (e.g. a zone-0 drone proposing to pick red waste). It denotes a
// construction bug and aborts the run.
type InvariantError struct {
	Op     string
	Detail string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("invariant violation in %s: %s", e.Op, e.Detail)
}
