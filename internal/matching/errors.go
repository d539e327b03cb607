package matching

import "fmt"

// InvariantError describes an internal inconsistency in a symbol's book
// (e.g. a resting order found crossed at rest, or filled exceeding quantity).
// The matcher runs no invariant checks and never returns one, and nothing
// sets symbolActor.halted, so no symbol is ever halted.
type InvariantError struct {
	Symbol string
	Reason string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("matching invariant violated for %s: %s", e.Symbol, e.Reason)
}
