package lifecycle

import (
	"github.com/orchestra-dev/orchestra/pkg/api"
	"github.com/orchestra-dev/orchestra/pkg/util"
)

// StateTransitions maps states to their set of valid next states
type StateTransitions[T comparable] map[T]util.Set[T]

// executionTransitions is the execution status machine. Terminated, failed,
// and cancelled are terminal; cancellation may begin while pending or
// running
var executionTransitions = StateTransitions[api.ExecutionStatus]{
	api.ExecutionPending: util.SetOf(
		api.ExecutionRunning,
		api.ExecutionCancelling,
		api.ExecutionCancelled,
		api.ExecutionFailed,
	),
	api.ExecutionRunning: util.SetOf(
		api.ExecutionTerminated,
		api.ExecutionFailed,
		api.ExecutionCancelling,
		api.ExecutionCancelled,
	),
	api.ExecutionCancelling: util.SetOf(
		api.ExecutionCancelled,
		api.ExecutionFailed,
	),
	api.ExecutionTerminated: {},
	api.ExecutionFailed:     {},
	api.ExecutionCancelled:  {},
}

// CanTransition returns whether transition from one state to another is valid
func (t StateTransitions[T]) CanTransition(from, to T) bool {
	allowed, ok := t[from]
	if !ok {
		return false
	}
	return allowed.Contains(to)
}

// IsTerminal returns true if the state has no valid transitions
func (t StateTransitions[T]) IsTerminal(state T) bool {
	allowed, ok := t[state]
	return ok && allowed.IsEmpty()
}

// IsKnownStatus reports whether the status participates in the machine
func (t StateTransitions[T]) IsKnownStatus(state T) bool {
	_, ok := t[state]
	return ok
}
