package runner

import "fmt"

// State is a run controller state.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateInitializing  State = "initializing"
	StateThermalizing  State = "thermalizing"
	StateMeasuring     State = "measuring"
	StateCheckpointing State = "checkpointing"
	StateDone          State = "done"
)

// A restored run skips Initializing and resumes in the state implied by its
// counters. Checkpointing returns to the state it interrupted, or ends the
// run.
var allowedTransitions = map[State]map[State]struct{}{
	StateUninitialized: {
		StateInitializing: {},
		StateThermalizing: {},
		StateMeasuring:    {},
	},
	StateInitializing: {
		StateThermalizing: {},
	},
	StateThermalizing: {
		StateMeasuring:     {},
		StateCheckpointing: {},
	},
	StateMeasuring: {
		StateCheckpointing: {},
	},
	StateCheckpointing: {
		StateThermalizing: {},
		StateMeasuring:    {},
		StateDone:         {},
	},
	StateDone: {},
}

// ValidateTransition returns an error if from -> to is not allowed.
func ValidateTransition(from, to State) error {
	next, ok := allowedTransitions[from]
	if !ok {
		return fmt.Errorf("invalid run state: %q", from)
	}
	if _, ok := allowedTransitions[to]; !ok {
		return fmt.Errorf("invalid run state: %q", to)
	}
	if _, ok := next[to]; !ok {
		return fmt.Errorf("invalid run transition: %s -> %s", from, to)
	}
	return nil
}

// Outcome is how Run returned.
type Outcome string

const (
	// OutcomeDone means the target sweeps are complete.
	OutcomeDone Outcome = "done"
	// OutcomeTimeUp means the run time budget ran out, or the run was
	// cancelled, and a checkpoint was written.
	OutcomeTimeUp Outcome = "time_up"
)
