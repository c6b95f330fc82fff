package mc

import "math/rand/v2"

// Context is the runtime surface visible to an Algorithm.
//
// Report and ReportVector record one sample for the named observable. The
// first sample fixes the observable's shape; a later sample with a different
// shape is a configuration error.
type Context interface {
	Report(name string, value float64) error
	ReportVector(name string, value []float64) error

	// IsThermalized reports whether thermalization is complete. In
	// parallel-run mode it is true only if it is true on every rank.
	IsThermalized() bool

	// Rand returns the run's random stream. Its state is checkpointed.
	Rand() *rand.Rand

	// Rank and Ranks identify this worker inside a parallel-run group.
	// Outside parallel-run mode they are 0 and 1.
	Rank() int
	Ranks() int
}

// Algorithm is one instance of a Monte Carlo simulation.
//
// The runtime calls Init once for a fresh run, or ReadCheckpoint once when
// resuming. After that it calls Sweep for every step and Measure after every
// step once the run is thermalized.
type Algorithm interface {
	Init(ctx Context, params Params) error
	Sweep(ctx Context) error
	Measure(ctx Context) error

	// WriteCheckpoint returns the complete algorithm state.
	WriteCheckpoint() ([]byte, error)
	// ReadCheckpoint restores a state produced by WriteCheckpoint.
	ReadCheckpoint(data []byte) error
}

// EvalFunc computes an evaluable from the means of its ingredients.
// args holds one value per ingredient in registration order; scalars are
// passed as length-one slices. It must not retain or modify args.
type EvalFunc func(params Params, args [][]float64) ([]float64, error)

// Evaluator collects evaluable definitions for one task.
type Evaluator interface {
	Evaluate(name string, ingredients []string, fn EvalFunc) error
}

// Model creates algorithm instances for a simulated system.
type Model interface {
	// Name identifies the model in job files.
	Name() string

	// New returns a fresh, uninitialized algorithm for a task.
	New(params Params) (Algorithm, error)

	// RegisterEvaluables is called once per task before statistics are
	// computed. It cannot see any simulation state, only the parameters.
	RegisterEvaluables(ev Evaluator, params Params) error
}
