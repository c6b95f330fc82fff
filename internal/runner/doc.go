// Package runner drives one run of a task: initialization or restore,
// thermalization and measurement sweeps, time-budgeted checkpoints and the
// final checkpoint at completion.
//
// The loop is cooperative. Time budgets and cancellation are checked at
// the top of every iteration, never inside a sweep, so checkpoint
// boundaries depend only on when the budget check fires.
package runner
