package merge

import (
	"encoding/json"

	"github.com/roach88/mcjob/internal/mc"
	"github.com/roach88/mcjob/internal/measure"
	"github.com/roach88/mcjob/internal/stats"
)

// TaskState is the merge status of a task.
type TaskState string

const (
	// StateComplete means every run reached its sweep target.
	StateComplete TaskState = "complete"
	// StatePartial means some runs have data but not all are done.
	StatePartial TaskState = "partial"
	// StatePending means no run has produced a finalized bin.
	StatePending TaskState = "pending"
	// StateError means the task's statistics could not be computed.
	StateError TaskState = "error"
)

// Results is the merged result artifact of a job.
type Results struct {
	Job   string                `json:"job"`
	Model string                `json:"model"`
	Tasks map[string]TaskResult `json:"tasks"`
}

// TaskResult holds the statistics of one task.
type TaskResult struct {
	Parameters mc.Params `json:"parameters"`
	Status     TaskState `json:"status"`
	Error      string    `json:"error,omitempty"`
	// RunErrors lists runs whose checkpoints could not be read. Those runs
	// are left out of the statistics.
	RunErrors []string `json:"run_errors,omitempty"`

	Metadata    Metadata         `json:"metadata"`
	Observables map[string]Entry `json:"observables"`
	Evaluables  map[string]Entry `json:"evaluables"`
}

// Metadata describes the data a task result is based on.
type Metadata struct {
	Runs                int     `json:"runs"`
	RunsWithData        int     `json:"runs_with_data"`
	SweepsCompleted     int64   `json:"sweeps_completed"`
	TargetSweeps        int64   `json:"target_sweeps"`
	ThermalizedFraction float64 `json:"thermalized_fraction"`
	// ReducedCoverage is set when some runs contributed no bins.
	ReducedCoverage bool `json:"reduced_coverage"`
}

// Entry is the result of one observable or evaluable.
//
// Available entries encode as
//
//	{"mean": x, "error": x, "bins": n, "rebin_level": l, "tau_int": x, "converged": b}
//
// with arrays instead of numbers for vectors. Evaluables have no rebinning
// fields. Unavailable entries encode as {"available": false, "reason": "..."}.
type Entry struct {
	Available bool
	Reason    string

	Scalar bool
	Mean   []float64
	Error  []float64
	Bins   int

	// Primary observables only.
	RebinLevel *int
	TauInt     []float64
	Converged  *bool
}

func observableEntry(est stats.Estimate) Entry {
	if !est.Available {
		return Entry{Reason: est.Reason}
	}
	level, converged := est.RebinLevel, est.Converged
	return Entry{
		Available:  true,
		Scalar:     est.Scalar,
		Mean:       est.Mean,
		Error:      est.Error,
		Bins:       est.BinCount,
		RebinLevel: &level,
		TauInt:     est.TauInt,
		Converged:  &converged,
	}
}

func evaluableEntry(est stats.Estimate) Entry {
	if !est.Available {
		return Entry{Reason: est.Reason}
	}
	return Entry{
		Available: true,
		Scalar:    est.Scalar,
		Mean:      est.Mean,
		Error:     est.Error,
		Bins:      est.BinCount,
	}
}

type unavailableJSON struct {
	Available bool   `json:"available"`
	Reason    string `json:"reason"`
}

type availableJSON struct {
	Mean       json.RawMessage `json:"mean"`
	Error      json.RawMessage `json:"error"`
	Bins       int             `json:"bins"`
	RebinLevel *int            `json:"rebin_level,omitempty"`
	TauInt     json.RawMessage `json:"tau_int,omitempty"`
	Converged  *bool           `json:"converged,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (e Entry) MarshalJSON() ([]byte, error) {
	if !e.Available {
		return json.Marshal(unavailableJSON{Reason: e.Reason})
	}
	out := availableJSON{
		Mean:       e.value(e.Mean),
		Error:      e.value(e.Error),
		Bins:       e.Bins,
		RebinLevel: e.RebinLevel,
		Converged:  e.Converged,
	}
	if e.TauInt != nil {
		out.TauInt = e.value(e.TauInt)
	}
	return json.Marshal(out)
}

// value encodes v as a number for scalars and as an array otherwise.
// Non-finite components become "NaN", "+Inf" or "-Inf".
func (e Entry) value(v []float64) json.RawMessage {
	b, _ := measure.Vec(v).MarshalJSON() // never fails
	if e.Scalar && len(v) == 1 {
		b = b[1 : len(b)-1]
	}
	return b
}
