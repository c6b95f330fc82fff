package coordinator

import (
	"errors"

	"github.com/roach88/mcjob/internal/merge"
)

// RunStatus is how a run ended in one invocation.
type RunStatus string

const (
	// RunDone means the run reached its sweep target.
	RunDone RunStatus = "done"
	// RunTimeUp means the run checkpointed and stopped on its time budget
	// or a cancellation.
	RunTimeUp RunStatus = "time_up"
	// RunFailed means the run returned an error.
	RunFailed RunStatus = "failed"
	// RunSkipped means the run was not started because another run of the
	// same task had a configuration error.
	RunSkipped RunStatus = "skipped"
	// RunNotStarted means the invocation ended before the run was
	// scheduled.
	RunNotStarted RunStatus = "not_started"
)

// RunReport is the outcome of one run.
type RunReport struct {
	Task   string
	Run    int
	Status RunStatus
	Err    error
	// AlreadyDone is set if the run was done before this invocation and
	// was not executed again.
	AlreadyDone bool
}

// Report summarizes one invocation of a job.
type Report struct {
	Job string
	// Runs is ordered by task, then run index.
	Runs []RunReport

	// Merged is set if the results were written in this invocation.
	Merged  bool
	Results *merge.Results
}

// Done reports whether every run of the job is done.
func (r *Report) Done() bool {
	for _, rr := range r.Runs {
		if rr.Status != RunDone {
			return false
		}
	}
	return len(r.Runs) > 0
}

// Count returns the number of runs with status s.
func (r *Report) Count(s RunStatus) int {
	n := 0
	for _, rr := range r.Runs {
		if rr.Status == s {
			n++
		}
	}
	return n
}

// Err joins the errors of all failed runs.
func (r *Report) Err() error {
	var errs []error
	for _, rr := range r.Runs {
		if rr.Err != nil {
			errs = append(errs, rr.Err)
		}
	}
	return errors.Join(errs...)
}
