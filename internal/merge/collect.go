package merge

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/mcjob/internal/checkpoint"
	"github.com/roach88/mcjob/internal/job"
)

// RunData is the root-rank checkpoint of one run.
type RunData struct {
	Run int
	// Snapshot is nil if the run has not checkpointed yet or its
	// checkpoint could not be loaded.
	Snapshot *checkpoint.Snapshot
	// Err is the load error of an unreadable checkpoint.
	Err error
}

// HasBins reports whether the run has at least one finalized bin.
func (r RunData) HasBins() bool {
	if r.Snapshot == nil {
		return false
	}
	for _, st := range r.Snapshot.Observables {
		if len(st.Bins) > 0 {
			return true
		}
	}
	return false
}

// TaskData holds the runs of one task.
type TaskData struct {
	Task job.Task
	Runs []RunData
}

// Collect loads the latest checkpoint of every run of every task. In
// parallel-run mode only rank 0 holds observables, so only its checkpoint
// is read. Unreadable checkpoints are recorded per run; Collect itself
// fails only if ctx is cancelled or a store cannot be opened.
func Collect(ctx context.Context, j *job.Job, cat *checkpoint.Catalog) ([]TaskData, error) {
	out := make([]TaskData, 0, len(j.Tasks))
	for _, t := range j.Tasks {
		td := TaskData{Task: t, Runs: make([]RunData, j.Settings.RunsPerTask)}
		for run := range td.Runs {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			td.Runs[run] = loadRun(ctx, cat, t.Name, run, j.Settings.RanksPerRun)
		}
		out = append(out, td)
	}
	return out, nil
}

func loadRun(ctx context.Context, cat *checkpoint.Catalog, task string, run, ranks int) RunData {
	rd := RunData{Run: run}
	store, err := cat.Store(task, run, 0, ranks)
	if err != nil {
		rd.Err = fmt.Errorf("open checkpoint store: %w", err)
		return rd
	}
	snap, err := store.Load(ctx)
	switch {
	case errors.Is(err, checkpoint.ErrNotFound):
	case err != nil:
		rd.Err = err
	default:
		rd.Snapshot = snap
	}
	return rd
}
