package merge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/roach88/mcjob/internal/checkpoint"
	"github.com/roach88/mcjob/internal/job"
	"github.com/roach88/mcjob/internal/mc"
	"github.com/roach88/mcjob/internal/measure"
	"github.com/roach88/mcjob/internal/runner"
	"github.com/roach88/mcjob/internal/stats"
)

// Option configures a Merger.
type Option func(*Merger)

// WithStatsOptions sets the analysis options. The float type is still taken
// from each task's parameters.
func WithStatsOptions(opts stats.Options) Option {
	return func(m *Merger) {
		m.opts = opts
	}
}

// Merger computes result artifacts.
type Merger struct {
	registry *mc.Registry
	opts     stats.Options
}

// NewMerger creates a merger resolving models in registry.
func NewMerger(registry *mc.Registry, opts ...Option) *Merger {
	m := &Merger{registry: registry, opts: stats.DefaultOptions()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Merge collects the job's checkpoints through cat and computes its
// results. Errors local to a task or run are reported inside the results.
func (m *Merger) Merge(ctx context.Context, j *job.Job, cat *checkpoint.Catalog) (*Results, error) {
	data, err := Collect(ctx, j, cat)
	if err != nil {
		return nil, fmt.Errorf("collect checkpoints: %w", err)
	}
	return m.Build(j, data), nil
}

// MergeToFile merges and writes the artifact to the job's results path.
func (m *Merger) MergeToFile(ctx context.Context, j *job.Job, cat *checkpoint.Catalog) (*Results, error) {
	res, err := m.Merge(ctx, j, cat)
	if err != nil {
		return nil, err
	}
	if err := Write(j.Layout.ResultsPath(), res); err != nil {
		return nil, err
	}
	slog.Info("results merged", "job", j.Name, "path", j.Layout.ResultsPath(), "tasks", len(res.Tasks))
	return res, nil
}

// Build computes the results from collected data.
func (m *Merger) Build(j *job.Job, data []TaskData) *Results {
	res := &Results{Job: j.Name, Model: j.Model, Tasks: make(map[string]TaskResult, len(data))}

	model, modelErr := m.registry.Lookup(j.Model)
	for _, td := range data {
		tr := m.buildTask(model, td)
		if modelErr != nil {
			tr.Status = StateError
			tr.Error = modelErr.Error()
		}
		res.Tasks[td.Task.Name] = tr
	}
	return res
}

func (m *Merger) buildTask(model mc.Model, td TaskData) TaskResult {
	st := taskStatus(td)
	tr := TaskResult{
		Parameters: td.Task.Params,
		Metadata: Metadata{
			Runs:                st.Runs,
			RunsWithData:        st.RunsWithData,
			SweepsCompleted:     st.SweepsCompleted,
			TargetSweeps:        st.TargetSweeps,
			ThermalizedFraction: st.ThermalizedFraction,
			ReducedCoverage:     st.RunsWithData < st.Runs,
		},
		Observables: map[string]Entry{},
		Evaluables:  map[string]Entry{},
	}
	for _, rd := range td.Runs {
		if rd.Err != nil {
			slog.Error("checkpoint unreadable", "task", td.Task.Name, "run", rd.Run, "error", rd.Err)
			tr.RunErrors = append(tr.RunErrors, fmt.Sprintf("run %d: %v", rd.Run, rd.Err))
		}
	}
	if model == nil {
		return tr
	}

	fail := func(err error) TaskResult {
		slog.Error("task merge failed", "task", td.Task.Name, "error", err)
		tr.Status = StateError
		tr.Error = err.Error()
		return tr
	}

	settings, err := runner.ParseSettings(td.Task.Params)
	if err != nil {
		return fail(err)
	}
	ev := stats.NewEvaluator(td.Task.Params)
	if err := model.RegisterEvaluables(ev, td.Task.Params); err != nil {
		return fail(fmt.Errorf("register evaluables: %w", err))
	}

	runs := make([]map[string]measure.State, 0, len(td.Runs))
	for _, rd := range td.Runs {
		if rd.Snapshot != nil {
			runs = append(runs, rd.Snapshot.Observables)
		}
	}

	opts := m.opts
	opts.Float32 = settings.Float32
	computed, err := stats.NewEngine(opts).Compute(runs, ev)
	if err != nil {
		return fail(err)
	}
	for name, est := range computed.Observables {
		tr.Observables[name] = observableEntry(est)
	}
	for name, est := range computed.Evaluables {
		tr.Evaluables[name] = evaluableEntry(est)
	}

	switch {
	case st.RunsWithData == 0:
		tr.Status = StatePending
	case st.RunsDone == st.Runs && len(tr.RunErrors) == 0:
		tr.Status = StateComplete
	default:
		tr.Status = StatePartial
	}
	return tr
}

// Encode returns the indented JSON form of the results.
func Encode(res *Results) ([]byte, error) {
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode results: %w", err)
	}
	return append(data, '\n'), nil
}

// Write stores the results atomically at path.
func Write(path string, res *Results) error {
	data, err := Encode(res)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create results directory: %w", err)
	}
	if err := checkpoint.WriteFileAtomic(path, data, 0o644); err != nil {
		return mc.NewPersistenceError("write results", err)
	}
	return nil
}
