package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/mcjob/internal/checkpoint"
	"github.com/roach88/mcjob/internal/job"
	"github.com/roach88/mcjob/internal/mc"
	"github.com/roach88/mcjob/internal/merge"
	"github.com/roach88/mcjob/internal/parallel"
	"github.com/roach88/mcjob/internal/runner"
)

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithClock sets the wall clock for the job's time budget and every run.
func WithClock(clock runner.Clock) Option {
	return func(c *Coordinator) {
		c.clock = clock
	}
}

// WithIDGenerator sets the run id generator.
func WithIDGenerator(gen runner.IDGenerator) Option {
	return func(c *Coordinator) {
		c.ids = gen
	}
}

// WithWorkers overrides the job's worker count.
func WithWorkers(n int) Option {
	return func(c *Coordinator) {
		c.workers = n
	}
}

// WithMerger sets the merger used once the job is done.
func WithMerger(m *merge.Merger) Option {
	return func(c *Coordinator) {
		c.merger = m
	}
}

// Coordinator runs all tasks of a job.
type Coordinator struct {
	job      *job.Job
	registry *mc.Registry
	clock    runner.Clock
	ids      runner.IDGenerator
	workers  int
	merger   *merge.Merger
}

// New creates a coordinator for j resolving its model in registry.
func New(j *job.Job, registry *mc.Registry, opts ...Option) *Coordinator {
	c := &Coordinator{
		job:      j,
		registry: registry,
		clock:    runner.SystemClock{},
		ids:      runner.UUIDv7Generator{},
		workers:  j.Settings.Workers,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.merger == nil {
		c.merger = merge.NewMerger(registry)
	}
	return c
}

// Run executes every run that is not yet done, until all are done or the
// job's run time or ctx ends the invocation. Once all runs are done the
// results are merged.
//
// The returned error is a configuration error that prevented any run from
// starting, or the joined errors of all failed runs. The report is non-nil
// whenever runs were scheduled.
func (c *Coordinator) Run(ctx context.Context) (*Report, error) {
	j := c.job
	ranks := j.Settings.RanksPerRun
	if c.workers < ranks {
		return nil, mc.NewConfigurationError(fmt.Sprintf("workers (%d) must be at least ranks_per_run (%d)", c.workers, ranks))
	}
	model, err := c.registry.Lookup(j.Model)
	if err != nil {
		return nil, err
	}
	if err := j.CheckParameters(); err != nil {
		return nil, err
	}

	cat := checkpoint.NewCatalog(j.Settings.Backend, j.Layout.DataDir())
	// Planning only reads checkpoints, so a cancelled ctx still yields a
	// complete report.
	report, queue, err := c.plan(context.WithoutCancel(ctx), cat)
	if err != nil {
		cat.Close()
		return nil, err
	}

	groups := c.workers / ranks
	slog.Info("job started",
		"job", j.Name,
		"pending", queue.Len(),
		"groups", groups,
		"ranks_per_run", ranks,
	)

	rec := &recorder{report: report}
	started := c.clock.Now()
	var wg sync.WaitGroup
	for g := 0; g < groups; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.worker(ctx, model, cat, queue, rec, started)
		}()
	}
	wg.Wait()
	for _, u := range queue.Drain() {
		rec.set(u, RunNotStarted, nil)
	}

	if err := cat.Close(); err != nil {
		slog.Error("close checkpoint catalog", "job", j.Name, "error", err)
	}

	slog.Info("job stopped",
		"job", j.Name,
		"done", report.Count(RunDone),
		"time_up", report.Count(RunTimeUp),
		"failed", report.Count(RunFailed),
		"skipped", report.Count(RunSkipped),
		"not_started", report.Count(RunNotStarted),
	)

	if report.Done() {
		ro := checkpoint.NewCatalog(j.Settings.Backend, j.Layout.DataDir(), checkpoint.CatalogReadOnly())
		defer ro.Close()
		res, err := c.merger.MergeToFile(context.WithoutCancel(ctx), j, ro)
		if err != nil {
			return report, fmt.Errorf("merge results: %w", err)
		}
		report.Results = res
		report.Merged = true
	}
	return report, report.Err()
}

// plan queues every run that is not done yet. Runs whose checkpoint cannot
// be read are queued as well so that the run itself reports the error.
func (c *Coordinator) plan(ctx context.Context, cat *checkpoint.Catalog) (*Report, *unitQueue, error) {
	data, err := merge.Collect(ctx, c.job, cat)
	if err != nil {
		return nil, nil, err
	}

	report := &Report{Job: c.job.Name}
	var pending []unit
	for _, td := range data {
		settings, err := runner.ParseSettings(td.Task.Params)
		if err != nil {
			return nil, nil, fmt.Errorf("task %q: %w", td.Task.Name, err)
		}
		for _, rd := range td.Runs {
			rr := RunReport{Task: td.Task.Name, Run: rd.Run, Status: RunNotStarted}
			if rd.Snapshot != nil && rd.Snapshot.MeasurementDone >= settings.Sweeps {
				rr.Status = RunDone
				rr.AlreadyDone = true
			} else {
				pending = append(pending, unit{Task: td.Task, Run: rd.Run})
			}
			report.Runs = append(report.Runs, rr)
		}
	}
	return report, newUnitQueue(pending), nil
}

func (c *Coordinator) worker(ctx context.Context, model mc.Model, cat *checkpoint.Catalog, q *unitQueue, rec *recorder, started time.Time) {
	for {
		if ctx.Err() != nil {
			return
		}
		budget := time.Duration(0)
		if rt := c.job.Settings.RunTime; rt > 0 {
			budget = rt - c.clock.Now().Sub(started)
			if budget <= 0 {
				return
			}
		}
		u, ok := q.TryDequeue()
		if !ok {
			return
		}

		slog.Debug("run started", "task", u.Task.Name, "run", u.Run)
		out, err := c.runUnit(ctx, model, cat, u, budget)
		switch {
		case err == nil && out == runner.OutcomeDone:
			rec.set(u, RunDone, nil)
		case err == nil:
			rec.set(u, RunTimeUp, nil)
		case mc.IsConfigurationError(err):
			slog.Error("configuration error stops task", "task", u.Task.Name, "run", u.Run, "error", err)
			rec.set(u, RunFailed, err)
			for _, d := range q.Drop(u.Task.Name) {
				rec.set(d, RunSkipped, nil)
			}
		default:
			slog.Error("run failed", "task", u.Task.Name, "run", u.Run, "error", err)
			rec.set(u, RunFailed, err)
		}
	}
}

// runUnit executes one run with all its ranks and returns rank 0's outcome.
func (c *Coordinator) runUnit(ctx context.Context, model mc.Model, cat *checkpoint.Catalog, u unit, budget time.Duration) (runner.Outcome, error) {
	ranks := c.job.Settings.RanksPerRun
	if ranks == 1 {
		ctrl, err := c.controller(model, cat, u, 0, 1, budget, nil)
		if err != nil {
			return "", err
		}
		return ctrl.Run(ctx)
	}

	group := parallel.NewLocalGroup(ranks)
	outcomes := make([]runner.Outcome, ranks)
	errs := make([]error, ranks)
	var wg sync.WaitGroup
	for rank := 0; rank < ranks; rank++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			comm := group.Comm(rank)
			ctrl, err := c.controller(model, cat, u, rank, ranks, budget, comm)
			if err != nil {
				comm.Abort(err)
				errs[rank] = err
				return
			}
			outcomes[rank], errs[rank] = ctrl.Run(ctx)
		}()
	}
	wg.Wait()
	return outcomes[0], groupError(errs)
}

func (c *Coordinator) controller(model mc.Model, cat *checkpoint.Catalog, u unit, rank, ranks int, budget time.Duration, comm parallel.Comm) (*runner.Controller, error) {
	alg, err := model.New(u.Task.Params)
	if err != nil {
		return nil, fmt.Errorf("task %q run %d: create algorithm: %w", u.Task.Name, u.Run, err)
	}
	store, err := cat.Store(u.Task.Name, u.Run, rank, ranks)
	if err != nil {
		return nil, mc.NewPersistenceError(fmt.Sprintf("task %q run %d: open checkpoint store", u.Task.Name, u.Run), err)
	}

	opts := []runner.Option{runner.WithClock(c.clock), runner.WithIDGenerator(c.ids)}
	if comm != nil {
		opts = append(opts, runner.WithComm(comm))
	}
	return runner.New(runner.Config{
		Task:           u.Task.Name,
		Run:            u.Run,
		Params:         u.Task.Params,
		Algorithm:      alg,
		Store:          store,
		CheckpointTime: c.job.Settings.CheckpointTime,
		RunTime:        budget,
	}, opts...)
}

// groupError picks the error describing a failed group. Ranks that only
// saw the group being aborted report desync errors, so the first other
// error is the cause.
func groupError(errs []error) error {
	var first error
	for _, err := range errs {
		if err == nil {
			continue
		}
		if !mc.IsDesyncError(err) {
			return err
		}
		if first == nil {
			first = err
		}
	}
	return first
}

// recorder updates the report from concurrent workers.
type recorder struct {
	mu     sync.Mutex
	report *Report
}

func (r *recorder) set(u unit, status RunStatus, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.report.Runs {
		rr := &r.report.Runs[i]
		if rr.Task == u.Task.Name && rr.Run == u.Run {
			rr.Status = status
			rr.Err = err
			return
		}
	}
}
