package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/roach88/mcjob/internal/checkpoint"
	"github.com/roach88/mcjob/internal/mc"
	"github.com/roach88/mcjob/internal/measure"
	"github.com/roach88/mcjob/internal/parallel"
	"github.com/roach88/mcjob/internal/rng"
)

// Config describes one run.
type Config struct {
	Task   string
	Run    int
	Params mc.Params

	// Algorithm is a fresh instance; the controller calls either Init or
	// ReadCheckpoint on it.
	Algorithm mc.Algorithm
	Store     checkpoint.Store

	// CheckpointTime is the wall time between checkpoints. Zero disables
	// periodic checkpoints.
	CheckpointTime time.Duration
	// RunTime is the wall time after which the run checkpoints and exits.
	// Zero means no limit.
	RunTime time.Duration
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock sets the wall clock used for budgets.
func WithClock(clock Clock) Option {
	return func(c *Controller) {
		c.clock = clock
	}
}

// WithIDGenerator sets the run id generator.
func WithIDGenerator(gen IDGenerator) Option {
	return func(c *Controller) {
		c.ids = gen
	}
}

// WithComm puts the controller in parallel-run mode as one rank of comm's
// group.
func WithComm(comm parallel.Comm) Option {
	return func(c *Controller) {
		c.coord = parallel.NewCoordinator(comm)
	}
}

// Progress is a snapshot of the run counters.
type Progress struct {
	RunID              string
	ThermalizationDone int64
	MeasurementDone    int64
	Thermalization     int64
	Sweeps             int64
	Sequence           int64
}

// Controller runs one task run (one rank of it in parallel-run mode).
//
// Not safe for concurrent use.
type Controller struct {
	cfg      Config
	settings Settings
	clock    Clock
	ids      IDGenerator
	coord    *parallel.Coordinator

	state       State
	interrupted State

	runID              string
	sequence           int64
	thermalizationDone int64
	measurementDone    int64
	thermalized        bool

	stream *rng.Stream
	set    *measure.Set
	rctx   *runContext

	started        time.Time
	lastCheckpoint time.Time
}

// New validates cfg and creates a controller.
func New(cfg Config, opts ...Option) (*Controller, error) {
	if cfg.Algorithm == nil {
		return nil, errors.New("runner: config has no algorithm")
	}
	if cfg.Store == nil {
		return nil, errors.New("runner: config has no checkpoint store")
	}
	settings, err := ParseSettings(cfg.Params)
	if err != nil {
		var me *mc.Error
		if errors.As(err, &me) {
			return nil, me.WithTask(cfg.Task, cfg.Run)
		}
		return nil, err
	}

	c := &Controller{
		cfg:      cfg,
		settings: settings,
		clock:    SystemClock{},
		ids:      UUIDv7Generator{},
		coord:    parallel.NewCoordinator(parallel.Solo{}),
		state:    StateUninitialized,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.rctx = &runContext{c: c}
	return c, nil
}

// State returns the current state.
func (c *Controller) State() State {
	return c.state
}

// Progress returns the current counters.
func (c *Controller) Progress() Progress {
	return Progress{
		RunID:              c.runID,
		ThermalizationDone: c.thermalizationDone,
		MeasurementDone:    c.measurementDone,
		Thermalization:     c.settings.Thermalization,
		Sweeps:             c.settings.Sweeps,
		Sequence:           c.sequence,
	}
}

// Run executes the run until the target sweeps are done or the time budget
// runs out. Cancelling ctx is a cooperative stop: the controller writes a
// checkpoint at the next budget check and returns OutcomeTimeUp.
//
// In parallel-run mode a failure on any rank fails every rank.
func (c *Controller) Run(ctx context.Context) (Outcome, error) {
	if c.state != StateUninitialized {
		return "", fmt.Errorf("runner: Run called in state %s", c.state)
	}
	out, err := c.run(ctx)
	if err != nil {
		c.coord.Abort(err)
		return "", fmt.Errorf("task %q run %d: %w", c.cfg.Task, c.cfg.Run, err)
	}
	return out, nil
}

func (c *Controller) run(ctx context.Context) (Outcome, error) {
	// Collectives and checkpoint writes must complete after a cancellation
	// so the stop ends with a consistent checkpoint.
	cctx := context.WithoutCancel(ctx)

	c.started = c.clock.Now()
	c.lastCheckpoint = c.started

	if err := c.start(cctx); err != nil {
		return "", err
	}

	for {
		sweep := c.thermalizationDone + c.measurementDone

		if c.measurementDone >= c.settings.Sweeps {
			if err := c.checkpoint(cctx, true); err != nil {
				return "", err
			}
			slog.Info("run done",
				"task", c.cfg.Task,
				"run", c.cfg.Run,
				"rank", c.coord.Rank(),
				"sweeps", c.measurementDone,
			)
			return OutcomeDone, nil
		}

		now := c.clock.Now()
		due := c.cfg.CheckpointTime > 0 && now.Sub(c.lastCheckpoint) >= c.cfg.CheckpointTime
		exit := (c.cfg.RunTime > 0 && now.Sub(c.started) >= c.cfg.RunTime) || ctx.Err() != nil
		due, exit, err := c.coord.Decide(cctx, sweep, due, exit)
		if err != nil {
			return "", err
		}
		if due {
			if err := c.checkpoint(cctx, false); err != nil {
				return "", err
			}
			if exit {
				slog.Info("run time up",
					"task", c.cfg.Task,
					"run", c.cfg.Run,
					"rank", c.coord.Rank(),
					"thermalization_done", c.thermalizationDone,
					"measurement_done", c.measurementDone,
				)
				return OutcomeTimeUp, nil
			}
		}

		if err := c.step(cctx, sweep); err != nil {
			return "", err
		}
	}
}

// start restores the run from its checkpoint or initializes a fresh one.
func (c *Controller) start(cctx context.Context) error {
	snap, err := c.cfg.Store.Load(cctx)
	switch {
	case errors.Is(err, checkpoint.ErrNotFound):
		snap = nil
	case err != nil:
		return fmt.Errorf("load checkpoint: %w", err)
	}

	point := parallel.RestorePoint{}
	if snap != nil {
		point = parallel.RestorePoint{
			Present:            true,
			RunID:              snap.RunID,
			Sequence:           snap.Sequence,
			ThermalizationDone: snap.ThermalizationDone,
			MeasurementDone:    snap.MeasurementDone,
		}
	}
	if err := c.coord.Restore(cctx, point); err != nil {
		return err
	}

	if snap == nil {
		return c.initialize(cctx)
	}
	return c.restore(snap)
}

func (c *Controller) initialize(cctx context.Context) error {
	if err := c.transition(StateInitializing); err != nil {
		return err
	}

	base := c.settings.Seed
	if !c.settings.HasSeed {
		base = rand.Uint64()
	}
	seed, err := c.coord.Seed(cctx, rng.Derive(base, uint64(c.cfg.Run)))
	if err != nil {
		return err
	}
	if c.runID, err = c.coord.RunID(cctx, c.ids.Generate()); err != nil {
		return err
	}
	if c.stream, err = rng.New(c.settings.RNG, seed); err != nil {
		return mc.NewConfigurationError(err.Error())
	}
	c.set = measure.NewSet(c.settings.BinSize)

	if err := c.cfg.Algorithm.Init(c.rctx, c.cfg.Params); err != nil {
		return fmt.Errorf("initialize algorithm: %w", err)
	}
	if err := c.flush(cctx, 0); err != nil {
		return err
	}

	slog.Debug("run initialized",
		"task", c.cfg.Task,
		"run", c.cfg.Run,
		"rank", c.coord.Rank(),
		"run_id", c.runID,
		"rng", c.settings.RNG,
	)
	return c.transition(StateThermalizing)
}

func (c *Controller) restore(snap *checkpoint.Snapshot) error {
	if snap.Task != c.cfg.Task || snap.Run != c.cfg.Run || snap.Rank != c.coord.Rank() {
		return mc.NewConfigurationError(fmt.Sprintf(
			"checkpoint belongs to task %q run %d rank %d", snap.Task, snap.Run, snap.Rank))
	}
	if snap.Ranks != c.coord.Ranks() {
		return mc.NewConfigurationError(fmt.Sprintf(
			"checkpoint was written by a group of %d ranks, group now has %d", snap.Ranks, c.coord.Ranks()))
	}

	var err error
	if c.stream, err = rng.Restore(snap.RNG); err != nil {
		return mc.NewPersistenceError("restore rng", err)
	}
	if c.set, err = measure.SetFromStates(c.settings.BinSize, snap.Observables); err != nil {
		return err
	}
	for _, name := range c.set.Names() {
		b, _ := c.set.Get(name)
		if b.BinSize() != c.settings.BinSize {
			return mc.NewConfigurationError(fmt.Sprintf(
				"observable %q was binned with binsize %d, task has %d", name, b.BinSize(), c.settings.BinSize))
		}
	}
	if err := c.cfg.Algorithm.ReadCheckpoint(snap.Algorithm); err != nil {
		return mc.NewPersistenceError("restore algorithm state", err)
	}

	c.runID = snap.RunID
	c.sequence = snap.Sequence
	c.thermalizationDone = snap.ThermalizationDone
	c.measurementDone = snap.MeasurementDone

	next := StateThermalizing
	if c.thermalizationDone >= c.settings.Thermalization {
		next = StateMeasuring
	}
	slog.Debug("run restored",
		"task", c.cfg.Task,
		"run", c.cfg.Run,
		"rank", c.coord.Rank(),
		"sequence", c.sequence,
		"thermalization_done", c.thermalizationDone,
		"measurement_done", c.measurementDone,
	)
	return c.transition(next)
}

// step performs one sweep. A sweep is never interrupted.
func (c *Controller) step(cctx context.Context, sweep int64) error {
	thermalized, err := c.coord.Thermalized(cctx, sweep, c.thermalizationDone >= c.settings.Thermalization)
	if err != nil {
		return err
	}
	c.thermalized = thermalized
	if thermalized && c.state == StateThermalizing {
		if err := c.transition(StateMeasuring); err != nil {
			return err
		}
	}

	if err := c.cfg.Algorithm.Sweep(c.rctx); err != nil {
		return fmt.Errorf("sweep %d: %w", sweep, err)
	}
	if thermalized {
		if err := c.cfg.Algorithm.Measure(c.rctx); err != nil {
			return fmt.Errorf("measure %d: %w", sweep, err)
		}
	}
	if err := c.flush(cctx, sweep); err != nil {
		return err
	}

	if thermalized {
		c.measurementDone++
	} else {
		c.thermalizationDone++
	}
	return nil
}

// flush reduces the samples of a sweep across ranks and bins them on the
// root rank.
func (c *Controller) flush(cctx context.Context, sweep int64) error {
	samples, err := c.coord.ReduceSamples(cctx, sweep, c.rctx.take())
	if err != nil {
		return err
	}
	if !c.coord.IsRoot() {
		return nil
	}
	for _, s := range samples {
		if err := c.set.Add(s.Name, s.Values, s.Scalar); err != nil {
			return err
		}
	}
	return nil
}

// checkpoint writes a snapshot, then returns to the interrupted state or,
// if final, ends the run. All ranks of a group commit together: each rank
// stages its snapshot, and the staged snapshots are promoted only when every
// rank staged successfully. Otherwise every rank discards and fails, and the
// stores keep the previous common checkpoint.
func (c *Controller) checkpoint(cctx context.Context, final bool) error {
	if err := c.transition(StateCheckpointing); err != nil {
		return err
	}

	snap, err := c.snapshot()
	if err != nil {
		return err
	}
	var writeErr error
	staged, err := c.cfg.Store.Stage(cctx, snap)
	if err != nil {
		writeErr = mc.NewPersistenceError("write checkpoint", err)
	}
	sweep := c.thermalizationDone + c.measurementDone
	if err := c.coord.Commit(cctx, sweep, writeErr); err != nil {
		if staged != nil {
			if derr := staged.Discard(); derr != nil {
				slog.Warn("discard staged checkpoint", "rank", c.coord.Rank(), "error", derr)
			}
		}
		slog.Error("checkpoint failed",
			"task", c.cfg.Task,
			"run", c.cfg.Run,
			"rank", c.coord.Rank(),
			"error", err,
		)
		return err
	}
	if err := staged.Promote(cctx); err != nil {
		slog.Error("checkpoint promote failed",
			"task", c.cfg.Task,
			"run", c.cfg.Run,
			"rank", c.coord.Rank(),
			"error", err,
		)
		return err
	}

	c.sequence = snap.Sequence
	c.lastCheckpoint = c.clock.Now()
	slog.Debug("checkpoint written",
		"task", c.cfg.Task,
		"run", c.cfg.Run,
		"rank", c.coord.Rank(),
		"sequence", c.sequence,
		"sweep", sweep,
	)

	if final {
		return c.transition(StateDone)
	}
	return c.transition(c.interrupted)
}

func (c *Controller) snapshot() (*checkpoint.Snapshot, error) {
	st, err := c.stream.SaveState()
	if err != nil {
		return nil, mc.NewPersistenceError("save rng state", err)
	}
	blob, err := c.cfg.Algorithm.WriteCheckpoint()
	if err != nil {
		return nil, mc.NewPersistenceError("save algorithm state", err)
	}
	observables := map[string]measure.State{}
	if c.coord.IsRoot() {
		observables = c.set.States()
	}
	return &checkpoint.Snapshot{
		FormatVersion:      mc.CheckpointFormatVersion,
		RunID:              c.runID,
		Task:               c.cfg.Task,
		Run:                c.cfg.Run,
		Rank:               c.coord.Rank(),
		Ranks:              c.coord.Ranks(),
		Sequence:           c.sequence + 1,
		ThermalizationDone: c.thermalizationDone,
		MeasurementDone:    c.measurementDone,
		RNG:                st,
		Observables:        observables,
		Algorithm:          blob,
	}, nil
}

func (c *Controller) transition(to State) error {
	if err := ValidateTransition(c.state, to); err != nil {
		return err
	}
	if to == StateCheckpointing {
		c.interrupted = c.state
	}
	slog.Debug("run state",
		"task", c.cfg.Task,
		"run", c.cfg.Run,
		"rank", c.coord.Rank(),
		"from", c.state,
		"to", to,
	)
	c.state = to
	return nil
}
