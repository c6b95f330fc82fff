package job

import (
	"fmt"
	"time"

	"github.com/roach88/mcjob/internal/checkpoint"
	"github.com/roach88/mcjob/internal/mc"
	"github.com/roach88/mcjob/internal/runner"
)

// Default job settings.
const (
	DefaultCheckpointTime = 15 * time.Minute
	DefaultRunsPerTask    = 1
	DefaultRanksPerRun    = 1
	DefaultWorkers        = 1
)

// Task is one parameter set to simulate.
type Task struct {
	// Name identifies the task and names its data directory. It is NFC
	// normalized.
	Name   string
	Params mc.Params
}

// Settings are the job-wide execution settings.
type Settings struct {
	// CheckpointTime is the wall time between checkpoints of a run.
	CheckpointTime time.Duration
	// RunTime is the wall time budget of one invocation. Zero means no
	// limit.
	RunTime time.Duration

	// RunsPerTask is the number of independent replicas per task.
	RunsPerTask int
	// RanksPerRun is the number of cooperating ranks per run. More than
	// one enables parallel-run mode.
	RanksPerRun int
	// Workers is the number of ranks executing concurrently.
	Workers int

	Backend checkpoint.Backend
}

// Job is a named set of tasks simulated with one model.
type Job struct {
	Name     string
	Model    string
	Settings Settings
	Tasks    []Task
	Layout   Layout
}

// DefaultSettings returns the settings used for omitted job fields.
func DefaultSettings() Settings {
	return Settings{
		CheckpointTime: DefaultCheckpointTime,
		RunsPerTask:    DefaultRunsPerTask,
		RanksPerRun:    DefaultRanksPerRun,
		Workers:        DefaultWorkers,
		Backend:        checkpoint.BackendFile,
	}
}

// Task returns the task with the given name.
func (j *Job) Task(name string) (Task, bool) {
	for _, t := range j.Tasks {
		if t.Name == name {
			return t, true
		}
	}
	return Task{}, false
}

// Validate checks the job structure and every task's run parameters.
// All problems are configuration errors.
func (j *Job) Validate() error {
	if err := ValidateName(j.Name); err != nil {
		return mc.NewConfigurationError(fmt.Sprintf("job name: %v", err))
	}
	if j.Model == "" {
		return mc.NewConfigurationError("job has no model")
	}
	if len(j.Tasks) == 0 {
		return mc.NewConfigurationError("job has no tasks")
	}

	s := j.Settings
	switch {
	case s.CheckpointTime < 0:
		return mc.NewConfigurationError("checkpoint_time must not be negative")
	case s.RunTime < 0:
		return mc.NewConfigurationError("run_time must not be negative")
	case s.RunsPerTask < 1:
		return mc.NewConfigurationError(fmt.Sprintf("runs_per_task must be positive, got %d", s.RunsPerTask))
	case s.RanksPerRun < 1:
		return mc.NewConfigurationError(fmt.Sprintf("ranks_per_run must be positive, got %d", s.RanksPerRun))
	case s.Workers < 1:
		return mc.NewConfigurationError(fmt.Sprintf("workers must be positive, got %d", s.Workers))
	case s.Workers < s.RanksPerRun:
		return mc.NewConfigurationError(fmt.Sprintf("workers (%d) must be at least ranks_per_run (%d)", s.Workers, s.RanksPerRun))
	}
	if _, err := checkpoint.ParseBackend(string(s.Backend)); err != nil {
		return mc.NewConfigurationError(err.Error())
	}

	seen := make(map[string]bool, len(j.Tasks))
	for _, t := range j.Tasks {
		if err := ValidateName(t.Name); err != nil {
			return mc.NewConfigurationError(fmt.Sprintf("task %q: %v", t.Name, err))
		}
		if seen[t.Name] {
			return mc.NewConfigurationError(fmt.Sprintf("duplicate task name %q", t.Name))
		}
		seen[t.Name] = true
		if _, err := runner.ParseSettings(t.Params); err != nil {
			return fmt.Errorf("task %q: %w", t.Name, err)
		}
	}
	return nil
}
