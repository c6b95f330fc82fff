package job

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/roach88/mcjob/internal/checkpoint"
	"github.com/roach88/mcjob/internal/mc"
)

// parametersSnapshot records what must not change between invocations of
// the same job.
type parametersSnapshot struct {
	Model       string               `json:"model"`
	RanksPerRun int                  `json:"ranks_per_run"`
	Backend     checkpoint.Backend   `json:"checkpoint_backend"`
	Tasks       map[string]mc.Params `json:"tasks"`
}

func (j *Job) parametersSnapshot() parametersSnapshot {
	ps := parametersSnapshot{
		Model:       j.Model,
		RanksPerRun: j.Settings.RanksPerRun,
		Backend:     j.Settings.Backend,
		Tasks:       make(map[string]mc.Params, len(j.Tasks)),
	}
	for _, t := range j.Tasks {
		ps.Tasks[t.Name] = t.Params
	}
	return ps
}

// CheckParameters compares the job against the snapshot left by earlier
// invocations and then records the current parameters. Only sweeps may
// change for an existing task; tasks may be added. Any other change is a
// configuration error and leaves the snapshot untouched.
func (j *Job) CheckParameters() error {
	path := j.Layout.ParametersPath()
	cur := j.parametersSnapshot()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return fmt.Errorf("read parameter snapshot: %w", err)
	default:
		var prev parametersSnapshot
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&prev); err != nil {
			return mc.NewConfigurationError(fmt.Sprintf("corrupt parameter snapshot %s: %v", path, err))
		}
		if err := compareSnapshots(prev, cur); err != nil {
			return err
		}
		// Tasks removed from the job file keep their recorded parameters.
		for name, params := range prev.Tasks {
			if _, ok := cur.Tasks[name]; !ok {
				cur.Tasks[name] = params
			}
		}
	}

	out, err := json.MarshalIndent(cur, "", "  ")
	if err != nil {
		return fmt.Errorf("encode parameter snapshot: %w", err)
	}
	if err := os.MkdirAll(j.Layout.DataDir(), 0o755); err != nil {
		return mc.NewPersistenceError("create data directory", err)
	}
	if err := checkpoint.WriteFileAtomic(path, append(out, '\n'), 0o644); err != nil {
		return mc.NewPersistenceError("write parameter snapshot", err)
	}
	return nil
}

func compareSnapshots(prev, cur parametersSnapshot) error {
	if prev.Model != cur.Model {
		return mc.NewConfigurationError(fmt.Sprintf("model changed from %q to %q", prev.Model, cur.Model))
	}
	if prev.RanksPerRun != cur.RanksPerRun {
		return mc.NewConfigurationError(fmt.Sprintf("ranks_per_run changed from %d to %d", prev.RanksPerRun, cur.RanksPerRun))
	}
	if prev.Backend != cur.Backend {
		return mc.NewConfigurationError(fmt.Sprintf("checkpoint_backend changed from %q to %q", prev.Backend, cur.Backend))
	}
	for name, params := range cur.Tasks {
		old, ok := prev.Tasks[name]
		if !ok {
			continue
		}
		same, err := params.EqualExcept(old, mc.ParamSweeps)
		if err != nil {
			return err
		}
		if !same {
			return mc.NewConfigurationError(fmt.Sprintf(
				"parameters of task %q changed; only %q may change between invocations", name, mc.ParamSweeps))
		}
	}
	return nil
}
