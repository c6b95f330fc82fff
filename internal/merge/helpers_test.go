package merge

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/mcjob/internal/checkpoint"
	"github.com/roach88/mcjob/internal/job"
	"github.com/roach88/mcjob/internal/mc"
	"github.com/roach88/mcjob/internal/measure"
	"github.com/roach88/mcjob/internal/models"
)

// newJob builds a three-run job of the constant model with the given tasks.
func newJob(t *testing.T, backend checkpoint.Backend, names ...string) *job.Job {
	t.Helper()
	tm := job.NewTaskMaker().
		Set(mc.ParamSweeps, 64).
		Set(mc.ParamThermalization, 10).
		Set(mc.ParamBinSize, 2)
	for _, name := range names {
		tm.Task(name, nil)
	}
	settings := job.DefaultSettings()
	settings.RunsPerTask = 3
	settings.Backend = backend
	j, err := tm.Job("demo", "constant", t.TempDir(), settings)
	require.NoError(t, err)
	return j
}

// constantBins returns n bins all equal to v.
func constantBins(n int, v ...float64) []measure.Vec {
	bins := make([]measure.Vec, n)
	for i := range bins {
		bins[i] = append(measure.Vec(nil), v...)
	}
	return bins
}

func scalarState(bins []measure.Vec) measure.State {
	return measure.State{BinSize: 2, Shape: measure.Shape{Scalar: true, Len: 1}, Bins: bins}
}

func vectorState(bins []measure.Vec) measure.State {
	return measure.State{BinSize: 2, Shape: measure.Shape{Len: len(bins[0])}, Bins: bins}
}

func snapshot(task string, run int, therm, meas int64, obs map[string]measure.State) *checkpoint.Snapshot {
	return &checkpoint.Snapshot{
		FormatVersion:      mc.CheckpointFormatVersion,
		RunID:              "run",
		Task:               task,
		Run:                run,
		Ranks:              1,
		Sequence:           1,
		ThermalizationDone: therm,
		MeasurementDone:    meas,
		Observables:        obs,
	}
}

// save writes snap through a writable catalog of the job.
func save(t *testing.T, j *job.Job, snap *checkpoint.Snapshot) {
	t.Helper()
	cat := checkpoint.NewCatalog(j.Settings.Backend, j.Layout.DataDir())
	defer cat.Close()
	st, err := cat.Store(snap.Task, snap.Run, 0, 1)
	require.NoError(t, err)
	require.NoError(t, st.Save(context.Background(), snap))
}

func readOnly(j *job.Job) *checkpoint.Catalog {
	return checkpoint.NewCatalog(j.Settings.Backend, j.Layout.DataDir(), checkpoint.CatalogReadOnly())
}

func merger() *Merger {
	return NewMerger(models.Registry())
}

// seedCoverage writes the reduced-coverage scenario: two finished runs with
// 32 bins each, one run still thermalizing without bins.
func seedCoverage(t *testing.T, j *job.Job, task string) {
	t.Helper()
	for run := 0; run < 2; run++ {
		obs := map[string]measure.State{
			"value": scalarState(constantBins(32, 5)),
			"pair":  vectorState(constantBins(32, 1, 2)),
		}
		if run == 0 {
			obs["rare"] = scalarState(constantBins(1, 7))
		}
		save(t, j, snapshot(task, run, 10, 64, obs))
	}
	save(t, j, snapshot(task, 2, 4, 0, nil))
}
