package job

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mcjob/internal/checkpoint"
	"github.com/roach88/mcjob/internal/mc"
)

func testJob(t *testing.T, dir string, edit func(*TaskMaker, *Settings)) *Job {
	t.Helper()
	tm := NewTaskMaker().Set(mc.ParamSweeps, 100).Set(mc.ParamThermalization, 10).Set(mc.ParamBinSize, 5)
	settings := DefaultSettings()
	if edit != nil {
		edit(tm, &settings)
	}
	if len(tm.Tasks()) == 0 {
		tm.Task("a", mc.Params{"rho": 0.5})
	}
	j, err := tm.Job("demo", "gaussian", dir, settings)
	require.NoError(t, err)
	return j
}

func TestCheckParameters_FirstInvocationRecords(t *testing.T) {
	dir := t.TempDir()
	j := testJob(t, dir, nil)

	require.NoError(t, j.CheckParameters())
	assert.FileExists(t, j.Layout.ParametersPath())
	require.NoError(t, j.CheckParameters(), "unchanged job passes")
}

func TestCheckParameters_SweepsMayChange(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, testJob(t, dir, nil).CheckParameters())

	more := testJob(t, dir, func(tm *TaskMaker, _ *Settings) {
		tm.Set(mc.ParamSweeps, 500)
	})
	assert.NoError(t, more.CheckParameters())
}

func TestCheckParameters_TasksMayBeAdded(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, testJob(t, dir, nil).CheckParameters())

	grown := testJob(t, dir, func(tm *TaskMaker, _ *Settings) {
		tm.Task("a", mc.Params{"rho": 0.5})
		tm.Task("b", mc.Params{"rho": 0.9})
	})
	require.NoError(t, grown.CheckParameters())

	// "b" is now recorded, so changing it later is rejected.
	changed := testJob(t, dir, func(tm *TaskMaker, _ *Settings) {
		tm.Task("b", mc.Params{"rho": 0.1})
	})
	err := changed.CheckParameters()
	require.Error(t, err)
	assert.True(t, mc.IsConfigurationError(err))
}

func TestCheckParameters_Rejects(t *testing.T) {
	tests := []struct {
		name string
		edit func(*TaskMaker, *Settings)
	}{
		{"task parameter", func(tm *TaskMaker, _ *Settings) { tm.Task("a", mc.Params{"rho": 0.6}) }},
		{"binsize", func(tm *TaskMaker, _ *Settings) { tm.Set(mc.ParamBinSize, 10) }},
		{"ranks per run", func(_ *TaskMaker, s *Settings) { s.RanksPerRun = 2; s.Workers = 2 }},
		{"backend", func(_ *TaskMaker, s *Settings) { s.Backend = checkpoint.BackendSQLite }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			require.NoError(t, testJob(t, dir, nil).CheckParameters())
			before, err := os.ReadFile(testJob(t, dir, nil).Layout.ParametersPath())
			require.NoError(t, err)

			err = testJob(t, dir, tt.edit).CheckParameters()
			require.Error(t, err)
			assert.True(t, mc.IsConfigurationError(err), "%v", err)

			after, err := os.ReadFile(testJob(t, dir, nil).Layout.ParametersPath())
			require.NoError(t, err)
			assert.Equal(t, before, after, "snapshot untouched")
		})
	}
}

func TestCheckParameters_ModelChange(t *testing.T) {
	dir := t.TempDir()
	j := testJob(t, dir, nil)
	require.NoError(t, j.CheckParameters())

	j.Model = "constant"
	err := j.CheckParameters()
	require.Error(t, err)
	assert.True(t, mc.IsConfigurationError(err))
}

func TestCheckParameters_Corrupt(t *testing.T) {
	dir := t.TempDir()
	j := testJob(t, dir, nil)
	require.NoError(t, os.MkdirAll(j.Layout.DataDir(), 0o755))
	require.NoError(t, os.WriteFile(j.Layout.ParametersPath(), []byte("{"), 0o644))

	err := j.CheckParameters()
	require.Error(t, err)
	assert.True(t, mc.IsConfigurationError(err))
}
