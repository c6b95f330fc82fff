package merge

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mcjob/internal/checkpoint"
	"github.com/roach88/mcjob/internal/job"
	"github.com/roach88/mcjob/internal/mc"
)

func TestStatus(t *testing.T) {
	j := newJob(t, checkpoint.BackendFile, "covered", "pending")
	seedCoverage(t, j, "covered")

	cat := readOnly(j)
	defer cat.Close()
	data, err := Collect(context.Background(), j, cat)
	require.NoError(t, err)

	st := Status(data)
	require.Len(t, st, 2)

	assert.Equal(t, TaskStatus{
		Task:                "covered",
		Runs:                3,
		RunsStarted:         3,
		RunsDone:            2,
		RunsWithData:        2,
		SweepsCompleted:     128,
		TargetSweeps:        192,
		ThermalizedFraction: 0.8,
	}, st[0])
	assert.False(t, st[0].Done())

	assert.Equal(t, TaskStatus{Task: "pending", Runs: 3, TargetSweeps: 192}, st[1])
}

func TestStatus_CapsAtTarget(t *testing.T) {
	j := newJob(t, checkpoint.BackendFile, "a")
	for run := 0; run < 3; run++ {
		save(t, j, snapshot("a", run, 10, 100, nil))
	}
	cat := readOnly(j)
	defer cat.Close()
	data, err := Collect(context.Background(), j, cat)
	require.NoError(t, err)

	st := Status(data)[0]
	assert.Equal(t, int64(192), st.SweepsCompleted, "sweeps beyond a shrunk target are not counted")
	assert.Equal(t, 1.0, st.ThermalizedFraction)
	assert.True(t, st.Done())
}

func TestStatus_NoThermalization(t *testing.T) {
	params := mc.Params{mc.ParamSweeps: 10, mc.ParamThermalization: 0, mc.ParamBinSize: 1}

	// nothing has started yet
	td := TaskData{
		Task: job.Task{Name: "a", Params: params},
		Runs: []RunData{{Run: 0}, {Run: 1}},
	}
	st := Status([]TaskData{td})[0]
	assert.Equal(t, 0, st.RunsStarted)
	assert.Equal(t, 0.0, st.ThermalizedFraction)
	assert.False(t, st.Done())

	// one of two runs has a checkpoint
	td.Runs[1].Snapshot = &checkpoint.Snapshot{Run: 1, MeasurementDone: 4}
	st = Status([]TaskData{td})[0]
	assert.Equal(t, 1, st.RunsStarted)
	assert.Equal(t, 0.5, st.ThermalizedFraction)
}

func TestStatus_InvalidParams(t *testing.T) {
	td := TaskData{Task: job.Task{Name: "a", Params: mc.Params{}}, Runs: []RunData{{Run: 0}}}
	st := Status([]TaskData{td})[0]
	require.Len(t, st.Errors, 1)
	assert.Contains(t, st.Errors[0], "sweeps")
}
