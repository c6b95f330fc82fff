package cli

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mcjob/internal/job"
	"github.com/roach88/mcjob/internal/models"
)

func TestRun_CompletesAndMerges(t *testing.T) {
	path := writeJob(t, "demo.yaml", demoJob)

	stdout, stderr, err := execute(t, "--format", "json", "run", path)
	require.NoError(t, err, stdout)

	var summary RunSummary
	resp := decode(t, stdout, &summary)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "demo", summary.Job)
	assert.Equal(t, 4, summary.Done)
	assert.Zero(t, summary.AlreadyDone)
	assert.True(t, summary.Merged)
	assert.FileExists(t, summary.ResultsPath)
	assert.Contains(t, stderr, "results merged", "logs go to stderr")
}

func TestRun_TextOutput(t *testing.T) {
	path := writeJob(t, "demo.yaml", demoJob)

	stdout, _, err := execute(t, "run", path)
	require.NoError(t, err)
	assert.Contains(t, stdout, "job demo: 4 done (0 before this run)")
	assert.Contains(t, stdout, "results written to")
	assert.Contains(t, stdout, "demo.results.json")
}

func TestRun_SecondInvocationSkipsDoneRuns(t *testing.T) {
	path := writeJob(t, "demo.yaml", demoJob)
	_, _, err := execute(t, "run", path)
	require.NoError(t, err)

	stdout, _, err := execute(t, "--format", "json", "run", path)
	require.NoError(t, err)

	var summary RunSummary
	decode(t, stdout, &summary)
	assert.Equal(t, 4, summary.Done)
	assert.Equal(t, 4, summary.AlreadyDone)
	assert.True(t, summary.Merged)
}

func TestRun_ParameterChangeNeedsRestart(t *testing.T) {
	path := writeJob(t, "demo.yaml", demoJob)
	_, _, err := execute(t, "run", path)
	require.NoError(t, err)

	changed := strings.Replace(demoJob, "binsize: 2", "binsize: 4", 1)
	require.NoError(t, os.WriteFile(path, []byte(changed), 0644))

	stdout, _, err := execute(t, "--format", "json", "run", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	resp := decode(t, stdout, nil)
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, ErrCodeConfiguration, resp.Error.Code)

	stdout, _, err = execute(t, "--format", "json", "run", "--restart", path)
	require.NoError(t, err, stdout)
	var summary RunSummary
	decode(t, stdout, &summary)
	assert.Equal(t, 4, summary.Done)
	assert.Zero(t, summary.AlreadyDone, "restart discards old runs")
}

func TestRun_FailedRunsExitWithFailure(t *testing.T) {
	path := writeJob(t, "bad.yaml", `
model: gaussian
runs_per_task: 2
defaults: {sweeps: 10, thermalization: 0, binsize: 1}
tasks:
  - name: bad
    params: {sigma: -1}
`)

	stdout, _, err := execute(t, "--format", "json", "run", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp := decode(t, stdout, nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeRunsFailed, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "1 run(s) failed, 1 skipped")
}

func TestRun_MissingJobFile(t *testing.T) {
	stdout, _, err := execute(t, "run", "does-not-exist.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stdout, "Error [E002]")
}

func TestRun_InvalidJobFile(t *testing.T) {
	path := writeJob(t, "demo.yaml", "model: constant\nunknown_field: 1\n")

	stdout, _, err := execute(t, "run", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stdout, "Error [E003]")
}

func TestRun_WorkersFlagBelowRanks(t *testing.T) {
	path := writeJob(t, "demo.yaml", strings.Replace(demoJob, "workers: 2", "workers: 2\nranks_per_run: 2", 1))

	stdout, _, err := execute(t, "run", "--workers", "1", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stdout, "Error [E003]")
	assert.Contains(t, stdout, "ranks_per_run")
}

func TestRun_CancelledContext(t *testing.T) {
	path := writeJob(t, "demo.yaml", demoJob)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stdout := &strings.Builder{}
	cmd := NewRunCommand(&RootOptions{Format: "json", Registry: models.Registry()})
	cmd.SetOut(stdout)
	cmd.SetErr(&strings.Builder{})
	cmd.SetArgs([]string{path})
	require.NoError(t, cmd.ExecuteContext(ctx))

	var summary RunSummary
	decode(t, stdout.String(), &summary)
	assert.Equal(t, 4, summary.NotStarted)
	assert.False(t, summary.Merged)

	j, err := job.Load(path)
	require.NoError(t, err)
	assert.NoFileExists(t, j.Layout.ResultsPath())
}
