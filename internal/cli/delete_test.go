package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mcjob/internal/job"
)

func TestDelete_RemovesDataAndResults(t *testing.T) {
	path := writeJob(t, "demo.yaml", demoJob)
	_, _, err := execute(t, "run", path)
	require.NoError(t, err)

	j, err := job.Load(path)
	require.NoError(t, err)
	require.DirExists(t, j.Layout.DataDir())
	require.FileExists(t, j.Layout.ResultsPath())

	stdout, _, err := execute(t, "delete", path)
	require.NoError(t, err)
	assert.Contains(t, stdout, "deleted")
	assert.NoDirExists(t, j.Layout.DataDir())
	assert.NoFileExists(t, j.Layout.ResultsPath())
	assert.FileExists(t, path, "job file is kept")
}

func TestDelete_NothingToDelete(t *testing.T) {
	path := writeJob(t, "demo.yaml", demoJob)

	stdout, _, err := execute(t, "--format", "json", "delete", path)
	require.NoError(t, err)

	var summary DeleteSummary
	decode(t, stdout, &summary)
	assert.Equal(t, "demo", summary.Job)
}

func TestDelete_ThenRunStartsOver(t *testing.T) {
	path := writeJob(t, "demo.yaml", demoJob)
	_, _, err := execute(t, "run", path)
	require.NoError(t, err)
	_, _, err = execute(t, "delete", path)
	require.NoError(t, err)

	stdout, _, err := execute(t, "--format", "json", "run", path)
	require.NoError(t, err)
	var summary RunSummary
	decode(t, stdout, &summary)
	assert.Zero(t, summary.AlreadyDone)
	assert.Equal(t, 4, summary.Done)
}
