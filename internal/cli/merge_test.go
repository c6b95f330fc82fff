package cli

import (
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mcjob/internal/job"
	"github.com/roach88/mcjob/internal/merge"
)

func TestMerge_WritesResults(t *testing.T) {
	path := writeJob(t, "demo.yaml", demoJob)
	_, _, err := execute(t, "run", path)
	require.NoError(t, err)

	j, err := job.Load(path)
	require.NoError(t, err)
	require.NoError(t, os.Remove(j.Layout.ResultsPath()))

	stdout, _, err := execute(t, "--format", "json", "merge", path)
	require.NoError(t, err)

	var summary MergeSummary
	decode(t, stdout, &summary)
	assert.Equal(t, j.Layout.ResultsPath(), summary.ResultsPath)
	assert.Equal(t, map[string]merge.TaskState{"a": merge.StateComplete, "b": merge.StateComplete}, summary.Tasks)

	data, err := os.ReadFile(j.Layout.ResultsPath())
	require.NoError(t, err)
	var res struct {
		Tasks map[string]struct {
			Observables map[string]struct {
				Mean float64 `json:"mean"`
			} `json:"observables"`
		} `json:"tasks"`
	}
	require.NoError(t, json.Unmarshal(data, &res))
	assert.Equal(t, 5.0, res.Tasks["a"].Observables["value"].Mean)
	assert.Equal(t, 3.0, res.Tasks["b"].Observables["value"].Mean)
}

func TestMerge_BeforeRunIsPending(t *testing.T) {
	path := writeJob(t, "demo.yaml", demoJob)

	stdout, _, err := execute(t, "merge", path)
	require.NoError(t, err)

	lines := splitLines(stdout)
	require.GreaterOrEqual(t, len(lines), 3)
	assert.Regexp(t, `^TASK\s+STATUS$`, lines[0])
	assert.Regexp(t, `^a\s+pending$`, lines[1])
	assert.Regexp(t, `^b\s+pending$`, lines[2])
	assert.Contains(t, stdout, "results written to")
}

func TestMerge_MissingJobFile(t *testing.T) {
	stdout, _, err := execute(t, "--format", "json", "merge", "missing.cue")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	resp := decode(t, stdout, nil)
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
}
