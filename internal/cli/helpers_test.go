package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/mcjob/internal/models"
)

const demoJob = `
name: demo
model: constant
runs_per_task: 2
workers: 2
defaults:
  sweeps: 40
  thermalization: 4
  binsize: 2
tasks:
  - name: a
  - name: b
    params:
      value: 3.0
`

// writeJob writes a job file into a fresh directory and returns its path.
func writeJob(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	cmd := NewRootCommand(models.Registry())
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

type response struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  *CLIError       `json:"error"`
}

// decode parses a JSON response and unmarshals its data into v if v is
// non-nil.
func decode(t *testing.T, out string, v any) response {
	t.Helper()
	var resp response
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	if v != nil {
		require.NoError(t, json.Unmarshal(resp.Data, v), out)
	}
	return resp
}

func splitLines(s string) []string {
	return strings.Split(strings.TrimRight(s, "\n"), "\n")
}
