package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/roach88/mcjob/internal/job"
	"github.com/roach88/mcjob/internal/mc"
)

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric          = "E001" // Generic/unknown error
	ErrCodeNotFound         = "E002" // Job file not found
	ErrCodeConfiguration    = "E003" // Invalid job or parameters
	ErrCodePersistence      = "E004" // Checkpoint read/write failure
	ErrCodeInsufficientData = "E005" // Too little data for a statistic
	ErrCodeDesync           = "E006" // Parallel-run ranks disagreed
	ErrCodeWriteFailed      = "E007" // File write error
	ErrCodeRunsFailed       = "E008" // Some runs failed or were skipped
)

// errorCode maps an error to a CLI error code by its mc.ErrorCode.
func errorCode(err error) string {
	switch mc.CodeOf(err) {
	case mc.ErrCodeConfiguration:
		return ErrCodeConfiguration
	case mc.ErrCodePersistence:
		return ErrCodePersistence
	case mc.ErrCodeInsufficientData:
		return ErrCodeInsufficientData
	case mc.ErrCodeCollectiveDesync:
		return ErrCodeDesync
	default:
		return ErrCodeGeneric
	}
}

// loadJob loads the job file at path and reports failures through f.
func loadJob(f *OutputFormatter, path string) (*job.Job, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, f.fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("job file not found: %s", path), nil)
	}
	j, err := job.Load(path)
	if err != nil {
		return nil, f.fail(ExitCommandError, errorCode(err), err.Error(), nil)
	}
	f.VerboseLog("loaded job %s: %d task(s), model %s", j.Name, len(j.Tasks), j.Model)
	return j, nil
}
