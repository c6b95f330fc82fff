package job

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ParametersFile is the name of the parameter snapshot in the data
// directory.
const ParametersFile = "parameters.json"

// Layout locates a job's files. Everything lives next to the job file:
//
//	<dir>/<name>.data/             checkpoints, one directory per task
//	<dir>/<name>.data/parameters.json
//	<dir>/<name>.results.json      merged results
type Layout struct {
	Dir  string
	Name string
}

// DataDir returns the directory holding all run data.
func (l Layout) DataDir() string {
	return filepath.Join(l.Dir, l.Name+".data")
}

// TaskDir returns the data directory of a task.
func (l Layout) TaskDir(task string) string {
	return filepath.Join(l.DataDir(), task)
}

// ParametersPath returns the path of the parameter snapshot.
func (l Layout) ParametersPath() string {
	return filepath.Join(l.DataDir(), ParametersFile)
}

// ResultsPath returns the path of the merged result artifact.
func (l Layout) ResultsPath() string {
	return filepath.Join(l.Dir, l.Name+".results.json")
}

// Remove deletes the data directory and the results file. Missing files
// are not an error.
func (l Layout) Remove() error {
	if err := os.RemoveAll(l.DataDir()); err != nil {
		return fmt.Errorf("remove data directory: %w", err)
	}
	if err := os.Remove(l.ResultsPath()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove results: %w", err)
	}
	return nil
}
