package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

// DeleteSummary names what delete removed.
type DeleteSummary struct {
	Job         string `json:"job"`
	DataDir     string `json:"data_dir"`
	ResultsPath string `json:"results_path"`
}

func (s DeleteSummary) String() string {
	return fmt.Sprintf("deleted %s and %s", s.DataDir, s.ResultsPath)
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <job-file>",
		Short: "Delete the data and results of a job",
		Long: `Delete the data directory and the results file of a job.

The job file itself is kept. Do not delete a job that is running.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runDelete(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	j, err := loadJob(formatter, path)
	if err != nil {
		return err
	}
	if err := j.Layout.Remove(); err != nil {
		return formatter.fail(ExitCommandError, ErrCodeWriteFailed, err.Error(), nil)
	}
	slog.Info("job data deleted", "job", j.Name)

	return formatter.Success(DeleteSummary{
		Job:         j.Name,
		DataDir:     j.Layout.DataDir(),
		ResultsPath: j.Layout.ResultsPath(),
	})
}
