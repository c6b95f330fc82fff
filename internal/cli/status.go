package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/mcjob/internal/checkpoint"
	"github.com/roach88/mcjob/internal/merge"
)

// StatusReport is the progress of every task of a job.
type StatusReport struct {
	Job   string             `json:"job"`
	Tasks []merge.TaskStatus `json:"tasks"`
}

func (r StatusReport) String() string {
	rows := make([][]string, 0, len(r.Tasks))
	var errs []string
	for _, ts := range r.Tasks {
		rows = append(rows, []string{
			ts.Task,
			fmt.Sprintf("%d/%d", ts.SweepsCompleted, ts.TargetSweeps),
			fmt.Sprintf("%d/%d", ts.RunsDone, ts.Runs),
			fmt.Sprintf("%.2f", ts.ThermalizedFraction),
		})
		for _, e := range ts.Errors {
			errs = append(errs, fmt.Sprintf("%s: %s", ts.Task, e))
		}
	}
	out := table([]string{"TASK", "SWEEPS", "RUNS DONE", "THERMALIZED"}, rows)
	if len(errs) > 0 {
		out += "\n\nerrors:\n  " + strings.Join(errs, "\n  ")
	}
	return out
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status <job-file>",
		Short: "Show the progress of a job",
		Long: `Show sweeps done, finished runs and thermalization per task.

Status only reads checkpoints and can be used while the job is running.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runStatus(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	j, err := loadJob(formatter, path)
	if err != nil {
		return err
	}

	cat := checkpoint.NewCatalog(j.Settings.Backend, j.Layout.DataDir(), checkpoint.CatalogReadOnly())
	defer cat.Close()

	data, err := merge.Collect(cmd.Context(), j, cat)
	if err != nil {
		return formatter.fail(ExitCommandError, errorCode(err), err.Error(), nil)
	}
	return formatter.Success(StatusReport{Job: j.Name, Tasks: merge.Status(data)})
}
