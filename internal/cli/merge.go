package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/roach88/mcjob/internal/checkpoint"
	"github.com/roach88/mcjob/internal/merge"
)

// MergeSummary lists the merged state of every task.
type MergeSummary struct {
	Job         string                     `json:"job"`
	ResultsPath string                     `json:"results_path"`
	Tasks       map[string]merge.TaskState `json:"tasks"`
}

func (s MergeSummary) String() string {
	names := make([]string, 0, len(s.Tasks))
	for name := range s.Tasks {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := make([][]string, 0, len(names))
	for _, name := range names {
		rows = append(rows, []string{name, string(s.Tasks[name])})
	}
	return table([]string{"TASK", "STATUS"}, rows) + fmt.Sprintf("\n\nresults written to %s", s.ResultsPath)
}

// NewMergeCommand creates the merge command.
func NewMergeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "merge <job-file>",
		Short: "Merge the results of a job",
		Long: `Merge the checkpoints of every run into <name>.results.json.

Unlike the automatic merge at the end of a job, merge also writes partial
results for tasks whose runs are not all done. Checkpoints are not modified.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMerge(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runMerge(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	j, err := loadJob(formatter, path)
	if err != nil {
		return err
	}

	cat := checkpoint.NewCatalog(j.Settings.Backend, j.Layout.DataDir(), checkpoint.CatalogReadOnly())
	defer cat.Close()

	res, err := merge.NewMerger(opts.Registry).MergeToFile(cmd.Context(), j, cat)
	if err != nil {
		return formatter.fail(ExitCommandError, errorCode(err), err.Error(), nil)
	}

	summary := MergeSummary{
		Job:         j.Name,
		ResultsPath: j.Layout.ResultsPath(),
		Tasks:       make(map[string]merge.TaskState, len(res.Tasks)),
	}
	for name, tr := range res.Tasks {
		summary.Tasks[name] = tr.Status
	}
	return formatter.Success(summary)
}
