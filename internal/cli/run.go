package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/mcjob/internal/coordinator"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Restart bool
	Workers int
}

// RunSummary is the outcome of one run invocation.
type RunSummary struct {
	Job         string   `json:"job"`
	Done        int      `json:"done"`
	AlreadyDone int      `json:"already_done"`
	TimeUp      int      `json:"time_up"`
	Failed      int      `json:"failed"`
	Skipped     int      `json:"skipped"`
	NotStarted  int      `json:"not_started"`
	Merged      bool     `json:"merged"`
	ResultsPath string   `json:"results_path,omitempty"`
	Errors      []string `json:"errors,omitempty"`
}

func (s RunSummary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "job %s: %d done (%d before this run), %d time up, %d failed, %d skipped, %d not started",
		s.Job, s.Done, s.AlreadyDone, s.TimeUp, s.Failed, s.Skipped, s.NotStarted)
	for _, e := range s.Errors {
		fmt.Fprintf(&b, "\n  %s", e)
	}
	if s.Merged {
		fmt.Fprintf(&b, "\nresults written to %s", s.ResultsPath)
	}
	return b.String()
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <job-file>",
		Short: "Run or resume a job",
		Long: `Run every task of a job until all runs reach their sweep target.

Runs resume from their last checkpoint. An invocation ends when all runs
are done, when the job's run_time is used up or on Ctrl-C; unfinished runs
checkpoint before stopping. Once all runs are done the results are merged
into <name>.results.json next to the job file.

Example:
  mcjob run ising.cue
  mcjob run --restart --workers 8 ising.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJob(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Restart, "restart", false, "delete existing data and start over")
	cmd.Flags().IntVar(&opts.Workers, "workers", 0, "number of concurrent ranks (default: the job's workers setting)")

	return cmd
}

func runJob(opts *RunOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	j, err := loadJob(formatter, path)
	if err != nil {
		return err
	}
	if opts.Restart {
		slog.Info("restarting job, removing existing data", "job", j.Name, "dir", j.Layout.DataDir())
		if err := j.Layout.Remove(); err != nil {
			return formatter.fail(ExitCommandError, ErrCodeWriteFailed, err.Error(), nil)
		}
	}

	var coordOpts []coordinator.Option
	if opts.Workers > 0 {
		coordOpts = append(coordOpts, coordinator.WithWorkers(opts.Workers))
	}
	coord := coordinator.New(j, opts.Registry, coordOpts...)

	ctx, stop := notifyContext(cmd)
	defer stop()

	report, err := coord.Run(ctx)
	if report == nil {
		return formatter.fail(ExitCommandError, errorCode(err), err.Error(), nil)
	}

	summary := summarize(report)
	if report.Merged {
		summary.ResultsPath = j.Layout.ResultsPath()
	}
	if summary.Failed > 0 || summary.Skipped > 0 {
		msg := fmt.Sprintf("%d run(s) failed, %d skipped", summary.Failed, summary.Skipped)
		return formatter.fail(ExitFailure, ErrCodeRunsFailed, msg, summary)
	}
	if err != nil {
		return formatter.fail(ExitFailure, errorCode(err), err.Error(), summary)
	}
	return formatter.Success(summary)
}

func summarize(report *coordinator.Report) RunSummary {
	s := RunSummary{
		Job:        report.Job,
		Done:       report.Count(coordinator.RunDone),
		TimeUp:     report.Count(coordinator.RunTimeUp),
		Failed:     report.Count(coordinator.RunFailed),
		Skipped:    report.Count(coordinator.RunSkipped),
		NotStarted: report.Count(coordinator.RunNotStarted),
		Merged:     report.Merged,
	}
	for _, rr := range report.Runs {
		if rr.AlreadyDone {
			s.AlreadyDone++
		}
		if rr.Err != nil {
			s.Errors = append(s.Errors, fmt.Sprintf("%s run %d: %v", rr.Task, rr.Run, rr.Err))
		}
	}
	return s
}

// notifyContext returns the command's context, cancelled on SIGINT or
// SIGTERM.
func notifyContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan) // Prevent signal handler leak
		cancel()
	}
}
