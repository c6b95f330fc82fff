package cli

import (
	"net"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/roach88/mcjob/internal/merge"
	"github.com/roach88/mcjob/internal/server"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve <job-file>",
		Short: "Serve the status and results of a job over HTTP",
		Long: `Serve the status and results of a job as JSON over HTTP.

Every request reads the current checkpoints, so the server can run next
to "mcjob run". Results of unfinished tasks are partial.

Example:
  mcjob serve --addr :8080 ising.cue
  curl localhost:8080/api/status`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "127.0.0.1:8080", "address to listen on")

	return cmd
}

func runServe(opts *ServeOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	j, err := loadJob(formatter, path)
	if err != nil {
		return err
	}

	if !opts.Verbose {
		gin.SetMode(gin.ReleaseMode)
	}
	router := server.SetupRouter(j, merge.NewMerger(opts.Registry))

	ln, err := net.Listen("tcp", opts.Addr)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}
	formatter.VerboseLog("serving job %s on http://%s", j.Name, ln.Addr())

	ctx, stop := notifyContext(cmd)
	defer stop()

	if err := server.Serve(ctx, ln, router); err != nil {
		return formatter.fail(ExitFailure, ErrCodeGeneric, err.Error(), nil)
	}
	return nil
}
