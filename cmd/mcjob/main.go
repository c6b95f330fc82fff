// Command mcjob runs Monte Carlo simulation jobs.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/mcjob/internal/cli"
	"github.com/roach88/mcjob/internal/models"
)

func main() {
	err := cli.NewRootCommand(models.Registry()).Execute()
	if err == nil {
		return
	}
	// ExitErrors were already reported by the command's formatter.
	var exitErr *cli.ExitError
	if !errors.As(err, &exitErr) {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(cli.GetExitCode(err))
}
