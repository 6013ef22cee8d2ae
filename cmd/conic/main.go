package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/conicdev/conic/internal/cli"

	// In-process drivers register themselves on import.
	_ "github.com/conicdev/conic/solver/simplex"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		// Commands report their own failures through the formatter; only
		// surface errors that never reached one (bad flags, usage).
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
