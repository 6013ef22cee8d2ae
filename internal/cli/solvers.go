package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conicdev/conic/internal/backend"
	"github.com/conicdev/conic/solver"
)

// SolverInfo describes one backend adapter and its driver state.
type SolverInfo struct {
	Name string `json:"name"`
	// Cones is the capability tag: lp, lp+soc, lp+soc+sdp+exp, ...
	Cones string `json:"cones"`
	SOC   bool   `json:"soc"`
	PSD   bool   `json:"psd"`
	Exp   bool   `json:"exp"`
	// Driver reports whether a numeric driver is registered in this
	// process. Emit-only backends still work with 'compile --solver'.
	Driver bool `json:"driver"`
}

// NewSolversCommand creates the solvers command.
func NewSolversCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "solvers",
		Short: "List backends and their cone support",
		Long: `List the known backend adapters in selection order: the least
general backend first, which is also the automatic-selection preference.

A backend without a registered driver can still be targeted by
'compile --solver' to emit its data layout; 'solve' needs a driver.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSolvers(rootOpts, cmd)
		},
	}
	return cmd
}

func runSolvers(opts *RootOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	infos := make([]SolverInfo, 0, len(backend.Adapters()))
	for _, a := range backend.Adapters() {
		_, hasDriver := solver.Lookup(a.Name)
		infos = append(infos, SolverInfo{
			Name:   a.Name,
			Cones:  a.Caps.String(),
			SOC:    a.Caps.SOC,
			PSD:    a.Caps.PSD,
			Exp:    a.Caps.Exp,
			Driver: hasDriver,
		})
	}

	if formatter.Format == "json" {
		return formatter.Success(infos)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "%-8s  %-16s  %s\n", "NAME", "CONES", "DRIVER")
	for _, info := range infos {
		driver := "-"
		if info.Driver {
			driver = "registered"
		}
		fmt.Fprintf(w, "%-8s  %-16s  %s\n", info.Name, info.Cones, driver)
	}
	return nil
}
