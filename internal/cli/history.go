package cli

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/conicdev/conic/internal/journal"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Journal     string
	Limit       int
	Fingerprint string
}

// RunInfo is the JSON rendering of one journal run.
type RunInfo struct {
	ID          string   `json:"id"`
	CreatedAt   string   `json:"created_at"`
	Problem     string   `json:"problem"`
	Fingerprint string   `json:"fingerprint"`
	Dims        string   `json:"dims,omitempty"`
	Solver      string   `json:"solver"`
	Status      string   `json:"status"`
	Value       *float64 `json:"value,omitempty"`
	Iterations  int      `json:"iterations,omitempty"`
	RuntimeMS   int64    `json:"runtime_ms"`
	Message     string   `json:"message,omitempty"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded solve runs",
		Long: `List the runs recorded in a solve journal, newest first.

Runs land in the journal when solve is invoked with --journal. With
--fingerprint only the runs of one cone program are shown, so the same
problem can be tracked across solvers and option changes.

Examples:
  conic history --journal runs.db
  conic history --journal runs.db --limit 5
  conic history --journal runs.db --fingerprint 3fa4...`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Journal, "journal", "", "SQLite journal to read (required)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum runs to list; 0 means all")
	cmd.Flags().StringVar(&opts.Fingerprint, "fingerprint", "", "list only runs of this cone program")
	_ = cmd.MarkFlagRequired("journal")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	jnl, err := journal.Open(opts.Journal)
	if err != nil {
		_ = formatter.Error(ErrCodeJournal, fmt.Sprintf("opening journal: %v", err), nil)
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer jnl.Close()

	ctx := cmd.Context()
	var runs []journal.Run
	if opts.Fingerprint != "" {
		runs, err = jnl.ByFingerprint(ctx, opts.Fingerprint)
	} else {
		runs, err = jnl.List(ctx, opts.Limit)
	}
	if err != nil {
		_ = formatter.Error(ErrCodeJournal, fmt.Sprintf("listing runs: %v", err), nil)
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}

	if formatter.Format == "json" {
		infos := make([]RunInfo, len(runs))
		for i, r := range runs {
			infos[i] = runInfo(r)
		}
		return formatter.Success(infos)
	}

	w := formatter.Writer
	if len(runs) == 0 {
		fmt.Fprintln(w, "No recorded runs.")
		return nil
	}
	fmt.Fprintf(w, "%-19s  %-16s  %-8s  %-12s  %-12s  %s\n", "WHEN", "PROBLEM", "SOLVER", "STATUS", "VALUE", "RUNTIME")
	for _, r := range runs {
		value := "-"
		if !math.IsNaN(r.Value) {
			value = fmt.Sprintf("%g", r.Value)
		}
		fmt.Fprintf(w, "%-19s  %-16s  %-8s  %-12s  %-12s  %dms\n",
			r.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			truncate(r.Problem, 16),
			r.Solver,
			r.Status,
			value,
			r.Runtime.Milliseconds(),
		)
		if formatter.Verbose {
			fmt.Fprintf(w, "    run %s fingerprint %s", r.ID, r.Fingerprint)
			if r.Dims != "" {
				fmt.Fprintf(w, " (%s)", r.Dims)
			}
			fmt.Fprintln(w)
		}
	}
	return nil
}

func runInfo(r journal.Run) RunInfo {
	info := RunInfo{
		ID:          r.ID,
		CreatedAt:   r.CreatedAt.UTC().Format(time.RFC3339),
		Problem:     r.Problem,
		Fingerprint: r.Fingerprint,
		Dims:        r.Dims,
		Solver:      r.Solver,
		Status:      r.Status,
		Iterations:  r.Iterations,
		RuntimeMS:   r.Runtime.Milliseconds(),
		Message:     r.Message,
	}
	if !math.IsNaN(r.Value) {
		v := r.Value
		info.Value = &v
	}
	return info
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return strings.TrimSpace(s[:n-1]) + "…"
}
