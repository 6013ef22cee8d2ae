package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"

	"github.com/conicdev/conic"
	"github.com/conicdev/conic/internal/journal"
	"github.com/conicdev/conic/internal/probfile"
	"github.com/conicdev/conic/solver"
)

// SolveOptions holds flags for the solve command.
type SolveOptions struct {
	*RootOptions
	Solver      string   // force one backend
	Prefer      []string // reorder automatic selection
	OptionsFile string   // YAML solver options
	Journal     string   // SQLite journal path
}

// SolveReport is the JSON payload of one solve. Value is omitted unless
// the run was optimal; NaN has no JSON encoding.
type SolveReport struct {
	Problem     string               `json:"problem"`
	Solver      string               `json:"solver"`
	Status      string               `json:"status"`
	Value       *float64             `json:"value,omitempty"`
	Fingerprint string               `json:"fingerprint"`
	Iterations  int                  `json:"iterations,omitempty"`
	Message     string               `json:"message,omitempty"`
	RuntimeMS   int64                `json:"runtime_ms"`
	Variables   map[string][]float64 `json:"variables,omitempty"`
	Duals       map[string][]float64 `json:"duals,omitempty"`
}

// solverOptionsFile is the YAML shape of --options. Extra is forwarded
// to the driver unmodified.
type solverOptionsFile struct {
	Verbose  bool           `yaml:"verbose"`
	MaxIters int            `yaml:"max_iters"`
	FeasTol  float64        `yaml:"feas_tol"`
	Extra    map[string]any `yaml:"extra"`
}

// NewSolveCommand creates the solve command.
func NewSolveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SolveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "solve <problem.cue>",
		Short: "Solve a problem file",
		Long: `Run the full pipeline on a problem file: discipline check, reduction
to a cone program, backend selection, and the numeric solve.

Without --solver the least general capable backend is chosen; --prefer
reorders that choice. Solver knobs come from a YAML file given with
--options and are forwarded to the driver. With --journal every run is
recorded in a SQLite journal for later inspection with 'conic history'.

Exit codes:
  0 - Optimal
  1 - Solve finished short of optimal (infeasible, unbounded, solver error)
  2 - Command error (bad file, unknown solver, journal trouble)

Examples:
  conic solve portfolio.cue
  conic solve portfolio.cue --solver scs --options scs.yaml
  conic solve portfolio.cue --journal runs.db --verbose`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSolve(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Solver, "solver", "", "force this backend")
	cmd.Flags().StringSliceVar(&opts.Prefer, "prefer", nil, "backend preference order for automatic selection")
	cmd.Flags().StringVar(&opts.OptionsFile, "options", "", "YAML file with solver options")
	cmd.Flags().StringVar(&opts.Journal, "journal", "", "record the run in this SQLite journal")

	return cmd
}

func runSolve(opts *SolveOptions, path string, cmd *cobra.Command) error {
	// Configure logging based on verbose flag
	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))

	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	// Open the journal first so a bad path fails before any work.
	var jnl *journal.Journal
	if opts.Journal != "" {
		j, err := journal.Open(opts.Journal)
		if err != nil {
			_ = formatter.Error(ErrCodeJournal, fmt.Sprintf("opening journal: %v", err), nil)
			return WrapExitError(ExitCommandError, "failed to open journal", err)
		}
		jnl = j
		defer func() {
			if closeErr := jnl.Close(); closeErr != nil {
				slog.Error("error closing journal", "error", closeErr)
			}
		}()
		slog.Debug("journal open", "path", opts.Journal)
	}

	file, err := loadProblem(formatter, path)
	if err != nil {
		return err
	}
	slog.Debug("problem loaded", "name", file.Name, "variables", len(file.Variables), "constraints", len(file.Constraints))

	// Reduce once up front: discipline and data errors surface here with
	// their own codes, and the journal wants the cone dims.
	prog, err := file.Problem.Compile()
	if err != nil {
		return outputCompileFailure(formatter, err)
	}
	slog.Debug("reduced", "dims", prog.Dims.String(), "columns", prog.NumCols)

	solveOpts := &conic.SolveOptions{Solver: opts.Solver, Prefer: opts.Prefer}
	if opts.OptionsFile != "" {
		sopts, err := loadSolverOptions(opts.OptionsFile)
		if err != nil {
			_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
			return NewExitError(ExitCommandError, err.Error())
		}
		solveOpts.Options = sopts
	}

	// Let Ctrl-C cancel the numeric solve through its context.
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	res, err := file.Problem.Solve(ctx, solveOpts)
	elapsed := time.Since(start)
	if err != nil {
		return outputSolveFailure(formatter, err)
	}
	slog.Debug("solved", "solver", res.Solver, "status", res.Status, "runtime", elapsed)

	if jnl != nil {
		rec := journal.Run{
			Problem:     file.Name,
			Fingerprint: res.Fingerprint,
			Dims:        prog.Dims.String(),
			Solver:      res.Solver,
			Status:      string(res.Status),
			Value:       res.Value,
			Iterations:  res.Iterations,
			Runtime:     elapsed,
			Message:     res.Message,
		}
		if err := jnl.Record(ctx, &rec); err != nil {
			_ = formatter.Error(ErrCodeJournal, fmt.Sprintf("recording run: %v", err), nil)
			return WrapExitError(ExitCommandError, "failed to record run", err)
		}
		slog.Debug("recorded run", "id", rec.ID)
	}

	report := buildReport(file, res, elapsed)
	return outputSolveReport(formatter, report)
}

// loadSolverOptions reads a YAML options file into driver options.
func loadSolverOptions(path string) (solver.Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return solver.Options{}, fmt.Errorf("failed to read options file: %w", err)
	}

	// Strict field validation catches typos like "max_iter:"
	var f solverOptionsFile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&f); err != nil {
		return solver.Options{}, fmt.Errorf("failed to parse options file: %w", err)
	}

	return solver.Options{Verbose: f.Verbose, MaxIters: f.MaxIters, FeasTol: f.FeasTol, Extra: f.Extra}, nil
}

// outputSolveFailure classifies a solve error and reports it.
func outputSolveFailure(formatter *OutputFormatter, err error) error {
	code := ErrCodeGeneric
	exit := ExitCommandError
	switch {
	case conic.IsDCPError(err):
		code = ErrCodeDiscipline
		exit = ExitFailure
	case conic.IsUnvaluedParameterError(err):
		code = ErrCodeBadData
	case conic.IsUnsupportedConeError(err):
		code = ErrCodeNoSolver
	case solver.IsFailureError(err):
		code = ErrCodeSolver
		exit = ExitFailure
	case strings.Contains(err.Error(), "unknown solver") || strings.Contains(err.Error(), "not registered"):
		code = ErrCodeNoSolver
	}

	_ = formatter.Error(code, err.Error(), nil)
	return NewExitError(exit, fmt.Sprintf("%s: %s", code, err.Error()))
}

// buildReport assembles the display payload from a solve result.
func buildReport(file *probfile.File, res *conic.Result, elapsed time.Duration) SolveReport {
	report := SolveReport{
		Problem:     file.Name,
		Solver:      res.Solver,
		Status:      string(res.Status),
		Fingerprint: res.Fingerprint,
		Iterations:  res.Iterations,
		Message:     res.Message,
		RuntimeMS:   elapsed.Milliseconds(),
	}

	if res.Status != solver.StatusOptimal {
		return report
	}

	v := res.Value
	report.Value = &v

	report.Variables = make(map[string][]float64, len(file.Variables))
	for name, x := range file.Variables {
		m, err := x.Value()
		if err != nil {
			continue
		}
		report.Variables[name] = flatten(m)
	}

	duals := make(map[string][]float64)
	for _, c := range file.Constraints {
		if vals, ok := c.Dual(); ok {
			duals[c.Label()] = vals
		}
	}
	if len(duals) > 0 {
		report.Duals = duals
	}

	return report
}

// outputSolveReport outputs the final report and sets the exit code.
func outputSolveReport(formatter *OutputFormatter, report SolveReport) error {
	optimal := report.Status == string(solver.StatusOptimal)

	if formatter.Format == "json" {
		response := CLIResponse{Status: "ok", Data: report}
		if !optimal {
			response.Status = "error"
			response.Error = &CLIError{
				Code:    ErrCodeSolver,
				Message: fmt.Sprintf("solve finished %s", report.Status),
			}
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}

		if !optimal {
			return NewExitError(ExitFailure, fmt.Sprintf("solve finished %s", report.Status))
		}
		return nil
	}

	w := formatter.Writer
	if !optimal {
		fmt.Fprintf(w, "✗ %s did not solve to optimality\n\n", report.Problem)
		fmt.Fprintf(w, "Solver:   %s\n", report.Solver)
		fmt.Fprintf(w, "Status:   %s\n", report.Status)
		if report.Message != "" {
			fmt.Fprintf(w, "Message:  %s\n", report.Message)
		}
		return NewExitError(ExitFailure, fmt.Sprintf("solve finished %s", report.Status))
	}

	fmt.Fprintf(w, "✓ %s solved\n\n", report.Problem)
	fmt.Fprintf(w, "Solver:       %s\n", report.Solver)
	fmt.Fprintf(w, "Status:       %s\n", report.Status)
	fmt.Fprintf(w, "Value:        %g\n", *report.Value)
	if report.Iterations > 0 {
		fmt.Fprintf(w, "Iterations:   %d\n", report.Iterations)
	}
	fmt.Fprintf(w, "Runtime:      %dms\n", report.RuntimeMS)
	if formatter.Verbose {
		fmt.Fprintf(w, "Fingerprint:  %s\n", report.Fingerprint)
	}

	if len(report.Variables) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Variables:")
		for _, name := range sortedKeys(report.Variables) {
			fmt.Fprintf(w, "  %s = %s\n", name, formatVec(report.Variables[name]))
		}
	}

	if formatter.Verbose && len(report.Duals) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Duals:")
		for _, label := range sortedKeys(report.Duals) {
			fmt.Fprintf(w, "  %s = %s\n", label, formatVec(report.Duals[label]))
		}
	}

	return nil
}

// flatten lays a matrix value out column-major, matching the constant
// and parameter data convention.
func flatten(m *mat.Dense) []float64 {
	r, c := m.Dims()
	out := make([]float64, 0, r*c)
	for j := 0; j < c; j++ {
		for i := 0; i < r; i++ {
			out = append(out, m.At(i, j))
		}
	}
	return out
}

// formatVec renders a value vector; scalars lose the brackets.
func formatVec(vs []float64) string {
	if len(vs) == 1 {
		return fmt.Sprintf("%g", vs[0])
	}
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = fmt.Sprintf("%g", v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// sortedKeys returns map keys in sorted order for deterministic output.
func sortedKeys(m map[string][]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
