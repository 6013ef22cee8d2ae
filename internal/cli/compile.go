package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/conicdev/conic"
	"github.com/conicdev/conic/cone"
	"github.com/conicdev/conic/internal/backend"
	"github.com/conicdev/conic/solver"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Solver string // emit the layout for this backend
	Output string // output file path
}

// CompileSummary describes a reduced cone program.
type CompileSummary struct {
	Problem     string   `json:"problem"`
	Sense       string   `json:"sense"`
	Columns     int      `json:"columns"`
	Variables   int      `json:"variables"`
	Equalities  int      `json:"equalities"`
	ConeRows    int      `json:"cone_rows"`
	Dims        DimsInfo `json:"dims"`
	NonzerosA   int      `json:"nnz_a"`
	NonzerosG   int      `json:"nnz_g"`
	Fingerprint string   `json:"fingerprint"`
	Capable     []string `json:"capable"`
	Solver      string   `json:"solver,omitempty"` // set when a backend layout was emitted
}

// DimsInfo is the JSON rendering of cone.Dims.
type DimsInfo struct {
	Zero   int   `json:"zero"`
	Nonneg int   `json:"nonneg"`
	SOC    []int `json:"soc,omitempty"`
	PSD    []int `json:"psd,omitempty"`
	Exp    int   `json:"exp,omitempty"`
}

// MatrixData is the JSON rendering of a compressed-sparse-column matrix.
type MatrixData struct {
	Rows int       `json:"rows"`
	Cols int       `json:"cols"`
	Ptr  []int     `json:"ptr"`
	Ind  []int     `json:"ind"`
	Val  []float64 `json:"val"`
}

// ProgramData is the full emitted bundle written by --output: cost,
// matrices, and cone description, ready to feed a solver.
type ProgramData struct {
	Summary CompileSummary `json:"summary"`
	C       []float64      `json:"c"`
	Offset  float64        `json:"offset"`
	A       *MatrixData    `json:"a,omitempty"`
	B       []float64      `json:"b,omitempty"`
	G       *MatrixData    `json:"g,omitempty"`
	H       []float64      `json:"h,omitempty"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <problem.cue>",
		Short: "Reduce a problem to a cone program",
		Long: `Check a problem file against the convexity discipline and reduce it to
the cone program standard form.

Prints the program's shape: columns, rows per cone kind, nonzero counts,
and the fingerprint that identifies the reduction. With --solver the
bundle is rewritten into that backend's data convention first, and
--output writes the complete bundle (cost, matrices, cones) as JSON.

Examples:
  conic compile portfolio.cue
  conic compile portfolio.cue --solver scs
  conic compile portfolio.cue --solver scs --output portfolio.json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Solver, "solver", "", "emit the bundle in this backend's layout")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the emitted bundle to this file as JSON")

	return cmd
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	file, err := loadProblem(formatter, path)
	if err != nil {
		return err
	}
	formatter.VerboseLog("reducing %s", file.Name)

	prog, err := file.Problem.Compile()
	if err != nil {
		return outputCompileFailure(formatter, err)
	}

	summary := summarize(file.Name, prog)

	// Rewrite into one backend's convention when asked.
	var in *solver.Input
	if opts.Solver != "" {
		in, err = file.Problem.DataFor(opts.Solver)
		if err != nil {
			return outputCompileFailure(formatter, err)
		}
		summary.Solver = opts.Solver
	}

	if opts.Output != "" {
		data := bundleData(summary, prog, in)
		if err := writeBundle(data, opts.Output); err != nil {
			_ = formatter.Error(ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
			return NewExitError(ExitCommandError, fmt.Sprintf("%s: writing output file: %v", ErrCodeWriteFailed, err))
		}
	}

	return outputCompileSuccess(formatter, summary, in, opts.Output)
}

// summarize condenses a reduced program for display.
func summarize(name string, prog *cone.Program) CompileSummary {
	sense := "minimize"
	if prog.Maximize {
		sense = "maximize"
	}

	vars := 0
	for _, col := range prog.Cols {
		if !col.Aux {
			vars++
		}
	}

	return CompileSummary{
		Problem:     name,
		Sense:       sense,
		Columns:     prog.NumCols,
		Variables:   vars,
		Equalities:  prog.Dims.Zero,
		ConeRows:    prog.Dims.ConeRows(),
		Dims:        dimsInfo(prog.Dims),
		NonzerosA:   nnz(prog.A),
		NonzerosG:   nnz(prog.G),
		Fingerprint: cone.Fingerprint(prog),
		Capable:     backend.Capable(prog.Dims),
	}
}

func dimsInfo(d cone.Dims) DimsInfo {
	return DimsInfo{Zero: d.Zero, Nonneg: d.Nonneg, SOC: d.SOC, PSD: d.PSD, Exp: d.Exp}
}

func nnz(m *cone.CSC) int {
	if m == nil {
		return 0
	}
	return m.NNZ()
}

// bundleData assembles the --output payload. When a backend layout was
// emitted it wins over the program's own row split.
func bundleData(summary CompileSummary, prog *cone.Program, in *solver.Input) ProgramData {
	data := ProgramData{
		Summary: summary,
		C:       prog.C,
		Offset:  prog.Offset,
		A:       matrixData(prog.A),
		B:       prog.B,
		G:       matrixData(prog.G),
		H:       prog.H,
	}
	if in != nil {
		data.C = in.C
		data.Offset = in.Offset
		data.A = matrixData(in.A)
		data.B = in.B
		data.G = matrixData(in.G)
		data.H = in.H
		data.Summary.Dims = dimsInfo(in.Dims)
	}
	return data
}

func matrixData(m *cone.CSC) *MatrixData {
	if m == nil {
		return nil
	}
	return &MatrixData{Rows: m.Rows, Cols: m.Cols, Ptr: m.Ptr, Ind: m.Ind, Val: m.Val}
}

// outputCompileFailure classifies a pipeline error and reports it.
func outputCompileFailure(formatter *OutputFormatter, err error) error {
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
	case strings.Contains(err.Error(), "unknown solver"):
		code = ErrCodeNoSolver
	}

	_ = formatter.Error(code, err.Error(), nil)
	return NewExitError(exit, fmt.Sprintf("%s: %s", code, err.Error()))
}

// outputCompileSuccess outputs the program summary.
func outputCompileSuccess(formatter *OutputFormatter, summary CompileSummary, in *solver.Input, outputFile string) error {
	if formatter.Format == "json" {
		return formatter.Success(summary)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ %s reduced to a cone program\n\n", summary.Problem)
	fmt.Fprintf(w, "Sense:        %s\n", summary.Sense)
	fmt.Fprintf(w, "Columns:      %d (%d from variables)\n", summary.Columns, summary.Variables)
	fmt.Fprintf(w, "Rows:         %d equality, %d cone\n", summary.Equalities, summary.ConeRows)
	fmt.Fprintf(w, "Cones:        %s\n", formatDims(summary.Dims))
	fmt.Fprintf(w, "Nonzeros:     %d in A, %d in G\n", summary.NonzerosA, summary.NonzerosG)
	fmt.Fprintf(w, "Fingerprint:  %s\n", summary.Fingerprint)
	fmt.Fprintf(w, "Capable:      %s\n", strings.Join(summary.Capable, ", "))

	if in != nil {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Emitted for %s:\n", summary.Solver)
		fmt.Fprintf(w, "  A: %s\n", formatMatrix(in.A))
		fmt.Fprintf(w, "  G: %s\n", formatMatrix(in.G))
	}

	if outputFile != "" {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Wrote bundle to %s\n", outputFile)
	}

	return nil
}

// formatDims renders dims the way cone.Dims.String does, minus noise.
func formatDims(d DimsInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "zero=%d nonneg=%d", d.Zero, d.Nonneg)
	if len(d.SOC) > 0 {
		fmt.Fprintf(&b, " soc=%v", d.SOC)
	}
	if len(d.PSD) > 0 {
		fmt.Fprintf(&b, " psd=%v", d.PSD)
	}
	if d.Exp > 0 {
		fmt.Fprintf(&b, " exp=%d", d.Exp)
	}
	return b.String()
}

func formatMatrix(m *cone.CSC) string {
	if m == nil {
		return "none"
	}
	return fmt.Sprintf("%d×%d, %d nonzeros", m.Rows, m.Cols, m.NNZ())
}

// writeBundle writes the emitted bundle to a file as indented JSON.
func writeBundle(data ProgramData, filename string) error {
	buf, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling bundle: %w", err)
	}

	if err := os.WriteFile(filename, buf, 0644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}

	return nil
}
