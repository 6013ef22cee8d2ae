package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conicdev/conic"
)

// CheckResult holds discipline check results.
type CheckResult struct {
	Problem    string            `json:"problem"`
	Valid      bool              `json:"valid"`
	Violations []conic.Violation `json:"violations,omitempty"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <problem.cue>",
		Short: "Check a problem against the convexity discipline",
		Long: `Check a problem file against the convexity discipline without solving.

Reports every violation with its code, where it occurred, and the
subexpression that breaks the rules. A problem that passes is guaranteed
to reduce to a cone program.

Exit codes:
  0 - Problem follows the discipline
  1 - One or more violations
  2 - Command error (missing or malformed file)

Examples:
  conic check portfolio.cue
  conic check portfolio.cue --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runCheck(opts *RootOptions, path string, cmd *cobra.Command) error {
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
	formatter.VerboseLog("checking %s", file.Name)

	err = file.Problem.Verify()
	if err == nil {
		return outputCheckSuccess(formatter, file.Name)
	}

	var derr *conic.DCPError
	if !errors.As(err, &derr) {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return NewExitError(ExitCommandError, err.Error())
	}

	return outputCheckViolations(formatter, file.Name, derr.Violations)
}

// outputCheckSuccess outputs a clean check verdict.
func outputCheckSuccess(formatter *OutputFormatter, name string) error {
	if formatter.Format == "json" {
		return formatter.Success(CheckResult{Problem: name, Valid: true})
	}

	fmt.Fprintf(formatter.Writer, "✓ %s follows the discipline\n", name)
	return nil
}

// outputCheckViolations outputs the violation listing.
func outputCheckViolations(formatter *OutputFormatter, name string, violations []conic.Violation) error {
	summary := fmt.Sprintf("%d discipline violation(s)", len(violations))

	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   CheckResult{Problem: name, Valid: false, Violations: violations},
			Error: &CLIError{
				Code:    ErrCodeDiscipline,
				Message: summary,
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}

		// Discipline violations = exit code 1
		return NewExitError(ExitFailure, summary)
	}

	// Text format
	fmt.Fprintf(formatter.Writer, "✗ %s breaks the discipline\n", name)
	fmt.Fprintln(formatter.Writer)

	for _, v := range violations {
		fmt.Fprintf(formatter.Writer, "  %s  %s", v.Code, v.Where)
		if v.Expr != "" {
			fmt.Fprintf(formatter.Writer, ": %s", v.Expr)
		}
		fmt.Fprintln(formatter.Writer)
		fmt.Fprintf(formatter.Writer, "        %s\n", v.Message)
	}
	fmt.Fprintln(formatter.Writer)

	// Discipline violations = exit code 1
	return NewExitError(ExitFailure, summary)
}
