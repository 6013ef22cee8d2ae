// Package probfile compiles declarative problem files into conic
// problems.
//
// A problem file is CUE. Declarations (variables, parameters) are
// structured fields; the objective and constraints are CUE expression
// strings over the declared names, parsed with CUE's own expression
// parser:
//
//	problem: {
//		name:  "production"
//		sense: "minimize"
//
//		variables: {
//			x: {rows: 2}
//			t: {sign: "nonneg"}
//		}
//		parameters: {
//			budget: {value: 40}
//			prices: {rows: 2, value: [3, 5]}
//		}
//
//		objective: "sum_squares(x) + t"
//		constraints: [
//			"matmul(transpose(prices), x) <= budget",
//			{name: "floor", expr: "x >= 0"},
//		]
//	}
//
// Matrix parameter values are flat lists in column-major order.
// Structural reshaping and slicing have no file syntax; build those
// problems through the API.
package probfile

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/conicdev/conic"
)

// File is one compiled problem file.
type File struct {
	// Name labels the problem in journals and output; defaults to the
	// file name when the file does not set one.
	Name string
	// Problem is ready to Verify, Compile, or Solve.
	Problem *conic.Problem
	// Variables and Parameters index the declared leaves by name, for
	// reporting solutions and overriding parameter values.
	Variables  map[string]conic.Expr
	Parameters map[string]conic.Expr
	// Constraints preserves file order; entries carry their file names
	// as labels.
	Constraints []conic.Constraint
}

// Load reads and compiles a problem file.
func Load(path string) (*File, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load problem: %w", err)
	}
	return Compile(path, src)
}

// Compile parses CUE source into a problem. filename is used in
// positions only.
func Compile(filename string, src []byte) (*File, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	root := v.LookupPath(cue.ParsePath("problem"))
	if !root.Exists() {
		return nil, &CompileError{
			Field:   "problem",
			Message: "top-level problem struct is required",
			Pos:     v.Pos(),
		}
	}

	f := &File{
		Variables:  make(map[string]conic.Expr),
		Parameters: make(map[string]conic.Expr),
	}

	nameVal := root.LookupPath(cue.ParsePath("name"))
	if nameVal.Exists() {
		name, err := nameVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		f.Name = name
	} else {
		f.Name = filename
	}

	senseVal := root.LookupPath(cue.ParsePath("sense"))
	if !senseVal.Exists() {
		return nil, &CompileError{
			Field:   "sense",
			Message: `sense is required: "minimize" or "maximize"`,
			Pos:     root.Pos(),
		}
	}
	sense, err := senseVal.String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	if sense != "minimize" && sense != "maximize" {
		return nil, &CompileError{
			Field:   "sense",
			Message: fmt.Sprintf(`sense is %q, want "minimize" or "maximize"`, sense),
			Pos:     senseVal.Pos(),
		}
	}

	scope := make(map[string]conic.Expr)
	if err := parseVariables(root, f, scope); err != nil {
		return nil, err
	}
	if err := parseParameters(root, f, scope); err != nil {
		return nil, err
	}

	tr := &translator{scope: scope}

	objVal := root.LookupPath(cue.ParsePath("objective"))
	if !objVal.Exists() {
		return nil, &CompileError{
			Field:   "objective",
			Message: "objective is required",
			Pos:     root.Pos(),
		}
	}
	objSrc, err := objVal.String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	obj, err := tr.expression("objective", objSrc)
	if err != nil {
		return nil, err
	}

	cs, err := parseConstraints(root, tr)
	if err != nil {
		return nil, err
	}
	f.Constraints = cs

	if sense == "maximize" {
		f.Problem = conic.Maximize(obj, cs...)
	} else {
		f.Problem = conic.Minimize(obj, cs...)
	}
	return f, nil
}

// parseVariables builds the declared variable leaves. Shape defaults to
// 1x1; sign is "nonneg" or "nonpos" when present.
func parseVariables(root cue.Value, f *File, scope map[string]conic.Expr) error {
	varsVal := root.LookupPath(cue.ParsePath("variables"))
	if !varsVal.Exists() {
		return nil
	}
	iter, err := varsVal.Fields()
	if err != nil {
		return formatCUEError(err)
	}
	for iter.Next() {
		name := iter.Label()
		decl := iter.Value()
		rows, cols, err := parseShape(decl)
		if err != nil {
			return err
		}

		var x conic.Expr
		signVal := decl.LookupPath(cue.ParsePath("sign"))
		if signVal.Exists() {
			sign, err := signVal.String()
			if err != nil {
				return formatCUEError(err)
			}
			switch sign {
			case "nonneg":
				x = conic.NonnegVariable(name, rows, cols)
			case "nonpos":
				x = conic.NonposVariable(name, rows, cols)
			default:
				return &CompileError{
					Field:   fmt.Sprintf("variables.%s.sign", name),
					Message: fmt.Sprintf(`sign is %q, want "nonneg" or "nonpos"`, sign),
					Pos:     signVal.Pos(),
				}
			}
		} else {
			x = conic.Variable(name, rows, cols)
		}
		f.Variables[name] = x
		scope[name] = x
	}
	return nil
}

// parseParameters builds the declared parameter leaves and installs any
// in-file values.
func parseParameters(root cue.Value, f *File, scope map[string]conic.Expr) error {
	parsVal := root.LookupPath(cue.ParsePath("parameters"))
	if !parsVal.Exists() {
		return nil
	}
	iter, err := parsVal.Fields()
	if err != nil {
		return formatCUEError(err)
	}
	for iter.Next() {
		name := iter.Label()
		decl := iter.Value()
		if _, dup := scope[name]; dup {
			return &CompileError{
				Field:   fmt.Sprintf("parameters.%s", name),
				Message: "name already declared as a variable",
				Pos:     decl.Pos(),
			}
		}
		rows, cols, err := parseShape(decl)
		if err != nil {
			return err
		}
		p := conic.Parameter(name, rows, cols)

		valueVal := decl.LookupPath(cue.ParsePath("value"))
		if valueVal.Exists() {
			data, err := parseValueData(valueVal)
			if err != nil {
				return err
			}
			if err := p.Set(data); err != nil {
				return &CompileError{
					Field:   fmt.Sprintf("parameters.%s.value", name),
					Message: err.Error(),
					Pos:     valueVal.Pos(),
				}
			}
		}
		f.Parameters[name] = p
		scope[name] = p
	}
	return nil
}

// parseConstraints accepts plain expression strings and
// {name, expr} structs, preserving order.
func parseConstraints(root cue.Value, tr *translator) ([]conic.Constraint, error) {
	consVal := root.LookupPath(cue.ParsePath("constraints"))
	if !consVal.Exists() {
		return nil, nil
	}
	iter, err := consVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var out []conic.Constraint
	for i := 0; iter.Next(); i++ {
		entry := iter.Value()
		anchor := fmt.Sprintf("constraints[%d]", i)

		var name, src string
		if s, err := entry.String(); err == nil {
			src = s
		} else {
			exprVal := entry.LookupPath(cue.ParsePath("expr"))
			if !exprVal.Exists() {
				return nil, &CompileError{
					Field:   anchor,
					Message: "constraint must be an expression string or {name, expr}",
					Pos:     entry.Pos(),
				}
			}
			if src, err = exprVal.String(); err != nil {
				return nil, formatCUEError(err)
			}
			nameVal := entry.LookupPath(cue.ParsePath("name"))
			if nameVal.Exists() {
				if name, err = nameVal.String(); err != nil {
					return nil, formatCUEError(err)
				}
			}
		}

		c, err := tr.constraint(anchor, src)
		if err != nil {
			return nil, err
		}
		if name != "" {
			c = c.Named(name)
		}
		out = append(out, c)
	}
	return out, nil
}

func parseShape(decl cue.Value) (rows, cols int, err error) {
	rows, err = parseDim(decl, "rows")
	if err != nil {
		return 0, 0, err
	}
	cols, err = parseDim(decl, "cols")
	if err != nil {
		return 0, 0, err
	}
	return rows, cols, nil
}

func parseDim(decl cue.Value, field string) (int, error) {
	v := decl.LookupPath(cue.ParsePath(field))
	if !v.Exists() {
		return 1, nil
	}
	n, err := v.Int64()
	if err != nil {
		return 0, formatCUEError(err)
	}
	if n < 1 {
		return 0, &CompileError{
			Field:   field,
			Message: fmt.Sprintf("%s is %d, want at least 1", field, n),
			Pos:     v.Pos(),
		}
	}
	return int(n), nil
}

// parseValueData accepts a single number or a flat column-major list.
func parseValueData(v cue.Value) ([]float64, error) {
	if f, err := v.Float64(); err == nil {
		return []float64{f}, nil
	}
	iter, err := v.List()
	if err != nil {
		return nil, &CompileError{
			Field:   "value",
			Message: "value must be a number or a list of numbers",
			Pos:     v.Pos(),
		}
	}
	var data []float64
	for iter.Next() {
		f, err := iter.Value().Float64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		data = append(data, f)
	}
	return data, nil
}

// CompileError is a problem-file error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
