// Package conic models convex optimization problems and compiles them to
// cone programs through disciplined-convex-programming (DCP) analysis.
//
// Expressions are built from variables, parameters, and constants with the
// atom constructors (Add, Square, Norm2, ...), combined into constraints,
// and grouped into a Problem with Minimize or Maximize. Verify checks the
// DCP rules, Compile lowers the problem to a sparse cone program, and
// Solve hands that program to a registered solver driver and maps the
// solution back onto variables and constraint duals.
//
// Expression and constraint constructors panic on structural misuse such
// as shape mismatches, the way gonum/mat does; everything that depends on
// problem data or solver behavior returns an error instead.
package conic

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/conicdev/conic/internal/atom"
	"github.com/conicdev/conic/internal/expr"
)

// Expr is an immutable handle on one node of an expression graph. The
// zero value is not usable; obtain Exprs from the leaf constructors and
// the atom builders.
type Expr struct {
	node *expr.Node
}

func (e Expr) n() *expr.Node {
	if e.node == nil {
		panic("conic: zero Expr; use the constructors")
	}
	return e.node
}

func shapeOf(rows, cols int) expr.Shape {
	if rows < 1 || cols < 1 {
		panic(fmt.Sprintf("conic: invalid shape %dx%d", rows, cols))
	}
	return expr.Shape{Rows: rows, Cols: cols}
}

// Variable declares a rows×cols decision variable. The name labels solver
// columns and diagnostics; empty names get a generated label.
func Variable(name string, rows, cols int) Expr {
	return Expr{node: expr.NewVariable(shapeOf(rows, cols), name, expr.SignUnknown)}
}

// NonnegVariable declares a variable known to be elementwise nonnegative.
// The sign sharpens DCP analysis: square(x) of a nonneg x is nondecreasing,
// so compositions like square(norm2(x)) certify.
func NonnegVariable(name string, rows, cols int) Expr {
	return Expr{node: expr.NewVariable(shapeOf(rows, cols), name, expr.SignNonneg)}
}

// NonposVariable declares a variable known to be elementwise nonpositive.
func NonposVariable(name string, rows, cols int) Expr {
	return Expr{node: expr.NewVariable(shapeOf(rows, cols), name, expr.SignNonpos)}
}

// Parameter declares a named constant whose value is supplied with Set
// before compiling. Parameters keep problem structure fixed while data
// changes between solves.
func Parameter(name string, rows, cols int) Expr {
	return Expr{node: expr.NewParameter(shapeOf(rows, cols), name, expr.SignUnknown)}
}

// NonnegParameter declares a parameter known to be elementwise
// nonnegative even before a value is set.
func NonnegParameter(name string, rows, cols int) Expr {
	return Expr{node: expr.NewParameter(shapeOf(rows, cols), name, expr.SignNonneg)}
}

// Constant wraps column-major data as a rows×cols constant.
func Constant(rows, cols int, data []float64) Expr {
	n, err := expr.NewConstant(shapeOf(rows, cols), data)
	if err != nil {
		panic("conic: " + err.Error())
	}
	return Expr{node: n}
}

// Scalar is a 1×1 constant.
func Scalar(v float64) Expr {
	return Expr{node: expr.NewScalarConst(v)}
}

// Vector is an n×1 constant. The data is copied.
func Vector(data []float64) Expr {
	v := make([]float64, len(data))
	copy(v, data)
	return Constant(len(data), 1, v)
}

// Matrix wraps a gonum matrix as a constant.
func Matrix(m mat.Matrix) Expr {
	r, c := m.Dims()
	data := make([]float64, r*c)
	for j := 0; j < c; j++ {
		for i := 0; i < r; i++ {
			data[j*r+i] = m.At(i, j)
		}
	}
	return Constant(r, c, data)
}

// Dims returns the expression's rows and columns.
func (e Expr) Dims() (rows, cols int) {
	s := e.n().Shape
	return s.Rows, s.Cols
}

// Name returns the variable or parameter name; empty for other nodes.
func (e Expr) Name() string { return e.n().Name }

// String renders a short diagnostic form of the expression.
func (e Expr) String() string { return e.n().Label() }

// Set installs a column-major value on a parameter, or on a variable to
// seed evaluation. Shapes must match exactly.
func (e Expr) Set(data []float64) error {
	v := make([]float64, len(data))
	copy(v, data)
	return e.n().SetValue(v)
}

// SetScalar installs a scalar value.
func (e Expr) SetScalar(v float64) error { return e.Set([]float64{v}) }

// SetMatrix installs a gonum matrix value.
func (e Expr) SetMatrix(m mat.Matrix) error {
	return e.Set(Matrix(m).n().Value)
}

// Value numerically evaluates the expression using constant data,
// parameter values, and the variable values written by the last
// successful solve. It fails if any reachable leaf has no value.
func (e Expr) Value() (*mat.Dense, error) {
	vals, err := evalNode(e.n(), make(map[int64][]float64))
	if err != nil {
		return nil, err
	}
	s := e.n().Shape
	d := mat.NewDense(s.Rows, s.Cols, nil)
	for j := 0; j < s.Cols; j++ {
		for i := 0; i < s.Rows; i++ {
			d.Set(i, j, vals[s.Index(i, j)])
		}
	}
	return d, nil
}

// ScalarValue is Value for 1×1 expressions.
func (e Expr) ScalarValue() (float64, error) {
	if !e.n().Shape.IsScalar() {
		return 0, fmt.Errorf("conic: %s is %s, not scalar", e.n().Label(), e.n().Shape)
	}
	d, err := e.Value()
	if err != nil {
		return 0, err
	}
	return d.At(0, 0), nil
}

func evalNode(n *expr.Node, memo map[int64][]float64) ([]float64, error) {
	if v, ok := memo[n.ID()]; ok {
		return v, nil
	}
	var out []float64
	switch n.Kind {
	case expr.KindConstant:
		out = n.Value
	case expr.KindParameter, expr.KindVariable:
		if n.Value == nil {
			return nil, fmt.Errorf("conic: %s %q has no value", n.Kind, n.Name)
		}
		out = n.Value
	case expr.KindAtom:
		args := make([][]float64, len(n.Args))
		for i, a := range n.Args {
			v, err := evalNode(a, memo)
			if err != nil {
				return nil, err
			}
			args[i] = v
		}
		spec, ok := atom.Lookup(n.Atom)
		if !ok {
			return nil, fmt.Errorf("conic: no evaluator for atom %s", n.Atom)
		}
		v, err := spec.Eval(n, args)
		if err != nil {
			return nil, err
		}
		out = v
	default:
		return nil, fmt.Errorf("conic: cannot evaluate %s node", n.Kind)
	}
	memo[n.ID()] = out
	return out, nil
}
