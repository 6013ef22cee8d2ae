package conic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestExprDims(t *testing.T) {
	x := Variable("x", 3, 2)
	r, c := x.Dims()
	assert.Equal(t, 3, r)
	assert.Equal(t, 2, c)
	assert.Equal(t, "x", x.Name())

	s := Sum(x)
	r, c = s.Dims()
	assert.Equal(t, 1, r)
	assert.Equal(t, 1, c)
}

func TestExprValueConstants(t *testing.T) {
	// Constant data is column-major.
	m := Constant(2, 2, []float64{1, 2, 3, 4})
	v, err := m.Value()
	require.NoError(t, err)
	assert.Equal(t, 1.0, v.At(0, 0))
	assert.Equal(t, 2.0, v.At(1, 0))
	assert.Equal(t, 3.0, v.At(0, 1))
	assert.Equal(t, 4.0, v.At(1, 1))

	tr, err := Transpose(m).Value()
	require.NoError(t, err)
	assert.Equal(t, 2.0, tr.At(0, 1))
	assert.Equal(t, 3.0, tr.At(1, 0))
}

func TestExprValueParameters(t *testing.T) {
	a := Parameter("a", 1, 1)
	x := Add(Mul(Scalar(2), a), Scalar(1))

	_, err := x.ScalarValue()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"a"`)

	require.NoError(t, a.SetScalar(3))
	got, err := x.ScalarValue()
	require.NoError(t, err)
	assert.Equal(t, 7.0, got)
}

func TestExprValueVariableUnset(t *testing.T) {
	x := Variable("x", 2, 1)
	_, err := Sum(x).Value()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no value")
}

func TestMatrixRoundTrip(t *testing.T) {
	d := mat.NewDense(2, 3, []float64{
		1, 2, 3,
		4, 5, 6,
	})
	e := Matrix(d)
	v, err := e.Value()
	require.NoError(t, err)
	assert.True(t, mat.Equal(d, v))
}

func TestSetRejectsWrongSize(t *testing.T) {
	a := Parameter("a", 2, 2)
	err := a.Set([]float64{1, 2, 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "4")
}

func TestBuilderPanics(t *testing.T) {
	assert.Panics(t, func() { Add(Vector([]float64{1, 2}), Vector([]float64{1, 2, 3})) })
	assert.Panics(t, func() { MatMul(Variable("x", 2, 2), Variable("y", 3, 3)) })
	assert.Panics(t, func() { Trace(Variable("x", 2, 3)) })
	assert.Panics(t, func() { InSOC(Vector([]float64{1, 2}), Variable("x", 2, 1)) })
	assert.Panics(t, func() { Constant(2, 2, []float64{1}) })
	assert.Panics(t, func() { Variable("x", 0, 1) })

	var zero Expr
	assert.Panics(t, func() { zero.Dims() })
	var zc Constraint
	assert.Panics(t, func() { zc.Label() })
}

func TestVerifyAccepts(t *testing.T) {
	x := Variable("x", 2, 1)
	tests := []struct {
		name string
		p    *Problem
	}{
		{"linear", Minimize(Sum(x), Ge(x, Scalar(0)))},
		{"convex objective", Minimize(SumSquares(x))},
		{"concave maximization", Maximize(Min(x), Le(x, Scalar(1)))},
		{"convex inequality", Minimize(Sum(x), Le(Norm2(x), Scalar(1)))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NoError(t, tt.p.Verify())
		})
	}
}

func TestVerifyViolations(t *testing.T) {
	x := Variable("x", 1, 1)
	y := Variable("y", 1, 1)
	tests := []struct {
		name string
		p    *Problem
		code string
	}{
		{"concave minimization", Minimize(Sqrt(x)), "D102"},
		{"convex maximization", Maximize(Square(x)), "D103"},
		{"nonaffine equality", Minimize(x, Eq(Square(x), y)), "D110"},
		{"concave inequality body", Minimize(x, Ge(Square(x), Scalar(1))), "D111"},
		{"variable product", Minimize(Mul(x, y)), "D120"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.p.Verify()
			require.Error(t, err)
			require.True(t, IsDCPError(err))
			var dcpErr *DCPError
			require.ErrorAs(t, err, &dcpErr)
			codes := make([]string, 0, len(dcpErr.Violations))
			for _, v := range dcpErr.Violations {
				codes = append(codes, v.Code)
			}
			assert.Contains(t, codes, tt.code)
		})
	}
}

func TestVerifyCollectsAllViolations(t *testing.T) {
	x := Variable("x", 1, 1)
	y := Variable("y", 1, 1)
	p := Minimize(Sqrt(x), Ge(Square(y), Scalar(1)))
	err := p.Verify()
	require.Error(t, err)
	var dcpErr *DCPError
	require.ErrorAs(t, err, &dcpErr)
	assert.Len(t, dcpErr.Violations, 2)
	assert.Contains(t, err.Error(), "2 discipline violations")
}

func TestConstraintLabels(t *testing.T) {
	x := Variable("x", 1, 1)
	named := Ge(x, Scalar(0)).Named("floor")
	assert.Equal(t, "floor", named.Label())

	anon := Ge(x, Scalar(0))
	assert.Contains(t, anon.Label(), "ineq#")

	_, ok := anon.Dual()
	assert.False(t, ok)
}
