package conic

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conicdev/conic/solver"
	_ "github.com/conicdev/conic/solver/simplex"
	"github.com/conicdev/conic/solver/solvertest"
)

// ecosDriver stands in for a real interior-point solver. Tests script
// its outputs; registration runs once per binary.
var ecosDriver = solvertest.New("ecos")

func init() {
	solver.Register("ecos", ecosDriver)
}

func TestSolveLinearProgram(t *testing.T) {
	x := Variable("x", 2, 1)
	pr := Minimize(Sum(x), Ge(x, Scalar(1)).Named("floor"))

	res, err := pr.Solve(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, solver.StatusOptimal, res.Status)
	assert.Equal(t, "simplex", res.Solver)
	assert.InDelta(t, 2.0, res.Value, 1e-6)
	assert.Len(t, res.Fingerprint, 64)
	assert.Equal(t, solver.StatusOptimal, pr.Status())

	v, err := x.Value()
	require.NoError(t, err)
	assert.InDelta(t, 1.0, v.At(0, 0), 1e-6)
	assert.InDelta(t, 1.0, v.At(1, 0), 1e-6)
}

func TestSolveMaximize(t *testing.T) {
	x := Variable("x", 1, 1)
	pr := Maximize(x, Le(x, Scalar(5)))

	res, err := pr.Solve(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, solver.StatusOptimal, res.Status)
	assert.InDelta(t, 5.0, res.Value, 1e-6)

	got, err := x.ScalarValue()
	require.NoError(t, err)
	assert.InDelta(t, 5.0, got, 1e-6)
}

func TestSolveInfeasible(t *testing.T) {
	x := Variable("x", 1, 1)
	pr := Minimize(x, Ge(x, Scalar(1)), Le(x, Scalar(-1)))

	res, err := pr.Solve(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, solver.StatusInfeasible, res.Status)
	assert.True(t, math.IsNaN(res.Value))

	_, err = x.ScalarValue()
	assert.Error(t, err)
}

func TestSolveUnbounded(t *testing.T) {
	x := Variable("x", 1, 1)
	pr := Minimize(x, Le(x, Scalar(0)))

	res, err := pr.Solve(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, solver.StatusUnbounded, res.Status)
	assert.True(t, math.IsNaN(res.Value))
}

func TestSolveUnknownSolver(t *testing.T) {
	x := Variable("x", 1, 1)
	pr := Minimize(x, Ge(x, Scalar(0)))

	_, err := pr.Solve(context.Background(), &SolveOptions{Solver: "frontal"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown solver "frontal"`)
	assert.Contains(t, err.Error(), "simplex")
}

func TestSolveRejectsDCPViolation(t *testing.T) {
	x := Variable("x", 1, 1)
	pr := Minimize(Sqrt(x))

	_, err := pr.Solve(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, IsDCPError(err))
}

func TestCompileUnvaluedParameter(t *testing.T) {
	a := Parameter("a", 1, 1)
	x := Variable("x", 1, 1)
	pr := Minimize(Mul(a, x), Ge(x, Scalar(0)))

	_, err := pr.Compile()
	require.Error(t, err)
	assert.True(t, IsUnvaluedParameterError(err))
	assert.Contains(t, err.Error(), `"a"`)

	require.NoError(t, a.SetScalar(2))
	prog, err := pr.Compile()
	require.NoError(t, err)
	assert.Equal(t, []float64{2}, prog.C)
}

func TestSolveDualRoundTrip(t *testing.T) {
	// minimize (x-y)^2 subject to x+y = 1, x-y >= 1. At the optimum
	// x=1, y=0 the gap constraint is active with multiplier 2.
	x := Variable("x", 1, 1)
	y := Variable("y", 1, 1)
	diff := Sub(x, y)
	budget := Eq(Add(x, y), Scalar(1)).Named("budget")
	gap := Ge(diff, Scalar(1)).Named("gap")
	obj := Square(diff)
	pr := Minimize(obj, budget, gap)

	ecosDriver.Script(&solver.Output{
		Status:     solver.StatusOptimal,
		Primal:     []float64{1, 0, 1},
		DualEq:     []float64{0},
		DualCone:   []float64{2, 0.1, 0.2, 0.3},
		Objective:  1,
		Iterations: 7,
		Message:    "converged",
	})

	res, err := pr.Solve(context.Background(), &SolveOptions{Solver: "ecos"})
	require.NoError(t, err)
	assert.Equal(t, solver.StatusOptimal, res.Status)
	assert.Equal(t, "ecos", res.Solver)
	assert.InDelta(t, 1.0, res.Value, 1e-9)
	assert.Equal(t, 7, res.Iterations)

	xv, err := x.ScalarValue()
	require.NoError(t, err)
	assert.Equal(t, 1.0, xv)
	yv, err := y.ScalarValue()
	require.NoError(t, err)
	assert.Equal(t, 0.0, yv)

	// Derived expressions evaluate from the installed solution.
	dv, err := diff.ScalarValue()
	require.NoError(t, err)
	assert.Equal(t, 1.0, dv)
	ov, err := obj.ScalarValue()
	require.NoError(t, err)
	assert.Equal(t, 1.0, ov)

	gapDual, ok := gap.Dual()
	require.True(t, ok)
	assert.Equal(t, []float64{2}, gapDual)
	budgetDual, ok := budget.Dual()
	require.True(t, ok)
	assert.Equal(t, []float64{0}, budgetDual)
}

func TestSolveUnsupportedConeBeforeDriver(t *testing.T) {
	X := Variable("X", 2, 2)
	pr := Minimize(Trace(X), IsPSD(X))

	before := len(ecosDriver.Calls())
	_, err := pr.Solve(context.Background(), &SolveOptions{Solver: "ecos"})
	require.Error(t, err)
	assert.True(t, IsUnsupportedConeError(err))
	assert.Len(t, ecosDriver.Calls(), before)
}

func TestSolvePrefer(t *testing.T) {
	x := Variable("x", 1, 1)
	pr := Minimize(x, Ge(x, Scalar(0)))

	ecosDriver.Script(&solver.Output{
		Status:   solver.StatusOptimal,
		Primal:   []float64{0},
		DualCone: []float64{1},
	})

	res, err := pr.Solve(context.Background(), &SolveOptions{Prefer: []string{"ecos"}})
	require.NoError(t, err)
	assert.Equal(t, "ecos", res.Solver)
	assert.Equal(t, 0.0, res.Value)
}

func TestDataForLayouts(t *testing.T) {
	x := Variable("x", 2, 1)
	pr := Minimize(Sum(x), Eq(Sum(x), Scalar(1)), Ge(x, Scalar(0)))

	direct, err := pr.DataFor("simplex")
	require.NoError(t, err)
	require.NotNil(t, direct.A)
	assert.Equal(t, 1, direct.A.Rows)
	assert.Equal(t, 2, direct.G.Rows)
	assert.Equal(t, 1, direct.Dims.Zero)

	folded, err := pr.DataFor("scs")
	require.NoError(t, err)
	assert.Nil(t, folded.A)
	assert.Nil(t, folded.B)
	assert.Equal(t, 3, folded.G.Rows)
	assert.Equal(t, []float64{1, 0, 0}, folded.H)
	assert.Equal(t, 1, folded.Dims.Zero)

	_, err = pr.DataFor("frontal")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown solver")
}

func TestDataForUnsupportedCone(t *testing.T) {
	X := Variable("X", 2, 2)
	pr := Minimize(Trace(X), IsPSD(X))

	_, err := pr.DataFor("ecos")
	require.Error(t, err)
	assert.True(t, IsUnsupportedConeError(err))

	_, err = pr.DataFor("conelp")
	assert.NoError(t, err)
}

func TestSolveConstantAtomStaysLinear(t *testing.T) {
	// square(2) is constant, so the program must stay an LP and reach
	// the simplex driver; an epigraph expansion would both misroute the
	// solve to a cone backend and leave the relaxation unbounded.
	x := Variable("x", 1, 1)
	pr := Minimize(Sub(x, Square(Scalar(2))), Ge(x, Scalar(0)))

	res, err := pr.Solve(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "simplex", res.Solver)
	assert.Equal(t, solver.StatusOptimal, res.Status)
	assert.InDelta(t, -4.0, res.Value, 1e-6)

	got, err := x.ScalarValue()
	require.NoError(t, err)
	assert.InDelta(t, 0.0, got, 1e-6)
}

func TestSolveAtomRewriteEquivalence(t *testing.T) {
	// LP-expressible atoms solved through the simplex driver must agree
	// with direct numeric evaluation at the reported solution.
	cases := []struct {
		name  string
		build func() (*Problem, Expr)
		want  float64
	}{
		{
			name: "abs",
			build: func() (*Problem, Expr) {
				x := Variable("x", 1, 1)
				obj := Abs(x)
				return Minimize(obj, Ge(x, Scalar(-2))), obj
			},
			want: 0,
		},
		{
			name: "pos",
			build: func() (*Problem, Expr) {
				x := Variable("x", 1, 1)
				obj := Pos(x)
				return Minimize(obj, Ge(x, Scalar(-3))), obj
			},
			want: 0,
		},
		{
			name: "maximum",
			build: func() (*Problem, Expr) {
				x := Variable("x", 1, 1)
				obj := Maximum(x, Scalar(3))
				return Minimize(obj, Ge(x, Scalar(5))), obj
			},
			want: 5,
		},
		{
			name: "norm1 residual",
			build: func() (*Problem, Expr) {
				x := Variable("x", 2, 1)
				obj := Norm1(Sub(x, Vector([]float64{1, -3})))
				return Minimize(obj, Eq(Sum(x), Scalar(0))), obj
			},
			want: 2,
		},
		{
			name: "norminf residual",
			build: func() (*Problem, Expr) {
				x := Variable("x", 2, 1)
				obj := NormInf(Sub(x, Vector([]float64{2, -1})))
				return Minimize(obj, Ge(x, Scalar(0))), obj
			},
			want: 1,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pr, obj := tc.build()
			res, err := pr.Solve(context.Background(), nil)
			require.NoError(t, err)
			assert.Equal(t, "simplex", res.Solver)
			assert.Equal(t, solver.StatusOptimal, res.Status)
			assert.InDelta(t, tc.want, res.Value, 1e-6)

			direct, err := obj.ScalarValue()
			require.NoError(t, err)
			assert.InDelta(t, res.Value, direct, 1e-6)
		})
	}
}
