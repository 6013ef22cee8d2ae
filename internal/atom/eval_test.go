package atom

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"

	"github.com/conicdev/conic/internal/expr"
)

// evalNode runs the registry evaluator for a freshly built atom node.
func evalNode(t *testing.T, n *expr.Node, args ...[]float64) []float64 {
	t.Helper()
	spec, ok := Lookup(n.Atom)
	require.True(t, ok)
	out, err := spec.Eval(n, args)
	require.NoError(t, err)
	return out
}

func TestEvalAffine(t *testing.T) {
	x := expr.NewVariable(expr.Vec(3), "x", expr.SignUnknown)
	s := expr.NewVariable(expr.Scalar(), "s", expr.SignUnknown)
	m := expr.NewVariable(expr.Shape{Rows: 2, Cols: 3}, "M", expr.SignUnknown)
	sq := expr.NewVariable(expr.Shape{Rows: 2, Cols: 2}, "S", expr.SignUnknown)

	add := MustMake(expr.AtomAdd, x, s)
	assert.Equal(t, []float64{11, 12, 13}, evalNode(t, add, []float64{1, 2, 3}, []float64{10}))

	neg := MustMake(expr.AtomNeg, x)
	assert.Equal(t, []float64{-1, 0, 2}, evalNode(t, neg, []float64{1, 0, -2}))

	mul := MustMake(expr.AtomMulScalar, s, x)
	assert.Equal(t, []float64{2, 4, 6}, evalNode(t, mul, []float64{2}, []float64{1, 2, 3}))

	sum := MustMake(expr.AtomSum, m)
	assert.Equal(t, []float64{21}, evalNode(t, sum, []float64{1, 2, 3, 4, 5, 6}))

	// M is column-major: [[1 3 5], [2 4 6]]; trace of S=[[1 3],[2 4]] is 5.
	tr := MustMake(expr.AtomTrace, sq)
	assert.Equal(t, []float64{5}, evalNode(t, tr, []float64{1, 2, 3, 4}))

	tp := MustMake(expr.AtomTranspose, sq)
	assert.Equal(t, []float64{1, 3, 2, 4}, evalNode(t, tp, []float64{1, 2, 3, 4}))
}

func TestEvalMatMul(t *testing.T) {
	// A = [[1 2],[3 4]] column-major {1,3,2,4}; x = [5, 6]; A·x = [17, 39].
	a, err := expr.NewConstant(expr.Shape{Rows: 2, Cols: 2}, []float64{1, 3, 2, 4})
	require.NoError(t, err)
	x := expr.NewVariable(expr.Vec(2), "x", expr.SignUnknown)
	mm := MustMake(expr.AtomMatMul, a, x)
	require.Equal(t, expr.Vec(2), mm.Shape)
	assert.Equal(t, []float64{17, 39}, evalNode(t, mm, a.Value, []float64{5, 6}))
}

func TestEvalStructural(t *testing.T) {
	m := expr.NewVariable(expr.Shape{Rows: 2, Cols: 3}, "M", expr.SignUnknown)
	mv := []float64{1, 2, 3, 4, 5, 6} // [[1 3 5],[2 4 6]]

	idx, err := MakeAttr(expr.AtomIndex, []int{0, 1, 1, 3}, m)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 5}, evalNode(t, idx, mv))

	rs, err := MakeAttr(expr.AtomReshape, []int{3, 2}, m)
	require.NoError(t, err)
	assert.Equal(t, mv, evalNode(t, rs, mv))

	x := expr.NewVariable(expr.Vec(2), "x", expr.SignUnknown)
	hs := MustMake(expr.AtomHStack, x, x)
	assert.Equal(t, []float64{1, 2, 1, 2}, evalNode(t, hs, []float64{1, 2}, []float64{1, 2}))

	vs := MustMake(expr.AtomVStack, x, x)
	assert.Equal(t, []float64{1, 2, 1, 2}, evalNode(t, vs, []float64{1, 2}, []float64{1, 2}))

	vsm := MustMake(expr.AtomVStack, m, m)
	assert.Equal(t, []float64{1, 2, 1, 2, 3, 4, 3, 4, 5, 6, 5, 6}, evalNode(t, vsm, mv, mv))

	s := expr.NewVariable(expr.Scalar(), "s", expr.SignUnknown)
	pr, err := MakeAttr(expr.AtomPromote, []int{2, 2}, s)
	require.NoError(t, err)
	assert.Equal(t, []float64{7, 7, 7, 7}, evalNode(t, pr, []float64{7}))
}

func TestEvalElementwise(t *testing.T) {
	x := expr.NewVariable(expr.Vec(3), "x", expr.SignUnknown)

	tests := []struct {
		kind expr.AtomKind
		in   []float64
		want []float64
	}{
		{expr.AtomAbs, []float64{-1, 0, 2}, []float64{1, 0, 2}},
		{expr.AtomPos, []float64{-1, 0, 2}, []float64{0, 0, 2}},
		{expr.AtomSquare, []float64{-2, 0, 3}, []float64{4, 0, 9}},
		{expr.AtomSqrt, []float64{0, 4, 9}, []float64{0, 2, 3}},
		{expr.AtomExp, []float64{0, 1, -1}, []float64{1, math.E, 1 / math.E}},
		{expr.AtomLog, []float64{1, math.E, math.E * math.E}, []float64{0, 1, 2}},
		{expr.AtomEntr, []float64{0, 1, math.E}, []float64{0, 0, -math.E}},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			n := MustMake(tt.kind, x)
			got := evalNode(t, n, tt.in)
			assert.True(t, floats.EqualApprox(tt.want, got, 1e-12), "got %v want %v", got, tt.want)
		})
	}

	s := expr.NewVariable(expr.Scalar(), "s", expr.SignUnknown)
	mx := MustMake(expr.AtomMaximum, x, s)
	assert.Equal(t, []float64{2, 2, 5}, evalNode(t, mx, []float64{1, -3, 5}, []float64{2}))

	mn := MustMake(expr.AtomMinimum, x, s)
	assert.Equal(t, []float64{1, -3, 2}, evalNode(t, mn, []float64{1, -3, 5}, []float64{2}))
}

func TestEvalReductions(t *testing.T) {
	x := expr.NewVariable(expr.Vec(4), "x", expr.SignUnknown)
	s := expr.NewVariable(expr.Scalar(), "s", expr.SignUnknown)
	in := []float64{3, -4, 0, 1}

	assert.Equal(t, []float64{3}, evalNode(t, MustMake(expr.AtomMaxEntries, x), in))
	assert.Equal(t, []float64{-4}, evalNode(t, MustMake(expr.AtomMinEntries, x), in))
	assert.Equal(t, []float64{26}, evalNode(t, MustMake(expr.AtomSumSquares, x), in))
	assert.Equal(t, []float64{8}, evalNode(t, MustMake(expr.AtomNorm1, x), in))
	assert.InDelta(t, math.Sqrt(26), evalNode(t, MustMake(expr.AtomNorm2, x), in)[0], 1e-12)
	assert.Equal(t, []float64{4}, evalNode(t, MustMake(expr.AtomNormInf, x), in))

	qol := MustMake(expr.AtomQuadOverLin, x, s)
	assert.Equal(t, []float64{13}, evalNode(t, qol, in, []float64{2}))

	lse := MustMake(expr.AtomLogSumExp, x)
	want := math.Log(math.Exp(3) + math.Exp(-4) + 1 + math.E)
	assert.InDelta(t, want, evalNode(t, lse, in)[0], 1e-12)
}

func TestEvalSpectral(t *testing.T) {
	// [[2 1],[1 2]] has eigenvalues 1 and 3.
	sq := expr.NewVariable(expr.Shape{Rows: 2, Cols: 2}, "S", expr.SignUnknown)
	sv := []float64{2, 1, 1, 2}

	assert.InDelta(t, 3, evalNode(t, MustMake(expr.AtomLambdaMax, sq), sv)[0], 1e-9)
	assert.InDelta(t, 1, evalNode(t, MustMake(expr.AtomLambdaMin, sq), sv)[0], 1e-9)

	// Non-symmetric input is symmetrized first: [[0 2],[0 0]] acts as
	// [[0 1],[1 0]] with eigenvalues ±1.
	assert.InDelta(t, 1, evalNode(t, MustMake(expr.AtomLambdaMax, sq), []float64{0, 0, 2, 0})[0], 1e-9)
}
