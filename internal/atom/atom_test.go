package atom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conicdev/conic/internal/expr"
)

func TestMakeValidatesArity(t *testing.T) {
	x := expr.NewVariable(expr.Vec(3), "x", expr.SignUnknown)

	_, err := Make(expr.AtomAbs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 1")

	_, err = Make(expr.AtomAbs, x, x)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at most 1")

	_, err = Make(expr.AtomKind(999), x)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown kind")
}

func TestMakeShapeRules(t *testing.T) {
	x := expr.NewVariable(expr.Vec(3), "x", expr.SignUnknown)
	y := expr.NewVariable(expr.Vec(4), "y", expr.SignUnknown)
	s := expr.NewVariable(expr.Scalar(), "s", expr.SignUnknown)
	m := expr.NewVariable(expr.Shape{Rows: 2, Cols: 3}, "M", expr.SignUnknown)

	tests := []struct {
		name    string
		make    func() (*expr.Node, error)
		want    expr.Shape
		errPart string
	}{
		{"add promotes scalar", func() (*expr.Node, error) { return Make(expr.AtomAdd, x, s) }, expr.Vec(3), ""},
		{"add rejects mismatch", func() (*expr.Node, error) { return Make(expr.AtomAdd, x, y) }, expr.Shape{}, "incompatible"},
		{"matmul", func() (*expr.Node, error) {
			c, _ := expr.NewConstant(expr.Shape{Rows: 4, Cols: 2}, make([]float64, 8))
			return Make(expr.AtomMatMul, c, m)
		}, expr.Shape{Rows: 4, Cols: 3}, ""},
		{"matmul inner mismatch", func() (*expr.Node, error) { return Make(expr.AtomMatMul, m, m) }, expr.Shape{}, "inner dimensions"},
		{"transpose", func() (*expr.Node, error) { return Make(expr.AtomTranspose, m) }, expr.Shape{Rows: 3, Cols: 2}, ""},
		{"trace needs square", func() (*expr.Node, error) { return Make(expr.AtomTrace, m) }, expr.Shape{}, "square"},
		{"sum reduces", func() (*expr.Node, error) { return Make(expr.AtomSum, m) }, expr.Scalar(), ""},
		{"index", func() (*expr.Node, error) { return MakeAttr(expr.AtomIndex, []int{0, 2, 1, 3}, m) }, expr.Shape{Rows: 2, Cols: 2}, ""},
		{"index out of bounds", func() (*expr.Node, error) { return MakeAttr(expr.AtomIndex, []int{0, 3, 0, 1}, m) }, expr.Shape{}, "invalid for shape"},
		{"index missing attr", func() (*expr.Node, error) { return Make(expr.AtomIndex, m) }, expr.Shape{}, "bounds"},
		{"reshape", func() (*expr.Node, error) { return MakeAttr(expr.AtomReshape, []int{3, 2}, m) }, expr.Shape{Rows: 3, Cols: 2}, ""},
		{"reshape size mismatch", func() (*expr.Node, error) { return MakeAttr(expr.AtomReshape, []int{4, 2}, m) }, expr.Shape{}, "cannot reshape"},
		{"hstack", func() (*expr.Node, error) { return Make(expr.AtomHStack, m, m) }, expr.Shape{Rows: 2, Cols: 6}, ""},
		{"hstack row mismatch", func() (*expr.Node, error) { return Make(expr.AtomHStack, m, x) }, expr.Shape{}, "row counts differ"},
		{"vstack", func() (*expr.Node, error) { return Make(expr.AtomVStack, m, m) }, expr.Shape{Rows: 4, Cols: 3}, ""},
		{"promote", func() (*expr.Node, error) { return MakeAttr(expr.AtomPromote, []int{2, 2}, s) }, expr.Shape{Rows: 2, Cols: 2}, ""},
		{"promote rejects nonscalar", func() (*expr.Node, error) { return MakeAttr(expr.AtomPromote, []int{2, 2}, x) }, expr.Shape{}, "need a scalar"},
		{"quadoverlin", func() (*expr.Node, error) { return Make(expr.AtomQuadOverLin, x, s) }, expr.Scalar(), ""},
		{"quadoverlin vector denominator", func() (*expr.Node, error) { return Make(expr.AtomQuadOverLin, x, y) }, expr.Shape{}, "need a scalar"},
		{"lambdamax needs square", func() (*expr.Node, error) { return Make(expr.AtomLambdaMax, m) }, expr.Shape{}, "square"},
		{"norm2 of matrix", func() (*expr.Node, error) { return Make(expr.AtomNorm2, m) }, expr.Scalar(), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := tt.make()
			if tt.errPart != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errPart)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, n.Shape)
		})
	}
}

func TestEveryKindRegistered(t *testing.T) {
	kinds := []expr.AtomKind{
		expr.AtomAdd, expr.AtomNeg, expr.AtomMulScalar, expr.AtomMatMul,
		expr.AtomSum, expr.AtomTranspose, expr.AtomTrace, expr.AtomIndex,
		expr.AtomReshape, expr.AtomHStack, expr.AtomVStack, expr.AtomPromote,
		expr.AtomAbs, expr.AtomPos, expr.AtomMaximum, expr.AtomMinimum,
		expr.AtomMaxEntries, expr.AtomMinEntries, expr.AtomSquare,
		expr.AtomSumSquares, expr.AtomQuadOverLin, expr.AtomNorm1,
		expr.AtomNorm2, expr.AtomNormInf, expr.AtomSqrt, expr.AtomExp,
		expr.AtomLog, expr.AtomEntr, expr.AtomLogSumExp,
		expr.AtomLambdaMax, expr.AtomLambdaMin,
	}
	for _, k := range kinds {
		spec, ok := Lookup(k)
		require.True(t, ok, "kind %s not registered", k)
		assert.Equal(t, k, spec.Kind)
		assert.NotNil(t, spec.Shape, "kind %s has no shape rule", k)
		assert.NotNil(t, spec.Sign, "kind %s has no sign rule", k)
		assert.NotNil(t, spec.Mono, "kind %s has no monotonicity rule", k)
		assert.NotNil(t, spec.Eval, "kind %s has no evaluator", k)
		assert.NotEqual(t, expr.Unknown, spec.Curv, "kind %s has no curvature", k)
	}
	assert.Len(t, registry, len(kinds))
}

func TestSignRules(t *testing.T) {
	pos := expr.SignNonneg
	neg := expr.SignNonpos
	unk := expr.SignUnknown
	zero := expr.SignZero

	sign := func(kind expr.AtomKind, argSigns ...expr.Sign) expr.Sign {
		spec, ok := Lookup(kind)
		require.True(t, ok)
		args := make([]*expr.Node, len(argSigns))
		for i := range args {
			args[i] = expr.NewVariable(expr.Scalar(), "", argSigns[i])
		}
		return spec.Sign(args, argSigns)
	}

	assert.Equal(t, pos, sign(expr.AtomAbs, unk))
	assert.Equal(t, pos, sign(expr.AtomSquare, neg))
	assert.Equal(t, pos, sign(expr.AtomExp, unk))
	assert.Equal(t, unk, sign(expr.AtomLog, pos))
	assert.Equal(t, neg, sign(expr.AtomNeg, pos))
	assert.Equal(t, pos, sign(expr.AtomAdd, pos, pos))
	assert.Equal(t, unk, sign(expr.AtomAdd, pos, neg))
	assert.Equal(t, neg, sign(expr.AtomMulScalar, pos, neg))
	assert.Equal(t, pos, sign(expr.AtomMaximum, unk, pos))
	assert.Equal(t, neg, sign(expr.AtomMaximum, neg, neg))
	assert.Equal(t, zero, sign(expr.AtomMaximum, zero, zero))
	assert.Equal(t, neg, sign(expr.AtomMinimum, neg, unk))
	assert.Equal(t, pos, sign(expr.AtomMinimum, pos, pos))
}

func TestMonotonicityRules(t *testing.T) {
	pos := expr.SignNonneg
	neg := expr.SignNonpos
	unk := expr.SignUnknown

	mono := func(kind expr.AtomKind, i int, argSigns ...expr.Sign) expr.Monotonicity {
		spec, ok := Lookup(kind)
		require.True(t, ok)
		args := make([]*expr.Node, len(argSigns))
		for j := range args {
			args[j] = expr.NewVariable(expr.Scalar(), "", argSigns[j])
		}
		return spec.Mono(args, argSigns, i)
	}

	assert.Equal(t, expr.MonoNondecreasing, mono(expr.AtomSquare, 0, pos))
	assert.Equal(t, expr.MonoNonincreasing, mono(expr.AtomSquare, 0, neg))
	assert.Equal(t, expr.MonoNone, mono(expr.AtomSquare, 0, unk))

	assert.Equal(t, expr.MonoNondecreasing, mono(expr.AtomMulScalar, 1, pos, unk))
	assert.Equal(t, expr.MonoNonincreasing, mono(expr.AtomMulScalar, 0, unk, neg))
	assert.Equal(t, expr.MonoNone, mono(expr.AtomMulScalar, 0, unk, unk))

	assert.Equal(t, expr.MonoNonincreasing, mono(expr.AtomQuadOverLin, 1, unk, pos))
	assert.Equal(t, expr.MonoNone, mono(expr.AtomQuadOverLin, 0, unk, pos))

	assert.Equal(t, expr.MonoNondecreasing, mono(expr.AtomExp, 0, unk))
	assert.Equal(t, expr.MonoNonincreasing, mono(expr.AtomNeg, 0, unk))
	assert.Equal(t, expr.MonoNone, mono(expr.AtomLambdaMax, 0, unk))
	assert.Equal(t, expr.MonoNone, mono(expr.AtomEntr, 0, pos))
}
