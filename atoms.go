package conic

import (
	"github.com/conicdev/conic/internal/atom"
	"github.com/conicdev/conic/internal/expr"
)

func build(kind expr.AtomKind, args ...Expr) Expr {
	nodes := make([]*expr.Node, len(args))
	for i, a := range args {
		nodes[i] = a.n()
	}
	n, err := atom.Make(kind, nodes...)
	if err != nil {
		panic("conic: " + err.Error())
	}
	return Expr{node: n}
}

func buildAttr(kind expr.AtomKind, attr []int, args ...Expr) Expr {
	nodes := make([]*expr.Node, len(args))
	for i, a := range args {
		nodes[i] = a.n()
	}
	n, err := atom.MakeAttr(kind, attr, nodes...)
	if err != nil {
		panic("conic: " + err.Error())
	}
	return Expr{node: n}
}

// Add sums two or more expressions elementwise, promoting scalars.
func Add(a, b Expr, more ...Expr) Expr {
	return build(expr.AtomAdd, append([]Expr{a, b}, more...)...)
}

// Sub is a - b.
func Sub(a, b Expr) Expr { return Add(a, Neg(b)) }

// Neg is -x.
func Neg(x Expr) Expr { return build(expr.AtomNeg, x) }

// Mul multiplies elementwise with scalar promotion. DCP requires one side
// to be constant or parameter data; a product of two non-constants is
// rejected at verification.
func Mul(a, b Expr) Expr { return build(expr.AtomMulScalar, a, b) }

// MatMul is the matrix product a·b with matching inner dimensions. One
// side must be constant for the problem to verify.
func MatMul(a, b Expr) Expr { return build(expr.AtomMatMul, a, b) }

// Sum adds all entries into a scalar.
func Sum(x Expr) Expr { return build(expr.AtomSum, x) }

// Transpose is xᵀ.
func Transpose(x Expr) Expr { return build(expr.AtomTranspose, x) }

// Trace sums the diagonal of a square matrix.
func Trace(x Expr) Expr { return build(expr.AtomTrace, x) }

// Slice selects the half-open block x[r0:r1, c0:c1].
func Slice(x Expr, r0, r1, c0, c1 int) Expr {
	return buildAttr(expr.AtomIndex, []int{r0, r1, c0, c1}, x)
}

// At selects the scalar entry x[i, j].
func At(x Expr, i, j int) Expr { return Slice(x, i, i+1, j, j+1) }

// Reshape reinterprets x as rows×cols in column-major entry order.
func Reshape(x Expr, rows, cols int) Expr {
	return buildAttr(expr.AtomReshape, []int{rows, cols}, x)
}

// HStack concatenates expressions left to right; all must share a row
// count.
func HStack(xs ...Expr) Expr { return build(expr.AtomHStack, xs...) }

// VStack concatenates expressions top to bottom; all must share a column
// count.
func VStack(xs ...Expr) Expr { return build(expr.AtomVStack, xs...) }

// Promote broadcasts a scalar to rows×cols.
func Promote(x Expr, rows, cols int) Expr {
	return buildAttr(expr.AtomPromote, []int{rows, cols}, x)
}

// Abs is elementwise |x|. Convex.
func Abs(x Expr) Expr { return build(expr.AtomAbs, x) }

// Pos is elementwise max(x, 0). Convex.
func Pos(x Expr) Expr { return build(expr.AtomPos, x) }

// Maximum is the elementwise maximum of two or more expressions. Convex.
func Maximum(a, b Expr, more ...Expr) Expr {
	return build(expr.AtomMaximum, append([]Expr{a, b}, more...)...)
}

// Minimum is the elementwise minimum of two or more expressions. Concave.
func Minimum(a, b Expr, more ...Expr) Expr {
	return build(expr.AtomMinimum, append([]Expr{a, b}, more...)...)
}

// Max is the largest entry of x. Convex.
func Max(x Expr) Expr { return build(expr.AtomMaxEntries, x) }

// Min is the smallest entry of x. Concave.
func Min(x Expr) Expr { return build(expr.AtomMinEntries, x) }

// Square is elementwise x². Convex.
func Square(x Expr) Expr { return build(expr.AtomSquare, x) }

// SumSquares is Σxᵢ², the squared 2-norm. Convex.
func SumSquares(x Expr) Expr { return build(expr.AtomSumSquares, x) }

// QuadOverLin is (Σxᵢ²)/y for scalar y > 0. Convex, nondecreasing in no
// argument and nonincreasing in y.
func QuadOverLin(x, y Expr) Expr { return build(expr.AtomQuadOverLin, x, y) }

// Norm1 is Σ|xᵢ|. Convex.
func Norm1(x Expr) Expr { return build(expr.AtomNorm1, x) }

// Norm2 is the Euclidean norm of a vector, the Frobenius norm of a
// matrix. Convex.
func Norm2(x Expr) Expr { return build(expr.AtomNorm2, x) }

// NormInf is max|xᵢ|. Convex.
func NormInf(x Expr) Expr { return build(expr.AtomNormInf, x) }

// Sqrt is elementwise √x. Concave, defined for x ≥ 0.
func Sqrt(x Expr) Expr { return build(expr.AtomSqrt, x) }

// Exp is elementwise eˣ. Convex.
func Exp(x Expr) Expr { return build(expr.AtomExp, x) }

// Log is elementwise ln x. Concave, defined for x > 0.
func Log(x Expr) Expr { return build(expr.AtomLog, x) }

// Entr is elementwise -x·ln x with entr(0) = 0. Concave.
func Entr(x Expr) Expr { return build(expr.AtomEntr, x) }

// LogSumExp is ln Σ eˣⁱ, a smooth maximum. Convex.
func LogSumExp(x Expr) Expr { return build(expr.AtomLogSumExp, x) }

// LambdaMax is the largest eigenvalue of a symmetric matrix. Convex.
func LambdaMax(x Expr) Expr { return build(expr.AtomLambdaMax, x) }

// LambdaMin is the smallest eigenvalue of a symmetric matrix. Concave.
func LambdaMin(x Expr) Expr { return build(expr.AtomLambdaMin, x) }
