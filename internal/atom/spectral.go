package atom

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/conicdev/conic/internal/expr"
)

// Spectral atoms over square matrix arguments. The argument is
// symmetrized as (X + Xᵀ)/2 before the eigenvalues are read, matching how
// the semidefinite rewrites treat their operands.

func init() {
	register(&Spec{
		Kind:    expr.AtomLambdaMax,
		MinArgs: 1, MaxArgs: 1,
		Curv:  expr.Convex,
		Shape: squareToScalarShape,
		Sign:  signUnknown,
		Mono:  monoNone,
		Eval: func(n *expr.Node, args [][]float64) ([]float64, error) {
			vals, err := symEigen(n.Args[0].Shape, args[0])
			if err != nil {
				return nil, err
			}
			return []float64{vals[len(vals)-1]}, nil
		},
	})
	register(&Spec{
		Kind:    expr.AtomLambdaMin,
		MinArgs: 1, MaxArgs: 1,
		Curv:  expr.Concave,
		Shape: squareToScalarShape,
		Sign:  signUnknown,
		Mono:  monoNone,
		Eval: func(n *expr.Node, args [][]float64) ([]float64, error) {
			vals, err := symEigen(n.Args[0].Shape, args[0])
			if err != nil {
				return nil, err
			}
			return []float64{vals[0]}, nil
		},
	})
}

// symEigen returns the eigenvalues of the symmetrized matrix in ascending
// order.
func symEigen(shape expr.Shape, v []float64) ([]float64, error) {
	n := shape.Rows
	data := make([]float64, n*n)
	for c := 0; c < n; c++ {
		for r := 0; r < n; r++ {
			data[r*n+c] = (v[shape.Index(r, c)] + v[shape.Index(c, r)]) / 2
		}
	}
	var eig mat.EigenSym
	if ok := eig.Factorize(mat.NewSymDense(n, data), false); !ok {
		return nil, fmt.Errorf("eigendecomposition of %s matrix failed", shape)
	}
	return eig.Values(nil), nil
}
