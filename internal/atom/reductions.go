package atom

import (
	"fmt"
	"math"

	"github.com/conicdev/conic/internal/expr"
)

// Scalar-valued reductions over all entries of the argument. Matrix
// arguments are treated as their flattened entry set, so norm2 of a
// matrix is the Frobenius norm.

func init() {
	register(&Spec{
		Kind:    expr.AtomMaxEntries,
		MinArgs: 1, MaxArgs: 1,
		Curv:  expr.Convex,
		Shape: scalarShape,
		Sign:  signFirst,
		Mono:  monoIncr,
		Eval: func(n *expr.Node, args [][]float64) ([]float64, error) {
			m := args[0][0]
			for _, v := range args[0][1:] {
				m = math.Max(m, v)
			}
			return []float64{m}, nil
		},
	})
	register(&Spec{
		Kind:    expr.AtomMinEntries,
		MinArgs: 1, MaxArgs: 1,
		Curv:  expr.Concave,
		Shape: scalarShape,
		Sign:  signFirst,
		Mono:  monoIncr,
		Eval: func(n *expr.Node, args [][]float64) ([]float64, error) {
			m := args[0][0]
			for _, v := range args[0][1:] {
				m = math.Min(m, v)
			}
			return []float64{m}, nil
		},
	})
	register(&Spec{
		Kind:    expr.AtomSumSquares,
		MinArgs: 1, MaxArgs: 1,
		Curv:  expr.Convex,
		Shape: scalarShape,
		Sign:  signNonneg,
		Mono:  monoSigned,
		Eval: func(n *expr.Node, args [][]float64) ([]float64, error) {
			total := 0.0
			for _, v := range args[0] {
				total += v * v
			}
			return []float64{total}, nil
		},
	})
	register(&Spec{
		Kind:    expr.AtomQuadOverLin,
		MinArgs: 2, MaxArgs: 2,
		Curv:  expr.Convex,
		Shape: quadOverLinShape,
		Sign:  signNonneg,
		Mono: func(args []*expr.Node, argSigns []expr.Sign, i int) expr.Monotonicity {
			if i == 1 {
				return expr.MonoNonincreasing
			}
			return monoSigned(args, argSigns, i)
		},
		Eval: func(n *expr.Node, args [][]float64) ([]float64, error) {
			total := 0.0
			for _, v := range args[0] {
				total += v * v
			}
			return []float64{total / args[1][0]}, nil
		},
	})
	register(&Spec{
		Kind:    expr.AtomNorm1,
		MinArgs: 1, MaxArgs: 1,
		Curv:  expr.Convex,
		Shape: scalarShape,
		Sign:  signNonneg,
		Mono:  monoSigned,
		Eval: func(n *expr.Node, args [][]float64) ([]float64, error) {
			total := 0.0
			for _, v := range args[0] {
				total += math.Abs(v)
			}
			return []float64{total}, nil
		},
	})
	register(&Spec{
		Kind:    expr.AtomNorm2,
		MinArgs: 1, MaxArgs: 1,
		Curv:  expr.Convex,
		Shape: scalarShape,
		Sign:  signNonneg,
		Mono:  monoSigned,
		Eval: func(n *expr.Node, args [][]float64) ([]float64, error) {
			total := 0.0
			for _, v := range args[0] {
				total += v * v
			}
			return []float64{math.Sqrt(total)}, nil
		},
	})
	register(&Spec{
		Kind:    expr.AtomNormInf,
		MinArgs: 1, MaxArgs: 1,
		Curv:  expr.Convex,
		Shape: scalarShape,
		Sign:  signNonneg,
		Mono:  monoSigned,
		Eval: func(n *expr.Node, args [][]float64) ([]float64, error) {
			m := 0.0
			for _, v := range args[0] {
				m = math.Max(m, math.Abs(v))
			}
			return []float64{m}, nil
		},
	})
	register(&Spec{
		Kind:    expr.AtomLogSumExp,
		MinArgs: 1, MaxArgs: 1,
		Curv:  expr.Convex,
		Shape: scalarShape,
		Sign:  signUnknown,
		Mono:  monoIncr,
		Eval: func(n *expr.Node, args [][]float64) ([]float64, error) {
			// Shifted for overflow safety: m + log Σ exp(v−m).
			m := args[0][0]
			for _, v := range args[0][1:] {
				m = math.Max(m, v)
			}
			total := 0.0
			for _, v := range args[0] {
				total += math.Exp(v - m)
			}
			return []float64{m + math.Log(total)}, nil
		},
	})
}

func quadOverLinShape(args []*expr.Node, attr []int) (expr.Shape, error) {
	if err := noAttr(attr); err != nil {
		return expr.Shape{}, err
	}
	if !args[1].Shape.IsScalar() {
		return expr.Shape{}, fmt.Errorf("denominator is %s, need a scalar", args[1].Shape)
	}
	return expr.Scalar(), nil
}
