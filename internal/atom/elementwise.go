package atom

import (
	"math"

	"github.com/conicdev/conic/internal/expr"
)

// Elementwise nonlinear atoms. Numeric evaluation follows the math
// package's domain conventions: log of a negative value is NaN, not an
// error, matching how the solved values behave under floating point.

func init() {
	register(&Spec{
		Kind:    expr.AtomAbs,
		MinArgs: 1, MaxArgs: 1,
		Curv:  expr.Convex,
		Shape: sameShape,
		Sign:  signNonneg,
		Mono:  monoSigned,
		Eval:  mapEval(math.Abs),
	})
	register(&Spec{
		Kind:    expr.AtomPos,
		MinArgs: 1, MaxArgs: 1,
		Curv:  expr.Convex,
		Shape: sameShape,
		Sign:  signNonneg,
		Mono:  monoIncr,
		Eval:  mapEval(func(v float64) float64 { return math.Max(v, 0) }),
	})
	register(&Spec{
		Kind:    expr.AtomMaximum,
		MinArgs: 2, MaxArgs: -1,
		Curv:  expr.Convex,
		Shape: promotedShape,
		Sign: func(args []*expr.Node, argSigns []expr.Sign) expr.Sign {
			sign := argSigns[0]
			for _, s := range argSigns[1:] {
				sign = maxSign(sign, s)
			}
			return sign
		},
		Mono: monoIncr,
		Eval: foldEval(math.Max),
	})
	register(&Spec{
		Kind:    expr.AtomMinimum,
		MinArgs: 2, MaxArgs: -1,
		Curv:  expr.Concave,
		Shape: promotedShape,
		Sign: func(args []*expr.Node, argSigns []expr.Sign) expr.Sign {
			sign := argSigns[0]
			for _, s := range argSigns[1:] {
				sign = minSign(sign, s)
			}
			return sign
		},
		Mono: monoIncr,
		Eval: foldEval(math.Min),
	})
	register(&Spec{
		Kind:    expr.AtomSquare,
		MinArgs: 1, MaxArgs: 1,
		Curv:  expr.Convex,
		Shape: sameShape,
		Sign:  signNonneg,
		Mono:  monoSigned,
		Eval:  mapEval(func(v float64) float64 { return v * v }),
	})
	register(&Spec{
		Kind:    expr.AtomSqrt,
		MinArgs: 1, MaxArgs: 1,
		Curv:  expr.Concave,
		Shape: sameShape,
		Sign:  signNonneg,
		Mono:  monoIncr,
		Eval:  mapEval(math.Sqrt),
	})
	register(&Spec{
		Kind:    expr.AtomExp,
		MinArgs: 1, MaxArgs: 1,
		Curv:  expr.Convex,
		Shape: sameShape,
		Sign:  signNonneg,
		Mono:  monoIncr,
		Eval:  mapEval(math.Exp),
	})
	register(&Spec{
		Kind:    expr.AtomLog,
		MinArgs: 1, MaxArgs: 1,
		Curv:  expr.Concave,
		Shape: sameShape,
		Sign:  signUnknown,
		Mono:  monoIncr,
		Eval:  mapEval(math.Log),
	})
	register(&Spec{
		Kind:    expr.AtomEntr,
		MinArgs: 1, MaxArgs: 1,
		Curv:  expr.Concave,
		Shape: sameShape,
		Sign:  signUnknown,
		Mono:  monoNone,
		Eval:  mapEval(entr),
	})
}

// entr is -x·log(x) with the continuous extension entr(0) = 0.
func entr(v float64) float64 {
	if v == 0 {
		return 0
	}
	return -v * math.Log(v)
}

// mapEval lifts a scalar function to an elementwise EvalFunc.
func mapEval(f func(float64) float64) EvalFunc {
	return func(n *expr.Node, args [][]float64) ([]float64, error) {
		out := make([]float64, len(args[0]))
		for i, v := range args[0] {
			out[i] = f(v)
		}
		return out, nil
	}
}

// foldEval lifts a binary scalar function to a variadic elementwise
// EvalFunc with scalar promotion.
func foldEval(f func(float64, float64) float64) EvalFunc {
	return func(n *expr.Node, args [][]float64) ([]float64, error) {
		out := make([]float64, n.Shape.Size())
		for i := range out {
			out[i] = at(args[0], i)
		}
		for _, v := range args[1:] {
			for i := range out {
				out[i] = f(out[i], at(v, i))
			}
		}
		return out, nil
	}
}
