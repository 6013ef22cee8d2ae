package atom

import (
	"fmt"

	"github.com/conicdev/conic/internal/expr"
)

// Affine and structural atoms. The reducer maps these straight onto
// coefficient operations; they carry no rewrite.

func init() {
	register(&Spec{
		Kind:    expr.AtomAdd,
		MinArgs: 2, MaxArgs: -1,
		Curv:  expr.Affine,
		Shape: promotedShape,
		Sign:  signSum,
		Mono:  monoIncr,
		Eval:  evalAdd,
	})
	register(&Spec{
		Kind:    expr.AtomNeg,
		MinArgs: 1, MaxArgs: 1,
		Curv:  expr.Affine,
		Shape: sameShape,
		Sign: func(args []*expr.Node, argSigns []expr.Sign) expr.Sign {
			return expr.NegSign(argSigns[0])
		},
		Mono: func(args []*expr.Node, argSigns []expr.Sign, i int) expr.Monotonicity {
			return expr.MonoNonincreasing
		},
		Eval: evalNeg,
	})
	register(&Spec{
		Kind:    expr.AtomMulScalar,
		MinArgs: 2, MaxArgs: 2,
		Curv:  expr.Affine,
		Shape: promotedShape,
		Sign: func(args []*expr.Node, argSigns []expr.Sign) expr.Sign {
			return expr.MulSign(argSigns[0], argSigns[1])
		},
		Mono: monoByCoeff,
		Eval: evalMul,
	})
	register(&Spec{
		Kind:    expr.AtomMatMul,
		MinArgs: 2, MaxArgs: 2,
		Curv:  expr.Affine,
		Shape: matmulShape,
		Sign: func(args []*expr.Node, argSigns []expr.Sign) expr.Sign {
			return expr.MulSign(argSigns[0], argSigns[1])
		},
		Mono: monoByCoeff,
		Eval: evalMatMul,
	})
	register(&Spec{
		Kind:    expr.AtomSum,
		MinArgs: 1, MaxArgs: 1,
		Curv:  expr.Affine,
		Shape: scalarShape,
		Sign:  signFirst,
		Mono:  monoIncr,
		Eval:  evalSum,
	})
	register(&Spec{
		Kind:    expr.AtomTranspose,
		MinArgs: 1, MaxArgs: 1,
		Curv:  expr.Affine,
		Shape: func(args []*expr.Node, attr []int) (expr.Shape, error) {
			if err := noAttr(attr); err != nil {
				return expr.Shape{}, err
			}
			s := args[0].Shape
			return expr.Shape{Rows: s.Cols, Cols: s.Rows}, nil
		},
		Sign: signFirst,
		Mono: monoIncr,
		Eval: evalTranspose,
	})
	register(&Spec{
		Kind:    expr.AtomTrace,
		MinArgs: 1, MaxArgs: 1,
		Curv:  expr.Affine,
		Shape: squareToScalarShape,
		Sign:  signFirst,
		Mono:  monoIncr,
		Eval:  evalTrace,
	})
	register(&Spec{
		Kind:    expr.AtomIndex,
		MinArgs: 1, MaxArgs: 1,
		Curv:  expr.Affine,
		Shape: indexShape,
		Sign:  signFirst,
		Mono:  monoIncr,
		Eval:  evalIndex,
	})
	register(&Spec{
		Kind:    expr.AtomReshape,
		MinArgs: 1, MaxArgs: 1,
		Curv:  expr.Affine,
		Shape: reshapeShape,
		Sign:  signFirst,
		Mono:  monoIncr,
		Eval: func(n *expr.Node, args [][]float64) ([]float64, error) {
			// Column-major entry order is preserved across a reshape.
			out := make([]float64, len(args[0]))
			copy(out, args[0])
			return out, nil
		},
	})
	register(&Spec{
		Kind:    expr.AtomHStack,
		MinArgs: 1, MaxArgs: -1,
		Curv:  expr.Affine,
		Shape: hstackShape,
		Sign:  signSum,
		Mono:  monoIncr,
		Eval:  evalHStack,
	})
	register(&Spec{
		Kind:    expr.AtomVStack,
		MinArgs: 1, MaxArgs: -1,
		Curv:  expr.Affine,
		Shape: vstackShape,
		Sign:  signSum,
		Mono:  monoIncr,
		Eval:  evalVStack,
	})
	register(&Spec{
		Kind:    expr.AtomPromote,
		MinArgs: 1, MaxArgs: 1,
		Curv:  expr.Affine,
		Shape: promoteShape,
		Sign:  signFirst,
		Mono:  monoIncr,
		Eval: func(n *expr.Node, args [][]float64) ([]float64, error) {
			out := make([]float64, n.Shape.Size())
			for i := range out {
				out[i] = args[0][0]
			}
			return out, nil
		},
	})
}

func matmulShape(args []*expr.Node, attr []int) (expr.Shape, error) {
	if err := noAttr(attr); err != nil {
		return expr.Shape{}, err
	}
	a, b := args[0].Shape, args[1].Shape
	if a.Cols != b.Rows {
		return expr.Shape{}, fmt.Errorf("inner dimensions of %s and %s do not match", a, b)
	}
	return expr.Shape{Rows: a.Rows, Cols: b.Cols}, nil
}

func indexShape(args []*expr.Node, attr []int) (expr.Shape, error) {
	if len(attr) != 4 {
		return expr.Shape{}, fmt.Errorf("index needs [r0, r1, c0, c1] bounds, got %v", attr)
	}
	s := args[0].Shape
	r0, r1, c0, c1 := attr[0], attr[1], attr[2], attr[3]
	if r0 < 0 || r0 >= r1 || r1 > s.Rows || c0 < 0 || c0 >= c1 || c1 > s.Cols {
		return expr.Shape{}, fmt.Errorf("bounds [%d:%d, %d:%d] invalid for shape %s", r0, r1, c0, c1, s)
	}
	return expr.Shape{Rows: r1 - r0, Cols: c1 - c0}, nil
}

func reshapeShape(args []*expr.Node, attr []int) (expr.Shape, error) {
	if len(attr) != 2 {
		return expr.Shape{}, fmt.Errorf("reshape needs a target [rows, cols], got %v", attr)
	}
	target := expr.Shape{Rows: attr[0], Cols: attr[1]}
	if target.Rows < 1 || target.Cols < 1 {
		return expr.Shape{}, fmt.Errorf("target shape %s is empty", target)
	}
	if target.Size() != args[0].Shape.Size() {
		return expr.Shape{}, fmt.Errorf("cannot reshape %s into %s", args[0].Shape, target)
	}
	return target, nil
}

func hstackShape(args []*expr.Node, attr []int) (expr.Shape, error) {
	if err := noAttr(attr); err != nil {
		return expr.Shape{}, err
	}
	rows := args[0].Shape.Rows
	cols := 0
	for _, a := range args {
		if a.Shape.Rows != rows {
			return expr.Shape{}, fmt.Errorf("row counts differ: %s vs %s", args[0].Shape, a.Shape)
		}
		cols += a.Shape.Cols
	}
	return expr.Shape{Rows: rows, Cols: cols}, nil
}

func vstackShape(args []*expr.Node, attr []int) (expr.Shape, error) {
	if err := noAttr(attr); err != nil {
		return expr.Shape{}, err
	}
	cols := args[0].Shape.Cols
	rows := 0
	for _, a := range args {
		if a.Shape.Cols != cols {
			return expr.Shape{}, fmt.Errorf("column counts differ: %s vs %s", args[0].Shape, a.Shape)
		}
		rows += a.Shape.Rows
	}
	return expr.Shape{Rows: rows, Cols: cols}, nil
}

func promoteShape(args []*expr.Node, attr []int) (expr.Shape, error) {
	if len(attr) != 2 {
		return expr.Shape{}, fmt.Errorf("promote needs a target [rows, cols], got %v", attr)
	}
	if !args[0].Shape.IsScalar() {
		return expr.Shape{}, fmt.Errorf("argument is %s, need a scalar", args[0].Shape)
	}
	target := expr.Shape{Rows: attr[0], Cols: attr[1]}
	if target.Rows < 1 || target.Cols < 1 {
		return expr.Shape{}, fmt.Errorf("target shape %s is empty", target)
	}
	return target, nil
}

// at reads argument k's entry i under scalar promotion.
func at(v []float64, i int) float64 {
	if len(v) == 1 {
		return v[0]
	}
	return v[i]
}

func evalAdd(n *expr.Node, args [][]float64) ([]float64, error) {
	out := make([]float64, n.Shape.Size())
	for _, v := range args {
		for i := range out {
			out[i] += at(v, i)
		}
	}
	return out, nil
}

func evalNeg(n *expr.Node, args [][]float64) ([]float64, error) {
	out := make([]float64, len(args[0]))
	for i, v := range args[0] {
		out[i] = -v
	}
	return out, nil
}

func evalMul(n *expr.Node, args [][]float64) ([]float64, error) {
	out := make([]float64, n.Shape.Size())
	for i := range out {
		out[i] = at(args[0], i) * at(args[1], i)
	}
	return out, nil
}

func evalMatMul(n *expr.Node, args [][]float64) ([]float64, error) {
	a, b := args[0], args[1]
	as, bs := n.Args[0].Shape, n.Args[1].Shape
	out := make([]float64, n.Shape.Size())
	for j := 0; j < bs.Cols; j++ {
		for k := 0; k < as.Cols; k++ {
			bkj := b[bs.Index(k, j)]
			if bkj == 0 {
				continue
			}
			for i := 0; i < as.Rows; i++ {
				out[n.Shape.Index(i, j)] += a[as.Index(i, k)] * bkj
			}
		}
	}
	return out, nil
}

func evalSum(n *expr.Node, args [][]float64) ([]float64, error) {
	total := 0.0
	for _, v := range args[0] {
		total += v
	}
	return []float64{total}, nil
}

func evalTranspose(n *expr.Node, args [][]float64) ([]float64, error) {
	s := n.Args[0].Shape
	out := make([]float64, len(args[0]))
	for c := 0; c < s.Cols; c++ {
		for r := 0; r < s.Rows; r++ {
			out[n.Shape.Index(c, r)] = args[0][s.Index(r, c)]
		}
	}
	return out, nil
}

func evalTrace(n *expr.Node, args [][]float64) ([]float64, error) {
	s := n.Args[0].Shape
	total := 0.0
	for i := 0; i < s.Rows; i++ {
		total += args[0][s.Index(i, i)]
	}
	return []float64{total}, nil
}

func evalIndex(n *expr.Node, args [][]float64) ([]float64, error) {
	s := n.Args[0].Shape
	r0, c0 := n.Attr[0], n.Attr[2]
	out := make([]float64, n.Shape.Size())
	for c := 0; c < n.Shape.Cols; c++ {
		for r := 0; r < n.Shape.Rows; r++ {
			out[n.Shape.Index(r, c)] = args[0][s.Index(r0+r, c0+c)]
		}
	}
	return out, nil
}

func evalHStack(n *expr.Node, args [][]float64) ([]float64, error) {
	// Column-major concatenation of same-height blocks is a flat append.
	out := make([]float64, 0, n.Shape.Size())
	for _, v := range args {
		out = append(out, v...)
	}
	return out, nil
}

func evalVStack(n *expr.Node, args [][]float64) ([]float64, error) {
	out := make([]float64, n.Shape.Size())
	rowOff := 0
	for k, v := range args {
		s := n.Args[k].Shape
		for c := 0; c < s.Cols; c++ {
			for r := 0; r < s.Rows; r++ {
				out[n.Shape.Index(rowOff+r, c)] = v[s.Index(r, c)]
			}
		}
		rowOff += s.Rows
	}
	return out, nil
}
