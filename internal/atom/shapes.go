package atom

import (
	"fmt"

	"github.com/conicdev/conic/internal/expr"
)

// Shared shape, sign, and monotonicity rules. Most atoms are one of three
// shapes: elementwise with scalar promotion, scalar-valued reduction, or
// structural with an explicit rule.

func noAttr(attr []int) error {
	if len(attr) != 0 {
		return fmt.Errorf("unexpected attributes %v", attr)
	}
	return nil
}

// promotedShape folds scalar promotion across all arguments and returns
// the common elementwise shape.
func promotedShape(args []*expr.Node, attr []int) (expr.Shape, error) {
	if err := noAttr(attr); err != nil {
		return expr.Shape{}, err
	}
	shape := args[0].Shape
	for _, a := range args[1:] {
		p, ok := expr.Promoted(shape, a.Shape)
		if !ok {
			return expr.Shape{}, fmt.Errorf("shapes %s and %s are incompatible", shape, a.Shape)
		}
		shape = p
	}
	return shape, nil
}

// sameShape passes the single argument's shape through.
func sameShape(args []*expr.Node, attr []int) (expr.Shape, error) {
	if err := noAttr(attr); err != nil {
		return expr.Shape{}, err
	}
	return args[0].Shape, nil
}

// scalarShape reduces any arguments to a 1×1 result.
func scalarShape(args []*expr.Node, attr []int) (expr.Shape, error) {
	if err := noAttr(attr); err != nil {
		return expr.Shape{}, err
	}
	return expr.Scalar(), nil
}

// squareToScalarShape requires one square matrix argument.
func squareToScalarShape(args []*expr.Node, attr []int) (expr.Shape, error) {
	if err := noAttr(attr); err != nil {
		return expr.Shape{}, err
	}
	if !args[0].Shape.IsSquare() {
		return expr.Shape{}, fmt.Errorf("argument is %s, need a square matrix", args[0].Shape)
	}
	return expr.Scalar(), nil
}

// signFirst passes the first argument's sign through.
func signFirst(args []*expr.Node, argSigns []expr.Sign) expr.Sign {
	return argSigns[0]
}

// signNonneg ignores arguments.
func signNonneg(args []*expr.Node, argSigns []expr.Sign) expr.Sign {
	return expr.SignNonneg
}

// signUnknown ignores arguments.
func signUnknown(args []*expr.Node, argSigns []expr.Sign) expr.Sign {
	return expr.SignUnknown
}

// signSum folds the sign of a sum or stack of the arguments.
func signSum(args []*expr.Node, argSigns []expr.Sign) expr.Sign {
	sign := argSigns[0]
	for _, s := range argSigns[1:] {
		sign = expr.AddSign(sign, s)
	}
	return sign
}

// maxSign is the sign of an elementwise or entrywise maximum.
func maxSign(a, b expr.Sign) expr.Sign {
	switch {
	case a == expr.SignZero && b == expr.SignZero:
		return expr.SignZero
	case a.IsNonneg() || b.IsNonneg():
		return expr.SignNonneg
	case a.IsNonpos() && b.IsNonpos():
		return expr.SignNonpos
	default:
		return expr.SignUnknown
	}
}

// minSign is the sign of an elementwise or entrywise minimum.
func minSign(a, b expr.Sign) expr.Sign {
	switch {
	case a == expr.SignZero && b == expr.SignZero:
		return expr.SignZero
	case a.IsNonpos() || b.IsNonpos():
		return expr.SignNonpos
	case a.IsNonneg() && b.IsNonneg():
		return expr.SignNonneg
	default:
		return expr.SignUnknown
	}
}

// monoIncr is nondecreasing in every argument.
func monoIncr(args []*expr.Node, argSigns []expr.Sign, i int) expr.Monotonicity {
	return expr.MonoNondecreasing
}

// monoNone certifies no monotonicity; arguments must be affine.
func monoNone(args []*expr.Node, argSigns []expr.Sign, i int) expr.Monotonicity {
	return expr.MonoNone
}

// monoSigned is the abs-family rule: nondecreasing on nonnegative
// arguments, nonincreasing on nonpositive ones.
func monoSigned(args []*expr.Node, argSigns []expr.Sign, i int) expr.Monotonicity {
	switch {
	case argSigns[i].IsNonneg():
		return expr.MonoNondecreasing
	case argSigns[i].IsNonpos():
		return expr.MonoNonincreasing
	default:
		return expr.MonoNone
	}
}

// monoByCoeff is the multiply rule: monotonicity in one factor follows the
// sign of the other factor.
func monoByCoeff(args []*expr.Node, argSigns []expr.Sign, i int) expr.Monotonicity {
	other := argSigns[1-i]
	switch {
	case other.IsNonneg():
		return expr.MonoNondecreasing
	case other.IsNonpos():
		return expr.MonoNonincreasing
	default:
		return expr.MonoNone
	}
}
