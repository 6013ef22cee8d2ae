// Package dcp verifies that a problem follows the composition discipline:
// every expression must have a curvature certificate derived from atom
// curvatures, argument monotonicities, and propagated signs. Verification
// never mutates the expression graph; analysis results live in a side
// table keyed by node identity, so shared subexpressions are analyzed
// once.
package dcp

import (
	"github.com/conicdev/conic/internal/atom"
	"github.com/conicdev/conic/internal/expr"
)

// Info is the analysis result for one node.
type Info struct {
	Curv expr.Curvature
	Sign expr.Sign
}

// Analysis memoizes per-node curvature and sign over one problem. It is
// the certificate handed to the reducer: reduction trusts these results
// and re-deriving them later yields the same answers because the graph is
// immutable.
type Analysis struct {
	info map[int64]Info

	// violations collects composition failures found while analyzing,
	// such as products of two non-constant operands. Verify stamps the
	// enclosing location onto them.
	violations []Violation
}

// NewAnalysis returns an empty analysis table.
func NewAnalysis() *Analysis {
	return &Analysis{info: make(map[int64]Info)}
}

// Of analyzes n, memoized by node identity.
func (a *Analysis) Of(n *expr.Node) Info {
	if info, ok := a.info[n.ID()]; ok {
		return info
	}
	var info Info
	switch n.Kind {
	case expr.KindConstant, expr.KindParameter:
		info = Info{Curv: expr.Constant, Sign: n.ConstSign()}
	case expr.KindVariable:
		info = Info{Curv: expr.Affine, Sign: n.DeclaredSign}
	case expr.KindAtom:
		info = a.atomInfo(n)
	default:
		info = Info{Curv: expr.Unknown, Sign: expr.SignUnknown}
	}
	a.info[n.ID()] = info
	return info
}

// Curvature returns the memoized curvature of n.
func (a *Analysis) Curvature(n *expr.Node) expr.Curvature { return a.Of(n).Curv }

// Sign returns the memoized sign of n.
func (a *Analysis) Sign(n *expr.Node) expr.Sign { return a.Of(n).Sign }

func (a *Analysis) atomInfo(n *expr.Node) Info {
	spec, ok := atom.Lookup(n.Atom)
	if !ok {
		return Info{Curv: expr.Unknown, Sign: expr.SignUnknown}
	}
	argInfos := make([]Info, len(n.Args))
	argSigns := make([]expr.Sign, len(n.Args))
	for i, arg := range n.Args {
		argInfos[i] = a.Of(arg)
		argSigns[i] = argInfos[i].Sign
	}
	sign := spec.Sign(n.Args, argSigns)

	// D120: a product certifies only when one side is constant. Without
	// this check the affine multiply rule would wrongly certify products
	// of two variables.
	if n.Atom == expr.AtomMulScalar || n.Atom == expr.AtomMatMul {
		if !argInfos[0].Curv.IsConstant() && !argInfos[1].Curv.IsConstant() {
			a.violations = append(a.violations, Violation{
				Code:    ErrNonConstantProduct,
				Expr:    n.Label(),
				Message: "product of two non-constant expressions is not canonicalizable",
			})
			return Info{Curv: expr.Unknown, Sign: sign}
		}
	}

	return Info{Curv: compose(spec, n, argInfos, argSigns), Sign: sign}
}

// compose applies the composition rule: the atom's own curvature holds
// when every argument is affine, or convex where the atom is nondecreasing
// and concave where nonincreasing (mirrored for concave results).
func compose(spec *atom.Spec, n *expr.Node, argInfos []Info, argSigns []expr.Sign) expr.Curvature {
	allConst := true
	for _, ai := range argInfos {
		if !ai.Curv.IsConstant() {
			allConst = false
			break
		}
	}
	if allConst {
		return expr.Constant
	}

	canConvex := spec.Curv.IsConvex()
	canConcave := spec.Curv.IsConcave()
	for i, ai := range argInfos {
		if !canConvex && !canConcave {
			break
		}
		mono := spec.Mono(n.Args, argSigns, i)
		cvx := ai.Curv.IsAffine() ||
			(mono == expr.MonoNondecreasing && ai.Curv.IsConvex()) ||
			(mono == expr.MonoNonincreasing && ai.Curv.IsConcave())
		ccv := ai.Curv.IsAffine() ||
			(mono == expr.MonoNondecreasing && ai.Curv.IsConcave()) ||
			(mono == expr.MonoNonincreasing && ai.Curv.IsConvex())
		canConvex = canConvex && cvx
		canConcave = canConcave && ccv
	}

	switch {
	case canConvex && canConcave:
		return expr.Affine
	case canConvex:
		return expr.Convex
	case canConcave:
		return expr.Concave
	default:
		return expr.Unknown
	}
}

// unknownRoots appends the deepest unknown-curvature nodes under n: nodes
// where composition first failed, with every argument still certified.
// These are the expressions worth showing the user.
func (a *Analysis) unknownRoots(n *expr.Node, dst []*expr.Node, seen map[int64]bool) []*expr.Node {
	if seen[n.ID()] {
		return dst
	}
	seen[n.ID()] = true
	if a.Curvature(n) != expr.Unknown {
		return dst
	}
	deepest := true
	for _, arg := range n.Args {
		if a.Curvature(arg) == expr.Unknown {
			deepest = false
			dst = a.unknownRoots(arg, dst, seen)
		}
	}
	if deepest {
		dst = append(dst, n)
	}
	return dst
}
