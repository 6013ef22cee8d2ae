// Package atom is the registry of canonicalizable operations. Every atom
// kind owns one Spec describing its arity, shape rule, curvature, sign
// rule, per-argument monotonicity, and numeric evaluation. The registry is
// the single source of truth: the verifier, the reducer, and the numeric
// evaluator all dispatch through it, so adding an atom means adding one
// Spec (plus a rewrite in the reducer if the atom is nonlinear).
package atom

import (
	"fmt"

	"github.com/conicdev/conic/internal/expr"
)

// ShapeFunc computes the result shape from argument nodes and static
// attributes, rejecting malformed applications.
type ShapeFunc func(args []*expr.Node, attr []int) (expr.Shape, error)

// SignFunc propagates argument signs to the result sign. argSigns[i] is
// the analyzed sign of args[i].
type SignFunc func(args []*expr.Node, argSigns []expr.Sign) expr.Sign

// MonoFunc reports the atom's monotonicity in argument i, given the
// analyzed argument signs. Sign-dependent atoms (abs, square, norms)
// inspect argSigns[i]; coefficient atoms (mul, matmul) inspect the sign of
// the opposite argument.
type MonoFunc func(args []*expr.Node, argSigns []expr.Sign, i int) expr.Monotonicity

// EvalFunc numerically evaluates the atom given evaluated argument values
// (column-major, matching each argument's shape).
type EvalFunc func(n *expr.Node, args [][]float64) ([]float64, error)

// Spec is the behavioural record of one atom kind.
type Spec struct {
	Kind expr.AtomKind

	// MinArgs and MaxArgs bound the argument count; MaxArgs -1 means
	// unbounded.
	MinArgs int
	MaxArgs int

	// Curv is the atom's own curvature; the composition rule combines it
	// with argument curvatures and Mono.
	Curv expr.Curvature

	Shape ShapeFunc
	Sign  SignFunc
	Mono  MonoFunc
	Eval  EvalFunc
}

var registry = map[expr.AtomKind]*Spec{}

func register(s *Spec) {
	if _, dup := registry[s.Kind]; dup {
		panic(fmt.Sprintf("atom: duplicate registration of %s", s.Kind))
	}
	registry[s.Kind] = s
}

// Lookup returns the Spec for a kind.
func Lookup(kind expr.AtomKind) (*Spec, bool) {
	s, ok := registry[kind]
	return s, ok
}

// Make validates arguments against the registry and constructs an atom
// node. It is the only sanctioned way to build atom nodes.
func Make(kind expr.AtomKind, args ...*expr.Node) (*expr.Node, error) {
	return MakeAttr(kind, nil, args...)
}

// MakeAttr is Make for atoms carrying static integer attributes: index
// bounds, reshape and promote target shapes.
func MakeAttr(kind expr.AtomKind, attr []int, args ...*expr.Node) (*expr.Node, error) {
	spec, ok := registry[kind]
	if !ok {
		return nil, fmt.Errorf("atom: unknown kind %s", kind)
	}
	if len(args) < spec.MinArgs {
		return nil, fmt.Errorf("atom: %s needs at least %d arguments, got %d", kind, spec.MinArgs, len(args))
	}
	if spec.MaxArgs >= 0 && len(args) > spec.MaxArgs {
		return nil, fmt.Errorf("atom: %s takes at most %d arguments, got %d", kind, spec.MaxArgs, len(args))
	}
	for i, a := range args {
		if a == nil {
			return nil, fmt.Errorf("atom: %s argument %d is nil", kind, i)
		}
	}
	shape, err := spec.Shape(args, attr)
	if err != nil {
		return nil, fmt.Errorf("atom: %s: %w", kind, err)
	}
	n := expr.NewAtom(kind, shape, args)
	n.Attr = attr
	return n, nil
}

// MustMake is Make for statically valid applications, such as rewrite
// internals building atoms over freshly minted operands.
func MustMake(kind expr.AtomKind, args ...*expr.Node) *expr.Node {
	n, err := Make(kind, args...)
	if err != nil {
		panic(err)
	}
	return n
}
