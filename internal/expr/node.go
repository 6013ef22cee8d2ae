package expr

import (
	"fmt"
	"sync/atomic"
)

// Kind tags the variant of a Node.
type Kind int8

const (
	// KindVariable is a user-owned decision variable leaf.
	KindVariable Kind = iota + 1
	// KindParameter is a named constant leaf whose value is supplied before
	// reduction.
	KindParameter
	// KindConstant is a literal numeric leaf.
	KindConstant
	// KindAtom is the application of a registered atom to operand nodes.
	KindAtom
)

func (k Kind) String() string {
	switch k {
	case KindVariable:
		return "variable"
	case KindParameter:
		return "parameter"
	case KindConstant:
		return "constant"
	case KindAtom:
		return "atom"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// AtomKind identifies a registered atom. The behavioural record for each
// kind (shape rule, curvature rule, graph implementation) lives in the atom
// registry; this enum is only the dispatch tag carried by graph nodes.
type AtomKind int16

const (
	AtomInvalid AtomKind = iota

	// Affine / structural kinds. The reducer maps these to coefficient
	// operations directly; they have no graph implementation.
	AtomAdd
	AtomNeg
	AtomMulScalar
	AtomMatMul
	AtomSum
	AtomTranspose
	AtomTrace
	AtomIndex
	AtomReshape
	AtomHStack
	AtomVStack
	AtomPromote

	// Nonlinear kinds: each owns a graph implementation in the registry.
	AtomAbs
	AtomPos
	AtomMaximum
	AtomMinimum
	AtomMaxEntries
	AtomMinEntries
	AtomSquare
	AtomSumSquares
	AtomQuadOverLin
	AtomNorm1
	AtomNorm2
	AtomNormInf
	AtomSqrt
	AtomExp
	AtomLog
	AtomEntr
	AtomLogSumExp
	AtomLambdaMax
	AtomLambdaMin
)

var atomNames = map[AtomKind]string{
	AtomAdd:         "add",
	AtomNeg:         "neg",
	AtomMulScalar:   "mul",
	AtomMatMul:      "matmul",
	AtomSum:         "sum",
	AtomTranspose:   "transpose",
	AtomTrace:       "trace",
	AtomIndex:       "index",
	AtomReshape:     "reshape",
	AtomHStack:      "hstack",
	AtomVStack:      "vstack",
	AtomPromote:     "promote",
	AtomAbs:         "abs",
	AtomPos:         "pos",
	AtomMaximum:     "maximum",
	AtomMinimum:     "minimum",
	AtomMaxEntries:  "max",
	AtomMinEntries:  "min",
	AtomSquare:      "square",
	AtomSumSquares:  "sum_squares",
	AtomQuadOverLin: "quad_over_lin",
	AtomNorm1:       "norm1",
	AtomNorm2:       "norm2",
	AtomNormInf:     "norm_inf",
	AtomSqrt:        "sqrt",
	AtomExp:         "exp",
	AtomLog:         "log",
	AtomEntr:        "entr",
	AtomLogSumExp:   "log_sum_exp",
	AtomLambdaMax:   "lambda_max",
	AtomLambdaMin:   "lambda_min",
}

func (k AtomKind) String() string {
	if name, ok := atomNames[k]; ok {
		return name
	}
	return fmt.Sprintf("atom(%d)", int(k))
}

// nextID assigns node identities. Monotonic so that memo tables keyed by ID
// are valid for any mix of graphs, and so that reduction output ordering is
// reproducible within a process.
var nextID atomic.Int64

// Node is one vertex of the expression DAG.
//
// Structural fields (Kind, Atom, Shape, Args, Name, DeclaredSign) are fixed
// at construction and never written again. Value is the one exception: it
// holds literal data for constants, the supplied value for parameters, and
// the primal solution for variables after a successful solve. The engine
// reads Value during reduction (constants, parameters) and the front end
// writes it after solving (variables); canonicalization itself never writes
// it.
type Node struct {
	id    int64
	Kind  Kind
	Atom  AtomKind
	Shape Shape
	Args  []*Node

	// Name labels variables and parameters for diagnostics and solver
	// column naming. Empty for constants and atoms.
	Name string

	// DeclaredSign is the user-declared sign attribute of a variable or
	// parameter leaf (nonneg/nonpos). SignUnknown when undeclared.
	DeclaredSign Sign

	// Attr carries static integer attributes for structural atoms: index
	// stores half-open slice bounds [r0, r1, c0, c1]; reshape and promote
	// store the target [rows, cols]. Set at construction by the atom
	// registry, nil for every other kind.
	Attr []int

	// Value is column-major, len Shape.Size(). See type comment for the
	// per-kind ownership rules.
	Value []float64
}

// ID returns the node's stable identity.
func (n *Node) ID() int64 { return n.id }

// NewVariable creates a variable leaf. Name may be empty; an anonymous
// label derived from the identity is used for diagnostics.
func NewVariable(shape Shape, name string, sign Sign) *Node {
	n := &Node{
		id:           nextID.Add(1),
		Kind:         KindVariable,
		Shape:        shape,
		Name:         name,
		DeclaredSign: sign,
	}
	if n.Name == "" {
		n.Name = fmt.Sprintf("var%d", n.id)
	}
	return n
}

// NewParameter creates a parameter leaf. Its value must be set with
// SetValue before reduction.
func NewParameter(shape Shape, name string, sign Sign) *Node {
	n := &Node{
		id:           nextID.Add(1),
		Kind:         KindParameter,
		Shape:        shape,
		Name:         name,
		DeclaredSign: sign,
	}
	if n.Name == "" {
		n.Name = fmt.Sprintf("param%d", n.id)
	}
	return n
}

// NewConstant creates a constant leaf from column-major data. The data
// slice is owned by the node after the call.
func NewConstant(shape Shape, data []float64) (*Node, error) {
	if len(data) != shape.Size() {
		return nil, fmt.Errorf("constant data has %d entries, shape %s needs %d", len(data), shape, shape.Size())
	}
	return &Node{
		id:    nextID.Add(1),
		Kind:  KindConstant,
		Shape: shape,
		Value: data,
	}, nil
}

// NewScalarConst creates a 1×1 constant leaf.
func NewScalarConst(v float64) *Node {
	n, _ := NewConstant(Scalar(), []float64{v})
	return n
}

// NewAtom creates an atom node with a shape already validated by the atom
// registry. Callers outside the registry should not construct atom nodes
// directly.
func NewAtom(kind AtomKind, shape Shape, args []*Node) *Node {
	return &Node{
		id:    nextID.Add(1),
		Kind:  KindAtom,
		Atom:  kind,
		Shape: shape,
		Args:  args,
	}
}

// SetValue installs a value on a parameter or variable leaf.
// Constants are immutable and atoms carry no value.
func (n *Node) SetValue(data []float64) error {
	if n.Kind != KindParameter && n.Kind != KindVariable {
		return fmt.Errorf("cannot set value on %s node %s", n.Kind, n.Label())
	}
	if len(data) != n.Shape.Size() {
		return fmt.Errorf("value has %d entries, %s %q has shape %s", len(data), n.Kind, n.Name, n.Shape)
	}
	n.Value = data
	return nil
}

// ConstSign computes the sign of a constant or valued leaf from its data.
// Falls back to the declared sign when no value is present.
func (n *Node) ConstSign() Sign {
	if n.Value == nil {
		return n.DeclaredSign
	}
	sign := SignZero
	for _, v := range n.Value {
		switch {
		case v > 0:
			sign = AddSign(sign, SignNonneg)
		case v < 0:
			sign = AddSign(sign, SignNonpos)
		}
		if sign == SignUnknown {
			return SignUnknown
		}
	}
	return sign
}

// Label renders a short human-readable description used in diagnostics:
// variables and parameters by name, constants by shape, atoms by name with
// operand labels.
func (n *Node) Label() string {
	switch n.Kind {
	case KindVariable, KindParameter:
		return n.Name
	case KindConstant:
		if n.Shape.IsScalar() {
			return fmt.Sprintf("%g", n.Value[0])
		}
		return fmt.Sprintf("const[%s]", n.Shape)
	case KindAtom:
		if len(n.Args) == 0 {
			return n.Atom.String() + "()"
		}
		label := n.Atom.String() + "("
		for i, arg := range n.Args {
			if i > 0 {
				label += ", "
			}
			label += arg.Label()
		}
		return label + ")"
	default:
		return fmt.Sprintf("node%d", n.id)
	}
}

// Leaves appends every distinct variable and parameter leaf reachable from
// n to dst, in first-visit post-order, using seen to dedupe shared
// sub-expressions. Callers pass the same seen map across multiple roots to
// collect a problem-wide leaf set.
func (n *Node) Leaves(dst []*Node, seen map[int64]bool) []*Node {
	if seen[n.id] {
		return dst
	}
	seen[n.id] = true
	for _, arg := range n.Args {
		dst = arg.Leaves(dst, seen)
	}
	if n.Kind == KindVariable || n.Kind == KindParameter {
		dst = append(dst, n)
	}
	return dst
}
