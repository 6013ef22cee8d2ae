// Package prob holds the verified-problem intermediate form shared by the
// verifier, the reducer, and dual recovery: an objective sense, an
// objective expression, and normalized constraints with stable identities.
package prob

import (
	"fmt"
	"sync/atomic"

	"github.com/conicdev/conic/cone"
	"github.com/conicdev/conic/internal/expr"
)

// ConKind tags the normalized constraint variants.
type ConKind int8

const (
	// ConEq is body == 0, elementwise.
	ConEq ConKind = iota + 1
	// ConIneq is body <= 0, elementwise.
	ConIneq
	// ConSOC is ‖x‖₂ <= t for operands [t, x].
	ConSOC
	// ConPSD is X ⪰ 0 for operand [X], symmetrized during reduction.
	ConPSD
	// ConExp is the elementwise exponential-cone membership of operands
	// [u, v, w]: v·exp(u/v) <= w on the cone's closure.
	ConExp
)

func (k ConKind) String() string {
	switch k {
	case ConEq:
		return "eq"
	case ConIneq:
		return "ineq"
	case ConSOC:
		return "soc"
	case ConPSD:
		return "psd"
	case ConExp:
		return "exp"
	default:
		return fmt.Sprintf("conkind(%d)", int(k))
	}
}

// nextConstraintID assigns constraint identities. Zero is reserved for
// rewrite-introduced rows.
var nextConstraintID atomic.Int64

// Constraint is one normalized user constraint. Eq and Ineq carry a single
// body expression; the cone memberships carry their operands.
type Constraint struct {
	ID   cone.ConstraintID
	Name string
	Kind ConKind

	// Body is the normalized expression of eq (== 0) and ineq (<= 0)
	// constraints; nil for cone memberships.
	Body *expr.Node

	// Args are the cone membership operands: [t, x] for soc, [X] for psd,
	// [u, v, w] for exp. Nil for eq and ineq.
	Args []*expr.Node
}

// NewEq builds body == 0.
func NewEq(body *expr.Node, name string) *Constraint {
	return &Constraint{
		ID:   cone.ConstraintID(nextConstraintID.Add(1)),
		Name: name,
		Kind: ConEq,
		Body: body,
	}
}

// NewIneq builds body <= 0.
func NewIneq(body *expr.Node, name string) *Constraint {
	return &Constraint{
		ID:   cone.ConstraintID(nextConstraintID.Add(1)),
		Name: name,
		Kind: ConIneq,
		Body: body,
	}
}

// NewSOC builds ‖x‖₂ <= t. t must be scalar and x a column vector.
func NewSOC(t, x *expr.Node, name string) (*Constraint, error) {
	if !t.Shape.IsScalar() {
		return nil, fmt.Errorf("soc bound is %s, need a scalar", t.Shape)
	}
	if x.Shape.Cols != 1 {
		return nil, fmt.Errorf("soc operand is %s, need a column vector", x.Shape)
	}
	return &Constraint{
		ID:   cone.ConstraintID(nextConstraintID.Add(1)),
		Name: name,
		Kind: ConSOC,
		Args: []*expr.Node{t, x},
	}, nil
}

// NewPSD builds X ⪰ 0 for a square X.
func NewPSD(x *expr.Node, name string) (*Constraint, error) {
	if !x.Shape.IsSquare() {
		return nil, fmt.Errorf("psd operand is %s, need a square matrix", x.Shape)
	}
	return &Constraint{
		ID:   cone.ConstraintID(nextConstraintID.Add(1)),
		Name: name,
		Kind: ConPSD,
		Args: []*expr.Node{x},
	}, nil
}

// NewExp builds the elementwise exponential-cone membership of (u, v, w).
// The operands must share one shape, scalars promoted.
func NewExp(u, v, w *expr.Node, name string) (*Constraint, error) {
	shape := u.Shape
	for _, n := range []*expr.Node{v, w} {
		p, ok := expr.Promoted(shape, n.Shape)
		if !ok {
			return nil, fmt.Errorf("exp cone operands have incompatible shapes %s and %s", shape, n.Shape)
		}
		shape = p
	}
	return &Constraint{
		ID:   cone.ConstraintID(nextConstraintID.Add(1)),
		Name: name,
		Kind: ConExp,
		Args: []*expr.Node{u, v, w},
	}, nil
}

// Label renders the constraint for diagnostics: its name when set,
// otherwise a kind-and-id tag.
func (c *Constraint) Label() string {
	if c.Name != "" {
		return c.Name
	}
	return fmt.Sprintf("%s#%d", c.Kind, c.ID)
}

// Roots returns the expression roots of the constraint.
func (c *Constraint) Roots() []*expr.Node {
	if c.Body != nil {
		return []*expr.Node{c.Body}
	}
	return c.Args
}

// Problem is a verified or to-be-verified optimization problem.
type Problem struct {
	Maximize    bool
	Objective   *expr.Node
	Constraints []*Constraint
}

// Variables returns the distinct variable leaves of the problem in
// first-use order: objective first, then constraints in declaration
// order. Reduction assigns solver columns in exactly this order.
func (p *Problem) Variables() []*expr.Node {
	return p.leaves(expr.KindVariable)
}

// Parameters returns the distinct parameter leaves in first-use order.
func (p *Problem) Parameters() []*expr.Node {
	return p.leaves(expr.KindParameter)
}

func (p *Problem) leaves(kind expr.Kind) []*expr.Node {
	seen := make(map[int64]bool)
	var all []*expr.Node
	if p.Objective != nil {
		all = p.Objective.Leaves(all, seen)
	}
	for _, c := range p.Constraints {
		for _, root := range c.Roots() {
			all = root.Leaves(all, seen)
		}
	}
	out := all[:0]
	for _, n := range all {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}
