package conic

import (
	"github.com/conicdev/conic/internal/prob"
)

// conCell is shared between the Constraint handle the caller keeps and
// the Problem that solves it, so duals written after a solve are visible
// through handles created before it.
type conCell struct {
	pc   *prob.Constraint
	dual []float64
}

// Constraint relates expressions under one of the supported cones. The
// zero value is unusable; build constraints with Eq, Le, Ge, InSOC,
// IsPSD, or InExpCone.
type Constraint struct {
	cell *conCell
}

func newConstraint(pc *prob.Constraint) Constraint {
	return Constraint{cell: &conCell{pc: pc}}
}

func (c Constraint) pc() *prob.Constraint {
	if c.cell == nil {
		panic("conic: zero Constraint; use the constructors")
	}
	return c.cell.pc
}

// Eq constrains lhs == rhs elementwise.
func Eq(lhs, rhs Expr) Constraint {
	return newConstraint(prob.NewEq(Sub(lhs, rhs).n(), ""))
}

// Le constrains lhs <= rhs elementwise.
func Le(lhs, rhs Expr) Constraint {
	return newConstraint(prob.NewIneq(Sub(lhs, rhs).n(), ""))
}

// Ge constrains lhs >= rhs elementwise.
func Ge(lhs, rhs Expr) Constraint {
	return newConstraint(prob.NewIneq(Sub(rhs, lhs).n(), ""))
}

// InSOC constrains ‖x‖₂ <= t for a scalar t and a column vector x.
func InSOC(t, x Expr) Constraint {
	pc, err := prob.NewSOC(t.n(), x.n(), "")
	if err != nil {
		panic("conic: " + err.Error())
	}
	return newConstraint(pc)
}

// IsPSD constrains a square matrix to the positive semidefinite cone.
func IsPSD(x Expr) Constraint {
	pc, err := prob.NewPSD(x.n(), "")
	if err != nil {
		panic("conic: " + err.Error())
	}
	return newConstraint(pc)
}

// InExpCone constrains (u, v, w) elementwise to the exponential cone
// closure: v·exp(u/v) <= w with v > 0.
func InExpCone(u, v, w Expr) Constraint {
	pc, err := prob.NewExp(u.n(), v.n(), w.n(), "")
	if err != nil {
		panic("conic: " + err.Error())
	}
	return newConstraint(pc)
}

// Named attaches a diagnostic name and returns the constraint for
// chaining.
func (c Constraint) Named(name string) Constraint {
	c.pc().Name = name
	return c
}

// Label is the constraint's name, or a kind-and-id tag when unnamed.
func (c Constraint) Label() string { return c.pc().Label() }

// Dual reports the dual values recovered by the last successful Solve of
// a problem holding this constraint. ok is false before any solve and
// when the driver returned no duals. Values correspond to the problem as
// minimized.
func (c Constraint) Dual() (values []float64, ok bool) {
	c.pc()
	if c.cell.dual == nil {
		return nil, false
	}
	out := make([]float64, len(c.cell.dual))
	copy(out, c.cell.dual)
	return out, true
}
