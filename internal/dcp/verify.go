package dcp

import (
	"fmt"
	"strings"

	"github.com/conicdev/conic/internal/expr"
	"github.com/conicdev/conic/internal/prob"
)

// Verify checks the whole problem against the discipline and returns the
// analysis certificate plus every violation found. A nil violation slice
// means the problem is canonicalizable; the certificate is valid either
// way and callers may inspect curvatures of a rejected problem.
func Verify(p *prob.Problem) (*Analysis, []Violation) {
	a := NewAnalysis()
	var errs []Violation

	if p.Objective == nil {
		errs = append(errs, Violation{
			Code:    ErrNoObjective,
			Where:   "objective",
			Message: "problem has no objective",
		})
	} else {
		errs = append(errs, a.verifyObjective(p)...)
	}

	for i, c := range p.Constraints {
		errs = append(errs, a.verifyConstraint(i, c)...)
	}
	return a, errs
}

func (a *Analysis) verifyObjective(p *prob.Problem) []Violation {
	var errs []Violation
	obj := p.Objective

	if !obj.Shape.IsScalar() {
		errs = append(errs, Violation{
			Code:    ErrObjectiveNotScalar,
			Where:   "objective",
			Expr:    obj.Label(),
			Message: fmt.Sprintf("objective has shape %s, need a scalar", obj.Shape),
		})
	}

	curv := a.analyzed(obj, "objective", &errs)
	if p.Maximize {
		if !curv.IsConcave() {
			errs = append(errs, Violation{
				Code:    ErrObjectiveNotConcave,
				Where:   "objective",
				Expr:    obj.Label(),
				Message: a.describe(obj, curv, "maximization needs a concave objective"),
			})
		}
	} else if !curv.IsConvex() {
		errs = append(errs, Violation{
			Code:    ErrObjectiveNotConvex,
			Where:   "objective",
			Expr:    obj.Label(),
			Message: a.describe(obj, curv, "minimization needs a convex objective"),
		})
	}
	return errs
}

func (a *Analysis) verifyConstraint(i int, c *prob.Constraint) []Violation {
	where := fmt.Sprintf("constraints[%d]", i)
	var errs []Violation

	switch c.Kind {
	case prob.ConEq:
		curv := a.analyzed(c.Body, where, &errs)
		// D110: both sides affine, which after normalization means the
		// body is affine.
		if !curv.IsAffine() {
			errs = append(errs, Violation{
				Code:    ErrEqNotAffine,
				Where:   where,
				Expr:    c.Body.Label(),
				Message: a.describe(c.Body, curv, fmt.Sprintf("equality %q needs affine sides", c.Label())),
			})
		}
	case prob.ConIneq:
		curv := a.analyzed(c.Body, where, &errs)
		// D111: lhs convex and rhs concave, which after normalization
		// means the body is convex.
		if !curv.IsConvex() {
			errs = append(errs, Violation{
				Code:    ErrIneqNotConvex,
				Where:   where,
				Expr:    c.Body.Label(),
				Message: a.describe(c.Body, curv, fmt.Sprintf("inequality %q needs a convex body", c.Label())),
			})
		}
	default:
		// D112: cone memberships take affine operands only.
		for j, arg := range c.Args {
			curv := a.analyzed(arg, where, &errs)
			if !curv.IsAffine() {
				errs = append(errs, Violation{
					Code:    ErrConeArgNotAffine,
					Where:   fmt.Sprintf("%s.args[%d]", where, j),
					Expr:    arg.Label(),
					Message: a.describe(arg, curv, fmt.Sprintf("%s membership %q needs affine operands", c.Kind, c.Label())),
				})
			}
		}
	}
	return errs
}

// analyzed runs analysis on one root and stamps the location onto any
// composition violations it surfaced.
func (a *Analysis) analyzed(n *expr.Node, where string, errs *[]Violation) expr.Curvature {
	before := len(a.violations)
	curv := a.Curvature(n)
	for _, v := range a.violations[before:] {
		v.Where = where
		*errs = append(*errs, v)
	}
	a.violations = a.violations[:before]
	return curv
}

// describe renders a violation message, naming the deepest subexpressions
// where certification broke when the root curvature is unknown.
func (a *Analysis) describe(n *expr.Node, curv expr.Curvature, need string) string {
	msg := fmt.Sprintf("expression is %s; %s", curv, need)
	if curv != expr.Unknown {
		return msg
	}
	roots := a.unknownRoots(n, nil, make(map[int64]bool))
	if len(roots) == 0 {
		return msg
	}
	labels := make([]string, 0, 3)
	for _, r := range roots {
		if len(labels) == 3 {
			labels = append(labels, "...")
			break
		}
		labels = append(labels, r.Label())
	}
	return fmt.Sprintf("%s; certification fails at %s", msg, strings.Join(labels, ", "))
}
