package dcp

import "fmt"

// Discipline violation codes (D100-D199)
const (
	// Objective errors (D100-D109)
	ErrNoObjective         = "D100" // problem has no objective
	ErrObjectiveNotScalar  = "D101" // objective must be scalar
	ErrObjectiveNotConvex  = "D102" // minimization needs a convex objective
	ErrObjectiveNotConcave = "D103" // maximization needs a concave objective

	// Constraint errors (D110-D119)
	ErrEqNotAffine      = "D110" // equality bodies must be affine
	ErrIneqNotConvex    = "D111" // inequality bodies must be convex
	ErrConeArgNotAffine = "D112" // cone membership operands must be affine

	// Composition errors (D120-D129)
	ErrNonConstantProduct = "D120" // product needs a constant side
)

// Violation is one discipline failure. Verification collects every
// violation rather than stopping at the first.
type Violation struct {
	Code    string `json:"code"`
	Where   string `json:"where"`
	Expr    string `json:"expr,omitempty"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (v Violation) Error() string {
	if v.Expr != "" {
		return fmt.Sprintf("[%s] %s: %s: %s", v.Code, v.Where, v.Expr, v.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", v.Code, v.Where, v.Message)
}
