package conic

import (
	"errors"
	"fmt"
	"strings"

	"github.com/conicdev/conic/internal/backend"
	"github.com/conicdev/conic/internal/dcp"
	"github.com/conicdev/conic/internal/reduce"
)

// Violation is one discipline failure found by Verify. Code is a stable
// D1xx identifier, Where names the objective or constraint, and Expr
// pins the offending subexpression when one exists.
type Violation = dcp.Violation

// DCPError reports every discipline violation in a problem. Verification
// collects all of them rather than stopping at the first.
type DCPError struct {
	Violations []Violation
}

func (e *DCPError) Error() string {
	if len(e.Violations) == 1 {
		return "conic: " + e.Violations[0].Error()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "conic: %d discipline violations:", len(e.Violations))
	for _, v := range e.Violations {
		b.WriteString("\n\t")
		b.WriteString(v.Error())
	}
	return b.String()
}

// IsDCPError reports whether err is a discipline failure.
func IsDCPError(err error) bool {
	var e *DCPError
	return errors.As(err, &e)
}

// IsUnsupportedConeError reports whether err means the requested backend,
// or every backend in the selection policy, cannot express the problem's
// cones.
func IsUnsupportedConeError(err error) bool { return backend.IsUnsupportedConeError(err) }

// IsUnvaluedParameterError reports whether err means compilation reached
// a parameter with no value set.
func IsUnvaluedParameterError(err error) bool { return reduce.IsUnvaluedParameterError(err) }

// IsInternalError reports whether err is a canonicalization defect rather
// than a user error. These are bugs; report them.
func IsInternalError(err error) bool { return reduce.IsInternalError(err) }
