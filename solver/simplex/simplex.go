// Package simplex is an in-process linear-programming driver backed by
// gonum's lp.Simplex. Importing it registers the driver under the name
// "simplex", so a blank import is enough to make LPs solvable.
package simplex

import (
	"context"
	"errors"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/conicdev/conic/solver"
)

func init() {
	solver.Register("simplex", Driver{})
}

// Driver solves pure LPs through gonum. The simplex there reports the
// primal solution only, so outputs carry no dual vectors. Options.FeasTol
// maps to the simplex tolerance; MaxIters and Verbose have no gonum
// counterpart and are ignored.
type Driver struct{}

func (Driver) Name() string { return "simplex" }

func (Driver) Solve(ctx context.Context, in *solver.Input, opts solver.Options) (*solver.Output, error) {
	if len(in.Dims.SOC) > 0 || len(in.Dims.PSD) > 0 || in.Dims.Exp > 0 {
		return nil, &solver.FailureError{Solver: "simplex", Message: "input has nonlinear cones"}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	nVar := len(in.C)
	if nVar == 0 {
		return &solver.Output{Status: solver.StatusOptimal, Objective: in.Offset}, nil
	}

	// Slack form h - Gx >= 0 is exactly the general form Gx <= h that
	// lp.Convert wants. Zero-row blocks must be passed as nil.
	var g, a mat.Matrix
	if len(in.H) > 0 {
		g = in.G.Dense()
	}
	if len(in.B) > 0 {
		a = in.A.Dense()
	}
	cStd, aStd, bStd := lp.Convert(in.C, g, in.H, a, in.B)

	optF, xStd, err := lp.Simplex(cStd, aStd, bStd, opts.FeasTol, nil)
	switch {
	case err == nil:
	case errors.Is(err, lp.ErrInfeasible):
		return &solver.Output{Status: solver.StatusInfeasible, Message: err.Error()}, nil
	case errors.Is(err, lp.ErrUnbounded):
		return &solver.Output{Status: solver.StatusUnbounded, Message: err.Error()}, nil
	default:
		return nil, &solver.FailureError{Solver: "simplex", Message: err.Error()}
	}

	// Standard form splits x into positive and negative parts.
	x := make([]float64, nVar)
	for i := range x {
		x[i] = xStd[i] - xStd[nVar+i]
	}
	return &solver.Output{
		Status:    solver.StatusOptimal,
		Primal:    x,
		Objective: optF + in.Offset,
	}, nil
}
