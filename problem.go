package conic

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/conicdev/conic/cone"
	"github.com/conicdev/conic/internal/backend"
	"github.com/conicdev/conic/internal/dcp"
	"github.com/conicdev/conic/internal/duals"
	"github.com/conicdev/conic/internal/expr"
	"github.com/conicdev/conic/internal/prob"
	"github.com/conicdev/conic/internal/reduce"
	"github.com/conicdev/conic/solver"
)

// Problem pairs a scalar objective with a set of constraints. Build one
// with Minimize or Maximize. The problem itself is fixed after
// construction; Solve writes variable values and constraint duals back
// through the handles, nothing else mutates.
type Problem struct {
	p    *prob.Problem
	cons []Constraint

	// status is the outcome of the most recent Solve.
	status solver.Status
}

// Minimize states the problem of minimizing obj subject to cs.
func Minimize(obj Expr, cs ...Constraint) *Problem { return newProblem(false, obj, cs) }

// Maximize states the problem of maximizing obj subject to cs.
func Maximize(obj Expr, cs ...Constraint) *Problem { return newProblem(true, obj, cs) }

func newProblem(maximize bool, obj Expr, cs []Constraint) *Problem {
	pcs := make([]*prob.Constraint, len(cs))
	for i, c := range cs {
		pcs[i] = c.pc()
	}
	return &Problem{
		p:    &prob.Problem{Maximize: maximize, Objective: obj.n(), Constraints: pcs},
		cons: append([]Constraint(nil), cs...),
	}
}

// Verify checks the problem against the composition discipline. It
// returns nil when the problem is well formed, and a *DCPError listing
// every violation otherwise.
func (p *Problem) Verify() error {
	_, vs := dcp.Verify(p.p)
	if len(vs) > 0 {
		return &DCPError{Violations: vs}
	}
	return nil
}

// Compile verifies the problem and lowers it to a cone program in
// standard form. Every call reduces from scratch; for a fixed problem
// and parameter values the output is deterministic.
func (p *Problem) Compile() (*cone.Program, error) {
	if err := p.Verify(); err != nil {
		return nil, err
	}
	return reduce.Reduce(p.p)
}

// DataFor compiles the problem and emits it in the input layout of the
// named backend, without invoking any driver.
func (p *Problem) DataFor(solverName string) (*solver.Input, error) {
	prog, err := p.Compile()
	if err != nil {
		return nil, err
	}
	a, ok := backend.For(solverName)
	if !ok {
		return nil, fmt.Errorf("conic: unknown solver %q (known: %s)", solverName, strings.Join(adapterNames(), ", "))
	}
	return a.Emit(prog)
}

// SolveOptions configures a Solve call. The zero value picks the least
// general backend that can express the problem among the registered
// drivers.
type SolveOptions struct {
	// Solver forces one backend by name. When set, selection is skipped
	// and the solve fails if that backend cannot express the problem.
	Solver string
	// Prefer reorders automatic selection; entries must name known
	// backends. Ignored when Solver is set.
	Prefer []string
	// Options is handed to the driver unchanged.
	solver.Options
}

// Result reports one Solve outcome.
type Result struct {
	// Status is the driver's disposition of the problem.
	Status solver.Status
	// Value is the optimal objective in the problem's own sense, NaN
	// unless Status is optimal.
	Value float64
	// Solver names the backend that produced the result.
	Solver string
	// Fingerprint identifies the compiled cone program.
	Fingerprint string
	// Iterations and Message relay driver diagnostics.
	Iterations int
	Message    string
}

// Solve compiles the problem, picks a backend, runs its driver, and maps
// the answer back. On an optimal status the solution is installed on the
// problem's variables, so Expr.Value works afterwards, and recovered
// duals become available through Constraint.Dual. Both are overwritten
// by later solves that share the variables.
//
// Driver packages register themselves when imported:
//
//	import _ "github.com/conicdev/conic/solver/simplex"
func (p *Problem) Solve(ctx context.Context, opts *SolveOptions) (*Result, error) {
	if opts == nil {
		opts = &SolveOptions{}
	}
	prog, err := p.Compile()
	if err != nil {
		return nil, err
	}

	var adapter *backend.Adapter
	if opts.Solver != "" {
		a, ok := backend.For(opts.Solver)
		if !ok {
			return nil, fmt.Errorf("conic: unknown solver %q (known: %s)", opts.Solver, strings.Join(adapterNames(), ", "))
		}
		adapter = a
	} else {
		if len(solver.Drivers()) == 0 {
			return nil, fmt.Errorf("conic: no solver drivers registered (import a driver package such as github.com/conicdev/conic/solver/simplex)")
		}
		a, err := backend.Select(prog.Dims, backend.Policy(opts.Prefer), func(a *backend.Adapter) bool {
			_, ok := solver.Lookup(a.Name)
			return ok
		})
		if err != nil {
			return nil, err
		}
		adapter = a
	}

	// Emit before touching the driver, so capability failures never
	// reach a solver.
	in, err := adapter.Emit(prog)
	if err != nil {
		return nil, err
	}
	drv, ok := solver.Lookup(adapter.Name)
	if !ok {
		return nil, fmt.Errorf("conic: solver driver %q is not registered (forgotten import?)", adapter.Name)
	}
	out, err := drv.Solve(ctx, in, opts.Options)
	if err != nil {
		return nil, err
	}

	p.status = out.Status
	res := &Result{
		Status:      out.Status,
		Value:       math.NaN(),
		Solver:      adapter.Name,
		Fingerprint: cone.Fingerprint(prog),
		Iterations:  out.Iterations,
		Message:     out.Message,
	}
	if out.Status != solver.StatusOptimal {
		return res, nil
	}

	res.Value = out.Objective
	if prog.Maximize {
		res.Value = -out.Objective
	}
	if err := installPrimal(p.p, prog, out.Primal); err != nil {
		return nil, err
	}
	dualEq, dualCone := adapter.Duals(prog, out)
	rec, err := duals.Recover(prog, dualEq, dualCone)
	if err != nil {
		return nil, err
	}
	for _, c := range p.cons {
		if v, ok := rec[c.cell.pc.ID]; ok {
			c.cell.dual = v
		}
	}
	return res, nil
}

// Status reports the outcome of the most recent Solve, empty before the
// first call.
func (p *Problem) Status() solver.Status { return p.status }

// installPrimal writes the solution onto the problem's variable leaves,
// skipping rewrite-introduced columns.
func installPrimal(pp *prob.Problem, prog *cone.Program, primal []float64) error {
	if len(primal) != prog.NumCols {
		return fmt.Errorf("conic: driver returned %d primal values, program has %d columns", len(primal), prog.NumCols)
	}
	byID := make(map[int64]*expr.Node)
	for _, v := range pp.Variables() {
		byID[v.ID()] = v
	}
	for _, col := range prog.Cols {
		if col.Aux {
			continue
		}
		n := byID[col.Var]
		if n == nil {
			continue
		}
		vals := make([]float64, col.Size)
		copy(vals, primal[col.Offset:col.Offset+col.Size])
		if err := n.SetValue(vals); err != nil {
			return fmt.Errorf("conic: %v", err)
		}
	}
	return nil
}

func adapterNames() []string {
	as := backend.Adapters()
	names := make([]string, len(as))
	for i, a := range as {
		names[i] = a.Name
	}
	return names
}
