// Package backend maps reduced cone programs onto the data conventions of
// concrete solver families. Each adapter declares the cone kinds its
// family can express, rewrites the program into the family's layout, and
// maps returned dual vectors back to program row coordinates. Capability
// checks happen here, before any driver runs.
package backend

import (
	"fmt"

	"github.com/conicdev/conic/cone"
	"github.com/conicdev/conic/solver"
)

// Adapter is one solver family's data convention.
type Adapter struct {
	Name string
	Caps cone.Caps

	emit  func(*cone.Program) (*solver.Input, error)
	duals func(*cone.Program, *solver.Output) (eq, cone []float64)
}

// Emit rewrites the program into the adapter's input layout. Programs
// whose cone mix the adapter cannot express are rejected.
func (a *Adapter) Emit(p *cone.Program) (*solver.Input, error) {
	if !a.Caps.Supports(p.Dims) {
		return nil, &UnsupportedConeError{Adapter: a.Name, Dims: p.Dims, Capable: Capable(p.Dims)}
	}
	return a.emit(p)
}

// Duals maps a driver's dual vectors back to the program's row
// coordinates: one entry per A row and one per stacked G row.
func (a *Adapter) Duals(p *cone.Program, out *solver.Output) (dualEq, dualCone []float64) {
	if a.duals == nil {
		return out.DualEq, out.DualCone
	}
	return a.duals(p, out)
}

// table is ordered most specialized first; Select scans policies against
// it and Capable reports matches in this order.
var table = []*Adapter{
	{Name: "simplex", Caps: cone.Caps{}, emit: emitDirect},
	{Name: "ecos", Caps: cone.Caps{SOC: true, Exp: true}, emit: emitDirect},
	{Name: "conelp", Caps: cone.Caps{SOC: true, PSD: true}, emit: emitConelp, duals: dualsConelp},
	{Name: "scs", Caps: cone.Caps{SOC: true, PSD: true, Exp: true}, emit: emitSCS, duals: dualsSCS},
}

// Policy is an adapter preference order, most preferred first.
type Policy []string

// DefaultPolicy tries the least general adapter first, so linear programs
// reach LP solvers instead of general cone solvers.
var DefaultPolicy = Policy{"simplex", "ecos", "conelp", "scs"}

// For returns the adapter with the given name.
func For(name string) (*Adapter, bool) {
	for _, a := range table {
		if a.Name == name {
			return a, true
		}
	}
	return nil, false
}

// Adapters lists all adapters in specialization order.
func Adapters() []*Adapter {
	out := make([]*Adapter, len(table))
	copy(out, table)
	return out
}

// Capable names the adapters whose capabilities cover the dims.
func Capable(d cone.Dims) []string {
	var names []string
	for _, a := range table {
		if a.Caps.Supports(d) {
			names = append(names, a.Name)
		}
	}
	return names
}

// Select returns the first adapter in the policy that covers the dims and
// passes the accept filter. A nil policy means DefaultPolicy; a nil filter
// accepts every adapter. Solve paths pass a filter requiring a registered
// driver.
func Select(d cone.Dims, pol Policy, accept func(*Adapter) bool) (*Adapter, error) {
	if pol == nil {
		pol = DefaultPolicy
	}
	for _, name := range pol {
		a, ok := For(name)
		if !ok {
			return nil, fmt.Errorf("backend: unknown adapter %q in policy", name)
		}
		if !a.Caps.Supports(d) {
			continue
		}
		if accept != nil && !accept(a) {
			continue
		}
		return a, nil
	}
	return nil, &UnsupportedConeError{Dims: d, Capable: Capable(d)}
}
