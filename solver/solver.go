// Package solver defines the boundary between canonicalization and the
// numeric solvers: the positional data bundle handed to a driver, the
// driver interface, and a process-wide driver registry. Drivers register
// themselves by name, usually from an init function, and callers select
// them the way database/sql selects its drivers.
package solver

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/conicdev/conic/cone"
)

// Status is a driver's verdict on a solve. Anything the driver cannot
// classify is StatusError with a Message; engine bugs never surface here.
type Status string

const (
	StatusOptimal    Status = "optimal"
	StatusInfeasible Status = "infeasible"
	StatusUnbounded  Status = "unbounded"
	StatusError      Status = "solver-error"
)

// Input is the positional bundle a backend adapter emits for one driver
// family. It is always a minimization:
//
//	minimize    c'x + offset
//	subject to  A x = b
//	            G x + s = h,  s ∈ K
//
// K is described by Dims. Adapters that fold equalities into the cone
// block (the scs family) leave A and B nil and lead G with Dims.Zero rows.
type Input struct {
	C      []float64
	Offset float64
	A      *cone.CSC
	B      []float64
	G      *cone.CSC
	H      []float64
	Dims   cone.Dims
}

// Output is what a driver reports back. Duals are in the Input's row
// coordinates: DualEq per A row, DualCone per stacked G row. Drivers
// without dual support leave them nil.
type Output struct {
	Status     Status
	Primal     []float64
	DualEq     []float64
	DualCone   []float64
	Objective  float64
	Iterations int
	Message    string
}

// Options carries the solver knobs every driver understands plus an
// opaque bag forwarded unmodified to the driver.
type Options struct {
	Verbose  bool
	MaxIters int
	FeasTol  float64
	Extra    map[string]any
}

// Driver is one numeric solver. Solve classifies outcomes into Output's
// status; it returns an error only for failures outside the solve itself
// (bad bundle, cancelled context, crashed process).
type Driver interface {
	Name() string
	Solve(ctx context.Context, in *Input, opts Options) (*Output, error)
}

// FailureError reports a driver that gave up without a classification.
type FailureError struct {
	Solver  string
	Message string
}

func (e *FailureError) Error() string {
	return fmt.Sprintf("solver %s failed: %s", e.Solver, e.Message)
}

// IsFailureError reports whether err is a driver failure.
func IsFailureError(err error) bool {
	var fe *FailureError
	return errors.As(err, &fe)
}

var (
	driversMu sync.RWMutex
	drivers   = make(map[string]Driver)
)

// Register makes a driver available under the given name. It panics on a
// nil driver or a duplicate name.
func Register(name string, d Driver) {
	driversMu.Lock()
	defer driversMu.Unlock()
	if d == nil {
		panic("solver: Register driver is nil")
	}
	if _, dup := drivers[name]; dup {
		panic("solver: Register called twice for driver " + name)
	}
	drivers[name] = d
}

// Lookup returns the driver registered under name.
func Lookup(name string) (Driver, bool) {
	driversMu.RLock()
	defer driversMu.RUnlock()
	d, ok := drivers[name]
	return d, ok
}

// Drivers lists the registered driver names, sorted.
func Drivers() []string {
	driversMu.RLock()
	defer driversMu.RUnlock()
	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
