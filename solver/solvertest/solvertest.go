// Package solvertest provides a scripted driver for exercising the solve
// pipeline without a numeric solver. Tests preload outputs, point a solve
// at the driver, and assert on the recorded invocations afterwards.
package solvertest

import (
	"context"
	"sync"

	"github.com/conicdev/conic/solver"
)

// Call is one recorded Solve invocation.
type Call struct {
	Input *solver.Input
	Opts  solver.Options
}

// Driver replays scripted outputs in order and records every call. The
// zero value is not usable; construct with New and register under a name
// unique to the test.
type Driver struct {
	name string

	mu      sync.Mutex
	scripts []*solver.Output
	err     error
	calls   []Call
}

func New(name string) *Driver {
	return &Driver{name: name}
}

func (d *Driver) Name() string { return d.name }

// Script appends an output to replay. Returns d for chaining.
func (d *Driver) Script(out *solver.Output) *Driver {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.scripts = append(d.scripts, out)
	return d
}

// Fail makes every subsequent Solve return err instead of an output.
func (d *Driver) Fail(err error) *Driver {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.err = err
	return d
}

// Solve records the invocation and pops the next scripted output. Running
// out of scripts is a driver failure, not a panic, so a test that
// over-solves fails with a readable error.
func (d *Driver) Solve(ctx context.Context, in *solver.Input, opts solver.Options) (*solver.Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, Call{Input: in, Opts: opts})
	if d.err != nil {
		return nil, d.err
	}
	if len(d.scripts) == 0 {
		return nil, &solver.FailureError{Solver: d.name, Message: "no scripted output left"}
	}
	out := d.scripts[0]
	d.scripts = d.scripts[1:]
	return out, nil
}

// Calls returns the recorded invocations.
func (d *Driver) Calls() []Call {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Call, len(d.calls))
	copy(out, d.calls)
	return out
}
