package solver

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopDriver struct{ name string }

func (d nopDriver) Name() string { return d.name }

func (d nopDriver) Solve(ctx context.Context, in *Input, opts Options) (*Output, error) {
	return &Output{Status: StatusOptimal}, nil
}

func TestRegistry(t *testing.T) {
	Register("reg-a", nopDriver{name: "reg-a"})
	Register("reg-b", nopDriver{name: "reg-b"})

	d, ok := Lookup("reg-a")
	require.True(t, ok)
	assert.Equal(t, "reg-a", d.Name())

	_, ok = Lookup("missing")
	assert.False(t, ok)

	names := Drivers()
	assert.Contains(t, names, "reg-a")
	assert.Contains(t, names, "reg-b")
	assert.IsIncreasing(t, names)
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	Register("reg-dup", nopDriver{name: "reg-dup"})
	assert.PanicsWithValue(t, "solver: Register called twice for driver reg-dup", func() {
		Register("reg-dup", nopDriver{name: "reg-dup"})
	})
	assert.Panics(t, func() { Register("reg-nil", nil) })
}

func TestFailureError(t *testing.T) {
	err := fmt.Errorf("solve: %w", &FailureError{Solver: "ecos", Message: "max iterations"})
	assert.True(t, IsFailureError(err))
	assert.Contains(t, err.Error(), "solver ecos failed: max iterations")
	assert.False(t, IsFailureError(fmt.Errorf("plain")))
}
