package cone

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprintStable(t *testing.T) {
	a := Fingerprint(smallProgram(t))
	b := Fingerprint(smallProgram(t))
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestFingerprintSensitive(t *testing.T) {
	base := Fingerprint(smallProgram(t))

	tests := []struct {
		name   string
		mutate func(*Program)
	}{
		{"objective value", func(p *Program) { p.C[0] = 2 }},
		{"objective sense", func(p *Program) { p.Maximize = true }},
		{"rhs", func(p *Program) { p.B[0] = 5 }},
		{"matrix entry", func(p *Program) { p.G.Val[0] = 9 }},
		{"column name", func(p *Program) { p.Cols[0].Name = "z" }},
		{"aux attribution", func(p *Program) { p.Layout[1].Constraint = AuxConstraint }},
		{"cone kind", func(p *Program) {
			p.Dims = Dims{Zero: 1, SOC: []int{1}}
			p.Layout[1].Kind = SOC
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := smallProgram(t)
			tt.mutate(p)
			assert.NotEqual(t, base, Fingerprint(p))
		})
	}
}

func TestFingerprintNormalizesConstraintIDs(t *testing.T) {
	// The same structure under renumbered constraint identities hashes
	// identically: identities are counters, not content.
	p1 := smallProgram(t)
	p2 := smallProgram(t)
	p2.Layout[0].Constraint = 41
	p2.Layout[1].Constraint = 42
	assert.Equal(t, Fingerprint(p1), Fingerprint(p2))
}

func TestFingerprintNormalizesAutoNamedVariables(t *testing.T) {
	// Unnamed variables carry counter-derived default names ("var" +
	// node ID); two builds of the same structure must hash identically
	// whatever the counters happened to be.
	p1 := smallProgram(t)
	p1.Cols[0].Name = "var11"
	p1.Cols[1].Name = "var12"
	p2 := smallProgram(t)
	p2.Cols[0].Var = 71
	p2.Cols[0].Name = "var71"
	p2.Cols[1].Var = 72
	p2.Cols[1].Name = "var72"
	assert.Equal(t, Fingerprint(p1), Fingerprint(p2))

	// Explicit user names still count as content.
	p3 := smallProgram(t)
	p3.Cols[0].Name = "weights"
	assert.NotEqual(t, Fingerprint(p1), Fingerprint(p3))
}

func TestFingerprintNormalizesNames(t *testing.T) {
	// é as a single code point vs e + combining acute must hash the same.
	p1 := smallProgram(t)
	p1.Cols[0].Name = "café"
	p2 := smallProgram(t)
	p2.Cols[0].Name = "café"
	assert.Equal(t, Fingerprint(p1), Fingerprint(p2))
}

func TestFingerprintNegativeZero(t *testing.T) {
	p1 := smallProgram(t)
	p1.H[0] = 0.0
	p2 := smallProgram(t)
	p2.H[0] = negZero()
	assert.Equal(t, Fingerprint(p1), Fingerprint(p2))
}

func negZero() float64 {
	z := 0.0
	return -z
}

func TestFingerprintNilMatrices(t *testing.T) {
	// Unvalidated programs may carry nil matrices; hashing must not panic.
	p := &Program{C: []float64{}, Cols: nil}
	require.NotPanics(t, func() { Fingerprint(p) })
}
