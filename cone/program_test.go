package cone

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// smallProgram builds a consistent two-column program with one equality
// row and one nonneg row for mutation in validation tests.
func smallProgram(t *testing.T) *Program {
	t.Helper()
	a := NewTriplets(1, 2)
	a.Append(0, 0, 1)
	a.Append(0, 1, 1)
	A, err := a.Compress()
	require.NoError(t, err)

	g := NewTriplets(1, 2)
	g.Append(0, 0, -1)
	G, err := g.Compress()
	require.NoError(t, err)

	return &Program{
		C:       []float64{1, 0},
		NumCols: 2,
		Cols: []Col{
			{Var: 11, Name: "x", Offset: 0, Size: 1},
			{Var: 12, Name: "y", Offset: 1, Size: 1},
		},
		A:    A,
		B:    []float64{1},
		G:    G,
		H:    []float64{0},
		Dims: Dims{Zero: 1, Nonneg: 1},
		Layout: []RowRange{
			{Constraint: 1, Kind: Zero, Offset: 0, Len: 1},
			{Constraint: 2, Kind: Nonneg, Offset: 0, Len: 1},
		},
	}
}

func TestProgramValidate(t *testing.T) {
	require.NoError(t, smallProgram(t).Validate())
}

func TestProgramValidateCatchesShapeErrors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Program)
		errPart string
	}{
		{"objective width", func(p *Program) { p.C = []float64{1} }, "objective has 1 entries"},
		{"b length", func(p *Program) { p.B = nil }, "b has 0 entries"},
		{"h length", func(p *Program) { p.H = append(p.H, 0) }, "h has 2 entries"},
		{"dims mismatch", func(p *Program) { p.Dims.Nonneg = 2 }, "G is 1x2"},
		{"col gap", func(p *Program) { p.Cols[1].Offset = 2 }, "starts at 2"},
		{"col without var", func(p *Program) { p.Cols[0].Var = 0 }, "no variable"},
		{"layout short", func(p *Program) { p.Layout = p.Layout[:1] }, "covers 0 of 1 cone rows"},
		{"equality after cone", func(p *Program) {
			p.Layout[0], p.Layout[1] = p.Layout[1], p.Layout[0]
		}, "equality rows after cone rows"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := smallProgram(t)
			tt.mutate(p)
			err := p.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errPart)
		})
	}
}

func TestProgramValidatePSDRange(t *testing.T) {
	p := smallProgram(t)
	g := NewTriplets(4, 2)
	g.Append(0, 0, 1)
	G, err := g.Compress()
	require.NoError(t, err)
	p.G = G
	p.H = []float64{0, 0, 0, 0}
	p.Dims = Dims{Zero: 1, Nonneg: 1, PSD: []int{2}}
	p.Layout = []RowRange{
		{Constraint: 1, Kind: Zero, Offset: 0, Len: 1},
		{Constraint: 2, Kind: Nonneg, Offset: 0, Len: 1},
		{Constraint: 3, Kind: PSD, Offset: 1, Len: 3, Side: 2},
	}
	require.NoError(t, p.Validate())

	p.Layout[2].Side = 3
	err = p.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not pack")
}

func TestProgramLookups(t *testing.T) {
	p := smallProgram(t)

	c, ok := p.ColFor(12)
	require.True(t, ok)
	assert.Equal(t, "y", c.Name)
	assert.Equal(t, 1, c.Offset)

	_, ok = p.ColFor(99)
	assert.False(t, ok)

	rs := p.RangesFor(2)
	require.Len(t, rs, 1)
	assert.Equal(t, Nonneg, rs[0].Kind)

	assert.Empty(t, p.RangesFor(AuxConstraint))
}
