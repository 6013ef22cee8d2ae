// Package testutil holds test-only helpers shared across packages: a
// deterministic text rendering of reduced cone programs and its golden
// file comparison.
package testutil

import (
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/conicdev/conic/cone"
)

// AssertProgramGolden renders the program and compares it against
// testdata/golden/{name}.golden in the calling package. Regenerate with
//
//	go test ./... -update
func AssertProgramGolden(t *testing.T, name string, p *cone.Program) {
	t.Helper()
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, []byte(DumpProgram(p)))
}

// DumpProgram renders every determinism-relevant part of a reduced
// program as text: column spans, objective, both matrices in compressed
// column order, cone dims, and the row layout. Constraint identities are
// process-assigned counters, so the dump numbers user constraints by
// first appearance (c1, c2, ...) the way the fingerprint does; two equal
// reductions dump byte-identically across processes.
func DumpProgram(p *cone.Program) string {
	var b strings.Builder

	sense := "minimize"
	if p.Maximize {
		sense = "maximize"
	}
	fmt.Fprintf(&b, "sense %s\n", sense)
	fmt.Fprintf(&b, "cols %d\n", p.NumCols)
	for _, c := range p.Cols {
		fmt.Fprintf(&b, "col %s [%d:%d)", c.Name, c.Offset, c.Offset+c.Size)
		if c.Aux {
			b.WriteString(" aux")
		}
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "c %s\n", vec(p.C))
	fmt.Fprintf(&b, "offset %s\n", num(p.Offset))

	dumpCSC(&b, "A", p.A)
	fmt.Fprintf(&b, "b %s\n", vec(p.B))
	dumpCSC(&b, "G", p.G)
	fmt.Fprintf(&b, "h %s\n", vec(p.H))
	fmt.Fprintf(&b, "dims %s\n", p.Dims)

	ord := make(map[cone.ConstraintID]int)
	b.WriteString("layout\n")
	for _, r := range p.Layout {
		label := "aux"
		if r.Constraint != cone.AuxConstraint {
			n, ok := ord[r.Constraint]
			if !ok {
				n = len(ord) + 1
				ord[r.Constraint] = n
			}
			label = fmt.Sprintf("c%d", n)
		}
		fmt.Fprintf(&b, "  %s %s [%d:%d)", r.Kind, label, r.Offset, r.Offset+r.Len)
		if r.Side != 0 {
			fmt.Fprintf(&b, " side %d", r.Side)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func dumpCSC(b *strings.Builder, name string, m *cone.CSC) {
	if m == nil {
		fmt.Fprintf(b, "%s nil\n", name)
		return
	}
	fmt.Fprintf(b, "%s %dx%d\n", name, m.Rows, m.Cols)
	for j := 0; j < m.Cols; j++ {
		for k := m.Ptr[j]; k < m.Ptr[j+1]; k++ {
			fmt.Fprintf(b, "  (%d,%d) %s\n", m.Ind[k], j, num(m.Val[k]))
		}
	}
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func vec(vs []float64) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = num(v)
	}
	return "[" + strings.Join(parts, " ") + "]"
}
