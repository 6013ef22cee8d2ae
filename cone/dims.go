package cone

import (
	"fmt"
	"strings"
)

// Dims records the cone structure of the slack rows, in stack order:
// nonnegative orthant first, then second-order blocks, then semidefinite
// blocks, then exponential triples. Equality rows live apart in A and are
// counted by Zero.
type Dims struct {
	// Zero is the number of equality rows in A.
	Zero int
	// Nonneg is the number of nonnegative-orthant rows in G.
	Nonneg int
	// SOC holds the total row count of each second-order block, leading
	// scalar included.
	SOC []int
	// PSD holds the side length n of each semidefinite block; the block
	// occupies n(n+1)/2 svec-packed rows.
	PSD []int
	// Exp is the number of exponential triples; each occupies three rows.
	Exp int
}

// SvecLen is the packed length of the lower triangle of an n by n
// symmetric matrix.
func SvecLen(n int) int { return n * (n + 1) / 2 }

// ConeRows is the total number of rows in G, excluding equality rows.
func (d Dims) ConeRows() int {
	rows := d.Nonneg
	for _, q := range d.SOC {
		rows += q
	}
	for _, n := range d.PSD {
		rows += SvecLen(n)
	}
	rows += 3 * d.Exp
	return rows
}

// Validate rejects dims with nonpositive block sizes.
func (d Dims) Validate() error {
	if d.Zero < 0 || d.Nonneg < 0 || d.Exp < 0 {
		return fmt.Errorf("cone: negative dimension count in %s", d)
	}
	for i, q := range d.SOC {
		if q < 1 {
			return fmt.Errorf("cone: soc block %d has %d rows; need at least 1", i, q)
		}
	}
	for i, n := range d.PSD {
		if n < 1 {
			return fmt.Errorf("cone: psd block %d has side %d; need at least 1", i, n)
		}
	}
	return nil
}

func (d Dims) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "zero=%d nonneg=%d", d.Zero, d.Nonneg)
	if len(d.SOC) > 0 {
		fmt.Fprintf(&b, " soc=%v", d.SOC)
	}
	if len(d.PSD) > 0 {
		fmt.Fprintf(&b, " psd=%v", d.PSD)
	}
	if d.Exp > 0 {
		fmt.Fprintf(&b, " exp=%d", d.Exp)
	}
	return b.String()
}
