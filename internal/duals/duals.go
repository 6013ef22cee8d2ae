// Package duals attributes stacked dual vectors back to user constraints
// through the program's recorded row layout. Each user constraint owns one
// contiguous row range; rewrite-introduced rows carry AuxConstraint and
// are never attributed.
package duals

import (
	"fmt"
	"math"

	"github.com/conicdev/conic/cone"
)

// Recover slices per-constraint dual vectors out of the stacked ones:
// dualEq indexes the equality rows of A, dualCone the stacked cone rows
// of G. A nil vector leaves the corresponding constraints out of the
// result, so drivers without dual support yield a partial or empty map.
// Semidefinite duals come back as the full column-major n×n matrix.
//
// Values are reported for the program as minimized; the caller owns any
// sense adjustment.
func Recover(p *cone.Program, dualEq, dualCone []float64) (map[cone.ConstraintID][]float64, error) {
	if dualEq != nil && len(dualEq) != len(p.B) {
		return nil, fmt.Errorf("duals: equality vector has %d entries, program has %d rows", len(dualEq), len(p.B))
	}
	if dualCone != nil && len(dualCone) != len(p.H) {
		return nil, fmt.Errorf("duals: cone vector has %d entries, program has %d rows", len(dualCone), len(p.H))
	}

	out := make(map[cone.ConstraintID][]float64)
	for _, r := range p.Layout {
		if r.Constraint == cone.AuxConstraint {
			continue
		}
		src := dualCone
		if r.Kind == cone.Zero {
			src = dualEq
		}
		if src == nil {
			continue
		}
		rows := src[r.Offset : r.Offset+r.Len]
		if r.Kind == cone.PSD {
			out[r.Constraint] = unsvec(rows, r.Side)
			continue
		}
		v := make([]float64, r.Len)
		copy(v, rows)
		out[r.Constraint] = v
	}
	return out, nil
}

// unsvec expands a packed dual block to the full symmetric matrix: the
// packed off-diagonal entry is √2·Z_ij, so both mirror entries read
// packed/√2.
func unsvec(packed []float64, n int) []float64 {
	full := make([]float64, n*n)
	inv := 1 / math.Sqrt2
	k := 0
	for j := 0; j < n; j++ {
		for i := j; i < n; i++ {
			if i == j {
				full[j*n+i] = packed[k]
			} else {
				full[j*n+i] = packed[k] * inv
				full[i*n+j] = packed[k] * inv
			}
			k++
		}
	}
	return full
}
