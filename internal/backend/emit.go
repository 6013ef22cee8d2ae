package backend

import (
	"math"
	"slices"

	"github.com/conicdev/conic/cone"
	"github.com/conicdev/conic/solver"
)

// emitDirect hands the program through unchanged. The simplex and ecos
// families consume the slack convention exactly as the reducer stacks it.
func emitDirect(p *cone.Program) (*solver.Input, error) {
	return &solver.Input{
		C:      slices.Clone(p.C),
		Offset: p.Offset,
		A:      p.A,
		B:      slices.Clone(p.B),
		G:      p.G,
		H:      slices.Clone(p.H),
		Dims:   p.Dims,
	}, nil
}

// emitSCS folds the equality rows into the top of the cone block: the scs
// family takes a single stacked system with the zero cone first. A and B
// are left nil; Dims.Zero counts the leading rows.
func emitSCS(p *cone.Program) (*solver.Input, error) {
	g, err := cone.VCat(p.A, p.G)
	if err != nil {
		return nil, err
	}
	h := make([]float64, 0, len(p.B)+len(p.H))
	h = append(h, p.B...)
	h = append(h, p.H...)
	return &solver.Input{
		C:      slices.Clone(p.C),
		Offset: p.Offset,
		G:      g,
		H:      h,
		Dims:   p.Dims,
	}, nil
}

// dualsSCS splits the single stacked dual vector back into equality and
// cone parts.
func dualsSCS(p *cone.Program, out *solver.Output) (eq, coneDual []float64) {
	nz := p.Dims.Zero
	if len(out.DualCone) < nz {
		return nil, nil
	}
	return slices.Clone(out.DualCone[:nz]), slices.Clone(out.DualCone[nz:])
}

// target is one full-form row fed by a packed row, with the weight applied
// to both the coefficients and the constant.
type target struct {
	row int
	w   float64
}

// conelpTargets maps every packed G row to its rows in the conelp layout,
// where a semidefinite block of side n occupies n² full column-major rows
// instead of n(n+1)/2 packed ones. A packed off-diagonal row carries
// √2·M_ij of the symmetrized matrix, so both mirror rows receive weight
// 1/√2; diagonals map one to one. Rows outside PSD blocks are untouched.
func conelpTargets(d cone.Dims) (targets [][]target, fullRows int) {
	head := d.Nonneg
	for _, q := range d.SOC {
		head += q
	}
	targets = make([][]target, d.ConeRows())
	for r := 0; r < head; r++ {
		targets[r] = []target{{row: r, w: 1}}
	}
	packed, full := head, head
	inv := 1 / math.Sqrt2
	for _, n := range d.PSD {
		for j := 0; j < n; j++ {
			for i := j; i < n; i++ {
				if i == j {
					targets[packed] = []target{{row: full + j*n + i, w: 1}}
				} else {
					targets[packed] = []target{
						{row: full + j*n + i, w: inv},
						{row: full + i*n + j, w: inv},
					}
				}
				packed++
			}
		}
		full += n * n
	}
	return targets, full
}

// emitConelp expands svec-packed semidefinite rows to the full column-major
// matrices the conelp family stores. Input.Dims keeps side lengths; the
// emitted G carries n² rows per block, so Dims.ConeRows does not describe
// the conelp row count.
func emitConelp(p *cone.Program) (*solver.Input, error) {
	if len(p.Dims.PSD) == 0 {
		return emitDirect(p)
	}
	targets, fullRows := conelpTargets(p.Dims)

	tr := cone.NewTriplets(fullRows, p.G.Cols)
	for j := 0; j < p.G.Cols; j++ {
		for k := p.G.Ptr[j]; k < p.G.Ptr[j+1]; k++ {
			for _, t := range targets[p.G.Ind[k]] {
				tr.Append(t.row, j, t.w*p.G.Val[k])
			}
		}
	}
	g, err := tr.Compress()
	if err != nil {
		return nil, err
	}
	h := make([]float64, fullRows)
	for r, ts := range targets {
		for _, t := range ts {
			h[t.row] = t.w * p.H[r]
		}
	}
	return &solver.Input{
		C:      slices.Clone(p.C),
		Offset: p.Offset,
		A:      p.A,
		B:      slices.Clone(p.B),
		G:      g,
		H:      h,
		Dims:   p.Dims,
	}, nil
}

// dualsConelp packs the full semidefinite dual blocks back to svec rows.
// The packing is an isometry: the packed dual entry is Z_ii on the
// diagonal and (Z_ij+Z_ji)/√2 off it, so constraint pairings are
// preserved row for row.
func dualsConelp(p *cone.Program, out *solver.Output) (eq, coneDual []float64) {
	if len(p.Dims.PSD) == 0 || out.DualCone == nil {
		return out.DualEq, out.DualCone
	}
	targets, fullRows := conelpTargets(p.Dims)
	if len(out.DualCone) != fullRows {
		return out.DualEq, nil
	}
	packed := make([]float64, p.Dims.ConeRows())
	for r, ts := range targets {
		for _, t := range ts {
			packed[r] += t.w * out.DualCone[t.row]
		}
	}
	return out.DualEq, packed
}
