package reduce

import (
	"math"

	"github.com/conicdev/conic/cone"
)

// linExpr is an affine function of the solver columns: sparse triplet
// coefficients over global column indices plus a dense constant term. One
// linExpr row corresponds to one scalar entry of the source expression in
// column-major order. All operations are functional; a linExpr is never
// mutated after construction, so memoized results stay valid.
type linExpr struct {
	rows  int
	trow  []int
	tcol  []int
	tval  []float64
	konst []float64 // nil means zero
}

func zeroLin(rows int) *linExpr {
	return &linExpr{rows: rows}
}

// constLin wraps constant data. The slice is copied.
func constLin(vals []float64) *linExpr {
	k := make([]float64, len(vals))
	copy(k, vals)
	return &linExpr{rows: len(vals), konst: k}
}

// varLin is the identity map of a column span: row i reads column off+i.
func varLin(off, size int) *linExpr {
	l := &linExpr{
		rows: size,
		trow: make([]int, size),
		tcol: make([]int, size),
		tval: make([]float64, size),
	}
	for i := 0; i < size; i++ {
		l.trow[i] = i
		l.tcol[i] = off + i
		l.tval[i] = 1
	}
	return l
}

// constAt reads the constant term of row i.
func (l *linExpr) constAt(i int) float64 {
	if l.konst == nil {
		return 0
	}
	return l.konst[i]
}

// isConst reports whether the expression carries no coefficients.
func (l *linExpr) isConst() bool { return len(l.tval) == 0 }

func (l *linExpr) appendTriplet(row, col int, val float64) *linExpr {
	l.trow = append(l.trow, row)
	l.tcol = append(l.tcol, col)
	l.tval = append(l.tval, val)
	return l
}

func (l *linExpr) ensureKonst() []float64 {
	if l.konst == nil {
		l.konst = make([]float64, l.rows)
	}
	return l.konst
}

// addLin is a + b with scalar promotion: a 1-row operand broadcasts over
// the other operand's rows.
func addLin(a, b *linExpr) *linExpr {
	rows := a.rows
	if b.rows > rows {
		rows = b.rows
	}
	out := zeroLin(rows)
	out.accumulate(a, 1)
	out.accumulate(b, 1)
	return out
}

// scaleLin is k·a.
func scaleLin(a *linExpr, k float64) *linExpr {
	out := zeroLin(a.rows)
	out.accumulate(a, k)
	return out
}

func negLin(a *linExpr) *linExpr { return scaleLin(a, -1) }

// accumulate adds w·src into l, broadcasting a 1-row src over l's rows.
func (l *linExpr) accumulate(src *linExpr, w float64) {
	if src.rows == l.rows {
		for i := range src.tval {
			l.appendTriplet(src.trow[i], src.tcol[i], w*src.tval[i])
		}
		if src.konst != nil {
			k := l.ensureKonst()
			for i, v := range src.konst {
				k[i] += w * v
			}
		}
		return
	}
	// Broadcast a scalar operand.
	for i := range src.tval {
		for r := 0; r < l.rows; r++ {
			l.appendTriplet(r, src.tcol[i], w*src.tval[i])
		}
	}
	if src.konst != nil && src.konst[0] != 0 {
		k := l.ensureKonst()
		for r := range k {
			k[r] += w * src.konst[0]
		}
	}
}

// mulElemLin multiplies a by constant data elementwise, broadcasting
// either side: a scalar expression spreads over the data's length, scalar
// data scales every row. outRows is the promoted entry count.
func mulElemLin(a *linExpr, data []float64, outRows int) *linExpr {
	if a.rows == outRows {
		if len(data) == 1 {
			return scaleLin(a, data[0])
		}
		return weightRowsLin(a, data)
	}
	// Scalar expression times vector data.
	out := zeroLin(outRows)
	for r := 0; r < outRows; r++ {
		w := data[r]
		if w == 0 {
			continue
		}
		for i := range a.tval {
			out.appendTriplet(r, a.tcol[i], w*a.tval[i])
		}
	}
	if a.konst != nil && a.konst[0] != 0 {
		k := out.ensureKonst()
		for r := range k {
			k[r] = data[r] * a.konst[0]
		}
	}
	return out
}

// matmulLeft is the product A·X for constant A (m×inner, column-major)
// and affine X with shape inner×n. Row r of X is entry (r%inner, r/inner);
// output row of entry (i, j) is i + j·m.
func matmulLeft(a []float64, m, inner int, x *linExpr) *linExpr {
	n := x.rows / inner
	out := zeroLin(m * n)
	for t := range x.tval {
		l, j := x.trow[t]%inner, x.trow[t]/inner
		for i := 0; i < m; i++ {
			if w := a[l*m+i]; w != 0 {
				out.appendTriplet(i+j*m, x.tcol[t], w*x.tval[t])
			}
		}
	}
	if x.konst != nil {
		k := out.ensureKonst()
		for r, v := range x.konst {
			if v == 0 {
				continue
			}
			l, j := r%inner, r/inner
			for i := 0; i < m; i++ {
				k[i+j*m] += a[l*m+i] * v
			}
		}
	}
	return out
}

// matmulRight is the product X·B for affine X with shape m×inner and
// constant B (inner×n, column-major).
func matmulRight(x *linExpr, m, inner int, b []float64) *linExpr {
	n := len(b) / inner
	out := zeroLin(m * n)
	for t := range x.tval {
		i, l := x.trow[t]%m, x.trow[t]/m
		for j := 0; j < n; j++ {
			if w := b[j*inner+l]; w != 0 {
				out.appendTriplet(i+j*m, x.tcol[t], w*x.tval[t])
			}
		}
	}
	if x.konst != nil {
		k := out.ensureKonst()
		for r, v := range x.konst {
			if v == 0 {
				continue
			}
			i, l := r%m, r/m
			for j := 0; j < n; j++ {
				k[i+j*m] += b[j*inner+l] * v
			}
		}
	}
	return out
}

// gatherLin builds an output whose row r is input row src[r]. Used for
// transpose, indexing, and promotion.
func gatherLin(a *linExpr, src []int) *linExpr {
	out := zeroLin(len(src))
	// Reverse index: input row -> output rows reading it.
	back := make(map[int][]int, len(src))
	for r, s := range src {
		back[s] = append(back[s], r)
	}
	for i := range a.tval {
		for _, r := range back[a.trow[i]] {
			out.appendTriplet(r, a.tcol[i], a.tval[i])
		}
	}
	if a.konst != nil {
		k := out.ensureKonst()
		for r, s := range src {
			k[r] = a.konst[s]
		}
	}
	return out
}

// sumLin collapses all rows into one.
func sumLin(a *linExpr) *linExpr {
	out := zeroLin(1)
	for i := range a.tval {
		out.appendTriplet(0, a.tcol[i], a.tval[i])
	}
	if a.konst != nil {
		total := 0.0
		for _, v := range a.konst {
			total += v
		}
		if total != 0 {
			out.konst = []float64{total}
		}
	}
	return out
}

// vcatLin stacks expressions by rows.
func vcatLin(parts ...*linExpr) *linExpr {
	rows := 0
	for _, p := range parts {
		rows += p.rows
	}
	out := zeroLin(rows)
	off := 0
	for _, p := range parts {
		for i := range p.tval {
			out.appendTriplet(off+p.trow[i], p.tcol[i], p.tval[i])
		}
		if p.konst != nil {
			k := out.ensureKonst()
			copy(k[off:off+p.rows], p.konst)
		}
		off += p.rows
	}
	return out
}

// weightRowsLin scales each row by w[r].
func weightRowsLin(a *linExpr, w []float64) *linExpr {
	out := zeroLin(a.rows)
	for i := range a.tval {
		if f := w[a.trow[i]]; f != 0 {
			out.appendTriplet(a.trow[i], a.tcol[i], f*a.tval[i])
		}
	}
	if a.konst != nil {
		k := out.ensureKonst()
		for r, v := range a.konst {
			k[r] = w[r] * v
		}
	}
	return out
}

// svecSymLin packs a square affine expression into scaled lower-triangle
// vector form, symmetrizing first: packed entry (i, j), i > j, reads
// (X_ij + X_ji)/√2 and the diagonal reads X_ii directly. This is the
// packing under which the PSD cone is self-dual row for row.
func svecSymLin(a *linExpr, n int) *linExpr {
	out := zeroLin(cone.SvecLen(n))
	invSqrt2 := 1 / math.Sqrt2
	// weight and packed row of the column-major matrix entry r.
	place := func(r int) (int, float64) {
		i, j := r%n, r/n
		if i == j {
			return packIndex(n, i, j), 1
		}
		if i < j {
			i, j = j, i
		}
		return packIndex(n, i, j), invSqrt2
	}
	for t := range a.tval {
		p, w := place(a.trow[t])
		out.appendTriplet(p, a.tcol[t], w*a.tval[t])
	}
	if a.konst != nil {
		for r, v := range a.konst {
			if v == 0 {
				continue
			}
			p, w := place(r)
			out.ensureKonst()[p] += w * v
		}
	}
	return out
}

// packIndex is the packed offset of lower-triangle entry (i, j), i ≥ j,
// column-major.
func packIndex(n, i, j int) int {
	return j*n - j*(j-1)/2 + (i - j)
}

// interleave3 stacks three same-height expressions as consecutive triples:
// output rows (3i, 3i+1, 3i+2) read (u_i, v_i, w_i).
func interleave3(u, v, w *linExpr) *linExpr {
	out := zeroLin(3 * u.rows)
	for base, p := range []*linExpr{u, v, w} {
		for i := range p.tval {
			out.appendTriplet(3*p.trow[i]+base, p.tcol[i], p.tval[i])
		}
		if p.konst != nil {
			k := out.ensureKonst()
			for r, val := range p.konst {
				k[3*r+base] += val
			}
		}
	}
	return out
}
