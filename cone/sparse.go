package cone

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Triplets is a coordinate-form sparse matrix under construction. Entries
// may repeat and arrive in any order; Compress sums duplicates.
type Triplets struct {
	Rows, Cols int
	Row        []int
	Col        []int
	Val        []float64
}

// NewTriplets returns an empty r by c accumulator.
func NewTriplets(r, c int) *Triplets {
	return &Triplets{Rows: r, Cols: c}
}

// Append records one entry. Zero values are kept; Compress drops them.
func (t *Triplets) Append(row, col int, val float64) {
	t.Row = append(t.Row, row)
	t.Col = append(t.Col, col)
	t.Val = append(t.Val, val)
}

// NNZ is the number of recorded entries, duplicates included.
func (t *Triplets) NNZ() int { return len(t.Val) }

// Compress converts to column-compressed form. Duplicate entries are
// summed and sums that cancel to exact zero are dropped. Entries end up
// column-major with rows ascending within each column.
func (t *Triplets) Compress() (*CSC, error) {
	for i := range t.Val {
		if t.Row[i] < 0 || t.Row[i] >= t.Rows {
			return nil, fmt.Errorf("cone: triplet row %d out of range [0,%d)", t.Row[i], t.Rows)
		}
		if t.Col[i] < 0 || t.Col[i] >= t.Cols {
			return nil, fmt.Errorf("cone: triplet col %d out of range [0,%d)", t.Col[i], t.Cols)
		}
	}
	order := make([]int, len(t.Val))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		ia, ib := order[a], order[b]
		if t.Col[ia] != t.Col[ib] {
			return t.Col[ia] < t.Col[ib]
		}
		if t.Row[ia] != t.Row[ib] {
			return t.Row[ia] < t.Row[ib]
		}
		return ia < ib
	})

	m := &CSC{
		Rows: t.Rows,
		Cols: t.Cols,
		Ptr:  make([]int, t.Cols+1),
	}
	counts := make([]int, t.Cols)
	lastRow, lastCol := -1, -1
	for _, i := range order {
		r, c, v := t.Row[i], t.Col[i], t.Val[i]
		if c == lastCol && r == lastRow {
			m.Val[len(m.Val)-1] += v
			continue
		}
		m.Ind = append(m.Ind, r)
		m.Val = append(m.Val, v)
		counts[c]++
		lastRow, lastCol = r, c
	}
	for j := 0; j < t.Cols; j++ {
		m.Ptr[j+1] = m.Ptr[j] + counts[j]
	}
	m.dropZeros()
	return m, nil
}

// CSC is an immutable compressed-sparse-column matrix. Ptr has Cols+1
// entries; column j spans Ind[Ptr[j]:Ptr[j+1]] with matching Val.
type CSC struct {
	Rows, Cols int
	Ptr        []int
	Ind        []int
	Val        []float64
}

// dropZeros removes exact-zero entries in place.
func (m *CSC) dropZeros() {
	w := 0
	newPtr := make([]int, m.Cols+1)
	for j := 0; j < m.Cols; j++ {
		newPtr[j] = w
		for k := m.Ptr[j]; k < m.Ptr[j+1]; k++ {
			if m.Val[k] == 0 {
				continue
			}
			m.Ind[w] = m.Ind[k]
			m.Val[w] = m.Val[k]
			w++
		}
	}
	newPtr[m.Cols] = w
	m.Ptr = newPtr
	m.Ind = m.Ind[:w]
	m.Val = m.Val[:w]
}

// NNZ is the number of stored entries.
func (m *CSC) NNZ() int { return len(m.Val) }

// At returns the entry at (r, c); absent entries are zero.
func (m *CSC) At(r, c int) float64 {
	if r < 0 || r >= m.Rows || c < 0 || c >= m.Cols {
		panic(fmt.Sprintf("cone: index (%d,%d) out of %dx%d", r, c, m.Rows, m.Cols))
	}
	lo, hi := m.Ptr[c], m.Ptr[c+1]
	k := lo + sort.SearchInts(m.Ind[lo:hi], r)
	if k < hi && m.Ind[k] == r {
		return m.Val[k]
	}
	return 0
}

// MulVec computes y = M x.
func (m *CSC) MulVec(x []float64) []float64 {
	if len(x) != m.Cols {
		panic(fmt.Sprintf("cone: mulvec got %d entries, want %d", len(x), m.Cols))
	}
	y := make([]float64, m.Rows)
	for j := 0; j < m.Cols; j++ {
		xj := x[j]
		if xj == 0 {
			continue
		}
		for k := m.Ptr[j]; k < m.Ptr[j+1]; k++ {
			y[m.Ind[k]] += m.Val[k] * xj
		}
	}
	return y
}

// VCat stacks top above bottom. Both operands must have the same column
// count; entries stay sorted because bottom rows are offset past top's.
func VCat(top, bottom *CSC) (*CSC, error) {
	if top.Cols != bottom.Cols {
		return nil, fmt.Errorf("cone: vcat column mismatch %d vs %d", top.Cols, bottom.Cols)
	}
	out := &CSC{
		Rows: top.Rows + bottom.Rows,
		Cols: top.Cols,
		Ptr:  make([]int, top.Cols+1),
		Ind:  make([]int, 0, top.NNZ()+bottom.NNZ()),
		Val:  make([]float64, 0, top.NNZ()+bottom.NNZ()),
	}
	for j := 0; j < top.Cols; j++ {
		for k := top.Ptr[j]; k < top.Ptr[j+1]; k++ {
			out.Ind = append(out.Ind, top.Ind[k])
			out.Val = append(out.Val, top.Val[k])
		}
		for k := bottom.Ptr[j]; k < bottom.Ptr[j+1]; k++ {
			out.Ind = append(out.Ind, bottom.Ind[k]+top.Rows)
			out.Val = append(out.Val, bottom.Val[k])
		}
		out.Ptr[j+1] = len(out.Ind)
	}
	return out, nil
}

// Dense expands to a gonum dense matrix. Intended for small problems,
// solvers that want dense input, and tests. Zero-dimension matrices come
// back as 1x1 because gonum rejects empty shapes.
func (m *CSC) Dense() *mat.Dense {
	d := mat.NewDense(max(m.Rows, 1), max(m.Cols, 1), nil)
	if m.Rows == 0 || m.Cols == 0 {
		return d
	}
	for j := 0; j < m.Cols; j++ {
		for k := m.Ptr[j]; k < m.Ptr[j+1]; k++ {
			d.Set(m.Ind[k], j, m.Val[k])
		}
	}
	return d
}
