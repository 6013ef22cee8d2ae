package cone

import (
	"fmt"
)

// Col maps a span of solution columns back to a source variable. Aux
// columns belong to variables invented during rewriting and never appear
// in recovered results.
type Col struct {
	// Var is the identity of the source variable node; 0 for aux columns.
	Var int64
	// Name labels the column span in diagnostics.
	Name string
	// Offset is the first column of the span.
	Offset int
	// Size is the number of scalar columns.
	Size int
	// Aux marks rewrite-introduced columns.
	Aux bool
}

// RowRange attributes a contiguous block of rows to one constraint. For
// Kind Zero the offset indexes the equality rows of A; for every other
// kind it indexes the stacked cone rows of G. Rewrite-introduced rows use
// Constraint == AuxConstraint.
type RowRange struct {
	Constraint ConstraintID
	Kind       Kind
	Offset     int
	Len        int
	// Side is the matrix side length for PSD ranges; zero otherwise.
	Side int
}

// Program is a cone program in the reduced standard form
//
//	minimize    c'x + offset
//	subject to  A x  = b
//	            h - G x in K
//
// with K the product cone described by Dims, rows stacked nonneg, then
// second-order, then semidefinite (svec-packed), then exponential.
// Maximization is carried as a flag with c already negated, so solvers
// always minimize.
type Program struct {
	// Maximize records the user's objective sense. C is always the
	// minimization objective; the reported optimal value is negated when
	// Maximize is set.
	Maximize bool
	// C is the linear objective over the stacked solution columns.
	C []float64
	// Offset is the constant term dropped from C.
	Offset float64
	// NumCols is the width of A and G.
	NumCols int
	// Cols maps column spans to source variables, user variables first.
	Cols []Col
	// A and B hold the equality rows: A x = b.
	A *CSC
	B []float64
	// G and H hold the cone rows in slack form: h - G x in K.
	G *CSC
	H []float64
	// Dims describes the product cone.
	Dims Dims
	// Layout attributes every row to a constraint, in row order:
	// equality ranges first, then cone ranges.
	Layout []RowRange
}

// Validate checks the internal consistency of the reduced form: shapes,
// cone dimensions, and a layout that tiles every row exactly once. A
// violation here is a reduction bug, not a user error.
func (p *Program) Validate() error {
	if err := p.Dims.Validate(); err != nil {
		return err
	}
	if len(p.C) != p.NumCols {
		return fmt.Errorf("cone: objective has %d entries for %d columns", len(p.C), p.NumCols)
	}
	if p.A == nil || p.G == nil {
		return fmt.Errorf("cone: nil coefficient matrix")
	}
	if p.A.Rows != p.Dims.Zero || p.A.Cols != p.NumCols {
		return fmt.Errorf("cone: A is %dx%d, want %dx%d", p.A.Rows, p.A.Cols, p.Dims.Zero, p.NumCols)
	}
	if len(p.B) != p.Dims.Zero {
		return fmt.Errorf("cone: b has %d entries, want %d", len(p.B), p.Dims.Zero)
	}
	coneRows := p.Dims.ConeRows()
	if p.G.Rows != coneRows || p.G.Cols != p.NumCols {
		return fmt.Errorf("cone: G is %dx%d, want %dx%d", p.G.Rows, p.G.Cols, coneRows, p.NumCols)
	}
	if len(p.H) != coneRows {
		return fmt.Errorf("cone: h has %d entries, want %d", len(p.H), coneRows)
	}
	if err := p.validateCols(); err != nil {
		return err
	}
	return p.validateLayout()
}

func (p *Program) validateCols() error {
	next := 0
	for i, c := range p.Cols {
		if c.Offset != next {
			return fmt.Errorf("cone: column span %d (%s) starts at %d, want %d", i, c.Name, c.Offset, next)
		}
		if c.Size < 1 {
			return fmt.Errorf("cone: column span %d (%s) has size %d", i, c.Name, c.Size)
		}
		if !c.Aux && c.Var == 0 {
			return fmt.Errorf("cone: column span %d (%s) is not aux but has no variable", i, c.Name)
		}
		next += c.Size
	}
	if next != p.NumCols {
		return fmt.Errorf("cone: column spans cover %d of %d columns", next, p.NumCols)
	}
	return nil
}

func (p *Program) validateLayout() error {
	nextEq, nextCone := 0, 0
	kindFloor := Zero
	for i, r := range p.Layout {
		if r.Len < 1 {
			return fmt.Errorf("cone: layout range %d has length %d", i, r.Len)
		}
		if r.Kind == Zero {
			if kindFloor != Zero {
				return fmt.Errorf("cone: layout range %d: equality rows after cone rows", i)
			}
			if r.Offset != nextEq {
				return fmt.Errorf("cone: layout range %d starts at equality row %d, want %d", i, r.Offset, nextEq)
			}
			nextEq += r.Len
			continue
		}
		if r.Kind < kindFloor {
			return fmt.Errorf("cone: layout range %d: %s rows after %s rows", i, r.Kind, kindFloor)
		}
		kindFloor = r.Kind
		if r.Offset != nextCone {
			return fmt.Errorf("cone: layout range %d starts at cone row %d, want %d", i, r.Offset, nextCone)
		}
		if r.Kind == PSD {
			if SvecLen(r.Side) != r.Len {
				return fmt.Errorf("cone: layout range %d: psd side %d does not pack into %d rows", i, r.Side, r.Len)
			}
		} else if r.Side != 0 {
			return fmt.Errorf("cone: layout range %d: side set on %s range", i, r.Kind)
		}
		nextCone += r.Len
	}
	if nextEq != p.Dims.Zero {
		return fmt.Errorf("cone: layout covers %d of %d equality rows", nextEq, p.Dims.Zero)
	}
	if coneRows := p.Dims.ConeRows(); nextCone != coneRows {
		return fmt.Errorf("cone: layout covers %d of %d cone rows", nextCone, coneRows)
	}
	return nil
}

// ColFor returns the column span of the given variable node, if present.
func (p *Program) ColFor(varID int64) (Col, bool) {
	for _, c := range p.Cols {
		if !c.Aux && c.Var == varID {
			return c, true
		}
	}
	return Col{}, false
}

// RangesFor returns the layout ranges attributed to one constraint, in
// row order.
func (p *Program) RangesFor(id ConstraintID) []RowRange {
	var out []RowRange
	for _, r := range p.Layout {
		if r.Constraint == id {
			out = append(out, r)
		}
	}
	return out
}
