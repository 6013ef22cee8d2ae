package expr

import "fmt"

// Shape is the row×col dimension of an expression. Scalars are 1×1 and
// column vectors are n×1; there is no separate vector rank.
type Shape struct {
	Rows int
	Cols int
}

// Scalar returns the 1×1 shape.
func Scalar() Shape { return Shape{Rows: 1, Cols: 1} }

// Vec returns the n×1 column-vector shape.
func Vec(n int) Shape { return Shape{Rows: n, Cols: 1} }

// Size returns the number of scalar entries.
func (s Shape) Size() int { return s.Rows * s.Cols }

// IsScalar reports whether the shape is 1×1.
func (s Shape) IsScalar() bool { return s.Rows == 1 && s.Cols == 1 }

// IsSquare reports whether the shape is n×n.
func (s Shape) IsSquare() bool { return s.Rows == s.Cols }

func (s Shape) String() string { return fmt.Sprintf("%dx%d", s.Rows, s.Cols) }

// Promoted returns the common shape of two elementwise operands, promoting
// scalars to the other operand's shape. The boolean is false when the shapes
// are incompatible (neither equal nor scalar-promotable).
func Promoted(a, b Shape) (Shape, bool) {
	switch {
	case a == b:
		return a, true
	case a.IsScalar():
		return b, true
	case b.IsScalar():
		return a, true
	default:
		return Shape{}, false
	}
}

// Index converts a (row, col) pair to the column-major entry offset.
// All value buffers in this module are column-major, matching the layout
// conic solvers consume.
func (s Shape) Index(row, col int) int { return col*s.Rows + row }
