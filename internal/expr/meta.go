package expr

// Curvature classifies an expression under the DCP rule system.
//
// The ordering is meaningful only through the Is* helpers: constants are
// both convex and concave, affine expressions are both, and Unknown is
// neither. Downstream code must never compare curvatures directly for
// admissibility checks.
type Curvature int8

const (
	Unknown Curvature = iota
	Constant
	Affine
	Convex
	Concave
)

func (c Curvature) String() string {
	switch c {
	case Constant:
		return "constant"
	case Affine:
		return "affine"
	case Convex:
		return "convex"
	case Concave:
		return "concave"
	default:
		return "unknown"
	}
}

// IsConvex reports whether the curvature is admissible where a convex
// expression is required (constant, affine, or convex).
func (c Curvature) IsConvex() bool {
	return c == Constant || c == Affine || c == Convex
}

// IsConcave reports whether the curvature is admissible where a concave
// expression is required (constant, affine, or concave).
func (c Curvature) IsConcave() bool {
	return c == Constant || c == Affine || c == Concave
}

// IsAffine reports whether the expression is affine (constants included).
func (c Curvature) IsAffine() bool { return c == Constant || c == Affine }

// IsConstant reports whether the expression has no variables.
func (c Curvature) IsConstant() bool { return c == Constant }

// AddCurv returns the curvature of a sum of two expressions.
func AddCurv(a, b Curvature) Curvature {
	if a == Constant {
		return b
	}
	if b == Constant {
		return a
	}
	if a == Affine {
		return b
	}
	if b == Affine {
		return a
	}
	if a == b {
		return a
	}
	return Unknown
}

// NegCurv returns the curvature of a negated expression.
func NegCurv(c Curvature) Curvature {
	switch c {
	case Convex:
		return Concave
	case Concave:
		return Convex
	default:
		return c
	}
}

// Sign classifies the numeric sign of every entry of an expression.
type Sign int8

const (
	SignUnknown Sign = iota
	SignZero
	SignNonneg
	SignNonpos
)

func (s Sign) String() string {
	switch s {
	case SignZero:
		return "zero"
	case SignNonneg:
		return "nonneg"
	case SignNonpos:
		return "nonpos"
	default:
		return "unknown"
	}
}

// IsNonneg reports whether every entry is known to be ≥ 0.
func (s Sign) IsNonneg() bool { return s == SignZero || s == SignNonneg }

// IsNonpos reports whether every entry is known to be ≤ 0.
func (s Sign) IsNonpos() bool { return s == SignZero || s == SignNonpos }

// AddSign returns the sign of a sum.
func AddSign(a, b Sign) Sign {
	switch {
	case a == SignZero:
		return b
	case b == SignZero:
		return a
	case a == b:
		return a
	default:
		return SignUnknown
	}
}

// NegSign returns the sign of a negation.
func NegSign(s Sign) Sign {
	switch s {
	case SignNonneg:
		return SignNonpos
	case SignNonpos:
		return SignNonneg
	default:
		return s
	}
}

// MulSign returns the sign of a product.
func MulSign(a, b Sign) Sign {
	if a == SignZero || b == SignZero {
		return SignZero
	}
	if a == SignUnknown || b == SignUnknown {
		return SignUnknown
	}
	if a == b {
		return SignNonneg
	}
	return SignNonpos
}

// Monotonicity describes how an atom responds to an argument, used by the
// DCP composition rule. None means the argument must be affine for the
// composition to certify.
type Monotonicity int8

const (
	MonoNone Monotonicity = iota
	MonoNondecreasing
	MonoNonincreasing
)

func (m Monotonicity) String() string {
	switch m {
	case MonoNondecreasing:
		return "nondecreasing"
	case MonoNonincreasing:
		return "nonincreasing"
	default:
		return "none"
	}
}
