package cone

import "fmt"

// Kind enumerates the supported cone families.
type Kind int8

const (
	// Zero is the zero cone {0}: equality rows.
	Zero Kind = iota + 1
	// Nonneg is the nonnegative orthant.
	Nonneg
	// SOC is the second-order (Lorentz) cone.
	SOC
	// PSD is the positive-semidefinite cone over svec-packed matrices.
	PSD
	// Exp is the exponential cone over (u, v, w) triples.
	Exp
)

func (k Kind) String() string {
	switch k {
	case Zero:
		return "zero"
	case Nonneg:
		return "nonneg"
	case SOC:
		return "soc"
	case PSD:
		return "psd"
	case Exp:
		return "exp"
	default:
		return fmt.Sprintf("cone(%d)", int(k))
	}
}

// Caps is the cone-support capability set a solver declares. Zero and
// Nonneg are universal; only the nonlinear cones vary by solver.
type Caps struct {
	SOC bool
	PSD bool
	Exp bool
}

// Supports reports whether a solver with capabilities c can express every
// cone kind the dims require.
func (c Caps) Supports(d Dims) bool {
	if len(d.SOC) > 0 && !c.SOC {
		return false
	}
	if len(d.PSD) > 0 && !c.PSD {
		return false
	}
	if d.Exp > 0 && !c.Exp {
		return false
	}
	return true
}

func (c Caps) String() string {
	s := "lp"
	if c.SOC {
		s += "+soc"
	}
	if c.PSD {
		s += "+sdp"
	}
	if c.Exp {
		s += "+exp"
	}
	return s
}

// ConstraintID is the stable identity of a user-facing constraint, used by
// the layout to attribute dual rows. AuxConstraint marks rows introduced by
// atom rewrites; they are never attributed back to the user.
type ConstraintID int64

// AuxConstraint is the ConstraintID of reduction-internal rows.
const AuxConstraint ConstraintID = 0
