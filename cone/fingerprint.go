package cone

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
	"strconv"

	"golang.org/x/text/unicode/norm"
)

// Domain prefix for content-addressed program identity. The version
// suffix enables future encoding migration.
const domainProgram = "conic/program/v1"

// Fingerprint computes a content-addressed identity for the reduced
// program. Two programs with identical matrices, cones, layout, and
// column names hash identically regardless of how they were built, so the
// fingerprint is usable as a journal key and as a determinism check.
//
// Format: SHA256(domain + 0x00 + encoding). The null separator prevents
// domain/payload boundary ambiguity. The encoding is a fixed-order binary
// stream: strings are NFC-normalized and length-prefixed, integers are
// big-endian uint64, floats are their IEEE 754 bit patterns. Canonical
// JSON is unsuitable here because the payload is mostly floats.
func Fingerprint(p *Program) string {
	var e fpEncoder
	if p.Maximize {
		e.uint(1)
	} else {
		e.uint(0)
	}
	e.uint(uint64(p.NumCols))
	e.floats(p.C)
	e.float(p.Offset)

	// Unnamed variables are auto-named from a process-assigned counter
	// ("var" + node ID); normalize those to their column position so
	// structurally equal programs hash identically across processes.
	// Aux names restart per reduction and need no treatment.
	e.uint(uint64(len(p.Cols)))
	for i, c := range p.Cols {
		name := c.Name
		if !c.Aux && name == "var"+strconv.FormatInt(c.Var, 10) {
			name = "var#" + strconv.Itoa(i)
		}
		e.str(name)
		e.uint(uint64(c.Offset))
		e.uint(uint64(c.Size))
		if c.Aux {
			e.uint(1)
		} else {
			e.uint(0)
		}
	}

	e.csc(p.A)
	e.floats(p.B)
	e.csc(p.G)
	e.floats(p.H)

	e.uint(uint64(p.Dims.Zero))
	e.uint(uint64(p.Dims.Nonneg))
	e.ints(p.Dims.SOC)
	e.ints(p.Dims.PSD)
	e.uint(uint64(p.Dims.Exp))

	// Constraint identities are process-assigned counters; normalize them
	// to first-appearance ordinals so equal programs built in different
	// processes hash identically. Aux rows stay zero.
	ord := make(map[ConstraintID]uint64, len(p.Layout))
	for _, r := range p.Layout {
		if r.Constraint == AuxConstraint {
			continue
		}
		if _, ok := ord[r.Constraint]; !ok {
			ord[r.Constraint] = uint64(len(ord)) + 1
		}
	}
	e.uint(uint64(len(p.Layout)))
	for _, r := range p.Layout {
		e.uint(ord[r.Constraint])
		e.uint(uint64(r.Kind))
		e.uint(uint64(r.Offset))
		e.uint(uint64(r.Len))
		e.uint(uint64(r.Side))
	}

	h := sha256.New()
	h.Write([]byte(domainProgram))
	h.Write([]byte{0x00})
	h.Write(e.buf)
	return hex.EncodeToString(h.Sum(nil))
}

type fpEncoder struct {
	buf []byte
}

func (e *fpEncoder) uint(v uint64) {
	e.buf = binary.BigEndian.AppendUint64(e.buf, v)
}

func (e *fpEncoder) float(v float64) {
	// Normalize the two zero representations so -0 and +0 coefficients
	// fingerprint identically.
	if v == 0 {
		v = 0
	}
	e.uint(math.Float64bits(v))
}

func (e *fpEncoder) floats(vs []float64) {
	e.uint(uint64(len(vs)))
	for _, v := range vs {
		e.float(v)
	}
}

func (e *fpEncoder) ints(vs []int) {
	e.uint(uint64(len(vs)))
	for _, v := range vs {
		e.uint(uint64(v))
	}
}

func (e *fpEncoder) str(s string) {
	n := norm.NFC.String(s)
	e.uint(uint64(len(n)))
	e.buf = append(e.buf, n...)
}

func (e *fpEncoder) csc(m *CSC) {
	if m == nil {
		e.uint(0)
		e.uint(0)
		e.uint(0)
		return
	}
	e.uint(uint64(m.Rows))
	e.uint(uint64(m.Cols))
	e.ints(m.Ptr)
	e.ints(m.Ind)
	e.floats(m.Val)
}
