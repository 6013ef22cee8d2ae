// Package reduce lowers verified problems to cone standard form. Affine
// structure becomes sparse coefficients directly; every nonlinear atom is
// replaced by fresh auxiliary variables plus cone rows through its graph
// implementation. Reduction is deterministic: columns follow first-use
// order, auxiliaries follow expansion order, and rows are stacked grouped
// by cone kind in emission order.
package reduce

import (
	"fmt"

	"github.com/conicdev/conic/cone"
	"github.com/conicdev/conic/internal/atom"
	"github.com/conicdev/conic/internal/expr"
	"github.com/conicdev/conic/internal/prob"
)

// Reduce lowers a verified problem. The caller is responsible for running
// verification first; reduction asserts structural invariants only and
// reports their failure as *InternalError.
func Reduce(p *prob.Problem) (*cone.Program, error) {
	if p.Objective == nil {
		return nil, internalf("walk", "problem has no objective")
	}
	r := newReducer()
	for _, v := range p.Variables() {
		col := cone.Col{Var: v.ID(), Name: v.Name, Offset: r.nextCol, Size: v.Shape.Size()}
		r.cols = append(r.cols, col)
		r.varCols[v.ID()] = col
		r.nextCol += col.Size
	}

	objLin, err := r.lower(p.Objective)
	if err != nil {
		return nil, err
	}
	if objLin.rows != 1 {
		return nil, internalf("walk", "objective lowered to %d rows", objLin.rows)
	}
	for _, c := range p.Constraints {
		if err := r.lowerConstraint(c); err != nil {
			return nil, err
		}
	}
	return r.assemble(p, objLin)
}

type rawBlock struct {
	id   cone.ConstraintID
	kind cone.Kind
	side int // psd side length
	lin  *linExpr
}

type reducer struct {
	memo    map[int64]*linExpr
	varCols map[int64]cone.Col
	cols    []cone.Col
	nextCol int
	auxSeq  int

	eqs   []rawBlock
	cones []rawBlock
}

func newReducer() *reducer {
	return &reducer{
		memo:    make(map[int64]*linExpr),
		varCols: make(map[int64]cone.Col),
	}
}

// newAux mints an auxiliary column span and returns its identity map.
func (r *reducer) newAux(size int) *linExpr {
	r.auxSeq++
	col := cone.Col{
		Name:   fmt.Sprintf("aux%d", r.auxSeq),
		Offset: r.nextCol,
		Size:   size,
		Aux:    true,
	}
	r.cols = append(r.cols, col)
	r.nextCol += size
	return varLin(col.Offset, col.Size)
}

func (r *reducer) addZero(id cone.ConstraintID, lin *linExpr) {
	r.eqs = append(r.eqs, rawBlock{id: id, kind: cone.Zero, lin: lin})
}

// addNonneg asserts lin ≥ 0 elementwise.
func (r *reducer) addNonneg(id cone.ConstraintID, lin *linExpr) {
	r.cones = append(r.cones, rawBlock{id: id, kind: cone.Nonneg, lin: lin})
}

// addSOC asserts lin ∈ Q: the first row bounds the 2-norm of the rest.
func (r *reducer) addSOC(id cone.ConstraintID, lin *linExpr) {
	r.cones = append(r.cones, rawBlock{id: id, kind: cone.SOC, lin: lin})
}

// addPSD asserts the svec-packed lin is a PSD matrix of the given side.
func (r *reducer) addPSD(id cone.ConstraintID, lin *linExpr, side int) {
	r.cones = append(r.cones, rawBlock{id: id, kind: cone.PSD, side: side, lin: lin})
}

// addExp asserts lin's consecutive row triples are exponential-cone
// members.
func (r *reducer) addExp(id cone.ConstraintID, lin *linExpr) {
	r.cones = append(r.cones, rawBlock{id: id, kind: cone.Exp, lin: lin})
}

// lower maps a node to its affine form, memoized by node identity so a
// shared subexpression expands exactly once.
func (r *reducer) lower(n *expr.Node) (*linExpr, error) {
	if l, ok := r.memo[n.ID()]; ok {
		return l, nil
	}
	var l *linExpr
	var err error
	switch n.Kind {
	case expr.KindConstant:
		l = constLin(n.Value)
	case expr.KindParameter:
		if n.Value == nil {
			return nil, &UnvaluedParameterError{Name: n.Name}
		}
		l = constLin(n.Value)
	case expr.KindVariable:
		col, ok := r.varCols[n.ID()]
		if !ok {
			return nil, internalf("walk", "variable %q has no column", n.Name)
		}
		l = varLin(col.Offset, col.Size)
	case expr.KindAtom:
		l, err = r.lowerAtom(n)
		if err != nil {
			return nil, err
		}
	default:
		return nil, internalf("walk", "cannot lower %s node", n.Kind)
	}
	if l.rows != n.Shape.Size() {
		return nil, internalf("walk", "%s lowered to %d rows, shape %s has %d", n.Label(), l.rows, n.Shape, n.Shape.Size())
	}
	r.memo[n.ID()] = l
	return l, nil
}

func (r *reducer) lowerAtom(n *expr.Node) (*linExpr, error) {
	args := make([]*linExpr, len(n.Args))
	for i, arg := range n.Args {
		l, err := r.lower(arg)
		if err != nil {
			return nil, err
		}
		args[i] = l
	}
	fn, nonlinear := graphFuncs[n.Atom]
	if !nonlinear {
		return r.lowerAffine(n, args)
	}
	// A constant-only expression contributes its value, never cone rows:
	// folding here keeps pure LPs on LP backends and keeps constant terms
	// out of the epigraph machinery.
	if allConst(args) {
		return r.foldConst(n, args)
	}
	return fn(r, n, args)
}

func allConst(args []*linExpr) bool {
	for _, a := range args {
		if !a.isConst() {
			return false
		}
	}
	return true
}

// foldConst evaluates an atom over constant operands through the
// registry's numeric evaluator.
func (r *reducer) foldConst(n *expr.Node, args []*linExpr) (*linExpr, error) {
	spec, ok := atom.Lookup(n.Atom)
	if !ok || spec.Eval == nil {
		return nil, internalf("walk", "%s has no evaluator", n.Label())
	}
	vals := make([][]float64, len(args))
	for i, a := range args {
		vals[i] = constData(a)
	}
	out, err := spec.Eval(n, vals)
	if err != nil {
		return nil, internalf("walk", "folding %s: %v", n.Label(), err)
	}
	return constLin(out), nil
}

func (r *reducer) lowerAffine(n *expr.Node, args []*linExpr) (*linExpr, error) {
	switch n.Atom {
	case expr.AtomAdd:
		out := args[0]
		for _, a := range args[1:] {
			out = addLin(out, a)
		}
		return out, nil

	case expr.AtomNeg:
		return negLin(args[0]), nil

	case expr.AtomMulScalar:
		rows := n.Shape.Size()
		if args[0].isConst() {
			return mulElemLin(args[1], constData(args[0]), rows), nil
		}
		if args[1].isConst() {
			return mulElemLin(args[0], constData(args[1]), rows), nil
		}
		return nil, internalf("walk", "%s has no constant operand", n.Label())

	case expr.AtomMatMul:
		if args[0].isConst() {
			inner := n.Args[0].Shape.Cols
			return matmulLeft(constData(args[0]), n.Shape.Rows, inner, args[1]), nil
		}
		if args[1].isConst() {
			m := n.Args[0].Shape.Rows
			inner := n.Args[0].Shape.Cols
			return matmulRight(args[0], m, inner, constData(args[1])), nil
		}
		return nil, internalf("walk", "%s has no constant operand", n.Label())

	case expr.AtomSum:
		return sumLin(args[0]), nil

	case expr.AtomTranspose:
		in := n.Args[0].Shape
		src := make([]int, n.Shape.Size())
		for c := 0; c < n.Shape.Cols; c++ {
			for row := 0; row < n.Shape.Rows; row++ {
				src[n.Shape.Index(row, c)] = in.Index(c, row)
			}
		}
		return gatherLin(args[0], src), nil

	case expr.AtomTrace:
		in := n.Args[0].Shape
		src := make([]int, in.Rows)
		for i := range src {
			src[i] = in.Index(i, i)
		}
		return sumLin(gatherLin(args[0], src)), nil

	case expr.AtomIndex:
		in := n.Args[0].Shape
		r0, c0 := n.Attr[0], n.Attr[2]
		src := make([]int, n.Shape.Size())
		for c := 0; c < n.Shape.Cols; c++ {
			for row := 0; row < n.Shape.Rows; row++ {
				src[n.Shape.Index(row, c)] = in.Index(r0+row, c0+c)
			}
		}
		return gatherLin(args[0], src), nil

	case expr.AtomReshape:
		// Entry order is preserved; the lowered form is identical.
		return args[0], nil

	case expr.AtomHStack:
		return vcatLin(args...), nil

	case expr.AtomVStack:
		return r.lowerVStack(n, args), nil

	case expr.AtomPromote:
		return gatherLin(args[0], make([]int, n.Shape.Size())), nil

	default:
		return nil, internalf("walk", "no lowering for atom %s", n.Atom)
	}
}

func (r *reducer) lowerVStack(n *expr.Node, args []*linExpr) *linExpr {
	out := zeroLin(n.Shape.Size())
	rowOff := 0
	for k, p := range args {
		s := n.Args[k].Shape
		for i := range p.tval {
			row, col := p.trow[i]%s.Rows, p.trow[i]/s.Rows
			out.appendTriplet(n.Shape.Index(rowOff+row, col), p.tcol[i], p.tval[i])
		}
		if p.konst != nil {
			dst := out.ensureKonst()
			for ri, v := range p.konst {
				row, col := ri%s.Rows, ri/s.Rows
				dst[n.Shape.Index(rowOff+row, col)] += v
			}
		}
		rowOff += s.Rows
	}
	return out
}

// constData materializes the constant term of a coefficient-free
// expression.
func constData(l *linExpr) []float64 {
	if l.konst != nil {
		return l.konst
	}
	return make([]float64, l.rows)
}

// promoteLin broadcasts a 1-row expression to rows entries.
func promoteLin(l *linExpr, rows int) *linExpr {
	if l.rows == rows {
		return l
	}
	return gatherLin(l, make([]int, rows))
}

func (r *reducer) lowerConstraint(c *prob.Constraint) error {
	switch c.Kind {
	case prob.ConEq:
		lin, err := r.lower(c.Body)
		if err != nil {
			return err
		}
		r.addZero(c.ID, lin)
		return nil

	case prob.ConIneq:
		lin, err := r.lower(c.Body)
		if err != nil {
			return err
		}
		// body <= 0 becomes -body >= 0.
		r.addNonneg(c.ID, negLin(lin))
		return nil

	case prob.ConSOC:
		lt, err := r.lower(c.Args[0])
		if err != nil {
			return err
		}
		lx, err := r.lower(c.Args[1])
		if err != nil {
			return err
		}
		r.addSOC(c.ID, vcatLin(lt, lx))
		return nil

	case prob.ConPSD:
		lx, err := r.lower(c.Args[0])
		if err != nil {
			return err
		}
		n := c.Args[0].Shape.Rows
		r.addPSD(c.ID, svecSymLin(lx, n), n)
		return nil

	case prob.ConExp:
		rows := 1
		lins := make([]*linExpr, 3)
		for i, arg := range c.Args {
			l, err := r.lower(arg)
			if err != nil {
				return err
			}
			if l.rows > rows {
				rows = l.rows
			}
			lins[i] = l
		}
		for i := range lins {
			lins[i] = promoteLin(lins[i], rows)
		}
		r.addExp(c.ID, interleave3(lins[0], lins[1], lins[2]))
		return nil

	default:
		return internalf("walk", "unknown constraint kind %s", c.Kind)
	}
}

func (r *reducer) assemble(p *prob.Problem, objLin *linExpr) (*cone.Program, error) {
	c := make([]float64, r.nextCol)
	for i := range objLin.tval {
		if objLin.trow[i] != 0 {
			return nil, internalf("assemble", "objective coefficient in row %d", objLin.trow[i])
		}
		c[objLin.tcol[i]] += objLin.tval[i]
	}
	offset := objLin.constAt(0)
	if p.Maximize {
		for i := range c {
			c[i] = -c[i]
		}
		offset = -offset
	}

	eqRows := 0
	for _, blk := range r.eqs {
		eqRows += blk.lin.rows
	}
	a := cone.NewTriplets(eqRows, r.nextCol)
	b := make([]float64, eqRows)
	var layout []cone.RowRange
	off := 0
	for _, blk := range r.eqs {
		for i := range blk.lin.tval {
			a.Append(off+blk.lin.trow[i], blk.lin.tcol[i], blk.lin.tval[i])
		}
		for ri := 0; ri < blk.lin.rows; ri++ {
			b[off+ri] = -blk.lin.constAt(ri)
		}
		layout = append(layout, cone.RowRange{Constraint: blk.id, Kind: cone.Zero, Offset: off, Len: blk.lin.rows})
		off += blk.lin.rows
	}

	dims := cone.Dims{Zero: eqRows}
	coneRows := 0
	for _, blk := range r.cones {
		coneRows += blk.lin.rows
	}
	g := cone.NewTriplets(coneRows, r.nextCol)
	h := make([]float64, coneRows)
	off = 0
	for _, kind := range []cone.Kind{cone.Nonneg, cone.SOC, cone.PSD, cone.Exp} {
		for _, blk := range r.cones {
			if blk.kind != kind {
				continue
			}
			// Membership lin ∈ K in slack form s = h - Gx: G = -coeffs,
			// h = constant term.
			for i := range blk.lin.tval {
				g.Append(off+blk.lin.trow[i], blk.lin.tcol[i], -blk.lin.tval[i])
			}
			for ri := 0; ri < blk.lin.rows; ri++ {
				h[off+ri] = blk.lin.constAt(ri)
			}
			layout = append(layout, cone.RowRange{
				Constraint: blk.id,
				Kind:       kind,
				Offset:     off,
				Len:        blk.lin.rows,
				Side:       blk.side,
			})
			switch kind {
			case cone.Nonneg:
				dims.Nonneg += blk.lin.rows
			case cone.SOC:
				dims.SOC = append(dims.SOC, blk.lin.rows)
			case cone.PSD:
				dims.PSD = append(dims.PSD, blk.side)
			case cone.Exp:
				if blk.lin.rows%3 != 0 {
					return nil, internalf("assemble", "exp block has %d rows", blk.lin.rows)
				}
				dims.Exp += blk.lin.rows / 3
			}
			off += blk.lin.rows
		}
	}

	A, err := a.Compress()
	if err != nil {
		return nil, internalf("assemble", "equality matrix: %v", err)
	}
	G, err := g.Compress()
	if err != nil {
		return nil, internalf("assemble", "cone matrix: %v", err)
	}

	prog := &cone.Program{
		Maximize: p.Maximize,
		C:        c,
		Offset:   offset,
		NumCols:  r.nextCol,
		Cols:     r.cols,
		A:        A,
		B:        b,
		G:        G,
		H:        h,
		Dims:     dims,
		Layout:   layout,
	}
	if err := prog.Validate(); err != nil {
		return nil, internalf("assemble", "%v", err)
	}
	return prog, nil
}
