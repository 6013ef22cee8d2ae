package reduce

import (
	"github.com/conicdev/conic/cone"
	"github.com/conicdev/conic/internal/expr"
)

// graphFunc rewrites one nonlinear atom application: it mints auxiliary
// columns, emits cone rows attributed to no user constraint, and returns
// the affine form standing in for the atom's value. Convex atoms return
// an over-estimator and concave atoms an under-estimator; the discipline
// guarantees the estimators are tight at the optimum.
type graphFunc func(r *reducer, n *expr.Node, args []*linExpr) (*linExpr, error)

var graphFuncs = map[expr.AtomKind]graphFunc{
	expr.AtomAbs:         graphAbs,
	expr.AtomPos:         graphPos,
	expr.AtomMaximum:     graphMaximum,
	expr.AtomMinimum:     graphMinimum,
	expr.AtomMaxEntries:  graphMaxEntries,
	expr.AtomMinEntries:  graphMinEntries,
	expr.AtomSquare:      graphSquare,
	expr.AtomSumSquares:  graphSumSquares,
	expr.AtomQuadOverLin: graphQuadOverLin,
	expr.AtomNorm1:       graphNorm1,
	expr.AtomNorm2:       graphNorm2,
	expr.AtomNormInf:     graphNormInf,
	expr.AtomSqrt:        graphSqrt,
	expr.AtomExp:         graphExp,
	expr.AtomLog:         graphLog,
	expr.AtomEntr:        graphEntr,
	expr.AtomLogSumExp:   graphLogSumExp,
	expr.AtomLambdaMax:   graphLambdaMax,
	expr.AtomLambdaMin:   graphLambdaMin,
}

const aux = cone.AuxConstraint

// graphAbs: t with t - x >= 0 and t + x >= 0.
func graphAbs(r *reducer, n *expr.Node, args []*linExpr) (*linExpr, error) {
	t := r.newAux(n.Shape.Size())
	r.addNonneg(aux, addLin(t, negLin(args[0])))
	r.addNonneg(aux, addLin(t, args[0]))
	return t, nil
}

// graphPos: t with t - x >= 0 and t >= 0.
func graphPos(r *reducer, n *expr.Node, args []*linExpr) (*linExpr, error) {
	t := r.newAux(n.Shape.Size())
	r.addNonneg(aux, addLin(t, negLin(args[0])))
	r.addNonneg(aux, t)
	return t, nil
}

// graphMaximum: t with t - a_i >= 0 for every operand, scalars broadcast.
func graphMaximum(r *reducer, n *expr.Node, args []*linExpr) (*linExpr, error) {
	t := r.newAux(n.Shape.Size())
	for _, a := range args {
		r.addNonneg(aux, addLin(t, negLin(a)))
	}
	return t, nil
}

// graphMinimum: t with a_i - t >= 0.
func graphMinimum(r *reducer, n *expr.Node, args []*linExpr) (*linExpr, error) {
	t := r.newAux(n.Shape.Size())
	for _, a := range args {
		r.addNonneg(aux, addLin(a, negLin(t)))
	}
	return t, nil
}

// graphMaxEntries: scalar t with t·1 - x >= 0.
func graphMaxEntries(r *reducer, n *expr.Node, args []*linExpr) (*linExpr, error) {
	t := r.newAux(1)
	r.addNonneg(aux, addLin(promoteLin(t, args[0].rows), negLin(args[0])))
	return t, nil
}

// graphMinEntries: scalar t with x - t·1 >= 0.
func graphMinEntries(r *reducer, n *expr.Node, args []*linExpr) (*linExpr, error) {
	t := r.newAux(1)
	r.addNonneg(aux, addLin(args[0], negLin(promoteLin(t, args[0].rows))))
	return t, nil
}

// one is the constant 1 as a single affine row.
func one() *linExpr { return constLin([]float64{1}) }

// rowOf selects entry i of a multi-row expression.
func rowOf(l *linExpr, i int) *linExpr { return gatherLin(l, []int{i}) }

// socRotated emits ‖(2z, s - u)‖ <= s + u, the second-order encoding of
// ‖z‖² <= s·u for s, u >= 0.
func (r *reducer) socRotated(z, s, u *linExpr) {
	r.addSOC(aux, vcatLin(addLin(s, u), scaleLin(z, 2), addLin(s, negLin(u))))
}

// graphSquare: per entry, t_i with x_i² <= t_i via a rotated cone against
// the constant 1.
func graphSquare(r *reducer, n *expr.Node, args []*linExpr) (*linExpr, error) {
	m := n.Shape.Size()
	t := r.newAux(m)
	for i := 0; i < m; i++ {
		r.socRotated(rowOf(args[0], i), rowOf(t, i), one())
	}
	return t, nil
}

// graphSumSquares: scalar t with ‖x‖² <= t.
func graphSumSquares(r *reducer, n *expr.Node, args []*linExpr) (*linExpr, error) {
	t := r.newAux(1)
	r.socRotated(args[0], t, one())
	return t, nil
}

// graphQuadOverLin: scalar t with ‖x‖² <= t·y and y >= 0.
func graphQuadOverLin(r *reducer, n *expr.Node, args []*linExpr) (*linExpr, error) {
	t := r.newAux(1)
	r.addNonneg(aux, args[1])
	r.socRotated(args[0], t, args[1])
	return t, nil
}

// graphNorm1: entrywise bounds a with a - x >= 0, a + x >= 0; the value
// is their sum, with no extra scalar column.
func graphNorm1(r *reducer, n *expr.Node, args []*linExpr) (*linExpr, error) {
	a := r.newAux(args[0].rows)
	r.addNonneg(aux, addLin(a, negLin(args[0])))
	r.addNonneg(aux, addLin(a, args[0]))
	return sumLin(a), nil
}

// graphNorm2: scalar t with (t, x) second-order membership.
func graphNorm2(r *reducer, n *expr.Node, args []*linExpr) (*linExpr, error) {
	t := r.newAux(1)
	r.addSOC(aux, vcatLin(t, args[0]))
	return t, nil
}

// graphNormInf: scalar t with t·1 - x >= 0 and t·1 + x >= 0.
func graphNormInf(r *reducer, n *expr.Node, args []*linExpr) (*linExpr, error) {
	t := r.newAux(1)
	bt := promoteLin(t, args[0].rows)
	r.addNonneg(aux, addLin(bt, negLin(args[0])))
	r.addNonneg(aux, addLin(bt, args[0]))
	return t, nil
}

// graphSqrt: per entry, t_i with t_i² <= x_i. The hypograph direction is
// sound because sqrt only certifies in concave positions.
func graphSqrt(r *reducer, n *expr.Node, args []*linExpr) (*linExpr, error) {
	m := n.Shape.Size()
	t := r.newAux(m)
	for i := 0; i < m; i++ {
		r.socRotated(rowOf(t, i), rowOf(args[0], i), one())
	}
	return t, nil
}

// graphExp: per entry, (x_i, 1, t_i) exponential membership: e^x <= t.
func graphExp(r *reducer, n *expr.Node, args []*linExpr) (*linExpr, error) {
	m := n.Shape.Size()
	t := r.newAux(m)
	ones := constLin(onesVec(m))
	r.addExp(aux, interleave3(args[0], ones, t))
	return t, nil
}

// graphLog: per entry, (t_i, 1, x_i): e^t <= x, so t under-estimates
// log x.
func graphLog(r *reducer, n *expr.Node, args []*linExpr) (*linExpr, error) {
	m := n.Shape.Size()
	t := r.newAux(m)
	ones := constLin(onesVec(m))
	r.addExp(aux, interleave3(t, ones, args[0]))
	return t, nil
}

// graphEntr: per entry, (t_i, x_i, 1): x·e^{t/x} <= 1, so t <= -x·log x.
func graphEntr(r *reducer, n *expr.Node, args []*linExpr) (*linExpr, error) {
	m := n.Shape.Size()
	t := r.newAux(m)
	ones := constLin(onesVec(m))
	r.addExp(aux, interleave3(t, args[0], ones))
	return t, nil
}

// graphLogSumExp: scalar t and entrywise u with (x_i - t, 1, u_i)
// exponential members and Σu <= 1.
func graphLogSumExp(r *reducer, n *expr.Node, args []*linExpr) (*linExpr, error) {
	m := args[0].rows
	t := r.newAux(1)
	u := r.newAux(m)
	shifted := addLin(args[0], negLin(promoteLin(t, m)))
	r.addExp(aux, interleave3(shifted, constLin(onesVec(m)), u))
	r.addNonneg(aux, addLin(one(), negLin(sumLin(u))))
	return t, nil
}

// graphLambdaMax: scalar t with t·I - X ⪰ 0.
func graphLambdaMax(r *reducer, n *expr.Node, args []*linExpr) (*linExpr, error) {
	side := n.Args[0].Shape.Rows
	t := r.newAux(1)
	m := addLin(diagEmbed(t, side), negLin(args[0]))
	r.addPSD(aux, svecSymLin(m, side), side)
	return t, nil
}

// graphLambdaMin: scalar t with X - t·I ⪰ 0.
func graphLambdaMin(r *reducer, n *expr.Node, args []*linExpr) (*linExpr, error) {
	side := n.Args[0].Shape.Rows
	t := r.newAux(1)
	m := addLin(args[0], negLin(diagEmbed(t, side)))
	r.addPSD(aux, svecSymLin(m, side), side)
	return t, nil
}

func onesVec(m int) []float64 {
	v := make([]float64, m)
	for i := range v {
		v[i] = 1
	}
	return v
}

// diagEmbed places a scalar expression on the diagonal of an n×n matrix
// expression.
func diagEmbed(s *linExpr, n int) *linExpr {
	out := zeroLin(n * n)
	for i := 0; i < n; i++ {
		row := i*n + i
		for t := range s.tval {
			out.appendTriplet(row, s.tcol[t], s.tval[t])
		}
		if s.konst != nil && s.konst[0] != 0 {
			out.ensureKonst()[row] += s.konst[0]
		}
	}
	return out
}
