package probfile

import (
	"fmt"
	"strconv"
	"strings"

	"cuelang.org/go/cue/ast"
	"cuelang.org/go/cue/parser"
	"cuelang.org/go/cue/token"

	"github.com/conicdev/conic"
)

// translator turns parsed CUE expressions into conic expressions over a
// fixed name scope.
type translator struct {
	scope map[string]conic.Expr
}

// expression parses and translates one expression string. anchor names
// the enclosing file field in error positions.
func (tr *translator) expression(anchor, src string) (conic.Expr, error) {
	x, err := parser.ParseExpr(anchor, src)
	if err != nil {
		return conic.Expr{}, formatCUEError(err)
	}
	return tr.walk(anchor, x)
}

// constraint parses a constraint string: a comparison (==, <=, >=) of
// two expressions, or a cone membership call (soc, psd, exp_cone).
func (tr *translator) constraint(anchor, src string) (conic.Constraint, error) {
	x, err := parser.ParseExpr(anchor, src)
	if err != nil {
		return conic.Constraint{}, formatCUEError(err)
	}
	switch e := x.(type) {
	case *ast.BinaryExpr:
		var rel func(lhs, rhs conic.Expr) conic.Constraint
		switch e.Op {
		case token.EQL:
			rel = conic.Eq
		case token.LEQ:
			rel = conic.Le
		case token.GEQ:
			rel = conic.Ge
		default:
			return conic.Constraint{}, &CompileError{
				Field:   anchor,
				Message: fmt.Sprintf("unsupported relation %s; use ==, <=, or >=", e.Op),
				Pos:     e.OpPos,
			}
		}
		lhs, err := tr.walk(anchor, e.X)
		if err != nil {
			return conic.Constraint{}, err
		}
		rhs, err := tr.walk(anchor, e.Y)
		if err != nil {
			return conic.Constraint{}, err
		}
		return tr.buildCon(anchor, e.OpPos, func() conic.Constraint { return rel(lhs, rhs) })

	case *ast.CallExpr:
		name, pos, err := callName(anchor, e)
		if err != nil {
			return conic.Constraint{}, err
		}
		args, err := tr.walkAll(anchor, e.Args)
		if err != nil {
			return conic.Constraint{}, err
		}
		switch name {
		case "soc":
			if len(args) != 2 {
				return conic.Constraint{}, arityError(anchor, pos, name, 2, len(args))
			}
			return tr.buildCon(anchor, pos, func() conic.Constraint { return conic.InSOC(args[0], args[1]) })
		case "psd":
			if len(args) != 1 {
				return conic.Constraint{}, arityError(anchor, pos, name, 1, len(args))
			}
			return tr.buildCon(anchor, pos, func() conic.Constraint { return conic.IsPSD(args[0]) })
		case "exp_cone":
			if len(args) != 3 {
				return conic.Constraint{}, arityError(anchor, pos, name, 3, len(args))
			}
			return tr.buildCon(anchor, pos, func() conic.Constraint { return conic.InExpCone(args[0], args[1], args[2]) })
		}
		return conic.Constraint{}, &CompileError{
			Field:   anchor,
			Message: fmt.Sprintf("%q is not a constraint; compare expressions or use soc, psd, exp_cone", name),
			Pos:     pos,
		}
	}
	return conic.Constraint{}, &CompileError{
		Field:   anchor,
		Message: "constraint must compare two expressions or state a cone membership",
		Pos:     x.Pos(),
	}
}

func (tr *translator) walk(anchor string, x ast.Expr) (conic.Expr, error) {
	switch e := x.(type) {
	case *ast.ParenExpr:
		return tr.walk(anchor, e.X)

	case *ast.Ident:
		ref, ok := tr.scope[e.Name]
		if !ok {
			return conic.Expr{}, &CompileError{
				Field:   anchor,
				Message: fmt.Sprintf("unknown name %q", e.Name),
				Pos:     e.NamePos,
			}
		}
		return ref, nil

	case *ast.BasicLit:
		return tr.literal(anchor, e)

	case *ast.UnaryExpr:
		inner, err := tr.walk(anchor, e.X)
		if err != nil {
			return conic.Expr{}, err
		}
		switch e.Op {
		case token.SUB:
			return tr.buildExpr(anchor, e.OpPos, func() conic.Expr { return conic.Neg(inner) })
		case token.ADD:
			return inner, nil
		}
		return conic.Expr{}, &CompileError{
			Field:   anchor,
			Message: fmt.Sprintf("unsupported unary operator %s", e.Op),
			Pos:     e.OpPos,
		}

	case *ast.BinaryExpr:
		switch e.Op {
		case token.EQL, token.LEQ, token.GEQ:
			return conic.Expr{}, &CompileError{
				Field:   anchor,
				Message: "comparisons are constraints; they cannot nest inside expressions",
				Pos:     e.OpPos,
			}
		case token.QUO:
			return tr.divide(anchor, e)
		case token.ADD, token.SUB, token.MUL:
		default:
			return conic.Expr{}, &CompileError{
				Field:   anchor,
				Message: fmt.Sprintf("unsupported operator %s", e.Op),
				Pos:     e.OpPos,
			}
		}
		lhs, err := tr.walk(anchor, e.X)
		if err != nil {
			return conic.Expr{}, err
		}
		rhs, err := tr.walk(anchor, e.Y)
		if err != nil {
			return conic.Expr{}, err
		}
		return tr.buildExpr(anchor, e.OpPos, func() conic.Expr {
			switch e.Op {
			case token.ADD:
				return conic.Add(lhs, rhs)
			case token.SUB:
				return conic.Sub(lhs, rhs)
			default:
				return conic.Mul(lhs, rhs)
			}
		})

	case *ast.CallExpr:
		return tr.call(anchor, e)
	}
	return conic.Expr{}, &CompileError{
		Field:   anchor,
		Message: fmt.Sprintf("unsupported syntax %T", x),
		Pos:     x.Pos(),
	}
}

// divide handles x / k for a numeric literal k, rewritten as (1/k)·x.
func (tr *translator) divide(anchor string, e *ast.BinaryExpr) (conic.Expr, error) {
	k, ok := numericLiteral(e.Y)
	if !ok {
		return conic.Expr{}, &CompileError{
			Field:   anchor,
			Message: "division requires a numeric literal divisor",
			Pos:     e.OpPos,
		}
	}
	if k == 0 {
		return conic.Expr{}, &CompileError{
			Field:   anchor,
			Message: "division by zero",
			Pos:     e.OpPos,
		}
	}
	lhs, err := tr.walk(anchor, e.X)
	if err != nil {
		return conic.Expr{}, err
	}
	return tr.buildExpr(anchor, e.OpPos, func() conic.Expr { return conic.Mul(conic.Scalar(1/k), lhs) })
}

func (tr *translator) literal(anchor string, lit *ast.BasicLit) (conic.Expr, error) {
	switch lit.Kind {
	case token.INT, token.FLOAT:
		v, err := parseNumber(lit.Value)
		if err != nil {
			return conic.Expr{}, &CompileError{
				Field:   anchor,
				Message: fmt.Sprintf("bad number %q", lit.Value),
				Pos:     lit.ValuePos,
			}
		}
		return conic.Scalar(v), nil
	}
	return conic.Expr{}, &CompileError{
		Field:   anchor,
		Message: fmt.Sprintf("unsupported literal %s", lit.Value),
		Pos:     lit.ValuePos,
	}
}

func (tr *translator) call(anchor string, e *ast.CallExpr) (conic.Expr, error) {
	name, pos, err := callName(anchor, e)
	if err != nil {
		return conic.Expr{}, err
	}
	switch name {
	case "soc", "psd", "exp_cone":
		return conic.Expr{}, &CompileError{
			Field:   anchor,
			Message: fmt.Sprintf("%s is a constraint, not an expression", name),
			Pos:     pos,
		}
	}
	sig, ok := atomCalls[name]
	if !ok {
		return conic.Expr{}, &CompileError{
			Field:   anchor,
			Message: fmt.Sprintf("unknown function %q", name),
			Pos:     pos,
		}
	}
	if len(e.Args) < sig.min || (sig.max >= 0 && len(e.Args) > sig.max) {
		return conic.Expr{}, sig.arityError(anchor, pos, name, len(e.Args))
	}
	args, err := tr.walkAll(anchor, e.Args)
	if err != nil {
		return conic.Expr{}, err
	}
	return tr.buildExpr(anchor, pos, func() conic.Expr { return sig.build(args) })
}

func (tr *translator) walkAll(anchor string, xs []ast.Expr) ([]conic.Expr, error) {
	out := make([]conic.Expr, len(xs))
	for i, x := range xs {
		e, err := tr.walk(anchor, x)
		if err != nil {
			return nil, err
		}
		out[i] = e
	}
	return out, nil
}

// buildExpr converts the construction panics of the expression builders
// into positioned errors; a malformed file is a user error here, not an
// API misuse.
func (tr *translator) buildExpr(anchor string, pos token.Pos, f func() conic.Expr) (e conic.Expr, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &CompileError{
				Field:   anchor,
				Message: strings.TrimPrefix(fmt.Sprint(r), "conic: "),
				Pos:     pos,
			}
		}
	}()
	return f(), nil
}

func (tr *translator) buildCon(anchor string, pos token.Pos, f func() conic.Constraint) (c conic.Constraint, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &CompileError{
				Field:   anchor,
				Message: strings.TrimPrefix(fmt.Sprint(r), "conic: "),
				Pos:     pos,
			}
		}
	}()
	return f(), nil
}

func callName(anchor string, call *ast.CallExpr) (string, token.Pos, error) {
	id, ok := call.Fun.(*ast.Ident)
	if !ok {
		return "", token.NoPos, &CompileError{
			Field:   anchor,
			Message: "calls must use a bare function name",
			Pos:     call.Fun.Pos(),
		}
	}
	return id.Name, id.NamePos, nil
}

func arityError(anchor string, pos token.Pos, name string, want, got int) error {
	return &CompileError{
		Field:   anchor,
		Message: fmt.Sprintf("%s takes %d arguments, got %d", name, want, got),
		Pos:     pos,
	}
}

func (s atomSig) arityError(anchor string, pos token.Pos, name string, got int) error {
	want := strconv.Itoa(s.min)
	if s.max < 0 {
		want = fmt.Sprintf("at least %d", s.min)
	} else if s.max != s.min {
		want = fmt.Sprintf("%d to %d", s.min, s.max)
	}
	return &CompileError{
		Field:   anchor,
		Message: fmt.Sprintf("%s takes %s arguments, got %d", name, want, got),
		Pos:     pos,
	}
}

// numericLiteral reports the value of a literal number, allowing a
// leading sign.
func numericLiteral(x ast.Expr) (float64, bool) {
	neg := false
	if u, ok := x.(*ast.UnaryExpr); ok && (u.Op == token.SUB || u.Op == token.ADD) {
		neg = u.Op == token.SUB
		x = u.X
	}
	lit, ok := x.(*ast.BasicLit)
	if !ok || (lit.Kind != token.INT && lit.Kind != token.FLOAT) {
		return 0, false
	}
	v, err := parseNumber(lit.Value)
	if err != nil {
		return 0, false
	}
	if neg {
		v = -v
	}
	return v, true
}

// parseNumber reads CUE integer and float literals. Underscore digit
// separators are allowed; multiplier suffixes (K, Mi) are not.
func parseNumber(s string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(s, "_", ""), 64)
}

type atomSig struct {
	min, max int // max < 0 means variadic
	build    func([]conic.Expr) conic.Expr
}

// atomCalls maps file-level function names to expression builders. The
// names match the atom registry's labels.
var atomCalls = map[string]atomSig{
	"abs":           {1, 1, func(a []conic.Expr) conic.Expr { return conic.Abs(a[0]) }},
	"pos":           {1, 1, func(a []conic.Expr) conic.Expr { return conic.Pos(a[0]) }},
	"square":        {1, 1, func(a []conic.Expr) conic.Expr { return conic.Square(a[0]) }},
	"sum_squares":   {1, 1, func(a []conic.Expr) conic.Expr { return conic.SumSquares(a[0]) }},
	"quad_over_lin": {2, 2, func(a []conic.Expr) conic.Expr { return conic.QuadOverLin(a[0], a[1]) }},
	"norm1":         {1, 1, func(a []conic.Expr) conic.Expr { return conic.Norm1(a[0]) }},
	"norm2":         {1, 1, func(a []conic.Expr) conic.Expr { return conic.Norm2(a[0]) }},
	"norm_inf":      {1, 1, func(a []conic.Expr) conic.Expr { return conic.NormInf(a[0]) }},
	"sqrt":          {1, 1, func(a []conic.Expr) conic.Expr { return conic.Sqrt(a[0]) }},
	"exp":           {1, 1, func(a []conic.Expr) conic.Expr { return conic.Exp(a[0]) }},
	"log":           {1, 1, func(a []conic.Expr) conic.Expr { return conic.Log(a[0]) }},
	"entr":          {1, 1, func(a []conic.Expr) conic.Expr { return conic.Entr(a[0]) }},
	"log_sum_exp":   {1, 1, func(a []conic.Expr) conic.Expr { return conic.LogSumExp(a[0]) }},
	"lambda_max":    {1, 1, func(a []conic.Expr) conic.Expr { return conic.LambdaMax(a[0]) }},
	"lambda_min":    {1, 1, func(a []conic.Expr) conic.Expr { return conic.LambdaMin(a[0]) }},
	"maximum":       {2, -1, func(a []conic.Expr) conic.Expr { return conic.Maximum(a[0], a[1], a[2:]...) }},
	"minimum":       {2, -1, func(a []conic.Expr) conic.Expr { return conic.Minimum(a[0], a[1], a[2:]...) }},
	"max":           {1, 1, func(a []conic.Expr) conic.Expr { return conic.Max(a[0]) }},
	"min":           {1, 1, func(a []conic.Expr) conic.Expr { return conic.Min(a[0]) }},
	"sum":           {1, 1, func(a []conic.Expr) conic.Expr { return conic.Sum(a[0]) }},
	"trace":         {1, 1, func(a []conic.Expr) conic.Expr { return conic.Trace(a[0]) }},
	"transpose":     {1, 1, func(a []conic.Expr) conic.Expr { return conic.Transpose(a[0]) }},
	"matmul":        {2, 2, func(a []conic.Expr) conic.Expr { return conic.MatMul(a[0], a[1]) }},
	"hstack":        {1, -1, func(a []conic.Expr) conic.Expr { return conic.HStack(a...) }},
	"vstack":        {1, -1, func(a []conic.Expr) conic.Expr { return conic.VStack(a...) }},
}
