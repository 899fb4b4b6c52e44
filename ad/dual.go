package ad

import (
	"github.com/sever-lang/sever/expr"
	"github.com/sever-lang/sever/sverr"
)

// Dual is a forward-mode dual number: a value paired with the
// derivative of that value with respect to whichever variable was
// seeded with derivative 1.
type Dual struct {
	Value float64
	Deriv float64
}

// Seed returns a Dual representing an independent variable at v whose
// derivative is being tracked (seed 1) or held fixed (seed 0).
func Seed(v float64, seed int) Dual {
	return Dual{Value: v, Deriv: float64(seed)}
}

func dualAdd(a, b Dual) Dual { return Dual{a.Value + b.Value, a.Deriv + b.Deriv} }
func dualSub(a, b Dual) Dual { return Dual{a.Value - b.Value, a.Deriv - b.Deriv} }
func dualMul(a, b Dual) Dual {
	return Dual{a.Value * b.Value, a.Deriv*b.Value + a.Value*b.Deriv}
}
func dualDiv(a, b Dual) Dual {
	return Dual{
		a.Value / b.Value,
		(a.Deriv*b.Value - a.Value*b.Deriv) / (b.Value * b.Value),
	}
}
func dualNeg(a Dual) Dual { return Dual{-a.Value, -a.Deriv} }

// EvalForward walks an expression tree in forward mode, given a binding
// of variable name to its seeded Dual, and returns the dual result at
// the root. It supports literals, variables and the add/sub/mul/div/neg
// operators (unary negation is an Operator of kind OpSub with a single
// argument); any other node kind fails with sverr.InvalidOperation, and
// an unbound variable fails with sverr.InvalidVariable. It is intended
// for gradient-correctness checks on small expressions, not the
// sampling hot loop; see package ad's Graph for that.
func EvalForward(e *expr.Expr, vars map[string]Dual) (Dual, error) {
	switch e.Kind() {
	case expr.KindLiteral:
		switch e.LiteralTag() {
		case expr.LitFloat:
			return Dual{Value: e.FloatValue()}, nil
		case expr.LitInt:
			return Dual{Value: float64(e.IntValue())}, nil
		default:
			return Dual{}, sverr.InvalidOperation
		}
	case expr.KindVariable:
		d, ok := vars[e.Name()]
		if !ok {
			return Dual{}, sverr.InvalidVariable
		}
		return d, nil
	case expr.KindOperator:
		return evalForwardOperator(e, vars)
	default:
		return Dual{}, sverr.InvalidOperation
	}
}

func evalForwardOperator(e *expr.Expr, vars map[string]Dual) (Dual, error) {
	args := e.Args()

	arg := func(i int) (Dual, error) { return EvalForward(args[i], vars) }

	switch e.Operator() {
	case expr.OpSub:
		a, err := arg(0)
		if err != nil {
			return Dual{}, err
		}
		if len(args) == 1 {
			return dualNeg(a), nil
		}
		if len(args) != 2 {
			return Dual{}, sverr.InvalidOperation
		}
		b, err := arg(1)
		if err != nil {
			return Dual{}, err
		}
		return dualSub(a, b), nil
	case expr.OpAdd, expr.OpMul, expr.OpDiv:
		if len(args) != 2 {
			return Dual{}, sverr.InvalidOperation
		}
		a, err := arg(0)
		if err != nil {
			return Dual{}, err
		}
		b, err := arg(1)
		if err != nil {
			return Dual{}, err
		}
		switch e.Operator() {
		case expr.OpAdd:
			return dualAdd(a, b), nil
		case expr.OpMul:
			return dualMul(a, b), nil
		default:
			return dualDiv(a, b), nil
		}
	default:
		return Dual{}, sverr.InvalidOperation
	}
}
