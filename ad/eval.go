package ad

import (
	"github.com/sever-lang/sever/expr"
	"github.com/sever-lang/sever/sverr"
)

// Eval walks e, appending the nodes needed to compute it onto g, and
// returns the id of the resulting node. vars supplies the initial value
// for every Variable node encountered; a name missing from vars fails
// with sverr.InvalidVariable. A variable name resolves through
// Graph.Variable, so every occurrence of one name shares a single node,
// and a name already on g keeps its existing value. Repeated
// subexpressions are not deduplicated: each walk of the tree appends
// fresh nodes, which is what lets the same expression be re-evaluated
// at a new point by calling Eval again on a fresh Graph.
//
// Only the variants a continuous log-density needs are supported:
// Literal, Variable, the arithmetic operators (add/sub/mul/div and
// unary negation), and Call nodes naming "log", "exp", "sin", "cos",
// "sqrt", "pow" (with a literal exponent), "normalLogProb" and
// "gammaLogProb". Sample, Index, Field, Array and Cast nodes are the
// responsibility of the caller-supplied log-density function, not of
// the graph primitives. Eval reports them, and any other unsupported
// variant, as sverr.InvalidOperation.
func (g *Graph) Eval(e *expr.Expr, vars map[string]float64) (NodeId, error) {
	switch e.Kind() {
	case expr.KindLiteral:
		switch e.LiteralTag() {
		case expr.LitFloat:
			return g.Constant(e.FloatValue()), nil
		case expr.LitInt:
			return g.Constant(float64(e.IntValue())), nil
		default:
			return 0, sverr.InvalidOperation
		}
	case expr.KindVariable:
		v, ok := vars[e.Name()]
		if !ok {
			return 0, sverr.InvalidVariable
		}
		return g.Variable(e.Name(), v), nil
	case expr.KindOperator:
		return g.evalOperator(e, vars)
	case expr.KindCall:
		return g.evalCall(e, vars)
	default:
		return 0, sverr.InvalidOperation
	}
}

func (g *Graph) evalOperator(e *expr.Expr, vars map[string]float64) (NodeId, error) {
	args := e.Args()
	switch e.Operator() {
	case expr.OpSub:
		a, err := g.Eval(args[0], vars)
		if err != nil {
			return 0, err
		}
		if len(args) == 1 {
			return g.Neg(a), nil
		}
		if len(args) != 2 {
			return 0, sverr.InvalidOperation
		}
		b, err := g.Eval(args[1], vars)
		if err != nil {
			return 0, err
		}
		return g.Sub(a, b), nil
	case expr.OpAdd, expr.OpMul, expr.OpDiv:
		if len(args) != 2 {
			return 0, sverr.InvalidOperation
		}
		a, err := g.Eval(args[0], vars)
		if err != nil {
			return 0, err
		}
		b, err := g.Eval(args[1], vars)
		if err != nil {
			return 0, err
		}
		switch e.Operator() {
		case expr.OpAdd:
			return g.Add(a, b), nil
		case expr.OpMul:
			return g.Mul(a, b), nil
		default:
			return g.Div(a, b), nil
		}
	default:
		return 0, sverr.InvalidOperation
	}
}

func (g *Graph) evalCall(e *expr.Expr, vars map[string]float64) (NodeId, error) {
	args := e.Args()
	one := func() (NodeId, error) {
		if len(args) != 1 {
			return 0, sverr.InvalidOperation
		}
		return g.Eval(args[0], vars)
	}
	three := func() (NodeId, NodeId, NodeId, error) {
		if len(args) != 3 {
			return 0, 0, 0, sverr.InvalidOperation
		}
		a, err := g.Eval(args[0], vars)
		if err != nil {
			return 0, 0, 0, err
		}
		b, err := g.Eval(args[1], vars)
		if err != nil {
			return 0, 0, 0, err
		}
		c, err := g.Eval(args[2], vars)
		if err != nil {
			return 0, 0, 0, err
		}
		return a, b, c, nil
	}

	switch e.Name() {
	case "log":
		a, err := one()
		if err != nil {
			return 0, err
		}
		return g.Log(a), nil
	case "exp":
		a, err := one()
		if err != nil {
			return 0, err
		}
		return g.Exp(a), nil
	case "sin":
		a, err := one()
		if err != nil {
			return 0, err
		}
		return g.Sin(a), nil
	case "cos":
		a, err := one()
		if err != nil {
			return 0, err
		}
		return g.Cos(a), nil
	case "sqrt":
		a, err := one()
		if err != nil {
			return 0, err
		}
		return g.Sqrt(a), nil
	case "pow":
		if len(args) != 2 || args[1].Kind() != expr.KindLiteral {
			return 0, sverr.InvalidOperation
		}
		a, err := g.Eval(args[0], vars)
		if err != nil {
			return 0, err
		}
		var c float64
		switch args[1].LiteralTag() {
		case expr.LitFloat:
			c = args[1].FloatValue()
		case expr.LitInt:
			c = float64(args[1].IntValue())
		default:
			return 0, sverr.InvalidOperation
		}
		return g.Pow(a, c), nil
	case "normalLogProb":
		x, mu, sigma, err := three()
		if err != nil {
			return 0, err
		}
		return g.NormalLogProb(x, mu, sigma), nil
	case "gammaLogProb":
		x, alpha, beta, err := three()
		if err != nil {
			return 0, err
		}
		return g.GammaLogProb(x, alpha, beta), nil
	default:
		return 0, sverr.InvalidOperation
	}
}
