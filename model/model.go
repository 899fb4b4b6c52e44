// Package model lowers a small graphical-model DSL (named random
// variables with distribution and parameter expressions, some fixed to
// observed values) into the plain and gradient log-density callables
// package infer already knows how to drive (LogProbFunc and
// GradLogProbFunc).
//
// A GraphicalModel is built once, in dependency order, then validated:
// every parameter expression must only reference earlier variables or
// bound data, and every variable marked observed must carry a value.
package model

import (
	"math"

	"github.com/pkg/errors"

	"github.com/sever-lang/sever/ad"
	"github.com/sever-lang/sever/dist"
	"github.com/sever-lang/sever/expr"
	"github.com/sever-lang/sever/sverr"
)

// Node is one random variable: a name, the distribution it follows, and
// parameter expressions over data and earlier nodes.
type Node struct {
	Name         string
	Distribution string
	Params       map[string]*expr.Expr
	IsObserved   bool
	Value        float64
	hasValue     bool
}

// GraphicalModel is a DAG of Nodes plus fixed external data, lowered on
// demand into a log-density over its latent (non-observed) variables.
type GraphicalModel struct {
	reg   *dist.Registry
	nodes map[string]*Node
	order []string
	data  map[string]float64
}

// NewGraphicalModel returns an empty model resolving distribution names
// against reg.
func NewGraphicalModel(reg *dist.Registry) *GraphicalModel {
	return &GraphicalModel{
		reg:   reg,
		nodes: make(map[string]*Node),
		data:  make(map[string]float64),
	}
}

// SetData binds a fixed external constant (e.g. per-group observed
// data) that parameter expressions may reference alongside earlier
// nodes. Data does not participate in Validate's topological check.
func (m *GraphicalModel) SetData(name string, value float64) {
	m.data[name] = value
}

// AddVariable declares name as following distribution, with params as
// its parameter expressions. A second call with the same name replaces
// the earlier declaration in place, keeping its original position.
func (m *GraphicalModel) AddVariable(name, distribution string, params map[string]*expr.Expr) {
	if _, ok := m.nodes[name]; !ok {
		m.order = append(m.order, name)
	}
	m.nodes[name] = &Node{Name: name, Distribution: distribution, Params: params}
}

// Observe fixes name's value and marks it an observation site.
func (m *GraphicalModel) Observe(name string, value float64) error {
	n, ok := m.nodes[name]
	if !ok {
		return errors.Wrapf(sverr.InvalidModel, "observe: unknown variable %q", name)
	}
	n.IsObserved = true
	n.Value = value
	n.hasValue = true
	return nil
}

// MarkObserved declares name an observation site without supplying its
// value yet. A model left in this state fails Validate until a later
// Observe call fills the value in.
func (m *GraphicalModel) MarkObserved(name string) {
	if n, ok := m.nodes[name]; ok {
		n.IsObserved = true
	}
}

// LatentNames returns the declaration-order names of variables that are
// not observed, the free parameters a sampler explores.
func (m *GraphicalModel) LatentNames() []string {
	out := make([]string, 0, len(m.order))
	for _, name := range m.order {
		if !m.nodes[name].IsObserved {
			out = append(out, name)
		}
	}
	return out
}

// Validate checks every parameter expression's referenced variables
// resolve to bound data or an earlier node (never itself or a
// not-yet-declared name), and that every node marked observed carries a
// value. Both failures are reported as sverr.InvalidModel.
func (m *GraphicalModel) Validate() error {
	if len(m.nodes) == 0 {
		return errors.Wrap(sverr.InvalidModel, "model has no variables")
	}
	seen := make(map[string]bool, len(m.order))
	for _, name := range m.order {
		n := m.nodes[name]
		if !m.reg.HasDistribution(n.Distribution) {
			return errors.Wrapf(sverr.InvalidModel, "variable %q: unknown distribution %q", name, n.Distribution)
		}
		for paramName, pe := range n.Params {
			for _, ref := range referencedVariables(pe) {
				if ref == name {
					return errors.Wrapf(sverr.InvalidModel,
						"variable %q parameter %q references itself", name, paramName)
				}
				if _, isData := m.data[ref]; isData {
					continue
				}
				if !seen[ref] {
					return errors.Wrapf(sverr.InvalidModel,
						"variable %q parameter %q references unknown or not-yet-defined parent %q", name, paramName, ref)
				}
			}
		}
		if n.IsObserved && !n.hasValue {
			return errors.Wrapf(sverr.InvalidModel, "variable %q is marked observed but has no value", name)
		}
		seen[name] = true
	}
	return nil
}

// referencedVariables collects every Variable name reachable from e.
// Index, Field and Cast nodes are walked through their accessors; every
// other kind falls to the default branch, which walks its Args.
func referencedVariables(e *expr.Expr) []string {
	var out []string
	var walk func(*expr.Expr)
	walk = func(n *expr.Expr) {
		if n == nil {
			return
		}
		switch n.Kind() {
		case expr.KindVariable:
			out = append(out, n.Name())
		case expr.KindIndex:
			walk(n.Base())
			walk(n.IndexArg())
		case expr.KindField:
			walk(n.Base())
		case expr.KindCast:
			walk(n.CastValue())
		default:
			for _, a := range n.Args() {
				walk(a)
			}
		}
	}
	walk(e)
	return out
}

func (m *GraphicalModel) baseEnv() map[string]float64 {
	env := make(map[string]float64, len(m.order)+len(m.data))
	for k, v := range m.data {
		env[k] = v
	}
	return env
}

// LogDensity is an infer.LogProbFunc: the total log joint density summed
// over every node, with vars supplying the latent variables' current
// values. A node whose latent value is missing, whose resolved
// parameters fail the registry's constraints, or whose parameter
// expression touches an unsupported construct makes the whole density
// -Inf rather than returning an error, the same numerical-issues-are-
// silent contract as package ad.
func (m *GraphicalModel) LogDensity(vars map[string]float64, _ interface{}) float64 {
	env := m.baseEnv()
	for k, v := range vars {
		env[k] = v
	}

	total := 0.0
	for _, name := range m.order {
		n := m.nodes[name]
		x, ok := env[name]
		if n.IsObserved {
			x = n.Value
		} else if !ok {
			return math.Inf(-1)
		}

		params := make(map[string]float64, len(n.Params))
		for paramName, pe := range n.Params {
			v, err := evalArithmetic(pe, env)
			if err != nil {
				return math.Inf(-1)
			}
			params[paramName] = v
		}

		d, ok := m.reg.GetDistribution(n.Distribution)
		if !ok || !d.ValidateParameters(params) {
			return math.Inf(-1)
		}
		total += d.LogPdf(x, params)
		env[name] = x
	}
	return total
}

// GradLogDensity is an infer.GradLogProbFunc: the total log joint
// density plus its gradient with respect to every latent in params,
// built by running one ad.Graph reverse pass over the model. Unlike
// LogDensity, which can score a node under any registered distribution,
// every node here must be Normal or Gamma, the only two densities
// package ad has differentiable primitives for; anything else, or a
// missing required parameter, makes the density -Inf and leaves grad
// untouched.
func (m *GraphicalModel) GradLogDensity(params map[string]float64, grad map[string]float64, _ interface{}) float64 {
	g := ad.NewGraph()
	env := m.baseEnv()
	for k, v := range params {
		env[k] = v
	}

	var total ad.NodeId
	first := true
	for _, name := range m.order {
		n := m.nodes[name]
		x, ok := env[name]
		if n.IsObserved {
			x = n.Value
		} else if !ok {
			return math.Inf(-1)
		}
		xid := g.Variable(name, x)
		env[name] = x

		var ll ad.NodeId
		var err error
		switch n.Distribution {
		case "Normal":
			ll, err = normalLogProbNode(g, n, xid, env)
		case "Gamma":
			ll, err = gammaLogProbNode(g, n, xid, env)
		default:
			err = sverr.InvalidOperation
		}
		if err != nil {
			return math.Inf(-1)
		}
		if first {
			total, first = ll, false
		} else {
			total = g.Add(total, ll)
		}
	}

	g.Backward(total)
	for name := range params {
		if gv, err := g.GradientOf(name); err == nil {
			grad[name] = gv
		}
	}
	return g.Value(total)
}

func normalLogProbNode(g *ad.Graph, n *Node, xid ad.NodeId, env map[string]float64) (ad.NodeId, error) {
	muExpr, ok := n.Params["mu"]
	if !ok {
		return 0, errors.Wrapf(sverr.InvalidModel, "variable %q missing parameter mu", n.Name)
	}
	sigmaExpr, ok := n.Params["sigma"]
	if !ok {
		return 0, errors.Wrapf(sverr.InvalidModel, "variable %q missing parameter sigma", n.Name)
	}
	mu, err := g.Eval(muExpr, env)
	if err != nil {
		return 0, err
	}
	sigma, err := g.Eval(sigmaExpr, env)
	if err != nil {
		return 0, err
	}
	return g.NormalLogProb(xid, mu, sigma), nil
}

func gammaLogProbNode(g *ad.Graph, n *Node, xid ad.NodeId, env map[string]float64) (ad.NodeId, error) {
	alphaExpr, ok := n.Params["alpha"]
	if !ok {
		return 0, errors.Wrapf(sverr.InvalidModel, "variable %q missing parameter alpha", n.Name)
	}
	betaExpr, ok := n.Params["beta"]
	if !ok {
		return 0, errors.Wrapf(sverr.InvalidModel, "variable %q missing parameter beta", n.Name)
	}
	alpha, err := g.Eval(alphaExpr, env)
	if err != nil {
		return 0, err
	}
	beta, err := g.Eval(betaExpr, env)
	if err != nil {
		return 0, err
	}
	return g.GammaLogProb(xid, alpha, beta), nil
}

// evalArithmetic resolves a parameter expression directly against env,
// without an autodiff graph. It supports the same arithmetic subset as
// ad.Graph.Eval (literals, variables, +-*/ and unary negation, plus the
// unary log/exp/sqrt calls) since parameter expressions never need their
// own gradient; only the node's sampled value does.
func evalArithmetic(e *expr.Expr, env map[string]float64) (float64, error) {
	switch e.Kind() {
	case expr.KindLiteral:
		switch e.LiteralTag() {
		case expr.LitFloat:
			return e.FloatValue(), nil
		case expr.LitInt:
			return float64(e.IntValue()), nil
		default:
			return 0, sverr.InvalidOperation
		}
	case expr.KindVariable:
		v, ok := env[e.Name()]
		if !ok {
			return 0, sverr.InvalidVariable
		}
		return v, nil
	case expr.KindOperator:
		return evalArithmeticOperator(e, env)
	case expr.KindCall:
		return evalArithmeticCall(e, env)
	default:
		return 0, sverr.InvalidOperation
	}
}

func evalArithmeticOperator(e *expr.Expr, env map[string]float64) (float64, error) {
	args := e.Args()
	switch e.Operator() {
	case expr.OpSub:
		a, err := evalArithmetic(args[0], env)
		if err != nil {
			return 0, err
		}
		if len(args) == 1 {
			return -a, nil
		}
		if len(args) != 2 {
			return 0, sverr.InvalidOperation
		}
		b, err := evalArithmetic(args[1], env)
		if err != nil {
			return 0, err
		}
		return a - b, nil
	case expr.OpAdd, expr.OpMul, expr.OpDiv:
		if len(args) != 2 {
			return 0, sverr.InvalidOperation
		}
		a, err := evalArithmetic(args[0], env)
		if err != nil {
			return 0, err
		}
		b, err := evalArithmetic(args[1], env)
		if err != nil {
			return 0, err
		}
		switch e.Operator() {
		case expr.OpAdd:
			return a + b, nil
		case expr.OpMul:
			return a * b, nil
		default:
			return a / b, nil
		}
	default:
		return 0, sverr.InvalidOperation
	}
}

func evalArithmeticCall(e *expr.Expr, env map[string]float64) (float64, error) {
	args := e.Args()
	if len(args) != 1 {
		return 0, sverr.InvalidOperation
	}
	a, err := evalArithmetic(args[0], env)
	if err != nil {
		return 0, err
	}
	switch e.Name() {
	case "log":
		if a <= 0 {
			return math.Inf(-1), nil
		}
		return math.Log(a), nil
	case "exp":
		return math.Exp(a), nil
	case "sqrt":
		return math.Sqrt(a), nil
	default:
		return 0, sverr.InvalidOperation
	}
}
