// Package ad implements automatic differentiation over Sever's
// expression model: a reverse-mode computation graph (this file) for the
// hot sampling loop, and a forward-mode dual-number evaluator (dual.go)
// for small-scale derivative checks.
//
// The graph is an owned value, not a package-level global: nodes are
// appended to a dense slice and referenced by NodeId, an index into that
// slice. Because a node's inputs are always indices strictly lower than
// its own (every primitive appends the result node after recording its
// operands), one reverse pass over the slice suffices for backward;
// there is no separate topological sort.
package ad

import (
	"math"

	"github.com/sever-lang/sever/sverr"
)

// NodeId indexes a node within a Graph. It is stable for the lifetime of
// the Graph that produced it.
type NodeId int

type opTag int

const (
	opConstant opTag = iota
	opVariable
	opAdd
	opSub
	opMul
	opDiv
	opNeg
	opLog
	opExp
	opSin
	opCos
	opSqrt
	opPow // power by a constant exponent, stored in node.aux
	opNormalLogProb
	opGammaLogProb
)

type node struct {
	op     opTag
	value  float64
	grad   float64
	inputs [3]NodeId // unused slots left at zero; n below says how many
	n      int
	aux    float64 // constant exponent for opPow
	name   string  // set for opVariable nodes only
}

// Graph is a reverse-mode autodiff graph. The zero value is not usable;
// construct with NewGraph.
type Graph struct {
	nodes  []node
	byName map[string]NodeId
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{byName: make(map[string]NodeId)}
}

// Len reports the number of nodes currently on the graph.
func (g *Graph) Len() int { return len(g.nodes) }

func (g *Graph) push(n node) NodeId {
	id := NodeId(len(g.nodes))
	g.nodes = append(g.nodes, n)
	return id
}

// Constant adds a constant-valued node and returns its id.
func (g *Graph) Constant(v float64) NodeId {
	return g.push(node{op: opConstant, value: v})
}

// Variable returns the node id for name, creating it with initial value v
// on first use. A second call with the same name returns the existing
// node's id unchanged; use UpdateVariable to change its value instead
// of calling Variable again with a new initial value.
func (g *Graph) Variable(name string, v float64) NodeId {
	if id, ok := g.byName[name]; ok {
		return id
	}
	id := g.push(node{op: opVariable, value: v, name: name})
	g.byName[name] = id
	return id
}

// UpdateVariable replaces a named node's value in place. It does not
// create a new node and does not affect the graph's topology.
func (g *Graph) UpdateVariable(name string, v float64) error {
	id, ok := g.byName[name]
	if !ok {
		return sverr.InvalidVariable
	}
	g.nodes[id].value = v
	return nil
}

// HasVariable reports whether name has a node on this graph.
func (g *Graph) HasVariable(name string) bool {
	_, ok := g.byName[name]
	return ok
}

// Value returns the current value at id.
func (g *Graph) Value(id NodeId) float64 { return g.nodes[id].value }

// Gradient returns the gradient accumulated at id by the most recent
// Backward call.
func (g *Graph) Gradient(id NodeId) float64 { return g.nodes[id].grad }

// GradientOf returns the gradient accumulated at the named variable node
// by the most recent Backward call.
func (g *Graph) GradientOf(name string) (float64, error) {
	id, ok := g.byName[name]
	if !ok {
		return 0, sverr.InvalidVariable
	}
	return g.nodes[id].grad, nil
}

func unary(a NodeId, op opTag, v float64) node {
	return node{op: op, value: v, inputs: [3]NodeId{a}, n: 1}
}

func binary(a, b NodeId, op opTag, v float64) node {
	return node{op: op, value: v, inputs: [3]NodeId{a, b}, n: 2}
}

// Add returns the node for a + b.
func (g *Graph) Add(a, b NodeId) NodeId {
	return g.push(binary(a, b, opAdd, g.nodes[a].value+g.nodes[b].value))
}

// Sub returns the node for a - b.
func (g *Graph) Sub(a, b NodeId) NodeId {
	return g.push(binary(a, b, opSub, g.nodes[a].value-g.nodes[b].value))
}

// Mul returns the node for a * b.
func (g *Graph) Mul(a, b NodeId) NodeId {
	return g.push(binary(a, b, opMul, g.nodes[a].value*g.nodes[b].value))
}

// Div returns the node for a / b. Division by zero is not guarded
// against with a panic: it produces +/-Inf or NaN the way float64
// division always does, and that non-finite value is left to propagate
// to the caller's log-density and cause proposal rejection.
func (g *Graph) Div(a, b NodeId) NodeId {
	return g.push(binary(a, b, opDiv, g.nodes[a].value/g.nodes[b].value))
}

// Neg returns the node for -a.
func (g *Graph) Neg(a NodeId) NodeId {
	return g.push(unary(a, opNeg, -g.nodes[a].value))
}

// Log returns the node for log(a). log of a non-positive value is
// reported as -Inf rather than NaN, so that a proposal straying outside
// a distribution's support cleanly compares as rejected rather than
// poisoning the acceptance ratio with NaN.
func (g *Graph) Log(a NodeId) NodeId {
	x := g.nodes[a].value
	var v float64
	if x <= 0 {
		v = math.Inf(-1)
	} else {
		v = math.Log(x)
	}
	return g.push(unary(a, opLog, v))
}

// Exp returns the node for exp(a).
func (g *Graph) Exp(a NodeId) NodeId {
	return g.push(unary(a, opExp, math.Exp(g.nodes[a].value)))
}

// Sin returns the node for sin(a).
func (g *Graph) Sin(a NodeId) NodeId {
	return g.push(unary(a, opSin, math.Sin(g.nodes[a].value)))
}

// Cos returns the node for cos(a).
func (g *Graph) Cos(a NodeId) NodeId {
	return g.push(unary(a, opCos, math.Cos(g.nodes[a].value)))
}

// Sqrt returns the node for sqrt(a).
func (g *Graph) Sqrt(a NodeId) NodeId {
	return g.push(unary(a, opSqrt, math.Sqrt(g.nodes[a].value)))
}

// Pow returns the node for a**c, c a compile-time (not graph) constant.
func (g *Graph) Pow(a NodeId, c float64) NodeId {
	n := unary(a, opPow, math.Pow(g.nodes[a].value, c))
	n.aux = c
	return g.push(n)
}

// NormalLogProb returns the node for the Normal(mu, sigma) log-density
// at x: -1/2 log(2 pi) - log(sigma) - 1/2 ((x-mu)/sigma)^2.
func (g *Graph) NormalLogProb(x, mu, sigma NodeId) NodeId {
	xv, muv, sv := g.nodes[x].value, g.nodes[mu].value, g.nodes[sigma].value
	z := (xv - muv) / sv
	v := -0.5*math.Log(2*math.Pi) - math.Log(sv) - 0.5*z*z
	n := node{op: opNormalLogProb, value: v, inputs: [3]NodeId{x, mu, sigma}, n: 3}
	return g.push(n)
}

// GammaLogProb returns the node for the rate-parameterized Gamma(alpha,
// beta) log-density at x: (alpha-1) log x - beta x + alpha log beta -
// log Gamma(alpha).
func (g *Graph) GammaLogProb(x, alpha, beta NodeId) NodeId {
	xv, av, bv := g.nodes[x].value, g.nodes[alpha].value, g.nodes[beta].value
	v := (av-1)*math.Log(xv) - bv*xv + av*math.Log(bv) - logGamma(av)
	n := node{op: opGammaLogProb, value: v, inputs: [3]NodeId{x, alpha, beta}, n: 3}
	return g.push(n)
}

// Backward zeroes every node's gradient, seeds root's gradient to 1, and
// propagates adjoints from root down to node 0. It must be called at
// most once per forward pass; call it again only after rebuilding (or
// re-seeding, via UpdateVariable, and re-running the same primitive
// calls against) the graph.
func (g *Graph) Backward(root NodeId) {
	for i := range g.nodes {
		g.nodes[i].grad = 0
	}
	g.nodes[root].grad = 1

	for i := int(root); i >= 0; i-- {
		nd := &g.nodes[i]
		a := nd.grad
		switch nd.op {
		case opConstant, opVariable:
			// no inputs to propagate to
		case opAdd:
			g.nodes[nd.inputs[0]].grad += a
			g.nodes[nd.inputs[1]].grad += a
		case opSub:
			g.nodes[nd.inputs[0]].grad += a
			g.nodes[nd.inputs[1]].grad -= a
		case opMul:
			x, y := nd.inputs[0], nd.inputs[1]
			g.nodes[x].grad += a * g.nodes[y].value
			g.nodes[y].grad += a * g.nodes[x].value
		case opDiv:
			x, y := nd.inputs[0], nd.inputs[1]
			yv := g.nodes[y].value
			dx := a / yv
			g.nodes[x].grad += dx
			g.nodes[y].grad += -dx * nd.value
		case opNeg:
			g.nodes[nd.inputs[0]].grad -= a
		case opLog:
			xv := g.nodes[nd.inputs[0]].value
			g.nodes[nd.inputs[0]].grad += a / xv
		case opExp:
			g.nodes[nd.inputs[0]].grad += a * nd.value
		case opSin:
			xv := g.nodes[nd.inputs[0]].value
			g.nodes[nd.inputs[0]].grad += a * math.Cos(xv)
		case opCos:
			xv := g.nodes[nd.inputs[0]].value
			g.nodes[nd.inputs[0]].grad += -a * math.Sin(xv)
		case opSqrt:
			g.nodes[nd.inputs[0]].grad += a * 0.5 / nd.value
		case opPow:
			xv := g.nodes[nd.inputs[0]].value
			g.nodes[nd.inputs[0]].grad += a * nd.aux * math.Pow(xv, nd.aux-1)
		case opNormalLogProb:
			x, mu, sigma := nd.inputs[0], nd.inputs[1], nd.inputs[2]
			xv, muv, sv := g.nodes[x].value, g.nodes[mu].value, g.nodes[sigma].value
			d := xv - muv
			s2 := sv * sv
			g.nodes[x].grad += -a * d / s2
			g.nodes[mu].grad += a * d / s2
			g.nodes[sigma].grad += a * (-1/sv + d*d/(s2*sv))
		case opGammaLogProb:
			x, alpha, beta := nd.inputs[0], nd.inputs[1], nd.inputs[2]
			xv, av, bv := g.nodes[x].value, g.nodes[alpha].value, g.nodes[beta].value
			g.nodes[x].grad += a * ((av-1)/xv - bv)
			g.nodes[alpha].grad += a * (math.Log(xv) + math.Log(bv) - digamma(av))
			g.nodes[beta].grad += a * (av/bv - xv)
		}
	}
}
