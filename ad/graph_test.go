package ad

import (
	"math"
	"testing"
)

func closeTo(t *testing.T, name string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s: got %v, want %v (tol %v)", name, got, want, tol)
	}
}

// TestChainRuleSoundness: for f(x) = (x+1)^2, backward at x=2 yields
// df/dx = 6.
func TestChainRuleSoundness(t *testing.T) {
	g := NewGraph()
	x := g.Variable("x", 2)
	one := g.Constant(1)
	sum := g.Add(x, one)
	f := g.Mul(sum, sum)

	if got, want := g.Value(f), 9.0; got != want {
		t.Fatalf("f(2) = %v, want %v", got, want)
	}
	g.Backward(f)
	closeTo(t, "df/dx", g.Gradient(x), 6, 1e-12)
}

// TestAutodiffRegression: for f = x^2*y + x*y^2 at x=2, y=3, f = 30,
// df/dx = 21, df/dy = 16.
func TestAutodiffRegression(t *testing.T) {
	g := NewGraph()
	x := g.Variable("x", 2)
	y := g.Variable("y", 3)
	x2 := g.Mul(x, x)
	x2y := g.Mul(x2, y)
	y2 := g.Mul(y, y)
	xy2 := g.Mul(x, y2)
	f := g.Add(x2y, xy2)

	closeTo(t, "f", g.Value(f), 30, 1e-12)
	g.Backward(f)
	closeTo(t, "df/dx", g.Gradient(x), 21, 1e-12)
	closeTo(t, "df/dy", g.Gradient(y), 16, 1e-12)
}

func TestNormalLogProbHelper(t *testing.T) {
	g := NewGraph()
	x := g.Variable("x", 1)
	mu := g.Variable("mu", 0)
	sigma := g.Variable("sigma", 1)
	lp := g.NormalLogProb(x, mu, sigma)

	closeTo(t, "logp", g.Value(lp), -1.4189385, 1e-7)
	g.Backward(lp)
	closeTo(t, "d/dx", g.Gradient(x), -1, 1e-10)
	closeTo(t, "d/dmu", g.Gradient(mu), 1, 1e-10)
	closeTo(t, "d/dsigma", g.Gradient(sigma), 0, 1e-10)
}

func TestVariableUniqueness(t *testing.T) {
	g := NewGraph()
	first := g.Variable("x", 1)
	second := g.Variable("x", 99) // the 99 is ignored; x already exists
	if first != second {
		t.Fatalf("Variable(\"x\", ...) returned different ids: %v, %v", first, second)
	}
	if got := g.Value(first); got != 1 {
		t.Fatalf("second Variable call must not overwrite the value: got %v, want 1", got)
	}
}

// gradCase drives TestFiniteDifferenceGradients, which checks every
// primitive (and a small composition of them) against central finite
// differences.
type gradCase struct {
	name string
	x    float64
	f    func(g *Graph, x NodeId) NodeId
}

func TestFiniteDifferenceGradients(t *testing.T) {
	const h = 1e-6
	cases := []gradCase{
		{"add-const", 1.3, func(g *Graph, x NodeId) NodeId { return g.Add(x, g.Constant(2.0)) }},
		{"sub-const", 1.3, func(g *Graph, x NodeId) NodeId { return g.Sub(g.Constant(2.0), x) }},
		{"mul", 1.3, func(g *Graph, x NodeId) NodeId { return g.Mul(x, x) }},
		{"div", 1.3, func(g *Graph, x NodeId) NodeId { return g.Div(g.Constant(6.0), x) }},
		{"neg", 1.3, func(g *Graph, x NodeId) NodeId { return g.Neg(x) }},
		{"log", 1.3, func(g *Graph, x NodeId) NodeId { return g.Log(x) }},
		{"exp", 1.3, func(g *Graph, x NodeId) NodeId { return g.Exp(x) }},
		{"sin", 1.3, func(g *Graph, x NodeId) NodeId { return g.Sin(x) }},
		{"cos", 1.3, func(g *Graph, x NodeId) NodeId { return g.Cos(x) }},
		{"sqrt", 1.3, func(g *Graph, x NodeId) NodeId { return g.Sqrt(x) }},
		{"pow3", 1.3, func(g *Graph, x NodeId) NodeId { return g.Pow(x, 3) }},
		{"composite", 1.3, func(g *Graph, x NodeId) NodeId {
			return g.Mul(g.Sin(x), g.Exp(g.Neg(x)))
		}},
	}

	eval := func(c gradCase, x float64) float64 {
		g := NewGraph()
		xi := g.Variable("x", x)
		fi := c.f(g, xi)
		return g.Value(fi)
	}

	for _, c := range cases {
		g := NewGraph()
		xi := g.Variable("x", c.x)
		fi := c.f(g, xi)
		g.Backward(fi)
		analytic := g.Gradient(xi)

		fd := (eval(c, c.x+h) - eval(c, c.x-h)) / (2 * h)
		closeTo(t, c.name, analytic, fd, 1e-4)
	}
}

// TestGammaLogProbGradients checks the Gamma log-density primitive
// against central finite differences on all three inputs.
func TestGammaLogProbGradients(t *testing.T) {
	const h = 1e-6
	x0, alpha0, beta0 := 2.0, 3.0, 1.5

	value := func(x, alpha, beta float64) float64 {
		g := NewGraph()
		xi := g.Variable("x", x)
		ai := g.Variable("alpha", alpha)
		bi := g.Variable("beta", beta)
		return g.Value(g.GammaLogProb(xi, ai, bi))
	}

	g := NewGraph()
	x := g.Variable("x", x0)
	alpha := g.Variable("alpha", alpha0)
	beta := g.Variable("beta", beta0)
	lp := g.GammaLogProb(x, alpha, beta)
	g.Backward(lp)

	dx := (value(x0+h, alpha0, beta0) - value(x0-h, alpha0, beta0)) / (2 * h)
	da := (value(x0, alpha0+h, beta0) - value(x0, alpha0-h, beta0)) / (2 * h)
	db := (value(x0, alpha0, beta0+h) - value(x0, alpha0, beta0-h)) / (2 * h)

	closeTo(t, "d/dx", g.Gradient(x), dx, 1e-4)
	closeTo(t, "d/dalpha", g.Gradient(alpha), da, 1e-4)
	closeTo(t, "d/dbeta", g.Gradient(beta), db, 1e-4)
}

func TestLogOfNonPositiveIsMinusInfNotFault(t *testing.T) {
	g := NewGraph()
	x := g.Variable("x", -1)
	lp := g.Log(x)
	if v := g.Value(lp); !math.IsInf(v, -1) {
		t.Fatalf("log(-1) = %v, want -Inf", v)
	}
}

func TestUpdateVariableUnknownName(t *testing.T) {
	g := NewGraph()
	if err := g.UpdateVariable("missing", 1); err == nil {
		t.Fatal("expected an error updating an unknown variable")
	}
}
