package ad

import (
	"testing"

	"github.com/sever-lang/sever/expr"
)

func TestEvalForwardArithmetic(t *testing.T) {
	// f(x, y) = x*y + x; seed x to track d/dx.
	x := expr.NewVariable("x")
	y := expr.NewVariable("y")
	f := expr.NewOperator(expr.OpAdd, expr.NewOperator(expr.OpMul, x, y), x)

	vars := map[string]Dual{
		"x": Seed(2, 1),
		"y": Seed(3, 0),
	}
	got, err := EvalForward(f, vars)
	if err != nil {
		t.Fatalf("EvalForward: %v", err)
	}
	if got.Value != 8 {
		t.Errorf("value = %v, want 8", got.Value)
	}
	if got.Deriv != 4 { // d/dx (x*y + x) = y + 1 = 4
		t.Errorf("d/dx = %v, want 4", got.Deriv)
	}
}

func TestEvalForwardNegation(t *testing.T) {
	x := expr.NewVariable("x")
	neg := expr.NewOperator(expr.OpSub, x)
	got, err := EvalForward(neg, map[string]Dual{"x": Seed(5, 1)})
	if err != nil {
		t.Fatalf("EvalForward: %v", err)
	}
	if got.Value != -5 || got.Deriv != -1 {
		t.Errorf("got %+v, want {-5 -1}", got)
	}
}

func TestEvalForwardUnboundVariable(t *testing.T) {
	_, err := EvalForward(expr.NewVariable("z"), map[string]Dual{})
	if err == nil {
		t.Fatal("expected an error for an unbound variable")
	}
}

func TestEvalForwardUnsupportedKind(t *testing.T) {
	_, err := EvalForward(expr.NewSample("normal"), map[string]Dual{})
	if err == nil {
		t.Fatal("expected an error for a Sample node")
	}
}
