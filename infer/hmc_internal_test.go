package infer

import (
	"math"
	"testing"
)

// leapfrogHamiltonianError drives the sampler's own integrate method
// for a single leapfrog step on the quadratic potential U(x) = x^2/2
// and reports the Hamiltonian error it leaves.
func leapfrogHamiltonianError(step float64) float64 {
	cfg := DefaultHMCConfig()
	cfg.InitialStepSize = step
	cfg.NumLeapfrogSteps = 1
	cfg.AdaptStepSize = false
	s := NewHMCSampler(cfg)
	s.InitParameter("x", 1.0, 1.0)

	gradFn := func(params map[string]float64, grad map[string]float64, _ interface{}) float64 {
		x := params["x"]
		grad["x"] = -x
		return -0.5 * x * x
	}

	p := map[string]float64{"x": 0.5}
	grad := map[string]float64{}
	logp := gradFn(s.current, grad, nil)
	h0 := -logp + kineticEnergy(p, s.mass, s.order)

	logp = s.integrate(gradFn, nil, p, grad)
	h1 := -logp + kineticEnergy(p, s.mass, s.order)
	return math.Abs(h1 - h0)
}

// For U(x) = x^2/2, one step of the sampler's leapfrog integration
// leaves a Hamiltonian error of O(step^2).
func TestLeapfrogHamiltonianErrorIsSecondOrder(t *testing.T) {
	e1 := leapfrogHamiltonianError(1e-3)
	e2 := leapfrogHamiltonianError(1e-3 / 2)

	if e1 >= 1e-3 {
		t.Fatalf("Hamiltonian error %v at step 1e-3, want well under 1e-3", e1)
	}
	// Halving the step should shrink a genuinely O(step^2) error by
	// roughly a factor of 4; allow generous slack since this is a
	// single step, not an asymptotic limit.
	if e2 >= e1 {
		t.Fatalf("Hamiltonian error did not shrink with the step: %v at 1e-3, %v at 5e-4", e1, e2)
	}
}
