package infer

import (
	"math"
	"math/rand"

	"github.com/sever-lang/sever/sverr"
)

// GradLogProbFunc is the gradient log-density callable HMC takes:
// (params, out_gradients, context) -> logp. The implementation
// must populate out_gradients for every key present in params; a
// missing entry is treated as zero.
type GradLogProbFunc func(params map[string]float64, grad map[string]float64, ctx interface{}) float64

// HMCConfig configures an HMCSampler.
type HMCConfig struct {
	InitialStepSize  float64
	NumLeapfrogSteps int
	AdaptStepSize    bool
	AdaptationWindow int
	MassAdaptation   bool // reserved; no-op in this implementation
	NumSamples       int
	Burnin           int
	Thin             int
	Seed             *int64
}

// DefaultHMCConfig returns the standard defaults.
func DefaultHMCConfig() HMCConfig {
	return HMCConfig{
		InitialStepSize:  0.1,
		NumLeapfrogSteps: 10,
		AdaptStepSize:    true,
		AdaptationWindow: 500,
		NumSamples:       1000,
		Burnin:           0,
		Thin:             1,
	}
}

// HMCSampler is a leapfrog Hamiltonian Monte Carlo sampler
// with a diagonal, per-parameter mass matrix.
type HMCSampler struct {
	cfg      HMCConfig
	rng      *rand.Rand
	order    []string
	current  map[string]float64
	mass     map[string]float64
	bounds   map[string]Bounds
	traces   map[string]*ParameterTrace
	stepSize float64

	nAccepted int
	nProposed int
}

// NewHMCSampler constructs a sampler from cfg.
func NewHMCSampler(cfg HMCConfig) *HMCSampler {
	if cfg.Thin < 1 {
		cfg.Thin = 1
	}
	return &HMCSampler{
		cfg:      cfg,
		rng:      newRNG(cfg.Seed),
		current:  make(map[string]float64),
		mass:     make(map[string]float64),
		bounds:   make(map[string]Bounds),
		traces:   make(map[string]*ParameterTrace),
		stepSize: cfg.InitialStepSize,
	}
}

// SetParameterBounds installs (or replaces) the bounds for name. Each
// leapfrog position update clamps into them, so every recorded sample
// stays inside.
func (s *HMCSampler) SetParameterBounds(name string, b Bounds) {
	s.bounds[name] = b
}

// InitParameter registers name with its initial value and its entry in
// the diagonal mass matrix.
func (s *HMCSampler) InitParameter(name string, initial, mass float64) {
	if _, ok := s.current[name]; !ok {
		s.order = append(s.order, name)
	}
	s.current[name] = initial
	s.mass[name] = mass
	s.traces[name] = &ParameterTrace{}
}

func (s *HMCSampler) constrain(name string, v float64) float64 {
	if b, ok := s.bounds[name]; ok {
		return b.Constrain(v)
	}
	return v
}

func kineticEnergy(p, mass map[string]float64, order []string) float64 {
	k := 0.0
	for _, name := range order {
		pv := p[name]
		k += pv * pv / (2 * mass[name])
	}
	return k
}

func cloneFloatMap(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Sample runs the full HMC loop: each iteration draws fresh momentum,
// integrates num_leapfrog_steps of leapfrog dynamics, and accepts or
// rejects on the Hamiltonian error.
func (s *HMCSampler) Sample(gradFn GradLogProbFunc, ctx interface{}) error {
	total := s.cfg.Burnin + s.cfg.NumSamples

	for iter := 1; iter <= total; iter++ {
		snapshot := cloneFloatMap(s.current)

		p := make(map[string]float64, len(s.order))
		for _, name := range s.order {
			p[name] = s.rng.NormFloat64() * math.Sqrt(s.mass[name])
		}

		grad := make(map[string]float64, len(s.order))
		logp := gradFn(s.current, grad, ctx)
		u0 := -logp
		k0 := kineticEnergy(p, s.mass, s.order)
		h0 := u0 + k0

		logp = s.integrate(gradFn, ctx, p, grad)

		uf := -logp
		kf := kineticEnergy(p, s.mass, s.order)
		hf := uf + kf

		diff := h0 - hf
		acceptProb := math.Min(1, math.Exp(diff))
		accepted := acceptLogRatio(s.rng, diff)

		s.nProposed++
		if accepted {
			s.nAccepted++
		} else {
			s.current = snapshot
			logp = -u0
		}

		if s.cfg.AdaptStepSize {
			if acceptProb > 0.65 {
				s.stepSize *= 1.01
			} else {
				s.stepSize *= 0.99
			}
			if s.stepSize < 1e-6 {
				s.stepSize = 1e-6
			}
			if s.stepSize > 1 {
				s.stepSize = 1
			}
		}

		if iter > s.cfg.Burnin {
			postIdx := iter - s.cfg.Burnin
			if (postIdx-1)%s.cfg.Thin == 0 {
				for _, name := range s.order {
					s.traces[name].Append(s.current[name], accepted, logp)
				}
			}
		}
	}
	return nil
}

// integrate advances the current position and the momentum map p
// through one full leapfrog trajectory of cfg.NumLeapfrogSteps steps:
// half-step momentum, alternating full position and momentum steps,
// final half-step momentum. grad must already hold the gradient at the
// starting position; on return it holds the gradient at the final one.
// Returns the log-density at the final position.
func (s *HMCSampler) integrate(gradFn GradLogProbFunc, ctx interface{}, p, grad map[string]float64) float64 {
	for _, name := range s.order {
		p[name] += 0.5 * s.stepSize * grad[name]
	}
	for step := 0; step < s.cfg.NumLeapfrogSteps-1; step++ {
		for _, name := range s.order {
			s.current[name] = s.constrain(name, s.current[name]+s.stepSize*p[name]/s.mass[name])
			grad[name] = 0
		}
		gradFn(s.current, grad, ctx)
		for _, name := range s.order {
			p[name] += s.stepSize * grad[name]
		}
	}
	for _, name := range s.order {
		s.current[name] = s.constrain(name, s.current[name]+s.stepSize*p[name]/s.mass[name])
		grad[name] = 0
	}
	logp := gradFn(s.current, grad, ctx)
	for _, name := range s.order {
		p[name] += 0.5 * s.stepSize * grad[name]
	}
	return logp
}

// GetAcceptanceRate is the sampler-wide acceptance rate.
func (s *HMCSampler) GetAcceptanceRate() float64 {
	if s.nProposed == 0 {
		return 0
	}
	return float64(s.nAccepted) / float64(s.nProposed)
}

// GetTrace returns name's trace, or ok=false if name was never
// initialized.
func (s *HMCSampler) GetTrace(name string) (*ParameterTrace, bool) {
	tr, ok := s.traces[name]
	return tr, ok
}

// GetParameterStats summarizes name's trace.
func (s *HMCSampler) GetParameterStats(name string) (Stats, error) {
	tr, ok := s.traces[name]
	if !ok {
		return Stats{}, sverr.InvalidVariable
	}
	return Stats{
		Mean:           tr.Mean(),
		Variance:       tr.Variance(),
		Min:            tr.Min(),
		Max:            tr.Max(),
		AcceptanceRate: tr.AcceptanceRate(),
	}, nil
}

// GetEffectiveSampleSize reports name's ESS.
func (s *HMCSampler) GetEffectiveSampleSize(name string) (float64, error) {
	tr, ok := s.traces[name]
	if !ok {
		return 0, sverr.InvalidVariable
	}
	return tr.EffectiveSampleSize(), nil
}

// StepSize reports the current (possibly adapted) leapfrog step size.
func (s *HMCSampler) StepSize() float64 { return s.stepSize }

// ParameterOrder returns the parameters in insertion order.
func (s *HMCSampler) ParameterOrder() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Traces exposes the full trace set, keyed by parameter name.
func (s *HMCSampler) Traces() map[string]*ParameterTrace { return s.traces }
