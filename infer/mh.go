package infer

import (
	"math"
	"math/rand"

	"github.com/sever-lang/sever/sverr"
)

// LogProbFunc is the log-density callable MH and VI take:
// (params, context) -> logp, with domain violations reported as -Inf
// rather than an error, and no mutation of params.
type LogProbFunc func(params map[string]float64, ctx interface{}) float64

// MHConfig configures an MHSampler; see DefaultMHConfig for the
// defaults every field carries when unset.
type MHConfig struct {
	Method           string // "metropolis_hastings" or "adaptive_metropolis"
	NumSamples       int
	Burnin           int
	Thin             int
	StepSize         float64
	TargetAcceptRate float64
	AdaptStepSize    bool
	ParallelChains   int
	Seed             *int64
}

// DefaultMHConfig returns the standard defaults.
func DefaultMHConfig() MHConfig {
	return MHConfig{
		Method:           "metropolis_hastings",
		NumSamples:       1000,
		Burnin:           100,
		Thin:             1,
		StepSize:         0.1,
		TargetAcceptRate: 0.234,
		AdaptStepSize:    true,
		ParallelChains:   1,
	}
}

// MHSampler is a single-chain Metropolis-Hastings /
// Adaptive-Metropolis sampler over named real parameters.
type MHSampler struct {
	cfg     MHConfig
	rng     *rand.Rand
	order   []string
	current map[string]float64
	bounds  map[string]Bounds
	traces  map[string]*ParameterTrace

	best        map[string]float64
	haveBest    bool
	bestLogProb float64

	nAccepted int
	nProposed int
}

// NewMHSampler constructs a sampler from cfg; an unrecognized Method is
// accepted here and reported as NotImplemented only once Sample is
// called.
func NewMHSampler(cfg MHConfig) *MHSampler {
	return &MHSampler{
		cfg:     cfg,
		rng:     newRNG(cfg.Seed),
		current: make(map[string]float64),
		bounds:  make(map[string]Bounds),
		traces:  make(map[string]*ParameterTrace),
		best:    make(map[string]float64),
	}
}

// SetParameterBounds installs (or replaces) the bounds for name.
func (s *MHSampler) SetParameterBounds(name string, b Bounds) {
	s.bounds[name] = b
}

// InitParameter registers name with its initial value and creates its
// trace. Calling it twice for the same name resets that parameter's
// current value and trace.
func (s *MHSampler) InitParameter(name string, initial float64) {
	if _, ok := s.current[name]; !ok {
		s.order = append(s.order, name)
	}
	s.current[name] = initial
	s.traces[name] = &ParameterTrace{}
}

func isImplementedMHMethod(method string) bool {
	return method == "metropolis_hastings" || method == "adaptive_metropolis"
}

func acceptLogRatio(rng *rand.Rand, diff float64) bool {
	if math.IsNaN(diff) {
		return false
	}
	if diff >= 0 {
		return true
	}
	return math.Log(rng.Float64()) < diff
}

// proposalStdDev is the per-parameter proposal scale: step_size for
// metropolis_hastings, or (for adaptive_metropolis, once the trace has
// at least 10 samples) sqrt(var(trace)) * 2.38/sqrt(d). The variance is
// recomputed from the full trace each step, not a window.
func (s *MHSampler) proposalStdDev(name string) float64 {
	if s.cfg.Method != "adaptive_metropolis" {
		return s.cfg.StepSize
	}
	tr := s.traces[name]
	if tr.Len() < 10 {
		return s.cfg.StepSize
	}
	d := float64(len(s.order))
	return math.Sqrt(tr.Variance()) * 2.38 / math.Sqrt(d)
}

// Sample runs the full MH loop: burnin + num_samples iterations, every
// thin-th post-burnin iteration appended to each parameter's trace.
func (s *MHSampler) Sample(logProbFn LogProbFunc, ctx interface{}) error {
	if !isImplementedMHMethod(s.cfg.Method) {
		return sverr.NotImplemented
	}
	if s.cfg.Thin < 1 {
		s.cfg.Thin = 1
	}

	currentLogProb := logProbFn(s.current, ctx)
	windowAccepted := 0
	total := s.cfg.Burnin + s.cfg.NumSamples

	for iter := 1; iter <= total; iter++ {
		proposal := make(map[string]float64, len(s.order))
		for _, name := range s.order {
			sd := s.proposalStdDev(name)
			v := s.current[name] + s.rng.NormFloat64()*sd
			if b, ok := s.bounds[name]; ok {
				v = b.Constrain(v)
			}
			proposal[name] = v
		}

		proposedLogProb := logProbFn(proposal, ctx)
		diff := proposedLogProb - currentLogProb
		accepted := acceptLogRatio(s.rng, diff)

		s.nProposed++
		if accepted {
			s.current = proposal
			currentLogProb = proposedLogProb
			s.nAccepted++
			windowAccepted++
			if !s.haveBest || proposedLogProb > s.bestLogProb {
				s.haveBest = true
				s.bestLogProb = proposedLogProb
				for k, v := range s.current {
					s.best[k] = v
				}
			}
		}

		if iter > s.cfg.Burnin {
			postIdx := iter - s.cfg.Burnin
			if (postIdx-1)%s.cfg.Thin == 0 {
				for _, name := range s.order {
					s.traces[name].Append(s.current[name], accepted, currentLogProb)
				}
			}
		}

		if iter <= s.cfg.Burnin && s.cfg.AdaptStepSize && iter%50 == 0 {
			rate := float64(windowAccepted) / 50
			if rate < s.cfg.TargetAcceptRate-0.05 {
				s.cfg.StepSize *= 0.9
			} else if rate > s.cfg.TargetAcceptRate+0.05 {
				s.cfg.StepSize *= 1.1
			}
			windowAccepted = 0
		}
	}
	return nil
}

// GetTrace returns name's trace.
func (s *MHSampler) GetTrace(name string) (*ParameterTrace, error) {
	tr, ok := s.traces[name]
	if !ok {
		return nil, sverr.InvalidVariable
	}
	return tr, nil
}

// GetParameterStats summarizes name's trace.
func (s *MHSampler) GetParameterStats(name string) (Stats, error) {
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

// GetAcceptanceRate is the sampler-wide acceptance rate across every
// proposal made during Sample, independent of thinning.
func (s *MHSampler) GetAcceptanceRate() float64 {
	if s.nProposed == 0 {
		return 0
	}
	return float64(s.nAccepted) / float64(s.nProposed)
}

// GetEffectiveSampleSize reports name's ESS.
func (s *MHSampler) GetEffectiveSampleSize(name string) (float64, error) {
	tr, ok := s.traces[name]
	if !ok {
		return 0, sverr.InvalidVariable
	}
	return tr.EffectiveSampleSize(), nil
}

// StepSize reports the current (possibly burn-in-adapted) proposal
// step size.
func (s *MHSampler) StepSize() float64 { return s.cfg.StepSize }

// BestState returns the highest-log-density state visited, and whether
// any proposal has been accepted yet.
func (s *MHSampler) BestState() (map[string]float64, bool) {
	if !s.haveBest {
		return nil, false
	}
	out := make(map[string]float64, len(s.best))
	for k, v := range s.best {
		out[k] = v
	}
	return out, true
}

// ParameterOrder returns the parameters in insertion order, the order
// CSV export uses for columns.
func (s *MHSampler) ParameterOrder() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Traces exposes the full trace set, keyed by parameter name, for
// diagnostics across chains.
func (s *MHSampler) Traces() map[string]*ParameterTrace { return s.traces }
