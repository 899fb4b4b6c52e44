package infer

import (
	"log"
	"sync"

	"github.com/modern-go/gls"
)

// RunChains runs n independent MH chains concurrently, each built by
// newSampler(chainIndex, seed) and driven to completion by run, and
// returns every finished sampler in chain order. Chains are fully
// independent sampler instances sharing no mutable state, one per
// goroutine; the finishing log line is tagged with the goroutine id so
// interleaved multi-chain output stays attributable.
func RunChains(n int, seeds []int64, newSampler func(chainIndex int, seed int64) *MHSampler, run func(s *MHSampler) error) ([]*MHSampler, []error) {
	samplers := make([]*MHSampler, n)
	errs := make([]error, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s := newSampler(i, seeds[i])
			samplers[i] = s
			errs[i] = run(s)
			if n != 1 {
				log.Printf("chain %d finished on goroutine %v", i, gls.GoID())
			}
		}(i)
	}
	wg.Wait()

	return samplers, errs
}

// GradientAscentFunc is the per-step callable WarmStart drives:
// evaluate the gradient of the log-density at x in place and return the
// log-density. It is GradLogProbFunc restricted to a positional
// (rather than named) parameter vector.
type GradientAscentFunc func(x []float64, grad []float64) float64

// WarmStart performs niter steps of momentum-based gradient ascent on x
// in place, returning the final log-density: a maximum-likelihood warm
// start for a chain's initial position before MH/HMC sampling begins.
func WarmStart(x []float64, f GradientAscentFunc, niter int, rate, decay, gamma float64) float64 {
	v := make([]float64, len(x))
	grad := make([]float64, len(x))
	ll := 0.0
	r := rate
	for iter := 0; iter < niter; iter++ {
		ll = f(x, grad)
		for j := range x {
			v[j] = gamma*v[j] + r*grad[j]
			x[j] += v[j]
		}
		r *= decay
	}
	return ll
}
