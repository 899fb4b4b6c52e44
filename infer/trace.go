package infer

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// ParameterTrace is the per-parameter sampling record: an ordered
// sequence of (sample value, accepted flag, log-density at that step),
// plus the derived statistics built on top of it.
type ParameterTrace struct {
	Values   []float64
	Accepted []bool
	LogProbs []float64
}

// Append records one more entry.
func (t *ParameterTrace) Append(value float64, accepted bool, logProb float64) {
	t.Values = append(t.Values, value)
	t.Accepted = append(t.Accepted, accepted)
	t.LogProbs = append(t.LogProbs, logProb)
}

// Len reports the trace length.
func (t *ParameterTrace) Len() int { return len(t.Values) }

// Mean is the sample mean of the recorded values.
func (t *ParameterTrace) Mean() float64 { return stat.Mean(t.Values, nil) }

// Variance is the sample variance of the recorded values.
func (t *ParameterTrace) Variance() float64 {
	if len(t.Values) < 2 {
		return 0
	}
	return stat.Variance(t.Values, nil)
}

// Min reports the smallest recorded value.
func (t *ParameterTrace) Min() float64 {
	m := math.Inf(1)
	for _, v := range t.Values {
		if v < m {
			m = v
		}
	}
	return m
}

// Max reports the largest recorded value.
func (t *ParameterTrace) Max() float64 {
	m := math.Inf(-1)
	for _, v := range t.Values {
		if v > m {
			m = v
		}
	}
	return m
}

// AcceptanceRate is the fraction of recorded entries whose Accepted flag
// is true.
func (t *ParameterTrace) AcceptanceRate() float64 {
	if len(t.Accepted) == 0 {
		return 0
	}
	n := 0
	for _, a := range t.Accepted {
		if a {
			n++
		}
	}
	return float64(n) / float64(len(t.Accepted))
}

// EffectiveSampleSize is the truncated-autocorrelation ESS:
// n / (1 + 2 sum_k rho(k)), summing while |rho(k)| >= 0.05 and
// k <= min(n/4, 100). A zero-variance trace (every value identical)
// returns 1 rather than dividing by zero.
func (t *ParameterTrace) EffectiveSampleSize() float64 {
	n := len(t.Values)
	if n == 0 {
		return 0
	}
	variance := t.Variance()
	if variance == 0 {
		return 1
	}
	mean := t.Mean()

	maxLag := n / 4
	if maxLag > 100 {
		maxLag = 100
	}
	sum := 0.0
	for k := 1; k <= maxLag; k++ {
		rho := autocorrelation(t.Values, mean, variance, k)
		if math.Abs(rho) < 0.05 {
			break
		}
		sum += rho
	}
	denom := 1 + 2*sum
	if denom < 1 {
		denom = 1
	}
	ess := float64(n) / denom
	if ess > float64(n) {
		ess = float64(n)
	}
	return ess
}

func autocorrelation(values []float64, mean, variance float64, lag int) float64 {
	n := len(values)
	var c float64
	for i := 0; i < n-lag; i++ {
		c += (values[i] - mean) * (values[i+lag] - mean)
	}
	c /= float64(n)
	return c / variance
}

// Stats is the summary bundle GetParameterStats returns.
type Stats struct {
	Mean           float64
	Variance       float64
	Min            float64
	Max            float64
	AcceptanceRate float64
}
