// Package dist is the distribution library: a descriptor type for
// named probability distributions, a two-layer built-in/custom
// registry, and a mixture constructor.
package dist

import (
	"math"
	"math/rand"
)

// SupportKind names the subset of the reals (or integers, or a discrete
// set) a density is non-zero on. It constrains both sampling and
// parameter validation.
type SupportKind int

const (
	SupportRealLine SupportKind = iota
	SupportPositiveReal
	SupportUnitInterval
	SupportPositiveInteger
	SupportNonNegativeInteger
	SupportBoundedInterval
	SupportDiscreteSet
	SupportSimplex
	SupportPositiveDefiniteMatrix
)

func (s SupportKind) String() string {
	switch s {
	case SupportRealLine:
		return "real_line"
	case SupportPositiveReal:
		return "positive_real"
	case SupportUnitInterval:
		return "unit_interval"
	case SupportPositiveInteger:
		return "positive_integer"
	case SupportNonNegativeInteger:
		return "non_negative_integer"
	case SupportBoundedInterval:
		return "bounded_interval"
	case SupportDiscreteSet:
		return "discrete_set"
	case SupportSimplex:
		return "simplex"
	case SupportPositiveDefiniteMatrix:
		return "positive_definite_matrix"
	default:
		return "unknown"
	}
}

// Constraint records the admissible values for one parameter: min, max,
// positive-only, integer-only, and an optional predicate.
type Constraint struct {
	Min, Max     *float64
	PositiveOnly bool
	IntegerOnly  bool
	Predicate    func(float64) bool
}

// Satisfies reports whether v obeys the constraint. NaN and infinite
// values never satisfy any constraint.
func (c Constraint) Satisfies(v float64) bool {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return false
	}
	if c.PositiveOnly && v <= 0 {
		return false
	}
	if c.IntegerOnly && v != math.Trunc(v) {
		return false
	}
	if c.Min != nil && v < *c.Min {
		return false
	}
	if c.Max != nil && v > *c.Max {
		return false
	}
	if c.Predicate != nil && !c.Predicate(v) {
		return false
	}
	return true
}

func minOf(v float64) *float64 { return &v }
func maxOf(v float64) *float64 { return &v }

// Param is one entry in a distribution's ordered parameter list.
type Param struct {
	Name       string
	Constraint Constraint
}

// Moments holds a distribution's first two central moments, when its
// Distribution provides a MomentsFn.
type Moments struct {
	Mean     float64
	Variance float64
}

// Distribution is the descriptor (D): name, ordered parameter list with
// constraints, support kind, discreteness, optional exponential-family
// and location-scale flags, and the log-density/sampler/moment
// routines, held as closures rather than name-keyed indirection.
type Distribution struct {
	Name              string
	Params            []Param
	Support           SupportKind
	Discrete          bool
	ExponentialFamily bool
	LocationScale     bool
	Description       string

	// LogPdf computes the log-density at x given named parameter values.
	LogPdf func(x float64, params map[string]float64) float64

	// Sample draws one value using rng as the source of randomness.
	// Optional: a descriptor may be density-only.
	Sample func(rng *rand.Rand, params map[string]float64) float64

	// MomentsFn computes the distribution's mean/variance from its
	// parameters. Optional.
	MomentsFn func(params map[string]float64) (Moments, bool)
}

// ValidateParameters returns false if params is missing any of d's
// declared parameters, carries a key d does not declare, or supplies a
// value that violates its parameter's constraint.
func (d *Distribution) ValidateParameters(params map[string]float64) bool {
	for _, p := range d.Params {
		v, ok := params[p.Name]
		if !ok {
			return false
		}
		if !p.Constraint.Satisfies(v) {
			return false
		}
	}
	if len(params) > len(d.Params) {
		declared := make(map[string]bool, len(d.Params))
		for _, p := range d.Params {
			declared[p.Name] = true
		}
		for name := range params {
			if !declared[name] {
				return false
			}
		}
	}
	return true
}

// Moments reports the distribution's mean and variance, when available.
func (d *Distribution) Moments(params map[string]float64) (Moments, bool) {
	if d.MomentsFn == nil {
		return Moments{}, false
	}
	return d.MomentsFn(params)
}
