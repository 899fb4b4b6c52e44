package dist

import (
	"math"
	"math/rand"
	"strconv"

	"github.com/pkg/errors"

	"github.com/sever-lang/sever/sverr"
)

// Component names one weighted distribution in a mixture.
type Component struct {
	DistributionName string
	Weight           float64
}

const weightTolerance = 1e-6

// NewMixture builds a Distribution whose log-density is the log of the
// weighted sum of its components' densities, log sum_k w_k p_k(x), and
// whose Sample first draws a component index proportional to weight
// then samples from it. Each component's own parameter names are
// namespaced by index ("0.mu", "1.mu", ...) in the mixture's combined
// parameter map, since two components may otherwise share a parameter
// name (e.g. two Normals both have "mu").
//
// components must be non-empty (sverr.EmptyMixture), every weight must
// be strictly positive (sverr.InvalidWeight), and the weights must sum
// to 1 within 1e-6 (sverr.WeightsNotNormalized).
func NewMixture(name string, reg *Registry, components []Component) (*Distribution, error) {
	if len(components) == 0 {
		return nil, sverr.EmptyMixture
	}

	sum := 0.0
	dists := make([]*Distribution, len(components))
	for i, c := range components {
		if c.Weight <= 0 {
			return nil, errors.Wrapf(sverr.InvalidWeight, "component %d (%s): weight %v", i, c.DistributionName, c.Weight)
		}
		d, ok := reg.GetDistribution(c.DistributionName)
		if !ok {
			return nil, errors.Wrapf(sverr.InvalidModel, "component %d: unknown distribution %q", i, c.DistributionName)
		}
		dists[i] = d
		sum += c.Weight
	}
	if math.Abs(sum-1) > weightTolerance {
		return nil, errors.Wrapf(sverr.WeightsNotNormalized, "weights sum to %v, want 1 +/- %v", sum, weightTolerance)
	}

	params := make([]Param, 0)
	for i, d := range dists {
		for _, p := range d.Params {
			params = append(params, Param{Name: componentPrefix(i) + p.Name, Constraint: p.Constraint})
		}
	}

	subParams := func(i int, params map[string]float64) map[string]float64 {
		sub := make(map[string]float64, len(dists[i].Params))
		p := componentPrefix(i)
		for k, v := range params {
			if len(k) > len(p) && k[:len(p)] == p {
				sub[k[len(p):]] = v
			}
		}
		return sub
	}

	return &Distribution{
		Name:        name,
		Params:      params,
		Support:     dists[0].Support,
		Description: "mixture distribution composed of " + name + "'s registered components",
		LogPdf: func(x float64, params map[string]float64) float64 {
			total := 0.0
			for i, c := range components {
				lp := dists[i].LogPdf(x, subParams(i, params))
				total += c.Weight * math.Exp(lp)
			}
			if total <= 0 {
				return math.Inf(-1)
			}
			return math.Log(total)
		},
		Sample: func(rng *rand.Rand, params map[string]float64) float64 {
			u := rng.Float64()
			acc := 0.0
			for i, c := range components {
				acc += c.Weight
				if u <= acc || i == len(components)-1 {
					return dists[i].Sample(rng, subParams(i, params))
				}
			}
			return dists[len(dists)-1].Sample(rng, subParams(len(dists)-1, params))
		},
	}, nil
}

func componentPrefix(i int) string {
	return strconv.Itoa(i) + "."
}
