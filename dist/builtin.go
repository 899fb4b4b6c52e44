package dist

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/sever-lang/sever/ad"
)

// builtIn is the hard-coded layer of the registry: Normal, Bernoulli,
// Exponential, plus Gamma so package model's graphical-model lowering
// has a registry entry matching ad.Graph's other differentiable
// log-density primitive (ad.GammaLogProb), letting hierarchical models
// like examples/schools validate and score their scale parameters
// through the same registry path as every other node. Sampling is delegated to
// gonum.org/v1/gonum/stat/distuv rather than hand-rolled inverse-CDF
// code.
var builtIn = map[string]*Distribution{
	"Normal": {
		Name: "Normal",
		Params: []Param{
			{Name: "mu"},
			{Name: "sigma", Constraint: Constraint{PositiveOnly: true}},
		},
		Support:       SupportRealLine,
		LocationScale: true,
		Description:   "Normal(mu, sigma): location-scale distribution on the real line.",
		LogPdf: func(x float64, p map[string]float64) float64 {
			mu, sigma := p["mu"], p["sigma"]
			z := (x - mu) / sigma
			return -0.5*math.Log(2*math.Pi) - math.Log(sigma) - 0.5*z*z
		},
		Sample: func(rng *rand.Rand, p map[string]float64) float64 {
			return distuv.Normal{Mu: p["mu"], Sigma: p["sigma"], Src: expRandSource{rng}}.Rand()
		},
		MomentsFn: func(p map[string]float64) (Moments, bool) {
			return Moments{Mean: p["mu"], Variance: p["sigma"] * p["sigma"]}, true
		},
	},
	"Bernoulli": {
		Name: "Bernoulli",
		Params: []Param{
			{Name: "p", Constraint: Constraint{Min: minOf(0), Max: maxOf(1)}},
		},
		Support:           SupportDiscreteSet,
		Discrete:          true,
		ExponentialFamily: true,
		Description:       "Bernoulli(p): single coin flip, support {0, 1}.",
		LogPdf: func(x float64, p map[string]float64) float64 {
			prob := p["p"]
			if x == 1 {
				return math.Log(prob)
			}
			if x == 0 {
				return math.Log(1 - prob)
			}
			return math.Inf(-1)
		},
		Sample: func(rng *rand.Rand, p map[string]float64) float64 {
			return distuv.Bernoulli{P: p["p"], Src: expRandSource{rng}}.Rand()
		},
		MomentsFn: func(p map[string]float64) (Moments, bool) {
			prob := p["p"]
			return Moments{Mean: prob, Variance: prob * (1 - prob)}, true
		},
	},
	"Gamma": {
		Name: "Gamma",
		Params: []Param{
			{Name: "alpha", Constraint: Constraint{PositiveOnly: true}},
			{Name: "beta", Constraint: Constraint{PositiveOnly: true}},
		},
		Support:           SupportPositiveReal,
		ExponentialFamily: true,
		Description:       "Gamma(alpha, beta): rate-parameterized shape/rate distribution, positive-real support.",
		LogPdf: func(x float64, p map[string]float64) float64 {
			if x <= 0 {
				return math.Inf(-1)
			}
			alpha, beta := p["alpha"], p["beta"]
			return (alpha-1)*math.Log(x) - beta*x + alpha*math.Log(beta) - ad.LogGamma(alpha)
		},
		Sample: func(rng *rand.Rand, p map[string]float64) float64 {
			return distuv.Gamma{Alpha: p["alpha"], Beta: p["beta"], Src: expRandSource{rng}}.Rand()
		},
		MomentsFn: func(p map[string]float64) (Moments, bool) {
			alpha, beta := p["alpha"], p["beta"]
			return Moments{Mean: alpha / beta, Variance: alpha / (beta * beta)}, true
		},
	},
	"Exponential": {
		Name: "Exponential",
		Params: []Param{
			{Name: "lambda", Constraint: Constraint{PositiveOnly: true}},
		},
		Support:           SupportPositiveReal,
		ExponentialFamily: true,
		Description:       "Exponential(lambda): waiting time, positive-real support.",
		LogPdf: func(x float64, p map[string]float64) float64 {
			if x < 0 {
				return math.Inf(-1)
			}
			lambda := p["lambda"]
			return math.Log(lambda) - lambda*x
		},
		Sample: func(rng *rand.Rand, p map[string]float64) float64 {
			return distuv.Exponential{Rate: p["lambda"], Src: expRandSource{rng}}.Rand()
		},
		MomentsFn: func(p map[string]float64) (Moments, bool) {
			lambda := p["lambda"]
			return Moments{Mean: 1 / lambda, Variance: 1 / (lambda * lambda)}, true
		},
	},
}
