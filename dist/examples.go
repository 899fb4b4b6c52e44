package dist

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/sever-lang/sever/ad"
)

// CreateExampleDistributions registers a fixed set of distributions
// beyond the built-ins, so callers have richer material for demos and
// tests without writing their own descriptors: BetaBinomial,
// GaussianMixture, StudentT and Dirichlet. Names and parameter shapes
// are fixed by this function.
func CreateExampleDistributions(reg *Registry) error {
	reg.Register(betaBinomial())
	reg.Register(studentT())
	reg.Register(dirichlet3())

	gm, err := NewMixture("GaussianMixture", reg, []Component{
		{DistributionName: "Normal", Weight: 0.5},
		{DistributionName: "Normal", Weight: 0.5},
	})
	if err != nil {
		return err
	}
	reg.Register(gm)
	return nil
}

// betaBinomial composes Beta(alpha, beta) and Binomial(n, p) into the
// compound BetaBinomial(n, alpha, beta): the binomial log-pmf marginalized
// over a Beta-distributed success probability, in closed form via the
// Beta function expressed through logGamma.
func betaBinomial() *Distribution {
	logBeta := func(a, b float64) float64 {
		return ad.LogGamma(a) + ad.LogGamma(b) - ad.LogGamma(a+b)
	}
	logChoose := func(n, k float64) float64 {
		return ad.LogGamma(n+1) - ad.LogGamma(k+1) - ad.LogGamma(n-k+1)
	}
	return &Distribution{
		Name: "BetaBinomial",
		Params: []Param{
			{Name: "n", Constraint: Constraint{PositiveOnly: true, IntegerOnly: true}},
			{Name: "alpha", Constraint: Constraint{PositiveOnly: true}},
			{Name: "beta", Constraint: Constraint{PositiveOnly: true}},
		},
		Support:     SupportNonNegativeInteger,
		Discrete:    true,
		Description: "BetaBinomial(n, alpha, beta): binomial count with a Beta-distributed success probability.",
		LogPdf: func(x float64, p map[string]float64) float64 {
			n, alpha, beta := p["n"], p["alpha"], p["beta"]
			if x < 0 || x > n || x != math.Trunc(x) {
				return math.Inf(-1)
			}
			return logChoose(n, x) + logBeta(x+alpha, n-x+beta) - logBeta(alpha, beta)
		},
		Sample: func(rng *rand.Rand, p map[string]float64) float64 {
			n, alpha, beta := p["n"], p["alpha"], p["beta"]
			prob := distuv.Beta{Alpha: alpha, Beta: beta, Src: expRandSource{rng}}.Rand()
			count := 0.0
			for i := 0; i < int(n); i++ {
				if rng.Float64() < prob {
					count++
				}
			}
			return count
		},
		MomentsFn: func(p map[string]float64) (Moments, bool) {
			n, alpha, beta := p["n"], p["alpha"], p["beta"]
			mean := n * alpha / (alpha + beta)
			variance := n * alpha * beta * (alpha + beta + n) / ((alpha + beta) * (alpha + beta) * (alpha + beta + 1))
			return Moments{Mean: mean, Variance: variance}, true
		},
	}
}

// studentT is Student's t with location mu, scale sigma and degrees of
// freedom nu, via the standard closed-form log-density in terms of
// logGamma.
func studentT() *Distribution {
	return &Distribution{
		Name: "StudentT",
		Params: []Param{
			{Name: "nu", Constraint: Constraint{PositiveOnly: true}},
			{Name: "mu"},
			{Name: "sigma", Constraint: Constraint{PositiveOnly: true}},
		},
		Support:       SupportRealLine,
		LocationScale: true,
		Description:   "StudentT(nu, mu, sigma): heavy-tailed location-scale family.",
		LogPdf: func(x float64, p map[string]float64) float64 {
			nu, mu, sigma := p["nu"], p["mu"], p["sigma"]
			z := (x - mu) / sigma
			return ad.LogGamma((nu+1)/2) - ad.LogGamma(nu/2) -
				0.5*math.Log(nu*math.Pi) - math.Log(sigma) -
				(nu+1)/2*math.Log(1+z*z/nu)
		},
		Sample: func(rng *rand.Rand, p map[string]float64) float64 {
			nu, mu, sigma := p["nu"], p["mu"], p["sigma"]
			return mu + sigma*distuv.StudentsT{Mu: 0, Sigma: 1, Nu: nu, Src: expRandSource{rng}}.Rand()
		},
		MomentsFn: func(p map[string]float64) (Moments, bool) {
			nu, mu, sigma := p["nu"], p["mu"], p["sigma"]
			if nu <= 2 {
				return Moments{}, false
			}
			return Moments{Mean: mu, Variance: sigma * sigma * nu / (nu - 2)}, true
		},
	}
}

// dirichlet3 is a 3-component Dirichlet(alpha1, alpha2, alpha3) over the
// 2-simplex. Because Distribution.LogPdf/Sample are scalar-x routines
// and Dirichlet is vector-valued, the vector's first two coordinates are
// carried as extra parameter entries ("x1", "x2"; x3 = 1 - x1 - x2) in
// the params map rather than through the scalar x argument, which this
// descriptor ignores.
func dirichlet3() *Distribution {
	return &Distribution{
		Name: "Dirichlet",
		Params: []Param{
			{Name: "alpha1", Constraint: Constraint{PositiveOnly: true}},
			{Name: "alpha2", Constraint: Constraint{PositiveOnly: true}},
			{Name: "alpha3", Constraint: Constraint{PositiveOnly: true}},
			{Name: "x1", Constraint: Constraint{Min: minOf(0), Max: maxOf(1)}},
			{Name: "x2", Constraint: Constraint{Min: minOf(0), Max: maxOf(1)}},
		},
		Support:     SupportSimplex,
		Description: "Dirichlet(alpha1, alpha2, alpha3) over the 2-simplex (x1, x2, 1-x1-x2).",
		LogPdf: func(_ float64, p map[string]float64) float64 {
			a1, a2, a3 := p["alpha1"], p["alpha2"], p["alpha3"]
			x1, x2 := p["x1"], p["x2"]
			x3 := 1 - x1 - x2
			if x1 < 0 || x2 < 0 || x3 < 0 {
				return math.Inf(-1)
			}
			logNorm := ad.LogGamma(a1) + ad.LogGamma(a2) + ad.LogGamma(a3) - ad.LogGamma(a1+a2+a3)
			return (a1-1)*math.Log(x1) + (a2-1)*math.Log(x2) + (a3-1)*math.Log(x3) - logNorm
		},
		Sample: func(rng *rand.Rand, p map[string]float64) float64 {
			a1, a2, a3 := p["alpha1"], p["alpha2"], p["alpha3"]
			g1 := distuv.Gamma{Alpha: a1, Beta: 1, Src: expRandSource{rng}}.Rand()
			g2 := distuv.Gamma{Alpha: a2, Beta: 1, Src: expRandSource{rng}}.Rand()
			g3 := distuv.Gamma{Alpha: a3, Beta: 1, Src: expRandSource{rng}}.Rand()
			total := g1 + g2 + g3
			return g1 / total // x1; caller draws again for x2, x3
		},
	}
}
