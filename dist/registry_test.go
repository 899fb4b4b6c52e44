package dist_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sever-lang/sever/dist"
	"github.com/sever-lang/sever/sverr"
)

func TestBuiltInLookupAndValidation(t *testing.T) {
	reg := dist.NewRegistry()

	require.True(t, reg.HasDistribution("Normal"))
	require.True(t, reg.HasDistribution("Bernoulli"))
	require.True(t, reg.HasDistribution("Exponential"))
	require.True(t, reg.HasDistribution("Gamma"))
	require.False(t, reg.HasDistribution("DoesNotExist"))

	require.True(t, reg.ValidateParameters("Normal", map[string]float64{"mu": 0, "sigma": 1}))
	require.False(t, reg.ValidateParameters("Normal", map[string]float64{"mu": 0, "sigma": -1}))
	require.False(t, reg.ValidateParameters("Normal", map[string]float64{"mu": 0}))
	require.False(t, reg.ValidateParameters("Normal", map[string]float64{"mu": math.NaN(), "sigma": 1}))
	require.False(t, reg.ValidateParameters("Normal", map[string]float64{"mu": 0, "sigma": 1, "tau": 2}))
	require.False(t, reg.ValidateParameters("Unknown", map[string]float64{}))

	require.ElementsMatch(t, []string{"Normal", "Bernoulli", "Exponential", "Gamma"}, reg.ListBuiltIn())
}

func TestCustomRegistrationShadowsBuiltIn(t *testing.T) {
	reg := dist.NewRegistry()
	custom := &dist.Distribution{
		Name:   "Normal",
		Params: []dist.Param{{Name: "mu"}, {Name: "sigma"}},
		LogPdf: func(x float64, p map[string]float64) float64 { return 0 },
	}
	reg.Register(custom)

	got, ok := reg.GetDistribution("Normal")
	require.True(t, ok)
	require.Same(t, custom, got)
	require.Contains(t, reg.ListCustom(), "Normal")
}

func TestNormalLogPdfMatchesClosedForm(t *testing.T) {
	reg := dist.NewRegistry()
	d, ok := reg.GetDistribution("Normal")
	require.True(t, ok)

	got := d.LogPdf(1, map[string]float64{"mu": 0, "sigma": 1})
	want := -0.5*math.Log(2*math.Pi) - 0.5
	require.InDelta(t, want, got, 1e-12)
}

func TestBernoulliLogPdfOutsideSupportIsMinusInf(t *testing.T) {
	reg := dist.NewRegistry()
	d, _ := reg.GetDistribution("Bernoulli")
	got := d.LogPdf(2, map[string]float64{"p": 0.5})
	require.True(t, math.IsInf(got, -1))
}

func TestGammaLogPdfMatchesClosedForm(t *testing.T) {
	reg := dist.NewRegistry()
	d, ok := reg.GetDistribution("Gamma")
	require.True(t, ok)

	got := d.LogPdf(2, map[string]float64{"alpha": 2, "beta": 1})
	want := (2-1)*math.Log(2) - 1*2 + 2*math.Log(1) - 0 // logGamma(2) == 0
	require.InDelta(t, want, got, 1e-9)

	require.True(t, math.IsInf(d.LogPdf(-1, map[string]float64{"alpha": 2, "beta": 1}), -1))
}

func TestSampleIsDeterministicUnderASeededSource(t *testing.T) {
	reg := dist.NewRegistry()
	d, _ := reg.GetDistribution("Exponential")
	rng1 := rand.New(rand.NewSource(42))
	rng2 := rand.New(rand.NewSource(42))
	a := d.Sample(rng1, map[string]float64{"lambda": 2})
	b := d.Sample(rng2, map[string]float64{"lambda": 2})
	require.Equal(t, a, b)
}

func TestNewMixtureRejectsEmptyComponentList(t *testing.T) {
	reg := dist.NewRegistry()
	_, err := dist.NewMixture("m", reg, nil)
	require.ErrorIs(t, err, sverr.EmptyMixture)
}

func TestNewMixtureRejectsNonPositiveWeight(t *testing.T) {
	reg := dist.NewRegistry()
	_, err := dist.NewMixture("m", reg, []dist.Component{
		{DistributionName: "Normal", Weight: 0},
		{DistributionName: "Normal", Weight: 1},
	})
	require.ErrorIs(t, err, sverr.InvalidWeight)
}

func TestNewMixtureRejectsUnnormalizedWeights(t *testing.T) {
	reg := dist.NewRegistry()
	_, err := dist.NewMixture("m", reg, []dist.Component{
		{DistributionName: "Normal", Weight: 0.3},
		{DistributionName: "Normal", Weight: 0.3},
	})
	require.ErrorIs(t, err, sverr.WeightsNotNormalized)
}

func TestNewMixtureLogPdfCombinesComponents(t *testing.T) {
	reg := dist.NewRegistry()
	m, err := dist.NewMixture("m", reg, []dist.Component{
		{DistributionName: "Normal", Weight: 0.5},
		{DistributionName: "Normal", Weight: 0.5},
	})
	require.NoError(t, err)

	params := map[string]float64{
		"0.mu": -2, "0.sigma": 1,
		"1.mu": 2, "1.sigma": 1,
	}
	got := m.LogPdf(-2, params)
	require.False(t, math.IsInf(got, 0))
	require.False(t, math.IsNaN(got))
}

func TestCreateExampleDistributionsSeedsFixedSet(t *testing.T) {
	reg := dist.NewRegistry()
	require.NoError(t, dist.CreateExampleDistributions(reg))

	for _, name := range []string{"BetaBinomial", "GaussianMixture", "StudentT", "Dirichlet"} {
		require.True(t, reg.HasDistribution(name), "missing example distribution %s", name)
	}
}

func TestBetaBinomialLogPdfOutsideSupportIsMinusInf(t *testing.T) {
	reg := dist.NewRegistry()
	require.NoError(t, dist.CreateExampleDistributions(reg))
	d, _ := reg.GetDistribution("BetaBinomial")

	got := d.LogPdf(11, map[string]float64{"n": 10, "alpha": 2, "beta": 2})
	require.True(t, math.IsInf(got, -1))
}

func TestStudentTMomentsUndefinedForLowDegreesOfFreedom(t *testing.T) {
	reg := dist.NewRegistry()
	require.NoError(t, dist.CreateExampleDistributions(reg))
	d, _ := reg.GetDistribution("StudentT")

	_, ok := d.Moments(map[string]float64{"nu": 1, "mu": 0, "sigma": 1})
	require.False(t, ok)

	m, ok := d.Moments(map[string]float64{"nu": 10, "mu": 0, "sigma": 1})
	require.True(t, ok)
	require.InDelta(t, 0, m.Mean, 1e-12)
}
