package infer_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sever-lang/sever/infer"
	"github.com/sever-lang/sever/sverr"
)

func standardNormalLogProb(params map[string]float64, _ interface{}) float64 {
	x := params["x"]
	return -0.5 * x * x
}

func TestRWMStandardNormal(t *testing.T) {
	seed := int64(42)
	cfg := infer.MHConfig{
		Method:           "metropolis_hastings",
		NumSamples:       5000,
		Burnin:           1000,
		Thin:             1,
		StepSize:         1,
		TargetAcceptRate: 0.234,
		AdaptStepSize:    true,
		Seed:             &seed,
	}
	s := infer.NewMHSampler(cfg)
	s.InitParameter("x", 0)

	require.NoError(t, s.Sample(standardNormalLogProb, nil))

	tr, err := s.GetTrace("x")
	require.NoError(t, err)
	require.InDelta(t, 0, tr.Mean(), 0.1)
	require.InDelta(t, 1, tr.Variance(), 0.2)

	rate := s.GetAcceptanceRate()
	require.Greater(t, rate, 0.2)
	require.Less(t, rate, 0.8)
}

func TestRWMWithBounds(t *testing.T) {
	seed := int64(7)
	cfg := infer.DefaultMHConfig()
	cfg.NumSamples = 5000
	cfg.Burnin = 1000
	cfg.Seed = &seed
	logProb := func(params map[string]float64, _ interface{}) float64 {
		p := params["p"]
		if p < 0 || p > 1 {
			return math.Inf(-1)
		}
		return 0
	}

	s := infer.NewMHSampler(cfg)
	s.InitParameter("p", 0.5)
	lower, upper := 0.0, 1.0
	s.SetParameterBounds("p", infer.Bounds{Lower: &lower, Upper: &upper})

	require.NoError(t, s.Sample(logProb, nil))

	tr, err := s.GetTrace("p")
	require.NoError(t, err)
	for _, v := range tr.Values {
		require.True(t, v >= 0 && v <= 1)
	}
	require.InDelta(t, 0.5, tr.Mean(), 0.05)
}

func TestTraceLengthEqualsCeilNumSamplesOverThin(t *testing.T) {
	cfg := infer.DefaultMHConfig()
	cfg.NumSamples = 103
	cfg.Burnin = 10
	cfg.Thin = 4
	s := infer.NewMHSampler(cfg)
	s.InitParameter("x", 0)
	s.InitParameter("y", 0)

	logProb := func(params map[string]float64, _ interface{}) float64 {
		return -0.5 * (params["x"]*params["x"] + params["y"]*params["y"])
	}
	require.NoError(t, s.Sample(logProb, nil))

	want := int(math.Ceil(float64(cfg.NumSamples) / float64(cfg.Thin)))
	trX, _ := s.GetTrace("x")
	trY, _ := s.GetTrace("y")
	require.Equal(t, want, trX.Len())
	require.Equal(t, trX.Len(), trY.Len())
}

// An always-accepting density strictly increases step_size during
// burn-in; an always-rejecting one strictly decreases it.
func TestAdaptationMonotonicity(t *testing.T) {
	alwaysAccept := func(params map[string]float64, _ interface{}) float64 { return 0 }
	alwaysReject := func(params map[string]float64, _ interface{}) float64 { return math.Inf(-1) }

	cfg := infer.DefaultMHConfig()
	cfg.Burnin = 200
	cfg.NumSamples = 1
	cfg.StepSize = 0.1
	s := infer.NewMHSampler(cfg)
	s.InitParameter("x", 0)
	require.NoError(t, s.Sample(alwaysAccept, nil))
	require.Greater(t, s.StepSize(), 0.1)

	cfg2 := infer.DefaultMHConfig()
	cfg2.Burnin = 200
	cfg2.NumSamples = 1
	cfg2.StepSize = 0.1
	s2 := infer.NewMHSampler(cfg2)
	s2.InitParameter("x", 0)
	require.NoError(t, s2.Sample(alwaysReject, nil))
	require.Less(t, s2.StepSize(), 0.1)
}

func TestESSSanityAndZeroVarianceEdgeCase(t *testing.T) {
	tr := &infer.ParameterTrace{}
	for i := 0; i < 100; i++ {
		tr.Append(5.0, true, 0)
	}
	require.Equal(t, 1.0, tr.EffectiveSampleSize())

	tr2 := &infer.ParameterTrace{}
	for i := 0; i < 500; i++ {
		tr2.Append(float64(i%7), i%2 == 0, 0)
	}
	ess := tr2.EffectiveSampleSize()
	require.Greater(t, ess, 0.0)
	require.LessOrEqual(t, ess, float64(tr2.Len()))
}

func TestUnimplementedMHMethodReturnsNotImplemented(t *testing.T) {
	cfg := infer.DefaultMHConfig()
	cfg.Method = "gibbs"
	s := infer.NewMHSampler(cfg)
	s.InitParameter("x", 0)
	err := s.Sample(func(map[string]float64, interface{}) float64 { return 0 }, nil)
	require.ErrorIs(t, err, sverr.NotImplemented)
}

func TestGetTraceUnknownParameter(t *testing.T) {
	s := infer.NewMHSampler(infer.DefaultMHConfig())
	_, err := s.GetTrace("missing")
	require.ErrorIs(t, err, sverr.InvalidVariable)
}
