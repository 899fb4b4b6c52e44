package model_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sever-lang/sever/dist"
	"github.com/sever-lang/sever/expr"
	"github.com/sever-lang/sever/model"
	"github.com/sever-lang/sever/sverr"
)

func normalModel(t *testing.T) *model.GraphicalModel {
	t.Helper()
	reg := dist.NewRegistry()
	m := model.NewGraphicalModel(reg)
	m.AddVariable("mu", "Normal", map[string]*expr.Expr{
		"mu":    expr.NewFloatLiteral(0),
		"sigma": expr.NewFloatLiteral(10),
	})
	m.AddVariable("x", "Normal", map[string]*expr.Expr{
		"mu":    expr.NewVariable("mu"),
		"sigma": expr.NewFloatLiteral(1),
	})
	return m
}

func TestValidateAcceptsWellFormedModel(t *testing.T) {
	m := normalModel(t)
	require.NoError(t, m.Observe("x", 2.5))
	require.NoError(t, m.Validate())
	require.Equal(t, []string{"mu"}, m.LatentNames())
}

func TestValidateRejectsUnknownParent(t *testing.T) {
	reg := dist.NewRegistry()
	m := model.NewGraphicalModel(reg)
	m.AddVariable("x", "Normal", map[string]*expr.Expr{
		"mu":    expr.NewVariable("missing_parent"),
		"sigma": expr.NewFloatLiteral(1),
	})
	err := m.Validate()
	require.ErrorIs(t, err, sverr.InvalidModel)
}

func TestValidateRejectsSelfReference(t *testing.T) {
	reg := dist.NewRegistry()
	m := model.NewGraphicalModel(reg)
	m.AddVariable("x", "Normal", map[string]*expr.Expr{
		"mu":    expr.NewVariable("x"),
		"sigma": expr.NewFloatLiteral(1),
	})
	err := m.Validate()
	require.ErrorIs(t, err, sverr.InvalidModel)
}

func TestObserveUnknownVariable(t *testing.T) {
	m := normalModel(t)
	err := m.Observe("unknown", 1)
	require.ErrorIs(t, err, sverr.InvalidModel)
}

func TestValidateRejectsUnfilledObservation(t *testing.T) {
	m := normalModel(t)
	m.MarkObserved("x")
	err := m.Validate()
	require.ErrorIs(t, err, sverr.InvalidModel)
}

func TestValidateRejectsUnknownDistribution(t *testing.T) {
	reg := dist.NewRegistry()
	m := model.NewGraphicalModel(reg)
	m.AddVariable("x", "NotARealDistribution", map[string]*expr.Expr{})
	err := m.Validate()
	require.ErrorIs(t, err, sverr.InvalidModel)
}

func TestLogDensitySumsNodeLogPdfs(t *testing.T) {
	m := normalModel(t)
	require.NoError(t, m.Observe("x", 0))
	require.NoError(t, m.Validate())

	ll := m.LogDensity(map[string]float64{"mu": 0}, nil)

	wantMu := -0.5*math.Log(2*math.Pi) - math.Log(10)
	wantX := -0.5*math.Log(2*math.Pi) - math.Log(1)
	require.InDelta(t, wantMu+wantX, ll, 1e-9)
}

func TestLogDensityMissingLatentIsNegativeInfinity(t *testing.T) {
	m := normalModel(t)
	require.NoError(t, m.Observe("x", 0))
	ll := m.LogDensity(map[string]float64{}, nil)
	require.True(t, math.IsInf(ll, -1))
}

func TestGradLogDensityMatchesClosedFormNormal(t *testing.T) {
	reg := dist.NewRegistry()
	m := model.NewGraphicalModel(reg)
	m.AddVariable("x", "Normal", map[string]*expr.Expr{
		"mu":    expr.NewFloatLiteral(0),
		"sigma": expr.NewFloatLiteral(1),
	})
	require.NoError(t, m.Validate())

	grad := map[string]float64{}
	ll := m.GradLogDensity(map[string]float64{"x": 2}, grad, nil)

	require.InDelta(t, -0.5*math.Log(2*math.Pi)-2, ll, 1e-9)
	require.InDelta(t, -2, grad["x"], 1e-9)
}

func TestGradLogDensityChainsThroughHierarchicalMean(t *testing.T) {
	m := normalModel(t)
	require.NoError(t, m.Observe("x", 3))
	require.NoError(t, m.Validate())

	grad := map[string]float64{}
	m.GradLogDensity(map[string]float64{"mu": 1}, grad, nil)

	// d/dmu [ N(mu; 0, 10) + N(3; mu, 1) ] = -(mu-0)/100 + (3-mu)/1
	want := -(1.0-0.0)/100.0 + (3.0 - 1.0)
	require.InDelta(t, want, grad["mu"], 1e-9)
}

func TestGradLogDensityRejectsNonDifferentiableDistribution(t *testing.T) {
	reg := dist.NewRegistry()
	m := model.NewGraphicalModel(reg)
	m.AddVariable("p", "Bernoulli", map[string]*expr.Expr{
		"p": expr.NewFloatLiteral(0.5),
	})
	require.NoError(t, m.Validate())

	grad := map[string]float64{}
	ll := m.GradLogDensity(map[string]float64{"p": 1}, grad, nil)
	require.True(t, math.IsInf(ll, -1))
}

func TestSetDataBindsExternalConstants(t *testing.T) {
	reg := dist.NewRegistry()
	m := model.NewGraphicalModel(reg)
	m.SetData("y_obs", 4.2)
	m.AddVariable("theta", "Normal", map[string]*expr.Expr{
		"mu":    expr.NewFloatLiteral(0),
		"sigma": expr.NewFloatLiteral(1),
	})
	m.AddVariable("y", "Normal", map[string]*expr.Expr{
		"mu":    expr.NewVariable("theta"),
		"sigma": expr.NewFloatLiteral(0.5),
	})
	require.NoError(t, m.Observe("y", 4.2))
	require.NoError(t, m.Validate())

	ll := m.LogDensity(map[string]float64{"theta": 4.0}, nil)
	require.False(t, math.IsInf(ll, 0))
}
