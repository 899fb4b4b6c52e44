package main

import (
	"github.com/pkg/errors"

	"github.com/sever-lang/sever/dist"
	"github.com/sever-lang/sever/examples/normal"
	"github.com/sever-lang/sever/examples/schools"
	"github.com/sever-lang/sever/infer"
)

// demoModel bundles everything sample/vi/diagnose need to drive a
// built-in model: its plain and gradient log-density callables, each
// latent variable's starting value, and any bounds it needs.
type demoModel struct {
	LogProb  infer.LogProbFunc
	GradProb infer.GradLogProbFunc
	Init     map[string]float64
	Mass     map[string]float64
	Bounds   map[string]infer.Bounds
}

func floatPtr(v float64) *float64 { return &v }

// buildDemoModel resolves name ("normal" or "schools") against reg,
// returning the callables and initial state sample/vi/diagnose share.
// dataFile, when non-empty and name is "normal", is loaded as the
// observation vector normal.Model fits the mean of.
func buildDemoModel(reg *dist.Registry, name, dataFile string) (demoModel, error) {
	switch name {
	case "normal":
		m := &normal.Model{}
		if dataFile != "" {
			data, err := normal.LoadObservations(dataFile)
			if err != nil {
				return demoModel{}, errors.Wrap(err, "loading normal model data file")
			}
			m.Data = data
		}
		return demoModel{
			LogProb:  m.LogDensity,
			GradProb: m.GradLogDensity,
			Init:     map[string]float64{"x": 2.0},
			Mass:     map[string]float64{"x": 1.0},
		}, nil
	case "schools":
		gm, err := schools.Build(reg, schools.EightSchools)
		if err != nil {
			return demoModel{}, errors.Wrap(err, "building schools model")
		}
		init := schools.LatentInit(schools.EightSchools)
		mass := make(map[string]float64, len(init))
		for name := range init {
			mass[name] = 1.0
		}
		return demoModel{
			LogProb:  gm.LogDensity,
			GradProb: gm.GradLogDensity,
			Init:     init,
			Mass:     mass,
			Bounds:   map[string]infer.Bounds{"tau": {Lower: floatPtr(0)}},
		}, nil
	default:
		return demoModel{}, errors.Errorf("unknown model %q (want \"normal\" or \"schools\")", name)
	}
}
