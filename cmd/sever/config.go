package main

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/sever-lang/sever/infer"
)

// Config is the CLI's YAML configuration shape. Every section mirrors
// one of infer's Default...Config constructors;
// an omitted --config file falls back to those defaults entirely.
// DataFile, when set and Model is "normal", is loaded with
// examples/normal.LoadObservations and fits the mean of that
// observation vector instead of the fixed x~N(0,1) demo target.
type Config struct {
	Model    string `yaml:"model"`
	DataFile string `yaml:"data_file"`

	Sampler struct {
		Method           string  `yaml:"method"`
		NumSamples       int     `yaml:"num_samples"`
		Burnin           int     `yaml:"burnin"`
		Thin             int     `yaml:"thin"`
		StepSize         float64 `yaml:"step_size"`
		TargetAcceptRate float64 `yaml:"target_accept_rate"`
		AdaptStepSize    bool    `yaml:"adapt_step_size"`
		Seed             int64   `yaml:"seed"`
	} `yaml:"sampler"`

	HMC struct {
		InitialStepSize  float64 `yaml:"initial_step_size"`
		NumLeapfrogSteps int     `yaml:"num_leapfrog_steps"`
		AdaptStepSize    bool    `yaml:"adapt_step_size"`
		AdaptationWindow int     `yaml:"adaptation_window"`
		NumSamples       int     `yaml:"num_samples"`
		Burnin           int     `yaml:"burnin"`
		Thin             int     `yaml:"thin"`
		Seed             int64   `yaml:"seed"`
	} `yaml:"hmc"`

	VI struct {
		SampleSize        int     `yaml:"sample_size"`
		MaxIterations     int     `yaml:"max_iterations"`
		Tolerance         float64 `yaml:"tolerance"`
		LearningRate      float64 `yaml:"learning_rate"`
		LearningRateDecay float64 `yaml:"learning_rate_decay"`
		Momentum          float64 `yaml:"momentum"`
		Seed              int64   `yaml:"seed"`
	} `yaml:"vi"`

	Diagnose struct {
		NumChains int `yaml:"num_chains"`
	} `yaml:"diagnose"`
}

// defaultConfig returns a Config whose every numeric field matches
// infer's own Default...Config constructors, and Model set to "normal".
func defaultConfig() Config {
	var cfg Config
	cfg.Model = "normal"

	mh := infer.DefaultMHConfig()
	cfg.Sampler.Method = mh.Method
	cfg.Sampler.NumSamples = mh.NumSamples
	cfg.Sampler.Burnin = mh.Burnin
	cfg.Sampler.Thin = mh.Thin
	cfg.Sampler.StepSize = mh.StepSize
	cfg.Sampler.TargetAcceptRate = mh.TargetAcceptRate
	cfg.Sampler.AdaptStepSize = mh.AdaptStepSize

	hmc := infer.DefaultHMCConfig()
	cfg.HMC.InitialStepSize = hmc.InitialStepSize
	cfg.HMC.NumLeapfrogSteps = hmc.NumLeapfrogSteps
	cfg.HMC.AdaptStepSize = hmc.AdaptStepSize
	cfg.HMC.AdaptationWindow = hmc.AdaptationWindow
	cfg.HMC.NumSamples = mh.NumSamples
	cfg.HMC.Burnin = 0
	cfg.HMC.Thin = 1

	vi := infer.DefaultVIConfig()
	cfg.VI.SampleSize = vi.SampleSize
	cfg.VI.MaxIterations = vi.MaxIterations
	cfg.VI.Tolerance = vi.Tolerance
	cfg.VI.LearningRate = vi.LearningRate
	cfg.VI.LearningRateDecay = vi.LearningRateDecay
	cfg.VI.Momentum = vi.Momentum

	cfg.Diagnose.NumChains = 4

	return cfg
}

// loadConfig returns defaultConfig() when path is empty, otherwise
// reads and unmarshals the YAML file at path over those defaults (so a
// config file only has to set the fields it wants to change).
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "reading config %s", path)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parsing config %s", path)
	}
	return cfg, nil
}

// applyFlagOverrides layers the root command's persistent flags over cfg,
// called once by every subcommand's RunE after loadConfig.
func applyFlagOverrides(cfg Config) Config {
	if dataFlag != "" {
		cfg.DataFile = dataFlag
	}
	return cfg
}

func (c Config) mhConfig() infer.MHConfig {
	cfg := infer.MHConfig{
		Method:           c.Sampler.Method,
		NumSamples:       c.Sampler.NumSamples,
		Burnin:           c.Sampler.Burnin,
		Thin:             c.Sampler.Thin,
		StepSize:         c.Sampler.StepSize,
		TargetAcceptRate: c.Sampler.TargetAcceptRate,
		AdaptStepSize:    c.Sampler.AdaptStepSize,
	}
	if seed := c.Sampler.Seed; seed != 0 {
		cfg.Seed = &seed
	}
	if seedFlag != 0 {
		s := seedFlag
		cfg.Seed = &s
	}
	return cfg
}

func (c Config) hmcConfig() infer.HMCConfig {
	cfg := infer.HMCConfig{
		InitialStepSize:  c.HMC.InitialStepSize,
		NumLeapfrogSteps: c.HMC.NumLeapfrogSteps,
		AdaptStepSize:    c.HMC.AdaptStepSize,
		AdaptationWindow: c.HMC.AdaptationWindow,
		NumSamples:       c.HMC.NumSamples,
		Burnin:           c.HMC.Burnin,
		Thin:             c.HMC.Thin,
	}
	if seed := c.HMC.Seed; seed != 0 {
		cfg.Seed = &seed
	}
	if seedFlag != 0 {
		s := seedFlag
		cfg.Seed = &s
	}
	return cfg
}

func (c Config) viConfig() infer.VIConfig {
	cfg := infer.VIConfig{
		SampleSize:        c.VI.SampleSize,
		MaxIterations:     c.VI.MaxIterations,
		Tolerance:         c.VI.Tolerance,
		LearningRate:      c.VI.LearningRate,
		LearningRateDecay: c.VI.LearningRateDecay,
		Momentum:          c.VI.Momentum,
	}
	if seed := c.VI.Seed; seed != 0 {
		cfg.Seed = &seed
	}
	if seedFlag != 0 {
		s := seedFlag
		cfg.Seed = &s
	}
	return cfg
}
