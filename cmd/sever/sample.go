package main

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/sever-lang/sever/dist"
	"github.com/sever-lang/sever/infer"
)

var (
	sampleMethod string
	sampleOut    string
)

var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Run a Metropolis-Hastings, adaptive-Metropolis or Hamiltonian Monte Carlo chain",
	RunE:  runSample,
}

func init() {
	pf := sampleCmd.Flags()
	pf.StringVarP(&sampleMethod, "method", "m", "", "override sampler.method (metropolis_hastings, adaptive_metropolis, hamiltonian)")
	pf.StringVarP(&sampleOut, "out", "o", "", "write the trace CSV here instead of stdout")
	rootCmd.AddCommand(sampleCmd)
}

func exportTrace(path string, export func(io.Writer) error) error {
	if path == "" {
		return export(os.Stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating %s", path)
	}
	defer f.Close()
	return export(f)
}

func runSample(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgFile)
	if err != nil {
		return err
	}
	cfg = applyFlagOverrides(cfg)
	if sampleMethod != "" {
		cfg.Sampler.Method = sampleMethod
	}

	reg := dist.NewRegistry()
	if err := dist.CreateExampleDistributions(reg); err != nil {
		return errors.Wrap(err, "seeding example distributions")
	}

	dm, err := buildDemoModel(reg, cfg.Model, cfg.DataFile)
	if err != nil {
		return err
	}

	logger.Printf("model=%s method=%s", cfg.Model, cfg.Sampler.Method)

	if cfg.Sampler.Method == "hamiltonian" {
		return runHMCSample(cfg, dm)
	}
	return runMHSample(cfg, dm)
}

func runMHSample(cfg Config, dm demoModel) error {
	sampler := infer.NewMHSampler(cfg.mhConfig())
	for name, v := range dm.Init {
		sampler.InitParameter(name, v)
	}
	for name, b := range dm.Bounds {
		sampler.SetParameterBounds(name, b)
	}

	if err := sampler.Sample(dm.LogProb, nil); err != nil {
		return errors.Wrap(err, "sampling")
	}

	logger.Printf("acceptance_rate=%.4f step_size=%.4g", sampler.GetAcceptanceRate(), sampler.StepSize())
	for _, name := range sampler.ParameterOrder() {
		stats, _ := sampler.GetParameterStats(name)
		ess, _ := sampler.GetEffectiveSampleSize(name)
		logger.Printf("  %-10s mean=%.4f var=%.4f min=%.4f max=%.4f ess=%.1f",
			name, stats.Mean, stats.Variance, stats.Min, stats.Max, ess)
	}

	return exportTrace(sampleOut, sampler.ExportTrace)
}

func runHMCSample(cfg Config, dm demoModel) error {
	if dm.GradProb == nil {
		return errors.New("this model has no gradient callable; hamiltonian sampling is unavailable")
	}

	sampler := infer.NewHMCSampler(cfg.hmcConfig())
	for name, v := range dm.Init {
		mass := dm.Mass[name]
		if mass == 0 {
			mass = 1
		}
		sampler.InitParameter(name, v, mass)
	}
	for name, b := range dm.Bounds {
		sampler.SetParameterBounds(name, b)
	}

	if err := sampler.Sample(dm.GradProb, nil); err != nil {
		return errors.Wrap(err, "sampling")
	}

	logger.Printf("acceptance_rate=%.4f step_size=%.4g", sampler.GetAcceptanceRate(), sampler.StepSize())
	for _, name := range sampler.ParameterOrder() {
		tr, _ := sampler.GetTrace(name)
		logger.Printf("  %-10s mean=%.4f var=%.4f ess=%.1f",
			name, tr.Mean(), tr.Variance(), tr.EffectiveSampleSize())
	}

	return exportTrace(sampleOut, sampler.ExportTrace)
}
