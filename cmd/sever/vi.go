package main

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/sever-lang/sever/dist"
	"github.com/sever-lang/sever/infer"
)

var viCmd = &cobra.Command{
	Use:   "vi",
	Short: "Run mean-field variational inference against a built-in demo model",
	RunE:  runVI,
}

func init() {
	rootCmd.AddCommand(viCmd)
}

func runVI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgFile)
	if err != nil {
		return err
	}
	cfg = applyFlagOverrides(cfg)

	reg := dist.NewRegistry()
	if err := dist.CreateExampleDistributions(reg); err != nil {
		return errors.Wrap(err, "seeding example distributions")
	}

	dm, err := buildDemoModel(reg, cfg.Model, cfg.DataFile)
	if err != nil {
		return err
	}

	logger.Printf("model=%s vi: max_iterations=%d sample_size=%d", cfg.Model, cfg.VI.MaxIterations, cfg.VI.SampleSize)

	solver := infer.NewVISolver(cfg.viConfig())
	for name := range dm.Init {
		solver.InitVariable(name, infer.FamilyGaussian)
	}

	stats, err := solver.Optimize(dm.LogProb, nil)
	if err != nil {
		return errors.Wrap(err, "optimizing")
	}

	logger.Printf("converged=%v iterations=%d final_elbo=%.6g", stats.Converged, stats.NumIterations, stats.FinalELBO)
	for name := range dm.Init {
		params, err := solver.GetVariationalParams(name)
		if err != nil {
			return err
		}
		logger.Printf("  %-10s mu=%.4f sigma=%.4f", name, params["mu"], params["sigma"])
	}
	return nil
}
