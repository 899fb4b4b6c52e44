package main

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/sever-lang/sever/dist"
	"github.com/sever-lang/sever/infer"
)

var diagnoseChains int

var diagnoseCmd = &cobra.Command{
	Use:   "diagnose",
	Short: "Run several independent MH chains and report Gelman-Rubin R-hat / pooled ESS",
	RunE:  runDiagnose,
}

func init() {
	pf := diagnoseCmd.Flags()
	pf.IntVarP(&diagnoseChains, "chains", "n", 0, "override diagnose.num_chains")
	rootCmd.AddCommand(diagnoseCmd)
}

func runDiagnose(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgFile)
	if err != nil {
		return err
	}
	cfg = applyFlagOverrides(cfg)
	if diagnoseChains > 0 {
		cfg.Diagnose.NumChains = diagnoseChains
	}
	if cfg.Sampler.Method == "hamiltonian" {
		return errors.New("diagnose only drives MH/adaptive-Metropolis chains; set sampler.method accordingly")
	}

	reg := dist.NewRegistry()
	if err := dist.CreateExampleDistributions(reg); err != nil {
		return errors.Wrap(err, "seeding example distributions")
	}

	dm, err := buildDemoModel(reg, cfg.Model, cfg.DataFile)
	if err != nil {
		return err
	}

	n := cfg.Diagnose.NumChains
	seeds := make([]int64, n)
	base := seedFlag
	if base == 0 {
		base = cfg.Sampler.Seed
	}
	for i := range seeds {
		seeds[i] = base + int64(i) + 1
	}

	logger.Printf("model=%s method=%s chains=%d", cfg.Model, cfg.Sampler.Method, n)

	samplers, errs := infer.RunChains(n, seeds,
		func(chainIndex int, seed int64) *infer.MHSampler {
			mhCfg := cfg.mhConfig()
			s := seed
			mhCfg.Seed = &s
			sampler := infer.NewMHSampler(mhCfg)
			for name, v := range dm.Init {
				sampler.InitParameter(name, v)
			}
			for name, b := range dm.Bounds {
				sampler.SetParameterBounds(name, b)
			}
			return sampler
		},
		func(s *infer.MHSampler) error {
			return s.Sample(dm.LogProb, nil)
		},
	)
	for i, err := range errs {
		if err != nil {
			return errors.Wrapf(err, "chain %d", i)
		}
	}

	for name := range dm.Init {
		chains := make([][]float64, len(samplers))
		for i, s := range samplers {
			tr, err := s.GetTrace(name)
			if err != nil {
				return err
			}
			chains[i] = tr.Values
		}
		rhat, err := infer.GelmanRubin(chains)
		if err != nil {
			return errors.Wrapf(err, "parameter %s", name)
		}
		ess := infer.MultiChainESS(chains)
		logger.Printf("  %-10s r_hat=%.4f pooled_ess=%.1f", name, rhat, ess)
	}
	return nil
}
