package cli

import (
	"log/slog"
	"strings"
	"time"

	"github.com/aryankumar/threader/internal/config"
	"github.com/aryankumar/threader/internal/harvest"
	"github.com/aryankumar/threader/internal/program"
	"github.com/aryankumar/threader/internal/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type harvestOptions struct {
	program string
	outdir  string
	params  string
	noTests bool
	seed    uint64
}

// newHarvestCmd creates the harvest command
func newHarvestCmd() *cobra.Command {
	opts := &harvestOptions{}

	cmd := &cobra.Command{
		Use:   "harvest",
		Short: "Estimate the best K from the outputs of an earlier run",
		Long: `Harvest an output directory written by "threader run" (or by the programs
themselves) and write the best-K reports under <outdir>/bestK. No jobs are
launched.`,
		Example: `  # re-run the Evanno method on STRUCTURE outputs
  threader harvest -p structure -d out

  # MavericK needs the parameter file to know whether TI was on
  threader harvest -p maverick -d out --params parameters.txt -o json`,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return viper.BindPFlag("draws", cmd.Flags().Lookup("draws"))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHarvest(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.program, "program", "p", "", "program that produced the outputs (structure, faststructure, maverick)")
	cmd.Flags().StringVarP(&opts.outdir, "outdir", "d", "", "output directory to harvest")
	cmd.Flags().StringVar(&opts.params, "params", "", "MavericK parameter file")
	cmd.Flags().BoolVar(&opts.noTests, "no-tests", false, "only merge and summarise, skip best-K estimation")
	cmd.Flags().Int("draws", 0, "MavericK normalization draws per K (default from config, 1000000)")
	cmd.Flags().Uint64Var(&opts.seed, "seed", 0, "normalization seed; 0 derives one from the clock")

	return cmd
}

func runHarvest(cmd *cobra.Command, opts *harvestOptions) error {
	if err := requireFlags(cmd, "program", "outdir"); err != nil {
		return err
	}

	logger := slog.Default()

	cfg, err := opts.buildConfig(logger)
	if err != nil {
		return err
	}

	prog, err := program.New(cfg, logger)
	if err != nil {
		return err
	}

	start := time.Now()
	analysis, err := prog.Analyze(cmd.Context(), harvest.NewHarvester(cfg.Workers, logger))
	if err != nil {
		return err
	}
	logger.Info("harvest complete", "elapsed", time.Since(start).Round(time.Millisecond), "bestK", analysis.BestK)

	return printAnalysis(cmd.OutOrStdout(), analysis)
}

func (o *harvestOptions) buildConfig(logger *slog.Logger) (config.Run, error) {
	kind, err := program.ParseKind(o.program)
	if err != nil {
		return config.Run{}, err
	}

	cfg := config.Run{
		Program:    kind.String(),
		OutputDir:  o.outdir,
		ParamsFile: o.params,
		Workers:    util.ResolveWorkers(viper.GetInt("workers"), logger),
		NoTests:    o.noTests,
		Draws:      viper.GetInt("draws"),
		Seed:       o.seed,
	}
	if cfg.Seed == 0 {
		cfg.Seed = uint64(time.Now().UnixNano())
		logger.Debug("derived normalization seed", "seed", cfg.Seed)
	}

	if kind == program.KindMavericK && cfg.ParamsFile == "" {
		return cfg, util.NewValidationError("params", nil, "MavericK requires a parameter file")
	}

	cfg, err = cfg.Abs()
	if err != nil {
		return cfg, err
	}

	err = util.CheckPaths(
		util.PathCheck{Label: "output directory", Path: cfg.OutputDir, WantDir: true},
		util.PathCheck{Label: "parameter file", Path: cfg.ParamsFile},
	)
	if err != nil {
		return cfg, err
	}

	logger.Debug("harvesting", "program", strings.ToLower(cfg.Program), "outdir", cfg.OutputDir)
	return cfg, nil
}
