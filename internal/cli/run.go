package cli

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/aryankumar/threader/internal/config"
	"github.com/aryankumar/threader/internal/dispatch"
	"github.com/aryankumar/threader/internal/harvest"
	"github.com/aryankumar/threader/internal/output"
	"github.com/aryankumar/threader/internal/program"
	"github.com/aryankumar/threader/internal/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type runOptions struct {
	program string
	binary  string
	infile  string
	outdir  string
	popfile string
	params  string
	minK    int
	maxK    int
	log     bool
	noTests bool
	seed    uint64
	wide    bool
}

// newRunCmd creates the run command
func newRunCmd() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a clustering program over a range of K and estimate the best K",
		Long: `Run STRUCTURE, fastStructure or MavericK once per (K, replicate) on a pool
of worker processes, then harvest the outputs and write the best-K reports
under <outdir>/bestK.

Jobs for the largest K start first. A failed job does not stop the others;
the command exits non-zero once every job has finished and the harvest is done.`,
		Example: `  # STRUCTURE, K 1 to 10, 20 replicates, 8 workers
  threader run -p structure -b ./structure -i data.str -d out --maxk 10 -r 20 -w 8

  # fastStructure through python2
  threader run -p faststructure -b structure.py -i data.bed -d out --maxk 8

  # MavericK with thermodynamic integration from the parameter file
  threader run -p maverick -b ./MavericK -i data.txt -d out --maxk 6 --params parameters.txt`,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return bindRunFlags(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.program, "program", "p", "", "program to run (structure, faststructure, maverick)")
	cmd.Flags().StringVarP(&opts.binary, "binary", "b", "", "path to the program binary or script")
	cmd.Flags().String("interpreter", "", "interpreter for fastStructure's structure.py (default from config, python2)")
	cmd.Flags().StringVarP(&opts.infile, "infile", "i", "", "input genotype file")
	cmd.Flags().StringVarP(&opts.outdir, "outdir", "d", "", "output directory")
	cmd.Flags().StringVar(&opts.popfile, "popfile", "", "population file, checked and passed through for plotting")
	cmd.Flags().StringVar(&opts.params, "params", "", "MavericK parameter file")
	cmd.Flags().IntVar(&opts.minK, "mink", 1, "smallest K")
	cmd.Flags().IntVar(&opts.maxK, "maxk", 0, "largest K")
	cmd.Flags().IntP("replicates", "r", 0, "STRUCTURE replicates per K (default from config, 20)")
	cmd.Flags().BoolVar(&opts.log, "log", false, "keep the captured output of every job, not only failed ones")
	cmd.Flags().BoolVar(&opts.noTests, "no-tests", false, "skip best-K estimation")
	cmd.Flags().Int("draws", 0, "MavericK normalization draws per K (default from config, 1000000)")
	cmd.Flags().Uint64Var(&opts.seed, "seed", 0, "normalization seed; 0 derives one from the clock")
	cmd.Flags().BoolVar(&opts.wide, "wide", false, "show output paths and errors for every job")

	return cmd
}

// bindRunFlags binds the flags that have config file defaults
func bindRunFlags(cmd *cobra.Command) error {
	for _, name := range []string{"interpreter", "replicates", "draws"} {
		if err := viper.BindPFlag(name, cmd.Flags().Lookup(name)); err != nil {
			return err
		}
	}
	return nil
}

func runRun(cmd *cobra.Command, opts *runOptions) error {
	if err := requireFlags(cmd, "program", "binary", "infile", "outdir", "maxk"); err != nil {
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

	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	logger.Info("starting run",
		"program", prog.Kind().String(),
		"ks", fmt.Sprintf("%d-%d", cfg.MinK, cfg.MaxK),
		"workers", cfg.Workers,
		"outdir", cfg.OutputDir)

	d := dispatch.New(cfg.Workers, dispatch.WithLogger(logger), dispatch.WithLogs(cfg.Log))
	report, err := d.Run(cmd.Context(), prog)
	if report != nil {
		f := newFormatter(output.WithWide(opts.wide))
		if ferr := f.FormatDispatch(cmd.OutOrStdout(), report.Results); ferr != nil {
			return ferr
		}
	}
	if err != nil {
		return err
	}

	analysis, err := prog.Analyze(cmd.Context(), harvest.NewHarvester(cfg.Workers, logger))
	if err != nil {
		return util.CombineErrors(report.Err(), err)
	}
	if err := printAnalysis(cmd.OutOrStdout(), analysis); err != nil {
		return err
	}

	logger.Info("run complete", "elapsed", report.Elapsed.Round(time.Millisecond), "failed", report.Failures())
	return report.Err()
}

// buildConfig turns the flags into a validated run configuration with
// absolute paths
func (o *runOptions) buildConfig(logger *slog.Logger) (config.Run, error) {
	cfg := config.Run{
		Program:     strings.ToLower(o.program),
		Binary:      o.binary,
		Interpreter: viper.GetString("interpreter"),
		InputFile:   o.infile,
		OutputDir:   o.outdir,
		PopFile:     o.popfile,
		ParamsFile:  o.params,
		MinK:        o.minK,
		MaxK:        o.maxK,
		Replicates:  viper.GetInt("replicates"),
		Workers:     util.ResolveWorkers(viper.GetInt("workers"), logger),
		Log:         o.log,
		NoTests:     o.noTests,
		Draws:       viper.GetInt("draws"),
		Seed:        o.seed,
	}
	if cfg.Program != config.ProgramFastStructure {
		cfg.Interpreter = ""
	}
	if cfg.Seed == 0 {
		cfg.Seed = uint64(time.Now().UnixNano())
		logger.Debug("derived normalization seed", "seed", cfg.Seed)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	// a script run through an interpreter is a file, not a command
	if cfg.Interpreter != "" && !strings.ContainsRune(cfg.Binary, os.PathSeparator) {
		cfg.Binary = "." + string(os.PathSeparator) + cfg.Binary
	}

	cfg, err := cfg.Abs()
	if err != nil {
		return cfg, err
	}

	if err := resolveCommands(&cfg); err != nil {
		return cfg, err
	}

	checks := []util.PathCheck{
		{Label: "input file", Path: cfg.InputFile},
		{Label: "popfile", Path: cfg.PopFile},
		{Label: "parameter file", Path: cfg.ParamsFile},
		{Label: "output directory", Path: cfg.OutputDir, WantDir: true, MayBeMissing: true},
	}
	if filepath.IsAbs(cfg.Binary) {
		checks = append(checks, util.PathCheck{Label: "binary", Path: cfg.Binary})
	}
	if err := util.CheckPaths(checks...); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// resolveCommands looks up bare command names on PATH
func resolveCommands(cfg *config.Run) error {
	lookup := func(label string, name *string) error {
		if *name == "" || strings.ContainsRune(*name, os.PathSeparator) {
			return nil
		}
		path, err := exec.LookPath(*name)
		if err != nil {
			return fmt.Errorf("%s %q not found in PATH: %w", label, *name, util.ErrInputMissing)
		}
		*name = path
		return nil
	}

	return util.CombineErrors(
		lookup("binary", &cfg.Binary),
		lookup("interpreter", &cfg.Interpreter),
	)
}

func newFormatter(opts ...output.Option) output.Formatter {
	opts = append(opts,
		output.WithNoColor(viper.GetBool("no-color")),
		output.WithNoHeaders(viper.GetBool("no-headers")))
	return output.NewFormatter(output.ParseFormat(viper.GetString("output")), opts...)
}
