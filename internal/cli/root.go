package cli

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aryankumar/threader/internal/config"
	"github.com/aryankumar/threader/internal/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
)

// Execute runs the root command with the provided context
func Execute(ctx context.Context) error {
	return newRootCmd().ExecuteContext(ctx)
}

// newRootCmd creates the root command
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "threader",
		Short: "Threader - parallel runs and best-K estimation for population clustering",
		Long: `Threader runs STRUCTURE, fastStructure or MavericK over a range of K values
on a fixed pool of worker processes, then harvests the outputs and estimates
the best K: the Evanno method for STRUCTURE, the marginal likelihood and
model components for fastStructure, and thermodynamic integration evidence
for MavericK.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.threader.yaml)")
	rootCmd.PersistentFlags().StringP("output", "o", "", "output format (json, yaml, table)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output with debug logging")
	rootCmd.PersistentFlags().Bool("no-color", false, "disable colored output")
	rootCmd.PersistentFlags().Bool("no-headers", false, "omit table headers")
	rootCmd.PersistentFlags().IntP("workers", "w", 0, "number of concurrent jobs (default from config, capped at the CPU count)")

	viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("no-color", rootCmd.PersistentFlags().Lookup("no-color"))
	viper.BindPFlag("no-headers", rootCmd.PersistentFlags().Lookup("no-headers"))
	viper.BindPFlag("workers", rootCmd.PersistentFlags().Lookup("workers"))

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newCompletionCmd())
	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newHarvestCmd())

	return rootCmd
}

// initConfig loads the config file defaults into viper and sets up logging.
// Precedence is flag, then THREADER_* environment variable, then config file.
func initConfig(cmd *cobra.Command) error {
	fileCfg, err := config.NewManager(cfgFile).Load()
	if err != nil {
		return err
	}

	d := fileCfg.Defaults
	viper.SetDefault("workers", d.Workers)
	viper.SetDefault("replicates", d.Replicates)
	viper.SetDefault("draws", d.Draws)
	viper.SetDefault("interpreter", d.Interpreter)
	viper.SetDefault("output", d.OutputFormat)
	viper.SetDefault("no-color", d.NoColor)

	viper.SetEnvPrefix("THREADER")
	viper.AutomaticEnv()

	setupLogging(cmd)

	return nil
}

// setupLogging configures structured logging with slog
func setupLogging(cmd *cobra.Command) {
	verbose := viper.GetBool("verbose")
	noColor := viper.GetBool("no-color")

	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	var handler slog.Handler
	if noColor {
		handler = slog.NewJSONHandler(cmd.ErrOrStderr(), opts)
	} else {
		handler = slog.NewTextHandler(cmd.ErrOrStderr(), opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	if verbose {
		slog.Debug("verbose logging enabled")
		if cfgFile != "" {
			slog.Debug("loaded configuration", "file", cfgFile)
		}
	}
}

// requireFlags returns an error naming every required flag left unset
func requireFlags(cmd *cobra.Command, names ...string) error {
	var missing []string
	for _, n := range names {
		if !cmd.Flags().Changed(n) {
			missing = append(missing, "--"+n)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("required flag(s) not set: %s: %w", strings.Join(missing, ", "), util.ErrInvalidConfig)
	}
	return nil
}
