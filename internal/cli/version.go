package cli

import (
	"fmt"

	"github.com/aryankumar/threader/internal/output"
	"github.com/aryankumar/threader/pkg/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// newVersionCmd creates the version command
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  "Display the threader version, commit and build details",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVersion(cmd)
		},
	}
}

func runVersion(cmd *cobra.Command) error {
	info := version.Get()
	w := cmd.OutOrStdout()

	switch format := viper.GetString("output"); format {
	case string(output.FormatJSON), string(output.FormatYAML):
		return output.NewFormatter(output.Format(format)).Format(w, info)
	case string(output.FormatTable):
		if !cmd.Flags().Changed("output") {
			break
		}
		return output.NewFormatter(output.FormatTable).Format(w, map[string]interface{}{
			"Version":    info.Version,
			"Commit":     info.Commit,
			"Build Time": info.BuildTime,
			"Go Version": info.GoVersion,
			"Platform":   info.Platform,
		})
	}

	fmt.Fprintln(w, info.String())
	return nil
}
