package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/telekom/nusources-grl/pkg/grlctl/output"
	"github.com/telekom/nusources-grl/pkg/version"
)

func NewVersionCommand() *cobra.Command {
	var short bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show grlctl version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := version.GetBuildInfo()

			// Get runtime if available (for custom writer), but don't fail if missing
			rt, _ := getRuntime(cmd)
			writer := cmd.OutOrStdout()
			format := output.FormatTable
			if rt != nil {
				writer = rt.Writer()
				f, err := rt.OutputFormat()
				if err != nil {
					return err
				}
				format = f
			}

			switch {
			case short:
				_, _ = fmt.Fprintln(writer, info.String())
				return nil
			case format != output.FormatTable:
				return output.WriteObject(writer, format, info)
			default:
				_, _ = fmt.Fprintf(writer, "grlctl %s (commit: %s, built: %s, %s, %s)\n", info.Version, info.GitCommit, info.BuildDate, info.GoVersion, info.Platform)
				return nil
			}
		},
	}

	cmd.Flags().BoolVar(&short, "short", false, "Print only version and commit")

	return cmd
}
