package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/telekom/nusources-grl/pkg/gapreport"
	"github.com/telekom/nusources-grl/pkg/grlctl/output"
)

func NewGapsCommand() *cobra.Command {
	var canonical bool

	cmd := &cobra.Command{
		Use:   "gaps FILE",
		Short: "Parse and validate one gap report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			format, err := rt.OutputFormat()
			if err != nil {
				return err
			}
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()

			rep, err := gapreport.Parse(f)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			switch {
			case canonical:
				_, err = rep.WriteTo(rt.Writer())
				return err
			case format == output.FormatTable:
				output.WriteReportTable(rt.Writer(), rep)
				return nil
			default:
				return output.WriteObject(rt.Writer(), format, rep)
			}
		},
	}
	cmd.Flags().BoolVar(&canonical, "canonical", false, "Print the report in its canonical text layout")
	return cmd
}
