package cmd

import (
	"github.com/spf13/cobra"

	"github.com/telekom/nusources-grl/pkg/grlctl/output"
	"github.com/telekom/nusources-grl/pkg/grltable"
)

func NewShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show FILE",
		Short: "Print the intervals of a GRL table",
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
			rows, err := grltable.Read(args[0])
			if err != nil {
				return err
			}
			if format == output.FormatTable {
				output.WriteRowsTable(rt.Writer(), rows)
				return nil
			}
			return output.WriteObject(rt.Writer(), format, rows)
		},
	}
}
