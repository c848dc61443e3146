package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/telekom/nusources-grl/pkg/grlctl/config"
	"github.com/telekom/nusources-grl/pkg/grlctl/output"
)

func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage grlctl configuration",
	}

	cmd.AddCommand(
		newConfigInitCommand(),
		newConfigViewCommand(),
	)

	return cmd
}

func newConfigInitCommand() *cobra.Command {
	var (
		dataRoot  string
		outputDir string
		force     bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a grlctl config file with default settings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			path := rt.configPathValue()
			if !force {
				if _, err := os.Stat(path); err == nil {
					return fmt.Errorf("config already exists: %s", path)
				}
			}
			cfg := config.DefaultConfig()
			if dataRoot != "" {
				cfg.Input.DataRoot = dataRoot
			}
			cfg.Build.OutputDir = outputDir
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := config.Save(path, &cfg); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(rt.Writer(), "Initialized config at %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&dataRoot, "data-root", "", "Data warehouse root")
	cmd.Flags().StringVar(&outputDir, "output-dir", "", "Default GRL output directory")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing config")
	return cmd
}

func newConfigViewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "view",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			if err := rt.EnsureConfigLoaded(); err != nil {
				return err
			}
			format := output.FormatYAML
			if rt.outputFormat == string(output.FormatJSON) {
				format = output.FormatJSON
			}
			return output.WriteObject(rt.Writer(), format, rt.cfg)
		},
	}
}
