package cmd

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/telekom/nusources-grl/pkg/grlctl/output"
	"github.com/telekom/nusources-grl/pkg/telemetry"
)

var completionGenerators = map[string]func(root *cobra.Command, w io.Writer) error{
	"bash":       func(root *cobra.Command, w io.Writer) error { return root.GenBashCompletionV2(w, true) },
	"zsh":        func(root *cobra.Command, w io.Writer) error { return root.GenZshCompletion(w) },
	"fish":       func(root *cobra.Command, w io.Writer) error { return root.GenFishCompletion(w, true) },
	"powershell": func(root *cobra.Command, w io.Writer) error { return root.GenPowerShellCompletionWithDesc(w) },
}

func NewCompletionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion",
		Long: `Generate a completion script for grlctl. Besides commands and flags it
completes output formats, trace exporters and directory flags.

  source <(grlctl completion bash)
  grlctl completion zsh > "${fpath[1]}/_grlctl"`,
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			return completionGenerators[args[0]](cmd.Root(), rt.Writer())
		},
	}
}

// registerCompletions attaches value completions to the flags of root and
// its build and dag commands.
func registerCompletions(root *cobra.Command) {
	formats := []string{string(output.FormatTable), string(output.FormatJSON), string(output.FormatYAML)}
	_ = root.RegisterFlagCompletionFunc("output", cobra.FixedCompletions(formats, cobra.ShellCompDirectiveNoFileComp))
	_ = root.MarkPersistentFlagFilename("config", "yaml", "yml")

	for _, c := range root.Commands() {
		switch c.Name() {
		case "build":
			exporters := []string{telemetry.ExporterOTLP, telemetry.ExporterStdout, telemetry.ExporterNone}
			_ = c.RegisterFlagCompletionFunc("trace-exporter", cobra.FixedCompletions(exporters, cobra.ShellCompDirectiveNoFileComp))
			_ = c.MarkFlagDirname("output-dir")
			_ = c.MarkFlagDirname("data-root")
		case "dag":
			_ = c.MarkFlagDirname("output-dir")
			_ = c.MarkFlagDirname("data-root")
			_ = c.MarkFlagFilename("submit-file", "sub")
		}
	}
}
