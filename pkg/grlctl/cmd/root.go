package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/telekom/nusources-grl/pkg/grlctl/config"
	"github.com/telekom/nusources-grl/pkg/grlctl/output"
	"github.com/telekom/nusources-grl/pkg/system"
)

type Config struct {
	// Context is the parent of every command context; nil means
	// context.Background.
	Context      context.Context
	ConfigPath   string
	OutputWriter io.Writer
	// Logger replaces the logger built from --debug/--verbose/--quiet.
	Logger *zap.SugaredLogger
}

type runtimeState struct {
	configPath   string
	cfg          *config.Config
	outputFormat string
	debug        bool
	verbose      bool
	quiet        bool
	writer       io.Writer
	log          *zap.SugaredLogger
	injectedLog  bool
}

type runtimeKey struct{}

func DefaultConfig() Config {
	return Config{
		ConfigPath:   config.DefaultConfigPath(),
		OutputWriter: os.Stdout,
	}
}

func NewRootCommand(cfg Config) *cobra.Command {
	rt := &runtimeState{configPath: cfg.ConfigPath, writer: cfg.OutputWriter, log: cfg.Logger, injectedLog: cfg.Logger != nil}

	root := &cobra.Command{
		Use:           "grlctl",
		Short:         "Build good run lists from gap reports",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if rt.writer == nil {
				rt.writer = os.Stdout
			}
			if rt.configPath == "" {
				rt.configPath = config.DefaultConfigPath()
			}
			if rt.outputFormat == "" {
				rt.outputFormat = os.Getenv("GRLCTL_OUTPUT")
			}
			if !rt.debug {
				rt.debug = envBool("GRLCTL_DEBUG")
			}
			if !rt.verbose {
				rt.verbose = envBool("GRLCTL_VERBOSE")
			}
			if !rt.injectedLog {
				zl, err := system.NewLogger(system.LoggerOptions{Debug: rt.debug, Verbose: rt.verbose, Quiet: rt.quiet})
				if err != nil {
					return err
				}
				rt.log = zl.Sugar()
			}

			// Skip config loading for commands that don't need it
			if cmd.Name() == "init" && cmd.Parent() != nil && cmd.Parent().Name() == "config" {
				return nil
			}
			if cmd.Name() == "version" || cmd.Name() == "completion" {
				return nil
			}
			return rt.EnsureConfigLoaded()
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if rt.log != nil && !rt.injectedLog {
				_ = rt.log.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&rt.configPath, "config", rt.configPath, "Path to config file")
	root.PersistentFlags().StringVarP(&rt.outputFormat, "output", "o", "", "Output format: table, json, yaml")
	root.PersistentFlags().BoolVar(&rt.debug, "debug", false, "Enable development logging at debug level")
	root.PersistentFlags().BoolVarP(&rt.verbose, "verbose", "v", false, "Enable debug level logging")
	root.PersistentFlags().BoolVarP(&rt.quiet, "quiet", "q", false, "Only log warnings and errors")

	parent := cfg.Context
	if parent == nil {
		parent = context.Background()
	}
	root.SetContext(context.WithValue(parent, runtimeKey{}, rt))

	root.AddCommand(
		NewBuildCommand(),
		NewDAGCommand(),
		NewShowCommand(),
		NewGapsCommand(),
		NewConfigCommand(),
		NewCompletionCommand(),
		NewVersionCommand(),
	)
	registerCompletions(root)

	return root
}

func getRuntime(cmd *cobra.Command) (*runtimeState, error) {
	rt, ok := cmd.Context().Value(runtimeKey{}).(*runtimeState)
	if !ok || rt == nil {
		return nil, errors.New("runtime not initialized")
	}
	return rt, nil
}

func (rt *runtimeState) OutputFormat() (output.Format, error) {
	if rt.outputFormat != "" {
		return output.ParseFormat(rt.outputFormat)
	}
	if rt.cfg != nil && rt.cfg.Settings.OutputFormat != "" {
		return output.ParseFormat(rt.cfg.Settings.OutputFormat)
	}
	return output.FormatTable, nil
}

func (rt *runtimeState) Writer() io.Writer {
	if rt.writer != nil {
		return rt.writer
	}
	return os.Stdout
}

func (rt *runtimeState) Log() *zap.SugaredLogger {
	if rt.log != nil {
		return rt.log
	}
	return zap.NewNop().Sugar()
}

// EnsureConfigLoaded reads the config file, falling back to defaults when
// it does not exist.
func (rt *runtimeState) EnsureConfigLoaded() error {
	if rt.cfg != nil {
		return nil
	}
	cfg, err := config.LoadOrDefault(rt.configPathValue())
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config %s: %w", rt.configPathValue(), err)
	}
	rt.cfg = cfg
	return nil
}

func (rt *runtimeState) configPathValue() string {
	if rt.configPath == "" {
		return config.DefaultConfigPath()
	}
	return rt.configPath
}

func envBool(key string) bool {
	return strings.EqualFold(os.Getenv(key), "true")
}

// stringSetting resolves a value from flag, then environment, then config.
func stringSetting(flags *pflag.FlagSet, name, env, fromConfig string) string {
	if f := flags.Lookup(name); f != nil && f.Changed {
		return f.Value.String()
	}
	if v := os.Getenv(env); v != "" {
		return v
	}
	return fromConfig
}
