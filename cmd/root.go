package cmd

import (
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const defaultTimeout = 5 * time.Minute

// rootOptions holds the global flags and the logger shared by subcommands.
type rootOptions struct {
	cfgFile string
	timeout time.Duration
	verbose bool

	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{logger: zap.NewNop()}

	rootCmd := &cobra.Command{
		Use:          "sqlrender",
		Short:        "sqlrender - rewrite SQL between dialects with pattern rules",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			opts.logger = newLogger(cmd, opts.verbose)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = opts.logger.Sync()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.cfgFile, "config", "", "Path to the configuration file (default .sqlrender.yaml)")
	flags.DurationVar(&opts.timeout, "timeout", defaultTimeout, "Timeout for a translation run")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Log every applied rule")

	rootCmd.AddCommand(newTranslateCmd(opts))
	rootCmd.AddCommand(newRulesCmd(opts))
	rootCmd.AddCommand(newInitCmd(opts))
	rootCmd.AddCommand(newWatchCmd(opts))
	return rootCmd
}

// newLogger writes console logs to the command's stderr. Warnings and above
// are shown unless verbose is set.
func newLogger(cmd *cobra.Command, verbose bool) *zap.Logger {
	level := zapcore.WarnLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	encoderCfg := zap.NewDevelopmentEncoderConfig()
	encoderCfg.TimeKey = ""
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderCfg),
		zapcore.AddSync(cmd.ErrOrStderr()),
		level,
	)
	return zap.New(core)
}

func Execute() error {
	return newRootCmd().Execute()
}
