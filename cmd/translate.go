package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnolang/sqlrender/internal/batch"
	"github.com/gnolang/sqlrender/internal/cache"
	"github.com/gnolang/sqlrender/internal/config"
	"github.com/gnolang/sqlrender/internal/report"
	"github.com/gnolang/sqlrender/rules"
	"github.com/gnolang/sqlrender/translate"
)

type translateOptions struct {
	dryRun     bool
	jsonOutput bool
}

func newTranslateCmd(root *rootOptions) *cobra.Command {
	opts := &translateOptions{}

	cmd := &cobra.Command{
		Use:   "translate [paths...|-]",
		Short: "Translate SQL files, or stdin, to the target dialect",
		Long: `Translate applies the rule table for the target dialect to every file
named on the command line. Directories are walked for files with the
configured extensions. With no paths, or with "-", SQL is read from stdin
and the translation is written to stdout.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(root, cmd)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			table, err := loadTable(cfg.Rules)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), root.timeout)
			defer cancel()

			if len(args) == 0 || (len(args) == 1 && args[0] == "-") {
				return translateStream(ctx, cfg, table, root, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
			}
			return translatePaths(ctx, cfg, table, root, args, opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	flags := cmd.Flags()
	addEngineFlags(cmd)
	flags.IntP("workers", "j", 0, "Number of files translated concurrently (default number of CPUs)")
	flags.StringP("out", "o", "", "Write translations to this directory instead of in place")
	flags.StringSlice("ext", nil, "File extensions translated when walking directories (default .sql)")
	flags.String("cache-dir", "", "Directory used to cache translations between runs")
	flags.BoolVar(&opts.dryRun, "dry-run", false, "Report what would change without writing files")
	flags.BoolVar(&opts.jsonOutput, "json", false, "Print results as JSON")
	return cmd
}

// addEngineFlags registers the flags every command building a translator accepts.
func addEngineFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.String("rules", "", "Rule table (.yaml or .csv); the built-in table is used when empty")
	flags.StringP("dialect", "d", "", "Target dialect")
	flags.Int("max-iterations", 0, "Fail when one rule replaces more than this many times (0 = unlimited)")
}

func loadConfig(root *rootOptions, cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(root.cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}
	if cfg.File != "" {
		root.logger.Debug("loaded config", zap.String("file", cfg.File))
	}
	return cfg, nil
}

func loadTable(path string) (*rules.Table, error) {
	if path == "" {
		return rules.Default(), nil
	}
	return rules.Load(path)
}

func newTranslator(cfg *config.Config, table *rules.Table, root *rootOptions, extra ...translate.Option) (*translate.Translator, error) {
	opts := append([]translate.Option{
		translate.WithMaxIterations(cfg.MaxIterations),
		translate.WithLogger(root.logger.With(zap.String("dialect", cfg.Dialect))),
	}, extra...)
	return table.Translator(cfg.Dialect, opts...)
}

func translateStream(ctx context.Context, cfg *config.Config, table *rules.Table, root *rootOptions, in io.Reader, out, errOut io.Writer) error {
	var extra []translate.Option
	if cfg.Verbose || root.verbose {
		extra = append(extra, translate.WithTrace(func(app translate.Application) {
			report.Application(errOut, app)
		}))
	}
	tr, err := newTranslator(cfg, table, root, extra...)
	if err != nil {
		return err
	}

	input, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	output, err := tr.TranslateContext(ctx, string(input))
	if err != nil {
		return err
	}
	_, err = io.WriteString(out, output)
	return err
}

func translatePaths(ctx context.Context, cfg *config.Config, table *rules.Table, root *rootOptions, paths []string, opts *translateOptions, out, errOut io.Writer) error {
	tr, err := newTranslator(cfg, table, root)
	if err != nil {
		return err
	}

	batchOpts, err := batchOptions(cfg, tr)
	if err != nil {
		return err
	}
	batchOpts.DryRun = opts.dryRun
	batchOpts.Trace = cfg.Verbose || root.verbose
	if !opts.jsonOutput {
		batchOpts.Progress = errOut
	}

	results, err := batch.Run(ctx, root.logger, tr, paths, batchOpts)
	if err != nil {
		return err
	}

	if opts.jsonOutput {
		if err := report.JSON(out, results, opts.dryRun); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	} else {
		report.Summary(out, results)
	}

	if failed := batch.Failed(results); failed > 0 {
		return fmt.Errorf("%d of %d files failed to translate", failed, len(results))
	}
	return nil
}

func batchOptions(cfg *config.Config, tr *translate.Translator) (batch.Options, error) {
	opts := batch.Options{
		Workers:   cfg.Workers,
		Match:     cfg.HasExtension,
		OutputDir: cfg.OutputDir,
	}
	if cfg.CacheDir != "" {
		c, err := cache.New(cfg.CacheDir)
		if err != nil {
			return opts, err
		}
		opts.Cache = c
		opts.Fingerprint = cache.Fingerprint(cfg.Dialect, cfg.MaxIterations, tr.Rules())
	}
	return opts, nil
}
