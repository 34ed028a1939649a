package cmd

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnolang/sqlrender/internal/batch"
	"github.com/gnolang/sqlrender/internal/report"
	"github.com/gnolang/sqlrender/internal/watch"
)

func newWatchCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [dirs...]",
		Short: "Translate SQL files again whenever they change",
		RunE: func(cmd *cobra.Command, args []string) error {
			dirs := args
			if len(dirs) == 0 {
				dirs = []string{"."}
			}

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
			tr, err := newTranslator(cfg, table, root)
			if err != nil {
				return err
			}
			opts, err := batchOptions(cfg, tr)
			if err != nil {
				return err
			}
			opts.Trace = cfg.Verbose || root.verbose

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			out := cmd.OutOrStdout()
			handle := func(ctx context.Context, path string) {
				results, err := batch.RunFiles(ctx, root.logger, tr, []batch.File{watchedFile(dirs, path)}, opts)
				if err != nil {
					root.logger.Error("error translating file", zap.String("file", path), zap.Error(err))
					return
				}
				report.Summary(out, results)
			}

			w := watch.New(dirs, handle,
				watch.WithMatch(cfg.HasExtension),
				watch.WithIgnore(cfg.OutputDir, cfg.CacheDir),
				watch.WithLogger(root.logger),
			)
			return w.Run(ctx)
		},
	}

	addEngineFlags(cmd)
	cmd.Flags().StringP("out", "o", "", "Write translations to this directory instead of in place")
	cmd.Flags().StringSlice("ext", nil, "File extensions to watch (default .sql)")
	cmd.Flags().String("cache-dir", "", "Directory used to cache translations between runs")
	return cmd
}

// watchedFile resolves path against the watched directory that contains it,
// so outputs keep their relative layout.
func watchedFile(dirs []string, path string) batch.File {
	for _, dir := range dirs {
		rel, err := filepath.Rel(dir, path)
		if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return batch.File{Path: path, Rel: rel}
		}
	}
	return batch.File{Path: path, Rel: filepath.Base(path)}
}
