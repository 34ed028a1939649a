// Package batch translates many SQL files concurrently.
package batch

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gnolang/sqlrender/internal/cache"
	"github.com/gnolang/sqlrender/translate"
)

// Translator is the part of *translate.Translator the batch runner uses.
type Translator interface {
	TranslateContext(ctx context.Context, subject string) (string, error)
	Trace(ctx context.Context, subject string) (string, []translate.Application, error)
}

// Options controls a batch run.
type Options struct {
	// Workers limits concurrent translations; zero means runtime.NumCPU().
	Workers int
	// Match selects files while walking directories; nil selects every
	// file. Files named explicitly are always translated.
	Match func(path string) bool
	// OutputDir receives the outputs, mirroring paths relative to each
	// argument. When empty, changed files are rewritten in place.
	OutputDir string
	DryRun    bool

	Cache       *cache.Cache
	Fingerprint string

	// Progress is where the progress bar is drawn; nil disables it.
	Progress io.Writer
	// Trace records the rules applied to every translated file.
	Trace bool
}

// Result is the outcome for one file.
type Result struct {
	Path    string
	Dest    string
	Output  string
	Changed bool
	Cached  bool
	Err     error

	// Applications is only filled with Options.Trace, and stays empty for
	// cached outputs.
	Applications []translate.Application
}

// File is an input file and its path relative to the argument it came from.
type File struct {
	Path string
	Rel  string
}

// Expand lists the files named by paths. Directories are walked and filtered by match.
func Expand(paths []string, match func(path string) bool) ([]File, error) {
	var files []File
	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("error accessing %s: %w", root, err)
		}
		if !info.IsDir() {
			files = append(files, File{Path: root, Rel: filepath.Base(root)})
			continue
		}

		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || (match != nil && !match(path)) {
				return nil
			}
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			files = append(files, File{Path: path, Rel: rel})
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("error walking directory %s: %w", root, err)
		}
	}
	return files, nil
}

// Run translates every file named by paths. Per-file failures are reported in
// the results; the returned error is only set when the run itself fails or
// ctx is cancelled. Results keep the order of the expanded file list.
func Run(ctx context.Context, logger *zap.Logger, tr Translator, paths []string, opts Options) ([]Result, error) {
	files, err := Expand(paths, opts.Match)
	if err != nil {
		return nil, err
	}
	return RunFiles(ctx, logger, tr, files, opts)
}

// RunFiles is Run over an already expanded file list.
func RunFiles(ctx context.Context, logger *zap.Logger, tr Translator, files []File, opts Options) ([]Result, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	var bar *progressbar.ProgressBar
	if opts.Progress != nil && len(files) > 1 {
		bar = progressbar.NewOptions(len(files),
			progressbar.OptionSetWriter(opts.Progress),
			progressbar.OptionSetDescription("translating"),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "[green]=[reset]",
				SaucerHead:    "[green]>[reset]",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}))
	}

	results := make([]Result, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, f := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = processFile(gctx, logger, tr, f, opts)
			if bar != nil {
				_ = bar.Add(1)
			}
			// a file interrupted by ctx fails the run instead of being reported alone
			return gctx.Err()
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	if bar != nil {
		_ = bar.Finish()
	}
	return results, nil
}

func processFile(ctx context.Context, logger *zap.Logger, tr Translator, f File, opts Options) Result {
	res := Result{Path: f.Path}

	content, err := os.ReadFile(f.Path)
	if err != nil {
		res.Err = fmt.Errorf("failed to read file: %w", err)
		logger.Error("error reading file", zap.String("file", f.Path), zap.Error(err))
		return res
	}

	var key string
	if opts.Cache != nil {
		key = cache.Key(opts.Fingerprint, content)
		if out, ok := opts.Cache.Get(key); ok {
			res.Output, res.Cached = out, true
		}
	}
	if !res.Cached {
		var (
			out string
			err error
		)
		if opts.Trace {
			out, res.Applications, err = tr.Trace(ctx, string(content))
		} else {
			out, err = tr.TranslateContext(ctx, string(content))
		}
		if err != nil {
			res.Err = err
			logger.Error("error translating file", zap.String("file", f.Path), zap.Error(err))
			return res
		}
		res.Output = out
		if opts.Cache != nil {
			if err := opts.Cache.Set(key, out); err != nil {
				logger.Warn("failed to update cache", zap.String("file", f.Path), zap.Error(err))
			}
		}
	}
	res.Changed = res.Output != string(content)

	if opts.DryRun {
		return res
	}

	switch {
	case opts.OutputDir != "":
		res.Dest = filepath.Join(opts.OutputDir, f.Rel)
		if err := os.MkdirAll(filepath.Dir(res.Dest), 0o755); err != nil {
			res.Err = fmt.Errorf("failed to create output directory: %w", err)
			return res
		}
	case res.Changed:
		res.Dest = f.Path
	default:
		return res
	}

	if err := os.WriteFile(res.Dest, []byte(res.Output), fileMode(f.Path)); err != nil {
		res.Err = fmt.Errorf("failed to write file: %w", err)
		logger.Error("error writing file", zap.String("file", res.Dest), zap.Error(err))
		return res
	}
	logger.Debug("translated file",
		zap.String("file", f.Path),
		zap.String("dest", res.Dest),
		zap.Bool("changed", res.Changed),
		zap.Bool("cached", res.Cached))
	return res
}

func fileMode(path string) os.FileMode {
	if info, err := os.Stat(path); err == nil {
		return info.Mode().Perm()
	}
	return 0o644
}

// Failed counts results that carry an error.
func Failed(results []Result) int {
	n := 0
	for _, r := range results {
		if r.Err != nil {
			n++
		}
	}
	return n
}
