// Package watch re-translates SQL files when they change on disk.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultDelay = 100 * time.Millisecond

// Handler is called once per burst of changes to a matching file.
type Handler func(ctx context.Context, path string)

// Watcher watches directory trees and calls a Handler for changed files.
type Watcher struct {
	dirs   []string
	handle Handler

	match  func(path string) bool
	ignore []string
	delay  time.Duration
	logger *zap.Logger

	ready chan struct{}
}

type Option func(*Watcher)

// WithMatch restricts the files that trigger the handler.
func WithMatch(match func(path string) bool) Option {
	return func(w *Watcher) { w.match = match }
}

// WithIgnore skips the given directories (and everything below them).
func WithIgnore(dirs ...string) Option {
	return func(w *Watcher) {
		for _, d := range dirs {
			if d == "" {
				continue
			}
			if abs, err := filepath.Abs(d); err == nil {
				w.ignore = append(w.ignore, abs)
			}
		}
	}
}

// WithDelay sets how long a file must stay quiet before the handler runs.
func WithDelay(d time.Duration) Option {
	return func(w *Watcher) { w.delay = d }
}

func WithLogger(logger *zap.Logger) Option {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// New creates a watcher over dirs. Nothing is watched until Run is called.
func New(dirs []string, handle Handler, opts ...Option) *Watcher {
	w := &Watcher{
		dirs:   dirs,
		handle: handle,
		delay:  defaultDelay,
		logger: zap.NewNop(),
		ready:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Ready is closed once every directory is being watched.
func (w *Watcher) Ready() <-chan struct{} {
	return w.ready
}

// Run watches until ctx is done. It returns nil when stopped by ctx.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fw.Close()

	for _, dir := range w.dirs {
		if err := w.addTree(fw, dir); err != nil {
			return fmt.Errorf("error adding directory to watcher: %w", err)
		}
	}
	close(w.ready)
	w.logger.Info("watching for changes", zap.Strings("dirs", w.dirs))

	deb := newDebouncer(w.delay)
	defer deb.stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, fw, event, deb)
		case path := <-deb.fire:
			deb.done(path)
			w.handle(ctx, path)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watch error", zap.Error(err))
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, fw *fsnotify.Watcher, event fsnotify.Event, deb *debouncer) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}
	if w.ignored(event.Name) {
		return
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(fw, event.Name); err != nil {
				w.logger.Warn("failed to watch new directory", zap.String("dir", event.Name), zap.Error(err))
			}
			return
		}
	}
	if w.match != nil && !w.match(event.Name) {
		return
	}

	// editors often write a file in several steps
	deb.touch(ctx, event.Name)
}

// debouncer delivers a path on fire once it has been quiet for delay. It is
// owned by the goroutine that receives from fire.
type debouncer struct {
	delay   time.Duration
	pending map[string]*time.Timer
	fire    chan string
}

func newDebouncer(delay time.Duration) *debouncer {
	return &debouncer{
		delay:   delay,
		pending: make(map[string]*time.Timer),
		fire:    make(chan string),
	}
}

func (d *debouncer) touch(ctx context.Context, path string) {
	if t, ok := d.pending[path]; ok {
		// A timer that already fired is waiting to send path; the
		// receiver will handle it, so it must not be armed again.
		if t.Stop() {
			t.Reset(d.delay)
		}
		return
	}
	d.pending[path] = time.AfterFunc(d.delay, func() {
		select {
		case d.fire <- path:
		case <-ctx.Done():
		}
	})
}

// done forgets path after its fire was received.
func (d *debouncer) done(path string) {
	delete(d.pending, path)
}

func (d *debouncer) stop() {
	for _, t := range d.pending {
		t.Stop()
	}
}

func (w *Watcher) addTree(fw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if w.ignored(path) {
			return filepath.SkipDir
		}
		return fw.Add(path)
	})
}

func (w *Watcher) ignored(path string) bool {
	if len(w.ignore) == 0 {
		return false
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	for _, dir := range w.ignore {
		if abs == dir || strings.HasPrefix(abs, dir+string(filepath.Separator)) {
			return true
		}
	}
	return false
}
