// Package watch strips metadata from files as they appear in watched
// directories.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ankit-chaubey/metadata-scrub/core"
	"github.com/ankit-chaubey/metadata-scrub/core/batch"
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// Defaults used when the Config leaves a duration unset.
const (
	DefaultSettle   = 2 * time.Second
	DefaultCooldown = 5 * time.Second
)

// Config controls a Watcher.
type Config struct {
	Resolver batch.Resolver
	Logger   *log.Logger
	Options  core.StripOptions
	// Settle is how long a file must go without events before it is
	// stripped, so half-copied files are left alone.
	Settle time.Duration
	// Cooldown is how long events for a file we just rewrote are
	// ignored. The atomic rename we perform shows up as a create event.
	Cooldown  time.Duration
	Recursive bool
	// OnResult, when set, receives every processed file.
	OnResult func(core.Result)
}

// Watcher owns the fsnotify watch and the per-file debounce state.
type Watcher struct {
	cfg     Config
	fsw     *fsnotify.Watcher
	runner  *batch.Runner
	pending map[string]time.Time
	recent  map[string]time.Time
}

// New starts watching dirs. Call Run to process events and Close when done.
func New(cfg Config, dirs ...string) (*Watcher, error) {
	if cfg.Resolver == nil {
		return nil, errors.New("watch: resolver is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = core.DiscardLogger()
	}
	if cfg.Settle <= 0 {
		cfg.Settle = DefaultSettle
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultCooldown
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	w := &Watcher{
		cfg: cfg,
		fsw: fsw,
		runner: &batch.Runner{
			Resolver: cfg.Resolver,
			Logger:   cfg.Logger,
			Workers:  1,
			Options:  cfg.Options,
		},
		pending: make(map[string]time.Time),
		recent:  make(map[string]time.Time),
	}
	for _, dir := range dirs {
		if err := w.add(dir); err != nil {
			fsw.Close()
			return nil, err
		}
	}
	return w, nil
}

func (w *Watcher) add(dir string) error {
	if !w.cfg.Recursive {
		if err := w.fsw.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
		w.cfg.Logger.Info("watching", "dir", dir)
		return nil
	}
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(p); err != nil {
			return fmt.Errorf("watch %s: %w", p, err)
		}
		w.cfg.Logger.Info("watching", "dir", p)
		return nil
	})
}

// Close stops the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// Run processes events until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	tick := w.cfg.Settle / 4
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.cfg.Logger.Error("watcher error", "err", err)
		case now := <-ticker.C:
			w.flush(ctx, now)
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return
	}
	name := filepath.Base(ev.Name)
	if strings.HasPrefix(name, ".") || core.IsTempFile(name) {
		return
	}

	info, err := os.Stat(ev.Name)
	if err != nil {
		return
	}
	if info.IsDir() {
		if w.cfg.Recursive && ev.Has(fsnotify.Create) {
			if err := w.add(ev.Name); err != nil {
				w.cfg.Logger.Error("watch new directory", "dir", ev.Name, "err", err)
			}
		}
		return
	}

	if t, ok := w.recent[ev.Name]; ok && time.Since(t) < w.cfg.Cooldown {
		return
	}
	if core.FormatForExt(filepath.Ext(ev.Name)) == core.FmtUnknown {
		return
	}
	w.pending[ev.Name] = time.Now()
}

// flush strips every pending file that has been quiet for the settle time.
func (w *Watcher) flush(ctx context.Context, now time.Time) {
	var ready []string
	for p, last := range w.pending {
		if now.Sub(last) >= w.cfg.Settle {
			ready = append(ready, p)
			delete(w.pending, p)
		}
	}
	for p, t := range w.recent {
		if now.Sub(t) >= w.cfg.Cooldown {
			delete(w.recent, p)
		}
	}
	if len(ready) == 0 {
		return
	}

	sum := w.runner.Run(ctx, ready)
	done := time.Now()
	for _, r := range sum.Results {
		w.recent[r.Path] = done
		if r.Status == core.StatusUnsupported {
			continue
		}
		if w.cfg.OnResult != nil {
			w.cfg.OnResult(r)
		}
	}
}
