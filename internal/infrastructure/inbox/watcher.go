// Package inbox watches a drop directory and hands every settled file that
// matches a pattern to a handler.
package inbox

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/turtacn/OperaLab/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/OperaLab/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/OperaLab/pkg/errors"
)

// Handler processes one file.  Errors are logged and counted; the watcher
// keeps running.
type Handler func(ctx context.Context, path string) error

// Config configures a Watcher.
type Config struct {
	Dir string

	// Pattern is a filepath.Match pattern applied to the base name.
	Pattern string

	// Debounce is the quiet period after the last write before a file is
	// handed over.
	Debounce time.Duration

	// ScanExisting processes files already present when Run starts.
	ScanExisting bool
}

// Watcher dispatches settled files to a Handler one at a time.
type Watcher struct {
	cfg     Config
	handle  Handler
	logger  logging.Logger
	metrics *prometheus.AppMetrics

	mu      sync.Mutex
	pending map[string]time.Time
	now     func() time.Time
}

// New validates cfg and returns a Watcher.
func New(cfg Config, handle Handler, logger logging.Logger, metrics *prometheus.AppMetrics) (*Watcher, error) {
	if cfg.Dir == "" {
		return nil, errors.InvalidParam("watch directory is required")
	}
	if cfg.Pattern == "" {
		cfg.Pattern = "*"
	}
	if _, err := filepath.Match(cfg.Pattern, ""); err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidParam, "invalid watch pattern").WithDetail(cfg.Pattern)
	}
	if handle == nil {
		return nil, errors.InvalidParam("watch handler is required")
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Watcher{
		cfg:     cfg,
		handle:  handle,
		logger:  logger.Named("inbox"),
		metrics: metrics,
		pending: make(map[string]time.Time),
		now:     time.Now,
	}, nil
}

// Matches reports whether path's base name matches the pattern.
func (w *Watcher) Matches(path string) bool {
	ok, _ := filepath.Match(w.cfg.Pattern, filepath.Base(path))
	return ok
}

// Run watches until ctx is done.  It returns nil on cancellation.
func (w *Watcher) Run(ctx context.Context) error {
	info, err := os.Stat(w.cfg.Dir)
	if err != nil || !info.IsDir() {
		return errors.New(errors.CodeNotFound, "watch directory not found").WithDetail(w.cfg.Dir)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to create file watcher")
	}
	defer fw.Close()
	if err := fw.Add(w.cfg.Dir); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to watch directory").WithDetail(w.cfg.Dir)
	}
	w.logger.Info("watching inbox", logging.String("dir", w.cfg.Dir), logging.String("pattern", w.cfg.Pattern))

	if w.cfg.ScanExisting {
		w.scan()
	}

	tick := w.cfg.Debounce / 2
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("inbox watcher stopped")
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			w.observe(ev)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("file watcher error", logging.Err(err))
		case <-ticker.C:
			for _, path := range w.settled() {
				w.process(ctx, path)
			}
		}
	}
}

func (w *Watcher) scan() {
	entries, err := os.ReadDir(w.cfg.Dir)
	if err != nil {
		w.logger.Warn("failed to scan inbox", logging.Err(err))
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, e := range entries {
		path := filepath.Join(w.cfg.Dir, e.Name())
		if e.Type().IsRegular() && w.Matches(path) {
			w.pending[path] = time.Time{}
		}
	}
}

func (w *Watcher) observe(ev fsnotify.Event) {
	if !w.Matches(ev.Name) {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	switch {
	case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
		w.pending[ev.Name] = w.now()
	case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		delete(w.pending, ev.Name)
	}
}

// settled removes and returns, sorted, the pending files quiet for at least
// the debounce period.
func (w *Watcher) settled() []string {
	now := w.now()
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []string
	for path, last := range w.pending {
		if now.Sub(last) >= w.cfg.Debounce {
			out = append(out, path)
			delete(w.pending, path)
		}
	}
	sort.Strings(out)
	return out
}

func (w *Watcher) process(ctx context.Context, path string) {
	if info, err := os.Stat(path); err != nil || !info.Mode().IsRegular() {
		return
	}
	start := time.Now()
	err := w.handle(ctx, path)
	prometheus.RecordWatchFile(w.metrics, err)
	if err != nil {
		w.logger.Error("failed to process inbox file", logging.String("file", path), logging.Err(err))
		return
	}
	w.logger.Info("inbox file processed", logging.String("file", path), logging.Duration("duration", time.Since(start)))
}
