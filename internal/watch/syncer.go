// Package watch refreshes the local index cache when index artifacts change.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/mizushima/kiroku/internal/offline"
)

const defaultDebounce = 400 * time.Millisecond

// Syncer watches an index directory for changes to the canonical
// artifacts and invokes onSync after a quiet period. Writes to several
// artifacts in quick succession coalesce into a single sync, since one
// sync mirrors all of them anyway.
type Syncer struct {
	indexDir string
	onSync   func()
	debounce time.Duration

	watcher  *fsnotify.Watcher
	mu       sync.Mutex
	timer    *time.Timer
	done     chan struct{}
	started  bool
	stopOnce sync.Once
	logger   *zap.Logger // optional; when set, logs artifact events
}

// Option configures a Syncer.
type Option func(*Syncer)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(s *Syncer) { s.logger = l }
}

// WithDebounce overrides the quiet period before onSync fires.
func WithDebounce(d time.Duration) Option {
	return func(s *Syncer) { s.debounce = d }
}

// NewSyncer creates a syncer over indexDir. onSync is called (from the
// syncer's goroutine) after artifact changes settle.
func NewSyncer(indexDir string, onSync func(), opts ...Option) *Syncer {
	s := &Syncer{
		indexDir: indexDir,
		onSync:   onSync,
		debounce: defaultDebounce,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start begins watching. It runs until ctx is cancelled or Stop is called.
// The index directory is created if missing so the watch can be
// established before the pipeline first writes to it.
func (s *Syncer) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	if _, err := os.Stat(s.indexDir); os.IsNotExist(err) {
		if err := os.MkdirAll(s.indexDir, 0755); err != nil {
			s.mu.Unlock()
			return err
		}
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if err := watcher.Add(s.indexDir); err != nil {
		_ = watcher.Close()
		s.mu.Unlock()
		return err
	}
	s.watcher = watcher
	s.started = true
	s.mu.Unlock()
	if s.logger != nil {
		s.logger.Debug("syncer starting", zap.String("index_dir", s.indexDir))
	}
	go s.run(ctx)
	return nil
}

func (s *Syncer) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			s.Stop()
			return
		case <-s.done:
			return
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			s.handleEvent(ev)
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			if err != nil && s.logger != nil {
				s.logger.Debug("syncer watch error", zap.Error(err))
			}
		}
	}
}

func (s *Syncer) handleEvent(ev fsnotify.Event) {
	if !offline.IsCanonical(filepath.Base(ev.Name)) {
		return
	}
	if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
		return
	}
	if s.logger != nil {
		s.logger.Debug("syncer artifact event", zap.String("op", ev.Op.String()), zap.String("path", ev.Name))
	}
	s.scheduleSync()
}

// scheduleSync (re)arms the coalescing timer.
func (s *Syncer) scheduleSync() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, func() {
		s.mu.Lock()
		s.timer = nil
		logger := s.logger
		s.mu.Unlock()
		if logger != nil {
			logger.Debug("syncer refreshing cache (debounced)")
		}
		if s.onSync != nil {
			s.onSync()
		}
	})
}

// Stop stops the syncer and releases resources. A pending debounced sync
// is cancelled.
func (s *Syncer) Stop() {
	s.mu.Lock()
	if !s.started || s.watcher == nil {
		s.mu.Unlock()
		return
	}
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	_ = s.watcher.Close()
	s.watcher = nil
	s.started = false
	s.mu.Unlock()
	s.stopOnce.Do(func() { close(s.done) })
}
