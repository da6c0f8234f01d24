// Package watch detects changes to a site directory tree.
//
// A [Watcher] wraps fsnotify with the behavior a site preview needs:
// recursive watching (new subdirectories are picked up as they appear),
// filtering of editor droppings and temp files, and debouncing so a burst
// of writes from a generator run or an editor save collapses into a single
// change notification.
//
// This package is internal to PageDeck and its API may change without
// notice.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// defaultDebounce is the quiet period required before a change
// notification fires.
const defaultDebounce = 250 * time.Millisecond

// Watcher emits a coalesced notification whenever the watched tree changes.
//
// Lifecycle mirrors the check scheduler: construct with [New], begin with
// [Watcher.Start], consume [Watcher.Events], and call [Watcher.Stop] when
// done. Start and Stop are safe for concurrent use and idempotent.
type Watcher struct {
	root     string
	debounce time.Duration
	fsw      *fsnotify.Watcher
	events   chan struct{}
	logger   *slog.Logger

	mu        sync.Mutex
	started   bool
	stopped   bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// New creates a [Watcher] over the directory tree rooted at dir.
//
// debounce sets the quiet period before a change notification fires; zero
// selects a 250ms default. The watcher registers dir and every existing
// subdirectory immediately, so changes are not missed between construction
// and [Watcher.Start].
func New(dir string, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve watch dir: %w", err)
	}
	if debounce <= 0 {
		debounce = defaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	w := &Watcher{
		root:     root,
		debounce: debounce,
		fsw:      fsw,
		events:   make(chan struct{}, 1),
		logger:   logger,
	}

	if err := w.addRecursive(root); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

// Events returns the channel that receives coalesced change notifications.
// The channel has a buffer of one; notifications arriving while a previous
// one is unconsumed merge into it. The channel is closed when the watcher
// stops.
func (w *Watcher) Events() <-chan struct{} {
	return w.events
}

// Start begins watching in a background goroutine.
//
// Start is non-blocking and idempotent; calling it after Stop is a no-op.
// The watcher runs until [Watcher.Stop] is called or ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) {
	w.mu.Lock()
	if w.started || w.stopped {
		w.mu.Unlock()
		return
	}
	w.started = true

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(1)
	w.mu.Unlock()

	go w.run(ctx)
}

// Stop halts the watcher, closes the events channel, and releases the
// underlying fsnotify resources. Safe to call multiple times and before
// Start.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.stopped {
		w.stopped = true
		if w.cancel != nil {
			w.cancel()
		}
	}
	w.mu.Unlock()

	w.wg.Wait()
	_ = w.fsw.Close()
	w.closeOnce.Do(func() { close(w.events) })
}

// run consumes raw fsnotify events, filters and debounces them, and emits
// coalesced notifications.
func (w *Watcher) run(ctx context.Context) {
	defer w.wg.Done()

	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ignored(ev.Name) {
				continue
			}
			// new directories must be watched before files land in them
			if ev.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := w.addRecursive(ev.Name); err != nil {
						w.logger.Warn("failed to watch new directory", "dir", ev.Name, "error", err)
					}
				}
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}

		case <-timerC:
			timer = nil
			timerC = nil
			select {
			case w.events <- struct{}{}:
			default:
				// a notification is already pending; merge
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", "error", err)
		}
	}
}

// addRecursive registers dir and every subdirectory beneath it, skipping
// VCS directories.
func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		name := d.Name()
		if p != dir && (name == ".git" || name == ".hg" || name == ".svn") {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(p); err != nil {
			return fmt.Errorf("watch %s: %w", p, err)
		}
		return nil
	})
}

// ignored filters editor droppings and temp files whose churn would
// otherwise trigger rescans.
func ignored(name string) bool {
	base := filepath.Base(name)
	if strings.HasPrefix(base, ".#") || strings.HasPrefix(base, "#") {
		return true
	}
	switch {
	case strings.HasSuffix(base, "~"),
		strings.HasSuffix(base, ".swp"),
		strings.HasSuffix(base, ".swx"),
		strings.HasSuffix(base, ".tmp"),
		strings.HasSuffix(base, ".part"):
		return true
	}
	return base == ".DS_Store" || base == "4913" // vim's probe file
}
