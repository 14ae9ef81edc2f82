// Package watch delivers recursive filesystem change notifications for the
// configured watch targets.
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher turns fsnotify events for a set of watch targets into Events.
// Directories are watched recursively, including ones created later; a
// file target is watched through its parent directory so that editors
// which replace the file on save are still observed.
type Watcher struct {
	logger  *zap.Logger
	match   *matcher
	watcher *fsnotify.Watcher

	mu    sync.RWMutex
	dirs  map[string]struct{} // recursively watched directories
	files map[string]struct{} // single-file targets

	events   chan Event
	errors   chan error
	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// New creates a watcher with no targets.
func New(logger *zap.Logger, opts Options) (*Watcher, error) {
	match, err := opts.compile()
	if err != nil {
		return nil, err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		logger:  logger.Named("watch"),
		match:   match,
		watcher: fw,
		dirs:    make(map[string]struct{}),
		files:   make(map[string]struct{}),
		events:  make(chan Event, 100),
		errors:  make(chan error, 10),
		done:    make(chan struct{}),
	}, nil
}

// Watch registers a watch target. Directories are walked and every
// non-ignored subdirectory is added.
func (w *Watcher) Watch(path string) error {
	path = filepath.Clean(path)

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat path: %w", err)
	}

	if info.IsDir() {
		return w.watchDir(path)
	}
	return w.watchFile(path)
}

// watchDir recursively watches a directory
func (w *Watcher) watchDir(root string) error {
	return filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			if p == root {
				return err
			}
			w.logger.Warn("failed to access path", zap.String("path", p), zap.Error(err))
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && w.match.shouldIgnore(p) {
			return filepath.SkipDir
		}

		if err := w.watcher.Add(p); err != nil {
			if p == root {
				return fmt.Errorf("failed to add watch: %w", err)
			}
			w.logger.Error("failed to add watch", zap.String("path", p), zap.Error(err))
			return nil
		}

		w.mu.Lock()
		w.dirs[p] = struct{}{}
		w.mu.Unlock()
		w.logger.Debug("added watch", zap.String("path", p))
		return nil
	})
}

// watchFile watches a single file by watching its parent directory
func (w *Watcher) watchFile(path string) error {
	if err := w.watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to add watch: %w", err)
	}
	w.mu.Lock()
	w.files[path] = struct{}{}
	w.mu.Unlock()
	w.logger.Debug("added watch", zap.String("path", path))
	return nil
}

// Start pumps events until ctx is cancelled or Stop is called.
// Calling Start after Stop returns nil at once.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	select {
	case <-w.done:
		w.mu.Unlock()
		return nil
	default:
	}
	w.wg.Add(1)
	w.mu.Unlock()
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.done:
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handle(ctx, event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			select {
			case w.errors <- err:
			case <-ctx.Done():
			case <-w.done:
			}
		}
	}
}

// handle translates one fsnotify event.
func (w *Watcher) handle(ctx context.Context, event fsnotify.Event) {
	path := filepath.Clean(event.Name)

	if !w.covers(path) || w.match.shouldIgnore(path) {
		return
	}

	var kind Kind
	switch {
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		kind = KindRemove
		w.forget(path)
	case event.Op&fsnotify.Create != 0:
		kind = KindCreate
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if err := w.watchDir(path); err != nil {
				w.logger.Warn("failed to watch new directory", zap.String("path", path), zap.Error(err))
			}
		}
	case event.Op&fsnotify.Write != 0:
		kind = KindModify
	default:
		kind = KindOther
	}

	ev := Event{Kind: kind, Paths: []string{path}}
	w.logger.Debug("change", zap.Stringer("kind", kind), zap.String("path", path))

	select {
	case w.events <- ev:
	case <-ctx.Done():
	case <-w.done:
	}
}

// covers reports whether path belongs to a watch target rather than being
// a sibling of a single-file target.
func (w *Watcher) covers(path string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if _, ok := w.files[path]; ok {
		return true
	}
	if _, ok := w.dirs[path]; ok {
		return true
	}
	_, ok := w.dirs[filepath.Dir(path)]
	return ok
}

func (w *Watcher) forget(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.dirs[path]; ok {
		delete(w.dirs, path)
		// fsnotify drops watches of removed directories itself.
		_ = w.watcher.Remove(path)
	}
}

// Events returns the channel for receiving change events. Events are
// delivered in the order they were observed.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Errors returns the channel for receiving watch errors.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// Stop stops the watcher and releases resources. It is safe to call more
// than once.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		w.mu.Lock()
		close(w.done)
		w.mu.Unlock()
		w.wg.Wait()
		err = w.watcher.Close()
		close(w.events)
		close(w.errors)
	})
	if errors.Is(err, fsnotify.ErrClosed) {
		return nil
	}
	return err
}
