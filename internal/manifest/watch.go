package manifest

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces bursts of writes, such as an editor saving
// through a temporary file.
const DefaultDebounce = 100 * time.Millisecond

// Watcher reports changes to a manifest and the files it refers to.
type Watcher struct {
	fsw   *fsnotify.Watcher
	delay time.Duration

	mu    sync.Mutex
	files map[string]bool
	dirs  map[string]bool
}

// NewWatcher creates a watcher with the given debounce delay.
func NewWatcher(delay time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Watcher{
		fsw:   fsw,
		delay: delay,
		files: make(map[string]bool),
		dirs:  make(map[string]bool),
	}, nil
}

// Track adds files to the watched set. Their directories are watched so
// that files replaced by rename are still seen.
func (w *Watcher) Track(files ...string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return err
		}
		w.files[abs] = true

		dir := filepath.Dir(abs)
		if w.dirs[dir] {
			continue
		}
		if err := w.fsw.Add(dir); err != nil {
			return err
		}
		w.dirs[dir] = true
	}
	return nil
}

// Run calls onChange after tracked files change, at most once per debounce
// window, until ctx is done. Watch errors are passed to onError when it is
// not nil.
func (w *Watcher) Run(ctx context.Context, onChange func(), onError func(error)) error {
	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(ev) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.delay)
			} else {
				timer.Reset(w.delay)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			onChange()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			if onError != nil {
				onError(err)
			}
		}
	}
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
		return false
	}
	abs, err := filepath.Abs(ev.Name)
	if err != nil {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.files[abs]
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}
