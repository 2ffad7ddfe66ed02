package workspace

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/standardbeagle/reflens/internal/debug"
)

// Watcher monitors the workspace for file changes and reports debounced
// batches of changed paths. The engine uses it to invalidate the resolver's
// module tables and file fingerprints between queries; a running query is
// never interrupted.
type Watcher struct {
	ws       *Watchable
	fsw      *fsnotify.Watcher
	debounce time.Duration
	onFlush  func(changed []string)

	mu      sync.Mutex
	pending map[string]struct{}
	timer   *time.Timer

	cancel context.CancelFunc
	done   chan struct{}
}

// Watchable is the subset of Workspace the watcher needs, kept as a small
// struct so tests can point a watcher at a bare directory.
type Watchable struct {
	Root string
}

// NewWatcher creates a watcher over root. onFlush receives root-relative
// slash paths after the debounce window closes.
func NewWatcher(root string, debounce time.Duration, onFlush func(changed []string)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		ws:       &Watchable{Root: root},
		fsw:      fsw,
		debounce: debounce,
		onFlush:  onFlush,
		pending:  make(map[string]struct{}),
		done:     make(chan struct{}),
	}, nil
}

// Start registers every directory under the root and begins processing
// events until Stop is called or ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	err := filepath.WalkDir(w.ws.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// An unreadable root is fatal; anything below it is not.
			if path == w.ws.Root {
				return err
			}
			return nil
		}
		if d.IsDir() {
			if name := d.Name(); name == ".git" || name == "node_modules" {
				return filepath.SkipDir
			}
			if werr := w.fsw.Add(path); werr != nil {
				debug.LogWatch("cannot watch %s: %v\n", path, werr)
			}
		}
		return nil
	})
	if err != nil {
		// The event loop never ran; unblock a later Stop.
		close(w.done)
		return err
	}

	ctx, w.cancel = context.WithCancel(ctx)
	go w.run(ctx)
	return nil
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			debug.LogWatch("watch error: %v\n", err)
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	// New directories must be added to the watch set; fsnotify does not
	// recurse on its own.
	if ev.Op&fsnotify.Create != 0 {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			_ = w.fsw.Add(ev.Name)
		}
	}

	rel, err := filepath.Rel(w.ws.Root, ev.Name)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending[rel] = struct{}{}
	if w.timer == nil {
		w.timer = time.AfterFunc(w.debounce, w.flush)
	} else {
		w.timer.Reset(w.debounce)
	}
}

func (w *Watcher) flush() {
	w.mu.Lock()
	changed := make([]string, 0, len(w.pending))
	for p := range w.pending {
		changed = append(changed, p)
	}
	w.pending = make(map[string]struct{})
	w.timer = nil
	w.mu.Unlock()

	if len(changed) > 0 && w.onFlush != nil {
		debug.LogWatch("flushing %d changed paths\n", len(changed))
		w.onFlush(changed)
	}
}

// Stop shuts the watcher down and waits for the event loop to exit.
func (w *Watcher) Stop() error {
	if w.cancel != nil {
		w.cancel()
	}
	err := w.fsw.Close()
	<-w.done

	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.mu.Unlock()
	return err
}
