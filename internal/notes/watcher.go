package notes

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// WatchEvent is a debounced change to a watched notes file.
type WatchEvent struct {
	Path string
	Op   fsnotify.Op
	At   time.Time
}

// Watcher reports changes to a single notes file. It watches the parent
// directory so the file may be created after the watcher starts, and it
// debounces noisy sources such as SQLite WAL writes.
type Watcher struct {
	target string

	watcher *fsnotify.Watcher
	logger  *log.Logger

	debounceWindow time.Duration
	events         chan WatchEvent
	errors         chan error

	mu      sync.Mutex
	pending map[string]fsnotify.Op
	timer   *time.Timer

	startOnce sync.Once
	stopOnce  sync.Once
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// NewWatcher creates a watcher for the file at path.
func NewWatcher(path string) (*Watcher, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("path is required")
	}
	target, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}

	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("creating notes dir: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("new fsnotify watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	return &Watcher{
		target:         target,
		watcher:        fsw,
		logger:         log.Default().WithPrefix("notes-watch"),
		debounceWindow: 100 * time.Millisecond,
		events:         make(chan WatchEvent, 64),
		errors:         make(chan error, 16),
		pending:        make(map[string]fsnotify.Op),
		stopCh:         make(chan struct{}),
		doneCh:         make(chan struct{}),
	}, nil
}

// Events returns a channel of debounced events. It is closed on Stop().
func (w *Watcher) Events() <-chan WatchEvent {
	if w == nil {
		ch := make(chan WatchEvent)
		close(ch)
		return ch
	}
	return w.events
}

// Errors returns a channel of watcher errors. It is closed on Stop().
func (w *Watcher) Errors() <-chan error {
	if w == nil {
		ch := make(chan error)
		close(ch)
		return ch
	}
	return w.errors
}

// Start starts the event loop in a goroutine.
func (w *Watcher) Start(ctx context.Context) error {
	if w == nil || w.watcher == nil {
		return fmt.Errorf("watcher is not initialized")
	}
	w.startOnce.Do(func() {
		go w.loop(ctx)
	})
	return nil
}

// Stop stops the watcher and closes its channels.
func (w *Watcher) Stop() error {
	if w == nil {
		return nil
	}
	w.stopOnce.Do(func() {
		close(w.stopCh)
		_ = w.watcher.Close()
		<-w.doneCh
	})
	return nil
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.doneCh)
	defer close(w.events)
	defer close(w.errors)

	for {
		var timerC <-chan time.Time
		w.mu.Lock()
		if w.timer != nil {
			timerC = w.timer.C
		}
		w.mu.Unlock()

		select {
		case <-ctx.Done():
			w.flush()
			return
		case <-w.stopCh:
			w.flush()
			return
		case err, ok := <-w.watcher.Errors:
			if !ok {
				w.flush()
				return
			}
			w.sendError(err)
		case ev, ok := <-w.watcher.Events:
			if !ok {
				w.flush()
				return
			}
			if !w.isRelevant(ev.Name) {
				continue
			}
			w.record(ev.Name, ev.Op)
		case <-timerC:
			w.flush()
		}
	}
}

// isRelevant matches the target and its SQLite siblings (-wal, -shm, -journal).
func (w *Watcher) isRelevant(path string) bool {
	path = filepath.Clean(path)
	return path == w.target || strings.HasPrefix(path, w.target+"-")
}

func (w *Watcher) record(path string, op fsnotify.Op) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending[path] |= op

	if w.timer == nil {
		w.timer = time.NewTimer(w.debounceWindow)
		return
	}
	if !w.timer.Stop() {
		select {
		case <-w.timer.C:
		default:
		}
	}
	w.timer.Reset(w.debounceWindow)
}

func (w *Watcher) flush() {
	w.mu.Lock()
	pending := w.pending
	w.pending = make(map[string]fsnotify.Op)

	if w.timer != nil {
		if !w.timer.Stop() {
			select {
			case <-w.timer.C:
			default:
			}
		}
		w.timer = nil
	}
	w.mu.Unlock()

	now := time.Now().UTC()
	for path, op := range pending {
		select {
		case w.events <- WatchEvent{Path: path, Op: op, At: now}:
		case <-w.stopCh:
			return
		}
	}
}

func (w *Watcher) sendError(err error) {
	if err == nil {
		return
	}
	select {
	case w.errors <- err:
	default:
		w.logger.Warn("watcher error dropped", "error", err)
	}
}
