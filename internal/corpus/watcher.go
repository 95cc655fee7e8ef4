package corpus

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ChangeEvent reports a corpus document that has settled after being
// written.
type ChangeEvent struct {
	Path      string
	Size      int64
	Timestamp time.Time
}

// Watcher monitors corpus directories and emits an event once a changed
// document has been stable for the debounce interval, so half-written
// files are not analyzed mid-save.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	paths     []string
	patterns  []string
	debounce  time.Duration

	// path -> time of last observed write
	state   map[string]time.Time
	stateMu sync.RWMutex

	events chan ChangeEvent
	errors chan error

	done chan struct{}
	wg   sync.WaitGroup
}

// NewWatcher creates a watcher over the given directories. patterns are
// glob patterns matched against base names ("*.txt" when empty).
func NewWatcher(paths, patterns []string, debounce time.Duration) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if len(patterns) == 0 {
		patterns = []string{"*.txt"}
	}

	return &Watcher{
		fsWatcher: fsWatcher,
		paths:     paths,
		patterns:  patterns,
		debounce:  debounce,
		state:     make(map[string]time.Time),
		events:    make(chan ChangeEvent, 64),
		errors:    make(chan error, 8),
		done:      make(chan struct{}),
	}, nil
}

// Events returns the channel of settled document changes.
func (w *Watcher) Events() <-chan ChangeEvent {
	return w.events
}

// Errors returns the channel of watch errors.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// Start begins watching all configured paths.
func (w *Watcher) Start() error {
	for _, path := range w.paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		if _, err := os.Stat(abs); err != nil {
			return err
		}
		if err := w.fsWatcher.Add(abs); err != nil {
			return err
		}
	}

	w.wg.Add(2)
	go w.eventLoop()
	go w.debounceLoop()
	return nil
}

// Stop shuts the watcher down and closes its channels.
func (w *Watcher) Stop() error {
	close(w.done)
	w.wg.Wait()
	close(w.events)
	close(w.errors)
	return w.fsWatcher.Close()
}

func (w *Watcher) matches(path string) bool {
	base := filepath.Base(path)
	for _, pattern := range w.patterns {
		if ok, _ := filepath.Match(pattern, base); ok {
			return true
		}
	}
	return false
}

func (w *Watcher) eventLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if !w.matches(event.Name) {
				continue
			}
			info, err := os.Stat(event.Name)
			if err != nil || info.IsDir() {
				continue
			}

			w.stateMu.Lock()
			w.state[event.Name] = time.Now()
			w.stateMu.Unlock()

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			select {
			case w.errors <- err:
			default:
			}
		}
	}
}

func (w *Watcher) debounceLoop() {
	defer w.wg.Done()

	tick := w.debounce / 4
	if tick < 50*time.Millisecond {
		tick = 50 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case now := <-ticker.C:
			w.emitStable(now)
		}
	}
}

// emitStable emits events for files that have not changed for the debounce
// interval, removing them from tracking until the next write.
func (w *Watcher) emitStable(now time.Time) {
	threshold := now.Add(-w.debounce)

	w.stateMu.Lock()
	defer w.stateMu.Unlock()

	for path, lastMod := range w.state {
		if !lastMod.Before(threshold) {
			continue
		}

		info, err := os.Stat(path)
		if err != nil {
			delete(w.state, path)
			continue
		}

		select {
		case w.events <- ChangeEvent{Path: path, Size: info.Size(), Timestamp: now}:
			delete(w.state, path)
		default:
			// Channel full; retry on the next tick.
		}
	}
}

// PendingFiles returns the number of files waiting to settle.
func (w *Watcher) PendingFiles() int {
	w.stateMu.RLock()
	defer w.stateMu.RUnlock()
	return len(w.state)
}
