// Package watch monitors a single script file for changes, for the
// CLI's re-execute-on-save mode.
package watch

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces the bursts of events editors produce when
// saving a file.
const DefaultDebounce = 100 * time.Millisecond

// Watcher watches one file and reports write events, debounced.
type Watcher struct {
	fsw  *fsnotify.Watcher
	path string

	events chan string
	errors chan error

	debounce time.Duration

	closeOnce sync.Once
	closeCh   chan struct{}
	wg        sync.WaitGroup
}

// New starts watching path. The parent directory is watched rather than
// the file itself, because editors commonly replace files on save.
func New(path string, debounce time.Duration) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{
		fsw:      fsw,
		path:     abs,
		events:   make(chan string, 16),
		errors:   make(chan error, 16),
		debounce: debounce,
		closeCh:  make(chan struct{}),
	}

	w.wg.Add(1)
	go w.loop()
	return w, nil
}

// Events delivers the watched path after each (debounced) modification.
func (w *Watcher) Events() <-chan string { return w.events }

// Errors delivers watcher errors.
func (w *Watcher) Errors() <-chan error { return w.errors }

// Close stops the watcher. Safe to call twice.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.closeCh)
		err = w.fsw.Close()
		w.wg.Wait()
	})
	return err
}

func (w *Watcher) loop() {
	defer w.wg.Done()

	var timer *time.Timer
	var timerCh <-chan time.Time

	for {
		select {
		case <-w.closeCh:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerCh = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
		case <-timerCh:
			timer = nil
			timerCh = nil
			select {
			case w.events <- w.path:
			default:
				// Receiver is behind; drop rather than block the loop.
			}
		case err, ok := <-w.fsw.Errors:
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
