// Package watch rebuilds artifacts when staged source files change.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/envship/envship/internal/engine"
	"github.com/envship/envship/internal/event"
	"github.com/envship/envship/internal/logging"
	"github.com/envship/envship/internal/manifest"
)

// debounceDelay is how long the watcher waits after the last change before
// rebuilding the affected services.
var debounceDelay = 500 * time.Millisecond

// Watcher monitors the source root and triggers rebuilds for services whose
// files change. Changes inside one debounce window collapse into a single
// rebuild per service.
type Watcher struct {
	watcher  *fsnotify.Watcher
	manifest *manifest.Manifest
	engine   *engine.Engine
	root     string
	stopCh   chan struct{}
	doneCh   chan struct{}
	started  bool
	mu       sync.Mutex
}

// NewWatcher creates a watcher over the manifest source root. Service
// directories that do not exist yet are picked up when they appear.
func NewWatcher(m *manifest.Manifest, eng *engine.Engine) (*Watcher, error) {
	root := m.SourceRoot
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("source root %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("source root %s is not a directory", root)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	// Watch the root itself to catch new service directories appearing.
	if err := w.Add(root); err != nil {
		w.Close()
		return nil, err
	}
	for _, svc := range m.Services {
		dir := filepath.Join(root, svc.Name)
		if fi, err := os.Stat(dir); err == nil && fi.IsDir() {
			if err := w.Add(dir); err != nil {
				w.Close()
				return nil, err
			}
		}
	}

	logging.Info().Str("root", root).Int("services", len(m.Services)).Msg("Watcher initialized")

	return &Watcher{
		watcher:  w,
		manifest: m,
		engine:   eng,
		root:     root,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Start begins watching for changes.
func (w *Watcher) Start() {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return
	}
	w.started = true
	w.mu.Unlock()
	go w.run()
}

func (w *Watcher) run() {
	defer close(w.doneCh)

	pending := make(map[string]string)
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-w.stopCh:
			return

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.collect(ev, pending) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounceDelay)
				timerC = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(debounceDelay)
			}

		case <-timerC:
			batch := pending
			pending = make(map[string]string)
			timer = nil
			timerC = nil
			w.rebuild(batch)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Error().Err(err).Msg("Watcher error")
		}
	}
}

// collect maps a filesystem event to a pending service rebuild. It reports
// whether the pending set changed.
func (w *Watcher) collect(ev fsnotify.Event, pending map[string]string) bool {
	if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}

	rel, err := filepath.Rel(w.root, ev.Name)
	if err != nil || strings.HasPrefix(rel, "..") {
		return false
	}
	parts := strings.Split(rel, string(filepath.Separator))

	// An entry directly under the root may be a service directory appearing.
	if len(parts) == 1 {
		if ev.Op&fsnotify.Create != 0 {
			if _, err := w.manifest.Service(parts[0]); err == nil {
				if fi, statErr := os.Stat(ev.Name); statErr == nil && fi.IsDir() {
					w.watcher.Add(ev.Name)
				}
			}
		}
		return false
	}
	if len(parts) != 2 {
		return false
	}

	svc, err := w.manifest.Service(parts[0])
	if err != nil {
		return false
	}
	if !svc.Matches(parts[1]) {
		return false
	}

	pending[svc.Name] = ev.Name
	return true
}

// rebuild publishes a trigger and reruns the engine for each pending service.
func (w *Watcher) rebuild(pending map[string]string) {
	for name, path := range pending {
		event.PublishSync(event.Event{Type: event.WatchTriggered, Data: event.WatchTriggeredData{
			Service: name,
			Path:    path,
		}})
		logging.Info().Str("service", name).Str("path", path).Msg("Change detected")

		if err := w.engine.Run(context.Background(), engine.Options{Services: []string{name}}); err != nil {
			logging.Error().Err(err).Str("service", name).Msg("Rebuild failed")
		}
	}
}

// Stop stops the watcher and waits for the loop to exit.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	started := w.started
	w.mu.Unlock()

	select {
	case <-w.stopCh:
		// Already stopped
	default:
		close(w.stopCh)
	}

	if started {
		<-w.doneCh
	}

	return w.watcher.Close()
}
