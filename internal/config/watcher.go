package config

import (
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

const watchDebounce = 500 * time.Millisecond

// LoadFunc produces a fresh configuration, typically by re-reading the config
// file with viper and calling Load.
type LoadFunc func() (*Config, error)

// Watcher keeps a configuration snapshot current while the config file is
// edited, so that credentials can be added without restarting.
type Watcher struct {
	path     string
	load     LoadFunc
	onReload func(*Config, error)

	mu      sync.RWMutex
	current *Config
	reloads atomic.Uint32

	fsw  *fsnotify.Watcher
	done chan struct{}
}

// NewWatcher starts watching path. initial is the snapshot returned until the
// first reload. onReload may be nil.
func NewWatcher(path string, initial *Config, load LoadFunc, onReload func(*Config, error)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("unable to create file watcher: %w", err)
	}

	// Editors often replace the file instead of writing it in place, so the
	// directory is watched and events are filtered by name.
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("unable to watch config directory: %w", err)
	}

	w := &Watcher{
		path:     filepath.Clean(path),
		load:     load,
		onReload: onReload,
		current:  initial,
		fsw:      fsw,
		done:     make(chan struct{}),
	}
	go w.watch()
	return w, nil
}

func (w *Watcher) watch() {
	defer close(w.done)

	var timer *time.Timer
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				if timer != nil {
					timer.Stop()
				}
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			log.Debug("config file changed", "file", event.Name, "event", event.Op)
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(watchDebounce, w.reload)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Debug("config watcher error", "error", err)
		}
	}
}

func (w *Watcher) reload() {
	count := w.reloads.Add(1)
	log.Info("reloading config", "path", w.path, "count", count)

	cfg, err := w.load()
	if err != nil {
		log.Error("unable to reload config", "error", err)
		if w.onReload != nil {
			w.onReload(nil, err)
		}
		return
	}

	w.mu.Lock()
	w.current = cfg
	w.mu.Unlock()

	if w.onReload != nil {
		w.onReload(cfg, nil)
	}
}

// Snapshot returns the most recently loaded configuration.
func (w *Watcher) Snapshot() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// reloadCount returns how many reloads have been attempted.
func (w *Watcher) reloadCount() uint32 {
	return w.reloads.Load()
}

// Close stops watching.
func (w *Watcher) Close() error {
	err := w.fsw.Close()
	<-w.done
	return err
}
