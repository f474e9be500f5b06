// ABOUTME: Config file watcher that reloads and revalidates on change
// ABOUTME: Editors replace files, so the parent directory is watched and events debounced
package config

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DebounceDelay coalesces the burst of events a single save produces
const DebounceDelay = 100 * time.Millisecond

// Watcher reloads a config file whenever it changes
type Watcher struct {
	path     string
	watcher  *fsnotify.Watcher
	onChange func(*Config)
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
}

// Watch starts watching path. onChange receives every config that loads
// and validates; broken edits are logged and skipped.
func Watch(path string, onChange func(*Config)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch directory: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		path:     path,
		watcher:  fw,
		onChange: onChange,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go w.watchLoop()
	return w, nil
}

func (w *Watcher) watchLoop() {
	defer close(w.done)

	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filepath.Base(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(DebounceDelay, w.reload)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("Config watch error: %v", err)
		}
	}
}

func (w *Watcher) reload() {
	if w.ctx.Err() != nil {
		return
	}
	cfg, err := Load(w.path)
	if err != nil {
		log.Printf("Config reload of %s rejected: %v", w.path, err)
		return
	}
	log.Printf("Config reloaded from %s", w.path)
	w.onChange(cfg)
}

// Close stops watching
func (w *Watcher) Close() error {
	w.cancel()
	err := w.watcher.Close()
	<-w.done
	return err
}
