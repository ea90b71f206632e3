package server

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the reloader waits after the last change.
const DefaultDebounce = 500 * time.Millisecond

// Reloader watches the policy file for changes and triggers hot-reload.
type Reloader struct {
	watcher  *fsnotify.Watcher
	server   *Server
	path     string
	Debounce time.Duration
}

// NewReloader creates a watcher on the directory holding the server's policy
// file, so that editors which replace the file by rename are still seen.
func NewReloader(server *Server) (*Reloader, error) {
	path := server.PolicyPath()
	if path == "" {
		return nil, fmt.Errorf("no policy path to watch")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %q: %w", path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %q: %w", filepath.Dir(abs), err)
	}

	return &Reloader{
		watcher:  watcher,
		server:   server,
		path:     abs,
		Debounce: DefaultDebounce,
	}, nil
}

// Run watches for file changes and reloads policy. Blocks until ctx is cancelled.
// A failed reload keeps the previous policy in place.
func (r *Reloader) Run(ctx context.Context) error {
	defer r.watcher.Close()

	logger := r.server.logger
	var debounce *time.Timer

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return nil

		case event, ok := <-r.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != r.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(r.Debounce, func() {
				if err := r.server.ReloadPolicy(); err != nil {
					logger.Error("hot-reload failed", "path", r.path, "error", err)
				} else {
					logger.Info("hot-reload: policy reloaded", "path", r.path)
				}
			})

		case err, ok := <-r.watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("file watcher error", "error", err)
		}
	}
}
