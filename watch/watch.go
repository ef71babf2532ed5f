// Package watch re-runs a callback whenever a file changes on disk.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// DefaultCooldown is the minimum gap between two callback runs.
const DefaultCooldown = 2 * time.Second

// Watcher observes one file. Editors often replace a file instead of
// writing it in place, so the parent directory is watched and events are
// filtered by name.
type Watcher struct {
	path     string
	cooldown time.Duration
	onChange func(ctx context.Context) error

	mu      sync.Mutex
	lastRun time.Time
	now     func() time.Time
}

// New returns a watcher for path. A zero cooldown selects DefaultCooldown.
func New(path string, cooldown time.Duration, onChange func(ctx context.Context) error) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Watcher{
		path:     abs,
		cooldown: cooldown,
		onChange: onChange,
		now:      time.Now,
	}, nil
}

// Path is the absolute path being watched.
func (w *Watcher) Path() string {
	return w.path
}

// Run blocks until ctx is cancelled or the underlying watcher fails.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(w.path), err)
	}
	log.Info().Str("path", w.path).Dur("cooldown", w.cooldown).Msg("watching for changes")

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if w.relevant(event) {
				w.fire(ctx, event)
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("file watcher error")
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.path {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename)
}

// fire runs the callback unless it ran within the cooldown.
func (w *Watcher) fire(ctx context.Context, event fsnotify.Event) bool {
	w.mu.Lock()
	now := w.now()
	if !w.lastRun.IsZero() && now.Sub(w.lastRun) < w.cooldown {
		w.mu.Unlock()
		log.Debug().Str("op", event.Op.String()).Msg("change ignored during cooldown")
		return false
	}
	w.lastRun = now
	w.mu.Unlock()

	log.Info().Str("path", w.path).Str("op", event.Op.String()).Msg("change detected")
	if err := w.onChange(ctx); err != nil {
		log.Error().Err(err).Msg("change handler failed")
	}
	return true
}
