package catalog

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

const reloadDebounce = 150 * time.Millisecond

// Store holds the current [Catalog] snapshot.
//
// Readers call Current once per request and keep using that snapshot.
type Store struct {
	current atomic.Pointer[Catalog]
}

// NewStore creates a store holding c.
func NewStore(c *Catalog) *Store {
	s := &Store{}
	s.current.Store(c)
	return s
}

// Current returns the active snapshot.
func (s *Store) Current() *Catalog {
	return s.current.Load()
}

// Lookup resolves artist against the active snapshot.
func (s *Store) Lookup(artist string) (Template, bool) {
	return s.Current().Lookup(artist)
}

// Replace swaps in c.
func (s *Store) Replace(c *Catalog) {
	s.current.Store(c)
}

// Reload loads path and swaps it in. On error the previous snapshot stays active.
func (s *Store) Reload(path string) error {
	c, err := Load(path)
	if err != nil {
		return err
	}
	s.Replace(c)
	return nil
}

// Watch reloads the store whenever the file at path is written, created or renamed into place.
//
// The parent directory is watched so editors that replace the file atomically are picked up.
// Bursts of events are coalesced. Watch blocks until ctx is done.
func (s *Store) Watch(ctx context.Context, path string, logger *log.Logger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create catalog watcher: %w", err)
	}
	defer w.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve catalog path: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}
	logger.Debug("watching catalog", "path", abs)

	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	reload := func() {
		if err := s.Reload(abs); err != nil {
			logger.Error("catalog reload failed, keeping previous snapshot", "path", abs, "error", err)
			return
		}
		logger.Info("catalog reloaded", "path", abs, "artists", s.Current().Len())
	}
	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
	}()

	ops := fsnotify.Write | fsnotify.Create | fsnotify.Rename
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs || event.Op&ops == 0 {
				continue
			}
			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(reloadDebounce, reload)
			mu.Unlock()
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				reload()
				continue
			}
			logger.Warn("catalog watcher error", "error", err)
		}
	}
}
