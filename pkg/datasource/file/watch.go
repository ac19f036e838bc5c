package file

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch starts invalidating cached graphs when their files or sidecars change.
// It returns once the watcher is running; watching stops when ctx is done or
// the source is closed.
func (s *Source) Watch(ctx context.Context) error {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()

	if s.watcher != nil {
		return errors.New("file source: already watching")
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("file source: %w", err)
	}
	if err := w.Add(s.dir); err != nil {
		w.Close()
		return fmt.Errorf("file source: watch %s: %w", s.dir, err)
	}
	s.watcher = w

	go s.watchLoop(ctx, w)
	s.logger.Info("watching graph directory")
	return nil
}

func (s *Source) watchLoop(ctx context.Context, w *fsnotify.Watcher) {
	defer s.stopWatching(w)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			s.handleEvent(ev)
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			s.logger.Warn("watch error", "error", err)
		}
	}
}

func (s *Source) handleEvent(ev fsnotify.Event) {
	if !ev.Has(fsnotify.Write | fsnotify.Create | fsnotify.Remove | fsnotify.Rename) {
		return
	}

	file := filepath.Base(ev.Name)
	name, ok := graphNameOf(file)
	if !ok {
		name, ok = sidecarOwner(file)
	}
	if !ok {
		return
	}

	s.invalidate(name)
	s.logger.Debug("graph invalidated", "graph", string(name), "op", ev.Op.String())
}

func (s *Source) stopWatching(w *fsnotify.Watcher) {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()

	if s.watcher == w {
		s.watcher = nil
	}
	w.Close()
}

// Close stops watching and drops cached graphs.
func (s *Source) Close() error {
	s.watchMu.Lock()
	w := s.watcher
	s.watcher = nil
	s.watchMu.Unlock()

	var err error
	if w != nil {
		err = w.Close()
	}
	s.graphs.Clear()
	return err
}
