package settings

import (
	"fmt"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// Watch reloads the settings when the file changes on disk, for example
// when edited by another instance. It returns once the watch is set up.
func (s *Store) Watch() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.watcher != nil {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("error creating fsnotify watcher: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("error adding dir to fsnotify watcher: %w", err)
	}
	s.watcher = watcher

	log.Debug("fsnotify watching dir", "dir", dir)
	go s.watch(watcher)
	return nil
}

func (s *Store) watch(watcher *fsnotify.Watcher) {
	target := filepath.Clean(s.path)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			log.Debug("fsnotify event", "file", event.Name, "event", event.Op)
			s.reload()

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Debug("fsnotify error", "file", s.path, "error", err)
		}
	}
}

func (s *Store) reload() {
	settings, err := read(s.path)
	if err != nil {
		log.Warn("failed to reload settings", "path", s.path, "err", err)
		return
	}

	s.mu.Lock()
	if settings == s.settings {
		s.mu.Unlock()
		return
	}
	s.settings = settings
	listeners := s.snapshotListeners()
	s.mu.Unlock()

	log.Info("settings reloaded", "path", s.path)
	notify(listeners, settings)
}

// Close stops watching the settings file.
func (s *Store) Close() error {
	s.mu.Lock()
	watcher := s.watcher
	s.watcher = nil
	s.mu.Unlock()

	if watcher == nil {
		return nil
	}
	return watcher.Close()
}
