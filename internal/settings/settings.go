// Package settings persists user preferences in a YAML file and broadcasts
// every change to subscribers.
package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"github.com/leyningapp/leyn/leyning"
	"gopkg.in/yaml.v3"
)

// Store is a file-backed leyning.SettingsProvider. Updates are serialized
// and merged over the current settings.
type Store struct {
	path string

	mu        sync.Mutex
	settings  leyning.Settings
	listeners map[int]func(leyning.Settings)
	nextID    int
	watcher   *fsnotify.Watcher
}

var _ leyning.SettingsProvider = (*Store)(nil)

// Open loads settings from path. A missing file yields the defaults; keys
// missing from the file keep their defaults.
func Open(path string) (*Store, error) {
	s := &Store{
		path:      path,
		listeners: make(map[int]func(leyning.Settings)),
	}

	settings, err := read(path)
	if err != nil {
		return nil, err
	}
	s.settings = settings
	return s, nil
}

func read(path string) (leyning.Settings, error) {
	settings := leyning.DefaultSettings()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return settings, nil
	}
	if err != nil {
		return settings, fmt.Errorf("failed to read settings: %w", err)
	}

	if err := yaml.Unmarshal(data, &settings); err != nil {
		return settings, fmt.Errorf("failed to parse settings: %w", err)
	}
	if err := settings.Validate(); err != nil {
		log.Warn("ignoring invalid settings file", "path", path, "err", err)
		return leyning.DefaultSettings(), nil
	}
	return settings, nil
}

// Path returns the settings file path.
func (s *Store) Path() string {
	return s.path
}

// Settings implements leyning.SettingsProvider.
func (s *Store) Settings() leyning.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// Update merges patch over the current settings, persists the result and
// notifies subscribers. Invalid results are rejected without change.
func (s *Store) Update(patch leyning.SettingsPatch) (leyning.Settings, error) {
	s.mu.Lock()
	next := patch.Apply(s.settings)
	if err := next.Validate(); err != nil {
		current := s.settings
		s.mu.Unlock()
		return current, err
	}
	if next == s.settings {
		s.mu.Unlock()
		return next, nil
	}
	if err := write(s.path, next); err != nil {
		current := s.settings
		s.mu.Unlock()
		return current, err
	}
	s.settings = next
	listeners := s.snapshotListeners()
	s.mu.Unlock()

	log.Debug("settings updated", "textSize", next.TextSize, "audioSpeed", next.AudioSpeed, "il", next.IL, "tri", next.Tri, "theme", next.ColorTheme)
	notify(listeners, next)
	return next, nil
}

func write(path string, settings leyning.Settings) error {
	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write settings: %w", err)
	}
	return nil
}

// Subscribe registers fn to receive the settings after every change. The
// returned function removes the subscription.
func (s *Store) Subscribe(fn func(leyning.Settings)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.listeners[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

func (s *Store) snapshotListeners() []func(leyning.Settings) {
	listeners := make([]func(leyning.Settings), 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	return listeners
}

func notify(listeners []func(leyning.Settings), settings leyning.Settings) {
	for _, fn := range listeners {
		fn(settings)
	}
}
