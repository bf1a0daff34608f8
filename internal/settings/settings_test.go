package settings

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/leyningapp/leyn/leyning"
)

func ptr[T any](v T) *T { return &v }

func TestOpenDefaults(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "settings.yml"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if got := s.Settings(); got != leyning.DefaultSettings() {
		t.Errorf("Settings() = %+v, want defaults", got)
	}
}

func TestOpenPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yml")
	if err := os.WriteFile(path, []byte("tri: true\naudioSpeed: 1.25\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	got := s.Settings()
	want := leyning.DefaultSettings()
	want.Tri = true
	want.AudioSpeed = 1.25
	if got != want {
		t.Errorf("Settings() = %+v, want %+v", got, want)
	}
}

func TestOpenInvalidValuesFallBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yml")
	if err := os.WriteFile(path, []byte("audioSpeed: 9\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if got := s.Settings(); got != leyning.DefaultSettings() {
		t.Errorf("Settings() = %+v, want defaults", got)
	}
}

func TestUpdateMerges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.yml")
	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}

	var mu sync.Mutex
	var seen []leyning.Settings
	s.Subscribe(func(v leyning.Settings) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, v)
	})

	if _, err := s.Update(leyning.SettingsPatch{AudioSpeed: ptr(1.5)}); err != nil {
		t.Fatalf("Update(audioSpeed) error = %v", err)
	}
	got, err := s.Update(leyning.SettingsPatch{IL: ptr(true)})
	if err != nil {
		t.Fatalf("Update(il) error = %v", err)
	}
	if got.AudioSpeed != 1.5 || !got.IL || got.TextSize != 1.0 {
		t.Errorf("merged settings = %+v", got)
	}

	// Rejected updates change nothing.
	if _, err := s.Update(leyning.SettingsPatch{TextSize: ptr(9.0)}); err == nil {
		t.Error("Update(textSize 9) should fail")
	}
	if s.Settings() != got {
		t.Errorf("Settings() after rejected update = %+v", s.Settings())
	}

	// No-op updates do not notify.
	if _, err := s.Update(leyning.SettingsPatch{IL: ptr(true)}); err != nil {
		t.Fatal(err)
	}

	mu.Lock()
	if len(seen) != 2 || seen[1] != got {
		t.Errorf("notifications = %+v", seen)
	}
	mu.Unlock()

	reopened, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if reopened.Settings() != got {
		t.Errorf("persisted settings = %+v, want %+v", reopened.Settings(), got)
	}
}

func TestWatchReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yml")
	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Watch(); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	defer s.Close()

	changed := make(chan leyning.Settings, 4)
	s.Subscribe(func(v leyning.Settings) { changed <- v })

	if err := os.WriteFile(path, []byte("colorTheme: dark\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case v := <-changed:
		if v.ColorTheme != leyning.ThemeDark {
			t.Errorf("reloaded theme = %q, want dark", v.ColorTheme)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("settings change was not picked up")
	}
}
