package leyning

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

// TestDefaultConfig tests that default configuration is valid.
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should be valid: %v", err)
	}

	if cfg.AudioMode != ModeVerse {
		t.Errorf("Default audio mode should be verse, got %s", cfg.AudioMode)
	}

	if cfg.Audio.StatusInterval != 50*time.Millisecond {
		t.Errorf("Default status interval = %v, want 50ms", cfg.Audio.StatusInterval)
	}
}

// TestConfigValidation tests configuration validation.
func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
		errMsg  string
	}{
		{
			name:   "valid config",
			modify: func(c *Config) {},
		},
		{
			name: "mode is case insensitive",
			modify: func(c *Config) {
				c.AudioMode = "ALIYAH"
			},
		},
		{
			name: "invalid mode",
			modify: func(c *Config) {
				c.AudioMode = "chapter"
			},
			wantErr: true,
			errMsg:  "invalid audio mode",
		},
		{
			name: "content url without scheme",
			modify: func(c *Config) {
				c.ContentURL = "example.org/leyn"
			},
			wantErr: true,
			errMsg:  "content_url",
		},
		{
			name: "invalid sample rate",
			modify: func(c *Config) {
				c.Audio.SampleRate = 12345
			},
			wantErr: true,
			errMsg:  "invalid sample rate",
		},
		{
			name: "status interval too fast",
			modify: func(c *Config) {
				c.Audio.StatusInterval = time.Millisecond
			},
			wantErr: true,
			errMsg:  "status_interval",
		},
		{
			name: "no label cache",
			modify: func(c *Config) {
				c.Cache.LabelEntries = 0
			},
			wantErr: true,
			errMsg:  "label_entries",
		},
		{
			name: "zero fetch rate",
			modify: func(c *Config) {
				c.Cache.FetchRate = 0
			},
			wantErr: true,
			errMsg:  "fetch_rate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)

			err := cfg.Validate()
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("error %q does not contain %q", err, tt.errMsg)
				}
				if !errors.Is(err, ErrInvalidConfig) {
					t.Errorf("error %v should wrap ErrInvalidConfig", err)
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

// TestLoadConfigFromViper tests loading overrides from Viper.
func TestLoadConfigFromViper(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	viper.Set("data_dir", "/srv/leyn")
	viper.Set("audio_mode", "aliyah")
	viper.Set("audio.status_interval", "100ms")
	viper.Set("audio.pitch_correction", false)
	viper.Set("cache.label_entries", 4)

	cfg, err := LoadConfigFromViper()
	if err != nil {
		t.Fatalf("LoadConfigFromViper() error = %v", err)
	}

	if cfg.DataDir != "/srv/leyn" {
		t.Errorf("DataDir = %q, want /srv/leyn", cfg.DataDir)
	}
	if cfg.AudioMode != ModeAliyah {
		t.Errorf("AudioMode = %q, want aliyah", cfg.AudioMode)
	}
	if cfg.Audio.StatusInterval != 100*time.Millisecond {
		t.Errorf("StatusInterval = %v, want 100ms", cfg.Audio.StatusInterval)
	}
	if cfg.Audio.PitchCorrection {
		t.Error("PitchCorrection should be overridden to false")
	}
	if cfg.Cache.LabelEntries != 4 {
		t.Errorf("LabelEntries = %d, want 4", cfg.Cache.LabelEntries)
	}
	if cfg.Cache.FetchRate != DefaultCacheConfig().FetchRate {
		t.Errorf("FetchRate = %v, want default", cfg.Cache.FetchRate)
	}
}

func TestLoadConfigFromViperInvalid(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	viper.Set("audio_mode", "chapter")

	if _, err := LoadConfigFromViper(); err == nil {
		t.Error("expected validation error")
	}
}

// TestSettingsPatchApply tests that a partial update preserves other fields.
func TestSettingsPatchApply(t *testing.T) {
	prior := Settings{TextSize: 1.4, AudioSpeed: 1.0, IL: true, Tri: true, ColorTheme: ThemeDark}
	speed := 1.5

	got := SettingsPatch{AudioSpeed: &speed}.Apply(prior)

	want := prior
	want.AudioSpeed = 1.5
	if got != want {
		t.Errorf("Apply() = %+v, want %+v", got, want)
	}
}

func TestSettingsValidate(t *testing.T) {
	tests := []struct {
		name    string
		s       Settings
		wantErr bool
	}{
		{"defaults", DefaultSettings(), false},
		{"fast", Settings{TextSize: 1, AudioSpeed: 2, ColorTheme: ThemeLight}, false},
		{"too fast", Settings{TextSize: 1, AudioSpeed: 3, ColorTheme: ThemeLight}, true},
		{"tiny text", Settings{TextSize: 0.1, AudioSpeed: 1, ColorTheme: ThemeLight}, true},
		{"bad theme", Settings{TextSize: 1, AudioSpeed: 1, ColorTheme: "sepia"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.s.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
