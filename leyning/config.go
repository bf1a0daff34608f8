package leyning

import (
	"fmt"
	"strings"
	"time"
)

// Config contains the engine configuration options.
type Config struct {
	// Content locations
	DataDir    string `yaml:"data_dir" env:"LEYN_DATA_DIR"`
	ContentURL string `yaml:"content_url" env:"LEYN_CONTENT_URL"`

	// Reading settings
	AudioMode   AudioMode `yaml:"audio_mode" env:"LEYN_AUDIO_MODE" envDefault:"verse"`
	Translation bool      `yaml:"translation" env:"LEYN_TRANSLATION" envDefault:"true"`

	Audio AudioConfig `yaml:"audio"`
	Cache CacheConfig `yaml:"cache"`
}

// AudioConfig contains playback settings.
type AudioConfig struct {
	Mock            bool          `yaml:"mock" env:"LEYN_AUDIO_MOCK" envDefault:"false"`
	SampleRate      int           `yaml:"sample_rate" env:"LEYN_AUDIO_SAMPLE_RATE" envDefault:"44100"`
	PitchCorrection bool          `yaml:"pitch_correction" env:"LEYN_AUDIO_PITCH_CORRECTION" envDefault:"true"`
	StatusInterval  time.Duration `yaml:"status_interval" env:"LEYN_AUDIO_STATUS_INTERVAL" envDefault:"50ms"`
	BufferSize      time.Duration `yaml:"buffer_size" env:"LEYN_AUDIO_BUFFER_SIZE" envDefault:"100ms"`
}

// CacheConfig contains cache and fetch settings.
type CacheConfig struct {
	LabelEntries   int     `yaml:"label_entries" env:"LEYN_CACHE_LABEL_ENTRIES" envDefault:"16"`
	ContentEntries int     `yaml:"content_entries" env:"LEYN_CACHE_CONTENT_ENTRIES" envDefault:"32"`
	DiskDir        string  `yaml:"disk_dir" env:"LEYN_CACHE_DISK_DIR"`
	DiskMaxSize    int64   `yaml:"disk_max_size" env:"LEYN_CACHE_DISK_MAX_SIZE" envDefault:"104857600"`
	FetchRate      float64 `yaml:"fetch_rate" env:"LEYN_CACHE_FETCH_RATE" envDefault:"4"`
	FetchBurst     int     `yaml:"fetch_burst" env:"LEYN_CACHE_FETCH_BURST" envDefault:"8"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		AudioMode:   ModeVerse,
		Translation: true,
		Audio:       DefaultAudioConfig(),
		Cache:       DefaultCacheConfig(),
	}
}

// DefaultAudioConfig returns default playback configuration.
func DefaultAudioConfig() AudioConfig {
	return AudioConfig{
		SampleRate:      44100,
		PitchCorrection: true,
		StatusInterval:  50 * time.Millisecond,
		BufferSize:      100 * time.Millisecond,
	}
}

// DefaultCacheConfig returns default cache configuration.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		LabelEntries:   16,
		ContentEntries: 32,
		DiskMaxSize:    100 * 1024 * 1024,
		FetchRate:      4,
		FetchBurst:     8,
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch AudioMode(strings.ToLower(string(c.AudioMode))) {
	case ModeAliyah:
		c.AudioMode = ModeAliyah
	case ModeVerse:
		c.AudioMode = ModeVerse
	default:
		return fmt.Errorf("invalid audio mode '%s': must be one of [aliyah verse]: %w", c.AudioMode, ErrInvalidConfig)
	}

	if c.ContentURL != "" && !strings.HasPrefix(c.ContentURL, "http://") && !strings.HasPrefix(c.ContentURL, "https://") {
		return fmt.Errorf("content_url must be an http(s) URL, got %q: %w", c.ContentURL, ErrInvalidConfig)
	}

	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}
	if err := c.Cache.Validate(); err != nil {
		return fmt.Errorf("cache config: %w", err)
	}

	return nil
}

// Validate checks if the audio configuration is valid.
func (c *AudioConfig) Validate() error {
	validSampleRates := []int{22050, 44100, 48000}
	sampleRateValid := false
	for _, sr := range validSampleRates {
		if c.SampleRate == sr {
			sampleRateValid = true
			break
		}
	}
	if !sampleRateValid {
		return fmt.Errorf("invalid sample rate %d: must be one of %v: %w", c.SampleRate, validSampleRates, ErrInvalidConfig)
	}

	if c.StatusInterval < 10*time.Millisecond || c.StatusInterval > time.Second {
		return fmt.Errorf("status_interval must be between 10ms and 1s, got %v: %w", c.StatusInterval, ErrInvalidConfig)
	}

	if c.BufferSize < 10*time.Millisecond || c.BufferSize > 2*time.Second {
		return fmt.Errorf("buffer_size must be between 10ms and 2s, got %v: %w", c.BufferSize, ErrInvalidConfig)
	}

	return nil
}

// Validate checks if the cache configuration is valid.
func (c *CacheConfig) Validate() error {
	if c.LabelEntries < 1 {
		return fmt.Errorf("label_entries must be at least 1, got %d: %w", c.LabelEntries, ErrInvalidConfig)
	}
	if c.ContentEntries < 1 {
		return fmt.Errorf("content_entries must be at least 1, got %d: %w", c.ContentEntries, ErrInvalidConfig)
	}
	if c.FetchRate <= 0 {
		return fmt.Errorf("fetch_rate must be positive, got %f: %w", c.FetchRate, ErrInvalidConfig)
	}
	if c.FetchBurst < 1 {
		return fmt.Errorf("fetch_burst must be at least 1, got %d: %w", c.FetchBurst, ErrInvalidConfig)
	}
	if c.DiskMaxSize < 0 {
		return fmt.Errorf("disk_max_size cannot be negative: %w", ErrInvalidConfig)
	}
	return nil
}
