package leyning

import (
	"fmt"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// LoadConfigFromViper loads the engine configuration from Viper.
func LoadConfigFromViper() (Config, error) {
	cfg := DefaultConfig()

	if viper.IsSet("data_dir") {
		cfg.DataDir = viper.GetString("data_dir")
	}
	if viper.IsSet("content_url") {
		cfg.ContentURL = viper.GetString("content_url")
	}
	if viper.IsSet("audio_mode") {
		cfg.AudioMode = AudioMode(viper.GetString("audio_mode"))
	}
	if viper.IsSet("translation") {
		cfg.Translation = viper.GetBool("translation")
	}

	cfg.Audio = loadAudioConfig()
	cfg.Cache = loadCacheConfig()

	var err error
	if cfg.DataDir, err = expand(cfg.DataDir); err != nil {
		return cfg, fmt.Errorf("data_dir: %w", err)
	}
	if cfg.Cache.DiskDir, err = expand(cfg.Cache.DiskDir); err != nil {
		return cfg, fmt.Errorf("cache.disk_dir: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func expand(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	return homedir.Expand(path)
}

// loadAudioConfig loads playback configuration from Viper.
func loadAudioConfig() AudioConfig {
	cfg := DefaultAudioConfig()

	if viper.IsSet("audio.mock") {
		cfg.Mock = viper.GetBool("audio.mock")
	}
	if viper.IsSet("audio.sample_rate") {
		cfg.SampleRate = viper.GetInt("audio.sample_rate")
	}
	if viper.IsSet("audio.pitch_correction") {
		cfg.PitchCorrection = viper.GetBool("audio.pitch_correction")
	}
	if viper.IsSet("audio.status_interval") {
		if d, err := time.ParseDuration(viper.GetString("audio.status_interval")); err == nil {
			cfg.StatusInterval = d
		}
	}
	if viper.IsSet("audio.buffer_size") {
		if d, err := time.ParseDuration(viper.GetString("audio.buffer_size")); err == nil {
			cfg.BufferSize = d
		}
	}

	return cfg
}

// loadCacheConfig loads cache configuration from Viper.
func loadCacheConfig() CacheConfig {
	cfg := DefaultCacheConfig()

	if viper.IsSet("cache.label_entries") {
		cfg.LabelEntries = viper.GetInt("cache.label_entries")
	}
	if viper.IsSet("cache.content_entries") {
		cfg.ContentEntries = viper.GetInt("cache.content_entries")
	}
	if viper.IsSet("cache.disk_dir") {
		cfg.DiskDir = viper.GetString("cache.disk_dir")
	}
	if viper.IsSet("cache.disk_max_size") {
		cfg.DiskMaxSize = viper.GetInt64("cache.disk_max_size")
	}
	if viper.IsSet("cache.fetch_rate") {
		cfg.FetchRate = viper.GetFloat64("cache.fetch_rate")
	}
	if viper.IsSet("cache.fetch_burst") {
		cfg.FetchBurst = viper.GetInt("cache.fetch_burst")
	}

	return cfg
}

// SetDefaults sets default values in Viper for the engine configuration.
func SetDefaults() {
	defaults := DefaultConfig()

	viper.SetDefault("audio_mode", string(defaults.AudioMode))
	viper.SetDefault("translation", defaults.Translation)

	viper.SetDefault("audio.mock", defaults.Audio.Mock)
	viper.SetDefault("audio.sample_rate", defaults.Audio.SampleRate)
	viper.SetDefault("audio.pitch_correction", defaults.Audio.PitchCorrection)
	viper.SetDefault("audio.status_interval", defaults.Audio.StatusInterval.String())
	viper.SetDefault("audio.buffer_size", defaults.Audio.BufferSize.String())

	viper.SetDefault("cache.label_entries", defaults.Cache.LabelEntries)
	viper.SetDefault("cache.content_entries", defaults.Cache.ContentEntries)
	viper.SetDefault("cache.disk_max_size", defaults.Cache.DiskMaxSize)
	viper.SetDefault("cache.fetch_rate", defaults.Cache.FetchRate)
	viper.SetDefault("cache.fetch_burst", defaults.Cache.FetchBurst)
}
