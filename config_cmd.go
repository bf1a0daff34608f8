package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/charmbracelet/x/editor"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const defaultConfig = `# directory holding text/, translation/, labels/, readings.yaml and manifest.yaml
# (default: the user data directory)
data_dir: ""
# fetch text and labels from this URL instead of data_dir
content_url: ""
# audio synchronization: "verse" (one clip per verse) or "aliyah" (one track)
audio_mode: "verse"
# show the translation below each verse
translation: true
# mouse support
mouse: false

audio:
  # play silent mock audio instead of the recordings
  mock: false
  # output sample rate: 22050, 44100 or 48000
  sample_rate: 44100
  # keep the pitch when the speed changes
  pitch_correction: true
  # how often playback reports its position
  status_interval: "50ms"
  # output buffer
  buffer_size: "100ms"

cache:
  # timing label tables kept in memory
  label_entries: 16
  # books kept in memory
  content_entries: 32
  # compressed disk cache for downloaded content (default: the user cache directory)
  disk_dir: ""
  disk_max_size: 104857600
  # downloads per second
  fetch_rate: 4
  fetch_burst: 8
`

var configCmd = &cobra.Command{
	Use:     "config",
	Hidden:  false,
	Short:   "Edit the leyn config file",
	Long:    paragraph(fmt.Sprintf("\n%s the leyn config file. We’ll use EDITOR to determine which editor to use. If the config file doesn't exist, it will be created.", keyword("Edit"))),
	Example: paragraph("leyn config\nleyn config --config path/to/config.yml"),
	Args:    cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		if err := ensureConfigFile(); err != nil {
			return err
		}

		c, err := editor.Cmd("Leyn", configFile)
		if err != nil {
			return fmt.Errorf("unable to set config file: %w", err)
		}
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		if err := c.Run(); err != nil {
			return fmt.Errorf("unable to run command: %w", err)
		}

		fmt.Println("Wrote config file to:", configFile)
		return nil
	},
}

func ensureConfigFile() error {
	if configFile == "" {
		configFile = viper.GetViper().ConfigFileUsed()
		if err := os.MkdirAll(filepath.Dir(configFile), 0o755); err != nil { //nolint:gosec
			return fmt.Errorf("could not write configuration file: %w", err)
		}
	}

	if ext := path.Ext(configFile); ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("'%s' is not a supported configuration type: use '%s' or '%s'", ext, ".yaml", ".yml")
	}

	if _, err := os.Stat(configFile); errors.Is(err, fs.ErrNotExist) {
		// File doesn't exist yet, create all necessary directories and
		// write the default config file
		if err := os.MkdirAll(filepath.Dir(configFile), 0o700); err != nil {
			return fmt.Errorf("unable create directory: %w", err)
		}

		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("unable to create config file: %w", err)
		}
		defer func() { _ = f.Close() }()

		if _, err := f.WriteString(defaultConfig); err != nil {
			return fmt.Errorf("unable to write config file: %w", err)
		}
	} else if err != nil { // some other error occurred
		return fmt.Errorf("unable to stat config file: %w", err)
	}
	return nil
}
