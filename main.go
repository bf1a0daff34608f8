// Package main provides the entry point for the Leyn CLI application.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/leyningapp/leyn/leyning"
	"github.com/leyningapp/leyn/leyning/reading"
	"github.com/leyningapp/leyn/ui"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile    string
	mouse         bool
	debug         bool
	noTranslation bool

	rootCmd = &cobra.Command{
		Use:   "leyn [READING [ALIYAH]]",
		Short: "Practice Torah reading along with a recording",
		Long: paragraph(
			fmt.Sprintf("\nPractice Torah reading, %s as the recording chants it.", keyword("word by word")),
		),
		Example:          paragraph("leyn\nleyn Bereshit\nleyn Noach 3\nleyn \"Vezot Haberakhah\" maftir"),
		SilenceErrors:    false,
		SilenceUsage:     true,
		TraverseChildren: true,
		Args:             cobra.MaximumNArgs(2),
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return validateOptions(cmd)
		},
		RunE: execute,
	}
)

func validateOptions(cmd *cobra.Command) error {
	if cmd.Flags().Changed("config") {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("unable to read config file: %w", err)
		}
	}

	mouse = viper.GetBool("mouse")
	debug = viper.GetBool("debug")
	if debug {
		log.SetLevel(log.DebugLevel)
	}
	return nil
}

func loadConfig() (leyning.Config, error) {
	cfg, err := leyning.LoadConfigFromViper()
	if err != nil {
		return cfg, err
	}
	if noTranslation {
		cfg.Translation = false
	}
	return cfg, nil
}

// selectionFromArgs resolves the READING and ALIYAH arguments, falling back
// to the next reading on the calendar.
func selectionFromArgs(e *engine, args []string, now time.Time) (reading.Selection, error) {
	var (
		sel reading.Selection
		err error
	)
	if len(args) > 0 {
		sel.ReadingID = args[0]
	} else if sel.ReadingID, err = e.defaultSelection(now); err != nil {
		return sel, err
	}

	aliyah := ""
	if len(args) > 1 {
		aliyah = args[1]
	}
	if sel.Aliyah, err = parseAliyah(aliyah); err != nil {
		return sel, err
	}
	return sel, nil
}

func execute(_ *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	e, err := openEngine(cfg, true)
	if err != nil {
		return err
	}
	defer func() {
		if err := e.Close(); err != nil {
			log.Warn("unable to close engine", "err", err)
		}
	}()

	sel, err := selectionFromArgs(e, args, now())
	if err != nil {
		return err
	}
	sel.Translation = cfg.Translation

	return runTUI(e, sel)
}

func runTUI(e *engine, sel reading.Selection) error {
	// Read environment to get display options
	cfg, err := env.ParseAs[ui.Config]()
	if err != nil {
		return fmt.Errorf("error parsing config: %v", err)
	}

	cfg.EnableMouse = mouse
	cfg.Selection = sel

	log.Info("starting player", "reading", sel.ReadingID, "aliyah", sel.Aliyah)

	// Run Bubble Tea program
	if _, err := ui.NewProgram(cfg, e.assembler, e.settings).Run(); err != nil {
		return fmt.Errorf("unable to run tui program: %w", err)
	}

	return nil
}

func main() {
	closer, err := setupLog()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
}

func init() {
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	if used := viper.ConfigFileUsed(); used != "" {
		configFile = used
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", configFile, "config file")
	rootCmd.PersistentFlags().String("data-dir", "", "directory with readings, text, labels and audio")
	rootCmd.PersistentFlags().Bool("debug", false, "write debug output to the log file")
	rootCmd.PersistentFlags().BoolVar(&noTranslation, "no-translation", false, "hide the translation")
	rootCmd.Flags().BoolVarP(&mouse, "mouse", "m", false, "select words with the mouse")
	rootCmd.Flags().Bool("mock-audio", false, "play silent mock audio instead of the recordings")
	rootCmd.Flags().String("mode", string(leyning.ModeVerse), "audio synchronization: verse or aliyah")

	// Config bindings
	_ = viper.BindPFlag("data_dir", rootCmd.PersistentFlags().Lookup("data-dir"))
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("mouse", rootCmd.Flags().Lookup("mouse"))
	_ = viper.BindPFlag("audio.mock", rootCmd.Flags().Lookup("mock-audio"))
	_ = viper.BindPFlag("audio_mode", rootCmd.Flags().Lookup("mode"))

	viper.SetDefault("mouse", false)
	viper.SetDefault("debug", false)
	leyning.SetDefaults()

	rootCmd.AddCommand(showCmd, readingsCmd, configCmd, manCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not load find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "leyn")}, dirs...)
	}

	if c := os.Getenv("LEYN_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName("leyn")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("leyn")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", viper.ConfigFileUsed())
		return
	}

	if viper.ConfigFileUsed() == "" {
		configFile = filepath.Join(dirs[0], "leyn.yml")
	}
	if err := ensureConfigFile(); err != nil {
		log.Error("Could not create default configuration", "error", err)
	}
}
