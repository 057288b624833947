package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zjrosen/modal/internal/config"
	"github.com/zjrosen/modal/internal/log"
)

func init() {
	// Force lipgloss/termenv to query terminal background color BEFORE
	// any Bubble Tea program starts. This prevents the terminal's OSC 11
	// response from racing with Bubble Tea's input loop and appearing as
	// garbage text in the buffer.
	//
	// See: https://github.com/charmbracelet/bubbletea/issues/1036
	_ = lipgloss.HasDarkBackground()
}

const localConfigPath = ".modal/config.yaml"

var (
	version = "dev"
	cfgFile string
	debug   bool
	cfg     config.Config
)

var rootCmd = &cobra.Command{
	Use:     "modal [file]",
	Short:   "A vim-style modal text editor",
	Long:    `A terminal text editor driven by a vim-compatible modal editing engine with counts, operators, text objects, macros, dot-repeat, surround and multiple cursors.`,
	Version: version,
	Args:    cobra.MaximumNArgs(1),
	RunE:    runEdit,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: ~/.config/modal/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false,
		"write a debug log (path from log.path)")
	rootCmd.Flags().Bool("insert", false, "start in insert mode")
	rootCmd.Flags().String("leader", "", "leader key for <leader> remaps")

	_ = viper.BindPFlag("start_in_insert_mode", rootCmd.Flags().Lookup("insert"))
	_ = viper.BindPFlag("leader", rootCmd.Flags().Lookup("leader"))
}

// setDefaults registers every default so values missing from the file
// still unmarshal to something sensible.
func setDefaults(v *viper.Viper) {
	d := config.Defaults()
	v.SetDefault("leader", d.Leader)
	v.SetDefault("timeout", d.Timeout)
	v.SetDefault("max_count", d.MaxCount)
	v.SetDefault("start_in_insert_mode", d.StartInInsertMode)
	v.SetDefault("surround", d.Surround)
	v.SetDefault("iskeyword", d.IsKeyword)
	v.SetDefault("autoindent", d.AutoIndent)
	v.SetDefault("shiftwidth", d.ShiftWidth)
	v.SetDefault("ignorecase", d.IgnoreCase)
	v.SetDefault("smartcase", d.SmartCase)
	v.SetDefault("search_history", d.SearchHistory)
	v.SetDefault("hlsearch", d.HLSearch)
	v.SetDefault("ui.show_status_bar", d.UI.ShowStatusBar)
	v.SetDefault("ui.line_numbers", d.UI.LineNumbers)
	v.SetDefault("ui.tab_width", d.UI.TabWidth)
	v.SetDefault("log.enabled", d.Log.Enabled)
	v.SetDefault("log.path", d.Log.Path)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("tracing.enabled", d.Tracing.Enabled)
	v.SetDefault("tracing.exporter", d.Tracing.Exporter)
	v.SetDefault("tracing.file_path", d.Tracing.FilePath)
	v.SetDefault("tracing.otlp_endpoint", d.Tracing.OTLPEndpoint)
	v.SetDefault("tracing.sample_rate", d.Tracing.SampleRate)
	v.SetDefault("tracing.service_name", d.Tracing.ServiceName)
}

func initConfig() {
	setDefaults(viper.GetViper())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Config lookup order:
		// 1. .modal/config.yaml (current directory)
		// 2. ~/.config/modal/config.yaml (user config)
		if _, err := os.Stat(localConfigPath); err == nil {
			viper.SetConfigFile(localConfigPath)
		} else {
			viper.AddConfigPath(config.DefaultConfigDir())
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		// No config file found anywhere - create the default in the user config dir
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			if dir := config.DefaultConfigDir(); dir != "" {
				defaultPath := filepath.Join(dir, "config.yaml")
				if writeErr := config.WriteDefaultConfig(defaultPath); writeErr == nil {
					viper.SetConfigFile(defaultPath)
					_ = viper.ReadInConfig()
				}
			}
			// If write fails, just continue with defaults (no config file)
		}
	}

	_ = viper.Unmarshal(&cfg)
}

// readConfig loads path into a fresh viper, on top of the defaults.
func readConfig(path string) (config.Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return config.Config{}, fmt.Errorf("reading %s: %w", path, err)
	}
	var out config.Config
	if err := v.Unmarshal(&out); err != nil {
		return config.Config{}, fmt.Errorf("decoding %s: %w", path, err)
	}
	return out, nil
}

// setupLogging opens the debug log when enabled by config or --debug.
// The returned cleanup is never nil.
func setupLogging(c config.Config) (func(), error) {
	if !c.Log.Enabled && !debug {
		return func() {}, nil
	}
	cleanup, err := log.Init(c.Log.Path)
	if err != nil {
		return func() {}, err
	}
	log.SetMinLevel(log.ParseLevel(c.Log.Level))
	log.Info(log.CatConfig, "logging started", "config", viper.ConfigFileUsed(), "version", version)
	return cleanup, nil
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string (called from main with ldflags)
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}
