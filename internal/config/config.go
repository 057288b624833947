// Package config provides configuration types, defaults and validation for modal.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/zjrosen/modal/internal/log"
	"github.com/zjrosen/modal/internal/tracing"
)

// Config holds all configuration options for modal.
type Config struct {
	Leader            string        `mapstructure:"leader"`
	Timeout           time.Duration `mapstructure:"timeout"`
	MaxCount          int           `mapstructure:"max_count"`
	StartInInsertMode bool          `mapstructure:"start_in_insert_mode"`
	Surround          bool          `mapstructure:"surround"`
	IsKeyword         string        `mapstructure:"iskeyword"`
	AutoIndent        bool          `mapstructure:"autoindent"`
	ShiftWidth        int           `mapstructure:"shiftwidth"`
	IgnoreCase        bool          `mapstructure:"ignorecase"`
	SmartCase         bool          `mapstructure:"smartcase"`
	SearchHistory     int           `mapstructure:"search_history"`
	HLSearch          bool          `mapstructure:"hlsearch"`

	InsertModeKeyBindings             []KeyBinding `mapstructure:"insert_mode_key_bindings"`
	InsertModeKeyBindingsNonRecursive []KeyBinding `mapstructure:"insert_mode_key_bindings_non_recursive"`
	OtherModesKeyBindings             []KeyBinding `mapstructure:"other_modes_key_bindings"`
	OtherModesKeyBindingsNonRecursive []KeyBinding `mapstructure:"other_modes_key_bindings_non_recursive"`

	UI      UIConfig       `mapstructure:"ui"`
	Log     LogConfig      `mapstructure:"log"`
	Tracing tracing.Config `mapstructure:"tracing"`
}

// KeyBinding maps a key sequence onto replacement keys and/or host commands.
type KeyBinding struct {
	Before   []string         `mapstructure:"before"`
	After    []string         `mapstructure:"after"`
	Commands []CommandBinding `mapstructure:"commands"`
}

// CommandBinding is one command run by a KeyBinding. A command starting with
// ":" opens the command line with the rest as its text; anything else is
// handed to the host.
type CommandBinding struct {
	Command string   `mapstructure:"command"`
	Args    []string `mapstructure:"args"`
}

// UIConfig holds terminal editor options.
type UIConfig struct {
	ShowStatusBar bool `mapstructure:"show_status_bar"`
	LineNumbers   bool `mapstructure:"line_numbers"`
	// TabWidth is the display width of a tab character.
	TabWidth int `mapstructure:"tab_width"`
}

// LogConfig controls the debug log.
type LogConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
	Level   string `mapstructure:"level"`
}

// DefaultIsKeyword is the punctuation set that separates words.
const DefaultIsKeyword = "/\\()\"':,.;<>~!@#$%^&*|+=[]{}`?-"

// Defaults returns the default configuration.
func Defaults() Config {
	tr := tracing.DefaultConfig()
	tr.FilePath = DefaultTracesFilePath()
	return Config{
		Leader:        "\\",
		Timeout:       time.Second,
		MaxCount:      99999,
		Surround:      true,
		IsKeyword:     DefaultIsKeyword,
		AutoIndent:    true,
		ShiftWidth:    4,
		IgnoreCase:    true,
		SmartCase:     true,
		SearchHistory: 50,
		UI: UIConfig{
			ShowStatusBar: true,
			LineNumbers:   true,
			TabWidth:      4,
		},
		Log: LogConfig{
			Enabled: false,
			Path:    "debug.log",
			Level:   "debug",
		},
		Tracing: tr,
	}
}

// DefaultConfigDir returns ~/.config/modal, or "" when the home directory is unknown.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "modal")
}

// DefaultTracesFilePath returns the JSONL trace output under the config directory.
func DefaultTracesFilePath() string {
	dir := DefaultConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "traces", "traces.jsonl")
}

// Validate checks cfg for values the engine cannot work with.
func Validate(cfg Config) error {
	if cfg.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", cfg.Timeout)
	}
	if cfg.MaxCount <= 0 {
		return fmt.Errorf("max_count must be positive, got %d", cfg.MaxCount)
	}
	if cfg.ShiftWidth <= 0 {
		return fmt.Errorf("shiftwidth must be positive, got %d", cfg.ShiftWidth)
	}
	if cfg.SearchHistory < 0 {
		return fmt.Errorf("search_history must not be negative, got %d", cfg.SearchHistory)
	}
	if strings.ContainsAny(cfg.IsKeyword, " \t\n") {
		return fmt.Errorf("iskeyword must not contain whitespace")
	}
	groups := []struct {
		name     string
		bindings []KeyBinding
	}{
		{"insert_mode_key_bindings", cfg.InsertModeKeyBindings},
		{"insert_mode_key_bindings_non_recursive", cfg.InsertModeKeyBindingsNonRecursive},
		{"other_modes_key_bindings", cfg.OtherModesKeyBindings},
		{"other_modes_key_bindings_non_recursive", cfg.OtherModesKeyBindingsNonRecursive},
	}
	for _, g := range groups {
		if err := ValidateKeyBindings(g.name, g.bindings); err != nil {
			return err
		}
	}
	return ValidateTracing(cfg.Tracing)
}

// ValidateKeyBindings checks one binding list.
func ValidateKeyBindings(name string, bindings []KeyBinding) error {
	for i, b := range bindings {
		if len(b.Before) == 0 {
			return fmt.Errorf("%s[%d]: before is required", name, i)
		}
		if len(b.After) == 0 && len(b.Commands) == 0 {
			return fmt.Errorf("%s[%d]: after or commands is required", name, i)
		}
		for j, c := range b.Commands {
			if strings.TrimSpace(c.Command) == "" {
				return fmt.Errorf("%s[%d].commands[%d]: command is required", name, i, j)
			}
		}
	}
	return nil
}

// ValidateTracing checks tracing configuration values.
func ValidateTracing(t tracing.Config) error {
	switch t.Exporter {
	case "", "none", "file", "stdout", "otlp":
	default:
		return fmt.Errorf("tracing.exporter must be one of none, file, stdout, otlp, got %q", t.Exporter)
	}
	if t.SampleRate < 0 || t.SampleRate > 1 {
		return fmt.Errorf("tracing.sample_rate must be between 0.0 and 1.0, got %v", t.SampleRate)
	}
	if t.Enabled && t.Exporter == "file" && t.FilePath == "" {
		return fmt.Errorf("tracing.file_path is required when the file exporter is enabled")
	}
	return nil
}

// DefaultConfigTemplate returns the commented YAML written on first run.
func DefaultConfigTemplate() string {
	return `# modal configuration

# Leader key expanded from <leader> in key bindings
leader: "\\"

# How long a partially typed remapping waits for its next key
timeout: 1s

# Upper bound for counts typed before a command
max_count: 99999

start_in_insert_mode: false

# Enable ds / cs / ys surround commands
surround: true

# Characters treated as word separators by w, b, e and friends
iskeyword: "/\\()\"':,.;<>~!@#$%^&*|+=[]{}` + "`" + `?-"

autoindent: true
shiftwidth: 4

# Search options
ignorecase: true
smartcase: true
search_history: 50
hlsearch: false

# Key remappings. "before" and "after" are key lists in vim notation.
# insert_mode_key_bindings:
#   - before: ["j", "j"]
#     after: ["<Esc>"]
# other_modes_key_bindings_non_recursive:
#   - before: ["<leader>", "w"]
#     commands:
#       - command: ":w"
insert_mode_key_bindings: []
insert_mode_key_bindings_non_recursive: []
other_modes_key_bindings: []
other_modes_key_bindings_non_recursive: []

ui:
  show_status_bar: true
  line_numbers: true
  tab_width: 4

log:
  enabled: false
  path: debug.log
  level: debug   # debug, info, warn, error

tracing:
  enabled: false
  exporter: file   # none, file, stdout, otlp
  # file_path: ~/.config/modal/traces/traces.jsonl
  otlp_endpoint: localhost:4317
  sample_rate: 1.0
  service_name: modal
`
}

// WriteDefaultConfig writes the default template to configPath, creating parent directories.
func WriteDefaultConfig(configPath string) error {
	log.Debug(log.CatConfig, "Writing default config", "path", configPath)

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to create config directory", err, "dir", dir)
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(configPath, []byte(DefaultConfigTemplate()), 0o600); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to write config file", err, "path", configPath)
		return fmt.Errorf("writing config file: %w", err)
	}

	log.Info(log.CatConfig, "Created default config", "path", configPath)
	return nil
}
