package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults_Valid(t *testing.T) {
	require.NoError(t, Validate(Defaults()))
}

func TestDefaults_Values(t *testing.T) {
	cfg := Defaults()
	assert.Equal(t, "\\", cfg.Leader)
	assert.Equal(t, time.Second, cfg.Timeout)
	assert.Equal(t, 99999, cfg.MaxCount)
	assert.Equal(t, 50, cfg.SearchHistory)
	assert.True(t, cfg.Surround)
	assert.True(t, cfg.IgnoreCase)
	assert.True(t, cfg.SmartCase)
	assert.False(t, cfg.StartInInsertMode)
	assert.False(t, cfg.Tracing.Enabled)
}

func TestDefaultConfigTemplate_DecodesToDefaults(t *testing.T) {
	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(DefaultConfigTemplate())))

	var cfg Config
	require.NoError(t, v.Unmarshal(&cfg))

	want := Defaults()
	assert.Equal(t, want.Leader, cfg.Leader)
	assert.Equal(t, want.Timeout, cfg.Timeout)
	assert.Equal(t, want.MaxCount, cfg.MaxCount)
	assert.Equal(t, want.IsKeyword, cfg.IsKeyword)
	assert.Equal(t, want.ShiftWidth, cfg.ShiftWidth)
	assert.Equal(t, want.UI, cfg.UI)
	assert.Equal(t, want.Log, cfg.Log)
	assert.Equal(t, want.Tracing.Exporter, cfg.Tracing.Exporter)
	assert.Empty(t, cfg.InsertModeKeyBindings)
	require.NoError(t, ValidateKeyBindings("insert_mode_key_bindings", cfg.InsertModeKeyBindings))
}

func TestKeyBindings_Decode(t *testing.T) {
	yaml := `
insert_mode_key_bindings:
  - before: ["j", "j"]
    after: ["<Esc>"]
other_modes_key_bindings_non_recursive:
  - before: ["<leader>", "w"]
    commands:
      - command: ":w"
      - command: workbench.save
        args: ["--all"]
`
	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(yaml)))

	var cfg Config
	require.NoError(t, v.Unmarshal(&cfg))
	require.Len(t, cfg.InsertModeKeyBindings, 1)
	assert.Equal(t, []string{"j", "j"}, cfg.InsertModeKeyBindings[0].Before)
	assert.Equal(t, []string{"<Esc>"}, cfg.InsertModeKeyBindings[0].After)

	require.Len(t, cfg.OtherModesKeyBindingsNonRecursive, 1)
	cmds := cfg.OtherModesKeyBindingsNonRecursive[0].Commands
	require.Len(t, cmds, 2)
	assert.Equal(t, ":w", cmds[0].Command)
	assert.Equal(t, []string{"--all"}, cmds[1].Args)
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"zero timeout", func(c *Config) { c.Timeout = 0 }, "timeout must be positive"},
		{"negative max count", func(c *Config) { c.MaxCount = -1 }, "max_count must be positive"},
		{"zero shiftwidth", func(c *Config) { c.ShiftWidth = 0 }, "shiftwidth must be positive"},
		{"negative history", func(c *Config) { c.SearchHistory = -2 }, "search_history"},
		{"iskeyword whitespace", func(c *Config) { c.IsKeyword = "a b" }, "iskeyword"},
		{"empty before", func(c *Config) {
			c.InsertModeKeyBindings = []KeyBinding{{After: []string{"x"}}}
		}, "insert_mode_key_bindings[0]: before is required"},
		{"no after or commands", func(c *Config) {
			c.OtherModesKeyBindings = []KeyBinding{{Before: []string{"x"}}, {Before: []string{"y"}}}
		}, "other_modes_key_bindings[0]: after or commands is required"},
		{"blank command", func(c *Config) {
			c.OtherModesKeyBindingsNonRecursive = []KeyBinding{{Before: []string{"x"}, Commands: []CommandBinding{{Command: " "}}}}
		}, "commands[0]: command is required"},
		{"bad exporter", func(c *Config) { c.Tracing.Exporter = "jaeger" }, "tracing.exporter"},
		{"bad sample rate", func(c *Config) { c.Tracing.SampleRate = 1.5 }, "tracing.sample_rate"},
		{"file exporter without path", func(c *Config) {
			c.Tracing.Enabled = true
			c.Tracing.FilePath = ""
		}, "tracing.file_path"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Defaults()
			tc.mutate(&cfg)
			err := Validate(cfg)
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.errMsg)
		})
	}
}

func TestWriteDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, WriteDefaultConfig(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfigTemplate(), string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestWriteDefaultConfig_UnwritableDir(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))

	err := WriteDefaultConfig(filepath.Join(blocker, "config.yaml"))
	require.ErrorContains(t, err, "creating config directory")
}
