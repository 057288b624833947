package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/modal/internal/config"
	"github.com/zjrosen/modal/internal/vim"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// ============================================================================
// Configuration
// ============================================================================

func TestReadConfig_FillsDefaults(t *testing.T) {
	path := writeFile(t, "config.yaml", "leader: \",\"\ntimeout: 250ms\n")
	got, err := readConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ",", got.Leader)
	assert.Equal(t, 250*time.Millisecond, got.Timeout)
	assert.Equal(t, config.Defaults().ShiftWidth, got.ShiftWidth)
	assert.True(t, got.Surround)
	require.NoError(t, config.Validate(got))
}

func TestReadConfig_KeyBindings(t *testing.T) {
	path := writeFile(t, "config.yaml", `
insert_mode_key_bindings:
  - before: ["j", "k"]
    after: ["<Esc>"]
other_modes_key_bindings:
  - before: ["<leader>", "w"]
    commands:
      - command: write
`)
	got, err := readConfig(path)
	require.NoError(t, err)

	require.Len(t, got.InsertModeKeyBindings, 1)
	assert.Equal(t, []string{"j", "k"}, got.InsertModeKeyBindings[0].Before)
	require.Len(t, got.OtherModesKeyBindings, 1)
	assert.Equal(t, "write", got.OtherModesKeyBindings[0].Commands[0].Command)
}

func TestReadConfig_DefaultTemplateLoads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, config.WriteDefaultConfig(path))
	got, err := readConfig(path)
	require.NoError(t, err)
	require.NoError(t, config.Validate(got))
}

func TestReadConfig_MissingFile(t *testing.T) {
	_, err := readConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

// ============================================================================
// edit
// ============================================================================

func TestLoadFile(t *testing.T) {
	text, trailing, err := loadFile(writeFile(t, "a.txt", "one\ntwo\n"))
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo", text)
	assert.True(t, trailing)

	text, trailing, err = loadFile(writeFile(t, "b.txt", "no newline"))
	require.NoError(t, err)
	assert.Equal(t, "no newline", text)
	assert.False(t, trailing)

	text, trailing, err = loadFile(filepath.Join(t.TempDir(), "new.txt"))
	require.NoError(t, err)
	assert.Empty(t, text)
	assert.True(t, trailing)
}

// ============================================================================
// replay
// ============================================================================

func TestReplayScript(t *testing.T) {
	script, err := parseScript([]byte(`
text: |
  foo bar baz
steps:
  - keys: dw
    expect: bar baz
  - keys: ysiw)
    expect: (bar) baz
    mode: Normal
  - keys: u
    expect: bar baz
  - keys: $
    at: [0, 6]
`))
	require.NoError(t, err)

	text, err := replayScript(nil, script, config.Defaults())
	require.NoError(t, err)
	assert.Equal(t, "bar baz", text)
}

func TestReplayScript_StartCursor(t *testing.T) {
	script, err := parseScript([]byte("text: \"a\\nb\\nc\"\ncursor: [2, 0]\nsteps:\n  - keys: dd\n    expect: \"a\\nb\"\n"))
	require.NoError(t, err)
	_, err = replayScript(nil, script, config.Defaults())
	require.NoError(t, err)
}

func TestReplayScript_ReportsMismatch(t *testing.T) {
	script, err := parseScript([]byte("text: abc\nsteps:\n  - keys: x\n    expect: abc\n"))
	require.NoError(t, err)

	text, err := replayScript(nil, script, config.Defaults())
	require.ErrorIs(t, err, ErrExpectationFailed)
	assert.Contains(t, err.Error(), "step 1")
	assert.Equal(t, "bc", text)
}

func TestParseScript_RejectsBadCursor(t *testing.T) {
	_, err := parseScript([]byte("text: a\ncursor: [1]\n"))
	require.Error(t, err)
	_, err = parseScript([]byte("steps:\n  - keys: x\n    at: [1, 2, 3]\n"))
	require.Error(t, err)
}

// ============================================================================
// keys
// ============================================================================

func TestCatalogMarkdown(t *testing.T) {
	md, err := catalogMarkdown(vim.DefaultRegistry(), "")
	require.NoError(t, err)
	assert.Contains(t, md, "## Motions")
	assert.Contains(t, md, "## Operators")
	assert.Contains(t, md, "## Commands")
	assert.Contains(t, md, "| `d` `x` | operator.delete |")
}

func TestCatalogMarkdown_ModeFilter(t *testing.T) {
	md, err := catalogMarkdown(vim.DefaultRegistry(), "insert")
	require.NoError(t, err)
	assert.NotContains(t, md, "## Operators")
	for _, line := range strings.Split(md, "\n") {
		if strings.HasPrefix(line, "| `") {
			assert.Contains(t, line, "Insert")
		}
	}

	_, err = catalogMarkdown(vim.DefaultRegistry(), "bogus")
	require.Error(t, err)
}

func TestFormatKeysEscapesPipes(t *testing.T) {
	assert.Equal(t, "`\\|` `3\\|`", formatKeys([][]string{{"|"}, {"3", "|"}}))
}
