package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/zjrosen/modal/internal/buffer"
	"github.com/zjrosen/modal/internal/config"
	"github.com/zjrosen/modal/internal/cursor"
	"github.com/zjrosen/modal/internal/vim"
)

// ErrExpectationFailed is returned when a replay step does not produce what
// the script expects.
var ErrExpectationFailed = errors.New("replay expectation failed")

// Script is a headless editing session read from YAML:
//
//	text: |
//	  hello world
//	cursor: [0, 6]
//	steps:
//	  - keys: dw
//	    expect: hello
//	    mode: Normal
type Script struct {
	Text   string `yaml:"text"`
	Cursor []int  `yaml:"cursor"`
	Steps  []Step `yaml:"steps"`
}

// Step feeds keys and optionally checks the result.
type Step struct {
	Keys   string  `yaml:"keys"`
	Expect *string `yaml:"expect"`
	Mode   string  `yaml:"mode"`
	// At is the expected primary cursor as [line, col].
	At []int `yaml:"at"`
}

var replayCmd = &cobra.Command{
	Use:   "replay <script.yaml>",
	Short: "Run a key script against a buffer without a terminal",
	Long: `Feed the keys from a YAML script into a headless session and check each
step's expected text, mode and cursor. The final buffer is printed.`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	replayCmd.Flags().BoolP("quiet", "q", false, "do not print the final buffer")
	rootCmd.AddCommand(replayCmd)
}

func runReplay(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0]) //nolint:gosec // G304: script path comes from the user
	if err != nil {
		return fmt.Errorf("reading script: %w", err)
	}
	script, err := parseScript(data)
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	text, err := replayScript(cmd.Context(), script, cfg)
	if err != nil {
		return err
	}
	if quiet, _ := cmd.Flags().GetBool("quiet"); !quiet {
		return printBuffer(cmd.OutOrStdout(), text)
	}
	return nil
}

func parseScript(data []byte) (Script, error) {
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Script{}, fmt.Errorf("parsing script: %w", err)
	}
	if len(s.Cursor) != 0 && len(s.Cursor) != 2 {
		return Script{}, fmt.Errorf("parsing script: cursor must be [line, col]")
	}
	for i, st := range s.Steps {
		if len(st.At) != 0 && len(st.At) != 2 {
			return Script{}, fmt.Errorf("parsing script: step %d: at must be [line, col]", i+1)
		}
	}
	return s, nil
}

// replayScript runs every step and returns the final text.
func replayScript(ctx context.Context, s Script, c config.Config) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	host := buffer.NewMemory(trimFinalNewline(s.Text))
	session := vim.NewSession(host, vim.WithConfig(c), vim.WithGlobalState(vim.NewGlobalState()))
	defer session.Close()

	if len(s.Cursor) == 2 {
		p := cursor.At(s.Cursor[0], s.Cursor[1])
		if err := session.HandleSelectionChange(ctx, []cursor.Range{cursor.Collapsed(p)}); err != nil {
			return "", err
		}
	}

	for i, st := range s.Steps {
		if err := session.HandleKeys(ctx, st.Keys); err != nil {
			return "", fmt.Errorf("step %d (%q): %w", i+1, st.Keys, err)
		}
		if err := checkStep(st, host, session); err != nil {
			return host.Text(), fmt.Errorf("step %d (%q): %w", i+1, st.Keys, err)
		}
	}
	return host.Text(), nil
}

func checkStep(st Step, host *buffer.Memory, session *vim.Session) error {
	if st.Expect != nil {
		if got := host.Text(); got != trimFinalNewline(*st.Expect) {
			return fmt.Errorf("%w: text is %q, want %q", ErrExpectationFailed, got, trimFinalNewline(*st.Expect))
		}
	}
	if st.Mode != "" {
		want, err := parseMode(st.Mode)
		if err != nil {
			return err
		}
		if got := session.Mode(); got != want {
			return fmt.Errorf("%w: mode is %s, want %s", ErrExpectationFailed, got, want)
		}
	}
	if len(st.At) == 2 {
		want := cursor.At(st.At[0], st.At[1])
		cursors := session.Cursors()
		if len(cursors) == 0 || cursors[0].Stop != want {
			return fmt.Errorf("%w: cursor is %v, want %v", ErrExpectationFailed, cursors, want)
		}
	}
	return nil
}

func trimFinalNewline(s string) string {
	if n := len(s); n > 0 && s[n-1] == '\n' {
		return s[:n-1]
	}
	return s
}

func printBuffer(w io.Writer, text string) error {
	_, err := fmt.Fprintln(w, text)
	return err
}
