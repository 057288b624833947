package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	zone "github.com/lrstanley/bubblezone"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zjrosen/modal/internal/config"
	"github.com/zjrosen/modal/internal/log"
	"github.com/zjrosen/modal/internal/tracing"
	"github.com/zjrosen/modal/internal/ui/editor"
	"github.com/zjrosen/modal/internal/watcher"
)

var editCmd = &cobra.Command{
	Use:   "edit [file]",
	Short: "Open a file in the editor",
	Long:  `Open a file, or an empty scratch buffer, in the terminal editor. This is also what running modal with no subcommand does.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runEdit,
}

func init() {
	rootCmd.AddCommand(editCmd)
}

// loadFile reads path for editing. A missing file starts empty. The final
// newline is stripped and remembered so writing puts it back.
func loadFile(path string) (text string, trailingNewline bool, err error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is the file the user asked to edit
	if errors.Is(err, fs.ErrNotExist) {
		return "", true, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading %s: %w", path, err)
	}
	text = string(data)
	if strings.HasSuffix(text, "\n") {
		return strings.TrimSuffix(text, "\n"), true, nil
	}
	return text, len(data) == 0, nil
}

func runEdit(cmd *cobra.Command, args []string) error {
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	cleanupLog, err := setupLogging(cfg)
	if err != nil {
		return fmt.Errorf("starting debug log: %w", err)
	}
	defer cleanupLog()

	provider, err := tracing.NewProvider(cfg.Tracing)
	if err != nil {
		return fmt.Errorf("starting tracing: %w", err)
	}
	defer func() { _ = provider.Shutdown(context.Background()) }()

	edCfg := editor.Config{Engine: cfg, Tracer: provider, TrailingNewline: true}
	if len(args) == 1 {
		edCfg.Path = args[0]
		edCfg.Text, edCfg.TrailingNewline, err = loadFile(args[0])
		if err != nil {
			return err
		}
	}

	// Watch the config file so remaps can change while editing
	if path := viper.ConfigFileUsed(); path != "" {
		w, err := watcher.New(watcher.DefaultConfig(path))
		if err == nil {
			changes, startErr := w.Start()
			if startErr == nil {
				edCfg.ConfigChanges = changes
				edCfg.Reload = func() (config.Config, error) { return readConfig(path) }
			} else {
				log.ErrorErr(log.CatWatcher, "config watcher failed to start", startErr, "path", path)
			}
			defer func() { _ = w.Stop() }()
		}
	}

	zone.NewGlobal()
	model := editor.New(edCfg)
	defer model.Close()

	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running editor: %w", err)
	}
	return nil
}
