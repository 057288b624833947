package cmd

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/zjrosen/modal/internal/vim"
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List the built-in key bindings",
	Long:  `Print every motion, operator and command the engine understands, grouped by kind, rendered as markdown.`,
	Args:  cobra.NoArgs,
	RunE:  runKeys,
}

func init() {
	keysCmd.Flags().StringP("mode", "m", "", "only list actions available in this mode (e.g. Normal, Insert, Visual)")
	keysCmd.Flags().Bool("raw", false, "print the markdown source instead of rendering it")
	keysCmd.Flags().Int("width", 100, "wrap width for rendered output")
	rootCmd.AddCommand(keysCmd)
}

func runKeys(cmd *cobra.Command, _ []string) error {
	mode, _ := cmd.Flags().GetString("mode")
	raw, _ := cmd.Flags().GetBool("raw")
	width, _ := cmd.Flags().GetInt("width")

	md, err := catalogMarkdown(vim.DefaultRegistry(), mode)
	if err != nil {
		return err
	}
	if raw {
		_, err := fmt.Fprint(cmd.OutOrStdout(), md)
		return err
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return fmt.Errorf("creating markdown renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return fmt.Errorf("rendering key list: %w", err)
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), out)
	return err
}

func parseMode(name string) (vim.Mode, error) {
	for m := vim.ModeNormal; m <= vim.ModeSurroundInput; m++ {
		if strings.EqualFold(m.String(), name) {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown mode %q", name)
}

func actionKind(a vim.Action) string {
	switch a.(type) {
	case *vim.Motion:
		return "Motions"
	case *vim.Operator:
		return "Operators"
	}
	return "Commands"
}

// catalogMarkdown renders the registry as one table per action kind.
func catalogMarkdown(r *vim.Registry, modeFilter string) (string, error) {
	var only *vim.Mode
	if modeFilter != "" {
		m, err := parseMode(modeFilter)
		if err != nil {
			return "", err
		}
		only = &m
	}

	groups := map[string][]vim.Action{}
	for _, a := range r.All() {
		if only != nil && !slices.Contains(a.Modes(), *only) {
			continue
		}
		k := actionKind(a)
		groups[k] = append(groups[k], a)
	}

	var b strings.Builder
	b.WriteString("# Key bindings\n")
	for _, kind := range []string{"Motions", "Operators", "Commands"} {
		actions := groups[kind]
		if len(actions) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n## %s\n\n", kind)
		b.WriteString("| Keys | Action | Modes | Repeat |\n|---|---|---|---|\n")
		for _, a := range actions {
			repeat := ""
			if a.CanBeRepeatedWithDot() {
				repeat = "."
			}
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", formatKeys(a.Keys()), a.Name(), formatModes(a.Modes()), repeat)
		}
	}
	return b.String(), nil
}

func formatKeys(alts [][]string) string {
	parts := make([]string, len(alts))
	for i, seq := range alts {
		parts[i] = "`" + strings.Join(seq, "") + "`"
	}
	return strings.ReplaceAll(strings.Join(parts, " "), "|", `\|`)
}

func formatModes(modes []vim.Mode) string {
	names := make([]string, len(modes))
	for i, m := range modes {
		names[i] = m.String()
	}
	return strings.Join(names, ", ")
}
