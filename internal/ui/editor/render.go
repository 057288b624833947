package editor

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	zone "github.com/lrstanley/bubblezone"

	"github.com/zjrosen/modal/internal/cursor"
	"github.com/zjrosen/modal/internal/grapheme"
	"github.com/zjrosen/modal/internal/ui/styles"
	"github.com/zjrosen/modal/internal/vim"
)

var (
	gutterStyle    = lipgloss.NewStyle().Foreground(styles.TextMutedColor)
	fillerStyle    = lipgloss.NewStyle().Foreground(styles.TextMutedColor)
	textStyle      = lipgloss.NewStyle().Foreground(styles.TextPrimaryColor)
	selectionStyle = lipgloss.NewStyle().Background(styles.SelectionBgColor).Foreground(styles.TextPrimaryColor)
	matchStyle     = lipgloss.NewStyle().Background(styles.MatchBgColor).Foreground(styles.MatchFgColor)
	blockCursor    = lipgloss.NewStyle().Reverse(true)
	lineCursor     = lipgloss.NewStyle().Underline(true).Bold(true)
	underCursor    = lipgloss.NewStyle().Underline(true)

	modeStyle      = lipgloss.NewStyle().Bold(true).Foreground(styles.StatusSuccessColor)
	recordingStyle = lipgloss.NewStyle().Foreground(styles.StatusWarningColor)
	statusStyle    = lipgloss.NewStyle().Foreground(styles.TextSecondaryColor)
	errorStyle     = lipgloss.NewStyle().Foreground(styles.StatusErrorColor)
	logStyle       = lipgloss.NewStyle().Foreground(styles.TextDescriptionColor)
	logBorderStyle = lipgloss.NewStyle().Foreground(styles.BorderDefaultColor)
)

// cellKind orders the decorations of one cell; the highest wins.
type cellKind int

const (
	cellPlain cellKind = iota
	cellMatch
	cellSelected
	cellCursor
)

// View implements tea.Model.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	parts := []string{zone.Mark(textZone, m.renderText())}
	if m.showLog {
		parts = append(parts, m.renderLog())
	}
	if m.cfg.UI.ShowStatusBar {
		parts = append(parts, m.renderStatus())
	}
	parts = append(parts, m.renderPromptLine())
	return zone.Scan(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

func (m Model) textHeight() int {
	h := m.height - 1
	if m.cfg.UI.ShowStatusBar {
		h--
	}
	if m.showLog {
		h -= logPaneLines + 1
	}
	return max(1, h)
}

func (m Model) tabWidth() int {
	return max(1, m.cfg.UI.TabWidth)
}

func (m Model) gutterWidth() int {
	if !m.cfg.UI.LineNumbers {
		return 0
	}
	return len(strconv.Itoa(m.host.LineCount())) + 1
}

func (m Model) renderText() string {
	mode := m.session.Mode()
	cursors := m.session.Cursors()
	var matches []cursor.Range
	if m.cfg.HLSearch {
		matches = m.session.SearchHighlights(m.ctx)
	}

	h := m.textHeight()
	gutter := m.gutterWidth()
	rows := make([]string, 0, h)
	for l := m.top; l < m.top+h; l++ {
		if l >= m.host.LineCount() {
			rows = append(rows, fillerStyle.Render("~"))
			continue
		}
		var b strings.Builder
		if gutter > 0 {
			b.WriteString(gutterStyle.Render(fmt.Sprintf("%*d ", gutter-1, l+1)))
		}
		b.WriteString(m.renderLine(l, mode, cursors, matches))
		rows = append(rows, ansi.Truncate(b.String(), m.width, ""))
	}
	return strings.Join(rows, "\n")
}

// renderLine draws one buffer line, batching runs of equally decorated cells.
func (m Model) renderLine(l int, mode vim.Mode, cursors []cursor.Range, matches []cursor.Range) string {
	clusters := grapheme.Split(m.host.LineAt(l))
	var b strings.Builder
	var run strings.Builder
	runKind := cellPlain
	flush := func() {
		if run.Len() > 0 {
			b.WriteString(m.styleFor(runKind, mode).Render(run.String()))
			run.Reset()
		}
	}

	for i := 0; i <= len(clusters); i++ {
		kind := m.cellKindAt(cursor.At(l, i), mode, cursors, matches)
		if i == len(clusters) {
			if kind != cellCursor && !(kind == cellSelected && len(clusters) == 0) {
				break
			}
		}
		text := " "
		if i < len(clusters) {
			text = clusters[i]
			if text == "\t" {
				text = strings.Repeat(" ", m.tabWidth())
			}
		}
		if kind != runKind {
			flush()
			runKind = kind
		}
		run.WriteString(text)
	}
	flush()
	return b.String()
}

func (m Model) styleFor(kind cellKind, mode vim.Mode) lipgloss.Style {
	switch kind {
	case cellCursor:
		switch mode.CursorStyle() {
		case vim.CursorLine:
			return lineCursor
		case vim.CursorUnderline:
			return underCursor
		}
		return blockCursor
	case cellSelected:
		return selectionStyle
	case cellMatch:
		return matchStyle
	}
	return textStyle
}

func (m Model) cellKindAt(p cursor.Position, mode vim.Mode, cursors []cursor.Range, matches []cursor.Range) cellKind {
	kind := cellPlain
	for _, c := range cursors {
		if c.Stop == p {
			return cellCursor
		}
		if mode.IsVisual() && inSelection(p, c, mode) {
			kind = cellSelected
		}
	}
	if kind != cellPlain {
		return kind
	}
	for _, r := range matches {
		if r.Start.Line == p.Line && p.Col >= r.Start.Col && p.Col < r.Stop.Col {
			return cellMatch
		}
	}
	return cellPlain
}

// inSelection reports whether p lies in the visual selection c. Visual
// selections include both ends.
func inSelection(p cursor.Position, c cursor.Range, mode vim.Mode) bool {
	start, stop := c.Normalized()
	switch mode {
	case vim.ModeVisualLine:
		return p.Line >= start.Line && p.Line <= stop.Line
	case vim.ModeVisualBlock:
		lo, hi := min(c.Start.Col, c.Stop.Col), max(c.Start.Col, c.Stop.Col)
		return p.Line >= start.Line && p.Line <= stop.Line && p.Col >= lo && p.Col <= hi
	}
	return p.AfterOrEqual(start) && p.BeforeOrEqual(stop)
}

func (m Model) renderStatus() string {
	mode := m.session.Mode()
	left := modeStyle.Render(mode.StatusText())
	if pending := m.session.Pending(); pending != "" {
		left += " " + statusStyle.Render(pending)
	}
	if m.session.IsRecording() {
		left += " " + recordingStyle.Render("recording @"+m.session.MacroRegister())
	}

	name := m.path
	if name == "" {
		name = "[No Name]"
	}
	if m.Modified() {
		name += " [+]"
	}
	pos := ""
	if cursors := m.session.Cursors(); len(cursors) > 0 {
		c := cursors[0].Stop
		pos = fmt.Sprintf("%d:%d", c.Line+1, c.Col+1)
		if len(cursors) > 1 {
			pos += fmt.Sprintf(" (%d cursors)", len(cursors))
		}
	}
	right := statusStyle.Render(name + "  " + pos)

	gap := max(1, m.width-lipgloss.Width(left)-lipgloss.Width(right))
	return ansi.Truncate(left+strings.Repeat(" ", gap)+right, m.width, "")
}

func (m Model) renderPromptLine() string {
	switch {
	case m.promptOpen:
		return ansi.Truncate(m.prompt.View(), m.width, "")
	case m.session.CommandLine() != "":
		return ansi.Truncate(m.session.CommandLine(), m.width, "")
	case m.statusErr:
		return ansi.Truncate(errorStyle.Render(m.status), m.width, "")
	}
	return ansi.Truncate(statusStyle.Render(m.status), m.width, "")
}

func (m Model) renderLog() string {
	start := max(0, len(m.logLines)-logPaneLines)
	lines := make([]string, 0, logPaneLines+1)
	lines = append(lines, logBorderStyle.Render(strings.Repeat("─", m.width)))
	for _, l := range m.logLines[start:] {
		lines = append(lines, ansi.Truncate(logStyle.Render(l), m.width, "…"))
	}
	for len(lines) < logPaneLines+1 {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

// columnAtWidth returns the grapheme column drawn at display column x, or
// the line length when x lies past the end.
func columnAtWidth(line string, x, tabWidth int) int {
	w := 0
	clusters := grapheme.Split(line)
	for i, c := range clusters {
		cw := grapheme.Width(c)
		if c == "\t" {
			cw = tabWidth
		}
		w += cw
		if w > x {
			return i
		}
	}
	return len(clusters)
}
