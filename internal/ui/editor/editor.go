// Package editor is a terminal host for the modal engine: a Bubble Tea model
// that owns an in-memory buffer, feeds it keys and mouse selections, and
// renders the text, cursors and status line.
package editor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	zone "github.com/lrstanley/bubblezone"

	"github.com/zjrosen/modal/internal/config"
	"github.com/zjrosen/modal/internal/cursor"
	"github.com/zjrosen/modal/internal/keys"
	"github.com/zjrosen/modal/internal/log"
	"github.com/zjrosen/modal/internal/pubsub"
	"github.com/zjrosen/modal/internal/tracing"
	"github.com/zjrosen/modal/internal/vim"
)

const (
	textZone     = "editor-text"
	logPaneLines = 6
	maxLogLines  = 200
)

var (
	// ErrNoFileName is reported when writing a buffer that was never named.
	ErrNoFileName = errors.New("no file name")
	// ErrUnsaved is reported when quitting with unwritten changes.
	ErrUnsaved = errors.New("no write since last change (add ! to override)")
)

// Config configures a new editor.
type Config struct {
	// Path is where :w writes. Empty for a scratch buffer.
	Path string
	Text string
	// TrailingNewline is appended to the text on write.
	TrailingNewline bool

	Engine config.Config
	Tracer *tracing.Provider

	// Reload re-reads the configuration after ConfigChanges fires.
	Reload        func() (config.Config, error)
	ConfigChanges <-chan struct{}
}

// configChangedMsg is sent when the watched config file changes.
type configChangedMsg struct{}

// Model is the editor's Bubble Tea model.
type Model struct {
	ctx    context.Context
	cancel context.CancelFunc

	session *vim.Session
	broker  *pubsub.Broker[vim.SessionEvent]
	host    *Host
	keys    keys.KeyMap
	cfg     config.Config

	path            string
	trailingNewline bool
	savedText       string

	width  int
	height int
	top    int

	prompt        textinput.Model
	promptOpen    bool
	promptHistory []string
	historyIdx    int

	anchor    cursor.Position
	status    string
	statusErr bool

	events   *pubsub.ContinuousListener[vim.SessionEvent]
	logs     *log.LogListener
	logLines []string
	showLog  bool

	reload  func() (config.Config, error)
	changes <-chan struct{}
}

// New creates an editor and the engine session behind it.
func New(cfg Config) Model {
	ctx, cancel := context.WithCancel(context.Background())

	host := NewHost(cfg.Text)
	broker := pubsub.NewBroker[vim.SessionEvent]()
	opts := []vim.Option{vim.WithConfig(cfg.Engine), vim.WithBroker(broker)}
	if cfg.Tracer != nil {
		opts = append(opts, vim.WithTracer(cfg.Tracer))
	}
	session := vim.NewSession(host, opts...)

	prompt := textinput.New()
	prompt.Prompt = ":"

	m := Model{
		ctx:             ctx,
		cancel:          cancel,
		session:         session,
		broker:          broker,
		host:            host,
		keys:            keys.DefaultKeyMap(),
		cfg:             cfg.Engine,
		path:            cfg.Path,
		trailingNewline: cfg.TrailingNewline,
		savedText:       host.Text(),
		prompt:          prompt,
		reload:          cfg.Reload,
		changes:         cfg.ConfigChanges,
	}
	m.events = pubsub.NewContinuousListener(ctx, broker,
		pubsub.DispatchFailureEvent, pubsub.RecordingEvent, pubsub.ConfigReloadedEvent)
	m.logs = log.NewListener(ctx)
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.events.Listen()}
	if m.logs != nil {
		cmds = append(cmds, m.logs.Listen())
	}
	if m.changes != nil {
		cmds = append(cmds, waitForConfigChange(m.ctx, m.changes))
	}
	return tea.Batch(cmds...)
}

func waitForConfigChange(ctx context.Context, ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-ch:
			if !ok {
				return nil
			}
			return configChangedMsg{}
		}
	}
}

// Close stops the session and every listener.
func (m Model) Close() {
	m.session.Close()
	m.broker.Close()
	m.cancel()
}

// Session returns the engine session.
func (m Model) Session() *vim.Session {
	return m.session
}

// Host returns the edited buffer.
func (m Model) Host() *Host {
	return m.host
}

// Status returns the status message and whether it reports an error.
func (m Model) Status() (string, bool) {
	return m.status, m.statusErr
}

// Modified reports whether the buffer differs from what was last written.
func (m Model) Modified() bool {
	return m.host.Text() != m.savedText
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.prompt.Width = max(0, msg.Width-2)
		m.scrollToCursor()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		m.handleMouse(msg)
		return m, nil

	case pubsub.Event[vim.SessionEvent]:
		m.handleSessionEvent(msg)
		return m, m.events.Listen()

	case log.LogEvent:
		m.logLines = append(m.logLines, strings.TrimRight(msg.Payload, "\n"))
		if len(m.logLines) > maxLogLines {
			m.logLines = m.logLines[len(m.logLines)-maxLogLines:]
		}
		return m, m.logs.Listen()

	case configChangedMsg:
		m.reloadConfig()
		return m, waitForConfigChange(m.ctx, m.changes)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		return m, tea.Quit
	}
	if m.promptOpen {
		return m.handlePromptKey(msg)
	}
	if key.Matches(msg, m.keys.ToggleLog) && m.logs != nil {
		m.showLog = !m.showLog
		return m, nil
	}

	for _, k := range keyNames(msg) {
		if err := m.session.HandleKeyEvent(m.ctx, k); err != nil {
			m.setError(err)
			break
		}
	}
	cmd := m.drainHost()
	m.scrollToCursor()
	return m, cmd
}

// keyNames translates a key message into engine key names. A paste arrives
// as many runes and is fed one key at a time.
func keyNames(msg tea.KeyMsg) []string {
	switch msg.Type {
	case tea.KeyRunes:
		out := make([]string, 0, len(msg.Runes))
		for _, r := range msg.Runes {
			k := string(r)
			if msg.Alt {
				k = "alt+" + k
			}
			out = append(out, k)
		}
		return out
	case tea.KeySpace:
		return []string{" "}
	case tea.KeyTab:
		return []string{"tab"}
	}
	if s := msg.String(); s != "" {
		return []string{s}
	}
	return nil
}

// drainHost acts on command line requests and bound commands the last key produced.
func (m *Model) drainHost() tea.Cmd {
	var cmd tea.Cmd
	for _, c := range m.host.pendingCommands() {
		if next := m.runHostCommand(c.name, c.args); next != nil {
			cmd = next
		}
	}
	if initial, ok := m.host.pendingPrompt(); ok {
		m.openPrompt(initial)
	}
	return cmd
}

func (m *Model) runHostCommand(name string, args []string) tea.Cmd {
	line := strings.TrimSpace(name + " " + strings.Join(args, " "))
	return m.runEx(line)
}

func (m *Model) openPrompt(initial string) {
	m.promptOpen = true
	m.historyIdx = len(m.promptHistory)
	m.prompt.SetValue(initial)
	m.prompt.CursorEnd()
	m.prompt.Focus()
}

func (m *Model) closePrompt() {
	m.promptOpen = false
	m.prompt.Blur()
	m.prompt.SetValue("")
}

func (m Model) handlePromptKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.closePrompt()
		return m, nil
	case key.Matches(msg, m.keys.Submit):
		line := m.prompt.Value()
		m.closePrompt()
		if strings.TrimSpace(line) != "" {
			m.promptHistory = append(m.promptHistory, line)
		}
		cmd := m.runEx(line)
		m.scrollToCursor()
		return m, cmd
	case key.Matches(msg, m.keys.HistoryUp):
		m.walkPromptHistory(-1)
		return m, nil
	case key.Matches(msg, m.keys.HistoryDown):
		m.walkPromptHistory(1)
		return m, nil
	case msg.Type == tea.KeyBackspace && m.prompt.Value() == "":
		m.closePrompt()
		return m, nil
	}
	var cmd tea.Cmd
	m.prompt, cmd = m.prompt.Update(msg)
	return m, cmd
}

func (m *Model) walkPromptHistory(step int) {
	if len(m.promptHistory) == 0 {
		return
	}
	m.historyIdx = max(0, min(m.historyIdx+step, len(m.promptHistory)))
	if m.historyIdx == len(m.promptHistory) {
		m.prompt.SetValue("")
		return
	}
	m.prompt.SetValue(m.promptHistory[m.historyIdx])
	m.prompt.CursorEnd()
}

// runEx executes a command line: :w [path], :q, :q!, :wq, :x or a line number.
// A leading '<,'> range is accepted and ignored.
func (m *Model) runEx(line string) tea.Cmd {
	line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "'<,'>"))
	if line == "" {
		return nil
	}
	if n, err := strconv.Atoi(line); err == nil {
		m.gotoLine(n)
		return nil
	}

	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	switch name {
	case "w", "write", "save":
		m.write(arg)
		return nil
	case "q", "quit":
		if m.Modified() {
			m.setError(ErrUnsaved)
			return nil
		}
		return tea.Quit
	case "q!", "quit!":
		return tea.Quit
	case "wq", "x", "xit":
		if !m.write(arg) {
			return nil
		}
		return tea.Quit
	}
	m.setError(fmt.Errorf("not an editor command: %s", line))
	return nil
}

func (m *Model) write(path string) bool {
	if path != "" {
		m.path = path
	}
	if m.path == "" {
		m.setError(ErrNoFileName)
		return false
	}
	text := m.host.Text()
	data := text
	if m.trailingNewline {
		data += "\n"
	}
	if err := os.WriteFile(m.path, []byte(data), 0o644); err != nil {
		m.setError(fmt.Errorf("writing %s: %w", m.path, err))
		return false
	}
	m.savedText = text
	m.setStatus(fmt.Sprintf("%q %dL written", m.path, m.host.LineCount()))
	log.Info(log.CatUI, "buffer written", "path", m.path, "lines", m.host.LineCount())
	return true
}

func (m *Model) gotoLine(n int) {
	line := max(0, min(n-1, m.host.LineCount()-1))
	p := cursor.At(line, firstNonBlank(m.host.LineAt(line)))
	if err := m.session.HandleSelectionChange(m.ctx, []cursor.Range{cursor.Collapsed(p)}); err != nil {
		m.setError(err)
	}
}

func (m *Model) handleSessionEvent(ev pubsub.Event[vim.SessionEvent]) {
	switch ev.Type {
	case pubsub.DispatchFailureEvent:
		if ev.Payload.Err != nil {
			m.setError(ev.Payload.Err)
		}
	case pubsub.RecordingEvent:
		if ev.Payload.Recording {
			m.setStatus("recording @" + ev.Payload.MacroRegister)
		} else {
			m.setStatus("")
		}
	case pubsub.ConfigReloadedEvent:
		m.setStatus("config reloaded")
	}
}

func (m *Model) reloadConfig() {
	if m.reload == nil {
		return
	}
	cfg, err := m.reload()
	if err == nil {
		err = config.Validate(cfg)
	}
	if err != nil {
		log.ErrorErr(log.CatConfig, "config reload failed", err)
		m.setError(fmt.Errorf("config reload: %w", err))
		return
	}
	if err := m.session.ReloadRemappers(m.ctx, cfg); err != nil {
		m.setError(err)
		return
	}
	m.cfg = cfg
}

func (m *Model) handleMouse(msg tea.MouseMsg) {
	switch {
	case msg.Button == tea.MouseButtonWheelUp:
		m.top = max(0, m.top-3)
		return
	case msg.Button == tea.MouseButtonWheelDown:
		m.top = max(0, min(m.top+3, m.host.LineCount()-1))
		return
	case msg.Button != tea.MouseButtonLeft:
		return
	}

	p, ok := m.positionAt(msg)
	if !ok {
		return
	}
	var sel cursor.Range
	switch msg.Action {
	case tea.MouseActionPress:
		m.anchor = p
		sel = cursor.Collapsed(p)
	case tea.MouseActionMotion:
		sel = cursor.NewRange(m.anchor, p)
	default:
		return
	}
	if err := m.session.HandleSelectionChange(m.ctx, []cursor.Range{sel}); err != nil {
		m.setError(err)
	}
}

// positionAt maps a click inside the text area onto a buffer position.
func (m Model) positionAt(msg tea.MouseMsg) (cursor.Position, bool) {
	z := zone.Get(textZone)
	if z == nil || !z.InBounds(msg) {
		return cursor.Position{}, false
	}
	x, y := z.Pos(msg)
	line := min(m.top+y, m.host.LineCount()-1)
	x -= m.gutterWidth()
	if x < 0 {
		x = 0
	}
	return cursor.At(line, columnAtWidth(m.host.LineAt(line), x, m.tabWidth())), true
}

func (m *Model) scrollToCursor() {
	cursors := m.session.Cursors()
	if len(cursors) == 0 {
		return
	}
	line := cursors[0].Stop.Line
	h := m.textHeight()
	switch {
	case line < m.top:
		m.top = line
	case h > 0 && line >= m.top+h:
		m.top = line - h + 1
	}
}

func (m *Model) setStatus(s string) {
	m.status, m.statusErr = s, false
}

func (m *Model) setError(err error) {
	m.status, m.statusErr = err.Error(), true
}

func firstNonBlank(line string) int {
	return len(line) - len(strings.TrimLeft(line, " \t"))
}
