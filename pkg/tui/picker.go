// Package tui implements the grouped connection picker: a Bubble Tea list
// of stored profiles organized by group, with incremental filtering,
// launch-on-enter, and an on-demand credential check.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"sshive/pkg/launcher"
	"sshive/pkg/manager"
)

// Options controls picker behavior.
type Options struct {
	InitialQuery string

	// SkipCredentialCheck launches without the active authentication probe.
	SkipCredentialCheck bool
}

// Run opens the picker over the given store and blocks until the user quits.
func Run(store *manager.Store, l *launcher.Launcher, opts Options) error {
	if store == nil {
		return fmt.Errorf("nil store")
	}
	if l == nil {
		l = launcher.NewLauncher()
	}

	m := newModel(store, l, opts)
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	groupStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	cursorStyle = lipgloss.NewStyle().Reverse(true)
	dimStyle    = lipgloss.NewStyle().Faint(true)
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
)

// row is one rendered line of the tree: either a group header or a
// connection beneath it.
type row struct {
	header bool
	group  string
	conn   *manager.Connection
}

type launchDoneMsg struct {
	name string
	err  error
}

type checkDoneMsg struct {
	name string
	err  error
}

type model struct {
	store *manager.Store
	l     *launcher.Launcher
	opts  Options

	input  textinput.Model
	rows   []row
	cursor int

	status  string
	statusE bool // status is an error
	busy    bool

	width  int
	height int
}

func newModel(store *manager.Store, l *launcher.Launcher, opts Options) *model {
	ti := textinput.New()
	ti.Placeholder = "filter connections"
	ti.Prompt = "> "
	ti.SetValue(opts.InitialQuery)
	ti.Focus()

	m := &model{
		store: store,
		l:     l,
		opts:  opts,
		input: ti,
	}
	m.recomputeRows()
	return m
}

func (m *model) Init() tea.Cmd {
	return textinput.Blink
}

// recomputeRows rebuilds the visible tree from the store and the current
// filter. Matching is per-token AND over name, host, user and group.
func (m *model) recomputeRows() {
	tokens := strings.Fields(strings.ToLower(strings.TrimSpace(m.input.Value())))
	groups := m.store.Groups()

	var rows []row
	for _, g := range m.store.GroupNames() {
		var matched []*manager.Connection
		for _, c := range groups[g] {
			if connectionMatches(c, tokens) {
				matched = append(matched, c)
			}
		}
		if len(matched) == 0 {
			continue
		}
		rows = append(rows, row{header: true, group: g})
		for _, c := range matched {
			rows = append(rows, row{group: g, conn: c})
		}
	}
	m.rows = rows
	m.clampCursor()
}

func connectionMatches(c *manager.Connection, tokens []string) bool {
	if len(tokens) == 0 {
		return true
	}
	hay := strings.ToLower(strings.Join([]string{c.Name, c.Host, c.User, c.Group}, " "))
	for _, t := range tokens {
		if !strings.Contains(hay, t) {
			return false
		}
	}
	return true
}

// clampCursor keeps the cursor on a connection row.
func (m *model) clampCursor() {
	if len(m.rows) == 0 {
		m.cursor = 0
		return
	}
	if m.cursor >= len(m.rows) {
		m.cursor = len(m.rows) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	// Never rest on a header.
	if m.rows[m.cursor].header {
		m.moveCursor(1)
	}
}

// moveCursor advances the cursor by dir, skipping headers.
func (m *model) moveCursor(dir int) {
	if len(m.rows) == 0 {
		return
	}
	i := m.cursor
	for {
		i += dir
		if i < 0 || i >= len(m.rows) {
			return
		}
		if !m.rows[i].header {
			m.cursor = i
			return
		}
	}
}

// current returns the connection under the cursor, or nil.
func (m *model) current() *manager.Connection {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return nil
	}
	return m.rows[m.cursor].conn
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case launchDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.status = fmt.Sprintf("launch %s: %v", msg.name, msg.err)
			m.statusE = true
		} else {
			m.status = fmt.Sprintf("launched %s", msg.name)
			m.statusE = false
		}
		return m, nil

	case checkDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.status = fmt.Sprintf("check %s: %v", msg.name, msg.err)
			m.statusE = true
		} else {
			m.status = fmt.Sprintf("check %s: credentials OK", msg.name)
			m.statusE = false
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "ctrl+p":
			m.moveCursor(-1)
			return m, nil
		case "down", "ctrl+n":
			m.moveCursor(1)
			return m, nil
		case "enter":
			if m.busy {
				return m, nil
			}
			if c := m.current(); c != nil {
				m.busy = true
				m.status = fmt.Sprintf("launching %s...", c.Name)
				m.statusE = false
				return m, m.launchCmd(c)
			}
			return m, nil
		case "ctrl+t":
			if m.busy {
				return m, nil
			}
			if c := m.current(); c != nil {
				m.busy = true
				m.status = fmt.Sprintf("checking %s...", c.Name)
				m.statusE = false
				return m, m.checkCmd(c)
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	before := m.input.Value()
	m.input, cmd = m.input.Update(msg)
	if m.input.Value() != before {
		m.recomputeRows()
	}
	return m, cmd
}

// launchCmd runs preflight and launch off the update loop so the picker
// stays responsive; the bounded waits live in the launcher.
func (m *model) launchCmd(c *manager.Connection) tea.Cmd {
	conn := m.withStoredPassword(c)
	skipCheck := m.opts.SkipCredentialCheck
	l := m.l
	return func() tea.Msg {
		if err := l.Validate(conn); err != nil {
			return launchDoneMsg{name: conn.Name, err: err}
		}
		if !skipCheck {
			if err := l.CheckCredentials(context.Background(), conn); err != nil {
				return launchDoneMsg{name: conn.Name, err: err}
			}
		}
		return launchDoneMsg{name: conn.Name, err: l.Launch(conn)}
	}
}

func (m *model) checkCmd(c *manager.Connection) tea.Cmd {
	conn := m.withStoredPassword(c)
	l := m.l
	return func() tea.Msg {
		if err := l.Validate(conn); err != nil {
			return checkDoneMsg{name: conn.Name, err: err}
		}
		return checkDoneMsg{name: conn.Name, err: l.CheckCredentials(context.Background(), conn)}
	}
}

// withStoredPassword returns a launch-time copy of the record, with the
// password filled from the OS credential store when one is stored. The
// stored record itself is never mutated.
func (m *model) withStoredPassword(c *manager.Connection) *manager.Connection {
	conn := *c
	if conn.Password == "" {
		if secret, err := manager.CredReveal(conn.Name); err == nil {
			conn.Password = secret
		}
	}
	return &conn
}

func (m *model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("sshive"))
	b.WriteString("  ")
	b.WriteString(dimStyle.Render(fmt.Sprintf("%d connections", m.store.Len())))
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")

	if len(m.rows) == 0 {
		b.WriteString(dimStyle.Render("  no matching connections"))
		b.WriteString("\n")
	}

	for i, r := range m.rows {
		if r.header {
			b.WriteString(groupStyle.Render(r.group))
			b.WriteString("\n")
			continue
		}
		line := "  " + r.conn.String()
		if r.conn.KeyPath != "" {
			line += dimStyle.Render("  [key]")
		}
		if i == m.cursor {
			line = cursorStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.status != "" {
		if m.statusE {
			b.WriteString(errStyle.Render(m.status))
		} else {
			b.WriteString(okStyle.Render(m.status))
		}
		b.WriteString("\n")
	}
	b.WriteString(dimStyle.Render("enter: connect  ctrl+t: check credentials  esc: quit"))
	b.WriteString("\n")

	return b.String()
}
