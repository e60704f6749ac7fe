// Package tui is the terminal host: it shows one session full screen in
// the local terminal, forwarding keys, mouse wheel and size changes.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"

	"termhost/internal/window"
)

// Bridge is the part of the host boundary the terminal UI drives.
type Bridge interface {
	Send(sessionID int64, data []byte) error
	Scroll(sessionID int64, offset float64) error
	ResizeSurface(sessionID int64, width, height int) error
}

const tickInterval = 16 * time.Millisecond

type tickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// exitedMsg reports that the session's process ended.
type exitedMsg struct{}

var (
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#dbd7ca")).Background(lipgloss.Color("#2b2b2b"))
	accentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#4d9375")).Background(lipgloss.Color("#2b2b2b")).Bold(true)
	cursorStyle = lipgloss.NewStyle().Reverse(true)
)

type model struct {
	bridge  Bridge
	win     *screenWindow
	session int64
	cellW   int
	cellH   int
	exited  func() bool

	width  int
	height int
	frame  window.Frame
	notice string
}

func newModel(b Bridge, win *screenWindow, session int64, cellW, cellH int, exited func() bool) model {
	return model{bridge: b, win: win, session: session, cellW: cellW, cellH: cellH, exited: exited}
}

func (m model) Init() tea.Cmd { return tickCmd() }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		rows := max(msg.Height-1, 1) // status bar
		m.win.resize(msg.Width, rows)
		if err := m.bridge.ResizeSurface(m.session, msg.Width*m.cellW, rows*m.cellH); err != nil {
			m.notice = err.Error()
		}
		return m, nil
	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			return m, tea.Quit
		}
		if b := encodeKey(msg); b != nil {
			if err := m.bridge.Send(m.session, b); err != nil {
				m.notice = err.Error()
			}
		}
		return m, nil
	case tea.MouseMsg:
		var rows int
		switch msg.Button {
		case tea.MouseButtonWheelUp:
			rows = 3
		case tea.MouseButtonWheelDown:
			rows = -3
		default:
			return m, nil
		}
		_ = m.bridge.Scroll(m.session, float64(rows*m.cellH))
		return m, nil
	case tickMsg:
		if f, ok := m.win.take(); ok {
			m.frame = f
		}
		if m.exited != nil && m.exited() {
			return m, func() tea.Msg { return exitedMsg{} }
		}
		return m, tickCmd()
	case exitedMsg:
		return m, tea.Quit
	}
	return m, nil
}

func (m model) View() string {
	rows := max(m.height-1, 0)
	lines := make([]string, rows)
	copy(lines, m.frame.Lines)
	if c := m.frame.Cursor; c.Visible && c.Y < rows {
		lines[c.Y] = overlayCursor(lines[c.Y], c.X)
	}
	return strings.Join(lines, "\n") + "\n" + m.statusBar()
}

func (m model) statusBar() string {
	left := accentStyle.Render(" termhost ") + statusStyle.Render(fmt.Sprintf(" session %d ", m.session))
	right := statusStyle.Render(" ctrl+q detach ")
	if m.notice != "" {
		// notices are plain text (error strings); keep them to half the bar
		notice := runewidth.Truncate(m.notice, max(m.width/2, 8), "…")
		right = statusStyle.Render(" "+notice+" ") + right
	}
	gap := max(m.width-lipgloss.Width(left)-lipgloss.Width(right), 0)
	return ansi.Truncate(left+statusStyle.Render(strings.Repeat(" ", gap))+right, max(m.width, 0), "")
}

// overlayCursor draws an inverse-video cursor at column col, padding the
// line when it is shorter.
func overlayCursor(line string, col int) string {
	w := ansi.StringWidth(line)
	if w <= col {
		return line + strings.Repeat(" ", col-w) + cursorStyle.Render(" ")
	}
	before := ansi.Truncate(line, col, "")
	cell := ansi.Strip(ansi.TruncateLeft(ansi.Truncate(line, col+1, ""), col, ""))
	if cell == "" {
		cell = " "
	}
	after := ansi.TruncateLeft(line, col+1, "")
	return before + cursorStyle.Render(cell) + after
}
