package tui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

type keyMap struct {
	Quit key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(key.WithKeys("ctrl+q"), key.WithHelp("ctrl+q", "detach")),
}

// sequences maps named keys to the bytes a terminal sends for them.
var sequences = map[tea.KeyType]string{
	tea.KeyEnter:     "\r",
	tea.KeyTab:       "\t",
	tea.KeyShiftTab:  "\x1b[Z",
	tea.KeyBackspace: "\x7f",
	tea.KeyEsc:       "\x1b",
	tea.KeySpace:     " ",
	tea.KeyUp:        "\x1b[A",
	tea.KeyDown:      "\x1b[B",
	tea.KeyRight:     "\x1b[C",
	tea.KeyLeft:      "\x1b[D",
	tea.KeyHome:      "\x1b[H",
	tea.KeyEnd:       "\x1b[F",
	tea.KeyPgUp:      "\x1b[5~",
	tea.KeyPgDown:    "\x1b[6~",
	tea.KeyDelete:    "\x1b[3~",
	tea.KeyInsert:    "\x1b[2~",
	tea.KeyF1:        "\x1bOP",
	tea.KeyF2:        "\x1bOQ",
	tea.KeyF3:        "\x1bOR",
	tea.KeyF4:        "\x1bOS",
}

// encodeKey converts a key press into input bytes for the session.
func encodeKey(msg tea.KeyMsg) []byte {
	var s string
	switch {
	case msg.Type == tea.KeyRunes:
		s = string(msg.Runes)
	case msg.Type >= tea.KeyCtrlAt && msg.Type <= tea.KeyCtrlUnderscore:
		// control keys are their own byte values (ctrl+a = 0x01, ...)
		s = string(rune(msg.Type))
	default:
		s = sequences[msg.Type]
	}
	if s == "" {
		return nil
	}
	if msg.Alt {
		s = "\x1b" + s
	}
	return []byte(s)
}
