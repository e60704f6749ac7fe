package tui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"termhost/internal/host"
)

// Run creates a session, starts its shell and shows it until the user
// detaches or the shell exits.
func Run(ctx context.Context, b *host.Bridge, cellW, cellH int) error {
	win := newScreenWindow(80, 24)
	handle := b.AttachWindow(win)
	defer b.DetachWindow(handle)

	id := b.CreateSession()
	defer func() { _ = b.DestroySession(id) }()
	if err := b.RunSession(id); err != nil {
		return err
	}
	if err := b.CreateSurface(id, id, handle); err != nil {
		return err
	}

	exited := func() bool {
		s, err := b.Engine.Session(id)
		return err != nil || s.Exited()
	}
	p := tea.NewProgram(
		newModel(b, win, id, cellW, cellH, exited),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
