package settings

import (
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"termhost/internal/config"
)

// Run launches an interactive form editing config.yaml and saves the
// result on submit.
func Run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	p, err := config.Path()
	if err != nil {
		return err
	}
	f := newFields(cfg)

	// Light theme tweaks inspired by freeze/interactive.go
	green := lipgloss.Color("#03BF87")
	theme := huh.ThemeCharm()
	theme.FieldSeparator = lipgloss.NewStyle()
	theme.Blurred.Title = theme.Blurred.Title.Width(18).Foreground(lipgloss.Color("7"))
	theme.Focused.Title = theme.Focused.Title.Width(18).Foreground(green).Bold(true)
	theme.Blurred.SelectedOption = theme.Blurred.SelectedOption.Foreground(lipgloss.Color("243"))
	theme.Focused.SelectedOption = lipgloss.NewStyle().Foreground(green)
	theme.Focused.Base.BorderForeground(green)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewNote().Title("Settings").Description("Edit " + p),
			huh.NewSelect[string]().
				Title("Log level").
				Options(huh.NewOptions("debug", "info", "warn", "error")...).
				Value(&f.logLevel),
			huh.NewInput().Title("Render FPS").Value(&f.fps).Validate(intIn(1, 240)),
			huh.NewInput().Title("Join timeout").Description("0s waits forever").Value(&f.joinTimeout).Validate(duration),
			huh.NewInput().Title("Shell").Value(&f.shell),
			huh.NewInput().Title("Scrollback").Value(&f.scrollback).Validate(intIn(0, 1_000_000)),
		),
		huh.NewGroup(
			huh.NewConfirm().Title("System clipboard").Value(&f.clipboardSystem),
			huh.NewInput().Title("Clipboard limit").Description("0 is unbounded").Value(&f.clipboardLimit).Validate(intIn(0, 1_000_000)),
			huh.NewInput().Title("Web UI address").Value(&f.addr),
		),
	).WithTheme(theme).WithWidth(60)

	if err := form.Run(); err != nil {
		return err // form canceled or failed
	}

	out, err := f.apply(cfg)
	if err != nil {
		return err
	}
	if err := config.Save(out); err != nil {
		return err
	}
	fmt.Printf("\n✓ saved %s\n\n", p)
	return nil
}

// fields holds the form values as strings, the way huh inputs edit them.
type fields struct {
	logLevel        string
	fps             string
	joinTimeout     string
	shell           string
	scrollback      string
	clipboardSystem bool
	clipboardLimit  string
	addr            string
}

func newFields(c config.Config) *fields {
	return &fields{
		logLevel:        c.LogLevel,
		fps:             strconv.Itoa(c.Render.FPS),
		joinTimeout:     c.Render.JoinTimeout.String(),
		shell:           c.Engine.Shell,
		scrollback:      strconv.Itoa(c.Engine.Scrollback),
		clipboardSystem: c.Clipboard.System,
		clipboardLimit:  strconv.Itoa(c.Clipboard.Limit),
		addr:            c.WebUI.Addr,
	}
}

// apply copies the edited values onto base and validates the result.
func (f *fields) apply(base config.Config) (config.Config, error) {
	c := base
	var err error
	c.LogLevel = f.logLevel
	if c.Render.FPS, err = strconv.Atoi(f.fps); err != nil {
		return base, fmt.Errorf("fps: %w", err)
	}
	if c.Render.JoinTimeout, err = time.ParseDuration(f.joinTimeout); err != nil {
		return base, fmt.Errorf("join timeout: %w", err)
	}
	c.Engine.Shell = f.shell
	if c.Engine.Scrollback, err = strconv.Atoi(f.scrollback); err != nil {
		return base, fmt.Errorf("scrollback: %w", err)
	}
	c.Clipboard.System = f.clipboardSystem
	if c.Clipboard.Limit, err = strconv.Atoi(f.clipboardLimit); err != nil {
		return base, fmt.Errorf("clipboard limit: %w", err)
	}
	c.WebUI.Addr = f.addr
	if err := c.Validate(); err != nil {
		return base, err
	}
	return c, nil
}

func intIn(lo, hi int) func(string) error {
	return func(s string) error {
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("not a number")
		}
		if n < lo || n > hi {
			return fmt.Errorf("must be between %d and %d", lo, hi)
		}
		return nil
	}
}

func duration(s string) error {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("use a duration like 2s")
	}
	if d < 0 {
		return fmt.Errorf("must not be negative")
	}
	return nil
}
