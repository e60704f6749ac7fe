package clipboard

import (
	"context"
	"time"

	sysclip "github.com/atotto/clipboard"
	clog "github.com/charmbracelet/log"

	"termhost/internal/system"
)

// System is the host clipboard.
type System interface {
	ReadAll() (string, error)
	WriteAll(text string) error
}

// OSClipboard is the operating system clipboard (xclip/xsel/wl-clipboard on
// Linux, pbcopy on macOS, the Win32 API on Windows).
type OSClipboard struct{}

func (OSClipboard) ReadAll() (string, error)  { return sysclip.ReadAll() }
func (OSClipboard) WriteAll(text string) error { return sysclip.WriteAll(text) }

// Unsupported reports whether no system clipboard utility is available.
func Unsupported() bool { return sysclip.Unsupported }

// Pump is the host side of the mailbox: it drains copies into the system
// clipboard and answers paste requests from it.
type Pump struct {
	Box      *Mailbox
	System   System
	Interval time.Duration

	log *clog.Logger
}

// NewPump creates a pump polling box every interval.
func NewPump(box *Mailbox, sys System, interval time.Duration) *Pump {
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	return &Pump{Box: box, System: sys, Interval: interval, log: system.Component("clipboard")}
}

// Run polls until ctx is done.
func (p *Pump) Run(ctx context.Context) {
	t := time.NewTicker(p.Interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			p.Step()
		}
	}
}

// Step performs one poll: every queued copy is written to the system
// clipboard, then every pending paste request is answered. Clipboard I/O
// happens outside the mailbox lock.
func (p *Pump) Step() {
	for {
		payload, ok := p.Box.CheckCopy()
		if !ok {
			break
		}
		text, err := Decode(payload)
		if err != nil {
			p.log.Warn("dropping malformed copy", "err", err)
			continue
		}
		if err := p.System.WriteAll(text); err != nil {
			p.log.Warn("system clipboard write failed", "err", err)
		}
	}
	for p.Box.CheckPaste() {
		text, err := p.System.ReadAll()
		if err != nil {
			p.log.Warn("system clipboard read failed", "err", err)
			// answer anyway so the engine is not left waiting
			text = ""
		}
		p.Box.PushPaste(Encode(text))
	}
}
