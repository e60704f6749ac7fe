// Package engine is the terminal engine behind the surfaces: a directory
// of sessions, each a vt emulator driven by a shell on a pseudo terminal.
// Its Draw method is the per-frame callback the render loops invoke.
package engine

import (
	"context"
	"sync"
	"time"

	clog "github.com/charmbracelet/log"

	"termhost/internal/clipboard"
	"termhost/internal/gfx"
	"termhost/internal/system"
)

// Options configures a Directory.
type Options struct {
	Shell      string
	CellWidth  int
	CellHeight int
	// Scrollback is the number of transcript lines kept per session.
	Scrollback int
	// Cols and Rows size new sessions until the first resize.
	Cols int
	Rows int
	// Mailbox receives OSC 52 copies and paste requests. Required.
	Mailbox *clipboard.Mailbox
	// Spawn starts session processes; SpawnShell when nil.
	Spawn Spawner
}

// Directory is the session table. It is safe for concurrent use.
type Directory struct {
	opts Options
	box  *clipboard.Mailbox
	log  *clog.Logger

	mu       sync.Mutex
	next     int64
	sessions map[int64]*Session
	// waiting lists sessions with an unanswered paste request, oldest first.
	waiting []int64
}

// NewDirectory creates an empty directory.
func NewDirectory(opts Options) *Directory {
	if opts.CellWidth <= 0 {
		opts.CellWidth = 8
	}
	if opts.CellHeight <= 0 {
		opts.CellHeight = 16
	}
	if opts.Cols <= 0 {
		opts.Cols = 80
	}
	if opts.Rows <= 0 {
		opts.Rows = 24
	}
	if opts.Shell == "" {
		opts.Shell = "/bin/sh"
	}
	if opts.Spawn == nil {
		opts.Spawn = SpawnShell
	}
	if opts.Mailbox == nil {
		opts.Mailbox = clipboard.NewMailbox(clipboard.DefaultLimit)
	}
	return &Directory{
		opts:     opts,
		box:      opts.Mailbox,
		log:      system.Component("engine"),
		sessions: make(map[int64]*Session),
	}
}

// CreateSession allocates a session and returns its id. Ids start at 1 and
// are never reused.
func (d *Directory) CreateSession() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.next++
	id := d.next
	d.sessions[id] = newSession(id, d.opts.Cols, d.opts.Rows, d.opts.Scrollback, sessionSink{d: d, id: id}, d.log)
	d.log.Debug("session created", "session", id)
	return id
}

// DestroySession stops the session's process and forgets it.
func (d *Directory) DestroySession(id int64) error {
	d.mu.Lock()
	s, ok := d.sessions[id]
	delete(d.sessions, id)
	d.mu.Unlock()
	if !ok {
		return ErrUnknownSession
	}
	s.close()
	d.log.Debug("session destroyed", "session", id)
	return nil
}

// Session returns a live session.
func (d *Directory) Session(id int64) (*Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.sessions[id]
	if !ok {
		return nil, ErrUnknownSession
	}
	return s, nil
}

// Len returns the number of live sessions.
func (d *Directory) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.sessions)
}

// Start spawns the session's shell and begins its I/O.
func (d *Directory) Start(id int64) error {
	s, err := d.Session(id)
	if err != nil {
		return err
	}
	return s.start(d.opts.Spawn, d.opts.Shell)
}

// SendData writes input bytes to the session's process.
func (d *Directory) SendData(id int64, p []byte) error {
	s, err := d.Session(id)
	if err != nil {
		return err
	}
	return s.write(p)
}

// ScrollBy moves the view by a pixel offset, positive meaning back in
// history. Offsets accumulate until they amount to whole rows.
func (d *Directory) ScrollBy(id int64, offset float64) error {
	s, err := d.Session(id)
	if err != nil {
		return err
	}
	s.scrollBy(offset, d.opts.CellHeight)
	return nil
}

// Resize sets the session size from a pixel size using the cell metrics.
func (d *Directory) Resize(id int64, width, height int) error {
	s, err := d.Session(id)
	if err != nil {
		return err
	}
	cols := max(width/d.opts.CellWidth, 1)
	rows := max(height/d.opts.CellHeight, 1)
	return s.resize(cols, rows)
}

// OnForeground resumes rendering of a session.
func (d *Directory) OnForeground(id int64) error {
	s, err := d.Session(id)
	if err != nil {
		return err
	}
	s.setHidden(false)
	return nil
}

// OnBackground freezes a session's frames; its surfaces keep presenting
// the last one.
func (d *Directory) OnBackground(id int64) error {
	s, err := d.Session(id)
	if err != nil {
		return err
	}
	s.setHidden(true)
	return nil
}

// Draw renders session id into canvas. It is called from render goroutines.
func (d *Directory) Draw(id int64, canvas gfx.Canvas) error {
	s, err := d.Session(id)
	if err != nil {
		return err
	}
	s.draw(canvas)
	return nil
}

// DeliverPastes writes every pasted text waiting in the mailbox to the
// session that asked for it, as an OSC 52 reply.
func (d *Directory) DeliverPastes() {
	for {
		payload, ok := d.box.GetPaste()
		if !ok {
			return
		}
		d.mu.Lock()
		var id int64
		if len(d.waiting) > 0 {
			id = d.waiting[0]
			d.waiting = d.waiting[1:]
		}
		s := d.sessions[id]
		d.mu.Unlock()
		if s == nil {
			d.log.Debug("paste without a live requester dropped", "session", id)
			continue
		}
		reply, err := clipboard.Reply(payload)
		if err != nil {
			d.log.Warn("bad paste payload", "session", id, "err", err)
			continue
		}
		if err := s.write([]byte(reply)); err != nil {
			d.log.Warn("paste delivery failed", "session", id, "err", err)
		}
	}
}

// Run delivers pastes every interval until ctx is done.
func (d *Directory) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			d.DeliverPastes()
		}
	}
}

// Close destroys every session.
func (d *Directory) Close() {
	d.mu.Lock()
	all := make([]*Session, 0, len(d.sessions))
	for id, s := range d.sessions {
		all = append(all, s)
		delete(d.sessions, id)
	}
	d.waiting = nil
	d.mu.Unlock()
	for _, s := range all {
		s.close()
	}
}

// sessionSink routes a session's clipboard traffic into the mailbox and
// remembers which session asked for a paste.
type sessionSink struct {
	d  *Directory
	id int64
}

func (k sessionSink) Copy(text string) { k.d.box.Copy(text) }

func (k sessionSink) RequestPaste() {
	k.d.mu.Lock()
	k.d.waiting = append(k.d.waiting, k.id)
	k.d.mu.Unlock()
	k.d.box.RequestPaste()
}
