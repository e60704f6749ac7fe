package engine

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	clog "github.com/charmbracelet/log"
	"github.com/charmbracelet/x/ansi"
	"github.com/charmbracelet/x/vt"

	"termhost/internal/clipboard"
	"termhost/internal/gfx"
	"termhost/internal/system"
	"termhost/internal/window"
)

// Session is one terminal: an emulator fed by a process, plus the
// scrollback transcript and clipboard filter for its output.
type Session struct {
	id  int64
	log *clog.Logger

	mu      sync.Mutex
	emu     *vt.Emulator
	history *transcript
	cols    int
	rows    int
	scroll  int
	accum   float64
	hidden  bool
	proc    Process
	exited  bool
	closed  bool

	filter *clipboard.OSC52Filter
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func newSession(id int64, cols, rows, scrollback int, sink clipboard.Sink, log *clog.Logger) *Session {
	return &Session{
		id:      id,
		log:     system.With(log, "session", id),
		emu:     vt.NewEmulator(cols, rows),
		history: newTranscript(scrollback),
		cols:    cols,
		rows:    rows,
		filter:  clipboard.NewOSC52Filter(sink),
	}
}

// ID returns the session id.
func (s *Session) ID() int64 { return s.id }

// Size returns the terminal size in cells.
func (s *Session) Size() (cols, rows int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cols, s.rows
}

// Started reports whether a process was attached.
func (s *Session) Started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.proc != nil
}

// Exited reports whether the process has ended.
func (s *Session) Exited() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exited
}

// ScrollOffset returns how many rows the view is scrolled back.
func (s *Session) ScrollOffset() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scroll
}

func (s *Session) start(spawn Spawner, shell string) error {
	s.mu.Lock()
	if s.proc != nil {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	cols, rows := s.cols, s.rows
	s.mu.Unlock()

	proc, err := spawn(shell, cols, rows)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.proc != nil || s.closed {
		s.mu.Unlock()
		_ = proc.Close()
		if s.closed {
			return ErrUnknownSession
		}
		return ErrAlreadyStarted
	}
	s.proc = proc
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.mu.Unlock()

	s.wg.Add(3)
	go s.readLoop(proc)
	go s.replyLoop(proc)
	go s.waitLoop(ctx, proc)
	s.log.Info("session started", "shell", shell, "cols", cols, "rows", rows)
	return nil
}

// readLoop feeds process output through the clipboard filter into the
// emulator and the transcript.
func (s *Session) readLoop(proc Process) {
	defer s.wg.Done()
	buf := make([]byte, 32*1024)
	for {
		n, err := proc.Read(buf)
		if n > 0 {
			data := s.filter.Filter(buf[:n])
			if len(data) > 0 {
				s.mu.Lock()
				if !s.closed {
					_, _ = s.emu.Write(data)
					s.history.Write(data)
				}
				s.mu.Unlock()
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrClosedPipe) {
				s.log.Debug("read loop ended", "err", err)
			}
			return
		}
	}
}

// replyLoop forwards the emulator's answers (device attributes, cursor
// reports) back to the process. The emulator blocks on writes until they
// are read here. It ends when close shuts the emulator's input pipe.
func (s *Session) replyLoop(proc Process) {
	defer s.wg.Done()
	buf := make([]byte, 4096)
	for {
		n, err := s.emu.Read(buf)
		if n > 0 {
			if _, werr := proc.Write(buf[:n]); werr != nil {
				s.log.Debug("reply dropped", "err", werr)
			}
		}
		if err != nil {
			return
		}
	}
}

func (s *Session) waitLoop(ctx context.Context, proc Process) {
	defer s.wg.Done()
	err := proc.Wait(ctx)
	s.mu.Lock()
	s.exited = true
	closed := s.closed
	s.mu.Unlock()
	if !closed {
		s.log.Info("session process exited", "err", err)
	}
}

func (s *Session) write(p []byte) error {
	s.mu.Lock()
	proc, exited := s.proc, s.exited
	if proc != nil {
		// typing returns the view to the live screen
		s.scroll, s.accum = 0, 0
	}
	s.mu.Unlock()
	if proc == nil {
		return ErrNotStarted
	}
	if exited {
		return ErrExited
	}
	_, err := proc.Write(p)
	return err
}

func (s *Session) scrollBy(offset float64, cellHeight int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accum += offset
	step := int(s.accum / float64(cellHeight))
	s.accum -= float64(step * cellHeight)
	// the oldest page stays on screen
	s.scroll = min(max(s.scroll+step, 0), max(s.history.Len()-s.rows, 0))
	if s.scroll == 0 {
		s.accum = max(s.accum, 0)
	}
}

func (s *Session) resize(cols, rows int) error {
	s.mu.Lock()
	if cols == s.cols && rows == s.rows {
		s.mu.Unlock()
		return nil
	}
	s.cols, s.rows = cols, rows
	s.emu.Resize(cols, rows)
	proc := s.proc
	s.mu.Unlock()
	if proc != nil {
		return proc.Resize(cols, rows)
	}
	return nil
}

func (s *Session) setHidden(hidden bool) {
	s.mu.Lock()
	s.hidden = hidden
	s.mu.Unlock()
}

// draw renders the live screen, or the transcript when scrolled back, into
// canvas. A hidden session leaves the canvas untouched so the last frame is
// presented again.
func (s *Session) draw(canvas gfx.Canvas) {
	cols, rows := canvas.Bounds()
	s.mu.Lock()
	if s.hidden {
		s.mu.Unlock()
		return
	}
	var lines []string
	cursor := window.Cursor{}
	if s.scroll > 0 {
		lines = s.history.Window(s.scroll, rows)
	} else {
		lines = strings.Split(s.emu.Render(), "\r\n")
		pos := s.emu.CursorPosition()
		cursor = window.Cursor{X: pos.X, Y: pos.Y, Visible: true}
	}
	s.mu.Unlock()

	if len(lines) > rows {
		lines = lines[:rows]
	}
	for i, ln := range lines {
		if ansi.StringWidth(ln) > cols {
			lines[i] = ansi.Truncate(ln, cols, "")
		}
	}
	if cursor.X >= cols || cursor.Y >= rows {
		cursor.Visible = false
	}
	canvas.DrawLines(lines, cursor)
}

// close stops the process and waits for the I/O goroutines.
func (s *Session) close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	proc, cancel := s.proc, s.cancel
	s.mu.Unlock()

	if proc != nil {
		_ = proc.Close()
	}
	// Emulator.Close only flags the emulator; closing the pipe is what
	// unblocks replyLoop.
	if c, ok := s.emu.InputPipe().(io.Closer); ok {
		_ = c.Close()
	}
	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
	_ = s.emu.Close()
}
