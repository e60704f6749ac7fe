// Package host is the boundary between a host application and the
// terminal core. Every operation takes and returns primitives only: ids,
// integers, byte slices and base64 text.
package host

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"sync"

	clog "github.com/charmbracelet/log"

	"termhost/internal/clipboard"
	"termhost/internal/config"
	"termhost/internal/engine"
	"termhost/internal/gfx"
	"termhost/internal/surface"
	"termhost/internal/system"
	"termhost/internal/window"
)

// ErrInvalidArgument is returned for arguments rejected before they reach
// the engine.
var ErrInvalidArgument = errors.New("host: invalid argument")

// Options selects the collaborators that differ between hosts and tests.
type Options struct {
	// Driver renders surfaces; the software driver when nil.
	Driver gfx.Driver
	// Spawn starts session processes; a shell on a pty when nil.
	Spawn engine.Spawner
	// SystemClipboard runs a pump between the mailbox and the OS clipboard.
	// Hosts that answer clipboard traffic themselves leave it off.
	SystemClipboard bool
	// Clipboard overrides the OS clipboard used by the pump.
	Clipboard clipboard.System
}

// Bridge owns the display singleton, the window table, the clipboard
// mailbox, the session directory and the surface registry.
type Bridge struct {
	cfg  config.Config
	opts Options
	log  *clog.Logger

	Shared   *gfx.Shared
	Windows  *window.Table
	Mailbox  *clipboard.Mailbox
	Engine   *engine.Directory
	Surfaces *surface.Manager

	startOnce sync.Once
	closeOnce sync.Once
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// New builds a bridge from cfg. Call Start to run the clipboard loops and
// Close to release everything.
func New(cfg config.Config, opts Options) *Bridge {
	if opts.Driver == nil {
		opts.Driver = gfx.NewSoft(gfx.SoftOptions{})
	}
	if opts.Clipboard == nil {
		opts.Clipboard = clipboard.OSClipboard{}
	}
	b := &Bridge{
		cfg:     cfg,
		opts:    opts,
		log:     system.Component("host"),
		Shared:  gfx.NewShared(opts.Driver),
		Windows: window.NewTable(),
		Mailbox: clipboard.NewMailbox(cfg.Clipboard.Limit),
	}
	b.Engine = engine.NewDirectory(engine.Options{
		Shell:      cfg.Engine.Shell,
		CellWidth:  cfg.Engine.CellWidth,
		CellHeight: cfg.Engine.CellHeight,
		Scrollback: cfg.Engine.Scrollback,
		Mailbox:    b.Mailbox,
		Spawn:      opts.Spawn,
	})
	b.Surfaces = surface.NewManager(surface.Options{
		Shared:        b.Shared,
		Windows:       b.Windows,
		Drawer:        b.Engine,
		Engine:        b.Engine,
		FrameInterval: cfg.FrameInterval(),
		JoinTimeout:   cfg.Render.JoinTimeout,
		ClientVersion: cfg.Render.ClientVersion,
	})
	return b
}

// Start runs paste delivery and, when enabled, the system clipboard pump
// until ctx is done or Close is called.
func (b *Bridge) Start(ctx context.Context) {
	b.startOnce.Do(func() {
		ctx, b.cancel = context.WithCancel(ctx)
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			b.Engine.Run(ctx, b.cfg.Clipboard.Poll)
		}()
		if !b.opts.SystemClipboard {
			return
		}
		if _, ok := b.opts.Clipboard.(clipboard.OSClipboard); ok && clipboard.Unsupported() {
			b.log.Warn("no system clipboard utility found; clipboard sync disabled")
			return
		}
		pump := clipboard.NewPump(b.Mailbox, b.opts.Clipboard, b.cfg.Clipboard.Poll)
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			pump.Run(ctx)
		}()
	})
}

// Close destroys every surface, then every session, and stops the
// clipboard loops.
func (b *Bridge) Close() {
	b.closeOnce.Do(func() {
		b.Surfaces.Close()
		b.Engine.Close()
		if b.cancel != nil {
			b.cancel()
		}
		b.wg.Wait()
	})
}

// AttachWindow registers a host window and returns its handle.
func (b *Bridge) AttachWindow(h window.Host) uint64 { return b.Windows.Attach(h) }

// DetachWindow forgets a window handle.
func (b *Bridge) DetachWindow(handle uint64) { b.Windows.Detach(handle) }

// CreateSession returns a new session id.
func (b *Bridge) CreateSession() int64 { return b.Engine.CreateSession() }

// DestroySession destroys the session's surfaces, then the session.
func (b *Bridge) DestroySession(sessionID int64) error {
	for _, id := range b.Surfaces.IDs() {
		if st, ok := b.Surfaces.Get(id); ok && st.SessionID() == sessionID {
			b.Surfaces.DestroySurface(id)
		}
	}
	return b.Engine.DestroySession(sessionID)
}

// RunSession starts the session's shell.
func (b *Bridge) RunSession(sessionID int64) error { return b.Engine.Start(sessionID) }

// CreateSurface starts rendering sessionID into the window behind handle.
func (b *Bridge) CreateSurface(sessionID, surfaceID int64, handle uint64) error {
	if _, err := b.Engine.Session(sessionID); err != nil {
		return err
	}
	return b.Surfaces.CreateSurface(sessionID, surfaceID, handle)
}

// DestroySurface stops a surface; unknown ids are ignored.
func (b *Bridge) DestroySurface(surfaceID int64) { b.Surfaces.DestroySurface(surfaceID) }

// ResizeSurface resizes a session to a pixel size.
func (b *Bridge) ResizeSurface(sessionID int64, width, height int) error {
	return b.Surfaces.ResizeSurface(sessionID, width, height)
}

// Send writes input to a session. Empty input is a no-op.
func (b *Bridge) Send(sessionID int64, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	return b.Engine.SendData(sessionID, data)
}

// Scroll moves a session's view by a pixel offset.
func (b *Bridge) Scroll(sessionID int64, offset float64) error {
	if math.IsNaN(offset) || math.IsInf(offset, 0) {
		return fmt.Errorf("%w: scroll offset %v", ErrInvalidArgument, offset)
	}
	return b.Engine.ScrollBy(sessionID, offset)
}

// CheckCopy pops the oldest copied text (base64).
func (b *Bridge) CheckCopy() (string, bool) { return b.Mailbox.CheckCopy() }

// CheckPaste reports whether the engine is waiting for clipboard contents.
func (b *Bridge) CheckPaste() bool { return b.Mailbox.CheckPaste() }

// PushPaste hands base64 clipboard contents to the engine.
func (b *Bridge) PushPaste(text string) error {
	if _, err := base64.StdEncoding.DecodeString(text); err != nil {
		return fmt.Errorf("%w: paste is not base64", ErrInvalidArgument)
	}
	b.Mailbox.PushPaste(text)
	return nil
}

// OnForeground resumes a session's rendering.
func (b *Bridge) OnForeground(sessionID int64) error { return b.Engine.OnForeground(sessionID) }

// OnBackground freezes a session's rendering.
func (b *Bridge) OnBackground(sessionID int64) error { return b.Engine.OnBackground(sessionID) }
