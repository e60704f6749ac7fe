package surface

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	clog "github.com/charmbracelet/log"

	"termhost/internal/gfx"
	"termhost/internal/window"
)

// Phase is the life stage of a render loop.
type Phase int32

const (
	PhaseCreated Phase = iota
	PhaseRunning
	PhaseCancelRequested
	PhaseExited
)

func (p Phase) String() string {
	switch p {
	case PhaseCreated:
		return "created"
	case PhaseRunning:
		return "running"
	case PhaseCancelRequested:
		return "cancel-requested"
	case PhaseExited:
		return "exited"
	}
	return fmt.Sprintf("phase(%d)", int32(p))
}

// Drawer renders one frame of a session into the current canvas. It is
// called on the surface's render goroutine.
type Drawer interface {
	Draw(sessionID int64, canvas gfx.Canvas) error
}

// DrawFunc adapts a function to Drawer.
type DrawFunc func(sessionID int64, canvas gfx.Canvas) error

func (f DrawFunc) Draw(sessionID int64, canvas gfx.Canvas) error { return f(sessionID, canvas) }

// Stats counts render loop outcomes.
type Stats struct {
	Frames           uint64
	ActivateFailures uint64
	DrawFailures     uint64
	PresentFailures  uint64
}

// State is one live surface: a native window, the graphics surface and
// context bound to it, and the goroutine rendering into them. The graphics
// resources are touched only by the render goroutine until it has exited.
type State struct {
	sessionID int64
	surfaceID int64

	win     *window.Native
	display gfx.Display
	surface gfx.Surface
	context gfx.Context

	cancel   atomic.Bool
	wake     chan struct{}
	wakeOnce sync.Once
	done     chan struct{}
	phase    atomic.Int32

	frames, activateFails, drawFails, presentFails atomic.Uint64
}

// SessionID returns the engine session the surface renders.
func (s *State) SessionID() int64 { return s.sessionID }

// SurfaceID returns the registry key.
func (s *State) SurfaceID() int64 { return s.surfaceID }

// WindowHandle returns the host handle the native window came from.
func (s *State) WindowHandle() uint64 { return s.win.Handle() }

// Phase returns the render loop's current phase.
func (s *State) Phase() Phase { return Phase(s.phase.Load()) }

// ShouldExit reports whether cancellation was requested.
func (s *State) ShouldExit() bool { return s.cancel.Load() }

// Done is closed when the render loop has exited.
func (s *State) Done() <-chan struct{} { return s.done }

// Stats returns a snapshot of the loop counters.
func (s *State) Stats() Stats {
	return Stats{
		Frames:           s.frames.Load(),
		ActivateFailures: s.activateFails.Load(),
		DrawFailures:     s.drawFails.Load(),
		PresentFailures:  s.presentFails.Load(),
	}
}

// requestCancel sets the cancel flag and cuts short the frame pacing wait.
// The loop still observes the flag only at the top of an iteration.
func (s *State) requestCancel() {
	s.cancel.Store(true)
	s.phase.CompareAndSwap(int32(PhaseRunning), int32(PhaseCancelRequested))
	s.phase.CompareAndSwap(int32(PhaseCreated), int32(PhaseCancelRequested))
	s.wakeOnce.Do(func() { close(s.wake) })
}

// run is the render goroutine. Graphics contexts are thread-affine, so it
// keeps one OS thread for its whole life.
func (s *State) run(drawer Drawer, interval time.Duration, log *clog.Logger) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(s.done)

	s.phase.CompareAndSwap(int32(PhaseCreated), int32(PhaseRunning))
	log.Debug("render loop started")

	var timer *time.Timer
	if interval > 0 {
		timer = time.NewTimer(interval)
		defer timer.Stop()
	}
	var f failures
	for !s.cancel.Load() {
		s.frame(drawer, log, &f)
		if timer == nil {
			continue
		}
		timer.Reset(interval)
		select {
		case <-timer.C:
		case <-s.wake:
		}
	}

	s.phase.Store(int32(PhaseCancelRequested))
	if err := s.display.ReleaseCurrent(s.context); err != nil {
		log.Warn("release context failed", "err", err)
	}
	s.phase.Store(int32(PhaseExited))
	log.Debug("render loop exited", "frames", s.frames.Load())
}

// failures tracks consecutive failures per step so a persistent fault is
// logged once at warn level rather than every frame.
type failures struct {
	activate, draw, present int
}

func report(log *clog.Logger, streak *int, msg string, err error) {
	*streak++
	if *streak == 1 {
		log.Warn(msg, "err", err)
		return
	}
	log.Debug(msg, "err", err, "streak", *streak)
}

func (s *State) frame(drawer Drawer, log *clog.Logger, f *failures) {
	if err := s.display.MakeCurrent(s.surface, s.context); err != nil {
		s.activateFails.Add(1)
		report(log, &f.activate, "make current failed", err)
		return
	}
	f.activate = 0

	canvas := s.context.Canvas()
	if canvas == nil {
		s.activateFails.Add(1)
		report(log, &f.activate, "context has no canvas", gfx.ErrBadContext)
		return
	}
	if err := safeDraw(drawer, s.sessionID, canvas); err != nil {
		s.drawFails.Add(1)
		report(log, &f.draw, "draw failed", err)
	} else {
		f.draw = 0
	}

	if err := s.display.SwapBuffers(s.surface); err != nil {
		s.presentFails.Add(1)
		report(log, &f.present, "present failed", err)
		return
	}
	f.present = 0
	s.frames.Add(1)
}

// safeDraw turns a panic in the draw callback into an error.
func safeDraw(drawer Drawer, sessionID int64, canvas gfx.Canvas) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("draw panicked: %v", r)
		}
	}()
	return drawer.Draw(sessionID, canvas)
}
