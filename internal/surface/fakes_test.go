package surface

import (
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"termhost/internal/gfx"
	"termhost/internal/window"
)

// scriptedDriver wraps the software driver and injects failures.
type scriptedDriver struct {
	inner gfx.Driver

	failCreateSurface error
	failCreateContext error
	// failMakeCurrent and failSwap fail that many calls before succeeding.
	failMakeCurrent atomic.Int32
	failSwap        atomic.Int32

	mu    sync.Mutex
	calls []string
}

func newScriptedDriver() *scriptedDriver {
	return &scriptedDriver{inner: gfx.NewSoft(gfx.SoftOptions{})}
}

func (d *scriptedDriver) Name() string { return "scripted" }

func (d *scriptedDriver) OpenDisplay() (gfx.Display, error) {
	inner, err := d.inner.OpenDisplay()
	if err != nil {
		return nil, err
	}
	return &scriptedDisplay{Display: inner, d: d}, nil
}

func (d *scriptedDriver) record(call string) {
	d.mu.Lock()
	d.calls = append(d.calls, call)
	d.mu.Unlock()
}

// allCalls returns every recorded call.
func (d *scriptedDriver) allCalls() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.calls...)
}

// teardownCalls returns the recorded destroy calls.
func (d *scriptedDriver) teardownCalls() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []string
	for _, c := range d.calls {
		if strings.HasPrefix(c, "destroy-") {
			out = append(out, c)
		}
	}
	return out
}

type scriptedDisplay struct {
	gfx.Display
	d *scriptedDriver
}

func (s *scriptedDisplay) CreateWindowSurface(cfg gfx.Config, win gfx.NativeWindow) (gfx.Surface, error) {
	if s.d.failCreateSurface != nil {
		return nil, s.d.failCreateSurface
	}
	return s.Display.CreateWindowSurface(cfg, win)
}

func (s *scriptedDisplay) CreateContext(cfg gfx.Config, v int) (gfx.Context, error) {
	if s.d.failCreateContext != nil {
		return nil, s.d.failCreateContext
	}
	return s.Display.CreateContext(cfg, v)
}

func (s *scriptedDisplay) MakeCurrent(surf gfx.Surface, c gfx.Context) error {
	if s.d.failMakeCurrent.Add(-1) >= 0 {
		return gfx.ErrContextLost
	}
	return s.Display.MakeCurrent(surf, c)
}

func (s *scriptedDisplay) SwapBuffers(surf gfx.Surface) error {
	if s.d.failSwap.Add(-1) >= 0 {
		return gfx.ErrPresent
	}
	return s.Display.SwapBuffers(surf)
}

func (s *scriptedDisplay) ReleaseCurrent(c gfx.Context) error {
	s.d.record("release-current")
	return s.Display.ReleaseCurrent(c)
}

func (s *scriptedDisplay) DestroySurface(surf gfx.Surface) error {
	s.d.record("destroy-surface")
	return s.Display.DestroySurface(surf)
}

func (s *scriptedDisplay) DestroyContext(c gfx.Context) error {
	s.d.record("destroy-context")
	return s.Display.DestroyContext(c)
}

// screen is a window host that counts presented frames and logs window
// releases into the driver's call record.
type screen struct {
	mu       sync.Mutex
	frames   []window.Frame
	released func(string)
}

func (s *screen) Released(uint64) {
	if s.released != nil {
		s.released("destroy-window")
	}
}

func (s *screen) Size() (int, int) { return 10, 3 }

func (s *screen) Present(f window.Frame) error {
	s.mu.Lock()
	s.frames = append(s.frames, f)
	s.mu.Unlock()
	return nil
}

func (s *screen) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}

func (s *screen) last() window.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.frames) == 0 {
		return window.Frame{}
	}
	return s.frames[len(s.frames)-1]
}

// countingDrawer writes the session id and counts calls.
type countingDrawer struct {
	draws atomic.Int64
}

func (c *countingDrawer) Draw(sessionID int64, canvas gfx.Canvas) error {
	c.draws.Add(1)
	canvas.DrawLines([]string{"session", string(rune('0' + sessionID%10))}, window.Cursor{})
	return nil
}

type resizeCall struct {
	session       int64
	width, height int
}

type fakeEngine struct {
	mu    sync.Mutex
	calls []resizeCall
}

func (e *fakeEngine) Resize(id int64, w, h int) error {
	e.mu.Lock()
	e.calls = append(e.calls, resizeCall{id, w, h})
	e.mu.Unlock()
	return nil
}

type fixture struct {
	m      *Manager
	driver *scriptedDriver
	shared *gfx.Shared
	table  *window.Table
	screen *screen
	handle uint64
	drawer *countingDrawer
	engine *fakeEngine
}

func newFixture(t *testing.T, mod func(*Options)) *fixture {
	t.Helper()
	f := &fixture{
		driver: newScriptedDriver(),
		table:  window.NewTable(),
		screen: &screen{},
		drawer: &countingDrawer{},
		engine: &fakeEngine{},
	}
	f.screen.released = f.driver.record
	f.shared = gfx.NewShared(f.driver)
	f.handle = f.table.Attach(f.screen)
	opts := Options{
		Shared:        f.shared,
		Windows:       f.table,
		Drawer:        f.drawer,
		Engine:        f.engine,
		FrameInterval: time.Millisecond,
	}
	if mod != nil {
		mod(&opts)
	}
	f.m = NewManager(opts)
	t.Cleanup(f.m.Close)
	return f
}

var errInjected = errors.New("injected")
