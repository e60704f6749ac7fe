package gfx

import (
	"errors"

	"termhost/internal/window"
)

// Sentinel errors for the gfx package.
var (
	// ErrNoDisplay is returned when the driver cannot open a display.
	ErrNoDisplay = errors.New("gfx: no display")

	// ErrNoConfig is returned when no framebuffer config matches the required attributes.
	ErrNoConfig = errors.New("gfx: no matching config")

	// ErrBadSurface is returned for destroyed or foreign surfaces.
	ErrBadSurface = errors.New("gfx: bad surface")

	// ErrBadContext is returned for destroyed or foreign contexts.
	ErrBadContext = errors.New("gfx: bad context")

	// ErrContextBusy is returned when binding a context that is current elsewhere.
	ErrContextBusy = errors.New("gfx: context current on another surface")

	// ErrContextLost signals a lost context; callers retry on the next frame.
	ErrContextLost = errors.New("gfx: context lost")

	// ErrPresent wraps failures to show a swapped frame.
	ErrPresent = errors.New("gfx: present failed")
)

// Attribs describes a framebuffer configuration. When used as a request,
// every field is a minimum.
type Attribs struct {
	Red, Green, Blue, Alpha int
	Depth, Stencil          int
	SampleBuffers, Samples  int
	Window                  bool
}

// RequiredAttribs is what every surface needs: RGBA8, depth 24, stencil 8,
// 4x multisampling, window-renderable.
var RequiredAttribs = Attribs{
	Red: 8, Green: 8, Blue: 8, Alpha: 8,
	Depth: 24, Stencil: 8,
	SampleBuffers: 1, Samples: 4,
	Window: true,
}

// Satisfies reports whether a meets every minimum in want.
func (a Attribs) Satisfies(want Attribs) bool {
	if want.Window && !a.Window {
		return false
	}
	return a.Red >= want.Red && a.Green >= want.Green && a.Blue >= want.Blue &&
		a.Alpha >= want.Alpha && a.Depth >= want.Depth && a.Stencil >= want.Stencil &&
		a.SampleBuffers >= want.SampleBuffers && a.Samples >= want.Samples
}

// NativeWindow is the window a surface is bound to.
type NativeWindow interface {
	Size() (cols, rows int)
	Present(window.Frame) error
}

// Driver opens displays.
type Driver interface {
	Name() string
	OpenDisplay() (Display, error)
}

// Display creates and binds graphics resources.
type Display interface {
	ChooseConfig(want Attribs) (Config, error)
	CreateWindowSurface(cfg Config, win NativeWindow) (Surface, error)
	CreateContext(cfg Config, clientVersion int) (Context, error)
	// MakeCurrent binds c and s for drawing.
	MakeCurrent(s Surface, c Context) error
	// ReleaseCurrent unbinds c from whatever surface it is current on.
	ReleaseCurrent(c Context) error
	// SwapBuffers publishes the back buffer of s.
	SwapBuffers(s Surface) error
	DestroySurface(s Surface) error
	DestroyContext(c Context) error
	// Terminate releases the display. Only used when initialisation fails.
	Terminate() error
}

// Config is a negotiated framebuffer configuration.
type Config interface {
	Attribs() Attribs
}

// Surface is a drawable bound to a native window.
type Surface interface {
	Size() (cols, rows int)
}

// Context holds drawing state. Canvas returns the draw target of the surface
// the context is current on, or nil when it is not current.
type Context interface {
	Canvas() Canvas
}

// Canvas is the text draw target of a current context.
type Canvas interface {
	Bounds() (cols, rows int)
	// DrawLines replaces the back buffer. Lines beyond the row count are dropped.
	DrawLines(lines []string, cursor window.Cursor)
}
