package gfx

import (
	"fmt"
	"sync"
	"sync/atomic"

	"termhost/internal/window"
)

// SoftOptions configures the software driver.
type SoftOptions struct {
	// Configs lists the framebuffer configs the display offers, best first.
	// Empty means a single config that exactly meets RequiredAttribs.
	Configs []Attribs
	// OpenErr makes OpenDisplay fail; used to exercise setup failures.
	OpenErr error
}

// Soft is a software driver. Its surfaces hold a text back buffer sized in
// cells from the native window; SwapBuffers presents it to the window.
type Soft struct {
	opts   SoftOptions
	opened atomic.Int32
}

// NewSoft creates a software driver.
func NewSoft(opts SoftOptions) *Soft {
	if len(opts.Configs) == 0 {
		opts.Configs = []Attribs{RequiredAttribs}
	}
	return &Soft{opts: opts}
}

// Name implements Driver.
func (d *Soft) Name() string { return "soft" }

// Opened returns how many displays were opened.
func (d *Soft) Opened() int { return int(d.opened.Load()) }

// OpenDisplay implements Driver.
func (d *Soft) OpenDisplay() (Display, error) {
	if d.opts.OpenErr != nil {
		return nil, d.opts.OpenErr
	}
	d.opened.Add(1)
	configs := make([]Attribs, len(d.opts.Configs))
	copy(configs, d.opts.Configs)
	return &softDisplay{configs: configs}, nil
}

type softDisplay struct {
	// mu guards bindings between contexts and surfaces.
	mu         sync.Mutex
	configs    []Attribs
	terminated bool
}

type softConfig struct {
	d     *softDisplay
	attrs Attribs
}

func (c *softConfig) Attribs() Attribs { return c.attrs }

type softSurface struct {
	d   *softDisplay
	win NativeWindow

	mu        sync.Mutex
	back      window.Frame
	seq       uint64
	destroyed bool

	// ctx is guarded by d.mu
	ctx *softContext
}

type softContext struct {
	d       *softDisplay
	version int

	// guarded by d.mu
	surface   *softSurface
	destroyed bool
}

func (d *softDisplay) ChooseConfig(want Attribs) (Config, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, a := range d.configs {
		if a.Satisfies(want) {
			return &softConfig{d: d, attrs: a}, nil
		}
	}
	return nil, ErrNoConfig
}

func (d *softDisplay) CreateWindowSurface(cfg Config, win NativeWindow) (Surface, error) {
	sc, ok := cfg.(*softConfig)
	if !ok || sc.d != d {
		return nil, fmt.Errorf("%w: foreign config", ErrNoConfig)
	}
	if win == nil {
		return nil, fmt.Errorf("%w: nil window", ErrBadSurface)
	}
	s := &softSurface{d: d, win: win}
	s.resize()
	return s, nil
}

func (d *softDisplay) CreateContext(cfg Config, clientVersion int) (Context, error) {
	sc, ok := cfg.(*softConfig)
	if !ok || sc.d != d {
		return nil, fmt.Errorf("%w: foreign config", ErrNoConfig)
	}
	if clientVersion < 1 {
		return nil, fmt.Errorf("%w: client version %d", ErrBadContext, clientVersion)
	}
	return &softContext{d: d, version: clientVersion}, nil
}

func (d *softDisplay) surface(s Surface) (*softSurface, error) {
	ss, ok := s.(*softSurface)
	if !ok || ss.d != d {
		return nil, ErrBadSurface
	}
	return ss, nil
}

func (d *softDisplay) context(c Context) (*softContext, error) {
	sc, ok := c.(*softContext)
	if !ok || sc.d != d {
		return nil, ErrBadContext
	}
	return sc, nil
}

func (d *softDisplay) MakeCurrent(s Surface, c Context) error {
	ss, err := d.surface(s)
	if err != nil {
		return err
	}
	sc, err := d.context(c)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if sc.destroyed {
		return ErrBadContext
	}
	if sc.surface != nil && sc.surface != ss {
		return ErrContextBusy
	}
	if ss.ctx != nil && ss.ctx != sc {
		return ErrContextBusy
	}
	ss.mu.Lock()
	destroyed := ss.destroyed
	ss.mu.Unlock()
	if destroyed {
		return ErrBadSurface
	}
	// window surfaces follow the native window size at bind time
	ss.resize()
	sc.surface, ss.ctx = ss, sc
	return nil
}

func (d *softDisplay) ReleaseCurrent(c Context) error {
	sc, err := d.context(c)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if sc.surface != nil {
		sc.surface.ctx = nil
		sc.surface = nil
	}
	return nil
}

func (d *softDisplay) SwapBuffers(s Surface) error {
	ss, err := d.surface(s)
	if err != nil {
		return err
	}
	ss.mu.Lock()
	if ss.destroyed {
		ss.mu.Unlock()
		return ErrBadSurface
	}
	ss.seq++
	f := ss.back
	f.Seq = ss.seq
	f.Lines = append([]string(nil), ss.back.Lines...)
	ss.mu.Unlock()

	if err := ss.win.Present(f); err != nil {
		return fmt.Errorf("%w: %v", ErrPresent, err)
	}
	return nil
}

func (d *softDisplay) DestroySurface(s Surface) error {
	ss, err := d.surface(s)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	ss.mu.Lock()
	defer ss.mu.Unlock()
	if ss.destroyed {
		return ErrBadSurface
	}
	ss.destroyed = true
	if ss.ctx != nil {
		ss.ctx.surface = nil
		ss.ctx = nil
	}
	return nil
}

func (d *softDisplay) DestroyContext(c Context) error {
	sc, err := d.context(c)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if sc.destroyed {
		return ErrBadContext
	}
	sc.destroyed = true
	if sc.surface != nil {
		sc.surface.ctx = nil
		sc.surface = nil
	}
	return nil
}

func (d *softDisplay) Terminate() error {
	d.mu.Lock()
	d.terminated = true
	d.mu.Unlock()
	return nil
}

// resize matches the back buffer to the window size, keeping content that
// still fits.
func (s *softSurface) resize() {
	cols, rows := s.win.Size()
	s.mu.Lock()
	defer s.mu.Unlock()
	if cols == s.back.Cols && rows == s.back.Rows {
		return
	}
	s.back.Cols, s.back.Rows = cols, rows
	if len(s.back.Lines) > rows {
		s.back.Lines = s.back.Lines[:rows]
	}
}

func (s *softSurface) Size() (cols, rows int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.back.Cols, s.back.Rows
}

func (s *softSurface) Bounds() (cols, rows int) { return s.Size() }

func (s *softSurface) DrawLines(lines []string, cursor window.Cursor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(lines) > s.back.Rows {
		lines = lines[:s.back.Rows]
	}
	s.back.Lines = append(s.back.Lines[:0], lines...)
	s.back.Cursor = cursor
}

func (c *softContext) Canvas() Canvas {
	c.d.mu.Lock()
	defer c.d.mu.Unlock()
	if c.surface == nil {
		return nil
	}
	return c.surface
}
