// Package surface owns the on-screen surfaces: a registry from surface id to
// live state, the graphics resources behind each entry, and the render
// goroutine drawing into them.
package surface

import (
	"fmt"
	"slices"
	"sync"
	"time"

	clog "github.com/charmbracelet/log"

	"termhost/internal/gfx"
	"termhost/internal/system"
	"termhost/internal/window"
)

// Windows resolves host window handles.
type Windows interface {
	Resolve(handle uint64) (*window.Native, error)
}

// Resizer receives validated session resizes.
type Resizer interface {
	Resize(sessionID int64, width, height int) error
}

// Options wires a Manager to its collaborators.
type Options struct {
	Shared  *gfx.Shared
	Windows Windows
	Drawer  Drawer
	Engine  Resizer
	// FrameInterval paces each render loop; 0 renders back to back.
	FrameInterval time.Duration
	// JoinTimeout bounds DestroySurface's wait for the render loop. On
	// expiry the state is leaked: its graphics resources are not freed.
	// Zero waits forever.
	JoinTimeout time.Duration
	// ClientVersion is requested for graphics contexts; 3 when zero.
	ClientVersion int
}

// Manager is the surface registry. Every method is safe to call from any
// goroutine.
type Manager struct {
	opts Options
	log  *clog.Logger

	mu       sync.Mutex
	surfaces map[int64]*State
	// creating holds ids between the duplicate check and insertion.
	creating map[int64]struct{}
	leaked   int
	closed   bool
}

// NewManager creates an empty registry.
func NewManager(opts Options) *Manager {
	if opts.ClientVersion == 0 {
		opts.ClientVersion = 3
	}
	return &Manager{
		opts:     opts,
		log:      system.Component("surface"),
		surfaces: make(map[int64]*State),
		creating: make(map[int64]struct{}),
	}
}

// CreateSurface builds the graphics surface and context for the window
// behind handle and starts rendering sessionID into it. A surface id that
// is live, or being created by a concurrent call, yields *DuplicateError
// and leaves the existing surface untouched.
func (m *Manager) CreateSurface(sessionID, surfaceID int64, handle uint64) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	if _, live := m.surfaces[surfaceID]; live {
		m.mu.Unlock()
		return &DuplicateError{SurfaceID: surfaceID}
	}
	if _, busy := m.creating[surfaceID]; busy {
		m.mu.Unlock()
		return &DuplicateError{SurfaceID: surfaceID}
	}
	m.creating[surfaceID] = struct{}{}
	m.mu.Unlock()

	st, err := m.build(sessionID, surfaceID, handle)

	m.mu.Lock()
	delete(m.creating, surfaceID)
	if err == nil && m.closed {
		err = ErrClosed
	}
	if err == nil {
		m.surfaces[surfaceID] = st
	}
	m.mu.Unlock()

	if err != nil {
		if st != nil {
			m.stop(st)
		}
		return err
	}
	m.log.Info("surface created", "surface", surfaceID, "session", sessionID, "window", handle)
	return nil
}

// build acquires resources in order window, surface, context and starts the
// render loop. On failure everything already acquired is released in
// reverse order.
func (m *Manager) build(sessionID, surfaceID int64, handle uint64) (*State, error) {
	display, cfg, err := m.opts.Shared.EnsureInitialized()
	if err != nil {
		return nil, err
	}
	win, err := m.opts.Windows.Resolve(handle)
	if err != nil {
		return nil, fmt.Errorf("%w: handle %d: %v", ErrWindow, handle, err)
	}
	surf, err := display.CreateWindowSurface(cfg, win)
	if err != nil {
		win.Destroy()
		return nil, fmt.Errorf("surface: create window surface: %w", err)
	}
	ctx, err := display.CreateContext(cfg, m.opts.ClientVersion)
	if err != nil {
		_ = display.DestroySurface(surf)
		win.Destroy()
		return nil, fmt.Errorf("surface: create context: %w", err)
	}

	st := &State{
		sessionID: sessionID,
		surfaceID: surfaceID,
		win:       win,
		display:   display,
		surface:   surf,
		context:   ctx,
		wake:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	go st.run(m.opts.Drawer, m.opts.FrameInterval, system.With(m.log, "surface", surfaceID, "session", sessionID))
	return st, nil
}

// DestroySurface stops and releases a surface. Unknown ids are ignored.
// The entry leaves the registry first; the call then blocks until the
// render loop has exited and frees surface, context and window in that
// order.
func (m *Manager) DestroySurface(surfaceID int64) {
	m.mu.Lock()
	st, ok := m.surfaces[surfaceID]
	delete(m.surfaces, surfaceID)
	m.mu.Unlock()
	if !ok {
		return
	}
	if m.stop(st) {
		m.log.Info("surface destroyed", "surface", surfaceID)
	}
}

// stop cancels, joins and tears down st. It reports false when the join
// timed out and the state was leaked.
func (m *Manager) stop(st *State) bool {
	st.requestCancel()
	if !m.join(st) {
		m.mu.Lock()
		m.leaked++
		m.mu.Unlock()
		m.log.Warn("render loop did not stop; leaking surface resources",
			"surface", st.surfaceID, "timeout", m.opts.JoinTimeout, "phase", st.Phase())
		return false
	}
	if err := st.display.DestroySurface(st.surface); err != nil {
		m.log.Warn("destroy surface failed", "surface", st.surfaceID, "err", err)
	}
	if err := st.display.DestroyContext(st.context); err != nil {
		m.log.Warn("destroy context failed", "surface", st.surfaceID, "err", err)
	}
	st.win.Destroy()
	return true
}

func (m *Manager) join(st *State) bool {
	if m.opts.JoinTimeout <= 0 {
		<-st.done
		return true
	}
	t := time.NewTimer(m.opts.JoinTimeout)
	defer t.Stop()
	select {
	case <-st.done:
		return true
	case <-t.C:
		return false
	}
}

// ResizeSurface forwards a session resize to the engine after rejecting
// non-positive dimensions.
func (m *Manager) ResizeSurface(sessionID int64, width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}
	return m.opts.Engine.Resize(sessionID, width, height)
}

// ResizeWidth is called when the engine wants a different surface width.
// It currently has no effect.
func (m *Manager) ResizeWidth(newWidth int) {
	m.log.Debug("resize width ignored", "width", newWidth)
}

// Get returns the live state for surfaceID.
func (m *Manager) Get(surfaceID int64) (*State, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.surfaces[surfaceID]
	return st, ok
}

// Len returns the number of live surfaces.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.surfaces)
}

// IDs returns the live surface ids in ascending order.
func (m *Manager) IDs() []int64 {
	m.mu.Lock()
	ids := make([]int64, 0, len(m.surfaces))
	for id := range m.surfaces {
		ids = append(ids, id)
	}
	m.mu.Unlock()
	slices.Sort(ids)
	return ids
}

// Leaked returns how many surfaces were abandoned after a join timeout.
func (m *Manager) Leaked() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.leaked
}

// Close destroys every live surface and rejects further creation.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	for _, id := range m.IDs() {
		m.DestroySurface(id)
	}
}
