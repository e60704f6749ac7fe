// Package window resolves host window handles into natively owned window
// objects that graphics surfaces can present frames to.
package window

import (
	"errors"
	"sync"
	"sync/atomic"
)

var (
	// ErrUnknownWindow is returned by Resolve for handles that are not attached.
	ErrUnknownWindow = errors.New("window: unknown handle")

	// ErrDestroyed is returned when presenting to a destroyed native window.
	ErrDestroyed = errors.New("window: destroyed")
)

// Cursor is the caret position within a frame, in cells.
type Cursor struct {
	X       int  `json:"x"`
	Y       int  `json:"y"`
	Visible bool `json:"visible"`
}

// Frame is one presented image of a text surface.
type Frame struct {
	Seq    uint64   `json:"seq"`
	Cols   int      `json:"cols"`
	Rows   int      `json:"rows"`
	Lines  []string `json:"lines"`
	Cursor Cursor   `json:"cursor"`
}

// Host is the host-side target behind a window handle: a browser
// connection, a terminal UI, or a test recorder.
type Host interface {
	// Size reports the drawable area in cells.
	Size() (cols, rows int)
	// Present shows a frame. It is called from render goroutines.
	Present(Frame) error
}

// Releaser is implemented by hosts that want to know when a native window
// resolved from them is destroyed.
type Releaser interface {
	Released(handle uint64)
}

// Table maps host window handles to hosts. It is safe for concurrent use.
type Table struct {
	mu     sync.RWMutex
	next   uint64
	hosts  map[uint64]Host
	native atomic.Int64
}

// NewTable creates an empty handle table.
func NewTable() *Table {
	return &Table{hosts: make(map[uint64]Host)}
}

// Attach registers h and returns its handle. Handles are never reused.
func (t *Table) Attach(h Host) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.next++
	t.hosts[t.next] = h
	return t.next
}

// Detach forgets a handle. Native windows already resolved from it stay
// usable until destroyed.
func (t *Table) Detach(handle uint64) {
	t.mu.Lock()
	delete(t.hosts, handle)
	t.mu.Unlock()
}

// Len returns the number of attached handles.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.hosts)
}

// LiveNatives returns how many resolved native windows are not yet destroyed.
func (t *Table) LiveNatives() int {
	return int(t.native.Load())
}

// Resolve creates a native window for handle. The caller owns the result
// and must Destroy it exactly once.
func (t *Table) Resolve(handle uint64) (*Native, error) {
	t.mu.RLock()
	h, ok := t.hosts[handle]
	t.mu.RUnlock()
	if !ok {
		return nil, ErrUnknownWindow
	}
	t.native.Add(1)
	return &Native{handle: handle, host: h, table: t}, nil
}

// Native is an exclusively owned window created from a host handle.
type Native struct {
	handle    uint64
	host      Host
	table     *Table
	destroyed atomic.Bool
}

// Handle returns the host handle this window was resolved from.
func (n *Native) Handle() uint64 { return n.handle }

// Size returns the host's drawable area, or 0x0 once destroyed.
func (n *Native) Size() (cols, rows int) {
	if n.destroyed.Load() {
		return 0, 0
	}
	return n.host.Size()
}

// Present forwards f to the host.
func (n *Native) Present(f Frame) error {
	if n.destroyed.Load() {
		return ErrDestroyed
	}
	return n.host.Present(f)
}

// Destroy releases the window. Only the first call has an effect; it
// reports whether this call performed the release.
func (n *Native) Destroy() bool {
	if n.destroyed.Swap(true) {
		return false
	}
	if n.table != nil {
		n.table.native.Add(-1)
	}
	if r, ok := n.host.(Releaser); ok {
		r.Released(n.handle)
	}
	return true
}

// Destroyed reports whether Destroy has been called.
func (n *Native) Destroyed() bool { return n.destroyed.Load() }
