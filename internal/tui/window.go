package tui

import (
	"sync"

	"termhost/internal/window"
)

// screenWindow is the terminal UI as a window. Render goroutines present
// into it; the UI loop pulls the newest frame on every tick.
type screenWindow struct {
	mu     sync.Mutex
	cols   int
	rows   int
	latest window.Frame
	fresh  bool
}

func newScreenWindow(cols, rows int) *screenWindow {
	return &screenWindow{cols: max(cols, 1), rows: max(rows, 1)}
}

func (w *screenWindow) Size() (int, int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cols, w.rows
}

func (w *screenWindow) resize(cols, rows int) {
	w.mu.Lock()
	w.cols, w.rows = max(cols, 1), max(rows, 1)
	w.mu.Unlock()
}

func (w *screenWindow) Present(f window.Frame) error {
	w.mu.Lock()
	w.latest, w.fresh = f, true
	w.mu.Unlock()
	return nil
}

// take returns the newest frame when one arrived since the last call.
func (w *screenWindow) take() (window.Frame, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.fresh {
		return window.Frame{}, false
	}
	w.fresh = false
	return w.latest, true
}
