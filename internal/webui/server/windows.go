package server

import (
	"encoding/json"
	"net/http"
	"reflect"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"termhost/internal/system"
	"termhost/internal/window"
)

// wsUpgrader upgrades HTTP connections to WebSocket.
var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Allow all origins for local dev; the server typically binds to localhost.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsWindow is a browser tab acting as a window. Frames presented by render
// goroutines are coalesced: only the newest unsent frame is kept, so a slow
// connection never blocks rendering.
type wsWindow struct {
	cols, rows atomic.Int32

	mu     sync.Mutex
	latest *window.Frame
	sent   window.Frame
	closed bool
	notify chan struct{}
}

func newWSWindow(cols, rows int) *wsWindow {
	w := &wsWindow{notify: make(chan struct{}, 1)}
	w.resize(cols, rows)
	return w
}

func (w *wsWindow) resize(cols, rows int) {
	if cols <= 0 {
		cols = 80
	}
	if rows <= 0 {
		rows = 24
	}
	w.cols.Store(int32(cols))
	w.rows.Store(int32(rows))
}

func (w *wsWindow) Size() (int, int) { return int(w.cols.Load()), int(w.rows.Load()) }

func (w *wsWindow) Present(f window.Frame) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return window.ErrDestroyed
	}
	// identical content is not resent
	if sameContent(f, w.sent) {
		return nil
	}
	w.latest = &f
	select {
	case w.notify <- struct{}{}:
	default:
	}
	return nil
}

// next takes the pending frame, if any, and marks it sent.
func (w *wsWindow) next() (window.Frame, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.latest == nil {
		return window.Frame{}, false
	}
	f := *w.latest
	w.latest = nil
	w.sent = f
	return f, true
}

func (w *wsWindow) close() {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
}

func sameContent(a, b window.Frame) bool {
	return a.Cols == b.Cols && a.Rows == b.Rows && a.Cursor == b.Cursor && reflect.DeepEqual(a.Lines, b.Lines)
}

// wsMsg is the client protocol:
//   - {"type":"resize","cols":<int>,"rows":<int>} resizes the window;
//   - {"type":"input","session":<id>,"data":"..."} sends input to a session.
//
// The server sends {"type":"attached","window":<handle>} once and then
// {"type":"frame","frame":{...}} for every new frame.
type wsMsg struct {
	Type    string        `json:"type"`
	Window  uint64        `json:"window,omitempty"`
	Cols    int           `json:"cols,omitempty"`
	Rows    int           `json:"rows,omitempty"`
	Session int64         `json:"session,omitempty"`
	Data    string        `json:"data,omitempty"`
	Frame   *window.Frame `json:"frame,omitempty"`
}

// windowWS attaches the connection as a window. Surfaces still bound to
// the window when the connection closes are destroyed.
func (h *api) windowWS(c *gin.Context) {
	conn, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	log := system.Component("webui")

	cols, _ := strconv.Atoi(c.Query("cols"))
	rows, _ := strconv.Atoi(c.Query("rows"))
	win := newWSWindow(cols, rows)
	handle := h.b.AttachWindow(win)
	defer func() {
		win.close()
		h.b.DetachWindow(handle)
		for _, id := range h.b.Surfaces.IDs() {
			if st, ok := h.b.Surfaces.Get(id); ok && st.WindowHandle() == handle {
				h.b.DestroySurface(id)
			}
		}
		log.Debug("window closed", "window", handle)
	}()

	if err := conn.WriteJSON(wsMsg{Type: "attached", Window: handle}); err != nil {
		return
	}

	// Writer: frames -> WS
	done := make(chan struct{})
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		ping := time.NewTicker(30 * time.Second)
		defer ping.Stop()
		for {
			select {
			case <-done:
				return
			case <-ping.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
					return
				}
			case <-win.notify:
				f, ok := win.next()
				if !ok {
					continue
				}
				if err := conn.WriteJSON(wsMsg{Type: "frame", Frame: &f}); err != nil {
					log.Debug("frame write failed", "window", handle, "err", err)
					return
				}
			}
		}
	}()
	defer func() {
		close(done)
		<-writerDone
	}()

	// Reader: WS -> bridge
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var m wsMsg
		if json.Unmarshal(data, &m) != nil {
			continue
		}
		switch m.Type {
		case "resize":
			win.resize(m.Cols, m.Rows)
		case "input":
			if err := h.b.Send(m.Session, []byte(m.Data)); err != nil {
				log.Debug("input dropped", "session", m.Session, "err", err)
			}
		}
	}
}
