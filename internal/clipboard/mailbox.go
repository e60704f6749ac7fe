// Package clipboard exchanges clipboard text between a terminal engine and
// its host through a request/check/deliver mailbox.
//
// The engine side calls Copy, RequestPaste and GetPaste from synchronous
// code paths; the host side polls CheckCopy and CheckPaste and answers
// paste requests with PushPaste once it has (possibly permission-gated)
// access to the system clipboard. Texts are base64 payloads as carried by
// OSC 52.
package clipboard

import "sync"

// DefaultLimit bounds each queue unless configured otherwise.
const DefaultLimit = 256

// Mailbox holds the copy queue (engine to host), the paste queue (host to
// engine) and the number of outstanding paste requests. All fields are
// guarded by one mutex that is held only for the queue or counter update.
//
// Each queue holds at most Limit entries; when full, the oldest entry is
// dropped to make room. A Limit of 0 leaves the queues unbounded.
type Mailbox struct {
	mu      sync.Mutex
	limit   int
	copies  queue
	pastes  queue
	pending int
	dropped uint64
}

// NewMailbox creates a mailbox whose queues hold at most limit entries.
// limit <= 0 means unbounded.
func NewMailbox(limit int) *Mailbox {
	if limit < 0 {
		limit = 0
	}
	return &Mailbox{limit: limit}
}

// Copy queues text for the host. Engine side.
func (m *Mailbox) Copy(text string) {
	m.mu.Lock()
	m.push(&m.copies, text)
	m.mu.Unlock()
}

// CheckCopy pops the oldest copied text. Host side.
func (m *Mailbox) CheckCopy() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.copies.pop()
}

// RequestPaste records that the engine wants the clipboard contents.
func (m *Mailbox) RequestPaste() {
	m.mu.Lock()
	m.pending++
	m.mu.Unlock()
}

// CheckPaste consumes one outstanding paste request. When it returns true
// the host should read the system clipboard and call PushPaste.
func (m *Mailbox) CheckPaste() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pending == 0 {
		return false
	}
	m.pending--
	return true
}

// PushPaste queues clipboard text for the engine. Host side.
func (m *Mailbox) PushPaste(text string) {
	m.mu.Lock()
	m.push(&m.pastes, text)
	m.mu.Unlock()
}

// GetPaste pops the oldest pasted text. Engine side.
func (m *Mailbox) GetPaste() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pastes.pop()
}

// Pending returns the number of unconsumed paste requests.
func (m *Mailbox) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending
}

// Dropped returns how many entries were discarded by the queue bound.
func (m *Mailbox) Dropped() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dropped
}

// push must be called with m.mu held.
func (m *Mailbox) push(q *queue, text string) {
	if m.limit > 0 && q.len() >= m.limit {
		q.pop()
		m.dropped++
	}
	q.push(text)
}

// queue is a FIFO of strings. Popped slots are reclaimed once the live
// region falls below half of the backing slice.
type queue struct {
	items []string
	head  int
}

func (q *queue) len() int { return len(q.items) - q.head }

func (q *queue) push(s string) { q.items = append(q.items, s) }

func (q *queue) pop() (string, bool) {
	if q.head == len(q.items) {
		return "", false
	}
	s := q.items[q.head]
	q.items[q.head] = ""
	q.head++
	switch {
	case q.head == len(q.items):
		q.items, q.head = q.items[:0], 0
	case q.head > 32 && q.head*2 >= len(q.items):
		n := copy(q.items, q.items[q.head:])
		clear(q.items[n:])
		q.items, q.head = q.items[:n], 0
	}
	return s, true
}
