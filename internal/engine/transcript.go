package engine

import (
	"bytes"
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// maxPartial bounds a line still waiting for its newline; longer output is
// split into lines of this many bytes.
const maxPartial = 64 << 10

// transcript keeps the last N lines of a session's output, stripped of
// escape sequences, for scrollback. Not safe for concurrent use; the
// session lock guards it.
type transcript struct {
	lines   []string
	head    int
	size    int
	partial []byte
}

func newTranscript(capacity int) *transcript {
	if capacity < 0 {
		capacity = 0
	}
	return &transcript{lines: make([]string, capacity)}
}

// Write appends output. Incomplete trailing lines are held until their
// newline arrives.
func (t *transcript) Write(p []byte) {
	if len(t.lines) == 0 {
		return
	}
	for len(p) > 0 {
		i := bytes.IndexByte(p, '\n')
		if i < 0 {
			t.hold(p)
			return
		}
		t.hold(p[:i])
		t.push(string(t.partial))
		t.partial = t.partial[:0]
		p = p[i+1:]
	}
}

// hold buffers part of an unfinished line, dropping text that a carriage
// return has already rewound.
func (t *transcript) hold(p []byte) {
	t.partial = append(t.partial, p...)
	body := bytes.TrimRight(t.partial, "\r")
	if i := bytes.LastIndexByte(body, '\r'); i >= 0 {
		t.partial = append(t.partial[:0], t.partial[i+1:]...)
	}
	for len(t.partial) > maxPartial {
		t.push(string(t.partial[:maxPartial]))
		t.partial = append(t.partial[:0], t.partial[maxPartial:]...)
	}
}

func (t *transcript) push(raw string) {
	line := strings.TrimRight(raw, "\r")
	// a carriage return rewinds the line; keep what was drawn last
	if i := strings.LastIndexByte(line, '\r'); i >= 0 {
		line = line[i+1:]
	}
	line = ansi.Strip(line)
	t.lines[t.head] = line
	t.head = (t.head + 1) % len(t.lines)
	if t.size < len(t.lines) {
		t.size++
	}
}

// Len returns the number of complete lines held.
func (t *transcript) Len() int { return t.size }

// Window returns up to n lines ending back lines before the newest one.
func (t *transcript) Window(back, n int) []string {
	if back < 0 {
		back = 0
	}
	end := t.size - back
	if end <= 0 || n <= 0 {
		return nil
	}
	start := max(end-n, 0)
	out := make([]string, 0, end-start)
	oldest := (t.head - t.size + len(t.lines)) % len(t.lines)
	for i := start; i < end; i++ {
		out = append(out, t.lines[(oldest+i)%len(t.lines)])
	}
	return out
}
