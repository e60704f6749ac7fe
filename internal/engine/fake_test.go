package engine

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"termhost/internal/clipboard"
	"termhost/internal/testutil"
	"termhost/internal/window"
)

// fakeProc is a process whose output the test writes and whose input the
// test inspects.
type fakeProc struct {
	pr *io.PipeReader
	pw *io.PipeWriter

	mu     sync.Mutex
	input  bytes.Buffer
	sizes  [][2]int
	closed bool
	exit   chan struct{}
}

func newFakeProc() *fakeProc {
	pr, pw := io.Pipe()
	return &fakeProc{pr: pr, pw: pw, exit: make(chan struct{})}
}

func (p *fakeProc) Read(b []byte) (int, error) { return p.pr.Read(b) }

func (p *fakeProc) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, io.ErrClosedPipe
	}
	return p.input.Write(b)
}

func (p *fakeProc) Resize(cols, rows int) error {
	p.mu.Lock()
	p.sizes = append(p.sizes, [2]int{cols, rows})
	p.mu.Unlock()
	return nil
}

func (p *fakeProc) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-p.exit:
		return nil
	}
}

func (p *fakeProc) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		_ = p.pw.Close()
	}
	return nil
}

// emit writes process output as the shell would.
func (p *fakeProc) emit(t *testing.T, s string) {
	t.Helper()
	if _, err := p.pw.Write([]byte(s)); err != nil {
		t.Fatalf("emit: %v", err)
	}
}

func (p *fakeProc) Input() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.input.String()
}

// recorder is a canvas that keeps the last drawn lines.
type recorder struct {
	cols, rows int
	lines      []string
	cursor     window.Cursor
	draws      int
}

func (r *recorder) Bounds() (int, int) { return r.cols, r.rows }

func (r *recorder) DrawLines(lines []string, c window.Cursor) {
	r.lines = append([]string(nil), lines...)
	r.cursor = c
	r.draws++
}

func (r *recorder) text() string { return strings.Join(r.lines, "\n") }

func newTestDirectory(t *testing.T) (*Directory, *clipboard.Mailbox, *[]*fakeProc) {
	t.Helper()
	box := clipboard.NewMailbox(clipboard.DefaultLimit)
	var mu sync.Mutex
	procs := &[]*fakeProc{}
	d := NewDirectory(Options{
		CellWidth:  8,
		CellHeight: 16,
		Scrollback: 100,
		Cols:       20,
		Rows:       5,
		Mailbox:    box,
		Spawn: func(string, int, int) (Process, error) {
			p := newFakeProc()
			mu.Lock()
			*procs = append(*procs, p)
			mu.Unlock()
			return p, nil
		},
	})
	t.Cleanup(d.Close)
	return d, box, procs
}

// drawUntil redraws until the canvas contains want.
func drawUntil(t *testing.T, d *Directory, id int64, r *recorder, want string) {
	t.Helper()
	testutil.Eventually(t, 2*time.Second, "canvas never showed "+want, func() bool {
		if err := d.Draw(id, r); err != nil {
			t.Fatalf("Draw error: %v", err)
		}
		return strings.Contains(r.text(), want)
	})
}
