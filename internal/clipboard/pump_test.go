package clipboard

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"termhost/internal/testutil"
)

type memClipboard struct {
	mu      sync.Mutex
	text    string
	writes  []string
	readErr error
}

func (c *memClipboard) ReadAll() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.text, c.readErr
}

func (c *memClipboard) WriteAll(s string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.text = s
	c.writes = append(c.writes, s)
	return nil
}

func TestPumpStepDrainsCopiesAndAnswersPastes(t *testing.T) {
	m := NewMailbox(DefaultLimit)
	sys := &memClipboard{}
	p := NewPump(m, sys, time.Millisecond)

	m.Copy(Encode("one"))
	m.Copy(Encode("two"))
	m.RequestPaste()
	p.Step()

	if len(sys.writes) != 2 || sys.writes[0] != "one" || sys.writes[1] != "two" {
		t.Fatalf("writes = %q", sys.writes)
	}
	got, ok := m.GetPaste()
	if !ok {
		t.Fatalf("no paste delivered")
	}
	if text, _ := Decode(got); text != "two" {
		t.Fatalf("paste = %q; want two", text)
	}
	if m.Pending() != 0 {
		t.Fatalf("pending request left over")
	}
}

func TestPumpAnswersEmptyOnReadFailure(t *testing.T) {
	m := NewMailbox(DefaultLimit)
	sys := &memClipboard{text: "secret", readErr: errors.New("denied")}
	p := NewPump(m, sys, time.Millisecond)
	m.RequestPaste()
	p.Step()
	got, ok := m.GetPaste()
	if !ok || got != "" {
		t.Fatalf("GetPaste = %q,%v; want empty answer", got, ok)
	}
}

func TestPumpRunStopsOnCancel(t *testing.T) {
	m := NewMailbox(DefaultLimit)
	sys := &memClipboard{}
	p := NewPump(m, sys, time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()
	m.Copy(Encode("x"))
	testutil.Eventually(t, 2*time.Second, "pump never wrote the copy", func() bool {
		sys.mu.Lock()
		defer sys.mu.Unlock()
		return sys.text == "x"
	})
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return after cancel")
	}
}
