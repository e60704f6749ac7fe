package clipboard

import (
	"strings"
	"testing"
)

func TestFilterInterceptsCopy(t *testing.T) {
	m := NewMailbox(DefaultLimit)
	f := NewOSC52Filter(m)
	payload := Encode("hello")
	out := f.Filter([]byte("ab\x1b]52;c;" + payload + "\x07cd"))
	if string(out) != "abcd" {
		t.Fatalf("passthrough = %q; want abcd", out)
	}
	got, ok := m.CheckCopy()
	if !ok || got != payload {
		t.Fatalf("CheckCopy = %q,%v; want %q", got, ok, payload)
	}
}

func TestFilterPasteQueryWithST(t *testing.T) {
	m := NewMailbox(DefaultLimit)
	f := NewOSC52Filter(m)
	out := f.Filter([]byte("\x1b]52;c;?\x1b\\x"))
	if string(out) != "x" {
		t.Fatalf("passthrough = %q; want x", out)
	}
	if !m.CheckPaste() {
		t.Fatalf("paste request not recorded")
	}
}

func TestFilterAcrossChunks(t *testing.T) {
	m := NewMailbox(DefaultLimit)
	f := NewOSC52Filter(m)
	payload := Encode("split across reads")
	stream := "pre\x1b]52;c;" + payload + "\x1b\\post"

	var out strings.Builder
	for i := 0; i < len(stream); i++ {
		out.Write(f.Filter([]byte{stream[i]}))
	}
	if out.String() != "prepost" {
		t.Fatalf("passthrough = %q", out.String())
	}
	if got, _ := m.CheckCopy(); got != payload {
		t.Fatalf("CheckCopy = %q; want %q", got, payload)
	}
}

func TestFilterPassesOtherSequences(t *testing.T) {
	m := NewMailbox(DefaultLimit)
	f := NewOSC52Filter(m)
	in := "\x1b[1;31mred\x1b[0m\x1b]0;title\x07\x1b]8;;http://x\x1b\\link"
	out := f.Filter([]byte(in))
	if string(out) != in {
		t.Fatalf("passthrough = %q; want %q", out, in)
	}
	if _, ok := m.CheckCopy(); ok {
		t.Fatalf("unexpected copy")
	}
}

func TestFilterTrailingEscFlushedLater(t *testing.T) {
	f := NewOSC52Filter(NewMailbox(0))
	if out := f.Filter([]byte("a\x1b")); string(out) != "a" {
		t.Fatalf("first chunk = %q", out)
	}
	if out := f.Filter([]byte("[H")); string(out) != "\x1b[H" {
		t.Fatalf("second chunk = %q", out)
	}
}

func TestFilterIgnoresClearRequest(t *testing.T) {
	m := NewMailbox(0)
	f := NewOSC52Filter(m)
	f.Filter([]byte("\x1b]52;c;!\x07"))
	if _, ok := m.CheckCopy(); ok {
		t.Fatalf("clear request should not queue a copy")
	}
}

func TestReply(t *testing.T) {
	got, err := Reply(Encode("hi"))
	if err != nil {
		t.Fatalf("Reply error: %v", err)
	}
	want := "\x1b]52;c;" + Encode("hi") + "\x07"
	if got != want {
		t.Fatalf("Reply = %q; want %q", got, want)
	}
	if _, err := Reply("%%%"); err == nil {
		t.Fatalf("expected error for invalid payload")
	}
}
