package clipboard

import (
	"bytes"
	"encoding/base64"
	"fmt"

	osc52 "github.com/aymanbagabas/go-osc52/v2"
)

// maxOSCLen caps a buffered OSC sequence; longer ones pass through untouched.
const maxOSCLen = 1 << 20

type filterState int

const (
	stGround filterState = iota
	stEsc
	stOSC
	stOSCEsc
)

// Sink receives the clipboard operations found in an output stream. Mailbox
// is a Sink.
type Sink interface {
	Copy(text string)
	RequestPaste()
}

// OSC52Filter removes OSC 52 clipboard sequences from an engine output
// stream and turns them into sink operations: a base64 payload becomes a
// Copy, a "?" query becomes a RequestPaste. All other bytes, including other
// OSC sequences, are returned unchanged. Sequences may span calls.
//
// A filter belongs to one stream and is not safe for concurrent use.
type OSC52Filter struct {
	sink  Sink
	state filterState
	buf   []byte
}

// NewOSC52Filter creates a filter feeding sink.
func NewOSC52Filter(sink Sink) *OSC52Filter {
	return &OSC52Filter{sink: sink}
}

// Filter consumes p and returns the bytes to forward to the emulator.
func (f *OSC52Filter) Filter(p []byte) []byte {
	out := make([]byte, 0, len(p))
	for i := 0; i < len(p); i++ {
		b := p[i]
		switch f.state {
		case stGround:
			if b == 0x1b {
				f.state = stEsc
				continue
			}
			out = append(out, b)
		case stEsc:
			if b == ']' {
				f.buf = append(f.buf[:0], 0x1b, ']')
				f.state = stOSC
				continue
			}
			out = append(out, 0x1b)
			f.state = stGround
			i--
		case stOSC:
			switch b {
			case 0x07:
				out = f.finish(out, []byte{0x07})
			case 0x1b:
				f.state = stOSCEsc
			default:
				f.buf = append(f.buf, b)
				if len(f.buf) > maxOSCLen {
					out = append(out, f.buf...)
					f.reset()
				}
			}
		case stOSCEsc:
			if b == '\\' {
				out = f.finish(out, []byte{0x1b, '\\'})
				continue
			}
			// ESC inside an OSC aborts it; replay the ESC in ground state
			out = append(out, f.buf...)
			f.reset()
			f.state = stEsc
			i--
		}
	}
	return out
}

func (f *OSC52Filter) reset() {
	f.buf = f.buf[:0]
	f.state = stGround
}

// finish handles a terminated OSC sequence held in f.buf.
func (f *OSC52Filter) finish(out, term []byte) []byte {
	body := f.buf[2:]
	if !bytes.HasPrefix(body, []byte("52;")) {
		out = append(out, f.buf...)
		out = append(out, term...)
		f.reset()
		return out
	}
	rest := body[3:]
	if i := bytes.IndexByte(rest, ';'); i >= 0 {
		data := string(rest[i+1:])
		switch {
		case data == "?":
			f.sink.RequestPaste()
		case data == "":
		default:
			// "!" and other non-base64 payloads are clear requests; the host
			// clipboard is left alone
			if _, err := base64.StdEncoding.DecodeString(data); err == nil {
				f.sink.Copy(data)
			}
		}
	}
	f.reset()
	return out
}

// Reply encodes a base64 paste payload as the OSC 52 response written back
// to the engine's input.
func Reply(payload string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", fmt.Errorf("clipboard: paste payload is not base64: %w", err)
	}
	return osc52.New(string(raw)).String(), nil
}

// Encode converts plain text into the mailbox's base64 form.
func Encode(text string) string {
	return base64.StdEncoding.EncodeToString([]byte(text))
}

// Decode converts a mailbox payload back into plain text.
func Decode(payload string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", fmt.Errorf("clipboard: payload is not base64: %w", err)
	}
	return string(raw), nil
}
