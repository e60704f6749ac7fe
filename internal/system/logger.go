package system

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"weak"

	clog "github.com/charmbracelet/log"
)

// Logger is the shared process logger. Render goroutines, the clipboard pump
// and the hosts all derive component loggers from it.
var Logger = clog.NewWithOptions(os.Stderr, clog.Options{
	ReportTimestamp: true,
	Prefix:          "termhost",
})

// clog copies level and writer into children, so derived loggers are
// tracked and updated alongside Logger.
var (
	mu      sync.Mutex
	derived []weak.Pointer[clog.Logger]
)

// SetLevel sets the level of the shared logger and every logger derived
// through Component or With from a config string. Unknown names fall back
// to info.
func SetLevel(name string) {
	lvl, err := clog.ParseLevel(strings.ToLower(strings.TrimSpace(name)))
	if err != nil {
		lvl = clog.InfoLevel
	}
	each(func(l *clog.Logger) { l.SetLevel(lvl) })
}

// Component returns a child logger tagged with the component name.
func Component(name string) *clog.Logger {
	return With(Logger, "component", name)
}

// With derives a child of parent that follows later SetLevel and
// LogToFile calls.
func With(parent *clog.Logger, keyvals ...any) *clog.Logger {
	mu.Lock()
	defer mu.Unlock()
	l := parent.With(keyvals...)
	derived = append(prune(), weak.Make(l))
	return l
}

// each applies fn to Logger and every live derived logger.
func each(fn func(*clog.Logger)) {
	mu.Lock()
	defer mu.Unlock()
	fn(Logger)
	for _, p := range prune() {
		if l := p.Value(); l != nil {
			fn(l)
		}
	}
}

// prune drops collected loggers. Callers hold mu.
func prune() []weak.Pointer[clog.Logger] {
	live := derived[:0]
	for _, p := range derived {
		if p.Value() != nil {
			live = append(live, p)
		}
	}
	clear(derived[len(live):])
	derived = live
	return derived
}

// LogToFile redirects the shared logger and its derived loggers to path,
// for hosts that own the terminal.
func LogToFile(path string) (io.Closer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	SetOutput(f)
	return f, nil
}

// SetOutput points the shared logger and its derived loggers at w.
func SetOutput(w io.Writer) {
	each(func(l *clog.Logger) { l.SetOutput(w) })
}
