package engine

import (
	"context"
	"io"
	"os"
	"os/exec"

	"github.com/charmbracelet/x/xpty"
)

// Process is the program behind a session: its output is read, its input
// written, and it follows the session's cell size.
type Process interface {
	io.ReadWriteCloser
	Resize(cols, rows int) error
	// Wait blocks until the program exits or ctx is done.
	Wait(ctx context.Context) error
}

// Spawner starts a session's process with an initial cell size.
type Spawner func(shell string, cols, rows int) (Process, error)

// SpawnShell runs shell on a new pseudo terminal.
func SpawnShell(shell string, cols, rows int) (Process, error) {
	p, err := xpty.NewPty(cols, rows)
	if err != nil {
		return nil, err
	}
	// #nosec G204 - the shell is user configuration
	cmd := exec.Command(shell)
	cmd.Env = append(os.Environ(), "TERM=xterm-256color", "COLORTERM=truecolor", "TERM_PROGRAM=termhost")
	if err := p.Start(cmd); err != nil {
		_ = p.Close()
		return nil, err
	}
	// some pty implementations only honour the size once the child runs
	_ = p.Resize(cols, rows)
	return &ptyProcess{pty: p, cmd: cmd}, nil
}

type ptyProcess struct {
	pty xpty.Pty
	cmd *exec.Cmd
}

func (p *ptyProcess) Read(b []byte) (int, error)  { return p.pty.Read(b) }
func (p *ptyProcess) Write(b []byte) (int, error) { return p.pty.Write(b) }

func (p *ptyProcess) Resize(cols, rows int) error { return p.pty.Resize(cols, rows) }

func (p *ptyProcess) Wait(ctx context.Context) error { return xpty.WaitProcess(ctx, p.cmd) }

func (p *ptyProcess) Close() error {
	err := p.pty.Close()
	if p.cmd.Process != nil {
		_ = p.cmd.Process.Kill()
	}
	return err
}
