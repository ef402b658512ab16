package transfer

import (
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/creack/pty"
)

// childHandle wraps a subprocess started under a PTY, the handle the
// External Relay reads from and writes to instead of raw stdin/stdout
// pipes (rz/sz and friends expect a terminal, not a pipe, to behave
// correctly with their own internal framing).
type childHandle struct {
	cmd  *exec.Cmd
	ptmx *os.File
}

// startUnderPTY launches cmd attached to a new pseudo-terminal, the
// way RunCommandWithPTY does it, minus the session-specific window
// resize plumbing (out of scope here — §1 Non-goals, window-size
// notification source).
func startUnderPTY(cmd *exec.Cmd) (*childHandle, error) {
	ptmx, err := pty.Start(cmd)
	if err != nil {
		return nil, err
	}
	return &childHandle{cmd: cmd, ptmx: ptmx}, nil
}

func (c *childHandle) Read(p []byte) (int, error)  { return c.ptmx.Read(p) }
func (c *childHandle) Write(p []byte) (int, error) { return c.ptmx.Write(p) }
func (c *childHandle) Close() error                { return c.ptmx.Close() }

// Terminate sends SIGTERM and escalates to SIGKILL after grace if the
// child has not exited (§5 cancellation semantics: "after 2s,
// SIGKILL").
func (c *childHandle) Terminate(grace time.Duration) {
	if c.cmd.Process == nil {
		return
	}
	c.cmd.Process.Signal(syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		c.cmd.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(grace):
		c.cmd.Process.Kill()
	}
}

func (c *childHandle) Wait() error { return c.cmd.Wait() }
