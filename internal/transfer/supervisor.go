package transfer

import (
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/onionmixer/otelnet/internal/detect"
	"github.com/onionmixer/otelnet/internal/telnet"
)

const (
	drainAlreadyBinary = 200 * time.Millisecond
	drainNegotiating   = 300 * time.Millisecond
	drainChunk         = 256
	exitFlushAttempts  = 10
	exitFlushInterval  = 10 * time.Millisecond
)

// Supervisor implements the entry/exit choreography shared by every
// transfer (§4.G): snapshotting and restoring telnet option state,
// draining the socket while BINARY mode settles, and pausing/resuming
// the Protocol Detectors around the transfer body.
type Supervisor struct {
	conn    *telnet.Connection
	socket  net.Conn
	detect  *detect.Engine
	Pending PendingQueue
	State   State
	logger  *slog.Logger
}

// NewSupervisor wires a Supervisor to the shared Connection, socket
// and detector Engine the Session Loop already owns.
func NewSupervisor(conn *telnet.Connection, socket net.Conn, det *detect.Engine, logger *slog.Logger) *Supervisor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Supervisor{conn: conn, socket: socket, detect: det, logger: logger}
}

// Enter performs §4.G's entry sequence and returns once the socket is
// ready for the chosen engine/relay to take over exclusively.
func (s *Supervisor) Enter(proto Protocol, auto bool) error {
	snapshot := s.conn.Opts.Save()
	s.State.Enter(proto, snapshot, auto)

	alreadyBinary := s.conn.Opts.Binary
	if !alreadyBinary {
		if _, err := s.socket.Write(s.conn.RequestBinary()); err != nil {
			return err
		}
	}

	budget := drainNegotiating
	if alreadyBinary {
		budget = drainAlreadyBinary
	}
	s.drain(budget)

	s.detect.Pause()
	return nil
}

// drain reads the socket in small chunks for up to budget, routing
// each chunk through the Framer and checking whether the resulting
// clean data looks like the start of a Kermit packet (§4.G step 3).
func (s *Supervisor) drain(budget time.Duration) {
	deadline := time.Now().Add(budget)
	buf := make([]byte, drainChunk)

	for time.Now().Before(deadline) {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return
		}
		s.socket.SetReadDeadline(time.Now().Add(remaining))
		n, err := s.socket.Read(buf)
		if n > 0 {
			clean, outbound := s.conn.Feed(buf[:n])
			if len(outbound) > 0 {
				s.socket.Write(outbound)
			}
			if looksLikeKermitStart(clean) {
				s.Pending.Push(clean)
				return
			}
			// else: server chatter, discarded per §4.G step 3.
		}
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			return
		}
	}
}

// looksLikeKermitStart implements §4.G step 3's two tests: a leading
// SOH, or a LEN/SEQ/TYPE triple that looks like a well-formed Kermit
// header (LEN in [35,126], SEQ and TYPE printable).
func looksLikeKermitStart(clean []byte) bool {
	if len(clean) == 0 {
		return false
	}
	if clean[0] == 0x01 {
		return true
	}
	if len(clean) < 3 {
		return false
	}
	length := clean[0]
	seq := clean[1]
	typ := clean[2]
	if length < 35 || length > 126 {
		return false
	}
	return isPrintableByte(seq) && isPrintableByte(typ)
}

func isPrintableByte(b byte) bool { return b >= 0x20 && b < 0x7f }

// Exit performs §4.G's exit sequence: restore saved option bits
// (issuing only the minimal replies for bits that actually differ),
// re-initialize detectors, flush residual socket chatter and clear
// cancellation.
func (s *Supervisor) Exit() {
	s.restoreOptions()
	s.detect.Resume()
	s.flushResidual()
	s.State.ClearCancel()
	s.State.Exit()
	s.Pending.Reset()
}

func (s *Supervisor) restoreOptions() {
	want := s.State.Saved
	var out []byte
	out = append(out, s.replyIfChanged(telnet.OptBinary, true, want.BinaryLocal)...)
	out = append(out, s.replyIfChanged(telnet.OptBinary, false, want.BinaryRemote)...)
	out = append(out, s.replyIfChanged(telnet.OptEcho, true, want.EchoLocal)...)
	out = append(out, s.replyIfChanged(telnet.OptEcho, false, want.EchoRemote)...)
	out = append(out, s.replyIfChanged(telnet.OptSGA, true, want.SGALocal)...)
	out = append(out, s.replyIfChanged(telnet.OptSGA, false, want.SGARemote)...)
	out = append(out, s.replyIfChanged(telnet.OptLinemode, true, want.LinemodeActive)...)
	if len(out) > 0 {
		s.socket.Write(out)
	}
}

// replyIfChanged issues the minimal WILL/WONT or DO/DONT pair when
// the live bit no longer matches the saved snapshot.
func (s *Supervisor) replyIfChanged(opt byte, local bool, want bool) []byte {
	var have bool
	if local {
		have = s.conn.Opts.Local(opt)
	} else {
		have = s.conn.Opts.Remote(opt)
	}
	if have == want {
		return nil
	}
	if local {
		s.conn.Opts.SetLocal(opt, want)
		if want {
			return []byte{telnet.IAC, telnet.WILL, opt}
		}
		return []byte{telnet.IAC, telnet.WONT, opt}
	}
	s.conn.Opts.SetRemote(opt, want)
	if want {
		return []byte{telnet.IAC, telnet.DO, opt}
	}
	return []byte{telnet.IAC, telnet.DONT, opt}
}

func (s *Supervisor) flushResidual() {
	buf := make([]byte, drainChunk)
	for i := 0; i < exitFlushAttempts; i++ {
		s.socket.SetReadDeadline(time.Now().Add(exitFlushInterval))
		n, err := s.socket.Read(buf)
		if n > 0 {
			_, outbound := s.conn.Feed(buf[:n])
			if len(outbound) > 0 {
				s.socket.Write(outbound)
			}
		}
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			if err == io.EOF {
				return
			}
		}
	}
}
