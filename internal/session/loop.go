// Package session implements the Session Loop (spec.md §4.J): the
// single dispatch point that reads stdin and the socket, routes
// socket bytes through the telnet Framer and Protocol Detectors, and
// gates which mode — CLIENT, CONSOLE or TRANSFER — currently owns the
// data path. Terminal raw-mode setup, the console command REPL itself
// and the window-size notification source are external collaborators
// (§1 Non-goals); this package only implements the gate and the
// dispatch, not those surfaces.
package session

import (
	"context"
	"io"
	"log/slog"
	"net"
	"os/exec"
	"time"

	"github.com/onionmixer/otelnet/internal/detect"
	"github.com/onionmixer/otelnet/internal/kermit"
	"github.com/onionmixer/otelnet/internal/telnet"
	"github.com/onionmixer/otelnet/internal/transfer"
)

// Mode is the gate that gives exactly one subsystem exclusive use of
// the socket (§4.J, §5 "Shared-resource policy").
type Mode int

const (
	ModeClient Mode = iota
	ModeConsole
	ModeTransfer
)

// Dispatcher hands CONSOLE-mode command lines to whatever implements
// the interactive REPL — out of scope for this package (§1), but the
// Loop still needs a seam to call into it.
type Dispatcher interface {
	// Dispatch processes one command line typed in CONSOLE mode. It
	// may request a transfer via the returned TransferRequest.
	Dispatch(line string) (*TransferRequest, error)
}

// TransferRequest describes a transfer the Dispatcher or a detector
// hit asked the Loop to start.
type TransferRequest struct {
	Kermit   bool // true: hand off to the Kermit Engine; false: External Relay
	Protocol transfer.Protocol
	External transfer.ExternalProtocol
	Send     bool // true: we are sending; false: we are receiving
	FilePath string
}

// Loop is the Session Loop: it owns the socket exclusively, lending it
// to the Kermit Engine or External Relay only for the duration of a
// transfer (§5).
type Loop struct {
	socket net.Conn
	conn   *telnet.Connection
	det    *detect.Engine
	sup    *transfer.Supervisor
	disp   Dispatcher
	logger *slog.Logger

	mode Mode

	// Stdin feeds the escape codec toward the socket in CLIENT mode.
	StdinEscape *telnet.EscapeCodec
}

// NewLoop wires a Loop to an already-negotiated Connection and socket.
func NewLoop(socket net.Conn, conn *telnet.Connection, det *detect.Engine, sup *transfer.Supervisor, disp Dispatcher, logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		socket:      socket,
		conn:        conn,
		det:         det,
		sup:         sup,
		disp:        disp,
		logger:      logger,
		mode:        ModeClient,
		StdinEscape: telnet.NewEscapeCodec(),
	}
}

// Mode reports the Loop's current gate position.
func (l *Loop) Mode() Mode { return l.mode }

const consoleEscapeByte = 0x1D

// Run is the dispatch point: it multiplexes stdin and socket reads
// over two goroutines feeding one select, matching §5's
// single-dispatch-point model while using Go's native channel
// primitives instead of raw fd polling (a goroutine-per-source is the
// idiomatic Go rendering of "readiness multiplexing").
func (l *Loop) Run(ctx context.Context, stdin io.Reader) error {
	socketCh := make(chan []byte, 1)
	socketErrCh := make(chan error, 1)
	go readLoop(l.socket, socketCh, socketErrCh)

	stdinCh := make(chan []byte, 1)
	stdinErrCh := make(chan error, 1)
	go readLoop(stdin, stdinCh, stdinErrCh)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case data := <-socketCh:
			if err := l.handleSocket(ctx, data); err != nil {
				return err
			}

		case err := <-socketErrCh:
			return err

		case data := <-stdinCh:
			if l.mode == ModeTransfer {
				continue // §4.J: stdin is ignored during TRANSFER
			}
			if err := l.handleStdin(data); err != nil {
				return err
			}

		case err := <-stdinErrCh:
			if err == io.EOF {
				return nil
			}
			return err
		}
	}
}

func readLoop(r io.Reader, out chan<- []byte, errOut chan<- error) {
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			out <- chunk
		}
		if err != nil {
			errOut <- err
			return
		}
	}
}

// handleSocket feeds inbound bytes to the Framer, forwards replies,
// lets the detectors observe clean data outside TRANSFER mode, and
// starts a transfer when a detector fires.
func (l *Loop) handleSocket(ctx context.Context, data []byte) error {
	if l.mode == ModeTransfer {
		// The engine/relay itself owns the socket during a transfer; the
		// Loop must not consume bytes here (§5 ordering).
		return nil
	}

	clean, outbound := l.conn.Feed(data)
	if len(outbound) > 0 {
		if _, err := l.socket.Write(outbound); err != nil {
			return err
		}
	}
	if len(clean) == 0 {
		return nil
	}

	if hit := l.det.Feed(clean, time.Now()); hit != nil {
		return l.startDetectedTransfer(ctx, hit)
	}

	// CLIENT mode: clean data is terminal output (out of scope to
	// render here — the console/terminal surface is external).
	return nil
}

func (l *Loop) handleStdin(data []byte) error {
	for _, b := range data {
		if l.mode == ModeClient && b == consoleEscapeByte {
			l.mode = ModeConsole
		}
	}

	if l.mode == ModeConsole {
		// Command buffer editing/dispatch belongs to the external REPL;
		// the Loop only recognizes the mode-entry byte. Bytes typed in
		// CONSOLE mode are dropped here: they are neither accumulated
		// nor passed to the Dispatcher (§1).
		return nil
	}

	escaped := l.StdinEscape.Escape(data)
	_, err := l.socket.Write(escaped)
	return err
}

func (l *Loop) startDetectedTransfer(ctx context.Context, hit *detect.Hit) error {
	proto, ok := transfer.ForKind(hit.Kind.String())
	if !ok {
		return nil
	}
	return l.RunExternalTransfer(ctx, proto, hit.Direction == detect.DirRecvFromUs, "")
}

// RunExternalTransfer performs the full Transfer Supervisor
// entry/relay/exit sequence for a ZMODEM/XMODEM/YMODEM transfer
// (§4.G, §4.I).
func (l *Loop) RunExternalTransfer(ctx context.Context, proto transfer.ExternalProtocol, send bool, path string) error {
	l.mode = ModeTransfer
	defer func() { l.mode = ModeClient }()

	if err := l.sup.Enter(transfer.ProtoForName(proto.Name, send), true); err != nil {
		return err
	}
	defer l.sup.Exit()

	var cmd *exec.Cmd
	if send {
		args := append([]string{}, proto.SendArgs...)
		if path != "" {
			args = append(args, path)
		}
		cmd = exec.CommandContext(ctx, proto.SendCommand, args...)
	} else {
		cmd = exec.CommandContext(ctx, proto.RecvCommand, proto.RecvArgs...)
	}

	relay := transfer.NewRelay(l.conn, l.socket, l.logger)
	return relay.Run(cmd, &l.sup.State)
}

// RunKermitTransfer hands the socket to the Kermit Engine for the
// duration of one transfer (§4.G step 5, dispatch to H).
func (l *Loop) RunKermitTransfer(ctx context.Context, sess *kermit.Session, send bool, info kermit.FileInfo, src kermit.FileSource, open func(kermit.FileInfo) (kermit.FileSink, error)) error {
	l.mode = ModeTransfer
	defer func() { l.mode = ModeClient }()

	proto := transfer.ProtoKermitRecv
	if send {
		proto = transfer.ProtoKermitSend
	}
	if err := l.sup.Enter(proto, false); err != nil {
		return err
	}
	defer l.sup.Exit()

	if send {
		return sess.Send(ctx, info, src)
	}
	_, err := sess.Receive(ctx, open)
	return err
}
