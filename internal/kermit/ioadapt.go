package kermit

import (
	"bufio"
	"fmt"
	"net"
	"time"

	"github.com/onionmixer/otelnet/internal/oerr"
	"github.com/onionmixer/otelnet/internal/telnet"
	"github.com/onionmixer/otelnet/internal/transfer"
)

// SocketIO is the production IO adapter: it drains the Transfer
// Supervisor's Pending Bytes queue before touching the socket, strips
// SOH/EOM framing, and runs the Escape Codec over everything crossing
// the wire in either direction (§4.G "pending-byte handoff", §4.H
// rxd/txd). session_test.go's pipeIO is its net.Pipe-based test
// counterpart; this type is what cmd/otelnet wires to a live
// connection.
type SocketIO struct {
	socket net.Conn
	r      *bufio.Reader

	pending *transfer.PendingQueue
	unesc   *telnet.EscapeCodec
	esc     *telnet.EscapeCodec
}

// NewSocketIO binds an adapter to the live socket and the Pending
// Bytes queue the Supervisor filled during its drain.
func NewSocketIO(socket net.Conn, pending *transfer.PendingQueue) *SocketIO {
	return &SocketIO{
		socket:  socket,
		r:       bufio.NewReaderSize(socket, 8192),
		pending: pending,
		unesc:   telnet.NewEscapeCodec(),
		esc:     telnet.NewEscapeCodec(),
	}
}

// IO returns the callback set the engine drives.
func (s *SocketIO) IO() IO {
	return IO{Rxd: s.rxd, Txd: s.txd, Ixd: s.ixd}
}

// rxd implements §4.H's rxd contract: pending bytes first, then the
// socket; SOH/EOM stripped and binary-mode escaping undone before the
// packet body reaches the engine. An IAC-non-IAC pair means the peer
// left BINARY mode mid-transfer, which must abort the run rather than
// be silently absorbed (§8 testable property #7).
func (s *SocketIO) rxd(timeoutSeconds int) ([]byte, error) {
	var raw []byte
	if s.pending.Len() > 0 {
		raw = s.pending.Drain(s.pending.Len())
	} else {
		s.socket.SetReadDeadline(time.Now().Add(time.Duration(timeoutSeconds) * time.Second))
		buf := make([]byte, shortPacketMax*2+DefaultMaxData)
		n, err := s.r.Read(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				return nil, ErrRxdTimeout
			}
			return nil, err
		}
		raw = buf[:n]
	}

	clean, desync := s.unesc.Unescape(raw)
	if desync {
		return nil, oerr.ErrBinaryModeLost
	}
	return StripFraming(clean), nil
}

// txd escapes a framed packet and writes it in full, looping over
// short writes rather than surfacing them to the engine.
func (s *SocketIO) txd(framed []byte) error {
	escaped := s.esc.Escape(framed)
	for len(escaped) > 0 {
		n, err := s.socket.Write(escaped)
		if err != nil {
			return fmt.Errorf("kermit: txd write: %w", err)
		}
		escaped = escaped[n:]
	}
	return nil
}

// ixd peeks at the buffered reader without consuming anything, using
// an immediate read deadline to turn a blocking Read into a
// non-blocking probe. Not presently consulted by the sender's
// stop-and-wait loop (window.go tracks in-flight packets but pipelined
// sends are a deferred half of this component, per DESIGN.md), kept
// so the interface and a future pipelined sender agree on its shape.
func (s *SocketIO) ixd() bool {
	if s.pending.Len() > 0 {
		return true
	}
	s.socket.SetReadDeadline(time.Now())
	_, err := s.r.Peek(1)
	s.socket.SetReadDeadline(time.Time{})
	return err == nil
}
