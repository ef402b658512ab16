package transfer

import (
	"fmt"
	"log/slog"
	"net"
	"os/exec"
	"time"

	"github.com/google/uuid"

	"github.com/onionmixer/otelnet/internal/oerr"
	"github.com/onionmixer/otelnet/internal/telnet"
)

const (
	relayChunk       = 4096
	relayDrainWindow = 3 * time.Second
	relayReadTick    = 50 * time.Millisecond
	childKillGrace   = 2 * time.Second
	relayTimeout     = 300 * time.Second
)

// Relay drives one external-protocol transfer (§4.I): socket bytes go
// through the Framer so mid-transfer IAC commands are still honored,
// child output goes through the escape codec before hitting the wire.
type Relay struct {
	conn   *telnet.Connection
	socket net.Conn
	escape *telnet.EscapeCodec
	logger *slog.Logger

	// ID correlates one relay run's log lines; useful once a session
	// juggles several transfer attempts.
	ID uuid.UUID
}

// NewRelay returns a Relay bound to the shared Connection and socket.
func NewRelay(conn *telnet.Connection, socket net.Conn, logger *slog.Logger) *Relay {
	if logger == nil {
		logger = slog.Default()
	}
	return &Relay{
		conn:   conn,
		socket: socket,
		escape: telnet.NewEscapeCodec(),
		logger: logger,
		ID:     uuid.New(),
	}
}

// Run launches cmd under a PTY and relays between the socket and the
// child until the child exits, BINARY mode is lost mid-transfer and
// the drain window elapses, cancellation is requested, or the
// relay-wide timeout is hit.
func (r *Relay) Run(cmd *exec.Cmd, st *State) error {
	child, err := startUnderPTY(cmd)
	if err != nil {
		return fmt.Errorf("start %s: %w", cmd.Path, err)
	}
	defer child.Close()

	r.logger.Info("relay started", "id", r.ID, "cmd", cmd.Path)

	draining := false
	drainDeadline := time.Time{}
	deadline := time.Now().Add(relayTimeout)

	socketBuf := make([]byte, relayChunk)
	childBuf := make([]byte, relayChunk)

	for {
		if st.CancelRequested() {
			child.Terminate(childKillGrace)
			return oerr.ErrUserCancel
		}
		if time.Now().After(deadline) {
			child.Terminate(childKillGrace)
			return oerr.ErrTransferTimeout
		}
		if draining && time.Now().After(drainDeadline) {
			return nil
		}

		if !draining {
			r.socket.SetReadDeadline(time.Now().Add(relayReadTick))
			n, err := r.socket.Read(socketBuf)
			if n > 0 {
				clean, outbound := r.conn.Feed(socketBuf[:n])
				if len(outbound) > 0 {
					r.socket.Write(outbound)
				}
				if len(clean) > 0 {
					if _, werr := child.Write(clean); werr != nil {
						return fmt.Errorf("write to child: %w", werr)
					}
					st.Touch(uint64(len(clean)))
				}
				if !r.conn.Opts.Binary {
					draining = true
					drainDeadline = time.Now().Add(relayDrainWindow)
				}
			}
			if err != nil {
				if !isTimeoutErr(err) {
					draining = true
					drainDeadline = time.Now().Add(relayDrainWindow)
				}
			}
		}

		child.ptmx.SetReadDeadline(time.Now().Add(relayReadTick))
		n, err := child.Read(childBuf)
		if n > 0 {
			escaped := r.escape.Escape(childBuf[:n])
			if _, werr := r.socket.Write(escaped); werr != nil {
				return fmt.Errorf("write to socket: %w", werr)
			}
			st.Touch(uint64(n))
		}
		if err != nil {
			if !isTimeoutErr(err) {
				return child.Wait()
			}
		}
	}
}

func isTimeoutErr(err error) bool {
	ne, ok := err.(net.Error)
	return ok && ne.Timeout()
}
