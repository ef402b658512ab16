// Package transfer implements the Transfer Supervisor (§4.G) and the
// External Relay (§4.I): the entry/exit choreography shared by every
// file transfer, and the exec-a-subprocess path used for ZMODEM,
// XMODEM and YMODEM (whose wire protocols are treated as opaque and
// owned by the external program).
package transfer

import (
	"sync/atomic"
	"time"

	"github.com/onionmixer/otelnet/internal/telnet"
)

// Protocol names which transfer engine is driving the socket.
type Protocol int

const (
	ProtoNone Protocol = iota
	ProtoZmodemSend
	ProtoZmodemRecv
	ProtoXmodemSend
	ProtoXmodemRecv
	ProtoYmodemSend
	ProtoYmodemRecv
	ProtoKermitSend
	ProtoKermitRecv
)

// String names a Protocol for logging and metric labels.
func (p Protocol) String() string {
	switch p {
	case ProtoZmodemSend:
		return "zmodem_send"
	case ProtoZmodemRecv:
		return "zmodem_recv"
	case ProtoXmodemSend:
		return "xmodem_send"
	case ProtoXmodemRecv:
		return "xmodem_recv"
	case ProtoYmodemSend:
		return "ymodem_send"
	case ProtoYmodemRecv:
		return "ymodem_recv"
	case ProtoKermitSend:
		return "kermit_send"
	case ProtoKermitRecv:
		return "kermit_recv"
	default:
		return "none"
	}
}

// State tracks one transfer's lifecycle and the option bits saved on
// entry for restoration on exit (§3 Transfer State, §4.G).
type State struct {
	Active         bool
	Protocol       Protocol
	StartTime      time.Time
	LastDataTime   time.Time
	AutoTriggered  bool
	Filename       string
	BytesTransferred uint64
	TotalBytes       uint64

	Saved telnet.Snapshot

	cancel atomic.Bool
}

// Enter marks a transfer active and records its start.
func (s *State) Enter(proto Protocol, saved telnet.Snapshot, auto bool) {
	s.Active = true
	s.Protocol = proto
	s.StartTime = time.Now()
	s.LastDataTime = s.StartTime
	s.AutoTriggered = auto
	s.Saved = saved
	s.BytesTransferred = 0
	s.TotalBytes = 0
	s.cancel.Store(false)

	transfersStarted.WithLabelValues(proto.String(), triggerLabel(auto)).Inc()
	activeTransfers.Inc()
}

// Exit clears transfer state back to idle.
func (s *State) Exit() {
	transfersFinished.WithLabelValues(s.Protocol.String()).Inc()
	activeTransfers.Dec()

	s.Active = false
	s.Protocol = ProtoNone
	s.Filename = ""
}

// RequestCancel sets the atomic cancellation flag (§5); safe to call
// from a signal handler.
func (s *State) RequestCancel() { s.cancel.Store(true) }

// CancelRequested polls the cancellation flag.
func (s *State) CancelRequested() bool { return s.cancel.Load() }

// ClearCancel resets the flag on transfer exit (§4.G exit step 4).
func (s *State) ClearCancel() { s.cancel.Store(false) }

// TimedOut reports whether the full-transfer deadline has elapsed.
func (s *State) TimedOut(deadline time.Duration) bool {
	return time.Since(s.StartTime) > deadline
}

// Touch records that data moved, resetting the inactivity clock.
func (s *State) Touch(n uint64) {
	s.LastDataTime = time.Now()
	s.BytesTransferred += n
	transferBytes.WithLabelValues(s.Protocol.String()).Add(float64(n))
}
