package telnet

import "log/slog"

// Negotiator implements RFC 855 state-change discipline for WILL/WONT/
// DO/DONT events the Framer delivers (§4.C). It never blocks and never
// fails on its own account; send errors are the caller's problem to
// surface as an Io error.
type Negotiator struct {
	opts   *Options
	logger *slog.Logger

	// Options this client will itself enable when the remote asks
	// ("local" options, negotiated via WILL/WONT from us).
	localSupported map[byte]bool
	// Options this client will let the remote enable ("remote"
	// options, negotiated via DO/DONT from us).
	remoteSupported map[byte]bool
}

// NewNegotiator returns a Negotiator supporting the option sets named
// in spec.md §4.C: local {BINARY, SGA, TTYPE, NAWS, TSPEED, ENVIRON,
// LINEMODE}, remote {BINARY, SGA, ECHO}.
func NewNegotiator(opts *Options, logger *slog.Logger) *Negotiator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Negotiator{
		opts:   opts,
		logger: logger,
		localSupported: map[byte]bool{
			OptBinary: true, OptSGA: true, OptTType: true,
			OptNAWS: true, OptTSpeed: true, OptEnviron: true, OptLinemode: true,
		},
		remoteSupported: map[byte]bool{
			OptBinary: true, OptSGA: true, OptEcho: true,
		},
	}
}

// Reply is an outbound IAC command pair this client owes the peer in
// response to a negotiation event.
type Reply struct {
	Command byte
	Option  byte
}

// Encode renders a Reply as the 3-byte IAC sequence.
func (r Reply) Encode() []byte { return []byte{IAC, r.Command, r.Option} }

// Handle processes one negotiation event and returns the replies owed:
// zero or one.
func (n *Negotiator) Handle(ev Event) []Reply {
	if ev.Kind != EventNegotiation {
		return nil
	}

	switch ev.Command {
	case WILL:
		return n.handleWillDo(ev.Option, true)
	case DO:
		return n.handleWillDo(ev.Option, false)
	case WONT:
		return n.handleWontDont(ev.Option, true)
	case DONT:
		return n.handleWontDont(ev.Option, false)
	}
	return nil
}

// handleWillDo processes a WILL (isWill=true, peer proposes to enable
// a feature on its side, tracked as our "remote" bit) or a DO
// (isWill=false, peer asks us to enable a feature, tracked as our
// "local" bit).
func (n *Negotiator) handleWillDo(opt byte, isWill bool) []Reply {
	if isWill {
		if !n.remoteSupported[opt] {
			return []Reply{{Command: DONT, Option: opt}}
		}
		if n.opts.Remote(opt) {
			return nil // already enabled: no duplicate confirmation (§8)
		}
		n.opts.SetRemote(opt, true)
		return []Reply{{Command: DO, Option: opt}}
	}

	if !n.localSupported[opt] {
		return []Reply{{Command: WONT, Option: opt}}
	}
	if n.opts.Local(opt) {
		return nil
	}
	n.opts.SetLocal(opt, true)
	return []Reply{{Command: WILL, Option: opt}}
}

// handleWontDont processes a WONT (isWont=true, peer disables a
// feature on its side) or a DONT (isWont=false, peer asks us to
// disable a feature).
func (n *Negotiator) handleWontDont(opt byte, isWont bool) []Reply {
	if isWont {
		if !n.opts.Remote(opt) {
			return nil
		}
		n.opts.SetRemote(opt, false)
		return []Reply{{Command: DONT, Option: opt}}
	}

	if !n.opts.Local(opt) {
		return nil
	}
	n.opts.SetLocal(opt, false)
	return []Reply{{Command: WONT, Option: opt}}
}

// RequestBinary asks the peer to negotiate BINARY in both directions,
// used by the Transfer Supervisor before a transfer (§4.G step 2). It
// returns the IAC bytes to send; it does not itself wait for a reply.
func (n *Negotiator) RequestBinary() []byte {
	return append(Reply{Command: WILL, Option: OptBinary}.Encode(),
		Reply{Command: DO, Option: OptBinary}.Encode()...)
}
