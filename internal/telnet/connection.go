package telnet

import "log/slog"

// Connection bundles the Option Registry, Framer, Negotiator and
// Subnegotiation Handler into the single stateful object the Session
// Loop drives (§3 Connection State). It owns no socket: Feed takes
// whatever bytes arrived and returns clean application data plus the
// protocol bytes owed back to the peer, in one combined buffer ready
// to write.
type Connection struct {
	Opts      *Options
	framer    *Framer
	negotiate *Negotiator
	subneg    *SubnegHandler
	logger    *slog.Logger
}

// NewConnection returns a Connection with all sub-components freshly
// initialized and nothing enabled yet.
func NewConnection(logger *slog.Logger) *Connection {
	if logger == nil {
		logger = slog.Default()
	}
	opts := NewOptions()
	return &Connection{
		Opts:      opts,
		framer:    NewFramer(opts, logger),
		negotiate: NewNegotiator(opts, logger),
		subneg:    NewSubnegHandler(opts, logger),
		logger:    logger,
	}
}

// Feed processes one chunk of inbound bytes and returns the clean
// application data plus every protocol reply byte owed back to the
// peer (negotiation replies, subnegotiation answers, AYT
// acknowledgement), concatenated in the order they were produced.
func (c *Connection) Feed(data []byte) (clean []byte, outbound []byte) {
	rawClean, events, replies := c.framer.ProcessInbound(data)
	clean = rawClean
	outbound = append(outbound, replies...)

	for _, ev := range events {
		switch ev.Kind {
		case EventNegotiation:
			for _, r := range c.negotiate.Handle(ev) {
				outbound = append(outbound, r.Encode()...)
			}
		case EventSubnegotiation:
			outbound = append(outbound, c.subneg.Handle(ev)...)
		case EventControl:
			c.logger.Debug("control byte", "cmd", ev.Control)
		}
	}
	return clean, outbound
}

// SetWindowSize updates the size the Subnegotiation Handler reports on
// the next NAWS exchange and returns the NAWS bytes to send now if the
// option is currently active locally.
func (c *Connection) SetWindowSize(width, height uint16) []byte {
	c.subneg.WindowWidth, c.subneg.WindowHeight = width, height
	if !c.Opts.Local(OptNAWS) {
		return nil
	}
	return c.subneg.NAWS()
}

// RequestBinary returns the WILL/DO BINARY bytes the Transfer
// Supervisor sends to begin entering binary mode.
func (c *Connection) RequestBinary() []byte {
	return c.negotiate.RequestBinary()
}
