package telnet

import "log/slog"

// ttypeCycle is the fixed terminal-type sequence this client offers on
// successive TTYPE SEND requests, per spec.md §4.D: it repeats the
// last entry once exhausted rather than erroring.
var ttypeCycle = []string{"XTERM", "VT100", "ANSI"}

// SubnegHandler answers TTYPE/NAWS/TSPEED/ENVIRON/LINEMODE
// subnegotiations (§4.D). Like the Negotiator it is pure: it consumes
// an Event and the current window size/env values and returns the
// bytes to send, leaving socket I/O to the caller.
type SubnegHandler struct {
	opts   *Options
	logger *slog.Logger

	ttypeIndex int

	// WindowSize is polled at NAWS-reply time; the Session Loop keeps
	// it current from its own (out-of-scope) resize source.
	WindowWidth, WindowHeight uint16

	// Env values offered for ENVIRON SEND, keyed by variable name.
	Env map[string]string
}

// NewSubnegHandler returns a handler with an empty environment map.
func NewSubnegHandler(opts *Options, logger *slog.Logger) *SubnegHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SubnegHandler{opts: opts, logger: logger, Env: map[string]string{}}
}

// Handle processes one EventSubnegotiation and returns the IAC SB ...
// IAC SE reply, or nil if this sub-option needs no reply or isn't
// recognized.
func (s *SubnegHandler) Handle(ev Event) []byte {
	if ev.Kind != EventSubnegotiation {
		return nil
	}

	switch ev.SubOption {
	case OptTType:
		return s.handleTType(ev.SubData)
	case OptNAWS:
		// NAWS is sent by us unsolicited (on resize) or on enable; the
		// remote never subnegotiates it to us in practice, so there is
		// nothing here to answer. Kept for completeness/symmetry.
		return nil
	case OptTSpeed:
		return s.handleTSpeed(ev.SubData)
	case OptEnviron:
		return s.handleEnviron(ev.SubData)
	case OptLinemode:
		return s.handleLinemode(ev.SubData)
	default:
		s.logger.Debug("unrecognized subnegotiation", "option", ev.SubOption)
		return nil
	}
}

func wrapSB(opt byte, body ...byte) []byte {
	out := []byte{IAC, SB, opt}
	out = append(out, body...)
	out = append(out, IAC, SE)
	return out
}

// handleTType answers TTYPE SEND with IS <name>, cycling through
// ttypeCycle and holding on the last entry thereafter.
func (s *SubnegHandler) handleTType(data []byte) []byte {
	if len(data) == 0 || data[0] != TTypeSend {
		return nil
	}
	name := ttypeCycle[s.ttypeIndex]
	if s.ttypeIndex < len(ttypeCycle)-1 {
		s.ttypeIndex++
	}
	return wrapSB(OptTType, append([]byte{TTypeIs}, []byte(name)...)...)
}

// NAWS encodes the window size as four bytes, big-endian
// width then height (RFC 1073), IAC-escaped per byte since width or
// height may legitimately contain 0xFF.
func (s *SubnegHandler) NAWS() []byte {
	w, h := s.WindowWidth, s.WindowHeight
	body := []byte{byte(w >> 8), byte(w), byte(h >> 8), byte(h)}
	escaped := make([]byte, 0, len(body)*2)
	for _, b := range body {
		escaped = append(escaped, b)
		if b == IAC {
			escaped = append(escaped, IAC)
		}
	}
	return wrapSB(OptNAWS, escaped...)
}

// handleTSpeed answers TSPEED SEND with a fixed IS "38400,38400" (RFC
// 1079); this client is not attached to a real modem and reports a
// nominal terminal speed.
func (s *SubnegHandler) handleTSpeed(data []byte) []byte {
	if len(data) == 0 || data[0] != TTypeSend {
		return nil
	}
	return wrapSB(OptTSpeed, append([]byte{TTypeIs}, []byte("38400,38400")...)...)
}

// handleEnviron answers ENVIRON SEND with IS VAR=<name> VALUE=<val>
// for each variable in s.Env present in the request (or all of them,
// if the request lists none), per RFC 1572.
func (s *SubnegHandler) handleEnviron(data []byte) []byte {
	if len(data) == 0 || data[0] != EnvSend {
		return nil
	}
	requested := parseEnvRequest(data[1:])
	if len(requested) == 0 {
		for name := range s.Env {
			requested = append(requested, name)
		}
	}

	body := []byte{EnvIs}
	for _, name := range requested {
		val, ok := s.Env[name]
		if !ok {
			continue
		}
		body = append(body, EnvVar)
		body = append(body, []byte(name)...)
		body = append(body, EnvValue)
		body = append(body, []byte(val)...)
	}
	return wrapSB(OptEnviron, body...)
}

func parseEnvRequest(data []byte) []string {
	var names []string
	var cur []byte
	in := false
	for _, b := range data {
		switch b {
		case EnvVar, EnvUserVar:
			if in && len(cur) > 0 {
				names = append(names, string(cur))
			}
			cur = cur[:0]
			in = true
		default:
			if in {
				cur = append(cur, b)
			}
		}
	}
	if in && len(cur) > 0 {
		names = append(names, string(cur))
	}
	return names
}

// handleLinemode answers a MODE subnegotiation by recording the bits
// (so Options.LinemodeEdit updates) and, if ACK was not already set,
// echoing the mode back with ACK asserted (RFC 1184 §3).
func (s *SubnegHandler) handleLinemode(data []byte) []byte {
	if len(data) == 0 || data[0] != LmMode {
		return nil
	}
	if len(data) < 2 {
		return nil
	}
	mode := data[1]
	s.opts.SetLinemodeMode(mode)

	if mode&ModeAck != 0 {
		return nil
	}
	return wrapSB(OptLinemode, LmMode, mode|ModeAck)
}
