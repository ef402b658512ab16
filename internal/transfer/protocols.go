package transfer

// ExternalProtocol names one of the protocols the Transfer Supervisor
// hands off to an external subprocess instead of the Kermit Engine.
// The ZMODEM/XMODEM/YMODEM wire formats themselves are out of scope
// (§1 Non-goals); this package only knows how to launch and relay to
// the programs that speak them.
type ExternalProtocol struct {
	Name        string
	SendCommand string
	RecvCommand string
	SendArgs    []string
	RecvArgs    []string
}

var (
	Zmodem = ExternalProtocol{
		Name:        "ZMODEM",
		SendCommand: "sz",
		RecvCommand: "rz",
		SendArgs:    []string{"-b"},
		RecvArgs:    []string{"-b"},
	}
	Ymodem = ExternalProtocol{
		Name:        "YMODEM",
		SendCommand: "sb",
		RecvCommand: "rb",
		SendArgs:    []string{"-k"},
		RecvArgs:    []string{"-k"},
	}
	Xmodem = ExternalProtocol{
		Name:        "XMODEM",
		SendCommand: "sx",
		RecvCommand: "rx",
		SendArgs:    []string{"-k", "-c"},
		RecvArgs:    []string{"-k", "-c"},
	}
)

// ForKind maps a detect.Kind-equivalent protocol label to its
// ExternalProtocol definition.
func ForKind(name string) (ExternalProtocol, bool) {
	switch name {
	case "zmodem":
		return Zmodem, true
	case "xmodem":
		return Xmodem, true
	case "ymodem":
		return Ymodem, true
	default:
		return ExternalProtocol{}, false
	}
}

// ProtoForName maps an ExternalProtocol's Name and direction to the
// matching Protocol label, for State/metrics (§4.I; the Session Loop's
// RunExternalTransfer hands this to Supervisor.Enter instead of a
// single hardcoded label).
func ProtoForName(name string, send bool) Protocol {
	switch name {
	case "ZMODEM":
		if send {
			return ProtoZmodemSend
		}
		return ProtoZmodemRecv
	case "XMODEM":
		if send {
			return ProtoXmodemSend
		}
		return ProtoXmodemRecv
	case "YMODEM":
		if send {
			return ProtoYmodemSend
		}
		return ProtoYmodemRecv
	default:
		return ProtoNone
	}
}
