// Package telnet implements the RFC 854 client-side protocol state
// machine: option registry, byte framer, option negotiator,
// subnegotiation handler and the IAC escape codec. It never performs
// socket I/O itself; callers (internal/session) feed it bytes and
// drain the events and replies it produces.
package telnet

// Commands (RFC 854).
const (
	SE   byte = 240 // Subnegotiation end
	NOP  byte = 241
	DM   byte = 242
	BRK  byte = 243
	IP   byte = 244
	AO   byte = 245
	AYT  byte = 246
	EC   byte = 247
	EL   byte = 248
	GA   byte = 249
	SB   byte = 250 // Subnegotiation begin
	WILL byte = 251
	WONT byte = 252
	DO   byte = 253
	DONT byte = 254
	IAC  byte = 255 // Interpret As Command
	EOR  byte = 239
)

// Options this client understands, local and remote sides alike.
const (
	OptBinary   byte = 0
	OptEcho     byte = 1
	OptSGA      byte = 3
	OptTSpeed   byte = 32
	OptLFlow    byte = 33
	OptTType    byte = 24
	OptNAWS     byte = 31
	OptLinemode byte = 34
	OptEnviron  byte = 36
)

// TTYPE subnegotiation codes (RFC 1091).
const (
	TTypeIs   byte = 0
	TTypeSend byte = 1
)

// ENVIRON subnegotiation codes (RFC 1572).
const (
	EnvIs      byte = 0
	EnvSend    byte = 1
	EnvVar     byte = 0
	EnvValue   byte = 1
	EnvEsc     byte = 2
	EnvUserVar byte = 3
)

// LINEMODE subnegotiation codes (RFC 1184).
const (
	LmMode        byte = 1
	LmForwardmask byte = 2
	LmSLC         byte = 3
)

// LINEMODE MODE bits.
const (
	ModeEdit    byte = 0x01
	ModeTrapSig byte = 0x02
	ModeAck     byte = 0x04
	ModeSoftTab byte = 0x08
	ModeLitEcho byte = 0x10
)

// maxSubnegBuffer bounds the scratch subnegotiation buffer per §3/§9:
// a 4 KiB cap with a soft log-and-reject on overflow, never silent
// truncation.
const maxSubnegBuffer = 4096
