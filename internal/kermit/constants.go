// Package kermit implements the embedded Kermit file-transfer engine
// (spec.md §4.H): packet framing, block checks, sliding-window flow
// control, retry and timeout caps, and the I/O callback contract the
// Transfer Supervisor wires to the live socket.
package kermit

// Packet type bytes (the TYPE field, before +32 encoding).
const (
	TypeSend  byte = 'S' // send-init
	TypeAck   byte = 'Y'
	TypeNak   byte = 'N'
	TypeFile  byte = 'F' // file header
	TypeData  byte = 'D'
	TypeEOF   byte = 'Z' // end of file
	TypeEOT   byte = 'B' // end of transmission (break)
	TypeError byte = 'E'
	TypeAttr  byte = 'A' // file attributes
)

// Block check types (BCT), negotiated in the S-init exchange.
const (
	BCT1 = 1 // 6-bit modulo-64 checksum, one byte
	BCT3 = 3 // CRC-16-CCITT, three check characters
)

// Protocol parameters installed at engine init (§4.H "Protocol state
// machine"). rTimeout/sTimeout are set to 15s immediately after, since
// the zero-value struct would otherwise leave them at 0.
const (
	DefaultWindow   = 31
	DefaultMaxData  = 4096
	DefaultBCT      = BCT3
	DefaultRTimeout = 15 // seconds
	DefaultSTimeout = 15 // seconds

	maxConsecutiveNaks     = 10
	maxConsecutiveTimeouts = 5
	globalDeadlineSeconds  = 60

	shortPacketMax = 94 // classic Kermit single-byte LEN cap
)

// soh/eom are the packet delimiters stripped/added by the I/O layer,
// not part of the checksummed packet body.
const (
	soh     byte = 0x01
	eomCR   byte = 0x0D
	eomLF   byte = 0x0A
	ctlEsc  byte = '#'
	spaceFill = ' '
)

// toChar and unChar implement Kermit's +32 printable encoding. SEQ
// wraps modulo 64 on decode; LEN and the length-extension bytes use
// the full 7-bit range.
func toChar(b byte) byte     { return (b + 32) & 0x7f }
func unCharSeq(b byte) byte  { return (b - 32) & 0x3f }
func unCharFull(b byte) byte { return (b - 32) & 0x7f }
