package kermit

import "fmt"

// longPacketThreshold is the short-packet LEN field's ceiling: once
// SEQ+TYPE+DATA+CHECK would need a LEN value above this, the packet
// switches to the extended-length (long packet) encoding.
const longPacketThreshold = 94

// Packet is one decoded Kermit packet, SOH and EOM already stripped
// by the I/O layer (§4.H "Packet framing on the wire").
type Packet struct {
	Seq  byte // 0..63
	Type byte
	Data []byte
	BCT  int // which block check this packet was verified/will be sent with
}

// Encode renders p as the on-wire byte sequence including the leading
// SOH and trailing EOM. bct selects the block check: BCT1 for the
// initial S/Y handshake, BCT3 for everything after (§4.H "Block
// check").
func Encode(p Packet, bct int) []byte {
	body := encodeBody(p, bct)

	out := make([]byte, 0, len(body)+2)
	out = append(out, soh)
	out = append(out, body...)
	out = append(out, eomCR)
	return out
}

func encodeBody(p Packet, bct int) []byte {
	checkLen := 1
	if bct == BCT3 {
		checkLen = 3
	}

	dataLen := len(p.Data)
	shortLen := 1 + 1 + dataLen + checkLen // SEQ + TYPE + DATA + CHECK

	if shortLen <= longPacketThreshold {
		header := []byte{toChar(byte(shortLen)), toChar(p.Seq & 0x3f), p.Type}
		return finishPacket(header, p.Data, bct)
	}

	// Long packet: LEN=0 signals extension; two more bytes carry the
	// high/low 7 bits of the actual data length (up to 4096, per
	// DefaultMaxData), each +32 encoded modulo 128, so a 7-bit value of
	// 95 or more encodes to a non-printable byte.
	lenHi := toChar(byte((dataLen >> 7) & 0x7f))
	lenLo := toChar(byte(dataLen & 0x7f))
	header := []byte{toChar(0), toChar(p.Seq & 0x3f), p.Type, lenHi, lenLo}
	return finishPacket(header, p.Data, bct)
}

func finishPacket(header, data []byte, bct int) []byte {
	out := append(append([]byte{}, header...), data...)
	checked := out[1:] // everything after LEN

	switch bct {
	case BCT1:
		out = append(out, checksumType1(checked))
	default:
		c := checksumType3(checked)
		out = append(out, c[0], c[1], c[2])
	}
	return out
}

// Decode parses body (SOH and EOM already stripped) into a Packet,
// verifying its block check. bct must match what the sender used
// (negotiated during S-init; BCT1 for S/Y, BCT3 thereafter).
func Decode(body []byte, bct int) (Packet, error) {
	if len(body) < 3 {
		return Packet{}, fmt.Errorf("kermit: packet too short (%d bytes)", len(body))
	}

	lenField := unCharFull(body[0])
	seq := unCharSeq(body[1])
	typ := body[2]

	rest := body[3:]
	var data []byte

	if lenField == 0 {
		if len(rest) < 2 {
			return Packet{}, fmt.Errorf("kermit: truncated long-packet length extension")
		}
		hi := unCharFull(rest[0])
		lo := unCharFull(rest[1])
		dataLen := int(hi)<<7 | int(lo)
		rest = rest[2:]
		if dataLen > len(rest) {
			return Packet{}, fmt.Errorf("kermit: long packet length %d exceeds available %d", dataLen, len(rest))
		}
		data = rest[:dataLen]
		rest = rest[dataLen:]
	} else {
		checkLen := 1
		if bct == BCT3 {
			checkLen = 3
		}
		dataLen := int(lenField) - 1 - 1 - checkLen // minus SEQ, TYPE, CHECK
		if dataLen < 0 || dataLen > len(rest) {
			return Packet{}, fmt.Errorf("kermit: inconsistent short-packet length field")
		}
		data = rest[:dataLen]
		rest = rest[dataLen:]
	}

	checked := body[1 : len(body)-len(rest)]
	switch bct {
	case BCT1:
		if len(rest) < 1 {
			return Packet{}, fmt.Errorf("kermit: missing type-1 check byte")
		}
		if !verifyType1(checked, rest[0]) {
			return Packet{}, fmt.Errorf("kermit: type-1 checksum mismatch")
		}
	default:
		if len(rest) < 3 {
			return Packet{}, fmt.Errorf("kermit: missing type-3 check bytes")
		}
		var check [3]byte
		copy(check[:], rest[:3])
		if !verifyType3(checked, check) {
			return Packet{}, fmt.Errorf("kermit: crc-16 checksum mismatch")
		}
	}

	return Packet{Seq: seq, Type: typ, Data: data, BCT: bct}, nil
}

// StripFraming removes a leading SOH and a single trailing EOM
// (0x0D or 0x0A) from raw bytes read off the wire, per §4.H's I/O
// layer contract.
func StripFraming(raw []byte) []byte {
	if len(raw) > 0 && raw[0] == soh {
		raw = raw[1:]
	}
	if len(raw) > 0 {
		last := raw[len(raw)-1]
		if last == eomCR || last == eomLF {
			raw = raw[:len(raw)-1]
		}
	}
	return raw
}
