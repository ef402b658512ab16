package kermit

import (
	"bytes"
	"testing"
)

func TestEncodeDecodeShortPacket(t *testing.T) {
	p := Packet{Seq: 5, Type: TypeData, Data: []byte("hello, kermit")}
	wire := Encode(p, BCT3)

	if wire[0] != soh {
		t.Fatalf("expected leading SOH, got %02x", wire[0])
	}
	if wire[len(wire)-1] != eomCR {
		t.Fatalf("expected trailing EOM, got %02x", wire[len(wire)-1])
	}

	stripped := StripFraming(wire)
	got, err := Decode(stripped, BCT3)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Seq != p.Seq || got.Type != p.Type || !bytes.Equal(got.Data, p.Data) {
		t.Fatalf("round trip mismatch: got %+v", got)
	}
}

func TestEncodeDecodeLongPacket(t *testing.T) {
	data := make([]byte, 4096)
	for i := range data {
		data[i] = byte(i % 251)
	}
	p := Packet{Seq: 12, Type: TypeData, Data: data}
	wire := Encode(p, BCT3)

	stripped := StripFraming(wire)
	got, err := Decode(stripped, BCT3)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !bytes.Equal(got.Data, data) {
		t.Fatal("long packet data round trip mismatch")
	}
}

func TestDecodeRejectsCorruption(t *testing.T) {
	p := Packet{Seq: 1, Type: TypeFile, Data: []byte("file.txt")}
	wire := Encode(p, BCT1)
	stripped := StripFraming(wire)
	stripped[len(stripped)-1] ^= 0xff // corrupt the check byte

	if _, err := Decode(stripped, BCT1); err == nil {
		t.Fatal("expected checksum mismatch error")
	}
}

func TestStripFramingHandlesBothEomVariants(t *testing.T) {
	for _, eom := range []byte{eomCR, eomLF} {
		raw := []byte{soh, 'a', 'b', eom}
		got := StripFraming(raw)
		if !bytes.Equal(got, []byte{'a', 'b'}) {
			t.Fatalf("StripFraming(%v) = %v", raw, got)
		}
	}
}
