package telnet

import "testing"

func TestEscapeCodecRoundTrip(t *testing.T) {
	enc := NewEscapeCodec()
	dec := NewEscapeCodec()

	payload := []byte{0x01, 0xFF, 0x02, 0xFF, 0xFF, 0x03}
	escaped := enc.Escape(payload)

	got, desync := dec.Unescape(escaped)
	if desync {
		t.Fatal("round trip of a well-formed escape must not desync")
	}
	if string(got) != string(payload) {
		t.Fatalf("got %X, want %X", got, payload)
	}
}

func TestEscapeCodecUnescapeSplitAcrossCalls(t *testing.T) {
	dec := NewEscapeCodec()

	first, desync := dec.Unescape([]byte{0x01, IAC})
	if desync {
		t.Fatal("a trailing unmatched IAC is not itself a desync until resolved")
	}
	if string(first) != string([]byte{0x01}) {
		t.Fatalf("first = %X, want [01]", first)
	}

	second, desync := dec.Unescape([]byte{IAC, 0x02})
	if desync {
		t.Fatal("IAC IAC across a call boundary must still collapse to one 0xFF")
	}
	if string(second) != string([]byte{0xFF, 0x02}) {
		t.Fatalf("second = %X, want [FF 02]", second)
	}
}

func TestEscapeCodecUnmatchedIACDiscardsBothBytesAndSignalsDesync(t *testing.T) {
	dec := NewEscapeCodec()

	out, desync := dec.Unescape([]byte{0x01, IAC, 0xF4, 0x02})
	if !desync {
		t.Fatal("IAC followed by a non-IAC byte must report desync")
	}
	want := []byte{0x01, 0x02}
	if string(out) != string(want) {
		t.Fatalf("out = %X, want %X (both bytes of the unmatched pair discarded)", out, want)
	}
}

func TestEscapeCodecResetClearsPendingIAC(t *testing.T) {
	dec := NewEscapeCodec()
	dec.Unescape([]byte{IAC})
	dec.Reset()

	out, desync := dec.Unescape([]byte{0x02, 0xFF, 0xFF})
	if desync {
		t.Fatal("Reset must drop the carried pendingFF bit")
	}
	if string(out) != string([]byte{0x02, 0xFF}) {
		t.Fatalf("out = %X, want [02 FF]", out)
	}
}
