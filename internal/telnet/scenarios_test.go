package telnet

import "testing"

// TestOptionLoopGuard is seed scenario 1: a peer that sends the same
// WILL twice must get exactly one DO back, never two (§8 "responds at
// most once per state change").
func TestOptionLoopGuard(t *testing.T) {
	c := NewConnection(nil)
	willEcho := []byte{IAC, WILL, OptEcho}

	_, out1 := c.Feed(willEcho)
	want := []byte{IAC, DO, OptEcho}
	if string(out1) != string(want) {
		t.Fatalf("first WILL ECHO: outbound = % X, want % X", out1, want)
	}

	_, out2 := c.Feed(willEcho)
	if len(out2) != 0 {
		t.Fatalf("second WILL ECHO: outbound = % X, want none", out2)
	}
}

// TestCRDisambiguation is seed scenario 2: a bare CR outside BINARY
// mode must be resolved against the byte that follows it. This table
// covers the NUL and LF cases of the Framer's stateSeenCR; the IAC
// case is TestCRDisambiguationReprocessesIntoNegotiation below.
func TestCRDisambiguation(t *testing.T) {
	cases := []struct {
		name      string
		in        []byte
		wantClean []byte
	}{
		{"CR NUL collapses to a lone CR", []byte{0x61, 0x0D, 0x00, 0x62}, []byte{0x61, 0x0D, 0x62}},
		{"CR LF passes through untouched", []byte{0x61, 0x0D, 0x0A, 0x62}, []byte{0x61, 0x0D, 0x0A, 0x62}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := NewConnection(nil)
			clean, _ := c.Feed(tc.in)
			if string(clean) != string(tc.wantClean) {
				t.Fatalf("clean = % X, want % X", clean, tc.wantClean)
			}
		})
	}
}

// TestCRDisambiguationReprocessesIntoNegotiation covers the third CR
// sub-case: CR followed by IAC is not a line terminator at all, so the
// Framer must emit the bare CR and reprocess the IAC byte as the start
// of a fresh command rather than swallowing it.
func TestCRDisambiguationReprocessesIntoNegotiation(t *testing.T) {
	c := NewConnection(nil)
	in := []byte{0x61, 0x0D, IAC, WILL, OptSGA}

	clean, out := c.Feed(in)

	wantClean := []byte{0x61, 0x0D}
	if string(clean) != string(wantClean) {
		t.Fatalf("clean = % X, want % X", clean, wantClean)
	}
	wantOut := []byte{IAC, DO, OptSGA}
	if string(out) != string(wantOut) {
		t.Fatalf("outbound = % X, want % X", out, wantOut)
	}
}

// TestIACInSubnegotiation is seed scenario 3: an escaped IAC inside a
// subnegotiation body must survive unescaping so the handler sees the
// real payload, not a truncated or corrupted one.
func TestIACInSubnegotiation(t *testing.T) {
	c := NewConnection(nil)
	in := []byte{IAC, SB, OptTType, TTypeSend, IAC, IAC, IAC, SE}

	_, out := c.Feed(in)

	want := wrapSB(OptTType, append([]byte{TTypeIs}, []byte("XTERM")...)...)
	if string(out) != string(want) {
		t.Fatalf("outbound = % X, want % X", out, want)
	}
}
