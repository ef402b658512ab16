// Package detect implements the auto-detection engines for ZMODEM,
// XMODEM and YMODEM transfer requests (spec.md §4.F). Detectors watch
// only the clean data stream emitted by internal/telnet's Framer —
// they never see raw IAC bytes — and are paused for the lifetime of
// any active transfer.
package detect

import "time"

// Kind names which protocol a detector fired for.
type Kind int

const (
	KindZmodem Kind = iota
	KindXmodem
	KindYmodem
	KindKermit
)

func (k Kind) String() string {
	switch k {
	case KindZmodem:
		return "zmodem"
	case KindXmodem:
		return "xmodem"
	case KindYmodem:
		return "ymodem"
	case KindKermit:
		return "kermit"
	default:
		return "unknown"
	}
}

// Direction records which side of the transfer the remote is
// proposing: SendToUs means the remote wants to push a file at us
// (we receive), RecvFromUs means the remote wants to pull (we send).
type Direction int

const (
	DirUnknown Direction = iota
	DirSendToUs
	DirRecvFromUs
)

// Hit is a positive detection result.
type Hit struct {
	Kind      Kind
	Direction Direction
}

const (
	zmodemWindow       = 32
	xyWindow           = 64
	xyRepeatWindow     = 3 * time.Second
	xyMinRepeats       = 3
	nak           byte = 0x15
	ccrc          byte = 0x43 // 'C'
)

var zmodemHexPrefixes = [][]byte{
	{'*', '*', 0x18, 'B', '0', '0'}, // ZRQINIT
	{'*', '*', 0x18, 'B', '0', '1'}, // ZRINIT
	{'*', '*', 0x18, 'B', '0', '8'}, // ZFILE
}

var zmodemTextCues = [][]byte{
	[]byte("rz\r\n"),
	[]byte("rz\r"),
}

// ZmodemDetector watches for ZMODEM session-start sequences.
type ZmodemDetector struct {
	buf     []byte
	Enabled bool
}

// NewZmodemDetector returns an enabled detector.
func NewZmodemDetector() *ZmodemDetector {
	return &ZmodemDetector{Enabled: true}
}

// Reset clears the sliding window and fresh counters (§4.G exit step 2).
func (d *ZmodemDetector) Reset() { d.buf = d.buf[:0] }

// Feed appends clean bytes to the sliding window and reports a hit if
// a ZMODEM trigger sequence is now present. ZMODEM session starts
// always mean the remote is offering to send, i.e. we receive.
func (d *ZmodemDetector) Feed(data []byte) *Hit {
	if !d.Enabled {
		return nil
	}
	d.buf = appendWindow(d.buf, data, zmodemWindow)

	for _, prefix := range zmodemHexPrefixes {
		if containsBytes(d.buf, prefix) {
			return &Hit{Kind: KindZmodem, Direction: DirSendToUs}
		}
	}
	for _, cue := range zmodemTextCues {
		if containsBytes(d.buf, cue) {
			return &Hit{Kind: KindZmodem, Direction: DirSendToUs}
		}
	}
	return nil
}

// XmodemDetector watches for XMODEM cues: explicit text banners, or a
// repeated NAK/'C' trigger byte within a short window.
type XmodemDetector struct {
	buf     []byte
	Enabled bool

	triggerByte  byte
	repeatCount  int
	firstSeen    time.Time
	lastSeen     time.Time
}

func NewXmodemDetector() *XmodemDetector {
	return &XmodemDetector{Enabled: true}
}

func (d *XmodemDetector) Reset() {
	d.buf = d.buf[:0]
	d.repeatCount = 0
	d.triggerByte = 0
}

// Feed processes clean bytes one at a time (the repeat counter needs
// per-byte timestamps) and reports a hit on either text-cue match or
// trigger-repeat match.
func (d *XmodemDetector) Feed(data []byte, now time.Time) *Hit {
	if !d.Enabled {
		return nil
	}
	d.buf = appendWindow(d.buf, data, xyWindow)

	if containsFold(d.buf, []byte("xmodem receive")) {
		d.Reset()
		return &Hit{Kind: KindXmodem, Direction: DirSendToUs}
	}
	if containsFold(d.buf, []byte("xmodem send")) {
		d.Reset()
		return &Hit{Kind: KindXmodem, Direction: DirRecvFromUs}
	}

	for _, b := range data {
		if hit := d.feedByte(b, now); hit != nil {
			return hit
		}
	}
	return nil
}

func (d *XmodemDetector) feedByte(b byte, now time.Time) *Hit {
	if b != nak && b != ccrc {
		if isPrintable(b) {
			d.repeatCount = 0
		}
		return nil
	}
	if d.repeatCount > 0 && (b != d.triggerByte || now.Sub(d.lastSeen) > xyRepeatWindow) {
		d.repeatCount = 0
	}
	if d.repeatCount == 0 {
		d.firstSeen = now
	}
	d.triggerByte = b
	d.lastSeen = now
	d.repeatCount++

	if d.repeatCount >= xyMinRepeats {
		d.Reset()
		return &Hit{Kind: KindXmodem, Direction: DirRecvFromUs}
	}
	return nil
}

// YmodemDetector mirrors XmodemDetector but only counts 'C' repeats
// (no NAK trigger — YMODEM is always CRC mode), per a separate
// counter from XmodemDetector's so both can observe the same bytes
// and whichever fires first wins (§4.F).
type YmodemDetector struct {
	buf     []byte
	Enabled bool

	repeatCount int
	firstSeen   time.Time
	lastSeen    time.Time
}

func NewYmodemDetector() *YmodemDetector {
	return &YmodemDetector{Enabled: true}
}

func (d *YmodemDetector) Reset() {
	d.buf = d.buf[:0]
	d.repeatCount = 0
}

func (d *YmodemDetector) Feed(data []byte, now time.Time) *Hit {
	if !d.Enabled {
		return nil
	}
	d.buf = appendWindow(d.buf, data, xyWindow)

	if containsFold(d.buf, []byte("ymodem receive")) {
		d.Reset()
		return &Hit{Kind: KindYmodem, Direction: DirSendToUs}
	}
	if containsFold(d.buf, []byte("ymodem send")) {
		d.Reset()
		return &Hit{Kind: KindYmodem, Direction: DirRecvFromUs}
	}

	for _, b := range data {
		if hit := d.feedByte(b, now); hit != nil {
			return hit
		}
	}
	return nil
}

func (d *YmodemDetector) feedByte(b byte, now time.Time) *Hit {
	if b != ccrc {
		if isPrintable(b) {
			d.repeatCount = 0
		}
		return nil
	}
	if d.repeatCount > 0 && now.Sub(d.lastSeen) > xyRepeatWindow {
		d.repeatCount = 0
	}
	if d.repeatCount == 0 {
		d.firstSeen = now
	}
	d.lastSeen = now
	d.repeatCount++

	if d.repeatCount >= xyMinRepeats {
		d.Reset()
		return &Hit{Kind: KindYmodem, Direction: DirRecvFromUs}
	}
	return nil
}

// KermitHint watches for bytes shaped like the start of a Kermit packet
// (an SOH, or a LEN/SEQ/TYPE-like triple) arriving unsolicited, i.e.
// without the console having already put the Session Loop into
// TRANSFER mode. It does not check the packet type, so it is not
// limited to S packets. Unlike the Z/X/Y detectors this one is off by
// default (spec.md scopes Kermit transfers as user/console-initiated,
// not auto-detected); it exists for the same "supervisor can offer to
// hand off" role the original source's broader transfer.c
// auto-trigger handling gives Kermit, for a caller that opts in.
type KermitHint struct {
	buf     []byte
	Enabled bool
}

// NewKermitHint returns a disabled detector; a caller must set
// Enabled = true to turn it on.
func NewKermitHint() *KermitHint { return &KermitHint{} }

func (d *KermitHint) Reset() { d.buf = d.buf[:0] }

// Feed applies the same two tests the Transfer Supervisor's drain uses
// to recognize an early Kermit packet (§4.G step 3): an SOH byte, or a
// LEN in [35,126] followed by printable SEQ and TYPE bytes. Unlike the
// drain, which tests only the start of each chunk, Feed tests every
// position of its 32-byte sliding window, so it can fire on input the
// drain would treat as chatter.
func (d *KermitHint) Feed(data []byte) *Hit {
	if !d.Enabled {
		return nil
	}
	d.buf = appendWindow(d.buf, data, zmodemWindow)

	for i := 0; i < len(d.buf); i++ {
		if d.buf[i] == 0x01 {
			return &Hit{Kind: KindKermit, Direction: DirSendToUs}
		}
	}
	if len(d.buf) >= 3 {
		for i := 0; i+3 <= len(d.buf); i++ {
			length, seq, typ := d.buf[i], d.buf[i+1], d.buf[i+2]
			if length >= 35 && length <= 126 && isPrintable(seq) && isPrintable(typ) {
				return &Hit{Kind: KindKermit, Direction: DirSendToUs}
			}
		}
	}
	return nil
}

// Engine bundles all detectors with a single enable gate, matching
// the Transfer Supervisor's "pause all detectors" step (§4.G entry
// step 4 / exit step 2). KermitHint stays off unless a caller opts in
// (EnableKermitHint) and is left untouched by Pause/Resume so opting
// in survives a transfer cycle.
type Engine struct {
	Zmodem *ZmodemDetector
	Xmodem *XmodemDetector
	Ymodem *YmodemDetector
	Kermit *KermitHint

	kermitWasEnabled bool
}

func NewEngine() *Engine {
	return &Engine{
		Zmodem: NewZmodemDetector(),
		Xmodem: NewXmodemDetector(),
		Ymodem: NewYmodemDetector(),
		Kermit: NewKermitHint(),
	}
}

// EnableKermitHint opts this engine into the disabled-by-default
// Kermit auto-trigger.
func (e *Engine) EnableKermitHint() { e.Kermit.Enabled = true }

// Feed runs clean bytes through all enabled detectors and returns the
// first hit, ZMODEM taking priority, matching the hex-prefix engine's
// higher specificity over the XMODEM/YMODEM generic repeat counters;
// KermitHint is checked last since it only fires when a caller opted
// in.
func (e *Engine) Feed(data []byte, now time.Time) *Hit {
	if hit := e.Zmodem.Feed(data); hit != nil {
		return hit
	}
	if hit := e.Xmodem.Feed(data, now); hit != nil {
		return hit
	}
	if hit := e.Ymodem.Feed(data, now); hit != nil {
		return hit
	}
	if hit := e.Kermit.Feed(data); hit != nil {
		return hit
	}
	return nil
}

// Pause disables every detector (§4.G entry step 4), remembering
// whether KermitHint was opted into so Resume can restore it.
func (e *Engine) Pause() {
	e.Zmodem.Enabled = false
	e.Xmodem.Enabled = false
	e.Ymodem.Enabled = false
	e.kermitWasEnabled = e.Kermit.Enabled
	e.Kermit.Enabled = false
}

// Resume re-initializes every detector with fresh counters and
// windows, re-enabling Z/X/Y unconditionally (§4.G exit step 2) and
// KermitHint only if it was on before the matching Pause — it never
// defaults back on by itself.
func (e *Engine) Resume() {
	e.Zmodem.Reset()
	e.Xmodem.Reset()
	e.Ymodem.Reset()
	e.Kermit.Reset()
	e.Zmodem.Enabled = true
	e.Xmodem.Enabled = true
	e.Ymodem.Enabled = true
	e.Kermit.Enabled = e.kermitWasEnabled
	e.kermitWasEnabled = false
}

func appendWindow(buf, data []byte, limit int) []byte {
	buf = append(buf, data...)
	if len(buf) > limit {
		buf = buf[len(buf)-limit:]
	}
	return buf
}

func containsBytes(haystack, needle []byte) bool {
	if len(needle) == 0 || len(haystack) < len(needle) {
		return false
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if bytesEqual(haystack[i:i+len(needle)], needle) {
			return true
		}
	}
	return false
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func containsFold(haystack, needle []byte) bool {
	if len(needle) == 0 || len(haystack) < len(needle) {
		return false
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if equalFold(haystack[i:i+len(needle)], needle) {
			return true
		}
	}
	return false
}

func equalFold(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		ac, bc := a[i], b[i]
		if 'A' <= ac && ac <= 'Z' {
			ac += 'a' - 'A'
		}
		if 'A' <= bc && bc <= 'Z' {
			bc += 'a' - 'A'
		}
		if ac != bc {
			return false
		}
	}
	return true
}

func isPrintable(b byte) bool { return b >= 0x20 && b < 0x7f }
