package detect

import (
	"testing"
	"time"
)

func TestZmodemDetectorHexPrefix(t *testing.T) {
	d := NewZmodemDetector()
	hit := d.Feed([]byte("garbage**\x18B00rest"))
	if hit == nil {
		t.Fatal("expected ZRQINIT hit")
	}
	if hit.Kind != KindZmodem || hit.Direction != DirSendToUs {
		t.Fatalf("unexpected hit: %+v", hit)
	}
}

func TestZmodemDetectorTextCue(t *testing.T) {
	d := NewZmodemDetector()
	hit := d.Feed([]byte("Give your local XMODEM receive command now.\r\nrz\r\n"))
	if hit == nil {
		t.Fatal("expected rz hit")
	}
	if hit.Direction != DirSendToUs {
		t.Fatalf("expected SendToUs, got %v", hit.Direction)
	}
}

func TestZmodemDetectorDisabled(t *testing.T) {
	d := NewZmodemDetector()
	d.Enabled = false
	if hit := d.Feed([]byte("**\x18B00")); hit != nil {
		t.Fatal("disabled detector must not fire")
	}
}

func TestXmodemDetectorTextCue(t *testing.T) {
	d := NewXmodemDetector()
	hit := d.Feed([]byte("Please start your XMODEM receive.\r\n"), time.Unix(0, 0))
	if hit == nil || hit.Kind != KindXmodem {
		t.Fatalf("expected xmodem hit, got %+v", hit)
	}
}

func TestXmodemDetectorNakRepeat(t *testing.T) {
	d := NewXmodemDetector()
	base := time.Unix(1000, 0)
	if hit := d.Feed([]byte{nak}, base); hit != nil {
		t.Fatal("one NAK should not fire")
	}
	if hit := d.Feed([]byte{nak}, base.Add(time.Second)); hit != nil {
		t.Fatal("two NAKs should not fire")
	}
	hit := d.Feed([]byte{nak}, base.Add(2*time.Second))
	if hit == nil {
		t.Fatal("three NAKs within window should fire")
	}
	if hit.Direction != DirRecvFromUs {
		t.Fatalf("expected RecvFromUs, got %v", hit.Direction)
	}
}

func TestXmodemDetectorRepeatResetByPrintable(t *testing.T) {
	d := NewXmodemDetector()
	base := time.Unix(2000, 0)
	d.Feed([]byte{nak}, base)
	d.Feed([]byte{nak}, base.Add(time.Second))
	d.Feed([]byte("x"), base.Add(time.Millisecond*1500))
	hit := d.Feed([]byte{nak}, base.Add(2*time.Second))
	if hit != nil {
		t.Fatal("intervening printable byte should reset repeat counter")
	}
}

func TestXmodemDetectorRepeatWindowExpires(t *testing.T) {
	d := NewXmodemDetector()
	base := time.Unix(3000, 0)
	d.Feed([]byte{nak}, base)
	d.Feed([]byte{nak}, base.Add(time.Second))
	hit := d.Feed([]byte{nak}, base.Add(10*time.Second))
	if hit != nil {
		t.Fatal("repeat outside the 3s window should not count toward the trigger")
	}
}

func TestYmodemDetectorCRepeat(t *testing.T) {
	d := NewYmodemDetector()
	base := time.Unix(4000, 0)
	d.Feed([]byte{ccrc}, base)
	d.Feed([]byte{ccrc}, base.Add(time.Second))
	hit := d.Feed([]byte{ccrc}, base.Add(2*time.Second))
	if hit == nil || hit.Kind != KindYmodem {
		t.Fatalf("expected ymodem hit, got %+v", hit)
	}
}

func TestEngineXYSharedBytesFirstMatchWins(t *testing.T) {
	e := NewEngine()
	base := time.Unix(5000, 0)
	// 'C' repeats feed both XMODEM and YMODEM counters; ZMODEM never
	// matches 'C', so whichever detector is checked first in Engine.Feed
	// wins deterministically.
	e.Feed([]byte{ccrc}, base)
	e.Feed([]byte{ccrc}, base.Add(time.Second))
	hit := e.Feed([]byte{ccrc}, base.Add(2*time.Second))
	if hit == nil {
		t.Fatal("expected a hit from shared C repeats")
	}
	if hit.Kind != KindXmodem {
		t.Fatalf("expected XMODEM to win tie-break, got %v", hit.Kind)
	}
}

func TestKermitHintDisabledByDefault(t *testing.T) {
	d := NewKermitHint()
	if hit := d.Feed([]byte{0x01, 'I', 'S', 'X'}); hit != nil {
		t.Fatal("KermitHint must not fire until Enabled is set")
	}
}

func TestKermitHintFiresOnSOH(t *testing.T) {
	d := NewKermitHint()
	d.Enabled = true
	hit := d.Feed([]byte{0x01, 'I', 'S', 'X'})
	if hit == nil || hit.Kind != KindKermit {
		t.Fatalf("expected kermit hit, got %+v", hit)
	}
}

func TestEngineKermitHintOptInSurvivesPauseResume(t *testing.T) {
	e := NewEngine()
	e.EnableKermitHint()
	e.Pause()
	if hit := e.Kermit.Feed([]byte{0x01}); hit != nil {
		t.Fatal("paused engine's KermitHint must not fire")
	}
	e.Resume()
	if hit := e.Feed([]byte{0x01, 'I', 'S'}, time.Unix(0, 0)); hit == nil || hit.Kind != KindKermit {
		t.Fatalf("KermitHint opt-in should survive a pause/resume cycle, got %+v", hit)
	}
}

func TestEngineKermitHintStaysOffAfterResumeWithoutOptIn(t *testing.T) {
	e := NewEngine()
	e.Pause()
	e.Resume()
	if hit := e.Feed([]byte{0x01, 'I', 'S'}, time.Unix(0, 0)); hit != nil {
		t.Fatalf("KermitHint must stay off across Resume without an explicit opt-in, got %+v", hit)
	}
}

func TestEnginePauseResume(t *testing.T) {
	e := NewEngine()
	e.Pause()
	if hit := e.Feed([]byte("**\x18B00"), time.Unix(0, 0)); hit != nil {
		t.Fatal("paused engine must not fire")
	}
	e.Resume()
	if hit := e.Feed([]byte("**\x18B00"), time.Unix(0, 0)); hit == nil {
		t.Fatal("resumed engine should detect again")
	}
}
