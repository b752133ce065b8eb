package gesture

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
)

func TestDetectorFiresAfterHoldDelay(t *testing.T) {
	mock := clock.NewMock()
	d := NewDetectorWithClock(mock)

	if d.Update(false) {
		t.Fatal("trigger on idle false sample")
	}
	if d.Update(true) {
		t.Fatal("trigger on rising edge")
	}

	// Still accumulating below the hold delay.
	mock.Add(999 * time.Millisecond)
	if d.Update(true) {
		t.Fatal("trigger before hold delay elapsed")
	}

	mock.Add(1 * time.Millisecond)
	if !d.Update(true) {
		t.Fatal("no trigger at hold delay")
	}
	if !d.Holding() {
		t.Error("detector should be holding after first trigger")
	}

	// No re-fire while holding short of the repeat delay.
	mock.Add(1999 * time.Millisecond)
	if d.Update(true) {
		t.Fatal("trigger before repeat delay elapsed")
	}

	// Exactly one repeat at the repeat delay.
	mock.Add(1 * time.Millisecond)
	if !d.Update(true) {
		t.Fatal("no repeat trigger at repeat delay")
	}
	if d.Update(true) {
		t.Fatal("double trigger immediately after repeat")
	}
}

func TestDetectorRepeatsWhileHeld(t *testing.T) {
	mock := clock.NewMock()
	d := NewDetectorWithClock(mock)

	d.Update(true)
	fires := 0
	for i := 0; i < 100; i++ {
		mock.Add(100 * time.Millisecond)
		if d.Update(true) {
			fires++
		}
	}
	// 10 s of continuous hold: first fire at 1 s, then the repeat cycle.
	if fires < 3 {
		t.Errorf("expected repeated triggers over a long hold, got %d", fires)
	}
}

func TestDetectorDropBeforeHoldNeverFires(t *testing.T) {
	mock := clock.NewMock()
	d := NewDetectorWithClock(mock)

	d.Update(true)
	mock.Add(900 * time.Millisecond)
	if d.Update(false) {
		t.Fatal("trigger on falling edge")
	}

	// The drop reset the timer: a fresh rise has to hold for the full
	// delay again.
	if d.Update(true) {
		t.Fatal("trigger on re-rise")
	}
	mock.Add(999 * time.Millisecond)
	if d.Update(true) {
		t.Fatal("timer was not reset by the drop")
	}
	mock.Add(1 * time.Millisecond)
	if !d.Update(true) {
		t.Fatal("no trigger after full hold on second rise")
	}
}

func TestDetectorDropWhileHoldingResets(t *testing.T) {
	mock := clock.NewMock()
	d := NewDetectorWithClock(mock)

	d.Update(true)
	mock.Add(HoldDelay)
	if !d.Update(true) {
		t.Fatal("no initial trigger")
	}

	// Dropping the signal mid-hold returns to idle; the stored value
	// never stays true past a false sample.
	if d.Update(false) {
		t.Fatal("trigger on drop while holding")
	}
	if d.Engaged() || d.Holding() {
		t.Error("detector still engaged after drop")
	}

	mock.Add(10 * time.Second)
	if d.Update(false) {
		t.Fatal("trigger while idle")
	}
}

func TestDetectorFlappingNeverFires(t *testing.T) {
	mock := clock.NewMock()
	d := NewDetectorWithClock(mock)

	// A signal that never holds longer than half the delay only jitters.
	v := false
	for i := 0; i < 50; i++ {
		v = !v
		if d.Update(v) {
			t.Fatal("trigger from flapping signal")
		}
		mock.Add(500 * time.Millisecond)
	}
}
