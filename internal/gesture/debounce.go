// Package gesture turns continuous pose conditions into debounced,
// edge-triggered events: a per-channel state machine that fires once after
// a condition has held for a second and then repeats every three seconds
// while it keeps holding.
package gesture

import (
	"time"

	"github.com/benbjohnson/clock"
)

// Detector timing. A condition must hold for HoldDelay before the first
// trigger; while it keeps holding, another trigger fires every RepeatDelay.
const (
	HoldDelay   = time.Second
	RepeatDelay = 3 * time.Second
)

// Detector is the per-channel debounce state machine. It consumes one
// boolean pose sample per host tick and reports rising-edge, rate-limited
// triggers. A Detector is driven from a single goroutine and lives for the
// whole session; signal transitions reset it implicitly.
type Detector struct {
	clock   clock.Clock
	value   bool
	blocked bool
	started time.Time
}

// NewDetector creates a detector on the wall clock.
func NewDetector() *Detector {
	return NewDetectorWithClock(clock.New())
}

// NewDetectorWithClock creates a detector on the given clock; tests pass
// a clock.Mock to step time deterministically.
func NewDetectorWithClock(c clock.Clock) *Detector {
	return &Detector{clock: c}
}

// Update feeds the next sample and reports whether a trigger fires this
// tick.
//
// A rising edge arms the timer without firing. A false sample always
// returns the detector to idle — the engaged state never retains a stale
// true value. While the condition holds: one trigger once the hold delay
// elapses, then one more each time the repeat delay elapses.
func (d *Detector) Update(v bool) bool {
	switch {
	case !d.value && v:
		d.value = true
		d.blocked = false
		d.started = d.clock.Now()
		return false

	case !v:
		d.value = false
		d.blocked = false
		d.started = time.Time{}
		return false

	default:
		elapsed := d.clock.Since(d.started)
		if !d.blocked && elapsed >= HoldDelay {
			d.blocked = true
			return true
		}
		if d.blocked && elapsed >= RepeatDelay {
			d.blocked = false
			d.started = d.clock.Now()
			return true
		}
		return false
	}
}

// Engaged reports whether the condition is currently held.
func (d *Detector) Engaged() bool {
	return d.value
}

// Holding reports whether the first trigger has fired and the detector is
// accumulating toward a repeat.
func (d *Detector) Holding() bool {
	return d.value && d.blocked
}
