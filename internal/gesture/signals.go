package gesture

import (
	"github.com/ayusman/angika/internal/joint"
)

// Side selects the left or right limb for a pose signal.
type Side int

const (
	Left Side = iota
	Right
)

// String returns "left" or "right".
func (s Side) String() string {
	if s == Left {
		return "left"
	}
	return "right"
}

// Signal is a pose condition evaluated over one joint snapshot. Signals
// are recomputed every host tick and fed into a Detector.
type Signal func(joints [joint.Count]joint.Sample) bool

// Geometry thresholds, metres in sensor space.
const (
	// raiseMargin is how far above the head the wrist must be.
	raiseMargin = 0.1
	// pointReach is how far in front of the shoulder (toward the
	// sensor) the wrist must extend.
	pointReach = 0.35
)

// HandRaised is true while the wrist is held above the head. Used for the
// "pause" channels.
func HandRaised(side Side) Signal {
	wrist := pick(side, joint.WristLeft, joint.WristRight)
	return func(joints [joint.Count]joint.Sample) bool {
		w, h := joints[wrist], joints[joint.Head]
		if !usable(w) || !usable(h) {
			return false
		}
		return w.Position.Y > h.Position.Y+raiseMargin
	}
}

// HandExtended is true while the arm is stretched toward the sensor. Used
// for the "point" channels.
func HandExtended(side Side) Signal {
	wrist := pick(side, joint.WristLeft, joint.WristRight)
	shoulder := pick(side, joint.ShoulderLeft, joint.ShoulderRight)
	return func(joints [joint.Count]joint.Sample) bool {
		w, s := joints[wrist], joints[shoulder]
		if !usable(w) || !usable(s) {
			return false
		}
		return s.Position.Z-w.Position.Z > pointReach
	}
}

func pick(side Side, left, right joint.Role) joint.Role {
	if side == Left {
		return left
	}
	return right
}

// usable requires at least an inferred sample; a not-tracked joint never
// contributes to a signal.
func usable(s joint.Sample) bool {
	return s.State != joint.NotTracked
}
