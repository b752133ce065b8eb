// Package joint defines the canonical skeletal joint model for the Angika
// body tracking adapter: the stable joint enumeration, per-joint samples and
// the mapping to the sensor's native joint identifiers.
package joint

// Role identifies a canonical skeletal joint. The enumeration order is
// stable across sessions and is used directly as an array index for
// snapshots, so new roles may only ever be appended before Manual.
type Role int

const (
	Head Role = iota
	Neck
	SpineShoulder
	ShoulderLeft
	ElbowLeft
	WristLeft
	HandLeft
	HandTipLeft
	ThumbLeft
	ShoulderRight
	ElbowRight
	WristRight
	HandRight
	HandTipRight
	ThumbRight
	SpineMiddle
	SpineWaist
	HipLeft
	KneeLeft
	FootLeft
	FootTipLeft
	HipRight
	KneeRight
	FootRight
	FootTipRight

	// Manual is a sentinel for joints positioned by the host rather than
	// the sensor. It is excluded from Roles and has no native mapping.
	Manual
)

// Count is the number of canonical roles excluding the Manual sentinel.
const Count = int(Manual)

var roleNames = [...]string{
	"head", "neck", "spine_shoulder",
	"shoulder_left", "elbow_left", "wrist_left", "hand_left", "hand_tip_left", "thumb_left",
	"shoulder_right", "elbow_right", "wrist_right", "hand_right", "hand_tip_right", "thumb_right",
	"spine_middle", "spine_waist",
	"hip_left", "knee_left", "foot_left", "foot_tip_left",
	"hip_right", "knee_right", "foot_right", "foot_tip_right",
	"manual",
}

// String returns the snake_case name of the role.
func (r Role) String() string {
	if r < 0 || int(r) >= len(roleNames) {
		return "unknown"
	}
	return roleNames[r]
}

// Roles returns all canonical roles in enumeration order, excluding the
// Manual sentinel. The returned slice is freshly allocated.
func Roles() []Role {
	roles := make([]Role, Count)
	for i := range roles {
		roles[i] = Role(i)
	}
	return roles
}

// TrackingState classifies the sensor's confidence in a joint sample.
type TrackingState int

const (
	NotTracked TrackingState = iota
	Inferred
	Tracked
)

// String returns a human-readable name for the tracking state.
func (s TrackingState) String() string {
	switch s {
	case NotTracked:
		return "not_tracked"
	case Inferred:
		return "inferred"
	case Tracked:
		return "tracked"
	default:
		return "unknown"
	}
}

// Vec3 is a 3D position in sensor space, metres.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Quat is an orientation quaternion.
type Quat struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
	W float64 `json:"w"`
}

// Sample is one observation of a single joint within a frame.
type Sample struct {
	Position    Vec3          `json:"position"`
	Orientation Quat          `json:"orientation"`
	State       TrackingState `json:"state"`
}
