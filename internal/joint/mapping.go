package joint

import "fmt"

// NativeID is the sensor runtime's own joint identifier. The values follow
// the vendor SDK's enumeration order and must not be reordered.
type NativeID int

const (
	NativeSpineBase NativeID = iota
	NativeSpineMid
	NativeNeck
	NativeHead
	NativeShoulderLeft
	NativeElbowLeft
	NativeWristLeft
	NativeHandLeft
	NativeShoulderRight
	NativeElbowRight
	NativeWristRight
	NativeHandRight
	NativeHipLeft
	NativeKneeLeft
	NativeAnkleLeft
	NativeFootLeft
	NativeHipRight
	NativeKneeRight
	NativeAnkleRight
	NativeFootRight
	NativeSpineShoulder
	NativeHandTipLeft
	NativeThumbLeft
	NativeHandTipRight
	NativeThumbRight
)

// NativeCount is the size of the native joint set. Native frames carry
// exactly this many joint slots, indexed by NativeID.
const NativeCount = 25

// nativeByRole maps every non-sentinel Role to its NativeID. The table is
// total and injective; both properties are checked at package init.
// Note the ankle/foot shift: the canonical "foot" is the sensor's ankle and
// the canonical "foot tip" is the sensor's foot.
var nativeByRole = [Count]NativeID{
	Head:          NativeHead,
	Neck:          NativeNeck,
	SpineShoulder: NativeSpineShoulder,
	ShoulderLeft:  NativeShoulderLeft,
	ElbowLeft:     NativeElbowLeft,
	WristLeft:     NativeWristLeft,
	HandLeft:      NativeHandLeft,
	HandTipLeft:   NativeHandTipLeft,
	ThumbLeft:     NativeThumbLeft,
	ShoulderRight: NativeShoulderRight,
	ElbowRight:    NativeElbowRight,
	WristRight:    NativeWristRight,
	HandRight:     NativeHandRight,
	HandTipRight:  NativeHandTipRight,
	ThumbRight:    NativeThumbRight,
	SpineMiddle:   NativeSpineMid,
	SpineWaist:    NativeSpineBase,
	HipLeft:       NativeHipLeft,
	KneeLeft:      NativeKneeLeft,
	FootLeft:      NativeAnkleLeft,
	FootTipLeft:   NativeFootLeft,
	HipRight:      NativeHipRight,
	KneeRight:     NativeKneeRight,
	FootRight:     NativeAnkleRight,
	FootTipRight:  NativeFootRight,
}

var roleByNative [NativeCount]Role

func init() {
	var seen [NativeCount]bool
	for r, id := range nativeByRole {
		if id < 0 || int(id) >= NativeCount {
			panic(fmt.Sprintf("joint: role %v maps to out-of-range native id %d", Role(r), id))
		}
		if seen[id] {
			panic(fmt.Sprintf("joint: native id %d mapped twice", id))
		}
		seen[id] = true
		roleByNative[id] = Role(r)
	}
}

// Native returns the sensor's native identifier for the role. Calling it
// with Manual or an out-of-range role is a programming error and panics.
func (r Role) Native() NativeID {
	if r < 0 || int(r) >= Count {
		panic(fmt.Sprintf("joint: role %d has no native mapping", int(r)))
	}
	return nativeByRole[r]
}

// FromNative returns the canonical role for a native identifier. An
// out-of-range id is a programming error and panics.
func FromNative(id NativeID) Role {
	if id < 0 || int(id) >= NativeCount {
		panic(fmt.Sprintf("joint: native id %d out of range", int(id)))
	}
	return roleByNative[id]
}
