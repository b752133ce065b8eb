package sensor

import (
	"math"
	"sync"

	"github.com/ayusman/angika/internal/joint"
)

// SimDevice is a scriptable in-process Device. Tests and the CLI's
// no-hardware fallback drive it by toggling availability and pushing
// frames; deliveries follow the same latest-wins discipline as a real
// device.
type SimDevice struct {
	mu        sync.Mutex
	opened    bool
	available bool
	failOpen  error

	avail feed[bool]
	body  feed[BodyFrame]
	color feed[ColorFrame]

	// Pinhole intrinsics for ProjectToImage.
	fx, fy, cx, cy float64
}

// NewSimDevice creates a simulated device that opens successfully and
// starts available, with default color-camera intrinsics.
func NewSimDevice() *SimDevice {
	return &SimDevice{
		available: true,
		fx:        1050,
		fy:        1050,
		cx:        float64(DefaultColorWidth) / 2,
		cy:        float64(DefaultColorHeight) / 2,
	}
}

// FailOpenWith makes subsequent Open calls return err. Pass nil to restore
// normal behavior; pass ErrNoDevice to simulate a missing sensor.
func (d *SimDevice) FailOpenWith(err error) {
	d.mu.Lock()
	d.failOpen = err
	d.mu.Unlock()
}

func (d *SimDevice) Open() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failOpen != nil {
		return d.failOpen
	}
	d.opened = true
	return nil
}

// Close releases the simulated handle and drops all subscriptions, like a
// real device releasing its reader handles.
func (d *SimDevice) Close() error {
	d.mu.Lock()
	d.opened = false
	d.mu.Unlock()
	d.avail.closeAll()
	d.body.closeAll()
	d.color.closeAll()
	return nil
}

func (d *SimDevice) Available() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opened && d.available
}

// SetAvailable flips simulated availability and notifies subscribers.
func (d *SimDevice) SetAvailable(available bool) {
	d.mu.Lock()
	d.available = available
	d.mu.Unlock()
	d.avail.publish(available)
}

// PushBodyFrame delivers a skeletal frame to subscribers.
func (d *SimDevice) PushBodyFrame(bf BodyFrame) {
	d.body.publish(bf)
}

// PushColorFrame delivers a color frame to subscribers.
func (d *SimDevice) PushColorFrame(cf ColorFrame) {
	d.color.publish(cf)
}

func (d *SimDevice) SubscribeAvailability() (<-chan bool, func()) {
	return d.avail.subscribe()
}

func (d *SimDevice) SubscribeBodyFrames() (<-chan BodyFrame, func()) {
	return d.body.subscribe()
}

func (d *SimDevice) SubscribeColorFrames() (<-chan ColorFrame, func()) {
	return d.color.subscribe()
}

// SubscriberCounts reports live subscription counts, for leak checks.
func (d *SimDevice) SubscriberCounts() (avail, body, color int) {
	return d.avail.count(), d.body.count(), d.color.count()
}

// ProjectToImage applies a pinhole projection with the device intrinsics.
func (d *SimDevice) ProjectToImage(p joint.Vec3) (float64, float64, bool) {
	if p.Z == 0 {
		return math.NaN(), math.NaN(), false
	}
	x := d.cx + d.fx*(p.X/p.Z)
	y := d.cy - d.fy*(p.Y/p.Z)
	return x, y, true
}

// TrackedBody builds a Body with every native joint set to the given
// position, fully tracked. Convenient for scripted frames.
func TrackedBody(pos joint.Vec3) Body {
	b := Body{Tracked: true}
	for i := range b.Joints {
		b.Joints[i] = joint.Sample{
			Position:    pos,
			Orientation: joint.Quat{W: 1},
			State:       joint.Tracked,
		}
	}
	return b
}
