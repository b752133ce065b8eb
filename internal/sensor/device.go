// Package sensor owns the tracking device: the native handle abstraction,
// the session lifecycle state machine, the background acquisition loop and
// the thread-safe frame snapshot exposed to the host.
package sensor

import (
	"errors"

	"github.com/ayusman/angika/internal/joint"
)

// ErrNoDevice is returned by Device.Open when no default sensor exists.
// The session reports it as InitUnavailable rather than a fatal failure.
var ErrNoDevice = errors.New("no default sensor found")

// Body is one candidate skeleton within a body frame. Joints are indexed
// by joint.NativeID, the sensor's own ordering.
type Body struct {
	Tracked bool
	Joints  [joint.NativeCount]joint.Sample
}

// BodyFrame is one delivery of skeletal data from the device.
type BodyFrame struct {
	Bodies []Body
}

// ColorFrame is one delivery of color image data, BGRA, row-major.
type ColorFrame struct {
	Width  int
	Height int
	Data   []byte
}

// Device abstracts the native sensor runtime. Implementations deliver
// frames and availability flips over subscription channels; the returned
// cancel func must stop the channel from yielding and may close it, which
// is how the session unblocks its acquisition wait during shutdown.
//
// A Device is owned exclusively by one Session; none of its methods are
// called concurrently except the cancel funcs, which must be safe to call
// from the host thread while the acquisition goroutine is blocked.
type Device interface {
	// Open acquires the native handle. Returns ErrNoDevice when no
	// default sensor is present; any other error is fatal.
	Open() error

	// Close releases the native handle. Open may be called again after.
	Close() error

	// Available reports whether the opened device is currently usable.
	Available() bool

	// SubscribeAvailability returns a channel of availability flips.
	SubscribeAvailability() (<-chan bool, func())

	// SubscribeBodyFrames returns a channel of skeletal frames.
	// Implementations keep only the latest frame when the consumer lags.
	SubscribeBodyFrames() (<-chan BodyFrame, func())

	// SubscribeColorFrames returns a channel of color frames, same
	// latest-wins discipline as body frames.
	SubscribeColorFrames() (<-chan ColorFrame, func())

	// ProjectToImage maps a 3D sensor-space point into image-space pixel
	// coordinates using the device calibration. ok is false when the
	// point cannot be projected.
	ProjectToImage(p joint.Vec3) (x, y float64, ok bool)
}
