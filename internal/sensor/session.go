package sensor

import (
	"errors"
	"log"
	"math"
	"sync"
	"time"

	"github.com/ayusman/angika/internal/joint"
)

// Default session timing. The grace wait gives the native driver time to
// finish enumerating the device after open; the frame timeout bounds the
// acquisition loop's wait so availability flips are still observed when no
// frames arrive.
const (
	DefaultGraceWait    = 2 * time.Second
	DefaultFrameTimeout = 3 * time.Second
	DefaultIdlePoll     = 100 * time.Millisecond
)

// Default color stream geometry, BGRA.
const (
	DefaultColorWidth  = 1920
	DefaultColorHeight = 1080
)

// zClampEpsilon is substituted for non-positive Z before projection to
// avoid degenerate behind-camera mappings.
const zClampEpsilon = 0.1

// TrackedJoint is one entry of the host-facing joint listing.
type TrackedJoint struct {
	Role        joint.Role          `json:"role"`
	Position    joint.Vec3          `json:"position"`
	Orientation joint.Quat          `json:"orientation"`
	State       joint.TrackingState `json:"state"`
}

// Config holds session construction options. Only Device is required.
type Config struct {
	Device        Device
	GraceWait     time.Duration
	FrameTimeout  time.Duration
	IdlePoll      time.Duration
	CameraEnabled bool
}

// Session owns the native device handle and the acquisition loop, and
// publishes the latest frame snapshot to the host. The host calls in from
// a single foreground thread; the acquisition goroutine is the only other
// toucher of session state.
type Session struct {
	device       Device
	graceWait    time.Duration
	frameTimeout time.Duration
	idlePoll     time.Duration

	mu            sync.Mutex
	state         State
	opened        bool
	cameraEnabled bool
	onStatus      func(available bool)
	availCh       <-chan bool
	bodyCh        <-chan BodyFrame
	colorCh       <-chan ColorFrame
	cancels       []func()

	loopOnce sync.Once
	snap     snapshot
}

// NewSession creates a session around the given device. The device is not
// opened until Initialize.
func NewSession(cfg Config) *Session {
	if cfg.GraceWait <= 0 {
		cfg.GraceWait = DefaultGraceWait
	}
	if cfg.FrameTimeout <= 0 {
		cfg.FrameTimeout = DefaultFrameTimeout
	}
	if cfg.IdlePoll <= 0 {
		cfg.IdlePoll = DefaultIdlePoll
	}
	return &Session{
		device:        cfg.Device,
		graceWait:     cfg.GraceWait,
		frameTimeout:  cfg.FrameTimeout,
		idlePoll:      cfg.IdlePoll,
		cameraEnabled: cfg.CameraEnabled,
		state:         StateUninitialized,
	}
}

// Initialize opens the device and brings the session up. It blocks for the
// grace period while the driver settles. Safe to call again after a failed
// or successful initialize: previous subscriptions are cancelled before
// new ones are made, and a previously opened handle is closed first.
func (s *Session) Initialize() InitStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = StateInitializing
	s.unsubscribeLocked()
	if s.opened {
		if err := s.device.Close(); err != nil {
			log.Printf("sensor: closing stale handle: %v", err)
		}
		s.opened = false
	}

	if err := s.device.Open(); err != nil {
		s.state = StateUninitialized
		if errors.Is(err, ErrNoDevice) {
			return InitUnavailable
		}
		log.Printf("sensor: device open failed: %v", err)
		return InitFatal
	}
	s.opened = true

	// Let the driver finish enumerating before the availability check.
	// This is a deliberate blocking wait, not polling.
	time.Sleep(s.graceWait)

	s.subscribeLocked()
	s.loopOnce.Do(func() { go s.run() })

	if !s.device.Available() {
		s.state = StateUnavailable
		return InitUnavailable
	}
	s.state = StateAvailable
	return InitOK
}

// Shutdown tears the session down: subscriptions first, so the acquisition
// loop's pending wait unblocks deterministically, then the native handle.
// Calling Shutdown with no open session is a no-op reporting NotNeeded and
// performs no device calls.
func (s *Session) Shutdown() ShutdownStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.opened {
		return ShutdownNotNeeded
	}

	s.state = StateShuttingDown
	s.unsubscribeLocked()

	err := s.device.Close()
	s.opened = false
	s.state = StateShutdown
	if err != nil {
		log.Printf("sensor: device close failed: %v", err)
		return ShutdownFatal
	}
	return ShutdownOK
}

// subscribeLocked wires the device channels. Caller holds s.mu.
func (s *Session) subscribeLocked() {
	availCh, cancelAvail := s.device.SubscribeAvailability()
	bodyCh, cancelBody := s.device.SubscribeBodyFrames()
	colorCh, cancelColor := s.device.SubscribeColorFrames()
	s.availCh, s.bodyCh, s.colorCh = availCh, bodyCh, colorCh
	s.cancels = []func(){cancelAvail, cancelBody, cancelColor}
}

// unsubscribeLocked cancels all device subscriptions. Caller holds s.mu.
func (s *Session) unsubscribeLocked() {
	for _, cancel := range s.cancels {
		cancel()
	}
	s.cancels = nil
	s.availCh, s.bodyCh, s.colorCh = nil, nil, nil
}

// run is the acquisition loop. It is started once and runs for the rest of
// the process; only the session state underneath it changes. A single
// iteration never lets a transient failure escape.
func (s *Session) run() {
	for {
		s.drainAvailability()

		s.mu.Lock()
		state := s.state
		availCh, bodyCh, colorCh := s.availCh, s.bodyCh, s.colorCh
		camera := s.cameraEnabled
		s.mu.Unlock()

		if state != StateAvailable {
			// Not delivering frames; keep observing availability flips.
			if availCh == nil {
				time.Sleep(s.idlePoll)
				continue
			}
			select {
			case v, ok := <-availCh:
				if ok {
					s.applyAvailability(v)
				} else {
					time.Sleep(s.idlePoll)
				}
			case <-time.After(s.idlePoll):
			}
			continue
		}

		// Bounded wait for the next body frame. A timeout just means no
		// frame arrived; the loop continues.
		timeout := time.NewTimer(s.frameTimeout)
		select {
		case v, ok := <-availCh:
			if ok {
				s.applyAvailability(v)
			}
		case bf, ok := <-bodyCh:
			if ok {
				s.ingestBody(bf)
			}
		case <-timeout.C:
		}
		timeout.Stop()

		// Color is independent of the skeletal stream and never blocks.
		if camera && colorCh != nil {
			select {
			case cf, ok := <-colorCh:
				if ok {
					s.snap.setColor(cf.Data, cf.Width, cf.Height)
				}
			default:
			}
		}
	}
}

// drainAvailability applies any pending availability flips without
// blocking.
func (s *Session) drainAvailability() {
	for {
		s.mu.Lock()
		ch := s.availCh
		s.mu.Unlock()
		if ch == nil {
			return
		}
		select {
		case v, ok := <-ch:
			if !ok {
				return
			}
			s.applyAvailability(v)
		default:
			return
		}
	}
}

// applyAvailability moves the session between Available and Unavailable
// and fires the status callback. Transitions during shutdown are ignored.
func (s *Session) applyAvailability(available bool) {
	s.mu.Lock()
	if s.state != StateAvailable && s.state != StateUnavailable {
		s.mu.Unlock()
		return
	}
	next := StateUnavailable
	if available {
		next = StateAvailable
	}
	changed := s.state != next
	s.state = next
	callback := s.onStatus
	s.mu.Unlock()

	if changed && callback != nil {
		// Fired from the acquisition goroutine; the host resynchronizes.
		callback(available)
	}
}

// ingestBody selects the first tracked body and publishes its joints in
// canonical role order. When no body is tracked only the flag is cleared;
// the previous joint samples stay visible as stale-but-valid data.
func (s *Session) ingestBody(bf BodyFrame) {
	for i := range bf.Bodies {
		b := &bf.Bodies[i]
		if !b.Tracked {
			continue
		}
		var samples [joint.Count]joint.Sample
		for _, r := range joint.Roles() {
			samples[r] = b.Joints[r.Native()]
		}
		s.snap.setBody(samples, true)
		return
	}
	s.snap.clearTracked()
}

// OnStatusChanged registers the callback fired on every availability flip.
// The callback runs on the acquisition goroutine, not the host thread.
func (s *Session) OnStatusChanged(fn func(available bool)) {
	s.mu.Lock()
	s.onStatus = fn
	s.mu.Unlock()
}

// IsInitialized reports whether the session is up and the device is
// currently available.
func (s *Session) IsInitialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateAvailable
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// DeviceStatus reports coarse device health for the host status display.
func (s *Session) DeviceStatus() DeviceStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.opened {
		return StatusUndefined
	}
	if s.device.Available() {
		return StatusOK
	}
	return StatusNotAvailable
}

// IsSkeletonTracked reports whether a body was tracked in the latest frame.
func (s *Session) IsSkeletonTracked() bool {
	return s.snap.isTracked()
}

// TrackedJoints returns a defensive copy of the current joint samples in
// canonical role order. Returns an empty slice until the session has been
// initialized, matching the query-anytime contract.
func (s *Session) TrackedJoints() []TrackedJoint {
	if !s.IsInitialized() {
		return []TrackedJoint{}
	}
	samples, _ := s.snap.body()
	out := make([]TrackedJoint, 0, joint.Count)
	for _, r := range joint.Roles() {
		sample := samples[r]
		out = append(out, TrackedJoint{
			Role:        r,
			Position:    sample.Position,
			Orientation: sample.Orientation,
			State:       sample.State,
		})
	}
	return out
}

// ImageBuffer returns a copy of the latest color frame, or nil when color
// capture is disabled or no frame has arrived.
func (s *Session) ImageBuffer() []byte {
	return s.snap.colorCopy()
}

// ImageSize returns the dimensions of the latest color frame.
func (s *Session) ImageSize() (w, h int) {
	return s.snap.colorSize()
}

// FrameSequence returns the snapshot write counter. Useful for callers
// that want to skip work when no new frame has been published.
func (s *Session) FrameSequence() uint64 {
	return s.snap.sequence()
}

// ColorSequence returns the color write counter. Color frames arrive
// whether or not a body is in view, so consumers of the image buffer gate
// on this instead of FrameSequence.
func (s *Session) ColorSequence() uint64 {
	return s.snap.colorSequence()
}

// MapCoordinate projects a 3D sensor-space point into image space. A
// non-positive Z is clamped to a small epsilon before projection. When the
// projection fails or yields non-finite coordinates the sentinel (-1,-1)
// is returned; callers must treat it as "do not draw".
func (s *Session) MapCoordinate(p joint.Vec3) (x, y float64) {
	s.mu.Lock()
	opened := s.opened
	s.mu.Unlock()
	if !opened {
		return -1, -1
	}

	if p.Z <= 0 {
		p.Z = zClampEpsilon
	}
	x, y, ok := s.device.ProjectToImage(p)
	if !ok || math.IsNaN(x) || math.IsNaN(y) || math.IsInf(x, 0) || math.IsInf(y, 0) {
		return -1, -1
	}
	return x, y
}

// SetCameraEnabled toggles color capture. Takes effect on the next loop
// iteration; the existing buffer is left as-is when disabling.
func (s *Session) SetCameraEnabled(enabled bool) {
	s.mu.Lock()
	s.cameraEnabled = enabled
	s.mu.Unlock()
}

// CameraEnabled reports whether color capture is enabled.
func (s *Session) CameraEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cameraEnabled
}
