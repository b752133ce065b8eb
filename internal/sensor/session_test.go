package sensor

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/ayusman/angika/internal/joint"
)

func testSession(d Device) *Session {
	return NewSession(Config{
		Device:       d,
		GraceWait:    time.Millisecond,
		FrameTimeout: 20 * time.Millisecond,
		IdlePoll:     time.Millisecond,
	})
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, timeout time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestInitializeNoDevice(t *testing.T) {
	dev := NewSimDevice()
	dev.FailOpenWith(ErrNoDevice)

	s := testSession(dev)
	if got := s.Initialize(); got != InitUnavailable {
		t.Errorf("Initialize() = %v, want InitUnavailable", got)
	}
	if s.State() != StateUninitialized {
		t.Errorf("state = %v, want uninitialized", s.State())
	}
	if s.DeviceStatus() != StatusUndefined {
		t.Errorf("DeviceStatus() = %v, want undefined", s.DeviceStatus())
	}
}

func TestInitializeFatal(t *testing.T) {
	dev := NewSimDevice()
	dev.FailOpenWith(errors.New("driver exploded"))

	s := testSession(dev)
	if got := s.Initialize(); got != InitFatal {
		t.Errorf("Initialize() = %v, want InitFatal", got)
	}
	if s.IsInitialized() {
		t.Error("IsInitialized() = true after fatal open")
	}
}

func TestInitializeUnavailableDevice(t *testing.T) {
	dev := NewSimDevice()
	dev.SetAvailable(false)

	s := testSession(dev)
	if got := s.Initialize(); got != InitUnavailable {
		t.Errorf("Initialize() = %v, want InitUnavailable", got)
	}
	if s.State() != StateUnavailable {
		t.Errorf("state = %v, want unavailable", s.State())
	}
	if s.DeviceStatus() != StatusNotAvailable {
		t.Errorf("DeviceStatus() = %v, want not_available", s.DeviceStatus())
	}
}

func TestInitializeOK(t *testing.T) {
	dev := NewSimDevice()
	s := testSession(dev)

	if got := s.Initialize(); got != InitOK {
		t.Fatalf("Initialize() = %v, want InitOK", got)
	}
	if !s.IsInitialized() {
		t.Error("IsInitialized() = false after successful initialize")
	}
	if s.DeviceStatus() != StatusOK {
		t.Errorf("DeviceStatus() = %v, want ok", s.DeviceStatus())
	}
	s.Shutdown()
}

// countingDevice records Close calls so tests can assert no native calls
// happen on a no-op shutdown.
type countingDevice struct {
	*SimDevice
	closes int
}

func (d *countingDevice) Close() error {
	d.closes++
	return d.SimDevice.Close()
}

func TestShutdownWithoutInitialize(t *testing.T) {
	dev := &countingDevice{SimDevice: NewSimDevice()}
	s := testSession(dev)

	if got := s.Shutdown(); got != ShutdownNotNeeded {
		t.Errorf("Shutdown() = %v, want ShutdownNotNeeded", got)
	}
	if dev.closes != 0 {
		t.Errorf("device Close called %d times on no-op shutdown", dev.closes)
	}
}

func TestShutdownTwice(t *testing.T) {
	dev := NewSimDevice()
	s := testSession(dev)
	if s.Initialize() != InitOK {
		t.Fatal("initialize failed")
	}

	if got := s.Shutdown(); got != ShutdownOK {
		t.Errorf("first Shutdown() = %v, want ShutdownOK", got)
	}
	if got := s.Shutdown(); got != ShutdownNotNeeded {
		t.Errorf("second Shutdown() = %v, want ShutdownNotNeeded", got)
	}
	if a, b, c := dev.SubscriberCounts(); a+b+c != 0 {
		t.Errorf("subscriptions leaked after shutdown: %d/%d/%d", a, b, c)
	}
	if s.DeviceStatus() != StatusUndefined {
		t.Errorf("DeviceStatus() = %v after shutdown, want undefined", s.DeviceStatus())
	}
}

func TestReinitializeDoesNotLeakSubscriptions(t *testing.T) {
	dev := NewSimDevice()
	s := testSession(dev)

	for i := 0; i < 3; i++ {
		if got := s.Initialize(); got != InitOK {
			t.Fatalf("Initialize() #%d = %v, want InitOK", i+1, got)
		}
	}
	if a, b, c := dev.SubscriberCounts(); a != 1 || b != 1 || c != 1 {
		t.Errorf("subscription counts after re-initialize = %d/%d/%d, want 1/1/1", a, b, c)
	}
	s.Shutdown()
}

func TestAvailabilityFlipFiresCallback(t *testing.T) {
	dev := NewSimDevice()
	s := testSession(dev)

	flips := make(chan bool, 8)
	s.OnStatusChanged(func(available bool) { flips <- available })

	if s.Initialize() != InitOK {
		t.Fatal("initialize failed")
	}
	defer s.Shutdown()

	dev.SetAvailable(false)
	select {
	case v := <-flips:
		if v {
			t.Error("expected callback with available=false")
		}
	case <-time.After(time.Second):
		t.Fatal("no status callback after availability drop")
	}
	waitFor(t, time.Second, "state unavailable", func() bool { return s.State() == StateUnavailable })

	dev.SetAvailable(true)
	select {
	case v := <-flips:
		if !v {
			t.Error("expected callback with available=true")
		}
	case <-time.After(time.Second):
		t.Fatal("no status callback after availability recovery")
	}
	waitFor(t, time.Second, "state available", func() bool { return s.State() == StateAvailable })
}

func TestBodyIngestKeepsStaleJointsOnTrackingLoss(t *testing.T) {
	dev := NewSimDevice()
	s := testSession(dev)
	if s.Initialize() != InitOK {
		t.Fatal("initialize failed")
	}
	defer s.Shutdown()

	pos := joint.Vec3{X: 0.1, Y: 0.2, Z: 1.5}
	dev.PushBodyFrame(BodyFrame{Bodies: []Body{TrackedBody(pos)}})
	waitFor(t, time.Second, "skeleton tracked", s.IsSkeletonTracked)

	joints := s.TrackedJoints()
	if len(joints) != joint.Count {
		t.Fatalf("TrackedJoints() returned %d entries, want %d", len(joints), joint.Count)
	}
	for i, tj := range joints {
		if tj.Role != joint.Role(i) {
			t.Fatalf("joint order broken at %d: role %v", i, tj.Role)
		}
		if tj.Position != pos {
			t.Fatalf("joint %v position = %+v, want %+v", tj.Role, tj.Position, pos)
		}
	}

	// A frame with no tracked bodies clears the flag but must leave the
	// previous samples intact.
	dev.PushBodyFrame(BodyFrame{Bodies: []Body{{}, {}}})
	waitFor(t, time.Second, "tracking loss", func() bool { return !s.IsSkeletonTracked() })

	stale := s.TrackedJoints()
	if len(stale) != joint.Count {
		t.Fatalf("TrackedJoints() after loss returned %d entries", len(stale))
	}
	for _, tj := range stale {
		if tj.Position != pos {
			t.Errorf("joint %v was zeroed on tracking loss", tj.Role)
		}
	}
}

func TestBodyIngestPicksFirstTrackedBody(t *testing.T) {
	dev := NewSimDevice()
	s := testSession(dev)
	if s.Initialize() != InitOK {
		t.Fatal("initialize failed")
	}
	defer s.Shutdown()

	first := TrackedBody(joint.Vec3{X: 1, Z: 2})
	second := TrackedBody(joint.Vec3{X: -1, Z: 2})
	dev.PushBodyFrame(BodyFrame{Bodies: []Body{{}, first, second}})
	waitFor(t, time.Second, "skeleton tracked", s.IsSkeletonTracked)

	joints := s.TrackedJoints()
	if joints[joint.Head].Position.X != 1 {
		t.Errorf("expected first tracked body to win, head at %+v", joints[joint.Head].Position)
	}
}

func TestTenFrameScenario(t *testing.T) {
	dev := NewSimDevice()
	s := testSession(dev)
	if s.Initialize() != InitOK {
		t.Fatal("initialize failed")
	}
	defer s.Shutdown()

	states := []joint.TrackingState{joint.Tracked, joint.Inferred}
	var want joint.TrackingState
	for i := 0; i < 10; i++ {
		body := TrackedBody(joint.Vec3{X: float64(i), Z: 2})
		want = states[i%2]
		for j := range body.Joints {
			body.Joints[j].State = want
		}
		seq := s.FrameSequence()
		dev.PushBodyFrame(BodyFrame{Bodies: []Body{body}})
		waitFor(t, time.Second, "frame ingested", func() bool { return s.FrameSequence() > seq })
	}

	joints := s.TrackedJoints()
	if len(joints) != joint.Count {
		t.Fatalf("got %d joints, want %d", len(joints), joint.Count)
	}
	for i, tj := range joints {
		if tj.Role != joint.Role(i) {
			t.Errorf("role order broken at index %d", i)
		}
		if tj.State != want {
			t.Errorf("joint %v state = %v, want %v", tj.Role, tj.State, want)
		}
		if tj.Position.X != 9 {
			t.Errorf("joint %v position.X = %v, want 9", tj.Role, tj.Position.X)
		}
	}
}

func TestColorCapture(t *testing.T) {
	dev := NewSimDevice()
	s := NewSession(Config{
		Device:        dev,
		GraceWait:     time.Millisecond,
		FrameTimeout:  20 * time.Millisecond,
		IdlePoll:      time.Millisecond,
		CameraEnabled: true,
	})
	if s.Initialize() != InitOK {
		t.Fatal("initialize failed")
	}
	defer s.Shutdown()

	data := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	dev.PushColorFrame(ColorFrame{Width: 2, Height: 1, Data: data})
	dev.PushBodyFrame(BodyFrame{Bodies: []Body{TrackedBody(joint.Vec3{Z: 2})}})

	waitFor(t, time.Second, "color buffer", func() bool { return s.ImageBuffer() != nil })

	buf := s.ImageBuffer()
	if len(buf) != len(data) {
		t.Fatalf("buffer length = %d, want %d", len(buf), len(data))
	}
	buf[0] = 99 // must be a defensive copy
	if again := s.ImageBuffer(); again[0] == 99 {
		t.Error("ImageBuffer returned shared storage")
	}
	if w, h := s.ImageSize(); w != 2 || h != 1 {
		t.Errorf("ImageSize() = %dx%d, want 2x1", w, h)
	}
}

func TestCameraDisabledSkipsColor(t *testing.T) {
	dev := NewSimDevice()
	s := testSession(dev)
	if s.Initialize() != InitOK {
		t.Fatal("initialize failed")
	}
	defer s.Shutdown()

	if s.CameraEnabled() {
		t.Fatal("camera should default to disabled")
	}
	dev.PushColorFrame(ColorFrame{Width: 1, Height: 1, Data: []byte{1, 2, 3, 4}})
	dev.PushBodyFrame(BodyFrame{Bodies: []Body{TrackedBody(joint.Vec3{Z: 2})}})
	waitFor(t, time.Second, "body ingested", s.IsSkeletonTracked)

	if s.ImageBuffer() != nil {
		t.Error("color captured while camera disabled")
	}
}

// nanDevice projects everything to NaN.
type nanDevice struct{ *SimDevice }

func (d *nanDevice) ProjectToImage(joint.Vec3) (float64, float64, bool) {
	return math.NaN(), math.NaN(), true
}

func TestMapCoordinate(t *testing.T) {
	dev := NewSimDevice()
	s := testSession(dev)

	// Not initialized: nothing to project with.
	if x, y := s.MapCoordinate(joint.Vec3{Z: 1}); x != -1 || y != -1 {
		t.Errorf("MapCoordinate before initialize = (%v,%v), want sentinel", x, y)
	}

	if s.Initialize() != InitOK {
		t.Fatal("initialize failed")
	}
	defer s.Shutdown()

	// A point straight ahead lands on the principal point.
	x, y := s.MapCoordinate(joint.Vec3{X: 0, Y: 0, Z: 2})
	if x != float64(DefaultColorWidth)/2 || y != float64(DefaultColorHeight)/2 {
		t.Errorf("MapCoordinate(0,0,2) = (%v,%v)", x, y)
	}

	// Z at or below zero is clamped, not rejected.
	cx, cy := s.MapCoordinate(joint.Vec3{X: 0, Y: 0, Z: -3})
	if cx == -1 && cy == -1 {
		t.Error("MapCoordinate clamped point returned sentinel")
	}
	want, _ := s.MapCoordinate(joint.Vec3{X: 0, Y: 0, Z: zClampEpsilon})
	if cx != want {
		t.Errorf("clamped projection = %v, want %v", cx, want)
	}
}

func TestMapCoordinateNonFinite(t *testing.T) {
	dev := &nanDevice{SimDevice: NewSimDevice()}
	s := testSession(dev)
	if s.Initialize() != InitOK {
		t.Fatal("initialize failed")
	}
	defer s.Shutdown()

	if x, y := s.MapCoordinate(joint.Vec3{Z: 1}); x != -1 || y != -1 {
		t.Errorf("non-finite projection = (%v,%v), want (-1,-1)", x, y)
	}
}

func TestTrackedJointsEmptyBeforeInitialize(t *testing.T) {
	s := testSession(NewSimDevice())
	if joints := s.TrackedJoints(); len(joints) != 0 {
		t.Errorf("TrackedJoints() before initialize returned %d entries", len(joints))
	}
}
