package sensor

import (
	"fmt"
	"log"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/angika/internal/joint"
)

// Webcam capture settings. Capture runs at a modest resolution for
// performance; the color feed carries whatever the capture produces.
const (
	webcamWidth  = 640
	webcamHeight = 480
	webcamFPS    = 15

	// webcamFailStreak is how many consecutive read failures flip the
	// device to unavailable.
	webcamFailStreak = 5
)

// WebcamConfig holds webcam device options.
type WebcamConfig struct {
	DeviceID int
	FPS      int
	// Pose is the optional pose-estimation backend. Without it the
	// device delivers color frames and empty body frames only.
	Pose *PoseService
	// PresenceThreshold is the motion percentage that opens the presence
	// gate; pose inference is skipped while the scene is still.
	PresenceThreshold float64
}

// WebcamDevice adapts a plain webcam into the Device contract: color
// frames come straight from capture, body frames from the pose backend,
// and availability follows whether reads keep succeeding.
type WebcamDevice struct {
	deviceID int
	fps      int
	pose     *PoseService
	gate     *PresenceGate

	mu        sync.Mutex
	capture   *gocv.VideoCapture
	opened    bool
	available bool
	stopCh    chan struct{}
	grabDone  chan struct{}

	avail feed[bool]
	body  feed[BodyFrame]
	color feed[ColorFrame]

	fx, fy, cx, cy float64
}

// NewWebcamDevice creates a webcam device. The capture is not opened
// until Open.
func NewWebcamDevice(cfg WebcamConfig) *WebcamDevice {
	if cfg.FPS <= 0 {
		cfg.FPS = webcamFPS
	}
	return &WebcamDevice{
		deviceID: cfg.DeviceID,
		fps:      cfg.FPS,
		pose:     cfg.Pose,
		gate:     NewPresenceGate(cfg.PresenceThreshold, 0),
		fx:       600,
		fy:       600,
		cx:       float64(webcamWidth) / 2,
		cy:       float64(webcamHeight) / 2,
	}
}

// Open opens the capture and starts the grab goroutine.
func (d *WebcamDevice) Open() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.opened {
		return nil
	}

	capture, err := gocv.OpenVideoCapture(d.deviceID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNoDevice, err)
	}

	capture.Set(gocv.VideoCaptureFrameWidth, webcamWidth)
	capture.Set(gocv.VideoCaptureFrameHeight, webcamHeight)
	capture.Set(gocv.VideoCaptureFPS, float64(d.fps))

	d.capture = capture
	d.opened = true
	d.available = true
	d.stopCh = make(chan struct{})
	d.grabDone = make(chan struct{})
	go d.grab(d.stopCh, d.grabDone)

	return nil
}

// Close stops the grab goroutine, releases the capture and drops all
// subscriptions.
func (d *WebcamDevice) Close() error {
	d.mu.Lock()
	if !d.opened {
		d.mu.Unlock()
		return nil
	}
	close(d.stopCh)
	done := d.grabDone
	d.mu.Unlock()

	<-done

	d.mu.Lock()
	err := d.capture.Close()
	d.capture = nil
	d.opened = false
	d.available = false
	d.mu.Unlock()

	d.avail.closeAll()
	d.body.closeAll()
	d.color.closeAll()
	d.gate.Reset()
	return err
}

func (d *WebcamDevice) Available() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opened && d.available
}

func (d *WebcamDevice) SubscribeAvailability() (<-chan bool, func()) {
	return d.avail.subscribe()
}

func (d *WebcamDevice) SubscribeBodyFrames() (<-chan BodyFrame, func()) {
	return d.body.subscribe()
}

func (d *WebcamDevice) SubscribeColorFrames() (<-chan ColorFrame, func()) {
	return d.color.subscribe()
}

// ProjectToImage applies a pinhole projection with webcam intrinsics.
func (d *WebcamDevice) ProjectToImage(p joint.Vec3) (float64, float64, bool) {
	if p.Z == 0 {
		return 0, 0, false
	}
	return d.cx + d.fx*(p.X/p.Z), d.cy - d.fy*(p.Y/p.Z), true
}

// grab is the capture loop. Each tick reads one frame, publishes its
// color data and, when the presence gate is open, a pose-derived body
// frame. Read failures only flip availability; they never stop the loop.
func (d *WebcamDevice) grab(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(time.Second / time.Duration(d.fps))
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		frame, ok := d.readFrame()
		if !ok {
			failures++
			if failures == webcamFailStreak {
				d.setAvailable(false)
			}
			continue
		}
		if failures >= webcamFailStreak {
			d.setAvailable(true)
		}
		failures = 0

		d.publishColor(&frame)

		if d.gate.Observe(&frame) && d.pose != nil {
			body, err := d.pose.DetectBody(&frame)
			switch {
			case err != nil:
				log.Printf("sensor: pose inference failed: %v", err)
			case body != nil:
				d.body.publish(BodyFrame{Bodies: []Body{*body}})
			default:
				d.body.publish(BodyFrame{Bodies: []Body{{}}})
			}
		}

		frame.Close()
	}
}

func (d *WebcamDevice) readFrame() (gocv.Mat, bool) {
	d.mu.Lock()
	capture := d.capture
	d.mu.Unlock()
	if capture == nil {
		return gocv.Mat{}, false
	}

	mat := gocv.NewMat()
	if !capture.Read(&mat) || mat.Empty() {
		mat.Close()
		return gocv.Mat{}, false
	}
	return mat, true
}

func (d *WebcamDevice) setAvailable(available bool) {
	d.mu.Lock()
	changed := d.available != available
	d.available = available
	d.mu.Unlock()
	if changed {
		d.avail.publish(available)
	}
}

// publishColor converts the captured frame to BGRA and hands it to
// subscribers.
func (d *WebcamDevice) publishColor(frame *gocv.Mat) {
	bgra := gocv.NewMat()
	defer bgra.Close()
	gocv.CvtColor(*frame, &bgra, gocv.ColorBGRToBGRA)

	d.color.publish(ColorFrame{
		Width:  bgra.Cols(),
		Height: bgra.Rows(),
		Data:   bgra.ToBytes(),
	})
}
