package sensor

import (
	"image"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// Presence detection constants.
const (
	// presenceBlurSize is the Gaussian blur kernel size.
	presenceBlurSize = 21
	// presenceDiffThreshold is the binary threshold for frame differencing.
	presenceDiffThreshold = 25
)

// PresenceGate decides whether anyone is in front of the webcam by frame
// differencing. The webcam device uses it to skip pose inference on an
// empty scene; the gate stays open for a hold window after the last
// observed motion so a briefly still subject is not dropped.
type PresenceGate struct {
	threshold   float64
	hold        time.Duration
	prevGray    gocv.Mat
	initialized bool
	lastMotion  time.Time
	mu          sync.Mutex
}

// NewPresenceGate creates a gate. threshold is the percentage of pixels
// that must change between frames to count as motion; hold is how long
// the gate stays open after the last motion.
func NewPresenceGate(threshold float64, hold time.Duration) *PresenceGate {
	if threshold <= 0 {
		threshold = 1.0
	}
	if hold <= 0 {
		hold = 2 * time.Second
	}
	return &PresenceGate{
		threshold: threshold,
		hold:      hold,
		prevGray:  gocv.NewMat(),
	}
}

// Observe feeds one frame through the differencing pipeline and reports
// whether the gate is currently open.
//
// Pipeline: grayscale, Gaussian blur, absolute difference against the
// previous frame, binary threshold, changed-pixel percentage.
func (g *PresenceGate) Observe(frame *gocv.Mat) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if frame == nil || frame.Empty() {
		return g.openLocked()
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Point{X: presenceBlurSize, Y: presenceBlurSize}, 0, 0, gocv.BorderDefault)

	if !g.initialized {
		blurred.CopyTo(&g.prevGray)
		g.initialized = true
		return g.openLocked()
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(blurred, g.prevGray, &diff)

	thresh := gocv.NewMat()
	defer thresh.Close()
	gocv.Threshold(diff, &thresh, presenceDiffThreshold, 255, gocv.ThresholdBinary)

	nonZero := gocv.CountNonZero(thresh)
	totalPixels := thresh.Rows() * thresh.Cols()
	changePercent := float64(nonZero) / float64(totalPixels) * 100.0

	blurred.CopyTo(&g.prevGray)

	if changePercent > g.threshold {
		g.lastMotion = time.Now()
	}
	return g.openLocked()
}

func (g *PresenceGate) openLocked() bool {
	return time.Since(g.lastMotion) <= g.hold
}

// Open reports whether the gate is currently open without feeding a frame.
func (g *PresenceGate) Open() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.openLocked()
}

// Reset clears the baseline so the next frame starts a new comparison.
func (g *PresenceGate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.prevGray.Empty() {
		g.prevGray.Close()
		g.prevGray = gocv.NewMat()
	}
	g.initialized = false
	g.lastMotion = time.Time{}
}

// Close releases the gate's resources.
func (g *PresenceGate) Close() {
	g.Reset()
}
