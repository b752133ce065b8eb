package sensor

import (
	"sync"

	"github.com/ayusman/angika/internal/joint"
)

// snapshot holds the most recently observed joint samples and color image.
// It is written only by the acquisition goroutine and read by the host
// tick; a single lock guards every field so a reader never observes a
// partially updated joint array or a color buffer mid-resize.
type snapshot struct {
	mu      sync.RWMutex
	joints  [joint.Count]joint.Sample
	tracked bool
	seq     uint64

	color    []byte
	colorW   int
	colorH   int
	colorSeq uint64
}

// setBody atomically replaces the whole joint array and the tracked flag.
func (s *snapshot) setBody(samples [joint.Count]joint.Sample, tracked bool) {
	s.mu.Lock()
	s.joints = samples
	s.tracked = tracked
	s.seq++
	s.mu.Unlock()
}

// clearTracked marks the body as not currently tracked while keeping the
// previous joint samples intact. A transient tracking loss must not zero
// out joint data.
func (s *snapshot) clearTracked() {
	s.mu.Lock()
	s.tracked = false
	s.seq++
	s.mu.Unlock()
}

// setColor copies the frame into the reusable color buffer, reallocating
// only when the required size changes.
func (s *snapshot) setColor(data []byte, w, h int) {
	s.mu.Lock()
	if len(s.color) != len(data) {
		s.color = make([]byte, len(data))
	}
	copy(s.color, data)
	s.colorW = w
	s.colorH = h
	s.colorSeq++
	s.mu.Unlock()
}

// body returns a copy of the joint array and the tracked flag.
func (s *snapshot) body() ([joint.Count]joint.Sample, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.joints, s.tracked
}

// colorCopy returns a defensive copy of the color buffer, or nil when no
// color frame has been captured yet.
func (s *snapshot) colorCopy() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.color == nil {
		return nil
	}
	out := make([]byte, len(s.color))
	copy(out, s.color)
	return out
}

// colorSize returns the dimensions of the captured color image.
func (s *snapshot) colorSize() (w, h int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.colorW, s.colorH
}

// sequence returns the write counter, incremented on every body update.
func (s *snapshot) sequence() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.seq
}

// colorSequence returns the color write counter. It advances independently
// of the body sequence so a color-only feed is still observable as new.
func (s *snapshot) colorSequence() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.colorSeq
}

func (s *snapshot) isTracked() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tracked
}
