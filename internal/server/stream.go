package server

import (
	"fmt"
	"net/http"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/angika/internal/sensor"
)

const streamInterval = 66 * time.Millisecond // ~15 FPS

// StreamHandler serves the session's color buffer as an MJPEG stream.
type StreamHandler struct {
	session *sensor.Session
}

// NewStreamHandler creates a StreamHandler reading from the session.
func NewStreamHandler(session *sensor.Session) *StreamHandler {
	return &StreamHandler{session: session}
}

// ServeHTTP streams MJPEG frames until the client disconnects. While no
// color frame is available (camera disabled or no device) the stream
// idles without sending parts.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	var lastSeq uint64
	for {
		select {
		case <-r.Context().Done():
			return
		default:
		}

		seq := h.session.ColorSequence()
		frame := h.session.ImageBuffer()
		width, height := h.session.ImageSize()
		if frame == nil || width == 0 || height == 0 || seq == lastSeq {
			time.Sleep(streamInterval)
			continue
		}
		lastSeq = seq

		jpeg, err := encodeJPEG(frame, width, height)
		if err != nil {
			time.Sleep(streamInterval)
			continue
		}

		fmt.Fprintf(w, "--frame\r\n")
		fmt.Fprintf(w, "Content-Type: image/jpeg\r\n")
		fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", len(jpeg))
		if _, err := w.Write(jpeg); err != nil {
			return
		}
		fmt.Fprintf(w, "\r\n")

		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		time.Sleep(streamInterval)
	}
}

// encodeJPEG compresses a BGRA buffer to JPEG.
func encodeJPEG(bgra []byte, width, height int) ([]byte, error) {
	mat, err := gocv.NewMatFromBytes(height, width, gocv.MatTypeCV8UC4, bgra)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	bgr := gocv.NewMat()
	defer bgr.Close()
	gocv.CvtColor(mat, &bgr, gocv.ColorBGRAToBGR)

	buf, err := gocv.IMEncode(".jpg", bgr)
	if err != nil {
		return nil, err
	}
	defer buf.Close()

	out := make([]byte, len(buf.GetBytes()))
	copy(out, buf.GetBytes())
	return out, nil
}
