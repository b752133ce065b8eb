package sensor

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/angika/internal/joint"
	"github.com/ayusman/angika/internal/rtcheck"
)

// Full-body pose landmark indices, MediaPipe Pose convention.
const (
	lmNose          = 0
	lmShoulderLeft  = 11
	lmShoulderRight = 12
	lmElbowLeft     = 13
	lmElbowRight    = 14
	lmWristLeft     = 15
	lmWristRight    = 16
	lmIndexLeft     = 19
	lmIndexRight    = 20
	lmThumbLeft     = 21
	lmThumbRight    = 22
	lmHipLeft       = 23
	lmHipRight      = 24
	lmKneeLeft      = 25
	lmKneeRight     = 26
	lmAnkleLeft     = 27
	lmAnkleRight    = 28
	lmFootLeft      = 31
	lmFootRight     = 32

	numPoseLandmarks = 33
)

// PoseService runs the external pose-estimation process and converts its
// landmark output into native body frames. Frames go out as JPEG with a
// 4-byte big-endian length prefix; one JSON line comes back per frame.
// The process is started lazily on first use.
type PoseService struct {
	mu      sync.Mutex
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	stdout  *bufio.Reader
	started bool
}

// NewPoseService creates a pose service. It fails when the runtime is not
// installed; use rtcheck.Present to precheck.
func NewPoseService() (*PoseService, error) {
	if !rtcheck.Present() {
		return nil, fmt.Errorf("pose runtime not installed")
	}
	return &PoseService{}, nil
}

type jsonLandmark struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Visibility float64 `json:"visibility"`
}

// DetectBody runs pose estimation on a frame. Returns (nil, nil) when no
// person is in view.
func (p *PoseService) DetectBody(frame *gocv.Mat) (*Body, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ensureStarted(); err != nil {
		return nil, err
	}

	buf, err := gocv.IMEncode(".jpg", *frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()
	data := buf.GetBytes()

	length := make([]byte, 4)
	binary.BigEndian.PutUint32(length, uint32(len(data)))
	if _, err := p.stdin.Write(length); err != nil {
		return nil, fmt.Errorf("write length: %w", err)
	}
	if _, err := p.stdin.Write(data); err != nil {
		return nil, fmt.Errorf("write data: %w", err)
	}

	line, err := p.stdout.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var response struct {
		Landmarks []jsonLandmark `json:"landmarks"`
	}
	if err := json.Unmarshal([]byte(line), &response); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if len(response.Landmarks) == 0 {
		return nil, nil
	}

	body := landmarksToBody(response.Landmarks)
	return &body, nil
}

// Close shuts down the pose process.
func (p *PoseService) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return nil
	}
	if p.stdin != nil {
		p.stdin.Close()
	}
	err := p.cmd.Wait()
	p.started = false
	p.cmd = nil
	p.stdin = nil
	p.stdout = nil
	return err
}

func (p *PoseService) ensureStarted() error {
	if p.started {
		return nil
	}

	scriptPath := rtcheck.ServicePath()
	if scriptPath == "" {
		return fmt.Errorf("pose service script not found")
	}
	pythonPath := rtcheck.InterpreterPath()
	if pythonPath == "" {
		pythonPath = "python3"
	}

	p.cmd = exec.Command(pythonPath, scriptPath)

	stdin, err := p.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}
	stdout, err := p.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}
	p.cmd.Stderr = os.Stderr

	if err := p.cmd.Start(); err != nil {
		return fmt.Errorf("start pose service: %w", err)
	}

	p.stdin = stdin
	p.stdout = bufio.NewReader(stdout)
	p.started = true
	return nil
}

// landmarksToBody maps pose landmarks onto the native joint set. Spine
// joints are synthesized from shoulder and hip midpoints since the pose
// model does not emit them directly.
func landmarksToBody(lms []jsonLandmark) Body {
	at := func(i int) jsonLandmark {
		if i < len(lms) {
			return lms[i]
		}
		return jsonLandmark{}
	}
	mid := func(a, b jsonLandmark) jsonLandmark {
		return jsonLandmark{
			X:          (a.X + b.X) / 2,
			Y:          (a.Y + b.Y) / 2,
			Z:          (a.Z + b.Z) / 2,
			Visibility: (a.Visibility + b.Visibility) / 2,
		}
	}

	shoulderMid := mid(at(lmShoulderLeft), at(lmShoulderRight))
	hipMid := mid(at(lmHipLeft), at(lmHipRight))
	spineMid := mid(shoulderMid, hipMid)

	assign := map[joint.NativeID]jsonLandmark{
		joint.NativeHead:          at(lmNose),
		joint.NativeNeck:          shoulderMid,
		joint.NativeSpineShoulder: shoulderMid,
		joint.NativeSpineMid:      spineMid,
		joint.NativeSpineBase:     hipMid,
		joint.NativeShoulderLeft:  at(lmShoulderLeft),
		joint.NativeElbowLeft:     at(lmElbowLeft),
		joint.NativeWristLeft:     at(lmWristLeft),
		joint.NativeHandLeft:      at(lmWristLeft),
		joint.NativeHandTipLeft:   at(lmIndexLeft),
		joint.NativeThumbLeft:     at(lmThumbLeft),
		joint.NativeShoulderRight: at(lmShoulderRight),
		joint.NativeElbowRight:    at(lmElbowRight),
		joint.NativeWristRight:    at(lmWristRight),
		joint.NativeHandRight:     at(lmWristRight),
		joint.NativeHandTipRight:  at(lmIndexRight),
		joint.NativeThumbRight:    at(lmThumbRight),
		joint.NativeHipLeft:       at(lmHipLeft),
		joint.NativeKneeLeft:      at(lmKneeLeft),
		joint.NativeAnkleLeft:     at(lmAnkleLeft),
		joint.NativeFootLeft:      at(lmFootLeft),
		joint.NativeHipRight:      at(lmHipRight),
		joint.NativeKneeRight:     at(lmKneeRight),
		joint.NativeAnkleRight:    at(lmAnkleRight),
		joint.NativeFootRight:     at(lmFootRight),
	}

	body := Body{Tracked: true}
	for id, lm := range assign {
		body.Joints[id] = joint.Sample{
			// Normalized image coords recentered so (0,0) is mid-frame
			// and Y grows upward, matching sensor-space conventions.
			Position:    joint.Vec3{X: lm.X - 0.5, Y: 0.5 - lm.Y, Z: 2.0 + lm.Z},
			Orientation: joint.Quat{W: 1},
			State:       visibilityState(lm.Visibility),
		}
	}
	return body
}

func visibilityState(v float64) joint.TrackingState {
	switch {
	case v >= 0.8:
		return joint.Tracked
	case v >= 0.5:
		return joint.Inferred
	default:
		return joint.NotTracked
	}
}
