package e2e

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ayusman/angika/internal/adapter"
	"github.com/ayusman/angika/internal/app"
	"github.com/ayusman/angika/internal/joint"
	"github.com/ayusman/angika/internal/sensor"
)

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// raisedLeftHand builds a tracked body with the left wrist held well above
// the head.
func raisedLeftHand() sensor.Body {
	b := sensor.TrackedBody(joint.Vec3{Y: 1.0, Z: 2.0})
	b.Joints[joint.Head.Native()].Position = joint.Vec3{Y: 1.6, Z: 2.0}
	b.Joints[joint.WristLeft.Native()].Position = joint.Vec3{X: -0.3, Y: 1.9, Z: 2.0}
	b.Joints[joint.WristRight.Native()].Position = joint.Vec3{X: 0.3, Y: 1.0, Z: 2.0}
	return b
}

func TestE2E_HoldGestureToEvent(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	dev := sensor.NewSimDevice()
	a, err := app.New(app.Config{
		DataDir:   t.TempDir(),
		PluginDir: t.TempDir(),
		Device:    dev,
		GraceWait: time.Millisecond,
	})
	if err != nil {
		t.Fatalf("app.New: %v", err)
	}
	if err := a.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer a.Stop()

	ts := httptest.NewServer(a.Server())
	defer ts.Close()
	client := ts.Client()

	t.Run("StatusReportsLiveSession", func(t *testing.T) {
		resp, err := client.Get(ts.URL + "/api/status")
		if err != nil {
			t.Fatalf("get status: %v", err)
		}
		defer resp.Body.Close()

		var status struct {
			Initialized  bool   `json:"initialized"`
			DeviceStatus string `json:"deviceStatus"`
		}
		json.NewDecoder(resp.Body).Decode(&status)
		if !status.Initialized {
			t.Fatalf("status = %+v", status)
		}
	})

	// Feed the raised hand continuously; the adapter's real-time tick loop
	// should fire left-pause after the hold delay.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(20 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				dev.PushBodyFrame(sensor.BodyFrame{Bodies: []sensor.Body{raisedLeftHand()}})
			}
		}
	}()

	waitFor(t, "skeleton tracking", func() bool { return a.Session().IsSkeletonTracked() })

	t.Run("JointsEndpointSeesBody", func(t *testing.T) {
		resp, err := client.Get(ts.URL + "/api/joints")
		if err != nil {
			t.Fatalf("get joints: %v", err)
		}
		defer resp.Body.Close()

		var body struct {
			Tracked bool `json:"tracked"`
			Joints  []struct {
				Role string `json:"role"`
			} `json:"joints"`
		}
		json.NewDecoder(resp.Body).Decode(&body)
		if !body.Tracked || len(body.Joints) != joint.Count {
			t.Fatalf("tracked=%v joints=%d", body.Tracked, len(body.Joints))
		}
	})

	t.Run("HeldHandFiresChannel", func(t *testing.T) {
		waitFor(t, "trigger event", func() bool {
			events, err := a.Store().Events().ListRecent(10)
			if err != nil {
				return false
			}
			for _, e := range events {
				if e.Channel == adapter.ChannelLeftPause {
					return true
				}
			}
			return false
		})
	})

	t.Run("EventsVisibleOverHTTP", func(t *testing.T) {
		resp, err := client.Get(ts.URL + "/api/events")
		if err != nil {
			t.Fatalf("get events: %v", err)
		}
		defer resp.Body.Close()

		var body struct {
			Events []struct {
				Channel string `json:"channel"`
			} `json:"events"`
		}
		json.NewDecoder(resp.Body).Decode(&body)
		if len(body.Events) == 0 {
			t.Fatal("no events over HTTP")
		}
	})
}

func TestE2E_DisabledChannelStaysQuiet(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	dev := sensor.NewSimDevice()
	a, err := app.New(app.Config{
		DataDir:   t.TempDir(),
		PluginDir: t.TempDir(),
		Device:    dev,
		GraceWait: time.Millisecond,
	})
	if err != nil {
		t.Fatalf("app.New: %v", err)
	}
	if err := a.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer a.Stop()

	ts := httptest.NewServer(a.Server())
	defer ts.Close()
	client := ts.Client()

	// Disable the channel through the HTTP API before raising the hand.
	req, _ := http.NewRequest(http.MethodPut, ts.URL+"/api/channels/left-pause",
		strings.NewReader(`{"enabled":false}`))
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("disable channel: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("disable status = %d", resp.StatusCode)
	}

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(20 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				dev.PushBodyFrame(sensor.BodyFrame{Bodies: []sensor.Body{raisedLeftHand()}})
			}
		}
	}()

	waitFor(t, "skeleton tracking", func() bool { return a.Session().IsSkeletonTracked() })

	// Hold past the fire delay and verify nothing was logged.
	time.Sleep(1500 * time.Millisecond)
	events, err := a.Store().Events().ListRecent(10)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	for _, e := range events {
		if e.Channel == adapter.ChannelLeftPause {
			t.Fatalf("disabled channel fired: %+v", e)
		}
	}
}
