// Package adapter ties the sensor session to gesture channels. Each tick
// it reads the latest body snapshot, evaluates the hand signals, runs the
// per-channel debounce detectors and, when a channel fires, logs an event
// and dispatches the channel's bound plugin action.
package adapter

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/ayusman/angika/internal/gesture"
	"github.com/ayusman/angika/internal/joint"
	"github.com/ayusman/angika/internal/plugin"
	"github.com/ayusman/angika/internal/sensor"
	"github.com/ayusman/angika/internal/store"
)

// Well-known channel names. Pause channels react to a raised hand, point
// channels to a hand extended toward the sensor.
const (
	ChannelLeftPause  = "left-pause"
	ChannelRightPause = "right-pause"
	ChannelLeftPoint  = "left-point"
	ChannelRightPoint = "right-point"
)

// DefaultTickRate is the evaluation frequency used when no setting
// overrides it.
const DefaultTickRate = 30

// Trigger describes one channel firing.
type Trigger struct {
	Channel string
	Event   *store.Event
}

type channelState struct {
	name     string
	signal   gesture.Signal
	detector *gesture.Detector
}

// Config collects the adapter's collaborators. Session and Store are
// required; Plugins and Executor may be nil to disable dispatch. A nil
// Clock means the real clock, a nil Logger the default logger.
type Config struct {
	Session  *sensor.Session
	Store    *store.Store
	Plugins  *plugin.Manager
	Executor *plugin.Executor
	Clock    clock.Clock
	Logger   *log.Logger
}

// Adapter evaluates gesture channels against the live body snapshot.
type Adapter struct {
	session  *sensor.Session
	store    *store.Store
	plugins  *plugin.Manager
	executor *plugin.Executor
	clock    clock.Clock
	logger   *log.Logger

	mu        sync.Mutex
	channels  []*channelState
	onTrigger func(Trigger)
}

// New creates an Adapter with the four standard channels.
func New(cfg Config) *Adapter {
	clk := cfg.Clock
	if clk == nil {
		clk = clock.New()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	a := &Adapter{
		session:  cfg.Session,
		store:    cfg.Store,
		plugins:  cfg.Plugins,
		executor: cfg.Executor,
		clock:    clk,
		logger:   logger,
	}

	defs := []struct {
		name   string
		signal gesture.Signal
	}{
		{ChannelLeftPause, gesture.HandRaised(gesture.Left)},
		{ChannelRightPause, gesture.HandRaised(gesture.Right)},
		{ChannelLeftPoint, gesture.HandExtended(gesture.Left)},
		{ChannelRightPoint, gesture.HandExtended(gesture.Right)},
	}
	for _, d := range defs {
		a.channels = append(a.channels, &channelState{
			name:     d.name,
			signal:   d.signal,
			detector: gesture.NewDetectorWithClock(clk),
		})
	}
	return a
}

// ChannelNames returns the adapter's channel names in evaluation order.
func (a *Adapter) ChannelNames() []string {
	names := make([]string, len(a.channels))
	for i, c := range a.channels {
		names[i] = c.name
	}
	return names
}

// Session returns the underlying sensor session.
func (a *Adapter) Session() *sensor.Session {
	return a.session
}

// OnTrigger registers a callback invoked after a channel fires and its
// event has been stored. Called from the tick goroutine.
func (a *Adapter) OnTrigger(fn func(Trigger)) {
	a.mu.Lock()
	a.onTrigger = fn
	a.mu.Unlock()
}

// Tick evaluates every channel once against the current snapshot. When no
// body is tracked all signals read false, which resets the detectors.
func (a *Adapter) Tick() {
	var samples [joint.Count]joint.Sample
	tracked := a.session.IsInitialized() && a.session.IsSkeletonTracked()
	if tracked {
		for _, tj := range a.session.TrackedJoints() {
			samples[tj.Role] = joint.Sample{
				Position:    tj.Position,
				Orientation: tj.Orientation,
				State:       tj.State,
			}
		}
	}

	// Detector updates happen under the lock; firing does not, so the
	// trigger callback may call back into the adapter.
	a.mu.Lock()
	var fired []string
	for _, c := range a.channels {
		value := tracked && c.signal(samples)
		if c.detector.Update(value) {
			fired = append(fired, c.name)
		}
	}
	onTrigger := a.onTrigger
	a.mu.Unlock()

	for _, name := range fired {
		a.fire(name, onTrigger)
	}
}

// fire logs the event, notifies the trigger callback and dispatches the
// channel's plugin binding if one is configured and enabled.
func (a *Adapter) fire(name string, onTrigger func(Trigger)) {
	binding, err := a.store.Channels().Get(name)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		a.logger.Printf("channel %s: load binding: %v", name, err)
		return
	}
	// A channel without a stored row is enabled but unbound.
	if binding != nil && !binding.Enabled {
		return
	}

	event, err := a.store.Events().Insert(name)
	if err != nil {
		a.logger.Printf("channel %s: log event: %v", name, err)
		return
	}
	a.logger.Printf("channel %s fired (event %s)", name, event.ID)

	if onTrigger != nil {
		onTrigger(Trigger{Channel: name, Event: event})
	}

	if binding == nil || binding.PluginName == "" || a.plugins == nil || a.executor == nil {
		return
	}
	go a.dispatch(binding, event)
}

func (a *Adapter) dispatch(binding *store.Channel, event *store.Event) {
	p, err := a.plugins.Get(binding.PluginName)
	if err != nil {
		a.logger.Printf("channel %s: plugin %s: %v", binding.Name, binding.PluginName, err)
		return
	}

	resp, err := a.executor.Execute(p, &plugin.Request{
		Action:  binding.ActionName,
		Channel: binding.Name,
		EventID: event.ID,
		FiredAt: event.CreatedAt,
		Config:  binding.Config,
	})
	if err != nil {
		a.logger.Printf("channel %s: execute %s/%s: %v", binding.Name, binding.PluginName, binding.ActionName, err)
		return
	}
	if !resp.Success {
		a.logger.Printf("channel %s: plugin %s reported: %s", binding.Name, binding.PluginName, resp.Error)
	}
}

// Run ticks the adapter at the given rate until the context is cancelled.
// A non-positive rate falls back to DefaultTickRate.
func (a *Adapter) Run(ctx context.Context, tickRate int) {
	if tickRate <= 0 {
		tickRate = DefaultTickRate
	}
	ticker := a.clock.Ticker(time.Second / time.Duration(tickRate))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.Tick()
		}
	}
}
