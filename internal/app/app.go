// Package app wires the Angika tracking adapter together: store, sensor
// device, session, gesture channels, plugins and the HTTP server.
package app

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ayusman/angika/internal/adapter"
	"github.com/ayusman/angika/internal/plugin"
	"github.com/ayusman/angika/internal/rtcheck"
	"github.com/ayusman/angika/internal/sensor"
	"github.com/ayusman/angika/internal/server"
	"github.com/ayusman/angika/internal/store"
)

// Config holds the application configuration.
type Config struct {
	// DataDir is where the database lives. Empty means ~/.angika.
	DataDir   string
	PluginDir string
	StaticDir string
	Addr      string
	CameraID  int

	// Device overrides automatic device selection. Used by tests and the
	// --sim flag.
	Device sensor.Device

	// GraceWait overrides the session's startup settle wait when positive.
	GraceWait time.Duration
}

// App owns the long-lived pieces of the tracking adapter.
type App struct {
	config  Config
	store   *store.Store
	session *sensor.Session
	plugins *plugin.Manager
	adapter *adapter.Adapter
	server  *server.Server

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New builds the application. The sensor session is created but not
// initialized; call Start.
func New(config Config) (*App, error) {
	dataDir := config.DataDir
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		dataDir = filepath.Join(home, ".angika")
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, err
	}

	st, err := store.New(filepath.Join(dataDir, "angika.db"))
	if err != nil {
		return nil, err
	}

	device := config.Device
	if device == nil {
		device = pickDevice(config.CameraID)
	}

	session := sensor.NewSession(sensor.Config{
		Device:        device,
		GraceWait:     config.GraceWait,
		CameraEnabled: st.Settings().GetBool(store.SettingCameraEnabled, true),
	})

	plugins := plugin.NewManager(config.PluginDir)
	if err := plugins.Discover(); err != nil {
		log.Printf("plugin discovery: %v", err)
	}

	a := &App{
		config:  config,
		store:   st,
		session: session,
		plugins: plugins,
		adapter: adapter.New(adapter.Config{
			Session:  session,
			Store:    st,
			Plugins:  plugins,
			Executor: plugin.NewExecutor(0),
		}),
	}
	a.server = server.New(server.Config{
		StaticDir: config.StaticDir,
		Store:     st,
		Adapter:   a.adapter,
	})
	return a, nil
}

// pickDevice chooses a webcam-backed device when one can work, and the
// simulated device otherwise so the rest of the stack stays exercisable.
func pickDevice(cameraID int) sensor.Device {
	pose, err := sensor.NewPoseService()
	if err != nil {
		log.Printf("pose runtime not available (%v), body frames disabled", err)
	} else {
		log.Printf("pose runtime found at %s", rtcheck.ServicePath())
	}

	dev := sensor.NewWebcamDevice(sensor.WebcamConfig{
		DeviceID: cameraID,
		Pose:     pose,
	})
	if err := dev.Open(); err != nil {
		log.Printf("webcam unavailable (%v), using simulated device", err)
		return sensor.NewSimDevice()
	}
	dev.Close()
	return dev
}

// Store returns the application store.
func (a *App) Store() *store.Store {
	return a.store
}

// Session returns the sensor session.
func (a *App) Session() *sensor.Session {
	return a.session
}

// Adapter returns the gesture channel adapter.
func (a *App) Adapter() *adapter.Adapter {
	return a.adapter
}

// PluginManager returns the plugin manager.
func (a *App) PluginManager() *plugin.Manager {
	return a.plugins
}

// Server returns the HTTP server.
func (a *App) Server() *server.Server {
	return a.server
}
