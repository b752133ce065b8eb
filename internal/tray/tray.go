// Package tray provides the system tray interface for the Angika tracking
// adapter: device status, a camera toggle and quick access to settings.
package tray

import (
	"sync"

	"github.com/getlantern/systray"
)

// Tray is the system tray application.
type Tray struct {
	onCameraToggle func(enabled bool)
	onSettings     func()
	onQuit         func()
	cameraEnabled  bool
	mu             sync.RWMutex

	// Menu items stored for later updates
	menuCamera  *systray.MenuItem
	menuDevice  *systray.MenuItem
	menuTrigger *systray.MenuItem
}

// New creates a Tray with the camera toggle starting from cameraEnabled.
func New(cameraEnabled bool) *Tray {
	return &Tray{
		cameraEnabled: cameraEnabled,
	}
}

// OnCameraToggle sets the callback invoked when the camera toggle is
// clicked.
func (t *Tray) OnCameraToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onCameraToggle = fn
}

// OnSettings sets the callback invoked when the settings item is clicked.
func (t *Tray) OnSettings(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onSettings = fn
}

// OnQuit sets the callback invoked when the quit item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application. Blocks until systray.Quit().
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

func (t *Tray) onReady() {
	systray.SetTitle("Angika")
	systray.SetTooltip("Angika Body Tracking")

	t.mu.Lock()
	cameraEnabled := t.cameraEnabled

	t.menuDevice = systray.AddMenuItem("Sensor: waiting", "Sensor availability")
	t.menuDevice.Disable()

	t.menuTrigger = systray.AddMenuItem("Last trigger: none", "Last fired gesture channel")
	t.menuTrigger.Disable()
	systray.AddSeparator()

	t.menuCamera = systray.AddMenuItem(cameraTitle(cameraEnabled), "Toggle color capture")
	t.mu.Unlock()
	systray.AddSeparator()

	menuSettings := systray.AddMenuItem("Open Settings...", "Open settings in browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit Angika")

	go func() {
		for {
			select {
			case <-t.menuCamera.ClickedCh:
				t.handleCameraToggle()
			case <-menuSettings.ClickedCh:
				t.handleSettings()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {
}

func cameraTitle(enabled bool) string {
	if enabled {
		return "● Camera on"
	}
	return "○ Camera off"
}

func (t *Tray) handleCameraToggle() {
	t.mu.Lock()
	t.cameraEnabled = !t.cameraEnabled
	enabled := t.cameraEnabled
	t.menuCamera.SetTitle(cameraTitle(enabled))
	callback := t.onCameraToggle
	t.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(enabled)
	}
}

func (t *Tray) handleSettings() {
	t.mu.RLock()
	callback := t.onSettings
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// SetDeviceStatus updates the sensor status line.
func (t *Tray) SetDeviceStatus(available bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.menuDevice == nil {
		return
	}
	if available {
		t.menuDevice.SetTitle("Sensor: connected")
	} else {
		t.menuDevice.SetTitle("Sensor: not available")
	}
}

// SetLastTrigger updates the last fired channel display.
func (t *Tray) SetLastTrigger(channel string) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.menuTrigger == nil {
		return
	}
	if channel == "" {
		t.menuTrigger.SetTitle("Last trigger: none")
	} else {
		t.menuTrigger.SetTitle("Last trigger: " + channel)
	}
}

// CameraEnabled returns the current camera toggle state.
func (t *Tray) CameraEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.cameraEnabled
}
