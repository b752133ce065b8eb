package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/ayusman/angika/internal/adapter"
	"github.com/ayusman/angika/internal/app"
	"github.com/ayusman/angika/internal/sensor"
	"github.com/ayusman/angika/internal/store"
	"github.com/ayusman/angika/internal/tray"
)

func main() {
	addr := flag.String("addr", ":8080", "HTTP listen address")
	dataDir := flag.String("data-dir", "", "data directory (default ~/.angika)")
	pluginDir := flag.String("plugin-dir", "", "plugin directory (default <data-dir>/plugins)")
	cameraID := flag.Int("camera", 0, "capture device id")
	sim := flag.Bool("sim", false, "use the simulated sensor instead of a webcam")
	noTray := flag.Bool("no-tray", false, "run headless without the system tray")
	flag.Parse()

	fmt.Println("Angika - Body Tracking Adapter")

	cfg := app.Config{
		DataDir:   *dataDir,
		PluginDir: *pluginDir,
		StaticDir: findWebDir(),
		Addr:      *addr,
		CameraID:  *cameraID,
	}
	if cfg.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			log.Fatalf("Failed to get home directory: %v", err)
		}
		cfg.DataDir = filepath.Join(home, ".angika")
	}
	if cfg.PluginDir == "" {
		cfg.PluginDir = filepath.Join(cfg.DataDir, "plugins")
	}
	if *sim {
		cfg.Device = sensor.NewSimDevice()
	}

	a, err := app.New(cfg)
	if err != nil {
		log.Fatalf("Failed to build application: %v", err)
	}

	if err := a.Start(); err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	defer a.Stop()

	if *noTray {
		waitForSignal()
		return
	}
	runTray(a, *addr)
}

// runTray wires the tray menu to the running application and blocks until
// quit is clicked.
func runTray(a *app.App, addr string) {
	t := tray.New(a.Session().CameraEnabled())

	a.Session().OnStatusChanged(func(available bool) {
		t.SetDeviceStatus(available)
	})
	a.Adapter().OnTrigger(func(tr adapter.Trigger) {
		t.SetLastTrigger(tr.Channel)
	})

	t.OnCameraToggle(func(enabled bool) {
		a.Session().SetCameraEnabled(enabled)
		if err := a.Store().Settings().SetBool(store.SettingCameraEnabled, enabled); err != nil {
			log.Printf("persisting camera toggle: %v", err)
		}
	})
	t.OnSettings(func() {
		openBrowser(settingsURL(addr))
	})
	t.OnQuit(func() {
		log.Println("quit requested from tray")
	})

	t.Run()
}

func waitForSignal() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	log.Println("shutting down")
}

func settingsURL(addr string) string {
	if addr != "" && addr[0] == ':' {
		return "http://localhost" + addr
	}
	return "http://" + addr
}

func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		log.Printf("open %s yourself: %v", url, err)
	}
}

// findWebDir searches for the bundled web UI in common locations.
func findWebDir() string {
	for _, p := range []string{"web", "../web", "../../web"} {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	webDir := filepath.Join(home, ".angika", "web")
	if info, err := os.Stat(webDir); err == nil && info.IsDir() {
		return webDir
	}
	return ""
}
