// Package main provides a system control plugin for macOS.
// It handles volume, brightness, and media playback controls via
// AppleScript. Step sizes and repeat counts come from the channel's
// stored config.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"time"
)

// Request represents the input from the plugin executor.
type Request struct {
	Action  string          `json:"action"`
	Channel string          `json:"channel"`
	EventID string          `json:"eventId"`
	FiredAt time.Time       `json:"firedAt"`
	Config  json.RawMessage `json:"config"`
}

// Response represents the output to the plugin executor.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// ControlConfig defines the channel config shared by all actions. Step is
// the volume change in percent, Repeat how many times a media or
// brightness key is pressed per trigger.
type ControlConfig struct {
	Step   int `json:"step"`
	Repeat int `json:"repeat"`
}

// AppleScript key codes for the hardware media and brightness keys.
const (
	keyBrightnessUp   = 144
	keyBrightnessDown = 145
	keyPlayPause      = 100
	keyNext           = 101
	keyPrev           = 98
)

// actionHandlers maps action names to their handler functions. Every
// handler receives the parsed channel config.
var actionHandlers = map[string]func(ControlConfig) error{
	"volume-up":        func(c ControlConfig) error { return changeVolume(c.Step) },
	"volume-down":      func(c ControlConfig) error { return changeVolume(-c.Step) },
	"volume-mute":      func(ControlConfig) error { return toggleMute() },
	"brightness-up":    func(c ControlConfig) error { return pressKey(keyBrightnessUp, c.Repeat) },
	"brightness-down":  func(c ControlConfig) error { return pressKey(keyBrightnessDown, c.Repeat) },
	"media-play-pause": func(ControlConfig) error { return pressKey(keyPlayPause, 1) },
	"media-next":       func(c ControlConfig) error { return pressKey(keyNext, c.Repeat) },
	"media-prev":       func(c ControlConfig) error { return pressKey(keyPrev, c.Repeat) },
}

func main() {
	// Read request from stdin
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode request: %v", err))
		return
	}

	cfg, err := parseConfig(req.Config)
	if err != nil {
		writeErrorResponse(fmt.Sprintf("bad config: %v", err))
		return
	}

	// Look up the handler for the action
	handler, ok := actionHandlers[req.Action]
	if !ok {
		writeErrorResponse(fmt.Sprintf("unknown action: %s", req.Action))
		return
	}

	// Execute the handler
	if err := handler(cfg); err != nil {
		writeErrorResponse(fmt.Sprintf("action %s failed: %v", req.Action, err))
		return
	}

	// Write success response
	writeSuccessResponse()
}

// parseConfig unmarshals the channel config and fills in defaults. An
// empty or absent config is valid.
func parseConfig(raw json.RawMessage) (ControlConfig, error) {
	cfg := ControlConfig{Step: 10, Repeat: 1}
	if len(raw) == 0 {
		return cfg, nil
	}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return cfg, err
	}
	if cfg.Step <= 0 || cfg.Step > 100 {
		cfg.Step = 10
	}
	if cfg.Repeat <= 0 || cfg.Repeat > 10 {
		cfg.Repeat = 1
	}
	return cfg, nil
}

// writeErrorResponse writes an error response to stdout.
func writeErrorResponse(errMsg string) {
	resp := Response{
		Success: false,
		Error:   errMsg,
	}
	json.NewEncoder(os.Stdout).Encode(resp)
}

// writeSuccessResponse writes a success response to stdout.
func writeSuccessResponse() {
	resp := Response{
		Success: true,
	}
	json.NewEncoder(os.Stdout).Encode(resp)
}

// runAppleScript executes an AppleScript command and returns any error.
func runAppleScript(script string) error {
	cmd := exec.Command("osascript", "-e", script)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, string(output))
	}
	return nil
}

// changeVolume adjusts the output volume by delta percent. AppleScript
// clamps the result to 0..100 on its own.
func changeVolume(delta int) error {
	script := fmt.Sprintf(
		`set volume output volume ((output volume of (get volume settings)) + %d)`, delta)
	return runAppleScript(script)
}

// toggleMute flips the system mute state.
func toggleMute() error {
	script := `set volume output muted (not (output muted of (get volume settings)))`
	return runAppleScript(script)
}

// pressKey presses the given hardware key code the requested number of
// times.
func pressKey(code, times int) error {
	for i := 0; i < times; i++ {
		script := fmt.Sprintf(`tell application "System Events"
	key code %d
end tell`, code)
		if err := runAppleScript(script); err != nil {
			return err
		}
	}
	return nil
}
