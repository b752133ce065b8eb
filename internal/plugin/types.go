// Package plugin discovers and runs external action plugins. A plugin is
// a directory holding a plugin.json manifest and an executable; the host
// invokes the executable with a JSON request on stdin whenever a gesture
// channel it is bound to fires.
package plugin

import (
	"encoding/json"
	"time"
)

// Manifest describes a plugin's metadata and the actions it offers.
type Manifest struct {
	Name         string          `json:"name"`
	Version      string          `json:"version"`
	Description  string          `json:"description"`
	Executable   string          `json:"executable"`
	Actions      []string        `json:"actions"`
	ConfigSchema json.RawMessage `json:"configSchema,omitempty"`
}

// Plugin is a discovered plugin with its manifest and on-disk location.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}

// HasAction reports whether the plugin's manifest declares the action.
func (p *Plugin) HasAction(action string) bool {
	for _, a := range p.Manifest.Actions {
		if a == action {
			return true
		}
	}
	return false
}

// Request is sent to a plugin on stdin when a channel fires.
type Request struct {
	Action  string          `json:"action"`
	Channel string          `json:"channel"`
	EventID string          `json:"eventId"`
	FiredAt time.Time       `json:"firedAt"`
	Config  json.RawMessage `json:"config,omitempty"`
}

// Response is what a plugin writes to stdout.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}
