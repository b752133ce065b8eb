package plugin

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// ErrPluginNotFound is returned when a requested plugin cannot be found.
var ErrPluginNotFound = errors.New("plugin not found")

// Manager discovers plugins under a directory and serves lookups by name.
type Manager struct {
	dir     string
	mu      sync.RWMutex
	plugins map[string]*Plugin
}

// NewManager creates a Manager rooted at dir. Call Discover before Get.
func NewManager(dir string) *Manager {
	return &Manager{
		dir:     dir,
		plugins: make(map[string]*Plugin),
	}
}

// Discover rescans the plugin directory. Every subdirectory with a valid
// plugin.json becomes a plugin; unreadable or malformed entries are
// skipped. A missing plugin directory is not an error.
func (m *Manager) Discover() error {
	found := make(map[string]*Plugin)

	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			m.mu.Lock()
			m.plugins = found
			m.mu.Unlock()
			return nil
		}
		return err
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		path := filepath.Join(m.dir, entry.Name())
		data, err := os.ReadFile(filepath.Join(path, "plugin.json"))
		if err != nil {
			continue
		}

		var manifest Manifest
		if err := json.Unmarshal(data, &manifest); err != nil {
			continue
		}
		if manifest.Name == "" || manifest.Executable == "" {
			continue
		}

		found[manifest.Name] = &Plugin{
			Manifest:   manifest,
			Path:       path,
			Executable: filepath.Join(path, manifest.Executable),
		}
	}

	m.mu.Lock()
	m.plugins = found
	m.mu.Unlock()
	return nil
}

// Get returns a plugin by name, or ErrPluginNotFound.
func (m *Manager) Get(name string) (*Plugin, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.plugins[name]
	if !ok {
		return nil, ErrPluginNotFound
	}
	return p, nil
}

// List returns all discovered plugins sorted by name.
func (m *Manager) List() []*Plugin {
	m.mu.RLock()
	plugins := make([]*Plugin, 0, len(m.plugins))
	for _, p := range m.plugins {
		plugins = append(plugins, p)
	}
	m.mu.RUnlock()

	sort.Slice(plugins, func(i, j int) bool {
		return plugins[i].Manifest.Name < plugins[j].Manifest.Name
	})
	return plugins
}

// PluginDir returns the directory the manager scans.
func (m *Manager) PluginDir() string {
	return m.dir
}
