package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

// Channel represents one gesture channel's enablement and plugin binding.
type Channel struct {
	Name       string
	Enabled    bool
	PluginName string
	ActionName string
	Config     json.RawMessage
	UpdatedAt  time.Time
}

// ChannelRepository provides CRUD operations for gesture channels.
type ChannelRepository struct {
	db *sql.DB
}

// Channels returns the channel repository for this store.
func (s *Store) Channels() *ChannelRepository {
	return &ChannelRepository{db: s.db}
}

// Upsert inserts or replaces a channel row.
func (r *ChannelRepository) Upsert(c *Channel) error {
	c.UpdatedAt = time.Now()

	config := c.Config
	if config == nil {
		config = json.RawMessage("{}")
	}

	enabled := 0
	if c.Enabled {
		enabled = 1
	}

	_, err := r.db.Exec(
		`INSERT INTO channels (name, enabled, plugin_name, action_name, config, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET
			enabled = excluded.enabled,
			plugin_name = excluded.plugin_name,
			action_name = excluded.action_name,
			config = excluded.config,
			updated_at = excluded.updated_at`,
		c.Name, enabled, c.PluginName, c.ActionName, string(config), c.UpdatedAt,
	)
	return err
}

// Get retrieves a channel by name. Returns ErrNotFound when the channel
// has no stored row.
func (r *ChannelRepository) Get(name string) (*Channel, error) {
	c := &Channel{}
	var config string
	var enabled int

	err := r.db.QueryRow(
		`SELECT name, enabled, plugin_name, action_name, config, updated_at
		 FROM channels WHERE name = ?`,
		name,
	).Scan(&c.Name, &enabled, &c.PluginName, &c.ActionName, &config, &c.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	c.Enabled = enabled != 0
	c.Config = json.RawMessage(config)
	return c, nil
}

// List retrieves all channels ordered by name.
func (r *ChannelRepository) List() ([]*Channel, error) {
	rows, err := r.db.Query(
		`SELECT name, enabled, plugin_name, action_name, config, updated_at
		 FROM channels ORDER BY name`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var channels []*Channel
	for rows.Next() {
		c := &Channel{}
		var config string
		var enabled int

		if err := rows.Scan(&c.Name, &enabled, &c.PluginName, &c.ActionName, &config, &c.UpdatedAt); err != nil {
			return nil, err
		}

		c.Enabled = enabled != 0
		c.Config = json.RawMessage(config)
		channels = append(channels, c)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return channels, nil
}

// SetEnabled toggles a channel without touching its binding.
func (r *ChannelRepository) SetEnabled(name string, enabled bool) error {
	value := 0
	if enabled {
		value = 1
	}

	result, err := r.db.Exec(
		`UPDATE channels SET enabled = ?, updated_at = ? WHERE name = ?`,
		value, time.Now(), name,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
