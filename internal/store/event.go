package store

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Event is one fired gesture trigger.
type Event struct {
	ID        string
	Channel   string
	CreatedAt time.Time
}

// EventRepository provides access to the trigger event log.
type EventRepository struct {
	db *sql.DB
}

// Events returns the event repository for this store.
func (s *Store) Events() *EventRepository {
	return &EventRepository{db: s.db}
}

// Insert logs a trigger on the given channel and returns the stored event.
func (r *EventRepository) Insert(channel string) (*Event, error) {
	e := &Event{
		ID:        uuid.New().String(),
		Channel:   channel,
		CreatedAt: time.Now(),
	}

	_, err := r.db.Exec(
		`INSERT INTO events (id, channel, created_at) VALUES (?, ?, ?)`,
		e.ID, e.Channel, e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// ListRecent retrieves the most recent events, newest first.
func (r *EventRepository) ListRecent(limit int) ([]*Event, error) {
	rows, err := r.db.Query(
		`SELECT id, channel, created_at FROM events
		 ORDER BY created_at DESC, id LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		e := &Event{}
		if err := rows.Scan(&e.ID, &e.Channel, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return events, nil
}

// Prune deletes events older than the cutoff and reports how many rows
// were removed.
func (r *EventRepository) Prune(olderThan time.Time) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM events WHERE created_at < ?`, olderThan)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
