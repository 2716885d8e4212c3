package cache

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vivenda/agenda/internal/apperr"
	"github.com/vivenda/agenda/internal/domain"
)

// EventCache is the interface the service layer depends on; *DB is the
// SQLite implementation.
type EventCache interface {
	ReplaceRange(start, end time.Time, agentID string, events []domain.CalendarEvent) error
	Upsert(ev domain.CalendarEvent) error
	Delete(id string) error
	Get(id string) (domain.CalendarEvent, error)
	ListRange(start, end time.Time, agentID string) ([]domain.CalendarEvent, error)
	Close() error
}

var _ EventCache = (*DB)(nil)

// Instants are stored as RFC 3339 UTC so lexical comparison matches
// temporal order.
func instant(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// ReplaceRange swaps the cached copy of [start, end) for the given agent
// filter in a single transaction: the reconciliation step after refetch.
func (db *DB) ReplaceRange(start, end time.Time, agentID string, events []domain.CalendarEvent) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("cache: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if agentID == "" {
		_, err = tx.Exec(`DELETE FROM events WHERE start_utc >= ? AND start_utc < ?`,
			instant(start), instant(end))
	} else {
		_, err = tx.Exec(`DELETE FROM events WHERE start_utc >= ? AND start_utc < ? AND agent_id = ?`,
			instant(start), instant(end), agentID)
	}
	if err != nil {
		return fmt.Errorf("cache: clear range: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO events
			(id, title, description, type, status, start_utc, end_utc,
			 agent_id, client_id, property_id, operation_id, visit_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("cache: prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, ev := range events {
		if _, err := stmt.Exec(ev.ID, ev.Title, ev.Description, string(ev.Type), string(ev.Status),
			instant(ev.Start), instant(ev.End),
			ev.AgentID, ev.ClientID, ev.PropertyID, ev.OperationID, ev.VisitID); err != nil {
			return fmt.Errorf("cache: insert event %s: %w", ev.ID, err)
		}
	}

	return tx.Commit()
}

// Upsert patches a single event, the optimistic half of mutate-then-reconcile.
func (db *DB) Upsert(ev domain.CalendarEvent) error {
	_, err := db.conn.Exec(`
		INSERT INTO events
			(id, title, description, type, status, start_utc, end_utc,
			 agent_id, client_id, property_id, operation_id, visit_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title        = excluded.title,
			description  = excluded.description,
			type         = excluded.type,
			status       = excluded.status,
			start_utc    = excluded.start_utc,
			end_utc      = excluded.end_utc,
			agent_id     = excluded.agent_id,
			client_id    = excluded.client_id,
			property_id  = excluded.property_id,
			operation_id = excluded.operation_id,
			visit_id     = excluded.visit_id
	`, ev.ID, ev.Title, ev.Description, string(ev.Type), string(ev.Status),
		instant(ev.Start), instant(ev.End),
		ev.AgentID, ev.ClientID, ev.PropertyID, ev.OperationID, ev.VisitID)
	if err != nil {
		return fmt.Errorf("cache: upsert event %s: %w", ev.ID, err)
	}
	return nil
}

// Delete removes one event. Deleting an absent id is not an error.
func (db *DB) Delete(id string) error {
	if _, err := db.conn.Exec(`DELETE FROM events WHERE id = ?`, id); err != nil {
		return fmt.Errorf("cache: delete event %s: %w", id, err)
	}
	return nil
}

// Get returns a single cached event.
func (db *DB) Get(id string) (domain.CalendarEvent, error) {
	row := db.conn.QueryRow(`
		SELECT id, title, description, type, status, start_utc, end_utc,
		       agent_id, client_id, property_id, operation_id, visit_id
		FROM events WHERE id = ?
	`, id)
	ev, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.CalendarEvent{}, apperr.ErrNotFound
	}
	return ev, err
}

// ListRange returns the cached events whose start falls in [start, end),
// ordered by start instant, optionally filtered by agent.
func (db *DB) ListRange(start, end time.Time, agentID string) ([]domain.CalendarEvent, error) {
	query := `
		SELECT id, title, description, type, status, start_utc, end_utc,
		       agent_id, client_id, property_id, operation_id, visit_id
		FROM events
		WHERE start_utc >= ? AND start_utc < ?`
	args := []any{instant(start), instant(end)}
	if agentID != "" {
		query += ` AND agent_id = ?`
		args = append(args, agentID)
	}
	query += ` ORDER BY start_utc, id`

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("cache: list range: %w", err)
	}
	defer rows.Close()

	var events []domain.CalendarEvent
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (domain.CalendarEvent, error) {
	var ev domain.CalendarEvent
	var typ, status, startStr, endStr string
	if err := row.Scan(&ev.ID, &ev.Title, &ev.Description, &typ, &status, &startStr, &endStr,
		&ev.AgentID, &ev.ClientID, &ev.PropertyID, &ev.OperationID, &ev.VisitID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.CalendarEvent{}, err
		}
		return domain.CalendarEvent{}, fmt.Errorf("cache: scan event: %w", err)
	}
	ev.Type = domain.EventType(typ)
	ev.Status = domain.EventStatus(status)

	start, err := time.Parse(time.RFC3339, startStr)
	if err != nil {
		return domain.CalendarEvent{}, fmt.Errorf("cache: parse start of %s: %w", ev.ID, err)
	}
	end, err := time.Parse(time.RFC3339, endStr)
	if err != nil {
		return domain.CalendarEvent{}, fmt.Errorf("cache: parse end of %s: %w", ev.ID, err)
	}
	ev.Start, ev.End = start, end
	return ev, nil
}
