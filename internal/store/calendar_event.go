package store

import (
	"database/sql"
	"fmt"
	"slices"
	"strings"

	"github.com/dukerupert/slotfinder/internal/model"
)

type EventStore struct {
	db *sql.DB
}

func NewEventStore(db *sql.DB) *EventStore {
	return &EventStore{db: db}
}

const eventColumns = `id, name, day, start_minute, end_minute, created_at, updated_at`

func (s *EventStore) Create(name, day string, startMinute, endMinute int, attendees []string) (*model.CalendarEvent, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`INSERT INTO calendar_events (name, day, start_minute, end_minute) VALUES (?, ?, ?, ?)`,
		name, day, startMinute, endMinute,
	)
	if err != nil {
		return nil, fmt.Errorf("insert calendar event: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	if err := insertAttendees(tx, id, attendees); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	return s.GetByID(id)
}

// GetByID returns nil, nil when no event has the given id.
func (s *EventStore) GetByID(id int64) (*model.CalendarEvent, error) {
	var e model.CalendarEvent
	err := s.db.QueryRow(
		`SELECT `+eventColumns+` FROM calendar_events WHERE id = ?`,
		id,
	).Scan(&e.ID, &e.Name, &e.Day, &e.StartMinute, &e.EndMinute, &e.CreatedAt, &e.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query calendar event: %w", err)
	}

	attendees, err := s.attendeesFor(`WHERE event_id = ?`, id)
	if err != nil {
		return nil, err
	}
	e.Attendees = attendees[id]
	if e.Attendees == nil {
		e.Attendees = []string{}
	}

	return &e, nil
}

// ListByDay returns every event on day ordered by start, then end.
func (s *EventStore) ListByDay(day string) ([]model.CalendarEvent, error) {
	events, err := s.listEvents(
		`SELECT `+eventColumns+` FROM calendar_events
		 WHERE day = ?
		 ORDER BY start_minute ASC, end_minute ASC, id ASC`,
		day,
	)
	if err != nil {
		return nil, err
	}

	attendees, err := s.attendeesFor(`WHERE event_id IN (SELECT id FROM calendar_events WHERE day = ?)`, day)
	if err != nil {
		return nil, err
	}
	return withAttendees(events, attendees), nil
}

// ListByDayForAttendees returns the events on day attended by at least one
// of attendees. Each event carries its full attendee list.
func (s *EventStore) ListByDayForAttendees(day string, attendees []string) ([]model.CalendarEvent, error) {
	attendees = NormalizeAttendees(attendees)
	if len(attendees) == 0 {
		return []model.CalendarEvent{}, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(attendees)), ",")
	filter := `SELECT DISTINCT event_id FROM event_attendees WHERE attendee IN (` + placeholders + `)`

	args := make([]any, 0, len(attendees)+1)
	args = append(args, day)
	for _, a := range attendees {
		args = append(args, a)
	}

	events, err := s.listEvents(
		`SELECT `+eventColumns+` FROM calendar_events
		 WHERE day = ? AND id IN (`+filter+`)
		 ORDER BY start_minute ASC, end_minute ASC, id ASC`,
		args...,
	)
	if err != nil {
		return nil, err
	}

	byEvent, err := s.attendeesFor(`WHERE event_id IN (SELECT id FROM calendar_events WHERE day = ? AND id IN (`+filter+`))`, args...)
	if err != nil {
		return nil, err
	}
	return withAttendees(events, byEvent), nil
}

func (s *EventStore) Update(id int64, name, day string, startMinute, endMinute int, attendees []string) (*model.CalendarEvent, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`UPDATE calendar_events
		 SET name = ?, day = ?, start_minute = ?, end_minute = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		name, day, startMinute, endMinute, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update calendar event: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM event_attendees WHERE event_id = ?`, id); err != nil {
		return nil, fmt.Errorf("clear attendees: %w", err)
	}
	if err := insertAttendees(tx, id, attendees); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	return s.GetByID(id)
}

func (s *EventStore) Delete(id int64) error {
	_, err := s.db.Exec("DELETE FROM calendar_events WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete calendar event: %w", err)
	}
	return nil
}

func (s *EventStore) listEvents(query string, args ...any) ([]model.CalendarEvent, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query calendar events: %w", err)
	}
	defer rows.Close()

	var events []model.CalendarEvent
	for rows.Next() {
		var e model.CalendarEvent
		if err := rows.Scan(&e.ID, &e.Name, &e.Day, &e.StartMinute, &e.EndMinute, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan calendar event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// attendeesFor loads attendees grouped by event id for the rows matched by where.
func (s *EventStore) attendeesFor(where string, args ...any) (map[int64][]string, error) {
	rows, err := s.db.Query(
		`SELECT event_id, attendee FROM event_attendees `+where+` ORDER BY event_id, attendee`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("query attendees: %w", err)
	}
	defer rows.Close()

	byEvent := make(map[int64][]string)
	for rows.Next() {
		var id int64
		var attendee string
		if err := rows.Scan(&id, &attendee); err != nil {
			return nil, fmt.Errorf("scan attendee: %w", err)
		}
		byEvent[id] = append(byEvent[id], attendee)
	}
	return byEvent, rows.Err()
}

func insertAttendees(tx *sql.Tx, eventID int64, attendees []string) error {
	for _, a := range NormalizeAttendees(attendees) {
		if _, err := tx.Exec(`INSERT INTO event_attendees (event_id, attendee) VALUES (?, ?)`, eventID, a); err != nil {
			return fmt.Errorf("insert attendee: %w", err)
		}
	}
	return nil
}

func withAttendees(events []model.CalendarEvent, byEvent map[int64][]string) []model.CalendarEvent {
	for i := range events {
		events[i].Attendees = byEvent[events[i].ID]
		if events[i].Attendees == nil {
			events[i].Attendees = []string{}
		}
	}
	return events
}

// NormalizeAttendees trims, drops blanks, and removes duplicates, returning
// the ids sorted.
func NormalizeAttendees(attendees []string) []string {
	out := make([]string, 0, len(attendees))
	for _, a := range attendees {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
