package model

import "time"

// CalendarEvent is a stored event on a single day. StartMinute and EndMinute
// count minutes from midnight of Day (YYYY-MM-DD).
type CalendarEvent struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Day         string    `json:"day"`
	StartMinute int       `json:"start_minute"`
	EndMinute   int       `json:"end_minute"`
	Attendees   []string  `json:"attendees"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
