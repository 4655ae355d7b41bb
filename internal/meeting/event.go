package meeting

import "slices"

// Event is a named, already-scheduled block of time and the people attending it.
type Event struct {
	Name      string
	When      TimeRange
	Attendees []string
}

// HasAttendee reports whether id is attending the event.
func (e Event) HasAttendee(id string) bool {
	return slices.Contains(e.Attendees, id)
}

// SharesAttendee reports whether any of ids attends the event.
func (e Event) SharesAttendee(ids []string) bool {
	for _, a := range e.Attendees {
		if slices.Contains(ids, a) {
			return true
		}
	}
	return false
}

// MeetingRequest asks for a slot of Duration minutes where every one of
// Attendees is free.
type MeetingRequest struct {
	Attendees []string
	Duration  int
}
