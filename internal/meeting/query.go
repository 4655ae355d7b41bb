// Package meeting finds the free time in a day that a group of attendees share.
package meeting

import (
	"errors"
	"fmt"
	"slices"
)

// ErrInvalidArgument is returned by Validate and QueryStrict for malformed input.
var ErrInvalidArgument = errors.New("invalid argument")

// Query returns every free slot of at least req.Duration minutes during which
// none of req.Attendees is busy. Events without any requested attendee are
// ignored. Slots are sorted by start and never overlap; the slot running to
// EndOfDay is inclusive of it. The result is empty, never nil, when nothing fits.
func Query(events []Event, req MeetingRequest) []TimeRange {
	busy := busyRanges(events, req.Attendees)
	slices.SortFunc(busy, CompareByStart)

	slots := []TimeRange{}
	for _, free := range freeRanges(busy) {
		if free.Duration() >= req.Duration {
			slots = append(slots, free)
		}
	}
	return slots
}

// QueryStrict validates its input before running Query.
func QueryStrict(events []Event, req MeetingRequest) ([]TimeRange, error) {
	if err := Validate(events, req); err != nil {
		return nil, err
	}
	return Query(events, req), nil
}

// Validate rejects negative durations and event ranges that are inverted or
// fall outside the day.
func Validate(events []Event, req MeetingRequest) error {
	if req.Duration < 0 {
		return fmt.Errorf("%w: duration %d is negative", ErrInvalidArgument, req.Duration)
	}
	for _, e := range events {
		r := e.When
		if r.Start > r.End {
			return fmt.Errorf("%w: event %q starts after it ends (%d > %d)", ErrInvalidArgument, e.Name, r.Start, r.End)
		}
		if r.Start < StartOfDay || r.End > EndOfDay {
			return fmt.Errorf("%w: event %q %s is outside the day", ErrInvalidArgument, e.Name, r)
		}
	}
	return nil
}

// busyRanges collects the ranges of events shared with any of attendees.
// The returned slice is a fresh copy that callers may reorder.
func busyRanges(events []Event, attendees []string) []TimeRange {
	wanted := make(map[string]struct{}, len(attendees))
	for _, a := range attendees {
		wanted[a] = struct{}{}
	}

	var busy []TimeRange
	for _, e := range events {
		for _, a := range e.Attendees {
			if _, ok := wanted[a]; ok {
				busy = append(busy, e.When)
				break
			}
		}
	}
	return busy
}

// freeRanges sweeps busy ranges sorted by start and returns the gaps between
// them. Overlapping and nested busy ranges merge because the cursor only
// ever moves forward.
func freeRanges(busy []TimeRange) []TimeRange {
	var free []TimeRange
	start := StartOfDay
	for _, r := range busy {
		if start < r.Start {
			free = append(free, FromStartEnd(start, r.Start, false))
		}
		start = max(start, r.End)
	}
	if start < EndOfDay {
		free = append(free, FromStartEnd(start, EndOfDay, true))
	}
	return free
}
