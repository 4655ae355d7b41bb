package meeting

import (
	"cmp"
	"fmt"
)

// Day boundaries, in minutes from midnight.
const (
	StartOfDay = 0
	EndOfDay   = 24 * 60
)

// WholeDay spans the entire day, including its end boundary.
var WholeDay = TimeRange{Start: StartOfDay, End: EndOfDay, Inclusive: true}

// TimeRange is a span of minutes within a single day. Start is inclusive and
// End is exclusive unless Inclusive is set, which only happens for a range
// that runs up to EndOfDay.
type TimeRange struct {
	Start     int  `json:"start"`
	End       int  `json:"end"`
	Inclusive bool `json:"inclusive,omitempty"`
}

// FromStartEnd builds a range from its boundaries.
func FromStartEnd(start, end int, inclusive bool) TimeRange {
	return TimeRange{Start: start, End: end, Inclusive: inclusive}
}

// FromStartDuration builds a half-open range of the given length.
func FromStartDuration(start, duration int) TimeRange {
	return TimeRange{Start: start, End: start + duration}
}

// Duration returns the length of the range in minutes.
func (r TimeRange) Duration() int {
	return r.End - r.Start
}

// Contains reports whether minute falls inside the range.
func (r TimeRange) Contains(minute int) bool {
	if minute < r.Start {
		return false
	}
	if r.Inclusive {
		return minute <= r.End
	}
	return minute < r.End
}

// ContainsRange reports whether o lies entirely inside r.
func (r TimeRange) ContainsRange(o TimeRange) bool {
	if o.Start < r.Start {
		return false
	}
	if o.End > r.End {
		return false
	}
	// An inclusive end reaching our exclusive end sticks out by one minute.
	return !(o.Inclusive && !r.Inclusive && o.End == r.End && o.Duration() > 0)
}

// Overlaps reports whether r and o share at least one minute.
func (r TimeRange) Overlaps(o TimeRange) bool {
	// One range must contain the start of the other.
	return r.Contains(o.Start) || o.Contains(r.Start)
}

// Equal reports whether both ranges have the same boundaries and end semantics.
func (r TimeRange) Equal(o TimeRange) bool {
	return r == o
}

func (r TimeRange) String() string {
	if r.Inclusive {
		return fmt.Sprintf("Range: [%d, %d]", r.Start, r.End)
	}
	return fmt.Sprintf("Range: [%d, %d)", r.Start, r.End)
}

// CompareByStart orders ranges by start, breaking ties by end.
func CompareByStart(a, b TimeRange) int {
	if c := cmp.Compare(a.Start, b.Start); c != 0 {
		return c
	}
	return cmp.Compare(a.End, b.End)
}

// CompareByEnd orders ranges by end, breaking ties by start.
func CompareByEnd(a, b TimeRange) int {
	if c := cmp.Compare(a.End, b.End); c != 0 {
		return c
	}
	return cmp.Compare(a.Start, b.Start)
}
