package timeline

import "errors"

// Scheduling errors.
var (
	// ErrEventTimeInPast is returned when Schedule is asked to enqueue an
	// event at a time earlier than the timeline's current clock. The
	// timeline never runs time backward (spec §4.1).
	ErrEventTimeInPast = errors.New("timeline: event time is before current time")
)
