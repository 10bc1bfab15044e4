// Package network assembles the per-node stack — memory, rule engine,
// sub-protocols, routing, and the reservation endpoint — into the single
// facade a simulation driver talks to (spec §4.8), and provides the
// classical-message plumbing (registration, dispatch, delivery) that wires
// them all to a shared messaging.Fabric and timeline.Timeline.
package network

import "github.com/gandalf-the-gray/qnetsim/timeline"

// timelineScheduler adapts *timeline.Timeline to protocols.Scheduler: the
// sub-protocols and the reservation protocol only need to read the current
// time and enqueue future work, never the *timeline.Event handle or the
// scheduling error, both of which the timeline's own callers care about but
// a sub-protocol never acts on.
type timelineScheduler struct {
	tl *timeline.Timeline
}

func newTimelineScheduler(tl *timeline.Timeline) timelineScheduler {
	return timelineScheduler{tl: tl}
}

func (s timelineScheduler) Now() uint64 { return s.tl.Now() }

func (s timelineScheduler) Schedule(at uint64, priority int, label string, fn func()) {
	// The only scheduling error is timeline.ErrEventTimeInPast. It is
	// discarded here, so work requested for a time that has already passed
	// is silently dropped.
	_, _ = s.tl.Schedule(at, priority, label, fn)
}
