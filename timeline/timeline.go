// Package timeline implements the discrete-event queue that orders and
// dispatches every action in the simulator by simulated picosecond
// timestamp. It is the single sequencer: there is no real concurrency, and
// every Process runs to completion before the next event is dequeued
// (spec §5).
package timeline

import (
	"container/heap"

	"github.com/gandalf-the-gray/qnetsim"
)

// Timeline is an ordered event queue. The zero value is not usable; use New.
type Timeline struct {
	queue   eventQueue
	now     uint64
	nextSeq uint64
	stopAt  uint64
	running bool
	logger  qnetsim.Logger
}

// Option configures a Timeline at construction time.
type Option func(*Timeline)

// WithLogger attaches a structured logger to the timeline.
func WithLogger(l qnetsim.Logger) Option {
	return func(t *Timeline) { t.logger = l }
}

// New creates an initialized, empty Timeline.
func New(opts ...Option) *Timeline {
	t := &Timeline{
		queue:  make(eventQueue, 0),
		logger: qnetsim.NopLogger{},
	}
	heap.Init(&t.queue)
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Now returns the timeline's current simulated time.
func (t *Timeline) Now() uint64 {
	return t.now
}

// Schedule enqueues a Process to run at the given time and priority band
// (lower Priority values run first among events tied on Time). Scheduling an
// event in the past fails loudly per spec §4.1.
func (t *Timeline) Schedule(at uint64, priority int, label string, p Process) (*Event, error) {
	if at < t.now {
		return nil, ErrEventTimeInPast
	}
	ev := &Event{
		Time:     at,
		Priority: priority,
		Label:    label,
		process:  p,
		seq:      t.nextSeq,
	}
	t.nextSeq++
	heap.Push(&t.queue, ev)
	return ev, nil
}

// ScheduleStop requests that Run stop advancing once no events remain at or
// before stopTime. stopTime is soft: if the queue holds events beyond
// stopTime but also some at or before it, those earlier events still run; if
// every remaining event is beyond stopTime, Run ends at the last event that
// actually ran rather than waiting idle for stopTime (spec §4.1).
func (t *Timeline) ScheduleStop(stopTime uint64) {
	t.stopAt = stopTime
}

// Run drains the event queue, advancing Now() to each dequeued event's time
// and invoking its Process, until the queue is empty or every remaining
// event's time is beyond the configured stop time. Run is re-entrant: a
// second call after Run returned resumes processing any events scheduled in
// the meantime (used by callers that advance the clock in stages).
func (t *Timeline) Run() {
	t.running = true
	defer func() { t.running = false }()

	for t.queue.Len() > 0 {
		next := t.queue[0]
		if t.stopAt > 0 && next.Time > t.stopAt {
			return
		}
		ev := heap.Pop(&t.queue).(*Event)
		if ev.cancelled {
			continue
		}
		if ev.Time < t.now {
			// Invariant violation: dispatch order guarantees this cannot
			// happen through normal Schedule calls.
			panic("timeline: dispatched event time is before current time")
		}
		t.now = ev.Time
		t.logger.Debug("dispatching event", "time", ev.Time, "priority", ev.Priority, "label", ev.Label)
		ev.process()
	}
}

// Stop halts a running simulation immediately by draining the queue without
// executing remaining events. Used by callers that need to abandon a
// simulation early (e.g. after detecting an invariant violation upstream).
func (t *Timeline) Stop() {
	t.queue = t.queue[:0]
}

// Running reports whether Run is currently on the call stack (useful for
// protocols that want to assert they were invoked from within a dispatched
// event rather than directly).
func (t *Timeline) Running() bool {
	return t.running
}
