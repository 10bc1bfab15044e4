package timeline

// Process is the unit of work an Event carries out when dispatched. The
// original simulator represented this as a reflective (owner, method name,
// args) triple; Go idiom replaces that with a plain closure captured at
// schedule time.
type Process func()

// Event is a single entry on the timeline: a Process to run at a given
// simulated Time, ordered against other events at the same Time by
// Priority (lower runs first) and finally by insertion order.
type Event struct {
	Time     uint64
	Priority int
	Label    string
	process  Process
	seq      uint64
	cancelled bool
}

// Cancel marks the event as cancelled. A cancelled event is skipped when
// dequeued but is not removed from the heap (tombstone model, spec §4.1).
func (e *Event) Cancel() {
	e.cancelled = true
}

// Cancelled reports whether Cancel has been called on this event.
func (e *Event) Cancelled() bool {
	return e.cancelled
}

// eventQueue is a container/heap ordered by (Time, Priority, seq), the same
// three-way tie-break scheme as
// other_examples' inference-sim ClusterEventQueue: timestamp first, then an
// explicit priority band, then a monotonic sequence number for deterministic
// FIFO ordering of same-instant, same-priority events.
type eventQueue []*Event

func (q eventQueue) Len() int { return len(q) }

func (q eventQueue) Less(i, j int) bool {
	if q[i].Time != q[j].Time {
		return q[i].Time < q[j].Time
	}
	if q[i].Priority != q[j].Priority {
		return q[i].Priority < q[j].Priority
	}
	return q[i].seq < q[j].seq
}

func (q eventQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *eventQueue) Push(x any) {
	*q = append(*q, x.(*Event))
}

func (q *eventQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return item
}
