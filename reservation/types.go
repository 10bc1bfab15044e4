// Package reservation implements the three-phase (REQUEST/APPROVE/REJECT)
// admission-control protocol that reserves memory time-slots along a path
// and, once a path is fully admitted, installs the condition/action rules
// that drive the entanglement pipeline at every node on it (spec §4.7).
package reservation

import "sort"

// Reservation is immutable once created (spec §3).
type Reservation struct {
	ID             string
	Initiator      string
	Responder      string
	StartTime      uint64
	EndTime        uint64
	MemorySize     int
	TargetFidelity float64
	IsVirtual      bool
}

func (r *Reservation) valid() bool {
	return r.StartTime < r.EndTime &&
		r.MemorySize >= 1 &&
		r.TargetFidelity > 0 && r.TargetFidelity <= 1
}

// QCap is the path-accumulator token appended to a REQUEST as it
// propagates; the final sequence the responder sees is the admitted path
// (spec §3).
type QCap struct {
	Node string
}

// MemoryTimeCard tracks the reservations held against one memory, enforcing
// that non-virtual reservations are pairwise time-disjoint while virtual
// reservations may overlap arbitrarily (spec §3, §4.7.1).
type MemoryTimeCard struct {
	memoryIndex int
	nonVirtual  []*Reservation // sorted by StartTime, pairwise disjoint
	virtual     []*Reservation
}

// NewMemoryTimeCard creates an empty card for the memory at index.
func NewMemoryTimeCard(index int) *MemoryTimeCard {
	return &MemoryTimeCard{memoryIndex: index}
}

// Add attempts to insert r. Virtual reservations always succeed and never
// participate in the overlap check (spec §4.7.1). Non-virtual reservations
// are inserted at their lower-bound position in nonVirtual (found by binary
// search, resolving the Open Question in DESIGN NOTES §9) and rejected if
// they overlap either neighbor at that position.
func (c *MemoryTimeCard) Add(r *Reservation) bool {
	if r.IsVirtual {
		c.virtual = append(c.virtual, r)
		return true
	}

	i := sort.Search(len(c.nonVirtual), func(i int) bool {
		return c.nonVirtual[i].StartTime >= r.StartTime
	})
	if i > 0 && c.nonVirtual[i-1].EndTime >= r.StartTime {
		return false
	}
	if i < len(c.nonVirtual) && c.nonVirtual[i].StartTime <= r.EndTime {
		return false
	}

	c.nonVirtual = append(c.nonVirtual, nil)
	copy(c.nonVirtual[i+1:], c.nonVirtual[i:])
	c.nonVirtual[i] = r
	return true
}

// Remove deletes r from the card, used to unwind a REJECT or to reclaim a
// reservation's slot at end_time.
func (c *MemoryTimeCard) Remove(r *Reservation) {
	list := &c.nonVirtual
	if r.IsVirtual {
		list = &c.virtual
	}
	for i, existing := range *list {
		if existing == r {
			*list = append((*list)[:i], (*list)[i+1:]...)
			return
		}
	}
}

// Reservations returns every reservation on the card, non-virtual first in
// chronological order, for introspection and tests.
func (c *MemoryTimeCard) Reservations() []*Reservation {
	out := make([]*Reservation, 0, len(c.nonVirtual)+len(c.virtual))
	out = append(out, c.nonVirtual...)
	out = append(out, c.virtual...)
	return out
}
