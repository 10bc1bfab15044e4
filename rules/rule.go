// Package rules implements the condition/action rule engine that reacts to
// memory state transitions and instantiates the short-lived sub-protocols
// (generation, purification, swapping) that carry out a reservation's
// entanglement schedule (spec §4.4).
//
// Rule conditions and actions are expressed as tagged variants (Kind +
// Params), not closures captured over loop variables (DESIGN NOTES §9): the
// reservation protocol builds one Rule per (Kind, Params) pair per node, and
// the Manager dispatches condition/action evaluation on Kind through
// functions supplied once at construction (see Dispatch).
package rules

import "github.com/gandalf-the-gray/qnetsim/memory"

// Kind tags the five rule shapes a reservation installs (spec §4.7.2).
type Kind int

const (
	KindGenerateLeft Kind = iota
	KindGenerateRight
	KindPurify
	KindSwapMiddle
	KindSwapEnd
)

func (k Kind) String() string {
	switch k {
	case KindGenerateLeft:
		return "GenerateLeft"
	case KindGenerateRight:
		return "GenerateRight"
	case KindPurify:
		return "Purify"
	case KindSwapMiddle:
		return "SwapMiddle"
	case KindSwapEnd:
		return "SwapEnd"
	default:
		return "Unknown"
	}
}

// Protocol is the minimal surface the rule manager needs from a sub-protocol
// instance: a name unique within the owning node, used for logging and for
// bookkeeping which protocol currently holds a memory.
type Protocol interface {
	Name() string
}

// MemoryReader is the read-only view of a node's memory manager a condition
// function is given, matching spec §4.4's "(memory_info, memory_manager)"
// condition signature.
type MemoryReader interface {
	Get(index int) (memory.Info, error)
	All() []memory.Info
}

// Condition evaluates whether a rule fires for a changed memory, returning
// the ordered list of memory indices to bind (nil/empty means no match).
// params is the rule's own Params value; changed is the memory that just
// transitioned.
type Condition func(params any, changed memory.Info, reader MemoryReader) []int

// Action instantiates the sub-protocol for a matched rule. selected is the
// snapshot of every memory index the condition returned, in order.
// destinations lists the remote node names the new protocol will coordinate
// with (informational bookkeeping only — the protocols themselves address
// each other directly via canonical names, see package protocols). Action
// may return a nil Protocol to veto the match (e.g. a duplicate already in
// flight), in which case the rule manager continues as if the condition had
// not matched.
type Action func(params any, selected []memory.Info) (proto Protocol, destinations []string)

// Dispatch supplies the condition/action implementation for one Kind. The
// reservation protocol registers one Dispatch per Kind when it builds a
// node's rule manager (see package reservation).
type Dispatch struct {
	Condition Condition
	Action    Action
}

// Rule is one condition/action pair installed at a node for the lifetime of
// a reservation (spec §3, §4.4).
type Rule struct {
	Kind          Kind
	Priority      int
	Params        any
	ReservationID string

	loadOrder int
	active    map[int]Protocol // attached memory index -> protocol
}

// ActiveProtocols returns the protocols this rule currently has attached,
// deduplicated.
func (r *Rule) ActiveProtocols() []Protocol {
	seen := make(map[Protocol]bool, len(r.active))
	out := make([]Protocol, 0, len(r.active))
	for _, p := range r.active {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}
