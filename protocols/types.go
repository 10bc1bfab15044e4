// Package protocols implements the three paired entanglement sub-protocols
// installed by the resource-manager rules: generation, purification
// (BBPSSW), and swapping (spec §4.5). Each is a short-lived state machine
// attached to one or two memories for the duration of a single attempt; on
// completion (success or failure) it updates memory state and detaches
// itself, letting the rule manager re-evaluate and, on failure, re-fire the
// same rule for an implicit retry (spec §7's EntanglementAttemptFailure
// policy).
package protocols

import (
	"github.com/gandalf-the-gray/qnetsim/memory"
	"github.com/gandalf-the-gray/qnetsim/rules"
)

// MemoryUpdater is the subset of memory.Manager a sub-protocol needs to
// transition the memories it holds.
type MemoryUpdater interface {
	Update(protocol string, index int, newState memory.State, opts ...memory.UpdateOption) (memory.Info, error)
}

// Detacher releases a finished protocol's hold on its memories, handing
// them back to rule-manager control (spec §3 "Ownership").
type Detacher interface {
	Detach(proto rules.Protocol)
}

// MessageHandler is implemented by every sub-protocol instance that can
// receive a classical message addressed to it by canonical name (see
// Registrar).
type MessageHandler interface {
	Name() string
	OnMessage(source string, payload any)
}

// Registrar is the node-level dispatch table a sub-protocol registers under
// its canonical name so a peer's classical message can reach it directly,
// without a search/matching step (see DESIGN.md for why this replaces the
// original pairing-by-closure mechanism).
type Registrar interface {
	RegisterHandler(name string, handler MessageHandler)
	UnregisterHandler(name string)
}

// Sender delivers a classical message to a named protocol instance on
// another node, honoring the classical channel delay (spec §4.2).
type Sender interface {
	Send(source, destination, targetProtocol string, payload any) error
}

// Scheduler lets a sub-protocol read the current simulated time and enqueue
// future work on the timeline.
type Scheduler interface {
	Now() uint64
	Schedule(at uint64, priority int, label string, fn func())
}

// Stoppable is implemented by sub-protocols that can be forcibly halted
// before they complete, so Detacher.Detach (called from rules.Manager.Expire)
// can prevent a stale in-flight reply from mutating a memory that has since
// been reclaimed and possibly reassigned to a different reservation.
type Stoppable interface {
	Stop()
}
