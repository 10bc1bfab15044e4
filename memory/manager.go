// Package memory implements the per-node quantum-memory state machine: a
// fixed-size array of memories whose transitions notify an observer (the
// rule manager) so that rule conditions can be re-evaluated immediately
// after every state change (spec §4.3).
package memory

import (
	"github.com/gandalf-the-gray/qnetsim"
)

// Observer is notified after every memory state transition. The rule
// manager implements this to re-evaluate its rules against the changed
// memory (spec §4.4).
type Observer interface {
	OnMemoryUpdate(info Info)
}

// noopObserver is installed by default so Manager never needs a nil check.
type noopObserver struct{}

func (noopObserver) OnMemoryUpdate(Info) {}

// Clock reports the current simulated time, used to stamp EntangleTime and
// to enforce the ENTANGLED invariant (spec §3).
type Clock interface {
	Now() uint64
}

// Manager owns a node's slab of memories (the arena from DESIGN NOTES §9:
// memories are referenced by stable index, never by pointer, so rules and
// time-cards can hold non-owning references).
type Manager struct {
	slab     []Info
	observer Observer
	clock    Clock
	logger   qnetsim.Logger
}

// NewManager creates a Manager with size memories, all initially RAW.
func NewManager(size int, clock Clock, opts ...Option) *Manager {
	slab := make([]Info, size)
	for i := range slab {
		slab[i] = Info{Index: i, State: RAW}
	}
	m := &Manager{
		slab:     slab,
		observer: noopObserver{},
		clock:    clock,
		logger:   qnetsim.NopLogger{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Option configures a Manager at construction time.
type Option func(*Manager)

// WithObserver attaches the rule manager (or any Observer) to be notified of
// every state transition.
func WithObserver(o Observer) Option {
	return func(m *Manager) { m.observer = o }
}

// SetObserver (re)attaches the Observer after construction. Grounded in the
// same need the teacher's eventbus.MemoryEventBus.SetModule fills: the
// observer (here, the rule manager) is typically constructed from a
// reference to this very Manager, so the two can't always be wired through
// constructor options alone.
func (m *Manager) SetObserver(o Observer) {
	m.observer = o
}

// WithLogger attaches a structured logger.
func WithLogger(l qnetsim.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// Size returns the number of memories in the slab.
func (m *Manager) Size() int {
	return len(m.slab)
}

// Get returns a snapshot of the memory at index.
func (m *Manager) Get(index int) (Info, error) {
	if index < 0 || index >= len(m.slab) {
		return Info{}, ErrMemoryIndexOutOfRange
	}
	return m.slab[index], nil
}

// All returns a snapshot of every memory, in index order, for rule
// conditions that need to scan the whole manager (spec §4.3's iteration
// contract).
func (m *Manager) All() []Info {
	out := make([]Info, len(m.slab))
	copy(out, m.slab)
	return out
}

// UpdateOption mutates the transition applied by Update.
type UpdateOption func(*Info)

// WithRemote sets the remote node and remote memory name for an ENTANGLED
// transition.
func WithRemote(node, memo string) UpdateOption {
	return func(i *Info) {
		i.RemoteNode = node
		i.RemoteMemo = memo
	}
}

// WithFidelity sets the fidelity for an ENTANGLED transition.
func WithFidelity(f float64) UpdateOption {
	return func(i *Info) { i.Fidelity = f }
}

// WithEntangleTime overrides the entangle time stamped on an ENTANGLED
// transition (defaults to the manager's clock).
func WithEntangleTime(t uint64) UpdateOption {
	return func(i *Info) { i.EntangleTime = t }
}

// Update transitions the memory at index to newState, applying opts, then
// notifies the observer so rules can re-evaluate. protocol names the caller
// for logging only.
func (m *Manager) Update(protocol string, index int, newState State, opts ...UpdateOption) (Info, error) {
	if index < 0 || index >= len(m.slab) {
		return Info{}, ErrMemoryIndexOutOfRange
	}

	info := &m.slab[index]
	info.State = newState
	switch newState {
	case RAW, EXPIRED:
		info.RemoteNode = ""
		info.RemoteMemo = ""
		info.Fidelity = 0
		info.EntangleTime = 0
	case ENTANGLED:
		info.EntangleTime = m.clock.Now()
	}
	for _, opt := range opts {
		opt(info)
	}

	invariant(!(info.State == ENTANGLED && (info.RemoteNode == "" || info.EntangleTime > m.clock.Now())),
		"ENTANGLED invariant violated (missing remote node or future entangle time)", "index", index)

	m.logger.Debug("memory updated", "protocol", protocol, "index", index, "state", newState.String())
	snapshot := *info
	m.observer.OnMemoryUpdate(snapshot)
	return snapshot, nil
}
