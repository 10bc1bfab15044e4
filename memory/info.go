package memory

// State is the lifecycle state of a single quantum memory (spec §3).
type State int

const (
	// RAW memories hold no entanglement and are free for a rule to claim.
	RAW State = iota
	// OCCUPIED memories are attached to an in-flight sub-protocol.
	OCCUPIED
	// ENTANGLED memories hold a completed entangled pair with a remote peer.
	ENTANGLED
	// EXPIRED memories belonged to a reservation whose window has closed
	// and have not yet been reclaimed to RAW.
	EXPIRED
)

func (s State) String() string {
	switch s {
	case RAW:
		return "RAW"
	case OCCUPIED:
		return "OCCUPIED"
	case ENTANGLED:
		return "ENTANGLED"
	case EXPIRED:
		return "EXPIRED"
	default:
		return "UNKNOWN"
	}
}

// Info is a snapshot of one memory's state (spec §3's MemoryInfo). Invariant:
// State == ENTANGLED implies RemoteNode != "" and EntangleTime <= now,
// enforced by Manager.Update.
type Info struct {
	Index        int
	State        State
	RemoteNode   string
	RemoteMemo   string
	Fidelity     float64
	EntangleTime uint64
}

// Free reports whether the memory is in the RAW state. It does not consider
// attachment to an active protocol: that is tracked by the rule manager, not
// here — Info only reports physical state.
func (i Info) Free() bool {
	return i.State == RAW
}
