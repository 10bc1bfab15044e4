package protocols

import (
	"fmt"
	"math/rand/v2"
	"strconv"

	"github.com/gandalf-the-gray/qnetsim/memory"
)

// SwapResult is the middle node's report to one of the two end nodes after
// performing an entanglement swap (spec §4.5, "Swapping").
type SwapResult struct {
	Success          bool
	NewFidelity      float64
	OtherNode        string
	OtherMemoryIndex int
}

func (SwapResult) MessageType() string { return "swap.result" }

// SwapMiddle is the entanglement-swapping sub-protocol instance run on the
// router sitting between two already-entangled pairs (left--middle,
// middle--right). It performs the Bell-state measurement linking them
// locally (no message exchange needed for the operation itself, since both
// memories are local) and reports the outcome to both end nodes, who hold
// the matching SwapEnd instances (spec §4.5.2, SwappingA/B generalized: our
// middle node always plays the measuring role, and both ends play the same
// corrective role, so a single SwapEnd type serves both — see DESIGN.md).
type SwapMiddle struct {
	node        string
	leftIndex   int
	rightIndex  int
	successProb float64
	degradation float64

	mm       MemoryUpdater
	detacher Detacher
	sender   Sender
	rng      *rand.Rand
}

// NewSwapMiddle constructs a swap at node over its leftIndex/rightIndex
// memories, which must already be ENTANGLED with distinct remote peers.
// successProb and degradation are the reservation's configured swap success
// rate and fidelity degradation factor (spec §4.7, matching the original
// set_swapping_success_rate/set_swapping_degradation knobs).
func NewSwapMiddle(node string, leftIndex, rightIndex int, successProb, degradation float64, mm MemoryUpdater, detacher Detacher, sender Sender, rng *rand.Rand) *SwapMiddle {
	return &SwapMiddle{
		node: node, leftIndex: leftIndex, rightIndex: rightIndex,
		successProb: successProb, degradation: degradation,
		mm: mm, detacher: detacher, sender: sender, rng: rng,
	}
}

// Name returns this instance's canonical name.
func (s *SwapMiddle) Name() string {
	return fmt.Sprintf("swap-mid:%s:%d:%d", s.node, s.leftIndex, s.rightIndex)
}

// Run performs the swap immediately: it is synchronous from the middle
// node's perspective (both inputs are already local), so unlike Generation
// and Purification there is no Start/OnMessage split — the rule action
// calls Run directly once both memories are bound.
func (s *SwapMiddle) Run(left, right memory.Info) {
	s.detacher.Detach(s)

	success := s.rng.Float64() < s.successProb
	newFidelity := left.Fidelity * right.Fidelity * s.degradation

	_, _ = s.mm.Update(s.Name(), s.leftIndex, memory.RAW)
	_, _ = s.mm.Update(s.Name(), s.rightIndex, memory.RAW)

	leftMemo, _ := strconv.Atoi(left.RemoteMemo)
	rightMemo, _ := strconv.Atoi(right.RemoteMemo)

	target := fmt.Sprintf("swap-end:%s:%d", left.RemoteNode, leftMemo)
	_ = s.sender.Send(s.node, left.RemoteNode, target, SwapResult{
		Success: success, NewFidelity: newFidelity,
		OtherNode: right.RemoteNode, OtherMemoryIndex: rightMemo,
	})

	target = fmt.Sprintf("swap-end:%s:%d", right.RemoteNode, rightMemo)
	_ = s.sender.Send(s.node, right.RemoteNode, target, SwapResult{
		Success: success, NewFidelity: newFidelity,
		OtherNode: left.RemoteNode, OtherMemoryIndex: leftMemo,
	})
}

// SwapEnd is the corrective sub-protocol instance run on either end node of
// a swap, holding the one local memory entangled with the middle node. It
// waits for the middle's SwapResult and either re-points its entanglement
// record at the far end node (on success) or reverts to RAW (on failure).
type SwapEnd struct {
	node        string
	memoryIndex int

	mm        MemoryUpdater
	detacher  Detacher
	registrar Registrar
}

// NewSwapEnd constructs the corrective half of a swap for the local memory
// at index.
func NewSwapEnd(node string, memoryIndex int, mm MemoryUpdater, detacher Detacher, registrar Registrar) *SwapEnd {
	return &SwapEnd{node: node, memoryIndex: memoryIndex, mm: mm, detacher: detacher, registrar: registrar}
}

// Name returns this instance's canonical name, matching the target
// SwapMiddle.Run addresses its result to.
func (s *SwapEnd) Name() string {
	return fmt.Sprintf("swap-end:%s:%d", s.node, s.memoryIndex)
}

// Start registers this instance to receive the middle's result.
func (s *SwapEnd) Start() {
	s.registrar.RegisterHandler(s.Name(), s)
}

// OnMessage implements MessageHandler, handling the middle's SwapResult.
func (s *SwapEnd) OnMessage(source string, payload any) {
	s.registrar.UnregisterHandler(s.Name())
	s.detacher.Detach(s)

	result, ok := payload.(SwapResult)
	if !ok {
		return
	}

	if !result.Success {
		_, _ = s.mm.Update(s.Name(), s.memoryIndex, memory.RAW)
		return
	}

	_, _ = s.mm.Update(s.Name(), s.memoryIndex, memory.ENTANGLED,
		memory.WithRemote(result.OtherNode, strconv.Itoa(result.OtherMemoryIndex)),
		memory.WithFidelity(result.NewFidelity))
}
