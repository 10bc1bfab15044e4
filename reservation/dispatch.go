package reservation

import (
	"math/rand/v2"
	"strconv"

	"github.com/gandalf-the-gray/qnetsim"
	"github.com/gandalf-the-gray/qnetsim/memory"
	"github.com/gandalf-the-gray/qnetsim/protocols"
	"github.com/gandalf-the-gray/qnetsim/rules"
)

// NeighborInfo describes one of a node's topology-adjacent peers.
type NeighborInfo struct {
	// Middle is the BSM node mediating the physical quantum channel to this
	// neighbor; empty for a virtual link, which has no physical channel.
	Middle string
	Virtual bool
}

// NodeContext bundles the node-level collaborators rule actions need to
// build sub-protocol instances. It is constructed once per node by the
// network facade and is shared by every rule the node ever installs — only
// the per-reservation specifics (peer, indices, target fidelity) travel
// through a Rule's Params (spec DESIGN NOTES §9: dispatch on a tag, not a
// closure per rule).
type NodeContext struct {
	Node            string
	Memories        *memory.Manager
	RuleManager     *rules.Manager
	Registrar       protocols.Registrar
	Sender          protocols.Sender
	Scheduler       protocols.Scheduler
	RNG             *rand.Rand
	Neighbors       map[string]NeighborInfo
	SwapSuccessProb float64
	SwapDegradation float64
	Logger          qnetsim.Logger
}

type genParams struct {
	Indices []int
	Peer    string
	Middle  string
}

type purifyParams struct {
	TargetFidelity float64
}

type swapEndParams struct {
	// ExcludeRemotes lists remote nodes a qualifying memory must NOT be
	// entangled with: the far endpoint itself at an endpoint node (spec
	// §4.7.2 "whose remote is not the far endpoint"), or the left/right
	// swap partners at a middle node (whose memories are instead handled by
	// the SwapMiddle rule).
	ExcludeRemotes []string
	TargetFidelity float64
}

type swapMiddleParams struct {
	Left           string
	Right          string
	TargetFidelity float64
}

// BuildDispatch constructs the fixed, node-wide Condition/Action pair for
// each rules.Kind, closing over ctx. Every reservation installed at this
// node shares this same dispatch map; reservations differentiate themselves
// only through each Rule's Params (spec §4.7.2).
func BuildDispatch(ctx *NodeContext) map[rules.Kind]rules.Dispatch {
	return map[rules.Kind]rules.Dispatch{
		rules.KindGenerateLeft:  {Condition: genCondition, Action: ctx.genAction},
		rules.KindGenerateRight: {Condition: genCondition, Action: ctx.genAction},
		rules.KindPurify:        {Condition: purifyCondition, Action: ctx.purifyAction},
		rules.KindSwapEnd:       {Condition: swapEndCondition, Action: ctx.swapEndAction},
		rules.KindSwapMiddle:    {Condition: swapMiddleCondition, Action: ctx.swapMiddleAction},
	}
}

func genCondition(params any, changed memory.Info, reader rules.MemoryReader) []int {
	p := params.(genParams)
	if changed.State != memory.RAW {
		return nil
	}
	for _, idx := range p.Indices {
		if idx == changed.Index {
			return []int{idx}
		}
	}
	return nil
}

func (ctx *NodeContext) genAction(params any, selected []memory.Info) (rules.Protocol, []string) {
	p := params.(genParams)
	idx := selected[0].Index
	g := protocols.NewGenerationA(ctx.Node, idx, p.Peer, p.Middle, ctx.Memories, ctx.RuleManager, ctx.Registrar, ctx.Sender)
	g.Start()
	return g, []string{p.Peer}
}

func purifyCondition(params any, changed memory.Info, reader rules.MemoryReader) []int {
	p := params.(purifyParams)
	if changed.State != memory.ENTANGLED || changed.Fidelity >= p.TargetFidelity {
		return nil
	}
	for _, other := range reader.All() {
		if other.Index == changed.Index {
			continue
		}
		if other.State == memory.ENTANGLED &&
			other.RemoteNode == changed.RemoteNode &&
			other.Fidelity == changed.Fidelity &&
			other.RemoteMemo != changed.RemoteMemo {
			return []int{changed.Index, other.Index}
		}
	}
	return nil
}

// purifyAction picks one side of the pair to act as BBPSSW's measuring
// responder (B) and the other as proposer (A), deciding deterministically
// by comparing node names: both sides independently fire this same rule
// against the same remote pair and must agree on roles without a prior
// handshake (see DESIGN.md).
func (ctx *NodeContext) purifyAction(params any, selected []memory.Info) (rules.Protocol, []string) {
	kept, meas := selected[0], selected[1]

	if ctx.Node < kept.RemoteNode {
		b := protocols.NewPurificationB(ctx.Node, kept.Index, meas.Index, kept.Fidelity,
			ctx.Memories, ctx.RuleManager, ctx.Registrar, ctx.Sender, ctx.RNG)
		b.Start()
		return b, []string{kept.RemoteNode}
	}

	peerKeptIndex, _ := strconv.Atoi(kept.RemoteMemo)
	a := protocols.NewPurificationA(ctx.Node, kept.Index, meas.Index, kept.RemoteNode, peerKeptIndex,
		ctx.Memories, ctx.RuleManager, ctx.Registrar, ctx.Sender, ctx.RNG)
	a.Start()
	return a, []string{kept.RemoteNode}
}

func swapEndCondition(params any, changed memory.Info, reader rules.MemoryReader) []int {
	p := params.(swapEndParams)
	if changed.State != memory.ENTANGLED || changed.Fidelity < p.TargetFidelity {
		return nil
	}
	for _, excluded := range p.ExcludeRemotes {
		if changed.RemoteNode == excluded {
			return nil
		}
	}
	return []int{changed.Index}
}

func (ctx *NodeContext) swapEndAction(params any, selected []memory.Info) (rules.Protocol, []string) {
	idx := selected[0].Index
	s := protocols.NewSwapEnd(ctx.Node, idx, ctx.Memories, ctx.RuleManager, ctx.Registrar)
	s.Start()
	return s, nil
}

func swapMiddleCondition(params any, changed memory.Info, reader rules.MemoryReader) []int {
	p := params.(swapMiddleParams)
	qualifies := func(i memory.Info, remote string) bool {
		return (i.State == memory.ENTANGLED || i.State == memory.OCCUPIED) &&
			i.RemoteNode == remote && i.Fidelity >= p.TargetFidelity
	}
	if changed.RemoteNode != p.Left && changed.RemoteNode != p.Right {
		return nil
	}
	if !qualifies(changed, changed.RemoteNode) {
		return nil
	}

	leftIdx, rightIdx := -1, -1
	for _, info := range reader.All() {
		if qualifies(info, p.Left) && leftIdx == -1 {
			leftIdx = info.Index
		}
		if qualifies(info, p.Right) && rightIdx == -1 {
			rightIdx = info.Index
		}
	}
	if leftIdx == -1 || rightIdx == -1 || leftIdx == rightIdx {
		return nil
	}
	return []int{leftIdx, rightIdx}
}

func (ctx *NodeContext) swapMiddleAction(params any, selected []memory.Info) (rules.Protocol, []string) {
	left, right := selected[0], selected[1]
	if left.State == memory.OCCUPIED || right.State == memory.OCCUPIED {
		ctx.Logger.Warn("swap middle condition matched an OCCUPIED memory", "node", ctx.Node,
			"left", left.Index, "right", right.Index)
	}

	mid := protocols.NewSwapMiddle(ctx.Node, left.Index, right.Index, ctx.SwapSuccessProb, ctx.SwapDegradation,
		ctx.Memories, ctx.RuleManager, ctx.Sender, ctx.RNG)

	// Run is deferred to a fresh timeline event rather than called inline:
	// it mutates both memories synchronously, which would otherwise
	// recursively re-enter the rule manager's OnMemoryUpdate while this very
	// Action call is still on the stack, before the memories are even marked
	// attached to mid.
	now := ctx.Scheduler.Now()
	ctx.Scheduler.Schedule(now, 5, "swap-middle:"+ctx.Node, func() {
		mid.Run(left, right)
	})

	return mid, []string{left.RemoteNode, right.RemoteNode}
}
