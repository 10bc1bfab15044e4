package protocols

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"sync"

	"github.com/gandalf-the-gray/qnetsim"
	"github.com/gandalf-the-gray/qnetsim/memory"
	"github.com/gandalf-the-gray/qnetsim/messaging"
)

// AttemptRequest is the (opaque, classical-channel-carried) message a
// GenerationA sends to its middle BSM node to request a Bell-state
// measurement attempt (spec §4.5, "Generation").
type AttemptRequest struct {
	FromNode        string
	FromMemoryIndex int
	ReplyTarget     string
	PeerNode        string
}

// MessageType satisfies messaging's optional payload-naming hook.
func (AttemptRequest) MessageType() string { return "generation.attempt" }

// GenerationResult is the BSM's reply to each side of a paired attempt.
type GenerationResult struct {
	Success         bool
	Basis           int
	PeerNode        string
	PeerMemoryIndex int
}

func (GenerationResult) MessageType() string { return "generation.result" }

type pendingAttempt struct {
	fromNode        string
	fromMemoryIndex int
	replyTarget     string
}

// BSM is the non-memory node performing Bell-state measurement for one pair
// of neighboring routers (spec glossary, "BSM node"). It holds at most one
// attempt pending per unordered (nodeA, nodeB) pair: a second attempt from
// the same side before its peer responds simply replaces the pending one,
// modelling a node that only ever has one outstanding photon emission per
// link (see DESIGN.md).
type BSM struct {
	name        string
	fabric      *messaging.Fabric
	rng         *rand.Rand
	successProb float64
	logger      qnetsim.Logger

	mu      sync.Mutex
	pending map[string]pendingAttempt
}

// NewBSM constructs a BSM station. successProb is the probability (supplied
// by the topology/physical-layer collaborator, computed once from the
// mediated qchannels' attenuation and distance) that a given attempt yields
// a usable Bell pair; the core treats it as opaque (spec §4.5).
func NewBSM(name string, fabric *messaging.Fabric, rng *rand.Rand, successProb float64, logger qnetsim.Logger) *BSM {
	if logger == nil {
		logger = qnetsim.NopLogger{}
	}
	return &BSM{
		name:        name,
		fabric:      fabric,
		rng:         rng,
		successProb: successProb,
		logger:      logger,
		pending:     make(map[string]pendingAttempt),
	}
}

func pairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "|" + b
}

// ReceiveMessage implements messaging.Receiver, handling AttemptRequest
// envelopes addressed to this BSM's node name.
func (b *BSM) ReceiveMessage(source string, envelope messaging.Envelope) {
	req, ok := envelope.Payload().(AttemptRequest)
	if !ok {
		b.logger.Warn("bsm received unexpected payload", "bsm", b.name, "source", source)
		return
	}

	key := pairKey(req.FromNode, req.PeerNode)

	b.mu.Lock()
	existing, have := b.pending[key]
	if !have || existing.fromNode == req.FromNode {
		b.pending[key] = pendingAttempt{
			fromNode:        req.FromNode,
			fromMemoryIndex: req.FromMemoryIndex,
			replyTarget:     req.ReplyTarget,
		}
		b.mu.Unlock()
		return
	}
	delete(b.pending, key)
	b.mu.Unlock()

	success := b.rng.Float64() < b.successProb
	basis := b.rng.IntN(4)

	b.reply(existing.fromNode, existing.replyTarget, GenerationResult{
		Success: success, Basis: basis,
		PeerNode: req.FromNode, PeerMemoryIndex: req.FromMemoryIndex,
	})
	b.reply(req.FromNode, req.ReplyTarget, GenerationResult{
		Success: success, Basis: basis,
		PeerNode: existing.fromNode, PeerMemoryIndex: existing.fromMemoryIndex,
	})
}

func (b *BSM) reply(node, target string, result GenerationResult) {
	if err := b.fabric.Send(b.name, node, target, result); err != nil {
		b.logger.Error("bsm reply failed", "bsm", b.name, "node", node, "err", err)
	}
}

// GenerationA is the entanglement-generation sub-protocol instance attached
// to one local memory. Input is the local memory, the peer node name, and
// the name of the middle (BSM) node; output is either an ENTANGLED memory
// addressed at the peer's memory, or a reversion to RAW on failure (spec
// §4.5). A fresh attempt on failure is not self-scheduled here: reverting to
// RAW re-triggers rule evaluation, and the same rule re-fires and builds a
// new GenerationA, which is the implicit retry policy (spec §7).
type GenerationA struct {
	node        string
	memoryIndex int
	peer        string
	middle      string

	mm        MemoryUpdater
	detacher  Detacher
	registrar Registrar
	sender    Sender

	mu      sync.Mutex
	stopped bool
}

// NewGenerationA constructs a generation attempt for the local memory at
// index, coordinated with peer via middle.
func NewGenerationA(node string, memoryIndex int, peer, middle string, mm MemoryUpdater, detacher Detacher, registrar Registrar, sender Sender) *GenerationA {
	return &GenerationA{
		node:        node,
		memoryIndex: memoryIndex,
		peer:        peer,
		middle:      middle,
		mm:          mm,
		detacher:    detacher,
		registrar:   registrar,
		sender:      sender,
	}
}

// Name returns this instance's canonical, predictable name: derived from the
// local node and memory index, so a peer can address it directly without a
// matching search (see DESIGN.md, replacing spec §4.4's destination/matcher
// pairing).
func (g *GenerationA) Name() string {
	return fmt.Sprintf("gen:%s:%d", g.node, g.memoryIndex)
}

// Start registers this instance for replies and sends the attempt request to
// the middle BSM node.
func (g *GenerationA) Start() {
	g.registrar.RegisterHandler(g.Name(), g)
	_ = g.sender.Send(g.node, g.middle, "bsm", AttemptRequest{
		FromNode:        g.node,
		FromMemoryIndex: g.memoryIndex,
		ReplyTarget:     g.Name(),
		PeerNode:        g.peer,
	})
}

// OnMessage implements MessageHandler, handling the BSM's GenerationResult.
func (g *GenerationA) OnMessage(source string, payload any) {
	g.mu.Lock()
	if g.stopped {
		g.mu.Unlock()
		return
	}
	g.stopped = true
	g.mu.Unlock()

	g.registrar.UnregisterHandler(g.Name())
	// Detach before updating, so the rule manager sees the memory as free
	// when the update below triggers rule evaluation.
	g.detacher.Detach(g)

	result, ok := payload.(GenerationResult)
	if !ok {
		return
	}

	if result.Success {
		_, _ = g.mm.Update(g.Name(), g.memoryIndex, memory.ENTANGLED,
			memory.WithRemote(result.PeerNode, strconv.Itoa(result.PeerMemoryIndex)),
			memory.WithFidelity(rawEntanglementFidelity))
		return
	}
	_, _ = g.mm.Update(g.Name(), g.memoryIndex, memory.RAW)
}

// Stop halts this instance before it completes, so a reply that arrives
// after its rule has expired (and the memory reclaimed) is ignored.
func (g *GenerationA) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.stopped {
		return
	}
	g.stopped = true
	g.registrar.UnregisterHandler(g.Name())
}

// rawEntanglementFidelity is the fidelity assigned to a freshly generated
// (unpurified) entangled pair. The physical layer is opaque to the core
// (spec §4.5); this constant stands in for it and is the same value the
// original BBPSSW worked examples in spec §4.5.2 use as their starting
// fidelity.
const rawEntanglementFidelity = 0.9
