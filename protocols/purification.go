package protocols

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"sync"

	"github.com/gandalf-the-gray/qnetsim/memory"
)

// PurifyRequest asks the responding side to run the BBPSSW step on its pair
// and names the proposer's kept memory and reply target (spec §4.5,
// "Purification").
type PurifyRequest struct {
	FromNode        string
	FromMemoryIndex int
	ReplyTarget     string
}

func (PurifyRequest) MessageType() string { return "purify.request" }

// PurifyResult is the reply from the side that performs the CNOT+measure
// step, reporting whether the measurement outcomes agreed (the purification
// succeeded) and, if so, the peer's kept-memory index.
type PurifyResult struct {
	Success         bool
	PeerMemoryIndex int
	NewFidelity     float64
}

func (PurifyResult) MessageType() string { return "purify.result" }

// BBPSSWUpdate applies the canonical BBPSSW fidelity update (spec §4.5.2):
// given two entangled pairs of fidelity f, purification succeeds with
// probability p and, on success, yields a single pair of fidelity f2.
func BBPSSWUpdate(f float64) (successProb, newFidelity float64) {
	other := (1 - f) / 3
	p := f*f + 2*f*other + 5*other*other
	f2 := (f*f + other*other) / p
	return p, f2
}

// PurificationA is the BBPSSW sub-protocol instance run on the side that
// initiates the attempt. It consumes two local memories (kept, meas), both
// already entangled with the same peer node, and leaves kept at the improved
// fidelity on success or reverts both to RAW on failure.
type PurificationA struct {
	node          string
	keptIndex     int
	measIndex     int
	peer          string
	peerKeptIndex int

	mm        MemoryUpdater
	detacher  Detacher
	registrar Registrar
	sender    Sender
	rng       *rand.Rand

	mu      sync.Mutex
	stopped bool
}

// NewPurificationA constructs a purification attempt. peerKeptIndex is the
// remote node's memory index for the pair being purified against (read off
// memory.Info.RemoteMemo by the rule action that builds this instance).
func NewPurificationA(node string, keptIndex, measIndex int, peer string, peerKeptIndex int, mm MemoryUpdater, detacher Detacher, registrar Registrar, sender Sender, rng *rand.Rand) *PurificationA {
	return &PurificationA{
		node: node, keptIndex: keptIndex, measIndex: measIndex,
		peer: peer, peerKeptIndex: peerKeptIndex,
		mm: mm, detacher: detacher, registrar: registrar, sender: sender, rng: rng,
	}
}

// Name returns this instance's canonical name, addressable by the peer
// directly (see DESIGN.md).
func (p *PurificationA) Name() string {
	return fmt.Sprintf("pur:%s:%d:%d", p.node, p.keptIndex, p.measIndex)
}

// Start registers for the reply and sends the purification request to the
// peer's canonical purification-responder name for the paired memory.
func (p *PurificationA) Start() {
	p.registrar.RegisterHandler(p.Name(), p)
	target := fmt.Sprintf("pur-b:%s:%d", p.peer, p.peerKeptIndex)
	_ = p.sender.Send(p.node, p.peer, target, PurifyRequest{
		FromNode:        p.node,
		FromMemoryIndex: p.keptIndex,
		ReplyTarget:     p.Name(),
	})
}

// OnMessage implements MessageHandler, handling the peer's PurifyResult.
func (p *PurificationA) OnMessage(source string, payload any) {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	p.mu.Unlock()

	p.registrar.UnregisterHandler(p.Name())
	p.detacher.Detach(p)

	result, ok := payload.(PurifyResult)
	if !ok {
		return
	}

	// The measurement memory is consumed regardless of outcome.
	_, _ = p.mm.Update(p.Name(), p.measIndex, memory.RAW)

	if !result.Success {
		_, _ = p.mm.Update(p.Name(), p.keptIndex, memory.RAW)
		return
	}

	_, _ = p.mm.Update(p.Name(), p.keptIndex, memory.ENTANGLED,
		memory.WithRemote(p.peer, strconv.Itoa(result.PeerMemoryIndex)),
		memory.WithFidelity(result.NewFidelity))
}

// Stop halts this instance before completion.
func (p *PurificationA) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return
	}
	p.stopped = true
	p.registrar.UnregisterHandler(p.Name())
}

// PurificationB is the BBPSSW sub-protocol instance run on the responding
// side. It owns the same pair of local memories as its peer's
// PurificationA: keptIndex is entangled with the peer's keptIndex, measIndex
// with the peer's measIndex. It computes the actual success draw (the
// proposer trusts the responder's verdict, matching BBPSSW's symmetric CNOT
// + measure-and-compare step) and reports both the outcome and its own kept
// index so the proposer can record the right RemoteMemo.
type PurificationB struct {
	node      string
	keptIndex int
	measIndex int
	fidelity  float64

	mm        MemoryUpdater
	detacher  Detacher
	registrar Registrar
	sender    Sender
	rng       *rand.Rand
}

// NewPurificationB constructs the responder side. fidelity is the current
// fidelity of the entangled pair being purified (both memories share it,
// per spec §4.5.2's BBPSSW precondition).
func NewPurificationB(node string, keptIndex, measIndex int, fidelity float64, mm MemoryUpdater, detacher Detacher, registrar Registrar, sender Sender, rng *rand.Rand) *PurificationB {
	return &PurificationB{
		node: node, keptIndex: keptIndex, measIndex: measIndex, fidelity: fidelity,
		mm: mm, detacher: detacher, registrar: registrar, sender: sender, rng: rng,
	}
}

// Name returns this instance's canonical responder name, matching the
// target PurificationA.Start addresses its request to.
func (p *PurificationB) Name() string {
	return fmt.Sprintf("pur-b:%s:%d", p.node, p.keptIndex)
}

// Start registers this responder so the proposer's request can reach it;
// unlike PurificationA, it has no outbound work until a request arrives.
func (p *PurificationB) Start() {
	p.registrar.RegisterHandler(p.Name(), p)
}

// OnMessage implements MessageHandler, handling the proposer's PurifyRequest.
func (p *PurificationB) OnMessage(source string, payload any) {
	p.registrar.UnregisterHandler(p.Name())
	p.detacher.Detach(p)

	req, ok := payload.(PurifyRequest)
	if !ok {
		return
	}

	successProb, newFidelity := BBPSSWUpdate(p.fidelity)
	success := p.rng.Float64() < successProb

	_, _ = p.mm.Update(p.Name(), p.measIndex, memory.RAW)
	if success {
		_, _ = p.mm.Update(p.Name(), p.keptIndex, memory.ENTANGLED,
			memory.WithFidelity(newFidelity))
	} else {
		_, _ = p.mm.Update(p.Name(), p.keptIndex, memory.RAW)
	}

	_ = p.sender.Send(p.node, req.FromNode, req.ReplyTarget, PurifyResult{
		Success:         success,
		PeerMemoryIndex: p.keptIndex,
		NewFidelity:     newFidelity,
	})
}
