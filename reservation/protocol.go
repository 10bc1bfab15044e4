package reservation

import (
	"github.com/google/uuid"

	"github.com/gandalf-the-gray/qnetsim/memory"
	"github.com/gandalf-the-gray/qnetsim/routing"
	"github.com/gandalf-the-gray/qnetsim/rules"
)

// pendingPath is the bookkeeping a node keeps for a reservation between
// seeing its REQUEST and seeing the matching APPROVE or REJECT: where it
// came from (so a reply can be propagated back) and which of this node's
// memories it tentatively reserved (so a REJECT, or end_time, can unwind
// them).
type pendingPath struct {
	reservation *Reservation
	prevHop     string // "" at the initiator
	indices     []int
}

// Protocol is the per-node reservation endpoint: it runs the three-phase
// REQUEST/APPROVE/REJECT admission-control exchange (spec §4.7) and, once a
// path is fully admitted, installs the condition/action rules that drive
// the entanglement pipeline at this node (spec §4.7.2). It implements
// protocols.MessageHandler under the canonical name "reservation".
type Protocol struct {
	ctx    *NodeContext
	routes *routing.Table
	cards  []*MemoryTimeCard

	pending map[string]*pendingPath

	// onResult notifies the network facade when a reservation this node
	// initiated completes, successfully or not.
	onResult func(reservationID string, success bool)
}

// NewProtocol creates a reservation endpoint for a node with memoryCount
// memories, routing decisions made via routes.
func NewProtocol(ctx *NodeContext, routes *routing.Table, memoryCount int) *Protocol {
	cards := make([]*MemoryTimeCard, memoryCount)
	for i := range cards {
		cards[i] = NewMemoryTimeCard(i)
	}
	return &Protocol{
		ctx:     ctx,
		routes:  routes,
		cards:   cards,
		pending: make(map[string]*pendingPath),
	}
}

// Name implements protocols.MessageHandler.
func (p *Protocol) Name() string { return "reservation" }

// SetResultHandler registers a callback invoked when a reservation this
// node initiated via Push reaches a final APPROVE or REJECT.
func (p *Protocol) SetResultHandler(f func(reservationID string, success bool)) {
	p.onResult = f
}

// Push is the initiator's entry point (spec §4.7 Phase 1): it admits the
// reservation locally, then forwards a REQUEST toward responder one hop at
// a time. Returns the new reservation's ID.
func (p *Protocol) Push(responder string, startTime, endTime uint64, memorySize int, targetFidelity float64, isVirtual bool) (string, error) {
	r := &Reservation{
		ID:             uuid.NewString(),
		Initiator:      p.ctx.Node,
		Responder:      responder,
		StartTime:      startTime,
		EndTime:        endTime,
		MemorySize:     memorySize,
		TargetFidelity: targetFidelity,
		IsVirtual:      isVirtual,
	}
	if !r.valid() {
		return "", ErrInvalidRequest
	}

	indices, ok := p.schedule(r, true)
	if !ok {
		return "", ErrAdmissionFailed
	}
	p.pending[r.ID] = &pendingPath{reservation: r, prevHop: "", indices: indices}

	nextHop, err := p.routes.NextHop(p.ctx.Node, responder)
	if err != nil {
		p.rollback(r)
		delete(p.pending, r.ID)
		return "", ErrPathExhausted
	}

	_ = p.ctx.Sender.Send(p.ctx.Node, nextHop, "reservation",
		requestMsg{Reservation: r, QCaps: []QCap{{Node: p.ctx.Node}}})
	return r.ID, nil
}

// OnMessage implements protocols.MessageHandler, dispatching on the wire
// message's concrete type.
func (p *Protocol) OnMessage(source string, payload any) {
	switch msg := payload.(type) {
	case requestMsg:
		p.handleRequest(source, msg)
	case approveMsg:
		p.handleApprove(msg)
	case rejectMsg:
		p.handleReject(msg)
	default:
		// An unknown wire message is a programmer error, not a runtime
		// condition a correct simulation can hit (spec §7.4).
		invariant(false, "unknown message type", "type", payload)
	}
}

func (p *Protocol) handleRequest(source string, msg requestMsg) {
	r := msg.Reservation

	if p.ctx.Node == r.Responder {
		indices, ok := p.schedule(r, true)
		if !ok {
			p.sendReject(source, r)
			return
		}

		path := make([]string, 0, len(msg.QCaps)+1)
		for _, q := range msg.QCaps {
			path = append(path, q.Node)
		}
		path = append(path, p.ctx.Node)

		p.pending[r.ID] = &pendingPath{reservation: r, prevHop: source, indices: indices}
		p.installRules(r, path, indices)
		_ = p.ctx.Sender.Send(p.ctx.Node, source, "reservation", approveMsg{Reservation: r, Path: path})
		return
	}

	indices, ok := p.schedule(r, false)
	if !ok {
		p.sendReject(source, r)
		return
	}
	p.pending[r.ID] = &pendingPath{reservation: r, prevHop: source, indices: indices}

	nextHop, err := p.routes.NextHop(p.ctx.Node, r.Responder)
	if err != nil {
		p.rollback(r)
		delete(p.pending, r.ID)
		p.sendReject(source, r)
		return
	}

	qcaps := make([]QCap, len(msg.QCaps), len(msg.QCaps)+1)
	copy(qcaps, msg.QCaps)
	qcaps = append(qcaps, QCap{Node: p.ctx.Node})
	_ = p.ctx.Sender.Send(p.ctx.Node, nextHop, "reservation", requestMsg{Reservation: r, QCaps: qcaps})
}

func (p *Protocol) handleApprove(msg approveMsg) {
	r := msg.Reservation
	pend, ok := p.pending[r.ID]
	invariant(ok, "approve for unknown reservation", "id", r.ID)

	// The responder already installed its rules when it emitted the
	// APPROVE; every other node on the path installs them on receipt.
	if p.ctx.Node != r.Responder {
		p.installRules(r, msg.Path, pend.indices)
	}

	if pend.prevHop == "" {
		if p.onResult != nil {
			p.onResult(r.ID, true)
		}
		return
	}
	_ = p.ctx.Sender.Send(p.ctx.Node, pend.prevHop, "reservation", approveMsg{Reservation: r, Path: msg.Path})
}

func (p *Protocol) handleReject(msg rejectMsg) {
	r := msg.Reservation
	pend, ok := p.pending[r.ID]
	if !ok {
		// A REJECT is always sent to the hop that forwarded the REQUEST;
		// with no pending entry for r here, there is nothing of this
		// node's own to unwind.
		return
	}

	p.rollback(r)
	delete(p.pending, r.ID)

	if pend.prevHop == "" {
		if p.onResult != nil {
			p.onResult(r.ID, false)
		}
		return
	}
	_ = p.ctx.Sender.Send(p.ctx.Node, pend.prevHop, "reservation", rejectMsg{Reservation: r})
}

func (p *Protocol) sendReject(to string, r *Reservation) {
	_ = p.ctx.Sender.Send(p.ctx.Node, to, "reservation", rejectMsg{Reservation: r})
}

func (p *Protocol) rollback(r *Reservation) {
	pend := p.pending[r.ID]
	if pend == nil {
		return
	}
	for _, idx := range pend.indices {
		p.cards[idx].Remove(r)
	}
}

// schedule runs admission control for r at this node: it walks the node's
// memory cards in index order, tentatively reserving the first
// required = memory_size (endpoint) or 2*memory_size (middle) cards that
// accept it, rolling every tentative reservation back on failure (spec
// §4.7.1).
func (p *Protocol) schedule(r *Reservation, isEndpoint bool) ([]int, bool) {
	required := r.MemorySize
	if !isEndpoint {
		required *= 2
	}

	selected := make([]int, 0, required)
	for _, card := range p.cards {
		if len(selected) == required {
			break
		}
		if card.Add(r) {
			selected = append(selected, card.memoryIndex)
		}
	}
	if len(selected) < required {
		for _, idx := range selected {
			p.cards[idx].Remove(r)
		}
		return nil, false
	}
	return selected, true
}

// installRules builds and schedules the rules for r at this node once its
// path is known, per spec §4.7.2. i is this node's position in path; the
// reserved memory indices split left/right depending on that position.
func (p *Protocol) installRules(r *Reservation, path []string, indices []int) {
	i := indexOf(path, p.ctx.Node)
	invariant(i >= 0, "self not found in approved path", "node", p.ctx.Node, "path", path)

	isLeft := i == 0
	isRight := i == len(path)-1

	var leftIdx, rightIdx []int
	switch {
	case isLeft:
		rightIdx = indices
	case isRight:
		leftIdx = indices
	default:
		m := r.MemorySize
		leftIdx, rightIdx = indices[:m], indices[m:]
	}

	var newRules []*rules.Rule

	if i > 0 {
		leftNeighbor := path[i-1]
		if info, known := p.ctx.Neighbors[leftNeighbor]; known && !info.Virtual {
			idxSet := append([]int{}, leftIdx...)
			// A virtual link's entanglement is a donated slot, not
			// generated: the physical-generation rule facing the other
			// (non-virtual) side also covers the virtual neighbor's index
			// (spec §4.7.2, "virtual-link slot donation").
			if i < len(path)-1 {
				if rinfo, known := p.ctx.Neighbors[path[i+1]]; known && rinfo.Virtual && len(rightIdx) > 0 {
					idxSet = append(idxSet, rightIdx[0])
				}
			}
			newRules = append(newRules, &rules.Rule{
				Kind: rules.KindGenerateLeft, Priority: 10, ReservationID: r.ID,
				Params: genParams{Indices: idxSet, Peer: leftNeighbor, Middle: info.Middle},
			})
		}
	}
	if i < len(path)-1 {
		rightNeighbor := path[i+1]
		if info, known := p.ctx.Neighbors[rightNeighbor]; known && !info.Virtual {
			newRules = append(newRules, &rules.Rule{
				Kind: rules.KindGenerateRight, Priority: 10, ReservationID: r.ID,
				Params: genParams{Indices: rightIdx, Peer: rightNeighbor, Middle: info.Middle},
			})
		}
	}

	newRules = append(newRules, &rules.Rule{
		Kind: rules.KindPurify, Priority: 10, ReservationID: r.ID,
		Params: purifyParams{TargetFidelity: r.TargetFidelity},
	})

	switch {
	case isLeft || isRight:
		far := r.Responder
		if isRight {
			far = r.Initiator
		}
		newRules = append(newRules, &rules.Rule{
			Kind: rules.KindSwapEnd, Priority: 10, ReservationID: r.ID,
			Params: swapEndParams{ExcludeRemotes: []string{far}, TargetFidelity: r.TargetFidelity},
		})
	default:
		left, right := middleSwapNeighbors(path, i)
		newRules = append(newRules, &rules.Rule{
			Kind: rules.KindSwapMiddle, Priority: 10, ReservationID: r.ID,
			Params: swapMiddleParams{Left: left, Right: right, TargetFidelity: r.TargetFidelity},
		})
		// A middle node that has already swapped toward one side may hold
		// entanglement with a node beyond its immediate left/right — that
		// memory still needs an end-style swap of its own.
		newRules = append(newRules, &rules.Rule{
			Kind: rules.KindSwapEnd, Priority: 5, ReservationID: r.ID,
			Params: swapEndParams{ExcludeRemotes: []string{left, right}, TargetFidelity: r.TargetFidelity},
		})
	}

	for _, rule := range newRules {
		rule := rule
		p.ctx.Scheduler.Schedule(r.StartTime, 0, "reservation-load:"+r.ID, func() {
			p.ctx.RuleManager.Load(rule)
		})
		p.ctx.Scheduler.Schedule(r.EndTime, 0, "reservation-expire:"+r.ID, func() {
			_ = p.ctx.RuleManager.Expire(rule)
		})
	}

	// Loading a rule does not itself evaluate it — the rule manager only
	// reacts to a memory state transition (spec §4.4). A memory reserved for
	// this reservation has been sitting RAW since construction, with no
	// transition of its own to notify on, so nothing would ever trigger its
	// generation rule. Re-asserting RAW here, once every rule is loaded
	// (priority 1, after every load's priority 0), is the transition that
	// kicks off evaluation.
	for _, idx := range indices {
		idx := idx
		p.ctx.Scheduler.Schedule(r.StartTime, 1, "reservation-activate:"+r.ID, func() {
			_, _ = p.ctx.Memories.Update("reservation.activate", idx, memory.RAW)
		})
	}

	// rules.Manager.Expire already reclaims every memory it finds attached
	// to one of its own rule's protocols; this is a backstop for indices a
	// rule never ended up attaching (e.g. a generation rule that never saw
	// a RAW trigger) so the card and the memory manager agree once the
	// reservation ends.
	for _, idx := range indices {
		idx := idx
		p.ctx.Scheduler.Schedule(r.EndTime, 1, "reservation-reclaim:"+r.ID, func() {
			_, _ = p.ctx.Memories.Update("reservation.expire", idx, memory.RAW)
			p.cards[idx].Remove(r)
		})
	}
}

// middleSwapNeighbors finds the pair of path nodes a middle node should
// swap between, by repeatedly halving path (keep every other node plus the
// last) until self lands at an odd position (spec §4.7.2's recursive
// path-halving: a node swaps toward its neighbors at the current halving
// level, then the halved path becomes the basis for the next round).
func middleSwapNeighbors(path []string, selfIdx int) (left, right string) {
	self := path[selfIdx]
	current := path
	for {
		pos := indexOf(current, self)
		if pos%2 == 1 {
			return current[pos-1], current[pos+1]
		}
		current = halvePath(current)
	}
}

func halvePath(path []string) []string {
	out := make([]string, 0, len(path)/2+1)
	for i := 0; i < len(path); i += 2 {
		out = append(out, path[i])
	}
	if out[len(out)-1] != path[len(path)-1] {
		out = append(out, path[len(path)-1])
	}
	return out
}

func indexOf(list []string, name string) int {
	for i, v := range list {
		if v == name {
			return i
		}
	}
	return -1
}
