package network

import (
	"sync"

	"github.com/gandalf-the-gray/qnetsim"
	"github.com/gandalf-the-gray/qnetsim/memory"
	"github.com/gandalf-the-gray/qnetsim/messaging"
	"github.com/gandalf-the-gray/qnetsim/protocols"
	"github.com/gandalf-the-gray/qnetsim/reservation"
	"github.com/gandalf-the-gray/qnetsim/routing"
	"github.com/gandalf-the-gray/qnetsim/rules"
	"github.com/gandalf-the-gray/qnetsim/timeline"
)

// Node is a QuantumRouter: the full per-node stack (memory, rule engine,
// reservation endpoint) plus the classical-message mailbox that lets
// sub-protocol instances and the reservation endpoint address one another
// by canonical name (spec §4.8). It implements messaging.Receiver and is
// registered on the shared Fabric under its own name.
type Node struct {
	name        string
	logger      qnetsim.Logger
	fabric      *messaging.Fabric
	memories    *memory.Manager
	ruleManager *rules.Manager
	reservation *reservation.Protocol
	routes      *routing.Table

	mu       sync.Mutex
	handlers map[string]protocols.MessageHandler
}

// Config gathers the collaborators NewNode needs to assemble one router.
type Config struct {
	Name            string
	MemoryCount     int
	GlobalSeed      uint64
	Neighbors       map[string]reservation.NeighborInfo
	SwapSuccessProb float64
	SwapDegradation float64
	Timeline        *timeline.Timeline
	Fabric          *messaging.Fabric
	Routes          *routing.Table
	Logger          qnetsim.Logger
}

// NewNode assembles a router's memory manager, rule manager (with the
// reservation package's condition/action dispatch), and reservation
// endpoint, and registers it on fabric under cfg.Name (spec §4.8).
func NewNode(cfg Config) *Node {
	logger := cfg.Logger
	if logger == nil {
		logger = qnetsim.NopLogger{}
	}

	sched := newTimelineScheduler(cfg.Timeline)
	mm := memory.NewManager(cfg.MemoryCount, sched, memory.WithLogger(logger))

	n := &Node{
		name:     cfg.Name,
		logger:   logger,
		fabric:   cfg.Fabric,
		memories: mm,
		routes:   cfg.Routes,
		handlers: make(map[string]protocols.MessageHandler),
	}

	ctx := &reservation.NodeContext{
		Node:            cfg.Name,
		Memories:        mm,
		Registrar:       n,
		Sender:          cfg.Fabric,
		Scheduler:       sched,
		// NewNodeRNG seeds the node's own dispatch decisions (purification
		// measurement outcomes, swap success rolls) independent of any
		// other node's draw order.
		RNG:             qnetsim.NewNodeRNG(cfg.GlobalSeed, cfg.Name),
		Neighbors:       cfg.Neighbors,
		SwapSuccessProb: cfg.SwapSuccessProb,
		SwapDegradation: cfg.SwapDegradation,
		Logger:          logger,
	}

	dispatch := reservation.BuildDispatch(ctx)
	rm := rules.NewManager(cfg.Name, mm, mm, dispatch, logger)
	mm.SetObserver(rm)
	ctx.RuleManager = rm
	n.ruleManager = rm

	resv := reservation.NewProtocol(ctx, cfg.Routes, cfg.MemoryCount)
	n.reservation = resv
	n.handlers["reservation"] = resv

	cfg.Fabric.Register(cfg.Name, n)
	return n
}

// Name returns the node's name.
func (n *Node) Name() string { return n.name }

// Memories exposes the node's memory manager, for a simulation driver or
// test harness that wants to inspect or seed memory state directly.
func (n *Node) Memories() *memory.Manager { return n.memories }

// Rules returns the rules currently loaded at this node, for a test harness
// asserting the "no rule remains active" cleanup invariant (spec §8).
func (n *Node) Rules() []*rules.Rule { return n.ruleManager.Rules() }

// RegisterHandler implements protocols.Registrar.
func (n *Node) RegisterHandler(name string, handler protocols.MessageHandler) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.handlers[name] = handler
}

// UnregisterHandler implements protocols.Registrar.
func (n *Node) UnregisterHandler(name string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.handlers, name)
}

// ReceiveMessage implements messaging.Receiver: it dispatches the envelope
// to whichever protocol instance its target names. A target with no
// registered handler is dropped, not treated as fatal — a sub-protocol's
// rule can expire (and unregister it) while its peer's reply is already in
// flight; that race is expected, not an InvariantViolation (spec §7.4 lists
// only an unknown message type there).
func (n *Node) ReceiveMessage(source string, envelope messaging.Envelope) {
	n.mu.Lock()
	handler, ok := n.handlers[envelope.Target()]
	n.mu.Unlock()
	if !ok {
		n.logger.Debug("dropped message for unregistered target",
			"node", n.name, "target", envelope.Target(), "source", source)
		return
	}
	handler.OnMessage(source, envelope.Payload())
}

// Request validates and submits a new reservation with this node as
// initiator (spec §4.8's public entry point). now is the current simulated
// time, used to enforce that start_time lies strictly in the future.
func (n *Node) Request(now uint64, responder string, startTime, endTime uint64, memorySize int, targetFidelity float64, isVirtual bool) (string, error) {
	switch {
	case startTime <= now:
		return "", ErrPastStartTime
	case startTime >= endTime:
		return "", ErrInvalidWindow
	case memorySize < 1:
		return "", ErrInvalidMemorySize
	case targetFidelity <= 0 || targetFidelity > 1:
		return "", ErrInvalidFidelity
	}
	if _, err := n.routes.NextHop(n.name, responder); err != nil {
		return "", ErrUnknownResponder
	}
	return n.reservation.Push(responder, startTime, endTime, memorySize, targetFidelity, isVirtual)
}

// OnReservationResult registers a callback invoked when a reservation this
// node initiated completes (spec §7's ReservationApproved/Rejected events).
func (n *Node) OnReservationResult(f func(reservationID string, success bool)) {
	n.reservation.SetResultHandler(f)
}
