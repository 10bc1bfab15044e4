package network

import (
	"github.com/gandalf-the-gray/qnetsim"
	"github.com/gandalf-the-gray/qnetsim/protocols"
)

// MiddleNode is a BSM station: the non-memory node mediating entanglement
// generation between two QuantumRouters over a physical qchannel (spec
// glossary, "BSM node"). Unlike Node it carries no memory or reservation
// state of its own — it is registered on the Fabric purely to receive
// AttemptRequest messages and reply with GenerationResult.
type MiddleNode struct {
	name string
	bsm  *protocols.BSM
}

// NewMiddleNode constructs and registers a BSM station under name, with
// successProb the probability a given attempt yields a usable Bell pair.
func NewMiddleNode(cfg Config, successProb float64) *MiddleNode {
	logger := cfg.Logger
	if logger == nil {
		logger = qnetsim.NopLogger{}
	}
	rng := qnetsim.NewNodeRNG(cfg.GlobalSeed, cfg.Name)
	bsm := protocols.NewBSM(cfg.Name, cfg.Fabric, rng, successProb, logger)

	cfg.Fabric.Register(cfg.Name, bsm)
	return &MiddleNode{name: cfg.Name, bsm: bsm}
}

// Name returns the BSM station's node name.
func (m *MiddleNode) Name() string { return m.name }
