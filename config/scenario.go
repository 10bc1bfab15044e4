package config

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/gandalf-the-gray/qnetsim/topology"
)

// Request is one scheduled reservation request in a Scenario's script,
// matching network.Node.Request's parameters (spec §4.8/§6).
type Request struct {
	Initiator      string  `yaml:"initiator"`
	Responder      string  `yaml:"responder"`
	StartTime      uint64  `yaml:"start_time"`
	EndTime        uint64  `yaml:"end_time"`
	MemorySize     int     `yaml:"memory_size"`
	TargetFidelity float64 `yaml:"target_fidelity"`
	IsVirtual      bool    `yaml:"is_virtual"`
}

// Scenario is a complete, self-contained test fixture: a topology (spec §6's
// nodes/qchannels/cchannels/virtual_links shape, embedded inline rather than
// in a side file so one YAML document fully describes a scenario) plus the
// request script to run against it. This is test tooling only — the
// original's driver scripts that would assemble these interactively are out
// of scope (spec Non-goals).
type Scenario struct {
	Topology yaml.Node `yaml:"topology"`
	Requests []Request `yaml:"requests"`
}

// ScenarioFromYAML parses a Scenario document. The embedded topology node is
// first decoded to a generic value and re-marshaled to JSON so it can flow
// through topology.Load unchanged, reusing that package's golobby/cast
// numeric coercion instead of duplicating it with yaml-specific tags.
func ScenarioFromYAML(data []byte) (*Scenario, *topology.Graph, error) {
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, nil, fmt.Errorf("config: parse scenario: %w", err)
	}

	var generic any
	if err := s.Topology.Decode(&generic); err != nil {
		return nil, nil, fmt.Errorf("config: decode scenario topology: %w", err)
	}
	asJSON, err := json.Marshal(generic)
	if err != nil {
		return nil, nil, fmt.Errorf("config: re-marshal scenario topology: %w", err)
	}
	graph, err := topology.Load(asJSON)
	if err != nil {
		return nil, nil, fmt.Errorf("config: load scenario topology: %w", err)
	}

	return &s, graph, nil
}
